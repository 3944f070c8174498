// Package index maps checkers positions to dense integers and back.
//
// Positions are grouped by Key: the number of pieces of each kind plus the
// leading rank of each side's men. Within a key every position gets an
// index in [0, Size(key)). Men are counted with the combinatorial number
// system over the squares they may occupy, kings over the squares left
// free by the men. Black and white men are indexed independently of one
// another, so a few indices decode to positions where they overlap; such
// indices are impossible and callers detect them with Impossible.
package index

import (
	"fmt"

	"gonum.org/v1/gonum/stat/combin"

	"github.com/domino14/checkersdb/bitboard"
	"github.com/domino14/checkersdb/board"
)

var binomial [33][33]int64

func init() {
	for n := 0; n <= 32; n++ {
		for k := 0; k <= n; k++ {
			binomial[n][k] = int64(combin.Binomial(n, k))
		}
	}
}

// Binomial returns n choose k, or 0 if k > n or either is out of range.
func Binomial(n, k int) int64 {
	if n < 0 || k < 0 || n > 32 || k > 32 {
		return 0
	}
	return binomial[n][k]
}

// Key identifies a slice of the database.
type Key struct {
	BM     int
	BK     int
	WM     int
	WK     int
	BMRank int
	WMRank int
}

func (k Key) String() string {
	return fmt.Sprintf("%d%d%d%d-%d%d", k.BM, k.BK, k.WM, k.WK, k.BMRank, k.WMRank)
}

// Pieces is the total number of pieces on the board.
func (k Key) Pieces() int {
	return k.BM + k.BK + k.WM + k.WK
}

// IsSymmetric reports whether the key describes the same material and
// ranks for both sides. Such a slice with white to move is the mirror of
// the slice with black to move.
func (k Key) IsSymmetric() bool {
	return k.BM == k.WM && k.BK == k.WK && k.BMRank == k.WMRank
}

// Mirror returns the key seen from the other side.
func (k Key) Mirror() Key {
	return Key{BM: k.WM, BK: k.WK, WM: k.BM, WK: k.BK, BMRank: k.WMRank, WMRank: k.BMRank}
}

// KeyOf returns the key a position belongs to.
func KeyOf(p board.Position) Key {
	return Key{
		BM:     bitboard.Count(p.BM),
		BK:     bitboard.Count(p.BK),
		WM:     bitboard.Count(p.WM),
		WK:     bitboard.Count(p.WK),
		BMRank: p.LeadingRank(board.Black),
		WMRank: p.LeadingRank(board.White),
	}
}

func menRange(men, rank int) int64 {
	if men == 0 {
		return 1
	}
	return Binomial(4*(rank+1), men) - Binomial(4*rank, men)
}

type ranges struct {
	bm, wm, bk, wk int64
}

func rangesOf(k Key) ranges {
	r := ranges{bm: menRange(k.BM, k.BMRank), wm: menRange(k.WM, k.WMRank), bk: 1, wk: 1}
	if k.BK > 0 {
		r.bk = Binomial(32-k.BM-k.WM, k.BK)
	}
	if k.WK > 0 {
		r.wk = Binomial(32-k.BM-k.WM-k.BK, k.WK)
	}
	return r
}

// Size returns the number of indices in a slice.
func Size(k Key) int64 {
	r := rangesOf(k)
	return r.bm * r.wm * r.bk * r.wk
}

// PositionToIndex returns the index of p within key k. p must belong to k.
func PositionToIndex(p board.Position, k Key) int64 {
	var bmIndex, wmIndex, bkIndex, wkIndex int64

	i := 1
	for y := p.BM; y != 0; y &= y - 1 {
		bmIndex += binomial[bitboard.LSB(y)][i]
		i++
	}
	i = 1
	for y := p.WM; y != 0; {
		sq := bitboard.MSB(y)
		y ^= 1 << sq
		wmIndex += binomial[31-sq][i]
		i++
	}
	men := p.BM | p.WM
	i = 1
	for y := p.BK; y != 0; y &= y - 1 {
		sq := bitboard.LSB(y)
		bkIndex += binomial[sq-bitboard.CountBelow(men, sq)][i]
		i++
	}
	blocked := men | p.BK
	i = 1
	for y := p.WK; y != 0; y &= y - 1 {
		sq := bitboard.LSB(y)
		wkIndex += binomial[sq-bitboard.CountBelow(blocked, sq)][i]
		i++
	}

	if k.BM > 0 {
		bmIndex -= Binomial(4*k.BMRank, k.BM)
	}
	if k.WM > 0 {
		wmIndex -= Binomial(4*k.WMRank, k.WM)
	}
	r := rangesOf(k)
	return bmIndex + wmIndex*r.bm + bkIndex*r.bm*r.wm + wkIndex*r.bm*r.wm*r.bk
}

// decode unpacks a combinatorial index of count items, starting the
// search at square top. It returns the item positions in descending order.
func decode(idx int64, count, top int, out []int) []int {
	i := top
	for j := count; j > 0; j-- {
		for binomial[i][j] > idx {
			i--
		}
		idx -= binomial[i][j]
		out = append(out, i)
	}
	return out
}

// nthFree returns the square holding the n-th (0-based) free square of
// the complement of occupied.
func nthFree(n int, occupied uint32) int {
	for sq := 0; sq < 32; sq++ {
		if occupied&(1<<sq) != 0 {
			continue
		}
		if n == 0 {
			return sq
		}
		n--
	}
	return -1
}

// IndexToPosition returns the position with index idx in key k.
func IndexToPosition(idx int64, k Key) board.Position {
	var p board.Position
	r := rangesOf(k)

	mult := r.bm * r.wm * r.bk
	wkIndex := idx / mult
	idx -= wkIndex * mult
	mult = r.bm * r.wm
	bkIndex := idx / mult
	idx -= bkIndex * mult
	wmIndex := idx / r.bm
	bmIndex := idx - wmIndex*r.bm

	if k.BM > 0 {
		bmIndex += Binomial(4*k.BMRank, k.BM)
	}
	if k.WM > 0 {
		wmIndex += Binomial(4*k.WMRank, k.WM)
	}

	var buf [board.MaxPieces]int
	for _, sq := range decode(bmIndex, k.BM, 27, buf[:0]) {
		p.BM |= 1 << sq
	}
	for _, x := range decode(wmIndex, k.WM, 27, buf[:0]) {
		p.WM |= 1 << (31 - x)
	}
	men := p.BM | p.WM
	for _, n := range decode(bkIndex, k.BK, 31, buf[:0]) {
		p.BK |= 1 << nthFree(n, men)
	}
	blocked := men | p.BK
	for _, n := range decode(wkIndex, k.WK, 31, buf[:0]) {
		p.WK |= 1 << nthFree(n, blocked)
	}
	return p
}

// Impossible reports whether a decoded position has black and white men
// on the same square. Only slices with bmRank+wmRank > 6 contain such
// indices.
func Impossible(p board.Position) bool {
	return p.BM&p.WM != 0
}
