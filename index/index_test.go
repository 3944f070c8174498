package index

import (
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/checkersdb/bitboard"
	"github.com/domino14/checkersdb/board"
)

func TestBinomial(t *testing.T) {
	is := is.New(t)
	is.Equal(Binomial(32, 0), int64(1))
	is.Equal(Binomial(4, 2), int64(6))
	is.Equal(Binomial(28, 3), int64(3276))
	is.Equal(Binomial(3, 4), int64(0))
	is.Equal(Binomial(0, 0), int64(1))
	is.Equal(Binomial(33, 1), int64(0))
}

func TestSize(t *testing.T) {
	is := is.New(t)
	// two kings, no men
	is.Equal(Size(Key{BK: 1, WK: 1, BMRank: 6, WMRank: 6}), int64(32*31))
	// one black man on rank 0, one white king
	is.Equal(Size(Key{BM: 1, WK: 1, BMRank: 0, WMRank: 6}), int64(4*31))
	// two black men with the leader on rank 2: C(12,2)-C(8,2)
	is.Equal(Size(Key{BM: 2, WK: 1, BMRank: 2, WMRank: 6}), int64(66-28)*30)
}

// keysFor enumerates every key with the given piece counts.
func keysFor(bm, bk, wm, wk int) []Key {
	var keys []Key
	bmRanks := []int{board.NoMenRank}
	if bm > 0 {
		bmRanks = nil
		for r := (bm - 1) / 4; r <= 6; r++ {
			bmRanks = append(bmRanks, r)
		}
	}
	wmRanks := []int{board.NoMenRank}
	if wm > 0 {
		wmRanks = nil
		for r := (wm - 1) / 4; r <= 6; r++ {
			wmRanks = append(wmRanks, r)
		}
	}
	for _, br := range bmRanks {
		for _, wr := range wmRanks {
			keys = append(keys, Key{BM: bm, BK: bk, WM: wm, WK: wk, BMRank: br, WMRank: wr})
		}
	}
	return keys
}

func TestBijection(t *testing.T) {
	is := is.New(t)
	materials := [][4]int{
		{1, 0, 1, 0}, {0, 1, 0, 1}, {1, 0, 0, 1}, {0, 1, 1, 0},
		{2, 0, 1, 0}, {1, 1, 0, 1}, {1, 0, 1, 1}, {0, 2, 1, 0},
		{2, 0, 2, 0}, {1, 1, 1, 1},
	}
	for _, m := range materials {
		for _, k := range keysFor(m[0], m[1], m[2], m[3]) {
			size := Size(k)
			for i := int64(0); i < size; i++ {
				p := IndexToPosition(i, k)
				is.Equal(bitboard.Count(p.BK), k.BK)
				is.Equal(bitboard.Count(p.WK), k.WK)
				if Impossible(p) {
					is.True(k.BMRank+k.WMRank > 6)
					continue
				}
				is.True(p.Legal())
				is.Equal(KeyOf(p), k)
				is.Equal(PositionToIndex(p, k), i)
			}
		}
	}
}

// Every legal position with one black man, one black king and one white
// man gets a distinct index in its key, and the number of positions equals
// the number of possible indices.
func TestRangeCompleteness(t *testing.T) {
	is := is.New(t)
	seen := map[Key]map[int64]bool{}
	for bm := 0; bm < 28; bm++ {
		for wm := 4; wm < 32; wm++ {
			if wm == bm {
				continue
			}
			for bk := 0; bk < 32; bk++ {
				if bk == bm || bk == wm {
					continue
				}
				p := board.Position{BM: 1 << bm, BK: 1 << bk, WM: 1 << wm}
				k := KeyOf(p)
				idx := PositionToIndex(p, k)
				is.True(idx >= 0 && idx < Size(k))
				if seen[k] == nil {
					seen[k] = map[int64]bool{}
				}
				is.True(!seen[k][idx])
				seen[k][idx] = true
			}
		}
	}
	for _, k := range keysFor(1, 1, 1, 0) {
		possible := int64(0)
		for i := int64(0); i < Size(k); i++ {
			if !Impossible(IndexToPosition(i, k)) {
				possible++
			}
		}
		is.Equal(int64(len(seen[k])), possible)
	}
}

func TestKeyOf(t *testing.T) {
	is := is.New(t)
	p := board.Position{BM: 1<<9 | 1<<17, WK: 1 << 3}
	k := KeyOf(p)
	is.Equal(k, Key{BM: 2, WK: 1, BMRank: 4, WMRank: 6})
	is.Equal(k.String(), "2001-46")
	is.Equal(k.Pieces(), 3)
	is.True(!k.IsSymmetric())
	is.Equal(KeyOf(p.Mirror()), k.Mirror())
	is.True(Key{BM: 1, WM: 1, BMRank: 2, WMRank: 2, BK: 1, WK: 1}.IsSymmetric())
}
