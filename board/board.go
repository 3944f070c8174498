// Package board holds the checkers position representation used by the
// database builder: four bitboards over the 32 playable squares.
//
// Squares are numbered from black's side:
//
//	       WHITE
//	   28  29  30  31
//	 24  25  26  27
//	   20  21  22  23
//	 16  17  18  19
//	   12  13  14  15
//	  8   9  10  11
//	    4   5   6   7
//	  0   1   2   3
//	       BLACK
//
// Black men move up (towards higher squares), white men move down.
package board

import (
	"fmt"

	"github.com/domino14/checkersdb/bitboard"
)

// Color is the side to move, or the owner of a piece.
type Color int

const (
	Black Color = iota
	White
)

// MaxPieces is the number of pieces a side starts the game with.
const MaxPieces = 12

// NoMenRank is the leading rank used for a color that has no men.
const NoMenRank = 6

const (
	// BlackKingRow is the row on which black men are crowned.
	BlackKingRow uint32 = 0xF0000000
	// WhiteKingRow is the row on which white men are crowned.
	WhiteKingRow uint32 = 0x0000000F
)

func (c Color) Opponent() Color {
	return c ^ 1
}

func (c Color) String() string {
	if c == Black {
		return "black"
	}
	return "white"
}

// Letter is the single-letter form used in slice file names.
func (c Color) Letter() byte {
	if c == Black {
		return 'b'
	}
	return 'w'
}

// Position is a checkers position without side to move.
type Position struct {
	BM uint32
	BK uint32
	WM uint32
	WK uint32
}

func (p Position) String() string {
	return fmt.Sprintf("bm:%08X bk:%08X wm:%08X wk:%08X", p.BM, p.BK, p.WM, p.WK)
}

// Occupied returns every occupied square.
func (p Position) Occupied() uint32 {
	return p.BM | p.BK | p.WM | p.WK
}

// Empty returns every free square.
func (p Position) Empty() uint32 {
	return ^p.Occupied()
}

// Men returns the men of color c.
func (p Position) Men(c Color) uint32 {
	if c == Black {
		return p.BM
	}
	return p.WM
}

// Kings returns the kings of color c.
func (p Position) Kings(c Color) uint32 {
	if c == Black {
		return p.BK
	}
	return p.WK
}

// Pieces returns all pieces of color c.
func (p Position) Pieces(c Color) uint32 {
	if c == Black {
		return p.BM | p.BK
	}
	return p.WM | p.WK
}

// Legal reports whether the four sets are pairwise disjoint and no man
// stands on its own crowning row.
func (p Position) Legal() bool {
	if p.BM&p.BK != 0 || p.BM&p.WM != 0 || p.BM&p.WK != 0 ||
		p.BK&p.WM != 0 || p.BK&p.WK != 0 || p.WM&p.WK != 0 {
		return false
	}
	return p.BM&BlackKingRow == 0 && p.WM&WhiteKingRow == 0
}

// Mirror swaps the colors and rotates the board, so that the result seen
// from black is the receiver seen from white.
func (p Position) Mirror() Position {
	return Position{
		BM: bitboard.Reverse(p.WM),
		BK: bitboard.Reverse(p.WK),
		WM: bitboard.Reverse(p.BM),
		WK: bitboard.Reverse(p.BK),
	}
}

// LeadingRank is the row of the most advanced man of color c, counted
// from that color's own side. It is NoMenRank if c has no men.
func (p Position) LeadingRank(c Color) int {
	if c == Black {
		if p.BM == 0 {
			return NoMenRank
		}
		return bitboard.MSB(p.BM) / 4
	}
	if p.WM == 0 {
		return NoMenRank
	}
	return (31 - bitboard.LSB(p.WM)) / 4
}

// Row returns the row of a square, 0 being black's back row.
func Row(sq int) int {
	return sq / 4
}
