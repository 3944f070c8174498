// Package move defines the reversible move delta used by the database
// builder.
package move

import (
	"fmt"

	"github.com/domino14/checkersdb/bitboard"
	"github.com/domino14/checkersdb/board"
)

// Move is the set of squares that change on each of the four bitboards.
// Applying a move toggles those squares, so applying it a second time
// restores the original position. This holds for multi-jump captures too.
type Move struct {
	BM uint32
	BK uint32
	WM uint32
	WK uint32
}

// Apply returns the position after the move. Positions are values; the
// receiver's original is never modified.
func (m Move) Apply(p board.Position) board.Position {
	p.BM ^= m.BM
	p.BK ^= m.BK
	p.WM ^= m.WM
	p.WK ^= m.WK
	return p
}

// Captures reports whether the move removes enemy pieces when played by c.
func (m Move) Captures(c board.Color) bool {
	if c == board.Black {
		return m.WM|m.WK != 0
	}
	return m.BM|m.BK != 0
}

func (m Move) enemy(c board.Color) uint32 {
	if c == board.Black {
		return m.WM | m.WK
	}
	return m.BM | m.BK
}

// Crowns reports whether a man of color c becomes a king.
func (m Move) Crowns(c board.Color) bool {
	if c == board.Black {
		return m.BM != 0 && m.BK != 0
	}
	return m.WM != 0 && m.WK != 0
}

// Advances reports whether a man of color c lands beyond rank, counted
// from c's own side.
func (m Move) Advances(c board.Color, rank int) bool {
	if c == board.Black {
		return m.BM != 0 && bitboard.MSB(m.BM)/4 > rank
	}
	return m.WM != 0 && (31-bitboard.LSB(m.WM))/4 > rank
}

// IsConversion reports whether a quiet move by c leaves the slice whose
// leading rank for c is rank: it crowns a man or pushes the leading man
// forward.
func (m Move) IsConversion(c board.Color, rank int) bool {
	return m.Crowns(c) || m.Advances(c, rank)
}

// standard checkers numbering (1-32) of bit squares.
var notation = [32]int{
	4, 3, 2, 1, 8, 7, 6, 5,
	12, 11, 10, 9, 16, 15, 14, 13,
	20, 19, 18, 17, 24, 23, 22, 21,
	28, 27, 26, 25, 32, 31, 30, 29,
}

// ShortDescription renders the move as from-to (or fromxto for captures)
// in standard board numbering. p is the position before the move.
func (m Move) ShortDescription(p board.Position, c board.Color) string {
	own := m.BM | m.BK
	if c == board.White {
		own = m.WM | m.WK
	}
	before := p.Pieces(c)
	from := bitboard.LSB(own & before)
	to := bitboard.LSB(own &^ before)
	sep := '-'
	if m.Captures(c) {
		sep = 'x'
	}
	if from < 0 {
		// a king that jumped around back to its own square.
		return fmt.Sprintf("x%d", bitboard.Count(p.Pieces(c.Opponent())&m.enemy(c)))
	}
	if to < 0 {
		to = from
	}
	return fmt.Sprintf("%d%c%d", notation[from], sep, notation[to])
}
