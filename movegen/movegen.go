// Package movegen generates checkers moves as reversible deltas.
//
// Captures are forced: callers that need the legal move list should call
// GenCaptures first and fall back to GenQuiet only when it returns nothing.
// The builder calls the two generators separately because it treats
// capture positions and quiet positions in different passes.
package movegen

import (
	"github.com/domino14/checkersdb/bitboard"
	"github.com/domino14/checkersdb/board"
	"github.com/domino14/checkersdb/move"
)

// MaxMoves bounds the number of moves in any position reachable by the
// builder. Generators append, so a larger list only costs a reallocation.
const MaxMoves = 64

func bit(sq int) uint32 {
	return uint32(1) << sq
}

func crownRow(c board.Color) uint32 {
	if c == board.Black {
		return board.BlackKingRow
	}
	return board.WhiteKingRow
}

// quiet builds the delta of a non-capturing step from one square to
// another.
func quiet(c board.Color, from, to int, king bool) move.Move {
	var m move.Move
	switch {
	case king && c == board.Black:
		m.BK = bit(from) | bit(to)
	case king:
		m.WK = bit(from) | bit(to)
	case c == board.Black && bit(to)&board.BlackKingRow != 0:
		m.BM = bit(from)
		m.BK = bit(to)
	case c == board.Black:
		m.BM = bit(from) | bit(to)
	case bit(to)&board.WhiteKingRow != 0:
		m.WM = bit(from)
		m.WK = bit(to)
	default:
		m.WM = bit(from) | bit(to)
	}
	return m
}

// GenQuiet appends every non-capturing move of color c to buf. Men step
// forward and are crowned on the far row; kings step in any direction.
func GenQuiet(p board.Position, c board.Color, buf []move.Move) []move.Move {
	empty := p.Empty()
	for men := p.Men(c); men != 0; men &= men - 1 {
		from := bitboard.LSB(men)
		for _, d := range board.Forward(c) {
			to := board.Neighbor(from, d)
			if to >= 0 && empty&bit(to) != 0 {
				buf = append(buf, quiet(c, from, to, false))
			}
		}
	}
	return GenKingMoves(p, c, buf)
}

// GenKingMoves appends only the quiet king moves of color c. The builder
// uses it to walk backwards from a position: a king step is its own
// inverse, so the king moves out of q are also the king moves into q.
func GenKingMoves(p board.Position, c board.Color, buf []move.Move) []move.Move {
	empty := p.Empty()
	for kings := p.Kings(c); kings != 0; kings &= kings - 1 {
		from := bitboard.LSB(kings)
		for _, d := range board.AllDirections {
			to := board.Neighbor(from, d)
			if to >= 0 && empty&bit(to) != 0 {
				buf = append(buf, quiet(c, from, to, true))
			}
		}
	}
	return buf
}

// HasCapture reports whether color c has at least one capture.
func HasCapture(p board.Position, c board.Color) bool {
	empty := p.Empty()
	enemy := p.Pieces(c.Opponent())
	for _, d := range board.Forward(c) {
		if board.Shift(board.Shift(p.Pieces(c), d)&enemy, d)&empty != 0 {
			return true
		}
	}
	kings := p.Kings(c)
	if kings == 0 {
		return false
	}
	back := board.Forward(c.Opponent())
	for _, d := range back {
		if board.Shift(board.Shift(kings, d)&enemy, d)&empty != 0 {
			return true
		}
	}
	return false
}

// GenCaptures appends every maximal capture sequence of color c to buf.
// A jump that crowns a man ends the sequence.
func GenCaptures(p board.Position, c board.Color, buf []move.Move) []move.Move {
	if !HasCapture(p, c) {
		return buf
	}
	for men := p.Men(c); men != 0; men &= men - 1 {
		from := bitboard.LSB(men)
		buf = jump(p, c, from, false, move.Move{}, buf)
	}
	for kings := p.Kings(c); kings != 0; kings &= kings - 1 {
		from := bitboard.LSB(kings)
		buf = jump(p, c, from, true, move.Move{}, buf)
	}
	return buf
}

// jump extends the partial capture acc with the piece standing on sq of
// position p. p already has every previous jump of acc applied, so the
// squares of captured pieces are free and the jumping piece stands on sq.
func jump(p board.Position, c board.Color, sq int, king bool, acc move.Move, buf []move.Move) []move.Move {
	dirs := board.AllDirections[:]
	if !king {
		fwd := board.Forward(c)
		dirs = fwd[:]
	}
	enemyMen := p.Men(c.Opponent())
	enemyKings := p.Kings(c.Opponent())
	empty := p.Empty()
	extended := false
	for _, d := range dirs {
		over := board.Neighbor(sq, d)
		if over < 0 || (enemyMen|enemyKings)&bit(over) == 0 {
			continue
		}
		to := board.Neighbor(over, d)
		if to < 0 || empty&bit(to) == 0 {
			continue
		}
		step := quiet(c, sq, to, king)
		if c == board.Black {
			if enemyMen&bit(over) != 0 {
				step.WM = bit(over)
			} else {
				step.WK = bit(over)
			}
		} else {
			if enemyMen&bit(over) != 0 {
				step.BM = bit(over)
			} else {
				step.BK = bit(over)
			}
		}
		next := move.Move{
			BM: acc.BM ^ step.BM,
			BK: acc.BK ^ step.BK,
			WM: acc.WM ^ step.WM,
			WK: acc.WK ^ step.WK,
		}
		extended = true
		if !king && bit(to)&crownRow(c) != 0 {
			buf = append(buf, next)
			continue
		}
		buf = jump(step.Apply(p), c, to, king, next, buf)
	}
	if !extended && acc != (move.Move{}) {
		buf = append(buf, acc)
	}
	return buf
}
