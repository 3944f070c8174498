package movegen

import (
	"math/rand/v2"
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/checkersdb/bitboard"
	"github.com/domino14/checkersdb/board"
	"github.com/domino14/checkersdb/move"
	"github.com/domino14/checkersdb/testhelpers"
)

func TestQuietMen(t *testing.T) {
	is := is.New(t)
	p := board.Position{BM: 1 << 9, WM: 1 << 21}
	moves := GenQuiet(p, board.Black, nil)
	is.Equal(len(moves), 2)
	is.Equal(moves[0], move.Move{BM: 1<<9 | 1<<12})
	is.Equal(moves[1], move.Move{BM: 1<<9 | 1<<13})

	moves = GenQuiet(p, board.White, nil)
	is.Equal(len(moves), 2)
	is.Equal(moves[0], move.Move{WM: 1<<21 | 1<<17})
	is.Equal(moves[1], move.Move{WM: 1<<21 | 1<<18})
}

func TestQuietCrowning(t *testing.T) {
	is := is.New(t)
	p := board.Position{BM: 1 << 26, WM: 1 << 4}
	moves := GenQuiet(p, board.Black, nil)
	is.Equal(len(moves), 2)
	for _, m := range moves {
		is.Equal(m.BM, uint32(1)<<26)
		is.True(m.BK&board.BlackKingRow != 0)
		is.True(m.Crowns(board.Black))
	}
	moves = GenQuiet(p, board.White, nil)
	is.Equal(len(moves), 2)
	is.Equal(moves[0], move.Move{WM: 1 << 4, WK: 1 << 0})
	is.Equal(moves[1], move.Move{WM: 1 << 4, WK: 1 << 1})
}

func TestKingMoves(t *testing.T) {
	is := is.New(t)
	p := board.Position{BK: 1 << 18, WM: 1 << 13, BM: 1 << 14}
	moves := GenKingMoves(p, board.Black, nil)
	// 13 and 14 are blocked; 21 and 22 are free.
	is.Equal(len(moves), 2)
	for _, m := range moves {
		is.Equal(m.BM, uint32(0))
		is.Equal(bitboard.Count(m.BK), 2)
	}
	is.Equal(len(GenKingMoves(p, board.White, nil)), 0)
}

func TestSingleCapture(t *testing.T) {
	is := is.New(t)
	p := board.Position{BM: 1 << 9, WM: 1 << 13}
	is.True(HasCapture(p, board.Black))
	moves := GenCaptures(p, board.Black, nil)
	is.Equal(len(moves), 1)
	is.Equal(moves[0], move.Move{BM: 1<<9 | 1<<18, WM: 1 << 13})
	is.Equal(moves[0].ShortDescription(p, board.Black), "11x18")
	after := moves[0].Apply(p)
	is.Equal(after, board.Position{BM: 1 << 18})
}

func TestDoubleCapture(t *testing.T) {
	is := is.New(t)
	p := board.Position{BM: 1 << 9, WM: 1<<13 | 1<<22}
	moves := GenCaptures(p, board.Black, nil)
	is.Equal(len(moves), 1)
	after := moves[0].Apply(p)
	is.Equal(after, board.Position{BM: 1 << 27})
	// applying the delta again undoes the whole sequence
	is.Equal(moves[0].Apply(after), p)
}

func TestCaptureStopsOnCrowning(t *testing.T) {
	is := is.New(t)
	p := board.Position{BM: 1 << 22, WM: 1<<26 | 1<<25}
	moves := GenCaptures(p, board.Black, nil)
	is.Equal(len(moves), 1)
	is.Equal(moves[0], move.Move{BM: 1 << 22, BK: 1 << 29, WM: 1 << 26})

	// a king on the same square continues through the crowning row
	p = board.Position{BK: 1 << 22, WM: 1<<26 | 1<<25}
	moves = GenCaptures(p, board.Black, nil)
	is.Equal(len(moves), 1)
	is.Equal(moves[0].Apply(p), board.Position{BK: 1 << 20})
}

func TestMenDoNotCaptureBackwards(t *testing.T) {
	is := is.New(t)
	p := board.Position{BM: 1 << 18, WM: 1 << 13}
	is.True(!HasCapture(p, board.Black))
	is.Equal(len(GenCaptures(p, board.Black, nil)), 0)

	p = board.Position{BK: 1 << 18, WM: 1 << 13}
	is.True(HasCapture(p, board.Black))
	moves := GenCaptures(p, board.Black, nil)
	is.Equal(len(moves), 1)
	is.Equal(moves[0].Apply(p), board.Position{BK: 1 << 9})
}

func randomPosition(r *rand.Rand) board.Position {
	var p board.Position
	n := 2 + r.IntN(5)
	for placed := 0; placed < n; {
		sq := uint32(1) << r.IntN(32)
		if p.Occupied()&sq != 0 {
			continue
		}
		switch r.IntN(4) {
		case 0:
			if sq&board.BlackKingRow != 0 {
				continue
			}
			p.BM |= sq
		case 1:
			p.BK |= sq
		case 2:
			if sq&board.WhiteKingRow != 0 {
				continue
			}
			p.WM |= sq
		default:
			p.WK |= sq
		}
		placed++
	}
	return p
}

func TestGeneratedMovesAreReversible(t *testing.T) {
	is := is.New(t)
	r := rand.New(rand.NewPCG(7, 11))
	for i := 0; i < 5000; i++ {
		p := randomPosition(r)
		for _, c := range []board.Color{board.Black, board.White} {
			caps := GenCaptures(p, c, nil)
			is.Equal(HasCapture(p, c), len(caps) > 0)
			for _, m := range caps {
				after := m.Apply(p)
				is.True(after.Legal())
				is.True(m.Captures(c))
				is.True(bitboard.Count(after.Pieces(c.Opponent())) < bitboard.Count(p.Pieces(c.Opponent())))
				is.Equal(bitboard.Count(after.Pieces(c)), bitboard.Count(p.Pieces(c)))
				is.Equal(m.Apply(after), p)
			}
			for _, m := range GenQuiet(p, c, nil) {
				after := m.Apply(p)
				is.True(after.Legal())
				is.True(!m.Captures(c))
				is.Equal(m.Apply(after), p)
			}
		}
	}
}

func TestKingChoosesBetweenSequences(t *testing.T) {
	is := is.New(t)
	p := testhelpers.Diagram(t, `
		 - - - -
		- - - -
		 - w - -
		- - - -
		 - w - -
		- B - -
		 - w - -
		- - - -`)
	// the king on 9 can take 5 and stop, or take 13 and then 21.
	caps := GenCaptures(p, board.Black, nil)
	is.Equal(len(caps), 2)
	results := map[board.Position]bool{}
	for _, m := range caps {
		results[m.Apply(p)] = true
	}
	is.True(results[board.Position{BK: 1 << 2, WM: 1<<13 | 1<<21}])
	is.True(results[board.Position{BK: 1 << 25, WM: 1 << 5}])
}
