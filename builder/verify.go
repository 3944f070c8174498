package builder

import (
	"errors"

	"github.com/rs/zerolog/log"
	"lukechampine.com/frand"

	"github.com/domino14/checkersdb/board"
	"github.com/domino14/checkersdb/directory"
	"github.com/domino14/checkersdb/index"
	"github.com/domino14/checkersdb/move"
	"github.com/domino14/checkersdb/movegen"
	"github.com/domino14/checkersdb/packed"
)

var ErrInconsistent = errors.New("inconsistent database")

// Verify re-derives stored values one move deep and returns the number
// of positions whose stored value disagrees with their successors. With
// samples < 0, or at least the slice size, every position is checked;
// otherwise that many random positions are.
func (b *Builder) Verify(id directory.SliceID, samples int) (int64, error) {
	t, err := b.cache.Acquire(id)
	if err != nil {
		return 0, err
	}
	size := t.Size()
	buf := make([]move.Move, 0, movegen.MaxMoves)
	var bad int64
	check := func(idx int64) error {
		ok, err := b.consistent(t, id, idx, buf[:0])
		if err != nil {
			return err
		}
		if !ok {
			bad++
		}
		return nil
	}

	if samples < 0 || int64(samples) >= size {
		for idx := int64(0); idx < size; idx++ {
			if err := check(idx); err != nil {
				return bad, err
			}
		}
	} else {
		for i := 0; i < samples; i++ {
			if err := check(int64(frand.Uint64n(uint64(size)))); err != nil {
				return bad, err
			}
		}
	}
	log.Debug().Str("slice", id.String()).Int("samples", samples).
		Int64("inconsistent", bad).Msg("slice-verified")
	return bad, nil
}

func (b *Builder) consistent(t *packed.Table, id directory.SliceID, idx int64, buf []move.Move) (bool, error) {
	p := index.IndexToPosition(idx, id.Key)
	stored := t.Get(idx)
	if index.Impossible(p) {
		return stored == packed.Unknown, nil
	}
	want, best, err := b.expected(p, id.Color, buf)
	if err != nil {
		return false, err
	}
	if want != stored {
		ev := log.Warn().Str("slice", id.String()).Int64("index", idx).
			Str("position", p.String()).
			Str("stored", stored.String()).Str("expected", want.String())
		if best != (move.Move{}) {
			ev = ev.Str("move", best.ShortDescription(p, id.Color))
		}
		ev.Msg("inconsistent-position")
		return false, nil
	}
	return true, nil
}

// expected computes the value of p with c to move from the stored values
// of its successors, along with the move that achieves it. The move is
// zero when c has no moves.
func (b *Builder) expected(p board.Position, c board.Color, buf []move.Move) (packed.Value, move.Move, error) {
	moves := movegen.GenCaptures(p, c, buf)
	if len(moves) == 0 {
		moves = movegen.GenQuiet(p, c, buf)
	}
	best := packed.Loss
	var bestMove move.Move
	for i, m := range moves {
		v, err := b.lookup.Lookup(m.Apply(p), c.Opponent())
		if err != nil {
			return packed.Unknown, move.Move{}, err
		}
		switch v.Negate() {
		case packed.Win:
			return packed.Win, m, nil
		case packed.Loss:
			if i == 0 {
				bestMove = m
			}
		default:
			if best != packed.Draw {
				best, bestMove = packed.Draw, m
			}
		}
	}
	return best, bestMove, nil
}
