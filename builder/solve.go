package builder

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/domino14/checkersdb/board"
	"github.com/domino14/checkersdb/directory"
	"github.com/domino14/checkersdb/index"
	"github.com/domino14/checkersdb/move"
	"github.com/domino14/checkersdb/movegen"
	"github.com/domino14/checkersdb/packed"
	"github.com/domino14/checkersdb/stats"
)

// sliceBuild holds the tables of the key under construction.
type sliceBuild struct {
	b         *Builder
	key       index.Key
	size      int64
	symmetric bool
	// tables[c] holds the positions with c to move. A symmetric key has
	// no white table; those positions are read mirrored from black.
	tables [2]*packed.Table
	passes int
	// passTimes holds the duration of every propagation pass.
	passTimes stats.Running
}

func (b *Builder) newSliceBuild(k index.Key) (*sliceBuild, error) {
	s := &sliceBuild{b: b, key: k, size: index.Size(k), symmetric: k.IsSymmetric()}
	for _, id := range directory.IDs(k) {
		t, err := b.cache.Allocate(id)
		if err != nil {
			return nil, err
		}
		s.tables[id.Color] = t
	}
	return s, nil
}

func (s *sliceBuild) colors() []board.Color {
	if s.symmetric {
		return []board.Color{board.Black}
	}
	return []board.Color{board.Black, board.White}
}

func (s *sliceBuild) rank(c board.Color) int {
	if c == board.Black {
		return s.key.BMRank
	}
	return s.key.WMRank
}

// hasImpossible reports whether men of both sides can share a square.
func (s *sliceBuild) hasImpossible() bool {
	return s.key.BM > 0 && s.key.WM > 0 && s.key.BMRank+s.key.WMRank > 6
}

func (s *sliceBuild) chunkSize() int64 {
	words := packed.WordsFor(s.size)
	per := words / int64(8*s.b.opts.Threads)
	if per < 1 {
		per = 1
	}
	return per * 16
}

// each calls fn on every index of the slice. Chunks are word aligned so
// that no two goroutines of one pass own the same word, although fn may
// still write anywhere through the atomic accessors. It returns the sum
// of the change counts reported by fn.
func (s *sliceBuild) each(ctx context.Context, fn func(idx int64, buf []move.Move) (int64, error)) (int64, error) {
	var changed atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.b.opts.Threads)
	chunk := s.chunkSize()
	for lo := int64(0); lo < s.size; lo += chunk {
		hi := min(lo+chunk, s.size)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			buf := make([]move.Move, 0, movegen.MaxMoves)
			var n int64
			for idx := lo; idx < hi; idx++ {
				c, err := fn(idx, buf[:0])
				if err != nil {
					return err
				}
				n += c
			}
			changed.Add(n)
			return nil
		})
	}
	err := g.Wait()
	return changed.Load(), err
}

func (s *sliceBuild) hook(phase Phase, pass int, changed int64) {
	if s.b.opts.PassHook == nil {
		return
	}
	s.b.opts.PassHook(PassInfo{
		Key:     s.key,
		Phase:   phase,
		Pass:    pass,
		Changed: changed,
		Black:   s.tables[board.Black],
		White:   s.tables[board.White],
	})
}

func (s *sliceBuild) solve(ctx context.Context) error {
	if err := s.markImpossible(ctx, packed.Win); err != nil {
		return err
	}

	var seeded int64
	for _, c := range s.colors() {
		n, err := s.each(ctx, func(idx int64, buf []move.Move) (int64, error) {
			return s.seed(c, idx, buf)
		})
		if err != nil {
			return err
		}
		seeded += n
	}
	s.hook(PhaseSeed, 0, seeded)
	s.b.cache.Relieve()

	var converted int64
	for _, c := range s.colors() {
		n, err := s.each(ctx, func(idx int64, buf []move.Move) (int64, error) {
			return s.convert(c, idx, buf)
		})
		if err != nil {
			return err
		}
		converted += n
	}
	s.hook(PhaseConversion, 0, converted)
	s.b.cache.Relieve()
	log.Debug().Str("key", s.key.String()).Int64("seeded", seeded).
		Int64("converted", converted).Msg("slice-seeded")

	for pass := 1; ; pass++ {
		if s.b.opts.MaxPasses > 0 && pass > s.b.opts.MaxPasses {
			return ErrNoConvergence
		}
		passStart := time.Now()
		var changed int64
		for _, c := range s.colors() {
			n, err := s.each(ctx, func(idx int64, buf []move.Move) (int64, error) {
				return s.propagate(c, idx, buf), nil
			})
			if err != nil {
				return err
			}
			changed += n
		}
		s.passes = pass
		s.passTimes.PushDuration(time.Since(passStart))
		s.hook(PhasePropagation, pass, changed)
		log.Debug().Str("key", s.key.String()).Int("pass", pass).
			Int64("changed", changed).Msg("propagation-pass")
		if changed == 0 {
			break
		}
	}

	for _, c := range s.colors() {
		t := s.tables[c]
		_, err := s.each(ctx, func(idx int64, _ []move.Move) (int64, error) {
			t.CompareAndSet(idx, packed.Unknown, packed.Draw)
			return 0, nil
		})
		if err != nil {
			return err
		}
	}
	return s.markImpossible(ctx, packed.Unknown)
}

// markImpossible stores v at every index whose men overlap. During the
// build they hold a win so that no pass touches them; finished tables
// leave them Unknown.
func (s *sliceBuild) markImpossible(ctx context.Context, v packed.Value) error {
	if !s.hasImpossible() {
		return nil
	}
	_, err := s.each(ctx, func(idx int64, _ []move.Move) (int64, error) {
		if index.Impossible(index.IndexToPosition(idx, s.key)) {
			for _, c := range s.colors() {
				s.tables[c].Set(idx, v)
			}
		}
		return 0, nil
	})
	return err
}

// seed resolves the capture positions of color c from the finished
// slices the captures lead to.
func (s *sliceBuild) seed(c board.Color, idx int64, buf []move.Move) (int64, error) {
	t := s.tables[c]
	if t.Get(idx) != packed.Unknown {
		return 0, nil
	}
	p := index.IndexToPosition(idx, s.key)
	caps := movegen.GenCaptures(p, c, buf)
	if len(caps) == 0 {
		return 0, nil
	}
	best := packed.Loss
	for _, m := range caps {
		v, err := s.b.lookup.Lookup(m.Apply(p), c.Opponent())
		if err != nil {
			return 0, err
		}
		if v == packed.Loss {
			best = packed.Win
			break
		}
		if v == packed.Draw {
			best = packed.Draw
		}
	}
	t.Set(idx, best)
	return 1, nil
}

// convert looks at the quiet moves of color c that leave the slice. A
// draw found this way is tentative: the position can still turn out to
// be a win through a move inside the slice.
func (s *sliceBuild) convert(c board.Color, idx int64, buf []move.Move) (int64, error) {
	t := s.tables[c]
	if t.Get(idx) != packed.Unknown {
		return 0, nil
	}
	p := index.IndexToPosition(idx, s.key)
	moves := movegen.GenQuiet(p, c, buf)
	if len(moves) == 0 {
		t.Set(idx, packed.Loss)
		return 1, nil
	}
	rank := s.rank(c)
	conversions := 0
	draw := false
	for _, m := range moves {
		if !m.IsConversion(c, rank) {
			continue
		}
		conversions++
		v, err := s.b.lookup.Lookup(m.Apply(p), c.Opponent())
		if err != nil {
			return 0, err
		}
		switch v {
		case packed.Loss:
			t.Set(idx, packed.Win)
			return 1, nil
		case packed.Draw:
			draw = true
		}
	}
	switch {
	case draw:
		t.Set(idx, packed.Draw)
	case conversions == len(moves):
		t.Set(idx, packed.Loss)
	default:
		return 0, nil
	}
	return 1, nil
}

// inSlice returns the current value of a position of this key.
func (s *sliceBuild) inSlice(q board.Position, c board.Color) packed.Value {
	if s.symmetric && c == board.White {
		q, c = q.Mirror(), board.Black
	}
	return s.tables[c].Get(index.PositionToIndex(q, s.key))
}

// propagate re-evaluates one unresolved position of color c from its
// successors inside the slice. Draws from captures are final; tentative
// draws can only become wins.
func (s *sliceBuild) propagate(c board.Color, idx int64, buf []move.Move) int64 {
	t := s.tables[c]
	v := t.Get(idx)
	if v == packed.Win || v == packed.Loss {
		return 0
	}
	p := index.IndexToPosition(idx, s.key)
	if v == packed.Draw && movegen.HasCapture(p, c) {
		return 0
	}
	rank := s.rank(c)
	allWin := true
	for _, m := range movegen.GenQuiet(p, c, buf) {
		if m.IsConversion(c, rank) {
			continue
		}
		sv := s.inSlice(m.Apply(p), c.Opponent())
		if sv == packed.Loss {
			if t.CompareAndSet(idx, v, packed.Win) {
				return 1
			}
			return 0
		}
		if sv != packed.Win {
			allWin = false
		}
	}
	if !allWin || v != packed.Unknown {
		return 0
	}
	if !t.CompareAndSet(idx, packed.Unknown, packed.Loss) {
		return 0
	}
	changed := int64(1)
	if s.b.opts.Unmove {
		changed += s.unmove(p, c, buf[:0])
	}
	return changed
}

// unmove marks as won every position from which the opponent reaches the
// lost position p with a king move. The opponent must not have had a
// capture there, since captures are forced.
func (s *sliceBuild) unmove(p board.Position, c board.Color, buf []move.Move) int64 {
	o := c.Opponent()
	var changed int64
	for _, m := range movegen.GenKingMoves(p, o, buf) {
		q, qc := m.Apply(p), o
		if s.symmetric && qc == board.White {
			q, qc = q.Mirror(), board.Black
		}
		if movegen.HasCapture(q, qc) {
			continue
		}
		t := s.tables[qc]
		idx := index.PositionToIndex(q, s.key)
		for {
			cur := t.Get(idx)
			if cur == packed.Win || cur == packed.Loss {
				break
			}
			if t.CompareAndSet(idx, cur, packed.Win) {
				changed++
				break
			}
		}
	}
	return changed
}
