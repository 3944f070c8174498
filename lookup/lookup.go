// Package lookup answers value queries against a finished database.
package lookup

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/domino14/checkersdb/bitboard"
	"github.com/domino14/checkersdb/board"
	"github.com/domino14/checkersdb/cache"
	"github.com/domino14/checkersdb/directory"
	"github.com/domino14/checkersdb/index"
	"github.com/domino14/checkersdb/packed"
)

// Service resolves positions to values through the slice cache.
type Service struct {
	dir   *directory.Directory
	cache *cache.Cache
}

func New(dir *directory.Directory, c *cache.Cache) *Service {
	return &Service{dir: dir, cache: c}
}

// Canonicalize returns the form of a position the database stores: the
// side with more material is black, and ties are broken by kings, then by
// leading rank, then by side to move.
func Canonicalize(p board.Position, stm board.Color) (board.Position, board.Color) {
	if reversed(p, stm) {
		return p.Mirror(), stm.Opponent()
	}
	return p, stm
}

func reversed(p board.Position, stm board.Color) bool {
	black := bitboard.Count(p.BM | p.BK)
	white := bitboard.Count(p.WM | p.WK)
	if black != white {
		return white > black
	}
	bk, wk := bitboard.Count(p.BK), bitboard.Count(p.WK)
	if bk != wk {
		return wk > bk
	}
	br, wr := p.LeadingRank(board.Black), p.LeadingRank(board.White)
	if br != wr {
		return wr > br
	}
	return stm == board.White
}

// SliceOf returns the slice and index a position is stored at.
func SliceOf(p board.Position, stm board.Color) (directory.SliceID, int64) {
	q, c := Canonicalize(p, stm)
	k := index.KeyOf(q)
	return directory.SliceID{Key: k, Color: c}, index.PositionToIndex(q, k)
}

// Lookup returns the value of p with stm to move. A side without pieces
// has lost. Positions outside the database return an error wrapping
// directory.ErrNoSlice.
func (s *Service) Lookup(p board.Position, stm board.Color) (packed.Value, error) {
	if p.Pieces(board.Black) == 0 {
		if stm == board.Black {
			return packed.Loss, nil
		}
		return packed.Win, nil
	}
	if p.Pieces(board.White) == 0 {
		if stm == board.White {
			return packed.Loss, nil
		}
		return packed.Win, nil
	}
	id, idx := SliceOf(p, stm)
	if !s.dir.Covers(id) {
		return packed.Unknown, fmt.Errorf("%w: %s", directory.ErrNoSlice, id)
	}
	t, err := s.cache.Acquire(id)
	if err != nil {
		return packed.Unknown, fmt.Errorf("acquiring %s: %w", id, err)
	}
	return t.Get(idx), nil
}

// Probe is Lookup for callers that cannot act on errors, such as a game
// player. Positions the database cannot answer are Unknown.
func (s *Service) Probe(p board.Position, stm board.Color) packed.Value {
	v, err := s.Lookup(p, stm)
	if err != nil {
		log.Debug().Err(err).Str("position", p.String()).Msg("probe-miss")
		return packed.Unknown
	}
	return v
}
