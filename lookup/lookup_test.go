package lookup

import (
	"errors"
	"testing"

	"github.com/matryer/is"
	"github.com/spf13/afero"

	"github.com/domino14/checkersdb/board"
	"github.com/domino14/checkersdb/cache"
	"github.com/domino14/checkersdb/dbfile"
	"github.com/domino14/checkersdb/directory"
	"github.com/domino14/checkersdb/index"
	"github.com/domino14/checkersdb/packed"
)

func TestCanonicalize(t *testing.T) {
	is := is.New(t)

	// white has more material
	p := board.Position{BK: 1 << 5, WK: 1<<20 | 1<<30}
	q, c := Canonicalize(p, board.Black)
	is.Equal(c, board.White)
	is.Equal(q, p.Mirror())

	// equal material, white has more kings
	p = board.Position{BM: 1 << 5, WK: 1 << 20}
	_, c = Canonicalize(p, board.White)
	is.Equal(c, board.Black)

	// equal men, white man further advanced
	p = board.Position{BM: 1 << 5, WM: 1 << 8}
	_, c = Canonicalize(p, board.Black)
	is.Equal(c, board.White)

	// exact mirror image, only the side to move decides
	p = board.Position{BK: 1 << 0, WK: 1 << 31}
	q, c = Canonicalize(p, board.White)
	is.Equal(c, board.Black)
	is.Equal(q, board.Position{BK: 1 << 0, WK: 1 << 31})
	q, c = Canonicalize(p, board.Black)
	is.Equal(c, board.Black)
	is.Equal(q, p)

	// stored form is always in the directory's canonical key set
	for _, pos := range []board.Position{
		{BM: 1 << 9, WK: 1<<22 | 1<<1},
		{WM: 1 << 30, BK: 1 << 12},
		{BM: 1 << 17, WM: 1 << 21},
	} {
		for _, stm := range []board.Color{board.Black, board.White} {
			id, _ := SliceOf(pos, stm)
			is.True(directory.Canonical(id.Key))
			if id.Key.IsSymmetric() {
				is.Equal(id.Color, board.Black)
			}
		}
	}
}

func newService(t *testing.T) (*Service, *dbfile.Store) {
	is := is.New(t)
	d, err := directory.New(3, 12)
	is.NoErr(err)
	s, err := dbfile.NewStore(afero.NewMemMapFs(), "/db")
	is.NoErr(err)
	return New(d, cache.New(d, s, 0, 0)), s
}

func TestEmptySide(t *testing.T) {
	is := is.New(t)
	svc, _ := newService(t)
	v, err := svc.Lookup(board.Position{WK: 1 << 3}, board.Black)
	is.NoErr(err)
	is.Equal(v, packed.Loss)
	v, err = svc.Lookup(board.Position{WK: 1 << 3}, board.White)
	is.NoErr(err)
	is.Equal(v, packed.Win)
	v, err = svc.Lookup(board.Position{BM: 1 << 3}, board.White)
	is.NoErr(err)
	is.Equal(v, packed.Loss)
}

func TestLookupReadsCanonicalSlice(t *testing.T) {
	is := is.New(t)
	svc, store := newService(t)

	k := index.Key{BK: 1, WK: 1, BMRank: 6, WMRank: 6}
	id := directory.SliceID{Key: k, Color: board.Black}
	p := board.Position{BK: 1 << 0, WK: 1 << 9}
	tb := packed.NewTable(index.Size(k))
	tb.Set(index.PositionToIndex(p, k), packed.Win)
	_, err := store.Save(id, tb)
	is.NoErr(err)

	v, err := svc.Lookup(p, board.Black)
	is.NoErr(err)
	is.Equal(v, packed.Win)
	// the same position seen from the other side
	v, err = svc.Lookup(p.Mirror(), board.White)
	is.NoErr(err)
	is.Equal(v, packed.Win)
	is.Equal(svc.Probe(p.Mirror(), board.White), packed.Win)
}

func TestLookupMissing(t *testing.T) {
	is := is.New(t)
	svc, _ := newService(t)

	// not built yet
	_, err := svc.Lookup(board.Position{BK: 1 << 0, WK: 1 << 9}, board.Black)
	is.True(errors.Is(err, dbfile.ErrMissing))

	// more pieces than the database holds
	big := board.Position{BK: 1<<0 | 1<<1, WK: 1<<9 | 1<<10}
	_, err = svc.Lookup(big, board.Black)
	is.True(errors.Is(err, directory.ErrNoSlice))
	is.Equal(svc.Probe(big, board.Black), packed.Unknown)
}
