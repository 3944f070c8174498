package directory

import (
	"errors"
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/checkersdb/board"
	"github.com/domino14/checkersdb/index"
)

func TestTwoPieceOrder(t *testing.T) {
	is := is.New(t)
	d, err := New(2, 12)
	is.NoErr(err)
	keys := d.Keys(2)
	is.Equal(len(keys), 36)
	is.Equal(keys[0], index.Key{BK: 1, WK: 1, BMRank: 6, WMRank: 6})
	is.Equal(keys[1], index.Key{BK: 1, WM: 1, BMRank: 6, WMRank: 6})
	is.Equal(keys[8], index.Key{BM: 1, WM: 1, BMRank: 6, WMRank: 6})
	is.Equal(keys[9], index.Key{BM: 1, WM: 1, BMRank: 6, WMRank: 5})
	is.Equal(len(d.Slices(2)), 64)
	is.Equal(len(d.Slices(3)), 0)

	for _, k := range keys {
		is.True(Canonical(k))
		is.True(index.Size(k) > 0)
		// a white key never outranks black with equal men
		if k.BM == k.WM && k.BK == k.WK {
			is.True(k.WMRank <= k.BMRank)
		}
	}
}

func TestRankOrderWithinSplit(t *testing.T) {
	is := is.New(t)
	d, err := New(4, 12)
	is.NoErr(err)
	var last *index.Key
	for _, k := range d.Keys(3) {
		if last != nil && last.BM == k.BM && last.BK == k.BK && last.WM == k.WM && last.WK == k.WK {
			is.True(k.BMRank < last.BMRank || (k.BMRank == last.BMRank && k.WMRank < last.WMRank))
		}
		last = &k
	}
}

func TestPerSideCap(t *testing.T) {
	is := is.New(t)
	d, err := New(4, 2)
	is.NoErr(err)
	for _, k := range d.Keys(4) {
		is.True(k.BM+k.BK <= 2)
		is.True(k.WM+k.WK <= 2)
	}
	_, err = New(4, 0)
	is.True(err != nil)
	_, err = New(1, 12)
	is.True(err != nil)
}

func TestRecords(t *testing.T) {
	is := is.New(t)
	d, err := New(2, 12)
	is.NoErr(err)
	id := SliceID{Key: index.Key{BM: 1, WM: 1, BMRank: 4, WMRank: 2}, Color: board.White}
	is.Equal(id.FileName(), "db1010-42w.dat")
	is.Equal(id.String(), "1010-42w")
	r, err := d.Record(id)
	is.NoErr(err)
	is.Equal(r.Size, int64(16))
	is.Equal(d.Size(id), int64(16))

	sym := SliceID{Key: index.Key{BK: 1, WK: 1, BMRank: 6, WMRank: 6}, Color: board.White}
	is.True(!d.Covers(sym))
	_, err = d.Record(sym)
	is.True(errors.Is(err, ErrNoSlice))
	is.Equal(d.Size(sym), int64(0))
}

func TestEstimate(t *testing.T) {
	is := is.New(t)
	d, err := New(2, 12)
	is.NoErr(err)
	e := d.Estimate()
	is.Equal(e.Slices, 64)
	is.Equal(e.Positions, int64(3512))
	is.Equal(e.Bytes, int64(892))
	is.Equal(e.LargestBytes, int64(248))
	is.Equal(e.Largest.Key, index.Key{BK: 1, WK: 1, BMRank: 6, WMRank: 6})
	is.Equal(e.SlicesPerPieces[2], 64)
}

func TestCanonical(t *testing.T) {
	is := is.New(t)
	is.True(Canonical(index.Key{BM: 2, WK: 1, BMRank: 3, WMRank: 6}))
	is.True(!Canonical(index.Key{WM: 2, BK: 1, BMRank: 6, WMRank: 3}))
	is.True(!Canonical(index.Key{BM: 1, WK: 1, BMRank: 3, WMRank: 6}))
	is.True(!Canonical(index.Key{BM: 1, WM: 1, BMRank: 2, WMRank: 3}))
	is.True(Canonical(index.Key{BM: 1, WM: 1, BMRank: 3, WMRank: 3}))
}
