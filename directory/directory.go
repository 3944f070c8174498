// Package directory enumerates the slices that make up a database of up
// to a given number of pieces, in the order they must be built.
package directory

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/domino14/checkersdb/board"
	"github.com/domino14/checkersdb/index"
	"github.com/domino14/checkersdb/packed"
)

var ErrNoSlice = errors.New("no such slice")

// SliceID names one table: a key and the side to move.
type SliceID struct {
	Key   index.Key
	Color board.Color
}

func (id SliceID) String() string {
	return fmt.Sprintf("%s%c", id.Key, id.Color.Letter())
}

// FileName is the name of the file the slice is persisted to.
func (id SliceID) FileName() string {
	k := id.Key
	return fmt.Sprintf("db%d%d%d%d-%d%d%c.dat",
		k.BM, k.BK, k.WM, k.WK, k.BMRank, k.WMRank, id.Color.Letter())
}

// Record is the static description of a slice.
type Record struct {
	ID   SliceID
	Size int64
}

// Bytes is the memory the slice takes when loaded.
func (r *Record) Bytes() int64 {
	return packed.WordsFor(r.Size) * 4
}

// Directory holds every record of a database.
type Directory struct {
	maxPieces  int
	maxPerSide int
	records    map[SliceID]*Record
	// order[n] lists the keys with n pieces in build order.
	order [][]index.Key
}

// New builds the directory for databases of up to maxPieces pieces with
// at most maxPerSide pieces per side.
func New(maxPieces, maxPerSide int) (*Directory, error) {
	if maxPieces < 2 {
		return nil, fmt.Errorf("need at least 2 pieces, got %d", maxPieces)
	}
	if maxPerSide < 1 || maxPerSide > board.MaxPieces {
		return nil, fmt.Errorf("per-side cap %d out of range", maxPerSide)
	}
	d := &Directory{
		maxPieces:  maxPieces,
		maxPerSide: maxPerSide,
		records:    map[SliceID]*Record{},
		order:      make([][]index.Key, maxPieces+1),
	}
	for n := 2; n <= maxPieces; n++ {
		d.order[n] = d.keysFor(n)
		for _, k := range d.order[n] {
			for _, id := range IDs(k) {
				d.records[id] = &Record{ID: id, Size: index.Size(k)}
			}
		}
	}
	log.Debug().Int("max-pieces", maxPieces).Int("max-per-side", maxPerSide).
		Int("slices", len(d.records)).Msg("directory-initialized")
	return d, nil
}

func ranks(men int) []int {
	if men == 0 {
		return []int{board.NoMenRank}
	}
	var rs []int
	for r := 6; r >= (men-1)/4; r-- {
		rs = append(rs, r)
	}
	return rs
}

// keysFor lists the canonical keys with n pieces. A material split comes
// before another if black has fewer men; within a split the leading ranks
// run from the back rows down so that every conversion lands in a slice
// that is already built.
func (d *Directory) keysFor(n int) []index.Key {
	var keys []index.Key
	for div1 := 0; div1 <= n; div1++ {
		for div2 := div1; div2 <= n; div2++ {
			for div3 := div2; div3 <= n; div3++ {
				bm, bk, wm, wk := div1, div2-div1, div3-div2, n-div3
				black, white := bm+bk, wm+wk
				if black == 0 || white == 0 || black < white || black > d.maxPerSide {
					continue
				}
				if black == white && wk > bk {
					continue
				}
				for _, br := range ranks(bm) {
					for _, wr := range ranks(wm) {
						k := index.Key{BM: bm, BK: bk, WM: wm, WK: wk, BMRank: br, WMRank: wr}
						if bm == wm && bk == wk && wr > br {
							continue
						}
						if index.Size(k) == 0 {
							continue
						}
						keys = append(keys, k)
					}
				}
			}
		}
	}
	return keys
}

// IDs returns the slices stored for a key: both sides to move, or only
// black for a symmetric key.
func IDs(k index.Key) []SliceID {
	if k.IsSymmetric() {
		return []SliceID{{Key: k, Color: board.Black}}
	}
	return []SliceID{{Key: k, Color: board.Black}, {Key: k, Color: board.White}}
}

// Canonical reports whether a key is stored by the database as is, rather
// than as its mirror.
func Canonical(k index.Key) bool {
	black, white := k.BM+k.BK, k.WM+k.WK
	switch {
	case black != white:
		return black > white
	case k.BK != k.WK:
		return k.BK > k.WK
	}
	return k.BMRank >= k.WMRank
}

// MaxPieces is the largest piece count covered.
func (d *Directory) MaxPieces() int {
	return d.maxPieces
}

// MaxPerSide is the per-side piece cap.
func (d *Directory) MaxPerSide() int {
	return d.maxPerSide
}

// Keys returns the keys with n pieces in build order.
func (d *Directory) Keys(n int) []index.Key {
	if n < 2 || n > d.maxPieces {
		return nil
	}
	return d.order[n]
}

// Slices returns the slices with n pieces in build order.
func (d *Directory) Slices(n int) []SliceID {
	return lo.FlatMap(d.Keys(n), func(k index.Key, _ int) []SliceID {
		return IDs(k)
	})
}

// All returns every slice of the database in build order.
func (d *Directory) All() []SliceID {
	var ids []SliceID
	for n := 2; n <= d.maxPieces; n++ {
		ids = append(ids, d.Slices(n)...)
	}
	return ids
}

// Record returns the record of a slice.
func (d *Directory) Record(id SliceID) (*Record, error) {
	r, ok := d.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSlice, id)
	}
	return r, nil
}

// Size returns the number of positions in a slice, or 0 if the directory
// does not hold it.
func (d *Directory) Size(id SliceID) int64 {
	r, ok := d.records[id]
	if !ok {
		return 0
	}
	return r.Size
}

// Covers reports whether a slice belongs to the database.
func (d *Directory) Covers(id SliceID) bool {
	_, ok := d.records[id]
	return ok
}

// Estimate sums up the memory and disk needs of the database without
// building anything.
type Estimate struct {
	Slices          int
	Positions       int64
	Bytes           int64
	SymmetricSaved  int64
	Largest         SliceID
	LargestBytes    int64
	BytesPerPieces  map[int]int64
	SlicesPerPieces map[int]int
}

// Estimate computes the sizing summary of the directory.
func (d *Directory) Estimate() Estimate {
	e := Estimate{
		BytesPerPieces:  map[int]int64{},
		SlicesPerPieces: map[int]int{},
	}
	recs := lo.Map(d.All(), func(id SliceID, _ int) *Record { return d.records[id] })
	if len(recs) == 0 {
		return e
	}
	e.Slices = len(recs)
	e.Positions = lo.SumBy(recs, func(r *Record) int64 { return r.Size })
	e.Bytes = lo.SumBy(recs, func(r *Record) int64 { return r.Bytes() })
	largest := lo.MaxBy(recs, func(a, b *Record) bool { return a.Bytes() > b.Bytes() })
	e.Largest = largest.ID
	e.LargestBytes = largest.Bytes()
	for _, r := range recs {
		n := r.ID.Key.Pieces()
		e.BytesPerPieces[n] += r.Bytes()
		e.SlicesPerPieces[n]++
		if r.ID.Key.IsSymmetric() {
			e.SymmetricSaved += r.Bytes()
		}
	}
	return e
}
