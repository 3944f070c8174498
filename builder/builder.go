// Package builder computes the database by retrograde analysis.
//
// Slices are built from the fewest pieces up. Within a slice the solver
// seeds capture positions and conversions from finished slices, then
// propagates wins and losses through the moves that stay inside the
// slice until nothing changes. Whatever is still unresolved is a draw.
package builder

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/domino14/checkersdb/audit"
	"github.com/domino14/checkersdb/cache"
	"github.com/domino14/checkersdb/dbfile"
	"github.com/domino14/checkersdb/directory"
	"github.com/domino14/checkersdb/index"
	"github.com/domino14/checkersdb/lookup"
	"github.com/domino14/checkersdb/packed"
)

var ErrNoConvergence = errors.New("propagation did not converge")

// Phase names a step of a slice build, for PassHook observers.
type Phase int

const (
	PhaseSeed Phase = iota
	PhaseConversion
	PhasePropagation
)

func (p Phase) String() string {
	switch p {
	case PhaseSeed:
		return "seed"
	case PhaseConversion:
		return "conversion"
	}
	return "propagation"
}

// PassInfo describes a finished pass. Tables are live: observers must
// copy what they want to keep and must not write to them.
type PassInfo struct {
	Key     index.Key
	Phase   Phase
	Pass    int
	Changed int64
	Black   *packed.Table
	White   *packed.Table
}

// Options tunes a build.
type Options struct {
	MaxPieces int
	// Threads is the number of goroutines per pass. 0 uses every CPU.
	Threads int
	// Unmove marks king-move predecessors of every new loss as wins
	// right away instead of waiting for the next pass.
	Unmove bool
	// UseExisting skips slices whose files are already on disk.
	UseExisting bool
	// MaxPasses caps the propagation passes of one slice. 0 is no cap.
	MaxPasses int
	// VerifySamples is the number of positions per slice re-checked after
	// the build. Negative checks every position, 0 disables the check.
	VerifySamples int
	PassHook      func(PassInfo)
}

// Recorder receives the statistics of every finished slice.
type Recorder interface {
	Record(ctx context.Context, s audit.SliceStats) error
}

type Builder struct {
	opts     Options
	dir      *directory.Directory
	store    *dbfile.Store
	cache    *cache.Cache
	lookup   *lookup.Service
	recorder Recorder

	manifest []dbfile.ManifestEntry
}

// New creates a builder. recorder may be nil.
func New(opts Options, dir *directory.Directory, store *dbfile.Store, c *cache.Cache, recorder Recorder) *Builder {
	if opts.Threads <= 0 {
		opts.Threads = runtime.NumCPU()
	}
	if opts.MaxPieces <= 0 || opts.MaxPieces > dir.MaxPieces() {
		opts.MaxPieces = dir.MaxPieces()
	}
	return &Builder{
		opts:     opts,
		dir:      dir,
		store:    store,
		cache:    c,
		lookup:   lookup.New(dir, c),
		recorder: recorder,
	}
}

// Lookup exposes the lookup service over the slices built so far.
func (b *Builder) Lookup() *lookup.Service {
	return b.lookup
}

// BuildAll builds every slice of the database. Cancelling ctx stops the
// build after the slice in progress.
func (b *Builder) BuildAll(ctx context.Context) error {
	start := time.Now()
	for n := 2; n <= b.opts.MaxPieces; n++ {
		if err := b.BuildPieces(ctx, n); err != nil {
			return err
		}
	}
	log.Info().Int("max-pieces", b.opts.MaxPieces).Dur("elapsed", time.Since(start)).
		Int("cache-panics", b.cache.Panics()).Msg("database-built")
	return nil
}

// BuildPieces builds every slice with n pieces. Every slice with fewer
// pieces must be on disk already.
func (b *Builder) BuildPieces(ctx context.Context, n int) error {
	keys := b.dir.Keys(n)
	log.Info().Int("pieces", n).Int("keys", len(keys)).Msg("building-pieces")
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			log.Info().Str("next", k.String()).Msg("build-interrupted")
			return err
		}
		if err := b.BuildSlice(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

// BuildSlice builds the tables of a key: black to move, and white to move
// unless the key is symmetric.
func (b *Builder) BuildSlice(ctx context.Context, k index.Key) error {
	ids := directory.IDs(k)
	if b.opts.UseExisting && b.allExist(ids) {
		log.Debug().Str("key", k.String()).Msg("slice-exists-skipping")
		return b.describeExisting(ids)
	}

	// a started slice is always finished, saved and recorded; cancellation
	// is honored by BuildPieces before the next one.
	work := context.WithoutCancel(ctx)
	start := time.Now()
	b.cache.BeforeBuild()
	s, err := b.newSliceBuild(k)
	if err != nil {
		return err
	}
	defer func() {
		for _, id := range ids {
			b.cache.Unpin(id)
		}
	}()

	if err := s.solve(work); err != nil {
		return fmt.Errorf("building %s: %w", k, err)
	}

	for _, id := range ids {
		t := s.tables[id.Color]
		sum, err := b.store.Save(id, t)
		if err != nil {
			return err
		}
		counts := t.Count()
		st := audit.SliceStats{
			Name:       id.String(),
			Pieces:     k.Pieces(),
			Positions:  t.Size(),
			Wins:       counts.Win,
			Losses:     counts.Loss,
			Draws:      counts.Draw,
			Impossible: counts.Unknown,
			Passes:     s.passes,
			Elapsed:    time.Since(start),
			Checksum:   sum,
		}
		b.addManifest(id, st)
		if b.recorder != nil {
			if err := b.recorder.Record(work, st); err != nil {
				return err
			}
		}
		log.Info().Str("slice", id.String()).Int64("positions", t.Size()).
			Int64("wins", counts.Win).Int64("losses", counts.Loss).
			Int64("draws", counts.Draw).Int("passes", s.passes).
			Float64("pass-mean-ms", s.passTimes.Mean()).
			Float64("pass-max-ms", s.passTimes.Max()).
			Dur("elapsed", st.Elapsed).Msg("slice-built")
	}

	if b.opts.VerifySamples != 0 {
		for _, id := range ids {
			bad, err := b.Verify(id, b.opts.VerifySamples)
			if err != nil {
				return err
			}
			if bad > 0 {
				return fmt.Errorf("%w: %s has %d inconsistent positions", ErrInconsistent, id, bad)
			}
		}
	}
	return nil
}

func (b *Builder) allExist(ids []directory.SliceID) bool {
	for _, id := range ids {
		if !b.store.Exists(id) {
			return false
		}
	}
	return true
}

// describeExisting adds slices found on disk to the manifest.
func (b *Builder) describeExisting(ids []directory.SliceID) error {
	for _, id := range ids {
		t, err := b.cache.Acquire(id)
		if err != nil {
			return err
		}
		sum, err := b.store.Checksum(id)
		if err != nil {
			return err
		}
		counts := t.Count()
		b.addManifest(id, audit.SliceStats{
			Name:      id.String(),
			Positions: t.Size(),
			Wins:      counts.Win,
			Losses:    counts.Loss,
			Draws:     counts.Draw,
			Checksum:  sum,
		})
	}
	return nil
}

func (b *Builder) addManifest(id directory.SliceID, s audit.SliceStats) {
	b.manifest = append(b.manifest, dbfile.ManifestEntry{
		Name:      id.FileName(),
		Positions: s.Positions,
		Checksum:  dbfile.FormatChecksum(s.Checksum),
		Wins:      s.Wins,
		Losses:    s.Losses,
		Draws:     s.Draws,
	})
}

// Manifest describes every slice built or found so far.
func (b *Builder) Manifest() *dbfile.Manifest {
	return &dbfile.Manifest{
		MaxPieces:  b.opts.MaxPieces,
		MaxPerSide: b.dir.MaxPerSide(),
		Created:    time.Now().UTC(),
		Slices:     b.manifest,
	}
}
