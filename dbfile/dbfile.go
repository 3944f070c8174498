// Package dbfile persists finished slices. A slice file holds the packed
// words of its table in little-endian order with no header; its length
// is fixed by the slice size.
package dbfile

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/cespare/xxhash"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/domino14/checkersdb/directory"
	"github.com/domino14/checkersdb/packed"
)

// ErrMissing is returned when a slice file does not exist.
var ErrMissing = errors.New("slice file missing")

// Store reads and writes slice files under a directory.
type Store struct {
	fs  afero.Fs
	dir string
}

// NewStore returns a store rooted at dir on filesystem fsys. The
// directory is created if needed.
func NewStore(fsys afero.Fs, dir string) (*Store, error) {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &Store{fs: fsys, dir: dir}, nil
}

// NewOSStore returns a store on the local disk.
func NewOSStore(dir string) (*Store, error) {
	return NewStore(afero.NewOsFs(), dir)
}

// Fs is the filesystem the store writes to.
func (s *Store) Fs() afero.Fs {
	return s.fs
}

// Dir is the directory the store writes to.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file path of a slice.
func (s *Store) Path(id directory.SliceID) string {
	return filepath.Join(s.dir, id.FileName())
}

// Exists reports whether the file of a slice is present.
func (s *Store) Exists(id directory.SliceID) bool {
	ok, err := afero.Exists(s.fs, s.Path(id))
	return err == nil && ok
}

// Load reads the table of a slice holding size values.
func (s *Store) Load(id directory.SliceID, size int64) (*packed.Table, error) {
	data, err := afero.ReadFile(s.fs, s.Path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissing, id.FileName())
	}
	if err != nil {
		return nil, err
	}
	t := packed.NewTable(size)
	if err := t.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("reading %s: %w", id.FileName(), err)
	}
	log.Debug().Str("slice", id.String()).Int("bytes", len(data)).Msg("loaded-slice")
	return t, nil
}

// Save writes the table of a slice and returns the xxhash digest of the
// written bytes. The file appears atomically: it is written under a
// temporary name first.
func (s *Store) Save(id directory.SliceID, t *packed.Table) (uint64, error) {
	data, err := t.MarshalBinary()
	if err != nil {
		return 0, err
	}
	path := s.Path(id)
	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return 0, fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		return 0, fmt.Errorf("renaming %s: %w", tmp, err)
	}
	sum := xxhash.Sum64(data)
	log.Debug().Str("slice", id.String()).Int("bytes", len(data)).
		Str("xxhash", FormatChecksum(sum)).Msg("saved-slice")
	return sum, nil
}

// Checksum returns the xxhash digest of a slice file on disk.
func (s *Store) Checksum(id directory.SliceID) (uint64, error) {
	f, err := s.fs.Open(s.Path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("%w: %s", ErrMissing, id.FileName())
	}
	if err != nil {
		return 0, err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}
