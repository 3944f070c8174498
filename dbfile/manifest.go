package dbfile

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// FormatVersion is bumped whenever the slice file layout changes.
const FormatVersion = 1

const manifestName = "manifest.yaml"

// ManifestEntry describes one finished slice file.
type ManifestEntry struct {
	Name      string `yaml:"name"`
	Positions int64  `yaml:"positions"`
	Checksum  string `yaml:"xxhash"`
	Wins      int64  `yaml:"wins"`
	Losses    int64  `yaml:"losses"`
	Draws     int64  `yaml:"draws"`
}

// Manifest lists every slice of a finished database.
type Manifest struct {
	Version    int             `yaml:"version"`
	MaxPieces  int             `yaml:"max_pieces"`
	MaxPerSide int             `yaml:"max_per_side"`
	Created    time.Time       `yaml:"created"`
	Slices     []ManifestEntry `yaml:"slices"`
}

// FormatChecksum renders a digest the way the manifest stores it.
func FormatChecksum(sum uint64) string {
	return fmt.Sprintf("%016x", sum)
}

// WriteManifest stores m next to the slice files.
func (s *Store) WriteManifest(m *Manifest) error {
	m.Version = FormatVersion
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return afero.WriteFile(s.fs, s.manifestPath(), data, 0o644)
}

// ReadManifest loads the manifest of the store.
func (s *Store) ReadManifest() (*Manifest, error) {
	data, err := afero.ReadFile(s.fs, s.manifestPath())
	if err != nil {
		return nil, err
	}
	m := &Manifest{}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if m.Version != FormatVersion {
		return nil, fmt.Errorf("manifest version %d, want %d", m.Version, FormatVersion)
	}
	return m, nil
}

func (s *Store) manifestPath() string {
	return filepath.Join(s.dir, manifestName)
}
