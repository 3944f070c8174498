package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matryer/is"
)

func TestDefaults(t *testing.T) {
	is := is.New(t)
	c := DefaultConfig()
	is.Equal(c.GetInt(ConfigMaxPieces), 6)
	is.Equal(c.GetInt(ConfigMaxPerSide), 4)
	is.True(c.GetBool(ConfigUnmove))
	is.Equal(c.GetInt(ConfigMaxPasses), DefaultMaxPasses)
	is.Equal(c.LogLevel(), "info")
}

func TestLoadFlags(t *testing.T) {
	is := is.New(t)
	c := &Config{}
	is.NoErr(c.Load([]string{"--max-pieces", "4", "--unmove=false", "--debug", "--data-path", "/tmp/db", "a", "b"}))
	is.Equal(c.Args(), []string{"a", "b"})
	is.Equal(c.GetInt(ConfigMaxPieces), 4)
	is.True(!c.GetBool(ConfigUnmove))
	is.Equal(c.LogLevel(), "debug")
	is.Equal(c.AuditDBPath(), "/tmp/db/audit.sqlite")
	// unset flags keep their defaults
	is.Equal(c.GetInt(ConfigMaxPerSide), 4)
	is.Equal(c.GetInt(ConfigMaxPasses), DefaultMaxPasses)
}

func TestLoadEnvAndFile(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "checkersdb.yaml")
	is.NoErr(os.WriteFile(path, []byte("max-per-side: 3\nthreads: 2\n"), 0o644))
	t.Setenv("CHECKERSDB_MAX_PIECES", "5")

	c := &Config{}
	is.NoErr(c.Load([]string{"--config", path}))
	is.Equal(c.GetInt(ConfigMaxPieces), 5)
	is.Equal(c.GetInt(ConfigMaxPerSide), 3)
	is.Equal(c.GetInt(ConfigThreads), 2)
}

func TestValidate(t *testing.T) {
	is := is.New(t)
	c := &Config{}
	is.True(c.Load([]string{"--max-pieces", "1"}) != nil)
	is.True(c.Load([]string{"--max-per-side", "13"}) != nil)
	is.True(c.Load([]string{"--bogus"}) != nil)
}

func TestAdjustRelativePaths(t *testing.T) {
	is := is.New(t)
	c := DefaultConfig()
	c.AdjustRelativePaths("/opt/checkersdb")
	is.Equal(c.GetString(ConfigDataPath), "/opt/checkersdb/data/db")
	c.Set(ConfigAuditDB, "")
	is.Equal(c.AuditDBPath(), "")
}
