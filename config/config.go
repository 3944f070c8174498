package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ConfigDataPath       = "data-path"
	ConfigMaxPieces      = "max-pieces"
	ConfigMaxPerSide     = "max-per-side"
	ConfigMemoryBudget   = "memory-budget"
	ConfigMemoryFraction = "memory-fraction"
	ConfigHardLimit      = "hard-limit"
	ConfigThreads        = "threads"
	ConfigUnmove         = "unmove"
	ConfigUseExisting    = "use-existing"
	ConfigMaxPasses      = "max-passes"
	ConfigVerifySamples  = "verify-samples"
	ConfigAuditDB        = "audit-db"
	ConfigLogLevel       = "log-level"
	ConfigDebug          = "debug"
	ConfigDryRun         = "dry-run"
	ConfigConfigFile     = "config"
)

// DefaultMaxPasses caps the propagation passes of one slice.
const DefaultMaxPasses = 500

type Config struct {
	viper.Viper
	args []string
}

// Args returns the positional arguments left after flag parsing.
func (c *Config) Args() []string {
	return c.args
}

// DefaultConfig returns a config holding every default and nothing else.
func DefaultConfig() *Config {
	c := &Config{Viper: *viper.New()}
	c.setDefaults()
	return c
}

func (c *Config) setDefaults() {
	c.SetDefault(ConfigDataPath, "./data/db")
	c.SetDefault(ConfigMaxPieces, 6)
	c.SetDefault(ConfigMaxPerSide, 4)
	c.SetDefault(ConfigMemoryBudget, 0)
	c.SetDefault(ConfigMemoryFraction, 0.5)
	c.SetDefault(ConfigHardLimit, 0)
	c.SetDefault(ConfigThreads, 0)
	c.SetDefault(ConfigUnmove, true)
	c.SetDefault(ConfigUseExisting, true)
	c.SetDefault(ConfigMaxPasses, DefaultMaxPasses)
	c.SetDefault(ConfigVerifySamples, 0)
	c.SetDefault(ConfigAuditDB, "audit.sqlite")
	c.SetDefault(ConfigLogLevel, "info")
	c.SetDefault(ConfigDebug, false)
	c.SetDefault(ConfigDryRun, false)
}

// Load reads the configuration from command-line args, CHECKERSDB_*
// environment variables and an optional YAML file, in that order of
// precedence.
func (c *Config) Load(args []string) error {
	c.Viper = *viper.New()
	c.setDefaults()

	fs := pflag.NewFlagSet("checkersdb", pflag.ContinueOnError)
	fs.String(ConfigDataPath, "./data/db", "directory holding the database files")
	fs.Int(ConfigMaxPieces, 6, "build every slice with up to this many pieces")
	fs.Int(ConfigMaxPerSide, 4, "maximum number of pieces of one side")
	fs.Int64(ConfigMemoryBudget, 0, "soft cache budget in bytes; 0 uses memory-fraction of system memory")
	fs.Float64(ConfigMemoryFraction, 0.5, "fraction of system memory used as cache budget")
	fs.Int64(ConfigHardLimit, 0, "allocation ceiling in bytes; 0 is the system memory")
	fs.Int(ConfigThreads, 0, "goroutines per pass; 0 uses every CPU")
	fs.Bool(ConfigUnmove, true, "mark king-move predecessors of new losses right away")
	fs.Bool(ConfigUseExisting, true, "skip slices whose files exist")
	fs.Int(ConfigMaxPasses, DefaultMaxPasses, "give up on a slice after this many propagation passes; 0 is no limit")
	fs.Int(ConfigVerifySamples, 0, "positions re-checked per slice; -1 checks all")
	fs.String(ConfigAuditDB, "audit.sqlite", "SQLite file for build statistics, relative to data-path; empty disables it")
	fs.String(ConfigLogLevel, "info", "debug, info or disabled")
	fs.Bool(ConfigDebug, false, "shortcut for log-level debug")
	fs.Bool(ConfigDryRun, false, "print the size estimate and exit")
	fs.String(ConfigConfigFile, "", "YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	c.args = fs.Args()
	if err := c.BindPFlags(fs); err != nil {
		return err
	}

	c.SetEnvPrefix("CHECKERSDB")
	c.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.AutomaticEnv()

	if path := c.GetString(ConfigConfigFile); path != "" {
		c.SetConfigFile(path)
		if err := c.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
	}
	return c.validate()
}

func (c *Config) validate() error {
	if n := c.GetInt(ConfigMaxPieces); n < 2 {
		return fmt.Errorf("%s must be at least 2, got %d", ConfigMaxPieces, n)
	}
	if n := c.GetInt(ConfigMaxPerSide); n < 1 || n > 12 {
		return fmt.Errorf("%s must be between 1 and 12, got %d", ConfigMaxPerSide, n)
	}
	if f := c.GetFloat64(ConfigMemoryFraction); f <= 0 || f > 1 {
		return fmt.Errorf("%s must be in (0, 1], got %v", ConfigMemoryFraction, f)
	}
	return nil
}

// AdjustRelativePaths resolves a relative data path against basepath.
func (c *Config) AdjustRelativePaths(basepath string) {
	p := c.GetString(ConfigDataPath)
	if !filepath.IsAbs(p) {
		c.Set(ConfigDataPath, filepath.Join(basepath, p))
	}
}

// AuditDBPath returns the path of the audit database, or "" if disabled.
func (c *Config) AuditDBPath() string {
	p := c.GetString(ConfigAuditDB)
	if p == "" || p == ":memory:" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.GetString(ConfigDataPath), p)
}

// LogLevel returns the configured log level name.
func (c *Config) LogLevel() string {
	if c.GetBool(ConfigDebug) {
		return "debug"
	}
	return c.GetString(ConfigLogLevel)
}
