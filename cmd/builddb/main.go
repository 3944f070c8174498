package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/domino14/checkersdb/audit"
	"github.com/domino14/checkersdb/builder"
	"github.com/domino14/checkersdb/cache"
	"github.com/domino14/checkersdb/config"
	"github.com/domino14/checkersdb/dbfile"
	"github.com/domino14/checkersdb/directory"
)

var (
	GitVersion string
)

func setupLogging(cfg *config.Config) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	output.FormatLevel = func(i interface{}) string {
		return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
	}
	level := zerolog.InfoLevel
	switch cfg.LogLevel() {
	case "debug":
		level = zerolog.DebugLevel
	case "disabled":
		level = zerolog.Disabled
	}
	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(output).Level(level).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &logger
	log.Logger = logger
}

func main() {
	ex, err := os.Executable()
	if err != nil {
		panic(err)
	}
	exPath := filepath.Dir(ex)

	cfg := &config.Config{}
	if err := cfg.Load(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	setupLogging(cfg)
	cfg.AdjustRelativePaths(exPath)
	log.Info().Str("version", GitVersion).Interface("config", cfg.AllSettings()).Msg("loaded-config")

	dir, err := directory.New(cfg.GetInt(config.ConfigMaxPieces), cfg.GetInt(config.ConfigMaxPerSide))
	if err != nil {
		log.Fatal().Err(err).Msg("bad-directory")
	}

	if cfg.GetBool(config.ConfigDryRun) {
		printEstimate(dir)
		return
	}

	dataPath := cfg.GetString(config.ConfigDataPath)
	fs := afero.NewOsFs()
	store, err := dbfile.NewStore(fs, dataPath)
	if err != nil {
		log.Fatal().Err(err).Msg("bad-data-path")
	}
	auditLog, err := audit.Open(fs, dataPath, cfg.AuditDBPath())
	if err != nil {
		log.Fatal().Err(err).Msg("bad-audit-db")
	}

	budget := cfg.GetInt64(config.ConfigMemoryBudget)
	if budget <= 0 {
		budget = cache.DefaultBudget(cfg.GetFloat64(config.ConfigMemoryFraction))
	}
	c := cache.New(dir, store, budget, cfg.GetInt64(config.ConfigHardLimit))

	b := builder.New(builder.Options{
		MaxPieces:     cfg.GetInt(config.ConfigMaxPieces),
		Threads:       cfg.GetInt(config.ConfigThreads),
		Unmove:        cfg.GetBool(config.ConfigUnmove),
		UseExisting:   cfg.GetBool(config.ConfigUseExisting),
		MaxPasses:     cfg.GetInt(config.ConfigMaxPasses),
		VerifySamples: cfg.GetInt(config.ConfigVerifySamples),
	}, dir, store, c, auditLog)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("got quit signal, stopping after the current slice...")
		cancel()
	}()

	start := time.Now()
	err = build(ctx, b, store)
	// log.Fatal exits without running deferred calls.
	if cerr := auditLog.Close(); cerr != nil {
		log.Error().Err(cerr).Msg("audit-close-failed")
	}
	if errors.Is(err, context.Canceled) {
		log.Info().Msg("build interrupted; rerun with use-existing to resume")
		return
	}
	if err != nil {
		log.Fatal().Err(err).Msg("build-failed")
	}
	sum := auditLog.Summary()
	log.Info().Int("slices", sum.Slices).Int64("positions", sum.Positions).
		Int64("wins", sum.Wins).Int64("losses", sum.Losses).Int64("draws", sum.Draws).
		Dur("elapsed", time.Since(start)).Msg("build-finished")
}

func build(ctx context.Context, b *builder.Builder, store *dbfile.Store) error {
	if err := b.BuildAll(ctx); err != nil {
		return err
	}
	if err := store.WriteManifest(b.Manifest()); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

func printEstimate(dir *directory.Directory) {
	e := dir.Estimate()
	fmt.Printf("slices:    %d\n", e.Slices)
	fmt.Printf("positions: %d\n", e.Positions)
	fmt.Printf("bytes:     %d\n", e.Bytes)
	fmt.Printf("largest:   %s (%d bytes)\n", e.Largest.FileName(), e.LargestBytes)
	fmt.Printf("saved by symmetry: %d bytes\n", e.SymmetricSaved)
	for n := 2; n <= dir.MaxPieces(); n++ {
		fmt.Printf("  %d pieces: %d slices, %d bytes\n", n, e.SlicesPerPieces[n], e.BytesPerPieces[n])
	}
}
