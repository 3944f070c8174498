// Package audit records per-slice build statistics: a line per slice in
// a plain text win log, and a row per slice in a SQLite table that can be
// queried after the build.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	_ "modernc.org/sqlite"
)

const WinLogName = "winlog.txt"

const schema = `
CREATE TABLE IF NOT EXISTS slices (
	name       TEXT PRIMARY KEY,
	pieces     INTEGER NOT NULL,
	positions  INTEGER NOT NULL,
	wins       INTEGER NOT NULL,
	losses     INTEGER NOT NULL,
	draws      INTEGER NOT NULL,
	impossible INTEGER NOT NULL,
	passes     INTEGER NOT NULL,
	elapsed_ms INTEGER NOT NULL,
	xxhash     TEXT NOT NULL,
	built_at   TEXT NOT NULL
)`

const upsert = `
INSERT INTO slices (name, pieces, positions, wins, losses, draws, impossible, passes, elapsed_ms, xxhash, built_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
	pieces = excluded.pieces,
	positions = excluded.positions,
	wins = excluded.wins,
	losses = excluded.losses,
	draws = excluded.draws,
	impossible = excluded.impossible,
	passes = excluded.passes,
	elapsed_ms = excluded.elapsed_ms,
	xxhash = excluded.xxhash,
	built_at = excluded.built_at`

// SliceStats describes one finished slice.
type SliceStats struct {
	Name       string
	Pieces     int
	Positions  int64
	Wins       int64
	Losses     int64
	Draws      int64
	Impossible int64
	Passes     int
	Elapsed    time.Duration
	Checksum   uint64
}

func (s SliceStats) String() string {
	return fmt.Sprintf("%s: %d positions, %d wins, %d losses, %d draws, %d impossible, %d passes, %s",
		s.Name, s.Positions, s.Wins, s.Losses, s.Draws, s.Impossible, s.Passes,
		s.Elapsed.Round(time.Millisecond))
}

// Summary totals every slice recorded by a Log.
type Summary struct {
	Slices    int
	Positions int64
	Wins      int64
	Losses    int64
	Draws     int64
	Elapsed   time.Duration
}

// Log writes the audit artifacts.
type Log struct {
	sync.Mutex
	fs      afero.Fs
	winlog  string
	db      *sql.DB
	summary Summary
}

// Open opens the audit artifacts in dir. dbPath names the SQLite file;
// when empty only the text log is written.
func Open(fsys afero.Fs, dir, dbPath string) (*Log, error) {
	l := &Log{fs: fsys, winlog: filepath.Join(dir, WinLogName)}
	if dbPath == "" {
		return l, nil
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating audit schema: %w", err)
	}
	l.db = db
	return l, nil
}

// Record stores the statistics of one slice.
func (l *Log) Record(ctx context.Context, s SliceStats) error {
	l.Lock()
	defer l.Unlock()

	f, err := l.fs.OpenFile(l.winlog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f, s.String())
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", l.winlog, err)
	}

	if l.db != nil {
		_, err = l.db.ExecContext(ctx, upsert, s.Name, s.Pieces, s.Positions,
			s.Wins, s.Losses, s.Draws, s.Impossible, s.Passes,
			s.Elapsed.Milliseconds(), fmt.Sprintf("%016x", s.Checksum),
			time.Now().UTC().Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("recording %s: %w", s.Name, err)
		}
	}

	l.summary.Slices++
	l.summary.Positions += s.Positions
	l.summary.Wins += s.Wins
	l.summary.Losses += s.Losses
	l.summary.Draws += s.Draws
	l.summary.Elapsed += s.Elapsed
	log.Debug().Str("slice", s.Name).Int64("wins", s.Wins).Int64("losses", s.Losses).
		Int64("draws", s.Draws).Msg("slice-recorded")
	return nil
}

// Summary returns the totals of everything recorded since Open.
func (l *Log) Summary() Summary {
	l.Lock()
	defer l.Unlock()
	return l.summary
}

// Stats reads a recorded slice back from the SQLite table.
func (l *Log) Stats(ctx context.Context, name string) (SliceStats, error) {
	var s SliceStats
	if l.db == nil {
		return s, fmt.Errorf("no audit database")
	}
	var elapsed int64
	var sum string
	err := l.db.QueryRowContext(ctx,
		`SELECT name, pieces, positions, wins, losses, draws, impossible, passes, elapsed_ms, xxhash
		 FROM slices WHERE name = ?`, name).
		Scan(&s.Name, &s.Pieces, &s.Positions, &s.Wins, &s.Losses, &s.Draws,
			&s.Impossible, &s.Passes, &elapsed, &sum)
	if err != nil {
		return s, err
	}
	s.Elapsed = time.Duration(elapsed) * time.Millisecond
	if _, err := fmt.Sscanf(sum, "%x", &s.Checksum); err != nil {
		return s, fmt.Errorf("bad checksum %q: %w", sum, err)
	}
	return s, nil
}

// Close releases the SQLite handle.
func (l *Log) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}
