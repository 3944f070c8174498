// probe looks up a single position in a finished database.
//
//	probe [flags] <bm> <bk> <wm> <wk> <b|w>
//
// The four bitboards are hexadecimal. Alternatively pass a diagram file,
// as drawn by board.ToDisplayText, followed by the side to move.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/domino14/checkersdb/board"
	"github.com/domino14/checkersdb/cache"
	"github.com/domino14/checkersdb/config"
	"github.com/domino14/checkersdb/dbfile"
	"github.com/domino14/checkersdb/directory"
	"github.com/domino14/checkersdb/lookup"
)

func parseColor(s string) (board.Color, error) {
	switch s {
	case "b", "black":
		return board.Black, nil
	case "w", "white":
		return board.White, nil
	}
	return board.Black, fmt.Errorf("side to move must be b or w, got %q", s)
}

func parsePosition(args []string) (board.Position, error) {
	var words [4]uint32
	for i, a := range args {
		v, err := strconv.ParseUint(a, 16, 32)
		if err != nil {
			return board.Position{}, fmt.Errorf("bitboard %q: %w", a, err)
		}
		words[i] = uint32(v)
	}
	return board.Position{BM: words[0], BK: words[1], WM: words[2], WK: words[3]}, nil
}

func main() {
	ex, err := os.Executable()
	if err != nil {
		panic(err)
	}
	cfg := &config.Config{}
	if err := cfg.Load(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	// resolve data-path the way builddb does, so both see the same files.
	cfg.AdjustRelativePaths(filepath.Dir(ex))
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if cfg.LogLevel() == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	args := cfg.Args()
	var p board.Position
	switch {
	case len(args) == 5:
		p, err = parsePosition(args[:4])
		args = args[4:]
	case len(args) == 2:
		var data []byte
		data, err = os.ReadFile(args[0])
		if err == nil {
			p, err = board.FromDiagram(string(data))
		}
		args = args[1:]
	default:
		fmt.Fprintln(os.Stderr, "usage: probe [flags] <bm> <bk> <wm> <wk> <b|w>")
		fmt.Fprintln(os.Stderr, "       probe [flags] <diagram-file> <b|w>")
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("bad-position")
	}
	stm, err := parseColor(args[0])
	if err != nil {
		log.Fatal().Err(err).Msg("bad-side-to-move")
	}
	if !p.Legal() {
		log.Fatal().Str("position", p.String()).Msg("illegal-position")
	}

	dir, err := directory.New(cfg.GetInt(config.ConfigMaxPieces), cfg.GetInt(config.ConfigMaxPerSide))
	if err != nil {
		log.Fatal().Err(err).Msg("bad-directory")
	}
	store, err := dbfile.NewOSStore(cfg.GetString(config.ConfigDataPath))
	if err != nil {
		log.Fatal().Err(err).Msg("bad-data-path")
	}
	svc := lookup.New(dir, cache.New(dir, store, 0, 0))

	fmt.Print(p.ToDisplayText())
	id, idx := lookup.SliceOf(p, stm)
	fmt.Printf("%s to move, stored in %s at %d\n", stm, id.FileName(), idx)
	fmt.Println(svc.Probe(p, stm))
}
