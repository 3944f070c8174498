package audit

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/spf13/afero"
)

func TestRecord(t *testing.T) {
	is := is.New(t)
	fs := afero.NewMemMapFs()
	is.NoErr(fs.MkdirAll("/db", 0o755))
	l, err := Open(fs, "/db", ":memory:")
	is.NoErr(err)
	defer l.Close()

	ctx := context.Background()
	first := SliceStats{
		Name: "0101-66b", Pieces: 2, Positions: 992, Wins: 100, Losses: 12, Draws: 880,
		Passes: 4, Elapsed: 1500 * time.Millisecond, Checksum: 0xdeadbeef,
	}
	is.NoErr(l.Record(ctx, first))
	is.NoErr(l.Record(ctx, SliceStats{Name: "0110-66w", Pieces: 2, Positions: 124, Wins: 3}))

	back, err := l.Stats(ctx, "0101-66b")
	is.NoErr(err)
	is.Equal(back, first)

	// a rebuilt slice replaces its row
	first.Wins = 101
	is.NoErr(l.Record(ctx, first))
	back, err = l.Stats(ctx, "0101-66b")
	is.NoErr(err)
	is.Equal(back.Wins, int64(101))

	sum := l.Summary()
	is.Equal(sum.Slices, 3)
	is.Equal(sum.Wins, int64(204))

	data, err := afero.ReadFile(fs, "/db/"+WinLogName)
	is.NoErr(err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	is.Equal(len(lines), 3)
	is.True(strings.HasPrefix(lines[0], "0101-66b: 992 positions, 100 wins"))
}

func TestTextOnly(t *testing.T) {
	is := is.New(t)
	fs := afero.NewMemMapFs()
	is.NoErr(fs.MkdirAll("/db", 0o755))
	l, err := Open(fs, "/db", "")
	is.NoErr(err)
	is.NoErr(l.Record(context.Background(), SliceStats{Name: "x"}))
	_, err = l.Stats(context.Background(), "x")
	is.True(err != nil)
	is.NoErr(l.Close())
}
