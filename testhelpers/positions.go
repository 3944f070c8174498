package testhelpers

import (
	"testing"

	"github.com/domino14/checkersdb/board"
)

// Diagram parses a board diagram or fails the test.
func Diagram(t testing.TB, diagram string) board.Position {
	t.Helper()
	p, err := board.FromDiagram(diagram)
	if err != nil {
		t.Fatalf("bad diagram: %v", err)
	}
	return p
}
