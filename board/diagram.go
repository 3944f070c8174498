package board

import (
	"fmt"
	"strings"
)

// ToDisplayText draws the position with white at the top. Black men are
// b, black kings B, white men w, white kings W.
func (p Position) ToDisplayText() string {
	var sb strings.Builder
	for row := 7; row >= 0; row-- {
		if row%2 == 1 {
			sb.WriteString(" ")
		}
		for col := 0; col < 4; col++ {
			sq := uint32(1) << (row*4 + col)
			c := '-'
			switch {
			case p.BM&sq != 0:
				c = 'b'
			case p.BK&sq != 0:
				c = 'B'
			case p.WM&sq != 0:
				c = 'w'
			case p.WK&sq != 0:
				c = 'W'
			}
			sb.WriteRune(c)
			sb.WriteString(" ")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// FromDiagram parses the output of ToDisplayText. Whitespace is ignored;
// each of the eight rows must hold exactly four squares.
func FromDiagram(diagram string) (Position, error) {
	var p Position
	var rows []string
	for _, line := range strings.Split(diagram, "\n") {
		line = strings.Join(strings.Fields(line), "")
		if line == "" {
			continue
		}
		rows = append(rows, line)
	}
	if len(rows) != 8 {
		return p, fmt.Errorf("diagram has %d rows, want 8", len(rows))
	}
	for i, line := range rows {
		if len(line) != 4 {
			return p, fmt.Errorf("diagram row %d has %d squares, want 4", i, len(line))
		}
		row := 7 - i
		for col, ch := range line {
			sq := uint32(1) << (row*4 + col)
			switch ch {
			case 'b':
				p.BM |= sq
			case 'B':
				p.BK |= sq
			case 'w':
				p.WM |= sq
			case 'W':
				p.WK |= sq
			case '-', '.':
			default:
				return p, fmt.Errorf("unknown square marker %q", ch)
			}
		}
	}
	return p, nil
}
