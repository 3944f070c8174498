package board

import "github.com/domino14/checkersdb/bitboard"

// Direction is one of the four diagonals. "Up" is towards white's side.
type Direction int

const (
	UpLeft Direction = iota
	UpRight
	DownLeft
	DownRight
)

// Masks of the squares that have a neighbor in a direction. The suffix 1
// covers rows whose squares sit in columns 1357, suffix 2 columns 2468.
const (
	upRight1   uint32 = 0x0F0F0F0F
	upRight2   uint32 = 0x00707070
	upLeft1    uint32 = 0x0E0E0E0E
	upLeft2    uint32 = 0x00F0F0F0
	downRight1 uint32 = 0x0F0F0F00
	downRight2 uint32 = 0x70707070
	downLeft1  uint32 = 0x0E0E0E00
	downLeft2  uint32 = 0xF0F0F0F0
)

// Forward returns the directions a man of color c moves in.
func Forward(c Color) [2]Direction {
	if c == Black {
		return [2]Direction{UpLeft, UpRight}
	}
	return [2]Direction{DownLeft, DownRight}
}

// AllDirections is the set of directions a king moves in.
var AllDirections = [4]Direction{UpLeft, UpRight, DownLeft, DownRight}

// Shift moves every square of x one step in direction d. Squares that
// would leave the board are dropped.
func Shift(x uint32, d Direction) uint32 {
	switch d {
	case UpLeft:
		return (x&upLeft1)<<3 | (x&upLeft2)<<4
	case UpRight:
		return (x&upRight1)<<4 | (x&upRight2)<<5
	case DownLeft:
		return (x&downLeft1)>>5 | (x&downLeft2)>>4
	case DownRight:
		return (x&downRight1)>>4 | (x&downRight2)>>3
	}
	return 0
}

var neighbors [32][4]int

func init() {
	for sq := 0; sq < 32; sq++ {
		for _, d := range AllDirections {
			neighbors[sq][d] = bitboard.LSB(Shift(uint32(1)<<sq, d))
		}
	}
}

// Neighbor returns the square next to sq in direction d, or -1.
func Neighbor(sq int, d Direction) int {
	return neighbors[sq][d]
}
