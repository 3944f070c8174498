// Package bitboard holds the bit primitives used over the 32 playable
// squares of a checkers board.
package bitboard

import "math/bits"

// Count returns the number of set bits.
func Count(x uint32) int {
	return bits.OnesCount32(x)
}

// LSB returns the index of the least significant set bit, or -1 if x is 0.
func LSB(x uint32) int {
	if x == 0 {
		return -1
	}
	return bits.TrailingZeros32(x)
}

// MSB returns the index of the most significant set bit, or -1 if x is 0.
func MSB(x uint32) int {
	if x == 0 {
		return -1
	}
	return 31 - bits.LeadingZeros32(x)
}

// Reverse mirrors a board word: square s maps to square 31-s.
func Reverse(x uint32) uint32 {
	return bits.Reverse32(x)
}

// CountBelow returns the number of set bits of x on squares lower than sq.
func CountBelow(x uint32, sq int) int {
	return bits.OnesCount32(x & (uint32(1)<<sq - 1))
}
