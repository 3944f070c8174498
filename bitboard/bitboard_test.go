package bitboard

import (
	"testing"

	"github.com/matryer/is"
)

func TestScans(t *testing.T) {
	is := is.New(t)
	is.Equal(LSB(0), -1)
	is.Equal(MSB(0), -1)
	is.Equal(LSB(0x80000000), 31)
	is.Equal(MSB(0x80000000), 31)
	is.Equal(LSB(0x00F00010), 4)
	is.Equal(MSB(0x00F00010), 23)
	is.Equal(Count(0xF0F0F0F0), 16)
}

func TestReverse(t *testing.T) {
	is := is.New(t)
	is.Equal(Reverse(1), uint32(0x80000000))
	is.Equal(Reverse(0x0000000F), uint32(0xF0000000))
	for sq := 0; sq < 32; sq++ {
		is.Equal(Reverse(uint32(1)<<sq), uint32(1)<<(31-sq))
	}
}

func TestCountBelow(t *testing.T) {
	is := is.New(t)
	is.Equal(CountBelow(0xFFFFFFFF, 0), 0)
	is.Equal(CountBelow(0xFFFFFFFF, 31), 31)
	is.Equal(CountBelow(0b1011, 3), 2)
}
