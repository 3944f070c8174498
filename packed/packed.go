// Package packed stores database values two bits at a time.
package packed

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"
)

// Value is the game-theoretic value of a position for the side to move.
type Value uint32

const (
	Unknown Value = iota
	Win
	Loss
	Draw
)

const (
	perWord = 16
	mask    = 3
)

func (v Value) String() string {
	switch v {
	case Win:
		return "WIN"
	case Loss:
		return "LOSS"
	case Draw:
		return "DRAW"
	}
	return "UNKNOWN"
}

// Negate returns the value for the opponent.
func (v Value) Negate() Value {
	switch v {
	case Win:
		return Loss
	case Loss:
		return Win
	}
	return v
}

// WordsFor returns the number of 32-bit words needed to hold size values.
func WordsFor(size int64) int64 {
	return (size + perWord - 1) / perWord
}

// Table is a packed array of values. Get and Set are safe for concurrent
// use; two goroutines may write different values of the same word.
type Table struct {
	size  int64
	words []uint32
}

// NewTable returns a table of size values, all Unknown.
func NewTable(size int64) *Table {
	return &Table{size: size, words: make([]uint32, WordsFor(size))}
}

// FromWords wraps existing words. It fails if len(words) does not match
// size.
func FromWords(size int64, words []uint32) (*Table, error) {
	if int64(len(words)) != WordsFor(size) {
		return nil, fmt.Errorf("table of %d values needs %d words, got %d",
			size, WordsFor(size), len(words))
	}
	return &Table{size: size, words: words}, nil
}

// Size is the number of values in the table.
func (t *Table) Size() int64 {
	return t.size
}

// Words exposes the backing words.
func (t *Table) Words() []uint32 {
	return t.words
}

// Bytes returns the memory the table occupies.
func (t *Table) Bytes() int64 {
	return int64(len(t.words)) * 4
}

// Get returns the value at idx.
func (t *Table) Get(idx int64) Value {
	w := atomic.LoadUint32(&t.words[idx/perWord])
	return Value(w>>(2*(idx%perWord))) & mask
}

// Set stores v at idx.
func (t *Table) Set(idx int64, v Value) {
	addr := &t.words[idx/perWord]
	shift := 2 * (idx % perWord)
	for {
		old := atomic.LoadUint32(addr)
		nw := old&^(mask<<shift) | uint32(v)<<shift
		if old == nw || atomic.CompareAndSwapUint32(addr, old, nw) {
			return
		}
	}
}

// CompareAndSet stores v at idx if the value there is old.
func (t *Table) CompareAndSet(idx int64, old, v Value) bool {
	addr := &t.words[idx/perWord]
	shift := 2 * (idx % perWord)
	for {
		w := atomic.LoadUint32(addr)
		if Value(w>>shift)&mask != old {
			return false
		}
		nw := w&^(mask<<shift) | uint32(v)<<shift
		if w == nw || atomic.CompareAndSwapUint32(addr, w, nw) {
			return true
		}
	}
}

// Fill sets every value to v.
func (t *Table) Fill(v Value) {
	var w uint32
	for i := 0; i < perWord; i++ {
		w |= uint32(v) << (2 * i)
	}
	for i := range t.words {
		atomic.StoreUint32(&t.words[i], w)
	}
}

// Counts tallies the values in the table.
type Counts struct {
	Unknown int64
	Win     int64
	Loss    int64
	Draw    int64
}

// Count tallies every value of the table.
func (t *Table) Count() Counts {
	var c Counts
	for i := int64(0); i < t.size; i++ {
		switch t.Get(i) {
		case Unknown:
			c.Unknown++
		case Win:
			c.Win++
		case Loss:
			c.Loss++
		case Draw:
			c.Draw++
		}
	}
	return c
}

// MarshalBinary encodes the table as little-endian words.
func (t *Table) MarshalBinary() ([]byte, error) {
	out := make([]byte, 4*len(t.words))
	for i := range t.words {
		binary.LittleEndian.PutUint32(out[4*i:], atomic.LoadUint32(&t.words[i]))
	}
	return out, nil
}

// UnmarshalBinary decodes little-endian words into the table. The table
// must already have the right size.
func (t *Table) UnmarshalBinary(data []byte) error {
	if len(data) != 4*len(t.words) {
		return fmt.Errorf("expected %d bytes, got %d", 4*len(t.words), len(data))
	}
	for i := range t.words {
		t.words[i] = binary.LittleEndian.Uint32(data[4*i:])
	}
	return nil
}
