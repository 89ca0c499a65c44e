package engine

import (
	"fmt"
	"sync/atomic"

	"github.com/hailam/chesscore/internal/board"
)

// Bound indicates how a stored score relates to the true value.
type Bound uint8

const (
	BoundExact Bound = iota // Score lies strictly inside the search window
	BoundLower              // Failed high (beta cutoff)
	BoundUpper              // Failed low
)

// String returns the bound name.
func (b Bound) String() string {
	switch b {
	case BoundExact:
		return "exact"
	case BoundLower:
		return "lower"
	case BoundUpper:
		return "upper"
	default:
		return "invalid"
	}
}

// TTEntry represents an entry in the transposition table.
type TTEntry struct {
	Key   board.HashKey // Full key of the position that wrote the slot
	Move  board.Move    // Best move, NoMove unless Bound is exact
	Score int
	Depth int
	Bound Bound
}

type ttSlot struct {
	entry TTEntry
	used  bool
}

// TranspositionTable is a fixed-size always-replace cache of search results.
// A table built with n bits holds 2^(n-1) slots and is indexed by the low
// n-1 bits of the key. Get does not check the stored key; callers compare
// TTEntry.Key themselves.
//
// The table is owned by one search goroutine. Only the counters may be read
// concurrently.
type TranspositionTable struct {
	slots []ttSlot
	mask  uint64
	used  int

	hits   atomic.Uint64
	probes atomic.Uint64
}

// MaxHashBits bounds the table to 2^31 slots.
const MaxHashBits = 32

// NewTranspositionTable creates a table with 2^(bits-1) slots.
// It panics for bits outside 1..MaxHashBits.
func NewTranspositionTable(bits int) *TranspositionTable {
	if bits < 1 || bits > MaxHashBits {
		panic(fmt.Sprintf("engine: hash bits %d out of range 1..%d", bits, MaxHashBits))
	}
	n := uint64(1) << (bits - 1)
	return &TranspositionTable{
		slots: make([]ttSlot, n),
		mask:  n - 1,
	}
}

// slotBytes approximates the memory one slot takes.
const slotBytes = 40

// BitsForSize returns the largest bit count whose table fits in sizeMB
// megabytes.
func BitsForSize(sizeMB int) int {
	if sizeMB < 1 {
		sizeMB = 1
	}
	slots := roundDownToPowerOf2(uint64(sizeMB) * 1024 * 1024 / slotBytes)
	bits := 1
	for slots > 1 && bits < MaxHashBits {
		slots >>= 1
		bits++
	}
	return bits
}

// roundDownToPowerOf2 rounds n down to the nearest power of 2.
func roundDownToPowerOf2(n uint64) uint64 {
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return (n + 1) >> 1
}

// Get returns the occupant of key's slot, or false if the slot was never
// written.
func (tt *TranspositionTable) Get(key board.HashKey) (TTEntry, bool) {
	tt.probes.Add(1)
	slot := &tt.slots[uint64(key)&tt.mask]
	if !slot.used {
		return TTEntry{}, false
	}
	if slot.entry.Key == key {
		tt.hits.Add(1)
	}
	return slot.entry, true
}

// Set stores e under key, unconditionally evicting the slot's occupant, and
// returns that previous occupant. e.Key is overwritten with key.
func (tt *TranspositionTable) Set(key board.HashKey, e TTEntry) (TTEntry, bool) {
	slot := &tt.slots[uint64(key)&tt.mask]
	prev, had := slot.entry, slot.used
	e.Key = key
	slot.entry = e
	if !had {
		slot.used = true
		tt.used++
	}
	return prev, had
}

// Clear empties the table and resets the counters.
func (tt *TranspositionTable) Clear() {
	clear(tt.slots)
	tt.used = 0
	tt.hits.Store(0)
	tt.probes.Store(0)
}

// Len returns the number of slots.
func (tt *TranspositionTable) Len() int {
	return len(tt.slots)
}

// Used returns the number of occupied slots.
func (tt *TranspositionTable) Used() int {
	return tt.used
}

// HashFull returns the permille (parts per thousand) of the table that is used.
func (tt *TranspositionTable) HashFull() int {
	// Sample first 1000 entries
	sampleSize := 1000
	if sampleSize > len(tt.slots) {
		sampleSize = len(tt.slots)
	}
	used := 0
	for i := 0; i < sampleSize; i++ {
		if tt.slots[i].used {
			used++
		}
	}
	return used * 1000 / sampleSize
}

// Hits returns how many probes found an entry written for the same key.
func (tt *TranspositionTable) Hits() uint64 {
	return tt.hits.Load()
}

// Probes returns the number of Get calls.
func (tt *TranspositionTable) Probes() uint64 {
	return tt.probes.Load()
}

// HitRate returns the cache hit rate as a percentage.
func (tt *TranspositionTable) HitRate() float64 {
	probes := tt.probes.Load()
	if probes == 0 {
		return 0
	}
	return float64(tt.hits.Load()) / float64(probes) * 100
}
