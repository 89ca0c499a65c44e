// Package book is an opening book keyed by position hash. Books are built
// from move lines played out from the start position and can be saved in a
// compact binary form.
package book

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hailam/chesscore/internal/board"
)

// BookEntry represents a single book entry.
type BookEntry struct {
	Move   board.Move
	Weight uint16
}

// Book represents an opening book.
type Book struct {
	entries map[board.HashKey][]BookEntry
}

// New creates an empty book.
func New() *Book {
	return &Book{
		entries: make(map[board.HashKey][]BookEntry),
	}
}

// Add credits weight to move in the position with the given key.
// Weights saturate at the uint16 maximum.
func (b *Book) Add(key board.HashKey, m board.Move, weight uint16) {
	list := b.entries[key]
	for i := range list {
		if list[i].Move == m {
			list[i].Weight = uint16(min(uint32(list[i].Weight)+uint32(weight), 0xffff))
			return
		}
	}
	b.entries[key] = append(list, BookEntry{Move: m, Weight: weight})
}

// Len returns the number of positions in the book.
func (b *Book) Len() int {
	if b == nil {
		return 0
	}
	return len(b.entries)
}

// defaultLines are common openings; each line adds one unit of weight to
// every move in it.
const defaultLines = `
e2e4 e7e5 g1f3 b8c6 f1b5 a7a6
e2e4 e7e5 g1f3 b8c6 f1c4 f8c5
e2e4 e7e5 g1f3 g8f6 f3e5 d7d6
e2e4 c7c5 g1f3 d7d6 d2d4 c5d4
e2e4 c7c5 b1c3 b8c6 g2g3 g7g6
e2e4 e7e6 d2d4 d7d5 b1c3 g8f6
e2e4 c7c6 d2d4 d7d5 b1c3 d5e4
d2d4 d7d5 c2c4 e7e6 b1c3 g8f6
d2d4 d7d5 c2c4 c7c6 g1f3 g8f6
d2d4 g8f6 c2c4 g7g6 b1c3 f8g7
d2d4 g8f6 c2c4 e7e6 g1f3 b7b6
c2c4 e7e5 b1c3 g8f6 g1f3 b8c6
g1f3 d7d5 g2g3 g8f6 f1g2 e7e6
`

// Default returns the built-in book.
func Default() *Book {
	b, err := FromLines(strings.NewReader(defaultLines))
	if err != nil {
		panic(err)
	}
	return b
}

// FromLines builds a book from one space-separated move line per text
// line. Blank lines and lines starting with # are skipped.
func FromLines(r io.Reader) (*Book, error) {
	b := New()
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		pos := board.NewPosition()
		for _, s := range strings.Fields(line) {
			m, err := pos.ParseMove(s)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			b.Add(pos.Key, m, 1)
			pos.Apply(m)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return b, nil
}

// Binary entry format:
// 8 bytes: position key (big-endian)
// 4 bytes: packed move (big-endian)
// 2 bytes: weight (big-endian)
// 2 bytes: reserved
const entrySize = 16

// WriteTo writes the book in binary form, ordered by key.
func (b *Book) WriteTo(w io.Writer) (int64, error) {
	keys := make([]board.HashKey, 0, len(b.entries))
	for k := range b.entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	bw := bufio.NewWriter(w)
	var n int64
	var entry [entrySize]byte
	for _, k := range keys {
		for _, e := range b.entries[k] {
			binary.BigEndian.PutUint64(entry[0:8], uint64(k))
			binary.BigEndian.PutUint32(entry[8:12], e.Move.Encode())
			binary.BigEndian.PutUint16(entry[12:14], e.Weight)
			if _, err := bw.Write(entry[:]); err != nil {
				return n, err
			}
			n += entrySize
		}
	}
	return n, bw.Flush()
}

// LoadReader loads a binary book.
func LoadReader(r io.Reader) (book *Book, err error) {
	book = New()
	var entry [entrySize]byte

	// DecodeMove panics on corrupt data.
	defer func() {
		if p := recover(); p != nil {
			book, err = nil, fmt.Errorf("corrupt book entry: %v", p)
		}
	}()
	for {
		_, err := io.ReadFull(r, entry[:])
		if err == io.EOF {
			break
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("truncated book entry: %w", err)
		}
		if err != nil {
			return nil, err
		}

		key := board.HashKey(binary.BigEndian.Uint64(entry[0:8]))
		move := board.DecodeMove(binary.BigEndian.Uint32(entry[8:12]))
		weight := binary.BigEndian.Uint16(entry[12:14])
		if move != board.NoMove {
			book.Add(key, move, weight)
		}
	}
	return book, nil
}

// Load reads a book file: binary for a .bin extension, move lines otherwise.
func Load(filename string) (*Book, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var b *Book
	if filepath.Ext(filename) == ".bin" {
		b, err = LoadReader(file)
	} else {
		b, err = FromLines(file)
	}
	if err != nil {
		return nil, fmt.Errorf("loading book %s: %w", filename, err)
	}
	return b, nil
}

// Probe picks a legal book move for pos, weighted by entry weight.
func (b *Book) Probe(pos *board.Position, rng *rand.Rand) (board.Move, bool) {
	entries := b.ProbeAll(pos)
	if len(entries) == 0 {
		return board.NoMove, false
	}

	totalWeight := uint32(0)
	for _, e := range entries {
		totalWeight += uint32(e.Weight)
	}
	if totalWeight == 0 {
		// All weights are 0, just pick the first
		return entries[0].Move, true
	}

	r := rng.Uint32N(totalWeight)
	cumulative := uint32(0)
	for _, e := range entries {
		cumulative += uint32(e.Weight)
		if r < cumulative {
			return e.Move, true
		}
	}
	return entries[0].Move, true
}

// ProbeAll returns the legal book moves for the position, highest weight
// first.
func (b *Book) ProbeAll(pos *board.Position) []BookEntry {
	if b == nil {
		return nil
	}
	entries := b.entries[pos.Key]
	if len(entries) == 0 {
		return nil
	}

	legal := pos.GenerateLegalMoves()
	result := make([]BookEntry, 0, len(entries))
	for _, e := range entries {
		if legal.Contains(e.Move) {
			result = append(result, e)
		}
	}
	slices.SortStableFunc(result, func(x, y BookEntry) int {
		return int(y.Weight) - int(x.Weight)
	})
	return result
}
