package diag

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/engine"
)

func readEvents(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var r io.Reader = f
	if filepath.Ext(path) == ".zst" {
		dec, err := zstd.NewReader(f)
		require.NoError(t, err)
		defer dec.Close()
		r = dec
	}

	var events []map[string]any
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		var ev map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
		events = append(events, ev)
	}
	require.NoError(t, sc.Err())
	return events
}

func TestRunDirectoryNumbering(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "run-0007"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "run-notes"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run-0100"), nil, 0o644))

	r1, err := NewRecorder(dir, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "run-0008"), r1.Dir())

	r2, err := NewRecorder(dir, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "run-0009"), r2.Dir())

	fresh, err := NewRecorder(filepath.Join(dir, "nested", "diag"), true)
	require.NoError(t, err)
	assert.Equal(t, "run-0001", filepath.Base(fresh.Dir()))
}

func TestRecorderWritesSearchLogs(t *testing.T) {
	for _, compress := range []bool{false, true} {
		name := "plain"
		ext := ".jsonl"
		if compress {
			name = "zstd"
			ext = ".jsonl.zst"
		}
		t.Run(name, func(t *testing.T) {
			rec, err := NewRecorder(t.TempDir(), compress)
			require.NoError(t, err)

			e := engine.NewEngine(engine.Options{HashBits: 16})
			e.SetTraceSink(rec)
			pos := board.NewPosition()
			first := e.Search(context.Background(), pos, engine.Limits{Depth: 2})
			e.Search(context.Background(), pos, engine.Limits{Depth: 1})

			_, err = os.Stat(filepath.Join(rec.Dir(), "search-0002"+ext))
			require.NoError(t, err)

			events := readEvents(t, filepath.Join(rec.Dir(), "search-0001"+ext))
			require.Len(t, events, 4) // start, two iterations, finish
			for _, ev := range events {
				assert.Equal(t, first.SearchID, ev["search_id"])
			}

			assert.Equal(t, "search started", events[0]["message"])
			assert.Equal(t, "White", events[0]["side"])

			it := events[2]
			assert.Equal(t, "iteration", it["message"])
			assert.EqualValues(t, 2, it["depth"])
			assert.Len(t, it["root_scores"], 20)
			root := it["root_scores"].([]any)[0].(map[string]any)
			assert.Contains(t, root, "move")
			assert.Contains(t, root, "score")

			done := events[3]
			assert.Equal(t, "search finished", done["message"])
			assert.Equal(t, first.Move.Notation(), done["move"])
			assert.EqualValues(t, first.Nodes, done["nodes"])
			pv := done["pv"].([]any)
			require.NotEmpty(t, pv)
			assert.Equal(t, first.Move.Notation(), pv[0])
		})
	}
}
