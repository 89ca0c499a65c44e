// Package diag writes one JSON-lines log per search into a numbered run
// directory: dir/run-0001/search-0001.jsonl, search-0002.jsonl, and so on.
package diag

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/engine"
)

const runPrefix = "run-"

// Recorder is an engine.TraceSink. Each Recorder owns one run directory.
type Recorder struct {
	dir      string
	compress bool
	searches atomic.Int64
}

// NewRecorder creates the next run directory under dir.
func NewRecorder(dir string, compress bool) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create diagnostics directory: %w", err)
	}
	n, err := lastRun(dir)
	if err != nil {
		return nil, err
	}
	// Mkdir fails on a directory another process just took; try the next one.
	for {
		n++
		runDir := filepath.Join(dir, fmt.Sprintf("%s%04d", runPrefix, n))
		err := os.Mkdir(runDir, 0o755)
		if err == nil {
			return &Recorder{dir: runDir, compress: compress}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to create run directory: %w", err)
		}
	}
}

// lastRun returns the highest run number present in dir, or 0.
func lastRun(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list diagnostics directory: %w", err)
	}
	last := 0
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), runPrefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(e.Name(), runPrefix))
		if err == nil && n > last {
			last = n
		}
	}
	return last, nil
}

// Dir returns the run directory.
func (r *Recorder) Dir() string {
	return r.dir
}

// Begin opens the log file for the next search.
func (r *Recorder) Begin(searchID string, pos *board.Position) (engine.Trace, error) {
	n := r.searches.Add(1)
	name := fmt.Sprintf("search-%04d.jsonl", n)
	if r.compress {
		name += ".zst"
	}
	f, err := os.Create(filepath.Join(r.dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to create search log: %w", err)
	}

	t := &trace{file: f, w: f}
	if r.compress {
		enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		t.enc = enc
		t.w = enc
	}
	t.log = zerolog.New(t.w).With().Timestamp().Str("search_id", searchID).Logger()
	t.log.Info().
		Str("side", pos.SideToMove.String()).
		Str("key", fmt.Sprintf("%016x", uint64(pos.Key))).
		Int("ply", pos.Ply()).
		Int("material_white", pos.Material[board.White]).
		Int("material_black", pos.Material[board.Black]).
		Msg("search started")
	return t, nil
}

type trace struct {
	file *os.File
	enc  *zstd.Encoder
	w    io.Writer
	log  zerolog.Logger
}

func (t *trace) Iteration(info engine.SearchInfo) {
	roots := zerolog.Arr()
	for _, rs := range info.RootScores {
		roots.Dict(zerolog.Dict().Str("move", rs.Move.Notation()).Int("score", rs.Score))
	}
	t.log.Info().
		Int("depth", info.Depth).
		Int("score", info.Score).
		Uint64("nodes", info.Nodes).
		Uint64("cache_hits", info.CacheHits).
		Int("hashfull", info.HashFull).
		Dur("elapsed", info.Time).
		Strs("pv", notation(info.PV)).
		Array("root_scores", roots).
		Msg("iteration")
}

func (t *trace) Finish(res engine.Result) error {
	t.log.Info().
		Str("move", res.Move.Notation()).
		Int("score", res.Score).
		Int("depth", res.Depth).
		Uint64("nodes", res.Nodes).
		Uint64("cache_hits", res.CacheHits).
		Dur("elapsed", res.Elapsed).
		Strs("pv", notation(res.PV)).
		Msg("search finished")

	var encErr error
	if t.enc != nil {
		encErr = t.enc.Close()
	}
	if err := t.file.Close(); err != nil {
		return fmt.Errorf("failed to close search log: %w", err)
	}
	if encErr != nil {
		return fmt.Errorf("failed to flush search log: %w", encErr)
	}
	return nil
}

func notation(moves []board.Move) []string {
	out := make([]string, len(moves))
	for i, m := range moves {
		out[i] = m.Notation()
	}
	return out
}
