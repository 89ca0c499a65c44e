package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hailam/chesscore/internal/board"
)

// SearchInfo describes one completed iteration.
type SearchInfo struct {
	Depth      int
	Score      int
	Nodes      uint64
	CacheHits  uint64
	Time       time.Duration
	PV         []board.Move
	RootScores []RootScore
	HashFull   int // Permille of hash table used
}

// Result is the outcome of a search.
type Result struct {
	SearchID   string
	Move       board.Move // NoMove only when the side to move has no legal move
	Score      int
	Depth      int // Deepest completed iteration, 0 for a forced move
	Nodes      uint64
	CacheHits  uint64
	PV         []board.Move
	Iterations []SearchInfo
	Elapsed    time.Duration
}

// Limits specifies constraints on the search.
type Limits struct {
	Time      [2]time.Duration // Remaining clock time per color
	Inc       [2]time.Duration // Increment per move per color
	MovesToGo int              // Moves until next time control (0 = sudden death)
	MoveTime  time.Duration    // Time for this move
	Depth     int              // Maximum depth (0 = engine default)
	Infinite  bool             // Search until stopped
}

// Options configures an Engine.
type Options struct {
	HashBits   int
	MaxDepth   int
	Quiescence bool
	Logger     *zerolog.Logger
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{HashBits: 20, MaxDepth: 64}
}

// Trace receives the progress of one search. Implementations write the
// diagnostic log for that search.
type Trace interface {
	Iteration(info SearchInfo)
	Finish(res Result) error
}

// TraceSink opens a Trace per search.
type TraceSink interface {
	Begin(searchID string, pos *board.Position) (Trace, error)
}

// Engine is the chess AI engine. One Engine runs one search at a time.
type Engine struct {
	searcher *Searcher
	tt       *TranspositionTable
	stopFlag atomic.Bool
	maxDepth int
	log      zerolog.Logger
	sink     TraceSink
	metrics  *Metrics

	// Callbacks
	OnInfo func(SearchInfo)
}

// NewEngine creates a new chess engine.
func NewEngine(opts Options) *Engine {
	def := DefaultOptions()
	if opts.HashBits == 0 {
		opts.HashBits = def.HashBits
	}
	if opts.MaxDepth <= 0 || opts.MaxDepth > MaxPly-1 {
		opts.MaxDepth = def.MaxDepth
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	e := &Engine{
		tt:       NewTranspositionTable(opts.HashBits),
		maxDepth: opts.MaxDepth,
		log:      logger.With().Str("component", "engine").Logger(),
	}
	e.searcher = NewSearcher(e.tt, &e.stopFlag, opts.Quiescence)
	return e
}

// SetTraceSink installs the diagnostic log sink. nil disables tracing.
func (e *Engine) SetTraceSink(sink TraceSink) {
	e.sink = sink
}

// SetMetrics installs the metrics collectors. nil disables them.
func (e *Engine) SetMetrics(m *Metrics) {
	e.metrics = m
}

// TT exposes the transposition table.
func (e *Engine) TT() *TranspositionTable {
	return e.tt
}

// Execute searches pos for at most budget (plus the time needed to finish
// the root move in progress) and returns the best move found.
func (e *Engine) Execute(pos *board.Position, budget time.Duration) Result {
	return e.ExecuteContext(context.Background(), pos, budget)
}

// ExecuteContext is Execute with cancellation: cancelling ctx stops the
// search the same way the budget timer does. A budget of zero or less is
// already spent, so only the forced first iteration runs.
func (e *Engine) ExecuteContext(ctx context.Context, pos *board.Position, budget time.Duration) Result {
	return e.Search(ctx, pos, Limits{MoveTime: max(budget, time.Nanosecond)})
}

// Search runs iterative deepening on pos under limits. The position is
// mutated during the search and restored before Search returns.
func (e *Engine) Search(ctx context.Context, pos *board.Position, limits Limits) (res Result) {
	start := time.Now()
	res = Result{SearchID: uuid.NewString(), Move: board.NoMove}
	e.stopFlag.Store(false)

	if !limits.Infinite {
		var tm TimeManager
		tm.Init(limits, pos.SideToMove, pos.Ply())
		timer := time.AfterFunc(tm.OptimumTime(), e.Stop)
		defer timer.Stop()
	}
	stopOnCancel := context.AfterFunc(ctx, e.Stop)
	defer stopOnCancel()

	maxDepth := e.maxDepth
	if limits.Depth > 0 && limits.Depth < MaxPly {
		maxDepth = limits.Depth
	}

	logger := e.log.With().Str("search_id", res.SearchID).Logger()
	var trace Trace
	if e.sink != nil {
		t, err := e.sink.Begin(res.SearchID, pos)
		if err != nil {
			logger.Warn().Err(err).Msg("diagnostic trace disabled")
		} else {
			trace = t
		}
	}

	defer func() {
		res.Elapsed = time.Since(start)
		if trace != nil {
			if err := trace.Finish(res); err != nil {
				logger.Warn().Err(err).Msg("closing diagnostic trace")
			}
		}
		e.metrics.observe(res, e.tt)
		logger.Debug().
			Str("move", res.Move.String()).
			Int("score", res.Score).
			Int("depth", res.Depth).
			Uint64("nodes", res.Nodes).
			Dur("elapsed", res.Elapsed).
			Msg("search finished")
	}()

	legal := pos.GenerateLegalMoves()
	switch legal.Len() {
	case 0:
		if pos.InCheck() {
			res.Score = -MateScore
		}
		return res
	case 1:
		res.Move = legal.Get(0)
		res.Score = pos.Evaluate()
		res.PV = []board.Move{res.Move}
		return res
	}

	s := e.searcher
	s.Reset(pos)

	for depth := 1; depth <= maxDepth; depth++ {
		if depth > 1 && e.stopFlag.Load() {
			break
		}

		it, complete := s.searchRoot(depth, depth == 1)
		res.Nodes = s.Nodes()
		res.CacheHits = s.CacheHits()
		if !complete {
			logger.Debug().Int("depth", depth).Msg("iteration interrupted")
			break
		}

		res.Move = it.move
		res.Score = it.score
		res.Depth = depth
		res.PV = it.pv

		info := SearchInfo{
			Depth:      depth,
			Score:      it.score,
			Nodes:      res.Nodes,
			CacheHits:  res.CacheHits,
			Time:       time.Since(start),
			PV:         it.pv,
			RootScores: it.rootScores,
			HashFull:   e.tt.HashFull(),
		}
		res.Iterations = append(res.Iterations, info)
		if trace != nil {
			trace.Iteration(info)
		}
		if e.OnInfo != nil {
			e.OnInfo(info)
		}

		// Early termination: found mate
		if it.score >= MateScore || it.score <= -MateScore {
			break
		}
	}

	return res
}

// Stop stops the current search.
func (e *Engine) Stop() {
	e.stopFlag.Store(true)
}

// Clear clears the transposition table and other caches.
func (e *Engine) Clear() {
	e.tt.Clear()
	e.searcher.orderer = NewMoveOrderer()
}

// Perft performs a perft test (for debugging move generation).
func (e *Engine) Perft(pos *board.Position, depth int) uint64 {
	return pos.Perft(depth)
}

// ScoreToString converts a score to a human-readable string.
func ScoreToString(score int) string {
	if score >= MateScore {
		return "mate"
	}
	if score <= -MateScore {
		return "mated"
	}
	sign := ""
	if score < 0 {
		sign = "-"
		score = -score
	}
	return fmt.Sprintf("%s%d.%02d", sign, score/100, score%100)
}
