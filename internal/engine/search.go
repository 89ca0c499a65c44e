package engine

import (
	"sync/atomic"

	"github.com/hailam/chesscore/internal/board"
)

// Search constants
const (
	Infinity  = 30000
	MateScore = 29000
	MaxPly    = 128
)

// PVTable stores the principal variation.
type PVTable struct {
	length [MaxPly]int
	moves  [MaxPly][MaxPly]board.Move
}

func (pv *PVTable) update(ply int, m board.Move) {
	pv.moves[ply][ply] = m
	for i := ply + 1; i < pv.length[ply+1]; i++ {
		pv.moves[ply][i] = pv.moves[ply+1][i]
	}
	pv.length[ply] = pv.length[ply+1]
	if pv.length[ply] <= ply {
		pv.length[ply] = ply + 1
	}
}

// line returns a copy of the principal variation from the root.
func (pv *PVTable) line() []board.Move {
	out := make([]board.Move, pv.length[0])
	copy(out, pv.moves[0][:pv.length[0]])
	return out
}

// RootScore is the score one root move earned in an iteration.
type RootScore struct {
	Move  board.Move
	Score int
}

// iteration is the outcome of searching the root to one depth.
type iteration struct {
	move       board.Move
	score      int
	pv         []board.Move
	rootScores []RootScore
}

// Searcher performs the alpha-beta search on a single position.
// It mutates the position while searching and restores it before returning.
type Searcher struct {
	pos        *board.Position
	tt         *TranspositionTable
	orderer    *MoveOrderer
	stopFlag   *atomic.Bool
	quiescence bool

	nodes     uint64
	cacheHits uint64
	pv        PVTable
}

// NewSearcher creates a new searcher.
func NewSearcher(tt *TranspositionTable, stop *atomic.Bool, quiescence bool) *Searcher {
	return &Searcher{
		tt:         tt,
		orderer:    NewMoveOrderer(),
		stopFlag:   stop,
		quiescence: quiescence,
	}
}

// Reset prepares the searcher for a new search of pos.
func (s *Searcher) Reset(pos *board.Position) {
	s.pos = pos
	s.nodes = 0
	s.cacheHits = 0
	s.orderer.Clear()
}

// Nodes returns the number of nodes searched.
func (s *Searcher) Nodes() uint64 {
	return s.nodes
}

// CacheHits returns how many nodes found an entry for their own key.
func (s *Searcher) CacheHits() uint64 {
	return s.cacheHits
}

func (s *Searcher) stopped() bool {
	return s.stopFlag.Load()
}

// searchRoot searches every root move to depth. The stop flag is only read
// between root moves; when it is set the iteration is abandoned and
// complete is false. A forced iteration ignores the flag.
func (s *Searcher) searchRoot(depth int, forced bool) (it iteration, complete bool) {
	pos := s.pos
	key := pos.Key
	s.pv.length[0] = 0

	entry, found := s.tt.Get(key)
	moves := s.orderer.Order(pos, pos.GenerateLegalMoves(), 0, entry, found, false)
	if len(moves) == 0 {
		return it, true
	}

	alpha, beta := -Infinity, Infinity
	it.move = board.NoMove
	it.score = -Infinity
	it.rootScores = make([]RootScore, 0, len(moves))

	for i, m := range moves {
		if i > 0 && !forced && s.stopped() {
			return it, false
		}

		pos.Apply(m)
		score := -s.negamax(depth-1, 1, -beta, -alpha)
		pos.Undo(m)

		it.rootScores = append(it.rootScores, RootScore{Move: m, Score: score})
		if score > it.score {
			it.score = score
			it.move = m
			s.pv.update(0, m)
			if score > alpha {
				alpha = score
			}
		}
	}

	s.tt.Set(key, TTEntry{Move: it.move, Score: it.score, Depth: depth, Bound: BoundExact})
	it.pv = s.pv.line()
	return it, true
}

// negamax implements the negamax algorithm with alpha-beta pruning.
func (s *Searcher) negamax(depth, ply int, alpha, beta int) int {
	s.nodes++
	s.pv.length[ply] = ply
	pos := s.pos

	if ply > 0 && pos.IsDraw() {
		return 0
	}

	key := pos.Key
	entry, found := s.tt.Get(key)
	hit := found && entry.Key == key
	if hit {
		s.cacheHits++
		if entry.Depth >= depth {
			switch entry.Bound {
			case BoundExact:
				return entry.Score
			case BoundLower:
				alpha = max(alpha, entry.Score)
			case BoundUpper:
				beta = min(beta, entry.Score)
			}
			if alpha >= beta {
				return entry.Score
			}
		}
	}

	// Bounds are classified against the window after table narrowing.
	alphaOrig := alpha

	if depth <= 0 {
		if s.quiescence {
			return s.quiesce(ply, alpha, beta)
		}
		// A mated leaf scores as mate so that depth 1 sees mate in one.
		if pos.InCheck() && !pos.HasLegalMoves() {
			return -MateScore
		}
		return pos.Evaluate()
	}

	if ply >= MaxPly-1 {
		return pos.Evaluate()
	}

	legal := pos.GenerateLegalMoves()
	if legal.Len() == 0 {
		if pos.InCheck() {
			return -MateScore
		}
		return 0
	}

	best := -Infinity
	bestMove := board.NoMove
	for _, m := range s.orderer.Order(pos, legal, ply, entry, hit, false) {
		pos.Apply(m)
		score := -s.negamax(depth-1, ply+1, -beta, -alpha)
		pos.Undo(m)

		if score > best {
			best = score
			bestMove = m
			if score > alpha {
				alpha = score
				s.pv.update(ply, m)
			}
		}

		if alpha >= beta {
			if m.IsQuiet() {
				s.orderer.UpdateKillers(m, ply)
				s.orderer.UpdateHistory(pos.SideToMove, m, depth, true)
			}
			break
		}
	}

	stored := TTEntry{Score: best, Depth: depth}
	switch {
	case best <= alphaOrig:
		stored.Bound = BoundUpper
	case best >= beta:
		stored.Bound = BoundLower
	default:
		stored.Bound = BoundExact
		stored.Move = bestMove
	}
	s.tt.Set(key, stored)

	return best
}

// quiesce searches captures and promotions until the position is quiet,
// using the static evaluation as a stand-pat lower bound.
func (s *Searcher) quiesce(ply, alpha, beta int) int {
	s.nodes++
	s.pv.length[ply] = ply
	pos := s.pos

	if pos.InCheck() && !pos.HasLegalMoves() {
		return -MateScore
	}

	standPat := pos.Evaluate()
	if standPat >= beta {
		return beta
	}
	if standPat > alpha {
		alpha = standPat
	}
	if ply >= MaxPly-1 {
		return alpha
	}

	for _, m := range s.orderer.Order(pos, pos.GenerateNoisyMoves(), ply, TTEntry{}, false, true) {
		pos.Apply(m)
		score := -s.quiesce(ply+1, -beta, -alpha)
		pos.Undo(m)

		if score >= beta {
			return beta
		}
		if score > alpha {
			alpha = score
			s.pv.update(ply, m)
		}
	}
	return alpha
}
