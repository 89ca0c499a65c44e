package engine

import (
	"slices"

	"github.com/hailam/chesscore/internal/board"
)

// Move ordering priorities
const (
	TTMoveScore     = 10000000 // TT move gets highest priority
	GoodCaptureBase = 2000000  // Captures and promotions with SEE >= 0
	KillerScore1    = 900000   // First killer move
	KillerScore2    = 800000   // Second killer move
	BadCaptureBase  = -2000000 // Losing captures

	historyLimit = 400000
)

// MoveOrderer handles move ordering for the search.
type MoveOrderer struct {
	// Killer moves (quiet moves that caused beta cutoffs)
	killers [MaxPly][2]board.Move

	// History heuristic indexed by [side][from][captured piece type or NoPieceType]
	history [2][64][7]int

	scratch []scoredMove
}

type scoredMove struct {
	move  board.Move
	score int
}

// NewMoveOrderer creates a new move orderer.
func NewMoveOrderer() *MoveOrderer {
	return &MoveOrderer{scratch: make([]scoredMove, 0, 256)}
}

// Clear resets the killers and ages the history for a new search.
func (mo *MoveOrderer) Clear() {
	for i := range mo.killers {
		mo.killers[i][0] = board.NoMove
		mo.killers[i][1] = board.NoMove
	}
	mo.scaleHistory()
}

func (mo *MoveOrderer) scaleHistory() {
	for s := range mo.history {
		for sq := range mo.history[s] {
			for k := range mo.history[s][sq] {
				mo.history[s][sq][k] /= 2
			}
		}
	}
}

// Order returns moves in search order. The cached entry's move goes first
// when the entry belongs to pos. Captures and promotions follow by SEE, then
// quiet moves by killer and history score. In noisyOnly mode quiet moves and
// captures with a negative SEE are dropped. Ties keep generation order.
func (mo *MoveOrderer) Order(pos *board.Position, moves *board.MoveList, ply int, entry TTEntry, found bool, noisyOnly bool) []board.Move {
	hashMove := board.NoMove
	if found && entry.Key == pos.Key && entry.Move != board.NoMove {
		hashMove = entry.Move
	}

	scored := mo.scratch[:0]
	for _, m := range moves.Slice() {
		var score int
		switch {
		case m == hashMove:
			score = TTMoveScore
		case m.IsCapture() || m.IsPromotion():
			see := SEE(pos, m)
			if see < 0 {
				if noisyOnly {
					continue
				}
				score = BadCaptureBase + see
			} else {
				score = GoodCaptureBase + see
			}
		default:
			if noisyOnly {
				continue
			}
			score = mo.quietScore(pos.SideToMove, m, ply)
		}
		scored = append(scored, scoredMove{m, score})
	}

	slices.SortStableFunc(scored, func(a, b scoredMove) int {
		return b.score - a.score
	})

	out := make([]board.Move, len(scored))
	for i, s := range scored {
		out[i] = s.move
	}
	mo.scratch = scored[:0]
	return out
}

func (mo *MoveOrderer) quietScore(side board.Color, m board.Move, ply int) int {
	score := mo.HistoryScore(side, m)
	if ply < MaxPly {
		if m == mo.killers[ply][0] {
			score += KillerScore1
		} else if m == mo.killers[ply][1] {
			score += KillerScore2
		}
	}
	return score
}

// UpdateKillers adds a killer move at the given ply.
func (mo *MoveOrderer) UpdateKillers(m board.Move, ply int) {
	if ply >= MaxPly {
		return
	}

	// Don't store if it's already the first killer
	if mo.killers[ply][0] == m {
		return
	}

	// Shift killers
	mo.killers[ply][1] = mo.killers[ply][0]
	mo.killers[ply][0] = m
}

// Killers returns the two killer moves stored for a ply.
func (mo *MoveOrderer) Killers(ply int) [2]board.Move {
	return mo.killers[ply]
}

func historyIndex(m board.Move) board.PieceType {
	if m.IsCapture() {
		return m.Captured().Type()
	}
	return board.NoPieceType
}

// UpdateHistory rewards (or penalizes) a move by depth squared.
func (mo *MoveOrderer) UpdateHistory(side board.Color, m board.Move, depth int, isGood bool) {
	h := &mo.history[side][m.From()][historyIndex(m)]
	bonus := depth * depth
	if isGood {
		*h += bonus
		// Prevent overflow
		if *h > historyLimit {
			mo.scaleHistory()
		}
	} else {
		*h -= bonus
		if *h < -historyLimit {
			*h = -historyLimit
		}
	}
}

// HistoryScore returns the history score for a move.
func (mo *MoveOrderer) HistoryScore(side board.Color, m board.Move) int {
	return mo.history[side][m.From()][historyIndex(m)]
}
