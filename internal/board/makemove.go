package board

import "fmt"

// castleMask[sq] is ANDed into the castling rights whenever a move leaves or
// lands on sq. Only the king and rook home squares clear anything.
var castleMask [64]CastlingRights

func init() {
	for sq := range castleMask {
		castleMask[sq] = AllCastling
	}
	castleMask[E1] &^= WhiteKingSideCastle | WhiteQueenSideCastle
	castleMask[H1] &^= WhiteKingSideCastle
	castleMask[A1] &^= WhiteQueenSideCastle
	castleMask[E8] &^= BlackKingSideCastle | BlackQueenSideCastle
	castleMask[H8] &^= BlackKingSideCastle
	castleMask[A8] &^= BlackQueenSideCastle
}

// castleRookSquares returns the rook's home and transit squares for a castle
// whose king lands on kingTo.
func castleRookSquares(kingTo Square) (from, to Square) {
	switch kingTo {
	case G1:
		return H1, F1
	case C1:
		return A1, D1
	case G8:
		return H8, F8
	case C8:
		return A8, D8
	}
	panic(fmt.Sprintf("board: castle to %v", kingTo))
}

// Apply plays a move on the position. The move must have been generated for
// this position; the undo stack records what Undo needs to take it back.
func (p *Position) Apply(m Move) {
	if len(p.undo) == MaxUndoDepth {
		panic(fmt.Sprintf("board: undo stack full (%d moves)", MaxUndoDepth))
	}
	us := p.SideToMove
	from, to := m.From(), m.To()
	piece := m.Piece()
	if p.Squares[from] != piece || piece.Color() != us {
		panic(fmt.Sprintf("board: apply %s: %v is not on %v for %v", m, piece, from, us))
	}

	p.undo = append(p.undo, UndoInfo{
		CastlingRights: p.CastlingRights,
		EnPassant:      p.EnPassant,
		HalfMoveClock:  p.HalfMoveClock,
	})
	p.keys = append(p.keys, p.Key)

	if m.IsCapture() {
		p.Remove(m.CaptureSquare())
	}

	p.Remove(from)
	if m.IsPromotion() {
		p.Place(to, NewPiece(m.Promotion(), us))
	} else {
		p.Place(to, piece)
	}

	if m.IsCastle() {
		rookFrom, rookTo := castleRookSquares(to)
		p.Place(rookTo, p.Remove(rookFrom))
	}

	p.SetCastlingRights(p.CastlingRights & castleMask[from] & castleMask[to])

	if m.Kind() == DoublePush {
		p.SetEnPassant(Square((int(from) + int(to)) / 2))
	} else {
		p.SetEnPassant(NoSquare)
	}

	p.SideToMove = us.Other()
	p.Key.ToggleSide()

	if piece.Type() == Pawn || m.IsCapture() {
		p.HalfMoveClock = 0
	} else {
		p.HalfMoveClock++
	}
	if us == Black {
		p.FullMoveNumber++
	}
}

// Undo takes back m, which must be the last move applied.
func (p *Position) Undo(m Move) {
	n := len(p.undo)
	if n == 0 {
		panic("board: undo with empty undo stack")
	}
	rec := p.undo[n-1]
	p.undo = p.undo[:n-1]
	p.keys = p.keys[:n-1]

	us := p.SideToMove.Other()
	p.SideToMove = us
	p.Key.ToggleSide()
	if us == Black {
		p.FullMoveNumber--
	}

	from, to := m.From(), m.To()
	if m.IsCastle() {
		rookFrom, rookTo := castleRookSquares(to)
		p.Place(rookFrom, p.Remove(rookTo))
	}

	p.Remove(to)
	p.Place(from, m.Piece())
	if m.IsCapture() {
		p.Place(m.CaptureSquare(), m.Captured())
	}

	p.SetCastlingRights(rec.CastlingRights)
	p.SetEnPassant(rec.EnPassant)
	p.HalfMoveClock = rec.HalfMoveClock
}

// History returns the keys of the positions preceding each applied move,
// oldest first. The slice is shared with the position and must not be
// modified.
func (p *Position) History() []HashKey {
	return p.keys
}
