package board

import "fmt"

var promotionPieces = [4]PieceType{Queen, Rook, Bishop, Knight}

// GeneratePseudoLegalMoves generates all pseudo-legal moves (may leave king in check).
func (p *Position) GeneratePseudoLegalMoves() *MoveList {
	ml := NewMoveList()
	p.generateAllMoves(ml)
	return ml
}

// GenerateLegalMoves generates all legal moves for the position.
func (p *Position) GenerateLegalMoves() *MoveList {
	ml := NewMoveList()
	p.generateAllMoves(ml)
	return p.filterLegalMoves(ml, false)
}

// GenerateNoisyMoves generates the legal captures and promotions.
func (p *Position) GenerateNoisyMoves() *MoveList {
	ml := NewMoveList()
	p.generateAllMoves(ml)
	return p.filterLegalMoves(ml, true)
}

// IsLegal applies m, tests whether the mover's king is attacked and takes
// the move back.
func (p *Position) IsLegal(m Move) bool {
	us := p.SideToMove
	p.Apply(m)
	ok := p.KingSquare[us] == NoSquare || !p.IsSquareAttacked(p.KingSquare[us], us.Other())
	p.Undo(m)
	return ok
}

// HasLegalMoves returns true if the side to move has any legal moves.
func (p *Position) HasLegalMoves() bool {
	ml := p.GeneratePseudoLegalMoves()
	for _, m := range ml.Slice() {
		if p.IsLegal(m) {
			return true
		}
	}
	return false
}

// IsCheckmate returns true if the position is checkmate.
func (p *Position) IsCheckmate() bool {
	return p.InCheck() && !p.HasLegalMoves()
}

// IsStalemate returns true if the position is stalemate.
func (p *Position) IsStalemate() bool {
	return !p.InCheck() && !p.HasLegalMoves()
}

func (p *Position) filterLegalMoves(ml *MoveList, noisyOnly bool) *MoveList {
	legal := NewMoveList()
	for _, m := range ml.Slice() {
		if noisyOnly && m.IsQuiet() {
			continue
		}
		if p.IsLegal(m) {
			legal.Add(m)
		}
	}
	return legal
}

// ParseMove resolves a coordinate move string ("e2e4", "e7e8q") against the
// legal moves of the position.
func (p *Position) ParseMove(s string) (Move, error) {
	if len(s) != 4 && len(s) != 5 {
		return NoMove, fmt.Errorf("invalid move: %q", s)
	}
	if _, err := ParseSquare(s[0:2]); err != nil {
		return NoMove, fmt.Errorf("invalid move %q: %w", s, err)
	}
	if _, err := ParseSquare(s[2:4]); err != nil {
		return NoMove, fmt.Errorf("invalid move %q: %w", s, err)
	}
	for _, m := range p.GenerateLegalMoves().Slice() {
		if m.String() == s {
			return m, nil
		}
	}
	return NoMove, fmt.Errorf("illegal move: %s", s)
}

// generateAllMoves generates all pseudo-legal moves.
func (p *Position) generateAllMoves(ml *MoveList) {
	us := p.SideToMove
	own := p.Occupied[us]
	occupied := p.AllOccupied

	p.generatePawnMoves(ml, us)

	knights := p.Pieces[us][Knight]
	for knights != 0 {
		from := knights.PopLSB()
		p.addTargets(ml, from, KnightAttacks(from)&^own)
	}

	bishops := p.Pieces[us][Bishop]
	for bishops != 0 {
		from := bishops.PopLSB()
		p.addTargets(ml, from, BishopAttacks(from, occupied)&^own)
	}

	rooks := p.Pieces[us][Rook]
	for rooks != 0 {
		from := rooks.PopLSB()
		p.addTargets(ml, from, RookAttacks(from, occupied)&^own)
	}

	queens := p.Pieces[us][Queen]
	for queens != 0 {
		from := queens.PopLSB()
		p.addTargets(ml, from, QueenAttacks(from, occupied)&^own)
	}

	if ksq := p.KingSquare[us]; ksq != NoSquare {
		p.addTargets(ml, ksq, KingAttacks(ksq)&^own)
		p.generateCastlingMoves(ml, us)
	}
}

// addTargets adds a quiet move or capture from one square to each target.
func (p *Position) addTargets(ml *MoveList, from Square, targets Bitboard) {
	piece := p.Squares[from]
	for targets != 0 {
		to := targets.PopLSB()
		captured := p.Squares[to]
		kind := Quiet
		if captured != NoPiece {
			kind = Capture
		}
		ml.Add(NewMove(from, to, piece, captured, kind, NoPieceType))
	}
}

// generatePawnMoves generates all pawn moves.
func (p *Position) generatePawnMoves(ml *MoveList, us Color) {
	pawn := NewPiece(Pawn, us)
	enemies := p.Occupied[us.Other()]
	forward := 1
	if us == Black {
		forward = -1
	}

	pawns := p.Pieces[us][Pawn]
	for pawns != 0 {
		from := pawns.PopLSB()

		// Pushes
		one := from.Offset(0, forward)
		if one != NoSquare && p.Squares[one] == NoPiece {
			addPawnMove(ml, from, one, pawn, NoPiece, Quiet)
			if from.RelativeRank(us) == 1 {
				two := one.Offset(0, forward)
				if p.Squares[two] == NoPiece {
					ml.Add(NewMove(from, two, pawn, NoPiece, DoublePush, NoPieceType))
				}
			}
		}

		// Captures
		targets := PawnAttacks(from, us) & enemies
		for targets != 0 {
			to := targets.PopLSB()
			addPawnMove(ml, from, to, pawn, p.Squares[to], Capture)
		}

		// En passant
		if p.EnPassant != NoSquare && PawnAttacks(from, us).IsSet(p.EnPassant) {
			ml.Add(NewMove(from, p.EnPassant, pawn, NewPiece(Pawn, us.Other()), EnPassant, NoPieceType))
		}
	}
}

// addPawnMove adds a pawn move, expanding it into the four promotions when it
// reaches the far rank.
func addPawnMove(ml *MoveList, from, to Square, pawn, captured Piece, kind MoveKind) {
	if to.RelativeRank(pawn.Color()) != 7 {
		ml.Add(NewMove(from, to, pawn, captured, kind, NoPieceType))
		return
	}
	for _, pt := range promotionPieces {
		ml.Add(NewMove(from, to, pawn, captured, Promotion, pt))
	}
}

// castleRule describes one castle: the rights bit, king and rook squares, the
// squares that must be empty and those the king passes through.
type castleRule struct {
	right    CastlingRights
	kingFrom Square
	kingTo   Square
	rookFrom Square
	empty    Bitboard
	kingPath [3]Square
}

var castleRules = [2][2]castleRule{
	White: {
		{WhiteKingSideCastle, E1, G1, H1, SquareBB(F1) | SquareBB(G1), [3]Square{E1, F1, G1}},
		{WhiteQueenSideCastle, E1, C1, A1, SquareBB(B1) | SquareBB(C1) | SquareBB(D1), [3]Square{E1, D1, C1}},
	},
	Black: {
		{BlackKingSideCastle, E8, G8, H8, SquareBB(F8) | SquareBB(G8), [3]Square{E8, F8, G8}},
		{BlackQueenSideCastle, E8, C8, A8, SquareBB(B8) | SquareBB(C8) | SquareBB(D8), [3]Square{E8, D8, C8}},
	},
}

// generateCastlingMoves generates castling moves.
func (p *Position) generateCastlingMoves(ml *MoveList, us Color) {
	them := us.Other()
	king := NewPiece(King, us)
	rook := NewPiece(Rook, us)

	for _, r := range castleRules[us] {
		if p.CastlingRights&r.right == 0 {
			continue
		}
		if p.Squares[r.kingFrom] != king || p.Squares[r.rookFrom] != rook {
			continue
		}
		if p.AllOccupied&r.empty != 0 {
			continue
		}
		attacked := false
		for _, sq := range r.kingPath {
			if p.IsSquareAttacked(sq, them) {
				attacked = true
				break
			}
		}
		if !attacked {
			ml.Add(NewMove(r.kingFrom, r.kingTo, king, NoPiece, Castle, NoPieceType))
		}
	}
}

// Perft counts the leaves of the legal move tree to the given depth.
func (p *Position) Perft(depth int) uint64 {
	if depth == 0 {
		return 1
	}

	moves := p.GenerateLegalMoves()
	if depth == 1 {
		return uint64(moves.Len())
	}

	var nodes uint64
	for _, m := range moves.Slice() {
		p.Apply(m)
		nodes += p.Perft(depth - 1)
		p.Undo(m)
	}
	return nodes
}
