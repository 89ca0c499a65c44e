package board

import (
	"fmt"
	"strings"
)

// CastlingRights represents the available castling options.
type CastlingRights uint8

const (
	WhiteKingSideCastle  CastlingRights = 1 << iota // K
	WhiteQueenSideCastle                            // Q
	BlackKingSideCastle                             // k
	BlackQueenSideCastle                            // q
	NoCastling           CastlingRights = 0
	AllCastling          CastlingRights = WhiteKingSideCastle | WhiteQueenSideCastle | BlackKingSideCastle | BlackQueenSideCastle
)

// String returns the castling rights in KQkq form.
func (cr CastlingRights) String() string {
	if cr == NoCastling {
		return "-"
	}
	s := ""
	if cr&WhiteKingSideCastle != 0 {
		s += "K"
	}
	if cr&WhiteQueenSideCastle != 0 {
		s += "Q"
	}
	if cr&BlackKingSideCastle != 0 {
		s += "k"
	}
	if cr&BlackQueenSideCastle != 0 {
		s += "q"
	}
	return s
}

// CanCastle returns true if the given side can castle in the given direction.
func (cr CastlingRights) CanCastle(c Color, kingSide bool) bool {
	if c == White {
		if kingSide {
			return cr&WhiteKingSideCastle != 0
		}
		return cr&WhiteQueenSideCastle != 0
	}
	if kingSide {
		return cr&BlackKingSideCastle != 0
	}
	return cr&BlackQueenSideCastle != 0
}

// MaxUndoDepth bounds the undo stack: the longest game line plus search
// line a Position may carry. Going beyond it is a programming error.
const MaxUndoDepth = 1024

// Position represents a complete chess position.
//
// Squares is authoritative; the bitboards, material totals and king squares
// are derived from it and kept in sync by Place and Remove.
type Position struct {
	// Mailbox: piece on every square, NoPiece if empty.
	Squares [64]Piece

	// Piece bitboards: [Color][PieceType]
	Pieces [2][6]Bitboard

	// Occupancy bitboards (cached for efficiency)
	Occupied    [2]Bitboard // All pieces of each color
	AllOccupied Bitboard    // All pieces on the board

	// Material is the summed PieceValue of each side's pieces, king included.
	Material [2]int

	// King positions (cached for check detection)
	KingSquare [2]Square

	// Game state
	SideToMove     Color
	CastlingRights CastlingRights
	EnPassant      Square // Target square for en passant, NoSquare if none
	HalfMoveClock  int    // Moves since last pawn move or capture (for 50-move rule)
	FullMoveNumber int    // Full move counter, starts at 1

	// Zobrist hash for transposition table
	Key HashKey

	// undo and keys grow and shrink together: one entry per applied move.
	undo []UndoInfo
	keys []HashKey
}

// NewEmptyPosition returns a board with no pieces, White to move and no
// castling rights.
func NewEmptyPosition() *Position {
	p := &Position{
		EnPassant:      NoSquare,
		FullMoveNumber: 1,
		KingSquare:     [2]Square{NoSquare, NoSquare},
		undo:           make([]UndoInfo, 0, MaxUndoDepth),
		keys:           make([]HashKey, 0, MaxUndoDepth),
	}
	for sq := range p.Squares {
		p.Squares[sq] = NoPiece
	}
	p.Key.ToggleCastling(NoCastling)
	return p
}

// NewPosition creates the starting position.
func NewPosition() *Position {
	p := NewEmptyPosition()
	back := [8]PieceType{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}
	for file := 0; file < 8; file++ {
		p.Place(NewSquare(file, 0), NewPiece(back[file], White))
		p.Place(NewSquare(file, 1), WhitePawn)
		p.Place(NewSquare(file, 6), BlackPawn)
		p.Place(NewSquare(file, 7), NewPiece(back[file], Black))
	}
	p.SetCastlingRights(AllCastling)
	return p
}

// Clone creates a deep copy of the position, including its undo history.
func (p *Position) Clone() *Position {
	c := *p
	c.undo = make([]UndoInfo, len(p.undo), MaxUndoDepth)
	copy(c.undo, p.undo)
	c.keys = make([]HashKey, len(p.keys), MaxUndoDepth)
	copy(c.keys, p.keys)
	return &c
}

// PieceAt returns the piece at the given square, or NoPiece if empty.
func (p *Position) PieceAt(sq Square) Piece {
	sq.mustBeValid()
	return p.Squares[sq]
}

// IsEmpty returns true if the square is empty.
func (p *Position) IsEmpty(sq Square) bool {
	return p.Squares[sq] == NoPiece
}

// Place puts a piece on an empty square.
// It panics if the square is occupied or either argument is invalid.
func (p *Position) Place(sq Square, piece Piece) {
	sq.mustBeValid()
	piece.mustBeValid()
	if p.Squares[sq] != NoPiece {
		panic(fmt.Sprintf("board: place %v on occupied square %v (holds %v)", piece, sq, p.Squares[sq]))
	}

	c := piece.Color()
	pt := piece.Type()
	bb := SquareBB(sq)

	p.Squares[sq] = piece
	p.Pieces[c][pt] |= bb
	p.Occupied[c] |= bb
	p.AllOccupied |= bb
	p.Material[c] += pt.Value()
	p.Key.TogglePiece(piece, sq)

	if pt == King {
		p.KingSquare[c] = sq
	}
}

// Remove takes the piece off a square and returns it.
// It panics if the square is empty or invalid.
func (p *Position) Remove(sq Square) Piece {
	sq.mustBeValid()
	piece := p.Squares[sq]
	if piece == NoPiece {
		panic(fmt.Sprintf("board: remove from empty square %v", sq))
	}

	c := piece.Color()
	pt := piece.Type()
	bb := SquareBB(sq)

	p.Squares[sq] = NoPiece
	p.Pieces[c][pt] &^= bb
	p.Occupied[c] &^= bb
	p.AllOccupied &^= bb
	p.Material[c] -= pt.Value()
	p.Key.TogglePiece(piece, sq)

	if pt == King {
		p.KingSquare[c] = NoSquare
	}
	return piece
}

// SetSideToMove sets the side to move, keeping the hash key in sync.
func (p *Position) SetSideToMove(c Color) {
	if c >= NoColor {
		panic(fmt.Sprintf("board: invalid color %d", c))
	}
	if c != p.SideToMove {
		p.SideToMove = c
		p.Key.ToggleSide()
	}
}

// SetCastlingRights replaces the castling rights, keeping the hash key in sync.
func (p *Position) SetCastlingRights(cr CastlingRights) {
	p.Key.ToggleCastling(p.CastlingRights)
	p.CastlingRights = cr & AllCastling
	p.Key.ToggleCastling(p.CastlingRights)
}

// SetEnPassant replaces the en-passant target, keeping the hash key in sync.
func (p *Position) SetEnPassant(sq Square) {
	if sq != NoSquare {
		sq.mustBeValid()
	}
	p.Key.ToggleEnPassant(p.EnPassant)
	p.EnPassant = sq
	p.Key.ToggleEnPassant(p.EnPassant)
}

// Ply returns the number of moves currently applied on the undo stack.
func (p *Position) Ply() int {
	return len(p.undo)
}

// InCheck returns true if the side to move is in check.
func (p *Position) InCheck() bool {
	ksq := p.KingSquare[p.SideToMove]
	if ksq == NoSquare {
		return false
	}
	return p.IsSquareAttacked(ksq, p.SideToMove.Other())
}

// Evaluate returns the static score from the side to move's point of view.
func (p *Position) Evaluate() int {
	us := p.SideToMove
	them := us.Other()
	return p.Material[us] - p.Material[them] + p.mobility()
}

// mobility is a placeholder for a mobility term; the evaluation is material only.
func (p *Position) mobility() int {
	return 0
}

// HasNonPawnMaterial returns true if the side to move has non-pawn material.
func (p *Position) HasNonPawnMaterial() bool {
	us := p.SideToMove
	return p.Pieces[us][Knight]|p.Pieces[us][Bishop]|p.Pieces[us][Rook]|p.Pieces[us][Queen] != 0
}

// String returns a visual representation of the position.
func (p *Position) String() string {
	var sb strings.Builder
	sb.WriteString("\n")
	for rank := 7; rank >= 0; rank-- {
		fmt.Fprintf(&sb, "%d  ", rank+1)
		for file := 0; file < 8; file++ {
			piece := p.Squares[NewSquare(file, rank)]
			if piece == NoPiece {
				sb.WriteString(". ")
			} else {
				sb.WriteString(piece.String() + " ")
			}
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n   a b c d e f g h\n\n")
	fmt.Fprintf(&sb, "Side to move: %s\n", p.SideToMove)
	fmt.Fprintf(&sb, "Castling: %s\n", p.CastlingRights)
	fmt.Fprintf(&sb, "En passant: %s\n", p.EnPassant)
	fmt.Fprintf(&sb, "Half-move clock: %d\n", p.HalfMoveClock)
	fmt.Fprintf(&sb, "Full move: %d\n", p.FullMoveNumber)
	fmt.Fprintf(&sb, "Hash: %016x\n", uint64(p.Key))
	return sb.String()
}
