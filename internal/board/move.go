package board

import (
	"fmt"
	"strings"
)

// MoveKind classifies how a move changes the board.
type MoveKind uint8

const (
	Quiet MoveKind = iota
	Capture
	Castle
	Promotion
	EnPassant
	DoublePush
	numMoveKinds
)

// String returns the kind name.
func (k MoveKind) String() string {
	switch k {
	case Quiet:
		return "quiet"
	case Capture:
		return "capture"
	case Castle:
		return "castle"
	case Promotion:
		return "promotion"
	case EnPassant:
		return "en-passant"
	case DoublePush:
		return "double-push"
	default:
		return "invalid"
	}
}

// Move encodes a chess move in 26 bits of a uint32:
// bits 0-5:   from square (0-63)
// bits 6-11:  to square (0-63)
// bits 12-15: moving piece (0-11)
// bits 16-19: captured piece (0-11, 12 = none)
// bits 20-22: kind
// bits 23-25: promotion piece type (only meaningful for promotions)
//
// Promotions that capture use the Promotion kind together with a captured piece.
type Move uint32

const (
	moveFromShift     = 0
	moveToShift       = 6
	movePieceShift    = 12
	moveCapturedShift = 16
	moveKindShift     = 20
	movePromoShift    = 23

	moveBits = 26
)

// NoMove represents an invalid or null move.
const NoMove Move = 0

// NewMove packs a move. It panics when any field is out of range, since moves
// are only ever built by the generator or by decoding.
func NewMove(from, to Square, piece, captured Piece, kind MoveKind, promo PieceType) Move {
	from.mustBeValid()
	to.mustBeValid()
	piece.mustBeValid()
	if captured > NoPiece {
		panic(fmt.Sprintf("board: invalid captured piece %d", captured))
	}
	if kind >= numMoveKinds {
		panic(fmt.Sprintf("board: invalid move kind %d", kind))
	}
	if kind != Promotion {
		promo = NoPieceType
	} else if promo < Knight || promo > Queen {
		panic(fmt.Sprintf("board: invalid promotion piece %d", promo))
	}
	return Move(from)<<moveFromShift |
		Move(to)<<moveToShift |
		Move(piece)<<movePieceShift |
		Move(captured)<<moveCapturedShift |
		Move(kind)<<moveKindShift |
		Move(promo)<<movePromoShift
}

// Encode returns the packed integer form of the move.
func (m Move) Encode() uint32 {
	return uint32(m)
}

// DecodeMove unpacks a value produced by Encode. Out-of-range fields panic.
func DecodeMove(v uint32) Move {
	if v == 0 {
		return NoMove
	}
	if v>>moveBits != 0 {
		panic(fmt.Sprintf("board: packed move %#x has stray high bits", v))
	}
	m := Move(v)
	// NewMove performs the field validation.
	d := NewMove(m.From(), m.To(), m.Piece(), m.Captured(), m.Kind(), m.Promotion())
	if d != m {
		panic(fmt.Sprintf("board: packed move %#x has a promotion piece on a %s move", v, m.Kind()))
	}
	return d
}

// From returns the origin square.
func (m Move) From() Square {
	return Square(m >> moveFromShift & 0x3F)
}

// To returns the destination square.
func (m Move) To() Square {
	return Square(m >> moveToShift & 0x3F)
}

// Piece returns the piece standing on the origin square before the move.
func (m Move) Piece() Piece {
	return Piece(m >> movePieceShift & 0xF)
}

// Captured returns the captured piece, or NoPiece.
func (m Move) Captured() Piece {
	return Piece(m >> moveCapturedShift & 0xF)
}

// Kind returns the move kind.
func (m Move) Kind() MoveKind {
	return MoveKind(m >> moveKindShift & 0x7)
}

// Promotion returns the promotion piece type, or NoPieceType.
func (m Move) Promotion() PieceType {
	return PieceType(m >> movePromoShift & 0x7)
}

// IsCapture returns true if this move removes an enemy piece.
func (m Move) IsCapture() bool {
	return m.Captured() != NoPiece
}

// IsPromotion returns true if this is a promotion move.
func (m Move) IsPromotion() bool {
	return m.Kind() == Promotion
}

// IsCastle returns true if this is a castling move (encoded as the king's movement).
func (m Move) IsCastle() bool {
	return m.Kind() == Castle
}

// IsEnPassant returns true if this is an en passant capture.
func (m Move) IsEnPassant() bool {
	return m.Kind() == EnPassant
}

// IsQuiet returns true if this is neither a capture nor a promotion.
func (m Move) IsQuiet() bool {
	return !m.IsCapture() && !m.IsPromotion()
}

// CaptureSquare returns the square the captured piece stands on. It differs
// from To only for en passant, where it is one rank behind the destination
// from the mover's point of view.
func (m Move) CaptureSquare() Square {
	if m.IsEnPassant() {
		if m.Piece().Color() == White {
			return m.To() - 8
		}
		return m.To() + 8
	}
	return m.To()
}

// String returns the coordinate format of the move (e.g., "e2e4", "e7e8q").
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}

	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		s += strings.ToLower(string(m.Promotion().Letter()))
	}
	return s
}

// Notation returns the diagnostic form used in search logs: piece letter,
// origin, a kind marker and the destination, e.g. "Ng1-f3", "Pe5xd6ep",
// "Ke1Og1", "Pb7xa8=Q".
func (m Move) Notation() string {
	if m == NoMove {
		return "--"
	}

	var sb strings.Builder
	sb.WriteByte(m.Piece().Type().Letter())
	sb.WriteString(m.From().String())
	switch {
	case m.IsCastle():
		sb.WriteByte('O')
	case m.IsCapture():
		sb.WriteByte('x')
	default:
		sb.WriteByte('-')
	}
	sb.WriteString(m.To().String())
	if m.IsEnPassant() {
		sb.WriteString("ep")
	}
	if m.IsPromotion() {
		sb.WriteByte('=')
		sb.WriteByte(m.Promotion().Letter())
	}
	return sb.String()
}

// MoveList is a fixed-size list of moves to avoid allocations.
type MoveList struct {
	moves [256]Move
	count int
}

// NewMoveList creates an empty move list.
func NewMoveList() *MoveList {
	return &MoveList{}
}

// Add adds a move to the list.
func (ml *MoveList) Add(m Move) {
	ml.moves[ml.count] = m
	ml.count++
}

// Len returns the number of moves in the list.
func (ml *MoveList) Len() int {
	return ml.count
}

// Get returns the move at index i.
func (ml *MoveList) Get(i int) Move {
	return ml.moves[i]
}

// Clear empties the list.
func (ml *MoveList) Clear() {
	ml.count = 0
}

// Contains returns true if the list contains the move.
func (ml *MoveList) Contains(m Move) bool {
	for i := 0; i < ml.count; i++ {
		if ml.moves[i] == m {
			return true
		}
	}
	return false
}

// Slice returns the moves as a slice backed by the list.
func (ml *MoveList) Slice() []Move {
	return ml.moves[:ml.count]
}

// UndoInfo captures the irreversible state needed to take a move back.
// Everything else is recovered from the move itself.
type UndoInfo struct {
	CastlingRights CastlingRights
	EnPassant      Square
	HalfMoveClock  int
}
