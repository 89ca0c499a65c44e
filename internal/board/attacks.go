package board

// Pre-computed attack tables for non-sliding pieces
var (
	knightAttacks [64]Bitboard
	kingAttacks   [64]Bitboard
	pawnAttacks   [2][64]Bitboard // [Color][Square]

	// rays[sq][dir] lists the squares walked from sq in direction dir,
	// nearest first. Directions 0-3 are orthogonal, 4-7 diagonal.
	rays [64][8][]Square
)

var rayDirections = [8][2]int{
	{0, 1}, {0, -1}, {1, 0}, {-1, 0}, // N S E W
	{1, 1}, {-1, 1}, {1, -1}, {-1, -1}, // NE NW SE SW
}

const (
	firstRookDir   = 0
	firstBishopDir = 4
)

func init() {
	initKnightAttacks()
	initKingAttacks()
	initPawnAttacks()
	initRays()
}

func initKnightAttacks() {
	for sq := A1; sq <= H8; sq++ {
		bb := SquareBB(sq)

		attacks := Empty

		// Two ranks, one file
		attacks |= (bb << 17) & NotFileA
		attacks |= (bb << 15) & NotFileH
		attacks |= (bb >> 17) & NotFileH
		attacks |= (bb >> 15) & NotFileA

		// One rank, two files
		attacks |= (bb << 10) & NotFileAB
		attacks |= (bb << 6) & NotFileGH
		attacks |= (bb >> 10) & NotFileGH
		attacks |= (bb >> 6) & NotFileAB

		knightAttacks[sq] = attacks
	}
}

func initKingAttacks() {
	for sq := A1; sq <= H8; sq++ {
		bb := SquareBB(sq)
		kingAttacks[sq] = bb.North() | bb.South() | bb.East() | bb.West() |
			bb.NorthEast() | bb.NorthWest() | bb.SouthEast() | bb.SouthWest()
	}
}

func initPawnAttacks() {
	for sq := A1; sq <= H8; sq++ {
		bb := SquareBB(sq)
		pawnAttacks[White][sq] = bb.NorthEast() | bb.NorthWest()
		pawnAttacks[Black][sq] = bb.SouthEast() | bb.SouthWest()
	}
}

func initRays() {
	for sq := A1; sq <= H8; sq++ {
		for dir, d := range rayDirections {
			for t := sq.Offset(d[0], d[1]); t != NoSquare; t = t.Offset(d[0], d[1]) {
				rays[sq][dir] = append(rays[sq][dir], t)
			}
		}
	}
}

// KnightAttacks returns the knight attack bitboard for a square.
func KnightAttacks(sq Square) Bitboard {
	return knightAttacks[sq]
}

// KingAttacks returns the king attack bitboard for a square.
func KingAttacks(sq Square) Bitboard {
	return kingAttacks[sq]
}

// PawnAttacks returns the squares a pawn of color c on sq attacks.
func PawnAttacks(sq Square, c Color) Bitboard {
	return pawnAttacks[c][sq]
}

// slide walks directions [first, first+4) from sq, including the first
// occupied square of each ray.
func slide(sq Square, occupied Bitboard, first int) Bitboard {
	var attacks Bitboard
	for dir := first; dir < first+4; dir++ {
		for _, t := range rays[sq][dir] {
			attacks |= SquareBB(t)
			if occupied.IsSet(t) {
				break
			}
		}
	}
	return attacks
}

// BishopAttacks returns the bishop attack bitboard for a square with given occupancy.
func BishopAttacks(sq Square, occupied Bitboard) Bitboard {
	return slide(sq, occupied, firstBishopDir)
}

// RookAttacks returns the rook attack bitboard for a square with given occupancy.
func RookAttacks(sq Square, occupied Bitboard) Bitboard {
	return slide(sq, occupied, firstRookDir)
}

// QueenAttacks returns the queen attack bitboard for a square with given occupancy.
func QueenAttacks(sq Square, occupied Bitboard) Bitboard {
	return BishopAttacks(sq, occupied) | RookAttacks(sq, occupied)
}

// IsSquareAttacked reports whether any piece of color by attacks sq.
// It scans outward from sq and returns on the first attacker it meets;
// each ray stops at its first occupied square.
func (p *Position) IsSquareAttacked(sq Square, by Color) bool {
	sq.mustBeValid()
	if pawnAttacks[by.Other()][sq]&p.Pieces[by][Pawn] != 0 {
		return true
	}
	if knightAttacks[sq]&p.Pieces[by][Knight] != 0 {
		return true
	}
	if kingAttacks[sq]&p.Pieces[by][King] != 0 {
		return true
	}

	straight := NewPiece(Rook, by)
	diagonal := NewPiece(Bishop, by)
	queen := NewPiece(Queen, by)
	for dir := range rayDirections {
		slider := straight
		if dir >= firstBishopDir {
			slider = diagonal
		}
		for _, t := range rays[sq][dir] {
			pc := p.Squares[t]
			if pc == NoPiece {
				continue
			}
			if pc == slider || pc == queen {
				return true
			}
			break
		}
	}
	return false
}

// AttackersByColor returns a bitboard of pieces of color c attacking sq.
func (p *Position) AttackersByColor(sq Square, c Color) Bitboard {
	occupied := p.AllOccupied
	return (pawnAttacks[c.Other()][sq] & p.Pieces[c][Pawn]) |
		(knightAttacks[sq] & p.Pieces[c][Knight]) |
		(kingAttacks[sq] & p.Pieces[c][King]) |
		(BishopAttacks(sq, occupied) & (p.Pieces[c][Bishop] | p.Pieces[c][Queen])) |
		(RookAttacks(sq, occupied) & (p.Pieces[c][Rook] | p.Pieces[c][Queen]))
}
