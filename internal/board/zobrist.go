package board

// HashKey is the Zobrist fingerprint of a position: the XOR of one constant per
// occupied (piece, square), one per castling-rights combination, one per
// en-passant file, and a side constant present while Black is to move.
// Every toggle is its own inverse.
type HashKey uint64

// Zobrist hash keys for position hashing.
// Uses PRNG with fixed seed for reproducibility.
var (
	zobristPiece      [12][64]uint64
	zobristEnPassant  [8]uint64  // One per file
	zobristCastling   [16]uint64 // All 16 castling combinations
	zobristSideToMove uint64     // XOR when black to move
)

func init() {
	initZobrist()
}

// Simple PRNG for reproducible Zobrist keys
type prng struct {
	state uint64
}

func newPRNG(seed uint64) *prng {
	return &prng{state: seed}
}

// xorshift64* algorithm
func (p *prng) next() uint64 {
	p.state ^= p.state >> 12
	p.state ^= p.state << 25
	p.state ^= p.state >> 27
	return p.state * 0x2545F4914F6CDD1D
}

func initZobrist() {
	rng := newPRNG(0x98F107A2BEEF1234) // Fixed seed

	for p := WhitePawn; p < NoPiece; p++ {
		for sq := A1; sq <= H8; sq++ {
			zobristPiece[p][sq] = rng.next()
		}
	}

	for file := 0; file < 8; file++ {
		zobristEnPassant[file] = rng.next()
	}

	for i := 0; i < 16; i++ {
		zobristCastling[i] = rng.next()
	}

	zobristSideToMove = rng.next()
}

// TogglePiece adds or removes a piece on a square.
func (k *HashKey) TogglePiece(p Piece, sq Square) {
	*k ^= HashKey(zobristPiece[p][sq])
}

// ToggleCastling adds or removes a castling-rights combination.
func (k *HashKey) ToggleCastling(cr CastlingRights) {
	*k ^= HashKey(zobristCastling[cr&AllCastling])
}

// ToggleEnPassant adds or removes an en-passant target. NoSquare is a no-op.
func (k *HashKey) ToggleEnPassant(sq Square) {
	if sq == NoSquare {
		return
	}
	*k ^= HashKey(zobristEnPassant[sq.File()])
}

// ToggleSide flips the side to move.
func (k *HashKey) ToggleSide() {
	*k ^= HashKey(zobristSideToMove)
}

// ComputeKey rebuilds the hash key from scratch. Play never needs this; it
// exists to verify the incremental key.
func (p *Position) ComputeKey() HashKey {
	var k HashKey
	for sq := A1; sq <= H8; sq++ {
		if pc := p.Squares[sq]; pc != NoPiece {
			k.TogglePiece(pc, sq)
		}
	}
	k.ToggleCastling(p.CastlingRights)
	k.ToggleEnPassant(p.EnPassant)
	if p.SideToMove == Black {
		k.ToggleSide()
	}
	return k
}
