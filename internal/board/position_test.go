package board

import (
	"math/rand"
	"testing"
)

// snapshot holds everything Apply may change except the undo stack itself.
type snapshot struct {
	Squares        [64]Piece
	Pieces         [2][6]Bitboard
	Occupied       [2]Bitboard
	AllOccupied    Bitboard
	Material       [2]int
	KingSquare     [2]Square
	SideToMove     Color
	CastlingRights CastlingRights
	EnPassant      Square
	HalfMoveClock  int
	FullMoveNumber int
	Key            HashKey
}

func takeSnapshot(p *Position) snapshot {
	return snapshot{
		Squares:        p.Squares,
		Pieces:         p.Pieces,
		Occupied:       p.Occupied,
		AllOccupied:    p.AllOccupied,
		Material:       p.Material,
		KingSquare:     p.KingSquare,
		SideToMove:     p.SideToMove,
		CastlingRights: p.CastlingRights,
		EnPassant:      p.EnPassant,
		HalfMoveClock:  p.HalfMoveClock,
		FullMoveNumber: p.FullMoveNumber,
		Key:            p.Key,
	}
}

// checkConsistency verifies the derived state against the mailbox.
func checkConsistency(t *testing.T, p *Position) {
	t.Helper()
	var pieces [2][6]Bitboard
	var material [2]int
	for sq := A1; sq <= H8; sq++ {
		pc := p.Squares[sq]
		if pc == NoPiece {
			continue
		}
		pieces[pc.Color()][pc.Type()] |= SquareBB(sq)
		material[pc.Color()] += pc.Value()
	}
	if pieces != p.Pieces {
		t.Fatalf("piece bitboards out of sync with mailbox")
	}
	if material != p.Material {
		t.Fatalf("material = %v, want %v", p.Material, material)
	}
	for c := White; c <= Black; c++ {
		var occ Bitboard
		for pt := Pawn; pt <= King; pt++ {
			occ |= p.Pieces[c][pt]
		}
		if occ != p.Occupied[c] {
			t.Fatalf("%v occupancy out of sync", c)
		}
	}
	if p.Occupied[White]|p.Occupied[Black] != p.AllOccupied || p.Occupied[White]&p.Occupied[Black] != 0 {
		t.Fatalf("combined occupancy is not the union of both colors")
	}
	if p.Key != p.ComputeKey() {
		t.Fatalf("incremental key %016x, recomputed %016x", uint64(p.Key), uint64(p.ComputeKey()))
	}
}

func TestNewPosition(t *testing.T) {
	p := NewPosition()
	checkConsistency(t, p)

	if p.SideToMove != White {
		t.Errorf("side to move = %v, want White", p.SideToMove)
	}
	if p.CastlingRights != AllCastling {
		t.Errorf("castling = %v, want KQkq", p.CastlingRights)
	}
	if p.EnPassant != NoSquare {
		t.Errorf("en passant = %v, want none", p.EnPassant)
	}
	if p.KingSquare[White] != E1 || p.KingSquare[Black] != E8 {
		t.Errorf("king squares = %v", p.KingSquare)
	}
	if p.Material[White] != p.Material[Black] || p.Evaluate() != 0 {
		t.Errorf("start position should be balanced, eval %d", p.Evaluate())
	}
	if p.PieceAt(D1) != WhiteQueen || p.PieceAt(E8) != BlackKing {
		t.Errorf("back rank is set up wrong:%s", p)
	}
}

func TestPlaceRemove(t *testing.T) {
	p := NewEmptyPosition()
	p.Place(E4, WhiteKnight)
	if p.PieceAt(E4) != WhiteKnight || !p.Pieces[White][Knight].IsSet(E4) {
		t.Fatalf("knight not placed")
	}
	if p.Material[White] != PieceValue[Knight] {
		t.Errorf("material = %d, want %d", p.Material[White], PieceValue[Knight])
	}
	checkConsistency(t, p)

	expectPanic(t, "place on occupied", func() { p.Place(E4, BlackPawn) })
	expectPanic(t, "place invalid piece", func() { p.Place(D4, NoPiece) })
	expectPanic(t, "place off board", func() { p.Place(NoSquare, WhitePawn) })

	if got := p.Remove(E4); got != WhiteKnight {
		t.Errorf("Remove = %v, want N", got)
	}
	if p.AllOccupied != Empty || p.Material[White] != 0 || p.Key != NewEmptyPosition().Key {
		t.Errorf("removing the only piece should restore the empty board")
	}
	expectPanic(t, "remove from empty", func() { p.Remove(E4) })
}

func TestUndoUnderflowPanics(t *testing.T) {
	p := NewPosition()
	m := NewMove(E2, E4, WhitePawn, NoPiece, DoublePush, NoPieceType)
	expectPanic(t, "undo on fresh position", func() { p.Undo(m) })
}

func TestUndoOverflowPanics(t *testing.T) {
	p := NewPosition()
	// Parsed up front: the legality filter itself applies moves.
	next, err := p.ParseMove("g1f3")
	if err != nil {
		t.Fatal(err)
	}
	shuffle := []string{"g1f3", "g8f6", "f3g1", "f6g8"}
	for i := 0; p.Ply() < MaxUndoDepth; i++ {
		m, err := p.ParseMove(shuffle[i%len(shuffle)])
		if err != nil {
			t.Fatalf("ply %d: %v", p.Ply(), err)
		}
		p.Apply(m)
	}
	if p.Key != NewPosition().Key {
		t.Fatalf("shuffle should return to the start position")
	}
	expectPanic(t, "apply on full undo stack", func() { p.Apply(next) })
}

func TestApplyUndoRoundTrip(t *testing.T) {
	positions := map[string]*Position{
		"start":      NewPosition(),
		"kiwipete":   setupPosition(t, "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R", White, AllCastling, NoSquare),
		"en passant": setupPosition(t, "rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR", White, AllCastling, F6),
		"promotions": setupPosition(t, "n1n5/PPPk4/8/8/8/8/4Kppp/5N1N", Black, NoCastling, NoSquare),
	}

	for name, p := range positions {
		t.Run(name, func(t *testing.T) {
			before := takeSnapshot(p)
			for _, m := range p.GeneratePseudoLegalMoves().Slice() {
				p.Apply(m)
				checkConsistency(t, p)
				if p.SideToMove == before.SideToMove {
					t.Fatalf("%v: side to move not toggled", m.Notation())
				}
				p.Undo(m)
				if after := takeSnapshot(p); after != before {
					t.Fatalf("%v: apply/undo changed the position:%s", m.Notation(), p)
				}
			}
			if p.Ply() != 0 {
				t.Errorf("undo stack depth = %d, want 0", p.Ply())
			}
		})
	}
}

func TestApplyUndoRandomGames(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for game := 0; game < 20; game++ {
		p := NewPosition()
		start := takeSnapshot(p)
		var line []Move
		for ply := 0; ply < 120; ply++ {
			moves := p.GenerateLegalMoves()
			if moves.Len() == 0 {
				break
			}
			m := moves.Get(rng.Intn(moves.Len()))
			p.Apply(m)
			checkConsistency(t, p)
			line = append(line, m)
		}
		for i := len(line) - 1; i >= 0; i-- {
			p.Undo(line[i])
		}
		if takeSnapshot(p) != start {
			t.Fatalf("game %d: unwinding %d moves did not restore the start", game, len(line))
		}
	}
}

func TestApplyDetails(t *testing.T) {
	t.Run("double push sets en passant", func(t *testing.T) {
		p := NewPosition()
		playMoves(t, p, "e2e4")
		if p.EnPassant != E3 {
			t.Errorf("en passant = %v, want e3", p.EnPassant)
		}
		playMoves(t, p, "g8f6")
		if p.EnPassant != NoSquare {
			t.Errorf("en passant should clear after any other move, got %v", p.EnPassant)
		}
	})

	t.Run("en passant removes the passed pawn", func(t *testing.T) {
		p := setupPosition(t, "4k3/8/8/3pP3/8/8/8/4K3", White, NoCastling, D6)
		playMoves(t, p, "e5d6")
		if p.PieceAt(D5) != NoPiece || p.PieceAt(D6) != WhitePawn {
			t.Errorf("en passant did not remove d5:%s", p)
		}
		if p.Material[Black] != PieceValue[King] {
			t.Errorf("black material = %d", p.Material[Black])
		}
	})

	t.Run("castling moves the rook", func(t *testing.T) {
		tests := []struct {
			side              Color
			move              string
			rookFrom, rookTo  Square
			rook              Piece
			remainingCastling CastlingRights
		}{
			{White, "e1g1", H1, F1, WhiteRook, BlackKingSideCastle | BlackQueenSideCastle},
			{White, "e1c1", A1, D1, WhiteRook, BlackKingSideCastle | BlackQueenSideCastle},
			{Black, "e8g8", H8, F8, BlackRook, WhiteKingSideCastle | WhiteQueenSideCastle},
			{Black, "e8c8", A8, D8, BlackRook, WhiteKingSideCastle | WhiteQueenSideCastle},
		}
		for _, tc := range tests {
			p := setupPosition(t, "r3k2r/8/8/8/8/8/8/R3K2R", tc.side, AllCastling, NoSquare)
			playMoves(t, p, tc.move)
			if p.PieceAt(tc.rookFrom) != NoPiece || p.PieceAt(tc.rookTo) != tc.rook {
				t.Errorf("%s: rook not relocated:%s", tc.move, p)
			}
			if p.CastlingRights != tc.remainingCastling {
				t.Errorf("%s: castling = %v, want %v", tc.move, p.CastlingRights, tc.remainingCastling)
			}
		}
	})

	t.Run("capturing a rook clears its right", func(t *testing.T) {
		p := setupPosition(t, "r3k2r/8/8/8/8/8/8/R3K2R", White, AllCastling, NoSquare)
		playMoves(t, p, "a1a8")
		if p.CastlingRights != WhiteKingSideCastle|BlackKingSideCastle {
			t.Errorf("castling = %v, want Kk", p.CastlingRights)
		}
	})

	t.Run("promotion swaps the piece", func(t *testing.T) {
		p := setupPosition(t, "1r2k3/P7/8/8/8/8/8/4K3", White, NoCastling, NoSquare)
		before := p.Material[White]
		playMoves(t, p, "a7b8n")
		if p.PieceAt(B8) != WhiteKnight {
			t.Errorf("b8 = %v, want N", p.PieceAt(B8))
		}
		if p.Material[White] != before-PieceValue[Pawn]+PieceValue[Knight] {
			t.Errorf("white material = %d", p.Material[White])
		}
		if p.Material[Black] != PieceValue[King] {
			t.Errorf("black material = %d", p.Material[Black])
		}
	})

	t.Run("half-move clock and move number", func(t *testing.T) {
		p := NewPosition()
		playMoves(t, p, "g1f3", "g8f6")
		if p.HalfMoveClock != 2 || p.FullMoveNumber != 2 {
			t.Errorf("clock %d move %d, want 2 2", p.HalfMoveClock, p.FullMoveNumber)
		}
		playMoves(t, p, "e2e4")
		if p.HalfMoveClock != 0 {
			t.Errorf("pawn move should reset the clock, got %d", p.HalfMoveClock)
		}
	})
}

func TestHashPathIndependence(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
	}{
		{"transposed openings", []string{"e2e3", "e7e6", "d2d3"}, []string{"d2d3", "e7e6", "e2e3"}},
		{"knight tour back home", []string{"g1f3", "g8f6", "f3g1", "f6g8"}, nil},
		{"different knight routes", []string{"b1c3", "g8f6", "c3e4", "f6g8", "e4c3"}, []string{"b1c3", "g8h6", "g1f3", "h6g8", "f3g1"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pa := NewPosition()
			pb := NewPosition()
			playMoves(t, pa, tc.a...)
			playMoves(t, pb, tc.b...)
			if pa.Key != pb.Key {
				t.Errorf("keys differ: %016x vs %016x", uint64(pa.Key), uint64(pb.Key))
			}
			if pa.Key != pa.ComputeKey() {
				t.Errorf("incremental key drifted from recomputed key")
			}
		})
	}

	// Same placement but a live en-passant target must hash differently.
	pa := NewPosition()
	pb := NewPosition()
	playMoves(t, pa, "e2e4", "g8f6", "g1f3", "f6g8", "f3g1", "g8f6")
	playMoves(t, pb, "e2e4", "g8f6")
	if pa.Key != pb.Key {
		t.Errorf("same position after a knight shuffle should hash alike")
	}
	withEP := setupPosition(t, "4k3/8/8/8/4P3/8/8/4K3", Black, NoCastling, E3)
	withoutEP := setupPosition(t, "4k3/8/8/8/4P3/8/8/4K3", Black, NoCastling, NoSquare)
	if withEP.Key == withoutEP.Key {
		t.Errorf("en passant target must change the key")
	}
}

func TestSetters(t *testing.T) {
	p := NewEmptyPosition()
	p.Place(E1, WhiteKing)
	p.Place(E8, BlackKing)
	p.SetSideToMove(Black)
	p.SetCastlingRights(WhiteKingSideCastle)
	p.SetEnPassant(E3)
	checkConsistency(t, p)

	p.SetSideToMove(White)
	p.SetCastlingRights(NoCastling)
	p.SetEnPassant(NoSquare)
	checkConsistency(t, p)

	expectPanic(t, "invalid color", func() { p.SetSideToMove(NoColor) })
}

func TestClone(t *testing.T) {
	p := NewPosition()
	ms := playMoves(t, p, "e2e4", "e7e5")
	c := p.Clone()
	if takeSnapshot(c) != takeSnapshot(p) || c.Ply() != p.Ply() {
		t.Fatalf("clone differs from original")
	}
	nf3 := playMoves(t, c, "g1f3")
	if p.PieceAt(G1) != WhiteKnight || p.Ply() != 2 {
		t.Errorf("moving on the clone changed the original")
	}

	// The clone carries the history and can unwind moves made before it was taken.
	c.Undo(nf3[0])
	c.Undo(ms[1])
	if c.PieceAt(E7) != BlackPawn || c.Ply() != 1 {
		t.Errorf("clone did not unwind e7e5")
	}
	if p.PieceAt(E5) != BlackPawn || p.Ply() != 2 {
		t.Errorf("unwinding the clone changed the original")
	}
}
