package board

import "testing"

// TestPerftStartingPosition tests move generation from the starting position.
func TestPerftStartingPosition(t *testing.T) {
	pos := NewPosition()

	tests := []struct {
		depth    int
		expected uint64
	}{
		{0, 1},
		{1, 20},
		{2, 400},
		{3, 8902},
		{4, 197281},
	}

	for _, tc := range tests {
		t.Run("", func(t *testing.T) {
			got := pos.Perft(tc.depth)
			if got != tc.expected {
				t.Errorf("perft(%d) = %d, want %d", tc.depth, got, tc.expected)
			}
		})
	}

	if pos.Key != NewPosition().Key || pos.Ply() != 0 {
		t.Errorf("perft left the position modified")
	}
}

// TestPerftKiwipete tests the famous Kiwipete position with many edge cases.
// r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq -
func TestPerftKiwipete(t *testing.T) {
	pos := setupPosition(t, "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R", White, AllCastling, NoSquare)

	tests := []struct {
		depth    int
		expected uint64
	}{
		{1, 48},
		{2, 2039},
		{3, 97862},
	}

	for _, tc := range tests {
		t.Run("", func(t *testing.T) {
			got := pos.Perft(tc.depth)
			if got != tc.expected {
				t.Errorf("perft(%d) = %d, want %d", tc.depth, got, tc.expected)
			}
		})
	}
}

// TestPerftPosition3 tests en passant edge cases.
// 8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - -
func TestPerftPosition3(t *testing.T) {
	pos := setupPosition(t, "8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8", White, NoCastling, NoSquare)

	tests := []struct {
		depth    int
		expected uint64
	}{
		{1, 14},
		{2, 191},
		{3, 2812},
		{4, 43238},
	}

	for _, tc := range tests {
		t.Run("", func(t *testing.T) {
			got := pos.Perft(tc.depth)
			if got != tc.expected {
				t.Errorf("perft(%d) = %d, want %d", tc.depth, got, tc.expected)
			}
		})
	}
}

// TestPerftEnPassantPin tests the en passant horizontal pin edge case.
// The black pawn on e4 may not take d3 en passant: the king on a4 would be
// exposed to the rook on h4.
func TestPerftEnPassantPin(t *testing.T) {
	pos := setupPosition(t, "8/8/8/8/k2Pp2R/8/8/4K3", Black, NoCastling, D3)

	pseudo := pos.GeneratePseudoLegalMoves()
	sawEP := false
	for _, m := range pseudo.Slice() {
		if m.IsEnPassant() {
			sawEP = true
		}
	}
	if !sawEP {
		t.Fatalf("expected the en passant capture among pseudo-legal moves")
	}

	for _, m := range pos.GenerateLegalMoves().Slice() {
		if m.IsEnPassant() {
			t.Errorf("en passant move %v should be illegal (horizontal pin)", m)
		}
	}

	tests := []struct {
		depth    int
		expected uint64
	}{
		{1, 6},
		{2, 94},
	}

	for _, tc := range tests {
		t.Run("", func(t *testing.T) {
			got := pos.Perft(tc.depth)
			if got != tc.expected {
				t.Errorf("perft(%d) = %d, want %d", tc.depth, got, tc.expected)
			}
		})
	}
}

func BenchmarkPerft4(b *testing.B) {
	pos := NewPosition()
	for i := 0; i < b.N; i++ {
		pos.Perft(4)
	}
}
