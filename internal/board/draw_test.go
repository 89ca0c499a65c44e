package board

import "testing"

func TestRepetition(t *testing.T) {
	p := NewPosition()
	if p.IsRepetition() {
		t.Fatalf("fresh position cannot be a repetition")
	}

	playMoves(t, p, "g1f3", "g8f6", "f3g1")
	if p.IsRepetition() {
		t.Errorf("no repetition yet")
	}
	playMoves(t, p, "f6g8")
	if got := p.RepetitionCount(); got != 1 {
		t.Errorf("RepetitionCount = %d, want 1", got)
	}
	if !p.IsDraw() {
		t.Errorf("repeated position should count as a draw")
	}

	playMoves(t, p, "g1f3", "g8f6", "f3g1", "f6g8")
	if got := p.RepetitionCount(); got != 2 {
		t.Errorf("RepetitionCount = %d, want 2", got)
	}

	// A pawn move makes earlier positions unreachable.
	playMoves(t, p, "e2e4", "e7e5", "g1f3", "g8f6", "f3g1", "f6g8")
	if got := p.RepetitionCount(); got != 1 {
		t.Errorf("RepetitionCount after pawn moves = %d, want 1", got)
	}
}

func TestFiftyMoveRule(t *testing.T) {
	p := setupPosition(t, "4k3/8/8/8/8/8/8/R3K3", White, NoCastling, NoSquare)
	p.HalfMoveClock = 99
	if p.IsFiftyMove() {
		t.Errorf("99 half-moves is not yet a draw")
	}
	playMoves(t, p, "a1a2")
	if !p.IsFiftyMove() || !p.IsDraw() {
		t.Errorf("100 half-moves should be a draw")
	}
}

func TestInsufficientMaterial(t *testing.T) {
	tests := []struct {
		name      string
		placement string
		want      bool
	}{
		{"bare kings", "4k3/8/8/8/8/8/8/4K3", true},
		{"king and knight", "4k3/8/8/8/8/8/8/4KN2", true},
		{"king and bishop", "4k3/8/8/8/8/8/8/4KB2", true},
		{"black bishop", "4kb2/8/8/8/8/8/8/4K3", true},
		{"same colored bishops", "2b1k3/8/8/8/8/8/8/4KB2", true},
		{"opposite colored bishops", "4kb2/8/8/8/8/8/8/4KB2", false},
		{"two knights", "4k3/8/8/8/8/8/8/3NKN2", false},
		{"knight each", "4kn2/8/8/8/8/8/8/4KN2", false},
		{"pawn", "4k3/8/8/8/8/8/4P3/4K3", false},
		{"rook", "4k3/8/8/8/8/8/8/R3K3", false},
		{"queen", "3qk3/8/8/8/8/8/8/4K3", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := setupPosition(t, tc.placement, White, NoCastling, NoSquare)
			if got := p.IsInsufficientMaterial(); got != tc.want {
				t.Errorf("IsInsufficientMaterial() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCheckmateAndStalemate(t *testing.T) {
	// Fool's mate.
	p := NewPosition()
	playMoves(t, p, "f2f3", "e7e5", "g2g4", "d8h4")
	if !p.IsCheckmate() || p.IsStalemate() {
		t.Errorf("fool's mate not detected")
	}
	if p.GenerateLegalMoves().Len() != 0 {
		t.Errorf("mated side should have no legal moves")
	}

	stale := setupPosition(t, "7k/5Q2/6K1/8/8/8/8/8", Black, NoCastling, NoSquare)
	if !stale.IsStalemate() || stale.IsCheckmate() {
		t.Errorf("stalemate not detected")
	}
}
