package engine

import "github.com/hailam/chesscore/internal/board"

// SEE is a static estimate of what a capture or promotion wins. It is a
// single-exchange placeholder: the victim's value, plus the promotion gain,
// minus the moving piece's value when the destination is defended.
func SEE(pos *board.Position, m board.Move) int {
	gain := 0
	if m.IsCapture() {
		gain = m.Captured().Value()
	}

	mover := m.Piece().Type()
	if m.IsPromotion() {
		gain += m.Promotion().Value() - board.Pawn.Value()
		mover = m.Promotion()
	}

	them := m.Piece().Color().Other()
	if pos.IsSquareAttacked(m.To(), them) {
		gain -= mover.Value()
	}
	return gain
}
