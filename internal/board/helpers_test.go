package board

import (
	"fmt"
	"strings"
	"testing"
)

// setupPosition builds a position from FEN-style fields. Only the tests need
// this; the engine itself builds positions with Place.
func setupPosition(t testing.TB, placement string, side Color, cr CastlingRights, ep Square) *Position {
	t.Helper()
	p := NewEmptyPosition()
	rank, file := 7, 0
	for _, ch := range placement {
		switch {
		case ch == '/':
			rank--
			file = 0
		case ch >= '1' && ch <= '8':
			file += int(ch - '0')
		default:
			idx := strings.IndexRune("PNBRQKpnbrqk", ch)
			if idx < 0 {
				t.Fatalf("bad piece %q in %q", ch, placement)
			}
			p.Place(NewSquare(file, rank), Piece(idx))
			file++
		}
	}
	p.SetSideToMove(side)
	p.SetCastlingRights(cr)
	p.SetEnPassant(ep)
	return p
}

// toFEN renders the position for the external move generator used as an
// oracle.
func toFEN(p *Position) string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			pc := p.Squares[NewSquare(file, rank)]
			if pc == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteString(pc.String())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}
	side := "w"
	if p.SideToMove == Black {
		side = "b"
	}
	return fmt.Sprintf("%s %s %s %s %d %d", sb.String(), side, p.CastlingRights, p.EnPassant, p.HalfMoveClock, p.FullMoveNumber)
}

// playMoves applies coordinate moves in order, failing the test on the first
// one that is not legal.
func playMoves(t testing.TB, p *Position, moves ...string) []Move {
	t.Helper()
	played := make([]Move, 0, len(moves))
	for _, s := range moves {
		m, err := p.ParseMove(s)
		if err != nil {
			t.Fatalf("move %s: %v", s, err)
		}
		p.Apply(m)
		played = append(played, m)
	}
	return played
}

// expectPanic fails the test unless fn panics.
func expectPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", name)
		}
	}()
	fn()
}
