package board

// RepetitionCount returns how many earlier positions on the current line share
// the current key. Only positions since the last irreversible move can match,
// and only those with the same side to move.
func (p *Position) RepetitionCount() int {
	n := len(p.keys)
	limit := p.HalfMoveClock
	if limit > n {
		limit = n
	}
	count := 0
	for back := 2; back <= limit; back += 2 {
		if p.keys[n-back] == p.Key {
			count++
		}
	}
	return count
}

// IsRepetition reports whether the current position already occurred on the
// line. A single earlier occurrence is enough for search purposes.
func (p *Position) IsRepetition() bool {
	return p.RepetitionCount() > 0
}

// IsFiftyMove reports whether a hundred half-moves have passed without a
// capture or pawn move.
func (p *Position) IsFiftyMove() bool {
	return p.HalfMoveClock >= 100
}

// IsInsufficientMaterial returns true if neither side can checkmate:
// K v K, K+minor v K, and K+B v K+B with both bishops on the same color.
func (p *Position) IsInsufficientMaterial() bool {
	if p.Pieces[White][Pawn]|p.Pieces[Black][Pawn] != 0 ||
		p.Pieces[White][Rook]|p.Pieces[Black][Rook] != 0 ||
		p.Pieces[White][Queen]|p.Pieces[Black][Queen] != 0 {
		return false
	}

	wKnights := p.Pieces[White][Knight].PopCount()
	wBishops := p.Pieces[White][Bishop].PopCount()
	bKnights := p.Pieces[Black][Knight].PopCount()
	bBishops := p.Pieces[Black][Bishop].PopCount()
	wMinors := wKnights + wBishops
	bMinors := bKnights + bBishops

	switch {
	case wMinors == 0 && bMinors == 0:
		return true
	case wMinors <= 1 && bMinors == 0, bMinors <= 1 && wMinors == 0:
		return true
	case wBishops == 1 && bBishops == 1 && wKnights == 0 && bKnights == 0:
		bishops := p.Pieces[White][Bishop] | p.Pieces[Black][Bishop]
		light := (bishops & LightSquares).PopCount()
		return light == 0 || light == 2
	}
	return false
}

// IsDraw reports a draw by repetition, the fifty-move rule or insufficient
// material. Stalemate is left to the caller, which sees it as a position
// without legal moves.
func (p *Position) IsDraw() bool {
	return p.IsFiftyMove() || p.IsInsufficientMaterial() || p.IsRepetition()
}
