package board

// SeeGE reports whether the static exchange on m's target square nets the
// mover at least threshold centipawns. Both sides recapture with their least
// valuable attacker, sliders behind a capturer join in as x-rays, and either
// side may stop capturing when that is better.
func (p *Position) SeeGE(m Move, threshold int) bool {
	if m.IsCastling() || m.IsNull() {
		return threshold <= 0
	}
	from, to := m.From(), m.To()

	next := m.Piece()
	balance := PieceValue[m.Captured()] - threshold
	if m.IsPromotion() {
		next = m.Promotion()
		balance += PieceValue[next] - PieceValue[Pawn]
	}
	if balance < 0 {
		return false
	}
	// Even losing the moving piece for nothing meets the threshold.
	balance -= PieceValue[next]
	if balance >= 0 {
		return true
	}

	occ := p.Info.All&^SquareBB(from) | SquareBB(to)
	if m.IsEnPassant() {
		occ &^= SquareBB(epVictim(from, to))
	}
	t := &p.Info.Types
	diag := t[Bishop] | t[Queen]
	orth := t[Rook] | t[Queen]
	attackers := p.AttackersTo(to, occ) & occ

	side := p.SideToMove.Other()
	for {
		mine := attackers & p.Info.Colors[side]
		if mine == 0 {
			break
		}
		for next = Pawn; next < King; next++ {
			if mine&p.Pieces[side][next] != 0 {
				break
			}
		}
		occ &^= SquareBB((mine & p.Pieces[side][next]).LSB())
		if next == Pawn || next == Bishop || next == Queen {
			attackers |= BishopAttacks(to, occ) & diag
		}
		if next == Rook || next == Queen {
			attackers |= RookAttacks(to, occ) & orth
		}
		attackers &= occ
		side = side.Other()

		balance = -balance - 1 - PieceValue[next]
		if balance >= 0 {
			// A king may not recapture into a defended square.
			if next == King && attackers&p.Info.Colors[side] != 0 {
				side = side.Other()
			}
			break
		}
	}
	return side != p.SideToMove
}
