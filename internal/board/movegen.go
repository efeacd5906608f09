package board

type genKind uint8

const (
	genAll genKind = iota
	genTactical
)

// castlePath describes one castling option from White's side. Squares are
// mirrored for Black.
type castlePath struct {
	right            CastlingRights
	kingFrom, kingTo Square
	rookFrom, rookTo Square
	empty, safe      Bitboard
}

var castlePaths = [2][2]castlePath{
	{
		{WhiteKingSideCastle, E1, G1, H1, F1, SquareBB(F1) | SquareBB(G1), SquareBB(F1) | SquareBB(G1)},
		{WhiteQueenSideCastle, E1, C1, A1, D1, SquareBB(B1) | SquareBB(C1) | SquareBB(D1), SquareBB(C1) | SquareBB(D1)},
	},
	{
		{BlackKingSideCastle, E8, G8, H8, F8, SquareBB(F8) | SquareBB(G8), SquareBB(F8) | SquareBB(G8)},
		{BlackQueenSideCastle, E8, C8, A8, D8, SquareBB(B8) | SquareBB(C8) | SquareBB(D8), SquareBB(C8) | SquareBB(D8)},
	},
}

// castleRook returns the rook's squares for a castling king landing on kingTo.
func castleRook(kingTo Square) (from, to Square) {
	c := White
	if kingTo.Rank() == 7 {
		c = Black
	}
	side := 0
	if kingTo.File() == 2 {
		side = 1
	}
	cp := &castlePaths[c][side]
	return cp.rookFrom, cp.rookTo
}

var promotionOrder = [4]PieceType{Queen, Knight, Rook, Bishop}

// GeneratePseudoLegalMoves fills ml with every move that obeys piece movement
// rules. Moves may leave the mover's king attacked; see IsLegal.
func (p *Position) GeneratePseudoLegalMoves(ml *MoveList) {
	ml.Clear()
	p.generate(ml, genAll)
}

// GenerateCaptures fills ml with captures, en-passant captures and every
// promotion, capturing or not.
func (p *Position) GenerateCaptures(ml *MoveList) {
	ml.Clear()
	p.generate(ml, genTactical)
}

// GenerateLegalMoves fills ml with the legal moves of the position.
func (p *Position) GenerateLegalMoves(ml *MoveList) {
	p.GeneratePseudoLegalMoves(ml)
	p.FilterLegalMoves(ml)
}

// FilterLegalMoves drops, in place, the moves that leave the mover in check.
func (p *Position) FilterLegalMoves(ml *MoveList) {
	n := 0
	for i := 0; i < ml.count; i++ {
		if m := ml.moves[i]; p.IsLegal(m) {
			ml.moves[n] = m
			n++
		}
	}
	ml.count = n
}

func (p *Position) generate(ml *MoveList, kind genKind) {
	us, them := p.SideToMove, p.SideToMove.Other()
	occ := p.Info.All
	targets := p.Info.Colors[them]
	if kind == genAll {
		targets = ^p.Info.Colors[us]
	}

	p.genPawnMoves(ml, kind)
	for pt := Knight; pt <= Queen; pt++ {
		for b := p.Pieces[us][pt]; b != 0; {
			from := b.PopLSB()
			p.addMoves(ml, pt, from, Attacks(pt, us, from, occ)&targets)
		}
	}
	if ksq := p.Info.KingSquare[us]; ksq != NoSquare {
		p.addMoves(ml, King, ksq, kingAttacks[ksq]&targets)
		if kind == genAll && !p.InCheck() {
			p.genCastling(ml, us)
		}
	}
}

func (p *Position) addMoves(ml *MoveList, pt PieceType, from Square, targets Bitboard) {
	enemy := p.Info.Colors[p.SideToMove.Other()]
	for targets != 0 {
		to := targets.PopLSB()
		if enemy.IsSet(to) {
			ml.Add(NewCapture(from, to, pt, p.TypeAt(to)))
		} else {
			ml.Add(NewMove(from, to, pt))
		}
	}
}

func (p *Position) genPawnMoves(ml *MoveList, kind genKind) {
	us, them := p.SideToMove, p.SideToMove.Other()
	pawns := p.Pieces[us][Pawn]
	if pawns == 0 {
		return
	}
	empty := ^p.Info.All
	enemy := p.Info.Colors[them]

	// from = to - step for each shift direction.
	var push, west, east int
	var capW, capE, promoRank, thirdRank Bitboard
	if us == White {
		push, west, east = 8, 7, 9
		capW, capE = pawns.NorthWest()&enemy, pawns.NorthEast()&enemy
		promoRank, thirdRank = Rank8, Rank3
	} else {
		push, west, east = -8, -9, -7
		capW, capE = pawns.SouthWest()&enemy, pawns.SouthEast()&enemy
		promoRank, thirdRank = Rank1, Rank6
	}
	single := pawns.Forward(us) & empty

	for b := single & promoRank; b != 0; {
		to := b.PopLSB()
		addPromotions(ml, Square(int(to)-push), to, NoPieceType)
	}
	for _, c := range [2]struct {
		set  Bitboard
		step int
	}{{capW, west}, {capE, east}} {
		for b := c.set; b != 0; {
			to := b.PopLSB()
			from := Square(int(to) - c.step)
			if promoRank.IsSet(to) {
				addPromotions(ml, from, to, p.TypeAt(to))
			} else {
				ml.Add(NewCapture(from, to, Pawn, p.TypeAt(to)))
			}
		}
	}
	if ep := p.EnPassant; ep != NoSquare {
		for b := pawnAttacks[them][ep] & pawns; b != 0; {
			ml.Add(NewEnPassant(b.PopLSB(), ep))
		}
	}

	if kind != genAll {
		return
	}
	for b := single &^ promoRank; b != 0; {
		to := b.PopLSB()
		ml.Add(NewMove(Square(int(to)-push), to, Pawn))
	}
	for b := (single & thirdRank).Forward(us) & empty; b != 0; {
		to := b.PopLSB()
		ml.Add(NewDoublePush(Square(int(to)-2*push), to))
	}
}

func addPromotions(ml *MoveList, from, to Square, captured PieceType) {
	for _, pt := range promotionOrder {
		ml.Add(NewPromotion(from, to, captured, pt))
	}
}

// genCastling adds castling moves whose rights remain, whose king and rook are
// home, whose transit squares are empty and whose king path is unattacked.
// The caller guarantees the king is not in check.
func (p *Position) genCastling(ml *MoveList, us Color) {
	them := us.Other()
	for i := range castlePaths[us] {
		cp := &castlePaths[us][i]
		if p.CastlingRights&cp.right == 0 ||
			!p.Pieces[us][King].IsSet(cp.kingFrom) ||
			!p.Pieces[us][Rook].IsSet(cp.rookFrom) ||
			p.Info.All&cp.empty != 0 {
			continue
		}
		attacked := false
		for b := cp.safe; b != 0; {
			if p.AttackersByColor(b.PopLSB(), them, p.Info.All) != 0 {
				attacked = true
				break
			}
		}
		if !attacked {
			ml.Add(NewCastle(cp.kingFrom, cp.kingTo))
		}
	}
}

// GenerateQuietChecks fills ml with non-capturing, non-promoting moves by
// pawns and pieces that attack the enemy king directly from their target.
// Discovered checks and castling checks are not generated.
func (p *Position) GenerateQuietChecks(ml *MoveList) {
	ml.Clear()
	us, them := p.SideToMove, p.SideToMove.Other()
	ksq := p.Info.KingSquare[them]
	if ksq == NoSquare {
		return
	}
	occ := p.Info.All
	empty := ^occ

	for pt := Knight; pt <= Queen; pt++ {
		checkSquares := Attacks(pt, them, ksq, occ) & empty
		if checkSquares == 0 {
			continue
		}
		for b := p.Pieces[us][pt]; b != 0; {
			from := b.PopLSB()
			for t := Attacks(pt, us, from, occ) & checkSquares; t != 0; {
				ml.Add(NewMove(from, t.PopLSB(), pt))
			}
		}
	}

	pawnTargets := pawnAttacks[them][ksq] & empty &^ (Rank1 | Rank8)
	if pawnTargets == 0 {
		return
	}
	push, thirdRank := 8, Rank3
	if us == Black {
		push, thirdRank = -8, Rank6
	}
	single := p.Pieces[us][Pawn].Forward(us) & empty
	for b := single & pawnTargets; b != 0; {
		to := b.PopLSB()
		ml.Add(NewMove(Square(int(to)-push), to, Pawn))
	}
	for b := (single & thirdRank).Forward(us) & empty & pawnTargets; b != 0; {
		to := b.PopLSB()
		ml.Add(NewDoublePush(Square(int(to)-2*push), to))
	}
}

// IsLegal reports whether a pseudo-legal move keeps the mover's king safe.
func (p *Position) IsLegal(m Move) bool {
	us, them := p.SideToMove, p.SideToMove.Other()
	from, to := m.From(), m.To()

	if m.Piece() == King {
		if m.IsCastling() {
			return !p.InCheck()
		}
		return p.AttackersByColor(to, them, p.Info.All&^SquareBB(from)) == 0
	}
	if m.IsEnPassant() || p.InCheck() {
		scratch := *p
		scratch.ApplyMove(m, nil)
		return scratch.Info.Checkers[us] == 0
	}
	if p.PinnedPieces(us).IsSet(from) {
		return Aligned(from, to, p.Info.KingSquare[us])
	}
	return true
}

// GivesCheck reports whether the pseudo-legal move m checks the enemy king,
// directly or by discovery, without playing it.
func (p *Position) GivesCheck(m Move) bool {
	us, them := p.SideToMove, p.SideToMove.Other()
	ksq := p.Info.KingSquare[them]
	from, to := m.From(), m.To()
	occ := p.Info.All&^SquareBB(from) | SquareBB(to)
	moved := SquareBB(from)

	switch {
	case m.IsCastling():
		rf, rt := castleRook(to)
		occ = occ&^SquareBB(rf) | SquareBB(rt)
		moved |= SquareBB(rf)
		if RookAttacks(rt, occ).IsSet(ksq) {
			return true
		}
	case m.IsEnPassant():
		occ &^= SquareBB(epVictim(from, to))
	}

	pt := m.Piece()
	if m.IsPromotion() {
		pt = m.Promotion()
	}
	if pt != King && Attacks(pt, us, to, occ).IsSet(ksq) {
		return true
	}

	if !p.Info.Blockers[them].IsSet(from) && !m.IsEnPassant() && !m.IsCastling() {
		return false
	}
	queens := p.Pieces[us][Queen]
	diag := (p.Pieces[us][Bishop] | queens) &^ moved
	orth := (p.Pieces[us][Rook] | queens) &^ moved
	return BishopAttacks(ksq, occ)&diag != 0 || RookAttacks(ksq, occ)&orth != 0
}

// HasLegalMoves reports whether the side to move has any legal move.
func (p *Position) HasLegalMoves() bool {
	var ml MoveList
	p.GeneratePseudoLegalMoves(&ml)
	for _, m := range ml.Slice() {
		if p.IsLegal(m) {
			return true
		}
	}
	return false
}

func (p *Position) IsCheckmate() bool {
	return p.InCheck() && !p.HasLegalMoves()
}

func (p *Position) IsStalemate() bool {
	return !p.InCheck() && !p.HasLegalMoves()
}
