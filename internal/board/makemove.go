package board

import "fmt"

// UndoInfo snapshots what ApplyMove cannot recover from the move encoding.
// It is valid for exactly one apply/undo pair.
type UndoInfo struct {
	Info           InfoCache
	EnPassant      Square
	HalfMoveClock  int
	CastlingRights CastlingRights
}

func (p *Position) snapshot(undo *UndoInfo) {
	if undo != nil {
		*undo = UndoInfo{
			Info:           p.Info,
			EnPassant:      p.EnPassant,
			HalfMoveClock:  p.HalfMoveClock,
			CastlingRights: p.CastlingRights,
		}
	}
}

func (p *Position) putPiece(c Color, pt PieceType, sq Square) {
	b := SquareBB(sq)
	in := &p.Info
	p.Pieces[c][pt] |= b
	in.Colors[c] |= b
	in.Types[pt] |= b
	in.All |= b
	in.Hash ^= zobristPiece[c][pt][sq]
	switch pt {
	case Pawn:
		in.PawnKey ^= zobristPiece[c][Pawn][sq]
	case King:
		in.KingSquare[c] = sq
	default:
		in.Material[c] += PieceValue[pt]
	}
}

func (p *Position) removePiece(c Color, pt PieceType, sq Square) {
	b := SquareBB(sq)
	in := &p.Info
	p.Pieces[c][pt] &^= b
	in.Colors[c] &^= b
	in.Types[pt] &^= b
	in.All &^= b
	in.Hash ^= zobristPiece[c][pt][sq]
	switch pt {
	case Pawn:
		in.PawnKey ^= zobristPiece[c][Pawn][sq]
	case King:
		in.KingSquare[c] = NoSquare
	default:
		in.Material[c] -= PieceValue[pt]
	}
}

func (p *Position) movePiece(c Color, pt PieceType, from, to Square) {
	b := SquareBB(from) | SquareBB(to)
	in := &p.Info
	p.Pieces[c][pt] ^= b
	in.Colors[c] ^= b
	in.Types[pt] ^= b
	in.All ^= b
	k := zobristPiece[c][pt][from] ^ zobristPiece[c][pt][to]
	in.Hash ^= k
	switch pt {
	case Pawn:
		in.PawnKey ^= k
	case King:
		in.KingSquare[c] = to
	}
}

func invariant(format string, args ...any) {
	panic(fmt.Errorf("%w: "+format, append([]any{ErrInvariant}, args...)...))
}

// ApplyMove plays m, which must be pseudo-legal in p. When undo is non-nil it
// receives the state UndoMove needs. A malformed move, a move of a piece that
// is not there, or a king capture panics with ErrInvariant.
func (p *Position) ApplyMove(m Move, undo *UndoInfo) {
	if !m.Valid() || m.IsNull() {
		invariant("apply of malformed move %#08x", uint32(m))
	}
	us, them := p.SideToMove, p.SideToMove.Other()
	from, to, pt := m.From(), m.To(), m.Piece()
	if !p.Pieces[us][pt].IsSet(from) {
		invariant("no %s %s on %s for %s", us, pt, from, m)
	}
	p.snapshot(undo)
	in := &p.Info

	if p.EnPassant != NoSquare {
		in.Hash ^= zobristEpFile[p.EnPassant.File()]
		p.EnPassant = NoSquare
	}
	p.HalfMoveClock++

	if m.IsCapture() {
		victim := to
		if m.IsEnPassant() {
			victim = epVictim(from, to)
		}
		ct := m.Captured()
		if !p.Pieces[them][ct].IsSet(victim) {
			invariant("no %s %s on %s to capture with %s", them, ct, victim, m)
		}
		p.removePiece(them, ct, victim)
		p.HalfMoveClock = 0
	}

	if m.IsPromotion() {
		p.removePiece(us, Pawn, from)
		p.putPiece(us, m.Promotion(), to)
	} else {
		p.movePiece(us, pt, from, to)
	}
	if pt == Pawn {
		p.HalfMoveClock = 0
	}
	if m.IsCastling() {
		rf, rt := castleRook(to)
		p.movePiece(us, Rook, rf, rt)
	}

	if cr := p.CastlingRights & castleMask[from] & castleMask[to]; cr != p.CastlingRights {
		in.Hash ^= zobristCastling[p.CastlingRights] ^ zobristCastling[cr]
		p.CastlingRights = cr
	}

	// The target is only recorded when an enemy pawn could capture onto it,
	// so transpositions hash alike.
	if m.IsDoublePush() {
		ep := Square((int(from) + int(to)) / 2)
		if pawnAttacks[us][ep]&p.Pieces[them][Pawn] != 0 {
			p.EnPassant = ep
			in.Hash ^= zobristEpFile[ep.File()]
		}
	}

	if us == Black {
		p.FullMoveNumber++
	}
	p.SideToMove = them
	in.Hash ^= zobristSide
	p.updateKingInfo()
}

// UndoMove takes back m, which must be the move last applied with undo.
func (p *Position) UndoMove(m Move, undo *UndoInfo) {
	us := p.SideToMove.Other()
	them := p.SideToMove
	from, to := m.From(), m.To()

	if m.IsPromotion() {
		p.Pieces[us][m.Promotion()] ^= SquareBB(to)
		p.Pieces[us][Pawn] ^= SquareBB(from)
	} else {
		p.Pieces[us][m.Piece()] ^= SquareBB(from) | SquareBB(to)
	}
	if m.IsCastling() {
		rf, rt := castleRook(to)
		p.Pieces[us][Rook] ^= SquareBB(rf) | SquareBB(rt)
	}
	if m.IsCapture() {
		victim := to
		if m.IsEnPassant() {
			victim = epVictim(from, to)
		}
		p.Pieces[them][m.Captured()] ^= SquareBB(victim)
	}

	if us == Black {
		p.FullMoveNumber--
	}
	p.SideToMove = us
	p.Info = undo.Info
	p.EnPassant = undo.EnPassant
	p.HalfMoveClock = undo.HalfMoveClock
	p.CastlingRights = undo.CastlingRights
}

// ApplyNullMove passes the turn. The side to move must not be in check.
func (p *Position) ApplyNullMove(undo *UndoInfo) {
	p.snapshot(undo)
	if p.EnPassant != NoSquare {
		p.Info.Hash ^= zobristEpFile[p.EnPassant.File()]
		p.EnPassant = NoSquare
	}
	p.HalfMoveClock++
	if p.SideToMove == Black {
		p.FullMoveNumber++
	}
	p.SideToMove = p.SideToMove.Other()
	p.Info.Hash ^= zobristSide
}

// UndoNullMove reverts ApplyNullMove.
func (p *Position) UndoNullMove(undo *UndoInfo) {
	p.SideToMove = p.SideToMove.Other()
	if p.SideToMove == Black {
		p.FullMoveNumber--
	}
	p.Info = undo.Info
	p.EnPassant = undo.EnPassant
	p.HalfMoveClock = undo.HalfMoveClock
	p.CastlingRights = undo.CastlingRights
}
