package board

import "sync"

var (
	knightAttacks [64]Bitboard
	kingAttacks   [64]Bitboard
	pawnAttacks   [2][64]Bitboard
	pawnPushes    [2][64]Bitboard

	// Strictly between two aligned squares, and the whole line through them.
	betweenBB [64][64]Bitboard
	lineBB    [64][64]Bitboard

	initOnce sync.Once
)

// Init builds the attack, magic and zobrist tables. It runs once per process;
// later calls return immediately. Position constructors call it, so callers that
// only use ParseFEN or NewPosition never need to.
func Init() {
	initOnce.Do(func() {
		initLeapers()
		initMagics()
		initRays()
		initZobrist()
	})
}

func initLeapers() {
	for sq := A1; sq <= H8; sq++ {
		b := SquareBB(sq)

		l1 := (b >> 1) & NotFileH
		l2 := (b >> 2) & ^(FileG | FileH)
		r1 := (b << 1) & NotFileA
		r2 := (b << 2) & ^(FileA | FileB)
		h1, h2 := l1|r1, l2|r2
		knightAttacks[sq] = h1<<16 | h1>>16 | h2<<8 | h2>>8

		row := b | b.East() | b.West()
		kingAttacks[sq] = (row | row.North() | row.South()) &^ b

		pawnAttacks[White][sq] = b.NorthEast() | b.NorthWest()
		pawnAttacks[Black][sq] = b.SouthEast() | b.SouthWest()
		pawnPushes[White][sq] = b.North()
		pawnPushes[Black][sq] = b.South()
	}
}

// initRays derives the between and line tables from the ray tracers, so the
// tables agree with slider attacks by construction.
func initRays() {
	for a := A1; a <= H8; a++ {
		for _, slow := range [2]func(Square, Bitboard) Bitboard{bishopAttacksSlow, rookAttacksSlow} {
			for b := A1; b <= H8; b++ {
				if a == b || !slow(a, 0).IsSet(b) {
					continue
				}
				lineBB[a][b] = slow(a, 0)&slow(b, 0) | SquareBB(a) | SquareBB(b)
				betweenBB[a][b] = slow(a, SquareBB(b)) & slow(b, SquareBB(a))
			}
		}
	}
}

func KnightAttacks(sq Square) Bitboard { return knightAttacks[sq] }
func KingAttacks(sq Square) Bitboard   { return kingAttacks[sq] }

// PawnAttacks returns the squares a pawn of colour c on sq captures on.
func PawnAttacks(sq Square, c Color) Bitboard {
	return pawnAttacks[c][sq]
}

// PawnPushes returns the single-push target of a pawn of colour c on sq.
func PawnPushes(sq Square, c Color) Bitboard {
	return pawnPushes[c][sq]
}

// BishopAttacks returns diagonal attacks from sq given the occupancy.
func BishopAttacks(sq Square, occupied Bitboard) Bitboard {
	m := &bishopMagics[sq]
	return bishopTable[m.Offset+m.index(occupied)]
}

// RookAttacks returns orthogonal attacks from sq given the occupancy.
func RookAttacks(sq Square, occupied Bitboard) Bitboard {
	m := &rookMagics[sq]
	return rookTable[m.Offset+m.index(occupied)]
}

func QueenAttacks(sq Square, occupied Bitboard) Bitboard {
	return BishopAttacks(sq, occupied) | RookAttacks(sq, occupied)
}

// Attacks returns the attack set of a piece of type pt and colour c on sq.
func Attacks(pt PieceType, c Color, sq Square, occupied Bitboard) Bitboard {
	switch pt {
	case Pawn:
		return pawnAttacks[c][sq]
	case Knight:
		return knightAttacks[sq]
	case Bishop:
		return BishopAttacks(sq, occupied)
	case Rook:
		return RookAttacks(sq, occupied)
	case Queen:
		return QueenAttacks(sq, occupied)
	case King:
		return kingAttacks[sq]
	}
	return Empty
}

// Between returns the squares strictly between a and b, or Empty when they
// do not share a rank, file or diagonal.
func Between(a, b Square) Bitboard {
	return betweenBB[a][b]
}

// Line returns the full board line through a and b, or Empty when unaligned.
func Line(a, b Square) Bitboard {
	return lineBB[a][b]
}

// Aligned reports whether c lies on the line through a and b.
func Aligned(a, b, c Square) bool {
	return lineBB[a][b].IsSet(c)
}

// AttackersTo returns the pieces of both colours attacking sq under occupancy occ.
func (p *Position) AttackersTo(sq Square, occ Bitboard) Bitboard {
	return p.AttackersByColor(sq, White, occ) | p.AttackersByColor(sq, Black, occ)
}

// AttackersByColor returns the pieces of colour c attacking sq under occupancy occ.
func (p *Position) AttackersByColor(sq Square, c Color, occ Bitboard) Bitboard {
	pc := &p.Pieces[c]
	diag := pc[Bishop] | pc[Queen]
	orth := pc[Rook] | pc[Queen]
	return pawnAttacks[c.Other()][sq]&pc[Pawn] |
		knightAttacks[sq]&pc[Knight] |
		kingAttacks[sq]&pc[King] |
		BishopAttacks(sq, occ)&diag |
		RookAttacks(sq, occ)&orth
}

// IsSquareAttacked reports whether colour by attacks sq in the current position.
func (p *Position) IsSquareAttacked(sq Square, by Color) bool {
	return p.AttackersByColor(sq, by, p.Info.All) != 0
}
