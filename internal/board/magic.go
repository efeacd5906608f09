package board

import "math/bits"

// Magic maps a slider's relevant occupancy to a slot of the shared attack table.
type Magic struct {
	Mask   Bitboard
	Magic  uint64
	Shift  uint8
	Offset uint32
}

func (m *Magic) index(occ Bitboard) uint32 {
	return uint32((uint64(occ&m.Mask) * m.Magic) >> m.Shift)
}

var (
	bishopMagics [64]Magic
	rookMagics   [64]Magic

	bishopTable [5248]Bitboard
	rookTable   [102400]Bitboard
)

// Built-in multipliers. Each one is checked while its table is filled and
// replaced by a searched constant if it collides.
var bishopSeeds = [64]uint64{
	0x0002020202020200, 0x0002020202020000, 0x0004010202000000, 0x0004040080000000,
	0x0001104000000000, 0x0000821040000000, 0x0000410410400000, 0x0000104104104000,
	0x0000040404040400, 0x0000020202020200, 0x0000040102020000, 0x0000040400800000,
	0x0000011040000000, 0x0000008210400000, 0x0000004104104000, 0x0000002082082000,
	0x0004000808080800, 0x0002000404040400, 0x0001000202020200, 0x0000800802004000,
	0x0000800400A00000, 0x0000200100884000, 0x0000400082082000, 0x0000200041041000,
	0x0002080010101000, 0x0001040008080800, 0x0000208004010400, 0x0000404004010200,
	0x0000840000802000, 0x0000404002011000, 0x0000808001041000, 0x0000404000820800,
	0x0001041000202000, 0x0000820800101000, 0x0000104400080800, 0x0000020080080080,
	0x0000404040040100, 0x0000808100020100, 0x0001010100020800, 0x0000808080010400,
	0x0000820820004000, 0x0000410410002000, 0x0000082088001000, 0x0000002011000800,
	0x0000080100400400, 0x0001010101000200, 0x0002020202000400, 0x0001010101000200,
	0x0000410410400000, 0x0000208208200000, 0x0000002084100000, 0x0000000020880000,
	0x0000001002020000, 0x0000040408020000, 0x0004040404040000, 0x0002020202020000,
	0x0000104104104000, 0x0000002082082000, 0x0000000020841000, 0x0000000000208800,
	0x0000000010020200, 0x0000000404080200, 0x0000040404040400, 0x0002020202020200,
}

var rookSeeds = [64]uint64{
	0x0080001020400080, 0x0040001000200040, 0x0080081000200080, 0x0080040800100080,
	0x0080020400080080, 0x0080010200040080, 0x0080008001000200, 0x0080002040800100,
	0x0000800020400080, 0x0000400020005000, 0x0000801000200080, 0x0000800800100080,
	0x0000800400080080, 0x0000800200040080, 0x0000800100020080, 0x0000800040800100,
	0x0000208000400080, 0x0000404000201000, 0x0000808010002000, 0x0000808008001000,
	0x0000808004000800, 0x0000808002000400, 0x0000010100020004, 0x0000020000408104,
	0x0000208080004000, 0x0000200040005000, 0x0000100080200080, 0x0000080080100080,
	0x0000040080080080, 0x0000020080040080, 0x0000010080800200, 0x0000800080004100,
	0x0000204000800080, 0x0000200040401000, 0x0000100080802000, 0x0000080080801000,
	0x0000040080800800, 0x0000020080800400, 0x0000020001010004, 0x0000800040800100,
	0x0000204000808000, 0x0000200040008080, 0x0000100020008080, 0x0000080010008080,
	0x0000040008008080, 0x0000020004008080, 0x0000010002008080, 0x0000004081020004,
	0x0000204000800080, 0x0000200040008080, 0x0000100020008080, 0x0000080010008080,
	0x0000040008008080, 0x0000020004008080, 0x0000800100020080, 0x0000800041000080,
	0x00FFFCDDFCED714A, 0x007FFCDDFCED714A, 0x003FFFCDFFD88096, 0x0000040810002101,
	0x0001000204080011, 0x0001000204000801, 0x0001000082000401, 0x0001FFFAABFAD1A2,
}

func initMagics() {
	rng := prng{s: 0x9E3779B97F4A7C15}
	fillMagics(&bishopMagics, bishopTable[:], &bishopSeeds, bishopMask, bishopAttacksSlow, &rng)
	fillMagics(&rookMagics, rookTable[:], &rookSeeds, rookMask, rookAttacksSlow, &rng)
}

func fillMagics(magics *[64]Magic, table []Bitboard, seeds *[64]uint64,
	maskOf func(Square) Bitboard, slow func(Square, Bitboard) Bitboard, rng *prng) {
	var occ, ref [4096]Bitboard
	var offset uint32
	for sq := A1; sq <= H8; sq++ {
		mask := maskOf(sq)
		n := 0
		// Carry-rippler walk over every subset of mask.
		for b := Empty; ; {
			occ[n], ref[n] = b, slow(sq, b)
			n++
			b = (b - mask) & mask
			if b == 0 {
				break
			}
		}

		m := &magics[sq]
		*m = Magic{Mask: mask, Shift: uint8(64 - mask.PopCount()), Offset: offset}
		slots := table[offset : offset+uint32(n)]
		candidate := seeds[sq]
		for !tryMagic(m, candidate, slots, occ[:n], ref[:n]) {
			candidate = rng.sparse()
			for bits.OnesCount64((uint64(mask)*candidate)>>56) < 6 {
				candidate = rng.sparse()
			}
		}
		offset += uint32(n)
	}
}

// tryMagic fills slots using magic and reports whether no two occupancies with
// different attack sets landed on the same slot. An attack set is never empty,
// so a zero slot is unused.
func tryMagic(m *Magic, magic uint64, slots, occ, ref []Bitboard) bool {
	clear(slots)
	m.Magic = magic
	for i := range occ {
		idx := m.index(occ[i])
		if slots[idx] != 0 && slots[idx] != ref[i] {
			return false
		}
		slots[idx] = ref[i]
	}
	return true
}

// MagicValid reports whether every lookup for sq matches the ray tracer.
func MagicValid(sq Square) bool {
	for _, s := range []struct {
		m    *Magic
		slow func(Square, Bitboard) Bitboard
		look func(Square, Bitboard) Bitboard
	}{
		{&bishopMagics[sq], bishopAttacksSlow, BishopAttacks},
		{&rookMagics[sq], rookAttacksSlow, RookAttacks},
	} {
		for b := Empty; ; {
			if s.look(sq, b) != s.slow(sq, b) {
				return false
			}
			b = (b - s.m.Mask) & s.m.Mask
			if b == 0 {
				break
			}
		}
	}
	return true
}

const edges = Rank1 | Rank8 | FileA | FileH

func bishopMask(sq Square) Bitboard {
	return bishopAttacksSlow(sq, Empty) &^ edges
}

func rookMask(sq Square) Bitboard {
	fileRay := rookAttacksSlow(sq, Empty) & FileMask[sq.File()] &^ (Rank1 | Rank8)
	rankRay := rookAttacksSlow(sq, Empty) & RankMask[sq.Rank()] &^ (FileA | FileH)
	return fileRay | rankRay
}

var (
	diagonalSteps   = [4][2]int{{1, 1}, {-1, 1}, {1, -1}, {-1, -1}}
	orthogonalSteps = [4][2]int{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}
)

// trace walks each step direction from sq until it leaves the board or hits an
// occupied square, which is included.
func trace(sq Square, occ Bitboard, steps *[4][2]int) Bitboard {
	var att Bitboard
	for _, d := range steps {
		f, r := sq.File()+d[0], sq.Rank()+d[1]
		for f >= 0 && f < 8 && r >= 0 && r < 8 {
			s := NewSquare(f, r)
			att |= SquareBB(s)
			if occ.IsSet(s) {
				break
			}
			f, r = f+d[0], r+d[1]
		}
	}
	return att
}

func bishopAttacksSlow(sq Square, occ Bitboard) Bitboard { return trace(sq, occ, &diagonalSteps) }
func rookAttacksSlow(sq Square, occ Bitboard) Bitboard   { return trace(sq, occ, &orthogonalSteps) }

// prng is xorshift64*, used for zobrist keys and the magic search.
type prng struct{ s uint64 }

func (r *prng) next() uint64 {
	r.s ^= r.s >> 12
	r.s ^= r.s << 25
	r.s ^= r.s >> 27
	return r.s * 2685821657736338717
}

func (r *prng) sparse() uint64 {
	return r.next() & r.next() & r.next()
}
