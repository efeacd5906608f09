package board

const zobristSeed = 0x6A09E667F3BCC909

var (
	zobristPiece    [2][6][64]uint64
	zobristEpFile   [8]uint64
	zobristCastling [16]uint64
	zobristSide     uint64
)

func initZobrist() {
	rng := prng{s: zobristSeed}
	for c := range zobristPiece {
		for pt := range zobristPiece[c] {
			for sq := range zobristPiece[c][pt] {
				zobristPiece[c][pt][sq] = rng.next()
			}
		}
	}
	for f := range zobristEpFile {
		zobristEpFile[f] = rng.next()
	}
	for i := range zobristCastling {
		zobristCastling[i] = rng.next()
	}
	zobristSide = rng.next()
}

// ZobristPiece returns the key for a piece of colour c and type pt on sq.
func ZobristPiece(c Color, pt PieceType, sq Square) uint64 { return zobristPiece[c][pt][sq] }

// ZobristEnPassant returns the key for an en passant square on file.
func ZobristEnPassant(file int) uint64 { return zobristEpFile[file] }

// ZobristCastling returns the key for a set of castling rights.
func ZobristCastling(cr CastlingRights) uint64 { return zobristCastling[cr&AllCastling] }

// ZobristSideToMove returns the key toggled when black is to move.
func ZobristSideToMove() uint64 { return zobristSide }

// ComputeHash rebuilds the position key from scratch.
func (p *Position) ComputeHash() uint64 {
	var h uint64
	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			for b := p.Pieces[c][pt]; b != 0; {
				h ^= zobristPiece[c][pt][b.PopLSB()]
			}
		}
	}
	if p.EnPassant != NoSquare {
		h ^= zobristEpFile[p.EnPassant.File()]
	}
	h ^= zobristCastling[p.CastlingRights]
	if p.SideToMove == Black {
		h ^= zobristSide
	}
	return h
}

// ComputePawnKey rebuilds the pawn-only key from scratch.
func (p *Position) ComputePawnKey() uint64 {
	var h uint64
	for c := White; c <= Black; c++ {
		for b := p.Pieces[c][Pawn]; b != 0; {
			h ^= zobristPiece[c][Pawn][b.PopLSB()]
		}
	}
	return h
}
