package board

import (
	"fmt"
	"strings"
)

// Move packs everything needed to apply and undo a move without probing the board:
//
//	bits  0-5   from square
//	bits  6-11  to square
//	bits 12-14  moving piece type
//	bits 15-17  captured piece type, NoPieceType when none
//	bits 18-20  promotion piece type, NoPieceType when none
//	bits 21-27  flags
type Move uint32

const (
	FlagCapture Move = 1 << (21 + iota)
	FlagDoublePush
	FlagKingCastle
	FlagQueenCastle
	FlagEnPassant
	FlagPromotion
	FlagNull

	flagMask    Move = 0x7F << 21
	specialMask      = FlagDoublePush | FlagKingCastle | FlagQueenCastle | FlagEnPassant
)

const (
	// NoMove is the zero value and never a valid move.
	NoMove Move = 0
	// NullMove passes the turn.
	NullMove = Move(NoPieceType)<<15 | Move(NoPieceType)<<18 | FlagNull
)

func pack(from, to Square, piece, captured, promo PieceType, flags Move) Move {
	return Move(from) | Move(to)<<6 | Move(piece)<<12 | Move(captured)<<15 | Move(promo)<<18 | flags
}

// NewMove builds a quiet move of piece from one square to another.
func NewMove(from, to Square, piece PieceType) Move {
	return pack(from, to, piece, NoPieceType, NoPieceType, 0)
}

// NewCapture builds a capture of the captured piece type on to.
func NewCapture(from, to Square, piece, captured PieceType) Move {
	return pack(from, to, piece, captured, NoPieceType, FlagCapture)
}

// NewPromotion builds a pawn promotion. captured is NoPieceType for a push.
func NewPromotion(from, to Square, captured, promo PieceType) Move {
	flags := FlagPromotion
	if captured != NoPieceType {
		flags |= FlagCapture
	}
	return pack(from, to, Pawn, captured, promo, flags)
}

// NewEnPassant builds an en-passant capture landing on the target square.
func NewEnPassant(from, to Square) Move {
	return pack(from, to, Pawn, Pawn, NoPieceType, FlagCapture|FlagEnPassant)
}

// NewCastle builds a castling move given as the king's from and to squares.
func NewCastle(from, to Square) Move {
	flag := FlagKingCastle
	if to < from {
		flag = FlagQueenCastle
	}
	return pack(from, to, King, NoPieceType, NoPieceType, flag)
}

// NewDoublePush builds a two-square pawn advance.
func NewDoublePush(from, to Square) Move {
	return pack(from, to, Pawn, NoPieceType, NoPieceType, FlagDoublePush)
}

func (m Move) From() Square           { return Square(m & 0x3F) }
func (m Move) To() Square             { return Square(m >> 6 & 0x3F) }
func (m Move) Piece() PieceType       { return PieceType(m >> 12 & 7) }
func (m Move) Captured() PieceType    { return PieceType(m >> 15 & 7) }
func (m Move) Promotion() PieceType   { return PieceType(m >> 18 & 7) }
func (m Move) Flags() Move            { return m & flagMask }
func (m Move) HasFlag(flag Move) bool { return m&flag != 0 }
func (m Move) IsCapture() bool        { return m&FlagCapture != 0 }
func (m Move) IsPromotion() bool      { return m&FlagPromotion != 0 }
func (m Move) IsEnPassant() bool      { return m&FlagEnPassant != 0 }
func (m Move) IsDoublePush() bool     { return m&FlagDoublePush != 0 }
func (m Move) IsCastling() bool       { return m&(FlagKingCastle|FlagQueenCastle) != 0 }
func (m Move) IsNull() bool           { return m&FlagNull != 0 }
func (m Move) IsQuiet() bool          { return m&(FlagCapture|FlagPromotion) == 0 }
func (m Move) IsTactical() bool       { return !m.IsQuiet() }
func epVictim(from, to Square) Square { return NewSquare(to.File(), from.Rank()) }

// Valid reports whether the fields and flags of m are mutually consistent.
// It does not consult a position.
func (m Move) Valid() bool {
	if m.IsNull() {
		return m == NullMove
	}
	from, to := m.From(), m.To()
	piece, captured, promo := m.Piece(), m.Captured(), m.Promotion()
	switch {
	case from == to, piece >= NoPieceType, captured == King, captured > NoPieceType, promo > NoPieceType:
		return false
	case m.IsCapture() != (captured != NoPieceType):
		return false
	case m.IsPromotion() != (promo != NoPieceType):
		return false
	}
	if m.IsPromotion() {
		if piece != Pawn || promo == Pawn || promo == King {
			return false
		}
		if r := to.Rank(); r != 0 && r != 7 {
			return false
		}
	}
	special := m & specialMask
	if special&(special-1) != 0 {
		return false
	}
	delta := int(to) - int(from)
	switch special {
	case FlagEnPassant:
		return piece == Pawn && captured == Pawn && absInt(delta) != 16 && to.File() != from.File()
	case FlagDoublePush:
		return piece == Pawn && !m.IsCapture() && absInt(delta) == 16
	case FlagKingCastle:
		return piece == King && !m.IsCapture() && delta == 2
	case FlagQueenCastle:
		return piece == King && !m.IsCapture() && delta == -2
	}
	return true
}

// String returns the UCI text of m, "0000" for NoMove and NullMove.
func (m Move) String() string {
	if m == NoMove || m.IsNull() {
		return "0000"
	}
	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		s += string(m.Promotion().Char())
	}
	return s
}

// ParseMove resolves UCI text against the legal moves of pos.
func ParseMove(s string, pos *Position) (Move, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 4 || len(s) > 5 {
		return NoMove, fmt.Errorf("%w: %q", ErrIllegalMove, s)
	}
	var ml MoveList
	pos.GenerateLegalMoves(&ml)
	for _, m := range ml.Slice() {
		if m.String() == s {
			return m, nil
		}
	}
	return NoMove, fmt.Errorf("%w: %s in %s", ErrIllegalMove, s, pos.FEN())
}

// MaxMoves bounds the number of moves in any position.
const MaxMoves = 256

// MoveList is a fixed-capacity move buffer.
type MoveList struct {
	moves [MaxMoves]Move
	count int
}

func (ml *MoveList) Add(m Move) {
	ml.moves[ml.count] = m
	ml.count++
}

func (ml *MoveList) Len() int          { return ml.count }
func (ml *MoveList) Get(i int) Move    { return ml.moves[i] }
func (ml *MoveList) Set(i int, m Move) { ml.moves[i] = m }
func (ml *MoveList) Swap(i, j int)     { ml.moves[i], ml.moves[j] = ml.moves[j], ml.moves[i] }
func (ml *MoveList) Clear()            { ml.count = 0 }
func (ml *MoveList) Slice() []Move     { return ml.moves[:ml.count] }
func (ml *MoveList) Truncate(n int)    { ml.count = n }

// Contains reports whether m is in the list.
func (ml *MoveList) Contains(m Move) bool {
	for _, x := range ml.Slice() {
		if x == m {
			return true
		}
	}
	return false
}
