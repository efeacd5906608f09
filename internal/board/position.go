package board

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvariant reports corrupted internal state. Apply panics with it.
	ErrInvariant = errors.New("board invariant violated")
	// ErrInvalidFEN wraps every FEN parsing failure.
	ErrInvalidFEN = errors.New("invalid FEN")
	// ErrIllegalMove is returned when move text does not match a legal move.
	ErrIllegalMove = errors.New("illegal move")
)

// CastlingRights is a set of the four castling permissions.
type CastlingRights uint8

const (
	WhiteKingSideCastle CastlingRights = 1 << iota
	WhiteQueenSideCastle
	BlackKingSideCastle
	BlackQueenSideCastle

	NoCastling  CastlingRights = 0
	AllCastling                = WhiteKingSideCastle | WhiteQueenSideCastle | BlackKingSideCastle | BlackQueenSideCastle
)

func (cr CastlingRights) String() string {
	if cr&AllCastling == 0 {
		return "-"
	}
	var sb strings.Builder
	for i, ch := range "KQkq" {
		if cr&(1<<i) != 0 {
			sb.WriteRune(ch)
		}
	}
	return sb.String()
}

// CanCastle reports whether c keeps the right to castle on the given wing.
func (cr CastlingRights) CanCastle(c Color, kingSide bool) bool {
	right := WhiteKingSideCastle
	if !kingSide {
		right = WhiteQueenSideCastle
	}
	return cr&(right<<(2*c)) != 0
}

// castleMask[sq] is ANDed into the rights whenever a move touches sq.
var castleMask = func() (m [64]CastlingRights) {
	for sq := range m {
		m[sq] = AllCastling
	}
	m[E1] &^= WhiteKingSideCastle | WhiteQueenSideCastle
	m[H1] &^= WhiteKingSideCastle
	m[A1] &^= WhiteQueenSideCastle
	m[E8] &^= BlackKingSideCastle | BlackQueenSideCastle
	m[H8] &^= BlackKingSideCastle
	m[A8] &^= BlackQueenSideCastle
	return m
}()

// InfoCache is state derived from the piece sets. Apply and Undo keep it
// equal to a full recompute.
type InfoCache struct {
	Colors     [2]Bitboard
	Types      [6]Bitboard
	All        Bitboard
	KingSquare [2]Square

	// Checkers[c] are the enemy pieces attacking c's king.
	Checkers [2]Bitboard
	// Blockers[c] are pieces of either colour that alone shield c's king from a slider.
	Blockers [2]Bitboard
	// Pinners[c] are enemy sliders whose only blocker toward c's king is c's own piece.
	Pinners [2]Bitboard

	// Material is non-pawn material per side in centipawns.
	Material [2]int

	Hash    uint64
	PawnKey uint64
}

// Position is a complete game state.
type Position struct {
	Pieces [2][6]Bitboard

	SideToMove     Color
	CastlingRights CastlingRights
	EnPassant      Square
	HalfMoveClock  int
	FullMoveNumber int

	Info InfoCache
}

// NewPosition returns the standard starting position.
func NewPosition() *Position {
	pos, err := ParseFEN(StartFEN)
	if err != nil {
		panic(err)
	}
	return pos
}

// Copy returns an independent copy.
func (p *Position) Copy() *Position {
	c := *p
	return &c
}

// Hash returns the zobrist key of the position.
func (p *Position) Hash() uint64 {
	return p.Info.Hash
}

// Occupied returns the squares held by colour c.
func (p *Position) Occupied(c Color) Bitboard {
	return p.Info.Colors[c]
}

// PieceAt returns the piece on sq, or NoPiece.
func (p *Position) PieceAt(sq Square) Piece {
	b := SquareBB(sq)
	if p.Info.All&b == 0 {
		return NoPiece
	}
	c := White
	if p.Info.Colors[Black]&b != 0 {
		c = Black
	}
	for pt := Pawn; pt <= King; pt++ {
		if p.Info.Types[pt]&b != 0 {
			return NewPiece(pt, c)
		}
	}
	return NoPiece
}

// TypeAt returns the piece type on sq, or NoPieceType.
func (p *Position) TypeAt(sq Square) PieceType {
	return p.PieceAt(sq).Type()
}

func (p *Position) IsEmpty(sq Square) bool {
	return !p.Info.All.IsSet(sq)
}

// InCheck reports whether the side to move is in check.
func (p *Position) InCheck() bool {
	return p.Info.Checkers[p.SideToMove] != 0
}

// Checkers returns the pieces giving check to the side to move.
func (p *Position) Checkers() Bitboard {
	return p.Info.Checkers[p.SideToMove]
}

// PinnedPieces returns c's pieces pinned to c's king.
func (p *Position) PinnedPieces(c Color) Bitboard {
	return p.Info.Blockers[c] & p.Info.Colors[c]
}

func (p *Position) NonPawnMaterial(c Color) int {
	return p.Info.Material[c]
}

// HasNonPawnMaterial reports whether c owns anything besides king and pawns.
func (p *Position) HasNonPawnMaterial(c Color) bool {
	return p.Info.Material[c] > 0
}

// GamePly counts half-moves since the start of the game.
func (p *Position) GamePly() int {
	return (p.FullMoveNumber-1)*2 + int(p.SideToMove)
}

// IsInsufficientMaterial reports positions where no sequence of legal moves
// can mate: bare kings, a single minor piece, or bishops all on one colour.
func (p *Position) IsInsufficientMaterial() bool {
	t := &p.Info.Types
	if t[Pawn]|t[Rook]|t[Queen] != 0 {
		return false
	}
	minors := t[Knight] | t[Bishop]
	if !minors.More() {
		return true
	}
	if t[Knight] != 0 {
		return false
	}
	return t[Bishop]&LightSquares == 0 || t[Bishop]&DarkSquares == 0
}

// refresh recomputes the whole InfoCache from the piece sets.
func (p *Position) refresh() {
	var in InfoCache
	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			b := p.Pieces[c][pt]
			in.Colors[c] |= b
			in.Types[pt] |= b
			if pt != Pawn && pt != King {
				in.Material[c] += b.PopCount() * PieceValue[pt]
			}
		}
		in.KingSquare[c] = p.Pieces[c][King].LSB()
	}
	in.All = in.Colors[White] | in.Colors[Black]
	p.Info = in
	p.Info.Hash = p.ComputeHash()
	p.Info.PawnKey = p.ComputePawnKey()
	p.updateKingInfo()
}

// updateKingInfo recomputes checkers, blockers and pinners for both kings.
func (p *Position) updateKingInfo() {
	for c := White; c <= Black; c++ {
		ksq := p.Info.KingSquare[c]
		if ksq == NoSquare {
			p.Info.Checkers[c], p.Info.Blockers[c], p.Info.Pinners[c] = 0, 0, 0
			continue
		}
		p.Info.Checkers[c] = p.AttackersByColor(ksq, c.Other(), p.Info.All)
		p.Info.Blockers[c], p.Info.Pinners[c] = p.sliderBlockers(c, ksq)
	}
}

func (p *Position) sliderBlockers(c Color, ksq Square) (blockers, pinners Bitboard) {
	them := &p.Pieces[c.Other()]
	snipers := RookAttacks(ksq, Empty)&(them[Rook]|them[Queen]) |
		BishopAttacks(ksq, Empty)&(them[Bishop]|them[Queen])
	occ := p.Info.All &^ snipers
	for snipers != 0 {
		s := snipers.PopLSB()
		b := Between(ksq, s) & occ
		if b != 0 && !b.More() {
			blockers |= b
			if b&p.Info.Colors[c] != 0 {
				pinners = pinners.Set(s)
			}
		}
	}
	return blockers, pinners
}

// Validate checks the structural rules of the position and that the
// InfoCache matches a recompute from the piece sets.
func (p *Position) Validate() error {
	var seen Bitboard
	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			if seen&p.Pieces[c][pt] != 0 {
				return fmt.Errorf("%w: overlapping piece sets for %s %s", ErrInvariant, c, pt)
			}
			seen |= p.Pieces[c][pt]
		}
		if n := p.Pieces[c][King].PopCount(); n != 1 {
			return fmt.Errorf("%w: %s has %d kings", ErrInvariant, c, n)
		}
	}
	if (p.Pieces[White][Pawn]|p.Pieces[Black][Pawn])&(Rank1|Rank8) != 0 {
		return fmt.Errorf("%w: pawn on a back rank", ErrInvariant)
	}
	if p.EnPassant != NoSquare && p.EnPassant.RelativeRank(p.SideToMove) != 5 {
		return fmt.Errorf("%w: en-passant square %s on wrong rank", ErrInvariant, p.EnPassant)
	}

	want := *p
	want.refresh()
	got := &p.Info
	switch {
	case got.Colors != want.Info.Colors || got.Types != want.Info.Types || got.All != want.Info.All:
		return fmt.Errorf("%w: occupancy out of sync", ErrInvariant)
	case got.KingSquare != want.Info.KingSquare:
		return fmt.Errorf("%w: king squares %v, want %v", ErrInvariant, got.KingSquare, want.Info.KingSquare)
	case got.Material != want.Info.Material:
		return fmt.Errorf("%w: material %v, want %v", ErrInvariant, got.Material, want.Info.Material)
	case got.Hash != want.Info.Hash:
		return fmt.Errorf("%w: hash %016x, want %016x", ErrInvariant, got.Hash, want.Info.Hash)
	case got.PawnKey != want.Info.PawnKey:
		return fmt.Errorf("%w: pawn key %016x, want %016x", ErrInvariant, got.PawnKey, want.Info.PawnKey)
	case got.Checkers != want.Info.Checkers:
		return fmt.Errorf("%w: checkers out of sync", ErrInvariant)
	case got.Blockers != want.Info.Blockers || got.Pinners != want.Info.Pinners:
		return fmt.Errorf("%w: pin information out of sync", ErrInvariant)
	}
	if want.Info.Checkers[p.SideToMove.Other()] != 0 {
		return fmt.Errorf("%w: side not to move is in check", ErrInvariant)
	}
	return nil
}

func (p *Position) String() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		fmt.Fprintf(&sb, "%d ", rank+1)
		for file := 0; file < 8; file++ {
			pc := p.PieceAt(NewSquare(file, rank))
			if pc == NoPiece {
				sb.WriteString(" .")
			} else {
				sb.WriteString(" " + pc.String())
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("   a b c d e f g h\n")
	fmt.Fprintf(&sb, "fen: %s\nkey: %016x\n", p.FEN(), p.Info.Hash)
	return sb.String()
}
