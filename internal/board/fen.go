package board

import (
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ParseFEN reads a position in Forsyth-Edwards notation. The clock fields are
// optional. Castling rights whose king or rook is not home, and en-passant
// targets no pawn can capture onto, are dropped. Every error wraps ErrInvalidFEN.
func ParseFEN(fen string) (*Position, error) {
	Init()
	fields := strings.Fields(fen)
	if len(fields) < 4 || len(fields) > 6 {
		return nil, fmt.Errorf("%w: want 4 to 6 fields, got %d", ErrInvalidFEN, len(fields))
	}

	p := &Position{EnPassant: NoSquare, FullMoveNumber: 1}
	if err := p.parsePlacement(fields[0]); err != nil {
		return nil, err
	}

	switch fields[1] {
	case "w":
		p.SideToMove = White
	case "b":
		p.SideToMove = Black
	default:
		return nil, fmt.Errorf("%w: side to move %q", ErrInvalidFEN, fields[1])
	}

	if fields[2] != "-" {
		for _, ch := range fields[2] {
			i := strings.IndexRune("KQkq", ch)
			if i < 0 {
				return nil, fmt.Errorf("%w: castling flag %q", ErrInvalidFEN, ch)
			}
			p.CastlingRights |= 1 << i
		}
	}

	if fields[3] != "-" {
		sq, err := ParseSquare(fields[3])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFEN, err)
		}
		if sq.RelativeRank(p.SideToMove) != 5 {
			return nil, fmt.Errorf("%w: en-passant square %s on wrong rank", ErrInvalidFEN, sq)
		}
		p.EnPassant = sq
	}

	for i, dst := range []*int{&p.HalfMoveClock, &p.FullMoveNumber} {
		if len(fields) <= 4+i {
			break
		}
		n, err := strconv.Atoi(fields[4+i])
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: counter %q", ErrInvalidFEN, fields[4+i])
		}
		*dst = n
	}
	if p.FullMoveNumber < 1 {
		p.FullMoveNumber = 1
	}

	p.sanitize()
	p.refresh()
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFEN, err)
	}
	return p, nil
}

func (p *Position) parsePlacement(s string) error {
	ranks := strings.Split(s, "/")
	if len(ranks) != 8 {
		return fmt.Errorf("%w: want 8 ranks, got %d", ErrInvalidFEN, len(ranks))
	}
	for i, row := range ranks {
		rank, file := 7-i, 0
		for j := 0; j < len(row); j++ {
			ch := row[j]
			if ch >= '1' && ch <= '8' {
				file += int(ch - '0')
				continue
			}
			pc := PieceFromChar(ch)
			if pc == NoPiece {
				return fmt.Errorf("%w: piece %q", ErrInvalidFEN, ch)
			}
			if file > 7 {
				return fmt.Errorf("%w: rank %d overflows", ErrInvalidFEN, rank+1)
			}
			p.Pieces[pc.Color()][pc.Type()] |= SquareBB(NewSquare(file, rank))
			file++
		}
		if file != 8 {
			return fmt.Errorf("%w: rank %d has %d files", ErrInvalidFEN, rank+1, file)
		}
	}
	return nil
}

func (p *Position) sanitize() {
	for c := White; c <= Black; c++ {
		for i := range castlePaths[c] {
			cp := &castlePaths[c][i]
			if !p.Pieces[c][King].IsSet(cp.kingFrom) || !p.Pieces[c][Rook].IsSet(cp.rookFrom) {
				p.CastlingRights &^= cp.right
			}
		}
	}
	if ep := p.EnPassant; ep != NoSquare {
		us, them := p.SideToMove, p.SideToMove.Other()
		pushed := ep
		if them == White {
			pushed += 8
		} else {
			pushed -= 8
		}
		if !p.Pieces[them][Pawn].IsSet(pushed) || pawnAttacks[them][ep]&p.Pieces[us][Pawn] == 0 {
			p.EnPassant = NoSquare
		}
	}
}

// FEN renders the position in Forsyth-Edwards notation.
func (p *Position) FEN() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		gap := 0
		for file := 0; file < 8; file++ {
			pc := p.PieceAt(NewSquare(file, rank))
			if pc == NoPiece {
				gap++
				continue
			}
			if gap > 0 {
				sb.WriteByte(byte('0' + gap))
				gap = 0
			}
			sb.WriteString(pc.String())
		}
		if gap > 0 {
			sb.WriteByte(byte('0' + gap))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}
	side := "w"
	if p.SideToMove == Black {
		side = "b"
	}
	fmt.Fprintf(&sb, " %s %s %s %d %d", side, p.CastlingRights, p.EnPassant, p.HalfMoveClock, p.FullMoveNumber)
	return sb.String()
}
