package board

import (
	"fmt"
	"strings"
)

// SAN renders a legal move of pos in standard algebraic notation, with a
// check or mate suffix.
func (m Move) SAN(pos *Position) string {
	if m == NoMove || m.IsNull() {
		return "--"
	}
	var sb strings.Builder
	switch {
	case m.HasFlag(FlagKingCastle):
		sb.WriteString("O-O")
	case m.HasFlag(FlagQueenCastle):
		sb.WriteString("O-O-O")
	default:
		pt := m.Piece()
		if pt != Pawn {
			sb.WriteByte("PNBRQK"[pt])
			sb.WriteString(disambiguation(pos, m))
		} else if m.IsCapture() {
			sb.WriteByte(byte('a' + m.From().File()))
		}
		if m.IsCapture() {
			sb.WriteByte('x')
		}
		sb.WriteString(m.To().String())
		if m.IsPromotion() {
			sb.WriteByte('=')
			sb.WriteByte("PNBRQK"[m.Promotion()])
		}
	}

	after := *pos
	after.ApplyMove(m, nil)
	if after.InCheck() {
		if after.HasLegalMoves() {
			sb.WriteByte('+')
		} else {
			sb.WriteByte('#')
		}
	}
	return sb.String()
}

// disambiguation returns the origin file, rank or square needed to tell m
// apart from other legal moves of the same piece type to the same square.
func disambiguation(pos *Position, m Move) string {
	var ml MoveList
	pos.GenerateLegalMoves(&ml)
	from := m.From()
	var rivals []Square
	for _, o := range ml.Slice() {
		if o.To() == m.To() && o.Piece() == m.Piece() && o.From() != from {
			rivals = append(rivals, o.From())
		}
	}
	if len(rivals) == 0 {
		return ""
	}
	fileClash, rankClash := false, false
	for _, sq := range rivals {
		fileClash = fileClash || sq.File() == from.File()
		rankClash = rankClash || sq.Rank() == from.Rank()
	}
	switch {
	case !fileClash:
		return from.String()[:1]
	case !rankClash:
		return from.String()[1:]
	}
	return from.String()
}

// ParseSAN resolves algebraic notation against the legal moves of pos.
func ParseSAN(s string, pos *Position) (Move, error) {
	var ml MoveList
	pos.GenerateLegalMoves(&ml)
	want := strings.TrimRight(strings.TrimSpace(s), "+#!?")
	want = strings.ReplaceAll(want, "0", "O")
	for _, m := range ml.Slice() {
		if strings.TrimRight(m.SAN(pos), "+#") == want {
			return m, nil
		}
	}
	return NoMove, fmt.Errorf("%w: %q in %s", ErrIllegalMove, s, pos.FEN())
}

// SANLine renders a move sequence starting at pos. It stops at the first
// move that is not legal in the running position.
func SANLine(pos *Position, moves []Move) []string {
	p := *pos
	out := make([]string, 0, len(moves))
	for _, m := range moves {
		var ml MoveList
		p.GenerateLegalMoves(&ml)
		if !ml.Contains(m) {
			break
		}
		out = append(out, m.SAN(&p))
		p.ApplyMove(m, nil)
	}
	return out
}
