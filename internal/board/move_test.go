package board

import (
	"errors"
	"testing"
)

func TestMoveEncoding(t *testing.T) {
	tests := []struct {
		name     string
		m        Move
		from, to Square
		piece    PieceType
		captured PieceType
		promo    PieceType
		str      string
	}{
		{"quiet", NewMove(G1, F3, Knight), G1, F3, Knight, NoPieceType, NoPieceType, "g1f3"},
		{"capture", NewCapture(E4, D5, Pawn, Pawn), E4, D5, Pawn, Pawn, NoPieceType, "e4d5"},
		{"promotion", NewPromotion(A7, B8, Rook, Knight), A7, B8, Pawn, Rook, Knight, "a7b8n"},
		{"en passant", NewEnPassant(E5, D6), E5, D6, Pawn, Pawn, NoPieceType, "e5d6"},
		{"castle", NewCastle(E8, C8), E8, C8, King, NoPieceType, NoPieceType, "e8c8"},
		{"double push", NewDoublePush(C2, C4), C2, C4, Pawn, NoPieceType, NoPieceType, "c2c4"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := tc.m
			if !m.Valid() {
				t.Fatalf("%s is not valid", m)
			}
			if m.From() != tc.from || m.To() != tc.to || m.Piece() != tc.piece ||
				m.Captured() != tc.captured || m.Promotion() != tc.promo {
				t.Errorf("fields = %s %s %s %s %s", m.From(), m.To(), m.Piece(), m.Captured(), m.Promotion())
			}
			if m.String() != tc.str {
				t.Errorf("String = %q, want %q", m.String(), tc.str)
			}
		})
	}

	if !NewCastle(E1, G1).HasFlag(FlagKingCastle) || !NewCastle(E1, C1).HasFlag(FlagQueenCastle) {
		t.Error("castle side flag")
	}
	if !NewEnPassant(E5, D6).IsCapture() || NewDoublePush(C2, C4).IsTactical() {
		t.Error("capture classification")
	}
	if NoMove.String() != "0000" || NullMove.String() != "0000" || !NullMove.Valid() {
		t.Error("null move encoding")
	}
}

func TestMoveValidRejects(t *testing.T) {
	for name, m := range map[string]Move{
		"no move":              NoMove,
		"same square":          NewMove(E4, E4, Rook),
		"king capture":         NewCapture(D1, D8, Queen, King),
		"capture flag missing": NewMove(E4, D5, Pawn) | Move(Knight)<<15,
		"promotion to king":    NewPromotion(A7, A8, NoPieceType, King),
		"promotion mid board":  NewPromotion(A5, A6, NoPieceType, Queen),
		"two specials":         NewDoublePush(C2, C4) | FlagEnPassant,
		"short double push":    NewMove(C2, C3, Pawn) | FlagDoublePush,
	} {
		if m.Valid() {
			t.Errorf("%s: %#08x reported valid", name, uint32(m))
		}
	}
}

func TestParseMove(t *testing.T) {
	pos := mustFEN(t, kiwipeteFEN)
	m, err := ParseMove("e1g1", pos)
	if err != nil {
		t.Fatal(err)
	}
	if !m.IsCastling() {
		t.Errorf("e1g1 parsed as %#08x, want a castle", uint32(m))
	}
	for _, s := range []string{"e1e3", "a2a5", "zz", "e7e8q"} {
		if _, err := ParseMove(s, pos); !errors.Is(err, ErrIllegalMove) {
			t.Errorf("ParseMove(%q) error = %v, want ErrIllegalMove", s, err)
		}
	}
}

func TestSAN(t *testing.T) {
	tests := []struct {
		fen, uci, san string
	}{
		{StartFEN, "g1f3", "Nf3"},
		{StartFEN, "e2e4", "e4"},
		{kiwipeteFEN, "e1g1", "O-O"},
		{kiwipeteFEN, "e1c1", "O-O-O"},
		{kiwipeteFEN, "d5e6", "dxe6"},
		{kiwipeteFEN, "f3f6", "Qxf6"},
		{"4k3/8/8/8/8/8/8/R4R1K w - - 0 1", "a1d1", "Rad1"},
		{"4k3/8/8/8/8/R7/8/R3K3 w - - 0 1", "a1a2", "R1a2"},
		{"4k3/P7/8/8/8/8/8/4K3 w - - 0 1", "a7a8q", "a8=Q+"},
		{"6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1", "a1a8", "Ra8#"},
	}
	for _, tc := range tests {
		pos := mustFEN(t, tc.fen)
		m, err := ParseMove(tc.uci, pos)
		if err != nil {
			t.Fatal(err)
		}
		if got := m.SAN(pos); got != tc.san {
			t.Errorf("%s %s: SAN = %q, want %q", tc.fen, tc.uci, got, tc.san)
		}
		back, err := ParseSAN(tc.san, pos)
		if err != nil || back != m {
			t.Errorf("ParseSAN(%q) = %s, %v", tc.san, back, err)
		}
	}
}

func TestSANLine(t *testing.T) {
	pos := NewPosition()
	var moves []Move
	p := *pos
	for _, s := range []string{"e2e4", "e7e5", "d1h5", "b8c6", "f1c4", "g8f6", "h5f7"} {
		m, err := ParseMove(s, &p)
		if err != nil {
			t.Fatal(err)
		}
		moves = append(moves, m)
		p.ApplyMove(m, nil)
	}
	want := []string{"e4", "e5", "Qh5", "Nc6", "Bc4", "Nf6", "Qxf7#"}
	got := SANLine(pos, moves)
	if len(got) != len(want) {
		t.Fatalf("SANLine = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("move %d: %q, want %q", i, got[i], want[i])
		}
	}
	if !p.IsCheckmate() {
		t.Error("scholar's mate should be mate")
	}
	if short := SANLine(pos, moves[1:]); len(short) != 0 {
		t.Errorf("SANLine from the wrong side = %v, want empty", short)
	}
}
