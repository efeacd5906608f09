package board

import (
	"errors"
	"testing"
)

func TestFENRoundTrip(t *testing.T) {
	for _, fen := range oracleFENs {
		pos := mustFEN(t, fen)
		if got := pos.FEN(); got != fen {
			t.Errorf("FEN round trip:\n got %s\nwant %s", got, fen)
		}
	}
}

func TestParseFENCanonicalises(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		// No black pawn can take on e3.
		{"4k3/8/8/8/4P3/8/8/4K3 b - e3 0 1", "4k3/8/8/8/4P3/8/8/4K3 b - - 0 1"},
		// The h1 rook is missing.
		{"4k3/8/8/8/8/8/8/R3K3 w KQ - 0 1", "4k3/8/8/8/8/8/8/R3K3 w Q - 0 1"},
		// Clock fields are optional.
		{"4k3/8/8/8/8/8/8/4K3 w - -", "4k3/8/8/8/8/8/8/4K3 w - - 0 1"},
	}
	for _, tc := range tests {
		if got := mustFEN(t, tc.in).FEN(); got != tc.want {
			t.Errorf("ParseFEN(%q).FEN() = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseFENErrors(t *testing.T) {
	for _, fen := range []string{
		"",
		"8/8/8/8/8/8/8/8 w - - 0 1",
		"4k3/8/8/8/8/8/8/4K3 x - - 0 1",
		"4k3/8/8/8/8/8/8/4K3 w X - 0 1",
		"4k3/8/8/8/8/8/8/4K4 w - - 0 1",
		"4k3/8/8/8/8/8/8 w - - 0 1",
		"4k3/8/8/8/8/8/8/4KK2 w - - 0 1",
		"P3k3/8/8/8/8/8/8/4K3 w - - 0 1",
		"4k3/8/8/8/8/8/8/4K3 w - e4 0 1",
		"4k3/8/8/8/8/8/8/4K3 w - - -3 1",
		"4k3/4Q3/8/8/8/8/8/4K3 w - - 0 1",
	} {
		if _, err := ParseFEN(fen); !errors.Is(err, ErrInvalidFEN) {
			t.Errorf("ParseFEN(%q) error = %v, want ErrInvalidFEN", fen, err)
		}
	}
}

func TestParsedCacheIsConsistent(t *testing.T) {
	pos := mustFEN(t, kiwipeteFEN)
	if err := pos.Validate(); err != nil {
		t.Fatal(err)
	}
	if pos.Info.KingSquare[White] != E1 || pos.Info.KingSquare[Black] != E8 {
		t.Errorf("king squares = %v", pos.Info.KingSquare)
	}
	want := 2*PieceValue[Knight] + 2*PieceValue[Bishop] + 2*PieceValue[Rook] + PieceValue[Queen]
	if pos.NonPawnMaterial(White) != want || pos.NonPawnMaterial(Black) != want {
		t.Errorf("material = %v, want %d each", pos.Info.Material, want)
	}
}

func TestPinsAndCheckers(t *testing.T) {
	pos := mustFEN(t, "4k3/4r3/8/8/1b6/8/3NB3/4K3 w - - 0 1")
	if got := pos.PinnedPieces(White); got != SquareBB(D2)|SquareBB(E2) {
		t.Errorf("pinned =\n%s", got)
	}
	if got := pos.Info.Pinners[White]; got != SquareBB(E7)|SquareBB(B4) {
		t.Errorf("pinners =\n%s", got)
	}
	var ml MoveList
	pos.GenerateLegalMoves(&ml)
	for _, m := range ml.Slice() {
		if m.From() == D2 {
			t.Errorf("pinned knight moved: %s", m)
		}
		if m.From() == E2 && m.To().File() != 4 {
			t.Errorf("pinned bishop left the e-file: %s", m)
		}
	}

	check := mustFEN(t, "4k3/8/8/8/8/8/8/r3K3 w - - 0 1")
	if !check.InCheck() || check.Checkers() != SquareBB(A1) {
		t.Errorf("checkers =\n%s", check.Checkers())
	}
}

func TestInsufficientMaterial(t *testing.T) {
	tests := []struct {
		fen  string
		want bool
	}{
		{"4k3/8/8/8/8/8/8/4K3 w - - 0 1", true},
		{"4k3/8/8/8/8/8/8/4KN2 w - - 0 1", true},
		{"4k3/8/8/8/8/8/8/4KB2 w - - 0 1", true},
		{"4kb2/8/8/8/8/8/8/2B1K3 w - - 0 1", true},
		{"4k1b1/8/8/8/8/8/8/2B1K3 w - - 0 1", false},
		{"4k3/8/8/8/8/8/8/3NKN2 w - - 0 1", false},
		{"4k3/8/8/8/8/8/4P3/4K3 w - - 0 1", false},
	}
	for _, tc := range tests {
		if got := mustFEN(t, tc.fen).IsInsufficientMaterial(); got != tc.want {
			t.Errorf("%s: IsInsufficientMaterial = %v, want %v", tc.fen, got, tc.want)
		}
	}
}
