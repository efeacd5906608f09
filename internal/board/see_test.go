package board

import "testing"

func TestSeeGE(t *testing.T) {
	tests := []struct {
		name      string
		fen       string
		move      string
		m         Move
		threshold int
		want      bool
	}{
		{"free pawn", "1k1r4/1pp4p/p7/4p3/8/P5P1/1PP4P/2K1R3 w - - 0 1", "e1e5", NoMove, 0, true},
		{"free pawn exact", "1k1r4/1pp4p/p7/4p3/8/P5P1/1PP4P/2K1R3 w - - 0 1", "e1e5", NoMove, 100, true},
		{"free pawn above", "1k1r4/1pp4p/p7/4p3/8/P5P1/1PP4P/2K1R3 w - - 0 1", "e1e5", NoMove, 101, false},
		{"losing knight sortie", "1k1r3q/1ppn3p/p4b2/4p3/8/P2N2P1/1PP1R1BP/2K1Q3 w - - 0 1", "d3e5", NoMove, 0, false},
		{"losing knight sortie margin", "1k1r3q/1ppn3p/p4b2/4p3/8/P2N2P1/1PP1R1BP/2K1Q3 w - - 0 1", "d3e5", NoMove, -250, true},
		{"pawn takes defended knight", "4k3/8/4p3/3n4/4P3/8/8/4K3 w - - 0 1", "e4d5", NoMove, 200, true},
		{"pawn takes defended knight above", "4k3/8/4p3/3n4/4P3/8/8/4K3 w - - 0 1", "e4d5", NoMove, 300, false},
		{"queen takes defended pawn", "4k3/8/2p5/3p4/8/8/8/3QK3 w - - 0 1", "d1d5", NoMove, 0, false},
		{"queen takes defended pawn floor", "4k3/8/2p5/3p4/8/8/8/3QK3 w - - 0 1", "d1d5", NoMove, -900, true},
		{"en passant", "4k3/8/8/3pP3/8/8/8/4K3 w - d6 0 1", "e5d6", NoMove, 100, true},
		{"knight to safe square", "4k3/8/8/2p5/8/8/8/1N2K3 w - - 0 1", "b1c3", NoMove, 0, true},
		{"knight to rim", "4k3/8/8/2p5/8/8/8/1N2K3 w - - 0 1", "b1a3", NoMove, 0, true},
		{"knight into pawn", "4k3/8/8/2p5/8/8/3N4/4K3 w - - 0 1", "d2b3", NoMove, 0, true},
		{"knight into pawn attack", "4k3/8/8/8/2p5/8/3N4/4K3 w - - 0 1", "d2b3", NoMove, 0, false},
		{"king cannot recapture defended", "4k3/8/8/8/8/3r4/3r4/4K3 w - - 0 1", "", NewCapture(E1, D2, King, Rook), 0, false},
		{"king recaptures undefended", "4k3/8/8/8/8/8/3r4/4K3 w - - 0 1", "e1d2", NoMove, 500, true},
		{"promotion", "4k3/P7/8/8/8/8/8/4K3 w - - 0 1", "a7a8q", NoMove, 800, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pos := mustFEN(t, tc.fen)
			m := tc.m
			if tc.move != "" {
				var err error
				if m, err = ParseMove(tc.move, pos); err != nil {
					t.Fatal(err)
				}
			}
			if got := pos.SeeGE(m, tc.threshold); got != tc.want {
				t.Errorf("SeeGE(%s, %d) = %v, want %v", m, tc.threshold, got, tc.want)
			}
		})
	}
}
