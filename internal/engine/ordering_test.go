package engine

import (
	"testing"

	"github.com/hailam/chesscore/internal/board"
)

func drain(mp *movePicker) (moves []board.Move, scores []int) {
	for {
		m, s, ok := mp.next()
		if !ok {
			return moves, scores
		}
		moves = append(moves, m)
		scores = append(scores, s)
	}
}

func TestMainPickerOrder(t *testing.T) {
	initTables()
	pos := mustFEN(t, kiwipeteFEN)
	var ml board.MoveList
	pos.GeneratePseudoLegalMoves(&ml)
	total := ml.Len()

	h := NewHistory()
	ttMove, _ := board.ParseMove("e2a6", pos) // bishop takes bishop
	killer, _ := board.ParseMove("a2a3", pos) // quiet
	quiet, _ := board.ParseMove("g2g3", pos)  // quiet with history
	h.killers[3][0] = killer
	h.add(board.White, quiet, 500)

	var scores [board.MaxMoves]int
	mp := newMainPicker(pos, &ml, &scores, h, 3, ttMove, board.NoMove)
	moves, order := drain(&mp)

	if len(moves) != total {
		t.Fatalf("picker returned %d moves, want %d", len(moves), total)
	}
	if moves[0] != ttMove {
		t.Errorf("first move %v, want hash move %v", moves[0], ttMove)
	}
	for i := 1; i < len(order); i++ {
		if order[i] > order[i-1] {
			t.Fatalf("score rises at %d: %d after %d", i, order[i], order[i-1])
		}
	}

	seen := map[board.Move]bool{}
	idx := map[board.Move]int{}
	for i, m := range moves {
		if seen[m] {
			t.Errorf("move %v returned twice", m)
		}
		seen[m] = true
		idx[m] = i
	}
	if idx[killer] > idx[quiet] {
		t.Errorf("killer after history move")
	}
	// Every good capture comes before the killer.
	for i, m := range moves {
		if m.IsCapture() && order[i] >= goodCaptureBase && i > idx[killer] {
			t.Errorf("good capture %v after the killer", m)
		}
	}
}

func TestQuiescencePickerSorted(t *testing.T) {
	initTables()
	pos := mustFEN(t, kiwipeteFEN)
	var ml board.MoveList
	pos.GenerateCaptures(&ml)
	var scores [board.MaxMoves]int
	mp := newQuiescencePicker(pos, &ml, &scores, NewHistory())
	moves, order := drain(&mp)
	if len(moves) == 0 {
		t.Fatal("no captures in kiwipete")
	}
	for i := 1; i < len(order); i++ {
		if order[i] > order[i-1] {
			t.Fatalf("score rises at %d", i)
		}
	}
	for _, m := range moves {
		if m.IsQuiet() {
			t.Errorf("quiet move %v in capture list", m)
		}
	}
}

func TestTacticalScore(t *testing.T) {
	initTables()
	// d5 is defended by c6.
	pos := mustFEN(t, "4k3/8/2p5/3p4/4P3/8/8/3QK3 w - - 0 1")
	pxp, err := board.ParseMove("e4d5", pos)
	if err != nil {
		t.Fatal(err)
	}
	qxp, err := board.ParseMove("d1d5", pos)
	if err != nil {
		t.Fatal(err)
	}
	if s := tacticalScore(pos, pxp); s < goodCaptureBase {
		t.Errorf("pawn trade scored %d, want a good capture", s)
	}
	if s := tacticalScore(pos, qxp); s >= 0 {
		t.Errorf("losing queen capture scored %d, want negative", s)
	}
}

func TestHistoryUpdate(t *testing.T) {
	h := NewHistory()
	pos := board.NewPosition()
	best, _ := board.ParseMove("g1f3", pos)
	tried, _ := board.ParseMove("a2a3", pos)
	prev := board.NewDoublePush(board.E7, board.E5)

	h.update(board.White, 2, 4, prev, best, []board.Move{tried, best})
	if got := h.score(board.White, best); got != 16 {
		t.Errorf("best history = %d, want 16", got)
	}
	if got := h.score(board.White, tried); got != -16 {
		t.Errorf("tried history = %d, want -16", got)
	}
	if h.killers[2][0] != best {
		t.Errorf("killer = %v, want %v", h.killers[2][0], best)
	}
	if got := h.counter(board.White, prev); got != best {
		t.Errorf("counter = %v, want %v", got, best)
	}

	// A second cutoff shifts the first killer into the second slot.
	other, _ := board.ParseMove("b1c3", pos)
	h.update(board.White, 2, 1, prev, other, nil)
	if h.killers[2] != [2]board.Move{other, best} {
		t.Errorf("killers = %v", h.killers[2])
	}

	h.age()
	if h.killers[2][0] != board.NoMove {
		t.Error("age kept killers")
	}
	if got := h.score(board.White, best); got != 8 {
		t.Errorf("aged history = %d, want 8", got)
	}
}

func TestHistoryOverflowHalves(t *testing.T) {
	h := NewHistory()
	m := board.NewMove(board.G1, board.F3, board.Knight)
	other := board.NewMove(board.B1, board.C3, board.Knight)
	h.add(board.White, other, 1000)
	h.add(board.White, m, historyMax-1)
	h.add(board.White, m, 1)
	if got := h.score(board.White, m); got != historyMax/2 {
		t.Errorf("history after overflow = %d, want %d", got, historyMax/2)
	}
	if got := h.score(board.White, other); got != 500 {
		t.Errorf("other history = %d, want 500", got)
	}
	if got := h.score(board.Black, m); got != 0 {
		t.Errorf("black history = %d, want 0", got)
	}
}
