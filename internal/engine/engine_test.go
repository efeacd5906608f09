package engine

import (
	"context"
	"testing"
	"time"

	"github.com/notnil/chess"

	"github.com/hailam/chesscore/internal/board"
)

func newTestEngine(opts ...func(*Options)) *Engine {
	o := DefaultOptions()
	o.HashMB = 4
	for _, f := range opts {
		f(&o)
	}
	return New(o)
}

// assertLegalPV replays pv from fen with an independent move generator.
func assertLegalPV(t *testing.T, fen string, pv []board.Move) {
	t.Helper()
	opt, err := chess.FEN(fen)
	if err != nil {
		t.Fatalf("chess.FEN(%q): %v", fen, err)
	}
	game := chess.NewGame(opt, chess.UseNotation(chess.UCINotation{}))
	for i, m := range pv {
		if err := game.MoveStr(m.String()); err != nil {
			t.Fatalf("PV move %d (%v) illegal after %v: %v", i, m, pv[:i], err)
		}
	}
}

func TestSearchStartPosition(t *testing.T) {
	e := newTestEngine()
	pos := board.NewPosition()
	before := pos.FEN()

	res := e.Search(context.Background(), pos, Limits{Depth: 5}, nil)
	if res.BestMove == board.NoMove {
		t.Fatal("no move from the start position")
	}
	if pos.FEN() != before {
		t.Errorf("search mutated the position: %s", pos.FEN())
	}
	if res.Depth != 5 || res.Nodes == 0 {
		t.Errorf("depth %d nodes %d", res.Depth, res.Nodes)
	}
	if res.PV[0] != res.BestMove {
		t.Errorf("PV %v does not start with %v", res.PV, res.BestMove)
	}
	if len(res.PV) > 1 && res.Ponder != res.PV[1] {
		t.Errorf("ponder %v, want %v", res.Ponder, res.PV[1])
	}
	assertLegalPV(t, board.StartFEN, res.PV)
}

func TestMateInOne(t *testing.T) {
	fen := "6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1"
	e := newTestEngine()
	res := e.Search(context.Background(), mustFEN(t, fen), Limits{Depth: 6}, nil)
	if got := res.BestMove.String(); got != "a1a8" {
		t.Errorf("best move %s, want a1a8", got)
	}
	if MateIn(res.Score) != 1 {
		t.Errorf("score %s, want mate in 1", ScoreString(res.Score))
	}
}

func TestMateInTwo(t *testing.T) {
	fen := "kbK5/pp6/1P6/8/8/8/8/R7 w - - 0 1"
	e := newTestEngine()
	res := e.Search(context.Background(), mustFEN(t, fen), Limits{Depth: 8}, nil)
	if got := res.BestMove.String(); got != "a1a6" {
		t.Errorf("best move %s, want a1a6", got)
	}
	if MateIn(res.Score) != 2 {
		t.Errorf("score %s, want mate in 2", ScoreString(res.Score))
	}
	assertLegalPV(t, fen, res.PV)
}

func TestMatedRoot(t *testing.T) {
	tests := []struct {
		fen   string
		score int
	}{
		{"R6k/6pp/8/8/8/8/8/K7 b - - 0 1", -MateScore},
		{"7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", 0},
	}
	e := newTestEngine()
	for _, tt := range tests {
		res := e.Search(context.Background(), mustFEN(t, tt.fen), Limits{Depth: 3}, nil)
		if res.BestMove != board.NoMove || res.Score != tt.score {
			t.Errorf("%s: got %v/%d, want no move/%d", tt.fen, res.BestMove, res.Score, tt.score)
		}
	}
}

func TestSearchDeterministic(t *testing.T) {
	pos := mustFEN(t, kiwipeteFEN)
	a := newTestEngine().Search(context.Background(), pos, Limits{Depth: 5}, nil)
	b := newTestEngine().Search(context.Background(), pos, Limits{Depth: 5}, nil)
	if a.BestMove != b.BestMove || a.Score != b.Score || a.Nodes != b.Nodes {
		t.Errorf("runs differ: %v/%d/%d vs %v/%d/%d", a.BestMove, a.Score, a.Nodes, b.BestMove, b.Score, b.Nodes)
	}
}

func TestMultiPV(t *testing.T) {
	e := newTestEngine(func(o *Options) { o.MultiPV = 3 })
	var infos []Info
	res := e.Search(context.Background(), mustFEN(t, kiwipeteFEN), Limits{Depth: 4}, func(i Info) {
		infos = append(infos, i)
	})

	if len(res.Lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(res.Lines))
	}
	for i, l := range res.Lines {
		for j := 0; j < i; j++ {
			if res.Lines[j].Move == l.Move {
				t.Errorf("lines %d and %d share %v", j, i, l.Move)
			}
		}
		if i > 0 && l.Score > res.Lines[i-1].Score {
			t.Errorf("line %d (%d) above line %d (%d)", i, l.Score, i-1, res.Lines[i-1].Score)
		}
		assertLegalPV(t, kiwipeteFEN, l.PV)
	}
	if res.BestMove != res.Lines[0].Move {
		t.Errorf("best move %v is not line 1 (%v)", res.BestMove, res.Lines[0].Move)
	}

	if len(infos) != 4 {
		t.Fatalf("got %d info reports, want 4", len(infos))
	}
	for i, info := range infos {
		if info.Depth != i+1 || len(info.Lines) != 3 {
			t.Errorf("info %d: depth %d with %d lines", i, info.Depth, len(info.Lines))
		}
		if i > 0 && info.Nodes < infos[i-1].Nodes {
			t.Errorf("node count fell at depth %d", info.Depth)
		}
	}
}

func TestNodeLimit(t *testing.T) {
	e := newTestEngine()
	res := e.Search(context.Background(), board.NewPosition(), Limits{Nodes: 5000}, nil)
	if res.Nodes > 5000 {
		t.Errorf("searched %d nodes with a cap of 5000", res.Nodes)
	}
	if res.BestMove == board.NoMove {
		t.Error("no move under a node limit")
	}
}

func TestMoveTime(t *testing.T) {
	e := newTestEngine()
	start := time.Now()
	res := e.Search(context.Background(), mustFEN(t, kiwipeteFEN), Limits{MoveTime: 100 * time.Millisecond}, nil)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("100ms search took %v", elapsed)
	}
	if res.BestMove == board.NoMove {
		t.Error("no move under a time limit")
	}
}

func TestStopInfinite(t *testing.T) {
	e := newTestEngine()
	pos := board.NewPosition()
	e.Go(context.Background(), pos, Limits{Infinite: true}, nil)
	time.Sleep(100 * time.Millisecond)
	e.Stop()

	done := make(chan Result)
	go func() { done <- e.Wait() }()
	select {
	case res := <-done:
		if res.BestMove == board.NoMove {
			t.Error("stopped search has no move")
		}
		assertLegalPV(t, board.StartFEN, res.PV)
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not end an infinite search")
	}
}

func TestContextCancel(t *testing.T) {
	e := newTestEngine()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	res := e.Search(ctx, board.NewPosition(), Limits{Infinite: true}, nil)
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("cancelled search ran for %v", elapsed)
	}
	if res.BestMove == board.NoMove {
		t.Error("cancelled search has no move")
	}
}

func TestGoWaitsForPrevious(t *testing.T) {
	e := newTestEngine()
	e.Go(context.Background(), board.NewPosition(), Limits{Depth: 4}, nil)
	// A second search joins the first before starting.
	res := e.Search(context.Background(), mustFEN(t, kiwipeteFEN), Limits{Depth: 3}, nil)
	if res.Depth != 3 {
		t.Errorf("depth %d, want 3", res.Depth)
	}
	assertLegalPV(t, kiwipeteFEN, res.PV)
	if again := e.Wait(); again.BestMove != res.BestMove {
		t.Error("Wait without a search does not return the last result")
	}
}

func TestSkillSeeded(t *testing.T) {
	opts := func(o *Options) { o.SkillLevel = 1; o.SkillSeed = 42 }
	pos := mustFEN(t, kiwipeteFEN)
	for i := 0; i < 3; i++ {
		a := newTestEngine(opts).SearchBestMove(pos, Limits{Depth: 4})
		b := newTestEngine(opts).SearchBestMove(pos, Limits{Depth: 4})
		if a != b {
			t.Fatalf("seeded skill differs: %v vs %v", a, b)
		}
	}

	e := newTestEngine(opts)
	res := e.Search(context.Background(), pos, Limits{Depth: 10}, nil)
	// Level 1 caps the search at depth 2 and still reports a single line.
	if res.Depth > 2 || len(res.Lines) != 1 {
		t.Errorf("depth %d with %d lines", res.Depth, len(res.Lines))
	}
	assertLegalPV(t, kiwipeteFEN, res.PV)
}

func TestSetGameHistoryAvoidsRepetition(t *testing.T) {
	// White is a rook up. Returning the king to g1 repeats the game's
	// earlier position, a draw the search must avoid.
	pos := mustFEN(t, "6k1/8/8/8/8/8/5PPP/R5K1 w - - 0 1")
	var game []uint64
	for _, s := range []string{"g1f1", "g8h8", "f1g1", "h8g8", "g1f1", "g8h8"} {
		m, err := board.ParseMove(s, pos)
		if err != nil {
			t.Fatal(err)
		}
		game = append(game, pos.Hash())
		pos.ApplyMove(m, nil)
	}

	e := newTestEngine()
	e.SetGameHistory(game)
	res := e.Search(context.Background(), pos, Limits{Depth: 5}, nil)
	if res.BestMove.String() == "f1g1" {
		t.Error("engine walked into a repetition while winning")
	}
	if res.Score < RookValue/2 {
		t.Errorf("score %d, want a clear advantage", res.Score)
	}
}

func TestResetClearsTables(t *testing.T) {
	e := newTestEngine()
	pos := mustFEN(t, kiwipeteFEN)
	e.Search(context.Background(), pos, Limits{Depth: 5}, nil)
	if _, ok := e.HashTable().Probe(pos.Hash()); !ok {
		t.Fatal("root not stored after a search")
	}
	e.Reset()
	if _, ok := e.HashTable().Probe(pos.Hash()); ok {
		t.Error("root entry survived Reset")
	}
	if hf := e.HashTable().HashFull(); hf != 0 {
		t.Errorf("HashFull = %d after Reset", hf)
	}
}

func TestSetHashSize(t *testing.T) {
	e := newTestEngine()
	e.SetHashSize(1)
	want := NewTranspositionTable(1).Size()
	if got := e.HashTable().Size(); got != want {
		t.Errorf("size %d, want %d", got, want)
	}
	if m := e.SearchBestMove(board.NewPosition(), Limits{Depth: 3}); m == board.NoMove {
		t.Error("no move after resizing")
	}
}

func TestEnginePerft(t *testing.T) {
	e := newTestEngine()
	pos := board.NewPosition()
	if n := e.Perft(pos, 3); n != 8902 {
		t.Errorf("perft(3) = %d, want 8902", n)
	}
	if pos.FEN() != board.StartFEN {
		t.Error("Perft mutated the position")
	}
}

func TestEngineEvaluate(t *testing.T) {
	e := newTestEngine()
	pos := mustFEN(t, kiwipeteFEN)
	if a, b := e.Evaluate(pos), e.EvaluateDetailed(pos).Score; a != b {
		t.Errorf("Evaluate %d, EvaluateDetailed %d", a, b)
	}
}

func BenchmarkSearch(b *testing.B) {
	pos, _ := board.ParseFEN(kiwipeteFEN)
	for i := 0; i < b.N; i++ {
		e := New(DefaultOptions())
		e.SearchBestMove(pos, Limits{Depth: 6})
	}
}
