package engine

import (
	"bytes"
	"errors"
	"testing"

	"github.com/hailam/chesscore/internal/board"
)

func TestTTSizeIsPowerOfTwo(t *testing.T) {
	for _, mb := range []int{1, 3, 16, 100} {
		tt := NewTranspositionTable(mb)
		n := tt.Size()
		if n == 0 || n&(n-1) != 0 {
			t.Errorf("%d MB: size %d is not a power of two", mb, n)
		}
		if n*ttEntrySize > uint64(mb)*1024*1024 {
			t.Errorf("%d MB: size %d exceeds the budget", mb, n)
		}
		if n*2*ttEntrySize <= uint64(mb)*1024*1024 {
			t.Errorf("%d MB: size %d is not the largest fit", mb, n)
		}
	}
}

func TestTTEmptyProbe(t *testing.T) {
	tt := NewTranspositionTable(1)
	// Key 0 would match a zeroed slot if emptiness were keyed on Key.
	for _, key := range []uint64{0, 1, 0xdeadbeef} {
		if _, ok := tt.Probe(key); ok {
			t.Errorf("Probe(%#x) hit on an empty table", key)
		}
	}
	if hf := tt.HashFull(); hf != 0 {
		t.Errorf("HashFull = %d on an empty table", hf)
	}
}

func TestTTStoreProbe(t *testing.T) {
	tt := NewTranspositionTable(1)
	m := board.NewDoublePush(board.E2, board.E4)
	tt.Store(42, m, 5, 123, 40, BoundExact, 0)

	e, ok := tt.Probe(42)
	if !ok {
		t.Fatal("miss after store")
	}
	want := TTEntry{Key: 42, Move: m, Score: 123, Eval: 40, Depth: 5, Bound: BoundExact, Age: 0}
	if e != want {
		t.Errorf("entry = %+v, want %+v", e, want)
	}

	// Same slot, different key.
	if _, ok := tt.Probe(42 + tt.Size()); ok {
		t.Error("hit for a colliding key")
	}
}

func TestTTReplacement(t *testing.T) {
	m1 := board.NewMove(board.G1, board.F3, board.Knight)
	m2 := board.NewMove(board.B1, board.C3, board.Knight)

	tests := []struct {
		name        string
		depth, age  int
		replaces    bool
		wantMove    board.Move
		storedMove  board.Move
		sameKeyHash bool
	}{
		{"deeper", 7, 10, true, m2, m2, false},
		{"equal", 6, 10, true, m2, m2, false},
		{"shallower same age", 5, 10, false, m1, m2, false},
		// 5*8+18 = 58 == 6*8+10
		{"shallower but newer", 5, 18, true, m2, m2, false},
		{"shallower slightly newer", 5, 17, false, m1, m2, false},
		{"no move keeps old move", 8, 10, true, m1, board.NoMove, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tt := NewTranspositionTable(1)
			const hash = 1000
			tt.Store(hash, m1, 6, 10, 0, BoundLower, 10)

			newHash := uint64(hash + tt.Size())
			if tc.sameKeyHash {
				newHash = hash
			}
			tt.Store(newHash, tc.storedMove, tc.depth, 20, 0, BoundExact, tc.age)

			e, ok := tt.Probe(newHash)
			if ok != tc.replaces {
				t.Fatalf("replaced = %v, want %v", ok, tc.replaces)
			}
			if !tc.replaces {
				e, _ = tt.Probe(hash)
			}
			if e.Move != tc.wantMove {
				t.Errorf("move = %v, want %v", e.Move, tc.wantMove)
			}
		})
	}
}

func TestTTClear(t *testing.T) {
	tt := NewTranspositionTable(1)
	for i := uint64(0); i < 2000; i++ {
		tt.Store(i, board.NoMove, 1, 0, 0, BoundUpper, 0)
	}
	if tt.HashFull() == 0 {
		t.Fatal("HashFull = 0 after filling")
	}
	tt.Clear()
	if _, ok := tt.Probe(7); ok {
		t.Error("hit after Clear")
	}
	if hf := tt.HashFull(); hf != 0 {
		t.Errorf("HashFull = %d after Clear", hf)
	}
}

func TestMateScoreTT(t *testing.T) {
	tests := []struct{ score, ply int }{
		{MateScore - 5, 3},
		{-MateScore + 8, 6},
		{MateScore - 1, 0},
		{150, 10},
		{-42, 4},
	}
	for _, tc := range tests {
		stored := ScoreToTT(tc.score, tc.ply)
		if got := ScoreFromTT(stored, tc.ply); got != tc.score {
			t.Errorf("round trip of %d at ply %d = %d", tc.score, tc.ply, got)
		}
	}

	// Mate in 2 from this node, found 3 plies below the root.
	stored := ScoreToTT(MateScore-3-3, 3)
	// Probed from ply 1, it is a mate 1+3 plies from the root.
	if got := ScoreFromTT(stored, 1); got != MateScore-1-3 {
		t.Errorf("rebased mate = %d, want %d", got, MateScore-4)
	}
}

func TestTTSnapshot(t *testing.T) {
	src := NewTranspositionTable(1)
	m := board.NewCapture(board.E4, board.D5, board.Pawn, board.Pawn)
	src.Store(1, m, 9, -250, -10, BoundUpper, 4)
	src.Store(2, board.NoMove, 3, MateScore-7, 0, BoundLower, 4)
	src.Store(3, board.NewPromotion(board.A7, board.A8, board.NoPieceType, board.Queen), 1, 900, 800, BoundExact, 6)

	var buf bytes.Buffer
	n, err := src.WriteTo(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != int64(buf.Len()) || n != 16+3*snapshotRecord {
		t.Errorf("WriteTo reported %d bytes, buffer holds %d", n, buf.Len())
	}

	dst := NewTranspositionTable(2)
	if _, err := dst.ReadFrom(&buf); err != nil {
		t.Fatal(err)
	}
	for _, key := range []uint64{1, 2, 3} {
		a, _ := src.Probe(key)
		a.Age = 0
		b, ok := dst.Probe(key)
		if !ok || a != b {
			t.Errorf("key %d: loaded %+v (found %v), want %+v", key, b, ok, a)
		}
	}
}

func TestTTSnapshotAgesReset(t *testing.T) {
	// Saved late in one game, loaded at the start of another.
	src := NewTranspositionTable(1)
	src.Store(5, board.NoMove, 4, 10, 0, BoundExact, 60)
	var buf bytes.Buffer
	if _, err := src.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	dst := NewTranspositionTable(1)
	if _, err := dst.ReadFrom(&buf); err != nil {
		t.Fatal(err)
	}

	// Same slot, same depth, written by a search at ply 2.
	other := 5 + dst.Size()
	dst.Store(other, board.NoMove, 4, 20, 0, BoundExact, 2)
	if _, ok := dst.Probe(other); !ok {
		t.Error("fresh entry lost to a loaded one of equal depth")
	}
}

func TestTTSnapshotDuringStores(t *testing.T) {
	tt := NewTranspositionTable(1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := uint64(0); i < 200000; i++ {
			tt.Store(i*0x9e3779b97f4a7c15, board.NoMove, int(i%20), 0, 0, BoundLower, 0)
		}
	}()

	for i := 0; i < 20; i++ {
		var buf bytes.Buffer
		if _, err := tt.WriteTo(&buf); err != nil {
			t.Fatal(err)
		}
		if _, err := NewTranspositionTable(1).ReadFrom(&buf); err != nil {
			t.Fatalf("snapshot %d taken during stores: %v", i, err)
		}
	}
	<-done
}

func TestTTSnapshotRejectsGarbage(t *testing.T) {
	tt := NewTranspositionTable(1)
	cases := map[string][]byte{
		"empty":     nil,
		"bad magic": []byte("NOTATABLE0000000"),
		"truncated": append([]byte(snapshotMagic), 5, 0, 0, 0, 0, 0, 0, 0, 1, 2, 3),
	}
	for name, data := range cases {
		if _, err := tt.ReadFrom(bytes.NewReader(data)); !errors.Is(err, ErrBadSnapshot) {
			t.Errorf("%s: err = %v, want ErrBadSnapshot", name, err)
		}
	}
}
