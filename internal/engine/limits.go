package engine

import (
	"time"

	"github.com/hailam/chesscore/internal/board"
)

// Limits bounds a search. Zero fields impose no bound; with no bound at all
// the search runs until Stop or MaxPly.
type Limits struct {
	Depth    int           // maximum iterative-deepening depth
	Nodes    uint64        // hard node cap
	MoveTime time.Duration // fixed time for this move
	Infinite bool          // ignore every cap until stopped
	Ponder   bool          // like Infinite, until stopped

	// Clock, per colour. MovesToGo is 0 in sudden death.
	Time      [2]time.Duration
	Inc       [2]time.Duration
	MovesToGo int
}

func (l Limits) unbounded() bool { return l.Infinite || l.Ponder }

func (l Limits) hasClock() bool { return l.Time[board.White] > 0 || l.Time[board.Black] > 0 }

// timeManager turns Limits into a soft optimum, past which no new iteration
// starts, and a hard maximum, past which the search stops.
type timeManager struct {
	start   time.Time
	optimum time.Duration
	maximum time.Duration
	timed   bool
}

func newTimeManager(l Limits, us board.Color, ply int) timeManager {
	tm := timeManager{start: time.Now()}
	switch {
	case l.unbounded():
	case l.MoveTime > 0:
		tm.optimum, tm.maximum, tm.timed = l.MoveTime, l.MoveTime, true
	case l.Time[us] > 0:
		tm.allocate(l, us, ply)
		tm.timed = true
	}
	return tm
}

func (tm *timeManager) allocate(l Limits, us board.Color, ply int) {
	timeLeft, inc := l.Time[us], l.Inc[us]

	// Estimate moves to go
	mtg := l.MovesToGo
	if mtg == 0 {
		// Sudden death: fewer moves expected later in the game
		mtg = min(max(50-ply/4, 10), 50)
	}

	tm.optimum = timeLeft/time.Duration(mtg) + inc*9/10
	if ply < 8 {
		tm.optimum = tm.optimum * 85 / 100
	}

	// Maximum time: 5x optimum or 80% of remaining, whichever is smaller
	tm.maximum = min(tm.optimum*5, timeLeft*8/10)

	// Never use more than 95% of remaining time
	tm.maximum = min(tm.maximum, timeLeft*95/100)

	tm.optimum = max(tm.optimum, 10*time.Millisecond)
	tm.maximum = max(tm.maximum, min(50*time.Millisecond, timeLeft/2))
	tm.optimum = min(tm.optimum, tm.maximum)
}

func (tm *timeManager) elapsed() time.Duration { return time.Since(tm.start) }

// hardStop reports whether the maximum time is used up.
func (tm *timeManager) hardStop() bool {
	return tm.timed && tm.elapsed() >= tm.maximum
}

// softStop reports whether a new iteration should not be started.
func (tm *timeManager) softStop() bool {
	return tm.timed && tm.elapsed() >= tm.optimum
}
