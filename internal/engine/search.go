package engine

import (
	"math"
	"slices"
	"strconv"

	"github.com/hailam/chesscore/internal/board"
)

// Search constants
const (
	Infinity  = 32000
	MateScore = 31000
	MaxPly    = 128

	// Scores at or beyond mateBound in magnitude are forced mates.
	mateBound = MateScore - MaxPly
)

// LMR reduction table, from log(depth)*log(moveCount)
var reductions [64][64]int

func initReductions() {
	for d := 1; d < 64; d++ {
		for m := 1; m < 64; m++ {
			reductions[d][m] = int(0.75 + math.Log(float64(d))*math.Log(float64(m))/2.25)
		}
	}
}

// IsMateScore reports whether s announces a forced mate for either side.
func IsMateScore(s int) bool {
	return s >= mateBound || s <= -mateBound
}

// MateIn converts a mate score into moves to mate: positive when the side
// to move mates, negative when it is mated, 0 for other scores.
func MateIn(s int) int {
	switch {
	case s >= mateBound:
		return (MateScore - s + 1) / 2
	case s <= -mateBound:
		return -(MateScore + s) / 2
	}
	return 0
}

// ScoreString renders a score in pawns, or as a mate distance.
func ScoreString(s int) string {
	if n := MateIn(s); n > 0 {
		return "Mate in " + strconv.Itoa(n)
	} else if n < 0 || s <= -mateBound {
		return "Mated in " + strconv.Itoa(-n)
	}
	sign := "+"
	if s < 0 {
		sign = "-"
		s = -s
	}
	cp := strconv.Itoa(s % 100)
	if len(cp) == 1 {
		cp = "0" + cp
	}
	return sign + strconv.Itoa(s/100) + "." + cp
}

// RootLine is one principal variation of a completed iteration.
type RootLine struct {
	Move  board.Move
	Score int
	Depth int
	PV    []board.Move
}

// iterate runs iterative deepening from the worker's root and returns the
// lines of the deepest completed iteration, best first. When no iteration
// completed, the lines finished before the stop are returned. onDepth is
// called after every completed iteration.
func (w *worker) iterate(maxDepth, multiPV int, stopOnMate bool, onDepth func(depth int, lines []RootLine)) []RootLine {
	var ml board.MoveList
	w.pos.GenerateLegalMoves(&ml)
	multiPV = min(multiPV, ml.Len())
	if multiPV == 0 {
		return nil
	}

	var completed []RootLine
	for depth := 1; depth <= maxDepth; depth++ {
		if depth > 1 && w.clock.softStop() {
			break
		}

		w.excluded = w.excluded[:0]
		lines := make([]RootLine, 0, multiPV)
		for i := 0; i < multiPV; i++ {
			prev, havePrev := 0, false
			if i < len(completed) {
				prev, havePrev = completed[i].Score, true
			}
			score := w.aspiration(depth, prev, havePrev)
			if w.stopped || w.pv.length[0] == 0 {
				break
			}
			line := RootLine{Move: w.pv.moves[0][0], Score: score, Depth: depth, PV: w.pv.line()}
			lines = append(lines, line)
			w.excluded = append(w.excluded, line.Move)
		}
		w.excluded = w.excluded[:0]

		slices.SortStableFunc(lines, func(a, b RootLine) int { return b.Score - a.Score })
		if w.stopped {
			if len(completed) == 0 {
				completed = lines
			}
			break
		}
		completed = lines
		if onDepth != nil {
			onDepth(depth, lines)
		}

		// A mate found within the full-width horizon cannot improve.
		if stopOnMate && IsMateScore(lines[0].Score) && MateScore-abs(lines[0].Score) <= depth {
			break
		}
	}
	return completed
}

// aspiration searches the root at depth in a window around the previous
// score, widening geometrically on failure.
func (w *worker) aspiration(depth, prev int, havePrev bool) int {
	alpha, beta := -Infinity, Infinity
	delta := aspirationDelta
	if depth >= 4 && havePrev && !IsMateScore(prev) {
		alpha, beta = max(prev-delta, -Infinity), min(prev+delta, Infinity)
	}
	for {
		s := w.search(depth, 0, alpha, beta, true, false, board.NoMove)
		if w.stopped {
			return s
		}
		switch {
		case s <= alpha && alpha > -Infinity:
			// Fail low: pull beta to the midpoint and lower alpha.
			beta = (alpha + beta) / 2
			alpha = max(s-delta, -Infinity)
		case s >= beta && beta < Infinity:
			beta = min(s+delta, Infinity)
		default:
			return s
		}
		delta *= 2
		if delta > 1000 {
			alpha, beta = -Infinity, Infinity
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
