package engine

import (
	"github.com/hailam/chesscore/internal/board"
)

// Move ordering priorities
const (
	hashMoveScore   = 1 << 30 // TT move gets highest priority
	goodCaptureBase = 1 << 28 // Captures and promotions that do not lose material
	killerScore1    = 1 << 27 // First killer move
	killerScore2    = killerScore1 - 1
	counterScore    = killerScore1 - 2
	badCaptureBase  = -(1 << 28) // Losing captures
)

// historyMax bounds history scores well below counterScore.
const historyMax = 1 << 20

// History holds the quiet-move ordering heuristics shared across the nodes of
// a search: killers per ply, counter-moves and the butterfly history.
type History struct {
	killers [MaxPly + 1][2]board.Move

	// counters[c][from][to] answers the move c just played.
	counters [2][64][64]board.Move

	// quiet[c][from][to] rewards quiet moves of side c that caused cutoffs.
	quiet [2][64][64]int
}

// NewHistory returns empty ordering tables.
func NewHistory() *History {
	return &History{}
}

// Clear forgets everything.
func (h *History) Clear() {
	*h = History{}
}

// age halves the history scores and drops the killers before a new search.
func (h *History) age() {
	h.killers = [MaxPly + 1][2]board.Move{}
	for c := range h.quiet {
		h.halve(board.Color(c))
	}
}

func (h *History) halve(c board.Color) {
	for from := range h.quiet[c] {
		for to := range h.quiet[c][from] {
			h.quiet[c][from][to] /= 2
		}
	}
}

// counter returns the stored reply to prev, played by the side not to move.
func (h *History) counter(us board.Color, prev board.Move) board.Move {
	if prev == board.NoMove || prev.IsNull() {
		return board.NoMove
	}
	return h.counters[us.Other()][prev.From()][prev.To()]
}

func (h *History) score(us board.Color, m board.Move) int {
	return h.quiet[us][m.From()][m.To()]
}

// update rewards best, a quiet move that produced a cutoff, and penalises
// the quiet moves searched before it.
func (h *History) update(us board.Color, ply, depth int, prev, best board.Move, tried []board.Move) {
	k := &h.killers[ply]
	if k[0] != best {
		k[1] = k[0]
		k[0] = best
	}
	if prev != board.NoMove && !prev.IsNull() {
		h.counters[us.Other()][prev.From()][prev.To()] = best
	}

	bonus := depth * depth
	h.add(us, best, bonus)
	for _, m := range tried {
		if m != best {
			h.add(us, m, -bonus)
		}
	}
}

func (h *History) add(us board.Color, m board.Move, delta int) {
	v := &h.quiet[us][m.From()][m.To()]
	*v += delta
	if *v >= historyMax || *v <= -historyMax {
		h.halve(us)
	}
}

// movePicker hands out the moves of a list best first. Moves are scored once
// and each call to next selects the best remaining one, so nodes that cut
// off early never pay for a full sort.
type movePicker struct {
	moves  *board.MoveList
	scores *[board.MaxMoves]int
	cur    int
	sorted bool
}

// newMainPicker scores the moves for the main search.
func newMainPicker(pos *board.Position, ml *board.MoveList, scores *[board.MaxMoves]int, h *History, ply int, ttMove, prev board.Move) movePicker {
	us := pos.SideToMove
	k := h.killers[ply]
	counter := h.counter(us, prev)
	for i, m := range ml.Slice() {
		var s int
		switch {
		case m == ttMove:
			s = hashMoveScore
		case m.IsTactical():
			s = tacticalScore(pos, m)
		case m == k[0]:
			s = killerScore1
		case m == k[1]:
			s = killerScore2
		case m == counter:
			s = counterScore
		default:
			s = h.score(us, m)
		}
		scores[i] = s
	}
	return movePicker{moves: ml, scores: scores}
}

// newQuiescencePicker scores captures, promotions or evasions and sorts them
// once. Quiet evasions keep their history order below every capture.
func newQuiescencePicker(pos *board.Position, ml *board.MoveList, scores *[board.MaxMoves]int, h *History) movePicker {
	us := pos.SideToMove
	for i, m := range ml.Slice() {
		if m.IsTactical() {
			scores[i] = tacticalScore(pos, m)
		} else {
			scores[i] = h.score(us, m)
		}
	}
	mp := movePicker{moves: ml, scores: scores}
	mp.sort()
	return mp
}

// tacticalScore orders captures and promotions: those that SEE says keep
// material go first, by victim minus attacker.
func tacticalScore(pos *board.Position, m board.Move) int {
	s := pieceValues[m.Captured()] - pieceValues[m.Piece()]
	if m.IsPromotion() {
		s += pieceValues[m.Promotion()]
	}
	if pos.SeeGE(m, 0) {
		return goodCaptureBase + s
	}
	return badCaptureBase + s
}

// next returns the next move and its ordering score, or false when the list is exhausted.
func (mp *movePicker) next() (board.Move, int, bool) {
	n := mp.moves.Len()
	if mp.cur >= n {
		return board.NoMove, 0, false
	}
	if mp.sorted {
		mp.cur++
		return mp.moves.Get(mp.cur - 1), mp.scores[mp.cur-1], true
	}
	best := mp.cur
	for i := mp.cur + 1; i < n; i++ {
		if mp.scores[i] > mp.scores[best] {
			best = i
		}
	}
	if best != mp.cur {
		mp.moves.Swap(mp.cur, best)
		mp.scores[mp.cur], mp.scores[best] = mp.scores[best], mp.scores[mp.cur]
	}
	i := mp.cur
	mp.cur++
	return mp.moves.Get(i), mp.scores[i], true
}

// sort orders the whole list by descending score. Lists are short, so
// insertion sort is enough.
func (mp *movePicker) sort() {
	for i := 1; i < mp.moves.Len(); i++ {
		m, s := mp.moves.Get(i), mp.scores[i]
		j := i - 1
		for ; j >= 0 && mp.scores[j] < s; j-- {
			mp.moves.Set(j+1, mp.moves.Get(j))
			mp.scores[j+1] = mp.scores[j]
		}
		mp.moves.Set(j+1, m)
		mp.scores[j+1] = s
	}
	mp.sorted = true
}
