package engine

import (
	"sync/atomic"

	"github.com/samber/lo"

	"github.com/hailam/chesscore/internal/board"
)

// Pruning constants
const (
	razorMargin     = 300 // plus 200 per ply of depth
	rfpMargin       = 80  // per ply of depth
	futilityMargin  = 120 // per ply of depth
	qsDeltaMargin   = 200 // per-move delta pruning in quiescence
	aspirationDelta = 25
)

// LMP (Late Move Pruning) thresholds by depth
// At depth d, prune quiet moves after lmpThreshold[d] moves
var lmpThreshold = [8]int{0, 3, 5, 9, 15, 23, 33, 45}

// noEval marks a missing static evaluation, for nodes in check.
const noEval = -Infinity

// pvTable is the triangular principal variation table.
type pvTable struct {
	length [MaxPly + 1]int
	moves  [MaxPly + 1][MaxPly + 1]board.Move
}

// update makes m followed by the child's line the PV at ply.
func (pv *pvTable) update(ply int, m board.Move) {
	pv.moves[ply][0] = m
	n := copy(pv.moves[ply][1:], pv.moves[ply+1][:pv.length[ply+1]])
	pv.length[ply] = n + 1
}

func (pv *pvTable) line() []board.Move {
	return append([]board.Move(nil), pv.moves[0][:pv.length[0]]...)
}

// worker runs one search on a private copy of the root position. Its
// ply-indexed arenas are reused by every node at that ply, so a move list
// never outlives the frame that filled it.
type worker struct {
	pos   board.Position
	tt    *TranspositionTable
	pawns *PawnTable
	hist  *History

	stop    *atomic.Bool
	stopped bool
	clock   timeManager
	nodeCap uint64

	nodes    uint64
	seldepth int
	age      int

	// history holds the hashes of every position before the current one.
	// Repetition scans never reach below nullFloor.
	history   []uint64
	nullFloor int

	lists  [MaxPly + 1]board.MoveList
	scores [MaxPly + 1][board.MaxMoves]int
	undos  [MaxPly + 1]board.UndoInfo
	evals  [MaxPly + 1]int
	quiets [MaxPly + 1][64]board.Move

	pv       pvTable
	excluded []board.Move
}

func newWorker(tt *TranspositionTable, pawns *PawnTable, hist *History, stop *atomic.Bool) *worker {
	return &worker{tt: tt, pawns: pawns, hist: hist, stop: stop}
}

// reset prepares the worker for a search from root.
func (w *worker) reset(root *board.Position, game []uint64, limits Limits) {
	w.pos = *root
	w.stopped = false
	w.clock = newTimeManager(limits, root.SideToMove, root.GamePly())
	w.nodeCap = 0
	if !limits.unbounded() {
		w.nodeCap = limits.Nodes
	}
	w.nodes, w.seldepth = 0, 0
	w.age = root.GamePly()
	w.history = append(w.history[:0], game...)
	w.nullFloor = 0
	w.excluded = w.excluded[:0]
}

// checkStop latches a stop on the flag and node cap at every node and on
// the clock every 1024 nodes.
func (w *worker) checkStop() bool {
	if w.stopped {
		return true
	}
	if w.stop.Load() ||
		(w.nodeCap > 0 && w.nodes >= w.nodeCap) ||
		(w.nodes&1023 == 0 && w.clock.hardStop()) {
		w.stopped = true
	}
	return w.stopped
}

func (w *worker) evaluate() int {
	return evaluate(&w.pos, w.pawns, nil) + tempoBonus
}

// isDraw reports the fifty-move rule or a single repetition of the current
// position within the reversible part of the history.
func (w *worker) isDraw() bool {
	if w.pos.HalfMoveClock >= 100 {
		return true
	}
	h := w.pos.Hash()
	n := len(w.history)
	limit := min(w.pos.HalfMoveClock, n-w.nullFloor)
	for k := 2; k <= limit; k += 2 {
		if w.history[n-k] == h {
			return true
		}
	}
	return false
}

func (w *worker) apply(m board.Move, ply int) {
	w.history = append(w.history, w.pos.Hash())
	w.pos.ApplyMove(m, &w.undos[ply])
}

func (w *worker) undo(m board.Move, ply int) {
	w.pos.UndoMove(m, &w.undos[ply])
	w.history = w.history[:len(w.history)-1]
}

// search is the principal variation search. pvNode marks nodes searched with
// an open window, cutNode nodes expected to fail high.
func (w *worker) search(depth, ply, alpha, beta int, pvNode, cutNode bool, prev board.Move) int {
	w.pv.length[ply] = 0
	if depth <= 0 {
		return w.quiescence(ply, 0, alpha, beta)
	}
	if w.checkStop() {
		return 0
	}
	w.nodes++
	w.seldepth = max(w.seldepth, ply+1)

	pos := &w.pos
	root := ply == 0
	inCheck := pos.InCheck()
	if ply >= MaxPly {
		if inCheck {
			return 0
		}
		return w.evaluate()
	}

	if !root {
		if w.isDraw() {
			return 0
		}
		// Mate distance pruning
		alpha = max(alpha, -MateScore+ply)
		beta = min(beta, MateScore-ply-1)
		if alpha >= beta {
			return alpha
		}
	}

	// Probe transposition table
	hash := pos.Hash()
	ttMove := board.NoMove
	e, ttHit := w.tt.Probe(hash)
	if ttHit {
		ttMove = e.Move
		if !pvNode && int(e.Depth) >= depth {
			s := ScoreFromTT(int(e.Score), ply)
			switch {
			case e.Bound == BoundExact,
				e.Bound == BoundLower && s >= beta,
				e.Bound == BoundUpper && s <= alpha:
				return s
			}
		}
	}

	// Static evaluation
	eval := noEval
	switch {
	case inCheck:
	case ttHit && int(e.Eval) != noEval:
		eval = int(e.Eval)
	case prev.IsNull():
		eval = -w.evals[ply-1] + 2*tempoBonus
	default:
		eval = w.evaluate()
	}
	w.evals[ply] = eval
	improving := !inCheck && ply >= 2 && w.evals[ply-2] != noEval && eval > w.evals[ply-2]

	if !pvNode && !inCheck {
		// Razoring
		if depth <= 2 && eval+razorMargin+200*depth <= alpha {
			s := w.quiescence(ply, 0, alpha, beta)
			if s <= alpha {
				return s
			}
		}

		// Reverse futility pruning
		margin := rfpMargin * depth
		if improving {
			margin -= rfpMargin / 2
		}
		if depth <= 6 && eval-margin >= beta && beta < mateBound {
			return eval
		}

		// Null move pruning
		us := pos.SideToMove
		if depth >= 3 && eval >= beta && !prev.IsNull() && pos.HasNonPawnMaterial(us) && beta > -mateBound {
			r := 3 + depth/6 + min((eval-beta)/200, 3)

			w.history = append(w.history, hash)
			floor := w.nullFloor
			w.nullFloor = len(w.history)
			pos.ApplyNullMove(&w.undos[ply])
			s := -w.search(depth-r, ply+1, -beta, -beta+1, false, !cutNode, board.NullMove)
			pos.UndoNullMove(&w.undos[ply])
			w.nullFloor = floor
			w.history = w.history[:len(w.history)-1]

			if w.stopped {
				return 0
			}
			if s >= beta {
				if s >= mateBound {
					s = beta
				}
				return s
			}
		}
	}

	// Internal iterative deepening
	if depth >= 5 && ttMove == board.NoMove && (pvNode || cutNode) {
		w.search(depth/2, ply, alpha, beta, pvNode, cutNode, prev)
		if w.stopped {
			return 0
		}
		if e, ok := w.tt.Probe(hash); ok {
			ttMove = e.Move
		}
		w.evals[ply] = eval
	}

	us := pos.SideToMove
	ml := &w.lists[ply]
	pos.GeneratePseudoLegalMoves(ml)
	mp := newMainPicker(pos, ml, &w.scores[ply], w.hist, ply, ttMove, prev)
	quiets := w.quiets[ply][:0]

	best, bestMove, bound := -Infinity, board.NoMove, BoundUpper
	legal := 0
	for {
		m, order, ok := mp.next()
		if !ok {
			break
		}
		if root && len(w.excluded) > 0 && lo.Contains(w.excluded, m) {
			continue
		}
		if !pos.IsLegal(m) {
			continue
		}
		legal++
		quiet := m.IsQuiet()
		givesCheck := pos.GivesCheck(m)

		// Prune once a move has shown we are not getting mated. Checking
		// moves are searched in full.
		if !root && !inCheck && !givesCheck && best > -mateBound {
			if quiet {
				lmp := lmpThreshold[min(depth, 7)]
				if !improving {
					lmp = lmp * 2 / 3
				}
				if depth <= 7 && legal > lmp+1 {
					continue
				}
				if depth <= 3 && order < counterScore && eval+futilityMargin*depth <= alpha {
					continue
				}
				if depth <= 6 && !pos.SeeGE(m, -60*depth) {
					continue
				}
			} else if depth <= 6 && order < goodCaptureBase && !pos.SeeGE(m, -100*depth) {
				continue
			}
		}

		histScore := 0
		if quiet {
			histScore = w.hist.score(us, m)
		}

		w.apply(m, ply)
		newDepth := depth - 1
		if givesCheck {
			newDepth++
		}

		var s int
		if legal == 1 {
			s = -w.search(newDepth, ply+1, -beta, -alpha, pvNode, false, m)
		} else {
			// Late move reductions
			r := 0
			if depth >= 3 && legal > 3 && (quiet || order < goodCaptureBase) {
				r = reductions[min(depth, 63)][min(legal, 63)]
				if !improving {
					r++
				}
				if cutNode {
					r++
				}
				if ttMove.IsCapture() {
					r++
				}
				if pvNode {
					r--
				}
				if order >= counterScore && quiet {
					r--
				}
				if givesCheck {
					r--
				}
				r -= histScore / 8192
				r = max(min(r, newDepth-1), 0)
			}

			s = -w.search(newDepth-r, ply+1, -alpha-1, -alpha, false, true, m)
			if s > alpha && r > 0 {
				s = -w.search(newDepth, ply+1, -alpha-1, -alpha, false, !cutNode, m)
			}
			if pvNode && s > alpha && s < beta {
				s = -w.search(newDepth, ply+1, -beta, -alpha, true, false, m)
			}
		}
		w.undo(m, ply)

		if w.stopped {
			return 0
		}

		if s > best {
			best = s
			if s > alpha {
				bestMove = m
				alpha = s
				bound = BoundExact
				w.pv.update(ply, m)
				if s >= beta {
					bound = BoundLower
					break
				}
			}
		}
		if quiet && len(quiets) < cap(quiets) {
			quiets = append(quiets, m)
		}
	}

	if legal == 0 {
		if inCheck {
			return -MateScore + ply
		}
		return 0
	}

	if bound == BoundLower && bestMove.IsQuiet() {
		w.hist.update(us, ply, depth, prev, bestMove, quiets)
	}

	if !root || len(w.excluded) == 0 {
		w.tt.Store(hash, bestMove, depth, ScoreToTT(best, ply), eval, bound, w.age)
	}
	return best
}

// quiescence resolves captures and promotions, all evasions when in check,
// and quiet checks on its first ply, so that leaves are tactically quiet.
func (w *worker) quiescence(ply, qply, alpha, beta int) int {
	w.pv.length[ply] = 0
	if w.checkStop() {
		return 0
	}
	w.nodes++
	w.seldepth = max(w.seldepth, ply+1)

	pos := &w.pos
	inCheck := pos.InCheck()
	if ply >= MaxPly {
		if inCheck {
			return 0
		}
		return w.evaluate()
	}
	if ply > 0 && w.isDraw() {
		return 0
	}

	// Stand pat
	best, standPat := -Infinity, noEval
	if !inCheck {
		standPat = w.evaluate()
		if standPat >= beta {
			return standPat
		}
		// Big delta: even winning a queen would not reach alpha.
		if standPat+QueenValue+qsDeltaMargin < alpha && pos.NonPawnMaterial(pos.SideToMove.Other()) > 0 {
			return standPat
		}
		best = standPat
		alpha = max(alpha, standPat)
	}

	ml := &w.lists[ply]
	if inCheck {
		pos.GeneratePseudoLegalMoves(ml)
	} else {
		pos.GenerateCaptures(ml)
	}
	mp := newQuiescencePicker(pos, ml, &w.scores[ply], w.hist)

	legal := 0
	for {
		m, _, ok := mp.next()
		if !ok {
			break
		}
		if !pos.IsLegal(m) {
			continue
		}
		legal++
		if !inCheck {
			gain := pieceValues[m.Captured()]
			if m.IsPromotion() {
				gain += pieceValues[m.Promotion()] - PawnValue
			}
			if standPat+gain+qsDeltaMargin <= alpha || !pos.SeeGE(m, 0) {
				continue
			}
		}

		w.apply(m, ply)
		s := -w.quiescence(ply+1, qply+1, -beta, -alpha)
		w.undo(m, ply)
		if w.stopped {
			return 0
		}
		if s > best {
			best = s
			if s > alpha {
				alpha = s
				w.pv.update(ply, m)
				if s >= beta {
					return s
				}
			}
		}
	}

	if inCheck {
		if legal == 0 {
			return -MateScore + ply
		}
		return best
	}

	// Quiet checks on the first quiescence ply
	if qply == 0 {
		pos.GenerateQuietChecks(ml)
		for _, m := range ml.Slice() {
			if !pos.IsLegal(m) {
				continue
			}
			w.apply(m, ply)
			if !pos.InCheck() {
				w.undo(m, ply)
				continue
			}
			s := -w.quiescence(ply+1, qply+1, -beta, -alpha)
			w.undo(m, ply)
			if w.stopped {
				return 0
			}
			if s > best {
				best = s
				if s > alpha {
					alpha = s
					w.pv.update(ply, m)
					if s >= beta {
						return s
					}
				}
			}
		}
	}
	return best
}
