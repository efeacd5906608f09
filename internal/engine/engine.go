package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/hailam/chesscore/internal/board"
)

// Options configures an Engine.
type Options struct {
	HashMB     int    // transposition table size
	MultiPV    int    // root lines to search and report
	SkillLevel int    // 0..20, MaxSkillLevel disables weakening
	SkillSeed  uint64 // non-zero makes weakened choices reproducible
	Logger     zerolog.Logger
}

// DefaultOptions returns full-strength single-line options with a 64 MB
// table and logging disabled.
func DefaultOptions() Options {
	return Options{
		HashMB:     64,
		MultiPV:    1,
		SkillLevel: MaxSkillLevel,
		Logger:     zerolog.Nop(),
	}
}

// Info reports one completed iteration.
type Info struct {
	Depth    int
	SelDepth int
	BestMove board.Move
	PV       []board.Move
	Score    int
	Nodes    uint64
	Time     time.Duration
	NPS      uint64
	HashFull int // permille
	Lines    []RootLine
}

// Result is the outcome of a search.
type Result struct {
	BestMove board.Move
	Ponder   board.Move // expected reply, NoMove when unknown
	Score    int
	Depth    int
	Nodes    uint64
	Time     time.Duration
	PV       []board.Move
	Lines    []RootLine
}

// Engine owns the search state that persists between moves of a game.
// One search runs at a time; starting a new one first waits for the last.
type Engine struct {
	opts  Options
	log   zerolog.Logger
	tt    *TranspositionTable
	pawns *PawnTable
	hist  *History
	skill *skill

	stop   atomic.Bool
	worker *worker
	game   []uint64

	mu     sync.Mutex
	group  *errgroup.Group
	result Result
}

// New creates an engine. Non-positive HashMB and MultiPV take their
// DefaultOptions values; SkillLevel is clamped to 0..MaxSkillLevel.
func New(opts Options) *Engine {
	initTables()
	def := DefaultOptions()
	if opts.HashMB <= 0 {
		opts.HashMB = def.HashMB
	}
	if opts.MultiPV <= 0 {
		opts.MultiPV = def.MultiPV
	}
	opts.SkillLevel = min(max(opts.SkillLevel, 0), MaxSkillLevel)

	e := &Engine{
		opts:  opts,
		log:   opts.Logger.With().Str("component", "engine").Logger(),
		tt:    NewTranspositionTable(opts.HashMB),
		pawns: NewPawnTable(1),
		hist:  NewHistory(),
		skill: newSkill(opts.SkillLevel, opts.SkillSeed),
	}
	e.worker = newWorker(e.tt, e.pawns, e.hist, &e.stop)
	return e
}

// Options returns the options in effect.
func (e *Engine) Options() Options { return e.opts }

// HashTable exposes the transposition table, for snapshots.
func (e *Engine) HashTable() *TranspositionTable { return e.tt }

// SetHashSize replaces the transposition table with an empty one of sizeMB.
func (e *Engine) SetHashSize(sizeMB int) {
	e.Wait()
	e.opts.HashMB = max(sizeMB, 1)
	e.tt = NewTranspositionTable(e.opts.HashMB)
	e.worker.tt = e.tt
}

// SetGameHistory records the zobrist keys of the game positions before the
// next search root, oldest first, for repetition detection.
func (e *Engine) SetGameHistory(hashes []uint64) {
	e.Wait()
	e.game = append(e.game[:0], hashes...)
}

// Stop asks the running search to return at its next checkpoint.
func (e *Engine) Stop() {
	e.stop.Store(true)
}

// Reset stops any search and forgets everything learned: the table, the
// ordering history and the game history.
func (e *Engine) Reset() {
	e.Stop()
	e.Wait()
	e.tt.Clear()
	e.pawns.Clear()
	e.hist.Clear()
	e.game = e.game[:0]
}

// SearchBestMove searches pos synchronously and returns the move to play.
func (e *Engine) SearchBestMove(pos *board.Position, limits Limits) board.Move {
	return e.Search(context.Background(), pos, limits, nil).BestMove
}

// Search searches pos synchronously. onInfo, when non-nil, is called from
// the search goroutine after every completed iteration.
func (e *Engine) Search(ctx context.Context, pos *board.Position, limits Limits, onInfo func(Info)) Result {
	e.Go(ctx, pos, limits, onInfo)
	return e.Wait()
}

// Go starts a search of pos in the background and returns at once. The
// search ends at its limits, on Stop, or when ctx is cancelled; Wait
// collects the result. pos is copied and never modified.
func (e *Engine) Go(ctx context.Context, pos *board.Position, limits Limits, onInfo func(Info)) {
	e.Wait()
	e.stop.Store(false)
	root := pos.Copy()

	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})
	e.mu.Lock()
	e.group = g
	e.mu.Unlock()

	g.Go(func() error {
		defer close(done)
		res := e.run(root, limits, onInfo)
		e.mu.Lock()
		e.result = res
		e.mu.Unlock()
		return nil
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			e.stop.Store(true)
		case <-done:
		}
		return nil
	})
}

// Wait blocks until the current search, if any, has finished and returns
// the result of the last search.
func (e *Engine) Wait() Result {
	e.mu.Lock()
	g := e.group
	e.group = nil
	e.mu.Unlock()
	if g != nil {
		_ = g.Wait()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result
}

// Evaluate returns the static evaluation of pos for the side to move.
func (e *Engine) Evaluate(pos *board.Position) int { return Evaluate(pos) }

// EvaluateDetailed returns the component breakdown of the evaluation.
func (e *Engine) EvaluateDetailed(pos *board.Position) Breakdown { return EvaluateDetailed(pos) }

// Perft counts the leaf nodes of the legal move tree below pos.
func (e *Engine) Perft(pos *board.Position, depth int) uint64 {
	return pos.Copy().Perft(depth)
}

func (e *Engine) run(root *board.Position, limits Limits, onInfo func(Info)) Result {
	start := time.Now()
	w := e.worker
	w.reset(root, e.game, limits)
	e.hist.age()

	var ml board.MoveList
	root.GenerateLegalMoves(&ml)
	if ml.Len() == 0 {
		score := 0
		if root.InCheck() {
			score = -MateScore
		}
		e.log.Info().Str("fen", root.FEN()).Int("score", score).Msg("no legal moves at root")
		return Result{Score: score, Time: time.Since(start)}
	}

	maxDepth := MaxPly - 1
	if limits.Depth > 0 && !limits.unbounded() {
		maxDepth = min(limits.Depth, maxDepth)
	}
	multiPV := e.opts.MultiPV
	if e.skill.enabled() {
		multiPV = max(multiPV, skillMultiPV)
		maxDepth = min(maxDepth, e.skill.maxDepth())
	}

	report := func(depth int, lines []RootLine) {
		elapsed := time.Since(start)
		nps := uint64(0)
		if elapsed > 0 {
			nps = uint64(float64(w.nodes) / elapsed.Seconds())
		}
		shown := lines[:min(len(lines), e.opts.MultiPV)]
		e.log.Debug().
			Int("depth", depth).
			Int("seldepth", w.seldepth).
			Int("score", lines[0].Score).
			Uint64("nodes", w.nodes).
			Uint64("nps", nps).
			Strs("pv", moveStrings(lines[0].PV)).
			Msg("iteration")
		if onInfo == nil {
			return
		}
		onInfo(Info{
			Depth:    depth,
			SelDepth: w.seldepth,
			BestMove: lines[0].Move,
			PV:       lines[0].PV,
			Score:    lines[0].Score,
			Nodes:    w.nodes,
			Time:     elapsed,
			NPS:      nps,
			HashFull: e.tt.HashFull(),
			Lines:    shown,
		})
	}

	lines := w.iterate(maxDepth, multiPV, !limits.unbounded(), report)

	res := Result{Nodes: w.nodes, Time: time.Since(start)}
	if len(lines) == 0 {
		res.BestMove = ml.Get(0)
		res.Score = w.evaluate()
		e.log.Warn().Str("move", res.BestMove.String()).Msg("search stopped before depth 1, playing first legal move")
		return res
	}

	chosen := lines[0]
	if e.skill.enabled() {
		chosen = lines[e.skill.pick(lines)]
	}
	res.BestMove = chosen.Move
	res.Score = chosen.Score
	res.Depth = chosen.Depth
	res.PV = chosen.PV
	res.Lines = lines[:min(len(lines), e.opts.MultiPV)]
	if len(chosen.PV) > 1 {
		res.Ponder = chosen.PV[1]
	}

	e.log.Info().
		Str("bestmove", res.BestMove.String()).
		Str("score", ScoreString(res.Score)).
		Int("depth", res.Depth).
		Uint64("nodes", res.Nodes).
		Dur("time", res.Time).
		Int("hashfull", e.tt.HashFull()).
		Msg("search done")
	return res
}

func moveStrings(moves []board.Move) []string {
	return lo.Map(moves, func(m board.Move, _ int) string { return m.String() })
}
