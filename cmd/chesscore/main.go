// Command chesscore searches, evaluates or perft-counts a single position.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/logx"
	"github.com/hailam/chesscore/internal/storage"
)

var (
	fenFlag   = flag.String("fen", board.StartFEN, "position to work on")
	movesFlag = flag.String("moves", "", "space-separated moves (SAN or UCI) played from -fen")
	depth     = flag.Int("depth", 0, "search depth limit")
	movetime  = flag.Duration("movetime", 0, "search time limit")
	nodes     = flag.Uint64("nodes", 0, "search node limit")
	multiPV   = flag.Int("multipv", 0, "number of lines to report (0 keeps the saved setting)")
	skill     = flag.Int("skill", -1, "skill level 0-20 (-1 keeps the saved setting)")
	seed      = flag.Uint64("seed", 0, "skill RNG seed, 0 for a random one")
	hashMB    = flag.Int("hash", 0, "transposition table size in MB (0 keeps the saved setting)")
	dataDir   = flag.String("data", "", "data directory (default: per-user application data)")
	noStore   = flag.Bool("nostore", false, "do not read or write settings and cached analysis")
	hashFile  = flag.Bool("hashfile", false, "load the transposition table before searching and save it after")
	perft     = flag.Int("perft", 0, "count leaf nodes to this depth instead of searching")
	divide    = flag.Int("divide", 0, "perft per root move to this depth")
	evalOnly  = flag.Bool("eval", false, "print the static evaluation breakdown instead of searching")
	verbose   = flag.Int("v", 0, "log verbosity: 1 info, 2 debug, 3 trace")
)

func main() {
	flag.Parse()
	log := logx.NewLogger(nil, logx.Level(*verbose))

	if path := os.Getenv("CHESSCORE_CPUPROFILE"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			log.Fatal().Err(err).Msg("could not create CPU profile")
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal().Err(err).Msg("could not start CPU profile")
		}
		defer pprof.StopCPUProfile()
		log.Info().Str("path", path).Msg("CPU profiling enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, log); err != nil {
		log.Error().Err(err).Msg("chesscore failed")
		stop()
		pprof.StopCPUProfile()
		os.Exit(1)
	}
}

func run(ctx context.Context, log zerolog.Logger) error {
	pos, game, err := setup(*fenFlag, *movesFlag)
	if err != nil {
		return err
	}

	switch {
	case *perft > 0:
		start := time.Now()
		n, err := parallelDivide(ctx, pos, *perft)
		if err != nil {
			return err
		}
		total := lo.SumBy(n, func(e board.DivideEntry) uint64 { return e.Nodes })
		elapsed := time.Since(start)
		fmt.Printf("perft %d: %d nodes in %v (%.0f nps)\n", *perft, total, elapsed.Round(time.Millisecond), float64(total)/elapsed.Seconds())
		return nil
	case *divide > 0:
		entries, err := parallelDivide(ctx, pos, *divide)
		if err != nil {
			return err
		}
		var total uint64
		for _, e := range entries {
			fmt.Printf("%s: %d\n", e.Move, e.Nodes)
			total += e.Nodes
		}
		fmt.Printf("\nmoves: %d\nnodes: %d\n", len(entries), total)
		return nil
	case *evalOnly:
		printBreakdown(pos, engine.EvaluateDetailed(pos))
		return nil
	}

	var store *storage.Storage
	dir := *dataDir
	if !*noStore || *hashFile {
		if dir == "" {
			if dir, err = storage.DefaultDataDir(); err != nil {
				return fmt.Errorf("data directory: %w", err)
			}
		}
	}
	settings := storage.DefaultSettings()
	if !*noStore {
		dbDir, err := storage.DatabaseDir(dir)
		if err != nil {
			return err
		}
		if store, err = storage.Open(dbDir, log); err != nil {
			return err
		}
		defer store.Close()
		if settings, err = store.LoadSettings(); err != nil {
			return err
		}
	}
	applyFlags(settings)

	opts := engine.Options{
		HashMB:     settings.HashMB,
		MultiPV:    settings.MultiPV,
		SkillLevel: settings.SkillLevel,
		SkillSeed:  settings.SkillSeed,
		Logger:     log,
	}
	limits := engine.Limits{Depth: *depth, MoveTime: *movetime, Nodes: *nodes}
	if limits.Depth == 0 && limits.MoveTime == 0 && limits.Nodes == 0 {
		limits.MoveTime = 2 * time.Second
	}

	// Cached results only answer plain full-strength single-line depth searches.
	cacheable := store != nil && limits.Depth > 0 && opts.MultiPV == 1 && opts.SkillLevel == engine.MaxSkillLevel
	if cacheable {
		if a, err := store.LoadAnalysis(pos.Hash()); err == nil && a.Depth >= limits.Depth {
			log.Info().Int("depth", a.Depth).Msg("using cached analysis")
			fmt.Printf("bestmove %s score %s depth %d (cached)\n", a.BestMove, engine.ScoreString(a.Score), a.Depth)
			fmt.Printf("pv %s\n", strings.Join(a.PV, " "))
			return nil
		} else if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
	}

	eng := engine.New(opts)
	eng.SetGameHistory(game)

	var hashPath string
	if *hashFile {
		if hashPath, err = storage.HashFilePath(dir); err != nil {
			return err
		}
		if err := storage.LoadHashFile(hashPath, eng.HashTable(), log); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Msg("hash file not loaded")
		}
	}

	res := eng.Search(ctx, pos, limits, func(info engine.Info) {
		for i, l := range info.Lines {
			fmt.Printf("depth %2d line %d score %8s nodes %10d nps %8d pv %s\n",
				info.Depth, i+1, engine.ScoreString(l.Score), info.Nodes, info.NPS,
				strings.Join(board.SANLine(pos, l.PV), " "))
		}
	})

	if res.BestMove == board.NoMove {
		if pos.InCheck() {
			fmt.Println("checkmate")
		} else {
			fmt.Println("stalemate")
		}
		return nil
	}
	fmt.Printf("bestmove %s", res.BestMove)
	if res.Ponder != board.NoMove {
		fmt.Printf(" ponder %s", res.Ponder)
	}
	fmt.Printf("\nscore %s depth %d nodes %d time %v\n", engine.ScoreString(res.Score), res.Depth, res.Nodes, res.Time.Round(time.Millisecond))

	if store != nil {
		if *multiPV > 0 || *skill >= 0 || *hashMB > 0 || *seed != 0 {
			if err := store.SaveSettings(settings); err != nil {
				return err
			}
		}
		if err := store.RecordSearch(res.Depth, res.Nodes, res.Time); err != nil {
			return err
		}
		if cacheable && ctx.Err() == nil {
			err := store.SaveAnalysis(pos.Hash(), &storage.Analysis{
				FEN:      pos.FEN(),
				BestMove: res.BestMove.String(),
				Score:    res.Score,
				Depth:    res.Depth,
				PV:       lo.Map(res.PV, func(m board.Move, _ int) string { return m.String() }),
				Nodes:    res.Nodes,
				Time:     res.Time,
			})
			if err != nil {
				return err
			}
		}
	}
	if hashPath != "" {
		if err := storage.SaveHashFile(hashPath, eng.HashTable(), log); err != nil {
			return err
		}
	}
	return nil
}

// setup parses the position and plays moves on it, returning the hashes of
// every position before the final one.
func setup(fen, moves string) (*board.Position, []uint64, error) {
	pos, err := board.ParseFEN(fen)
	if err != nil {
		return nil, nil, err
	}
	var game []uint64
	for _, s := range strings.Fields(moves) {
		m, err := board.ParseMove(s, pos)
		if err != nil {
			if m, err = board.ParseSAN(s, pos); err != nil {
				return nil, nil, fmt.Errorf("move %q: %w", s, err)
			}
		}
		game = append(game, pos.Hash())
		pos.ApplyMove(m, nil)
	}
	return pos, game, nil
}

func applyFlags(s *storage.Settings) {
	if *hashMB > 0 {
		s.HashMB = *hashMB
	}
	if *multiPV > 0 {
		s.MultiPV = *multiPV
	}
	if *skill >= 0 {
		s.SkillLevel = min(*skill, engine.MaxSkillLevel)
	}
	if *seed != 0 {
		s.SkillSeed = *seed
	}
}

// parallelDivide runs one perft per root move across the available CPUs.
func parallelDivide(ctx context.Context, pos *board.Position, depth int) ([]board.DivideEntry, error) {
	var ml board.MoveList
	pos.GenerateLegalMoves(&ml)
	out := make([]board.DivideEntry, ml.Len())

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, m := range ml.Slice() {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p := pos.Copy()
			p.ApplyMove(m, nil)
			out[i] = board.DivideEntry{Move: m, Nodes: p.Perft(depth - 1)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func printBreakdown(pos *board.Position, bd engine.Breakdown) {
	fmt.Println(pos)
	fmt.Printf("fen %s\n", pos.FEN())
	if bd.Terminal != engine.NotTerminal {
		fmt.Printf("%s, score %s\n", bd.Terminal, engine.ScoreString(bd.Score))
		return
	}
	fmt.Printf("phase %d/24 (stage %.2f), %s to move\n\n", bd.Phase, bd.Stage, bd.SideToMove)
	fmt.Printf("%-16s %11s %11s %7s\n", "component", "white mg/eg", "black mg/eg", "total")
	for c := engine.Component(0); c < engine.NumComponents; c++ {
		w, b := bd.Terms[c][board.White], bd.Terms[c][board.Black]
		fmt.Printf("%-16s %5d/%5d %5d/%5d %7d\n", c, w.Mg, w.Eg, b.Mg, b.Eg, bd.Component(c))
	}
	fmt.Printf("\nscore %s (side to move)\n", engine.ScoreString(bd.Score))
}
