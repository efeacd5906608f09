// Package engine implements the search side of chesscore: the static
// evaluator, transposition and pawn tables, move ordering, the alpha-beta
// worker with iterative deepening, and the Engine API around it.
package engine

import (
	"sync"

	"github.com/hailam/chesscore/internal/board"
)

// Material values in centipawns. Search margins use the midgame values.
const (
	PawnValue   = 100
	KnightValue = 320
	BishopValue = 330
	RookValue   = 500
	QueenValue  = 900
)

var (
	materialMg = [6]int{PawnValue, KnightValue, BishopValue, RookValue, QueenValue, 0}
	materialEg = [6]int{120, 300, 320, 530, 950, 0}
)

// pieceValues is indexed by board.PieceType and has a zero slot for NoPieceType.
var pieceValues = [7]int{PawnValue, KnightValue, BishopValue, RookValue, QueenValue, 0, 0}

// Phase weights: a full board sums to maxPhase.
const maxPhase = 24

var phaseWeight = [6]int{0, 1, 1, 2, 4, 0}

// Pawn shield, scored for the midgame only.
const (
	shieldNear    = 12  // own pawn one rank in front of the king
	shieldFar     = 6   // own pawn two ranks in front
	shieldMissing = -14 // no own pawn ahead on the file
)

// Passed pawn bonuses by relative rank
var (
	passedMg = [8]int{0, 5, 10, 15, 30, 50, 80, 0}
	passedEg = [8]int{0, 10, 20, 35, 60, 100, 150, 0}
)

const (
	doubledMg  = -10
	doubledEg  = -20
	isolatedMg = -12
	isolatedEg = -16

	rookOpenMg     = 25
	rookOpenEg     = 12
	rookSemiOpenMg = 12
	rookSemiOpenEg = 8

	bishopPairMg = 25
	bishopPairEg = 50
)

// King zone attack units per attacker type
var kingAttackWeight = [6]int{0, 2, 2, 3, 5, 0}

// Mobility: weight per square above or below the baseline count
var (
	mobilityMg       = [6]int{0, 4, 5, 2, 1, 0}
	mobilityEg       = [6]int{0, 4, 5, 4, 2, 0}
	mobilityBaseline = [6]int{0, 4, 6, 7, 13, 0}
)

// Tempo bonus for the side to move, added by the search.
const tempoBonus = 10

// Piece-square tables for the midgame, in board layout with a8 first and
// seen from White. White squares index them through sq^56, Black squares
// directly.
var (
	pawnMg = [64]int{
		0, 0, 0, 0, 0, 0, 0, 0,
		50, 50, 50, 50, 50, 50, 50, 50,
		10, 10, 20, 30, 30, 20, 10, 10,
		5, 5, 10, 25, 25, 10, 5, 5,
		0, 0, 0, 20, 20, 0, 0, 0,
		5, -5, -10, 0, 0, -10, -5, 5,
		5, 10, 10, -20, -20, 10, 10, 5,
		0, 0, 0, 0, 0, 0, 0, 0,
	}
	knightMg = [64]int{
		-50, -40, -30, -30, -30, -30, -40, -50,
		-40, -20, 0, 0, 0, 0, -20, -40,
		-30, 0, 10, 15, 15, 10, 0, -30,
		-30, 5, 15, 20, 20, 15, 5, -30,
		-30, 0, 15, 20, 20, 15, 0, -30,
		-30, 5, 10, 15, 15, 10, 5, -30,
		-40, -20, 0, 5, 5, 0, -20, -40,
		-50, -40, -30, -30, -30, -30, -40, -50,
	}
	bishopMg = [64]int{
		-20, -10, -10, -10, -10, -10, -10, -20,
		-10, 0, 0, 0, 0, 0, 0, -10,
		-10, 0, 5, 10, 10, 5, 0, -10,
		-10, 5, 5, 10, 10, 5, 5, -10,
		-10, 0, 10, 10, 10, 10, 0, -10,
		-10, 10, 10, 10, 10, 10, 10, -10,
		-10, 5, 0, 0, 0, 0, 5, -10,
		-20, -10, -10, -10, -10, -10, -10, -20,
	}
	rookMg = [64]int{
		0, 0, 0, 0, 0, 0, 0, 0,
		5, 10, 10, 10, 10, 10, 10, 5,
		-5, 0, 0, 0, 0, 0, 0, -5,
		-5, 0, 0, 0, 0, 0, 0, -5,
		-5, 0, 0, 0, 0, 0, 0, -5,
		-5, 0, 0, 0, 0, 0, 0, -5,
		-5, 0, 0, 0, 0, 0, 0, -5,
		0, 0, 0, 5, 5, 0, 0, 0,
	}
	queenMg = [64]int{
		-20, -10, -10, -5, -5, -10, -10, -20,
		-10, 0, 0, 0, 0, 0, 0, -10,
		-10, 0, 5, 5, 5, 5, 0, -10,
		-5, 0, 5, 5, 5, 5, 0, -5,
		0, 0, 5, 5, 5, 5, 0, -5,
		-10, 5, 5, 5, 5, 5, 0, -10,
		-10, 0, 5, 0, 0, 0, 0, -10,
		-20, -10, -10, -5, -5, -10, -10, -20,
	}
	kingMg = [64]int{
		-30, -40, -40, -50, -50, -40, -40, -30,
		-30, -40, -40, -50, -50, -40, -40, -30,
		-30, -40, -40, -50, -50, -40, -40, -30,
		-30, -40, -40, -50, -50, -40, -40, -30,
		-20, -30, -30, -40, -40, -30, -30, -20,
		-10, -20, -20, -20, -20, -20, -20, -10,
		20, 20, 0, 0, 0, 0, 20, 20,
		20, 30, 10, 0, 0, 10, 30, 20,
	}

	pstMg = [6]*[64]int{&pawnMg, &knightMg, &bishopMg, &rookMg, &queenMg, &kingMg}
)

// Endgame tables are generated in initEvalTables.
var (
	pstEg      [6][64]int
	passedSpan [2][64]board.Bitboard
	adjacent   [8]board.Bitboard
	kingDanger [64]int
)

// Endgame centralisation weight per piece type and pawn advancement by rank
var (
	centreEg   = [6]int{0, 5, 3, 1, 2, 8}
	pawnRankEg = [8]int{0, 0, 5, 10, 20, 35, 55, 0}
)

var tablesOnce sync.Once

// initTables builds every lookup table the engine needs. It is idempotent.
func initTables() {
	tablesOnce.Do(func() {
		board.Init()
		initEvalTables()
		initReductions()
	})
}

func initEvalTables() {
	for i := 0; i < 64; i++ {
		// i is a visual index, a8 first.
		file, rank := i&7, 7-i>>3
		centre := min(file, 7-file) + min(rank, 7-rank)
		for pt := board.Knight; pt <= board.King; pt++ {
			pstEg[pt][i] = centreEg[pt] * (centre - 3)
		}
		pstEg[board.Pawn][i] = pawnRankEg[rank]
	}

	for f := 0; f < 8; f++ {
		if f > 0 {
			adjacent[f] |= board.FileMask[f-1]
		}
		if f < 7 {
			adjacent[f] |= board.FileMask[f+1]
		}
	}

	for sq := board.A1; sq <= board.H8; sq++ {
		files := board.FileMask[sq.File()] | adjacent[sq.File()]
		ahead := board.SquareBB(sq).North().NorthFill()
		behind := board.SquareBB(sq).South().SouthFill()
		passedSpan[board.White][sq] = files & ahead
		passedSpan[board.Black][sq] = files & behind
	}

	for i := range kingDanger {
		kingDanger[i] = min(i*i/2, 400)
	}
}

// pstIndex maps a square to the visual table index for colour c.
func pstIndex(c board.Color, sq board.Square) int {
	if c == board.White {
		return int(sq) ^ 56
	}
	return int(sq)
}

// Component names one evaluation term.
type Component int

const (
	Material Component = iota
	PieceSquare
	PawnShield
	PassedPawns
	DoubledPawns
	IsolatedPawns
	RookFiles
	KingSafety
	Mobility
	BishopPair
	NumComponents
)

var componentNames = [NumComponents]string{
	"material", "psqt", "pawn shield", "passed pawns", "doubled pawns",
	"isolated pawns", "rook files", "king safety", "mobility", "bishop pair",
}

func (c Component) String() string {
	if c < 0 || c >= NumComponents {
		return "unknown"
	}
	return componentNames[c]
}

// Term is a midgame/endgame pair.
type Term struct {
	Mg, Eg int
}

func (t *Term) add(mg, eg int) {
	t.Mg += mg
	t.Eg += eg
}

func (t Term) sub(o Term) Term { return Term{t.Mg - o.Mg, t.Eg - o.Eg} }

// taper interpolates t by phase, maxPhase being a full midgame.
func (t Term) taper(phase int) int {
	return (t.Mg*phase + t.Eg*(maxPhase-phase)) / maxPhase
}

// Terminal classifies positions without legal moves.
type Terminal int

const (
	NotTerminal Terminal = iota
	Checkmate
	Stalemate
)

func (t Terminal) String() string {
	switch t {
	case Checkmate:
		return "checkmate"
	case Stalemate:
		return "stalemate"
	}
	return "none"
}

// Breakdown is the full evaluation of a position, component by component.
type Breakdown struct {
	SideToMove board.Color
	Phase      int     // 0..24, material weighted by piece type
	Stage      float64 // Phase/24: 1 is a full midgame, 0 a bare endgame

	// Terms are per component and per colour, White first.
	Terms [NumComponents][2]Term

	// Score is side-to-move relative, without the tempo bonus.
	Score    int
	Terminal Terminal
}

// Component returns the tapered own-minus-opponent value of c for the side to move.
func (b *Breakdown) Component(c Component) int {
	us, them := b.SideToMove, b.SideToMove.Other()
	return b.Terms[c][us].sub(b.Terms[c][them]).taper(b.Phase)
}

// Evaluate returns the static score of pos for the side to move. Positions
// without legal moves score -MateScore when checkmated and 0 when stalemated.
func Evaluate(pos *board.Position) int {
	initTables()
	if !pos.HasLegalMoves() {
		if pos.InCheck() {
			return -MateScore
		}
		return 0
	}
	return evaluate(pos, nil, nil)
}

// EvaluateDetailed is Evaluate with every component exposed.
func EvaluateDetailed(pos *board.Position) Breakdown {
	initTables()
	var bd Breakdown
	if !pos.HasLegalMoves() {
		bd.SideToMove = pos.SideToMove
		bd.Phase = gamePhase(pos)
		bd.Stage = float64(bd.Phase) / maxPhase
		if pos.InCheck() {
			bd.Terminal, bd.Score = Checkmate, -MateScore
		} else {
			bd.Terminal = Stalemate
		}
		return bd
	}
	evaluate(pos, nil, &bd)
	return bd
}

func gamePhase(pos *board.Position) int {
	phase := 0
	for pt := board.Knight; pt <= board.Queen; pt++ {
		phase += phaseWeight[pt] * pos.Info.Types[pt].PopCount()
	}
	return min(phase, maxPhase)
}

// evaluate scores a position known to have legal moves. pawns may be nil;
// bd, when non-nil, receives the breakdown.
func evaluate(pos *board.Position, pawns *PawnTable, bd *Breakdown) int {
	var terms [NumComponents][2]Term

	for c := board.White; c <= board.Black; c++ {
		evalPieces(pos, c, &terms)
		evalShield(pos, c, &terms[PawnShield][c])
		evalRooks(pos, c, &terms[RookFiles][c])
		evalKingSafety(pos, c, &terms[KingSafety][c])
		evalMobility(pos, c, &terms[Mobility][c])
		if pos.Pieces[c][board.Bishop].More() {
			terms[BishopPair][c].add(bishopPairMg, bishopPairEg)
		}
	}
	pawnTerms(pos, pawns, &terms)

	us, them := pos.SideToMove, pos.SideToMove.Other()
	var total Term
	for i := range terms {
		d := terms[i][us].sub(terms[i][them])
		total.add(d.Mg, d.Eg)
	}
	phase := gamePhase(pos)
	score := total.taper(phase)

	if bd != nil {
		*bd = Breakdown{
			SideToMove: us,
			Phase:      phase,
			Stage:      float64(phase) / maxPhase,
			Terms:      terms,
			Score:      score,
		}
	}
	return score
}

func evalPieces(pos *board.Position, c board.Color, terms *[NumComponents][2]Term) {
	for pt := board.Pawn; pt <= board.King; pt++ {
		for b := pos.Pieces[c][pt]; b != 0; {
			i := pstIndex(c, b.PopLSB())
			terms[Material][c].add(materialMg[pt], materialEg[pt])
			terms[PieceSquare][c].add(pstMg[pt][i], pstEg[pt][i])
		}
	}
}

// evalShield rewards pawns in front of a king still on its first two ranks.
func evalShield(pos *board.Position, c board.Color, t *Term) {
	ksq := pos.Info.KingSquare[c]
	if ksq.RelativeRank(c) > 1 {
		return
	}
	own := pos.Pieces[c][board.Pawn]
	dir := 1
	if c == board.Black {
		dir = -1
	}
	r := ksq.Rank()
	for f := max(ksq.File()-1, 0); f <= min(ksq.File()+1, 7); f++ {
		switch {
		case own.IsSet(board.NewSquare(f, r+dir)):
			t.Mg += shieldNear
		case own.IsSet(board.NewSquare(f, r+2*dir)):
			t.Mg += shieldFar
		case own&board.FileMask[f]&passedSpan[c][ksq] == 0:
			t.Mg += shieldMissing
		}
	}
}

func evalRooks(pos *board.Position, c board.Color, t *Term) {
	own := pos.Pieces[c][board.Pawn]
	enemy := pos.Pieces[c.Other()][board.Pawn]
	for b := pos.Pieces[c][board.Rook]; b != 0; {
		file := board.FileMask[b.PopLSB().File()]
		if own&file != 0 {
			continue
		}
		if enemy&file == 0 {
			t.add(rookOpenMg, rookOpenEg)
		} else {
			t.add(rookSemiOpenMg, rookSemiOpenEg)
		}
	}
}

// evalKingSafety penalises enemy pieces attacking the squares around c's king.
func evalKingSafety(pos *board.Position, c board.Color, t *Term) {
	ksq := pos.Info.KingSquare[c]
	zone := board.KingAttacks(ksq) | board.SquareBB(ksq)
	occ := pos.Info.All
	them := c.Other()

	attackers, units := 0, 0
	for pt := board.Knight; pt <= board.Queen; pt++ {
		for b := pos.Pieces[them][pt]; b != 0; {
			hits := board.Attacks(pt, them, b.PopLSB(), occ) & zone
			if hits != 0 {
				attackers++
				units += kingAttackWeight[pt] * hits.PopCount()
			}
		}
	}
	if attackers < 2 {
		units /= 2
	}
	danger := kingDanger[min(units, len(kingDanger)-1)]
	t.add(-danger, -danger/4)
}

// evalMobility counts squares not held by own pieces and not covered by enemy pawns.
func evalMobility(pos *board.Position, c board.Color, t *Term) {
	occ := pos.Info.All
	safe := ^pos.Info.Colors[c] &^ pawnAttacks(pos.Pieces[c.Other()][board.Pawn], c.Other())
	for pt := board.Knight; pt <= board.Queen; pt++ {
		for b := pos.Pieces[c][pt]; b != 0; {
			n := (board.Attacks(pt, c, b.PopLSB(), occ) & safe).PopCount() - mobilityBaseline[pt]
			t.add(n*mobilityMg[pt], n*mobilityEg[pt])
		}
	}
}

// pawnAttacks returns every square attacked by the pawns of colour c.
func pawnAttacks(pawns board.Bitboard, c board.Color) board.Bitboard {
	if c == board.White {
		return pawns.NorthEast() | pawns.NorthWest()
	}
	return pawns.SouthEast() | pawns.SouthWest()
}

// pawnTerms fills the pawn-structure components, through the cache when one is given.
func pawnTerms(pos *board.Position, pawns *PawnTable, terms *[NumComponents][2]Term) {
	key := pos.Info.PawnKey
	if pawns != nil {
		if e, ok := pawns.Probe(key); ok {
			e.copyTo(terms)
			return
		}
	}
	var e PawnEntry
	for c := board.White; c <= board.Black; c++ {
		e.Terms[0][c], e.Terms[1][c], e.Terms[2][c] = pawnStructure(pos, c)
	}
	e.copyTo(terms)
	if pawns != nil {
		pawns.Store(key, &e)
	}
}

func pawnStructure(pos *board.Position, c board.Color) (passed, doubled, isolated Term) {
	own := pos.Pieces[c][board.Pawn]
	enemy := pos.Pieces[c.Other()][board.Pawn]
	for b := own; b != 0; {
		sq := b.PopLSB()
		if passedSpan[c][sq]&enemy == 0 {
			r := sq.RelativeRank(c)
			passed.add(passedMg[r], passedEg[r])
		}
		if own&adjacent[sq.File()] == 0 {
			isolated.add(isolatedMg, isolatedEg)
		}
	}
	for f := 0; f < 8; f++ {
		if n := (own & board.FileMask[f]).PopCount(); n > 1 {
			doubled.add((n-1)*doubledMg, (n-1)*doubledEg)
		}
	}
	return passed, doubled, isolated
}
