package engine

import (
	"encoding/binary"

	"lukechampine.com/frand"
)

// MaxSkillLevel plays at full strength.
const MaxSkillLevel = 20

// skillMultiPV is the minimum number of root lines a weakened search considers.
const skillMultiPV = 4

// skill weakens play by choosing among the top root lines with a random
// push that grows as the level drops.
type skill struct {
	level int
	rng   *frand.RNG
}

// newSkill returns a skill for level. A non-zero seed makes the choices
// reproducible; zero draws from the system entropy source.
func newSkill(level int, seed uint64) *skill {
	s := &skill{level: min(max(level, 0), MaxSkillLevel)}
	if seed != 0 {
		var key [32]byte
		binary.LittleEndian.PutUint64(key[:], seed)
		s.rng = frand.NewCustom(key[:], 1024, 12)
	} else {
		s.rng = frand.New()
	}
	return s
}

func (s *skill) enabled() bool { return s.level < MaxSkillLevel }

// maxDepth caps the iterative deepening depth at this level.
func (s *skill) maxDepth() int { return 1 + s.level }

// pick returns the index of the line to play. lines must be sorted best first.
func (s *skill) pick(lines []RootLine) int {
	if len(lines) == 0 {
		return -1
	}
	top := lines[0].Score
	delta := min(top-lines[len(lines)-1].Score, PawnValue)
	weakness := 120 - 2*s.level

	best, bestScore := 0, -Infinity
	for i, l := range lines {
		push := (weakness*(top-l.Score) + delta*s.rng.Intn(weakness)) / 128
		if l.Score+push >= bestScore {
			best, bestScore = i, l.Score+push
		}
	}
	return best
}
