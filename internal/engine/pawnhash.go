package engine

// PawnEntry caches the pawn-structure components for one pawn key.
type PawnEntry struct {
	Key uint64
	// Terms holds passed, doubled and isolated pawn terms per colour.
	Terms  [3][2]Term
	filled bool
}

func (e *PawnEntry) copyTo(terms *[NumComponents][2]Term) {
	terms[PassedPawns] = e.Terms[0]
	terms[DoubledPawns] = e.Terms[1]
	terms[IsolatedPawns] = e.Terms[2]
}

// PawnTable is a hash table for caching pawn structure evaluations.
// It belongs to a single worker and needs no locking.
type PawnTable struct {
	entries []PawnEntry
	mask    uint64
}

// NewPawnTable creates a pawn hash table of roughly sizeMB megabytes.
func NewPawnTable(sizeMB int) *PawnTable {
	const entrySize = 64
	n := max(sizeMB, 1) * 1024 * 1024 / entrySize

	size := 1
	for size*2 <= n {
		size *= 2
	}
	return &PawnTable{
		entries: make([]PawnEntry, size),
		mask:    uint64(size - 1),
	}
}

// Probe returns the entry stored for key, if any.
func (pt *PawnTable) Probe(key uint64) (*PawnEntry, bool) {
	e := &pt.entries[key&pt.mask]
	if e.filled && e.Key == key {
		return e, true
	}
	return nil, false
}

// Store saves e under key.
func (pt *PawnTable) Store(key uint64, e *PawnEntry) {
	slot := &pt.entries[key&pt.mask]
	*slot = *e
	slot.Key = key
	slot.filled = true
}

// Clear empties the table.
func (pt *PawnTable) Clear() {
	clear(pt.entries)
}
