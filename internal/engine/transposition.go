package engine

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/hailam/chesscore/internal/board"
)

// Bound tells how a stored score relates to the true value.
type Bound uint8

const (
	BoundNone  Bound = iota
	BoundExact       // Principal variation node
	BoundLower       // Failed high (beta cutoff)
	BoundUpper       // Failed low
)

// Number of shards for TT locking (power of 2 for fast modulo)
const (
	ttShardCount = 256
	ttShardMask  = ttShardCount - 1
)

// ttEntrySize is the budgeted size of one entry in bytes.
const ttEntrySize = 24

// TTEntry is one slot of the transposition table.
type TTEntry struct {
	Key   uint64     // Full zobrist key of the position
	Move  board.Move // Best or refuting move, NoMove when unknown
	Score int16      // Search score in TT form, see ScoreToTT
	Eval  int16      // Static evaluation
	Depth int8
	Bound Bound
	// Age is the game ply of the search root that wrote the entry, -1 when empty.
	Age int16
}

func (e *TTEntry) empty() bool { return e.Age < 0 }

// TranspositionTable is a hash table of search results with bucket locking.
type TranspositionTable struct {
	entries []TTEntry
	shards  [ttShardCount]sync.RWMutex
	mask    uint64
}

// NewTranspositionTable creates a table of the largest power-of-two entry
// count that fits in sizeMB megabytes.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	n := uint64(max(sizeMB, 1)) * 1024 * 1024 / ttEntrySize
	n = roundDownToPowerOf2(n)
	tt := &TranspositionTable{
		entries: make([]TTEntry, n),
		mask:    n - 1,
	}
	tt.Clear()
	return tt
}

// roundDownToPowerOf2 rounds n down to the nearest power of 2.
func roundDownToPowerOf2(n uint64) uint64 {
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return (n + 1) >> 1
}

func (tt *TranspositionTable) shard(idx uint64) *sync.RWMutex {
	return &tt.shards[idx&ttShardMask]
}

// Probe looks up hash. The entry is returned only when its slot is in use
// and holds the same full key.
func (tt *TranspositionTable) Probe(hash uint64) (TTEntry, bool) {
	idx := hash & tt.mask
	mu := tt.shard(idx)
	mu.RLock()
	e := tt.entries[idx]
	mu.RUnlock()

	if e.empty() || e.Key != hash {
		return TTEntry{}, false
	}
	return e, true
}

// Store writes a result for hash when depth*8+age is at least the stored
// entry's. An empty slot always accepts. A missing move keeps the move
// already stored for the same position.
func (tt *TranspositionTable) Store(hash uint64, move board.Move, depth, score, eval int, bound Bound, age int) {
	idx := hash & tt.mask
	mu := tt.shard(idx)
	mu.Lock()
	defer mu.Unlock()

	e := &tt.entries[idx]
	if !e.empty() && depth*8+age < int(e.Depth)*8+int(e.Age) {
		return
	}
	if move == board.NoMove && e.Key == hash && !e.empty() {
		move = e.Move
	}
	*e = TTEntry{
		Key:   hash,
		Move:  move,
		Score: int16(score),
		Eval:  int16(eval),
		Depth: int8(max(min(depth, 127), -128)),
		Bound: bound,
		Age:   int16(age),
	}
}

// Clear empties every slot.
func (tt *TranspositionTable) Clear() {
	for i := range tt.shards {
		tt.shards[i].Lock()
	}
	for i := range tt.entries {
		tt.entries[i] = TTEntry{Age: -1}
	}
	for i := range tt.shards {
		tt.shards[i].Unlock()
	}
}

// HashFull returns the permille of used slots in a sample of the table.
func (tt *TranspositionTable) HashFull() int {
	sample := min(len(tt.entries), 1000)
	used := 0
	for i := 0; i < sample; i++ {
		mu := tt.shard(uint64(i))
		mu.RLock()
		if !tt.entries[i].empty() {
			used++
		}
		mu.RUnlock()
	}
	return used * 1000 / sample
}

// Size returns the number of slots.
func (tt *TranspositionTable) Size() uint64 {
	return uint64(len(tt.entries))
}

// ScoreToTT converts a mate score relative to the current ply into one
// relative to the node itself, so it stays valid at any depth.
func ScoreToTT(score, ply int) int {
	switch {
	case score >= mateBound:
		return score + ply
	case score <= -mateBound:
		return score - ply
	}
	return score
}

// ScoreFromTT reverses ScoreToTT for a probe at ply.
func ScoreFromTT(score, ply int) int {
	switch {
	case score >= mateBound:
		return score - ply
	case score <= -mateBound:
		return score + ply
	}
	return score
}

// Snapshot layout: magic, entry count, then fixed-size little-endian records.
const (
	snapshotMagic  = "CCTT0001"
	snapshotRecord = 8 + 4 + 2 + 2 + 1 + 1 + 2 + 2 // key move score eval depth bound age pad
)

// ErrBadSnapshot reports a stream that is not a table snapshot.
var ErrBadSnapshot = errors.New("engine: bad transposition table snapshot")

// WriteTo writes every non-empty entry to w. Stores block until it is done.
func (tt *TranspositionTable) WriteTo(w io.Writer) (int64, error) {
	for i := range tt.shards {
		tt.shards[i].RLock()
	}
	defer func() {
		for i := range tt.shards {
			tt.shards[i].RUnlock()
		}
	}()

	bw := bufio.NewWriter(w)
	var written int64

	count := uint64(0)
	for i := range tt.entries {
		if !tt.entries[i].empty() {
			count++
		}
	}
	var head [16]byte
	copy(head[:8], snapshotMagic)
	binary.LittleEndian.PutUint64(head[8:], count)
	n, err := bw.Write(head[:])
	written += int64(n)
	if err != nil {
		return written, err
	}

	var rec [snapshotRecord]byte
	for i := range tt.entries {
		e := &tt.entries[i]
		if e.empty() {
			continue
		}
		binary.LittleEndian.PutUint64(rec[0:], e.Key)
		binary.LittleEndian.PutUint32(rec[8:], uint32(e.Move))
		binary.LittleEndian.PutUint16(rec[12:], uint16(e.Score))
		binary.LittleEndian.PutUint16(rec[14:], uint16(e.Eval))
		rec[16] = byte(e.Depth)
		rec[17] = byte(e.Bound)
		binary.LittleEndian.PutUint16(rec[18:], uint16(e.Age))
		n, err := bw.Write(rec[:])
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, bw.Flush()
}

// ReadFrom loads a snapshot written by WriteTo. Entries are re-indexed for
// the current table size and go through the normal replacement rule. Loaded
// entries take age 0, as if written by a search from the first ply.
func (tt *TranspositionTable) ReadFrom(r io.Reader) (int64, error) {
	br := bufio.NewReader(r)
	var read int64

	var head [16]byte
	n, err := io.ReadFull(br, head[:])
	read += int64(n)
	if err != nil {
		return read, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	if string(head[:8]) != snapshotMagic {
		return read, ErrBadSnapshot
	}
	count := binary.LittleEndian.Uint64(head[8:])

	var rec [snapshotRecord]byte
	for i := uint64(0); i < count; i++ {
		n, err := io.ReadFull(br, rec[:])
		read += int64(n)
		if err != nil {
			return read, fmt.Errorf("%w: entry %d: %v", ErrBadSnapshot, i, err)
		}
		m := board.Move(binary.LittleEndian.Uint32(rec[8:]))
		if m != board.NoMove && !m.Valid() {
			return read, fmt.Errorf("%w: entry %d has malformed move %#08x", ErrBadSnapshot, i, uint32(m))
		}
		tt.Store(
			binary.LittleEndian.Uint64(rec[0:]),
			m,
			int(int8(rec[16])),
			int(int16(binary.LittleEndian.Uint16(rec[12:]))),
			int(int16(binary.LittleEndian.Uint16(rec[14:]))),
			Bound(rec[17]),
			0,
		)
	}
	return read, nil
}
