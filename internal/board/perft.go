package board

// Perft counts the leaf nodes of the legal move tree to the given depth.
func (p *Position) Perft(depth int) uint64 {
	if depth <= 0 {
		return 1
	}
	var ml MoveList
	p.GenerateLegalMoves(&ml)
	if depth == 1 {
		return uint64(ml.Len())
	}
	var (
		nodes uint64
		undo  UndoInfo
	)
	for _, m := range ml.Slice() {
		p.ApplyMove(m, &undo)
		nodes += p.Perft(depth - 1)
		p.UndoMove(m, &undo)
	}
	return nodes
}

// DivideEntry is the subtree size below one root move.
type DivideEntry struct {
	Move  Move
	Nodes uint64
}

// Divide runs Perft(depth-1) below each legal root move.
func (p *Position) Divide(depth int) []DivideEntry {
	var ml MoveList
	p.GenerateLegalMoves(&ml)
	out := make([]DivideEntry, 0, ml.Len())
	var undo UndoInfo
	for _, m := range ml.Slice() {
		p.ApplyMove(m, &undo)
		out = append(out, DivideEntry{Move: m, Nodes: p.Perft(depth - 1)})
		p.UndoMove(m, &undo)
	}
	return out
}
