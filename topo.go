package shapefill

import "slices"

// EdgeType tells the reconstruction how to treat the boundary between two
// segments joined by an edge.
type EdgeType uint8

const (
	EdgeDefault EdgeType = iota
	// EdgeSplit vetoes merging the two segments.
	EdgeSplit
	// EdgeMerge forces merging the two segments.
	EdgeMerge
)

func (t EdgeType) String() string {
	switch t {
	case EdgeSplit:
		return "split"
	case EdgeMerge:
		return "merge"
	default:
		return "default"
	}
}

// Edge From -> To means To lies in front of From.
type Edge struct {
	From, To SegmentID
	Type     EdgeType
}

type node struct {
	out      []Edge
	incoming int
	depth    int
}

func (n *node) edgeTo(to SegmentID) int {
	return slices.IndexFunc(n.out, func(e Edge) bool { return e.To == to })
}

// kahnSort orders nodes so that every edge points forward. Among the
// available roots the smallest id is taken first. Node state is left
// untouched; ok is false when a cycle keeps some node from being emitted.
func kahnSort(nodes map[SegmentID]*node, roots []SegmentID) (order []SegmentID, ok bool) {
	indeg := make(map[SegmentID]int, len(nodes))
	for id, n := range nodes {
		indeg[id] = n.incoming
	}
	ready := slices.Clone(roots)
	slices.Sort(ready)
	order = make([]SegmentID, 0, len(nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, e := range nodes[id].out {
			indeg[e.To]--
			if indeg[e.To] == 0 {
				i, _ := slices.BinarySearch(ready, e.To)
				ready = slices.Insert(ready, i, e.To)
			}
		}
	}
	return order, len(order) == len(nodes)
}
