package shapefill

import (
	"image"
	"image/color"
	"slices"
)

// OcclusionGraph keeps the front-to-back order of segments as a DAG.
// Depth grows towards the viewer: for every edge u -> v, depth(v) > depth(u).
// It is not safe for concurrent use.
type OcclusionGraph struct {
	nodes map[SegmentID]*node
	roots []SegmentID // sorted ids without incoming edges
	order []SegmentID
}

// NewOcclusionGraph creates a graph with one node per segment id in use.
func NewOcclusionGraph(counts [2]int) *OcclusionGraph {
	g := &OcclusionGraph{}
	g.Reset(counts)
	return g
}

// Reset drops every edge and recreates the nodes for ids 0..counts[0]-1 and
// 128..128+counts[1]-1.
func (g *OcclusionGraph) Reset(counts [2]int) {
	g.nodes = make(map[SegmentID]*node, counts[0]+counts[1])
	g.roots = g.roots[:0]
	for i := range min(counts[0], ClassCapacity) {
		g.nodes[SegmentID(i)] = &node{}
		g.roots = append(g.roots, SegmentID(i))
	}
	for i := range min(counts[1], ClassCapacity) {
		g.nodes[SoftBase+SegmentID(i)] = &node{}
		g.roots = append(g.roots, SoftBase+SegmentID(i))
	}
	g.order = slices.Clone(g.roots)
}

// Update registers id as an unconnected node if it is not known yet.
func (g *OcclusionGraph) Update(id SegmentID) {
	if !id.Valid() {
		return
	}
	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = &node{}
	i, _ := slices.BinarySearch(g.roots, id)
	g.roots = slices.Insert(g.roots, i, id)
	g.order, _ = kahnSort(g.nodes, g.roots)
}

// AddEdge records that to lies in front of from. Edges touching the
// background, self loops and edges closing a cycle are rejected and leave the
// graph untouched. An existing edge only gets its type replaced.
func (g *OcclusionGraph) AddEdge(from, to SegmentID, typ EdgeType) bool {
	if from == to || from == Background || to == Background || !from.Valid() || !to.Valid() {
		return false
	}
	g.Update(from)
	g.Update(to)
	src, dst := g.nodes[from], g.nodes[to]
	if i := src.edgeTo(to); i >= 0 {
		src.out[i].Type = typ
		return true
	}

	// tentative insert, rolled back when the sort fails
	roots := slices.Clone(g.roots)
	src.out = append(src.out, Edge{From: from, To: to, Type: typ})
	dst.incoming++
	if dst.incoming == 1 {
		if i, found := slices.BinarySearch(g.roots, to); found {
			g.roots = slices.Delete(g.roots, i, i+1)
		}
	}
	order, ok := kahnSort(g.nodes, g.roots)
	if !ok {
		src.out = src.out[:len(src.out)-1]
		dst.incoming--
		g.roots = roots
		return false
	}
	g.order = order
	g.ComputeDepths()
	return true
}

// AddEdges replays edges in order and returns the ones that were rejected.
func (g *OcclusionGraph) AddEdges(edges []Edge) (rejected []Edge) {
	for _, e := range edges {
		if !g.AddEdge(e.From, e.To, e.Type) {
			rejected = append(rejected, e)
		}
	}
	return rejected
}

// ComputeDepths assigns every node its longest path length from a root.
func (g *OcclusionGraph) ComputeDepths() {
	for _, n := range g.nodes {
		n.depth = 0
	}
	for _, id := range g.order {
		n := g.nodes[id]
		for _, e := range n.out {
			dst := g.nodes[e.To]
			dst.depth = max(dst.depth, n.depth+1)
		}
	}
}

// DepthOf returns 0 for unknown ids.
func (g *OcclusionGraph) DepthOf(id SegmentID) int {
	if n, ok := g.nodes[id]; ok {
		return n.depth
	}
	return 0
}

// MaxDepth is the largest depth of any node.
func (g *OcclusionGraph) MaxDepth() int {
	d := 0
	for _, n := range g.nodes {
		d = max(d, n.depth)
	}
	return d
}

// Order returns the ids in topological order, smallest id first among peers.
func (g *OcclusionGraph) Order() []SegmentID {
	return slices.Clone(g.order)
}

// Edges returns every edge sorted by source then target.
func (g *OcclusionGraph) Edges() []Edge {
	var out []Edge
	for _, n := range g.nodes {
		out = append(out, n.out...)
	}
	slices.SortFunc(out, func(a, b Edge) int {
		if a.From != b.From {
			return int(a.From) - int(b.From)
		}
		return int(a.To) - int(b.To)
	})
	return out
}

// EdgeBetween reports the type of the edge from -> to.
func (g *OcclusionGraph) EdgeBetween(from, to SegmentID) (EdgeType, bool) {
	n, ok := g.nodes[from]
	if !ok {
		return EdgeDefault, false
	}
	if i := n.edgeTo(to); i >= 0 {
		return n.out[i].Type, true
	}
	return EdgeDefault, false
}

// Len is the number of nodes.
func (g *OcclusionGraph) Len() int {
	return len(g.nodes)
}

// DepthImage renders the depth of every pixel's segment. Background and
// unassigned pixels are black, the others are spread over 50..250.
func (g *OcclusionGraph) DepthImage(cm *ColorMap) *image.Gray {
	w, h := cm.Width(), cm.Height()
	out := image.NewGray(image.Rect(0, 0, w, h))
	step := 0
	if d := g.MaxDepth(); d > 0 {
		step = 200 / d
	}
	for y := range h {
		for x := range w {
			id := cm.Mask.At(x, y)
			if id <= Background {
				continue
			}
			out.SetGray(x, y, color.Gray{Y: uint8(50 + step*g.DepthOf(id))})
		}
	}
	return out
}
