package shapefill

import "math"

// flowGraph is a Dinic max-flow network stored as paired arc arrays.
// Arc e and e^1 are each other's reverse.
type flowGraph struct {
	head  []int32
	next  []int32
	to    []int32
	cap   []int32 // residual capacity
	level []int32
	iter  []int32
	queue []int32
	path  []int32
	sink  []bool
}

func newFlowGraph(nodes, arcHint int) *flowGraph {
	g := &flowGraph{
		head:  make([]int32, nodes),
		next:  make([]int32, 0, arcHint),
		to:    make([]int32, 0, arcHint),
		cap:   make([]int32, 0, arcHint),
		level: make([]int32, nodes),
		iter:  make([]int32, nodes),
		queue: make([]int32, 0, nodes),
	}
	for i := range g.head {
		g.head[i] = -1
	}
	return g
}

// addEdge adds u -> v with capacity c and v -> u with capacity rc.
func (g *flowGraph) addEdge(u, v int, c, rc int32) {
	g.push(u, v, c)
	g.push(v, u, rc)
}

func (g *flowGraph) push(u, v int, c int32) {
	g.to = append(g.to, int32(v))
	g.cap = append(g.cap, c)
	g.next = append(g.next, g.head[u])
	g.head[u] = int32(len(g.to) - 1)
}

// bfs levels the residual graph from s and reports whether t is reachable.
func (g *flowGraph) bfs(s, t int) bool {
	for i := range g.level {
		g.level[i] = -1
	}
	g.queue = append(g.queue[:0], int32(s))
	g.level[s] = 0
	for qi := 0; qi < len(g.queue); qi++ {
		u := g.queue[qi]
		for e := g.head[u]; e != -1; e = g.next[e] {
			v := g.to[e]
			if g.cap[e] > 0 && g.level[v] < 0 {
				g.level[v] = g.level[u] + 1
				g.queue = append(g.queue, v)
			}
		}
	}
	return g.level[t] >= 0
}

// blockingFlow saturates every shortest augmenting path with an explicit
// path stack instead of recursion.
func (g *flowGraph) blockingFlow(s, t int) int64 {
	var total int64
	copy(g.iter, g.head)
	path := g.path[:0]
	u := int32(s)
	for {
		if u == int32(t) {
			f := int32(math.MaxInt32)
			for _, e := range path {
				f = min(f, g.cap[e])
			}
			for _, e := range path {
				g.cap[e] -= f
				g.cap[e^1] += f
			}
			total += int64(f)
			k := 0
			for k < len(path) && g.cap[path[k]] > 0 {
				k++
			}
			path = path[:k]
			u = int32(s)
			if k > 0 {
				u = g.to[path[k-1]]
			}
			continue
		}
		advanced := false
		for ; g.iter[u] != -1; g.iter[u] = g.next[g.iter[u]] {
			e := g.iter[u]
			v := g.to[e]
			if g.cap[e] > 0 && g.level[v] == g.level[u]+1 {
				path = append(path, e)
				u = v
				advanced = true
				break
			}
		}
		if advanced {
			continue
		}
		if u == int32(s) {
			break
		}
		// dead end
		g.level[u] = -1
		e := path[len(path)-1]
		path = path[:len(path)-1]
		u = g.to[e^1]
		g.iter[u] = g.next[g.iter[u]]
	}
	g.path = path
	return total
}

// maxFlow runs Dinic's algorithm. Afterwards sourceSide reports the minimal
// source set of the minimum cut.
func (g *flowGraph) maxFlow(s, t int) int64 {
	var total int64
	for g.bfs(s, t) {
		total += g.blockingFlow(s, t)
	}
	return total
}

// sourceSide reports whether u is reachable from the source in the final
// residual graph. Only valid after maxFlow.
func (g *flowGraph) sourceSide(u int) bool {
	return g.level[u] >= 0
}

// markSinkSide finds the nodes that still reach t in the residual graph,
// the minimal sink set of the minimum cut. Nodes on neither minimal side can
// go either way without changing the cut value. Only valid after maxFlow.
func (g *flowGraph) markSinkSide(t int) {
	g.sink = make([]bool, len(g.head))
	g.sink[t] = true
	g.queue = append(g.queue[:0], int32(t))
	for qi := 0; qi < len(g.queue); qi++ {
		v := g.queue[qi]
		for e := g.head[v]; e != -1; e = g.next[e] {
			// e is v -> u, e^1 is u -> v
			u := g.to[e]
			if g.cap[e^1] > 0 && !g.sink[u] {
				g.sink[u] = true
				g.queue = append(g.queue, u)
			}
		}
	}
}

func (g *flowGraph) sinkSide(u int) bool {
	return g.sink != nil && g.sink[u]
}
