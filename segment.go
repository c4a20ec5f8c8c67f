package shapefill

import (
	"fmt"
	"math"
	"slices"

	"go.uber.org/zap"
)

// SegmentOptions holds the min-cut tunables.
type SegmentOptions struct {
	// K is the terminal capacity of a hard scribble pixel.
	K int32
	// SoftDivisor scales K down for soft scribble pixels.
	SoftDivisor int32
	// Exponent shapes the pairwise capacity 1 + K*min(a,b)^Exponent.
	Exponent float64
	Logger   *zap.Logger
}

func DefaultSegmentOptions() SegmentOptions {
	return SegmentOptions{
		K:           4000,
		SoftDivisor: 16,
		Exponent:    2,
	}
}

// Segmenter turns scribbles into a full segment-id raster by running one
// binary min-cut per scribble id in ascending order.
type Segmenter struct {
	opt SegmentOptions
	log *zap.Logger
}

func NewSegmenter(opt SegmentOptions) *Segmenter {
	def := DefaultSegmentOptions()
	if opt.K <= 0 {
		opt.K = def.K
	}
	if opt.SoftDivisor <= 0 {
		opt.SoftDivisor = def.SoftDivisor
	}
	if opt.Exponent <= 0 {
		opt.Exponent = def.Exponent
	}
	s := &Segmenter{opt: opt, log: opt.Logger}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// terminal is the pull of a scribble pixel towards its terminal.
func (s *Segmenter) terminal(id SegmentID) int32 {
	if id.IsSoft() {
		return s.opt.K / s.opt.SoftDivisor
	}
	return s.opt.K
}

func (s *Segmenter) pairwise(a, b float32) int32 {
	m := float64(min(a, b))
	if m < 0 {
		m = 0
	}
	return int32(1 + float64(s.opt.K)*math.Pow(m, s.opt.Exponent))
}

// Segment rebuilds cm.Mask from the scribbles. Every pixel ends up with an id
// in 0..255. Invalid input leaves cm untouched.
func (s *Segmenter) Segment(intensity Gray, scribbles LabelMap, cm *ColorMap) error {
	w, h := cm.Width(), cm.Height()
	if !intensity.sameSize(w, h) {
		return fmt.Errorf("segment: intensity %dx%d, mask %dx%d: %w", intensity.W, intensity.H, w, h, ErrSizeMismatch)
	}
	if !scribbles.sameSize(w, h) {
		return fmt.Errorf("segment: scribbles %dx%d, mask %dx%d: %w", scribbles.W, scribbles.H, w, h, ErrSizeMismatch)
	}
	for i, id := range scribbles.Pix {
		if id != Unassigned && !id.Valid() {
			return fmt.Errorf("segment: scribble %d at (%d,%d): %w", id, i%w, i/w, ErrInvalidLabel)
		}
	}

	cm.ClearMask()
	if w == 0 || h == 0 {
		return nil
	}
	id := Background
	b := fullBox(w, h)
	for {
		n := s.cut(intensity, scribbles, cm.Mask, id, b)
		s.log.Debug("cut",
			zap.Int("segment", int(id)),
			zap.Int("minX", b.minX), zap.Int("minY", b.minY),
			zap.Int("maxX", b.maxX), zap.Int("maxY", b.maxY),
			zap.Int("assigned", n))
		var remaining []SegmentID
		remaining, b = resolveAreas(scribbles, cm.Mask, id, b)
		if len(remaining) == 0 {
			return nil
		}
		id = remaining[0]
	}
}

// cut runs a binary min-cut over the unassigned pixels inside b. Pixels with
// scribble id pull towards the source, pixels with a larger scribble id pull
// towards the sink. Unassigned pixels on the source side get id, with ties
// between equal cuts split by splitTies. It returns the number of pixels
// assigned.
func (s *Segmenter) cut(intensity Gray, scribbles LabelMap, mask LabelMap, id SegmentID, b box) int {
	w := mask.W
	index := make([]int32, b.width()*b.height())
	var pix []int
	for y := b.minY; y <= b.maxY; y++ {
		for x := b.minX; x <= b.maxX; x++ {
			k := (y-b.minY)*b.width() + (x - b.minX)
			index[k] = -1
			if mask.Pix[labelOffset(w, x, y)] == Unassigned {
				index[k] = int32(len(pix))
				pix = append(pix, labelOffset(w, x, y))
			}
		}
	}
	if len(pix) == 0 {
		return 0
	}

	src, sink := len(pix), len(pix)+1
	g := newFlowGraph(len(pix)+2, len(pix)*6)
	for n, off := range pix {
		x, y := off%w, off/w
		switch sc := scribbles.Pix[off]; {
		case sc == id:
			g.addEdge(src, n, s.terminal(sc), 0)
		case sc > id:
			g.addEdge(n, sink, s.terminal(sc), 0)
		}
		// right and down neighbors, both directions at once
		if x < b.maxX {
			if m := index[(y-b.minY)*b.width()+(x+1-b.minX)]; m >= 0 {
				c := s.pairwise(intensity.Pix[off], intensity.Pix[off+1])
				g.addEdge(n, int(m), c, c)
			}
		}
		if y < b.maxY {
			if m := index[(y+1-b.minY)*b.width()+(x-b.minX)]; m >= 0 {
				c := s.pairwise(intensity.Pix[off], intensity.Pix[off+w])
				g.addEdge(n, int(m), c, c)
			}
		}
	}
	g.maxFlow(src, sink)
	g.markSinkSide(sink)

	side := make([]int8, len(pix))
	for n := range pix {
		switch {
		case g.sourceSide(n):
			side[n] = sideSource
		case g.sinkSide(n):
			side[n] = sideSink
		}
	}
	splitTies(side, pix, index, w, b)

	assigned := 0
	for n, off := range pix {
		if side[n] == sideSource {
			mask.Pix[off] = id
			assigned++
		}
	}
	return assigned
}

const (
	sideNone   int8 = 0
	sideSource int8 = 1
	sideSink   int8 = -1
)

// splitTies settles the nodes left on neither minimal side of the cut. On
// flat paper every cut between two scribbles costs the same, so each such
// node goes to the side whose settled pixels are nearer in grid steps. Equal
// distances go to the sink, which leaves the pixel for a later cut.
func splitTies(side []int8, pix []int, index []int32, w int, b box) {
	if !slices.Contains(side, sideNone) {
		return
	}
	distSource := tieDistances(side, sideSource, pix, index, w, b)
	distSink := tieDistances(side, sideSink, pix, index, w, b)
	for n := range side {
		if side[n] != sideNone {
			continue
		}
		side[n] = sideSink
		if distSource[n] < distSink[n] {
			side[n] = sideSource
		}
	}
}

// tieDistances is a multi-source BFS from the nodes on side s through the
// undecided nodes.
func tieDistances(side []int8, s int8, pix []int, index []int32, w int, b box) []int32 {
	dist := make([]int32, len(side))
	var queue []int32
	for n := range side {
		dist[n] = math.MaxInt32
		if side[n] == s {
			dist[n] = 0
			queue = append(queue, int32(n))
		}
	}
	for qi := 0; qi < len(queue); qi++ {
		n := queue[qi]
		x, y := pix[n]%w, pix[n]/w
		for d := range 4 {
			nx, ny := x+dx4[d], y+dy4[d]
			if !b.contains(nx, ny) {
				continue
			}
			m := index[(ny-b.minY)*b.width()+(nx-b.minX)]
			if m < 0 || side[m] != sideNone || dist[m] != math.MaxInt32 {
				continue
			}
			dist[m] = dist[n] + 1
			queue = append(queue, m)
		}
	}
	return dist
}

// resolveAreas looks at every connected unassigned area inside b. An area
// holding no scribble above id is given id, an area holding exactly one such
// scribble id is given that id. Areas holding several stay unassigned; their
// ids are returned sorted along with the union of their bounding boxes.
func resolveAreas(scribbles LabelMap, mask LabelMap, id SegmentID, b box) ([]SegmentID, box) {
	w := mask.W
	seen := make([]bool, len(mask.Pix))
	next := emptyBox(mask.W, mask.H)
	var remaining []SegmentID
	var area, stack []int
	var found []SegmentID
	for y := b.minY; y <= b.maxY; y++ {
		for x := b.minX; x <= b.maxX; x++ {
			start := labelOffset(w, x, y)
			if seen[start] || mask.Pix[start] != Unassigned {
				continue
			}
			area, found = area[:0], found[:0]
			areaBox := emptyBox(mask.W, mask.H)
			seen[start] = true
			stack = append(stack[:0], start)
			for len(stack) > 0 {
				off := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				area = append(area, off)
				px, py := off%w, off/w
				areaBox.add(px, py)
				if sc := scribbles.Pix[off]; sc > id && !slices.Contains(found, sc) {
					found = append(found, sc)
				}
				for d := range 4 {
					nx, ny := px+dx4[d], py+dy4[d]
					if !b.contains(nx, ny) {
						continue
					}
					n := labelOffset(w, nx, ny)
					if !seen[n] && mask.Pix[n] == Unassigned {
						seen[n] = true
						stack = append(stack, n)
					}
				}
			}
			switch len(found) {
			case 0, 1:
				to := id
				if len(found) == 1 {
					to = found[0]
				}
				for _, off := range area {
					mask.Pix[off] = to
				}
			default:
				next.union(areaBox)
				for _, sc := range found {
					if !slices.Contains(remaining, sc) {
						remaining = append(remaining, sc)
					}
				}
			}
		}
	}
	slices.Sort(remaining)
	return remaining, next
}

// BackgroundFrame returns scribbles marking a background frame of width
// 2*radius+1 along the image border. Every other pixel is Unassigned.
func BackgroundFrame(w, h, radius int) LabelMap {
	out := NewFilled(w, h, Unassigned)
	t := 2*radius + 1
	for y := range h {
		for x := range w {
			if x < t || y < t || x >= w-t || y >= h-t {
				out.Set(x, y, Background)
			}
		}
	}
	return out
}
