package shapefill

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"
)

// InpaintOptions tunes silhouette reconstruction.
type InpaintOptions struct {
	// Scale is the block size of the coarse Laplace solve.
	Scale int
	// WhiteThreshold is the intensity from which a pixel counts as paper.
	WhiteThreshold float32
	// MergeDepthGap is the depth difference at which touching segments merge.
	MergeDepthGap int
	// AnnealIterations is the minimum relaxation pass count. The sampling
	// radius shrinks over its second half.
	AnnealIterations int
	// MaxIterations caps relaxation when it does not settle.
	MaxIterations int
	// Epsilon is the largest per-pixel change of a settled pass.
	Epsilon float32
	// Preprocess binarizes the intensity before it is used for decisions.
	Preprocess bool
	Logger     *zap.Logger
}

func DefaultInpaintOptions() InpaintOptions {
	return InpaintOptions{
		Scale:            2,
		WhiteThreshold:   0.985,
		MergeDepthGap:    1,
		AnnealIterations: 20,
		MaxIterations:    500,
		Epsilon:          1e-5,
		Preprocess:       true,
	}
}

// Silhouette is the reconstructed shape of one segment.
type Silhouette struct {
	ID    SegmentID
	Depth int
	// Mask is 1 inside the reconstructed shape and 0 elsewhere.
	Mask Gray
	// Border is 1 away from the outline, 0 on a hard outline and 0.25 where
	// the segment merges with its neighbor. The outline is three pixels wide.
	Border Gray
}

// Inpainter reconstructs the parts of segments hidden behind nearer ones.
type Inpainter struct {
	opt InpaintOptions
	log *zap.Logger
}

func NewInpainter(opt InpaintOptions) *Inpainter {
	def := DefaultInpaintOptions()
	if opt.Scale <= 0 {
		opt.Scale = def.Scale
	}
	if opt.WhiteThreshold <= 0 {
		opt.WhiteThreshold = def.WhiteThreshold
	}
	if opt.MergeDepthGap <= 0 {
		opt.MergeDepthGap = def.MergeDepthGap
	}
	if opt.AnnealIterations <= 0 {
		opt.AnnealIterations = def.AnnealIterations
	}
	if opt.MaxIterations < opt.AnnealIterations {
		opt.MaxIterations = max(def.MaxIterations, opt.AnnealIterations)
	}
	if opt.Epsilon <= 0 {
		opt.Epsilon = def.Epsilon
	}
	p := &Inpainter{opt: opt, log: opt.Logger}
	if p.log == nil {
		p.log = zap.NewNop()
	}
	return p
}

// scene bundles the read-only inputs of one reconstruction.
type scene struct {
	cm    *ColorMap
	graph *OcclusionGraph
	orig  Gray
	block BlockMap
	// border marks segment pixels that touch another segment.
	border []bool
}

func (s *scene) depth(id SegmentID) int {
	return s.graph.DepthOf(id)
}

// Reconstruct returns one silhouette per segment that touches another
// segment, by increasing depth and in topological order within a depth. A segment whose solve fails is left out and
// its error is joined into the returned error; the others are still built.
// An empty block map means no overrides.
func (p *Inpainter) Reconstruct(cm *ColorMap, g *OcclusionGraph, intensity Gray, block BlockMap) ([]Silhouette, error) {
	w, h := cm.Width(), cm.Height()
	if !intensity.sameSize(w, h) {
		return nil, fmt.Errorf("reconstruct: intensity %dx%d, mask %dx%d: %w", intensity.W, intensity.H, w, h, ErrSizeMismatch)
	}
	if len(block.Pix) == 0 {
		block = NewRaster[BlockFlag](w, h)
	}
	if !block.sameSize(w, h) {
		return nil, fmt.Errorf("reconstruct: block %dx%d, mask %dx%d: %w", block.W, block.H, w, h, ErrSizeMismatch)
	}
	for i, b := range block.Pix {
		if b > BlockMerge {
			return nil, fmt.Errorf("reconstruct: block value %d at (%d,%d): %w", b, i%w, i/w, ErrInvalidLabel)
		}
	}
	for i, id := range cm.Mask.Pix {
		if !id.Valid() {
			return nil, fmt.Errorf("reconstruct: pixel (%d,%d): %w", i%w, i/w, ErrUnsegmented)
		}
	}
	order := g.Order()
	if len(order) == 0 {
		return nil, nil
	}

	s := &scene{cm: cm, graph: g, block: block}
	if p.opt.Preprocess {
		s.orig = Preprocess(intensity)
	} else {
		s.orig = intensity.Clone()
	}
	segs := analyze(s, order)

	var (
		out  []Silhouette
		errs []error
	)
	for _, id := range order {
		info := segs[id]
		if id == Background || info == nil || info.box.empty() || info.alone {
			continue
		}
		var (
			sil Silhouette
			err error
		)
		if len(info.incidences) == 0 {
			sil = p.outline(s, id, info)
		} else {
			sil, err = p.fill(s, id, info)
		}
		if err != nil {
			p.log.Warn("segment reconstruction failed", zap.Int("segment", int(id)), zap.Error(err))
			errs = append(errs, fmt.Errorf("segment %d: %w", id, err))
			continue
		}
		out = append(out, sil)
	}
	slices.SortStableFunc(out, func(a, b Silhouette) int { return a.Depth - b.Depth })
	p.log.Info("reconstruction done",
		zap.Int("segments", len(order)),
		zap.Int("silhouettes", len(out)),
		zap.Int("failed", len(errs)))
	return out, errors.Join(errs...)
}

// segmentInfo is what the adjacency pass learns about one segment.
type segmentInfo struct {
	box    box
	window box
	// alone segments touch a single farther segment across a drawn line.
	alone bool
	// nearer is set once a neighbor lies in front of the segment.
	nearer     bool
	firstNeigh SegmentID
	// incidences are the segments that may hide a part of this one.
	incidences []SegmentID
}

// analyze collects bounding boxes, loneliness and the occluding segments of
// every id present in the mask, and fills s.border.
func analyze(s *scene, order []SegmentID) map[SegmentID]*segmentInfo {
	cm := s.cm
	w, h := cm.Width(), cm.Height()
	segs := make(map[SegmentID]*segmentInfo)
	s.border = make([]bool, w*h)
	get := func(id SegmentID) *segmentInfo {
		info, ok := segs[id]
		if !ok {
			info = &segmentInfo{box: emptyBox(w, h), alone: true, firstNeigh: Unassigned}
			segs[id] = info
		}
		return info
	}

	for y := range h {
		for x := range w {
			id := cm.Mask.At(x, y)
			if id == Background {
				continue
			}
			info := get(id)
			info.box.add(x, y)
			if s.block.At(x, y) == BlockMerge {
				info.alone = false
			}
			for d := range 4 {
				nx, ny := x+dx4[d], y+dy4[d]
				if !cm.Mask.In(nx, ny) {
					continue
				}
				n := cm.Mask.At(nx, ny)
				if n == id {
					continue
				}
				s.border[labelOffset(w, x, y)] = true
				higher := s.depth(id) < s.depth(n)
				if higher {
					info.nearer = true
				}
				switch {
				case info.firstNeigh == Unassigned:
					info.firstNeigh = n
					if higher {
						info.alone = false
					}
				case info.firstNeigh != n || higher:
					info.alone = false
				}
				// no line between the two segments
				if s.orig.At(x, y) != 0 && s.orig.At(nx, ny) != 0 {
					info.alone = false
				}
			}
		}
	}

	for i, id := range order {
		info := segs[id]
		if info == nil || !info.nearer {
			continue
		}
		for _, other := range order[i+1:] {
			if _, ok := segs[other]; ok && s.depth(id) < s.depth(other) {
				info.incidences = append(info.incidences, other)
			}
		}
		slices.Sort(info.incidences)
	}

	full := fullBox(w, h)
	for _, info := range segs {
		info.window = info.box
		for _, n := range info.incidences {
			nb := segs[n].box
			info.window.union(box{
				max(nb.minX-1, full.minX), max(nb.minY-1, full.minY),
				min(nb.maxX+1, full.maxX), min(nb.maxY+1, full.maxY),
			})
		}
	}
	return segs
}

// fill estimates the hidden part of segment id below its incidences and
// classifies the resulting outline.
func (p *Inpainter) fill(s *scene, id SegmentID, info *segmentInfo) (Silhouette, error) {
	win := info.window
	comp := NewRaster[float32](win.width(), win.height())
	for y := range comp.H {
		for x := range comp.W {
			m := s.cm.Mask.At(x+win.minX, y+win.minY)
			switch {
			case m == id:
				comp.Set(x, y, cellInside)
			case slices.Contains(info.incidences, m):
				comp.Set(x, y, cellOutside)
			default:
				comp.Set(x, y, cellUnknown)
			}
		}
	}

	border, _, _ := findBorder(comp, false)
	est, n, err := coarseEstimate(comp, p.opt.Scale)
	if err != nil {
		return Silhouette{}, err
	}
	dist := DistanceField(border)
	for i, v := range border.Pix {
		if v == cellOutside || v == cellInside {
			est.Pix[i] = v
		}
	}
	iters := relax(est, dist, p.opt.AnnealIterations, p.opt.MaxIterations, p.opt.Epsilon)
	threshold(est, s.cm, win, id, info.incidences)

	p.log.Debug("segment filled",
		zap.Int("segment", int(id)),
		zap.Int("unknowns", n),
		zap.Int("iterations", iters),
		zap.Int("width", win.width()),
		zap.Int("height", win.height()))
	return p.classify(s, id, est, win), nil
}
