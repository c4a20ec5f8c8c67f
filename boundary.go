package shapefill

// Border raster values.
const (
	borderHard  float32 = 0
	borderMerge float32 = 0.25
	borderNone  float32 = 1
)

// neighbors4 returns the ids around (x,y) and false when (x,y) lies on the
// image edge.
func neighbors4(cm *ColorMap, x, y int) ([4]SegmentID, bool) {
	var n [4]SegmentID
	if x <= 0 || y <= 0 || x >= cm.Width()-1 || y >= cm.Height()-1 {
		return n, false
	}
	for d := range 4 {
		n[d] = cm.Mask.At(x+dx4[d], y+dy4[d])
	}
	return n, true
}

func noBackground(n [4]SegmentID) bool {
	for _, id := range n {
		if id == Background {
			return false
		}
	}
	return true
}

// classify builds the silhouette of id from its thresholded estimate est,
// placed at win in the image. Outline pixels are hard unless an override,
// an edge of the occlusion graph or one of the merge heuristics says the
// segment continues into its neighbor.
func (p *Inpainter) classify(s *scene, id SegmentID, est Gray, win box) Silhouette {
	w, h := s.cm.Width(), s.cm.Height()
	mask := NewRaster[float32](w, h)
	border := NewFilled(w, h, borderNone)
	inside := func(ex, ey int) bool {
		return est.In(ex, ey) && est.At(ex, ey) != 0
	}
	for y := win.minY; y <= win.maxY; y++ {
		for x := win.minX; x <= win.maxX; x++ {
			ex, ey := x-win.minX, y-win.minY
			if !inside(ex, ey) {
				continue
			}
			mask.Set(x, y, 1)
			edge := ex == 0 || ey == 0 || ex == est.W-1 || ey == est.H-1
			if !edge {
				for d := range 4 {
					if !inside(ex+dx4[d], ey+dy4[d]) {
						edge = true
						break
					}
				}
			}
			if edge {
				border.Set(x, y, p.outlineValue(s, id, x, y))
			}
		}
	}
	return Silhouette{ID: id, Depth: s.depth(id), Mask: mask, Border: thicken(border)}
}

// outlineValue decides a single outline pixel of a reconstructed segment.
// Anything undecided stays a hard outline.
func (p *Inpainter) outlineValue(s *scene, id SegmentID, x, y int) float32 {
	cm := s.cm
	blk := s.block.At(x, y)
	if blk == BlockSplit {
		return borderHard
	}
	n, ok := neighbors4(cm, x, y)
	if !ok {
		return borderHard
	}
	closed := noBackground(n)
	if blk == BlockMerge && closed {
		return borderMerge
	}
	// the segment stops short of a drawn line nearby
	if cm.At(x, y) == id {
		for d := range 4 {
			if s.orig.At(x+dx4[d], y+dy4[d]) < p.opt.WhiteThreshold {
				return borderHard
			}
		}
	}
	if !closed {
		return borderHard
	}

	switch p.edgeDecision(s, id, n) {
	case EdgeSplit:
		return borderHard
	case EdgeMerge:
		return borderMerge
	}
	own := s.depth(id)
	for _, nid := range n {
		if s.depth(nid)-own == p.opt.MergeDepthGap {
			return borderMerge
		}
	}
	// open contour in front of farther segments
	if s.orig.At(x, y) >= p.opt.WhiteThreshold && cm.At(x, y) == id {
		for _, nid := range n {
			if s.depth(nid) < own {
				return borderMerge
			}
		}
	}
	return borderHard
}

// edgeDecision looks at the edges leaving id towards the given neighbors.
// A split edge outweighs a merge edge.
func (p *Inpainter) edgeDecision(s *scene, id SegmentID, n [4]SegmentID) EdgeType {
	decision := EdgeDefault
	for _, nid := range n {
		if nid == id {
			continue
		}
		typ, ok := s.graph.EdgeBetween(id, nid)
		if !ok {
			continue
		}
		switch typ {
		case EdgeSplit:
			return EdgeSplit
		case EdgeMerge:
			decision = EdgeMerge
		}
	}
	return decision
}

// outline exports a segment that nothing hides: its mask as is, with merge
// markers where it meets another segment across paper.
func (p *Inpainter) outline(s *scene, id SegmentID, info *segmentInfo) Silhouette {
	cm := s.cm
	w, h := cm.Width(), cm.Height()
	mask := cm.SegmentMask(id)
	border := NewFilled(w, h, borderNone)
	for y := info.box.minY; y <= info.box.maxY; y++ {
		for x := info.box.minX; x <= info.box.maxX; x++ {
			if cm.At(x, y) != id || !s.border[labelOffset(w, x, y)] {
				continue
			}
			border.Set(x, y, p.outlineByBorders(s, x, y))
		}
	}
	return Silhouette{ID: id, Depth: s.depth(id), Mask: mask, Border: thicken(border)}
}

func (p *Inpainter) outlineByBorders(s *scene, x, y int) float32 {
	blk := s.block.At(x, y)
	n, ok := neighbors4(s.cm, x, y)
	if !ok || blk == BlockSplit || !noBackground(n) {
		return borderHard
	}
	if blk == BlockMerge {
		return borderMerge
	}
	if s.orig.At(x, y) < p.opt.WhiteThreshold {
		return borderHard
	}
	for d := range 4 {
		if s.orig.At(x+dx4[d], y+dy4[d]) < p.opt.WhiteThreshold {
			return borderHard
		}
	}
	return borderMerge
}

// thicken spreads every outline pixel over its 3x3 neighborhood. Later
// pixels in row-major order win where spreads overlap.
func thicken(border Gray) Gray {
	out := NewFilled(border.W, border.H, borderNone)
	for y := range border.H {
		for x := range border.W {
			v := border.At(x, y)
			if v == borderNone {
				continue
			}
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if out.In(x+dx, y+dy) {
						out.Set(x+dx, y+dy, v)
					}
				}
			}
		}
	}
	return out
}
