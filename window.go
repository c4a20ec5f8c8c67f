package shapefill

import "slices"

// findBorder turns a window of inside (1), occluder (0) and other (0.5)
// pixels into a boundary problem over the occluder pixels. An occluder pixel
// next to an inside pixel becomes 1, one next to an other pixel becomes 0 and
// the rest stay unknown. Every non-occluder pixel is excluded. With number
// set, unknown pixels also get consecutive ids in row-major order.
func findBorder(src Gray, number bool) (dst Gray, ids []int, n int) {
	dst = NewFilled(src.W, src.H, cellExcluded)
	if number {
		ids = make([]int, len(src.Pix))
		for i := range ids {
			ids[i] = -1
		}
	}
	for y := range src.H {
		for x := range src.W {
			if src.At(x, y) != cellOutside {
				continue
			}
			v := cellUnknown
			for d := range 4 {
				nx, ny := x+dx4[d], y+dy4[d]
				if !src.In(nx, ny) {
					continue
				}
				switch src.At(nx, ny) {
				case cellInside:
					v = cellInside
				case cellUnknown:
					if v != cellInside {
						v = cellOutside
					}
				}
			}
			dst.Set(x, y, v)
			if number && v == cellUnknown {
				ids[labelOffset(src.W, x, y)] = n
				n++
			}
		}
	}
	return dst, ids, n
}

// scaleDown reduces src by block majority. A block with fewer known pixels
// than half its area, rounded down, becomes unknown; ties go to inside. The result has one
// extra row and column of unknown padding so bilinear lookups stay in range.
func scaleDown(src Gray, scale int) Gray {
	w := (src.W+scale-1)/scale + 1
	h := (src.H+scale-1)/scale + 1
	dst := NewRaster[float32](w, h)
	half := scale * scale / 2
	for by := range h {
		for bx := range w {
			var outside, inside int
			for y := by * scale; y < min((by+1)*scale, src.H); y++ {
				for x := bx * scale; x < min((bx+1)*scale, src.W); x++ {
					switch src.At(x, y) {
					case cellOutside:
						outside++
					case cellInside:
						inside++
					}
				}
			}
			switch {
			case outside+inside == 0 || outside+inside < half:
				dst.Set(bx, by, cellUnknown)
			case outside > inside:
				dst.Set(bx, by, cellOutside)
			default:
				dst.Set(bx, by, cellInside)
			}
		}
	}
	return dst
}

// scaleUp bilinearly interpolates the coarse solution onto the occluder
// pixels of fine. Every other pixel is excluded. Negative coarse samples
// count as 0.
func scaleUp(fine, coarse Gray, scale int) Gray {
	dst := NewRaster[float32](fine.W, fine.H)
	sample := func(x, y int) float32 {
		return max(coarse.At(x, y), 0)
	}
	for y := range fine.H {
		for x := range fine.W {
			if fine.At(x, y) != cellOutside {
				dst.Set(x, y, cellExcluded)
				continue
			}
			cx, cy := x/scale, y/scale
			fx := float32(x%scale) / float32(scale)
			fy := float32(y%scale) / float32(scale)
			v := sample(cx, cy)*(1-fx)*(1-fy) +
				sample(cx+1, cy)*fx*(1-fy) +
				sample(cx, cy+1)*(1-fx)*fy +
				sample(cx+1, cy+1)*fx*fy
			dst.Set(x, y, v)
		}
	}
	return dst
}

// coarseEstimate solves the boundary problem of comp on a grid reduced by
// scale and interpolates the result back onto the occluder pixels. It also
// returns the number of coarse unknowns.
func coarseEstimate(comp Gray, scale int) (Gray, int, error) {
	system, ids, n := findBorder(scaleDown(comp, scale), true)
	if err := SolveLaplace(system, ids, n); err != nil {
		return Gray{}, n, err
	}
	return scaleUp(comp, system, scale), n, nil
}

// relax smooths est with Gauss-Seidel passes where every free pixel becomes
// the mean of four samples taken dist away, shrinking the distance to one
// pixel over the second half of the anneal schedule. Pixels with zero
// distance and excluded pixels are fixed; excluded samples are skipped.
// It runs at least anneal passes and at most maxIter and returns the count.
func relax(est, dist Gray, anneal, maxIter int, eps float32) int {
	limit := max(est.W, est.H)
	for iter := 1; ; iter++ {
		done := true
		scale := float32(1)
		if iter >= anneal/2 {
			scale = 1 - float32(iter)/float32(anneal)
		}
		for y := range est.H {
			for x := range est.W {
				i := labelOffset(est.W, x, y)
				if dist.Pix[i] == 0 || est.Pix[i] == cellExcluded {
					continue
				}
				off := max(int(min(dist.Pix[i]*scale, float32(limit))), 1)
				var sum float32
				cnt := 0
				for d := range 4 {
					nx, ny := x+dx4[d]*off, y+dy4[d]*off
					if !est.In(nx, ny) {
						continue
					}
					if v := est.At(nx, ny); v != cellExcluded {
						sum += v
						cnt++
					}
				}
				if cnt == 0 {
					continue
				}
				v := sum / float32(cnt)
				if diff := v - est.Pix[i]; diff > eps || diff < -eps {
					done = false
				}
				est.Pix[i] = v
			}
		}
		if (done && iter >= anneal) || iter >= maxIter {
			return iter
		}
	}
}

// threshold keeps the pixels of segment id and the occluder pixels estimated
// to hide it (>= 0.5) as 1 and sets everything else to 0. win locates est in
// the mask.
func threshold(est Gray, cm *ColorMap, win box, id SegmentID, incidences []SegmentID) {
	for y := range est.H {
		for x := range est.W {
			m := cm.At(x+win.minX, y+win.minY)
			i := labelOffset(est.W, x, y)
			if m == id || (est.Pix[i] >= 0.5 && slices.Contains(incidences, m)) {
				est.Pix[i] = 1
			} else {
				est.Pix[i] = 0
			}
		}
	}
}
