package shapefill

import "math"

// far stands in for infinity in the squared distance domain.
const far = 1e12

// DistanceField returns, for every unknown (0.5) pixel, the Euclidean
// distance to the nearest pixel that is not unknown. Other pixels get 0.
// Without any such pixel every distance is very large.
func DistanceField(img Gray) Gray {
	w, h := img.W, img.H
	f := make([]float64, w*h)
	for i, v := range img.Pix {
		if v == cellUnknown {
			f[i] = far
		}
	}

	n := max(w, h)
	line := make([]float64, n)
	d := make([]float64, n)
	v := make([]int, n)
	z := make([]float64, n+1)
	for x := range w {
		for y := range h {
			line[y] = f[labelOffset(w, x, y)]
		}
		lowerEnvelope(line[:h], d[:h], v, z)
		for y := range h {
			f[labelOffset(w, x, y)] = d[y]
		}
	}
	for y := range h {
		copy(line[:w], f[y*w:(y+1)*w])
		lowerEnvelope(line[:w], d[:w], v, z)
		copy(f[y*w:(y+1)*w], d[:w])
	}

	out := NewRaster[float32](w, h)
	for i, s := range f {
		out.Pix[i] = float32(math.Sqrt(s))
	}
	return out
}

// lowerEnvelope is the 1D squared distance transform of sampled function f
// (Felzenszwalb and Huttenlocher). v and z are scratch buffers of length
// len(f) and len(f)+1.
func lowerEnvelope(f, d []float64, v []int, z []float64) {
	n := len(f)
	if n == 0 {
		return
	}
	k := 0
	v[0] = 0
	z[0] = math.Inf(-1)
	z[1] = math.Inf(1)
	for q := 1; q < n; q++ {
		s := intersect(f, q, v[k])
		for s <= z[k] {
			k--
			s = intersect(f, q, v[k])
		}
		k++
		v[k] = q
		z[k] = s
		z[k+1] = math.Inf(1)
	}
	k = 0
	for q := range n {
		for z[k+1] < float64(q) {
			k++
		}
		dq := float64(q - v[k])
		d[q] = dq*dq + f[v[k]]
	}
}

// intersect is where the parabolas rooted at q and p meet.
func intersect(f []float64, q, p int) float64 {
	fq, fp := float64(q), float64(p)
	return ((f[q] + fq*fq) - (f[p] + fp*fp)) / (2*fq - 2*fp)
}
