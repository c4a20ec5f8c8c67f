package shapefill

import "math"

// Intensity preprocessing defaults.
const (
	DefaultGamma     = 9
	DefaultBlurSigma = 1 + 0.5*1.5
	DefaultThreshold = 0.65
)

// GammaCorrect raises every value to exp in place. A high exponent pushes
// anything short of pure white towards black so faint strokes count as lines.
func GammaCorrect(g Gray, exp float64) {
	for i, v := range g.Pix {
		g.Pix[i] = float32(math.Pow(float64(v), exp))
	}
}

// gaussianKernel is normalized and has 2*radius+1 taps.
func gaussianKernel(sigma float64, radius int) []float32 {
	k := make([]float32, 2*radius+1)
	var sum float64
	for i := -radius; i <= radius; i++ {
		v := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		k[i+radius] = float32(v)
		sum += v
	}
	for i := range k {
		k[i] = float32(float64(k[i]) / sum)
	}
	return k
}

// GaussianBlur convolves g in place with a separable Gaussian of radius
// int(6*sigma+1). Samples past the edge repeat the edge pixel.
func GaussianBlur(g Gray, sigma float64) {
	if sigma <= 0 || len(g.Pix) == 0 {
		return
	}
	radius := int(6*sigma + 1)
	k := gaussianKernel(sigma, radius)
	w, h := g.W, g.H
	tmp := make([]float32, len(g.Pix))
	for y := range h {
		for x := range w {
			var s float32
			for r := -radius; r <= radius; r++ {
				s += g.Pix[labelOffset(w, clampInt(x+r, 0, w-1), y)] * k[r+radius]
			}
			tmp[labelOffset(w, x, y)] = s
		}
	}
	for y := range h {
		for x := range w {
			var s float32
			for r := -radius; r <= radius; r++ {
				s += tmp[labelOffset(w, x, clampInt(y+r, 0, h-1))] * k[r+radius]
			}
			g.Pix[labelOffset(w, x, y)] = s
		}
	}
}

// BlurAndThreshold blurs g and maps it to 1 above DefaultThreshold, 0 elsewhere.
func BlurAndThreshold(g Gray) {
	GaussianBlur(g, DefaultBlurSigma)
	for i, v := range g.Pix {
		if v > DefaultThreshold {
			g.Pix[i] = 1
		} else {
			g.Pix[i] = 0
		}
	}
}

// Preprocess returns a binary copy of intensity where 0 marks drawn lines.
func Preprocess(intensity Gray) Gray {
	g := intensity.Clone()
	GammaCorrect(g, DefaultGamma)
	BlurAndThreshold(g)
	return g
}
