package utils

import (
	"cmp"
	"fmt"
	"image"
	"image/color"
	"math"
	"slices"

	"github.com/cenkalti/dominantcolor"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
	"go.uber.org/zap"
)

type PaletteMethod int

const (
	PaletteMethodDominantColor PaletteMethod = iota
	PaletteMethodKMeans
)

func (m PaletteMethod) String() string {
	switch m {
	case PaletteMethodKMeans:
		return "kmeans"
	default:
		return "dominantcolor"
	}
}

// ParsePaletteMethod accepts the names returned by String.
func ParsePaletteMethod(s string) (PaletteMethod, error) {
	switch s {
	case "kmeans":
		return PaletteMethodKMeans, nil
	case "dominantcolor", "":
		return PaletteMethodDominantColor, nil
	}
	return 0, fmt.Errorf("unknown palette method %q", s)
}

// Candidates lighter than paperL or darker than inkL are paper and line
// work, not fill colors.
const (
	paperL = 0.95
	inkL   = 0.12
)

type weightedColor struct {
	Col    colorful.Color
	Weight float64
}

func isFillColor(c colorful.Color) bool {
	l, _, _ := c.Lab()
	return l < paperL && l > inkL
}

// SortPaletteByBrightness orders colors by Lab lightness, darkest first.
// Equal lightness keeps the input order.
func SortPaletteByBrightness(palette []colorful.Color) {
	slices.SortStableFunc(palette, func(a, b colorful.Color) int {
		la, _, _ := a.Lab()
		lb, _, _ := b.Lab()
		return cmp.Compare(la, lb)
	})
}

func ExtractDominantPalette(img image.Image, k int) []colorful.Color {
	if k <= 0 {
		return nil
	}
	found := dominantcolor.FindWeight(img, max(24, k*8))
	weighted := make([]weightedColor, 0, len(found))
	for _, c := range found {
		col, _ := colorful.MakeColor(c.RGBA)
		col = col.Clamped()
		if !isFillColor(col) {
			continue
		}
		weighted = append(weighted, weightedColor{Col: col, Weight: max(c.Weight, 1e-6)})
	}
	return SelectDiverseWeightedColors(weighted, k)
}

// weightBias is the share of a candidate's score that depends on its
// weight. The rest comes from its distance to the colors already picked.
const weightBias = 0.45

// SelectDiverseWeightedColors picks up to k segment colors. The heaviest
// candidate goes first; every further pick is the candidate farthest in Lab
// from all earlier picks, favoring heavier ones.
func SelectDiverseWeightedColors(cands []weightedColor, k int) []colorful.Color {
	k = min(k, len(cands))
	if k <= 0 {
		return nil
	}
	heaviest := slices.MaxFunc(cands, func(a, b weightedColor) int { return cmp.Compare(a.Weight, b.Weight) })
	maxW := max(heaviest.Weight, 1e-6)

	// nearest[i] is the Lab distance from candidate i to its closest pick,
	// or -1 once i is picked.
	nearest := make([]float64, len(cands))
	for i := range nearest {
		nearest[i] = math.Inf(1)
	}
	out := make([]colorful.Color, 0, k)
	pick := slices.IndexFunc(cands, func(c weightedColor) bool { return c.Weight == heaviest.Weight })
	for pick >= 0 {
		picked := cands[pick].Col
		out = append(out, picked)
		nearest[pick] = -1
		if len(out) == k {
			break
		}
		pick = -1
		best := -1.0
		for i, c := range cands {
			if nearest[i] < 0 {
				continue
			}
			nearest[i] = min(nearest[i], c.Col.DistanceLab(picked))
			score := nearest[i] * (1 - weightBias + weightBias*math.Sqrt(c.Weight/maxW))
			if score > best {
				pick, best = i, score
			}
		}
	}
	return out
}

// maxKMeansSamples bounds the pixels handed to k-means.
const maxKMeansSamples = 12000

// fillSamples collects the fill-colored opaque pixels of img in Lab, on a
// grid coarse enough to stay under maxKMeansSamples.
func fillSamples(img image.Image) clusters.Observations {
	b := img.Bounds()
	area := b.Dx() * b.Dy()
	if area == 0 {
		return nil
	}
	step := 1
	if area > maxKMeansSamples {
		step = int(math.Ceil(math.Sqrt(float64(area) / maxKMeansSamples)))
	}
	var samples clusters.Observations
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.A == 0 {
				continue
			}
			c.A = 255
			col, _ := colorful.MakeColor(c)
			if !isFillColor(col) {
				continue
			}
			l, a, bb := col.Lab()
			samples = append(samples, clusters.Coordinates{l, a, bb})
		}
	}
	return samples
}

// ExtractKMeansPalette clusters the fill pixels of img in Lab into a few
// more groups than needed and keeps k diverse cluster centers, weighted by
// cluster size.
func ExtractKMeansPalette(img image.Image, k int) []colorful.Color {
	if k <= 0 {
		return nil
	}
	samples := fillSamples(img)
	if len(samples) == 0 {
		return nil
	}
	groups, err := kmeans.New().Partition(samples, min(max(k*4, k+2), len(samples)))
	if err != nil {
		Logger.Debug("kmeans partition failed", zap.Error(err))
		return nil
	}
	weighted := make([]weightedColor, 0, len(groups))
	for _, g := range groups {
		if len(g.Observations) == 0 {
			continue
		}
		col := colorful.Lab(g.Center[0], g.Center[1], g.Center[2]).Clamped()
		if !isFillColor(col) {
			continue
		}
		weighted = append(weighted, weightedColor{Col: col, Weight: float64(len(g.Observations))})
	}
	return SelectDiverseWeightedColors(weighted, k)
}

// ExtractPalette returns up to k fill colors of img. Paper white and line
// black are never returned.
func ExtractPalette(img image.Image, k int, method PaletteMethod) []colorful.Color {
	switch method {
	case PaletteMethodKMeans:
		if p := ExtractKMeansPalette(img, k); len(p) != 0 {
			return p
		}
		Logger.Warn("kmeans returned an empty palette, falling back to dominantcolor")
		return ExtractDominantPalette(img, k)
	default:
		return ExtractDominantPalette(img, k)
	}
}

// HuePalette spreads k colors evenly around the hue circle. It is used when
// the drawing has no fill colors of its own.
func HuePalette(k int) []colorful.Color {
	out := make([]colorful.Color, k)
	for i := range k {
		out[i] = colorful.Hcl(float64(i)*360/float64(k), 0.6, 0.7).Clamped()
	}
	return out
}

func SavePalette(palette []colorful.Color, tileSize int, filename string) error {
	if len(palette) == 0 {
		return fmt.Errorf("empty palette")
	}
	if tileSize <= 0 {
		tileSize = 64
	}
	img := image.NewRGBA(image.Rect(0, 0, tileSize*len(palette), tileSize))
	for i, c := range palette {
		r, g, b := c.Clamped().RGB255()
		for y := range tileSize {
			for x := i * tileSize; x < (i+1)*tileSize; x++ {
				img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
			}
		}
	}
	return SaveImage(img, filename)
}
