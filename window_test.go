package shapefill

import (
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFindBorder(t *testing.T) {
	src := Gray{W: 5, H: 1, Pix: []float32{1, 0, 0, 0, 0.5}}
	dst, ids, n := findBorder(src, false)
	if diff := cmp.Diff([]float32{-1, 1, 0.5, 0, -1}, dst.Pix); diff != "" {
		t.Errorf("border (-want +got):\n%s", diff)
	}
	if ids != nil || n != 0 {
		t.Errorf("unnumbered call returned ids %v, n %d", ids, n)
	}

	_, ids, n = findBorder(src, true)
	if diff := cmp.Diff([]int{-1, -1, 0, -1, -1}, ids); diff != "" {
		t.Errorf("ids (-want +got):\n%s", diff)
	}
	if n != 1 {
		t.Errorf("n = %d, want 1", n)
	}
}

func TestFindBorderInsideWins(t *testing.T) {
	// the middle occluder touches both an inside and an other pixel
	src := Gray{W: 3, H: 1, Pix: []float32{0.5, 0, 1}}
	dst, _, _ := findBorder(src, false)
	if dst.Pix[1] != cellInside {
		t.Errorf("occluder = %v, want 1", dst.Pix[1])
	}
}

func TestScaleDown(t *testing.T) {
	src := Gray{W: 4, H: 4, Pix: []float32{
		1, 1, 0, 0,
		1, 1, 0, 1,
		0, -1, 0, 1,
		-1, -1, 1, 0,
	}}
	got := scaleDown(src, 2)
	if got.W != 3 || got.H != 3 {
		t.Fatalf("size = %dx%d, want 3x3", got.W, got.H)
	}
	want := []float32{
		1, 0, 0.5,
		0.5, 1, 0.5,
		0.5, 0.5, 0.5,
	}
	if diff := cmp.Diff(want, got.Pix); diff != "" {
		t.Errorf("coarse (-want +got):\n%s", diff)
	}
}

func TestScaleDownOddSize(t *testing.T) {
	src := NewFilled[float32](5, 1, 0)
	got := scaleDown(src, 2)
	if got.W != 4 || got.H != 2 {
		t.Fatalf("size = %dx%d, want 4x2", got.W, got.H)
	}
	// the last real block holds a single pixel, under half its area
	if v := got.At(2, 0); v != cellUnknown {
		t.Errorf("partial block = %v, want unknown", v)
	}
	if v := got.At(0, 0); v != cellOutside {
		t.Errorf("full block = %v, want 0", v)
	}
}

func TestScaleDownOddScale(t *testing.T) {
	// a 3x3 block with 4 known pixels reaches half of 9 rounded down
	src := NewFilled[float32](3, 3, cellExcluded)
	src.Set(0, 0, cellInside)
	src.Set(1, 0, cellInside)
	src.Set(2, 0, cellInside)
	src.Set(0, 1, cellOutside)
	if v := scaleDown(src, 3).At(0, 0); v != cellInside {
		t.Errorf("4 of 9 known = %v, want inside", v)
	}
	src.Set(0, 1, cellExcluded)
	if v := scaleDown(src, 3).At(0, 0); v != cellUnknown {
		t.Errorf("3 of 9 known = %v, want unknown", v)
	}
}

func TestScaleUp(t *testing.T) {
	fine := Gray{W: 4, H: 1, Pix: []float32{0, 0, 0, 1}}
	coarse := Gray{W: 3, H: 2, Pix: []float32{
		0, 1, -1,
		0, 1, -1,
	}}
	got := scaleUp(fine, coarse, 2)
	if diff := cmp.Diff([]float32{0, 0.5, 1, -1}, got.Pix); diff != "" {
		t.Errorf("fine (-want +got):\n%s", diff)
	}
}

func TestCoarseEstimateKeepsUniformLabels(t *testing.T) {
	sizes := []image.Point{{1, 1}, {4, 4}, {5, 3}, {7, 5}, {6, 9}}
	for _, scale := range []int{2, 3} {
		for _, size := range sizes {
			for _, v := range []float32{cellOutside, cellInside} {
				comp := NewFilled(size.X, size.Y, v)
				est, _, err := coarseEstimate(comp, scale)
				if err != nil {
					t.Fatalf("scale %d %v value %v: %v", scale, size, v, err)
				}
				for i, got := range est.Pix {
					// pixels that are not occluders keep their own label
					if got == cellExcluded {
						got = comp.Pix[i]
					}
					if got != v {
						t.Errorf("scale %d %v value %v: pixel %d = %v", scale, size, v, i, got)
						break
					}
				}
			}
		}
	}
}

func TestRelaxConvergesToRamp(t *testing.T) {
	est := Gray{W: 5, H: 1, Pix: []float32{0, 0.5, 0.5, 0.5, 1}}
	dist := DistanceField(est)
	iters := relax(est, dist, 20, 500, 1e-5)
	if iters < 20 || iters >= 500 {
		t.Errorf("iterations = %d, want within [20, 500)", iters)
	}
	for i, w := range []float32{0, 0.25, 0.5, 0.75, 1} {
		if !near(est.Pix[i], w, 1e-3) {
			t.Errorf("pixel %d = %v, want %v", i, est.Pix[i], w)
		}
	}
}

func TestRelaxStopsAtLimit(t *testing.T) {
	est := Gray{W: 5, H: 1, Pix: []float32{0, 0.5, 0.5, 0.5, 1}}
	if got := relax(est, DistanceField(est), 20, 3, 1e-5); got != 3 {
		t.Errorf("iterations = %d, want 3", got)
	}
}

func TestRelaxKeepsExcluded(t *testing.T) {
	est := Gray{W: 4, H: 1, Pix: []float32{1, 0.5, -1, 0}}
	dist := Gray{W: 4, H: 1, Pix: []float32{0, 1, 1, 0}}
	relax(est, dist, 4, 100, 1e-5)
	if est.Pix[2] != -1 {
		t.Errorf("excluded pixel = %v", est.Pix[2])
	}
	if !near(est.Pix[1], 1, 1e-6) {
		t.Errorf("free pixel = %v, want 1 from its only sample", est.Pix[1])
	}
}

func TestThreshold(t *testing.T) {
	cm := NewColorMap(4, 1)
	cm.Mask.Pix = []SegmentID{1, 2, 2, 3}
	est := Gray{W: 3, H: 1, Pix: []float32{0, 0.6, 0.4}}
	threshold(est, cm, box{minX: 1, maxX: 3}, 2, []SegmentID{3})
	// window starts at x=1: ids 2, 2, 3
	if diff := cmp.Diff([]float32{1, 1, 0}, est.Pix); diff != "" {
		t.Errorf("threshold (-want +got):\n%s", diff)
	}
}

func TestThicken(t *testing.T) {
	border := NewFilled(5, 5, borderNone)
	border.Set(1, 2, borderMerge)
	border.Set(2, 2, borderHard)
	got := thicken(border)
	for y := range 5 {
		for x := range 5 {
			want := borderNone
			switch {
			case x >= 1 && x <= 3 && y >= 1 && y <= 3:
				want = borderHard
			case x == 0 && y >= 1 && y <= 3:
				want = borderMerge
			}
			if v := got.At(x, y); v != want {
				t.Errorf("(%d,%d) = %v, want %v", x, y, v, want)
			}
		}
	}
}
