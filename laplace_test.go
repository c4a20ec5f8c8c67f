package shapefill

import (
	"errors"
	"math"
	"testing"
)

func near(a, b, tol float32) bool {
	return math.Abs(float64(a-b)) <= float64(tol)
}

func TestSolveLaplaceLine(t *testing.T) {
	img := Gray{W: 5, H: 1, Pix: []float32{0, 0.5, 0.5, 0.5, 1}}
	ids := []int{-1, 0, 1, 2, -1}
	if err := SolveLaplace(img, ids, 3); err != nil {
		t.Fatalf("SolveLaplace: %v", err)
	}
	want := []float32{0, 0.25, 0.5, 0.75, 1}
	for i, w := range want {
		if !near(img.Pix[i], w, 1e-6) {
			t.Errorf("pixel %d = %v, want %v", i, img.Pix[i], w)
		}
	}
}

func TestSolveLaplaceSkipsExcluded(t *testing.T) {
	img := Gray{W: 3, H: 1, Pix: []float32{-1, 0.5, 1}}
	if err := SolveLaplace(img, []int{-1, 0, -1}, 1); err != nil {
		t.Fatalf("SolveLaplace: %v", err)
	}
	if !near(img.Pix[1], 1, 1e-6) {
		t.Errorf("unknown = %v, want 1", img.Pix[1])
	}
	if img.Pix[0] != -1 {
		t.Errorf("excluded pixel changed to %v", img.Pix[0])
	}
}

func TestSolveLaplaceMeanOfNeighbors(t *testing.T) {
	img := Gray{W: 3, H: 3, Pix: []float32{
		-1, 1, -1,
		1, 0.5, 1,
		-1, 0, -1,
	}}
	ids := []int{-1, -1, -1, -1, 0, -1, -1, -1, -1}
	if err := SolveLaplace(img, ids, 1); err != nil {
		t.Fatalf("SolveLaplace: %v", err)
	}
	if !near(img.Pix[4], 0.75, 1e-6) {
		t.Errorf("center = %v, want 0.75", img.Pix[4])
	}
}

func TestSolveLaplaceGrid(t *testing.T) {
	// left column 0, right column 1: every unknown row is a linear ramp
	const w, h = 6, 4
	img := NewFilled[float32](w, h, cellUnknown)
	ids := make([]int, w*h)
	n := 0
	for y := range h {
		for x := range w {
			i := labelOffset(w, x, y)
			switch x {
			case 0:
				img.Pix[i], ids[i] = 0, -1
			case w - 1:
				img.Pix[i], ids[i] = 1, -1
			default:
				ids[i] = n
				n++
			}
		}
	}
	if err := SolveLaplace(img, ids, n); err != nil {
		t.Fatalf("SolveLaplace: %v", err)
	}
	for y := range h {
		for x := range w {
			want := float32(x) / float32(w-1)
			if got := img.At(x, y); !near(got, want, 1e-5) {
				t.Errorf("(%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestSolveLaplaceNothingToSolve(t *testing.T) {
	img := Gray{W: 2, H: 1, Pix: []float32{0, 1}}
	if err := SolveLaplace(img, []int{-1, -1}, 0); err != nil {
		t.Fatalf("SolveLaplace: %v", err)
	}
	if img.Pix[0] != 0 || img.Pix[1] != 1 {
		t.Errorf("image changed: %v", img.Pix)
	}
}

func TestSolveLaplaceErrors(t *testing.T) {
	img := Gray{W: 3, H: 1, Pix: []float32{0, 0.5, 1}}
	if err := SolveLaplace(img, []int{-1, 0}, 1); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("short ids: err = %v, want ErrSizeMismatch", err)
	}
	isolated := Gray{W: 3, H: 1, Pix: []float32{-1, 0.5, -1}}
	if err := SolveLaplace(isolated, []int{-1, 0, -1}, 1); !errors.Is(err, ErrSolverDiverged) {
		t.Errorf("isolated unknown: err = %v, want ErrSolverDiverged", err)
	}
}
