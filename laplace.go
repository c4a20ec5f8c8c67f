package shapefill

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Values of the ternary working field.
const (
	cellExcluded float32 = -1
	cellOutside  float32 = 0
	cellUnknown  float32 = 0.5
	cellInside   float32 = 1
)

// SolveLaplace replaces every unknown (0.5) pixel of img with the value that
// makes it the mean of its in-bounds, non-excluded 4-neighbors. ids maps a
// pixel to its unknown index 0..n-1, or -1. Known and excluded pixels are not
// touched.
//
// The system is assembled negated so that it is symmetric positive definite
// and stored banded; row-major numbering keeps the band within one image row.
// Memory is n times the band width, so one solve over a wide window of
// unknowns costs roughly unknowns*row-width float64 values.
func SolveLaplace(img Gray, ids []int, n int) error {
	if len(ids) != len(img.Pix) {
		return fmt.Errorf("laplace: %d ids for %d pixels: %w", len(ids), len(img.Pix), ErrSizeMismatch)
	}
	if n == 0 {
		return nil
	}

	w := img.W
	bw := 0
	for i, v := range img.Pix {
		if v != cellUnknown {
			continue
		}
		x, y := i%w, i/w
		for d := range 4 {
			nx, ny := x+dx4[d], y+dy4[d]
			if !img.In(nx, ny) {
				continue
			}
			if j := ids[labelOffset(w, nx, ny)]; j >= 0 {
				bw = max(bw, abs(j-ids[i]))
			}
		}
	}

	a := mat.NewSymBandDense(n, bw, nil)
	b := mat.NewVecDense(n, nil)
	for i, v := range img.Pix {
		if v != cellUnknown {
			continue
		}
		row := ids[i]
		if row < 0 || row >= n {
			return fmt.Errorf("laplace: unknown pixel %d has id %d of %d: %w", i, row, n, ErrInvalidLabel)
		}
		x, y := i%w, i/w
		count := 0
		rhs := 0.0
		for d := range 4 {
			nx, ny := x+dx4[d], y+dy4[d]
			if !img.In(nx, ny) {
				continue
			}
			off := labelOffset(w, nx, ny)
			nv := img.Pix[off]
			if nv == cellExcluded {
				continue
			}
			count++
			if nv != cellUnknown {
				rhs += float64(nv)
				continue
			}
			if col := ids[off]; col > row {
				a.SetSymBand(row, col, -1)
			}
		}
		a.SetSymBand(row, row, float64(count))
		b.SetVec(row, rhs)
	}

	var chol mat.BandCholesky
	if ok := chol.Factorize(a); !ok {
		return fmt.Errorf("laplace: %d unknowns: %w", n, ErrSolverDiverged)
	}
	var x mat.VecDense
	if err := chol.SolveVecTo(&x, b); err != nil {
		return fmt.Errorf("laplace: %w: %w", ErrSolverDiverged, err)
	}
	for i, v := range img.Pix {
		if v == cellUnknown {
			img.Pix[i] = float32(x.AtVec(ids[i]))
		}
	}
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
