package shapefill

import (
	"errors"
	"image"
	"image/color"
)

var (
	ErrSizeMismatch   = errors.New("shapefill: raster size mismatch")
	ErrInvalidLabel   = errors.New("shapefill: label out of range")
	ErrUnsegmented    = errors.New("shapefill: mask contains unassigned pixels")
	ErrSolverDiverged = errors.New("shapefill: laplace system is not positive definite")
)

// Raster is a row-major 2D buffer with its size carried alongside.
type Raster[T any] struct {
	W, H int
	Pix  []T // len = W*H
}

type (
	Gray     = Raster[float32]
	LabelMap = Raster[SegmentID]
	BlockMap = Raster[BlockFlag]
)

// BlockFlag overrides the merge decision at a pixel.
type BlockFlag uint8

const (
	BlockNone BlockFlag = iota
	BlockSplit
	BlockMerge
)

func NewRaster[T any](w, h int) Raster[T] {
	return Raster[T]{W: w, H: h, Pix: make([]T, w*h)}
}

// NewFilled returns a raster with every pixel set to v.
func NewFilled[T any](w, h int, v T) Raster[T] {
	r := NewRaster[T](w, h)
	r.Fill(v)
	return r
}

func (r Raster[T]) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < r.W && y < r.H
}

func (r Raster[T]) At(x, y int) T {
	return r.Pix[labelOffset(r.W, x, y)]
}

func (r Raster[T]) Set(x, y int, v T) {
	r.Pix[labelOffset(r.W, x, y)] = v
}

func (r Raster[T]) Fill(v T) {
	for i := range r.Pix {
		r.Pix[i] = v
	}
}

func (r Raster[T]) Clone() Raster[T] {
	out := Raster[T]{W: r.W, H: r.H, Pix: make([]T, len(r.Pix))}
	copy(out.Pix, r.Pix)
	return out
}

func (r Raster[T]) sameSize(w, h int) bool {
	return r.W == w && r.H == h && len(r.Pix) == w*h
}

// GrayImage converts values in [0,1] to an 8-bit image. Negative values map to 0.
func GrayImage(r Gray) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, r.W, r.H))
	for y := range r.H {
		for x := range r.W {
			v := max(0, min(1, r.At(x, y)))
			out.SetGray(x, y, color.Gray{Y: uint8(v*255 + 0.5)})
		}
	}
	return out
}

func labelOffset(w, x, y int) int {
	return y*w + x
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

var (
	dx4 = [4]int{-1, 0, 1, 0}
	dy4 = [4]int{0, -1, 0, 1}
)

// box is an inclusive pixel rectangle.
type box struct {
	minX, minY, maxX, maxY int
}

func fullBox(w, h int) box {
	return box{0, 0, w - 1, h - 1}
}

// emptyBox is ready to be grown with add.
func emptyBox(w, h int) box {
	return box{w, h, -1, -1}
}

func (b box) empty() bool {
	return b.maxX < b.minX || b.maxY < b.minY
}

func (b box) width() int  { return b.maxX - b.minX + 1 }
func (b box) height() int { return b.maxY - b.minY + 1 }

func (b box) contains(x, y int) bool {
	return x >= b.minX && x <= b.maxX && y >= b.minY && y <= b.maxY
}

func (b *box) add(x, y int) {
	b.minX = min(b.minX, x)
	b.minY = min(b.minY, y)
	b.maxX = max(b.maxX, x)
	b.maxY = max(b.maxY, y)
}

func (b *box) union(o box) {
	if o.empty() {
		return
	}
	b.add(o.minX, o.minY)
	b.add(o.maxX, o.maxY)
}
