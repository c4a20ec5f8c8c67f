package utils

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/setanarut/shapefill"
	"golang.org/x/image/draw"
)

func ReadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

func SaveImage(img image.Image, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

// SaveGrayImages writes images as prefix_000.png, prefix_001.png, ... into dir.
func SaveGrayImages(images []*image.Gray, dir, prefix string) error {
	for i, img := range images {
		name := filepath.Join(dir, fmt.Sprintf("%s_%03d.png", prefix, i))
		if err := SaveImage(img, name); err != nil {
			return err
		}
	}
	return nil
}

func SaveRgbaImages(images []*image.NRGBA, dir, prefix string) error {
	for i, img := range images {
		name := filepath.Join(dir, fmt.Sprintf("%s_%03d.png", prefix, i))
		if err := SaveImage(img, name); err != nil {
			return err
		}
	}
	return nil
}

// ScaleAndPad fits img into size keeping its aspect ratio and centers it on
// a white canvas. Use draw.NearestNeighbor for label images so colors survive.
func ScaleAndPad(img image.Image, size image.Point, interp draw.Interpolator) *image.NRGBA {
	dst := image.NewNRGBA(image.Rectangle{Max: size})
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	b := img.Bounds()
	if b.Empty() || size.X <= 0 || size.Y <= 0 {
		return dst
	}
	w, h := size.X, size.Y
	if b.Dx()*size.Y > b.Dy()*size.X {
		h = max(1, b.Dy()*size.X/b.Dx())
	} else {
		w = max(1, b.Dx()*size.Y/b.Dy())
	}
	x0, y0 := (size.X-w)/2, (size.Y-h)/2
	interp.Scale(dst, image.Rect(x0, y0, x0+w, y0+h), img, b, draw.Over, nil)
	return dst
}

// IntensityFromImage converts img to luminance in [0,1]. Transparent pixels
// count as white paper.
func IntensityFromImage(img image.Image) shapefill.Gray {
	b := img.Bounds()
	g := shapefill.NewRaster[float32](b.Dx(), b.Dy())
	for y := range b.Dy() {
		for x := range b.Dx() {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			if c.A == 0 {
				g.Set(x, y, 1)
				continue
			}
			lum := color.GrayModel.Convert(color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}).(color.Gray)
			g.Set(x, y, float32(lum.Y)/255)
		}
	}
	return g
}

// ScribblesFromImage turns a stroke image into scribble labels. Transparent
// pixels carry no scribble. Every other pixel takes the segment whose color
// lies within tolerance (CIE76 in Lab) of its own, and a new segment is made
// for colors seen the first time. Semi-transparent strokes make soft
// segments. Pixels are left unassigned once a class is full.
func ScribblesFromImage(img image.Image, cm *shapefill.ColorMap, tolerance float64) shapefill.LabelMap {
	b := img.Bounds()
	out := shapefill.NewFilled(b.Dx(), b.Dy(), shapefill.Unassigned)
	for y := range b.Dy() {
		for x := range b.Dx() {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			if c.A == 0 {
				continue
			}
			col, _ := colorful.MakeColor(color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255})
			soft := c.A < 255
			id, ok := matchSegment(cm, col, soft, tolerance)
			if !ok {
				if id, ok = cm.NewSegment(col, soft); !ok {
					continue
				}
			}
			out.Set(x, y, id)
		}
	}
	return out
}

func matchSegment(cm *shapefill.ColorMap, col colorful.Color, soft bool, tolerance float64) (shapefill.SegmentID, bool) {
	for _, id := range cm.Segments() {
		if id.IsSoft() != soft {
			continue
		}
		if cm.Palette[id].DistanceCIE76(col) <= tolerance {
			return id, true
		}
	}
	return shapefill.Unassigned, false
}

// BlockFromImage reads the merge overrides: reddish strokes forbid merging,
// greenish strokes force it and everything else leaves the decision open.
func BlockFromImage(img image.Image) shapefill.BlockMap {
	b := img.Bounds()
	out := shapefill.NewRaster[shapefill.BlockFlag](b.Dx(), b.Dy())
	for y := range b.Dy() {
		for x := range b.Dx() {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			if c.A == 0 {
				continue
			}
			switch {
			case c.R > 127 && c.G < 64 && c.B < 64:
				out.Set(x, y, shapefill.BlockSplit)
			case c.G > 127 && c.R < 64 && c.B < 64:
				out.Set(x, y, shapefill.BlockMerge)
			}
		}
	}
	return out
}
