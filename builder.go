package shapefill

import (
	"fmt"
	"image"
	"image/color"
	"slices"

	"go.uber.org/zap"
)

type Options struct {
	Segment SegmentOptions
	Inpaint InpaintOptions
	// Width of the background scribble frame laid along the image border is
	// 2*FrameRadius+1. Negative disables the frame.
	FrameRadius int
}

func DefaultOptions() Options {
	return Options{
		Segment:     DefaultSegmentOptions(),
		Inpaint:     DefaultInpaintOptions(),
		FrameRadius: 3,
	}
}

// OptionsFromSize grows the coarse solve block with the image so the banded
// Laplace system stays small.
func OptionsFromSize(size image.Point) Options {
	opt := DefaultOptions()
	if size.X <= 0 || size.Y <= 0 {
		return opt
	}
	pixels := size.X * size.Y
	if pixels > 1920*1080 {
		opt.Inpaint.Scale = 4
	} else if pixels > 1024*1024 {
		opt.Inpaint.Scale = 3
	}
	return opt
}

// WithLogger sets the logger of every stage.
func (o Options) WithLogger(log *zap.Logger) Options {
	o.Segment.Logger = log
	o.Inpaint.Logger = log
	return o
}

// LayerBuilder runs segmentation and silhouette reconstruction over one
// drawing and turns the silhouettes into layers.
type LayerBuilder struct {
	Intensity   Gray
	Scribbles   LabelMap
	Block       BlockMap
	ColorMap    *ColorMap
	Graph       *OcclusionGraph
	Silhouettes []Silhouette
}

// NewLayerBuilder creates a builder with a fresh ColorMap and OcclusionGraph
// and no scribbles.
func NewLayerBuilder(intensity Gray) *LayerBuilder {
	cm := NewColorMap(intensity.W, intensity.H)
	return &LayerBuilder{
		Intensity: intensity,
		Scribbles: NewFilled(intensity.W, intensity.H, Unassigned),
		Block:     NewRaster[BlockFlag](intensity.W, intensity.H),
		ColorMap:  cm,
		Graph:     NewOcclusionGraph(cm.Counts),
	}
}

// Build segments the scribbles and reconstructs every segment. Silhouettes
// of segments that failed are missing and their errors are returned joined.
func (lb *LayerBuilder) Build(opt Options) error {
	if opt.FrameRadius >= 0 {
		frame := BackgroundFrame(lb.Scribbles.W, lb.Scribbles.H, opt.FrameRadius)
		for i, id := range frame.Pix {
			if id == Background && lb.Scribbles.Pix[i] == Unassigned {
				lb.Scribbles.Pix[i] = Background
			}
		}
	}
	if err := NewSegmenter(opt.Segment).Segment(lb.Intensity, lb.Scribbles, lb.ColorMap); err != nil {
		return fmt.Errorf("build: %w", err)
	}
	var seen [MaxSegments]bool
	for _, id := range lb.ColorMap.Mask.Pix {
		if !seen[id] {
			seen[id] = true
			lb.Graph.Update(id)
		}
	}
	sils, err := NewInpainter(opt.Inpaint).Reconstruct(lb.ColorMap, lb.Graph, lb.Intensity, lb.Block)
	lb.Silhouettes = sils
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	return nil
}

// backToFront orders silhouettes by depth, farthest first.
func (lb *LayerBuilder) backToFront() []Silhouette {
	sils := slices.Clone(lb.Silhouettes)
	slices.SortStableFunc(sils, func(a, b Silhouette) int { return a.Depth - b.Depth })
	return sils
}

// Reconstruct composites the silhouettes back to front over the background
// color, each filled with its segment color.
func (lb *LayerBuilder) Reconstruct() *image.RGBA {
	w, h := lb.ColorMap.Width(), lb.ColorMap.Height()
	recon := image.NewRGBA(image.Rect(0, 0, w, h))
	bg := lb.ColorMap.Palette[Background]
	sils := lb.backToFront()
	for y := range h {
		for x := range w {
			outR, outG, outB := bg.R, bg.G, bg.B
			for _, s := range sils {
				a := float64(s.Mask.At(x, y))
				if a == 0 {
					continue
				}
				c := lb.ColorMap.Palette[s.ID]
				oneMinusA := 1 - a
				outR = a*c.R + oneMinusA*outR
				outG = a*c.G + oneMinusA*outG
				outB = a*c.B + oneMinusA*outB
			}
			recon.SetRGBA(x, y, color.RGBA{
				uint8(max(0, min(255, outR*255))),
				uint8(max(0, min(255, outG*255))),
				uint8(max(0, min(255, outB*255))),
				255,
			})
		}
	}
	return recon
}

// RGBALayers returns one layer per silhouette, back to front, colored with
// the segment color and opaque inside the shape.
func (lb *LayerBuilder) RGBALayers() []*image.NRGBA {
	sils := lb.backToFront()
	if len(sils) == 0 {
		return nil
	}
	out := make([]*image.NRGBA, len(sils))
	for i, s := range sils {
		w, h := s.Mask.W, s.Mask.H
		layer := image.NewNRGBA(image.Rect(0, 0, w, h))
		c := lb.ColorMap.Palette[s.ID]
		cr := uint8(max(0, min(255, c.R*255)))
		cg := uint8(max(0, min(255, c.G*255)))
		cb := uint8(max(0, min(255, c.B*255)))
		for y := range h {
			for x := range w {
				a := max(0, min(1, s.Mask.At(x, y)))
				layer.SetNRGBA(x, y, color.NRGBA{R: cr, G: cg, B: cb, A: uint8(a * 255)})
			}
		}
		out[i] = layer
	}
	return out
}

// GrayLayers returns the silhouette masks back to front.
func (lb *LayerBuilder) GrayLayers() []*image.Gray {
	sils := lb.backToFront()
	if len(sils) == 0 {
		return nil
	}
	out := make([]*image.Gray, len(sils))
	for i, s := range sils {
		out[i] = GrayImage(s.Mask)
	}
	return out
}

// BorderLayers returns the thickened outlines back to front. Hard outline
// pixels are 0 and merge markers 64.
func (lb *LayerBuilder) BorderLayers() []*image.Gray {
	sils := lb.backToFront()
	if len(sils) == 0 {
		return nil
	}
	out := make([]*image.Gray, len(sils))
	for i, s := range sils {
		out[i] = GrayImage(s.Border)
	}
	return out
}
