package shapefill

import (
	"image"
	"image/color"
	"slices"

	"github.com/lucasb-eyer/go-colorful"
)

// SegmentID identifies a segment. Hard segments use 0..127, soft ones 128..255.
type SegmentID int16

const (
	Unassigned SegmentID = -1
	Background SegmentID = 0
	SoftBase   SegmentID = 128

	// MaxSegments is the number of addressable ids, background included.
	MaxSegments = 256
	// ClassCapacity is the number of ids available to each of the hard and soft classes.
	ClassCapacity = 128
)

// Valid reports whether id addresses a palette slot.
func (id SegmentID) Valid() bool {
	return id >= 0 && id < MaxSegments
}

func (id SegmentID) IsSoft() bool {
	return id >= SoftBase
}

// class is 0 for hard ids and 1 for soft ids.
func (id SegmentID) class() int {
	if id.IsSoft() {
		return 1
	}
	return 0
}

// DefaultColor is the palette entry of the background and of unassigned pixels.
var DefaultColor = colorful.Color{R: 1, G: 1, B: 1}

// ColorMap holds the segment id of every pixel and the color of every id.
// It is not safe for concurrent use.
type ColorMap struct {
	Mask    LabelMap
	Palette [MaxSegments]colorful.Color
	// Counts holds the number of hard (index 0) and soft (index 1) ids in use.
	// The background counts as a hard id.
	Counts [2]int
	Active SegmentID
}

func NewColorMap(w, h int) *ColorMap {
	cm := &ColorMap{Mask: NewFilled(w, h, Unassigned)}
	cm.Reset()
	return cm
}

func (cm *ColorMap) Width() int  { return cm.Mask.W }
func (cm *ColorMap) Height() int { return cm.Mask.H }

// Reset clears the mask and forgets every segment except the background.
func (cm *ColorMap) Reset() {
	cm.Mask.Fill(Unassigned)
	cm.Palette[0] = DefaultColor
	for i := 1; i < MaxSegments; i++ {
		cm.Palette[i] = colorful.Color{}
	}
	cm.Counts = [2]int{1, 0}
	cm.Active = Background
}

// ClearMask marks every pixel unassigned and keeps the segments.
func (cm *ColorMap) ClearMask() {
	cm.Mask.Fill(Unassigned)
}

// NewSegment allocates the next id of the requested class and makes it active.
// It returns false without any change once the class is full.
func (cm *ColorMap) NewSegment(c colorful.Color, soft bool) (SegmentID, bool) {
	class := 0
	if soft {
		class = 1
	}
	if cm.Counts[class] >= ClassCapacity {
		return cm.Active, false
	}
	id := SegmentID(ClassCapacity*class + cm.Counts[class])
	cm.Active = id
	cm.Palette[id] = c
	cm.Counts[class]++
	return id, true
}

// Segments lists the ids in use, hard ones first.
func (cm *ColorMap) Segments() []SegmentID {
	out := make([]SegmentID, 0, cm.Counts[0]+cm.Counts[1])
	for i := range cm.Counts[0] {
		out = append(out, SegmentID(i))
	}
	for i := range cm.Counts[1] {
		out = append(out, SoftBase+SegmentID(i))
	}
	return out
}

// At returns the id at (x,y); coordinates outside the map read as background.
func (cm *ColorMap) At(x, y int) SegmentID {
	if !cm.Mask.In(x, y) {
		return Background
	}
	return cm.Mask.At(x, y)
}

// Paint assigns the active id to (x,y).
func (cm *ColorMap) Paint(x, y int) {
	if !cm.Mask.In(x, y) {
		return
	}
	cm.Mask.Set(x, y, cm.Active)
}

func (cm *ColorMap) SetActive(id SegmentID) {
	cm.Active = id
}

func (cm *ColorMap) SetColor(id SegmentID, c colorful.Color) {
	if id.Valid() {
		cm.Palette[id] = c
	}
}

// ColorAt returns the palette color of the pixel, DefaultColor when unassigned
// or outside the map.
func (cm *ColorMap) ColorAt(x, y int) colorful.Color {
	if !cm.Mask.In(x, y) {
		return DefaultColor
	}
	id := cm.Mask.At(x, y)
	if !id.Valid() {
		return DefaultColor
	}
	return cm.Palette[id]
}

// ApplyPalette recolors the segments in use, background excluded, cycling
// through colors.
func (cm *ColorMap) ApplyPalette(colors []colorful.Color) {
	if len(colors) == 0 {
		return
	}
	i := 0
	for _, id := range cm.Segments() {
		if id == Background {
			continue
		}
		cm.Palette[id] = colors[i%len(colors)]
		i++
	}
}

// Consolidate renumbers ids after scribbles disappeared so that each class is
// dense again. Ids found in scribbles keep their color. The scribble raster is
// rewritten in place and the mask is cleared when anything changed. The
// returned map holds old -> new ids. The caller must reset the occlusion graph
// with the new Counts when changed is true.
func (cm *ColorMap) Consolidate(scribbles LabelMap) (changes map[SegmentID]SegmentID, changed bool) {
	// the background survives even without scribbles
	found := [2][]SegmentID{{Background}, nil}
	var seen [MaxSegments]bool
	seen[Background] = true
	for _, id := range scribbles.Pix {
		if !id.Valid() || seen[id] {
			continue
		}
		seen[id] = true
		found[id.class()] = append(found[id.class()], id)
	}
	changes = make(map[SegmentID]SegmentID)
	for class := range 2 {
		if len(found[class]) == cm.Counts[class] {
			continue
		}
		changed = true
		cm.consolidateClass(found[class], class, changes)
	}
	if !changed {
		return changes, false
	}
	for i, id := range scribbles.Pix {
		if to, ok := changes[id]; ok {
			scribbles.Pix[i] = to
		}
	}
	cm.ClearMask()
	return changes, true
}

// consolidateClass fills the gaps of one class by moving its highest ids down.
func (cm *ColorMap) consolidateClass(found []SegmentID, class int, changes map[SegmentID]SegmentID) {
	slices.Sort(found)
	cm.Counts[class] = len(found)
	from := SegmentID(class * ClassCapacity)
	to := from + SegmentID(len(found))
	for i := from; i < to; i++ {
		if found[0] == i {
			found = found[1:]
			continue
		}
		last := found[len(found)-1]
		found = found[:len(found)-1]
		cm.Palette[i] = cm.Palette[last]
		changes[last] = i
	}
	if cm.Active.class() == class {
		cm.Active = from + SegmentID(cm.Counts[class]) - 1
		if cm.Counts[class] == 0 {
			cm.Active = Background
		}
	}
}

// SegmentMask returns 1 where the mask equals id and 0 elsewhere.
func (cm *ColorMap) SegmentMask(id SegmentID) Gray {
	out := NewRaster[float32](cm.Mask.W, cm.Mask.H)
	for i, v := range cm.Mask.Pix {
		if v == id {
			out.Pix[i] = 1
		}
	}
	return out
}

// RGBA renders the mask with the palette.
func (cm *ColorMap) RGBA() *image.RGBA {
	w, h := cm.Mask.W, cm.Mask.H
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			c := cm.ColorAt(x, y)
			out.SetRGBA(x, y, color.RGBA{
				uint8(max(0, min(255, c.R*255))),
				uint8(max(0, min(255, c.G*255))),
				uint8(max(0, min(255, c.B*255))),
				255,
			})
		}
	}
	return out
}
