package shapefill

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/lucasb-eyer/go-colorful"
)

var (
	red   = colorful.Color{R: 1}
	green = colorful.Color{G: 1}
	blue  = colorful.Color{B: 1}
)

func TestNewColorMap(t *testing.T) {
	cm := NewColorMap(3, 2)
	for i, id := range cm.Mask.Pix {
		if id != Unassigned {
			t.Fatalf("pixel %d = %d, want unassigned", i, id)
		}
	}
	if cm.Counts != [2]int{1, 0} {
		t.Errorf("counts = %v, want [1 0]", cm.Counts)
	}
	if cm.Palette[Background] != DefaultColor {
		t.Errorf("background color = %v", cm.Palette[Background])
	}
	if got := cm.At(-1, 0); got != Background {
		t.Errorf("At outside = %d, want background", got)
	}
	if got := cm.ColorAt(0, 0); got != DefaultColor {
		t.Errorf("ColorAt unassigned = %v", got)
	}
}

func TestNewSegmentCapacity(t *testing.T) {
	cm := NewColorMap(1, 1)
	for i := 1; i < ClassCapacity; i++ {
		id, ok := cm.NewSegment(red, false)
		if !ok || id != SegmentID(i) {
			t.Fatalf("hard segment %d: got %d, %v", i, id, ok)
		}
	}
	before := *cm
	if id, ok := cm.NewSegment(blue, false); ok {
		t.Fatalf("129th hard segment accepted as %d", id)
	}
	if cm.Counts != before.Counts || cm.Active != before.Active || cm.Palette != before.Palette {
		t.Errorf("rejected segment changed the map")
	}

	for i := range ClassCapacity {
		id, ok := cm.NewSegment(green, true)
		if !ok || id != SoftBase+SegmentID(i) || !id.IsSoft() {
			t.Fatalf("soft segment %d: got %d, %v", i, id, ok)
		}
	}
	if _, ok := cm.NewSegment(green, true); ok {
		t.Fatalf("129th soft segment accepted")
	}
	if cm.Counts != [2]int{ClassCapacity, ClassCapacity} {
		t.Errorf("counts = %v", cm.Counts)
	}
}

func TestPaintAndRender(t *testing.T) {
	cm := NewColorMap(2, 1)
	id, _ := cm.NewSegment(red, false)
	cm.Paint(1, 0)
	cm.Paint(5, 5)
	if cm.At(1, 0) != id {
		t.Fatalf("At(1,0) = %d, want %d", cm.At(1, 0), id)
	}
	img := cm.RGBA()
	if c := img.RGBAAt(1, 0); c.R != 255 || c.G != 0 || c.B != 0 {
		t.Errorf("painted pixel = %v", c)
	}
	if c := img.RGBAAt(0, 0); c.R != 255 || c.G != 255 || c.B != 255 {
		t.Errorf("unassigned pixel = %v", c)
	}
	if diff := cmp.Diff([]float32{0, 1}, cm.SegmentMask(id).Pix); diff != "" {
		t.Errorf("SegmentMask (-want +got):\n%s", diff)
	}
}

func TestConsolidate(t *testing.T) {
	cm := NewColorMap(5, 1)
	cm.NewSegment(red, false)   // 1
	cm.NewSegment(green, false) // 2
	cm.NewSegment(blue, false)  // 3
	cm.NewSegment(red, true)    // 128
	cm.NewSegment(blue, true)   // 129
	cm.Mask.Fill(1)

	scribbles := LabelMap{W: 5, H: 1, Pix: []SegmentID{0, 1, 3, 129, Unassigned}}
	changes, changed := cm.Consolidate(scribbles)
	if !changed {
		t.Fatalf("Consolidate reported no change")
	}
	want := map[SegmentID]SegmentID{3: 2, 129: 128}
	if diff := cmp.Diff(want, changes); diff != "" {
		t.Errorf("changes (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]SegmentID{0, 1, 2, 128, Unassigned}, scribbles.Pix); diff != "" {
		t.Errorf("scribbles (-want +got):\n%s", diff)
	}
	if cm.Counts != [2]int{3, 1} {
		t.Errorf("counts = %v, want [3 1]", cm.Counts)
	}
	if cm.Palette[2] != blue || cm.Palette[128] != blue {
		t.Errorf("palette not moved: 2=%v 128=%v", cm.Palette[2], cm.Palette[128])
	}
	if cm.Active != 128 {
		t.Errorf("active = %d, want 128", cm.Active)
	}
	for i, id := range cm.Mask.Pix {
		if id != Unassigned {
			t.Fatalf("mask pixel %d = %d after consolidation", i, id)
		}
	}
}

func TestConsolidateKeepsBackground(t *testing.T) {
	cm := NewColorMap(2, 1)
	cm.NewSegment(red, false)
	cm.NewSegment(green, false)
	scribbles := LabelMap{W: 2, H: 1, Pix: []SegmentID{2, 2}}
	changes, changed := cm.Consolidate(scribbles)
	if !changed {
		t.Fatalf("Consolidate reported no change")
	}
	if diff := cmp.Diff(map[SegmentID]SegmentID{2: 1}, changes); diff != "" {
		t.Errorf("changes (-want +got):\n%s", diff)
	}
	if cm.Palette[Background] != DefaultColor || cm.Palette[1] != green {
		t.Errorf("palette = %v %v", cm.Palette[0], cm.Palette[1])
	}
}

func TestConsolidateUnchanged(t *testing.T) {
	cm := NewColorMap(2, 1)
	cm.NewSegment(red, false)
	cm.Mask.Fill(1)
	scribbles := LabelMap{W: 2, H: 1, Pix: []SegmentID{0, 1}}
	changes, changed := cm.Consolidate(scribbles)
	if changed || len(changes) != 0 {
		t.Fatalf("Consolidate = %v, %v, want no change", changes, changed)
	}
	if cm.Mask.Pix[0] != 1 {
		t.Errorf("mask cleared without a change")
	}
}

func TestApplyPalette(t *testing.T) {
	cm := NewColorMap(1, 1)
	cm.NewSegment(red, false)
	cm.NewSegment(red, false)
	cm.NewSegment(red, true)
	cm.ApplyPalette([]colorful.Color{green, blue})
	if cm.Palette[Background] != DefaultColor {
		t.Errorf("background recolored")
	}
	got := []colorful.Color{cm.Palette[1], cm.Palette[2], cm.Palette[128]}
	if diff := cmp.Diff([]colorful.Color{green, blue, green}, got); diff != "" {
		t.Errorf("palette (-want +got):\n%s", diff)
	}
}
