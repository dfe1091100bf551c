package ocr

import (
	"testing"

	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/feltvision/tablesight/pkg/table"
)

func TestZoneText(t *testing.T) {
	words := []word{
		{x: 520, y: 300, text: "$12.50"},
		{x: 400, y: 310, text: "Pot:"},
		{x: 900, y: 850, text: "Call"},
		{x: 50, y: 50, text: "Table"},
	}
	pot := table.Rect{X1: 0.30, Y1: 0.26, X2: 0.70, Y2: 0.44}

	got := zoneText(words, pot, 1000, 1000)
	if want := "Pot: $12.50"; got != want {
		t.Errorf("zoneText() = %q, want %q", got, want)
	}

	if got := zoneText(words, table.Rect{}, 1000, 1000); got != "" {
		t.Errorf("zoneText() = %q for an empty zone, want empty", got)
	}
}

func TestPolyCenter(t *testing.T) {
	poly := &visionpb.BoundingPoly{Vertices: []*visionpb.Vertex{
		{X: 100, Y: 200}, {X: 200, Y: 200}, {X: 200, Y: 300}, {X: 100, Y: 300},
	}}

	x, y, ok := polyCenter(poly)
	if !ok {
		t.Fatal("polyCenter() ok = false")
	}
	if x != 150 || y != 250 {
		t.Errorf("polyCenter() = (%v, %v), want (150, 250)", x, y)
	}

	if _, _, ok := polyCenter(nil); ok {
		t.Error("polyCenter(nil) ok = true, want false")
	}
}
