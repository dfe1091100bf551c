package table

// Point is a 2D position. Depending on context it is either in pixels
// of the analyzed frame or normalized to [0,1].
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// HeroPoint is the hero's fixed normalized position at every supported
// table size: bottom center, index 0 of each layout.
var HeroPoint = Point{X: 0.50, Y: 0.68}

// FormatDetecting is the classifier result when no canonical layout
// explains the observed seat geometry confidently enough.
const FormatDetecting = "detecting"

// Layout is a named reference geometry: the normalized seat positions
// of one supported table size. Index 0 is always the hero seat.
type Layout struct {
	Name  string  `json:"name"`
	Seats []Point `json:"seats"`
}

// Canonical layouts in ascending seat-point order. 6-Max carries seven
// reference points and 8/9-Max nine because side seats sit in staggered
// pairs on those tables.
var layouts = []Layout{
	{Name: "3-Max", Seats: []Point{
		{0.50, 0.68}, {0.20, 0.35}, {0.80, 0.35},
	}},
	{Name: "4-Max", Seats: []Point{
		{0.50, 0.68}, {0.15, 0.45}, {0.50, 0.25}, {0.85, 0.45},
	}},
	{Name: "5-Max", Seats: []Point{
		{0.50, 0.68}, {0.18, 0.55}, {0.18, 0.28}, {0.82, 0.28}, {0.82, 0.55},
	}},
	{Name: "6-Max", Seats: []Point{
		{0.50, 0.68}, {0.28, 0.65}, {0.12, 0.45}, {0.35, 0.25},
		{0.65, 0.25}, {0.88, 0.45}, {0.72, 0.65},
	}},
	{Name: "8-Max", Seats: []Point{
		{0.50, 0.68}, {0.30, 0.66}, {0.15, 0.50}, {0.15, 0.30}, {0.40, 0.22},
		{0.60, 0.22}, {0.85, 0.30}, {0.85, 0.50}, {0.70, 0.66},
	}},
	{Name: "9-Max", Seats: []Point{
		{0.50, 0.68}, {0.32, 0.66}, {0.16, 0.52}, {0.14, 0.32}, {0.30, 0.22},
		{0.70, 0.22}, {0.86, 0.32}, {0.84, 0.52}, {0.68, 0.66},
	}},
}

// Layouts returns a copy of the canonical layout table.
func Layouts() []Layout {
	out := make([]Layout, len(layouts))
	for i, l := range layouts {
		seats := make([]Point, len(l.Seats))
		copy(seats, l.Seats)
		out[i] = Layout{Name: l.Name, Seats: seats}
	}
	return out
}

// LayoutByName returns the canonical layout with the given name.
func LayoutByName(name string) (Layout, bool) {
	for _, l := range layouts {
		if l.Name == name {
			seats := make([]Point, len(l.Seats))
			copy(seats, l.Seats)
			return Layout{Name: l.Name, Seats: seats}, true
		}
	}
	return Layout{}, false
}
