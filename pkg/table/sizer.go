package table

import (
	"math"
	"sort"
)

// SizerEstimate is the stack-count view of table occupancy.
type SizerEstimate struct {
	Count  int    `json:"count"`  // Mode of recent per-frame player counts
	Levels int    `json:"levels"` // Mode of distinct vertical seat rows
	Format string `json:"format"` // Coarse 6-Max / 9-Max hint
}

// Sizer estimates how many players sit at the table from stack-text
// and all-in detections, independent of the card pipeline. Stacks stay
// on screen when cards do not, so this reads table size even between
// hands.
type Sizer struct {
	cfg    Config
	counts []int
	levels []int
}

// NewSizer creates a sizer with the given configuration.
func NewSizer(cfg Config) *Sizer {
	return &Sizer{cfg: cfg}
}

// Observe consumes one tick's raw detections and returns the
// mode-smoothed occupancy estimate.
func (z *Sizer) Observe(dets []RawDetection, width, height int) SizerEstimate {
	var centers []Point
	var ys []float64

	if width > 0 && height > 0 {
		for _, d := range dets {
			if d.Label != StackText && d.Label != AllInSymbol {
				continue
			}
			if d.Confidence < z.cfg.SizerMinConfidence {
				continue
			}
			cx := d.X / float64(width)
			cy := d.Y / float64(height)

			// The detector occasionally fires twice on one stack.
			dup := false
			for _, c := range centers {
				if math.Hypot(cx-c.X, cy-c.Y) < z.cfg.SizerDedupRadius {
					dup = true
					break
				}
			}
			if dup {
				continue
			}
			centers = append(centers, Point{X: cx, Y: cy})
			ys = append(ys, cy)
		}
	}

	count := len(centers)

	// The hero's stack is often covered by the HUD. If nothing shows
	// in the hero zone while others do, count the hero anyway.
	heroVisible := false
	for _, y := range ys {
		if y > z.cfg.SizerHeroZoneY {
			heroVisible = true
			break
		}
	}
	if !heroVisible && count > 0 {
		count++
	}
	if count < 2 {
		count = 2
	}

	z.counts = append(z.counts, count)
	z.levels = append(z.levels, countLevels(ys, z.cfg.SizerLevelTolerance))
	if len(z.counts) > z.cfg.SizerWindow {
		z.counts = z.counts[1:]
		z.levels = z.levels[1:]
	}

	est := SizerEstimate{
		Count:  mode(z.counts),
		Levels: mode(z.levels),
	}
	est.Format = "6-Max"
	if est.Count > 6 || est.Levels >= 5 {
		est.Format = "9-Max"
	}
	return est
}

// Reset drops the smoothing window. Used when the capture region
// changes.
func (z *Sizer) Reset() {
	z.counts = nil
	z.levels = nil
}

// countLevels counts distinct vertical rows: sorted heights separated
// by more than tolerance start a new row.
func countLevels(ys []float64, tolerance float64) int {
	if len(ys) == 0 {
		return 0
	}
	sorted := make([]float64, len(ys))
	copy(sorted, ys)
	sort.Float64s(sorted)

	levels := 1
	last := sorted[0]
	for _, y := range sorted[1:] {
		if math.Abs(y-last) > tolerance {
			levels++
			last = y
		}
	}
	return levels
}

// mode returns the most frequent value; ties go to the value seen
// first in the window.
func mode(values []int) int {
	counts := make(map[int]int, len(values))
	for _, v := range values {
		counts[v]++
	}
	best, bestCount := 0, 0
	for _, v := range values {
		if counts[v] > bestCount {
			best = v
			bestCount = counts[v]
		}
	}
	return best
}
