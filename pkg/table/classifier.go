package table

import "math"

// FormatResult is the classifier's verdict for one tick.
type FormatResult struct {
	Format string  `json:"format"` // Canonical layout name or FormatDetecting
	Score  float64 `json:"score"`  // Winning score; 0 when detecting
	Seats  int     `json:"seats"`  // Confirmed points the verdict was derived from
}

// Classify scores confirmed-seat geometry against every canonical
// layout and returns the best fit, or FormatDetecting when nothing
// scores under the rejection ceiling.
//
// The hero's fixed position is injected into the point set unless an
// observed point already sits within HeroTolerance of it. Layouts are
// evaluated in ascending seat-count order with strict improvement, so
// an exact tie resolves to the smaller table.
func Classify(points []Point, cfg Config) FormatResult {
	res := FormatResult{Format: FormatDetecting, Seats: len(points)}
	if len(points) == 0 {
		return res
	}

	test := make([]Point, len(points), len(points)+1)
	copy(test, points)
	heroPresent := false
	for _, p := range test {
		if math.Abs(p.X-HeroPoint.X) < cfg.HeroTolerance && math.Abs(p.Y-HeroPoint.Y) < cfg.HeroTolerance {
			heroPresent = true
			break
		}
	}
	if !heroPresent {
		test = append(test, HeroPoint)
	}

	bestScore := math.Inf(1)
	bestName := ""
	for _, layout := range layouts {
		score, ok := scoreLayout(test, layout, cfg)
		if ok && score < bestScore {
			bestScore = score
			bestName = layout.Name
		}
	}

	if bestName == "" || bestScore > cfg.RejectCeiling {
		return res
	}
	res.Format = bestName
	res.Score = bestScore
	return res
}

// scoreLayout sums nearest-seat distances for matched points and
// penalizes both unexplained observations and empty layout seats.
// Layouts matching nothing are excluded (ok=false).
func scoreLayout(points []Point, layout Layout, cfg Config) (float64, bool) {
	var sum float64
	matches := 0

	for _, p := range points {
		minD := math.Inf(1)
		for _, seat := range layout.Seats {
			d := math.Hypot(p.X-seat.X, p.Y-seat.Y)
			if d < minD {
				minD = d
			}
		}
		if minD < cfg.MatchRadius {
			sum += minD
			matches++
		}
	}

	if matches == 0 {
		return 0, false
	}

	avg := sum / float64(matches)
	unexplained := float64(len(points)-matches) * cfg.UnmatchedPenalty
	empty := float64(len(layout.Seats)-matches) * cfg.EmptySeatPenalty
	return avg + unexplained + empty, true
}
