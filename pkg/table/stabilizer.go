// Package table turns noisy per-frame card detections into a stable
// model of a poker table: which cards the hero and the board show,
// where opponents sit, and what table size the seat geometry implies.
//
// Nothing here tracks players by identity. Only geometric position and
// recency tie one frame's evidence to the next.
package table

import (
	"math"
	"sort"
)

// Region is where on the table a detection landed.
type Region int

const (
	RegionHero Region = iota
	RegionBoard
	RegionOpponent
)

// RawDetection is one detector hit mapped to its center point, in
// pixels of the analyzed frame. Produced fresh every tick.
type RawDetection struct {
	X          float64
	Y          float64
	Label      string
	Confidence float64
}

// ResolvedCard is a buffer-confirmed card observation: majority label
// and mean position of its cluster.
type ResolvedCard struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Label string  `json:"label"`
}

// Resolution is the stabilizer output for one tick.
type Resolution struct {
	Hero  []ResolvedCard // 0-2 cards, ascending x, never face-down
	Board []ResolvedCard // 0-5 cards, ascending x, never face-down

	// Opponents are card-label groups per visible hand, always length
	// 2 after phantom fill. Face-down entries are allowed here.
	Opponents [][]string

	// OpponentPoints are the confirmed opponent cluster centroids in
	// pixels, the seat registry's input.
	OpponentPoints []Point
}

type regioned struct {
	x, y   float64
	label  string
	region Region
}

// Stabilizer suppresses single-frame noise by requiring repeated,
// spatially consistent evidence across a sliding window before
// trusting any detection.
type Stabilizer struct {
	cfg     Config
	history [][]regioned
}

// NewStabilizer creates a stabilizer with the given configuration.
func NewStabilizer(cfg Config) *Stabilizer {
	return &Stabilizer{cfg: cfg}
}

// Push filters one tick's raw detections and appends them to the
// window. Non-card labels, sub-floor confidences and malformed records
// are dropped silently.
func (s *Stabilizer) Push(dets []RawDetection, width, height int) {
	items := make([]regioned, 0, len(dets))
	for _, d := range dets {
		if !IsCardLabel(d.Label) {
			continue
		}
		floor := s.cfg.MinConfidence
		if d.Label == FaceDown {
			floor = s.cfg.MinConfidenceFaceDown
		}
		if d.Confidence < floor {
			continue
		}
		items = append(items, regioned{
			x:      d.X,
			y:      d.Y,
			label:  d.Label,
			region: s.classify(d.X, d.Y, width, height),
		})
	}

	s.history = append(s.history, items)
	if len(s.history) > s.cfg.BufferSize {
		s.history = s.history[1:]
	}
}

// Reset drops the detection window. Used when the capture region
// changes and old pixel positions stop meaning anything.
func (s *Stabilizer) Reset() {
	s.history = nil
}

// classify assigns a detection center to hero/board/opponent.
// Configured skin shapes win; the normalized y thresholds are the
// fallback; everything else is an opponent candidate.
func (s *Stabilizer) classify(cx, cy float64, width, height int) Region {
	if width <= 0 || height <= 0 {
		return RegionOpponent
	}
	x := cx / float64(width)
	y := cy / float64(height)

	if s.cfg.HeroRegion != nil && s.cfg.HeroRegion.Contains(x, y) {
		return RegionHero
	}
	if br := s.cfg.BoardRow; br != nil {
		y1 := br.YCenter - br.Height/1.4
		y2 := br.YCenter + br.Height/1.4
		if br.FirstX <= x && x <= br.LastX && y1 <= y && y <= y2 {
			return RegionBoard
		}
	}
	if y >= s.cfg.HeroYMin {
		return RegionHero
	}
	if y >= s.cfg.BoardYMin && y <= s.cfg.BoardYMax {
		return RegionBoard
	}
	return RegionOpponent
}

// Resolve clusters the whole window and emits the confirmed view of
// the table for this tick.
func (s *Stabilizer) Resolve(width, height int) Resolution {
	hero := s.resolveRegion(RegionHero)
	board := s.resolveRegion(RegionBoard)
	opp := s.resolveRegion(RegionOpponent)

	res := Resolution{
		Hero:  trimFaceUp(hero, 2),
		Board: trimFaceUp(board, 5),
	}

	res.OpponentPoints = make([]Point, 0, len(opp))
	for _, c := range opp {
		res.OpponentPoints = append(res.OpponentPoints, Point{X: c.X, Y: c.Y})
	}
	res.Opponents = s.groupOpponents(opp, width)

	return res
}

type cluster struct {
	sumX, sumY float64
	count      int
	labels     []string
}

// resolveRegion greedily clusters every buffered detection of one
// region against running centroids, then keeps clusters that reached
// the confirmation threshold.
func (s *Stabilizer) resolveRegion(region Region) []ResolvedCard {
	var clusters []*cluster
	for _, frame := range s.history {
		for _, it := range frame {
			if it.region != region {
				continue
			}
			joined := false
			for _, cl := range clusters {
				cx := cl.sumX / float64(cl.count)
				cy := cl.sumY / float64(cl.count)
				if math.Abs(it.x-cx) < s.cfg.ClusterRadius && math.Abs(it.y-cy) < s.cfg.ClusterRadius {
					cl.sumX += it.x
					cl.sumY += it.y
					cl.count++
					cl.labels = append(cl.labels, it.label)
					joined = true
					break
				}
			}
			if !joined {
				clusters = append(clusters, &cluster{
					sumX: it.x, sumY: it.y, count: 1,
					labels: []string{it.label},
				})
			}
		}
	}

	var out []ResolvedCard
	for _, cl := range clusters {
		if cl.count < s.cfg.ConfirmThreshold {
			continue
		}
		out = append(out, ResolvedCard{
			X:     cl.sumX / float64(cl.count),
			Y:     cl.sumY / float64(cl.count),
			Label: majorityLabel(cl.labels),
		})
	}
	return out
}

// majorityLabel picks the most frequent label; ties go to the label
// seen first, keeping the vote deterministic.
func majorityLabel(labels []string) string {
	counts := make(map[string]int, len(labels))
	for _, l := range labels {
		counts[l]++
	}
	best := ""
	bestCount := 0
	for _, l := range labels {
		if counts[l] > bestCount {
			best = l
			bestCount = counts[l]
		}
	}
	return best
}

// trimFaceUp orders cards by ascending x, drops face-down entries and
// truncates to the region's capacity.
func trimFaceUp(cards []ResolvedCard, max int) []ResolvedCard {
	sort.SliceStable(cards, func(i, j int) bool { return cards[i].X < cards[j].X })
	out := make([]ResolvedCard, 0, len(cards))
	for _, c := range cards {
		if c.Label == FaceDown {
			continue
		}
		out = append(out, c)
	}
	if len(out) > max {
		out = out[:max]
	}
	return out
}

// groupOpponents pairs opponent cards into hands by proximity. A hand
// showing a single card gets it duplicated: the second card is assumed
// present but hidden behind the first.
func (s *Stabilizer) groupOpponents(items []ResolvedCard, width int) [][]string {
	if len(items) == 0 {
		return nil
	}
	sorted := make([]ResolvedCard, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	thresh := float64(width) * s.cfg.OpponentGroupSpan
	used := make([]bool, len(sorted))
	var groups [][]string

	for i := range sorted {
		if used[i] {
			continue
		}
		group := []ResolvedCard{sorted[i]}
		used[i] = true

		bestIdx := -1
		minD := math.Inf(1)
		for j := i + 1; j < len(sorted); j++ {
			if used[j] {
				continue
			}
			d := math.Hypot(sorted[i].X-sorted[j].X, sorted[i].Y-sorted[j].Y)
			if d < thresh && d < minD {
				minD = d
				bestIdx = j
			}
		}
		if bestIdx != -1 {
			group = append(group, sorted[bestIdx])
			used[bestIdx] = true
		}

		sort.SliceStable(group, func(a, b int) bool { return group[a].X < group[b].X })
		labels := make([]string, 0, 2)
		for _, c := range group {
			labels = append(labels, c.Label)
		}
		if len(labels) == 1 {
			labels = append(labels, labels[0])
		}
		groups = append(groups, labels)
	}

	return groups
}
