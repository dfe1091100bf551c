package table

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Seat is a persistent table position. It starts as a CANDIDATE, is
// promoted to CONFIRMED after enough consistent sightings, and never
// demotes: a confirmed seat only leaves the registry by expiry.
type Seat struct {
	ID        string    `json:"id"` // Diagnostics only; matching is geometric
	X         float64   `json:"x"`  // Smoothed center, pixels
	Y         float64   `json:"y"`
	LastSeen  time.Time `json:"last_seen"`
	Matches   int       `json:"matches"`
	Confirmed bool      `json:"confirmed"`
}

func (s *Seat) observe(x, y float64, now time.Time, smoothing float64, promoteAfter int) {
	s.X = s.X*smoothing + x*(1-smoothing)
	s.Y = s.Y*smoothing + y*(1-smoothing)
	s.LastSeen = now
	s.Matches++
	if s.Matches >= promoteAfter {
		s.Confirmed = true
	}
}

// RegistrySnapshot is the registry output for one tick.
type RegistrySnapshot struct {
	Confirmed int     `json:"confirmed"`
	Tracked   int     `json:"tracked"` // Confirmed + candidates still alive
	Points    []Point `json:"points"`  // Normalized confirmed positions
	Seats     []Seat  `json:"seats"`   // Copies, for diagnostics
}

// Registry keeps the table's occupied positions alive across the
// flicker and occlusion of individual frames.
type Registry struct {
	cfg   Config
	seats []*Seat
}

// NewRegistry creates a seat registry with the given configuration.
func NewRegistry(cfg Config) *Registry {
	return &Registry{cfg: cfg}
}

// Observe feeds one tick's confirmed opponent centroids (pixel space)
// into the registry and returns the surviving seat set.
//
// A degenerate frame (zero area) skips matching entirely but still
// ages and expires existing seats.
func (r *Registry) Observe(points []Point, width, height int, now time.Time) RegistrySnapshot {
	if width > 0 && height > 0 {
		for _, c := range clusterSeatPoints(points, float64(width)*r.cfg.SeatClusterSpan) {
			r.match(c, width, now)
		}
	}
	return r.expire(width, height, now)
}

// clusterSeatPoints chains x-sorted points into spatial groups: a
// point joins the current group while its horizontal gap to the
// previous member stays under span. Returns group centroids.
func clusterSeatPoints(points []Point, span float64) []Point {
	valid := make([]Point, 0, len(points))
	for _, p := range points {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			continue
		}
		valid = append(valid, p)
	}
	if len(valid) == 0 {
		return nil
	}
	sort.SliceStable(valid, func(i, j int) bool { return valid[i].X < valid[j].X })

	var out []Point
	group := []Point{valid[0]}
	for _, p := range valid[1:] {
		if math.Abs(p.X-group[len(group)-1].X) < span {
			group = append(group, p)
		} else {
			out = append(out, centroid(group))
			group = []Point{p}
		}
	}
	return append(out, centroid(group))
}

func centroid(points []Point) Point {
	var sx, sy float64
	for _, p := range points {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(points))
	return Point{X: sx / n, Y: sy / n}
}

// match updates the nearest existing seat within tolerance, or creates
// a new candidate. Horizontal tolerance is tight, vertical looser:
// stacks and cards shift up and down more than sideways.
func (r *Registry) match(c Point, width int, now time.Time) {
	spanX := float64(width) * r.cfg.SeatMatchSpanX
	spanY := float64(width) * r.cfg.SeatMatchSpanY

	var matched *Seat
	minDX := math.Inf(1)
	for _, seat := range r.seats {
		dx := math.Abs(seat.X - c.X)
		dy := math.Abs(seat.Y - c.Y)
		if dx < spanX && dy < spanY && dx < minDX {
			minDX = dx
			matched = seat
		}
	}

	if matched != nil {
		matched.observe(c.X, c.Y, now, r.cfg.SeatSmoothing, r.cfg.SeatPromoteAfter)
		return
	}
	r.seats = append(r.seats, &Seat{
		ID:       uuid.NewString(),
		X:        c.X,
		Y:        c.Y,
		LastSeen: now,
		Matches:  1,
	})
}

// expire drops candidates past the short timeout and confirmed seats
// past the long one, then snapshots what survives.
func (r *Registry) expire(width, height int, now time.Time) RegistrySnapshot {
	var snap RegistrySnapshot
	kept := r.seats[:0]

	for _, seat := range r.seats {
		age := now.Sub(seat.LastSeen)
		if seat.Confirmed {
			if age >= r.cfg.ConfirmedTTL {
				continue
			}
			snap.Confirmed++
			if width > 0 && height > 0 {
				snap.Points = append(snap.Points, Point{
					X: seat.X / float64(width),
					Y: seat.Y / float64(height),
				})
			}
		} else if age >= r.cfg.CandidateTTL {
			continue
		}
		kept = append(kept, seat)
		snap.Seats = append(snap.Seats, *seat)
	}

	r.seats = kept
	snap.Tracked = len(kept)
	return snap
}

// Reset forgets every seat. Used when the capture region changes.
func (r *Registry) Reset() {
	r.seats = nil
}
