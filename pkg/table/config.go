package table

import "time"

// Rect is a normalized rectangle (0-1 in both axes).
type Rect struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Contains reports whether the normalized point (x, y) lies inside.
func (r Rect) Contains(x, y float64) bool {
	return r.X1 <= x && x <= r.X2 && r.Y1 <= y && y <= r.Y2
}

// BoardRow describes the community-card strip of a table skin:
// a horizontal band around y_center between first_x and last_x.
type BoardRow struct {
	YCenter float64 `json:"y_center"`
	Height  float64 `json:"height"`
	FirstX  float64 `json:"first_x"`
	LastX   float64 `json:"last_x"`
}

// Config holds all tunable parameters for table-state stabilization
type Config struct {
	// Stabilization window
	BufferSize            int     `json:"buffer_size"`              // Raw-detection frames kept in the ring
	ConfirmThreshold      int     `json:"confirm_threshold"`        // Cluster members needed before a card is trusted
	MinConfidence         float64 `json:"min_confidence"`           // Floor for identified rank+suit labels
	MinConfidenceFaceDown float64 `json:"min_confidence_face_down"` // Lower floor for card backs
	ClusterRadius         float64 `json:"cluster_radius"`           // Pixel box for joining a cluster (|dx| and |dy|)

	// Region assignment. Configured shapes win; the y thresholds are
	// the fallback when a skin has no layout entry.
	HeroRegion *Rect     `json:"hero_region,omitempty"`
	BoardRow   *BoardRow `json:"board_row,omitempty"`
	HeroYMin   float64   `json:"hero_y_min"`
	BoardYMin  float64   `json:"board_y_min"`
	BoardYMax  float64   `json:"board_y_max"`

	// Opponent grouping
	OpponentGroupSpan float64 `json:"opponent_group_span"` // Pairing distance as a fraction of frame width

	// Seat registry
	SeatClusterSpan  float64       `json:"seat_cluster_span"`  // Chain-clustering span, fraction of width
	SeatMatchSpanX   float64       `json:"seat_match_span_x"`  // Horizontal match tolerance, fraction of width
	SeatMatchSpanY   float64       `json:"seat_match_span_y"`  // Vertical match tolerance, fraction of width
	SeatSmoothing    float64       `json:"seat_smoothing"`     // Weight of the old position on update
	SeatPromoteAfter int           `json:"seat_promote_after"` // Matches needed for CANDIDATE -> CONFIRMED
	CandidateTTL     time.Duration `json:"candidate_ttl"`      // Unmatched candidates die after this
	ConfirmedTTL     time.Duration `json:"confirmed_ttl"`      // Confirmed seats survive occlusion this long

	// Format classifier
	MatchRadius      float64 `json:"match_radius"`       // Point-to-layout-seat match distance
	HeroTolerance    float64 `json:"hero_tolerance"`     // Hero injected unless a point is this close
	UnmatchedPenalty float64 `json:"unmatched_penalty"`  // Per unexplained observed point
	EmptySeatPenalty float64 `json:"empty_seat_penalty"` // Per unoccupied layout seat
	RejectCeiling    float64 `json:"reject_ceiling"`     // Scores above this resolve to detecting

	// State assembly
	HeroStickyFor time.Duration `json:"hero_sticky_for"` // Hero stays active this long after a two-card sighting

	// Stack-count sizer
	SizerMinConfidence  float64 `json:"sizer_min_confidence"`  // Floor for stack/all-in detections
	SizerDedupRadius    float64 `json:"sizer_dedup_radius"`    // Normalized duplicate-suppression distance
	SizerHeroZoneY      float64 `json:"sizer_hero_zone_y"`     // Below this line a stack belongs to the hero
	SizerLevelTolerance float64 `json:"sizer_level_tolerance"` // Vertical gap that separates seat rows
	SizerWindow         int     `json:"sizer_window"`          // Mode window length
}

// DefaultConfig returns the recommended configuration for 1080p table
// captures
func DefaultConfig() Config {
	return Config{
		// Stabilization - six frames of history, two sightings to trust
		BufferSize:            6,
		ConfirmThreshold:      2,
		MinConfidence:         0.40,
		MinConfidenceFaceDown: 0.25, // Backs read reliably even at low confidence
		ClusterRadius:         30,

		// Fallback region split
		HeroYMin:  0.65,
		BoardYMin: 0.30,
		BoardYMax: 0.60,

		// Opponent hands sit close together
		OpponentGroupSpan: 0.18,

		// Seat registry
		SeatClusterSpan:  0.12,
		SeatMatchSpanX:   0.15,
		SeatMatchSpanY:   0.20,
		SeatSmoothing:    0.9,
		SeatPromoteAfter: 8,
		CandidateTTL:     2 * time.Second,
		ConfirmedTTL:     300 * time.Second, // A full hand with the cards mucked

		// Classifier
		MatchRadius:      0.15,
		HeroTolerance:    0.10,
		UnmatchedPenalty: 5.0,
		EmptySeatPenalty: 0.1,
		RejectCeiling:    3.0,

		// State assembly
		HeroStickyFor: 3 * time.Second,

		// Sizer
		SizerMinConfidence:  0.30,
		SizerDedupRadius:    0.05,
		SizerHeroZoneY:      0.75,
		SizerLevelTolerance: 0.05,
		SizerWindow:         15,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errs []string

	if c.BufferSize < 1 {
		errs = append(errs, "buffer_size must be at least 1")
	}
	if c.ConfirmThreshold < 1 {
		errs = append(errs, "confirm_threshold must be at least 1")
	}
	if c.ConfirmThreshold > c.BufferSize {
		errs = append(errs, "confirm_threshold cannot exceed buffer_size")
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		errs = append(errs, "min_confidence must be between 0 and 1")
	}
	if c.MinConfidenceFaceDown < 0 || c.MinConfidenceFaceDown > 1 {
		errs = append(errs, "min_confidence_face_down must be between 0 and 1")
	}
	if c.ClusterRadius <= 0 {
		errs = append(errs, "cluster_radius must be positive")
	}
	if c.OpponentGroupSpan <= 0 || c.OpponentGroupSpan > 1 {
		errs = append(errs, "opponent_group_span must be between 0 and 1")
	}
	if c.SeatClusterSpan <= 0 || c.SeatClusterSpan > 1 {
		errs = append(errs, "seat_cluster_span must be between 0 and 1")
	}
	if c.SeatSmoothing < 0 || c.SeatSmoothing >= 1 {
		errs = append(errs, "seat_smoothing must be in [0, 1)")
	}
	if c.SeatPromoteAfter < 1 {
		errs = append(errs, "seat_promote_after must be at least 1")
	}
	if c.CandidateTTL <= 0 || c.ConfirmedTTL <= 0 {
		errs = append(errs, "seat TTLs must be positive")
	}
	if c.CandidateTTL >= c.ConfirmedTTL {
		errs = append(errs, "candidate_ttl must be shorter than confirmed_ttl")
	}
	if c.MatchRadius <= 0 || c.MatchRadius > 1 {
		errs = append(errs, "match_radius must be between 0 and 1")
	}
	if c.RejectCeiling <= 0 {
		errs = append(errs, "reject_ceiling must be positive")
	}
	if c.SizerWindow < 1 {
		errs = append(errs, "sizer_window must be at least 1")
	}

	return errs
}
