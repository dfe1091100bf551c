package table

import "testing"

func TestClassify_RoundTripEveryLayout(t *testing.T) {
	cfg := DefaultConfig()
	for _, layout := range Layouts() {
		t.Run(layout.Name, func(t *testing.T) {
			got := Classify(layout.Seats, cfg)
			if got.Format != layout.Name {
				t.Errorf("format = %q (score %.4f), want %q", got.Format, got.Score, layout.Name)
			}
			if !floatEquals(got.Score, 0) {
				t.Errorf("exact geometry score = %v, want 0", got.Score)
			}
		})
	}
}

func TestClassify_SixMaxWithoutHero(t *testing.T) {
	cfg := DefaultConfig()

	// The six non-hero seats of a 6-Max table; the hero slot is filled
	// in by the classifier itself.
	points := []Point{
		{0.28, 0.65}, {0.12, 0.45}, {0.35, 0.25},
		{0.65, 0.25}, {0.88, 0.45}, {0.72, 0.65},
	}

	got := Classify(points, cfg)
	if got.Format != "6-Max" {
		t.Errorf("format = %q (score %.4f), want 6-Max", got.Format, got.Score)
	}
	if got.Seats != 6 {
		t.Errorf("seats = %d, want 6", got.Seats)
	}
}

func TestClassify_NoisyPointsStillMatch(t *testing.T) {
	cfg := DefaultConfig()

	// 4-Max geometry with a couple of pixels of drift on each seat.
	points := []Point{
		{0.16, 0.44}, {0.49, 0.26}, {0.86, 0.46},
	}

	got := Classify(points, cfg)
	if got.Format != "4-Max" {
		t.Errorf("format = %q (score %.4f), want 4-Max", got.Format, got.Score)
	}
	if got.Score <= 0 {
		t.Errorf("noisy geometry should carry a positive score, got %v", got.Score)
	}
}

func TestClassify_HeroInjection(t *testing.T) {
	cfg := DefaultConfig()

	// A single left-side seat plus the injected hero is a perfect
	// two-of-three 3-Max.
	got := Classify([]Point{{0.20, 0.35}}, cfg)
	if got.Format != "3-Max" {
		t.Errorf("format = %q, want 3-Max", got.Format)
	}
	if !floatEquals(got.Score, cfg.EmptySeatPenalty) {
		t.Errorf("score = %v, want the single empty-seat penalty %v", got.Score, cfg.EmptySeatPenalty)
	}
}

func TestClassify_HeroNotDuplicated(t *testing.T) {
	cfg := DefaultConfig()

	// The observed point sits near the hero slot, so no second hero is
	// injected; a lone hero fits the smallest table best.
	got := Classify([]Point{{0.52, 0.66}}, cfg)
	if got.Format != "3-Max" {
		t.Errorf("format = %q, want 3-Max", got.Format)
	}
	if got.Seats != 1 {
		t.Errorf("seats = %d, want 1", got.Seats)
	}
}

func TestClassify_EmptyInputIsDetecting(t *testing.T) {
	got := Classify(nil, DefaultConfig())
	if got.Format != FormatDetecting {
		t.Errorf("format = %q, want %q", got.Format, FormatDetecting)
	}
	if got.Seats != 0 || got.Score != 0 {
		t.Errorf("empty verdict = %+v, want zero seats and score", got)
	}
}

func TestClassify_GarbageIsDetecting(t *testing.T) {
	cfg := DefaultConfig()

	// A point in dead space matches no layout seat, and the unmatched
	// penalty pushes every candidate past the rejection ceiling.
	got := Classify([]Point{{0.50, 0.50}}, cfg)
	if got.Format != FormatDetecting {
		t.Errorf("format = %q (score %.4f), want %q", got.Format, got.Score, FormatDetecting)
	}
}

func TestClassify_NinePointGeometriesStaySeparate(t *testing.T) {
	cfg := DefaultConfig()

	// 8-Max and 9-Max both use nine seats; only the coordinates tell
	// them apart.
	eight, ok := LayoutByName("8-Max")
	if !ok {
		t.Fatal("8-Max layout missing")
	}
	nine, ok := LayoutByName("9-Max")
	if !ok {
		t.Fatal("9-Max layout missing")
	}

	if got := Classify(eight.Seats, cfg); got.Format != "8-Max" {
		t.Errorf("eight-seat geometry classified as %q", got.Format)
	}
	if got := Classify(nine.Seats, cfg); got.Format != "9-Max" {
		t.Errorf("nine-seat geometry classified as %q", got.Format)
	}
}
