package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/feltvision/tablesight/pkg/table"
)

// scriptedStage records its invocations and runs an optional body.
type scriptedStage struct {
	name   string
	calls  *[]string
	fn     func(tc *TickContext) error
	resets int
}

func (s *scriptedStage) Name() string { return s.name }

func (s *scriptedStage) Process(tc *TickContext) error {
	if s.calls != nil {
		*s.calls = append(*s.calls, s.name)
	}
	if s.fn != nil {
		return s.fn(tc)
	}
	return nil
}

func (s *scriptedStage) Reset() { s.resets++ }

func publishStage(calls *[]string) *scriptedStage {
	return &scriptedStage{name: "assemble", calls: calls, fn: func(tc *TickContext) error {
		tc.State = &table.State{Street: table.StreetPreflop}
		return nil
	}}
}

func TestRunnerStageOrder(t *testing.T) {
	var calls []string
	stages := []Stage{
		&scriptedStage{name: "prep", calls: &calls},
		&scriptedStage{name: "detect", calls: &calls},
		publishStage(&calls),
	}
	r := NewRunner(DefaultConfig(), stages)
	r.runTick(context.Background(), 0)

	want := []string{"prep", "detect", "assemble"}
	if len(calls) != len(want) {
		t.Fatalf("stage calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, calls[i], want[i])
		}
	}
}

func TestRunnerSkipTickStopsChain(t *testing.T) {
	var calls []string
	stages := []Stage{
		&scriptedStage{name: "prep", calls: &calls, fn: func(*TickContext) error { return ErrSkipTick }},
		&scriptedStage{name: "detect", calls: &calls},
	}
	r := NewRunner(DefaultConfig(), stages)
	r.runTick(context.Background(), 0)

	if len(calls) != 1 || calls[0] != "prep" {
		t.Errorf("calls = %v, want only prep", calls)
	}
	if got := r.Faults(); len(got) != 0 {
		t.Errorf("Faults() = %v, a skipped tick is not a fault", got)
	}
	if r.State() != nil {
		t.Error("State() != nil after a skipped tick")
	}
}

func TestRunnerFaultIsolation(t *testing.T) {
	var calls []string
	stages := []Stage{
		&scriptedStage{name: "detect", calls: &calls, fn: func(*TickContext) error {
			return errors.New("model exploded")
		}},
		publishStage(&calls),
	}
	r := NewRunner(DefaultConfig(), stages)
	r.runTick(context.Background(), 0)

	if len(calls) != 2 {
		t.Fatalf("calls = %v, chain should continue past a fault", calls)
	}
	faults := r.Faults()
	if len(faults) != 1 {
		t.Fatalf("Faults() length = %d, want 1", len(faults))
	}
	if faults[0].Stage != "detect" {
		t.Errorf("fault stage = %q, want detect", faults[0].Stage)
	}
	if faults[0].Tick != 1 {
		t.Errorf("fault tick = %d, want 1", faults[0].Tick)
	}

	st := r.State()
	if st == nil {
		t.Fatal("State() = nil, later stages should still publish")
	}
	if st.LastError != "model exploded" {
		t.Errorf("LastError = %q, want the fault text", st.LastError)
	}
}

func TestRunnerCleanTickClearsLastError(t *testing.T) {
	fail := true
	stages := []Stage{
		&scriptedStage{name: "detect", fn: func(*TickContext) error {
			if fail {
				return errors.New("transient")
			}
			return nil
		}},
		publishStage(nil),
	}
	r := NewRunner(DefaultConfig(), stages)

	r.runTick(context.Background(), 0)
	if st := r.State(); st == nil || st.LastError == "" {
		t.Fatal("first tick should publish with LastError set")
	}

	fail = false
	r.runTick(context.Background(), 0)
	if st := r.State(); st.LastError != "" {
		t.Errorf("LastError = %q after a clean tick, want empty", st.LastError)
	}
}

func TestRunnerRecoversPanic(t *testing.T) {
	stages := []Stage{
		&scriptedStage{name: "cards", fn: func(*TickContext) error { panic("index out of range") }},
	}
	r := NewRunner(DefaultConfig(), stages)
	r.runTick(context.Background(), 0)
	r.runTick(context.Background(), 0)

	faults := r.Faults()
	if len(faults) != 2 {
		t.Fatalf("Faults() length = %d, want 2", len(faults))
	}
	if want := "panic: index out of range"; faults[0].Error != want {
		t.Errorf("fault error = %q, want %q", faults[0].Error, want)
	}
	if r.Ticks() != 2 {
		t.Errorf("Ticks() = %d, the loop should survive panics", r.Ticks())
	}
}

func TestRunnerPublishesSnapshot(t *testing.T) {
	var published []table.State
	r := NewRunner(DefaultConfig(), []Stage{publishStage(nil)})
	r.OnState = func(st table.State) { published = append(published, st) }

	r.runTick(context.Background(), 0)
	r.runTick(context.Background(), 0)

	st := r.State()
	if st == nil {
		t.Fatal("State() = nil after publishing")
	}
	if st.Tick != 2 {
		t.Errorf("Tick = %d, want 2", st.Tick)
	}
	if len(published) != 2 {
		t.Fatalf("OnState calls = %d, want 2", len(published))
	}
	if published[0].Tick != 1 || published[1].Tick != 2 {
		t.Errorf("published ticks = %d, %d, want 1, 2", published[0].Tick, published[1].Tick)
	}
}

func TestRunnerActiveFollowsPublishedState(t *testing.T) {
	var sawActive []bool
	probe := &scriptedStage{name: "probe", fn: func(tc *TickContext) error {
		sawActive = append(sawActive, tc.Active)
		return nil
	}}
	assemble := &scriptedStage{name: "assemble", fn: func(tc *TickContext) error {
		tc.State = &table.State{HeroActive: true}
		return nil
	}}
	r := NewRunner(DefaultConfig(), []Stage{probe, assemble})

	r.runTick(context.Background(), 0)
	r.runTick(context.Background(), 0)

	if len(sawActive) != 2 {
		t.Fatalf("probe calls = %d, want 2", len(sawActive))
	}
	if sawActive[0] {
		t.Error("first tick saw Active = true, want idle before any publish")
	}
	if !sawActive[1] {
		t.Error("second tick saw Active = false, want the published hero activity")
	}
}

func TestRunnerResetRequest(t *testing.T) {
	st := &scriptedStage{name: "cards"}
	r := NewRunner(DefaultConfig(), []Stage{st})

	r.runTick(context.Background(), 0)
	if st.resets != 0 {
		t.Fatalf("resets = %d before any request, want 0", st.resets)
	}

	r.RequestReset()
	r.runTick(context.Background(), 0)
	r.runTick(context.Background(), 0)
	if st.resets != 1 {
		t.Errorf("resets = %d, want exactly 1 per request", st.resets)
	}
}

func TestRunnerTitleFuncWins(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WindowTitle = "Static $1/$2"
	var seen []string
	probe := &scriptedStage{name: "probe", fn: func(tc *TickContext) error {
		seen = append(seen, tc.Title)
		return nil
	}}
	r := NewRunner(cfg, []Stage{probe})

	r.runTick(context.Background(), 0)
	r.TitleFunc = func() string { return "Holdem $0.50/$1.00" }
	r.runTick(context.Background(), 0)
	r.TitleFunc = func() string { return "" }
	r.runTick(context.Background(), 0)

	want := []string{"Static $1/$2", "Holdem $0.50/$1.00", "Static $1/$2"}
	if len(seen) != len(want) {
		t.Fatalf("titles = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("title %d = %q, want %q", i, seen[i], want[i])
		}
	}
}

func TestRunnerSeatsSnapshot(t *testing.T) {
	stages := []Stage{
		&scriptedStage{name: "seats", fn: func(tc *TickContext) error {
			tc.Seats = table.RegistrySnapshot{Confirmed: 4, Tracked: 5}
			return nil
		}},
		publishStage(nil),
	}
	r := NewRunner(DefaultConfig(), stages)

	if got := r.Seats(); got.Confirmed != 0 {
		t.Errorf("Seats().Confirmed = %d before any tick, want 0", got.Confirmed)
	}

	r.runTick(context.Background(), 0)
	if got := r.Seats(); got.Confirmed != 4 || got.Tracked != 5 {
		t.Errorf("Seats() = %+v, want 4 confirmed, 5 tracked", got)
	}
}

func TestRunnerPauseGatesTicking(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ActiveIntervalMS = 5
	cfg.IdleIntervalMS = 5
	r := NewRunner(cfg, []Stage{&scriptedStage{name: "noop"}})
	r.SetPaused(true)
	if !r.IsPaused() {
		t.Fatal("IsPaused() = false after SetPaused(true)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	time.Sleep(60 * time.Millisecond)
	if got := r.Ticks(); got != 0 {
		t.Errorf("Ticks() = %d while paused, want 0", got)
	}

	r.SetPaused(false)
	deadline := time.Now().Add(2 * time.Second)
	for r.Ticks() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if r.Ticks() == 0 {
		t.Error("Ticks() = 0 after resume, the loop never woke up")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestRunnerCooperativeStop(t *testing.T) {
	r := NewRunner(DefaultConfig(), []Stage{&scriptedStage{name: "noop"}})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
	if r.Ticks() == 0 {
		t.Error("Ticks() = 0, the loop never ran")
	}
}
