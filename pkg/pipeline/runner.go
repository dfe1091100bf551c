// Package pipeline drives the capture → detect → stabilize → publish
// loop. One tick pulls the newest frame, runs the stage chain in a
// fixed order and swaps the published snapshot by reference; stage
// faults are ring-buffered and never fatal.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"os"
	"sync/atomic"
	"time"

	"github.com/feltvision/tablesight/internal/log"
	"github.com/feltvision/tablesight/pkg/table"
)

// Runner owns the analysis loop: pacing, fault isolation and snapshot
// publication. Stages do the work; the runner only sequences them.
type Runner struct {
	cfg    Config
	logger *slog.Logger
	stages []Stage
	faults *FaultRing

	state       atomic.Pointer[table.State]
	seats       atomic.Pointer[table.RegistrySnapshot]
	ticks       atomic.Uint64
	resetWanted atomic.Bool
	paused      atomic.Bool

	// TitleFunc supplies the captured window's title for blinds
	// parsing. Optional; the configured static title is the fallback.
	TitleFunc func() string

	// OnState receives every published snapshot.
	OnState func(table.State)

	// OnFrame receives the analyzed JPEG of each completed tick.
	OnFrame func(jpeg []byte, width, height int, id uint64)

	// OnFault receives each recorded stage fault.
	OnFault func(Fault)

	lastDump time.Time
}

// NewRunner creates a runner over the given stage chain.
func NewRunner(cfg Config, stages []Stage) *Runner {
	return &Runner{
		cfg:    cfg,
		logger: log.Component("pipeline"),
		stages: stages,
		faults: NewFaultRing(FaultCapacity),
	}
}

// State returns the last published snapshot, nil before the first
// completed tick.
func (r *Runner) State() *table.State {
	return r.state.Load()
}

// Ticks returns how many ticks have started.
func (r *Runner) Ticks() uint64 {
	return r.ticks.Load()
}

// Seats returns the seat registry snapshot of the last published tick.
func (r *Runner) Seats() table.RegistrySnapshot {
	if snap := r.seats.Load(); snap != nil {
		return *snap
	}
	return table.RegistrySnapshot{}
}

// Faults returns the recent fault list, oldest first.
func (r *Runner) Faults() []Fault {
	return r.faults.List()
}

// FaultTotal returns how many faults have ever been recorded.
func (r *Runner) FaultTotal() uint64 {
	return r.faults.Total()
}

// SetPaused stops or resumes ticking. Connections and published state
// stay up while paused.
func (r *Runner) SetPaused(paused bool) {
	if r.paused.Swap(paused) != paused {
		if paused {
			r.logger.Info("pipeline paused")
		} else {
			r.logger.Info("pipeline resumed")
		}
	}
}

// IsPaused reports whether ticking is suspended.
func (r *Runner) IsPaused() bool {
	return r.paused.Load()
}

// RequestReset clears temporal state before the next tick starts.
// Safe from any goroutine.
func (r *Runner) RequestReset() {
	r.resetWanted.Store(true)
}

// SetRegion points the analysis at a new display-space table rect and
// schedules a reset: old pixel positions stop meaning anything.
func (r *Runner) SetRegion(rect image.Rectangle, ok bool) {
	for _, s := range r.stages {
		if rs, can := s.(RegionSetter); can {
			rs.SetRegion(rect, ok)
		}
	}
	r.RequestReset()
}

// Run drives ticks until the context is cancelled. The in-flight tick
// always completes; cancellation is observed at tick boundaries.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("pipeline started",
		"stages", len(r.stages),
		"active_interval", r.cfg.Interval(true),
		"idle_interval", r.cfg.Interval(false))

	var fps float64
	var lastTick time.Time

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("pipeline stopped", "ticks", r.ticks.Load())
			return nil
		default:
		}

		if r.paused.Load() {
			lastTick = time.Time{}
			select {
			case <-ctx.Done():
			case <-time.After(r.cfg.Interval(false)):
			}
			continue
		}

		start := time.Now()
		if !lastTick.IsZero() {
			if dt := start.Sub(lastTick).Seconds(); dt > 0 {
				inst := 1.0 / dt
				if fps == 0 {
					fps = inst
				} else {
					fps = 0.8*fps + 0.2*inst
				}
			}
		}
		lastTick = start

		r.runTick(ctx, fps)
		r.maybeDumpFaults(start)

		active := false
		if st := r.state.Load(); st != nil {
			active = st.HeroActive
		}
		// Overruns proceed straight to the next tick.
		if d := r.cfg.Interval(active) - time.Since(start); d > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(d):
			}
		}
	}
}

// runTick executes one pass of the stage chain and publishes the
// resulting snapshot.
func (r *Runner) runTick(ctx context.Context, fps float64) {
	if r.resetWanted.CompareAndSwap(true, false) {
		r.resetStages()
	}

	n := r.ticks.Add(1)
	tc := &TickContext{
		Ctx:   ctx,
		Tick:  n,
		Now:   time.Now(),
		Title: r.cfg.WindowTitle,
	}
	if st := r.state.Load(); st != nil {
		tc.Active = st.HeroActive
	}
	if r.TitleFunc != nil {
		if t := r.TitleFunc(); t != "" {
			tc.Title = t
		}
	}

	faultsBefore := r.faults.Total()

	for _, s := range r.stages {
		err := r.runStage(s, tc)
		if err == nil {
			continue
		}
		if errors.Is(err, ErrSkipTick) {
			return
		}
		f := Fault{Stage: s.Name(), Error: err.Error(), Tick: n, At: time.Now()}
		r.faults.Record(f)
		r.logger.Warn("stage fault", "stage", f.Stage, "error", f.Error, "tick", n)
		if r.OnFault != nil {
			r.OnFault(f)
		}
	}

	if tc.State == nil {
		return
	}
	tc.State.FPS = math.Round(fps*10) / 10
	if r.faults.Total() > faultsBefore {
		if last, ok := r.faults.Last(); ok {
			tc.State.LastError = last.Error
		}
	}

	st := *tc.State
	r.state.Store(&st)
	snap := tc.Seats
	r.seats.Store(&snap)
	if r.OnState != nil {
		r.OnState(st)
	}
	if r.OnFrame != nil && len(tc.JPEG) > 0 {
		r.OnFrame(tc.JPEG, tc.Width, tc.Height, tc.FrameID)
	}
}

// runStage isolates one stage: a panic becomes an ordinary fault.
func (r *Runner) runStage(s Stage, tc *TickContext) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return s.Process(tc)
}

func (r *Runner) resetStages() {
	n := 0
	for _, s := range r.stages {
		if rs, ok := s.(Resetter); ok {
			rs.Reset()
			n++
		}
	}
	r.logger.Info("temporal state reset", "stages", n)
}

// maybeDumpFaults writes the fault ring to the configured JSON file at
// most once per dump interval.
func (r *Runner) maybeDumpFaults(now time.Time) {
	if r.cfg.FaultDumpPath == "" {
		return
	}
	interval := time.Duration(r.cfg.FaultDumpIntervalS) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	if now.Sub(r.lastDump) < interval {
		return
	}
	r.lastDump = now

	faults := r.faults.List()
	if len(faults) == 0 {
		return
	}
	data, err := json.MarshalIndent(faults, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(r.cfg.FaultDumpPath, data, 0644); err != nil {
		r.logger.Warn("fault dump failed", "error", err)
	}
}
