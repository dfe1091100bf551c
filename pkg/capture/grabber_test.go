package capture

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// stubSource produces numbered frames without touching any device.
type stubSource struct {
	seq  atomic.Uint64
	fail atomic.Bool
}

func (s *stubSource) Capture() (*Frame, error) {
	if s.fail.Load() {
		return nil, errors.New("device gone")
	}
	return &Frame{
		JPEG:       []byte{0xFF, 0xD8},
		Width:      1920,
		Height:     1080,
		Sequence:   s.seq.Add(1),
		CapturedAt: time.Now(),
	}, nil
}

func (s *stubSource) Close() error { return nil }

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestGrabberKeepsNewestFrame(t *testing.T) {
	src := &stubSource{}
	g := NewGrabber(src, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go g.Run(ctx)

	waitFor(t, time.Second, func() bool { return g.Captured() >= 3 })

	first := g.Latest()
	if first == nil {
		t.Fatal("Latest() = nil after captures")
	}

	waitFor(t, time.Second, func() bool {
		f := g.Latest()
		return f != nil && f.Sequence > first.Sequence
	})

	cancel()
	waitFor(t, time.Second, func() bool { return !g.IsRunning() })
}

func TestGrabberSurvivesCaptureErrors(t *testing.T) {
	src := &stubSource{}
	src.fail.Store(true)
	g := NewGrabber(src, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go g.Run(ctx)

	time.Sleep(20 * time.Millisecond)
	if g.Latest() != nil {
		t.Error("Latest() should be nil while the source fails")
	}

	// Source recovers; the loop should pick frames up again.
	src.fail.Store(false)
	waitFor(t, time.Second, func() bool { return g.Latest() != nil })
}

func TestGrabberLatestNilBeforeStart(t *testing.T) {
	g := NewGrabber(&stubSource{}, time.Millisecond)
	if g.Latest() != nil {
		t.Error("Latest() should be nil before Run")
	}
	if g.IsRunning() {
		t.Error("IsRunning() should be false before Run")
	}
}

func TestGrabberSetSourceHotSwap(t *testing.T) {
	first := &stubSource{}
	second := &stubSource{}
	g := NewGrabber(first, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go g.Run(ctx)

	waitFor(t, time.Second, func() bool { return g.Captured() >= 1 })

	if old := g.SetSource(second); old != first {
		t.Error("SetSource should return the previous source")
	}
	if g.Source() != second {
		t.Error("Source() should report the new source")
	}

	// The loop keeps running and now pulls from the new source.
	waitFor(t, time.Second, func() bool { return second.seq.Load() >= 2 })
}
