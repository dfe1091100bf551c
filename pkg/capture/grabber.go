package capture

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/feltvision/tablesight/internal/log"
)

// Grabber runs a Source in the background and keeps only the newest
// frame. The analysis loop reads Latest at its own pace, so a slow
// tick never blocks capture and a slow source never stalls a tick.
type Grabber struct {
	mu       sync.RWMutex
	src      Source
	interval time.Duration
	logger   *slog.Logger

	latest   atomic.Pointer[Frame]
	captured atomic.Uint64
	failed   atomic.Uint64
	running  atomic.Bool
}

// NewGrabber wraps a source with a background capture loop running at
// the given interval.
func NewGrabber(src Source, interval time.Duration) *Grabber {
	if interval <= 0 {
		interval = 33 * time.Millisecond
	}
	return &Grabber{
		src:      src,
		interval: interval,
		logger:   log.Component("capture"),
	}
}

// Run captures frames until the context is cancelled. Capture errors
// throttle to an occasional log line instead of killing the loop; the
// source owner closes the source after Run returns.
func (g *Grabber) Run(ctx context.Context) {
	g.running.Store(true)
	defer g.running.Store(false)

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.mu.RLock()
			src := g.src
			g.mu.RUnlock()

			frame, err := src.Capture()
			if err != nil {
				n := g.failed.Add(1)
				if n == 1 || n%100 == 0 {
					g.logger.Warn("capture failed", "error", err, "failures", n)
				}
				continue
			}
			if frame == nil {
				continue
			}
			g.latest.Store(frame)
			if g.captured.Add(1) == 1 {
				g.logger.Info("first frame captured",
					"width", frame.Width, "height", frame.Height, "bytes", len(frame.JPEG))
			}
		}
	}
}

// Latest returns the most recent frame, or nil before the first
// successful capture.
func (g *Grabber) Latest() *Frame {
	return g.latest.Load()
}

// SetSource swaps the capture source without stopping the loop and
// returns the previous one so the caller can close it.
func (g *Grabber) SetSource(src Source) Source {
	g.mu.Lock()
	old := g.src
	g.src = src
	g.mu.Unlock()
	return old
}

// Source returns the source currently feeding the loop.
func (g *Grabber) Source() Source {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.src
}

// Captured returns how many frames have been stored.
func (g *Grabber) Captured() uint64 {
	return g.captured.Load()
}

// IsRunning reports whether the capture loop is active.
func (g *Grabber) IsRunning() bool {
	return g.running.Load()
}
