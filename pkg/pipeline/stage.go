package pipeline

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/feltvision/tablesight/pkg/detect"
	"github.com/feltvision/tablesight/pkg/table"
)

// ErrSkipTick aborts the remaining stages without recording a fault.
// Prep returns it when no frame is available yet or the capture has
// gone dark; the previously published state stands for the tick.
var ErrSkipTick = errors.New("skip tick")

// TickContext carries one tick's intermediate products through the
// stage chain. A fresh context is built per tick and stages
// communicate only through it.
type TickContext struct {
	Ctx    context.Context
	Tick   uint64
	Now    time.Time
	Active bool   // Hero was in a hand last tick; gates heavy stages
	Title  string // Captured window title, when a source reports one

	// Analyzed frame, set by prep.
	JPEG       []byte
	Width      int
	Height     int
	FrameID    uint64
	CapturedAt time.Time

	// Detector output in analyzed-frame pixels, set by detect.
	Detections []detect.Detection
	Raw        []table.RawDetection

	// Table model products.
	Resolution table.Resolution
	Seats      table.RegistrySnapshot
	Format     table.FormatResult
	Stacks     table.SizerEstimate
	Pot        float64
	ToCall     float64

	// Fully assembled snapshot, set by the final stage.
	State *table.State
}

// Stage is one step of the tick. Stages run in a fixed order; a fault
// is recorded and the chain continues, so every stage must tolerate
// missing upstream products.
type Stage interface {
	Name() string
	Process(tc *TickContext) error
}

// Resetter is implemented by stages holding temporal state that stops
// being meaningful when the capture region changes.
type Resetter interface {
	Reset()
}

// RegionSetter is implemented by stages that track the analyzed table
// rect.
type RegionSetter interface {
	SetRegion(r image.Rectangle, ok bool)
}
