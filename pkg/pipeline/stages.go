package pipeline

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/feltvision/tablesight/pkg/capture"
	"github.com/feltvision/tablesight/pkg/detect"
	"github.com/feltvision/tablesight/pkg/table"
	"github.com/feltvision/tablesight/pkg/vision"
)

// FrameProvider yields the newest captured frame, nil when none yet.
type FrameProvider interface {
	Latest() *capture.Frame
}

// Preparer turns raw frame bytes into the analyzed image.
type Preparer interface {
	Process(jpeg []byte, region *image.Rectangle) (vision.Result, error)
}

// Detector finds cards and stack markers in the analyzed image.
type Detector interface {
	Detect(jpeg []byte) ([]detect.Detection, error)
}

// AmountReader reads money figures off the analyzed frame.
type AmountReader interface {
	ReadAmounts(ctx context.Context, jpeg []byte, width, height int) (pot, toCall float64, err error)
}

// Deps are the collaborators the standard stage chain is built from.
// Amounts may be nil; the amounts stage then no-ops.
type Deps struct {
	Frames   FrameProvider
	Prep     Preparer
	Detector Detector
	Amounts  AmountReader
}

// DefaultStages composes the canonical chain: prep, detect, cards,
// stacks, seats, format, amounts, assemble.
func DefaultStages(cfg Config, d Deps) []Stage {
	return []Stage{
		NewPrepStage(d.Frames, d.Prep, cfg),
		NewDetectStage(d.Detector),
		NewCardStage(cfg.Table),
		NewStackStage(cfg.Table),
		NewSeatStage(cfg.Table),
		NewFormatStage(cfg.Table),
		NewAmountStage(d.Amounts),
		NewAssembleStage(cfg.Table),
	}
}

// PrepStage pulls the newest frame and prepares the analyzed image:
// the display-space table rect scaled into frame space, cropping,
// scaling and the dark-frame guard all happen here.
type PrepStage struct {
	frames FrameProvider
	prep   Preparer

	mu        sync.Mutex
	region    image.Rectangle
	hasRegion bool
	displayW  int
	displayH  int
}

// NewPrepStage creates the frame preparation stage.
func NewPrepStage(frames FrameProvider, prep Preparer, cfg Config) *PrepStage {
	s := &PrepStage{
		frames:   frames,
		prep:     prep,
		displayW: cfg.DisplayWidth,
		displayH: cfg.DisplayHeight,
	}
	if r, ok := cfg.TableRect(); ok {
		s.region, s.hasRegion = r, true
	}
	return s
}

func (s *PrepStage) Name() string { return "prep" }

// SetRegion swaps the analyzed table rect (display-space pixels).
func (s *PrepStage) SetRegion(r image.Rectangle, ok bool) {
	s.mu.Lock()
	s.region, s.hasRegion = r, ok
	s.mu.Unlock()
}

func (s *PrepStage) Process(tc *TickContext) error {
	if s.frames == nil {
		return ErrSkipTick
	}
	frame := s.frames.Latest()
	if frame == nil {
		return ErrSkipTick
	}

	var region *image.Rectangle
	s.mu.Lock()
	if s.hasRegion {
		r := scaleRect(s.region, s.displayW, s.displayH, frame.Width, frame.Height)
		region = &r
	}
	s.mu.Unlock()

	res, err := s.prep.Process(frame.JPEG, region)
	if err != nil {
		return fmt.Errorf("prepare frame: %w", err)
	}
	if res.Black {
		return ErrSkipTick
	}

	tc.JPEG = res.JPEG
	tc.Width = res.Width
	tc.Height = res.Height
	tc.FrameID = frame.Sequence
	tc.CapturedAt = frame.CapturedAt
	return nil
}

// scaleRect maps a display-space rect into captured-frame pixels.
// Bounds clamping happens downstream in the frame processor.
func scaleRect(r image.Rectangle, displayW, displayH, frameW, frameH int) image.Rectangle {
	if displayW < 1 || displayH < 1 || (displayW == frameW && displayH == frameH) {
		return r
	}
	sx := float64(frameW) / float64(displayW)
	sy := float64(frameH) / float64(displayH)
	return image.Rect(
		int(float64(r.Min.X)*sx),
		int(float64(r.Min.Y)*sy),
		int(float64(r.Max.X)*sx),
		int(float64(r.Max.Y)*sy),
	)
}

// DetectStage runs the card detector over the analyzed image and maps
// hits to center points for the table model.
type DetectStage struct {
	det Detector
}

// NewDetectStage creates the detection stage.
func NewDetectStage(det Detector) *DetectStage {
	return &DetectStage{det: det}
}

func (s *DetectStage) Name() string { return "detect" }

func (s *DetectStage) Process(tc *TickContext) error {
	if s.det == nil || len(tc.JPEG) == 0 {
		return nil
	}
	dets, err := s.det.Detect(tc.JPEG)
	if err != nil {
		return fmt.Errorf("detect: %w", err)
	}
	tc.Detections = dets
	tc.Raw = make([]table.RawDetection, 0, len(dets))
	for _, d := range dets {
		cx, cy := d.Center()
		tc.Raw = append(tc.Raw, table.RawDetection{
			X:          cx,
			Y:          cy,
			Label:      d.Label,
			Confidence: d.Confidence,
		})
	}
	return nil
}

// CardStage feeds the stabilizer and resolves confirmed cards. A tick
// with no detections still counts as a frame of evidence against
// previously seen cards.
type CardStage struct {
	stab *table.Stabilizer
}

// NewCardStage creates the card stabilization stage.
func NewCardStage(cfg table.Config) *CardStage {
	return &CardStage{stab: table.NewStabilizer(cfg)}
}

func (s *CardStage) Name() string { return "cards" }
func (s *CardStage) Reset()       { s.stab.Reset() }

func (s *CardStage) Process(tc *TickContext) error {
	if tc.Width < 1 || tc.Height < 1 {
		return nil
	}
	s.stab.Push(tc.Raw, tc.Width, tc.Height)
	tc.Resolution = s.stab.Resolve(tc.Width, tc.Height)
	return nil
}

// StackStage estimates table occupancy from stack-text detections.
type StackStage struct {
	sizer *table.Sizer
}

// NewStackStage creates the stack-count stage.
func NewStackStage(cfg table.Config) *StackStage {
	return &StackStage{sizer: table.NewSizer(cfg)}
}

func (s *StackStage) Name() string { return "stacks" }
func (s *StackStage) Reset()       { s.sizer.Reset() }

func (s *StackStage) Process(tc *TickContext) error {
	if tc.Width < 1 || tc.Height < 1 {
		return nil
	}
	tc.Stacks = s.sizer.Observe(tc.Raw, tc.Width, tc.Height)
	return nil
}

// SeatStage tracks occupied positions across ticks.
type SeatStage struct {
	registry *table.Registry
}

// NewSeatStage creates the seat registry stage.
func NewSeatStage(cfg table.Config) *SeatStage {
	return &SeatStage{registry: table.NewRegistry(cfg)}
}

func (s *SeatStage) Name() string { return "seats" }
func (s *SeatStage) Reset()       { s.registry.Reset() }

func (s *SeatStage) Process(tc *TickContext) error {
	tc.Seats = s.registry.Observe(tc.Resolution.OpponentPoints, tc.Width, tc.Height, tc.Now)
	return nil
}

// FormatStage matches confirmed seat geometry against the canonical
// layouts.
type FormatStage struct {
	cfg table.Config
}

// NewFormatStage creates the format classification stage.
func NewFormatStage(cfg table.Config) *FormatStage {
	return &FormatStage{cfg: cfg}
}

func (s *FormatStage) Name() string { return "format" }

func (s *FormatStage) Process(tc *TickContext) error {
	tc.Format = table.Classify(tc.Seats.Points, s.cfg)
	return nil
}

// AmountStage reads pot and to-call figures. It only runs while the
// hero is in a hand; the reader round-trips a cloud OCR API.
type AmountStage struct {
	reader AmountReader
}

// NewAmountStage creates the OCR amounts stage. A nil reader disables
// it.
func NewAmountStage(reader AmountReader) *AmountStage {
	return &AmountStage{reader: reader}
}

func (s *AmountStage) Name() string { return "amounts" }

func (s *AmountStage) Process(tc *TickContext) error {
	if s.reader == nil || !tc.Active || len(tc.JPEG) == 0 {
		return nil
	}
	pot, toCall, err := s.reader.ReadAmounts(tc.Ctx, tc.JPEG, tc.Width, tc.Height)
	if err != nil {
		return fmt.Errorf("read amounts: %w", err)
	}
	tc.Pot = pot
	tc.ToCall = toCall
	return nil
}

// AssembleStage folds the tick's products into the published snapshot
// and keeps the blinds current from the window title.
type AssembleStage struct {
	asm *table.Assembler
}

// NewAssembleStage creates the final state assembly stage.
func NewAssembleStage(cfg table.Config) *AssembleStage {
	return &AssembleStage{asm: table.NewAssembler(cfg)}
}

func (s *AssembleStage) Name() string { return "assemble" }

func (s *AssembleStage) Process(tc *TickContext) error {
	if tc.Title != "" {
		if b, ok := table.ParseBlinds(tc.Title); ok {
			s.asm.SetBlinds(b)
		}
	}
	st := s.asm.Build(tc.Resolution, tc.Seats, tc.Format, tc.Stacks, tc.Now)
	st.Tick = tc.Tick
	st.CapturedAt = tc.CapturedAt
	st.Pot = tc.Pot
	st.ToCall = tc.ToCall
	tc.State = &st
	return nil
}

// Verify the production collaborators and the optional stage
// interfaces line up at compile time.
var (
	_ FrameProvider = (*capture.Grabber)(nil)
	_ Preparer      = (*vision.Processor)(nil)
	_ Detector      = (*detect.YOLODetector)(nil)

	_ RegionSetter = (*PrepStage)(nil)
	_ Resetter     = (*CardStage)(nil)
	_ Resetter     = (*StackStage)(nil)
	_ Resetter     = (*SeatStage)(nil)
)
