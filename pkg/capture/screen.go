package capture

import (
	"fmt"
	"image"
	"sync/atomic"
	"time"

	"github.com/vova616/screenshot"
	"gocv.io/x/gocv"
)

// ScreenSource grabs frames from the local display.
type ScreenSource struct {
	cfg Config
	seq atomic.Uint64
}

// NewScreen creates a screen capture source.
func NewScreen(cfg Config) *ScreenSource {
	return &ScreenSource{cfg: cfg}
}

// Capture grabs one screenshot, restricted to the configured region
// when one is set.
func (s *ScreenSource) Capture() (*Frame, error) {
	var (
		img *image.RGBA
		err error
	)
	if region := s.cfg.Region(); region != nil {
		img, err = screenshot.CaptureRect(*region)
	} else {
		img, err = screenshot.CaptureScreen()
	}
	if err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}

	rgba, err := gocv.ImageToMatRGBA(img)
	if err != nil {
		return nil, fmt.Errorf("convert screenshot: %w", err)
	}
	defer rgba.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(rgba, &bgr, gocv.ColorRGBAToBGR)

	jpeg, err := encodeJPEG(bgr)
	if err != nil {
		return nil, err
	}

	return &Frame{
		JPEG:       jpeg,
		Width:      bgr.Cols(),
		Height:     bgr.Rows(),
		Sequence:   s.seq.Add(1),
		CapturedAt: time.Now(),
	}, nil
}

// Close is a no-op; the display needs no teardown.
func (s *ScreenSource) Close() error { return nil }

func encodeJPEG(img gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Ensure ScreenSource implements Source.
var _ Source = (*ScreenSource)(nil)
