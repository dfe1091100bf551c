// Package vision prepares captured frames for detection: decode,
// black-frame rejection, region crop and scaling.
package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Config holds frame preparation settings.
type Config struct {
	Scale          float64 // Uniform resize factor applied after crop
	BlackThreshold float64 // Mean gray below this is a dead capture
	MinCropWidth   int     // Scaled crops narrower than this are ignored
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Scale:          1.0,
		BlackThreshold: 5.0,
		MinCropWidth:   10,
	}
}

// Validate returns a list of configuration problems.
func (c *Config) Validate() []string {
	var errs []string
	if c.Scale <= 0 || c.Scale > 4 {
		errs = append(errs, "scale must be in (0, 4]")
	}
	if c.BlackThreshold < 0 || c.BlackThreshold > 255 {
		errs = append(errs, "black_threshold must be a gray level (0-255)")
	}
	if c.MinCropWidth < 1 {
		errs = append(errs, "min_crop_width must be at least 1")
	}
	return errs
}

// Result is one prepared frame.
type Result struct {
	JPEG     []byte
	Width    int // Prepared size, after crop and scale
	Height   int
	MeanGray float64
	Black    bool // Capture considered dead; JPEG is empty
}

// Processor turns raw captures into detector-ready frames.
type Processor struct {
	cfg Config
}

// NewProcessor creates a frame processor.
func NewProcessor(cfg Config) *Processor {
	return &Processor{cfg: cfg}
}

// ClampRegion fits r into a width×height frame. The result always has
// at least one pixel in each dimension, so a misconfigured region can
// shift and shrink but never produce an invalid crop.
func ClampRegion(r image.Rectangle, width, height int) image.Rectangle {
	x := r.Min.X
	if x < 0 {
		x = 0
	}
	if x > width-1 {
		x = width - 1
	}
	y := r.Min.Y
	if y < 0 {
		y = 0
	}
	if y > height-1 {
		y = height - 1
	}

	w := r.Dx()
	if w > width-x {
		w = width - x
	}
	if w < 1 {
		w = 1
	}
	h := r.Dy()
	if h > height-y {
		h = height - y
	}
	if h < 1 {
		h = 1
	}

	return image.Rect(x, y, x+w, y+h)
}

// Process decodes one captured JPEG, applies the optional region crop
// and scale, and re-encodes. A nil region means the whole frame.
func (p *Processor) Process(jpeg []byte, region *image.Rectangle) (Result, error) {
	img, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		return Result{}, fmt.Errorf("decode frame: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return Result{}, fmt.Errorf("empty frame")
	}
	return p.process(img, region)
}

// ProcessMat is Process for callers that already hold a decoded Mat,
// such as the camera capture path. The Mat is not modified.
func (p *Processor) ProcessMat(img gocv.Mat, region *image.Rectangle) (Result, error) {
	if img.Empty() {
		return Result{}, fmt.Errorf("empty frame")
	}
	return p.process(img, region)
}

func (p *Processor) process(img gocv.Mat, region *image.Rectangle) (Result, error) {
	res := Result{MeanGray: meanGray(img)}
	if res.MeanGray < p.cfg.BlackThreshold {
		res.Black = true
		return res, nil
	}

	work := img
	if region != nil {
		r := ClampRegion(*region, img.Cols(), img.Rows())
		if float64(r.Dx())*p.cfg.Scale > float64(p.cfg.MinCropWidth) {
			view := img.Region(r)
			defer view.Close()
			work = view
		}
	}

	out := gocv.NewMat()
	defer out.Close()
	if p.cfg.Scale != 1.0 {
		gocv.Resize(work, &out, image.Point{}, p.cfg.Scale, p.cfg.Scale, gocv.InterpolationLinear)
	} else {
		work.CopyTo(&out)
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, out)
	if err != nil {
		return Result{}, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	encoded := buf.GetBytes()
	res.JPEG = make([]byte, len(encoded))
	copy(res.JPEG, encoded)
	res.Width = out.Cols()
	res.Height = out.Rows()
	return res, nil
}

// meanGray measures average brightness. Screen captures of a locked or
// sleeping display come back as near-zero frames.
func meanGray(img gocv.Mat) float64 {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	return gray.Mean().Val1
}
