// Package detect finds cards and stack markers in table screenshots.
package detect

import "github.com/feltvision/tablesight/pkg/table"

// Detection is one detected object in pixel space.
type Detection struct {
	X, Y       float64 // Top-left corner, pixels
	W, H       float64 // Box size, pixels
	Label      string  // Class name, e.g. "Ah", "card_back", "stack_text"
	Confidence float64 // Detection confidence (0-1)
}

// Center returns the center point of the detection in pixels.
func (d Detection) Center() (x, y float64) {
	return d.X + d.W/2, d.Y + d.H/2
}

// Area returns the area of the bounding box in square pixels.
func (d Detection) Area() float64 {
	return d.W * d.H
}

// Detector is the interface for detection backends.
type Detector interface {
	// Detect finds table objects in the JPEG image.
	Detect(jpeg []byte) ([]Detection, error)

	// Close releases resources.
	Close() error
}

// Config holds detector configuration.
type Config struct {
	ModelPath        string  // Path to ONNX model
	ConfidenceThresh float32 // Raw model floor; per-label floors apply downstream
	NMSThresh        float32 // Non-maximum suppression overlap threshold
	InputWidth       int     // Model input width
	InputHeight      int     // Model input height
}

// DefaultConfig returns production defaults for the card model.
//
// The confidence floor sits below every downstream per-label floor so
// the stabilizer, not the detector, decides what counts as seen.
func DefaultConfig() Config {
	return Config{
		ModelPath:        "models/cards.onnx",
		ConfidenceThresh: 0.20,
		NMSThresh:        0.45,
		InputWidth:       640,
		InputHeight:      640,
	}
}

// DefaultClassNames returns the model's class list in training order:
// the 52 cards rank-major, the face-down back, then the stack markers.
func DefaultClassNames() []string {
	names := table.CardLabels()
	return append(names, table.StackText, table.AllInSymbol)
}
