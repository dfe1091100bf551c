package capture

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"
)

// DeviceSource reads frames from a capture card or virtual camera, for
// setups where the table runs on a second machine.
type DeviceSource struct {
	cfg Config
	vc  *gocv.VideoCapture
	mu  sync.Mutex
	seq atomic.Uint64
}

// NewDevice opens the configured capture device.
func NewDevice(cfg Config) (*DeviceSource, error) {
	vc, err := gocv.OpenVideoCapture(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("open capture device %q: %w", cfg.Device, err)
	}

	vc.Set(gocv.VideoCaptureFOURCC, vc.ToCodec("MJPG"))
	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))

	return &DeviceSource{cfg: cfg, vc: vc}, nil
}

// Capture reads one frame from the device.
func (d *DeviceSource) Capture() (*Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	img := gocv.NewMat()
	defer img.Close()

	if ok := d.vc.Read(&img); !ok || img.Empty() {
		return nil, fmt.Errorf("capture device %q returned no frame", d.cfg.Device)
	}

	jpeg, err := encodeJPEG(img)
	if err != nil {
		return nil, err
	}

	return &Frame{
		JPEG:       jpeg,
		Width:      img.Cols(),
		Height:     img.Rows(),
		Sequence:   d.seq.Add(1),
		CapturedAt: time.Now(),
	}, nil
}

// Close releases the device.
func (d *DeviceSource) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.vc.Close()
}

// Ensure DeviceSource implements Source.
var _ Source = (*DeviceSource)(nil)
