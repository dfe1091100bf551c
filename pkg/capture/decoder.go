package capture

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"io"
	"sync"
	"time"

	"os/exec"
)

// Decoder turns H264 NAL units from the capture agent into JPEG
// frames using short-lived ffmpeg processes with pipe I/O.
type Decoder struct {
	latestFrame []byte
	frameMu     sync.RWMutex

	lastDecode  time.Time
	minInterval time.Duration
	mu          sync.Mutex
}

// NewDecoder creates a decoder. decodeInterval caps how often ffmpeg
// runs; between decodes callers get the previous frame.
func NewDecoder(decodeInterval time.Duration) *Decoder {
	return &Decoder{
		minInterval: decodeInterval,
		lastDecode:  time.Now(),
	}
}

// DecodeNAL decodes accumulated H264 NAL units to JPEG. Returns the
// newest available frame, which may be a previous one when the call is
// rate limited or the data does not yet contain a whole picture.
func (d *Decoder) DecodeNAL(nalData []byte) ([]byte, error) {
	if len(nalData) < 100 {
		return d.Latest(), nil
	}

	d.mu.Lock()
	if time.Since(d.lastDecode) < d.minInterval {
		d.mu.Unlock()
		return d.Latest(), nil
	}
	d.lastDecode = time.Now()
	d.mu.Unlock()

	cmd := exec.Command("ffmpeg",
		"-f", "h264",
		"-i", "pipe:0",
		"-vframes", "1",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "3",
		"pipe:1",
	)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = io.Discard

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	go func() {
		stdin.Write(nalData)
		stdin.Close()
	}()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			// Not enough data for a picture yet.
			return d.Latest(), nil
		}
	case <-time.After(200 * time.Millisecond):
		cmd.Process.Kill()
		<-done
		return d.Latest(), nil
	}

	data := stdout.Bytes()
	if validJPEG(data) {
		frame := make([]byte, len(data))
		copy(frame, data)
		d.frameMu.Lock()
		d.latestFrame = frame
		d.frameMu.Unlock()
	}
	return d.Latest(), nil
}

// Latest returns a copy of the most recently decoded frame, or nil.
func (d *Decoder) Latest() []byte {
	d.frameMu.RLock()
	defer d.frameMu.RUnlock()

	if d.latestFrame == nil {
		return nil
	}
	frame := make([]byte, len(d.latestFrame))
	copy(frame, d.latestFrame)
	return frame
}

// validJPEG rejects truncated or degenerate decoder output. A table
// window is never smaller than 100px on a side.
func validJPEG(data []byte) bool {
	if len(data) < 1000 {
		return false
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return false
	}
	return cfg.Width >= 100 && cfg.Height >= 100
}
