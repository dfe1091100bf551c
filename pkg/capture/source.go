// Package capture produces table screenshots from a local screen, a
// capture device or a remote capture agent.
package capture

import (
	"fmt"
	"image"
	"time"
)

// Frame is one captured image, ready for the vision pipeline.
type Frame struct {
	JPEG       []byte
	Width      int
	Height     int
	Sequence   uint64
	CapturedAt time.Time
}

// Source is the interface for capture backends.
type Source interface {
	// Capture returns the most recent frame available.
	Capture() (*Frame, error)

	// Close releases resources.
	Close() error
}

// Stats reports transport health for sources with a network leg.
// Local sources return zero values.
type Stats struct {
	Packets      uint64 `json:"packets"`
	PacketsLost  uint64 `json:"packets_lost"`
	FramesOutput uint64 `json:"frames"`
}

// Config holds capture configuration.
type Config struct {
	Source string `json:"source"` // "screen", "device" or "agent"

	// Table window rectangle on the display. Zero size means the
	// whole screen.
	RegionX      int `json:"region_x"`
	RegionY      int `json:"region_y"`
	RegionWidth  int `json:"region_width"`
	RegionHeight int `json:"region_height"`

	// Device settings, used when Source is "device".
	Device    string `json:"device"` // Index or path for the capture device
	Width     int    `json:"width"`  // Requested capture size
	Height    int    `json:"height"`
	Framerate int    `json:"framerate"`

	// Agent settings, used when Source is "agent".
	AgentAddr string `json:"agent_addr"` // host:port of the capture agent
	AgentName string `json:"agent_name"` // Producer name to attach to
}

// Region returns the capture rectangle, or nil for the whole screen.
func (c *Config) Region() *image.Rectangle {
	if c.RegionWidth < 1 || c.RegionHeight < 1 {
		return nil
	}
	r := image.Rect(c.RegionX, c.RegionY, c.RegionX+c.RegionWidth, c.RegionY+c.RegionHeight)
	return &r
}

// Source kinds.
const (
	SourceScreen = "screen"
	SourceDevice = "device"
	SourceAgent  = "agent"
)

// DefaultConfig returns production defaults: full-screen capture on
// the local display.
func DefaultConfig() Config {
	return Config{
		Source:    SourceScreen,
		Device:    "0",
		Width:     1920,
		Height:    1080,
		Framerate: 30,
		AgentName: "tableagent",
	}
}

// Validate returns a list of configuration problems.
func (c *Config) Validate() []string {
	var errs []string

	switch c.Source {
	case SourceScreen, SourceDevice, SourceAgent:
	default:
		errs = append(errs, fmt.Sprintf("unknown source %q", c.Source))
	}
	if c.Source == SourceAgent && c.AgentAddr == "" {
		errs = append(errs, "agent source needs agent_addr")
	}
	if c.Source == SourceDevice {
		if c.Width < 1 || c.Height < 1 {
			errs = append(errs, "device capture size must be positive")
		}
		if c.Framerate < 1 || c.Framerate > 120 {
			errs = append(errs, "framerate must be between 1 and 120")
		}
	}
	if c.RegionWidth < 0 || c.RegionHeight < 0 {
		errs = append(errs, "capture region size cannot be negative")
	}
	return errs
}

// New creates the source named by cfg.Source.
func New(cfg Config) (Source, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("capture config: %v", errs)
	}

	switch cfg.Source {
	case SourceScreen:
		return NewScreen(cfg), nil
	case SourceDevice:
		return NewDevice(cfg)
	case SourceAgent:
		return NewAgent(cfg)
	}
	return nil, fmt.Errorf("unknown source %q", cfg.Source)
}
