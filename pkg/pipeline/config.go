package pipeline

import (
	"encoding/json"
	"image"
	"os"
	"time"

	"github.com/feltvision/tablesight/pkg/table"
	"github.com/feltvision/tablesight/pkg/vision"
)

// Config holds runtime tuning for the analysis loop. It loads from a
// JSON file so a deployment can persist its table rect and thresholds
// between runs.
type Config struct {
	// Tick pacing. The loop runs hot while the hero is in a hand and
	// relaxes between hands.
	ActiveIntervalMS int `json:"active_interval_ms"`
	IdleIntervalMS   int `json:"idle_interval_ms"`

	// Analyzed table window in display-space pixels. Zero size means
	// the whole captured frame.
	TableX      int `json:"table_x"`
	TableY      int `json:"table_y"`
	TableWidth  int `json:"table_width"`
	TableHeight int `json:"table_height"`

	// Resolution the table rect is expressed in. Zero means the rect
	// is already in captured-frame pixels.
	DisplayWidth  int `json:"display_width"`
	DisplayHeight int `json:"display_height"`

	// WindowTitle is a static title for blinds parsing, used when no
	// capture source reports one.
	WindowTitle string `json:"window_title,omitempty"`

	// Fault dump. Empty path disables the periodic JSON dump.
	FaultDumpPath      string `json:"fault_dump_path,omitempty"`
	FaultDumpIntervalS int    `json:"fault_dump_interval_s,omitempty"`

	Table  table.Config  `json:"table"`
	Vision vision.Config `json:"vision"`
}

// DefaultConfig returns the tuning used for production captures.
func DefaultConfig() Config {
	return Config{
		ActiveIntervalMS:   150,
		IdleIntervalMS:     600,
		FaultDumpIntervalS: 60,
		Table:              table.DefaultConfig(),
		Vision:             vision.DefaultConfig(),
	}
}

// Interval returns the tick interval for the given activity level.
func (c *Config) Interval(active bool) time.Duration {
	ms := c.IdleIntervalMS
	if active {
		ms = c.ActiveIntervalMS
	}
	if ms <= 0 {
		ms = 200
	}
	return time.Duration(ms) * time.Millisecond
}

// TableRect returns the configured display-space table rect. ok is
// false when no rect is configured.
func (c *Config) TableRect() (image.Rectangle, bool) {
	if c.TableWidth < 1 || c.TableHeight < 1 {
		return image.Rectangle{}, false
	}
	return image.Rect(c.TableX, c.TableY, c.TableX+c.TableWidth, c.TableY+c.TableHeight), true
}

// Validate collects configuration errors across the embedded sections.
// Returns nil if valid.
func (c *Config) Validate() []string {
	var errs []string

	if c.ActiveIntervalMS < 0 || c.IdleIntervalMS < 0 {
		errs = append(errs, "tick intervals cannot be negative")
	}
	if c.IdleIntervalMS > 0 && c.ActiveIntervalMS > c.IdleIntervalMS {
		errs = append(errs, "active_interval_ms should not exceed idle_interval_ms")
	}
	if c.TableWidth < 0 || c.TableHeight < 0 {
		errs = append(errs, "table rect size cannot be negative")
	}
	if c.DisplayWidth < 0 || c.DisplayHeight < 0 {
		errs = append(errs, "display size cannot be negative")
	}

	errs = append(errs, c.Table.Validate()...)
	errs = append(errs, c.Vision.Validate()...)
	return errs
}

// Load reads configuration from a JSON file. A missing file returns
// defaults; a malformed one returns defaults with the error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return DefaultConfig(), err
	}
	return cfg, nil
}

// Save writes the configuration to a JSON file.
func (c *Config) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}
