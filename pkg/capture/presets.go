package capture

// Preset names for common table placements
const (
	PresetDefault   = "default"
	PresetLeftHalf  = "left-half"
	PresetRightHalf = "right-half"
	PresetCentered  = "centered"
	PresetDevice    = "device"
	PresetDevice4K  = "device-4k"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault:   DefaultConfig(),
		PresetLeftHalf:  LeftHalfConfig(),
		PresetRightHalf: RightHalfConfig(),
		PresetCentered:  CenteredConfig(),
		PresetDevice:    DeviceConfig(),
		PresetDevice4K:  Device4KConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetDefault,
		PresetLeftHalf,
		PresetRightHalf,
		PresetCentered,
		PresetDevice,
		PresetDevice4K,
	}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	presets := Presets()
	if cfg, ok := presets[name]; ok {
		return &cfg
	}
	return nil
}

// LeftHalfConfig captures the left half of a 1920-wide display, for
// two-table setups.
func LeftHalfConfig() Config {
	cfg := DefaultConfig()
	cfg.RegionWidth = 960
	cfg.RegionHeight = 1080
	return cfg
}

// RightHalfConfig captures the right half of a 1920-wide display.
func RightHalfConfig() Config {
	cfg := DefaultConfig()
	cfg.RegionX = 960
	cfg.RegionWidth = 960
	cfg.RegionHeight = 1080
	return cfg
}

// CenteredConfig captures a 1280×720 window centered on a 1080p
// display, the default placement of most clients.
func CenteredConfig() Config {
	cfg := DefaultConfig()
	cfg.RegionX = 320
	cfg.RegionY = 180
	cfg.RegionWidth = 1280
	cfg.RegionHeight = 720
	return cfg
}

// DeviceConfig reads a capture card at 1080p.
func DeviceConfig() Config {
	cfg := DefaultConfig()
	cfg.Source = SourceDevice
	return cfg
}

// Device4KConfig reads a capture card at 4K.
// Maximum detail, higher CPU usage.
func Device4KConfig() Config {
	cfg := DefaultConfig()
	cfg.Source = SourceDevice
	cfg.Width = 3840
	cfg.Height = 2160
	cfg.Framerate = 15 // Lower framerate at 4K
	return cfg
}
