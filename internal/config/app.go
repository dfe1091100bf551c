// Package config provides configuration helpers for tablesight commands.
package config

import (
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Default daemon configuration.
const (
	DefaultListenAddr    = ":8090"
	DefaultCaptureSource = "screen"
	DefaultModelPath     = "models/cards.onnx"
)

// LoadDotenv loads a .env file if one exists. Missing files are fine;
// the system environment always wins.
func LoadDotenv() {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "warning: .env not loaded: %v\n", err)
		}
	}
}

// Get returns the env var value or the provided default.
func Get(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// GetInt returns the env var parsed as int, or the default.
func GetInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// GetBool returns true for "1", "true", "yes" (case-insensitive).
func GetBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

// ListenAddr returns the web API listen address from LISTEN_ADDR.
func ListenAddr() string {
	return Get("LISTEN_ADDR", DefaultListenAddr)
}

// CaptureSource returns the frame source kind from CAPTURE_SOURCE:
// "device", "screen" or "agent".
func CaptureSource() string {
	return Get("CAPTURE_SOURCE", DefaultCaptureSource)
}

// CaptureDevice returns the video device id from CAPTURE_DEVICE.
func CaptureDevice() int {
	return GetInt("CAPTURE_DEVICE", 0)
}

// AgentAddr returns the capture agent host:port from AGENT_ADDR.
// Required when CAPTURE_SOURCE=agent.
func AgentAddr() string {
	addr := os.Getenv("AGENT_ADDR")
	if addr == "" && CaptureSource() == "agent" {
		fmt.Fprintln(os.Stderr, "Error: AGENT_ADDR environment variable is required with CAPTURE_SOURCE=agent")
		fmt.Fprintln(os.Stderr, "Usage: AGENT_ADDR=192.168.1.40:8443 tablesight")
		os.Exit(1)
	}
	return addr
}

// ModelPath returns the card detector ONNX model path from MODEL_PATH.
func ModelPath() string {
	return Get("MODEL_PATH", DefaultModelPath)
}

// RedisAddr returns the redis address from REDIS_ADDR, empty when
// state publishing is disabled.
func RedisAddr() string {
	return os.Getenv("REDIS_ADDR")
}

// GoogleCredentials returns an optional service-account file path for
// the Cloud Vision reader from GOOGLE_CREDENTIALS. Empty means ADC.
func GoogleCredentials() string {
	return os.Getenv("GOOGLE_CREDENTIALS")
}

// OCREnabled reports whether the amount reader should run (OCR_ENABLED).
func OCREnabled() bool {
	return GetBool("OCR_ENABLED", false)
}

// PipelineConfig returns the JSON config file path from PIPELINE_CONFIG,
// empty when defaults should be used.
func PipelineConfig() string {
	return os.Getenv("PIPELINE_CONFIG")
}

// TableRegion parses TABLE_REGION ("x,y,w,h" in display pixels) into a
// rectangle. ok is false when unset or malformed.
func TableRegion() (image.Rectangle, bool) {
	return ParseRect(os.Getenv("TABLE_REGION"))
}

// DisplaySize parses DISPLAY_SIZE ("2560x1440"), the logical resolution
// table regions are expressed in. Zero value means same as capture.
func DisplaySize() (image.Point, bool) {
	return ParseSize(os.Getenv("DISPLAY_SIZE"))
}

// ParseRect parses "x,y,w,h" into an image.Rectangle.
func ParseRect(s string) (image.Rectangle, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, false
	}
	vals := make([]int, 4)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, false
		}
		vals[i] = n
	}
	if vals[2] <= 0 || vals[3] <= 0 {
		return image.Rectangle{}, false
	}
	return image.Rect(vals[0], vals[1], vals[0]+vals[2], vals[1]+vals[3]), true
}

// ParseSize parses "WxH" into an image.Point.
func ParseSize(s string) (image.Point, bool) {
	parts := strings.Split(strings.ToLower(s), "x")
	if len(parts) != 2 {
		return image.Point{}, false
	}
	w, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	h, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return image.Point{}, false
	}
	return image.Point{X: w, Y: h}, true
}
