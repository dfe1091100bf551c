// Table test - one-shot capture and detection check
//
// Grabs a single frame, runs the analyzer and the card detector and
// prints what the model sees. Useful for verifying a capture setup
// and a model file before running the full pipeline.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/feltvision/tablesight/internal/config"
	"github.com/feltvision/tablesight/internal/log"
	"github.com/feltvision/tablesight/pkg/capture"
	"github.com/feltvision/tablesight/pkg/detect"
	"github.com/feltvision/tablesight/pkg/pipeline"
	"github.com/feltvision/tablesight/pkg/protocol"
	"github.com/feltvision/tablesight/pkg/table"
	"github.com/feltvision/tablesight/pkg/vision"
)

func main() {
	savePath := flag.String("save", "table_frame.jpg", "Where to write the analyzed frame")
	modelPath := flag.String("model", "", "ONNX model path (overrides MODEL_PATH)")
	flag.Parse()

	config.LoadDotenv()
	log.Init(config.Get("LOG_LEVEL", "warn"))

	fmt.Println("🔍 Table Capture Test")
	fmt.Println("=====================")
	fmt.Printf("Source: %s\n\n", config.CaptureSource())

	src, err := capture.New(captureConfig())
	if err != nil {
		fmt.Printf("❌ Capture setup failed: %v\n", err)
		os.Exit(1)
	}
	defer src.Close()

	fmt.Print("📷 Capturing... ")
	frame, err := waitForFrame(src, 5*time.Second)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ %dx%d (%d KB)\n", frame.Width, frame.Height, len(frame.JPEG)/1024)

	plCfg := pipeline.DefaultConfig()
	proc := vision.NewProcessor(plCfg.Vision)

	res, err := proc.Process(frame.JPEG, nil)
	if err != nil {
		fmt.Printf("❌ Analyze failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("🖼  Analyzed: %dx%d, mean gray %.1f", res.Width, res.Height, res.MeanGray)
	if res.Black {
		fmt.Print(" (dark frame!)")
	}
	fmt.Println()

	detCfg := detect.DefaultConfig()
	detCfg.ModelPath = config.ModelPath()
	if *modelPath != "" {
		detCfg.ModelPath = *modelPath
	}
	det, err := detect.NewYOLO(detCfg, detect.DefaultClassNames())
	if err != nil {
		fmt.Printf("❌ Detector load failed: %v\n", err)
		os.Exit(1)
	}
	defer det.Close()

	dets, err := det.Detect(res.JPEG)
	if err != nil {
		fmt.Printf("❌ Detection failed: %v\n", err)
		os.Exit(1)
	}
	printDetections(dets)

	if a, ok := src.(*capture.AgentSource); ok {
		if title := a.Title(); title != "" {
			fmt.Printf("🪟 Window: %q\n", title)
			if b, ok := table.ParseBlinds(title); ok {
				fmt.Printf("💰 Blinds: %.2f/%.2f\n", b.Small, b.Big)
			}
		}
	}

	if err := os.WriteFile(*savePath, res.JPEG, 0644); err != nil {
		fmt.Printf("❌ Save failed: %v\n", err)
	} else {
		fmt.Printf("💾 Saved analyzed frame: %s\n", *savePath)
	}

	// Show what a dashboard client would receive for this frame.
	if msg, err := protocol.NewFrameMessage(res.Width, res.Height, res.JPEG, frame.Sequence); err == nil {
		if wire, err := json.Marshal(msg); err == nil {
			fmt.Printf("📡 Frame envelope: %d bytes on the wire\n", len(wire))
		}
	}
}

// waitForFrame polls the source until a frame arrives. Agent sources
// need a moment to negotiate before the first frame shows up.
func waitForFrame(src capture.Source, timeout time.Duration) (*capture.Frame, error) {
	deadline := time.Now().Add(timeout)
	for {
		frame, err := src.Capture()
		if err == nil && frame != nil {
			return frame, nil
		}
		if time.Now().After(deadline) {
			if err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("no frame within %s", timeout)
		}
		time.Sleep(200 * time.Millisecond)
	}
}

func printDetections(dets []detect.Detection) {
	fmt.Printf("🃏 Detections: %d\n", len(dets))
	if len(dets) == 0 {
		fmt.Println("   (nothing found, check the model and the capture region)")
		return
	}
	fmt.Println("   LABEL        CONF   CENTER")
	for _, d := range dets {
		x, y := d.Center()
		fmt.Printf("   %-12s %.2f   (%.0f, %.0f)\n", d.Label, d.Confidence, x, y)
	}
}

func captureConfig() capture.Config {
	cfg := capture.DefaultConfig()
	cfg.Source = config.CaptureSource()
	cfg.Device = strconv.Itoa(config.CaptureDevice())
	cfg.AgentAddr = config.AgentAddr()
	cfg.AgentName = config.Get("AGENT_NAME", cfg.AgentName)
	return cfg
}
