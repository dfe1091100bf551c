// Tablesight - live table state from screen capture
//
// Captures the table window, runs the card detector and serves
// stabilized snapshots over the dashboard API, websockets and redis.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/feltvision/tablesight/internal/config"
	"github.com/feltvision/tablesight/internal/log"
	"github.com/feltvision/tablesight/pkg/capture"
	"github.com/feltvision/tablesight/pkg/detect"
	"github.com/feltvision/tablesight/pkg/ocr"
	"github.com/feltvision/tablesight/pkg/pipeline"
	"github.com/feltvision/tablesight/pkg/publish"
	"github.com/feltvision/tablesight/pkg/table"
	"github.com/feltvision/tablesight/pkg/vision"
	"github.com/feltvision/tablesight/pkg/web"
)

func main() {
	configPath := flag.String("config", "", "Pipeline config JSON (overrides PIPELINE_CONFIG)")
	flag.Parse()

	config.LoadDotenv()
	log.Init(config.Get("LOG_LEVEL", "info"))
	logger := log.Component("main")

	fmt.Println("🃏 Tablesight")
	fmt.Println("=============")

	plCfg := loadPipelineConfig(*configPath)
	if errs := plCfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "❌ config: %s\n", e)
		}
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	capCfg := captureConfig()
	src, err := capture.New(capCfg)
	if err != nil {
		logger.Error("capture setup failed", "error", err)
		os.Exit(1)
	}

	var interval time.Duration
	if capCfg.Framerate > 0 {
		interval = time.Second / time.Duration(capCfg.Framerate)
	}
	grabber := capture.NewGrabber(src, interval)
	manager := capture.NewManager(capCfg)

	detCfg := detect.DefaultConfig()
	detCfg.ModelPath = config.ModelPath()
	det, err := detect.NewYOLO(detCfg, detect.DefaultClassNames())
	if err != nil {
		logger.Error("detector load failed", "error", err, "model", detCfg.ModelPath)
		os.Exit(1)
	}
	defer det.Close()

	var amounts pipeline.AmountReader
	if config.OCREnabled() {
		ocrCfg := ocr.DefaultConfig()
		ocrCfg.CredentialsFile = config.GoogleCredentials()
		reader, err := ocr.NewReader(ctx, ocrCfg)
		if err != nil {
			logger.Warn("amount reader unavailable, running without amounts", "error", err)
		} else {
			defer reader.Close()
			amounts = reader
		}
	}

	deps := pipeline.Deps{
		Frames:   grabber,
		Prep:     vision.NewProcessor(plCfg.Vision),
		Detector: det,
		Amounts:  amounts,
	}
	runner := pipeline.NewRunner(plCfg, pipeline.DefaultStages(plCfg, deps))
	runner.TitleFunc = func() string {
		if a, ok := grabber.Source().(*capture.AgentSource); ok {
			return a.Title()
		}
		return ""
	}
	go followAgentRegion(ctx, grabber, runner)

	// Dashboard config changes rebuild the source under the running
	// grabber. The pipeline restarts its stabilization windows so
	// stale confirmations never survive a capture switch.
	manager.OnConfigChange = func(cfg capture.Config) error {
		next, err := capture.New(cfg)
		if err != nil {
			return err
		}
		if old := grabber.SetSource(next); old != nil {
			old.Close()
		}
		runner.RequestReset()
		logger.Info("capture source swapped", "source", cfg.Source)
		return nil
	}

	server := web.NewServer(config.ListenAddr(), runner, manager)

	pub := publisherFor(config.RedisAddr())
	stateCh := make(chan table.State, 64)
	go publish.Loop(ctx, stateCh, pub)

	runner.OnState = func(st table.State) {
		server.PublishState(st)
		select {
		case stateCh <- st:
		default: // publisher behind, drop rather than stall the tick
		}
		if st.Tick%10 == 0 {
			server.PublishSeats(runner.Seats())
		}
	}
	runner.OnFrame = server.PublishFrame
	runner.OnFault = server.PublishFault

	go grabber.Run(ctx)
	server.StartAsync()

	logger.Info("tablesight running",
		"listen", config.ListenAddr(),
		"source", capCfg.Source,
		"model", detCfg.ModelPath,
		"ocr", amounts != nil,
		"redis", config.RedisAddr() != "")

	if err := runner.Run(ctx); err != nil {
		logger.Error("pipeline stopped", "error", err)
	}

	server.Shutdown()
	if cur := grabber.Source(); cur != nil {
		cur.Close()
	}
	logger.Info("shutdown complete",
		"ticks", runner.Ticks(),
		"frames", grabber.Captured(),
		"faults", runner.FaultTotal())
}

// followAgentRegion forwards table rects reported by a capture agent
// into the pipeline. Local sources never report one, so the loop is a
// cheap no-op for them.
func followAgentRegion(ctx context.Context, grabber *capture.Grabber, runner *pipeline.Runner) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var last image.Rectangle
	var has bool
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a, ok := grabber.Source().(*capture.AgentSource)
			if !ok {
				continue
			}
			r, ok := a.Region()
			if !ok || (has && r == last) {
				continue
			}
			runner.SetRegion(r, true)
			last, has = r, true
		}
	}
}

// loadPipelineConfig reads the JSON config file and applies the
// environment overrides on top.
func loadPipelineConfig(path string) pipeline.Config {
	if path == "" {
		path = config.PipelineConfig()
	}
	cfg := pipeline.DefaultConfig()
	if path != "" {
		loaded, err := pipeline.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ pipeline config %s: %v\n", path, err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if r, ok := config.TableRegion(); ok {
		cfg.TableX, cfg.TableY = r.Min.X, r.Min.Y
		cfg.TableWidth, cfg.TableHeight = r.Dx(), r.Dy()
	}
	if sz, ok := config.DisplaySize(); ok {
		cfg.DisplayWidth, cfg.DisplayHeight = sz.X, sz.Y
	}
	if t := os.Getenv("WINDOW_TITLE"); t != "" {
		cfg.WindowTitle = t
	}
	return cfg
}

// captureConfig builds the source config from the environment. The
// capture region stays unset here; cropping belongs to the pipeline's
// table rect, and the dashboard can still narrow capture at runtime.
func captureConfig() capture.Config {
	cfg := capture.DefaultConfig()
	cfg.Source = config.CaptureSource()
	cfg.Device = strconv.Itoa(config.CaptureDevice())
	cfg.Framerate = config.GetInt("CAPTURE_FPS", cfg.Framerate)
	cfg.AgentAddr = config.AgentAddr()
	cfg.AgentName = config.Get("AGENT_NAME", cfg.AgentName)
	return cfg
}

// publisherFor builds the redis publisher, or a no-op when no address
// is configured.
func publisherFor(addr string) publish.Publisher {
	if addr == "" {
		return publish.Nop{}
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	return publish.NewRedis(rdb, "", "", 0)
}
