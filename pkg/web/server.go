// Package web serves the dashboard surface: snapshot reads over HTTP
// and live state/frame fan-out over websocket.
package web

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/feltvision/tablesight/internal/log"
	"github.com/feltvision/tablesight/pkg/capture"
	"github.com/feltvision/tablesight/pkg/hub"
	"github.com/feltvision/tablesight/pkg/pipeline"
	"github.com/feltvision/tablesight/pkg/protocol"
	"github.com/feltvision/tablesight/pkg/table"
)

// Server is the dashboard API. It reads published snapshots from the
// runner and fans live updates out through the hubs. All endpoints are
// consumers; the loop never waits on the web side.
type Server struct {
	app    *fiber.App
	addr   string
	logger *slog.Logger

	runner  *pipeline.Runner
	manager *capture.Manager // nil when capture is fixed at startup

	stateHub *hub.Hub
	frameHub *hub.Hub
}

// NewServer wires the API around a runner. The manager may be nil;
// config endpoints then report the surface as unavailable.
func NewServer(addr string, runner *pipeline.Runner, manager *capture.Manager) *Server {
	s := &Server{
		addr:     addr,
		logger:   log.Component("web"),
		runner:   runner,
		manager:  manager,
		stateHub: hub.NewRetaining("state"),
		frameHub: hub.New("frames"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "tablesight",
		DisableStartupMessage: true,
	})

	// CORS for local dashboards
	app.Use(cors.New())

	app.Get("/healthz", s.handleHealth)

	api := app.Group("/api")
	api.Get("/state", s.handleState)
	api.Get("/seats", s.handleSeats)
	api.Get("/errors", s.handleErrors)
	api.Get("/config", s.handleGetConfig)
	api.Post("/config", s.handlePostConfig)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/state", websocket.New(s.handleStateWS))
	app.Get("/ws/frames", websocket.New(s.handleFramesWS))

	s.app = app
	return s
}

// Start runs the hubs and serves until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("dashboard api listening", "addr", s.addr)

	go s.stateHub.Run()
	go s.frameHub.Run()

	return s.app.Listen(s.addr)
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("web server stopped", "error", err)
		}
	}()
}

// Shutdown gracefully stops the web server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// PublishState broadcasts a snapshot to state socket clients. The
// retaining hub replays it to clients connecting later.
func (s *Server) PublishState(st table.State) {
	msg, err := protocol.NewStateMessage(st)
	if err != nil {
		s.logger.Warn("encode state message", "error", err)
		return
	}
	if err := s.stateHub.BroadcastJSON(msg); err != nil {
		s.logger.Warn("broadcast state", "error", err)
	}
}

// PublishSeats broadcasts seat registry diagnostics on the state
// socket.
func (s *Server) PublishSeats(snap table.RegistrySnapshot) {
	msg, err := protocol.NewSeatsMessage(snap)
	if err != nil {
		s.logger.Warn("encode seats message", "error", err)
		return
	}
	if err := s.stateHub.BroadcastJSON(msg); err != nil {
		s.logger.Warn("broadcast seats", "error", err)
	}
}

// PublishFault forwards a stage fault to state socket clients.
func (s *Server) PublishFault(f pipeline.Fault) {
	msg, err := protocol.NewErrorMessage(f.Stage, f.Error, f.Tick)
	if err != nil {
		return
	}
	if err := s.stateHub.BroadcastJSON(msg); err != nil {
		s.logger.Warn("broadcast fault", "error", err)
	}
}

// PublishFrame pushes the analyzed JPEG to frame viewers.
func (s *Server) PublishFrame(jpeg []byte, width, height int, id uint64) {
	if s.frameHub.ClientCount() == 0 {
		return
	}
	s.frameHub.BroadcastBinary(jpeg)
}

// StateHub exposes the state hub for diagnostics.
func (s *Server) StateHub() *hub.Hub { return s.stateHub }

// FrameHub exposes the frame hub for diagnostics.
func (s *Server) FrameHub() *hub.Hub { return s.frameHub }
