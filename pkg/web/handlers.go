package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/feltvision/tablesight/pkg/hub"
	"github.com/feltvision/tablesight/pkg/protocol"
)

// handleHealth reports liveness and loop progress.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":        "ok",
		"ticks":         s.runner.Ticks(),
		"paused":        s.runner.IsPaused(),
		"state_clients": s.stateHub.ClientCount(),
		"frame_clients": s.frameHub.ClientCount(),
	})
}

// handleState returns the last published snapshot.
func (s *Server) handleState(c *fiber.Ctx) error {
	st := s.runner.State()
	if st == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "no snapshot published yet",
		})
	}
	return c.JSON(st)
}

// handleSeats returns seat registry diagnostics from the last tick.
func (s *Server) handleSeats(c *fiber.Ctx) error {
	return c.JSON(s.runner.Seats())
}

// handleErrors returns the recent fault ring.
func (s *Server) handleErrors(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"total":  s.runner.FaultTotal(),
		"recent": s.runner.Faults(),
	})
}

// handleGetConfig returns the current capture configuration.
func (s *Server) handleGetConfig(c *fiber.Ctx) error {
	if s.manager == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "capture manager not configured",
		})
	}
	return c.JSON(s.manager.GetConfigJSON())
}

// handlePostConfig applies a partial capture configuration update.
func (s *Server) handlePostConfig(c *fiber.Ctx) error {
	if s.manager == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "capture manager not configured",
		})
	}

	var params map[string]interface{}
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid config body",
		})
	}
	if err := s.manager.UpdateConfig(params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(s.manager.GetConfigJSON())
}

// handleStateWS serves the live state socket. Inbound messages carry
// config updates and control commands.
func (s *Server) handleStateWS(c *websocket.Conn) {
	client := hub.NewClient(s.stateHub, c)
	client.OnMessage = s.handleInbound
	client.Run()
}

// handleFramesWS serves the analyzed-frame feed.
func (s *Server) handleFramesWS(c *websocket.Conn) {
	hub.NewClient(s.frameHub, c).Run()
}

// handleInbound processes client messages on the state socket.
func (s *Server) handleInbound(data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		s.logger.Warn("unparseable ws message", "error", err)
		return
	}

	switch msg.Type {
	case protocol.TypeConfig:
		update, err := msg.GetConfigUpdate()
		if err != nil {
			s.logger.Warn("bad config message", "error", err)
			return
		}
		if s.manager == nil || len(update.Capture) == 0 {
			return
		}
		if err := s.manager.UpdateConfig(update.Capture); err != nil {
			s.logger.Warn("config update rejected", "error", err)
		}

	case protocol.TypeCommand:
		cmd, err := msg.GetCommandData()
		if err != nil {
			s.logger.Warn("bad command message", "error", err)
			return
		}
		switch cmd.Name {
		case protocol.CommandReset:
			s.runner.RequestReset()
		case protocol.CommandPause:
			s.runner.SetPaused(true)
		case protocol.CommandResume:
			s.runner.SetPaused(false)
		default:
			s.logger.Warn("unknown command", "command", cmd.Name)
		}

	default:
		// Remaining types only flow core → client.
	}
}
