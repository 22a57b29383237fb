package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-rangefinder/pkg/camera"
	"github.com/teslashibe/go-rangefinder/pkg/pipeline"
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleTracks returns the current track snapshot.
func (s *Server) handleTracks(c *fiber.Ctx) error {
	return c.JSON(s.pipeline.Snapshot())
}

func (s *Server) handleAnnouncements(c *fiber.Ctx) error {
	s.mu.RLock()
	out := make([]pipeline.Announcement, len(s.history))
	copy(out, s.history)
	s.mu.RUnlock()
	return c.JSON(out)
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	resp := fiber.Map{
		"pipeline": s.pipeline.Stats(),
		"clients": fiber.Map{
			"tracks":        s.tracksHub.ClientCount(),
			"announcements": s.announcementsHub.ClientCount(),
		},
	}
	if s.SpeechStats != nil {
		resp["speech"] = s.SpeechStats()
	}
	return c.JSON(resp)
}

func (s *Server) handleGetConfig(c *fiber.Ctx) error {
	if s.camera == nil {
		return fiber.NewError(fiber.StatusNotFound, "camera configuration is fixed")
	}
	return c.JSON(s.camera.GetConfigJSON())
}

// handleUpdateConfig applies a partial camera config, or a "preset" by name.
func (s *Server) handleUpdateConfig(c *fiber.Ctx) error {
	if s.camera == nil {
		return fiber.NewError(fiber.StatusNotFound, "camera configuration is fixed")
	}

	var params map[string]interface{}
	if err := c.BodyParser(&params); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}
	if err := s.camera.UpdateConfig(params); err != nil {
		s.logger.Warn("config update rejected", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	s.logger.Info("camera config updated", "params", params)
	return c.JSON(s.camera.GetConfigJSON())
}

func (s *Server) handlePresets(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"presets": camera.PresetNames(),
	})
}

func (s *Server) handleReset(c *fiber.Ctx) error {
	if err := s.pipeline.Reset(); err != nil {
		if errors.Is(err, pipeline.ErrBusy) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}
		return err
	}
	return c.JSON(fiber.Map{"status": "reset"})
}
