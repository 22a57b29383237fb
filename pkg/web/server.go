// Package web serves the rangefinder dashboard API: live tracks, announcements,
// pipeline counters and camera configuration.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-rangefinder/pkg/camera"
	"github.com/teslashibe/go-rangefinder/pkg/hub"
	"github.com/teslashibe/go-rangefinder/pkg/pipeline"
	"github.com/teslashibe/go-rangefinder/pkg/tracking"
)

// Event names sent over the websockets.
const (
	EventTracks       = "tracks"
	EventAnnouncement = "announcement"
)

const announcementHistory = 50

// Pipeline is the part of *pipeline.Pipeline the dashboard reads.
type Pipeline interface {
	Snapshot() []tracking.Track
	Stats() pipeline.Stats
	Reset() error
}

// Config configures the dashboard server.
type Config struct {
	Port      int
	StaticDir string // Optional directory served at /
	Logger    *slog.Logger
}

// Server is the web dashboard server.
type Server struct {
	app    *fiber.App
	config Config
	logger *slog.Logger

	pipeline Pipeline
	camera   *camera.Manager

	tracksHub        *hub.Hub
	announcementsHub *hub.Hub

	// Recent announcements, oldest first
	mu      sync.RWMutex
	history []pipeline.Announcement

	// SpeechStats, when set, is included in /api/stats.
	SpeechStats func() any
}

// NewServer creates the dashboard. cam may be nil when configuration is fixed.
func NewServer(cfg Config, p Pipeline, cam *camera.Manager) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "web")

	s := &Server{
		config:           cfg,
		logger:           logger,
		pipeline:         p,
		camera:           cam,
		tracksHub:        hub.New(EventTracks, logger),
		announcementsHub: hub.New("announcements", logger),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Rangefinder Dashboard",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/tracks", s.handleTracks)
	api.Get("/announcements", s.handleAnnouncements)
	api.Get("/stats", s.handleStats)
	api.Get("/config", s.handleGetConfig)
	api.Put("/config", s.handleUpdateConfig)
	api.Get("/config/presets", s.handlePresets)
	api.Post("/reset", s.handleReset)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/tracks", websocket.New(s.tracksHub.Serve))
	app.Get("/ws/announcements", websocket.New(s.announcementsHub.Serve))

	s.app = app
	return s
}

// Start runs the hubs and serves until Shutdown or ctx is done.
func (s *Server) Start(ctx context.Context) error {
	go s.tracksHub.Run(ctx)
	go s.announcementsHub.Run(ctx)
	go func() {
		<-ctx.Done()
		_ = s.app.Shutdown()
	}()

	addr := fmt.Sprintf(":%d", s.config.Port)
	s.logger.Info("dashboard listening", "url", fmt.Sprintf("http://localhost%s", addr))
	return s.app.Listen(addr)
}

// PublishResult pushes a pass result to dashboard clients.
func (s *Server) PublishResult(r pipeline.Result) {
	if err := s.tracksHub.Publish(EventTracks, r); err != nil {
		s.logger.Warn("encode tracks", "error", err)
	}
	for _, a := range r.Announcements {
		s.PublishAnnouncement(a)
	}
}

// PublishAnnouncement records an announcement and pushes it to clients.
func (s *Server) PublishAnnouncement(a pipeline.Announcement) {
	s.mu.Lock()
	s.history = append(s.history, a)
	if len(s.history) > announcementHistory {
		s.history = s.history[len(s.history)-announcementHistory:]
	}
	s.mu.Unlock()

	if err := s.announcementsHub.Publish(EventAnnouncement, a); err != nil {
		s.logger.Warn("encode announcement", "error", err)
	}
}

// Consume publishes every result until the channel closes or ctx is done.
func (s *Server) Consume(ctx context.Context, results <-chan pipeline.Result) {
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-results:
			if !ok {
				return
			}
			s.PublishResult(r)
		}
	}
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Shutdown gracefully stops the web server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
