package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/teslashibe/go-rangefinder/internal/log"
	"github.com/teslashibe/go-rangefinder/pkg/camera"
	"github.com/teslashibe/go-rangefinder/pkg/camera/cv"
	"github.com/teslashibe/go-rangefinder/pkg/detection"
	"github.com/teslashibe/go-rangefinder/pkg/detection/yolo"
	"github.com/teslashibe/go-rangefinder/pkg/detection/yunet"
	"github.com/teslashibe/go-rangefinder/pkg/distance"
	"github.com/teslashibe/go-rangefinder/pkg/pipeline"
	"github.com/teslashibe/go-rangefinder/pkg/speech"
	"github.com/teslashibe/go-rangefinder/pkg/tts"
	"github.com/teslashibe/go-rangefinder/pkg/web"
)

// maxReadErrors is how many consecutive failed reads end a run.
const maxReadErrors = 10

// App is the rangefinder orchestrator.
// It owns every component and their lifecycle.
type App struct {
	config Config
	logger *slog.Logger

	// Camera
	camera     *camera.Manager
	source     camera.Source
	capture    *cv.Capture // nil for websocket feeds
	intrinsics *distance.LazyIntrinsics

	pipeline *pipeline.Pipeline

	// Speech
	tts     tts.Provider
	speaker *speech.Speaker

	// Web dashboard
	web *web.Server
}

// New creates an application with the given configuration.
func New(cfg Config) (*App, error) {
	// Apply environment overrides
	cfg.LoadEnvConfig()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &App{
		config: cfg,
		logger: log.Component("app"),
	}, nil
}

// Config returns the validated configuration.
func (a *App) Config() Config {
	return a.config
}

// Init opens the source, loads the model and builds the pipeline.
// Call this after New() and before Run().
func (a *App) Init(ctx context.Context) error {
	a.camera = camera.NewManager(a.config.Camera)
	a.intrinsics = distance.NewLazyIntrinsics(a.camera, a.logger)

	if err := a.openSource(ctx); err != nil {
		return fmt.Errorf("source: %w", err)
	}

	if err := a.initPipeline(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	a.camera.OnConfigChange = func(cfg camera.Config) error {
		if a.capture != nil {
			a.capture.SetSize(cfg.Width, cfg.Height)
		}
		a.intrinsics.Reset()
		return a.pipeline.Configure(cfg.Width, cfg.Height, cfg.Rotation())
	}

	if err := a.initSpeech(); err != nil {
		return fmt.Errorf("speech: %w", err)
	}

	if a.config.Port > 0 {
		a.web = web.NewServer(web.Config{
			Port:      a.config.Port,
			StaticDir: a.config.StaticDir,
			Logger:    a.logger,
		}, a.pipeline, a.camera)
		if a.speaker != nil {
			a.web.SpeechStats = func() any { return a.speaker.Stats() }
		}
	}

	a.logger.Info("initialized",
		"source", a.config.Source,
		"detector", a.config.Detector,
		"model", a.config.ModelPath,
		"preset", a.config.Preset,
		"session", a.pipeline.Session(),
		"tts", a.config.TTSMode,
		"port", a.config.Port,
	)
	return nil
}

func (a *App) openSource(ctx context.Context) error {
	if strings.HasPrefix(a.config.Source, "ws://") || strings.HasPrefix(a.config.Source, "wss://") {
		src, err := camera.DialWS(ctx, a.config.Source, a.logger)
		if err != nil {
			return err
		}
		a.source = src
		return nil
	}

	capture, err := cv.Open(a.config.Source, a.logger)
	if err != nil {
		return err
	}
	if capture.FrameCount() == 0 {
		capture.SetSize(a.config.Camera.Width, a.config.Camera.Height)
	}
	a.capture = capture
	a.source = capture
	return nil
}

func (a *App) initPipeline() error {
	p, err := NewPipeline(a.config, a.intrinsics, a.logger)
	if err != nil {
		return err
	}
	a.pipeline = p
	return nil
}

// NewPipeline loads the model and returns a pipeline configured for cfg.Camera.
func NewPipeline(cfg Config, intrinsics distance.IntrinsicsSource, logger *slog.Logger) (*pipeline.Pipeline, error) {
	detector, err := newDetector(cfg, logger)
	if err != nil {
		return nil, err
	}

	p, err := pipeline.New(cfg.Pipeline, detector, newCropper(cfg.Cropper), intrinsics,
		pipeline.WithLogger(logger),
	)
	if err != nil {
		_ = detector.Close()
		return nil, err
	}

	cam := cfg.Camera
	if err := p.Configure(cam.Width, cam.Height, cam.Rotation()); err != nil {
		_ = p.Close()
		return nil, err
	}
	return p, nil
}

func newDetector(cfg Config, logger *slog.Logger) (detection.Detector, error) {
	if cfg.Detector == DetectorYuNet {
		fc := yunet.DefaultConfig()
		fc.ModelPath = cfg.ModelPath
		fc.InputSize = cfg.Pipeline.InputSize
		fc.ConfidenceThresh = cfg.Pipeline.MinConfidence
		fc.Logger = logger
		return yunet.New(fc)
	}

	yc := yolo.DefaultConfig()
	yc.ModelPath = cfg.ModelPath
	yc.LabelsPath = cfg.LabelsPath
	yc.InputSize = cfg.Pipeline.InputSize
	yc.ConfidenceThresh = cfg.Pipeline.MinConfidence
	yc.Logger = logger
	return yolo.New(yc)
}

func newCropper(name string) camera.Cropper {
	if name == CropperDraw {
		return camera.DrawCropper{}
	}
	return cv.WarpCropper{}
}

func (a *App) initSpeech() error {
	provider, err := NewProvider(a.config, a.logger)
	if err != nil {
		return err
	}
	if provider == nil {
		return nil
	}
	a.tts = provider

	var sink speech.Sink
	switch a.config.Player {
	case "":
	case "ffplay":
		sink = speech.NewFFPlay()
	default:
		sink = &speech.Player{Command: a.config.Player}
	}

	a.speaker = speech.NewSpeaker(speech.DefaultConfig(), provider, sink, a.logger)
	return nil
}

// NewProvider builds the speech provider for cfg.TTSMode.
// It returns nil when speech is disabled.
func NewProvider(cfg Config, logger *slog.Logger) (tts.Provider, error) {
	opts := []tts.Option{tts.WithLogger(logger)}
	if cfg.Voice != "" {
		opts = append(opts, tts.WithVoice(cfg.Voice))
	}
	if cfg.TTSModel != "" {
		opts = append(opts, tts.WithModel(cfg.TTSModel))
	}
	if cfg.TTSFormat != "" {
		format, err := tts.ParseEncoding(cfg.TTSFormat)
		if err != nil {
			return nil, err
		}
		opts = append(opts, tts.WithOutputFormat(format))
	}

	switch cfg.TTSMode {
	case TTSNone:
		return nil, nil
	case TTSOpenAI:
		return tts.NewOpenAI(append(opts, tts.WithAPIKey(cfg.OpenAIKey))...)
	case TTSEspeak:
		return tts.NewEspeak(tts.WithLogger(logger))
	}

	var providers []tts.Provider
	if cfg.OpenAIKey != "" {
		openai, err := tts.NewOpenAI(append(opts, tts.WithAPIKey(cfg.OpenAIKey))...)
		if err != nil {
			return nil, err
		}
		providers = append(providers, openai)
	}
	if espeak, err := tts.NewEspeak(tts.WithLogger(logger)); err == nil {
		providers = append(providers, espeak)
	} else {
		logger.Warn("espeak-ng unavailable", "error", err)
	}
	if len(providers) == 0 {
		logger.Warn("no speech provider available, announcements will only be logged")
		return nil, nil
	}
	return tts.NewChain(logger, providers...)
}

// Run feeds frames to the pipeline until ctx is cancelled or the source ends.
func (a *App) Run(ctx context.Context) error {
	if a.web != nil {
		go func() {
			if err := a.web.Start(ctx); err != nil {
				a.logger.Error("dashboard stopped", "error", err)
			}
		}()
		go a.web.Consume(ctx, a.pipeline.Results())
	}

	if a.speaker != nil {
		go func() {
			_ = a.speaker.Run(ctx, a.pipeline.Announcements())
		}()
	} else {
		go a.logAnnouncements(ctx)
	}

	// Files are read as fast as they decode, so pace them at the configured rate.
	var pace <-chan time.Time
	if a.capture != nil && a.capture.FrameCount() > 0 {
		ticker := time.NewTicker(time.Second / time.Duration(a.config.Camera.Framerate))
		defer ticker.Stop()
		pace = ticker.C
	}

	a.logger.Info("running", "paced", pace != nil)

	failures := 0
	for {
		if pace != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-pace:
			}
		}

		frame, err := a.source.Read(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return nil
			case errors.Is(err, camera.ErrSourceClosed):
				a.logger.Info("source ended", "stats", a.pipeline.Stats())
				return nil
			}
			failures++
			a.logger.Warn("read frame", "error", err, "consecutive", failures)
			if failures >= maxReadErrors {
				return fmt.Errorf("source failing: %w", err)
			}
			continue
		}
		failures = 0

		a.pipeline.Submit(ctx, frame)
	}
}

func (a *App) logAnnouncements(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ann, ok := <-a.pipeline.Announcements():
			if !ok {
				return
			}
			a.logger.Info("announcement", "text", ann.Text(), "track", ann.TrackID)
		}
	}
}

// Shutdown stops every component. It is safe after a failed Init.
func (a *App) Shutdown() {
	if a.source != nil {
		if err := a.source.Close(); err != nil {
			a.logger.Warn("close source", "error", err)
		}
	}
	if a.pipeline != nil {
		if err := a.pipeline.Close(); err != nil && !errors.Is(err, pipeline.ErrClosed) {
			a.logger.Warn("close pipeline", "error", err)
		}
	}
	if a.tts != nil {
		_ = a.tts.Close()
	}
	if a.web != nil {
		if err := a.web.Shutdown(); err != nil {
			a.logger.Warn("stop dashboard", "error", err)
		}
	}
	a.logger.Info("stopped")
}
