// Package pipeline sequences one detection pass per accepted camera frame:
// crop, inference, filtering, tracking and distance estimation.
//
// At most one pass runs at a time. Frames that arrive while a pass is in flight
// are released back to their source and dropped, never queued.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-rangefinder/pkg/camera"
	"github.com/teslashibe/go-rangefinder/pkg/detection"
	"github.com/teslashibe/go-rangefinder/pkg/distance"
	"github.com/teslashibe/go-rangefinder/pkg/geometry"
	"github.com/teslashibe/go-rangefinder/pkg/tracking"
)

// Result is the outcome of one completed pass.
type Result struct {
	Session       uuid.UUID        `json:"session"`
	Seq           uint64           `json:"seq"`
	Detections    int              `json:"detections"` // After filtering
	Tracks        []tracking.Track `json:"tracks"`
	Announcements []Announcement   `json:"announcements,omitempty"`
	Latency       time.Duration    `json:"latency"`
	Timestamp     time.Time        `json:"timestamp"`
}

// Stats are cumulative pipeline counters.
type Stats struct {
	Session       uuid.UUID `json:"session"`
	Frames        uint64    `json:"frames"`   // Every frame offered
	Accepted      uint64    `json:"accepted"` // Frames that started a pass
	Dropped       uint64    `json:"dropped"`  // Frames discarded while busy or closed
	Completed     uint64    `json:"completed"`
	Failed        uint64    `json:"failed"`
	Announcements uint64    `json:"announcements"`
	Tracks        int       `json:"tracks"`
	LastLatency   string    `json:"last_latency"`
}

// state is everything derived from the preview configuration.
type state struct {
	mapping   geometry.Mapping
	estimator *distance.Estimator
}

// Pipeline owns the tracker and the in-flight flag for one camera feed.
type Pipeline struct {
	config     Config
	detector   detection.Detector
	cropper    camera.Cropper
	intrinsics distance.IntrinsicsSource
	references distance.ReferenceHeights
	logger     *slog.Logger
	session    uuid.UUID

	tracker *tracking.Tracker
	current atomic.Pointer[state]

	busy atomic.Bool
	seq  atomic.Uint64

	// Owned by the pass holding busy
	announced map[uint64]int

	results       chan Result
	announcements chan Announcement

	frames        atomic.Uint64
	accepted      atomic.Uint64
	dropped       atomic.Uint64
	completed     atomic.Uint64
	failed        atomic.Uint64
	announceCount atomic.Uint64
	lastLatency   atomic.Int64

	lifecycle sync.RWMutex
	closed    bool
	wg        sync.WaitGroup
}

// New creates a pipeline. Configure must be called before frames are accepted.
func New(cfg Config, detector detection.Detector, cropper camera.Cropper, intrinsics distance.IntrinsicsSource, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if detector == nil || cropper == nil || intrinsics == nil {
		return nil, fmt.Errorf("%w: detector, cropper and intrinsics are required", ErrInvalidConfig)
	}

	p := &Pipeline{
		config:        cfg,
		detector:      detector,
		cropper:       cropper,
		intrinsics:    intrinsics,
		references:    distance.DefaultReferenceHeights(),
		session:       uuid.New(),
		announced:     make(map[uint64]int),
		results:       make(chan Result, cfg.ResultBuffer),
		announcements: make(chan Announcement, cfg.AnnouncementBuffer),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.logger = p.logger.With("component", "pipeline", "session", p.session.String())

	tracker, err := tracking.New(cfg.Tracking, p.logger)
	if err != nil {
		return nil, err
	}
	p.tracker = tracker
	return p, nil
}

// Configure rebuilds the frame↔crop mapping for a preview size and rotation.
// It is cheap enough to call whenever either changes.
func (p *Pipeline) Configure(width, height, rotation int) error {
	m, err := geometry.NewMapping(geometry.MappingConfig{
		SrcWidth:       width,
		SrcHeight:      height,
		DstWidth:       p.config.InputSize,
		DstHeight:      p.config.InputSize,
		Rotation:       rotation,
		MaintainAspect: p.config.MaintainAspect,
	})
	if err != nil {
		return err
	}
	p.current.Store(&state{
		mapping:   m,
		estimator: distance.NewEstimator(p.references, height),
	})
	p.logger.Info("pipeline configured",
		"width", width,
		"height", height,
		"rotation", m.Config.Rotation,
		"input_size", p.config.InputSize,
	)
	return nil
}

// Mapping returns the current transforms, or false before Configure.
func (p *Pipeline) Mapping() (geometry.Mapping, bool) {
	st := p.current.Load()
	if st == nil {
		return geometry.Mapping{}, false
	}
	return st.mapping, true
}

// Submit offers a frame without blocking on inference. It reports whether a
// pass was started; a rejected frame has already been released.
func (p *Pipeline) Submit(ctx context.Context, frame camera.Frame) bool {
	seq := p.seq.Add(1)
	p.frames.Add(1)

	if !p.begin() {
		frame.Release()
		p.dropped.Add(1)
		return false
	}
	if !p.busy.CompareAndSwap(false, true) {
		p.wg.Done()
		frame.Release()
		p.dropped.Add(1)
		p.logger.Debug("frame dropped, pass in flight", "seq", seq)
		return false
	}
	p.accepted.Add(1)

	// A pass is never cancelled once started.
	passCtx := context.WithoutCancel(ctx)
	go func() {
		defer p.wg.Done()
		defer p.busy.Store(false)
		if _, err := p.pass(passCtx, frame, seq); err != nil {
			p.logger.Warn("pass failed", "seq", seq, "error", err)
		}
	}()
	return true
}

// Process runs a pass synchronously. When another pass is in flight it returns
// ErrBusy (ErrClosed after Close) and leaves the frame to the caller.
func (p *Pipeline) Process(ctx context.Context, frame camera.Frame) (Result, error) {
	if !p.begin() {
		return Result{}, ErrClosed
	}
	defer p.wg.Done()

	if !p.busy.CompareAndSwap(false, true) {
		return Result{}, ErrBusy
	}
	defer p.busy.Store(false)

	seq := p.seq.Add(1)
	p.frames.Add(1)
	p.accepted.Add(1)
	return p.pass(ctx, frame, seq)
}

// begin registers an operation unless the pipeline is closed.
func (p *Pipeline) begin() bool {
	p.lifecycle.RLock()
	defer p.lifecycle.RUnlock()
	if p.closed {
		return false
	}
	p.wg.Add(1)
	return true
}

func (p *Pipeline) pass(ctx context.Context, frame camera.Frame, seq uint64) (Result, error) {
	start := time.Now()

	st, err := p.stateFor(frame)
	if err != nil {
		frame.Release()
		p.failed.Add(1)
		return Result{}, err
	}

	size := p.config.InputSize
	crop, err := p.cropper.Crop(ctx, frame.Image, st.mapping.FrameToCrop.Affine(), size, size)
	frame.Release()
	if err != nil {
		p.failed.Add(1)
		return Result{}, fmt.Errorf("crop frame %d: %w", seq, err)
	}

	raw, err := p.detector.Detect(ctx, crop)
	if err != nil {
		p.failed.Add(1)
		return Result{}, fmt.Errorf("frame %d: %w: %w", seq, ErrInferenceUnavailable, err)
	}

	dets := detection.Filter(raw, p.config.MinConfidence, st.mapping.CropToFrame)
	tracks := p.tracker.UpdateAnnotated(dets, seq, p.annotator(ctx, st.estimator))
	anns := p.announce(tracks, seq)

	latency := time.Since(start)
	p.lastLatency.Store(int64(latency))
	p.completed.Add(1)

	result := Result{
		Session:       p.session,
		Seq:           seq,
		Detections:    len(dets),
		Tracks:        tracks,
		Announcements: anns,
		Latency:       latency,
		Timestamp:     time.Now(),
	}
	select {
	case p.results <- result:
	default:
	}

	p.logger.Debug("pass complete",
		"seq", seq,
		"raw", len(raw),
		"detections", len(dets),
		"tracks", len(tracks),
		"latency", latency,
	)
	return result, nil
}

// stateFor returns the mapping for frame, rebuilding it when the frame size
// no longer matches the configured preview.
func (p *Pipeline) stateFor(frame camera.Frame) (*state, error) {
	st := p.current.Load()
	if st == nil {
		return nil, ErrNotConfigured
	}
	w, h := frame.Width(), frame.Height()
	if w == st.mapping.Config.SrcWidth && h == st.mapping.Config.SrcHeight {
		return st, nil
	}
	p.logger.Info("preview size changed", "width", w, "height", h)
	if err := p.Configure(w, h, st.mapping.Config.Rotation); err != nil {
		return nil, err
	}
	return p.current.Load(), nil
}

// annotator estimates distances for tracks refreshed this pass. Intrinsics are
// requested on first need only.
func (p *Pipeline) annotator(ctx context.Context, est *distance.Estimator) tracking.Annotator {
	var (
		intr    distance.Intrinsics
		intrErr error
		loaded  bool
	)
	return func(t tracking.Track) (float64, bool) {
		if !loaded {
			intr, intrErr = p.intrinsics.Intrinsics(ctx)
			loaded = true
			if intrErr != nil {
				p.logger.Warn("camera intrinsics unavailable", "error", intrErr)
			}
		}
		if intrErr != nil {
			return 0, false
		}

		e, err := est.Estimate(t.Label, t.Box.Height(), intr)
		if err != nil {
			p.logger.Debug("no distance", "track", t.ID, "label", t.Label, "error", err)
			return 0, false
		}
		return e.Distance, true
	}
}

// announce emits an Announcement for every track whose distance is new, or
// has moved by more than ReannounceDelta since it was last announced.
func (p *Pipeline) announce(tracks []tracking.Track, seq uint64) []Announcement {
	live := make(map[uint64]bool, len(tracks))
	var out []Announcement

	for _, t := range tracks {
		live[t.ID] = true
		if !t.Updated || !t.HasDistance() {
			continue
		}
		rounded := distance.Round(*t.Distance)
		prev, seen := p.announced[t.ID]
		if seen && !p.changed(prev, rounded) {
			continue
		}
		p.announced[t.ID] = rounded

		a := newAnnouncement(t, rounded, seq)
		out = append(out, a)
		p.announceCount.Add(1)
		select {
		case p.announcements <- a:
		default:
			p.logger.Debug("announcement dropped, consumer behind", "track", t.ID)
		}
	}

	for id := range p.announced {
		if !live[id] {
			delete(p.announced, id)
		}
	}
	return out
}

func (p *Pipeline) changed(prev, now int) bool {
	if p.config.ReannounceDelta <= 0 {
		return false
	}
	base := math.Max(math.Abs(float64(prev)), 1)
	return math.Abs(float64(now-prev))/base > p.config.ReannounceDelta
}

// Snapshot returns a copy of the tracks published by the last pass.
func (p *Pipeline) Snapshot() []tracking.Track {
	return p.tracker.Snapshot()
}

// Results delivers every completed pass. Closed by Close.
func (p *Pipeline) Results() <-chan Result {
	return p.results
}

// Announcements delivers distance announcements. Closed by Close.
func (p *Pipeline) Announcements() <-chan Announcement {
	return p.announcements
}

// Busy reports whether a pass is in flight.
func (p *Pipeline) Busy() bool {
	return p.busy.Load()
}

// Session identifies this pipeline instance.
func (p *Pipeline) Session() uuid.UUID {
	return p.session
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config {
	return p.config
}

// Stats returns the current counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Session:       p.session,
		Frames:        p.frames.Load(),
		Accepted:      p.accepted.Load(),
		Dropped:       p.dropped.Load(),
		Completed:     p.completed.Load(),
		Failed:        p.failed.Load(),
		Announcements: p.announceCount.Load(),
		Tracks:        p.tracker.Len(),
		LastLatency:   time.Duration(p.lastLatency.Load()).String(),
	}
}

// Reset forgets all tracks and announcement history. It fails with ErrBusy
// while a pass is in flight.
func (p *Pipeline) Reset() error {
	if !p.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer p.busy.Store(false)

	p.tracker.Reset()
	clear(p.announced)
	p.logger.Info("pipeline reset")
	return nil
}

// Close waits for the in-flight pass, closes the output channels and the detector.
func (p *Pipeline) Close() error {
	p.lifecycle.Lock()
	if p.closed {
		p.lifecycle.Unlock()
		return nil
	}
	p.closed = true
	p.lifecycle.Unlock()

	p.wg.Wait()
	close(p.results)
	close(p.announcements)
	p.logger.Info("pipeline closed", "frames", p.frames.Load(), "completed", p.completed.Load())
	return p.detector.Close()
}
