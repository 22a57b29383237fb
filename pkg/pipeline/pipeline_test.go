package pipeline

import (
	"context"
	"errors"
	"image"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-rangefinder/pkg/camera"
	"github.com/teslashibe/go-rangefinder/pkg/detection"
	"github.com/teslashibe/go-rangefinder/pkg/distance"
	"github.com/teslashibe/go-rangefinder/pkg/geometry"
	"github.com/teslashibe/go-rangefinder/pkg/tracking"
)

var testIntrinsics = distance.StaticIntrinsics{FocalLength: 4.0, SensorHeight: 3.6}

func person(top, bottom float64) detection.Detection {
	return detection.Detection{
		Label:      "person",
		Confidence: 0.9,
		Box:        geometry.Rect{Left: 100, Top: top, Right: 200, Bottom: bottom},
	}
}

func newFrame(w, h int) camera.Frame {
	return camera.NewFrame(image.NewRGBA(image.Rect(0, 0, w, h)), 0, nil)
}

func newPipeline(t *testing.T, cfg Config, det detection.Detector, intr distance.IntrinsicsSource) *Pipeline {
	t.Helper()
	p, err := New(cfg, det, camera.DrawCropper{}, intr)
	require.NoError(t, err)
	require.NoError(t, p.Configure(640, 480, 0))
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestNewValidates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InputSize = 0
	_, err := New(cfg, detection.NewMock(), camera.DrawCropper{}, testIntrinsics)
	require.ErrorIs(t, err, ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.Tracking.MinIoU = 2
	_, err = New(cfg, detection.NewMock(), camera.DrawCropper{}, testIntrinsics)
	require.ErrorIs(t, err, ErrInvalidConfig)
	require.ErrorIs(t, err, tracking.ErrInvalidConfig)

	_, err = New(DefaultConfig(), nil, camera.DrawCropper{}, testIntrinsics)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfigureRejectsDegenerateSizes(t *testing.T) {
	p, err := New(DefaultConfig(), detection.NewMock(), camera.DrawCropper{}, testIntrinsics)
	require.NoError(t, err)
	defer p.Close()

	_, ok := p.Mapping()
	require.False(t, ok)

	err = p.Configure(0, 480, 0)
	require.ErrorIs(t, err, geometry.ErrInvalidDimensions)
	var cfgErr *geometry.ConfigError
	require.ErrorAs(t, err, &cfgErr)

	require.ErrorIs(t, p.Configure(640, 480, 45), geometry.ErrInvalidRotation)

	_, err = p.Process(context.Background(), newFrame(640, 480))
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestProcessTracksAndEstimates(t *testing.T) {
	det := detection.NewMock(person(100, 304))
	p := newPipeline(t, DefaultConfig(), det, testIntrinsics)

	res, err := p.Process(context.Background(), newFrame(640, 480))
	require.NoError(t, err)
	require.Equal(t, 1, res.Detections)
	require.Len(t, res.Tracks, 1)

	tr := res.Tracks[0]
	require.Equal(t, "person", tr.Label)
	require.Equal(t, tracking.Confirmed, tr.State)
	require.True(t, tr.HasDistance())

	// The box is scaled back from the 416 crop into the 480 high frame.
	boxH := 204.0 * 480 / 416
	require.InDelta(t, boxH, tr.Box.Height(), 1e-6)
	want := 4.0 * 170 * 480 / (boxH * 3.6)
	require.InDelta(t, want, *tr.Distance, 1e-6)

	require.Len(t, res.Announcements, 1)
	a := res.Announcements[0]
	require.Equal(t, tr.ID, a.TrackID)
	require.Equal(t, distance.Round(want), a.Rounded)
	require.Equal(t, "person is located at 385 centimeters", a.Text())

	snap := p.Snapshot()
	require.Equal(t, res.Tracks, snap)
}

func TestLowConfidenceFiltered(t *testing.T) {
	weak := person(100, 300)
	weak.Confidence = 0.2
	p := newPipeline(t, DefaultConfig(), detection.NewMock(weak), testIntrinsics)

	res, err := p.Process(context.Background(), newFrame(640, 480))
	require.NoError(t, err)
	require.Zero(t, res.Detections)
	require.Empty(t, res.Tracks)
}

func TestAtMostOneInFlight(t *testing.T) {
	started := make(chan struct{})
	unblock := make(chan struct{})
	var inFlight, maxInFlight atomic.Int32

	det := &detection.Mock{
		DetectFunc: func(ctx context.Context, crop image.Image) ([]detection.Detection, error) {
			n := inFlight.Add(1)
			if n > maxInFlight.Load() {
				maxInFlight.Store(n)
			}
			defer inFlight.Add(-1)
			started <- struct{}{}
			<-unblock
			return []detection.Detection{person(100, 300)}, nil
		},
	}
	p := newPipeline(t, DefaultConfig(), det, testIntrinsics)
	ctx := context.Background()

	require.True(t, p.Submit(ctx, newFrame(640, 480)))
	<-started
	require.True(t, p.Busy())

	var released atomic.Int32
	second := camera.NewFrame(image.NewRGBA(image.Rect(0, 0, 640, 480)), 0, func() { released.Add(1) })
	require.False(t, p.Submit(ctx, second))
	require.Equal(t, int32(1), released.Load())

	_, err := p.Process(ctx, newFrame(640, 480))
	require.ErrorIs(t, err, ErrBusy)

	close(unblock)
	select {
	case res := <-p.Results():
		require.Len(t, res.Tracks, 1)
	case <-time.After(5 * time.Second):
		t.Fatal("pass never completed")
	}

	require.Eventually(t, func() bool { return !p.Busy() }, time.Second, 5*time.Millisecond)
	require.Equal(t, 1, det.Calls())
	require.Equal(t, int32(1), maxInFlight.Load())

	stats := p.Stats()
	require.Equal(t, uint64(2), stats.Frames)
	require.Equal(t, uint64(1), stats.Accepted)
	require.Equal(t, uint64(1), stats.Dropped)
	require.Equal(t, uint64(1), stats.Completed)
	require.Len(t, p.Snapshot(), 1)
}

func TestDroppedFramesDoNotAgeTracks(t *testing.T) {
	started := make(chan struct{}, 1)
	unblock := make(chan struct{})
	var calls atomic.Int32

	det := &detection.Mock{
		DetectFunc: func(ctx context.Context, crop image.Image) ([]detection.Detection, error) {
			switch calls.Add(1) {
			case 1:
				return []detection.Detection{person(100, 300)}, nil
			case 2:
				started <- struct{}{}
				<-unblock
				return []detection.Detection{person(100, 300)}, nil
			default:
				return nil, nil
			}
		},
	}
	p := newPipeline(t, DefaultConfig(), det, testIntrinsics)
	ctx := context.Background()

	_, err := p.Process(ctx, newFrame(640, 480))
	require.NoError(t, err)

	require.True(t, p.Submit(ctx, newFrame(640, 480)))
	<-started
	for i := 0; i < 11; i++ {
		require.False(t, p.Submit(ctx, newFrame(640, 480)))
	}
	close(unblock)
	require.Eventually(t, func() bool { return !p.Busy() }, 5*time.Second, 5*time.Millisecond)

	res, err := p.Process(ctx, newFrame(640, 480))
	require.NoError(t, err)
	require.Len(t, res.Tracks, 1, "one missed pass must not evict the track")
	require.Equal(t, 1, res.Tracks[0].Age)
	require.Equal(t, tracking.Confirmed, res.Tracks[0].State)
	require.Equal(t, uint64(11), p.Stats().Dropped)
}

func TestInferenceFailureLeavesTracks(t *testing.T) {
	fail := false
	det := &detection.Mock{
		DetectFunc: func(ctx context.Context, crop image.Image) ([]detection.Detection, error) {
			if fail {
				return nil, errors.New("runtime crashed")
			}
			return []detection.Detection{person(100, 300)}, nil
		},
	}
	p := newPipeline(t, DefaultConfig(), det, testIntrinsics)
	ctx := context.Background()

	_, err := p.Process(ctx, newFrame(640, 480))
	require.NoError(t, err)
	before := p.Snapshot()

	fail = true
	var released atomic.Int32
	frame := camera.NewFrame(image.NewRGBA(image.Rect(0, 0, 640, 480)), 0, func() { released.Add(1) })
	_, err = p.Process(ctx, frame)
	require.ErrorIs(t, err, ErrInferenceUnavailable)
	require.Equal(t, int32(1), released.Load())
	require.Equal(t, before, p.Snapshot())
	require.False(t, p.Busy())
	require.Equal(t, uint64(1), p.Stats().Failed)

	fail = false
	res, err := p.Process(ctx, newFrame(640, 480))
	require.NoError(t, err)
	require.Len(t, res.Tracks, 1)
	require.Equal(t, before[0].ID, res.Tracks[0].ID)
}

func TestAnnouncementDeduplication(t *testing.T) {
	box := person(100, 300)
	det := &detection.Mock{
		DetectFunc: func(ctx context.Context, crop image.Image) ([]detection.Detection, error) {
			return []detection.Detection{box}, nil
		},
	}
	p := newPipeline(t, DefaultConfig(), det, testIntrinsics)
	ctx := context.Background()

	res, err := p.Process(ctx, newFrame(640, 480))
	require.NoError(t, err)
	require.Len(t, res.Announcements, 1)

	res, err = p.Process(ctx, newFrame(640, 480))
	require.NoError(t, err)
	require.Empty(t, res.Announcements)

	// Half the height, twice the distance. Overlap stays above MinIoU.
	box = person(100, 200)
	res, err = p.Process(ctx, newFrame(640, 480))
	require.NoError(t, err)
	require.Len(t, res.Tracks, 1)
	require.Len(t, res.Announcements, 1)

	require.Len(t, p.Announcements(), 2)
	require.Equal(t, uint64(2), p.Stats().Announcements)
}

func TestAnnounceOnceWhenDeltaDisabled(t *testing.T) {
	box := person(100, 300)
	det := &detection.Mock{
		DetectFunc: func(ctx context.Context, crop image.Image) ([]detection.Detection, error) {
			return []detection.Detection{box}, nil
		},
	}
	cfg := DefaultConfig()
	cfg.ReannounceDelta = 0
	p := newPipeline(t, cfg, det, testIntrinsics)

	_, err := p.Process(context.Background(), newFrame(640, 480))
	require.NoError(t, err)
	box = person(100, 200)
	res, err := p.Process(context.Background(), newFrame(640, 480))
	require.NoError(t, err)
	require.Empty(t, res.Announcements)
}

func TestMissingIntrinsicsLeavesDistanceUnset(t *testing.T) {
	var lookups atomic.Int32
	intr := distance.IntrinsicsFunc(func(ctx context.Context) (distance.Intrinsics, error) {
		lookups.Add(1)
		return distance.Intrinsics{FocalLength: 4}, nil
	})

	empty := true
	det := &detection.Mock{
		DetectFunc: func(ctx context.Context, crop image.Image) ([]detection.Detection, error) {
			if empty {
				return nil, nil
			}
			return []detection.Detection{person(100, 300)}, nil
		},
	}
	p := newPipeline(t, DefaultConfig(), det, distance.NewLazyIntrinsics(intr, nil))

	_, err := p.Process(context.Background(), newFrame(640, 480))
	require.NoError(t, err)
	require.Zero(t, lookups.Load(), "intrinsics are only looked up on first need")

	empty = false
	res, err := p.Process(context.Background(), newFrame(640, 480))
	require.NoError(t, err)
	require.Len(t, res.Tracks, 1)
	require.False(t, res.Tracks[0].HasDistance())
	require.Empty(t, res.Announcements)
	require.Equal(t, int32(1), lookups.Load())
}

func TestPreviewSizeChangeReconfigures(t *testing.T) {
	p := newPipeline(t, DefaultConfig(), detection.NewMock(person(100, 300)), testIntrinsics)

	res, err := p.Process(context.Background(), newFrame(320, 240))
	require.NoError(t, err)

	m, ok := p.Mapping()
	require.True(t, ok)
	require.Equal(t, 320, m.Config.SrcWidth)
	require.Equal(t, 240, m.Config.SrcHeight)
	require.InDelta(t, 200.0*240/416, res.Tracks[0].Box.Height(), 1e-6)
}

func TestResetKeepsIDsMonotonic(t *testing.T) {
	p := newPipeline(t, DefaultConfig(), detection.NewMock(person(100, 300)), testIntrinsics)
	ctx := context.Background()

	res, err := p.Process(ctx, newFrame(640, 480))
	require.NoError(t, err)
	first := res.Tracks[0].ID

	require.NoError(t, p.Reset())
	require.Empty(t, p.Snapshot())

	res, err = p.Process(ctx, newFrame(640, 480))
	require.NoError(t, err)
	require.Greater(t, res.Tracks[0].ID, first)
	require.Len(t, res.Announcements, 1)
}

func TestCloseStopsIntake(t *testing.T) {
	det := detection.NewMock()
	p, err := New(DefaultConfig(), det, camera.DrawCropper{}, testIntrinsics)
	require.NoError(t, err)
	require.NoError(t, p.Configure(640, 480, 90))

	require.NoError(t, p.Close())
	require.True(t, det.Closed())
	require.NoError(t, p.Close())

	var released atomic.Int32
	frame := camera.NewFrame(image.NewRGBA(image.Rect(0, 0, 640, 480)), 0, func() { released.Add(1) })
	require.False(t, p.Submit(context.Background(), frame))
	require.Equal(t, int32(1), released.Load())

	_, err = p.Process(context.Background(), newFrame(640, 480))
	require.ErrorIs(t, err, ErrClosed)

	_, open := <-p.Results()
	require.False(t, open)
	_, open = <-p.Announcements()
	require.False(t, open)
}
