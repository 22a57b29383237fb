package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-rangefinder/pkg/camera"
	"github.com/teslashibe/go-rangefinder/pkg/geometry"
	"github.com/teslashibe/go-rangefinder/pkg/pipeline"
	"github.com/teslashibe/go-rangefinder/pkg/tracking"
)

type fakePipeline struct {
	tracks []tracking.Track
	stats  pipeline.Stats
	resets int
	busy   bool
}

func (f *fakePipeline) Snapshot() []tracking.Track { return f.tracks }
func (f *fakePipeline) Stats() pipeline.Stats      { return f.stats }
func (f *fakePipeline) Reset() error {
	if f.busy {
		return pipeline.ErrBusy
	}
	f.resets++
	return nil
}

func newTestServer(t *testing.T) (*Server, *fakePipeline, *camera.Manager) {
	t.Helper()
	d := 250.0
	p := &fakePipeline{
		tracks: []tracking.Track{{
			ID:       4,
			Label:    "person",
			Box:      geometry.Rect{Left: 10, Top: 20, Right: 110, Bottom: 220},
			State:    tracking.Confirmed,
			Distance: &d,
		}},
		stats: pipeline.Stats{Frames: 10, Accepted: 6, Dropped: 4},
	}
	cam := camera.NewManager(camera.DefaultConfig())
	return NewServer(Config{Port: 0}, p, cam), p, cam
}

func do(t *testing.T, s *Server, method, path, body string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestTracksEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)

	status, body := do(t, s, http.MethodGet, "/api/tracks", "")
	require.Equal(t, http.StatusOK, status)

	var tracks []map[string]any
	require.NoError(t, json.Unmarshal(body, &tracks))
	require.Len(t, tracks, 1)
	require.Equal(t, "person", tracks[0]["label"])
	require.Equal(t, "confirmed", tracks[0]["state"])
	require.Equal(t, 250.0, tracks[0]["distance"])
}

func TestStatsEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)
	s.SpeechStats = func() any { return map[string]int{"spoken": 2} }

	status, body := do(t, s, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, status)

	var resp struct {
		Pipeline pipeline.Stats `json:"pipeline"`
		Speech   map[string]int `json:"speech"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	require.Equal(t, uint64(4), resp.Pipeline.Dropped)
	require.Equal(t, 2, resp.Speech["spoken"])
}

func TestConfigEndpoints(t *testing.T) {
	s, _, cam := newTestServer(t)

	var applied []camera.Config
	cam.OnConfigChange = func(cfg camera.Config) error {
		applied = append(applied, cfg)
		return nil
	}

	status, body := do(t, s, http.MethodGet, "/api/config", "")
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, string(body), `"width":640`)

	status, _ = do(t, s, http.MethodPut, "/api/config", `{"width":1280,"height":720}`)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, applied, 1)
	require.Equal(t, 1280, cam.GetConfig().Width)

	status, _ = do(t, s, http.MethodPut, "/api/config", `{"preset":"missing"}`)
	require.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, s, http.MethodPut, "/api/config", `not json`)
	require.Equal(t, http.StatusBadRequest, status)

	status, body = do(t, s, http.MethodGet, "/api/config/presets", "")
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, string(body), camera.PresetWebcam)
}

func TestResetEndpoint(t *testing.T) {
	s, p, _ := newTestServer(t)

	status, _ := do(t, s, http.MethodPost, "/api/reset", "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 1, p.resets)

	p.busy = true
	status, _ = do(t, s, http.MethodPost, "/api/reset", "")
	require.Equal(t, http.StatusConflict, status)
}

func TestAnnouncementHistory(t *testing.T) {
	s, _, _ := newTestServer(t)

	for i := 0; i < announcementHistory+5; i++ {
		s.PublishResult(pipeline.Result{
			Seq:           uint64(i),
			Announcements: []pipeline.Announcement{{TrackID: uint64(i), Name: "cup", Rounded: i, Unit: "centimeters"}},
		})
	}

	status, body := do(t, s, http.MethodGet, "/api/announcements", "")
	require.Equal(t, http.StatusOK, status)
	var got []pipeline.Announcement
	require.NoError(t, json.Unmarshal(body, &got))
	require.Len(t, got, announcementHistory)
	require.Equal(t, uint64(5), got[0].TrackID)
}

func TestWebsocketRequiresUpgrade(t *testing.T) {
	s, _, _ := newTestServer(t)
	status, _ := do(t, s, http.MethodGet, "/ws/tracks", "")
	require.Equal(t, http.StatusUpgradeRequired, status)
}

func TestFixedCameraConfig(t *testing.T) {
	s := NewServer(Config{}, &fakePipeline{}, nil)
	status, _ := do(t, s, http.MethodGet, "/api/config", "")
	require.Equal(t, http.StatusNotFound, status)
}
