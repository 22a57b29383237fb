// Package tracking associates per-frame detections with persistent tracks.
//
// A Tracker is driven by one goroutine at a time (the pipeline worker). Readers on
// other goroutines call Snapshot and receive deep copies.
package tracking

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/teslashibe/go-rangefinder/pkg/detection"
	"github.com/teslashibe/go-rangefinder/pkg/geometry"
)

// Annotator computes a distance for a track that was matched or created this frame.
// Returning ok=false leaves the track without a distance.
type Annotator func(t Track) (distance float64, ok bool)

// Tracker maintains the live set of tracked objects
type Tracker struct {
	config Config
	logger *slog.Logger

	// Owned by the updating goroutine
	tracks  []*Track // Ascending ID
	nextID  uint64
	lastSeq uint64

	// Published copy for concurrent readers
	mu        sync.RWMutex
	published []Track
}

// New creates a tracker. The config must pass Validate.
func New(config Config, logger *slog.Logger) (*Tracker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		config: config,
		logger: logger.With("component", "tracking"),
		nextID: 1,
	}, nil
}

// Config returns the tracker configuration.
func (t *Tracker) Config() Config {
	return t.config
}

// Update associates dets with the live tracks for frame seq and returns the
// resulting snapshot of Confirmed and Stale tracks.
func (t *Tracker) Update(dets []detection.FrameDetection, seq uint64) []Track {
	return t.UpdateAnnotated(dets, seq, nil)
}

// UpdateAnnotated is Update with a distance annotator applied to every track
// matched or created this frame before the snapshot is published.
func (t *Tracker) UpdateAnnotated(dets []detection.FrameDetection, seq uint64, annotate Annotator) []Track {
	if seq <= t.lastSeq && t.lastSeq != 0 {
		t.logger.Warn("non-increasing frame sequence", "seq", seq, "last", t.lastSeq)
		seq = t.lastSeq + 1
	}
	t.lastSeq = seq

	for _, tr := range t.tracks {
		tr.Updated = false
	}

	assigned := t.associate(dets)

	matchedTrack := make(map[uint64]bool, len(assigned))
	for detIdx, tr := range assigned {
		if tr == nil {
			continue
		}
		matchedTrack[tr.ID] = true
		t.refresh(tr, dets[detIdx], seq)
	}

	// Age everything that was not matched and drop what is past the limit
	kept := t.tracks[:0]
	for _, tr := range t.tracks {
		if !matchedTrack[tr.ID] {
			tr.Age++
			switch {
			case tr.Age > t.config.MaxAge:
				tr.State = Evicted
				t.logger.Debug("track evicted", "id", tr.ID, "label", tr.Label, "age", tr.Age)
				continue
			case tr.Age > t.config.StaleAfter:
				tr.State = Stale
			}
		}
		kept = append(kept, tr)
	}
	clear(t.tracks[len(kept):])
	t.tracks = kept

	for detIdx, tr := range assigned {
		if tr == nil {
			t.tracks = append(t.tracks, t.spawn(dets[detIdx], seq))
		}
	}

	if annotate != nil {
		for _, tr := range t.tracks {
			if !tr.Updated {
				continue
			}
			if d, ok := annotate(*tr); ok {
				tr.Distance = &d
			} else {
				tr.Distance = nil
			}
		}
	}

	return t.publish()
}

// candidate is one allowed (detection, track) pairing.
type candidate struct {
	det   int
	track *Track
	iou   float64
}

// associate returns, per detection, the track it continues or nil.
// Pairs are taken greedily by IoU; ties go to the earlier detection, then the lower track ID.
func (t *Tracker) associate(dets []detection.FrameDetection) []*Track {
	var pairs []candidate
	for i, d := range dets {
		for _, tr := range t.tracks {
			if tr.Label != d.Label {
				continue
			}
			iou := geometry.IoU(d.Box, tr.Box)
			if iou >= t.config.MinIoU {
				pairs = append(pairs, candidate{det: i, track: tr, iou: iou})
			}
		}
	}

	sort.SliceStable(pairs, func(a, b int) bool {
		if pairs[a].iou != pairs[b].iou {
			return pairs[a].iou > pairs[b].iou
		}
		if pairs[a].det != pairs[b].det {
			return pairs[a].det < pairs[b].det
		}
		return pairs[a].track.ID < pairs[b].track.ID
	})

	assigned := make([]*Track, len(dets))
	taken := make(map[uint64]bool, len(t.tracks))
	for _, p := range pairs {
		if assigned[p.det] != nil || taken[p.track.ID] {
			continue
		}
		assigned[p.det] = p.track
		taken[p.track.ID] = true
	}
	return assigned
}

// refresh applies a matched detection to an existing track.
func (t *Tracker) refresh(tr *Track, d detection.FrameDetection, seq uint64) {
	alpha := t.config.ConfidenceSmoothing
	tr.Box = d.Box
	tr.Confidence = alpha*d.Confidence + (1-alpha)*tr.Confidence
	tr.LastSeen = seq
	tr.Age = 0
	tr.Hits++
	tr.State = Confirmed
	tr.Updated = true
}

// spawn creates a track for an unmatched detection. There is no multi-frame
// confirmation delay, so it is confirmed immediately.
func (t *Tracker) spawn(d detection.FrameDetection, seq uint64) *Track {
	tr := &Track{
		ID:         t.nextID,
		Label:      d.Label,
		Box:        d.Box,
		Confidence: d.Confidence,
		State:      Unconfirmed,
		FirstSeen:  seq,
		LastSeen:   seq,
		Hits:       1,
		Updated:    true,
	}
	t.nextID++
	tr.State = Confirmed

	t.logger.Debug("track created", "id", tr.ID, "label", tr.Label, "seq", seq)
	return tr
}

// publish copies the live set for readers and returns another copy to the caller.
func (t *Tracker) publish() []Track {
	snap := make([]Track, len(t.tracks))
	for i, tr := range t.tracks {
		snap[i] = tr.clone()
	}

	t.mu.Lock()
	t.published = snap
	t.mu.Unlock()

	return cloneAll(snap)
}

// Snapshot returns a deep copy of the tracks published by the last update.
// Safe to call from any goroutine.
func (t *Tracker) Snapshot() []Track {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return cloneAll(t.published)
}

// Len returns the number of published tracks.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.published)
}

// Reset drops all tracks. IDs keep counting up so they are never reused.
func (t *Tracker) Reset() {
	t.tracks = nil
	t.lastSeq = 0

	t.mu.Lock()
	t.published = nil
	t.mu.Unlock()
}

func cloneAll(tracks []Track) []Track {
	out := make([]Track, len(tracks))
	for i, tr := range tracks {
		out[i] = tr.clone()
	}
	return out
}
