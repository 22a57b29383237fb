package tracking

import "github.com/teslashibe/go-rangefinder/pkg/geometry"

// State is the lifecycle position of a track.
type State int

const (
	// Unconfirmed is a track created this frame. Tracks leave it before Update returns.
	Unconfirmed State = iota
	// Confirmed tracks were matched recently.
	Confirmed
	// Stale tracks have missed more than StaleAfter frames but can still be matched.
	Stale
	// Evicted tracks exceeded MaxAge and are gone from the tracked set.
	Evicted
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case Unconfirmed:
		return "unconfirmed"
	case Confirmed:
		return "confirmed"
	case Stale:
		return "stale"
	case Evicted:
		return "evicted"
	default:
		return "unknown"
	}
}

// MarshalText lets State render as its name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Track is a read-only snapshot of one tracked object.
type Track struct {
	ID         uint64        `json:"id"`
	Label      string        `json:"label"`
	Box        geometry.Rect `json:"box"` // Frame space
	Confidence float64       `json:"confidence"`
	State      State         `json:"state"`
	Age        int           `json:"age"`        // Updates since last match
	Hits       int           `json:"hits"`       // Number of matched updates
	FirstSeen  uint64        `json:"first_seen"` // Frame sequence
	LastSeen   uint64        `json:"last_seen"`  // Frame sequence

	// Distance is the latest estimate, nil when none could be computed this frame.
	Distance *float64 `json:"distance,omitempty"`

	// Updated is true when a detection was matched to (or created) the track this frame.
	Updated bool `json:"updated"`
}

// HasDistance reports whether a distance estimate is present.
func (t Track) HasDistance() bool {
	return t.Distance != nil
}

// clone returns a copy that shares no pointers with t.
func (t Track) clone() Track {
	if t.Distance != nil {
		d := *t.Distance
		t.Distance = &d
	}
	return t
}
