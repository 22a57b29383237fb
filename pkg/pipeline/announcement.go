package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-rangefinder/pkg/distance"
	"github.com/teslashibe/go-rangefinder/pkg/tracking"
)

// Announcement reports a newly computed distance for one track.
type Announcement struct {
	ID        uuid.UUID `json:"id"`
	TrackID   uint64    `json:"track_id"`
	Label     string    `json:"label"`
	Name      string    `json:"name"` // Label without any height suffix
	Distance  float64   `json:"distance"`
	Rounded   int       `json:"rounded"`
	Unit      string    `json:"unit"`
	Category  string    `json:"category"`
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
}

func newAnnouncement(t tracking.Track, rounded int, seq uint64) Announcement {
	return Announcement{
		ID:        uuid.New(),
		TrackID:   t.ID,
		Label:     t.Label,
		Name:      distance.DisplayName(t.Label),
		Distance:  *t.Distance,
		Rounded:   rounded,
		Unit:      distance.Unit,
		Category:  distance.Category(*t.Distance),
		Seq:       seq,
		Timestamp: time.Now(),
	}
}

// Text is the sentence spoken for the announcement.
func (a Announcement) Text() string {
	return fmt.Sprintf("%s is located at %d %s", a.Name, a.Rounded, a.Unit)
}
