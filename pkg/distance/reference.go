package distance

import (
	"strconv"
	"strings"
)

// labelSeparator splits "Name #170" into a display name and a reference height.
const labelSeparator = " #"

// ParseLabel splits a legacy label of the form "Name #170" into its display name
// and numeric reference height. ok is false when there is no parsable suffix;
// name is then the whole label.
func ParseLabel(label string) (name string, height float64, ok bool) {
	parts := strings.Split(label, labelSeparator)
	if len(parts) < 2 {
		return label, 0, false
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil || h <= 0 {
		return parts[0], 0, false
	}
	return parts[0], float64(h), true
}

// DisplayName returns the label without any reference height suffix.
func DisplayName(label string) string {
	name, _, _ := ParseLabel(label)
	return name
}

// ReferenceHeights maps a display name to the real-world height of that kind of
// object, in the unit distances are reported in (centimeters by default).
type ReferenceHeights map[string]float64

// DefaultReferenceHeights returns typical heights in centimeters for common COCO classes.
func DefaultReferenceHeights() ReferenceHeights {
	return ReferenceHeights{
		"person":        170,
		"face":          22,
		"bicycle":       100,
		"car":           150,
		"motorcycle":    110,
		"bus":           300,
		"truck":         350,
		"traffic light": 90,
		"stop sign":     75,
		"bench":         85,
		"dog":           55,
		"cat":           25,
		"chair":         90,
		"couch":         85,
		"potted plant":  60,
		"dining table":  75,
		"tv":            60,
		"laptop":        25,
		"bottle":        25,
		"cup":           10,
		"refrigerator":  170,
		"toilet":        75,
		"bed":           60,
	}
}

// Lookup returns the reference height for a label. A parsable "#<height>" suffix
// on the label wins; otherwise the entry for the display name is used.
func (r ReferenceHeights) Lookup(label string) (name string, height float64, ok bool) {
	name, suffix, hasSuffix := ParseLabel(label)
	if hasSuffix {
		return name, suffix, true
	}
	if h, found := r[name]; found && h > 0 {
		return name, h, true
	}
	return name, 0, false
}
