// Package tire extracts per-corner tire state from telemetry frames and
// decides which corners were physically changed during a pit stop.
package tire

import "strings"

// Corner is one of the four wheel positions.
type Corner string

const (
	FL Corner = "fl"
	FR Corner = "fr"
	RL Corner = "rl"
	RR Corner = "rr"
)

// Corners lists all corners in wheel-index order (front-left, front-right,
// rear-left, rear-right), matching the telemetry wheel array.
var Corners = [4]Corner{FL, FR, RL, RR}

// Compound identifies the tire construction for a corner. Values the game
// is known to report get canonical casing; anything else is carried
// through verbatim so new game content is never rejected.
type Compound string

const (
	CompoundSoft         Compound = "Soft"
	CompoundMedium       Compound = "Medium"
	CompoundHard         Compound = "Hard"
	CompoundIntermediate Compound = "Intermediate"
	CompoundWet          Compound = "Wet"
	CompoundUnknown      Compound = "Unknown"
)

var knownCompounds = map[string]Compound{
	"soft":         CompoundSoft,
	"medium":       CompoundMedium,
	"hard":         CompoundHard,
	"intermediate": CompoundIntermediate,
	"wet":          CompoundWet,
}

// CompoundFromRaw normalizes a raw compound identifier. Empty means the
// game did not report one.
func CompoundFromRaw(raw string) Compound {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return CompoundUnknown
	}
	if c, ok := knownCompounds[strings.ToLower(raw)]; ok {
		return c
	}
	return Compound(raw)
}

// CornerState is the tire condition at one corner at a single instant.
type CornerState struct {
	Wear     float64  `json:"wear"`
	Flat     bool     `json:"flat"`
	Detached bool     `json:"detached"`
	Compound Compound `json:"compound"`
}

// State is the condition of all four corners captured at one instant,
// either pit-entry or pit-exit.
type State map[Corner]CornerState

// ChangeResult marks, per corner, whether a physical tire change happened.
type ChangeResult map[Corner]bool

// Any reports whether at least one corner was changed.
func (r ChangeResult) Any() bool {
	for _, changed := range r {
		if changed {
			return true
		}
	}
	return false
}
