// Package pit tracks the pit-lane lifecycle of the player's car from raw
// telemetry frames.
package pit

import (
	"log"

	"github.com/pitwall/stint-tracker/internal/telemetry"
)

// State is the pit-lane lifecycle position. The only legal forward cycle is
// NotInPit → Entering → InPit → Leaving → NotInPit.
type State int

const (
	NotInPit State = iota
	Entering
	InPit
	Leaving
)

func (s State) String() string {
	switch s {
	case NotInPit:
		return "not_in_pit"
	case Entering:
		return "entering"
	case InPit:
		return "in_pit"
	case Leaving:
		return "leaving"
	}
	return "unknown"
}

// next returns the state one step forward around the cycle.
func (s State) next() State {
	switch s {
	case NotInPit:
		return Entering
	case Entering:
		return InPit
	case InPit:
		return Leaving
	default:
		return NotInPit
	}
}

// classify maps the game's raw pit state code onto the lifecycle. Unknown
// codes are treated as on-track, matching how the game reports cars that
// joined but have not started.
func classify(raw int) State {
	switch raw {
	case telemetry.RawOnTrack:
		return NotInPit
	case telemetry.RawEntering:
		return Entering
	case telemetry.RawPitting:
		return InPit
	case telemetry.RawLeaving:
		return Leaving
	default:
		log.Printf("unknown pit state code %d, treating as on-track", raw)
		return NotInPit
	}
}
