package tire

import (
	"fmt"

	"github.com/pitwall/stint-tracker/internal/telemetry"
)

// Extract reads the four-wheel tire state out of a snapshot. It never
// fails on a well-formed frame: wear outside [0,1] is clamped and reported
// in the returned warnings, unknown compounds are preserved as-is.
func Extract(snap *telemetry.Snapshot) (State, []string) {
	state := make(State, len(Corners))
	var warnings []string

	for i, corner := range Corners {
		w := snap.Wheels[i]

		wear := w.Wear
		if wear < 0 || wear > 1 {
			warnings = append(warnings,
				fmt.Sprintf("%s wear %.3f outside [0,1], clamped", corner, wear))
			if wear < 0 {
				wear = 0
			} else {
				wear = 1
			}
		}

		state[corner] = CornerState{
			Wear:     wear,
			Flat:     w.Flat,
			Detached: w.Detached,
			Compound: CompoundFromRaw(w.Compound),
		}
	}

	return state, warnings
}
