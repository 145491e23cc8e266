package pit

import "github.com/pitwall/stint-tracker/internal/telemetry"

// Detector advances the pit lifecycle from consecutive snapshots. No single
// observation may skip a state: if a frame implies a state further ahead on
// the forward cycle, the detector moves one step per poll until it catches
// up, so every transition is individually observable. A frame implying a
// state behind the current one (an aborted pit entry, a drive-through)
// resets straight to NotInPit; the cycle is never completed artificially.
type Detector struct {
	current State
}

func NewDetector() *Detector {
	return &Detector{current: NotInPit}
}

// Current returns the state as of the last observation.
func (d *Detector) Current() State {
	return d.current
}

// Observe feeds one snapshot into the state machine and returns the
// resulting state plus whether it differs from the previous one.
//
// A frame for an inactive session resets straight to NotInPit; the caller
// must discard any half-built pit cycle when that happens.
func (d *Detector) Observe(snap *telemetry.Snapshot) (State, bool) {
	if !snap.SessionActive {
		reset := d.current != NotInPit
		d.current = NotInPit
		return d.current, reset
	}

	target := classify(snap.PitState)
	if target == d.current {
		return d.current, false
	}

	// The State constants are declared in forward-cycle order, so a
	// smaller target means the car backed out of the cycle.
	if target < d.current {
		d.current = NotInPit
		return d.current, true
	}

	d.current = d.current.next()
	return d.current, true
}
