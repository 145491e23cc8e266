// Package stint assembles immutable stint records from pit-cycle output.
package stint

import (
	"fmt"
	"math"
	"time"

	"github.com/pitwall/stint-tracker/internal/telemetry"
)

// SessionMode selects how the session clock is derived.
type SessionMode int

const (
	Race SessionMode = iota
	Practice
)

// Clock derives the session-time value recorded on a completed stint.
//
// In race mode the game's session clock is authoritative: the value is the
// remaining session time from the snapshot. Practice sessions have no
// authoritative clock, so the value is the wall-clock time elapsed since
// the baseline (the previous stint's completion, or the moment tracking
// armed for the first stint).
type Clock struct {
	mode     SessionMode
	now      func() time.Time
	baseline time.Time
}

func NewClock(mode SessionMode, now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{mode: mode, now: now}
}

// SetBaseline moves the practice-mode reference point. Called when the
// gate arms and after every recorded stint; also used to resume an
// interrupted practice session from the last stored stint.
func (c *Clock) SetBaseline(t time.Time) {
	c.baseline = t
}

// AtCompletion returns the session-time value for a stint completing on
// this snapshot. The duration is never negative; ok is false when the
// inputs were inconsistent and the value had to be clamped to zero.
func (c *Clock) AtCompletion(snap *telemetry.Snapshot) (time.Duration, bool) {
	if c.mode == Race {
		remaining := math.Ceil(snap.EndET - snap.CurrentET)
		if remaining < 0 {
			return 0, false
		}
		return time.Duration(remaining) * time.Second, true
	}

	if c.baseline.IsZero() {
		return 0, false
	}
	elapsed := c.now().Sub(c.baseline)
	if elapsed < 0 {
		return 0, false
	}
	return elapsed, true
}

// FormatHMS renders a duration as zero-padded HH:MM:SS, the format the
// store and the UI share.
func FormatHMS(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total%3600/60, total%60)
}
