package pit

import (
	"testing"

	"github.com/pitwall/stint-tracker/internal/telemetry"
)

func frame(raw int) *telemetry.Snapshot {
	return &telemetry.Snapshot{SessionActive: true, PitState: raw}
}

func TestDetectorFullCycle(t *testing.T) {
	d := NewDetector()

	steps := []struct {
		raw        int
		want       State
		transition bool
	}{
		{telemetry.RawOnTrack, NotInPit, false},
		{telemetry.RawEntering, Entering, true},
		{telemetry.RawPitting, InPit, true},
		{telemetry.RawPitting, InPit, false},
		{telemetry.RawLeaving, Leaving, true},
		{telemetry.RawOnTrack, NotInPit, true},
	}

	for i, s := range steps {
		got, transitioned := d.Observe(frame(s.raw))
		if got != s.want || transitioned != s.transition {
			t.Fatalf("step %d: Observe(%d) = (%v, %v), want (%v, %v)",
				i, s.raw, got, transitioned, s.want, s.transition)
		}
	}
}

// No observation may move the state more than one step forward, even when
// the raw value jumps across the cycle.
func TestDetectorSingleStepAdvance(t *testing.T) {
	d := NewDetector()

	// Raw telemetry jumps straight to leaving.
	got, _ := d.Observe(frame(telemetry.RawLeaving))
	if got != Entering {
		t.Fatalf("first step = %v, want %v", got, Entering)
	}
	got, _ = d.Observe(frame(telemetry.RawLeaving))
	if got != InPit {
		t.Fatalf("second step = %v, want %v", got, InPit)
	}
	got, transitioned := d.Observe(frame(telemetry.RawLeaving))
	if got != Leaving || !transitioned {
		t.Fatalf("third step = (%v, %v), want (%v, true)", got, transitioned, Leaving)
	}
	// Caught up: no further transition.
	got, transitioned = d.Observe(frame(telemetry.RawLeaving))
	if got != Leaving || transitioned {
		t.Fatalf("fourth step = (%v, %v), want (%v, false)", got, transitioned, Leaving)
	}
}

// Every observation either holds position, moves one step forward, or
// resets to NotInPit; Leaving is only ever reached from InPit.
func TestDetectorSingleStepProperty(t *testing.T) {
	raws := []int{
		telemetry.RawOnTrack, telemetry.RawLeaving, telemetry.RawEntering,
		telemetry.RawPitting, telemetry.RawOnTrack, telemetry.RawOnTrack,
		telemetry.RawLeaving, telemetry.RawLeaving, telemetry.RawPitting,
	}

	d := NewDetector()
	prev := d.Current()
	for i, raw := range raws {
		got, _ := d.Observe(frame(raw))
		if got != prev && got != prev.next() && got != NotInPit {
			t.Fatalf("step %d: %v -> %v skipped a state", i, prev, got)
		}
		if got == Leaving && prev != InPit {
			t.Fatalf("step %d: reached %v from %v", i, got, prev)
		}
		prev = got
	}
}

// Backing out of the cycle resets without passing through the remaining
// states, so an aborted entry can never look like a completed stop.
func TestDetectorAbortedEntryResets(t *testing.T) {
	d := NewDetector()
	d.Observe(frame(telemetry.RawEntering))

	got, transitioned := d.Observe(frame(telemetry.RawOnTrack))
	if got != NotInPit || !transitioned {
		t.Fatalf("Observe(on-track) = (%v, %v), want (%v, true)", got, transitioned, NotInPit)
	}
	for i := 0; i < 3; i++ {
		got, transitioned = d.Observe(frame(telemetry.RawOnTrack))
		if got != NotInPit || transitioned {
			t.Fatalf("poll %d after abort = (%v, %v), want (%v, false)", i, got, transitioned, NotInPit)
		}
	}
}

// A drive-through: the car reaches the pit box, then reads on-track again
// without ever reporting the leaving code.
func TestDetectorDriveThroughResets(t *testing.T) {
	d := NewDetector()
	d.Observe(frame(telemetry.RawEntering))
	d.Observe(frame(telemetry.RawPitting))

	got, transitioned := d.Observe(frame(telemetry.RawOnTrack))
	if got != NotInPit || !transitioned {
		t.Fatalf("Observe(on-track) = (%v, %v), want (%v, true)", got, transitioned, NotInPit)
	}
}

func TestDetectorResetsOnSessionEnd(t *testing.T) {
	d := NewDetector()
	d.Observe(frame(telemetry.RawEntering))
	d.Observe(frame(telemetry.RawPitting))

	inactive := &telemetry.Snapshot{SessionActive: false, PitState: telemetry.RawPitting}
	got, transitioned := d.Observe(inactive)
	if got != NotInPit || !transitioned {
		t.Fatalf("Observe(inactive) = (%v, %v), want (%v, true)", got, transitioned, NotInPit)
	}

	// A reset from NotInPit is not a transition.
	got, transitioned = d.Observe(inactive)
	if got != NotInPit || transitioned {
		t.Fatalf("second inactive observe = (%v, %v)", got, transitioned)
	}
}

func TestDetectorUnknownRawCode(t *testing.T) {
	d := NewDetector()
	got, transitioned := d.Observe(frame(99))
	if got != NotInPit || transitioned {
		t.Errorf("Observe(unknown) = (%v, %v), want (%v, false)", got, transitioned, NotInPit)
	}
}
