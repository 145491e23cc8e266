package tire

import (
	"reflect"
	"testing"

	"github.com/pitwall/stint-tracker/internal/telemetry"
)

func snapshotWithWheels(wheels [4]telemetry.WheelTelemetry) *telemetry.Snapshot {
	return &telemetry.Snapshot{SessionActive: true, Wheels: wheels}
}

func TestExtract(t *testing.T) {
	snap := snapshotWithWheels([4]telemetry.WheelTelemetry{
		{Wear: 0.82, Compound: "medium"},
		{Wear: 0.80, Compound: "Medium"},
		{Wear: 0.75, Compound: "Medium", Flat: true},
		{Wear: 0.77, Compound: "Medium", Detached: true},
	})

	state, warnings := Extract(snap)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	if state[FL].Wear != 0.82 || state[FL].Compound != CompoundMedium {
		t.Errorf("fl = %+v", state[FL])
	}
	if !state[RL].Flat {
		t.Error("rl should be flat")
	}
	if !state[RR].Detached {
		t.Error("rr should be detached")
	}
}

func TestExtractClampsWear(t *testing.T) {
	snap := snapshotWithWheels([4]telemetry.WheelTelemetry{
		{Wear: -0.2, Compound: "Medium"},
		{Wear: 1.4, Compound: "Medium"},
		{Wear: 0.5, Compound: "Medium"},
		{Wear: 1.0, Compound: "Medium"},
	})

	state, warnings := Extract(snap)
	if state[FL].Wear != 0 {
		t.Errorf("fl wear = %v, want 0", state[FL].Wear)
	}
	if state[FR].Wear != 1 {
		t.Errorf("fr wear = %v, want 1", state[FR].Wear)
	}
	if state[RR].Wear != 1 {
		t.Errorf("rr wear = %v, want 1 (boundary is valid)", state[RR].Wear)
	}
	if len(warnings) != 2 {
		t.Errorf("warnings = %v, want exactly 2", warnings)
	}
}

func TestExtractPreservesUnknownCompound(t *testing.T) {
	snap := snapshotWithWheels([4]telemetry.WheelTelemetry{
		{Wear: 0.5, Compound: "Hypersoft-X"},
		{Wear: 0.5, Compound: ""},
		{Wear: 0.5, Compound: "WET"},
		{Wear: 0.5, Compound: " hard "},
	})

	state, _ := Extract(snap)
	if state[FL].Compound != Compound("Hypersoft-X") {
		t.Errorf("fl compound = %q, want raw value preserved", state[FL].Compound)
	}
	if state[FR].Compound != CompoundUnknown {
		t.Errorf("fr compound = %q, want %q", state[FR].Compound, CompoundUnknown)
	}
	if state[RL].Compound != CompoundWet {
		t.Errorf("rl compound = %q, want %q", state[RL].Compound, CompoundWet)
	}
	if state[RR].Compound != CompoundHard {
		t.Errorf("rr compound = %q, want %q", state[RR].Compound, CompoundHard)
	}
}

// Extracting the same snapshot twice yields identical state.
func TestExtractIdempotent(t *testing.T) {
	snap := snapshotWithWheels([4]telemetry.WheelTelemetry{
		{Wear: 0.82, Compound: "Medium"},
		{Wear: 1.3, Compound: "odd"},
		{Wear: -0.1, Compound: "Wet", Flat: true},
		{Wear: 0.77},
	})

	first, firstWarn := Extract(snap)
	second, secondWarn := Extract(snap)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("states differ:\n%v\n%v", first, second)
	}
	if !reflect.DeepEqual(firstWarn, secondWarn) {
		t.Errorf("warnings differ: %v vs %v", firstWarn, secondWarn)
	}
}
