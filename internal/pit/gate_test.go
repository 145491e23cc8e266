package pit

import "testing"

func TestGateRaceModeArmsImmediately(t *testing.T) {
	g := NewGate(false)
	if !g.Armed() {
		t.Fatal("race gate should start armed")
	}
	if g.Observe(true) {
		t.Error("armed gate must not report a new arming edge")
	}
}

// Garage flag sequence true, true, false, false: the gate arms exactly at
// the true→false edge and not before.
func TestGatePracticeDoubleEdge(t *testing.T) {
	g := NewGate(true)
	if g.State() != WaitingForGarageReturn {
		t.Fatalf("initial state = %v, want waiting", g.State())
	}

	if g.Observe(true) {
		t.Error("first garage=true must not arm")
	}
	if g.Observe(true) {
		t.Error("second garage=true must not arm")
	}
	if g.Armed() {
		t.Fatal("gate armed while still in garage")
	}

	if !g.Observe(false) {
		t.Fatal("true→false edge should arm")
	}
	if !g.Armed() {
		t.Fatal("gate should be armed after the edge")
	}

	if g.Observe(false) {
		t.Error("edge must be reported only once")
	}
}

// A practice gate that never sees the garage must not arm on a false flag
// alone (driver is out on a setup lap).
func TestGatePracticeNeedsGarageFirst(t *testing.T) {
	g := NewGate(true)
	for i := 0; i < 5; i++ {
		if g.Observe(false) {
			t.Fatal("gate armed without a garage visit")
		}
	}
	if g.Armed() {
		t.Fatal("gate should still be waiting")
	}
}

func TestGateNeverReverts(t *testing.T) {
	g := NewGate(true)
	g.Observe(true)
	g.Observe(false)
	if !g.Armed() {
		t.Fatal("gate should be armed")
	}

	// Later garage visits must not disarm.
	g.Observe(true)
	g.Observe(false)
	if g.State() != Armed {
		t.Errorf("state = %v after later garage visit, want armed", g.State())
	}
}
