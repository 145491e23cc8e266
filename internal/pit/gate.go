package pit

// ArmState is the practice-mode arming lifecycle. Race and qualifying
// sessions arm immediately; practice waits for a full garage-return cycle
// so setup laps are not counted as stints.
type ArmState int

const (
	Disarmed ArmState = iota
	WaitingForGarageReturn
	Armed
)

func (s ArmState) String() string {
	switch s {
	case Disarmed:
		return "disarmed"
	case WaitingForGarageReturn:
		return "waiting_for_garage_return"
	case Armed:
		return "armed"
	}
	return "unknown"
}

// Gate arms stint tracking. In practice mode it requires the garage flag
// to go true then false (driver parked, then drove out) before arming.
// Once Armed it never reverts for the life of the process.
type Gate struct {
	state      ArmState
	seenGarage bool
}

func NewGate(practice bool) *Gate {
	if practice {
		// Disarmed exists only as the pre-start state; a practice gate
		// is waiting from the first observation.
		return &Gate{state: WaitingForGarageReturn}
	}
	return &Gate{state: Armed}
}

// State returns the current arm state.
func (g *Gate) State() ArmState {
	return g.state
}

// Armed reports whether stint tracking is allowed.
func (g *Gate) Armed() bool {
	return g.state == Armed
}

// Observe feeds the garage flag from one snapshot and reports whether this
// observation armed the gate (the true→false edge).
func (g *Gate) Observe(inGarage bool) bool {
	if g.state != WaitingForGarageReturn {
		return false
	}
	if inGarage {
		g.seenGarage = true
		return false
	}
	if g.seenGarage {
		g.state = Armed
		return true
	}
	return false
}
