package tire

import "math"

// Analyzer compares incoming and outgoing tire states. The wear delta is
// the primary signal: a fresh tire shows near-zero wear against the worn
// incoming one, so a delta beyond the threshold marks the corner changed.
// Compound and flat/detached flag differences mark it changed regardless.
type Analyzer struct {
	wearResetThreshold float64
}

// NewAnalyzer builds an analyzer with the configured wear-reset threshold
// (fraction of total wear, see config tires.wear_reset_threshold).
func NewAnalyzer(wearResetThreshold float64) *Analyzer {
	return &Analyzer{wearResetThreshold: wearResetThreshold}
}

// wearEpsilon absorbs float64 representation error so a delta landing
// exactly on the threshold counts as within it.
const wearEpsilon = 1e-9

// AnalyzeCorner decides a single corner in isolation.
func (a *Analyzer) AnalyzeCorner(incoming, outgoing CornerState) bool {
	if math.Abs(incoming.Wear-outgoing.Wear)-a.wearResetThreshold > wearEpsilon {
		return true
	}
	if incoming.Compound != outgoing.Compound {
		return true
	}
	return incoming.Flat != outgoing.Flat || incoming.Detached != outgoing.Detached
}

// Analyze decides every corner. Corners are independent; the result for
// one never depends on another.
func (a *Analyzer) Analyze(incoming, outgoing State) ChangeResult {
	result := make(ChangeResult, len(Corners))
	for _, corner := range Corners {
		result[corner] = a.AnalyzeCorner(incoming[corner], outgoing[corner])
	}
	return result
}
