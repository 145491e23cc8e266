package telemetry

import "context"

// ScriptedSource serves a fixed frame sequence, one per poll. A nil frame
// means the source is unavailable for that poll; after the script runs out
// every poll is unavailable. Used by dry-run mode and tests.
type ScriptedSource struct {
	frames []*Snapshot
	next   int
}

func NewScriptedSource(frames ...*Snapshot) *ScriptedSource {
	return &ScriptedSource{frames: frames}
}

func (s *ScriptedSource) Poll(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrUnavailable
	}
	if s.next >= len(s.frames) {
		return nil, ErrUnavailable
	}
	snap := s.frames[s.next]
	s.next++
	if snap == nil {
		return nil, ErrUnavailable
	}
	return snap, nil
}

// Exhausted reports whether the script has been fully consumed.
func (s *ScriptedSource) Exhausted() bool {
	return s.next >= len(s.frames)
}
