package stint

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/pitwall/stint-tracker/internal/tire"
)

// dedupeWindow buckets the pit time in the stint key so two trackers
// watching the same car agree on the key even when their polls land on
// different sides of a second boundary.
const dedupeWindow = 2 * time.Second

// Record is the persisted artifact for one completed pit stop. It is
// immutable once built; ownership passes to the store on emission.
type Record struct {
	SessionID   string
	Driver      string
	CompletedAt time.Time

	// PitTime is the session-clock value at completion: remaining time
	// in race mode, elapsed-since-baseline in practice.
	PitTime time.Duration

	// Key dedupes concurrent trackers: session id plus the bucketed
	// pit time.
	Key string

	Incoming tire.State
	Outgoing tire.State
	Changes  tire.ChangeResult
}

// ValidSessionID reports whether an opaque session identifier can be used.
// The id is embedded in the dedupe key, so the key separator and
// whitespace are off limits.
func ValidSessionID(id string) bool {
	if id == "" {
		return false
	}
	return !strings.ContainsAny(id, ": \t\n")
}

// Build assembles a record. It fails only on precondition violations:
// empty driver or malformed session id.
func Build(sessionID, driver string, incoming, outgoing tire.State, changes tire.ChangeResult, pitTime time.Duration, completedAt time.Time) (*Record, error) {
	if strings.TrimSpace(driver) == "" {
		return nil, errors.New("driver name must not be empty")
	}
	if !ValidSessionID(sessionID) {
		return nil, errors.Errorf("malformed session id %q", sessionID)
	}

	bucket := pitTime.Truncate(dedupeWindow)

	return &Record{
		SessionID:   sessionID,
		Driver:      strings.TrimSpace(driver),
		CompletedAt: completedAt,
		PitTime:     pitTime,
		Key:         sessionID + ":" + FormatHMS(bucket),
		Incoming:    incoming,
		Outgoing:    outgoing,
		Changes:     changes,
	}, nil
}
