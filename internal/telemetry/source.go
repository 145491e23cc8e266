package telemetry

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ErrUnavailable means the source has no fresh snapshot to serve. Callers
// treat it as a transient gap, not a failure of the source itself.
var ErrUnavailable = errors.New("telemetry unavailable")

// Source provides the latest game snapshot. Poll blocks at most until ctx
// is done; a timed-out poll reports ErrUnavailable.
//
// Implementations are called from the monitor loop only and do not need to
// be safe for concurrent polling.
type Source interface {
	Poll(ctx context.Context) (*Snapshot, error)
}

// WheelTelemetry is the raw per-corner data as the bridge publishes it.
type WheelTelemetry struct {
	Wear     float64 `json:"wear"`
	Flat     bool    `json:"flat"`
	Detached bool    `json:"detached"`
	Compound string  `json:"compound"`
}

// Raw pit state codes from the game's shared memory.
const (
	RawOnTrack  = 0
	RawEntering = 2
	RawPitting  = 4
	RawLeaving  = 5
)

// Snapshot is one telemetry frame. It is owned by the poll cycle that
// produced it and never mutated afterwards.
type Snapshot struct {
	DriverName    string  `json:"driverName"`
	VehicleName   string  `json:"vehicleName"`
	SessionActive bool    `json:"sessionActive"`
	PitState      int     `json:"pitState"`
	InGarageStall bool    `json:"inGarageStall"`
	Penalties     int     `json:"penalties"`
	CurrentET     float64 `json:"currentET"`
	EndET         float64 `json:"endET"`

	// Wheels are ordered front-left, front-right, rear-left, rear-right.
	Wheels [4]WheelTelemetry `json:"wheels"`

	// CapturedAt is when the frame arrived from the bridge, stamped
	// locally rather than trusted from the wire.
	CapturedAt time.Time `json:"-"`
}

// MatchesDriver reports whether the snapshot's driver is one of the known
// names. Matching is case-insensitive with surrounding whitespace ignored,
// the way names come out of the game's byte-padded fields.
func (s *Snapshot) MatchesDriver(drivers []string) bool {
	name := strings.ToLower(strings.TrimSpace(s.DriverName))
	if name == "" {
		return false
	}
	for _, d := range drivers {
		if strings.ToLower(strings.TrimSpace(d)) == name {
			return true
		}
	}
	return false
}
