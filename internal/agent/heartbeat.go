// Package agent maintains this tracker's liveness record so the UI can
// tell which tracker instances are running when several race at once.
package agent

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// Store is the slice of persistence the heartbeat needs.
type Store interface {
	RegisterAgent(name string, pid int, startedAt, now time.Time, staleAfter time.Duration) (string, error)
	Heartbeat(name string, pid int, at time.Time) error
	CleanStaleAgents(cutoff time.Time) (int64, error)
	DeleteAgent(name string) error
}

// DeriveName returns the configured agent name, or one derived from the
// process id when none was supplied.
func DeriveName(configured string) string {
	if configured != "" {
		return configured
	}
	return fmt.Sprintf("tracker-%d", os.Getpid())
}

// Heartbeat periodically upserts this process's agent record and sweeps
// records of trackers that stopped beating. A Heartbeat built with an
// empty name is inactive: every method is a silent no-op.
type Heartbeat struct {
	store      Store
	name       string
	pid        int
	startedAt  time.Time
	interval   time.Duration
	staleAfter time.Duration
	now        func() time.Time
}

func New(store Store, name string, interval, staleAfter time.Duration) *Heartbeat {
	h := &Heartbeat{
		store:      store,
		name:       name,
		pid:        os.Getpid(),
		startedAt:  time.Now(),
		interval:   interval,
		staleAfter: staleAfter,
		now:        time.Now,
	}
	if proc, err := process.NewProcess(int32(h.pid)); err == nil {
		if created, err := proc.CreateTime(); err == nil {
			h.startedAt = time.UnixMilli(created)
		}
	}
	return h
}

// Name returns the registered agent name, empty when inactive.
func (h *Heartbeat) Name() string {
	return h.name
}

// Register claims the agent name, switching to a numbered variant if
// another live tracker holds it.
func (h *Heartbeat) Register() error {
	if h.name == "" {
		return nil
	}
	final, err := h.store.RegisterAgent(h.name, h.pid, h.startedAt, h.now(), h.staleAfter)
	if err != nil {
		return err
	}
	if final != h.name {
		log.Printf("agent name %q already in use, registered as %q", h.name, final)
		h.name = final
	}
	return nil
}

// Run beats until ctx is done. Failures are logged and the loop carries
// on; a missed beat only matters if they all go missing.
func (h *Heartbeat) Run(ctx context.Context) {
	if h.name == "" {
		return
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.beat()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.beat()
		}
	}
}

func (h *Heartbeat) beat() {
	now := h.now()
	if err := h.store.Heartbeat(h.name, h.pid, now); err != nil {
		log.Printf("heartbeat for %s: %v", h.name, err)
	}
	if swept, err := h.store.CleanStaleAgents(now.Add(-h.staleAfter)); err != nil {
		log.Printf("stale agent cleanup: %v", err)
	} else if swept > 0 {
		log.Printf("swept %d stale agent record(s)", swept)
	}
}

// Unregister removes this tracker's record on clean shutdown.
func (h *Heartbeat) Unregister() {
	if h.name == "" {
		return
	}
	if err := h.store.DeleteAgent(h.name); err != nil {
		log.Printf("unregister agent %s: %v", h.name, err)
	}
}
