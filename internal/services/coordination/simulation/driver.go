package simulation

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/lockstep-ops/lockstep/internal/platform/errors"
	"github.com/lockstep-ops/lockstep/internal/services/coordination/domain"
)

// Acknowledger is the surface the driver exercises, satisfied by the
// coordination engine.
type Acknowledger interface {
	Acknowledge(ctx context.Context, instanceID, stakeholderID string) (domain.AckResult, error)
}

// cancelTimer stops one pending scheduled acknowledgment.
type cancelTimer func() bool

// scheduleFunc arms one future acknowledgment and returns its cancel.
type scheduleFunc func(delay time.Duration, fire func()) cancelTimer

// Driver replays a seeded acknowledgment schedule against an instance. At
// most one simulation is active per driver; starting a new one cancels every
// timer of the previous run first.
type Driver struct {
	ack      Acknowledger
	schedule scheduleFunc

	mu       sync.Mutex
	instance string
	timers   []cancelTimer
}

// DriverOption configures the driver.
type DriverOption func(*Driver)

// WithSchedule overrides timer arming, for tests.
func WithSchedule(schedule scheduleFunc) DriverOption {
	return func(d *Driver) {
		if schedule != nil {
			d.schedule = schedule
		}
	}
}

// NewDriver constructs a driver over an acknowledger.
func NewDriver(ack Acknowledger, opts ...DriverOption) *Driver {
	driver := &Driver{
		ack: ack,
		schedule: func(delay time.Duration, fire func()) cancelTimer {
			return time.AfterFunc(delay, fire).Stop
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(driver)
		}
	}
	return driver
}

// Run describes one started simulation.
type Run struct {
	InstanceID string
	Entries    []Entry
}

// Start builds the schedule for a roster and arms one timer per entry. Any
// simulation already in flight is cancelled before the first new timer is
// armed.
func (d *Driver) Start(ctx context.Context, instanceID string, roster []domain.Stakeholder, targetDuration time.Duration, seed int64) (Run, error) {
	instanceID = strings.TrimSpace(instanceID)
	if instanceID == "" {
		return Run{}, errors.New(errors.CodeInstanceEmptyID, "instance id is required")
	}
	entries, err := BuildSchedule(roster, targetDuration, seed)
	if err != nil {
		return Run{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.instance = instanceID
	for _, entry := range entries {
		stakeholderID := entry.StakeholderID
		d.timers = append(d.timers, d.schedule(entry.Delay, func() {
			if _, err := d.ack.Acknowledge(ctx, instanceID, stakeholderID); err != nil {
				log.Printf("simulation: acknowledge %s on %s: %v", stakeholderID, instanceID, err)
			}
		}))
	}
	return Run{InstanceID: instanceID, Entries: entries}, nil
}

// Stop cancels the active simulation's pending timers. Acknowledgments that
// already fired stand.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
}

// Active returns the instance id of the simulation in flight, or empty.
func (d *Driver) Active() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.instance
}

func (d *Driver) cancelLocked() {
	for _, cancel := range d.timers {
		cancel()
	}
	d.timers = nil
	d.instance = ""
}
