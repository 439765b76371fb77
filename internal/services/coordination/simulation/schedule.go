// Package simulation drives scripted stakeholder acknowledgments against a
// live instance on a deterministic seeded timeline.
package simulation

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/lockstep-ops/lockstep/internal/platform/errors"
	"github.com/lockstep-ops/lockstep/internal/services/coordination/domain"
)

const (
	firstAckFloor = 30 * time.Second
	firstAckCeil  = 60 * time.Second

	// clusterFraction of the roster acknowledges inside the cluster window,
	// which ends at clusterPoint of the target duration. The remainder are
	// stragglers spread between the cluster point and the target.
	clusterFraction = 0.8
	clusterPoint    = 0.95
)

// Entry schedules one stakeholder acknowledgment at an offset from the
// simulation start.
type Entry struct {
	StakeholderID string
	Delay         time.Duration
}

// BuildSchedule produces a deterministic acknowledgment timeline for a
// roster. The same roster, target duration, and seed always produce the same
// schedule: the first acknowledgment lands 30-60 seconds in, the bulk of the
// roster clusters toward 95% of the target duration, and the rest straggle in
// between the cluster point and the target.
func BuildSchedule(roster []domain.Stakeholder, targetDuration time.Duration, seed int64) ([]Entry, error) {
	if len(roster) == 0 {
		return nil, errors.New(errors.CodeSimulationRosterEmpty, "simulation roster is empty")
	}
	if targetDuration <= 0 {
		return nil, errors.New(errors.CodeSimulationInvalidWindow, "target duration must be positive")
	}

	rng := rand.New(rand.NewSource(seed))
	order := make([]string, 0, len(roster))
	for _, stakeholder := range roster {
		order = append(order, stakeholder.ID)
	}
	rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	target := float64(targetDuration)
	clusterEnd := clusterPoint * target
	first := float64(firstAckFloor) + rng.Float64()*float64(firstAckCeil-firstAckFloor)
	if first >= clusterEnd {
		// Target windows shorter than the usual first-ack range compress
		// proportionally instead of inverting the timeline.
		first = clusterEnd * 0.1
	}

	n := len(order)
	clustered := int(math.Ceil(clusterFraction * float64(n)))
	if clustered < 1 {
		clustered = 1
	}

	// The opening acknowledgment lands at the 30-60 second draw itself; the
	// clustering curve only shapes the rest of the clustered cohort.
	delays := make([]float64, 0, n)
	delays = append(delays, first)
	for i := 1; i < clustered; i++ {
		fraction := (float64(i-1) + rng.Float64()) / float64(clustered-1)
		// Square root biases the mass of the window toward the cluster point.
		delays = append(delays, first+(clusterEnd-first)*math.Sqrt(fraction))
	}
	stragglers := n - clustered
	for i := 0; i < stragglers; i++ {
		fraction := (float64(i) + rng.Float64()) / float64(stragglers)
		delays = append(delays, clusterEnd+(target-clusterEnd)*fraction)
	}
	sort.Float64s(delays)

	entries := make([]Entry, 0, n)
	for i, delay := range delays {
		entries = append(entries, Entry{
			StakeholderID: order[i],
			Delay:         time.Duration(delay),
		})
	}
	return entries, nil
}
