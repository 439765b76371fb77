package domain

import (
	"math"
	"time"
)

// DefaultThreshold is the fraction of stakeholders whose acknowledgment marks
// the response coordinated when a plan does not declare its own.
const DefaultThreshold = 0.8

// Acknowledgment records that a notified stakeholder has confirmed receipt of
// an activation. At most one acknowledgment per stakeholder per instance is
// counted.
type Acknowledgment struct {
	InstanceID      string
	StakeholderID   string
	AcknowledgedAt  time.Time
	ResponseMinutes float64
}

// CoordinationStats is the acknowledgment progress view for one instance.
type CoordinationStats struct {
	AcknowledgedCount int
	TotalStakeholders int
	Threshold         float64
	Progress          float64
	Complete          bool
}

// NewCoordinationStats derives progress and threshold completion from counts.
func NewCoordinationStats(acknowledged, total int, threshold float64) CoordinationStats {
	stats := CoordinationStats{
		AcknowledgedCount: acknowledged,
		TotalStakeholders: total,
		Threshold:         threshold,
	}
	if total > 0 {
		stats.Progress = float64(acknowledged) / float64(total)
	}
	stats.Complete = total > 0 && stats.Progress >= threshold
	return stats
}

// RequiredAcknowledgments returns how many distinct acknowledgments cross the
// threshold for a roster of the given size.
func RequiredAcknowledgments(total int, threshold float64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Ceil(threshold * float64(total)))
}
