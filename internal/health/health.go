// internal/health/health.go

// Package health derives freshness metrics from a tracked project's last
// push timestamp. The derivation is a pure function of (project, now) and
// is recomputed on every read; nothing here is ever persisted.
package health

import (
	"math"
	"time"

	"project-tracker/internal/model"
)

// Health status labels, a coarse three-bucket classification for UI badges.
const (
	StatusOnTrack = "on-track"
	StatusAtRisk  = "at-risk"
	StatusDelayed = "delayed"
	StatusUnknown = "unknown"
)

// Compute derives HealthMetrics from the project's last push timestamp.
//
// The score uses a five-bucket table (boundaries at 7/30/90/180 days) and
// the status a three-bucket one (30/90 days). The two tables overlap but
// are intentionally kept separate: the status feeds coarse UI badges, the
// finer score feeds ranking. An absent push timestamp is a defined case,
// not an error: score 50, status unknown, days omitted.
func Compute(p model.TrackedProject, now time.Time) model.HealthMetrics {
	if p.LastPushedAt == nil {
		return model.HealthMetrics{
			HealthScore:  50,
			HealthStatus: StatusUnknown,
		}
	}

	days := daysSince(*p.LastPushedAt, now)
	return model.HealthMetrics{
		DaysSinceLastPush: &days,
		HealthScore:       score(days),
		HealthStatus:      status(days),
	}
}

// daysSince is the elapsed time in days, rounded up. A push timestamp in
// the future counts as zero days.
func daysSince(pushed, now time.Time) int {
	elapsed := now.Sub(pushed)
	if elapsed <= 0 {
		return 0
	}
	return int(math.Ceil(elapsed.Hours() / 24))
}

func score(days int) int {
	switch {
	case days <= 7:
		return 100
	case days <= 30:
		return 75
	case days <= 90:
		return 50
	case days <= 180:
		return 25
	default:
		return 10
	}
}

func status(days int) string {
	switch {
	case days <= 30:
		return StatusOnTrack
	case days <= 90:
		return StatusAtRisk
	default:
		return StatusDelayed
	}
}
