package analytics

import (
	"context"

	"github.com/conorfennell/recallbox/internal/domain"
)

// retentionWindowDays is the fixed trailing window for retention metrics.
const retentionWindowDays = 30

// trendThreshold is the accuracy gap, in percentage points, between the
// window's halves that counts as a real change.
const trendThreshold = 5.0

// LevelRetention is the accuracy for events that started from one level.
type LevelRetention struct {
	Total   int     `json:"total"`
	Correct int     `json:"correct"`
	Rate    float64 `json:"rate"`
}

// Retention summarizes recall over the trailing 30 days.
type Retention struct {
	OverallRate float64                `json:"overallRetentionRate"`
	ByLevel     map[int]LevelRetention `json:"byLevel"`
	Trend       string                 `json:"trend"` // improving, declining or stable
}

// ComputeRetention reports the trailing-window retention rate, the
// per-previous-level breakdown, and the accuracy trend across the window.
func (e *Engine) ComputeRetention(ctx context.Context, learnerID string) Retention {
	since := e.now().AddDate(0, 0, -retentionWindowDays)
	events, err := e.store.ListEventsSince(ctx, learnerID, since)
	if err != nil {
		degraded("retention", learnerID, err)
		return emptyRetention()
	}
	return retentionFromEvents(events)
}

func emptyRetention() Retention {
	return Retention{ByLevel: map[int]LevelRetention{}, Trend: "stable"}
}

func retentionFromEvents(events []domain.ReviewEvent) Retention {
	if len(events) == 0 {
		return emptyRetention()
	}

	total, correct := 0, 0
	byLevel := make(map[int]LevelRetention)
	for _, ev := range events {
		total++
		lr := byLevel[ev.PreviousLevel]
		lr.Total++
		if ev.Correct {
			correct++
			lr.Correct++
		}
		byLevel[ev.PreviousLevel] = lr
	}
	for level, lr := range byLevel {
		lr.Rate = pct(lr.Correct, lr.Total)
		byLevel[level] = lr
	}

	return Retention{
		OverallRate: pct(correct, total),
		ByLevel:     byLevel,
		Trend:       trend(events),
	}
}

// trend compares the accuracy of the chronological first half of the
// window against the second half.
func trend(events []domain.ReviewEvent) string {
	half := len(events) / 2
	if half == 0 {
		return "stable"
	}
	diff := accuracy(events[half:]) - accuracy(events[:half])
	switch {
	case diff > trendThreshold:
		return "improving"
	case diff < -trendThreshold:
		return "declining"
	default:
		return "stable"
	}
}

func accuracy(events []domain.ReviewEvent) float64 {
	correct := 0
	for _, ev := range events {
		if ev.Correct {
			correct++
		}
	}
	return pct(correct, len(events))
}
