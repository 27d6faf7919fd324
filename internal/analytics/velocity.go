package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/conorfennell/recallbox/internal/domain"
)

// VelocityWeek summarizes one calendar week of review activity. Weeks with
// no events are omitted from the result.
type VelocityWeek struct {
	WeekStart     time.Time `json:"weekStart"`
	WordsReviewed int       `json:"wordsReviewed"`
	WordsMastered int       `json:"wordsMastered"`
	Accuracy      float64   `json:"accuracy"`
}

// Velocity partitions the last weeks calendar weeks of events into weekly
// buckets, ascending by week start. A week runs Sunday to Saturday.
func (e *Engine) Velocity(ctx context.Context, learnerID string, weeks int) []VelocityWeek {
	if weeks <= 0 {
		weeks = 4
	}
	since := weekStart(e.now(), e.loc).AddDate(0, 0, -7*(weeks-1))
	events, err := e.store.ListEventsSince(ctx, learnerID, since)
	if err != nil {
		degraded("velocity", learnerID, err)
		return []VelocityWeek{}
	}
	return velocityWeeks(events, e.loc)
}

func velocityWeeks(events []domain.ReviewEvent, loc *time.Location) []VelocityWeek {
	type bucket struct {
		reviewed map[string]bool
		mastered map[string]bool
		total    int
		correct  int
	}
	buckets := make(map[time.Time]*bucket)

	for _, ev := range events {
		ws := weekStart(ev.ReviewedAt, loc)
		b := buckets[ws]
		if b == nil {
			b = &bucket{reviewed: make(map[string]bool), mastered: make(map[string]bool)}
			buckets[ws] = b
		}
		b.reviewed[ev.ItemID] = true
		if ev.NewLevel == 5 {
			b.mastered[ev.ItemID] = true
		}
		b.total++
		if ev.Correct {
			b.correct++
		}
	}

	result := make([]VelocityWeek, 0, len(buckets))
	for ws, b := range buckets {
		result = append(result, VelocityWeek{
			WeekStart:     ws,
			WordsReviewed: len(b.reviewed),
			WordsMastered: len(b.mastered),
			Accuracy:      pct(b.correct, b.total),
		})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].WeekStart.Before(result[j].WeekStart)
	})
	return result
}
