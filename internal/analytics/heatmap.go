package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/conorfennell/recallbox/internal/domain"
)

// defaultHeatmapDays is the lookback when the caller asks for none.
const defaultHeatmapDays = 90

// HeatmapDay is one calendar day of review activity. Days with no events
// are absent from the result.
type HeatmapDay struct {
	Day         string  `json:"day"` // YYYY-MM-DD in the engine's location
	ReviewCount int     `json:"reviewCount"`
	Accuracy    float64 `json:"accuracy"`
}

// Heatmap groups the last days calendar days of events by day, ascending.
func (e *Engine) Heatmap(ctx context.Context, learnerID string, days int) []HeatmapDay {
	if days <= 0 {
		days = defaultHeatmapDays
	}
	since := startOfDay(e.now(), e.loc).AddDate(0, 0, -(days - 1))
	events, err := e.store.ListEventsSince(ctx, learnerID, since)
	if err != nil {
		degraded("heatmap", learnerID, err)
		return []HeatmapDay{}
	}
	return heatmapDays(events, e.loc)
}

func heatmapDays(events []domain.ReviewEvent, loc *time.Location) []HeatmapDay {
	type bucket struct {
		total   int
		correct int
	}
	buckets := make(map[string]*bucket)
	for _, ev := range events {
		day := ev.ReviewedAt.In(loc).Format("2006-01-02")
		b := buckets[day]
		if b == nil {
			b = &bucket{}
			buckets[day] = b
		}
		b.total++
		if ev.Correct {
			b.correct++
		}
	}

	result := make([]HeatmapDay, 0, len(buckets))
	for day, b := range buckets {
		result = append(result, HeatmapDay{
			Day:         day,
			ReviewCount: b.total,
			Accuracy:    pct(b.correct, b.total),
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Day < result[j].Day })
	return result
}
