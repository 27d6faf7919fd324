package analytics

import (
	"context"
	"sort"

	"github.com/conorfennell/recallbox/internal/domain"
)

// uncategorized buckets items the catalog has no category for. The
// scheduler accepts unknown item IDs, so these legitimately occur.
const uncategorized = "uncategorized"

// CategoryPerformance compares a learner's standing across catalog
// categories.
type CategoryPerformance struct {
	Category       string  `json:"category"`
	WordCount      int     `json:"wordCount"`
	AverageLevel   float64 `json:"averageLevel"`
	MasteredWords  int     `json:"masteredWords"`
	Accuracy       float64 `json:"accuracy"`
	AvgResponseMs  float64 `json:"avgResponseMs"`
	TimedResponses int     `json:"timedResponses"`
}

// ComputeCategoryPerformance groups all-time progress by catalog category
// and joins the event log for accuracy and response times, sorted by
// average level descending.
func (e *Engine) ComputeCategoryPerformance(ctx context.Context, learnerID string) []CategoryPerformance {
	progress, err := e.store.ListProgressByLearner(ctx, learnerID)
	if err != nil {
		degraded("category-performance", learnerID, err)
		return []CategoryPerformance{}
	}
	events, err := e.store.ListEventsByLearner(ctx, learnerID)
	if err != nil {
		degraded("category-performance", learnerID, err)
		return []CategoryPerformance{}
	}
	categories, err := e.catalog.CategoriesByItem(ctx)
	if err != nil {
		degraded("category-performance", learnerID, err)
		return []CategoryPerformance{}
	}
	return categoryPerformance(progress, events, categories)
}

func categoryPerformance(progress []domain.ItemProgress, events []domain.ReviewEvent, categories map[string]string) []CategoryPerformance {
	type bucket struct {
		words        int
		levelSum     int
		mastered     int
		total        int
		correct      int
		timedSamples int
		timedSumMs   int
	}
	buckets := make(map[string]*bucket)
	get := func(itemID string) *bucket {
		cat := categories[itemID]
		if cat == "" {
			cat = uncategorized
		}
		b := buckets[cat]
		if b == nil {
			b = &bucket{}
			buckets[cat] = b
		}
		return b
	}

	for _, p := range progress {
		b := get(p.ItemID)
		b.words++
		b.levelSum += p.MasteryLevel
		if p.MasteryLevel == 5 {
			b.mastered++
		}
	}
	for _, ev := range events {
		b := get(ev.ItemID)
		b.total++
		if ev.Correct {
			b.correct++
		}
		if ev.Timed {
			b.timedSamples++
			b.timedSumMs += ev.ResponseTimeMs
		}
	}

	result := make([]CategoryPerformance, 0, len(buckets))
	for cat, b := range buckets {
		cp := CategoryPerformance{
			Category:       cat,
			WordCount:      b.words,
			MasteredWords:  b.mastered,
			Accuracy:       pct(b.correct, b.total),
			TimedResponses: b.timedSamples,
		}
		if b.words > 0 {
			cp.AverageLevel = round1(float64(b.levelSum) / float64(b.words))
		}
		if b.timedSamples > 0 {
			cp.AvgResponseMs = round1(float64(b.timedSumMs) / float64(b.timedSamples))
		}
		result = append(result, cp)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].AverageLevel != result[j].AverageLevel {
			return result[i].AverageLevel > result[j].AverageLevel
		}
		return result[i].Category < result[j].Category
	})
	return result
}
