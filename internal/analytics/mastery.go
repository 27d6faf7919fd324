package analytics

import (
	"context"
	"time"

	"github.com/conorfennell/recallbox/internal/domain"
)

// LevelTiming is the distribution of how long items took to first reach
// one level, counted from each item's first-ever review.
type LevelTiming struct {
	MeanDays float64 `json:"meanDays"`
	Samples  int     `json:"samples"`
}

// MasteryReport summarizes how long items take to reach level 5. Items
// that never reached it are excluded from the mastery timing but still
// contribute to the per-level distribution for levels they did reach.
type MasteryReport struct {
	MasteredWords    int                 `json:"masteredWords"`
	MeanDays         float64             `json:"meanDays"`
	FastestMastery   float64             `json:"fastestMastery"`
	SlowestMastery   float64             `json:"slowestMastery"`
	DaysToReachLevel map[int]LevelTiming `json:"daysToReachLevel"`
}

// ComputeTimeToMastery scans the full event history and reports, per item,
// the elapsed time from first review to first reaching each level.
func (e *Engine) ComputeTimeToMastery(ctx context.Context, learnerID string) MasteryReport {
	events, err := e.store.ListEventsByLearner(ctx, learnerID)
	if err != nil {
		degraded("time-to-mastery", learnerID, err)
		return emptyMasteryReport()
	}
	return masteryReport(events)
}

func emptyMasteryReport() MasteryReport {
	return MasteryReport{DaysToReachLevel: map[int]LevelTiming{}}
}

func masteryReport(events []domain.ReviewEvent) MasteryReport {
	type itemTrack struct {
		firstReview  time.Time
		firstAtLevel map[int]time.Time
	}
	items := make(map[string]*itemTrack)

	// Events arrive chronologically, so the first sighting wins.
	for _, ev := range events {
		track := items[ev.ItemID]
		if track == nil {
			track = &itemTrack{firstReview: ev.ReviewedAt, firstAtLevel: make(map[int]time.Time)}
			items[ev.ItemID] = track
		}
		if _, seen := track.firstAtLevel[ev.NewLevel]; !seen {
			track.firstAtLevel[ev.NewLevel] = ev.ReviewedAt
		}
	}

	report := emptyMasteryReport()
	levelSums := make(map[int]float64)
	levelCounts := make(map[int]int)
	var masterySum, fastest, slowest float64

	for _, track := range items {
		for level := 1; level <= 5; level++ {
			reached, ok := track.firstAtLevel[level]
			if !ok {
				continue
			}
			days := reached.Sub(track.firstReview).Hours() / 24
			levelSums[level] += days
			levelCounts[level]++

			if level == 5 {
				report.MasteredWords++
				masterySum += days
				if report.MasteredWords == 1 || days < fastest {
					fastest = days
				}
				if days > slowest {
					slowest = days
				}
			}
		}
	}

	for level, count := range levelCounts {
		report.DaysToReachLevel[level] = LevelTiming{
			MeanDays: round1(levelSums[level] / float64(count)),
			Samples:  count,
		}
	}
	if report.MasteredWords > 0 {
		report.MeanDays = round1(masterySum / float64(report.MasteredWords))
		report.FastestMastery = round1(fastest)
		report.SlowestMastery = round1(slowest)
	}
	return report
}
