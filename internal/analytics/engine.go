// Package analytics computes read-side aggregations from the review event
// log. Every computation tolerates an empty history and returns its
// zero-valued result instead of failing; a broken aggregation degrades to
// that zero value so one metric never takes down the whole dashboard.
package analytics

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/conorfennell/recallbox/internal/domain"
)

// Store is the read access the engine needs. *storage.DB satisfies it.
type Store interface {
	ListEventsByLearner(ctx context.Context, learnerID string) ([]domain.ReviewEvent, error)
	ListEventsSince(ctx context.Context, learnerID string, since time.Time) ([]domain.ReviewEvent, error)
	ListProgressByLearner(ctx context.Context, learnerID string) ([]domain.ItemProgress, error)
}

// Catalog supplies the item -> category mapping for category performance.
type Catalog interface {
	CategoriesByItem(ctx context.Context) (map[string]string, error)
}

// Engine runs the dashboard aggregations.
type Engine struct {
	store   Store
	catalog Catalog
	loc     *time.Location
	now     func() time.Time
}

// New creates an engine using the wall clock. Calendar boundaries (weeks,
// days) are computed in loc.
func New(store Store, catalog Catalog, loc *time.Location) *Engine {
	return NewWithClock(store, catalog, loc, time.Now)
}

// NewWithClock creates an engine with an injected clock for tests.
func NewWithClock(store Store, catalog Catalog, loc *time.Location, now func() time.Time) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{store: store, catalog: catalog, loc: loc, now: now}
}

// degraded logs a failed aggregation read. The caller returns the metric's
// zero value instead of an error.
func degraded(metric, learnerID string, err error) {
	slog.Warn("analytics degraded to empty result",
		"metric", metric, "learner", learnerID, "error", err)
}

// pct returns correct/total as a percentage rounded to one decimal.
func pct(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(correct) / float64(total) * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// startOfDay truncates t to midnight in loc.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// weekStart returns the most recent Sunday midnight at or before t.
func weekStart(t time.Time, loc *time.Location) time.Time {
	day := startOfDay(t, loc)
	return day.AddDate(0, 0, -int(day.Weekday()))
}
