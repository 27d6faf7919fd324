package dueset

import (
	"context"
	"time"

	"github.com/conorfennell/recallbox/internal/domain"
)

// Store is the progress read access the calculator needs.
type Store interface {
	ListProgressDueBefore(ctx context.Context, learnerID string, cutoff time.Time) ([]domain.ItemProgress, error)
}

// Calculator derives due sets from item progress rows alone; it never
// touches the review event log.
type Calculator struct {
	store Store
	loc   *time.Location
	now   func() time.Time
}

// New creates a calculator. Calendar-day boundaries (today, tomorrow) are
// computed in loc.
func New(store Store, loc *time.Location) *Calculator {
	return NewWithClock(store, loc, time.Now)
}

// NewWithClock creates a calculator with an injected clock for tests.
func NewWithClock(store Store, loc *time.Location, now func() time.Time) *Calculator {
	if loc == nil {
		loc = time.UTC
	}
	return &Calculator{store: store, loc: loc, now: now}
}

// DueItems returns the learner's items with nextDueAt at or before now,
// earliest due first. With includeOverdue false, items already overdue
// before the start of today are dropped, leaving only today's reviews.
// A learner with no progress rows gets an empty list, not an error.
func (c *Calculator) DueItems(ctx context.Context, learnerID string, includeOverdue bool) ([]domain.DueItem, error) {
	now := c.now()
	rows, err := c.store.ListProgressDueBefore(ctx, learnerID, now)
	if err != nil {
		return nil, err
	}

	startOfToday := startOfDay(now, c.loc)
	items := make([]domain.DueItem, 0, len(rows))
	for _, p := range rows {
		if !includeOverdue && p.NextDueAt.Before(startOfToday) {
			continue
		}
		items = append(items, dueItem(p, now))
	}
	return items, nil
}

// Breakdown partitions the learner's due and near-due items into overdue
// (before today), dueToday and dueSoon (the next calendar day only, a
// fixed 1-day lookahead).
func (c *Calculator) Breakdown(ctx context.Context, learnerID string) (domain.DueBreakdown, error) {
	now := c.now()
	startOfToday := startOfDay(now, c.loc)
	startOfTomorrow := startOfToday.AddDate(0, 0, 1)
	endOfLookahead := startOfToday.AddDate(0, 0, 2)

	// One pass over everything due before the end of tomorrow.
	rows, err := c.store.ListProgressDueBefore(ctx, learnerID, endOfLookahead)
	if err != nil {
		return domain.DueBreakdown{}, err
	}

	b := domain.DueBreakdown{
		Overdue:  []domain.DueItem{},
		DueToday: []domain.DueItem{},
		DueSoon:  []domain.DueItem{},
	}
	for _, p := range rows {
		item := dueItem(p, now)
		switch {
		case p.NextDueAt.Before(startOfToday):
			b.Overdue = append(b.Overdue, item)
		case p.NextDueAt.Before(startOfTomorrow):
			b.DueToday = append(b.DueToday, item)
		case p.NextDueAt.Before(endOfLookahead):
			b.DueSoon = append(b.DueSoon, item)
		}
	}
	b.Total = len(b.Overdue) + len(b.DueToday) + len(b.DueSoon)
	return b, nil
}

func dueItem(p domain.ItemProgress, now time.Time) domain.DueItem {
	overdue := 0
	if elapsed := now.Sub(p.NextDueAt); elapsed > 0 {
		overdue = int(elapsed.Hours() / 24)
	}
	return domain.DueItem{
		ItemID:          p.ItemID,
		MasteryLevel:    p.MasteryLevel,
		LastPracticedAt: p.LastPracticedAt,
		NextDueAt:       p.NextDueAt,
		DaysOverdue:     overdue,
	}
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
