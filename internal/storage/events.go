package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/conorfennell/recallbox/internal/domain"
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertEvent(ctx context.Context, ex execer, ev domain.ReviewEvent) error {
	var responseTime sql.NullInt64
	if ev.Timed {
		responseTime = sql.NullInt64{Int64: int64(ev.ResponseTimeMs), Valid: true}
	}
	var rating sql.NullString
	if ev.Rating != domain.RatingNone {
		rating = sql.NullString{String: string(ev.Rating), Valid: true}
	}

	_, err := ex.ExecContext(ctx, `
		INSERT INTO review_events (
			learner_id, item_id, correct, response_time_ms, rating,
			previous_level, new_level, reviewed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		ev.LearnerID,
		ev.ItemID,
		ev.Correct,
		responseTime,
		rating,
		ev.PreviousLevel,
		ev.NewLevel,
		ev.ReviewedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append review event for %s/%s: %w", ev.LearnerID, ev.ItemID, err)
	}
	return nil
}

// AppendEvent appends a single review event outside a review transaction.
// ApplyReview is the normal write path; this exists for backfills.
func (db *DB) AppendEvent(ctx context.Context, ev domain.ReviewEvent) error {
	return insertEvent(ctx, db.conn, ev)
}

// ListEventsByLearner retrieves the full review history for a learner in
// chronological order.
func (db *DB) ListEventsByLearner(ctx context.Context, learnerID string) ([]domain.ReviewEvent, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, learner_id, item_id, correct, response_time_ms, rating,
		       previous_level, new_level, reviewed_at
		FROM review_events
		WHERE learner_id = ?
		ORDER BY reviewed_at ASC, id ASC
	`, learnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events for %s: %w", learnerID, err)
	}
	defer rows.Close()

	return scanEventRows(rows)
}

// ListEventsSince retrieves a learner's review events at or after the given
// timestamp, in chronological order.
func (db *DB) ListEventsSince(ctx context.Context, learnerID string, since time.Time) ([]domain.ReviewEvent, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, learner_id, item_id, correct, response_time_ms, rating,
		       previous_level, new_level, reviewed_at
		FROM review_events
		WHERE learner_id = ? AND reviewed_at >= ?
		ORDER BY reviewed_at ASC, id ASC
	`, learnerID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list events for %s since %v: %w", learnerID, since, err)
	}
	defer rows.Close()

	return scanEventRows(rows)
}

func scanEventRows(rows *sql.Rows) ([]domain.ReviewEvent, error) {
	var events []domain.ReviewEvent
	for rows.Next() {
		var ev domain.ReviewEvent
		var responseTime sql.NullInt64
		var rating sql.NullString
		if err := rows.Scan(
			&ev.ID,
			&ev.LearnerID,
			&ev.ItemID,
			&ev.Correct,
			&responseTime,
			&rating,
			&ev.PreviousLevel,
			&ev.NewLevel,
			&ev.ReviewedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan review event row: %w", err)
		}
		if responseTime.Valid {
			ev.ResponseTimeMs = int(responseTime.Int64)
			ev.Timed = true
		}
		ev.Rating = domain.Rating(rating.String)
		events = append(events, ev)
	}
	return events, rows.Err()
}
