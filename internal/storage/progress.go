package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/conorfennell/recallbox/internal/domain"
)

// ProgressDelta describes the outcome of one answer as applied to an
// item_progress row: the new scheduling fields plus counter increments.
// Counters are written additively so a racing upsert can never drop one
// side's counts.
type ProgressDelta struct {
	LearnerID       string
	ItemID          string
	MasteryLevel    int
	CorrectDelta    int
	WrongDelta      int
	LastPracticedAt time.Time
	NextDueAt       time.Time
}

// ApplyReview upserts the progress row and appends the review event in a
// single transaction. Either both writes commit or neither does; a failed
// call is safe to retry as a whole.
func (db *DB) ApplyReview(ctx context.Context, delta ProgressDelta, event domain.ReviewEvent) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin review transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO item_progress (
			learner_id, item_id, mastery_level, correct_count, wrong_count,
			last_practiced_at, next_due_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(learner_id, item_id) DO UPDATE SET
			mastery_level     = excluded.mastery_level,
			correct_count     = item_progress.correct_count + excluded.correct_count,
			wrong_count       = item_progress.wrong_count + excluded.wrong_count,
			last_practiced_at = excluded.last_practiced_at,
			next_due_at       = excluded.next_due_at
	`,
		delta.LearnerID,
		delta.ItemID,
		delta.MasteryLevel,
		delta.CorrectDelta,
		delta.WrongDelta,
		delta.LastPracticedAt,
		delta.NextDueAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert progress for %s/%s: %w", delta.LearnerID, delta.ItemID, err)
	}

	if err := insertEvent(ctx, tx, event); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit review for %s/%s: %w", delta.LearnerID, delta.ItemID, err)
	}
	return nil
}

// GetProgress retrieves the progress row for a (learner, item) pair.
// Returns nil when the learner has never answered the item.
func (db *DB) GetProgress(ctx context.Context, learnerID, itemID string) (*domain.ItemProgress, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT learner_id, item_id, mastery_level, correct_count, wrong_count,
		       last_practiced_at, next_due_at
		FROM item_progress WHERE learner_id = ? AND item_id = ?
	`, learnerID, itemID)

	var p domain.ItemProgress
	err := row.Scan(
		&p.LearnerID,
		&p.ItemID,
		&p.MasteryLevel,
		&p.CorrectCount,
		&p.WrongCount,
		&p.LastPracticedAt,
		&p.NextDueAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Progress not found
		}
		return nil, fmt.Errorf("failed to get progress for %s/%s: %w", learnerID, itemID, err)
	}
	return &p, nil
}

// ListProgressByLearner retrieves all progress rows for a learner.
func (db *DB) ListProgressByLearner(ctx context.Context, learnerID string) ([]domain.ItemProgress, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT learner_id, item_id, mastery_level, correct_count, wrong_count,
		       last_practiced_at, next_due_at
		FROM item_progress WHERE learner_id = ?
	`, learnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress for %s: %w", learnerID, err)
	}
	defer rows.Close()

	return scanProgressRows(rows)
}

// ListProgressDueBefore retrieves a learner's progress rows with
// next_due_at at or before cutoff, most overdue first.
func (db *DB) ListProgressDueBefore(ctx context.Context, learnerID string, cutoff time.Time) ([]domain.ItemProgress, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT learner_id, item_id, mastery_level, correct_count, wrong_count,
		       last_practiced_at, next_due_at
		FROM item_progress
		WHERE learner_id = ? AND next_due_at <= ?
		ORDER BY next_due_at ASC
	`, learnerID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list due progress for %s: %w", learnerID, err)
	}
	defer rows.Close()

	return scanProgressRows(rows)
}

func scanProgressRows(rows *sql.Rows) ([]domain.ItemProgress, error) {
	var progress []domain.ItemProgress
	for rows.Next() {
		var p domain.ItemProgress
		if err := rows.Scan(
			&p.LearnerID,
			&p.ItemID,
			&p.MasteryLevel,
			&p.CorrectCount,
			&p.WrongCount,
			&p.LastPracticedAt,
			&p.NextDueAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan progress row: %w", err)
		}
		progress = append(progress, p)
	}
	return progress, rows.Err()
}
