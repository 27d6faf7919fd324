package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/conorfennell/recallbox/internal/domain"
)

// Source represents a catalog source, either a local path or a git URL.
type Source struct {
	ID          int64
	Path        string
	Kind        string // "local" or "git"
	LastScanned sql.NullTime
}

// InsertSource registers a new catalog source and returns its ID.
func (db *DB) InsertSource(ctx context.Context, path, kind string) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO sources (path, kind) VALUES (?, ?)
	`, path, kind)
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for source %s: %w", path, err)
	}
	return id, nil
}

// FindSourceByPath retrieves a source by its path. Returns nil when absent.
func (db *DB) FindSourceByPath(ctx context.Context, path string) (*Source, error) {
	var s Source
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, path, kind, last_scanned FROM sources WHERE path = ?
	`, path)
	err := row.Scan(&s.ID, &s.Path, &s.Kind, &s.LastScanned)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Source not found
		}
		return nil, fmt.Errorf("failed to find source by path %s: %w", path, err)
	}
	return &s, nil
}

// GetAllSources retrieves all registered catalog sources.
func (db *DB) GetAllSources(ctx context.Context) ([]Source, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, path, kind, last_scanned FROM sources
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.Path, &s.Kind, &s.LastScanned); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// UpdateSourceLastScanned stamps the last_scanned timestamp for a source.
func (db *DB) UpdateSourceLastScanned(ctx context.Context, sourceID int64, scannedAt time.Time) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE sources SET last_scanned = ? WHERE id = ?
	`, scannedAt, sourceID)
	if err != nil {
		return fmt.Errorf("failed to update last scanned for source ID %d: %w", sourceID, err)
	}
	return nil
}

// DeleteSource removes a source and its catalog entries.
func (db *DB) DeleteSource(ctx context.Context, sourceID int64) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin source delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM catalog_items WHERE source_id = ?`, sourceID); err != nil {
		return fmt.Errorf("failed to delete catalog items for source ID %d: %w", sourceID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, sourceID); err != nil {
		return fmt.Errorf("failed to delete source ID %d: %w", sourceID, err)
	}
	return tx.Commit()
}

// UpsertCatalogItem inserts or refreshes a vocabulary entry.
func (db *DB) UpsertCatalogItem(ctx context.Context, entry domain.Entry, sourceID int64) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO catalog_items (item_id, word, translation, category, source_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(item_id) DO UPDATE SET
			word        = excluded.word,
			translation = excluded.translation,
			category    = excluded.category,
			source_id   = excluded.source_id
	`, entry.ID, entry.Word, entry.Translation, entry.Category, sourceID)
	if err != nil {
		return fmt.Errorf("failed to upsert catalog item %s: %w", entry.ID, err)
	}
	return nil
}

// DeleteCatalogItem removes a catalog entry by ID.
func (db *DB) DeleteCatalogItem(ctx context.Context, itemID string) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM catalog_items WHERE item_id = ?`, itemID)
	if err != nil {
		return fmt.Errorf("failed to delete catalog item %s: %w", itemID, err)
	}
	return nil
}

// GetCatalogItemsBySource retrieves all entries associated with a source.
func (db *DB) GetCatalogItemsBySource(ctx context.Context, sourceID int64) ([]domain.Entry, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT item_id, word, translation, category
		FROM catalog_items WHERE source_id = ?
	`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog items for source ID %d: %w", sourceID, err)
	}
	defer rows.Close()

	return scanEntryRows(rows)
}

// CategoriesByItem returns the item_id -> category map for the whole
// catalog, the join input for category analytics.
func (db *DB) CategoriesByItem(ctx context.Context) (map[string]string, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT item_id, category FROM catalog_items
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog categories: %w", err)
	}
	defer rows.Close()

	categories := make(map[string]string)
	for rows.Next() {
		var itemID, category string
		if err := rows.Scan(&itemID, &category); err != nil {
			return nil, fmt.Errorf("failed to scan catalog category row: %w", err)
		}
		categories[itemID] = category
	}
	return categories, rows.Err()
}

func scanEntryRows(rows *sql.Rows) ([]domain.Entry, error) {
	var entries []domain.Entry
	for rows.Next() {
		var e domain.Entry
		if err := rows.Scan(&e.ID, &e.Word, &e.Translation, &e.Category); err != nil {
			return nil, fmt.Errorf("failed to scan catalog item row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
