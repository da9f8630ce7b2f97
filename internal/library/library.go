// Package library persists a catalog of completed downloads in SQLite.
//
// The catalog is written after each successful dispatch and read by the
// library command and the TUI. It is purely informational: a catalog failure
// is logged and never fails a dispatch, and the catalog is never consulted on
// the download path.
package library

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/podspot/internal/models"
	"github.com/desertthunder/podspot/internal/shared"
)

// Item is one cataloged download.
type Item struct {
	ID           string
	Artist       string
	Album        string
	Title        string
	TrackNumber  int
	Path         string
	DownloadedAt time.Time
}

// Repository provides access to the library_items table.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a Repository with the given database connection.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Add catalogs one output item. Items are deduplicated on file path: adding
// the same path twice is a no-op, not an error.
func (r *Repository) Add(item models.OutputItem) error {
	query := `
		INSERT INTO library_items (id, artist, album, title, track_number, file_path, downloaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		shared.GenerateID(),
		item.Artist,
		item.Album,
		item.Title,
		item.TrackNumber,
		item.Path,
		time.Now(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil
		}
		return fmt.Errorf("failed to insert library item: %w", err)
	}

	return nil
}

// AddBatch catalogs a set of output items from one dispatch, continuing past
// individual failures. Returns the first error encountered, if any.
func (r *Repository) AddBatch(items []models.OutputItem) error {
	var firstErr error
	for _, item := range items {
		if err := r.Add(item); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// List returns cataloged items ordered by album then track number. A limit of
// zero or less returns everything.
func (r *Repository) List(limit int) ([]Item, error) {
	query := `
		SELECT id, artist, album, title, track_number, file_path, downloaded_at
		FROM library_items
		ORDER BY artist, album, track_number
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query library: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.Artist, &item.Album, &item.Title,
			&item.TrackNumber, &item.Path, &item.DownloadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan library item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate library: %w", err)
	}

	return items, nil
}

// Count returns the number of cataloged items.
func (r *Repository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM library_items").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count library items: %w", err)
	}
	return count, nil
}
