package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ledgerlens/internal/filters"
	"ledgerlens/internal/report"
)

// SavedFilter is a named journal filter referenced by reports.
type SavedFilter struct {
	ID        string                `json:"id"`
	Title     string                `json:"title"`
	Filter    filters.JournalFilter `json:"filter"`
	CreatedAt string                `json:"createdAt"`
}

// SaveFilter stores a journal filter under a new id.
func (r *SQLiteRepository) SaveFilter(ctx context.Context, title string, f filters.JournalFilter) (string, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("encode saved filter: %w", err)
	}
	id := uuid.NewString()
	if _, err := r.db.ExecContext(ctx,
		"INSERT INTO saved_filter (id, title, filter) VALUES (?, ?, ?)", id, title, string(data)); err != nil {
		return "", fmt.Errorf("insert saved filter: %w", err)
	}
	r.logger.InfoContext(ctx, "Saved filter created", "id", id, "title", title)
	return id, nil
}

// SavedFilter implements report.SavedFilters.
func (r *SQLiteRepository) SavedFilter(ctx context.Context, id string) (filters.JournalFilter, error) {
	var data string
	err := r.db.QueryRowContext(ctx, "SELECT filter FROM saved_filter WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return filters.JournalFilter{}, fmt.Errorf("saved filter %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return filters.JournalFilter{}, fmt.Errorf("read saved filter: %w", err)
	}

	var f filters.JournalFilter
	if err := json.Unmarshal([]byte(data), &f); err != nil {
		return filters.JournalFilter{}, fmt.Errorf("decode saved filter %s: %w", id, err)
	}
	return f, nil
}

// ListSavedFilters returns every saved filter ordered by title.
func (r *SQLiteRepository) ListSavedFilters(ctx context.Context) ([]SavedFilter, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, title, filter, created_at FROM saved_filter ORDER BY title, id")
	if err != nil {
		return nil, fmt.Errorf("list saved filters: %w", err)
	}
	defer rows.Close()

	var out []SavedFilter
	for rows.Next() {
		var sf SavedFilter
		var data string
		if err := rows.Scan(&sf.ID, &sf.Title, &data, &sf.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan saved filter: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &sf.Filter); err != nil {
			return nil, fmt.Errorf("decode saved filter %s: %w", sf.ID, err)
		}
		out = append(out, sf)
	}
	return out, rows.Err()
}

// DeleteSavedFilter removes a saved filter.
func (r *SQLiteRepository) DeleteSavedFilter(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "saved_filter", id)
}

func (r *SQLiteRepository) deleteByID(ctx context.Context, table, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s %s: %w", table, id, ErrNotFound)
	}
	return nil
}

// ReportSummary identifies a saved report.
type ReportSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	UpdatedAt string `json:"updatedAt"`
}

// SaveReport inserts or replaces a report definition. A definition without
// an id is given a new one, which is returned.
func (r *SQLiteRepository) SaveReport(ctx context.Context, def report.Definition) (string, error) {
	if err := def.Validate(); err != nil {
		return "", fmt.Errorf("validate report: %w", err)
	}
	if def.ID == "" {
		def.ID = uuid.NewString()
	}
	data, err := def.Marshal()
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO saved_report (id, title, definition) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			definition = excluded.definition,
			updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')`,
		def.ID, def.Title, string(data))
	if err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}
	r.logger.InfoContext(ctx, "Report saved", "report_id", def.ID, "title", def.Title)
	return def.ID, nil
}

// Report loads a saved report definition.
func (r *SQLiteRepository) Report(ctx context.Context, id string) (report.Definition, error) {
	var data string
	err := r.db.QueryRowContext(ctx, "SELECT definition FROM saved_report WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return report.Definition{}, fmt.Errorf("report %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return report.Definition{}, fmt.Errorf("read report: %w", err)
	}

	def, err := report.ParseDefinition([]byte(data))
	if err != nil {
		return report.Definition{}, fmt.Errorf("report %s: %w", id, err)
	}
	def.ID = id
	return def, nil
}

// ListReports returns every saved report ordered by title.
func (r *SQLiteRepository) ListReports(ctx context.Context) ([]ReportSummary, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, title, updated_at FROM saved_report ORDER BY title, id")
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []ReportSummary
	for rows.Next() {
		var s ReportSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteReport removes a saved report.
func (r *SQLiteRepository) DeleteReport(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "saved_report", id)
}
