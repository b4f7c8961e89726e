package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"ledgerlens/internal/log"
	"ledgerlens/internal/report"
	"ledgerlens/internal/sqlq"
)

const journalView = "journal_view"

// DateBounds implements report.AggregateSource.
func (r *SQLiteRepository) DateBounds(ctx context.Context) (string, string, error) {
	var first, last sql.NullString
	err := r.db.QueryRowContext(ctx, "SELECT MIN(date), MAX(date) FROM "+journalView).Scan(&first, &last)
	if err != nil {
		return "", "", fmt.Errorf("read journal date bounds: %w", err)
	}
	return first.String, last.String, nil
}

func aggregateQuery(q report.AggregateQuery) (string, []any, error) {
	var groups []string
	for _, col := range q.GroupBy {
		if err := checkIdentifier(col); err != nil {
			return "", nil, err
		}
		groups = append(groups, journalView+"."+col)
	}
	if q.ByDate {
		groups = append(groups, journalView+".date")
	}

	sel := make([]string, 0, len(groups)+4)
	for _, g := range groups {
		sel = append(sel, "COALESCE("+g+", '')")
	}
	sel = append(sel,
		"COALESCE(SUM(journal_view.amount), 0)",
		"COUNT(*)",
		"COALESCE(MIN(journal_view.amount), 0)",
		"COALESCE(MAX(journal_view.amount), 0)")

	where, args := sqlq.Where(q.Where)
	stmt := "SELECT " + strings.Join(sel, ", ") + " FROM " + journalView + where
	if len(groups) > 0 {
		list := strings.Join(groups, ", ")
		stmt += " GROUP BY " + list + " ORDER BY " + list
	}
	return stmt, args, nil
}

// Aggregate implements report.AggregateSource.
func (r *SQLiteRepository) Aggregate(ctx context.Context, q report.AggregateQuery) ([]report.AggregateRow, error) {
	stmt, args, err := aggregateQuery(q)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("aggregate journal: %w", err)
	}
	defer rows.Close()

	width := len(q.GroupBy)
	var out []report.AggregateRow
	for rows.Next() {
		row := report.AggregateRow{Groups: make([]string, width)}
		dest := make([]any, 0, width+5)
		for i := range row.Groups {
			dest = append(dest, &row.Groups[i])
		}
		if q.ByDate {
			dest = append(dest, &row.Date)
		}
		dest = append(dest, &row.Sum, &row.Count, &row.Min, &row.Max)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan aggregate row: %w", err)
		}
		// An ungrouped aggregate over no rows still yields one row.
		if row.Count == 0 {
			continue
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aggregate rows: %w", err)
	}

	r.logger.TraceContext(ctx, "Journal aggregated",
		log.FieldRows, len(out),
		log.FieldDuration, time.Since(start).Milliseconds())
	return out, nil
}
