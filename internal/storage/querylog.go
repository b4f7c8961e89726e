package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// QueryLogEntry describes one executed entity query.
type QueryLogEntry struct {
	Title    string
	Entity   string
	SQL      string
	Duration time.Duration
	Rows     int
}

const queryLogTime = "2006-01-02T15:04:05Z"

// LogQuery appends an entry to query_log and returns its id.
func (r *SQLiteRepository) LogQuery(ctx context.Context, e QueryLogEntry) (string, error) {
	id := uuid.NewString()
	ms := float64(e.Duration) / float64(time.Millisecond)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO query_log (id, title, entity, query_sql, time, duration_ms, row_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, e.Title, e.Entity, e.SQL, r.now().UTC().Format(queryLogTime), ms, e.Rows)
	if err != nil {
		return "", fmt.Errorf("insert query log: %w", err)
	}
	return id, nil
}
