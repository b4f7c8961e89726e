// Package storage is the SQLite store behind filters and reports: ledger
// entities, their views and summary tables, saved filters and reports, and
// the query log.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"ledgerlens/internal/log"
	"ledgerlens/internal/sqlq"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a saved filter or report does not exist.
var ErrNotFound = errors.New("not found")

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
	now    func() time.Time
}

// NewSQLiteRepository opens the database at dbPath, creating its directory,
// and applies pending migrations.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:     db,
		logger: log.Default(log.ComponentStorage),
		now:    time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

var identifier = regexp.MustCompile(`^[a-z_]+$`)

func checkIdentifier(name string) error {
	if !identifier.MatchString(name) {
		return fmt.Errorf("invalid identifier %q", name)
	}
	return nil
}

// Row is one record returned by Find.
type Row struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Find returns the id and title of every row of rel matching where, ordered
// by title. A limit of zero or less returns every row.
func (r *SQLiteRepository) Find(ctx context.Context, rel sqlq.Relation, where []sqlq.Fragment, limit int) ([]Row, error) {
	query, args, err := findQuery(rel, where, limit)
	if err != nil {
		return nil, err
	}

	r.logger.TraceContext(ctx, "Find query", log.FieldEntity, rel.Name(), "sql", query)

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", rel.Name(), err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var row Row
		var title sql.NullString
		if err := rows.Scan(&row.ID, &title); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", rel.Name(), err)
		}
		row.Title = title.String
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", rel.Name(), err)
	}

	r.logger.DebugContext(ctx, "Rows found",
		log.FieldEntity, rel.Name(),
		log.FieldRows, len(out),
		log.FieldDuration, time.Since(start).Milliseconds())
	return out, nil
}

// FindSQL renders the statement Find runs, with placeholders.
func FindSQL(rel sqlq.Relation, where []sqlq.Fragment, limit int) (string, []any, error) {
	return findQuery(rel, where, limit)
}

func findQuery(rel sqlq.Relation, where []sqlq.Fragment, limit int) (string, []any, error) {
	if err := checkIdentifier(rel.Name()); err != nil {
		return "", nil, err
	}
	clause, args := sqlq.Where(where)
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s, %s FROM %s%s ORDER BY %s, %s",
		rel.Col("id"), rel.Col("title"), rel.Name(), clause, rel.Col("title"), rel.Col("id"))
	if limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, limit)
	}
	return b.String(), args, nil
}
