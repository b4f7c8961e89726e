package storage

import (
	"context"
	"fmt"
	"time"

	"ledgerlens/internal/log"
)

// summarySources maps each summarised entity to the journal aggregate feeding
// its summary table.
var summarySources = []struct {
	entity  string
	journal string
}{
	{"account", journalTotals("account_id", "journal")},
	{"bill", journalTotals("bill_id", "journal")},
	{"budget", journalTotals("budget_id", "journal")},
	{"category", journalTotals("category_id", "journal")},
	{"tag", journalTotals("tag_id", "journal")},
	{"label", `SELECT jl.label_id AS id, COUNT(*) AS count, SUM(j.amount) AS sum, MIN(j.date) AS first_date, MAX(j.date) AS last_date
		FROM journal_label jl JOIN journal j ON j.id = jl.journal_id GROUP BY jl.label_id`},
}

func journalTotals(column, table string) string {
	return fmt.Sprintf(`SELECT %[1]s AS id, COUNT(*) AS count, SUM(amount) AS sum, MIN(date) AS first_date, MAX(date) AS last_date
		FROM %[2]s WHERE %[1]s IS NOT NULL GROUP BY %[1]s`, column, table)
}

func refreshStatement(entity, totals string) string {
	return fmt.Sprintf(`INSERT INTO %[1]s_materialized_view
SELECT e.*,
	COALESCE(s.count, 0),
	COALESCE(s.sum, 0),
	s.first_date,
	s.last_date,
	NULLIF((SELECT COUNT(*) FROM file f JOIN associated_info ai ON f.associated_info_id = ai.id WHERE ai.%[1]s_id = e.id), 0),
	NULLIF((SELECT COUNT(*) FROM note n JOIN associated_info ai ON n.associated_info_id = ai.id WHERE ai.%[1]s_id = e.id), 0),
	NULLIF((SELECT COUNT(*) FROM note n JOIN associated_info ai ON n.associated_info_id = ai.id WHERE ai.%[1]s_id = e.id AND n.type = 'reminder'), 0)
FROM %[1]s e
LEFT JOIN (%[2]s) s ON s.id = e.id`, entity, totals)
}

// RefreshSummaries rebuilds every <entity>_materialized_view table from the
// journal and linked records in one transaction.
func (r *SQLiteRepository) RefreshSummaries(ctx context.Context) error {
	start := time.Now()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin refresh: %w", err)
	}
	defer tx.Rollback()

	for _, s := range summarySources {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+s.entity+"_materialized_view"); err != nil {
			return fmt.Errorf("clear %s summaries: %w", s.entity, err)
		}
		if _, err := tx.ExecContext(ctx, refreshStatement(s.entity, s.journal)); err != nil {
			return fmt.Errorf("refresh %s summaries: %w", s.entity, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit refresh: %w", err)
	}

	r.logger.InfoContext(ctx, "Summaries refreshed",
		log.FieldOperation, log.OpRefresh,
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}
