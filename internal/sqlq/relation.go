package sqlq

import "fmt"

// LinkKind names a kind of linked record counted against an entity row.
type LinkKind string

const (
	LinkFile     LinkKind = "file"
	LinkNote     LinkKind = "note"
	LinkReminder LinkKind = "reminder"
)

// Relation is a named table or view that filter fields bind columns against.
type Relation interface {
	// Name is the relation name used in FROM.
	Name() string
	// Col qualifies a column with the relation name.
	Col(column string) string
	// Summary reports whether the relation exposes pre-aggregated
	// count, sum, first_date and last_date columns.
	Summary() bool
	// LinkCount is an expression that is NULL when no linked records exist
	// and the positive count otherwise.
	LinkCount(kind LinkKind) string
}

// View is a plain relation. Linked counts are computed with correlated
// subqueries through associated_info using LinkColumn.
type View struct {
	Table      string
	LinkColumn string
}

func (v View) Name() string { return v.Table }

func (v View) Col(column string) string { return v.Table + "." + column }

func (v View) Summary() bool { return false }

func (v View) LinkCount(kind LinkKind) string {
	switch kind {
	case LinkNote, LinkReminder:
		cond := ""
		if kind == LinkReminder {
			cond = " AND n.type = 'reminder'"
		}
		return fmt.Sprintf(
			"NULLIF((SELECT COUNT(*) FROM note n JOIN associated_info ai ON n.associated_info_id = ai.id WHERE ai.%s = %s%s), 0)",
			v.LinkColumn, v.Col("id"), cond)
	default:
		return fmt.Sprintf(
			"NULLIF((SELECT COUNT(*) FROM file f JOIN associated_info ai ON f.associated_info_id = ai.id WHERE ai.%s = %s), 0)",
			v.LinkColumn, v.Col("id"))
	}
}

// Materialized is an aggregate relation exposing summary and link count
// columns directly.
type Materialized struct {
	Table string
}

func (m Materialized) Name() string { return m.Table }

func (m Materialized) Col(column string) string { return m.Table + "." + column }

func (m Materialized) Summary() bool { return true }

func (m Materialized) LinkCount(kind LinkKind) string {
	return m.Col(string(kind) + "_count")
}
