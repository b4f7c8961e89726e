package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Record holds the columns shared by every status-tracked entity.
type Record struct {
	ID             string `yaml:"id"`
	Title          string `yaml:"title"`
	Status         string `yaml:"status,omitempty"`
	Disabled       bool   `yaml:"disabled,omitempty"`
	AllowUpdate    *bool  `yaml:"allowUpdate,omitempty"`
	Active         *bool  `yaml:"active,omitempty"`
	ImportID       string `yaml:"importId,omitempty"`
	ImportDetailID string `yaml:"importDetailId,omitempty"`
}

type Account struct {
	Record    `yaml:",inline"`
	Type      string `yaml:"type"`
	Cash      bool   `yaml:"cash,omitempty"`
	NetWorth  bool   `yaml:"netWorth,omitempty"`
	Group     string `yaml:"group,omitempty"`
	StartDate string `yaml:"startDate,omitempty"`
	EndDate   string `yaml:"endDate,omitempty"`
}

// Grouped is a category or tag.
type Grouped struct {
	Record `yaml:",inline"`
	Group  string `yaml:"group,omitempty"`
	Single string `yaml:"single,omitempty"`
}

type Journal struct {
	ID             string   `yaml:"id"`
	TransactionID  string   `yaml:"transactionId"`
	Date           string   `yaml:"date"`
	Description    string   `yaml:"description"`
	Payee          string   `yaml:"payee,omitempty"`
	Amount         float64  `yaml:"amount"`
	Account        string   `yaml:"account"`
	Tag            string   `yaml:"tag,omitempty"`
	Category       string   `yaml:"category,omitempty"`
	Bill           string   `yaml:"bill,omitempty"`
	Budget         string   `yaml:"budget,omitempty"`
	Labels         []string `yaml:"labels,omitempty"`
	Reconciled     bool     `yaml:"reconciled,omitempty"`
	Complete       bool     `yaml:"complete,omitempty"`
	DataChecked    bool     `yaml:"dataChecked,omitempty"`
	Linked         bool     `yaml:"linked,omitempty"`
	Transfer       bool     `yaml:"transfer,omitempty"`
	ImportID       string   `yaml:"importId,omitempty"`
	ImportDetailID string   `yaml:"importDetailId,omitempty"`
}

// AssociatedInfo links files and notes to ledger records.
type AssociatedInfo struct {
	ID       string `yaml:"id"`
	Title    string `yaml:"title,omitempty"`
	Account  string `yaml:"account,omitempty"`
	Bill     string `yaml:"bill,omitempty"`
	Budget   string `yaml:"budget,omitempty"`
	Category string `yaml:"category,omitempty"`
	Tag      string `yaml:"tag,omitempty"`
	Label    string `yaml:"label,omitempty"`
	Journal  string `yaml:"journal,omitempty"`
}

type File struct {
	Record         `yaml:",inline"`
	Filename       string `yaml:"filename"`
	Type           string `yaml:"type,omitempty"`
	Size           int64  `yaml:"size,omitempty"`
	AssociatedInfo string `yaml:"associatedInfo,omitempty"`
}

type Note struct {
	ID             string `yaml:"id"`
	Title          string `yaml:"title,omitempty"`
	Note           string `yaml:"note"`
	Type           string `yaml:"type,omitempty"`
	Complete       bool   `yaml:"complete,omitempty"`
	AssociatedInfo string `yaml:"associatedInfo,omitempty"`
}

// Ledger is a batch of records imported together.
type Ledger struct {
	Accounts   []Account        `yaml:"accounts,omitempty"`
	Bills      []Record         `yaml:"bills,omitempty"`
	Budgets    []Record         `yaml:"budgets,omitempty"`
	Labels     []Record         `yaml:"labels,omitempty"`
	Categories []Grouped        `yaml:"categories,omitempty"`
	Tags       []Grouped        `yaml:"tags,omitempty"`
	Journal    []Journal        `yaml:"journal,omitempty"`
	Associated []AssociatedInfo `yaml:"associated,omitempty"`
	Files      []File           `yaml:"files,omitempty"`
	Notes      []Note           `yaml:"notes,omitempty"`
}

// ParseLedger decodes a YAML ledger.
func ParseLedger(data []byte) (Ledger, error) {
	var l Ledger
	if err := yaml.Unmarshal(data, &l); err != nil {
		return Ledger{}, fmt.Errorf("decode ledger: %w", err)
	}
	return l, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}

func flagOr(b *bool, def bool) int {
	if b == nil {
		return flag(def)
	}
	return flag(*b)
}

func newID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func (rec Record) values() []any {
	return []any{
		newID(rec.ID), rec.Title, orDefault(rec.Status, "active"), flag(rec.Disabled),
		flagOr(rec.AllowUpdate, true), flagOr(rec.Active, true),
		nullable(rec.ImportID), nullable(rec.ImportDetailID),
	}
}

const recordColumns = "id, title, status, disabled, allow_update, active, import_id, import_detail_id"

// ImportStats counts the rows written by Import.
type ImportStats struct {
	Records int
	Journal int
}

// Import writes every record of l in one transaction and refreshes the
// summary tables.
func (r *SQLiteRepository) Import(ctx context.Context, l Ledger) (ImportStats, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return ImportStats{}, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	var stats ImportStats
	exec := func(what, stmt string, args ...any) error {
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("insert %s: %w", what, err)
		}
		stats.Records++
		return nil
	}

	for _, a := range l.Accounts {
		args := append(a.values(), orDefault(a.Type, "asset"), flag(a.Cash), flag(a.NetWorth),
			nullable(a.Group), nullable(a.StartDate), nullable(a.EndDate))
		if err := exec("account", "INSERT INTO account ("+recordColumns+
			", type, is_cash, is_net_worth, account_group, start_date, end_date) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			args...); err != nil {
			return ImportStats{}, err
		}
	}
	for table, recs := range map[string][]Record{"bill": l.Bills, "budget": l.Budgets, "label": l.Labels} {
		for _, rec := range recs {
			if err := exec(table, "INSERT INTO "+table+" ("+recordColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
				rec.values()...); err != nil {
				return ImportStats{}, err
			}
		}
	}
	for table, recs := range map[string][]Grouped{"category": l.Categories, "tag": l.Tags} {
		for _, g := range recs {
			args := append(g.values(), nullable(g.Group), nullable(g.Single))
			if err := exec(table, "INSERT INTO "+table+" ("+recordColumns+
				", group_name, single_name) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", args...); err != nil {
				return ImportStats{}, err
			}
		}
	}
	for _, j := range l.Journal {
		id := newID(j.ID)
		if err := insertJournal(ctx, tx, id, j); err != nil {
			return ImportStats{}, err
		}
		stats.Journal++
	}
	for _, ai := range l.Associated {
		if err := exec("associated info", `INSERT INTO associated_info
			(id, title, account_id, bill_id, budget_id, category_id, tag_id, label_id, journal_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			newID(ai.ID), ai.Title, nullable(ai.Account), nullable(ai.Bill), nullable(ai.Budget),
			nullable(ai.Category), nullable(ai.Tag), nullable(ai.Label), nullable(ai.Journal)); err != nil {
			return ImportStats{}, err
		}
	}
	for _, f := range l.Files {
		args := append(f.values(), f.Filename, orDefault(f.Type, "other"), f.Size, nullable(f.AssociatedInfo))
		if err := exec("file", "INSERT INTO file ("+recordColumns+
			", filename, type, size, associated_info_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", args...); err != nil {
			return ImportStats{}, err
		}
	}
	for _, n := range l.Notes {
		if err := exec("note", `INSERT INTO note (id, title, note, type, complete, associated_info_id)
			VALUES (?, ?, ?, ?, ?, ?)`,
			newID(n.ID), n.Title, n.Note, orDefault(n.Type, "info"), flag(n.Complete), nullable(n.AssociatedInfo)); err != nil {
			return ImportStats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return ImportStats{}, fmt.Errorf("commit import: %w", err)
	}
	if err := r.RefreshSummaries(ctx); err != nil {
		return stats, err
	}

	r.logger.InfoContext(ctx, "Ledger imported", "records", stats.Records, "journal", stats.Journal)
	return stats, nil
}

func insertJournal(ctx context.Context, tx *sql.Tx, id string, j Journal) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO journal
		(id, transaction_id, date, description, payee, amount, account_id, tag_id, category_id, bill_id, budget_id,
		 reconciled, complete, data_checked, linked, transfer, import_id, import_detail_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, orDefault(j.TransactionID, id), j.Date, j.Description, nullable(j.Payee), j.Amount, j.Account,
		nullable(j.Tag), nullable(j.Category), nullable(j.Bill), nullable(j.Budget),
		flag(j.Reconciled), flag(j.Complete), flag(j.DataChecked), flag(j.Linked), flag(j.Transfer),
		nullable(j.ImportID), nullable(j.ImportDetailID))
	if err != nil {
		return fmt.Errorf("insert journal %s: %w", id, err)
	}
	for _, label := range j.Labels {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO journal_label (journal_id, label_id) VALUES (?, ?)", id, label); err != nil {
			return fmt.Errorf("link journal %s to label %s: %w", id, label, err)
		}
	}
	return nil
}
