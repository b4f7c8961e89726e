package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ledgerlens/internal/filters"
	"ledgerlens/internal/log"
	"ledgerlens/internal/report"
	"ledgerlens/internal/storage"
)

const testLedger = `
accounts:
  - {id: acc-checking, title: Checking, type: asset, cash: true}
  - {id: acc-savings, title: Savings, type: asset}
categories:
  - {id: cat-food, title: Food}
journal:
  - {id: j1, date: 2024-01-05, description: Coffee, amount: -4.5, account: acc-checking, category: cat-food}
  - {id: j2, date: 2024-01-20, description: Lunch, amount: -12, account: acc-checking, category: cat-food}
  - {id: j3, date: 2024-02-01, description: Interest, amount: 3, account: acc-savings}
`

const testReport = `
id: january
title: January
range: {start: 2024-01-01, end: 2024-01-31}
elements:
  - title: Entries
    type: math
    mathConfig: "{single.filterall.withinrange.count}"
`

type testApp struct {
	*App
	out *bytes.Buffer
	dir string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "ledger.db")
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	out := &bytes.Buffer{}
	app := &App{
		Repo:   repo,
		DBPath: dbPath,
		Out:    out,
		Logger: log.New(log.Config{Output: io.Discard}),
		Now:    func() time.Time { return time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC) },
	}
	return &testApp{App: app, out: out, dir: dir}
}

func (a *testApp) writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(a.dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// run executes a command and returns its output.
func (a *testApp) run(t *testing.T, args ...string) string {
	t.Helper()
	a.out.Reset()
	if err := a.Run(context.Background(), args); err != nil {
		t.Fatalf("Run(%q): %v", args, err)
	}
	return a.out.String()
}

func (a *testApp) seed(t *testing.T) {
	t.Helper()
	out := a.run(t, "import", a.writeFile(t, "ledger.yaml", testLedger))
	if !strings.Contains(out, "3 journal entries") {
		t.Fatalf("unexpected import output %q", out)
	}
}

func TestUsageErrors(t *testing.T) {
	app := newTestApp(t)
	tests := []struct {
		name string
		args []string
	}{
		{"no command", nil},
		{"unknown command", []string{"frobnicate"}},
		{"unknown entity", []string{"query", "-entity", "payee", "x"}},
		{"bad flag", []string{"query", "-nope"}},
		{"report without subcommand", []string{"report"}},
		{"report run without source", []string{"report", "run"}},
		{"report run with both sources", []string{"report", "run", "-id", "a", "-file", "b"}},
		{"filter save without title", []string{"filter", "save", "payee:x"}},
		{"import without file", []string{"import"}},
		{"request without id", []string{"request"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := app.Run(context.Background(), tt.args)
			if !errors.Is(err, ErrUsage) {
				t.Errorf("Run(%q) error = %v, want ErrUsage", tt.args, err)
			}
		})
	}
}

func TestHelp(t *testing.T) {
	app := newTestApp(t)
	if out := app.run(t, "help"); !strings.Contains(out, "usage: ledgerlens") {
		t.Errorf("unexpected help %q", out)
	}
}

func TestMigrate(t *testing.T) {
	app := newTestApp(t)
	if out := app.run(t, "migrate"); out != "schema version 1\n" {
		t.Errorf("migrate output = %q", out)
	}
}

func TestDescribe(t *testing.T) {
	app := newTestApp(t)
	app.seed(t)

	if out := app.run(t, "describe", "-entity", "account"); strings.TrimSpace(out) != filters.ShowingAll {
		t.Errorf("empty filter described as %q", out)
	}
	out := app.run(t, "describe", "-entity", "account", "id:acc-checking")
	if !strings.Contains(out, "Checking") || strings.Contains(out, "acc-checking") {
		t.Errorf("id not resolved to its title: %q", out)
	}
}

func TestQueryRecordsQueryLog(t *testing.T) {
	app := newTestApp(t)
	app.seed(t)

	out := app.run(t, "query", "-entity", "account", "id:acc-checking")
	if !strings.Contains(out, "acc-checking") || !strings.Contains(out, "Checking") || strings.Contains(out, "Savings") {
		t.Errorf("unexpected query output %q", out)
	}

	out = app.run(t, "query", "-entity", "query_log", "contains:account_view")
	if !strings.Contains(out, "id:acc-checking") {
		t.Errorf("query log missing first query: %q", out)
	}
}

func TestQueryShowSQL(t *testing.T) {
	app := newTestApp(t)
	out := app.run(t, "query", "-entity", "account", "-sql", "-limit", "5", "id:acc-checking")
	if !strings.HasPrefix(out, "SELECT ") || !strings.Contains(out, "LIMIT ?") {
		t.Errorf("unexpected statement %q", out)
	}
	if !strings.Contains(out, "= acc-checking") || !strings.Contains(out, "= 5") {
		t.Errorf("arguments not printed: %q", out)
	}

	app.out.Reset()
	rows, err := app.Repo.Find(context.Background(), filters.Relation(filters.EntityQueryLog, filters.TargetView), nil, 0)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("printing SQL recorded %d queries", len(rows))
	}
}

func TestReportCommands(t *testing.T) {
	app := newTestApp(t)
	app.seed(t)
	file := app.writeFile(t, "report.yaml", testReport)

	decode := func(t *testing.T, out string) report.Evaluation {
		t.Helper()
		var ev report.Evaluation
		if err := json.Unmarshal([]byte(out), &ev); err != nil {
			t.Fatalf("decode evaluation: %v\n%s", err, out)
		}
		return ev
	}

	ev := decode(t, app.run(t, "report", "run", "-file", file))
	if len(ev.Elements) != 1 || ev.Elements[0].Number == nil || ev.Elements[0].Number.Value != 2 {
		t.Errorf("file evaluation = %+v", ev)
	}

	if id := strings.TrimSpace(app.run(t, "report", "save", file)); id != "january" {
		t.Errorf("saved id = %q", id)
	}
	if out := app.run(t, "report", "list"); !strings.Contains(out, "january") || !strings.Contains(out, "January") {
		t.Errorf("report list = %q", out)
	}

	ev = decode(t, app.run(t, "report", "run", "-id", "january"))
	if ev.ReportID != "january" || ev.Range != (report.DateRange{Start: "2024-01-01", End: "2024-01-31"}) {
		t.Errorf("saved evaluation = %+v", ev)
	}

	app.run(t, "report", "delete", "january")
	if err := app.Run(context.Background(), []string{"report", "run", "-id", "january"}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestFilterCommands(t *testing.T) {
	app := newTestApp(t)

	id := strings.TrimSpace(app.run(t, "filter", "save", "-title", "Food", "category:cat-food"))
	if id == "" {
		t.Fatal("no id printed")
	}
	out := app.run(t, "filter", "list")
	if !strings.Contains(out, id) || !strings.Contains(out, "category:cat-food") {
		t.Errorf("filter list = %q", out)
	}

	app.run(t, "filter", "delete", id)
	if out := app.run(t, "filter", "list"); strings.Contains(out, id) {
		t.Errorf("filter still listed after delete: %q", out)
	}
}

type fakeRequests struct {
	reportID string
	export   bool
	closed   bool
}

func (f *fakeRequests) PublishReportRequest(_ context.Context, reportID string, export bool) (string, error) {
	f.reportID, f.export = reportID, export
	return "req-1", nil
}

func (f *fakeRequests) Close() error {
	f.closed = true
	return nil
}

func TestRequest(t *testing.T) {
	app := newTestApp(t)
	if err := app.Run(context.Background(), []string{"request", "-id", "january"}); err == nil {
		t.Error("expected error without a broker")
	}

	pub := &fakeRequests{}
	app.Dial = func() (RequestPublisher, error) { return pub, nil }

	if err := app.Run(context.Background(), []string{"request", "-id", "january"}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unsaved report, got %v", err)
	}

	app.run(t, "report", "save", app.writeFile(t, "report.yaml", testReport))
	if out := app.run(t, "request", "-id", "january", "-export"); strings.TrimSpace(out) != "req-1" {
		t.Errorf("request output = %q", out)
	}
	if pub.reportID != "january" || !pub.export || !pub.closed {
		t.Errorf("unexpected publish %+v", pub)
	}
}
