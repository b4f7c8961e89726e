package worker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"ledgerlens/internal/amqp"
	"ledgerlens/internal/filters"
	"ledgerlens/internal/report"
	"ledgerlens/internal/sheets/memory"
	"ledgerlens/internal/storage"
)

type fakeStore struct {
	reports    map[string]report.Definition
	rows       []report.AggregateRow
	refreshErr error

	mu        sync.Mutex
	refreshes int
}

func (s *fakeStore) DateBounds(context.Context) (string, string, error) {
	return "2024-01-01", "2024-01-31", nil
}

func (s *fakeStore) Aggregate(context.Context, report.AggregateQuery) ([]report.AggregateRow, error) {
	return s.rows, nil
}

func (s *fakeStore) SavedFilter(_ context.Context, id string) (filters.JournalFilter, error) {
	return filters.JournalFilter{}, storage.ErrNotFound
}

func (s *fakeStore) Report(_ context.Context, id string) (report.Definition, error) {
	def, ok := s.reports[id]
	if !ok {
		return report.Definition{}, storage.ErrNotFound
	}
	return def, nil
}

func (s *fakeStore) ListReports(context.Context) ([]storage.ReportSummary, error) {
	var out []storage.ReportSummary
	for id, def := range s.reports {
		out = append(out, storage.ReportSummary{ID: id, Title: def.Title})
	}
	return out, nil
}

func (s *fakeStore) RefreshSummaries(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshes++
	return s.refreshErr
}

type fakePublisher struct {
	mu      sync.Mutex
	results []*amqp.ReportResultMessage
	err     error
}

func (p *fakePublisher) PublishReportResult(_ context.Context, msg *amqp.ReportResultMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.results = append(p.results, msg)
	return nil
}

type failingExporter struct{}

func (failingExporter) Export(context.Context, report.Evaluation) (string, error) {
	return "", errors.New("sheet unavailable")
}

func newStore() *fakeStore {
	return &fakeStore{
		rows: []report.AggregateRow{{Date: "2024-01-10", Sum: 40, Count: 1, Min: 40, Max: 40}},
		reports: map[string]report.Definition{
			"double": {
				ID:    "double",
				Title: "Double",
				Elements: []report.Element{
					{Title: "Twice", Type: report.ElementMath, MathConfig: "{single.filterall.withinrange.sum} * 2"},
				},
			},
			"saved": {
				ID:            "saved",
				Title:         "Uses a saved filter",
				ReportFilters: []report.FilterRef{{Saved: "gone"}},
				Elements:      []report.Element{{Title: "One", Type: report.ElementMath, MathConfig: "1"}},
			},
		},
	}
}

func fixedNow() time.Time { return time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC) }

func TestHandleReportRequest(t *testing.T) {
	tests := []struct {
		name      string
		reportID  string
		wantError string
		wantValue float64
	}{
		{name: "evaluates report", reportID: "double", wantValue: 80},
		{name: "unknown report", reportID: "absent", wantError: "not found"},
		{name: "missing saved filter", reportID: "saved", wantError: "load saved filter gone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &fakePublisher{}
			w := NewReportWorker(newStore(), pub, Options{})
			w.now = fixedNow

			req := amqp.NewReportRequestMessage(tt.reportID, false)
			if err := w.HandleReportRequest(context.Background(), req); err != nil {
				t.Fatalf("HandleReportRequest() error = %v", err)
			}
			if len(pub.results) != 1 {
				t.Fatalf("published %d results, want 1", len(pub.results))
			}
			res := pub.results[0]
			if res.RequestID != req.RequestID || res.ReportID != tt.reportID {
				t.Errorf("result not correlated: %+v", res)
			}
			if !res.EvaluatedAt.Equal(fixedNow()) {
				t.Errorf("EvaluatedAt = %v", res.EvaluatedAt)
			}

			if tt.wantError != "" {
				if !strings.Contains(res.Error, tt.wantError) {
					t.Errorf("Error = %q, want containing %q", res.Error, tt.wantError)
				}
				if len(res.Elements) != 0 {
					t.Errorf("failure carried elements: %+v", res.Elements)
				}
				return
			}
			if res.Error != "" {
				t.Fatalf("unexpected error %q", res.Error)
			}
			if len(res.Elements) != 1 || res.Elements[0].Number == nil || res.Elements[0].Number.Value != tt.wantValue {
				t.Errorf("Elements = %+v", res.Elements)
			}
			if _, ok := w.Cached(tt.reportID); !ok {
				t.Error("evaluation was not cached")
			}
		})
	}
}

func TestHandleReportRequestPublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("circuit breaker is open")}
	w := NewReportWorker(newStore(), pub, Options{})

	err := w.HandleReportRequest(context.Background(), amqp.NewReportRequestMessage("double", false))
	if err == nil || !strings.Contains(err.Error(), "publish result") {
		t.Fatalf("expected publish error, got %v", err)
	}
}

func TestHandleReportRequestExport(t *testing.T) {
	t.Run("exports when asked", func(t *testing.T) {
		exp := memory.New()
		pub := &fakePublisher{}
		w := NewReportWorker(newStore(), pub, Options{Exporter: exp})

		if err := w.HandleReportRequest(context.Background(), amqp.NewReportRequestMessage("double", true)); err != nil {
			t.Fatalf("HandleReportRequest() error = %v", err)
		}
		if got := exp.Reports(); len(got) != 1 || got[0] != "double" {
			t.Errorf("exported %v", got)
		}
		if len(pub.results) != 1 {
			t.Errorf("published %d results", len(pub.results))
		}
	})

	t.Run("skips export when not asked", func(t *testing.T) {
		exp := memory.New()
		w := NewReportWorker(newStore(), &fakePublisher{}, Options{Exporter: exp})

		if err := w.HandleReportRequest(context.Background(), amqp.NewReportRequestMessage("double", false)); err != nil {
			t.Fatalf("HandleReportRequest() error = %v", err)
		}
		if got := exp.Reports(); len(got) != 0 {
			t.Errorf("exported %v", got)
		}
	})

	t.Run("export failure still publishes", func(t *testing.T) {
		pub := &fakePublisher{}
		w := NewReportWorker(newStore(), pub, Options{Exporter: failingExporter{}})

		if err := w.HandleReportRequest(context.Background(), amqp.NewReportRequestMessage("double", true)); err != nil {
			t.Fatalf("HandleReportRequest() error = %v", err)
		}
		if len(pub.results) != 1 || pub.results[0].Error != "" {
			t.Errorf("unexpected results %+v", pub.results)
		}
	})
}

func TestRefresh(t *testing.T) {
	store := newStore()
	w := NewReportWorker(store, nil, Options{Concurrency: 2})

	stats, err := w.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if stats.Reports != 2 || stats.Failed != 1 {
		t.Errorf("stats = %+v, want 2 reports with 1 failure", stats)
	}
	if store.refreshes != 1 {
		t.Errorf("summaries refreshed %d times", store.refreshes)
	}
	ev, ok := w.Cached("double")
	if !ok || ev.Elements[0].Number.Value != 80 {
		t.Errorf("cached evaluation = %+v, %v", ev, ok)
	}
	if _, ok := w.Cached("saved"); ok {
		t.Error("failed report was cached")
	}
}

func TestRefreshSummariesError(t *testing.T) {
	store := newStore()
	store.refreshErr = errors.New("disk full")
	w := NewReportWorker(store, nil, Options{})

	if _, err := w.Refresh(context.Background()); err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected refresh error, got %v", err)
	}
	if _, ok := w.Cached("double"); ok {
		t.Error("reports evaluated after summary refresh failed")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	store := newStore()
	w := NewReportWorker(store, nil, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if store.refreshes < 2 {
		t.Errorf("expected startup and periodic refreshes, got %d", store.refreshes)
	}
}
