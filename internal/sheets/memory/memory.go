package memory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"ledgerlens/internal/report"
	"ledgerlens/internal/sheets"
)

// Store keeps exported reports in memory. It backs the memory export
// backend and tests.
type Store struct {
	mu      sync.Mutex
	exports [][][]any
	reports []string
}

func New() *Store {
	return &Store{}
}

// Export lays the evaluation out as rows and returns a synthetic reference.
func (s *Store) Export(_ context.Context, ev report.Evaluation) (string, error) {
	if ev.ReportID == "" {
		return "", fmt.Errorf("export: evaluation has no report id")
	}
	rows := sheets.Rows(ev)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exports = append(s.exports, rows)
	s.reports = append(s.reports, ev.ReportID)
	return fmt.Sprintf("mem:%d", len(s.exports)), nil
}

// Exported returns the rows written under ref.
func (s *Store) Exported(_ context.Context, ref string) ([][]any, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(ref, "mem:"))
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil || !strings.HasPrefix(ref, "mem:") || n < 1 || n > len(s.exports) {
		return nil, fmt.Errorf("unknown export reference %q", ref)
	}
	return s.exports[n-1], nil
}

// Reports returns the report ids exported so far, oldest first.
func (s *Store) Reports() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.reports...)
}

var (
	_ sheets.ReportExporter = (*Store)(nil)
	_ sheets.ExportReader   = (*Store)(nil)
)
