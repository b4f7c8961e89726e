package log

import (
	"context"
	"log/slog"
	"sort"
	"sync"
)

// Record is a structured diagnostic emitted by library code.
type Record struct {
	Code   string
	Title  string
	Fields map[string]any
}

// Sink receives diagnostic records. Emitters never depend on delivery.
type Sink interface {
	Record(ctx context.Context, level slog.Level, r Record)
}

type discard struct{}

func (discard) Record(context.Context, slog.Level, Record) {}

// Discard drops every record.
var Discard Sink = discard{}

// SlogSink delivers records to a Logger, with the code as a field and the
// title as the message.
type SlogSink struct {
	logger *Logger
}

// NewSlogSink creates a sink that writes through logger.
func NewSlogSink(logger *Logger) *SlogSink {
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Record(ctx context.Context, level slog.Level, r Record) {
	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, 2+len(keys)*2)
	args = append(args, FieldCode, r.Code)
	for _, k := range keys {
		args = append(args, k, r.Fields[k])
	}
	s.logger.LogContext(ctx, level, r.Title, args...)
}

// MemorySink keeps records in memory.
type MemorySink struct {
	mu      sync.Mutex
	records []Record
	levels  []slog.Level
}

func (m *MemorySink) Record(_ context.Context, level slog.Level, r Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	m.levels = append(m.levels, level)
}

// Records returns a copy of the stored records.
func (m *MemorySink) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Record(nil), m.records...)
}

// Codes returns the codes of the stored records in order.
func (m *MemorySink) Codes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	codes := make([]string, len(m.records))
	for i, r := range m.records {
		codes[i] = r.Code
	}
	return codes
}

// OrDiscard returns s, or Discard when s is nil.
func OrDiscard(s Sink) Sink {
	if s == nil {
		return Discard
	}
	return s
}
