package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"ledgerlens/internal/amqp"
	"ledgerlens/internal/cache"
	"ledgerlens/internal/format"
	"ledgerlens/internal/log"
	"ledgerlens/internal/report"
	"ledgerlens/internal/sheets"
	"ledgerlens/internal/storage"
)

// Store is the part of the repository the worker reads.
type Store interface {
	report.AggregateSource
	report.SavedFilters
	Report(ctx context.Context, id string) (report.Definition, error)
	ListReports(ctx context.Context) ([]storage.ReportSummary, error)
	RefreshSummaries(ctx context.Context) error
}

// ResultPublisher sends evaluated reports back to requesters.
type ResultPublisher interface {
	PublishReportResult(ctx context.Context, msg *amqp.ReportResultMessage) error
}

// Options tunes a ReportWorker. Zero values take defaults.
type Options struct {
	Format      *format.Formatter
	Exporter    sheets.ReportExporter
	Concurrency int
	CacheSize   int
	CacheTTL    time.Duration
}

// ReportWorker evaluates saved reports on request and on a schedule.
type ReportWorker struct {
	store       Store
	publisher   ResultPublisher
	exporter    sheets.ReportExporter
	format      *format.Formatter
	results     *cache.LRUCache[report.Evaluation]
	concurrency int
	now         func() time.Time
	logger      *log.Logger
}

// RefreshStats summarises one refresh pass.
type RefreshStats struct {
	Reports int
	Failed  int
}

func NewReportWorker(store Store, publisher ResultPublisher, opts Options) *ReportWorker {
	if opts.Concurrency < 1 {
		opts.Concurrency = 4
	}
	if opts.CacheSize < 1 {
		opts.CacheSize = 64
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}
	return &ReportWorker{
		store:       store,
		publisher:   publisher,
		exporter:    opts.Exporter,
		format:      opts.Format,
		results:     cache.NewLRUCache[report.Evaluation](opts.CacheSize, opts.CacheTTL),
		concurrency: opts.Concurrency,
		now:         time.Now,
		logger:      log.Default(log.ComponentWorker),
	}
}

// Results exposes the evaluation cache so it can join a cache.Manager sweep.
func (w *ReportWorker) Results() cache.Cleaner { return w.results }

// Cached returns the last evaluation of reportID still held in the cache.
func (w *ReportWorker) Cached(reportID string) (report.Evaluation, bool) {
	return w.results.Get(reportID)
}

// Evaluate loads and evaluates a saved report and caches the result.
func (w *ReportWorker) Evaluate(ctx context.Context, reportID string) (report.Evaluation, error) {
	def, err := w.store.Report(ctx, reportID)
	if err != nil {
		return report.Evaluation{}, fmt.Errorf("load report: %w", err)
	}

	start := time.Now()
	ev, err := report.EvaluateDefinition(ctx, def, report.EvalConfig{
		Source: w.store,
		Saved:  w.store,
		Format: w.format,
		Sink:   log.NewSlogSink(w.logger.With(log.FieldReportID, reportID)),
		Now:    w.now(),
	})
	if err != nil {
		return report.Evaluation{}, fmt.Errorf("evaluate report %s: %w", reportID, err)
	}
	w.results.Set(reportID, ev)

	w.logger.DebugContext(ctx, "Report evaluated",
		log.FieldReportID, reportID,
		log.FieldOperation, log.OpEvaluate,
		log.FieldDuration, time.Since(start).Milliseconds())
	return ev, nil
}

// HandleReportRequest evaluates the requested report and publishes the
// result. A report that cannot be evaluated is answered with a failure
// message; only publish errors are returned, so the delivery is retried
// when the broker rejected the answer.
func (w *ReportWorker) HandleReportRequest(ctx context.Context, msg *amqp.ReportRequestMessage) error {
	logger := log.FromContext(ctx)
	logger.InfoContext(ctx, "Processing report request", log.FieldReportID, msg.ReportID)

	ev, err := w.Evaluate(ctx, msg.ReportID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		logger.WarnContext(ctx, "Report evaluation failed",
			log.NewFields().WithRequestID(msg.RequestID).WithReport(msg.ReportID, "").WithError(err).ToSlice()...)
		return w.publish(ctx, amqp.NewReportFailureMessage(msg, err, w.now()))
	}

	if msg.Export {
		w.export(ctx, ev)
	}
	return w.publish(ctx, amqp.NewReportResultMessage(msg, ev, w.now()))
}

func (w *ReportWorker) publish(ctx context.Context, result *amqp.ReportResultMessage) error {
	if w.publisher == nil {
		return nil
	}
	if err := w.publisher.PublishReportResult(ctx, result); err != nil {
		return fmt.Errorf("publish result: %w", err)
	}
	return nil
}

// export writes ev to the configured exporter. Export failures are logged
// and do not fail the request.
func (w *ReportWorker) export(ctx context.Context, ev report.Evaluation) {
	if w.exporter == nil {
		w.logger.WarnContext(ctx, "Export requested but no exporter configured", log.FieldReportID, ev.ReportID)
		return
	}
	ref, err := w.exporter.Export(ctx, ev)
	if err != nil {
		w.logger.ErrorContext(ctx, "Report export failed",
			log.NewFields().WithReport(ev.ReportID, "").WithOperation(log.OpExport).WithError(err).ToSlice()...)
		return
	}
	w.logger.InfoContext(ctx, "Report exported",
		log.FieldReportID, ev.ReportID,
		log.FieldSheetsRange, ref)
}

// Refresh rebuilds the summary tables then re-evaluates every saved report
// into the cache. A failing report is logged and counted; the others still
// run.
func (w *ReportWorker) Refresh(ctx context.Context) (RefreshStats, error) {
	start := time.Now()
	if err := w.store.RefreshSummaries(ctx); err != nil {
		return RefreshStats{}, fmt.Errorf("refresh summaries: %w", err)
	}
	reports, err := w.store.ListReports(ctx)
	if err != nil {
		return RefreshStats{}, fmt.Errorf("list reports: %w", err)
	}

	var failed int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, r := range reports {
		g.Go(func() error {
			if _, err := w.Evaluate(gctx, r.ID); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				atomic.AddInt64(&failed, 1)
				w.logger.WarnContext(gctx, "Scheduled report evaluation failed",
					log.NewFields().WithReport(r.ID, "").WithOperation(log.OpRefresh).WithError(err).ToSlice()...)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return RefreshStats{}, err
	}

	stats := RefreshStats{Reports: len(reports), Failed: int(failed)}
	w.logger.InfoContext(ctx, "Refresh completed",
		log.FieldOperation, log.OpRefresh,
		"reports", stats.Reports,
		"failed", stats.Failed,
		log.FieldDuration, time.Since(start).Milliseconds())
	return stats, nil
}

// Run refreshes once at startup and then every interval until ctx is done.
func (w *ReportWorker) Run(ctx context.Context, interval time.Duration) {
	if _, err := w.Refresh(ctx); err != nil && ctx.Err() == nil {
		w.logger.ErrorContext(ctx, "Startup refresh failed", log.FieldError, err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Refresh(ctx); err != nil && ctx.Err() == nil {
				w.logger.ErrorContext(ctx, "Periodic refresh failed", log.FieldError, err)
			}
		}
	}
}
