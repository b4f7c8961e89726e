// Command report-worker answers report requests from the broker and keeps
// saved report evaluations fresh.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"ledgerlens/internal/amqp"
	"ledgerlens/internal/cache"
	"ledgerlens/internal/cli"
	"ledgerlens/internal/format"
	"ledgerlens/internal/log"
	"ledgerlens/internal/worker"
)

func main() {
	logger := cli.SetupLogger(os.Getenv("LEDGERLENS_LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel)

	logger.Info("Starting report-worker", log.FieldOperation, log.OpStartup)

	repo := cli.InitSQLite(logger, cfg.DBPath)
	defer repo.Close()

	formatter, err := format.New(cfg.Locale, cfg.Currency)
	if err != nil {
		logger.Error("Invalid display settings", log.FieldError, err)
		os.Exit(1)
	}

	exporter, err := cli.NewExporter(context.Background(), cfg)
	if err != nil {
		logger.Error("Failed to initialize exporter", log.FieldError, err, "backend", cfg.ExportBackend)
		os.Exit(1)
	}
	logger.Info("Export backend ready", "backend", cfg.ExportBackend)

	var client *amqp.Client
	var publisher worker.ResultPublisher
	if cfg.AMQPURL != "" {
		client, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRequestQueue, cfg.AMQPResultQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()
		publisher = client
	} else {
		logger.Info("AMQP disabled, running scheduled refresh only")
	}

	w := worker.NewReportWorker(repo, publisher, worker.Options{
		Format:   formatter,
		Exporter: exporter,
		CacheTTL: 2 * cfg.RefreshInterval,
	})

	cacheLogger := logger.WithComponent(log.ComponentCache)
	caches := cache.NewManager(func(removed int) {
		cacheLogger.Debug("Expired cache entries removed", "removed", removed)
	})
	caches.Register(w.Results())
	caches.StartCleanup(cfg.TitleCacheTTL)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, caches.Stop)

	go w.Run(ctx, cfg.RefreshInterval)

	if client != nil {
		go func() {
			err := client.ConsumeReportRequests(ctx, w.HandleReportRequest)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
				os.Exit(1)
			}
		}()
	}

	cli.WaitForShutdown(ctx, done)
}
