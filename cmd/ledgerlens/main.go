// Command ledgerlens describes, runs and stores ledger filters and reports
// against a local SQLite database.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"ledgerlens/internal/amqp"
	"ledgerlens/internal/cli"
	"ledgerlens/internal/format"
	"ledgerlens/internal/log"
	"ledgerlens/internal/storage"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		cli.Usage(os.Stderr)
		return 2
	}

	logger := cli.SetupLogger(os.Getenv("LEDGERLENS_LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel)

	repo := cli.InitSQLite(logger, cfg.DBPath)
	defer repo.Close()

	formatter, err := format.New(cfg.Locale, cfg.Currency)
	if err != nil {
		logger.Error("Invalid display settings", log.FieldError, err)
		return 1
	}

	app := &cli.App{
		Repo:   repo,
		DBPath: cfg.DBPath,
		Titles: storage.NewTitleCache(repo, cfg.TitleCacheSize, cfg.TitleCacheTTL),
		Format: formatter,
		Out:    os.Stdout,
		Logger: logger,
	}
	if cfg.AMQPURL != "" {
		app.Dial = func() (cli.RequestPublisher, error) {
			client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRequestQueue, cfg.AMQPResultQueue)
			if err != nil {
				return nil, err
			}
			return client, nil
		}
	}

	if err := app.Run(context.Background(), args); err != nil {
		if errors.Is(err, cli.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			cli.Usage(os.Stderr)
			return 2
		}
		logger.Error("Command failed", log.FieldError, err)
		return 1
	}
	return 0
}
