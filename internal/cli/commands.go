package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"ledgerlens/internal/filters"
	"ledgerlens/internal/format"
	"ledgerlens/internal/log"
	"ledgerlens/internal/report"
	"ledgerlens/internal/storage"
)

// ErrUsage marks a command line that could not be parsed.
var ErrUsage = errors.New("usage")

const usage = `usage: ledgerlens <command> [flags] [text filter]

commands:
  describe -entity <name> <filter>     render a text filter as sentences
  query -entity <name> <filter>        list matching ids and titles
  migrate                              apply migrations and print the schema version
  import <ledger.yaml>                 load a ledger file
  report run -id <id> | -file <f>      evaluate a report and print it as JSON
  report save <file>                   store a report definition
  report list | report delete <id>
  filter save -title <t> <filter>      store a journal filter
  filter list | filter delete <id>
  request -id <id> [-export]           queue a report evaluation for the worker
`

// RequestPublisher queues report evaluations on the broker.
type RequestPublisher interface {
	PublishReportRequest(ctx context.Context, reportID string, export bool) (string, error)
	Close() error
}

// App runs ledgerlens subcommands against one repository.
type App struct {
	Repo   *storage.SQLiteRepository
	DBPath string
	Titles filters.TitleLookup
	Format *format.Formatter
	Out    io.Writer
	Logger *log.Logger
	// Dial connects to the broker for the request command.
	Dial func() (RequestPublisher, error)
	Now  func() time.Time
}

// Usage writes the command summary to w.
func Usage(w io.Writer) { fmt.Fprint(w, usage) }

func usageError(msg string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUsage, fmt.Sprintf(msg, args...))
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *App) titles() filters.TitleLookup {
	if a.Titles != nil {
		return a.Titles
	}
	return a.Repo
}

// Run dispatches args[0] to its subcommand.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}
	switch args[0] {
	case "describe":
		return a.describe(ctx, args[1:])
	case "query":
		return a.query(ctx, args[1:])
	case "migrate":
		return a.migrate()
	case "import":
		return a.importLedger(ctx, args[1:])
	case "report":
		return a.report(ctx, args[1:])
	case "filter":
		return a.filter(ctx, args[1:])
	case "request":
		return a.request(ctx, args[1:])
	case "help", "-h", "--help":
		Usage(a.Out)
		return nil
	}
	return usageError("unknown command %q", args[0])
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return usageError("%s: %v", fs.Name(), err)
	}
	return nil
}

func (a *App) describe(ctx context.Context, args []string) error {
	fs := newFlagSet("describe")
	entity := fs.String("entity", string(filters.EntityJournal), "entity the filter applies to")
	if err := parse(fs, args); err != nil {
		return err
	}
	e, err := filters.ParseEntity(*entity)
	if err != nil {
		return usageError("%v", err)
	}

	text := strings.Join(fs.Args(), " ")
	a.Logger.DebugContext(ctx, "Describing filter",
		log.FieldOperation, log.OpDescribe,
		log.FieldEntity, e,
		log.FieldTextFilter, text)
	lines, err := filters.Describe(ctx, a.titles(), e, text)
	if err != nil {
		return fmt.Errorf("describe %s filter: %w", e, err)
	}
	for _, l := range lines {
		fmt.Fprintln(a.Out, l)
	}
	return nil
}

func (a *App) query(ctx context.Context, args []string) error {
	fs := newFlagSet("query")
	entity := fs.String("entity", string(filters.EntityJournal), "entity to query")
	materialized := fs.Bool("materialized", false, "query the summary relation")
	limit := fs.Int("limit", 0, "maximum rows, 0 for all")
	showSQL := fs.Bool("sql", false, "print the statement instead of running it")
	if err := parse(fs, args); err != nil {
		return err
	}
	e, err := filters.ParseEntity(*entity)
	if err != nil {
		return usageError("%v", err)
	}
	target := filters.TargetView
	if *materialized {
		target = filters.TargetMaterialized
	}

	text := strings.Join(fs.Args(), " ")
	a.Logger.DebugContext(ctx, "Compiling filter",
		log.FieldOperation, log.OpQuery,
		log.FieldEntity, e,
		log.FieldTextFilter, text)
	frags, err := filters.Compile(e, text, target, filters.WithNow(a.now()))
	if err != nil {
		return err
	}
	rel := filters.Relation(e, target)
	stmt, stmtArgs, err := storage.FindSQL(rel, frags, *limit)
	if err != nil {
		return err
	}
	if *showSQL {
		fmt.Fprintln(a.Out, stmt)
		for i, v := range stmtArgs {
			fmt.Fprintf(a.Out, "  $%d = %v\n", i+1, v)
		}
		return nil
	}

	start := time.Now()
	rows, err := a.Repo.Find(ctx, rel, frags, *limit)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	tw := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", r.ID, r.Title)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if _, err := a.Repo.LogQuery(ctx, storage.QueryLogEntry{
		Title:    text,
		Entity:   string(e),
		SQL:      stmt,
		Duration: elapsed,
		Rows:     len(rows),
	}); err != nil {
		a.Logger.WarnContext(ctx, "Failed to record query", log.FieldError, err)
	}
	return nil
}

func (a *App) migrate() error {
	if err := storage.RunMigrations(a.DBPath); err != nil {
		return err
	}
	version, dirty, err := storage.MigrationVersion(a.DBPath)
	if err != nil {
		return err
	}
	a.Logger.Debug("Migrations applied", log.FieldOperation, log.OpMigrate, "version", version, "dirty", dirty)
	fmt.Fprintf(a.Out, "schema version %d", version)
	if dirty {
		fmt.Fprint(a.Out, " (dirty)")
	}
	fmt.Fprintln(a.Out)
	return nil
}

func readArg(args []string, what string) ([]byte, error) {
	if len(args) != 1 {
		return nil, usageError("expected one %s", what)
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", what, err)
	}
	return data, nil
}

func (a *App) importLedger(ctx context.Context, args []string) error {
	data, err := readArg(args, "ledger file")
	if err != nil {
		return err
	}
	l, err := storage.ParseLedger(data)
	if err != nil {
		return err
	}
	stats, err := a.Repo.Import(ctx, l)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "imported %d records and %d journal entries\n", stats.Records, stats.Journal)
	return nil
}

func (a *App) report(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("report needs run, save, list or delete")
	}
	switch args[0] {
	case "run":
		return a.runReport(ctx, args[1:])
	case "save":
		data, err := readArg(args[1:], "report file")
		if err != nil {
			return err
		}
		def, err := report.ParseDefinition(data)
		if err != nil {
			return err
		}
		id, err := a.Repo.SaveReport(ctx, def)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.Out, id)
		return nil
	case "list":
		reports, err := a.Repo.ListReports(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
		for _, r := range reports {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, r.Title, r.UpdatedAt)
		}
		return tw.Flush()
	case "delete":
		if len(args) != 2 {
			return usageError("report delete needs an id")
		}
		return a.Repo.DeleteReport(ctx, args[1])
	}
	return usageError("unknown report command %q", args[0])
}

func (a *App) runReport(ctx context.Context, args []string) error {
	fs := newFlagSet("report run")
	id := fs.String("id", "", "saved report id")
	file := fs.String("file", "", "report definition file")
	if err := parse(fs, args); err != nil {
		return err
	}

	var def report.Definition
	switch {
	case *id != "" && *file != "":
		return usageError("report run takes -id or -file, not both")
	case *id != "":
		d, err := a.Repo.Report(ctx, *id)
		if err != nil {
			return err
		}
		def = d
	case *file != "":
		data, err := os.ReadFile(*file)
		if err != nil {
			return fmt.Errorf("read report file: %w", err)
		}
		d, err := report.ParseDefinition(data)
		if err != nil {
			return err
		}
		def = d
	default:
		return usageError("report run needs -id or -file")
	}

	ev, err := report.EvaluateDefinition(ctx, def, report.EvalConfig{
		Source: a.Repo,
		Saved:  a.Repo,
		Format: a.Format,
		Sink:   log.NewSlogSink(a.Logger.WithComponent(log.ComponentReport)),
		Now:    a.now(),
	})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(a.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(ev)
}

func (a *App) filter(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("filter needs save, list or delete")
	}
	switch args[0] {
	case "save":
		fs := newFlagSet("filter save")
		title := fs.String("title", "", "filter title")
		if err := parse(fs, args[1:]); err != nil {
			return err
		}
		if *title == "" || fs.NArg() == 0 {
			return usageError("filter save needs -title and a filter")
		}
		id, err := a.Repo.SaveFilter(ctx, *title, filters.JournalFilter{TextFilter: strings.Join(fs.Args(), " ")})
		if err != nil {
			return err
		}
		fmt.Fprintln(a.Out, id)
		return nil
	case "list":
		saved, err := a.Repo.ListSavedFilters(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
		for _, s := range saved {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, s.Title, s.Filter.TextFilter)
		}
		return tw.Flush()
	case "delete":
		if len(args) != 2 {
			return usageError("filter delete needs an id")
		}
		return a.Repo.DeleteSavedFilter(ctx, args[1])
	}
	return usageError("unknown filter command %q", args[0])
}

func (a *App) request(ctx context.Context, args []string) error {
	fs := newFlagSet("request")
	id := fs.String("id", "", "saved report id")
	export := fs.Bool("export", false, "ask the worker to export the result")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *id == "" {
		return usageError("request needs -id")
	}
	if a.Dial == nil {
		return errors.New("request: AMQP is not configured")
	}
	if _, err := a.Repo.Report(ctx, *id); err != nil {
		return err
	}

	pub, err := a.Dial()
	if err != nil {
		return err
	}
	defer pub.Close()

	requestID, err := pub.PublishReportRequest(ctx, *id, *export)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.Out, requestID)
	return nil
}
