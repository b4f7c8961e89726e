package sheets

import (
	"context"

	"ledgerlens/internal/report"
)

// Ports for outbound adapters.
type (
	// ReportExporter writes an evaluated report to an outbound sink and
	// returns a reference to where it landed.
	ReportExporter interface {
		Export(ctx context.Context, ev report.Evaluation) (ref string, err error)
	}

	// ExportReader reads back a previous export by reference.
	ExportReader interface {
		Exported(ctx context.Context, ref string) ([][]any, error)
	}
)
