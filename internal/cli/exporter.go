package cli

import (
	"context"
	"fmt"

	"ledgerlens/internal/config"
	"ledgerlens/internal/sheets"
	gsheet "ledgerlens/internal/sheets/google"
	mem "ledgerlens/internal/sheets/memory"
)

// NewExporter builds the configured export backend. It returns nil for the
// none backend.
func NewExporter(ctx context.Context, cfg *config.Config) (sheets.ReportExporter, error) {
	switch cfg.ExportBackend {
	case config.ExportSheets:
		client, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, gsheet.Credentials{
			ClientJSON: cfg.GoogleOAuthClientJSON,
			ClientFile: cfg.GoogleOAuthClientFile,
			TokenJSON:  cfg.GoogleOAuthTokenJSON,
			TokenFile:  cfg.GoogleOAuthTokenFile,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize Google Sheets exporter: %w", err)
		}
		return client, nil
	case config.ExportMemory:
		return mem.New(), nil
	case config.ExportNone, "":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown export backend %q", cfg.ExportBackend)
}
