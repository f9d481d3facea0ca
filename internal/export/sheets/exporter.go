// Package sheets publishes the enriched corpus to a Google Sheets tab for review.
package sheets

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/postpilot/internal/config"
	"github.com/postpilot/internal/models"
	"github.com/postpilot/internal/source"
	"github.com/postpilot/pkg/logger"
)

// previewRunes is how much of each post's text goes into the sheet
const previewRunes = 200

// Columns defines the header row of the exported tab
var Columns = []string{
	"#",
	"Text Preview",
	"Line Count",
	"Length",
	"Language",
	"Tags",
	"Link",
}

// Exporter writes corpus posts to one tab of a spreadsheet
type Exporter struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
	log           *logger.Logger
}

// New creates an exporter authenticated with the configured service account.
// Extra client options are appended after the credentials.
func New(ctx context.Context, cfg config.ExportConfig, log *logger.Logger, opts ...option.ClientOption) (*Exporter, error) {
	credsOpt, err := credentials(ctx, cfg)
	if err != nil {
		return nil, err
	}

	srv, err := sheets.NewService(ctx, append([]option.ClientOption{credsOpt}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return NewWithService(srv, cfg, log), nil
}

// NewWithService creates an exporter around an existing Sheets client
func NewWithService(srv *sheets.Service, cfg config.ExportConfig, log *logger.Logger) *Exporter {
	sheetName := cfg.SheetName
	if sheetName == "" {
		sheetName = "Corpus"
	}
	return &Exporter{
		service:       srv,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     sheetName,
		log:           log.WithComponent("sheets-export"),
	}
}

func credentials(ctx context.Context, cfg config.ExportConfig) (option.ClientOption, error) {
	data := []byte(cfg.ServiceAccountJSON)
	if len(data) == 0 {
		if cfg.CredentialsFile == "" {
			return nil, fmt.Errorf("no Google credentials provided: set credentials_file or service_account_json")
		}
		var err error
		data, err = os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
	}

	creds, err := google.CredentialsFromJSON(ctx, data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Google credentials: %w", err)
	}
	return option.WithCredentials(creds), nil
}

// Export replaces the contents of the tab with a header row and one row per post
func (e *Exporter) Export(ctx context.Context, posts []models.Post) error {
	if err := e.ensureSheetExists(ctx); err != nil {
		return err
	}

	_, err := e.service.Spreadsheets.Values.Clear(e.spreadsheetID, e.sheetName, &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to clear sheet: %w", err)
	}

	writeRange := fmt.Sprintf("%s!A1", e.sheetName)
	valueRange := &sheets.ValueRange{
		Values: Rows(posts),
	}

	_, err = e.service.Spreadsheets.Values.Update(e.spreadsheetID, writeRange, valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}

	e.log.Info().
		Int("posts", len(posts)).
		Str("sheet", e.sheetName).
		Msg("Corpus exported to sheet")
	return nil
}

// ensureSheetExists creates the tab if it doesn't exist
func (e *Exporter) ensureSheetExists(ctx context.Context) error {
	spreadsheet, err := e.service.Spreadsheets.Get(e.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == e.sheetName {
			return nil
		}
	}

	e.log.Info().Str("sheet", e.sheetName).Msg("Creating new sheet")
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{
						Title: e.sheetName,
					},
				},
			},
		},
	}

	if _, err := e.service.Spreadsheets.BatchUpdate(e.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	return nil
}

// Rows renders the header and one row per post
func Rows(posts []models.Post) [][]interface{} {
	header := make([]interface{}, 0, len(Columns))
	for _, col := range Columns {
		header = append(header, col)
	}

	rows := make([][]interface{}, 0, len(posts)+1)
	rows = append(rows, header)

	for i, post := range posts {
		text, _ := post.Text()

		var lineCount, length interface{} = "", ""
		if n, ok := post.LineCount(); ok {
			lineCount = n
			length = string(models.CategorizeLength(n))
		}

		rows = append(rows, []interface{}{
			i + 1,
			preview(text),
			lineCount,
			length,
			string(post.Language()),
			strings.Join(post.Tags(), ", "),
			source.Link(post),
		})
	}
	return rows
}

func preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= previewRunes {
		return text
	}
	return string(runes[:previewRunes]) + "..."
}
