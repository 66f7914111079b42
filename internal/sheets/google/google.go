// Package google reads budget allocation rows out of a Google spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ssandworth/incomeLineUpdatex/internal/core"
	ports "github.com/ssandworth/incomeLineUpdatex/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Source reads budget rows from one sheet of one spreadsheet. The expected
// layout is one row per account: account id, account label, then twelve
// monthly amount columns.
type Source struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ ports.BudgetRowSource = (*Source)(nil)

// NewFromEnv creates a Source using environment variables and service
// account credentials.
// Required: GOOGLE_SPREADSHEET_ID.
// Optional: GOOGLE_BUDGET_SHEET_NAME (default "Budget"),
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS for auth.
func NewFromEnv(ctx context.Context) (*Source, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	sheetName := strings.TrimSpace(os.Getenv("GOOGLE_BUDGET_SHEET_NAME"))
	if sheetName == "" {
		sheetName = "Budget"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Source{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// newSheetsService initializes a Sheets service using service account
// credentials from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE
// or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Rows fetches the sheet and converts each data row into a raw BudgetRow.
// The first row is assumed to be a header and skipped. Short rows are padded
// with empty amounts; rows with no account id are dropped here since no
// downstream consumer could attribute them.
func (s *Source) Rows(ctx context.Context) ([]core.BudgetRow, error) {
	readRange := fmt.Sprintf("%s!A:N", s.sheetName)
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", readRange, err)
	}

	if len(resp.Values) == 0 {
		return nil, nil
	}

	rows := make([]core.BudgetRow, 0, len(resp.Values)-1)
	for i, raw := range resp.Values[1:] {
		row, ok := parseRow(raw)
		if !ok {
			slog.WarnContext(ctx, "Skipping sheet row without account id",
				"sheet", s.sheetName, "row", i+2)
			continue
		}
		rows = append(rows, row)
	}

	slog.InfoContext(ctx, "Read budget rows from spreadsheet",
		"sheet", s.sheetName, "rows", len(rows))
	return rows, nil
}

func parseRow(raw []interface{}) (core.BudgetRow, bool) {
	var row core.BudgetRow
	row.AcctID = strings.TrimSpace(cellString(raw, 0))
	if row.AcctID == "" {
		return core.BudgetRow{}, false
	}
	row.AcctDesc = strings.TrimSpace(cellString(raw, 1))
	for m := 0; m < 12; m++ {
		row.Amounts[m] = strings.TrimSpace(cellString(raw, m+2))
	}
	return row, true
}

func cellString(raw []interface{}, idx int) string {
	if idx >= len(raw) {
		return ""
	}
	return fmt.Sprintf("%v", raw[idx])
}

// Close is a no-op; the sheets service holds no connection state worth
// releasing.
func (s *Source) Close() error { return nil }
