package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ssandworth/incomeLineUpdatex/internal/core"
	"github.com/ssandworth/incomeLineUpdatex/internal/sheets"
	"github.com/ssandworth/incomeLineUpdatex/internal/storage"
)

// IngestResult reports a bulk ingestion batch: rows applied, rows skipped
// with a warning, and rows whose save failed.
type IngestResult struct {
	Applied  int      `json:"applied"`
	Warnings []string `json:"warnings"`
	Errors   []string `json:"errors"`
}

// IngestService loads externally supplied budget rows into the ledger with
// per-row validation. Batches are partial-success: a bad row is recorded and
// skipped, never aborting the rest.
type IngestService struct {
	storage *storage.SQLiteRepository
}

func NewIngestService(storage *storage.SQLiteRepository) *IngestService {
	return &IngestService{storage: storage}
}

// Ingest validates and saves every row the source produces against the
// given fiscal year. Rows referencing accounts outside the active
// income-line whitelist, or carrying non-numeric or negative amounts, are
// skipped with a warning. Save failures are recorded per row. The source is
// closed on every exit path.
func (s *IngestService) Ingest(ctx context.Context, source sheets.BudgetRowSource, fiscalYear int, actor core.Actor) (IngestResult, error) {
	defer func() {
		if err := source.Close(); err != nil {
			slog.WarnContext(ctx, "Failed to close budget row source", "error", err)
		}
	}()

	var result IngestResult

	rows, err := source.Rows(ctx)
	if err != nil {
		return result, fmt.Errorf("read budget rows: %w", err)
	}

	whitelist, err := s.storage.ListActiveIncomeLines(ctx)
	if err != nil {
		return result, fmt.Errorf("load income line whitelist: %w", err)
	}
	allowed := make(map[string]bool, len(whitelist))
	for _, a := range whitelist {
		allowed[a.AcctID] = true
	}

	for i, row := range rows {
		if !allowed[row.AcctID] {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("row %d: account %s is not an active income line, skipped", i+1, row.AcctID))
			continue
		}

		line := core.BudgetLine{
			AcctID:   row.AcctID,
			AcctDesc: row.AcctDesc,
			Year:     fiscalYear,
			Status:   core.AccountActive,
		}
		if ok := parseAmounts(&line, row, i+1, &result); !ok {
			continue
		}

		if err := s.storage.SaveBudgetLine(ctx, &line, actor.ID); err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("row %d: save %s failed: %v", i+1, row.AcctID, err))
			continue
		}
		result.Applied++
	}

	slog.InfoContext(ctx, "Bulk budget ingestion finished",
		"year", fiscalYear,
		"rows", len(rows),
		"applied", result.Applied,
		"warnings", len(result.Warnings),
		"errors", len(result.Errors),
		"actor", actor.ID)
	return result, nil
}

// parseAmounts fills the line's monthly amounts from the raw row. The first
// bad amount skips the whole row with one warning. Empty cells count as bad:
// a partially filled row must not turn into silent zero budgets.
func parseAmounts(line *core.BudgetLine, row core.BudgetRow, rowNum int, result *IngestResult) bool {
	for m, raw := range row.Amounts {
		cents, err := core.ParseAmountToCents(raw)
		if err != nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("row %d: account %s month %d amount %q is not a valid non-negative number, row skipped",
					rowNum, row.AcctID, m+1, raw))
			return false
		}
		line.Monthly[m] = core.Money{Cents: cents}
	}
	return true
}
