// Package services orchestrates the engine's operations across the
// relational store and the message broker.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ssandworth/incomeLineUpdatex/internal/core"
	"github.com/ssandworth/incomeLineUpdatex/internal/storage"
)

// BudgetService owns the budget-line ledger operations.
type BudgetService struct {
	storage *storage.SQLiteRepository
}

func NewBudgetService(storage *storage.SQLiteRepository) *BudgetService {
	return &BudgetService{storage: storage}
}

// ListActiveIncomeLines returns the whitelist of postable revenue accounts.
func (s *BudgetService) ListActiveIncomeLines(ctx context.Context) ([]core.Account, error) {
	return s.storage.ListActiveIncomeLines(ctx)
}

// ListBudgetLines returns a fiscal year's lines with staff display names.
func (s *BudgetService) ListBudgetLines(ctx context.Context, year int) ([]core.BudgetLine, error) {
	return s.storage.ListBudgetLines(ctx, year)
}

func (s *BudgetService) GetBudgetLine(ctx context.Context, id int64) (core.BudgetLine, error) {
	return s.storage.GetBudgetLine(ctx, id)
}

// SaveBudgetLine creates or updates one line on behalf of actor. The stored
// annual total is always recomputed from the twelve monthly amounts.
func (s *BudgetService) SaveBudgetLine(ctx context.Context, line *core.BudgetLine, actor core.Actor) error {
	if line.Status == "" {
		line.Status = core.AccountActive
	}
	if err := s.storage.SaveBudgetLine(ctx, line, actor.ID); err != nil {
		return fmt.Errorf("save budget line: %w", err)
	}

	slog.InfoContext(ctx, "Budget line saved",
		"id", line.ID,
		"account", line.AcctID,
		"year", line.Year,
		"annual_cents", line.AnnualTotal.Cents,
		"actor", actor.ID)
	return nil
}

// DeleteBudgetLine removes a line unconditionally and reports whether
// anything was removed.
func (s *BudgetService) DeleteBudgetLine(ctx context.Context, id int64, actor core.Actor) (bool, error) {
	removed, err := s.storage.DeleteBudgetLine(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete budget line: %w", err)
	}
	if removed {
		slog.InfoContext(ctx, "Budget line deleted", "id", id, "actor", actor.ID)
	}
	return removed, nil
}
