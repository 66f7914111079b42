package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ssandworth/incomeLineUpdatex/internal/core"
	"github.com/ssandworth/incomeLineUpdatex/internal/storage"
)

// officerQueryConcurrency bounds the per-account fan-out of officer-scoped
// recomputation.
const officerQueryConcurrency = 4

// PerformanceService reconciles budgeted amounts against approved actual
// collections and answers variance queries.
type PerformanceService struct {
	storage   *storage.SQLiteRepository
	tolerance float64
}

func NewPerformanceService(storage *storage.SQLiteRepository, tolerancePercent float64) *PerformanceService {
	if tolerancePercent <= 0 {
		tolerancePercent = core.DefaultTolerancePercent
	}
	return &PerformanceService{storage: storage, tolerance: tolerancePercent}
}

// Reconcile rebuilds the persisted performance snapshots for one month of
// one fiscal year. The whole pass is written in a single transaction scope:
// re-running with unchanged inputs yields identical rows, and a failed pass
// leaves the previous snapshots intact. Month 0 reconciles every month of
// the year.
func (s *PerformanceService) Reconcile(ctx context.Context, year, month int) error {
	months := []int{month}
	if month == 0 {
		months = []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	} else if !core.ValidMonth(month) {
		return core.ErrInvalidMonth
	}

	lines, err := s.storage.ListBudgetLines(ctx, year)
	if err != nil {
		return fmt.Errorf("reconcile %d: %w", year, err)
	}

	snaps := make([]core.PerformanceSnapshot, 0, len(lines)*len(months))
	for _, line := range lines {
		for _, m := range months {
			actual, err := s.storage.SumApprovedCollections(ctx, line.AcctID, m, year)
			if err != nil {
				return fmt.Errorf("reconcile %s %d/%d: %w", line.AcctID, m, year, err)
			}
			snap := core.NewSnapshot(line.AcctID, m, year, line.Monthly[m-1], actual, s.tolerance)
			snap.AcctDesc = line.AcctDesc
			snaps = append(snaps, snap)
		}
	}

	if err := s.storage.UpsertPerformanceBatch(ctx, snaps); err != nil {
		return fmt.Errorf("reconcile %d: %w", year, err)
	}

	slog.InfoContext(ctx, "Performance reconciled",
		"year", year, "month", month, "accounts", len(lines), "snapshots", len(snaps))
	return nil
}

// QueryPerformance is the read path. Without an officer it returns the
// persisted snapshots (month 0 means the whole year). With an officer it
// recomputes actuals restricted to that officer's remittances on the fly and
// drops accounts the officer contributed nothing to; those figures are never
// persisted.
func (s *PerformanceService) QueryPerformance(ctx context.Context, year, month int, officerID int64) ([]core.PerformanceSnapshot, error) {
	if officerID == 0 {
		return s.storage.QueryPerformance(ctx, year, month)
	}
	return s.queryOfficerPerformance(ctx, year, month, officerID)
}

func (s *PerformanceService) queryOfficerPerformance(ctx context.Context, year, month int, officerID int64) ([]core.PerformanceSnapshot, error) {
	months := []int{month}
	if month == 0 {
		months = []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	} else if !core.ValidMonth(month) {
		return nil, core.ErrInvalidMonth
	}

	lines, err := s.storage.ListBudgetLines(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("query officer performance: %w", err)
	}

	var (
		mu    sync.Mutex
		snaps []core.PerformanceSnapshot
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(officerQueryConcurrency)

	for _, line := range lines {
		for _, m := range months {
			line, m := line, m
			g.Go(func() error {
				actual, err := s.storage.SumOfficerCollections(gctx, officerID, line.AcctID, m, year)
				if err != nil {
					return fmt.Errorf("officer %d on %s %d/%d: %w", officerID, line.AcctID, m, year, err)
				}
				if actual.Cents == 0 {
					return nil
				}
				snap := core.NewSnapshot(line.AcctID, m, year, line.Monthly[m-1], actual, s.tolerance)
				snap.AcctDesc = line.AcctDesc
				mu.Lock()
				snaps = append(snaps, snap)
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sortSnapshots(snaps)
	return snaps, nil
}

// DailyTarget returns an account's daily collection target for a period,
// derived from its monthly budget and the month's working days.
func (s *PerformanceService) DailyTarget(ctx context.Context, acctID string, month, year int) (float64, error) {
	if !core.ValidMonth(month) {
		return 0, core.ErrInvalidMonth
	}
	line, err := s.storage.GetBudgetLineByAccount(ctx, acctID, year)
	if err != nil {
		return 0, fmt.Errorf("daily target for %s: %w", acctID, err)
	}
	return core.DailyTarget(line.Monthly[month-1], month, year), nil
}

// sortSnapshots restores the display order of the persisted query after the
// concurrent fan-out scrambles it.
func sortSnapshots(snaps []core.PerformanceSnapshot) {
	sort.Slice(snaps, func(i, j int) bool {
		if snaps[i].AcctDesc != snaps[j].AcctDesc {
			return snaps[i].AcctDesc < snaps[j].AcctDesc
		}
		return snaps[i].Month < snaps[j].Month
	})
}
