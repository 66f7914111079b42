package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ssandworth/incomeLineUpdatex/internal/core"
	"github.com/ssandworth/incomeLineUpdatex/internal/storage"
)

// TargetOutcome is the result of assigning one account's target within a
// bulk assignment.
type TargetOutcome struct {
	AcctID  string `json:"acct_id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// TargetAssignmentResult aggregates a bulk assignment; Success mirrors the
// bulk-approval policy, true only when every line succeeded.
type TargetAssignmentResult struct {
	Success  bool            `json:"success"`
	Assigned int             `json:"assigned"`
	Message  string          `json:"message"`
	Outcomes []TargetOutcome `json:"outcomes"`
}

// OfficerSummaryRow compares one officer's target on one account against
// their effectively-approved collections.
type OfficerSummaryRow struct {
	AcctID          string     `json:"acct_id"`
	Target          core.Money `json:"target_cents"`
	Collected       core.Money `json:"collected_cents"`
	VariancePercent float64    `json:"variance_percent"`
}

// TargetService manages per-officer monthly collection targets.
type TargetService struct {
	storage *storage.SQLiteRepository
}

func NewTargetService(storage *storage.SQLiteRepository) *TargetService {
	return &TargetService{storage: storage}
}

// SaveTarget upserts one officer's target for an account and period.
func (s *TargetService) SaveTarget(ctx context.Context, target *core.OfficerTarget, actor core.Actor) error {
	target.AssignedBy = actor.ID
	if err := s.storage.SaveOfficerTarget(ctx, target); err != nil {
		return fmt.Errorf("save officer target: %w", err)
	}

	slog.InfoContext(ctx, "Officer target saved",
		"officer", target.OfficerID,
		"account", target.AcctID,
		"month", target.Month,
		"year", target.Year,
		"target_cents", target.Amount.Cents,
		"actor", actor.ID)
	return nil
}

// BulkAssign sets the same target amount for one officer across many income
// lines, one upsert per line with per-line outcomes.
func (s *TargetService) BulkAssign(ctx context.Context, officerID int64, acctIDs []string, month, year int, amount core.Money, actor core.Actor) TargetAssignmentResult {
	result := TargetAssignmentResult{Outcomes: make([]TargetOutcome, 0, len(acctIDs))}

	officer, err := s.storage.GetStaff(ctx, officerID)
	if err != nil {
		result.Message = fmt.Sprintf("officer %d: %v", officerID, err)
		return result
	}

	for _, acctID := range acctIDs {
		outcome := TargetOutcome{AcctID: acctID, Success: true}
		target := core.OfficerTarget{
			OfficerID:  officerID,
			AcctID:     acctID,
			Month:      month,
			Year:       year,
			Amount:     amount,
			AssignedBy: actor.ID,
		}
		if err := s.storage.SaveOfficerTarget(ctx, &target); err != nil {
			outcome.Success = false
			outcome.Error = err.Error()
		} else {
			result.Assigned++
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	result.Success = result.Assigned == len(acctIDs) && len(acctIDs) > 0
	result.Message = fmt.Sprintf("%d of %d targets assigned", result.Assigned, len(acctIDs))

	slog.InfoContext(ctx, "Bulk target assignment finished",
		"officer", officer.Name,
		"requested", len(acctIDs),
		"assigned", result.Assigned,
		"actor", actor.ID)
	return result
}

// ListTargets returns one officer's targets for a period.
func (s *TargetService) ListTargets(ctx context.Context, officerID int64, month, year int) ([]core.OfficerTarget, error) {
	return s.storage.ListOfficerTargets(ctx, officerID, month, year)
}

// AccountTargets returns every officer holding a target on one income line
// for a period.
func (s *TargetService) AccountTargets(ctx context.Context, acctID string, month, year int) ([]core.OfficerTarget, error) {
	return s.storage.ListTargetsForAccount(ctx, acctID, month, year)
}

// ListOfficers returns the staff of the given departments, the candidate pool
// for target assignment.
func (s *TargetService) ListOfficers(ctx context.Context, departments []string) ([]core.Actor, error) {
	return s.storage.ListStaffByDepartments(ctx, departments)
}

// OfficerSummary compares an officer's targets against their collections for
// a period. Collections use the same effectively-approved sums as variance
// reporting; nothing here is persisted.
func (s *TargetService) OfficerSummary(ctx context.Context, officerID int64, month, year int) ([]OfficerSummaryRow, error) {
	targets, err := s.storage.ListOfficerTargets(ctx, officerID, month, year)
	if err != nil {
		return nil, fmt.Errorf("officer summary: %w", err)
	}

	rows := make([]OfficerSummaryRow, 0, len(targets))
	for _, t := range targets {
		collected, err := s.storage.SumOfficerCollections(ctx, officerID, t.AcctID, month, year)
		if err != nil {
			return nil, fmt.Errorf("officer summary for %s: %w", t.AcctID, err)
		}
		rows = append(rows, OfficerSummaryRow{
			AcctID:          t.AcctID,
			Target:          t.Amount,
			Collected:       collected,
			VariancePercent: core.VariancePercent(collected, t.Amount),
		})
	}
	return rows, nil
}
