package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ssandworth/incomeLineUpdatex/internal/core"
)

// BulkOutcome is the result of applying one review decision to one
// transaction within a batch.
type BulkOutcome struct {
	TransactionID int64  `json:"transaction_id"`
	Success       bool   `json:"success"`
	Error         string `json:"error,omitempty"`
}

// BulkResult aggregates a whole batch. Success is true only when every item
// succeeded; partial batches report false with the per-item outcomes intact.
type BulkResult struct {
	Success  bool          `json:"success"`
	Approved int           `json:"approved"`
	Failed   int           `json:"failed"`
	Message  string        `json:"message"`
	Outcomes []BulkOutcome `json:"outcomes"`
}

// BulkOperationCoordinator applies review decisions across a list of
// transaction ids. Items commit independently: one failure neither stops the
// batch nor rolls back earlier successes.
type BulkOperationCoordinator struct {
	approvals *ApprovalService
}

func NewBulkOperationCoordinator(approvals *ApprovalService) *BulkOperationCoordinator {
	return &BulkOperationCoordinator{approvals: approvals}
}

// BulkApprove applies Approve to each id in order.
func (c *BulkOperationCoordinator) BulkApprove(ctx context.Context, ids []int64, actor core.Actor) BulkResult {
	result := BulkResult{Outcomes: make([]BulkOutcome, 0, len(ids))}

	for _, id := range ids {
		outcome := BulkOutcome{TransactionID: id, Success: true}
		if err := c.approvals.Approve(ctx, id, actor); err != nil {
			outcome.Success = false
			outcome.Error = err.Error()
			result.Failed++
		} else {
			result.Approved++
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	result.Success = result.Failed == 0 && len(ids) > 0
	result.Message = fmt.Sprintf("%d of %d transactions approved", result.Approved, len(ids))

	slog.InfoContext(ctx, "Bulk approval finished",
		"requested", len(ids),
		"approved", result.Approved,
		"failed", result.Failed,
		"actor", actor.ID)
	return result
}

// BulkDecline has no implementation. Declines carry a per-transaction reason
// and are taken one at a time.
func (c *BulkOperationCoordinator) BulkDecline(ctx context.Context, ids []int64, actor core.Actor, reason string) (BulkResult, error) {
	return BulkResult{}, fmt.Errorf("bulk decline: %w", core.ErrUnsupported)
}
