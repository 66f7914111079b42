package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ssandworth/incomeLineUpdatex/internal/amqp"
	"github.com/ssandworth/incomeLineUpdatex/internal/core"
	"github.com/ssandworth/incomeLineUpdatex/internal/storage"
)

// DefaultAuditDepartment is the department whose reviews land on the
// verification axis instead of the approval axis.
const DefaultAuditDepartment = "Audit/Inspections"

// ApprovalService owns the dual-axis transaction review state machine.
// Which axis a reviewer's decision lands on is determined by their
// department: audit staff verify, everyone else approves.
type ApprovalService struct {
	storage         *storage.SQLiteRepository
	amqpClient      *amqp.Client
	auditDepartment string
}

func NewApprovalService(storage *storage.SQLiteRepository, amqpClient *amqp.Client, auditDepartment string) *ApprovalService {
	if auditDepartment == "" {
		auditDepartment = DefaultAuditDepartment
	}
	return &ApprovalService{
		storage:         storage,
		amqpClient:      amqpClient,
		auditDepartment: auditDepartment,
	}
}

func (s *ApprovalService) isAuditor(actor core.Actor) bool {
	return actor.Department == s.auditDepartment
}

// PostCollection records one collection against an income line. Receipt
// numbers de-duplicate: reposting an already-filed receipt fails with
// ErrDuplicateReceipt. Both review axes start Pending.
func (s *ApprovalService) PostCollection(ctx context.Context, tx *core.TransactionRecord) error {
	exists, err := s.storage.ReceiptExists(ctx, tx.ReceiptNo)
	if err != nil {
		return fmt.Errorf("post collection: %w", err)
	}
	if exists {
		return fmt.Errorf("post collection: receipt %s: %w", tx.ReceiptNo, core.ErrDuplicateReceipt)
	}

	// The unique constraint on receipt_no still backstops the check above
	// when two posts race.
	if err := s.storage.CreateTransaction(ctx, tx); err != nil {
		return fmt.Errorf("post collection: %w", err)
	}

	slog.InfoContext(ctx, "Collection posted",
		"transaction_id", tx.ID,
		"receipt_no", tx.ReceiptNo,
		"account", tx.CreditAccount,
		"amount_cents", tx.Amount.Cents)
	return nil
}

func (s *ApprovalService) GetTransaction(ctx context.Context, id int64) (core.TransactionRecord, error) {
	return s.storage.GetTransaction(ctx, id)
}

// ListPendingApprovals returns transactions awaiting a financial-control
// decision.
func (s *ApprovalService) ListPendingApprovals(ctx context.Context, limit int) ([]core.TransactionRecord, error) {
	return s.storage.ListByApprovalStatus(ctx, core.ApprovalPending, limit)
}

// Approve marks a transaction approved on the axis the actor's department
// owns. An axis that already holds a terminal state fails with
// ErrAlreadyDecided.
func (s *ApprovalService) Approve(ctx context.Context, txID int64, actor core.Actor) error {
	var err error
	axis := "approval"
	status := string(core.ApprovalApproved)
	if s.isAuditor(actor) {
		axis = "verification"
		status = string(core.VerificationApproved)
		err = s.storage.SetVerificationStatus(ctx, txID, core.VerificationApproved, actor, "")
	} else {
		err = s.storage.SetApprovalStatus(ctx, txID, core.ApprovalApproved, actor, "")
	}
	if err != nil {
		return fmt.Errorf("approve transaction %d: %w", txID, err)
	}

	slog.InfoContext(ctx, "Transaction approved",
		"transaction_id", txID, "axis", axis, "actor", actor.ID)
	s.publishEvent(ctx, txID, axis, status, actor)
	return nil
}

// Decline marks a transaction declined on the axis the actor's department
// owns. Reason may be empty; callers wanting stricter intake enforce
// non-empty reasons at the boundary.
func (s *ApprovalService) Decline(ctx context.Context, txID int64, actor core.Actor, reason string) error {
	var err error
	axis := "approval"
	status := string(core.ApprovalDeclined)
	if s.isAuditor(actor) {
		axis = "verification"
		status = string(core.VerificationDeclined)
		err = s.storage.SetVerificationStatus(ctx, txID, core.VerificationDeclined, actor, reason)
	} else {
		err = s.storage.SetApprovalStatus(ctx, txID, core.ApprovalDeclined, actor, reason)
	}
	if err != nil {
		return fmt.Errorf("decline transaction %d: %w", txID, err)
	}

	slog.InfoContext(ctx, "Transaction declined",
		"transaction_id", txID, "axis", axis, "actor", actor.ID, "reason", reason)
	s.publishEvent(ctx, txID, axis, status, actor)
	return nil
}

// Flag is the audit override: it sets verification_status and flag_status to
// Flagged regardless of what either axis currently holds, including rows
// already approved.
func (s *ApprovalService) Flag(ctx context.Context, txID int64, actor core.Actor, reason string) error {
	if err := s.storage.FlagTransaction(ctx, txID, actor, reason); err != nil {
		return fmt.Errorf("flag transaction %d: %w", txID, err)
	}

	slog.InfoContext(ctx, "Transaction flagged",
		"transaction_id", txID, "actor", actor.ID, "reason", reason)
	s.publishEvent(ctx, txID, "verification", string(core.VerificationFlagged), actor)
	return nil
}

// publishEvent announces a decision after its commit. Publish failure is
// logged and swallowed: the decision is already durable.
func (s *ApprovalService) publishEvent(ctx context.Context, txID int64, axis, status string, actor core.Actor) {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping approval event")
		return
	}

	receiptNo := ""
	if tx, err := s.storage.GetTransaction(ctx, txID); err == nil {
		receiptNo = tx.ReceiptNo
	}

	msg := amqp.NewApprovalEventMessage(txID, receiptNo, axis, status, actor.ID)
	if err := s.amqpClient.PublishApprovalEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish approval event",
			"transaction_id", txID, "error", err)
	}
}
