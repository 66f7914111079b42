package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ssandworth/incomeLineUpdatex/internal/core"
	"github.com/ssandworth/incomeLineUpdatex/internal/storage"
)

func newTestStorage(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "engine.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedIncomeLine(t *testing.T, repo *storage.SQLiteRepository, acctID, desc string) {
	t.Helper()
	err := repo.UpsertAccount(context.Background(), core.Account{
		AcctID: acctID, AcctDesc: desc, Active: true, IncomeLine: true,
	})
	if err != nil {
		t.Fatalf("UpsertAccount(%s) error = %v", acctID, err)
	}
}

func postTestCollection(t *testing.T, svc *ApprovalService, receipt, acct string, cents int64) core.TransactionRecord {
	t.Helper()
	tx := core.TransactionRecord{
		ReceiptNo:     receipt,
		Amount:        core.Money{Cents: cents},
		PaymentDate:   time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
		CreditAccount: acct,
		RemittingID:   3,
	}
	if err := svc.PostCollection(context.Background(), &tx); err != nil {
		t.Fatalf("PostCollection(%s) error = %v", receipt, err)
	}
	return tx
}

func TestApproveRoutesByDepartment(t *testing.T) {
	repo := newTestStorage(t)
	seedIncomeLine(t, repo, "REV-001", "Market Stall Fees")
	svc := NewApprovalService(repo, nil, "")
	ctx := context.Background()

	finance := core.Actor{ID: 11, Name: "Chidi Okafor", Department: "Finance"}
	audit := core.Actor{ID: 21, Name: "Ngozi Eze", Department: DefaultAuditDepartment}

	t.Run("non-audit reviewer hits the approval axis", func(t *testing.T) {
		tx := postTestCollection(t, svc, "RCP-200", "REV-001", 5000)
		if err := svc.Approve(ctx, tx.ID, finance); err != nil {
			t.Fatalf("Approve() error = %v", err)
		}
		got, err := svc.GetTransaction(ctx, tx.ID)
		if err != nil {
			t.Fatalf("GetTransaction() error = %v", err)
		}
		if got.ApprovalStatus != core.ApprovalApproved {
			t.Errorf("approval status = %q, want Approved", got.ApprovalStatus)
		}
		if got.VerificationStatus != core.VerificationPending {
			t.Errorf("verification status = %q, must stay Pending", got.VerificationStatus)
		}
	})

	t.Run("audit reviewer hits the verification axis", func(t *testing.T) {
		tx := postTestCollection(t, svc, "RCP-201", "REV-001", 5000)
		if err := svc.Approve(ctx, tx.ID, audit); err != nil {
			t.Fatalf("Approve() error = %v", err)
		}
		got, err := svc.GetTransaction(ctx, tx.ID)
		if err != nil {
			t.Fatalf("GetTransaction() error = %v", err)
		}
		if got.VerificationStatus != core.VerificationApproved {
			t.Errorf("verification status = %q, want Approved", got.VerificationStatus)
		}
		if got.ApprovalStatus != core.ApprovalPending {
			t.Errorf("approval status = %q, must stay Pending", got.ApprovalStatus)
		}
	})
}

func TestDeclineStoresReason(t *testing.T) {
	repo := newTestStorage(t)
	seedIncomeLine(t, repo, "REV-001", "Market Stall Fees")
	svc := NewApprovalService(repo, nil, "")
	ctx := context.Background()

	tx := postTestCollection(t, svc, "RCP-202", "REV-001", 5000)
	finance := core.Actor{ID: 11, Name: "Chidi Okafor", Department: "Finance"}
	if err := svc.Decline(ctx, tx.ID, finance, "no deposit slip"); err != nil {
		t.Fatalf("Decline() error = %v", err)
	}

	got, err := svc.GetTransaction(ctx, tx.ID)
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if got.ApprovalStatus != core.ApprovalDeclined {
		t.Errorf("approval status = %q, want Declined", got.ApprovalStatus)
	}
	if got.DeclineReason != "no deposit slip" {
		t.Errorf("decline reason = %q", got.DeclineReason)
	}
}

func TestFlagCoexistsWithApproval(t *testing.T) {
	repo := newTestStorage(t)
	seedIncomeLine(t, repo, "REV-001", "Market Stall Fees")
	svc := NewApprovalService(repo, nil, "")
	ctx := context.Background()

	tx := postTestCollection(t, svc, "RCP-203", "REV-001", 5000)
	finance := core.Actor{ID: 11, Name: "Chidi Okafor", Department: "Finance"}
	audit := core.Actor{ID: 21, Name: "Ngozi Eze", Department: DefaultAuditDepartment}

	if err := svc.Approve(ctx, tx.ID, finance); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if err := svc.Flag(ctx, tx.ID, audit, "duplicate teller stamp"); err != nil {
		t.Fatalf("Flag() error = %v", err)
	}

	got, err := svc.GetTransaction(ctx, tx.ID)
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if got.ApprovalStatus != core.ApprovalApproved {
		t.Errorf("approval status = %q, flag must not revert it", got.ApprovalStatus)
	}
	if got.VerificationStatus != core.VerificationFlagged || got.FlagStatus != core.FlagFlagged {
		t.Errorf("flag did not land: verification=%q flag=%q", got.VerificationStatus, got.FlagStatus)
	}
}

func TestApproveTwiceFailsAlreadyDecided(t *testing.T) {
	repo := newTestStorage(t)
	seedIncomeLine(t, repo, "REV-001", "Market Stall Fees")
	svc := NewApprovalService(repo, nil, "")
	ctx := context.Background()

	tx := postTestCollection(t, svc, "RCP-204", "REV-001", 5000)
	finance := core.Actor{ID: 11, Name: "Chidi Okafor", Department: "Finance"}
	if err := svc.Approve(ctx, tx.ID, finance); err != nil {
		t.Fatalf("first Approve() error = %v", err)
	}
	if err := svc.Approve(ctx, tx.ID, finance); !errors.Is(err, core.ErrAlreadyDecided) {
		t.Fatalf("second Approve() error = %v, want ErrAlreadyDecided", err)
	}
}

func TestPostCollectionDuplicateReceipt(t *testing.T) {
	repo := newTestStorage(t)
	seedIncomeLine(t, repo, "REV-001", "Market Stall Fees")
	svc := NewApprovalService(repo, nil, "")

	postTestCollection(t, svc, "RCP-205", "REV-001", 5000)
	dup := core.TransactionRecord{
		ReceiptNo:     "RCP-205",
		Amount:        core.Money{Cents: 7000},
		PaymentDate:   time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC),
		CreditAccount: "REV-001",
	}
	err := svc.PostCollection(context.Background(), &dup)
	if !errors.Is(err, core.ErrDuplicateReceipt) {
		t.Fatalf("PostCollection() error = %v, want ErrDuplicateReceipt", err)
	}
}

func TestBulkApprovePartialFailure(t *testing.T) {
	repo := newTestStorage(t)
	seedIncomeLine(t, repo, "REV-001", "Market Stall Fees")
	svc := NewApprovalService(repo, nil, "")
	coordinator := NewBulkOperationCoordinator(svc)
	ctx := context.Background()

	a := postTestCollection(t, svc, "RCP-210", "REV-001", 1000)
	c := postTestCollection(t, svc, "RCP-211", "REV-001", 2000)
	missing := int64(99999)

	finance := core.Actor{ID: 11, Name: "Chidi Okafor", Department: "Finance"}
	result := coordinator.BulkApprove(ctx, []int64{a.ID, missing, c.ID}, finance)

	if result.Success {
		t.Error("Success = true with a failed item")
	}
	if result.Approved != 2 || result.Failed != 1 {
		t.Errorf("approved/failed = %d/%d, want 2/1", result.Approved, result.Failed)
	}
	if len(result.Outcomes) != 3 {
		t.Fatalf("outcomes = %d, want 3", len(result.Outcomes))
	}
	if !result.Outcomes[0].Success || result.Outcomes[1].Success || !result.Outcomes[2].Success {
		t.Errorf("outcome pattern wrong: %+v", result.Outcomes)
	}

	// The failed middle item must not roll back its neighbours.
	for _, id := range []int64{a.ID, c.ID} {
		got, err := svc.GetTransaction(ctx, id)
		if err != nil {
			t.Fatalf("GetTransaction(%d) error = %v", id, err)
		}
		if got.ApprovalStatus != core.ApprovalApproved {
			t.Errorf("transaction %d status = %q, want Approved", id, got.ApprovalStatus)
		}
	}
}

func TestBulkDeclineUnsupported(t *testing.T) {
	repo := newTestStorage(t)
	svc := NewApprovalService(repo, nil, "")
	coordinator := NewBulkOperationCoordinator(svc)

	_, err := coordinator.BulkDecline(context.Background(), []int64{1, 2}, core.Actor{ID: 11}, "x")
	if !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("BulkDecline() error = %v, want ErrUnsupported", err)
	}
}
