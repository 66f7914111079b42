package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ssandworth/incomeLineUpdatex/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "engine.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedAccount(t *testing.T, repo *SQLiteRepository, acctID, desc string) {
	t.Helper()
	err := repo.UpsertAccount(context.Background(), core.Account{
		AcctID: acctID, AcctDesc: desc, Active: true, IncomeLine: true,
	})
	if err != nil {
		t.Fatalf("UpsertAccount(%s) error = %v", acctID, err)
	}
}

func postTransaction(t *testing.T, repo *SQLiteRepository, receipt, acct string, cents int64, date string, remittingID int64) core.TransactionRecord {
	t.Helper()
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		t.Fatalf("bad date %s: %v", date, err)
	}
	tx := core.TransactionRecord{
		ReceiptNo:     receipt,
		Amount:        core.Money{Cents: cents},
		PaymentDate:   day,
		CreditAccount: acct,
		RemittingID:   remittingID,
	}
	if err := repo.CreateTransaction(context.Background(), &tx); err != nil {
		t.Fatalf("CreateTransaction(%s) error = %v", receipt, err)
	}
	return tx
}

func TestSaveBudgetLineRecomputesAnnual(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedAccount(t, repo, "REV-001", "Market Stall Fees")

	line := core.BudgetLine{
		AcctID:   "REV-001",
		AcctDesc: "Market Stall Fees",
		Year:     2025,
		Status:   "Active",
		// Caller-supplied annual totals are ignored.
		AnnualTotal: core.Money{Cents: 999999},
	}
	for i := range line.Monthly {
		line.Monthly[i] = core.Money{Cents: int64(i+1) * 10000}
	}

	if err := repo.SaveBudgetLine(ctx, &line, 7); err != nil {
		t.Fatalf("SaveBudgetLine() error = %v", err)
	}
	if line.ID == 0 {
		t.Fatal("SaveBudgetLine() did not assign an id")
	}

	got, err := repo.GetBudgetLine(ctx, line.ID)
	if err != nil {
		t.Fatalf("GetBudgetLine() error = %v", err)
	}
	if want := int64(780000); got.AnnualTotal.Cents != want {
		t.Errorf("annual total = %d, want %d", got.AnnualTotal.Cents, want)
	}
	if got.CreatedBy != 7 {
		t.Errorf("created_by = %d, want 7", got.CreatedBy)
	}
}

func TestSaveBudgetLineUpsertsOnAccountYear(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedAccount(t, repo, "REV-001", "Market Stall Fees")

	first := core.BudgetLine{AcctID: "REV-001", AcctDesc: "Market Stall Fees", Year: 2025, Status: "Active"}
	first.Monthly[0] = core.Money{Cents: 5000}
	if err := repo.SaveBudgetLine(ctx, &first, 7); err != nil {
		t.Fatalf("first save error = %v", err)
	}

	second := core.BudgetLine{AcctID: "REV-001", AcctDesc: "Market Stall Fees", Year: 2025, Status: "Active"}
	second.Monthly[0] = core.Money{Cents: 8000}
	if err := repo.SaveBudgetLine(ctx, &second, 9); err != nil {
		t.Fatalf("second save error = %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("second save created row %d, want update of %d", second.ID, first.ID)
	}

	got, err := repo.GetBudgetLine(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetBudgetLine() error = %v", err)
	}
	if got.Monthly[0].Cents != 8000 {
		t.Errorf("january = %d, want 8000", got.Monthly[0].Cents)
	}
	if got.CreatedBy != 7 || got.UpdatedBy != 9 {
		t.Errorf("created_by/updated_by = %d/%d, want 7/9", got.CreatedBy, got.UpdatedBy)
	}
}

func TestSaveBudgetLineValidation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*core.BudgetLine)
		wantErr error
	}{
		{"empty account", func(b *core.BudgetLine) { b.AcctID = "  " }, core.ErrEmptyAccount},
		{"year out of range", func(b *core.BudgetLine) { b.Year = 1900 }, core.ErrInvalidYear},
		{"negative month", func(b *core.BudgetLine) { b.Monthly[3] = core.Money{Cents: -1} }, core.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := core.BudgetLine{AcctID: "REV-001", Year: 2025}
			tt.mutate(&line)
			if err := repo.SaveBudgetLine(ctx, &line, 1); !errors.Is(err, tt.wantErr) {
				t.Errorf("SaveBudgetLine() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestListBudgetLinesJoinsStaffNames(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedAccount(t, repo, "REV-001", "Market Stall Fees")

	creator, err := repo.CreateStaff(ctx, "Amina Bello", "Revenue")
	if err != nil {
		t.Fatalf("CreateStaff() error = %v", err)
	}
	line := core.BudgetLine{AcctID: "REV-001", AcctDesc: "Market Stall Fees", Year: 2025, Status: "Active"}
	if err := repo.SaveBudgetLine(ctx, &line, creator); err != nil {
		t.Fatalf("SaveBudgetLine() error = %v", err)
	}

	lines, err := repo.ListBudgetLines(ctx, 2025)
	if err != nil {
		t.Fatalf("ListBudgetLines() error = %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("ListBudgetLines() returned %d lines, want 1", len(lines))
	}
	if lines[0].CreatedByName != "Amina Bello" {
		t.Errorf("created_by_name = %q, want %q", lines[0].CreatedByName, "Amina Bello")
	}
}

func TestCreateTransactionDuplicateReceipt(t *testing.T) {
	repo := newTestRepo(t)
	seedAccount(t, repo, "REV-001", "Market Stall Fees")

	postTransaction(t, repo, "RCP-100", "REV-001", 5000, "2025-06-10", 3)

	dup := core.TransactionRecord{
		ReceiptNo:     "RCP-100",
		Amount:        core.Money{Cents: 9000},
		PaymentDate:   time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC),
		CreditAccount: "REV-001",
	}
	err := repo.CreateTransaction(context.Background(), &dup)
	if !errors.Is(err, core.ErrDuplicateReceipt) {
		t.Fatalf("CreateTransaction() error = %v, want ErrDuplicateReceipt", err)
	}
}

func TestCreateTransactionDefaultsBothAxesToPending(t *testing.T) {
	repo := newTestRepo(t)
	seedAccount(t, repo, "REV-001", "Market Stall Fees")

	tx := postTransaction(t, repo, "RCP-101", "REV-001", 5000, "2025-06-10", 3)

	got, err := repo.GetTransaction(context.Background(), tx.ID)
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if got.ApprovalStatus != core.ApprovalPending {
		t.Errorf("approval status = %q, want Pending", got.ApprovalStatus)
	}
	if got.VerificationStatus != core.VerificationPending {
		t.Errorf("verification status = %q, want Pending", got.VerificationStatus)
	}
	if got.FlagStatus != core.FlagNone {
		t.Errorf("flag status = %q, want none", got.FlagStatus)
	}
}

func TestSetApprovalStatusRejectsSecondDecision(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedAccount(t, repo, "REV-001", "Market Stall Fees")
	tx := postTransaction(t, repo, "RCP-102", "REV-001", 5000, "2025-06-10", 3)

	approver := core.Actor{ID: 11, Name: "Chidi Okafor", Department: "Finance"}
	if err := repo.SetApprovalStatus(ctx, tx.ID, core.ApprovalApproved, approver, ""); err != nil {
		t.Fatalf("first SetApprovalStatus() error = %v", err)
	}

	err := repo.SetApprovalStatus(ctx, tx.ID, core.ApprovalDeclined, approver, "second look")
	if !errors.Is(err, core.ErrAlreadyDecided) {
		t.Fatalf("second SetApprovalStatus() error = %v, want ErrAlreadyDecided", err)
	}

	got, err := repo.GetTransaction(ctx, tx.ID)
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if got.ApprovalStatus != core.ApprovalApproved {
		t.Errorf("approval status = %q, want Approved after rejected overwrite", got.ApprovalStatus)
	}
	if got.ApprovalTime == nil {
		t.Error("approval time not recorded")
	}
	if got.ApprovedByName != "Chidi Okafor" {
		t.Errorf("approved_by_name = %q, want Chidi Okafor", got.ApprovedByName)
	}
}

func TestVerificationAxisIsIndependent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedAccount(t, repo, "REV-001", "Market Stall Fees")
	tx := postTransaction(t, repo, "RCP-103", "REV-001", 5000, "2025-06-10", 3)

	auditor := core.Actor{ID: 21, Name: "Ngozi Eze", Department: "Audit/Inspections"}
	if err := repo.SetVerificationStatus(ctx, tx.ID, core.VerificationApproved, auditor, ""); err != nil {
		t.Fatalf("SetVerificationStatus() error = %v", err)
	}

	got, err := repo.GetTransaction(ctx, tx.ID)
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if got.VerificationStatus != core.VerificationApproved {
		t.Errorf("verification status = %q, want Approved", got.VerificationStatus)
	}
	if got.ApprovalStatus != core.ApprovalPending {
		t.Errorf("approval status = %q, verification must not touch it", got.ApprovalStatus)
	}
}

func TestFlagTransactionOverridesDecidedVerification(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedAccount(t, repo, "REV-001", "Market Stall Fees")
	tx := postTransaction(t, repo, "RCP-104", "REV-001", 5000, "2025-06-10", 3)

	auditor := core.Actor{ID: 21, Name: "Ngozi Eze", Department: "Audit/Inspections"}
	if err := repo.SetVerificationStatus(ctx, tx.ID, core.VerificationApproved, auditor, ""); err != nil {
		t.Fatalf("SetVerificationStatus() error = %v", err)
	}
	if err := repo.FlagTransaction(ctx, tx.ID, auditor, "receipt mismatch"); err != nil {
		t.Fatalf("FlagTransaction() error = %v", err)
	}

	got, err := repo.GetTransaction(ctx, tx.ID)
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if got.VerificationStatus != core.VerificationFlagged {
		t.Errorf("verification status = %q, want Flagged", got.VerificationStatus)
	}
	if got.FlagStatus != core.FlagFlagged {
		t.Errorf("flag status = %q, want Flagged", got.FlagStatus)
	}
	if got.FlagReason != "receipt mismatch" {
		t.Errorf("flag reason = %q", got.FlagReason)
	}
}

func TestFlagTransactionNotFound(t *testing.T) {
	repo := newTestRepo(t)
	err := repo.FlagTransaction(context.Background(), 404, core.Actor{ID: 1}, "x")
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("FlagTransaction() error = %v, want ErrNotFound", err)
	}
}

func TestSumApprovedCollectionsCountsUnsetStatus(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedAccount(t, repo, "REV-001", "Market Stall Fees")

	approved := postTransaction(t, repo, "RCP-110", "REV-001", 10000, "2025-06-05", 3)
	actor := core.Actor{ID: 11, Name: "Chidi Okafor"}
	if err := repo.SetApprovalStatus(ctx, approved.ID, core.ApprovalApproved, actor, ""); err != nil {
		t.Fatalf("SetApprovalStatus() error = %v", err)
	}

	// Legacy row with no approval status counts as approved.
	legacy := core.TransactionRecord{
		ReceiptNo:      "RCP-111",
		Amount:         core.Money{Cents: 20000},
		PaymentDate:    time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC),
		CreditAccount:  "REV-001",
		ApprovalStatus: core.ApprovalUnset,
	}
	if err := repo.CreateTransaction(ctx, &legacy); err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	if _, err := repo.db.ExecContext(ctx,
		`UPDATE transactions SET approval_status = '' WHERE id = ?`, legacy.ID); err != nil {
		t.Fatalf("clear approval status: %v", err)
	}

	pending := postTransaction(t, repo, "RCP-112", "REV-001", 40000, "2025-06-07", 3)
	_ = pending

	declined := postTransaction(t, repo, "RCP-113", "REV-001", 80000, "2025-06-08", 3)
	if err := repo.SetApprovalStatus(ctx, declined.ID, core.ApprovalDeclined, actor, "no deposit slip"); err != nil {
		t.Fatalf("SetApprovalStatus() error = %v", err)
	}

	// Wrong month must not count.
	postTransaction(t, repo, "RCP-114", "REV-001", 160000, "2025-07-01", 3)

	got, err := repo.SumApprovedCollections(ctx, "REV-001", 6, 2025)
	if err != nil {
		t.Fatalf("SumApprovedCollections() error = %v", err)
	}
	if want := int64(30000); got.Cents != want {
		t.Errorf("sum = %d, want %d (approved + unset only)", got.Cents, want)
	}
}

func TestSumOfficerCollectionsScopesByRemitter(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedAccount(t, repo, "REV-001", "Market Stall Fees")

	actor := core.Actor{ID: 11, Name: "Chidi Okafor"}
	mine := postTransaction(t, repo, "RCP-120", "REV-001", 10000, "2025-06-05", 3)
	other := postTransaction(t, repo, "RCP-121", "REV-001", 50000, "2025-06-05", 4)
	for _, tx := range []core.TransactionRecord{mine, other} {
		if err := repo.SetApprovalStatus(ctx, tx.ID, core.ApprovalApproved, actor, ""); err != nil {
			t.Fatalf("SetApprovalStatus() error = %v", err)
		}
	}

	got, err := repo.SumOfficerCollections(ctx, 3, "REV-001", 6, 2025)
	if err != nil {
		t.Fatalf("SumOfficerCollections() error = %v", err)
	}
	if got.Cents != 10000 {
		t.Errorf("sum = %d, want 10000", got.Cents)
	}
}

func TestUpsertPerformanceBatchOverwrites(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first := core.NewSnapshot("REV-001", 6, 2025,
		core.Money{Cents: 100000}, core.Money{Cents: 110000}, core.DefaultTolerancePercent)
	first.AcctDesc = "Market Stall Fees"
	if err := repo.UpsertPerformanceBatch(ctx, []core.PerformanceSnapshot{first}); err != nil {
		t.Fatalf("first batch error = %v", err)
	}

	second := core.NewSnapshot("REV-001", 6, 2025,
		core.Money{Cents: 100000}, core.Money{Cents: 80000}, core.DefaultTolerancePercent)
	second.AcctDesc = "Market Stall Fees"
	if err := repo.UpsertPerformanceBatch(ctx, []core.PerformanceSnapshot{second}); err != nil {
		t.Fatalf("second batch error = %v", err)
	}

	rows, err := repo.QueryPerformance(ctx, 2025, 6)
	if err != nil {
		t.Fatalf("QueryPerformance() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("QueryPerformance() returned %d rows, want 1", len(rows))
	}
	got := rows[0]
	if got.Actual.Cents != 80000 {
		t.Errorf("actual = %d, want 80000", got.Actual.Cents)
	}
	if got.VarianceAmount.Cents != -20000 {
		t.Errorf("variance = %d, want -20000", got.VarianceAmount.Cents)
	}
	if got.Status != core.BelowBudget {
		t.Errorf("status = %q, want Below Budget", got.Status)
	}
}

func TestQueryPerformanceMonthFilter(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for month := 1; month <= 3; month++ {
		snap := core.NewSnapshot("REV-001", month, 2025,
			core.Money{Cents: 100000}, core.Money{Cents: 100000}, core.DefaultTolerancePercent)
		if err := repo.UpsertPerformance(ctx, snap); err != nil {
			t.Fatalf("UpsertPerformance(%d) error = %v", month, err)
		}
	}

	all, err := repo.QueryPerformance(ctx, 2025, 0)
	if err != nil {
		t.Fatalf("QueryPerformance(year) error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("year query returned %d rows, want 3", len(all))
	}

	one, err := repo.QueryPerformance(ctx, 2025, 2)
	if err != nil {
		t.Fatalf("QueryPerformance(month) error = %v", err)
	}
	if len(one) != 1 || one[0].Month != 2 {
		t.Errorf("month query returned %+v, want the single February row", one)
	}

	if _, err := repo.QueryPerformance(ctx, 2025, 13); !errors.Is(err, core.ErrInvalidMonth) {
		t.Errorf("month 13 error = %v, want ErrInvalidMonth", err)
	}
}

func TestSaveOfficerTargetUpserts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedAccount(t, repo, "REV-001", "Market Stall Fees")
	officer, err := repo.CreateStaff(ctx, "Tunde Ajayi", "Revenue")
	if err != nil {
		t.Fatalf("CreateStaff() error = %v", err)
	}

	target := core.OfficerTarget{
		OfficerID: officer, AcctID: "REV-001", Month: 6, Year: 2025,
		Amount: core.Money{Cents: 50000}, AssignedBy: 1,
	}
	if err := repo.SaveOfficerTarget(ctx, &target); err != nil {
		t.Fatalf("SaveOfficerTarget() error = %v", err)
	}

	target.Amount = core.Money{Cents: 75000}
	firstID := target.ID
	if err := repo.SaveOfficerTarget(ctx, &target); err != nil {
		t.Fatalf("second SaveOfficerTarget() error = %v", err)
	}
	if target.ID != firstID {
		t.Errorf("second save created row %d, want update of %d", target.ID, firstID)
	}

	got, err := repo.ListOfficerTargets(ctx, officer, 6, 2025)
	if err != nil {
		t.Fatalf("ListOfficerTargets() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ListOfficerTargets() returned %d rows, want 1", len(got))
	}
	if got[0].Amount.Cents != 75000 {
		t.Errorf("target amount = %d, want 75000", got[0].Amount.Cents)
	}
	if got[0].OfficerName != "Tunde Ajayi" {
		t.Errorf("officer name = %q, want joined staff name", got[0].OfficerName)
	}
}

func TestAccessControlMissingRowGrantsNothing(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	ac, err := repo.GetAccessControl(ctx, 42)
	if err != nil {
		t.Fatalf("GetAccessControl() error = %v", err)
	}
	for _, p := range core.Permissions() {
		if ac.Has(p) {
			t.Errorf("missing row grants %s", p)
		}
	}

	ac = core.AccessControl{UserID: 42, ViewBudget: true, ApproveTransactions: true}
	if err := repo.SetAccessControl(ctx, ac); err != nil {
		t.Fatalf("SetAccessControl() error = %v", err)
	}
	got, err := repo.GetAccessControl(ctx, 42)
	if err != nil {
		t.Fatalf("GetAccessControl() error = %v", err)
	}
	if !got.Has(core.PermViewBudget) || !got.Has(core.PermApproveTransactions) {
		t.Error("granted permissions not persisted")
	}
	if got.Has(core.PermManageBudget) || got.Has(core.PermManageTargets) {
		t.Error("ungranted permissions came back true")
	}
}
