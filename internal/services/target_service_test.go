package services

import (
	"context"
	"math"
	"testing"

	"github.com/ssandworth/incomeLineUpdatex/internal/core"
)

func TestBulkAssignTargets(t *testing.T) {
	repo := newTestStorage(t)
	seedIncomeLine(t, repo, "REV-001", "Market Stall Fees")
	seedIncomeLine(t, repo, "REV-002", "Car Park Fees")
	svc := NewTargetService(repo)
	ctx := context.Background()

	officer, err := repo.CreateStaff(ctx, "Tunde Ajayi", "Revenue")
	if err != nil {
		t.Fatalf("CreateStaff() error = %v", err)
	}
	supervisor := core.Actor{ID: 1, Name: "Amina Bello", Department: "Finance"}

	result := svc.BulkAssign(ctx, officer, []string{"REV-001", "REV-002"}, 6, 2025,
		core.Money{Cents: 50000}, supervisor)
	if !result.Success {
		t.Fatalf("BulkAssign() failed: %+v", result)
	}
	if result.Assigned != 2 {
		t.Errorf("assigned = %d, want 2", result.Assigned)
	}

	targets, err := svc.ListTargets(ctx, officer, 6, 2025)
	if err != nil {
		t.Fatalf("ListTargets() error = %v", err)
	}
	if len(targets) != 2 {
		t.Fatalf("stored %d targets, want 2", len(targets))
	}
	for _, target := range targets {
		if target.Amount.Cents != 50000 {
			t.Errorf("target %s = %d, want 50000", target.AcctID, target.Amount.Cents)
		}
		if target.AssignedBy != supervisor.ID {
			t.Errorf("assigned_by = %d, want %d", target.AssignedBy, supervisor.ID)
		}
	}
}

func TestBulkAssignReportsPerLineFailures(t *testing.T) {
	repo := newTestStorage(t)
	seedIncomeLine(t, repo, "REV-001", "Market Stall Fees")
	svc := NewTargetService(repo)
	ctx := context.Background()

	officer, err := repo.CreateStaff(ctx, "Tunde Ajayi", "Revenue")
	if err != nil {
		t.Fatalf("CreateStaff() error = %v", err)
	}

	// Unknown account violates the targets foreign key.
	result := svc.BulkAssign(ctx, officer, []string{"REV-001", "NOPE-999"}, 6, 2025,
		core.Money{Cents: 50000}, core.Actor{ID: 1})
	if result.Success {
		t.Error("Success = true with a failed line")
	}
	if result.Assigned != 1 {
		t.Errorf("assigned = %d, want 1", result.Assigned)
	}
	if len(result.Outcomes) != 2 || result.Outcomes[1].Success {
		t.Errorf("outcomes = %+v, want second line failed", result.Outcomes)
	}
}

func TestBulkAssignUnknownOfficer(t *testing.T) {
	repo := newTestStorage(t)
	seedIncomeLine(t, repo, "REV-001", "Market Stall Fees")
	svc := NewTargetService(repo)

	result := svc.BulkAssign(context.Background(), 999, []string{"REV-001"}, 6, 2025,
		core.Money{Cents: 50000}, core.Actor{ID: 1})
	if result.Success || result.Assigned != 0 {
		t.Fatalf("result = %+v, want no assignments for unknown officer", result)
	}
}

func TestOfficerSummary(t *testing.T) {
	repo := newTestStorage(t)
	seedIncomeLine(t, repo, "REV-001", "Market Stall Fees")
	svc := NewTargetService(repo)
	ctx := context.Background()

	target := core.OfficerTarget{
		OfficerID: 3, AcctID: "REV-001", Month: 6, Year: 2025,
		Amount: core.Money{Cents: 100000},
	}
	if err := svc.SaveTarget(ctx, &target, core.Actor{ID: 1}); err != nil {
		t.Fatalf("SaveTarget() error = %v", err)
	}
	seedApprovedCollection(t, repo, "RCP-400", "REV-001", 80000, "2025-06-12", 3)
	// Another officer's collection must not count toward officer 3.
	seedApprovedCollection(t, repo, "RCP-401", "REV-001", 999999, "2025-06-12", 4)

	rows, err := svc.OfficerSummary(ctx, 3, 6, 2025)
	if err != nil {
		t.Fatalf("OfficerSummary() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("summary rows = %d, want 1", len(rows))
	}
	got := rows[0]
	if got.Collected.Cents != 80000 {
		t.Errorf("collected = %d, want 80000", got.Collected.Cents)
	}
	if math.Abs(got.VariancePercent-(-20.0)) > 1e-9 {
		t.Errorf("variance percent = %v, want -20", got.VariancePercent)
	}
}
