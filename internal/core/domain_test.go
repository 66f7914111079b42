package core

import "testing"

func TestBudgetLineSumMonthly(t *testing.T) {
	var line BudgetLine
	for i := range line.Monthly {
		line.Monthly[i] = Money{Cents: int64(i+1) * 100}
	}
	// 1+2+...+12 = 78
	if got := line.SumMonthly().Cents; got != 7800 {
		t.Fatalf("SumMonthly() = %d, want 7800", got)
	}
}

func TestBudgetLineValidate(t *testing.T) {
	good := BudgetLine{AcctID: "carpark", Year: 2024}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected valid line, got %v", err)
	}

	tests := []struct {
		name string
		line BudgetLine
		want error
	}{
		{"empty account", BudgetLine{Year: 2024}, ErrEmptyAccount},
		{"year too small", BudgetLine{AcctID: "carpark", Year: 1999}, ErrInvalidYear},
		{"year too large", BudgetLine{AcctID: "carpark", Year: 2101}, ErrInvalidYear},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.line.Validate(); err != tt.want {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}

	neg := BudgetLine{AcctID: "carpark", Year: 2024}
	neg.Monthly[4] = Money{Cents: -1}
	if err := neg.Validate(); err != ErrInvalidAmount {
		t.Fatalf("negative monthly amount: got %v, want %v", err, ErrInvalidAmount)
	}
}

func TestIsEffectivelyApproved(t *testing.T) {
	tests := []struct {
		status ApprovalStatus
		want   bool
	}{
		{ApprovalApproved, true},
		{ApprovalUnset, true}, // legacy rows with no status count as approved
		{ApprovalPending, false},
		{ApprovalDeclined, false},
	}
	for _, tt := range tests {
		if got := IsEffectivelyApproved(tt.status); got != tt.want {
			t.Errorf("IsEffectivelyApproved(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestStatusDecided(t *testing.T) {
	if ApprovalPending.Decided() || ApprovalUnset.Decided() {
		t.Error("pending/unset approval should not be decided")
	}
	if !ApprovalApproved.Decided() || !ApprovalDeclined.Decided() {
		t.Error("approved/declined approval should be decided")
	}
	if VerificationFlagged.Decided() {
		t.Error("flagged is an override, not a decision")
	}
	if !VerificationApproved.Decided() || !VerificationDeclined.Decided() {
		t.Error("approved/declined verification should be decided")
	}
}
