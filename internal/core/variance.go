package core

// PerformanceStatus classifies a budget line's realized collections against
// its budgeted amount.
type PerformanceStatus string

const (
	AboveBudget PerformanceStatus = "Above Budget"
	OnBudget    PerformanceStatus = "On Budget"
	BelowBudget PerformanceStatus = "Below Budget"
)

// DefaultTolerancePercent is the band, in percentage points, within which a
// variance still counts as on budget.
const DefaultTolerancePercent = 5.0

// PerformanceSnapshot is one reconciled (account, month, year) row: budgeted
// versus actual with the derived variance fields.
type PerformanceSnapshot struct {
	AcctID          string
	AcctDesc        string
	Month           int
	Year            int
	Budgeted        Money
	Actual          Money
	VarianceAmount  Money
	VariancePercent float64
	Status          PerformanceStatus
}

// VarianceAmount is actual minus budgeted.
func VarianceAmount(actual, budgeted Money) Money {
	return Money{Cents: actual.Cents - budgeted.Cents}
}

// VariancePercent normalizes the variance against the budgeted amount,
// in percent. Zero budget yields zero rather than a division blow-up.
func VariancePercent(actual, budgeted Money) float64 {
	if budgeted.Cents == 0 {
		return 0
	}
	return float64(actual.Cents-budgeted.Cents) / float64(budgeted.Cents) * 100.0
}

// DerivePerformanceStatus buckets a variance percentage against a tolerance
// band.
func DerivePerformanceStatus(variancePercent, tolerancePercent float64) PerformanceStatus {
	switch {
	case variancePercent > tolerancePercent:
		return AboveBudget
	case variancePercent < -tolerancePercent:
		return BelowBudget
	default:
		return OnBudget
	}
}

// NewSnapshot computes the derived fields for one (account, period) pair.
func NewSnapshot(acctID string, month, year int, budgeted, actual Money, tolerance float64) PerformanceSnapshot {
	pct := VariancePercent(actual, budgeted)
	return PerformanceSnapshot{
		AcctID:          acctID,
		Month:           month,
		Year:            year,
		Budgeted:        budgeted,
		Actual:          actual,
		VarianceAmount:  VarianceAmount(actual, budgeted),
		VariancePercent: pct,
		Status:          DerivePerformanceStatus(pct, tolerance),
	}
}
