// Package sheets defines the ports for external budget data sources.
package sheets

import (
	"context"

	"github.com/ssandworth/incomeLineUpdatex/internal/core"
)

// BudgetRowSource streams raw budget rows for bulk ingestion. Implementations
// own any underlying handle; callers must Close when done regardless of how
// the read went.
type BudgetRowSource interface {
	// Rows returns every data row in source order. Header rows are the
	// source's problem, not the caller's.
	Rows(ctx context.Context) ([]core.BudgetRow, error)
	Close() error
}
