package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ssandworth/incomeLineUpdatex/internal/core"
)

// UpsertPerformance stores one reconciled month for one account. Repeated
// reconciliations overwrite the previous row for the same period.
func (r *SQLiteRepository) UpsertPerformance(ctx context.Context, snap core.PerformanceSnapshot) error {
	if !core.ValidMonth(snap.Month) {
		return core.ErrInvalidMonth
	}
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO budget_performance (
				acct_id, acct_desc, performance_month, performance_year,
				budgeted_cents, actual_cents, variance_cents, variance_percent,
				performance_status
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (acct_id, performance_month, performance_year) DO UPDATE SET
				acct_desc = excluded.acct_desc,
				budgeted_cents = excluded.budgeted_cents,
				actual_cents = excluded.actual_cents,
				variance_cents = excluded.variance_cents,
				variance_percent = excluded.variance_percent,
				performance_status = excluded.performance_status,
				updated_at = CURRENT_TIMESTAMP`,
			snap.AcctID, snap.AcctDesc, snap.Month, snap.Year,
			snap.Budgeted.Cents, snap.Actual.Cents, snap.VarianceAmount.Cents,
			snap.VariancePercent, string(snap.Status))
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert performance %s %d/%d: %w", snap.AcctID, snap.Month, snap.Year, err)
	}
	return nil
}

// UpsertPerformanceBatch writes a whole reconciliation pass atomically, so a
// partial pass never becomes visible to readers.
func (r *SQLiteRepository) UpsertPerformanceBatch(ctx context.Context, snaps []core.PerformanceSnapshot) error {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO budget_performance (
				acct_id, acct_desc, performance_month, performance_year,
				budgeted_cents, actual_cents, variance_cents, variance_percent,
				performance_status
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (acct_id, performance_month, performance_year) DO UPDATE SET
				acct_desc = excluded.acct_desc,
				budgeted_cents = excluded.budgeted_cents,
				actual_cents = excluded.actual_cents,
				variance_cents = excluded.variance_cents,
				variance_percent = excluded.variance_percent,
				performance_status = excluded.performance_status,
				updated_at = CURRENT_TIMESTAMP`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, snap := range snaps {
			if !core.ValidMonth(snap.Month) {
				return fmt.Errorf("account %s: %w", snap.AcctID, core.ErrInvalidMonth)
			}
			_, err := stmt.ExecContext(ctx,
				snap.AcctID, snap.AcctDesc, snap.Month, snap.Year,
				snap.Budgeted.Cents, snap.Actual.Cents, snap.VarianceAmount.Cents,
				snap.VariancePercent, string(snap.Status))
			if err != nil {
				return fmt.Errorf("account %s %d/%d: %w", snap.AcctID, snap.Month, snap.Year, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("upsert performance batch: %w", err)
	}
	return nil
}

// QueryPerformance returns persisted performance rows for a year, optionally
// narrowed to one month when month is 1..12.
func (r *SQLiteRepository) QueryPerformance(ctx context.Context, year, month int) ([]core.PerformanceSnapshot, error) {
	query := `
		SELECT acct_id, acct_desc, performance_month, performance_year,
			budgeted_cents, actual_cents, variance_cents, variance_percent,
			performance_status
		FROM budget_performance
		WHERE performance_year = ?`
	args := []any{year}
	if month != 0 {
		if !core.ValidMonth(month) {
			return nil, core.ErrInvalidMonth
		}
		query += ` AND performance_month = ?`
		args = append(args, month)
	}
	query += ` ORDER BY acct_desc, performance_month`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query performance %d: %w", year, err)
	}
	defer rows.Close()

	var out []core.PerformanceSnapshot
	for rows.Next() {
		var s core.PerformanceSnapshot
		err := rows.Scan(&s.AcctID, &s.AcctDesc, &s.Month, &s.Year,
			&s.Budgeted.Cents, &s.Actual.Cents, &s.VarianceAmount.Cents,
			&s.VariancePercent, &s.Status)
		if err != nil {
			return nil, fmt.Errorf("scan performance row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
