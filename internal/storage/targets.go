package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ssandworth/incomeLineUpdatex/internal/core"
)

// SaveOfficerTarget upserts the collection target for one officer on one
// account and period.
func (r *SQLiteRepository) SaveOfficerTarget(ctx context.Context, t *core.OfficerTarget) error {
	if t.Amount.Cents < 0 {
		return core.ErrInvalidAmount
	}
	if !core.ValidMonth(t.Month) {
		return core.ErrInvalidMonth
	}
	if t.AcctID == "" {
		return core.ErrEmptyAccount
	}
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, `
			INSERT INTO officer_targets (
				officer_id, acct_id, target_month, target_year, target_cents, assigned_by
			) VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (officer_id, acct_id, target_month, target_year) DO UPDATE SET
				target_cents = excluded.target_cents,
				assigned_by = excluded.assigned_by,
				updated_at = CURRENT_TIMESTAMP
			RETURNING id`,
			t.OfficerID, t.AcctID, t.Month, t.Year, t.Amount.Cents, t.AssignedBy).Scan(&t.ID)
	})
	if err != nil {
		return fmt.Errorf("save target for officer %d on %s: %w", t.OfficerID, t.AcctID, err)
	}
	return nil
}

// ListOfficerTargets returns an officer's targets for a period, with the
// officer's name joined in.
func (r *SQLiteRepository) ListOfficerTargets(ctx context.Context, officerID int64, month, year int) ([]core.OfficerTarget, error) {
	if !core.ValidMonth(month) {
		return nil, core.ErrInvalidMonth
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT ot.id, ot.officer_id, COALESCE(s.full_name, ''), ot.acct_id,
			ot.target_month, ot.target_year, ot.target_cents, ot.assigned_by
		FROM officer_targets ot
		LEFT JOIN staffs s ON ot.officer_id = s.user_id
		WHERE ot.officer_id = ? AND ot.target_month = ? AND ot.target_year = ?
		ORDER BY ot.acct_id`, officerID, month, year)
	if err != nil {
		return nil, fmt.Errorf("list targets for officer %d: %w", officerID, err)
	}
	defer rows.Close()

	var out []core.OfficerTarget
	for rows.Next() {
		var t core.OfficerTarget
		err := rows.Scan(&t.ID, &t.OfficerID, &t.OfficerName, &t.AcctID,
			&t.Month, &t.Year, &t.Amount.Cents, &t.AssignedBy)
		if err != nil {
			return nil, fmt.Errorf("scan officer target: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListTargetsForAccount returns every officer target on one account and
// period, for supervisor views.
func (r *SQLiteRepository) ListTargetsForAccount(ctx context.Context, acctID string, month, year int) ([]core.OfficerTarget, error) {
	if !core.ValidMonth(month) {
		return nil, core.ErrInvalidMonth
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT ot.id, ot.officer_id, COALESCE(s.full_name, ''), ot.acct_id,
			ot.target_month, ot.target_year, ot.target_cents, ot.assigned_by
		FROM officer_targets ot
		LEFT JOIN staffs s ON ot.officer_id = s.user_id
		WHERE ot.acct_id = ? AND ot.target_month = ? AND ot.target_year = ?
		ORDER BY s.full_name`, acctID, month, year)
	if err != nil {
		return nil, fmt.Errorf("list targets for account %s: %w", acctID, err)
	}
	defer rows.Close()

	var out []core.OfficerTarget
	for rows.Next() {
		var t core.OfficerTarget
		err := rows.Scan(&t.ID, &t.OfficerID, &t.OfficerName, &t.AcctID,
			&t.Month, &t.Year, &t.Amount.Cents, &t.AssignedBy)
		if err != nil {
			return nil, fmt.Errorf("scan officer target: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
