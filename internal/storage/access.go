package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ssandworth/incomeLineUpdatex/internal/core"
)

// GetAccessControl loads a staff member's capability row. A missing row is
// not an error: it comes back as the zero value, which grants nothing.
func (r *SQLiteRepository) GetAccessControl(ctx context.Context, userID int64) (core.AccessControl, error) {
	ac := core.AccessControl{UserID: userID}
	var view, manage, approve, targets int
	err := r.db.QueryRowContext(ctx, `
		SELECT can_view_budget, can_manage_budget, can_approve_transactions, can_manage_targets
		FROM budget_access_control
		WHERE user_id = ?`, userID).Scan(&view, &manage, &approve, &targets)
	if errors.Is(err, sql.ErrNoRows) {
		return ac, nil
	}
	if err != nil {
		return core.AccessControl{}, fmt.Errorf("get access control for %d: %w", userID, err)
	}
	ac.ViewBudget = view != 0
	ac.ManageBudget = manage != 0
	ac.ApproveTransactions = approve != 0
	ac.ManageTargets = targets != 0
	return ac, nil
}

// SetAccessControl replaces a staff member's capability row.
func (r *SQLiteRepository) SetAccessControl(ctx context.Context, ac core.AccessControl) error {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO budget_access_control (
				user_id, can_view_budget, can_manage_budget,
				can_approve_transactions, can_manage_targets
			) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (user_id) DO UPDATE SET
				can_view_budget = excluded.can_view_budget,
				can_manage_budget = excluded.can_manage_budget,
				can_approve_transactions = excluded.can_approve_transactions,
				can_manage_targets = excluded.can_manage_targets`,
			ac.UserID, boolToInt(ac.ViewBudget), boolToInt(ac.ManageBudget),
			boolToInt(ac.ApproveTransactions), boolToInt(ac.ManageTargets))
		return err
	})
	if err != nil {
		return fmt.Errorf("set access control for %d: %w", ac.UserID, err)
	}
	return nil
}
