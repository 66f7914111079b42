package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ssandworth/incomeLineUpdatex/internal/core"
)

const budgetLineColumns = `
	bl.id, bl.acct_id, bl.acct_desc, bl.budget_year,
	bl.january_cents, bl.february_cents, bl.march_cents, bl.april_cents,
	bl.may_cents, bl.june_cents, bl.july_cents, bl.august_cents,
	bl.september_cents, bl.october_cents, bl.november_cents, bl.december_cents,
	bl.annual_cents, bl.status, bl.created_by, bl.updated_by,
	bl.created_at, bl.updated_at`

func scanBudgetLine(scan func(dest ...any) error) (core.BudgetLine, error) {
	var b core.BudgetLine
	dest := []any{&b.ID, &b.AcctID, &b.AcctDesc, &b.Year}
	for i := range b.Monthly {
		dest = append(dest, &b.Monthly[i].Cents)
	}
	dest = append(dest, &b.AnnualTotal.Cents, &b.Status, &b.CreatedBy, &b.UpdatedBy,
		&b.CreatedAt, &b.UpdatedAt)
	if err := scan(dest...); err != nil {
		return core.BudgetLine{}, err
	}
	return b, nil
}

// SaveBudgetLine creates or updates a budget line inside one transaction
// scope. The twelve monthly amounts are the source of truth: the stored
// annual total is recomputed from them on every write, never taken from the
// caller. A line with an id updates that row; a line without one inserts, or
// updates in place when the (account, year) pair already exists. The actor is
// recorded as creator on insert and updater on update.
func (r *SQLiteRepository) SaveBudgetLine(ctx context.Context, line *core.BudgetLine, actorID int64) error {
	if err := line.Validate(); err != nil {
		return err
	}
	annual := line.SumMonthly()

	return r.withTx(ctx, func(tx *sql.Tx) error {
		monthArgs := make([]any, 0, 12)
		for _, m := range line.Monthly {
			monthArgs = append(monthArgs, m.Cents)
		}

		if line.ID > 0 {
			args := []any{line.AcctID, line.AcctDesc, line.Year}
			args = append(args, monthArgs...)
			args = append(args, annual.Cents, line.Status, actorID, line.ID)
			res, err := tx.ExecContext(ctx, `
				UPDATE budget_lines SET
					acct_id = ?, acct_desc = ?, budget_year = ?,
					january_cents = ?, february_cents = ?, march_cents = ?, april_cents = ?,
					may_cents = ?, june_cents = ?, july_cents = ?, august_cents = ?,
					september_cents = ?, october_cents = ?, november_cents = ?, december_cents = ?,
					annual_cents = ?, status = ?, updated_by = ?,
					updated_at = CURRENT_TIMESTAMP
				WHERE id = ?`, args...)
			if err != nil {
				return fmt.Errorf("update budget line %d: %w", line.ID, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("update budget line %d: %w", line.ID, err)
			}
			if n == 0 {
				return fmt.Errorf("budget line %d: %w", line.ID, core.ErrNotFound)
			}
			line.AnnualTotal = annual
			line.UpdatedBy = actorID
			return nil
		}

		args := []any{line.AcctID, line.AcctDesc, line.Year}
		args = append(args, monthArgs...)
		args = append(args, annual.Cents, line.Status, actorID)
		err := tx.QueryRowContext(ctx, `
			INSERT INTO budget_lines (
				acct_id, acct_desc, budget_year,
				january_cents, february_cents, march_cents, april_cents,
				may_cents, june_cents, july_cents, august_cents,
				september_cents, october_cents, november_cents, december_cents,
				annual_cents, status, created_by
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (acct_id, budget_year) DO UPDATE SET
				acct_desc = excluded.acct_desc,
				january_cents = excluded.january_cents,
				february_cents = excluded.february_cents,
				march_cents = excluded.march_cents,
				april_cents = excluded.april_cents,
				may_cents = excluded.may_cents,
				june_cents = excluded.june_cents,
				july_cents = excluded.july_cents,
				august_cents = excluded.august_cents,
				september_cents = excluded.september_cents,
				october_cents = excluded.october_cents,
				november_cents = excluded.november_cents,
				december_cents = excluded.december_cents,
				annual_cents = excluded.annual_cents,
				status = excluded.status,
				updated_by = excluded.created_by,
				updated_at = CURRENT_TIMESTAMP
			RETURNING id`, args...).Scan(&line.ID)
		if err != nil {
			return fmt.Errorf("insert budget line %s/%d: %w", line.AcctID, line.Year, err)
		}
		line.AnnualTotal = annual
		line.CreatedBy = actorID
		return nil
	})
}

// GetBudgetLine fetches one line by id.
func (r *SQLiteRepository) GetBudgetLine(ctx context.Context, id int64) (core.BudgetLine, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+budgetLineColumns+`
		FROM budget_lines bl
		WHERE bl.id = ?`, id)
	b, err := scanBudgetLine(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BudgetLine{}, fmt.Errorf("budget line %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.BudgetLine{}, fmt.Errorf("get budget line %d: %w", id, err)
	}
	return b, nil
}

// GetBudgetLineByAccount fetches the line for one (account, year) pair.
func (r *SQLiteRepository) GetBudgetLineByAccount(ctx context.Context, acctID string, year int) (core.BudgetLine, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+budgetLineColumns+`
		FROM budget_lines bl
		WHERE bl.acct_id = ? AND bl.budget_year = ?`, acctID, year)
	b, err := scanBudgetLine(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BudgetLine{}, fmt.Errorf("budget line %s/%d: %w", acctID, year, core.ErrNotFound)
	}
	if err != nil {
		return core.BudgetLine{}, fmt.Errorf("get budget line %s/%d: %w", acctID, year, err)
	}
	return b, nil
}

// ListBudgetLines returns all lines for a fiscal year, ordered by display
// label, with creator and updater display names joined in.
func (r *SQLiteRepository) ListBudgetLines(ctx context.Context, year int) ([]core.BudgetLine, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+budgetLineColumns+`,
			COALESCE(s.full_name, '') AS created_by_name,
			COALESCE(su.full_name, '') AS updated_by_name
		FROM budget_lines bl
		LEFT JOIN staffs s ON bl.created_by = s.user_id
		LEFT JOIN staffs su ON bl.updated_by = su.user_id
		WHERE bl.budget_year = ?
		ORDER BY bl.acct_desc ASC`, year)
	if err != nil {
		return nil, fmt.Errorf("list budget lines for %d: %w", year, err)
	}
	defer rows.Close()

	var out []core.BudgetLine
	for rows.Next() {
		var createdName, updatedName string
		b, err := scanBudgetLine(func(dest ...any) error {
			dest = append(dest, &createdName, &updatedName)
			return rows.Scan(dest...)
		})
		if err != nil {
			return nil, fmt.Errorf("scan budget line: %w", err)
		}
		b.CreatedByName = createdName
		b.UpdatedByName = updatedName
		out = append(out, b)
	}
	return out, rows.Err()
}

// DeleteBudgetLine removes a line unconditionally and reports whether a row
// was deleted.
func (r *SQLiteRepository) DeleteBudgetLine(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM budget_lines WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete budget line %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete budget line %d: %w", id, err)
	}
	return n > 0, nil
}
