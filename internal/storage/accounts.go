package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ssandworth/incomeLineUpdatex/internal/core"
)

// UpsertAccount creates or replaces one chart-of-accounts entry.
func (r *SQLiteRepository) UpsertAccount(ctx context.Context, a core.Account) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (acct_id, acct_desc, active, income_line)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (acct_id) DO UPDATE SET
			acct_desc = excluded.acct_desc,
			active = excluded.active,
			income_line = excluded.income_line`,
		a.AcctID, a.AcctDesc, boolToInt(a.Active), boolToInt(a.IncomeLine))
	if err != nil {
		return fmt.Errorf("upsert account %s: %w", a.AcctID, err)
	}
	return nil
}

// ListActiveIncomeLines returns the whitelist of accounts that budget lines
// and ingestion rows may reference, ordered by display label.
func (r *SQLiteRepository) ListActiveIncomeLines(ctx context.Context) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT acct_id, acct_desc, active, income_line
		FROM accounts
		WHERE active = 1 AND income_line = 1
		ORDER BY acct_desc ASC`)
	if err != nil {
		return nil, fmt.Errorf("list active income lines: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		var a core.Account
		var active, income int
		if err := rows.Scan(&a.AcctID, &a.AcctDesc, &active, &income); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		a.Active = active == 1
		a.IncomeLine = income == 1
		out = append(out, a)
	}
	return out, rows.Err()
}

// CreateStaff inserts a staff record and returns its user id.
func (r *SQLiteRepository) CreateStaff(ctx context.Context, fullName, department string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO staffs (full_name, department) VALUES (?, ?)
		RETURNING user_id`, fullName, department).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create staff: %w", err)
	}
	return id, nil
}

// GetStaff looks up one staff member.
func (r *SQLiteRepository) GetStaff(ctx context.Context, userID int64) (core.Actor, error) {
	var a core.Actor
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, full_name, department FROM staffs WHERE user_id = ?`,
		userID).Scan(&a.ID, &a.Name, &a.Department)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Actor{}, fmt.Errorf("staff %d: %w", userID, core.ErrNotFound)
	}
	if err != nil {
		return core.Actor{}, fmt.Errorf("get staff %d: %w", userID, err)
	}
	return a, nil
}

// ListStaffByDepartments returns collecting officers eligible for targets,
// ordered by name.
func (r *SQLiteRepository) ListStaffByDepartments(ctx context.Context, departments []string) ([]core.Actor, error) {
	if len(departments) == 0 {
		return nil, nil
	}
	placeholders := make([]byte, 0, len(departments)*2)
	args := make([]any, 0, len(departments))
	for i, d := range departments {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args = append(args, d)
	}
	query := fmt.Sprintf(`
		SELECT user_id, full_name, department
		FROM staffs
		WHERE department IN (%s)
		ORDER BY full_name ASC`, placeholders)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list staff by departments: %w", err)
	}
	defer rows.Close()

	var out []core.Actor
	for rows.Next() {
		var a core.Actor
		if err := rows.Scan(&a.ID, &a.Name, &a.Department); err != nil {
			return nil, fmt.Errorf("scan staff: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
