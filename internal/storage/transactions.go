package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ssandworth/incomeLineUpdatex/internal/core"
)

const transactionColumns = `
	id, receipt_no, amount_cents, payment_date, debit_account, credit_account,
	posted_by, remitting_id,
	approval_status, approved_by_id, approved_by_name, approval_time, decline_reason,
	verification_status, verified_by_id, verified_by_name, verification_time,
	flag_status, flag_reason, created_at`

func scanTransaction(scan func(dest ...any) error) (core.TransactionRecord, error) {
	var t core.TransactionRecord
	var paymentDate string
	var approvalTime, verificationTime sql.NullTime
	err := scan(
		&t.ID, &t.ReceiptNo, &t.Amount.Cents, &paymentDate, &t.DebitAccount, &t.CreditAccount,
		&t.PostedBy, &t.RemittingID,
		&t.ApprovalStatus, &t.ApprovedByID, &t.ApprovedByName, &approvalTime, &t.DeclineReason,
		&t.VerificationStatus, &t.VerifiedByID, &t.VerifiedByName, &verificationTime,
		&t.FlagStatus, &t.FlagReason, &t.CreatedAt,
	)
	if err != nil {
		return core.TransactionRecord{}, err
	}
	if d, err := time.Parse("2006-01-02", paymentDate); err == nil {
		t.PaymentDate = d
	}
	if approvalTime.Valid {
		t.ApprovalTime = &approvalTime.Time
	}
	if verificationTime.Valid {
		t.VerificationTime = &verificationTime.Time
	}
	return t, nil
}

// CreateTransaction posts one collection. The receipt number is the
// de-duplication key: a second posting with the same receipt fails with
// ErrDuplicateReceipt and leaves the store unchanged.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t *core.TransactionRecord) error {
	if t.Amount.Cents <= 0 {
		return core.ErrInvalidAmount
	}
	if t.ReceiptNo == "" || t.CreditAccount == "" {
		return core.ErrEmptyAccount
	}
	approval := t.ApprovalStatus
	if approval == core.ApprovalUnset {
		approval = core.ApprovalPending
	}
	verification := t.VerificationStatus
	if verification == core.VerificationUnset {
		verification = core.VerificationPending
	}
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, `
			INSERT INTO transactions (
				receipt_no, amount_cents, payment_date, debit_account, credit_account,
				posted_by, remitting_id, approval_status, verification_status
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`,
			t.ReceiptNo, t.Amount.Cents, t.PaymentDate.Format("2006-01-02"),
			t.DebitAccount, t.CreditAccount, t.PostedBy, t.RemittingID,
			string(approval), string(verification)).Scan(&t.ID)
	})
	if isUniqueViolation(err) {
		return fmt.Errorf("receipt %s: %w", t.ReceiptNo, core.ErrDuplicateReceipt)
	}
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	t.ApprovalStatus = approval
	t.VerificationStatus = verification
	return nil
}

// ReceiptExists reports whether a receipt number is already on file.
func (r *SQLiteRepository) ReceiptExists(ctx context.Context, receiptNo string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE receipt_no = ?`, receiptNo).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check receipt %s: %w", receiptNo, err)
	}
	return n > 0, nil
}

// GetTransaction fetches one transaction by id.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.TransactionRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.TransactionRecord{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.TransactionRecord{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return t, nil
}

// SetApprovalStatus moves the financial-control axis to a terminal state.
// The current status is re-read inside the transaction scope: a row whose
// approval was already decided by a concurrent reviewer fails with
// ErrAlreadyDecided instead of being silently overwritten.
func (r *SQLiteRepository) SetApprovalStatus(ctx context.Context, txID int64, status core.ApprovalStatus, actor core.Actor, reason string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		var current core.ApprovalStatus
		err := tx.QueryRowContext(ctx,
			`SELECT approval_status FROM transactions WHERE id = ?`, txID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("transaction %d: %w", txID, core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("read approval status of %d: %w", txID, err)
		}
		if current.Decided() {
			return fmt.Errorf("transaction %d approval is %s: %w", txID, current, core.ErrAlreadyDecided)
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE transactions SET
				approval_status = ?,
				approved_by_id = ?,
				approved_by_name = ?,
				approval_time = CURRENT_TIMESTAMP,
				decline_reason = ?
			WHERE id = ?`,
			string(status), actor.ID, actor.Name, reason, txID)
		if err != nil {
			return fmt.Errorf("set approval status of %d: %w", txID, err)
		}
		return nil
	})
}

// SetVerificationStatus moves the audit axis to a terminal state, with the
// same decided-state guard as SetApprovalStatus. A Flagged row may still be
// verified or declined; flagging is an override, not a decision.
func (r *SQLiteRepository) SetVerificationStatus(ctx context.Context, txID int64, status core.VerificationStatus, actor core.Actor, reason string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		var current core.VerificationStatus
		err := tx.QueryRowContext(ctx,
			`SELECT verification_status FROM transactions WHERE id = ?`, txID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("transaction %d: %w", txID, core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("read verification status of %d: %w", txID, err)
		}
		if current.Decided() {
			return fmt.Errorf("transaction %d verification is %s: %w", txID, current, core.ErrAlreadyDecided)
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE transactions SET
				verification_status = ?,
				verified_by_id = ?,
				verified_by_name = ?,
				verification_time = CURRENT_TIMESTAMP,
				decline_reason = CASE WHEN ? != '' THEN ? ELSE decline_reason END
			WHERE id = ?`,
			string(status), actor.ID, actor.Name, reason, reason, txID)
		if err != nil {
			return fmt.Errorf("set verification status of %d: %w", txID, err)
		}
		return nil
	})
}

// FlagTransaction is the audit override: it always sets both the
// verification status and the flag, regardless of what either axis currently
// holds.
func (r *SQLiteRepository) FlagTransaction(ctx context.Context, txID int64, actor core.Actor, reason string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE transactions SET
				verification_status = ?,
				flag_status = ?,
				verified_by_id = ?,
				verified_by_name = ?,
				verification_time = CURRENT_TIMESTAMP,
				flag_reason = ?
			WHERE id = ?`,
			string(core.VerificationFlagged), string(core.FlagFlagged),
			actor.ID, actor.Name, reason, txID)
		if err != nil {
			return fmt.Errorf("flag transaction %d: %w", txID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("flag transaction %d: %w", txID, err)
		}
		if n == 0 {
			return fmt.Errorf("transaction %d: %w", txID, core.ErrNotFound)
		}
		return nil
	})
}

// ListByApprovalStatus returns transactions awaiting (or past) a given
// financial-control state, newest first.
func (r *SQLiteRepository) ListByApprovalStatus(ctx context.Context, status core.ApprovalStatus, limit int) ([]core.TransactionRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE approval_status = ?
		ORDER BY id DESC
		LIMIT ?`, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions by approval status: %w", err)
	}
	defer rows.Close()

	var out []core.TransactionRecord
	for rows.Next() {
		t, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SumApprovedCollections totals the effectively-approved collections credited
// to an account in a period. Unset approval statuses count as approved; see
// core.IsEffectivelyApproved for why.
func (r *SQLiteRepository) SumApprovedCollections(ctx context.Context, acctID string, month, year int) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM transactions
		WHERE credit_account = ?
		AND CAST(strftime('%m', payment_date) AS INTEGER) = ?
		AND CAST(strftime('%Y', payment_date) AS INTEGER) = ?
		AND (approval_status = 'Approved' OR approval_status = '')`,
		acctID, month, year).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum collections for %s %d/%d: %w", acctID, month, year, err)
	}
	return core.Money{Cents: cents}, nil
}

// SumOfficerCollections is SumApprovedCollections restricted to one remitting
// officer. Never persisted, only computed for real-time officer views.
func (r *SQLiteRepository) SumOfficerCollections(ctx context.Context, officerID int64, acctID string, month, year int) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM transactions
		WHERE remitting_id = ?
		AND credit_account = ?
		AND CAST(strftime('%m', payment_date) AS INTEGER) = ?
		AND CAST(strftime('%Y', payment_date) AS INTEGER) = ?
		AND (approval_status = 'Approved' OR approval_status = '')`,
		officerID, acctID, month, year).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum officer %d collections for %s %d/%d: %w", officerID, acctID, month, year, err)
	}
	return core.Money{Cents: cents}, nil
}
