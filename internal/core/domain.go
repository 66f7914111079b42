package core

import (
	"errors"
	"strings"
	"time"
)

// Account status values as stored in the accounts table.
const (
	AccountActive   = "Active"
	AccountInactive = "Inactive"
)

// ApprovalStatus is the financial-control sign-off dimension of a transaction.
type ApprovalStatus string

// VerificationStatus is the independent audit sign-off dimension.
type VerificationStatus string

// FlagStatus marks a transaction for audit scrutiny.
type FlagStatus string

const (
	ApprovalUnset    ApprovalStatus = ""
	ApprovalPending  ApprovalStatus = "Pending"
	ApprovalApproved ApprovalStatus = "Approved"
	ApprovalDeclined ApprovalStatus = "Declined"

	VerificationUnset    VerificationStatus = ""
	VerificationPending  VerificationStatus = "Pending"
	VerificationApproved VerificationStatus = "Approved"
	VerificationDeclined VerificationStatus = "Declined"
	VerificationFlagged  VerificationStatus = "Flagged"

	FlagNone    FlagStatus = ""
	FlagFlagged FlagStatus = "Flagged"
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidYear      = errors.New("invalid year")
	ErrEmptyAccount     = errors.New("empty account id")
	ErrUnknownAccount   = errors.New("unknown account id")
	ErrDuplicateReceipt = errors.New("duplicate receipt number")
	ErrNotFound         = errors.New("not found")
	ErrAlreadyDecided   = errors.New("status already decided")
	ErrUnsupported      = errors.New("unsupported operation")
)

type (
	// Actor identifies the authenticated member of staff performing an
	// operation. Identity is threaded through every engine call; the
	// engine never reads it from ambient state.
	Actor struct {
		ID         int64
		Name       string
		Department string
	}

	// Account is one revenue category (income line) in the chart of
	// accounts.
	Account struct {
		AcctID     string
		AcctDesc   string
		Active     bool
		IncomeLine bool
	}

	// BudgetLine is the yearly budget allocation for one income line,
	// broken into twelve monthly amounts. AnnualTotal is always a
	// projection of Monthly and is recomputed on every save.
	BudgetLine struct {
		ID          int64
		AcctID      string
		AcctDesc    string
		Year        int
		Monthly     [12]Money
		AnnualTotal Money
		Status      string
		CreatedBy   int64
		UpdatedBy   int64
		// Display names joined from the staffs table on list reads.
		CreatedByName string
		UpdatedByName string
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}

	// TransactionRecord is one posted collection with its two independent
	// review dimensions and the audit override flag.
	TransactionRecord struct {
		ID            int64
		ReceiptNo     string
		Amount        Money
		PaymentDate   time.Time
		DebitAccount  string
		CreditAccount string
		PostedBy      int64
		RemittingID   int64

		ApprovalStatus ApprovalStatus
		ApprovedByID   int64
		ApprovedByName string
		ApprovalTime   *time.Time
		DeclineReason  string

		VerificationStatus VerificationStatus
		VerifiedByID       int64
		VerifiedByName     string
		VerificationTime   *time.Time

		FlagStatus FlagStatus
		FlagReason string

		CreatedAt time.Time
	}

	// BudgetRow is one externally supplied ingestion row. Amounts are kept
	// raw: the ingestor, not the row source, decides what is numeric.
	BudgetRow struct {
		AcctID   string
		AcctDesc string
		Amounts  [12]string
	}

	// OfficerTarget is the collection amount one revenue officer is
	// expected to remit for an account in a given month.
	OfficerTarget struct {
		ID          int64
		OfficerID   int64
		OfficerName string
		AcctID      string
		Month       int
		Year        int
		Amount      Money
		AssignedBy  int64
	}
)

// SumMonthly returns the derived annual total of the twelve monthly amounts.
func (b BudgetLine) SumMonthly() Money {
	var total int64
	for _, m := range b.Monthly {
		total += m.Cents
	}
	return Money{Cents: total}
}

func (b BudgetLine) Validate() error {
	if strings.TrimSpace(b.AcctID) == "" {
		return ErrEmptyAccount
	}
	if b.Year < 2000 || b.Year > 2100 {
		return ErrInvalidYear
	}
	for _, m := range b.Monthly {
		if m.Cents < 0 {
			return ErrInvalidAmount
		}
	}
	return nil
}

// IsEffectivelyApproved reports whether a transaction counts as approved for
// variance purposes. Legacy rows carry an unset approval status and are
// treated identically to explicitly approved ones; keep that equivalence
// here rather than re-deriving it at call sites.
func IsEffectivelyApproved(s ApprovalStatus) bool {
	return s == ApprovalApproved || s == ApprovalUnset
}

// Decided reports whether the financial-control axis has reached a terminal
// state.
func (s ApprovalStatus) Decided() bool {
	return s == ApprovalApproved || s == ApprovalDeclined
}

// Decided reports whether the audit axis has reached a terminal state.
// Flagged is an override, not a decision: a flagged transaction can still be
// verified or declined afterwards.
func (s VerificationStatus) Decided() bool {
	return s == VerificationApproved || s == VerificationDeclined
}
