package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ssandworth/incomeLineUpdatex/internal/core"
)

type transactionDTO struct {
	ID            int64  `json:"id"`
	ReceiptNo     string `json:"receipt_no"`
	AmountCents   int64  `json:"amount_cents"`
	PaymentDate   string `json:"payment_date"`
	DebitAccount  string `json:"debit_account"`
	CreditAccount string `json:"credit_account"`
	PostedBy      int64  `json:"posted_by"`
	RemittingID   int64  `json:"remitting_id"`

	ApprovalStatus string `json:"approval_status"`
	ApprovedByName string `json:"approved_by_name,omitempty"`
	ApprovalTime   string `json:"approval_time,omitempty"`
	DeclineReason  string `json:"decline_reason,omitempty"`

	VerificationStatus string `json:"verification_status"`
	VerifiedByName     string `json:"verified_by_name,omitempty"`
	VerificationTime   string `json:"verification_time,omitempty"`

	FlagStatus string `json:"flag_status,omitempty"`
	FlagReason string `json:"flag_reason,omitempty"`
}

func transactionToDTO(tx core.TransactionRecord) transactionDTO {
	dto := transactionDTO{
		ID:                 tx.ID,
		ReceiptNo:          tx.ReceiptNo,
		AmountCents:        tx.Amount.Cents,
		PaymentDate:        tx.PaymentDate.Format("2006-01-02"),
		DebitAccount:       tx.DebitAccount,
		CreditAccount:      tx.CreditAccount,
		PostedBy:           tx.PostedBy,
		RemittingID:        tx.RemittingID,
		ApprovalStatus:     string(tx.ApprovalStatus),
		ApprovedByName:     tx.ApprovedByName,
		DeclineReason:      tx.DeclineReason,
		VerificationStatus: string(tx.VerificationStatus),
		VerifiedByName:     tx.VerifiedByName,
		FlagStatus:         string(tx.FlagStatus),
		FlagReason:         tx.FlagReason,
	}
	if tx.ApprovalTime != nil {
		dto.ApprovalTime = tx.ApprovalTime.Format(time.RFC3339)
	}
	if tx.VerificationTime != nil {
		dto.VerificationTime = tx.VerificationTime.Format(time.RFC3339)
	}
	return dto
}

type postCollectionRequest struct {
	ReceiptNo     string `json:"receipt_no"`
	Amount        string `json:"amount"`
	PaymentDate   string `json:"payment_date"`
	DebitAccount  string `json:"debit_account"`
	CreditAccount string `json:"credit_account"`
	RemittingID   int64  `json:"remitting_id"`
}

func (s *Server) handlePostCollection(w http.ResponseWriter, r *http.Request) {
	actor, err := s.authorize(r, core.PermViewBudget)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req postCollectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	cents, err := core.ParseAmountToCents(req.Amount)
	if err != nil {
		writeError(w, r, fmt.Errorf("amount %q: %w", req.Amount, err))
		return
	}
	paymentDate, err := parsePaymentDate(req.PaymentDate)
	if err != nil {
		writeError(w, r, err)
		return
	}

	tx := core.TransactionRecord{
		ReceiptNo:     req.ReceiptNo,
		Amount:        core.Money{Cents: cents},
		PaymentDate:   paymentDate,
		DebitAccount:  req.DebitAccount,
		CreditAccount: req.CreditAccount,
		PostedBy:      actor.ID,
		RemittingID:   req.RemittingID,
	}
	if err := s.approvals.PostCollection(r.Context(), &tx); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusCreated, "collection posted", transactionToDTO(tx))
}

func (s *Server) handleListPending(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authorize(r, core.PermApproveTransactions); err != nil {
		writeError(w, r, err)
		return
	}

	limit, err := queryInt64(r.URL.Query(), "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}

	txs, err := s.approvals.ListPendingApprovals(r.Context(), int(limit))
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]transactionDTO, 0, len(txs))
	for _, tx := range txs {
		out = append(out, transactionToDTO(tx))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authorize(r, core.PermViewBudget); err != nil {
		writeError(w, r, err)
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := s.approvals.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transactionToDTO(tx))
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	actor, err := s.authorize(r, core.PermApproveTransactions)
	if err != nil {
		writeError(w, r, err)
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.approvals.Approve(r.Context(), id, actor); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "transaction approved", nil)
}

type declineRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleDecline(w http.ResponseWriter, r *http.Request) {
	actor, err := s.authorize(r, core.PermApproveTransactions)
	if err != nil {
		writeError(w, r, err)
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req declineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.approvals.Decline(r.Context(), id, actor, req.Reason); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "transaction declined", nil)
}

type flagRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleFlag(w http.ResponseWriter, r *http.Request) {
	actor, err := s.authorize(r, core.PermApproveTransactions)
	if err != nil {
		writeError(w, r, err)
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req flagRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.approvals.Flag(r.Context(), id, actor, req.Reason); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "transaction flagged", nil)
}

type bulkReviewRequest struct {
	TransactionIDs []int64 `json:"transaction_ids"`
	Reason         string  `json:"reason"`
}

func (s *Server) handleBulkApprove(w http.ResponseWriter, r *http.Request) {
	actor, err := s.authorize(r, core.PermApproveTransactions)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req bulkReviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result := s.bulk.BulkApprove(r.Context(), req.TransactionIDs, actor)
	writeResult(w, http.StatusOK, result.Success, result.Message, result)
}

func (s *Server) handleBulkDecline(w http.ResponseWriter, r *http.Request) {
	actor, err := s.authorize(r, core.PermApproveTransactions)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req bulkReviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if _, err := s.bulk.BulkDecline(r.Context(), req.TransactionIDs, actor, req.Reason); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "bulk decline accepted", nil)
}
