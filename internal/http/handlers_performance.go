package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ssandworth/incomeLineUpdatex/internal/amqp"
	"github.com/ssandworth/incomeLineUpdatex/internal/core"
)

type performanceRowDTO struct {
	AcctID          string  `json:"acct_id"`
	AcctDesc        string  `json:"acct_desc"`
	Month           int     `json:"month"`
	Year            int     `json:"year"`
	BudgetedCents   int64   `json:"budgeted_cents"`
	ActualCents     int64   `json:"actual_cents"`
	VarianceCents   int64   `json:"variance_cents"`
	VariancePercent float64 `json:"variance_percent"`
	Status          string  `json:"status"`
}

func snapshotToDTO(snap core.PerformanceSnapshot) performanceRowDTO {
	return performanceRowDTO{
		AcctID:          snap.AcctID,
		AcctDesc:        snap.AcctDesc,
		Month:           snap.Month,
		Year:            snap.Year,
		BudgetedCents:   snap.Budgeted.Cents,
		ActualCents:     snap.Actual.Cents,
		VarianceCents:   snap.VarianceAmount.Cents,
		VariancePercent: snap.VariancePercent,
		Status:          string(snap.Status),
	}
}

func (s *Server) handleQueryPerformance(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authorize(r, core.PermViewBudget); err != nil {
		writeError(w, r, err)
		return
	}

	params, err := parseMonthParams(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	officerID, err := queryInt64(r.URL.Query(), "officer_id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	snaps, err := s.performance.QueryPerformance(r.Context(), params.Year, params.Month, officerID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]performanceRowDTO, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, snapshotToDTO(snap))
	}
	writeJSON(w, http.StatusOK, out)
}

type reconcileHTTPRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authorize(r, core.PermManageBudget); err != nil {
		writeError(w, r, err)
		return
	}

	var req reconcileHTTPRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Year == 0 {
		req.Year = time.Now().Year()
	}

	// Hand the pass to the worker when the broker is up; otherwise run it
	// inline so the endpoint still works on a broker outage.
	if s.amqpClient != nil {
		msg := amqp.NewReconcileRequestMessage(req.Year, req.Month)
		if err := s.amqpClient.PublishReconcileRequest(r.Context(), msg); err == nil {
			writeMessage(w, http.StatusAccepted, "reconciliation queued", nil)
			return
		}
		slog.WarnContext(r.Context(), "Reconcile publish failed, running inline",
			"year", req.Year, "month", req.Month)
	}

	if err := s.performance.Reconcile(r.Context(), req.Year, req.Month); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "reconciliation complete", nil)
}

func (s *Server) handleDailyTarget(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authorize(r, core.PermViewBudget); err != nil {
		writeError(w, r, err)
		return
	}

	query := r.URL.Query()
	acctID := strings.TrimSpace(query.Get("acct_id"))
	if acctID == "" {
		writeError(w, r, fmt.Errorf("%w: missing acct_id", errBadRequest))
		return
	}
	params, err := parseMonthParams(query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if params.Month == 0 {
		params.Month = int(time.Now().Month())
	}

	target, err := s.performance.DailyTarget(r.Context(), acctID, params.Month, params.Year)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"acct_id":            acctID,
		"month":              params.Month,
		"year":               params.Year,
		"working_days":       core.WorkingDays(params.Month, params.Year),
		"daily_target_cents": target,
	})
}
