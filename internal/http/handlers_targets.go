package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ssandworth/incomeLineUpdatex/internal/core"
)

type officerTargetDTO struct {
	ID          int64  `json:"id"`
	OfficerID   int64  `json:"officer_id"`
	OfficerName string `json:"officer_name,omitempty"`
	AcctID      string `json:"acct_id"`
	Month       int    `json:"month"`
	Year        int    `json:"year"`
	AmountCents int64  `json:"amount_cents"`
}

func targetToDTO(t core.OfficerTarget) officerTargetDTO {
	return officerTargetDTO{
		ID:          t.ID,
		OfficerID:   t.OfficerID,
		OfficerName: t.OfficerName,
		AcctID:      t.AcctID,
		Month:       t.Month,
		Year:        t.Year,
		AmountCents: t.Amount.Cents,
	}
}

type saveTargetRequest struct {
	OfficerID   int64  `json:"officer_id"`
	AcctID      string `json:"acct_id"`
	Month       int    `json:"month"`
	Year        int    `json:"year"`
	AmountCents int64  `json:"amount_cents"`
}

func (s *Server) handleSaveTarget(w http.ResponseWriter, r *http.Request) {
	actor, err := s.authorize(r, core.PermManageTargets)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req saveTargetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	target := core.OfficerTarget{
		OfficerID: req.OfficerID,
		AcctID:    req.AcctID,
		Month:     req.Month,
		Year:      req.Year,
		Amount:    core.Money{Cents: req.AmountCents},
	}
	if err := s.targets.SaveTarget(r.Context(), &target, actor); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "target saved", targetToDTO(target))
}

type bulkAssignRequest struct {
	OfficerID   int64    `json:"officer_id"`
	AcctIDs     []string `json:"acct_ids"`
	Month       int      `json:"month"`
	Year        int      `json:"year"`
	AmountCents int64    `json:"amount_cents"`
}

func (s *Server) handleBulkAssignTargets(w http.ResponseWriter, r *http.Request) {
	actor, err := s.authorize(r, core.PermManageTargets)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req bulkAssignRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result := s.targets.BulkAssign(r.Context(), req.OfficerID, req.AcctIDs,
		req.Month, req.Year, core.Money{Cents: req.AmountCents}, actor)
	writeResult(w, http.StatusOK, result.Success, result.Message, result)
}

func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authorize(r, core.PermViewBudget); err != nil {
		writeError(w, r, err)
		return
	}

	query := r.URL.Query()
	params, err := parseMonthParams(query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	officerID, err := queryInt64(query, "officer_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if params.Month == 0 {
		params.Month = int(time.Now().Month())
	}

	targets, err := s.targets.ListTargets(r.Context(), officerID, params.Month, params.Year)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]officerTargetDTO, 0, len(targets))
	for _, t := range targets {
		out = append(out, targetToDTO(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAccountTargets(w http.ResponseWriter, r *http.Request) {
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

	targets, err := s.targets.AccountTargets(r.Context(), acctID, params.Month, params.Year)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]officerTargetDTO, 0, len(targets))
	for _, t := range targets {
		out = append(out, targetToDTO(t))
	}
	writeJSON(w, http.StatusOK, out)
}

type officerDTO struct {
	UserID     int64  `json:"user_id"`
	FullName   string `json:"full_name"`
	Department string `json:"department"`
}

func (s *Server) handleListOfficers(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authorize(r, core.PermViewBudget); err != nil {
		writeError(w, r, err)
		return
	}

	raw := strings.TrimSpace(r.URL.Query().Get("departments"))
	if raw == "" {
		writeError(w, r, fmt.Errorf("%w: missing departments", errBadRequest))
		return
	}
	var departments []string
	for _, d := range strings.Split(raw, ",") {
		if d = strings.TrimSpace(d); d != "" {
			departments = append(departments, d)
		}
	}

	officers, err := s.targets.ListOfficers(r.Context(), departments)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]officerDTO, 0, len(officers))
	for _, o := range officers {
		out = append(out, officerDTO{UserID: o.ID, FullName: o.Name, Department: o.Department})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleOfficerSummary(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authorize(r, core.PermViewBudget); err != nil {
		writeError(w, r, err)
		return
	}

	officerID, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	params, err := parseMonthParams(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if params.Month == 0 {
		params.Month = int(time.Now().Month())
	}

	rows, err := s.targets.OfficerSummary(r.Context(), officerID, params.Month, params.Year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
