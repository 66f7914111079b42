package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ssandworth/incomeLineUpdatex/internal/core"
)

type budgetLineDTO struct {
	ID            int64     `json:"id"`
	AcctID        string    `json:"acct_id"`
	AcctDesc      string    `json:"acct_desc"`
	Year          int       `json:"year"`
	MonthlyCents  [12]int64 `json:"monthly_cents"`
	AnnualCents   int64     `json:"annual_cents"`
	Status        string    `json:"status"`
	CreatedByName string    `json:"created_by_name,omitempty"`
	UpdatedByName string    `json:"updated_by_name,omitempty"`
}

func budgetLineToDTO(line core.BudgetLine) budgetLineDTO {
	dto := budgetLineDTO{
		ID:            line.ID,
		AcctID:        line.AcctID,
		AcctDesc:      line.AcctDesc,
		Year:          line.Year,
		AnnualCents:   line.AnnualTotal.Cents,
		Status:        line.Status,
		CreatedByName: line.CreatedByName,
		UpdatedByName: line.UpdatedByName,
	}
	for i, m := range line.Monthly {
		dto.MonthlyCents[i] = m.Cents
	}
	return dto
}

type saveBudgetLineRequest struct {
	ID           int64     `json:"id"`
	AcctID       string    `json:"acct_id"`
	AcctDesc     string    `json:"acct_desc"`
	Year         int       `json:"year"`
	MonthlyCents [12]int64 `json:"monthly_cents"`
	Status       string    `json:"status"`
}

func (s *Server) handleListBudgetLines(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authorize(r, core.PermViewBudget); err != nil {
		writeError(w, r, err)
		return
	}

	params, err := parseMonthParams(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}

	lines, err := s.budget.ListBudgetLines(r.Context(), params.Year)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]budgetLineDTO, 0, len(lines))
	for _, line := range lines {
		out = append(out, budgetLineToDTO(line))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetBudgetLine(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authorize(r, core.PermViewBudget); err != nil {
		writeError(w, r, err)
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	line, err := s.budget.GetBudgetLine(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, budgetLineToDTO(line))
}

func (s *Server) handleSaveBudgetLine(w http.ResponseWriter, r *http.Request) {
	actor, err := s.authorize(r, core.PermManageBudget)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req saveBudgetLineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	line := core.BudgetLine{
		ID:       req.ID,
		AcctID:   req.AcctID,
		AcctDesc: req.AcctDesc,
		Year:     req.Year,
		Status:   req.Status,
	}
	for i, cents := range req.MonthlyCents {
		line.Monthly[i] = core.Money{Cents: cents}
	}

	if err := s.budget.SaveBudgetLine(r.Context(), &line, actor); err != nil {
		writeError(w, r, err)
		return
	}

	s.incomeLineCache.Delete(incomeLineCacheKey)
	writeMessage(w, http.StatusOK, "budget line saved", budgetLineToDTO(line))
}

func (s *Server) handleDeleteBudgetLine(w http.ResponseWriter, r *http.Request) {
	actor, err := s.authorize(r, core.PermManageBudget)
	if err != nil {
		writeError(w, r, err)
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	deleted, err := s.budget.DeleteBudgetLine(r.Context(), id, actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !deleted {
		writeError(w, r, fmt.Errorf("budget line %d: %w", id, core.ErrNotFound))
		return
	}
	writeMessage(w, http.StatusOK, "budget line deleted", nil)
}

type ingestRequest struct {
	FiscalYear int `json:"fiscal_year"`
}

func (s *Server) handleIngestBudget(w http.ResponseWriter, r *http.Request) {
	actor, err := s.authorize(r, core.PermManageBudget)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req ingestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.FiscalYear == 0 {
		req.FiscalYear = time.Now().Year()
	}

	source, err := s.newSource(r.Context())
	if err != nil {
		writeError(w, r, fmt.Errorf("open budget source: %w", err))
		return
	}

	result, err := s.ingest.Ingest(r.Context(), source, req.FiscalYear, actor)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.incomeLineCache.Delete(incomeLineCacheKey)
	writeMessage(w, http.StatusOK,
		fmt.Sprintf("%d budget lines applied", result.Applied), result)
}
