package http

import (
	"fmt"
	"net/http"

	"github.com/ssandworth/incomeLineUpdatex/internal/core"
)

// authorize resolves the acting staff member and checks the capability the
// route requires.
func (s *Server) authorize(r *http.Request, p core.Permission) (core.Actor, error) {
	actor, err := actorFromRequest(r)
	if err != nil {
		return core.Actor{}, err
	}

	allowed, err := s.access.Can(r.Context(), actor.ID, p)
	if err != nil {
		return core.Actor{}, fmt.Errorf("check access for user %d: %w", actor.ID, err)
	}
	if !allowed {
		return core.Actor{}, fmt.Errorf("user %d lacks %s: %w", actor.ID, p, errPermissionDenied)
	}
	return actor, nil
}

type incomeLineDTO struct {
	AcctID   string `json:"acct_id"`
	AcctDesc string `json:"acct_desc"`
}

const incomeLineCacheKey = "active"

func (s *Server) handleListIncomeLines(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authorize(r, core.PermViewBudget); err != nil {
		writeError(w, r, err)
		return
	}

	accounts, ok := s.incomeLineCache.Get(incomeLineCacheKey)
	if !ok {
		var err error
		accounts, err = s.budget.ListActiveIncomeLines(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.incomeLineCache.Set(incomeLineCacheKey, accounts)
	}

	out := make([]incomeLineDTO, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, incomeLineDTO{AcctID: a.AcctID, AcctDesc: a.AcctDesc})
	}
	writeJSON(w, http.StatusOK, out)
}
