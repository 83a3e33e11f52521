package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"conti/internal/core"
	"conti/internal/services"
)

type budgetInput struct {
	CategoryID string          `json:"categoryId,omitempty"`
	Category   string          `json:"category,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Period     core.Interval   `json:"period"`
	StartDate  dateValue       `json:"startDate"`
	EndDate    dateValue       `json:"endDate"`
	Rollover   bool            `json:"rollover"`
}

type budgetPatchInput struct {
	services.BudgetPatch
	StartDate *dateValue `json:"startDate,omitempty"`
	EndDate   *dateValue `json:"endDate,omitempty"`
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	u, err := s.caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	budgets, err := s.deps.Budgets.List(r.Context(), u.GroupID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, budgets)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	u, err := s.caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in budgetInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.deps.Budgets.Create(r.Context(), core.Budget{
		CategoryID: sanitizeInput(in.CategoryID),
		Category:   sanitizeInput(in.Category),
		Amount:     in.Amount,
		Period:     in.Period,
		StartDate:  in.StartDate.Time,
		EndDate:    in.EndDate.Time,
		Rollover:   in.Rollover,
		GroupID:    u.GroupID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.deps.Stats.Invalidate(u.GroupID)
	writeJSON(w, http.StatusCreated, services.NewBudgetView(b))
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	u, err := s.caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.deps.Budgets.Get(r.Context(), u.GroupID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	u, err := s.caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in budgetPatchInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	patch := in.BudgetPatch
	patch.StartDate = in.StartDate.ptr()
	patch.EndDate = in.EndDate.ptr()
	b, err := s.deps.Budgets.Update(r.Context(), u.GroupID, r.PathValue("id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.deps.Stats.Invalidate(u.GroupID)
	writeJSON(w, http.StatusOK, services.NewBudgetView(b))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	u, err := s.caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.deps.Budgets.Delete(r.Context(), u.GroupID, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	s.deps.Stats.Invalidate(u.GroupID)
	w.WriteHeader(http.StatusNoContent)
}
