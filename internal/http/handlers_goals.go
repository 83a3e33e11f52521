package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"conti/internal/core"
	"conti/internal/services"
)

type goalInput struct {
	Name         string          `json:"name"`
	TargetAmount decimal.Decimal `json:"targetAmount"`
	StartDate    dateValue       `json:"startDate"`
	TargetDate   *dateValue      `json:"targetDate,omitempty"`
	CategoryID   string          `json:"categoryId,omitempty"`
	Category     string          `json:"category,omitempty"`
	IconEmoji    string          `json:"iconEmoji,omitempty"`
	Color        string          `json:"color,omitempty"`
}

type goalPatchInput struct {
	services.GoalPatch
	TargetDate *dateValue `json:"targetDate,omitempty"`
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	u, err := s.caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	goals, err := s.deps.Goals.List(r.Context(), u.GroupID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goals)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	u, err := s.caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in goalInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	g, err := s.deps.Goals.Create(r.Context(), core.Goal{
		Name:         sanitizeInput(in.Name),
		TargetAmount: in.TargetAmount,
		StartDate:    in.StartDate.Time,
		TargetDate:   in.TargetDate.ptr(),
		CategoryID:   sanitizeInput(in.CategoryID),
		Category:     sanitizeInput(in.Category),
		IconEmoji:    sanitizeInput(in.IconEmoji),
		Color:        sanitizeInput(in.Color),
		GroupID:      u.GroupID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	u, err := s.caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	g, err := s.deps.Goals.Get(r.Context(), u.GroupID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	u, err := s.caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in goalPatchInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	patch := in.GoalPatch
	patch.TargetDate = in.TargetDate.ptr()
	g, err := s.deps.Goals.Update(r.Context(), u.GroupID, r.PathValue("id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	u, err := s.caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.deps.Goals.Delete(r.Context(), u.GroupID, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleContributeGoal(w http.ResponseWriter, r *http.Request) {
	u, err := s.caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	g, err := s.deps.Goals.Contribute(r.Context(), u.GroupID, r.PathValue("id"), in.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}
