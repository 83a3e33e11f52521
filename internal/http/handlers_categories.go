package http

import (
	"net/http"

	"conti/internal/core"
	"conti/internal/services"
)

type categoryInput struct {
	Name     string               `json:"name"`
	Type     core.TransactionType `json:"type"`
	Icon     string               `json:"icon,omitempty"`
	Color    string               `json:"color,omitempty"`
	ParentID string               `json:"parentId,omitempty"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	u, err := s.caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cats, err := s.deps.Categories.List(r.Context(), u.GroupID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if t := core.TransactionType(r.URL.Query().Get("type")); t.Valid() {
		filtered := cats[:0]
		for _, c := range cats {
			if c.Type == t {
				filtered = append(filtered, c)
			}
		}
		cats = filtered
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	u, err := s.caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in categoryInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.deps.Categories.Create(r.Context(), core.Category{
		Name:     sanitizeInput(in.Name),
		Type:     in.Type,
		Icon:     sanitizeInput(in.Icon),
		Color:    sanitizeInput(in.Color),
		ParentID: sanitizeInput(in.ParentID),
		GroupID:  u.GroupID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	u, err := s.caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch services.CategoryPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.deps.Categories.Update(r.Context(), u.GroupID, r.PathValue("id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	u, err := s.caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.deps.Categories.Delete(r.Context(), u.GroupID, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
