package http

import (
	"fmt"
	"net/http"

	"conti/internal/auth"
	"conti/internal/core"
	"conti/internal/log"
)

type credentials struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	session, err := s.deps.Auth.SignUp(r.Context(), sanitizeInput(in.Email), in.Password, sanitizeInput(in.DisplayName))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.startSession(w, r, http.StatusCreated, session)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	session, err := s.deps.Auth.SignIn(r.Context(), sanitizeInput(in.Email), in.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.startSession(w, r, http.StatusOK, session)
}

// startSession makes sure the user owns a personal group before answering.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, status int, session auth.Session) {
	if session.User.UID != "" {
		if _, err := s.deps.Groups.EnsurePersonal(r.Context(), session.User.UID); err != nil {
			writeError(w, r, err)
			return
		}
		g, err := s.deps.Groups.Current(r.Context(), session.User.UID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		session.User.GroupID = g.ID
	}
	log.FromContext(r.Context()).WithComponent(log.ComponentAuth).InfoContext(r.Context(), "Session started",
		log.FieldUserID, session.User.UID)
	writeJSON(w, status, session)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.deps.Auth.ResetPassword(r.Context(), sanitizeInput(in.Email)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleProvider(w http.ResponseWriter, r *http.Request) {
	url, err := s.deps.Auth.SignInWithProvider(r.Context(), r.PathValue("provider"), r.URL.Query().Get("redirect"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Auth.SignOut(r.Context(), auth.BearerToken(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, g, err := s.callerGroup(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		User  core.User  `json:"user"`
		Group core.Group `json:"group"`
	}{u, g})
}

func (s *Server) handleLinkCouple(w http.ResponseWriter, r *http.Request) {
	u, err := s.caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in struct {
		PartnerID string `json:"partnerId"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	partner := sanitizeInput(in.PartnerID)
	if partner == "" {
		writeError(w, r, fmt.Errorf("%w: partnerId is required", core.ErrEmptyName))
		return
	}
	g, err := s.deps.Groups.LinkCouple(r.Context(), u.UID, partner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}
