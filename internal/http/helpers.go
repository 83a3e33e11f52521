package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"conti/internal/auth"
	"conti/internal/core"
	"conti/internal/log"
	"conti/internal/receipt"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// statusOf maps an error to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrAlreadyLinked), errors.Is(err, auth.ErrEmailInUse):
		return http.StatusConflict
	case errors.As(err, new(*http.MaxBytesError)):
		return http.StatusRequestEntityTooLarge
	case core.IsValidation(err), errors.Is(err, auth.ErrInvalidInput), errors.Is(err, receipt.ErrInvalidImage),
		errors.Is(err, receipt.ErrNoAmount), errors.Is(err, errBadRequest):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with the mapped status. Unexpected errors are logged and
// their message is not exposed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldError, err, log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: msg})
}

var errBadRequest = errors.New("malformed request")

// decodeJSON reads a single JSON object into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		if tooLarge := new(*http.MaxBytesError); errors.As(err, tooLarge) {
			return fmt.Errorf("body exceeds %d bytes: %w", (*tooLarge).Limit, err)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", errBadRequest)
	}
	return nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// caller returns the authenticated user with the id of the group their data belongs to.
func (s *Server) caller(r *http.Request) (core.User, error) {
	u, _, err := s.callerGroup(r)
	return u, err
}

func (s *Server) callerGroup(r *http.Request) (core.User, core.Group, error) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		return core.User{}, core.Group{}, core.ErrUnauthenticated
	}
	g, err := s.deps.Groups.Current(r.Context(), u.UID)
	if err != nil {
		return core.User{}, core.Group{}, err
	}
	u.GroupID = g.ID
	return u, g, nil
}
