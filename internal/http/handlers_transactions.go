package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"conti/internal/core"
	"conti/internal/log"
	"conti/internal/services"
)

// dateValue accepts "YYYY-MM-DD" as well as RFC 3339 timestamps.
type dateValue struct {
	time.Time
}

func (d *dateValue) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("date %q must be YYYY-MM-DD", s)
	}
	d.Time = t
	return nil
}

func (d *dateValue) ptr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

type transactionInput struct {
	Type              core.TransactionType `json:"type"`
	Amount            decimal.Decimal      `json:"amount"`
	Description       string               `json:"description"`
	Category          string               `json:"category,omitempty"`
	CategoryID        string               `json:"categoryId,omitempty"`
	Date              dateValue            `json:"date"`
	IsShared          bool                 `json:"isShared"`
	Tags              []string             `json:"tags,omitempty"`
	IsRecurring       bool                 `json:"isRecurring"`
	RecurringInterval core.Interval        `json:"recurringInterval,omitempty"`
	Receipt           string               `json:"receipt,omitempty"`
	Location          string               `json:"location,omitempty"`
	Items             []core.LineItem      `json:"items,omitempty"`
	Notes             string               `json:"notes,omitempty"`
}

func (in transactionInput) transaction(u core.User, now time.Time) core.Transaction {
	date := in.Date.Time
	if date.IsZero() {
		date = now
	}
	tags := make([]string, 0, len(in.Tags))
	for _, tag := range in.Tags {
		if tag = sanitizeInput(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return core.Transaction{
		Type:              in.Type,
		Amount:            in.Amount,
		Description:       sanitizeInput(in.Description),
		Category:          sanitizeInput(in.Category),
		CategoryID:        sanitizeInput(in.CategoryID),
		Date:              date,
		OwnerID:           u.UID,
		OwnerName:         u.DisplayName,
		GroupID:           u.GroupID,
		IsShared:          in.IsShared,
		Tags:              tags,
		IsRecurring:       in.IsRecurring,
		RecurringInterval: in.RecurringInterval,
		Receipt:           in.Receipt,
		Location:          sanitizeInput(in.Location),
		Items:             in.Items,
		Notes:             sanitizeInput(in.Notes),
	}
}

// transactionPatchInput overrides the patch date so short dates are accepted.
type transactionPatchInput struct {
	services.TransactionPatch
	Date *dateValue `json:"date,omitempty"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	u, err := s.caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs, err := s.deps.Transactions.List(r.Context(), u.GroupID, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	u, err := s.caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in transactionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.deps.Transactions.Create(r.Context(), in.transaction(u, time.Now().UTC()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.logWrite(r, log.OpCreate, t)
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	u, err := s.caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.deps.Transactions.Get(r.Context(), u.GroupID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	u, err := s.caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in transactionPatchInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	patch := in.TransactionPatch
	patch.Date = in.Date.ptr()
	t, err := s.deps.Transactions.Update(r.Context(), u.GroupID, r.PathValue("id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.logWrite(r, log.OpUpdate, t)
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	u, err := s.caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id := r.PathValue("id")
	if err := s.deps.Transactions.Delete(r.Context(), u.GroupID, id); err != nil {
		writeError(w, r, err)
		return
	}
	s.logWrite(r, log.OpDelete, core.Transaction{ID: id, GroupID: u.GroupID})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) logWrite(r *http.Request, op string, t core.Transaction) {
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogTransactionWritten(r.Context(), op, t.ID, t.GroupID, string(t.Type), t.Amount.String())
}
