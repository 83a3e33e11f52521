package http

import (
	"errors"
	"net/http"
	"strconv"

	"conti/internal/log"
	"conti/internal/reports"
	"conti/internal/services"
)

func (s *Server) dashboard(r *http.Request) (services.Dashboard, error) {
	u, err := s.caller(r)
	if err != nil {
		return services.Dashboard{}, err
	}
	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		return services.Dashboard{}, err
	}
	return s.deps.Stats.Dashboard(r.Context(), u.GroupID, filter, filter.Year)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	d, err := s.dashboard(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleExpenseReport(w http.ResponseWriter, r *http.Request) {
	d, err := s.dashboard(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.writePNG(w, r, "expenses", func() ([]byte, error) {
		return reports.ExpensePie(d.ExpensesByCategory)
	})
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	d, err := s.dashboard(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.writePNG(w, r, "monthly", func() ([]byte, error) {
		return reports.MonthlyBars(d.MonthlyData)
	})
}

// writePNG renders a chart; an empty chart answers 204.
func (s *Server) writePNG(w http.ResponseWriter, r *http.Request, name string, render func() ([]byte, error)) {
	png, err := render()
	if errors.Is(err, reports.ErrNoData) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentReports).ErrorContext(r.Context(), "Chart rendering failed",
			log.FieldOperation, log.OpRender, "chart", name, log.FieldError, err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
