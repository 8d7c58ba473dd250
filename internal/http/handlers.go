package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"budget/internal/budgetapi"
	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/ui"
)

const readyTimeout = 5 * time.Second

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

// handleReady reports ready when templates are loaded and the budget
// service answers a summary request.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]string)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if _, err := s.api.GetSummary(ctx, core.Filter{}); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Budget service not ready", log.FieldError, err)
		checks["budget_api"] = "failed: " + err.Error()
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["budget_api"] = "ok"
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleIndex renders the full page for the filter in the query string.
// A failed initial load still renders the page, with empty data.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			log.FieldComponent, log.ComponentTemplate,
			"error_type", log.ErrorTypeConfiguration)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	month, year := filterValues(r)
	p := newPage(month, year)
	_ = s.client(r, p, &htmxDialog{}).LoadData(r.Context())

	n := s.now()
	data := indexData{
		Today:     core.NewDate(n.Year(), int(n.Month()), n.Day()).String(),
		Dashboard: p.dashboard(),
	}
	s.render(w, r, "index.html", data, NewHTMXResponse())
}

// handleDashboard re-renders the dashboard partial for the filter widgets.
// When summary and table could not be loaded the current view is kept; a
// failed year list only leaves the year options at their defaults.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	month, year := filterValues(r)
	p := newPage(month, year)
	_ = s.client(r, p, &htmxDialog{}).ApplyFilter(r.Context())
	if !p.loaded {
		NewHTMXResponse().Status(http.StatusNoContent).Write(w)
		return
	}
	s.render(w, r, "dashboard", p.dashboard(), NewHTMXResponse())
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Ungültiges Anfrageformat").Write(w)
		return
	}

	form := parseTransactionForm(r.PostForm)
	if msg := validateForm(s.validate, form); msg != "" {
		NotificationErrorResponse(http.StatusUnprocessableEntity, "Fehler: "+msg).Write(w)
		return
	}

	month, year := filterValues(r)
	p := newPage(month, year)
	p.form = form.values()
	d := &htmxDialog{}

	created, err := s.client(r, p, d).SubmitForm(r.Context())
	if err != nil {
		NotificationErrorResponse(failureStatus(err), d.message()).Write(w)
		return
	}

	resp := NewHTMXResponse().
		TriggerTransactionCreated(created.ID).
		TriggerFormReset(p.resetTo.String()).
		TriggerSuccessNotification("Buchung gespeichert")
	if !p.loaded {
		// stored, but the refresh failed: keep the current view
		resp.NoSwap().Write(w)
		return
	}
	s.render(w, r, "dashboard", p.dashboard(), resp)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseTransactionID(r)
	if err != nil {
		BadRequestError("Ungültige Buchungsnummer").Write(w)
		return
	}

	month, year := filterValues(r)
	p := newPage(month, year)
	d := &htmxDialog{confirmed: isConfirmed(r)}

	err = s.client(r, p, d).DeleteTransaction(r.Context(), id)
	switch {
	case errors.Is(err, ui.ErrCancelled):
		NewHTMXResponse().Status(http.StatusPreconditionRequired).NoSwap().Write(w)
		return
	case err != nil:
		NotificationErrorResponse(failureStatus(err), d.message()).Write(w)
		return
	}

	resp := NewHTMXResponse().TriggerTransactionDeleted(id)
	if !p.loaded {
		resp.NoSwap().Write(w)
		return
	}
	s.render(w, r, "dashboard", p.dashboard(), resp)
}

// render executes the named template into a buffer and writes it with
// resp, so template errors never produce a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any, resp *HTMXResponseBuilder) {
	if s.templates == nil {
		InternalServerError("templates not loaded").Write(w)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), "Template execution failed", err, log.OpRender,
			log.NewFields().WithComponent(log.ComponentTemplate))
		InternalServerError("Fehler beim Darstellen der Seite").Write(w)
		return
	}
	resp.BodyHTML(buf.Bytes()).Write(w)
}

// failureStatus maps a failed action to a response status.
func failureStatus(err error) int {
	switch {
	case errors.Is(err, budgetapi.ErrValidation), errors.Is(err, core.ErrInvalidAmount):
		return http.StatusUnprocessableEntity
	case errors.Is(err, budgetapi.ErrNetwork):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
