package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/searchiq/storefront/internal/application/services"
	"github.com/searchiq/storefront/internal/domain/entities"
	"github.com/searchiq/storefront/internal/presentation"
)

// SearchHandler serves the product search tab and the search history.
type SearchHandler struct {
	ui        *UISupport
	search    *services.SearchService
	analytics *services.SearchAnalyticsService
	renderer  *presentation.Renderer
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(ui *UISupport, search *services.SearchService, analytics *services.SearchAnalyticsService, renderer *presentation.Renderer) *SearchHandler {
	return &SearchHandler{ui: ui, search: search, analytics: analytics, renderer: renderer}
}

// Search handles POST /ui/search. With live=1 the query comes from typing
// and short queries are answered with 204.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	sess := h.ui.session(r)

	var (
		outcome *services.SearchOutcome
		err     error
	)
	if r.FormValue("live") == "1" {
		outcome, err = h.search.SearchAsYouType(r.Context(), sess, r.FormValue("query"))
	} else {
		outcome, err = h.search.Search(r.Context(), sess, r.FormValue("query"))
	}
	if err != nil {
		h.ui.fail(w, r, sess, err)
		return
	}
	if outcome == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	meta := presentation.ResultsMeta{
		Intent:     outcome.Intent,
		Elapsed:    outcome.Elapsed,
		ShowTiming: true,
	}
	respondWithHTML(w, http.StatusOK, func(out io.Writer) error {
		_, err := h.renderer.RenderResults(out, entities.ResultKindProduct, outcome.Items, meta)
		return err
	})
}

// History handles GET /ui/history
func (h *SearchHandler) History(w http.ResponseWriter, r *http.Request) {
	sess := h.ui.session(r)

	entries, err := h.search.History(r.Context(), sess.ID())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to load search history")
		return
	}
	if entries == nil {
		entries = []*entities.SearchHistoryEntry{}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"history":   entries,
		"count":     len(entries),
		"analytics": entities.SummarizeHistory(entries),
	})
}

// ClearHistory handles DELETE /ui/history
func (h *SearchHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	sess := h.ui.session(r)
	if err := h.search.ClearHistory(r.Context(), sess.ID()); err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to clear search history")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetZeroResultQueries handles GET /ui/analytics/zero-result-queries. Only
// the caller's own searches are listed.
func (h *SearchHandler) GetZeroResultQueries(w http.ResponseWriter, r *http.Request) {
	sess := h.ui.session(r)
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	events, err := h.analytics.GetZeroResultQueries(r.Context(), sess.ID(), limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to load zero-result queries")
		return
	}
	if events == nil {
		events = []*entities.SearchEvent{}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"queries": events,
		"count":   len(events),
	})
}
