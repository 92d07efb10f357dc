package handlers

import (
	"io"
	"net/http"

	"github.com/searchiq/storefront/internal/domain/entities"
	"github.com/searchiq/storefront/internal/infrastructure/observability"
	"github.com/searchiq/storefront/internal/presentation"
)

// PageHandler serves the tabbed home page.
type PageHandler struct {
	ui         *UISupport
	renderer   *presentation.Renderer
	debounceMs int
}

// NewPageHandler creates a new page handler
func NewPageHandler(ui *UISupport, renderer *presentation.Renderer, debounceMs int) *PageHandler {
	return &PageHandler{ui: ui, renderer: renderer, debounceMs: debounceMs}
}

// Home handles GET /?tab=<name>
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := h.ui.session(r)

	tabs := presentation.NewTabSet()
	if stored, ok := sess.Value(ctx, entities.SessionKeyActiveTab); ok {
		_ = tabs.Show(stored)
	}
	if requested := r.URL.Query().Get("tab"); requested != "" {
		if err := tabs.Show(requested); err != nil {
			observability.LoggerFromContext(ctx).Debug().Str("tab", requested).Msg("ignoring unknown tab")
		} else if err := sess.SetValue(ctx, entities.SessionKeyActiveTab, requested); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Msg("failed to persist active tab")
		}
	}

	recent, _ := sess.Value(ctx, entities.SessionKeyRecentSearchQuery)
	data := presentation.HomePageData{
		PageData: presentation.PageData{
			Page:   presentation.PageHome,
			Title:  "Search",
			Toasts: h.ui.drain(r, sess),
		},
		User:        sess.User(ctx),
		Tabs:        tabs.Tabs(),
		RecentQuery: recent,
		DebounceMs:  h.debounceMs,
		Brands:      presentation.Brands,

		ExampleQueries: presentation.ExampleQueries,
		IssueExamples:  presentation.IssueExamples,
		QuickProblems:  presentation.QuickProblems,
	}

	respondWithHTML(w, http.StatusOK, func(out io.Writer) error {
		return h.renderer.RenderPage(out, presentation.PageHome, data)
	})
}

// SelectTab handles POST /ui/tab
func (h *PageHandler) SelectTab(w http.ResponseWriter, r *http.Request) {
	name := r.FormValue("tab")
	tabs := presentation.NewTabSet()
	if err := tabs.Show(name); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess := h.ui.session(r)
	if err := sess.SetValue(r.Context(), entities.SessionKeyActiveTab, name); err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to store tab")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
