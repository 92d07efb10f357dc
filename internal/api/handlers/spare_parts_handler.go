package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/searchiq/storefront/internal/application/services"
	"github.com/searchiq/storefront/internal/domain/entities"
	"github.com/searchiq/storefront/internal/presentation"
)

// SparePartsHandler serves the spare-parts and assistant tabs.
type SparePartsHandler struct {
	ui       *UISupport
	parts    *services.SparePartsService
	renderer *presentation.Renderer
}

// NewSparePartsHandler creates a new spare parts handler
func NewSparePartsHandler(ui *UISupport, parts *services.SparePartsService, renderer *presentation.Renderer) *SparePartsHandler {
	return &SparePartsHandler{ui: ui, parts: parts, renderer: renderer}
}

// Recommend handles POST /ui/spare-parts
func (h *SparePartsHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	sess := h.ui.session(r)

	maxResults, _ := strconv.Atoi(r.FormValue("max_results"))
	filters := entities.SearchFilters{
		Brand:            r.FormValue("brand"),
		DeviceModel:      r.FormValue("device_model"),
		IssueDescription: r.FormValue("issue_description"),
	}

	items, err := h.parts.Recommend(r.Context(), sess, filters, maxResults)
	if err != nil {
		h.ui.fail(w, r, sess, err)
		return
	}

	respondWithHTML(w, http.StatusOK, func(out io.Writer) error {
		_, err := h.renderer.RenderResults(out, entities.ResultKindSparePart, items, presentation.ResultsMeta{})
		return err
	})
}

// DeviceModels handles GET /ui/spare-parts/models/{brand}
func (h *SparePartsHandler) DeviceModels(w http.ResponseWriter, r *http.Request) {
	brand := r.PathValue("brand")
	if brand == "" {
		respondWithError(w, http.StatusBadRequest, "brand is required")
		return
	}

	sess := h.ui.session(r)
	models, err := h.parts.DeviceModels(r.Context(), sess, brand)
	if err != nil {
		h.ui.fail(w, r, sess, err)
		return
	}
	if models == nil {
		models = []string{}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"brand":  brand,
		"models": models,
	})
}

// Recommendations handles POST /ui/recommendations
func (h *SparePartsHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	sess := h.ui.session(r)

	env, err := h.parts.IntelligentRecommendations(r.Context(), sess, r.FormValue("problem"))
	if err != nil {
		h.ui.fail(w, r, sess, err)
		return
	}

	respondWithHTML(w, http.StatusOK, func(out io.Writer) error {
		_, err := h.renderer.RenderRecommendations(out, env, presentation.ResultsMeta{})
		return err
	})
}
