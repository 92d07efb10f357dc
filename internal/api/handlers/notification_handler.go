package handlers

import (
	"io"
	"net/http"

	"github.com/searchiq/storefront/internal/presentation"
)

// NotificationHandler hands queued toasts to the browser.
type NotificationHandler struct {
	ui       *UISupport
	renderer *presentation.Renderer
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(ui *UISupport, renderer *presentation.Renderer) *NotificationHandler {
	return &NotificationHandler{ui: ui, renderer: renderer}
}

// Drain handles GET /ui/notifications. Each toast is returned once.
func (h *NotificationHandler) Drain(w http.ResponseWriter, r *http.Request) {
	toasts := h.ui.drain(r, h.ui.session(r))
	if len(toasts) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondWithHTML(w, http.StatusOK, func(out io.Writer) error {
		return h.renderer.RenderToasts(out, toasts)
	})
}
