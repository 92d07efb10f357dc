package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/searchiq/storefront/internal/application/services"
	"github.com/searchiq/storefront/internal/infrastructure/observability"
)

const defaultHeartbeatInterval = 30 * time.Second

// AnalysisHandler accepts problem drafts and streams their quick analysis
// back over Server-Sent Events.
type AnalysisHandler struct {
	ui        *UISupport
	analysis  *services.AnalysisService
	heartbeat time.Duration
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(ui *UISupport, analysis *services.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{ui: ui, analysis: analysis, heartbeat: defaultHeartbeatInterval}
}

// Draft handles POST /ui/analysis/draft. The draft is analysed once typing
// pauses; the result arrives on the stream.
func (h *AnalysisHandler) Draft(w http.ResponseWriter, r *http.Request) {
	h.analysis.Draft(h.ui.session(r), r.FormValue("problem"))
	w.WriteHeader(http.StatusAccepted)
}

// Stream handles GET /ui/analysis/stream
func (h *AnalysisHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerFromContext(ctx)
	sess := h.ui.session(r)

	rc := http.NewResponseController(w)
	// Streams outlive the server's write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	events, err := h.analysis.Subscribe(ctx, sess.ID())
	if err != nil {
		logger.Error().Err(err).Str("session_id", sess.ID()).Msg("failed to subscribe to analysis stream")
		respondWithError(w, http.StatusInternalServerError, "failed to open stream")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	h.sendEvent(w, "connected", map[string]interface{}{
		"timestamp": time.Now().UTC(),
	})
	if err := rc.Flush(); err != nil {
		logger.Error().Err(err).Msg("streaming not supported")
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Str("session_id", sess.ID()).Msg("client disconnected from analysis stream")
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{
				"timestamp": time.Now().UTC(),
			})
			_ = rc.Flush()
		case event, ok := <-events:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			h.sendEvent(w, string(event.EventType), event)
			_ = rc.Flush()
		}
	}
}

// sendEvent sends an SSE event to the client
func (h *AnalysisHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		observability.GetLogger().Warn().Err(err).Str("event", eventType).Msg("failed to marshal event data")
		return
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
}
