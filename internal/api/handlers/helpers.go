package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"

	"github.com/searchiq/storefront/internal/api/middleware"
	"github.com/searchiq/storefront/internal/application/services"
	"github.com/searchiq/storefront/internal/domain/entities"
	"github.com/searchiq/storefront/internal/infrastructure/observability"
	apperrors "github.com/searchiq/storefront/pkg/errors"
)

// UISupport is shared by every handler that serves the signed-in views.
type UISupport struct {
	auth          *services.AuthSessionService
	notifications *services.NotificationService
}

// NewUISupport creates the shared session and toast helpers.
func NewUISupport(auth *services.AuthSessionService, notifications *services.NotificationService) *UISupport {
	return &UISupport{auth: auth, notifications: notifications}
}

func (u *UISupport) session(r *http.Request) *services.UserSession {
	return u.auth.Open(middleware.SessionIDFromContext(r.Context()))
}

// fail answers a request whose backend work returned err. An expired
// credential sends the browser to /login, a duplicate submission is
// dropped, and anything else becomes an error toast.
func (u *UISupport) fail(w http.ResponseWriter, r *http.Request, sess *services.UserSession, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, apperrors.ErrAuthExpired):
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	case errors.Is(err, services.ErrInProgress):
		w.WriteHeader(http.StatusNoContent)
		return
	}

	msg := services.ErrorMessage(err)
	severity := entities.SeverityError
	status := http.StatusInternalServerError
	switch {
	case apperrors.IsValidation(err):
		severity = entities.SeverityWarning
		status = http.StatusUnprocessableEntity
	case apperrors.IsNetworkError(err):
		status = http.StatusServiceUnavailable
	default:
		if _, ok := apperrors.AsRequestFailed(err); ok {
			status = http.StatusBadGateway
		}
	}

	if status >= http.StatusInternalServerError {
		observability.LoggerFromContext(ctx).Error().Err(err).Str("path", r.URL.Path).Msg("backend request failed")
	}
	if nerr := u.notifications.Notify(ctx, sess.ID(), msg, severity); nerr != nil {
		observability.LoggerFromContext(ctx).Warn().Err(nerr).Msg("failed to queue notification")
	}
	respondWithError(w, status, msg)
}

func (u *UISupport) notify(r *http.Request, sess *services.UserSession, msg string, severity entities.Severity) {
	if err := u.notifications.Notify(r.Context(), sess.ID(), msg, severity); err != nil {
		observability.LoggerFromContext(r.Context()).Warn().Err(err).Msg("failed to queue notification")
	}
}

func (u *UISupport) drain(r *http.Request, sess *services.UserSession) []entities.Notification {
	toasts, err := u.notifications.Drain(r.Context(), sess.ID())
	if err != nil {
		observability.LoggerFromContext(r.Context()).Warn().Err(err).Msg("failed to drain notifications")
	}
	return toasts
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		observability.GetLogger().Warn().Err(err).Msg("failed to encode response")
	}
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithHTML renders into a buffer first so a template failure can
// still produce a clean 500.
func respondWithHTML(w http.ResponseWriter, statusCode int, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		observability.GetLogger().Error().Err(err).Msg("failed to render view")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = buf.WriteTo(w)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
