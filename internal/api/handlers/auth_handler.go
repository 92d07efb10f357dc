package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/searchiq/storefront/internal/api/middleware"
	"github.com/searchiq/storefront/internal/application/services"
	"github.com/searchiq/storefront/internal/domain/entities"
	"github.com/searchiq/storefront/internal/infrastructure/observability"
	"github.com/searchiq/storefront/internal/presentation"
	"github.com/searchiq/storefront/pkg/config"
)

// Login throttling per client IP.
const (
	loginBurst          = 5
	loginRefillInterval = 12 * time.Second
	maxTrackedClients   = 4096
)

// formErrorKey holds errors that belong to no single field.
const formErrorKey = "form"

// LoginLimiter hands out one token bucket per client IP.
type LoginLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewLoginLimiter allows burst attempts per IP, refilled one per interval.
func NewLoginLimiter(interval time.Duration, burst int) *LoginLimiter {
	return &LoginLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(interval),
		burst:    burst,
	}
}

// Allow reports whether ip may attempt another login now.
func (l *LoginLimiter) Allow(ip string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[ip]
	if !ok {
		if len(l.limiters) >= maxTrackedClients {
			l.limiters = make(map[string]*rate.Limiter)
		}
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[ip] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

// AuthHandler serves login, signup and logout.
type AuthHandler struct {
	ui       *UISupport
	auth     *services.AuthSessionService
	renderer *presentation.Renderer
	session  config.SessionConfig
	limiter  *LoginLimiter
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(ui *UISupport, auth *services.AuthSessionService, renderer *presentation.Renderer, session config.SessionConfig) *AuthHandler {
	return &AuthHandler{
		ui:       ui,
		auth:     auth,
		renderer: renderer,
		session:  session,
		limiter:  NewLoginLimiter(loginRefillInterval, loginBurst),
	}
}

// LoginPage handles GET /login
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	sess := h.ui.session(r)
	if sess.IsAuthenticated(r.Context()) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.renderAuth(w, r, sess, presentation.PageLogin, http.StatusOK, nil, nil)
}

// SignupPage handles GET /signup
func (h *AuthHandler) SignupPage(w http.ResponseWriter, r *http.Request) {
	sess := h.ui.session(r)
	if sess.IsAuthenticated(r.Context()) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.renderAuth(w, r, sess, presentation.PageSignup, http.StatusOK, nil, nil)
}

// Login handles POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	sess := h.ui.session(r)
	form := map[string]string{
		services.FieldEmailOrUsername: r.FormValue(services.FieldEmailOrUsername),
		"remember_me":                 r.FormValue("remember_me"),
	}

	if !h.limiter.Allow(clientIP(r)) {
		h.renderAuth(w, r, sess, presentation.PageLogin, http.StatusTooManyRequests, form, entities.FieldErrors{
			formErrorKey: "Too many login attempts. Please wait a moment and try again.",
		})
		return
	}

	rememberMe := form["remember_me"] == "true" || form["remember_me"] == "on"
	fresh, user, err := h.auth.Login(r.Context(), sess, form[services.FieldEmailOrUsername], r.FormValue(services.FieldPassword), rememberMe)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			h.ui.notify(r, sess, "Invalid email/username or password", entities.SeverityError)
		}
		h.authFailed(w, r, sess, presentation.PageLogin, form, err)
		return
	}

	var ttl time.Duration
	if rememberMe {
		ttl = h.session.RememberMeTTL()
		if err := fresh.Touch(r.Context(), ttl); err != nil {
			observability.LoggerFromContext(r.Context()).Warn().Err(err).Msg("failed to extend session")
		}
	}
	middleware.SetSessionCookie(w, h.session, fresh.ID(), ttl)
	h.ui.notify(r, fresh, welcome("Welcome back", user), entities.SeveritySuccess)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Signup handles POST /signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	sess := h.ui.session(r)
	form := map[string]string{
		services.FieldUsername: r.FormValue(services.FieldUsername),
		services.FieldEmail:    r.FormValue(services.FieldEmail),
	}

	fresh, user, err := h.auth.Signup(r.Context(), sess,
		form[services.FieldUsername],
		form[services.FieldEmail],
		r.FormValue(services.FieldPassword),
		r.FormValue(services.FieldConfirmPassword),
	)
	if err != nil {
		h.authFailed(w, r, sess, presentation.PageSignup, form, err)
		return
	}

	middleware.SetSessionCookie(w, h.session, fresh.ID(), 0)
	h.ui.notify(r, fresh, welcome("Account created. Welcome", user), entities.SeveritySuccess)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout handles POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := h.ui.session(r)
	if err := sess.Logout(r.Context()); err != nil {
		observability.LoggerFromContext(r.Context()).Warn().Err(err).Msg("failed to clear session")
	}
	middleware.SetSessionCookie(w, h.session, sess.ID(), 0)
	h.ui.notify(r, sess, "You have been logged out.", entities.SeverityInfo)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *AuthHandler) authFailed(w http.ResponseWriter, r *http.Request, sess *services.UserSession, page string, form map[string]string, err error) {
	if fieldErrs, ok := services.AsFieldErrors(err); ok {
		h.renderAuth(w, r, sess, page, http.StatusUnprocessableEntity, form, fieldErrs)
		return
	}
	observability.LoggerFromContext(r.Context()).Error().Err(err).Str("page", page).Msg("authentication request failed")
	h.renderAuth(w, r, sess, page, http.StatusBadGateway, form, entities.FieldErrors{
		formErrorKey: services.ErrorMessage(err),
	})
}

func (h *AuthHandler) renderAuth(w http.ResponseWriter, r *http.Request, sess *services.UserSession, page string, status int, form map[string]string, fieldErrs entities.FieldErrors) {
	title := "Log in"
	if page == presentation.PageSignup {
		title = "Sign up"
	}
	data := presentation.AuthPageData{
		PageData: presentation.PageData{
			Page:   page,
			Title:  title,
			Toasts: h.ui.drain(r, sess),
		},
		Form:        form,
		FieldErrors: fieldErrs,
	}
	respondWithHTML(w, status, func(out io.Writer) error {
		return h.renderer.RenderPage(out, page, data)
	})
}

func welcome(prefix string, user *entities.User) string {
	if user == nil || user.Username == "" {
		return prefix + "!"
	}
	return fmt.Sprintf("%s, %s!", prefix, user.Username)
}
