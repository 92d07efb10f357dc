package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/searchiq/storefront/internal/domain/entities"
	"github.com/searchiq/storefront/internal/domain/providers"
	"github.com/searchiq/storefront/internal/infrastructure/clients/backendapi"
	"github.com/searchiq/storefront/internal/infrastructure/observability"
	apperrors "github.com/searchiq/storefront/pkg/errors"
)

// Form field ids used in FieldErrors.
const (
	FieldEmailOrUsername = "email_or_username"
	FieldUsername        = "username"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirm_password"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ErrInvalidCredentials marks a login the backend rejected. It is joined with
// the password field error.
var ErrInvalidCredentials = errors.New("invalid credentials")

// carriedSessionKeys survive the session id rotation at login and signup.
var carriedSessionKeys = []string{
	entities.SessionKeyActiveTab,
	entities.SessionKeySparePartsPrefs,
	entities.SessionKeyRecentSearchQuery,
	entities.SessionKeyNotifications,
}

// LogoutHook runs after a session's credential has been cleared.
type LogoutHook func(ctx context.Context, sessionID string)

// AuthSessionService owns the credential lifecycle of browser sessions.
type AuthSessionService struct {
	store providers.SessionStore
	api   backendapi.API
	hooks []LogoutHook
}

// NewAuthSessionService creates a new auth session service
func NewAuthSessionService(store providers.SessionStore, api backendapi.API) *AuthSessionService {
	return &AuthSessionService{store: store, api: api}
}

// OnLogout registers a hook run by every UserSession.Logout.
func (s *AuthSessionService) OnLogout(hook LogoutHook) {
	s.hooks = append(s.hooks, hook)
}

// Open returns the session handle for sessionID.
func (s *AuthSessionService) Open(sessionID string) *UserSession {
	return &UserSession{id: sessionID, store: s.store, hooks: s.hooks}
}

// UserSession is the explicit session capability passed to every backend call.
type UserSession struct {
	id    string
	store providers.SessionStore
	hooks []LogoutHook
}

var _ providers.SessionProvider = (*UserSession)(nil)

// ID returns the opaque session id.
func (u *UserSession) ID() string {
	return u.id
}

// Token returns the bearer credential if one is stored.
func (u *UserSession) Token(ctx context.Context) (string, bool) {
	for _, key := range []string{entities.SessionKeyAccessToken, entities.SessionKeyToken} {
		token, ok, err := u.store.Get(ctx, u.id, key)
		if err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Msg("failed to read session token")
			return "", false
		}
		if ok && token != "" {
			return token, true
		}
	}
	return "", false
}

// IsAuthenticated reports whether a credential is present.
func (u *UserSession) IsAuthenticated(ctx context.Context) bool {
	_, ok := u.Token(ctx)
	return ok
}

// BuildAuthHeaders implements providers.SessionProvider.
func (u *UserSession) BuildAuthHeaders(ctx context.Context) map[string]string {
	headers := map[string]string{"Content-Type": "application/json"}
	if token, ok := u.Token(ctx); ok {
		headers["Authorization"] = "Bearer " + token
	}
	return headers
}

// Logout clears the credential, profile and remember-me flag.
func (u *UserSession) Logout(ctx context.Context) error {
	err := u.store.Delete(ctx, u.id,
		entities.SessionKeyToken,
		entities.SessionKeyAccessToken,
		entities.SessionKeyUser,
		entities.SessionKeyRememberMe,
	)
	for _, hook := range u.hooks {
		hook(ctx, u.id)
	}
	return err
}

// Touch extends the session's lifetime in the store.
func (u *UserSession) Touch(ctx context.Context, ttl time.Duration) error {
	return u.store.Touch(ctx, u.id, ttl)
}

// User returns the stored profile, or nil.
func (u *UserSession) User(ctx context.Context) *entities.User {
	raw, ok, err := u.store.Get(ctx, u.id, entities.SessionKeyUser)
	if err != nil || !ok {
		return nil
	}
	var user entities.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil
	}
	return &user
}

// RememberMe reports whether the session was created with remember-me.
func (u *UserSession) RememberMe(ctx context.Context) bool {
	v, ok, _ := u.store.Get(ctx, u.id, entities.SessionKeyRememberMe)
	return ok && v == "true"
}

// Value reads an arbitrary session key.
func (u *UserSession) Value(ctx context.Context, key string) (string, bool) {
	v, ok, err := u.store.Get(ctx, u.id, key)
	if err != nil {
		return "", false
	}
	return v, ok
}

// SetValue writes an arbitrary session key.
func (u *UserSession) SetValue(ctx context.Context, key, value string) error {
	return u.store.Set(ctx, u.id, key, value)
}

func (u *UserSession) establish(ctx context.Context, result *entities.AuthResult, rememberMe bool) error {
	if err := u.store.Set(ctx, u.id, entities.SessionKeyToken, result.AccessToken); err != nil {
		return err
	}
	if err := u.store.Set(ctx, u.id, entities.SessionKeyAccessToken, result.AccessToken); err != nil {
		return err
	}
	if result.User != nil {
		data, err := json.Marshal(result.User)
		if err != nil {
			return err
		}
		if err := u.store.Set(ctx, u.id, entities.SessionKeyUser, string(data)); err != nil {
			return err
		}
	}
	if rememberMe {
		return u.store.Set(ctx, u.id, entities.SessionKeyRememberMe, "true")
	}
	return u.store.Delete(ctx, u.id, entities.SessionKeyRememberMe)
}

// rotate moves sess's non-credential state to a fresh session id and drops
// the old id, so an id planted before login never becomes authenticated.
func (s *AuthSessionService) rotate(ctx context.Context, sess *UserSession) (*UserSession, error) {
	fresh := s.Open(uuid.NewString())
	for _, key := range carriedSessionKeys {
		v, ok, err := s.store.Get(ctx, sess.id, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if err := s.store.Set(ctx, fresh.id, key, v); err != nil {
			return nil, err
		}
	}
	if err := s.store.Delete(ctx, sess.id); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("failed to drop rotated session")
	}
	return fresh, nil
}

// start rotates sess and stores the credential on the new session.
func (s *AuthSessionService) start(ctx context.Context, sess *UserSession, result *entities.AuthResult, rememberMe bool) (*UserSession, error) {
	fresh, err := s.rotate(ctx, sess)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to rotate session", err)
	}
	if err := fresh.establish(ctx, result, rememberMe); err != nil {
		return nil, apperrors.NewInternalError("failed to store session", err)
	}
	return fresh, nil
}

// Login validates the form, authenticates against the backend and stores
// the credential under a new session id, which is returned. Form problems
// come back as entities.FieldErrors; rejected credentials additionally match
// ErrInvalidCredentials.
func (s *AuthSessionService) Login(ctx context.Context, sess *UserSession, emailOrUsername, password string, rememberMe bool) (*UserSession, *entities.User, error) {
	emailOrUsername = strings.TrimSpace(emailOrUsername)

	fieldErrs := entities.FieldErrors{}
	if emailOrUsername == "" {
		fieldErrs[FieldEmailOrUsername] = "Email or username is required"
	}
	if password == "" {
		fieldErrs[FieldPassword] = "Password is required"
	}
	if len(fieldErrs) > 0 {
		return nil, nil, fieldErrs
	}

	result, err := s.api.Login(ctx, entities.LoginRequest{
		EmailOrUsername: emailOrUsername,
		Password:        password,
	})
	if err != nil {
		if rf, ok := apperrors.AsRequestFailed(err); ok {
			msg := backendapi.ErrorMessage(rf)
			if strings.Contains(strings.ToLower(msg), "credentials") {
				return nil, nil, fmt.Errorf("%w: %w", ErrInvalidCredentials,
					entities.FieldErrors{FieldPassword: "Invalid email/username or password"})
			}
		}
		return nil, nil, err
	}

	fresh, err := s.start(ctx, sess, result, rememberMe)
	if err != nil {
		return nil, nil, err
	}
	observability.LoggerFromContext(ctx).Info().Str("session_id", fresh.ID()).Bool("remember_me", rememberMe).Msg("user logged in")
	return fresh, result.User, nil
}

// Signup validates the form, registers the account and stores the
// credential under a new session id, which is returned.
func (s *AuthSessionService) Signup(ctx context.Context, sess *UserSession, username, email, password, confirm string) (*UserSession, *entities.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if fieldErrs := ValidateSignup(username, email, password, confirm); len(fieldErrs) > 0 {
		return nil, nil, fieldErrs
	}

	result, err := s.api.Signup(ctx, entities.SignupRequest{
		Username: username,
		Email:    email,
		Password: password,
	})
	if err != nil {
		if rf, ok := apperrors.AsRequestFailed(err); ok {
			if fieldErrs := signupFieldErrors(backendapi.ErrorMessage(rf)); fieldErrs != nil {
				return nil, nil, fieldErrs
			}
		}
		return nil, nil, err
	}

	fresh, err := s.start(ctx, sess, result, false)
	if err != nil {
		return nil, nil, err
	}
	observability.LoggerFromContext(ctx).Info().Str("session_id", fresh.ID()).Msg("user signed up")
	return fresh, result.User, nil
}

// ValidateSignup applies the signup form rules.
func ValidateSignup(username, email, password, confirm string) entities.FieldErrors {
	fieldErrs := entities.FieldErrors{}
	switch {
	case username == "":
		fieldErrs[FieldUsername] = "Username is required"
	case len([]rune(username)) < 3:
		fieldErrs[FieldUsername] = "Username must be at least 3 characters"
	}
	switch {
	case email == "":
		fieldErrs[FieldEmail] = "Email is required"
	case !emailPattern.MatchString(email):
		fieldErrs[FieldEmail] = "Please enter a valid email address"
	}
	switch {
	case password == "":
		fieldErrs[FieldPassword] = "Password is required"
	case len([]rune(password)) < 8:
		fieldErrs[FieldPassword] = "Password must be at least 8 characters"
	}
	if confirm != password {
		fieldErrs[FieldConfirmPassword] = "Passwords do not match"
	}
	if len(fieldErrs) == 0 {
		return nil
	}
	return fieldErrs
}

func signupFieldErrors(msg string) entities.FieldErrors {
	switch {
	case msg == "":
		return nil
	case strings.Contains(msg, "Username"):
		return entities.FieldErrors{FieldUsername: msg}
	case strings.Contains(msg, "Email"):
		return entities.FieldErrors{FieldEmail: msg}
	case strings.Contains(msg, "Password"):
		return entities.FieldErrors{FieldPassword: msg}
	}
	return nil
}

// AsFieldErrors unwraps form validation errors.
func AsFieldErrors(err error) (entities.FieldErrors, bool) {
	var fe entities.FieldErrors
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
