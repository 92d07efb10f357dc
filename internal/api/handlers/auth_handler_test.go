package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchiq/storefront/internal/domain/entities"
	"github.com/searchiq/storefront/internal/infrastructure/clients/backendapi"
)

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == testCookie {
			return c
		}
	}
	return nil
}

func TestLoginPage_IssuesSessionCookie(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/login", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="login-form"`)
	cookie := sessionCookie(t, rec)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Zero(t, cookie.MaxAge)
}

func TestLoginPage_RedirectsWhenSignedIn(t *testing.T) {
	app := newTestApp(t)
	sid := app.signedIn("tok")

	rec := app.do(http.MethodGet, "/login", sid, nil)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestLogin_Success(t *testing.T) {
	app := newTestApp(t)
	app.on(backendapi.EndpointLogin, reply(http.StatusOK,
		`{"access_token":"fresh","user":{"id":7,"username":"asha","email":"asha@example.com"}}`))
	page := app.do(http.MethodGet, "/login", "", nil)
	cookie := sessionCookie(t, page)
	require.NotNil(t, cookie)

	rec := app.do(http.MethodPost, "/login", cookie.Value, url.Values{
		"email_or_username": {"asha"},
		"password":          {"secret-password"},
	})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	rotated := sessionCookie(t, rec)
	require.NotNil(t, rotated)
	assert.NotEqual(t, cookie.Value, rotated.Value)
	assert.True(t, rotated.HttpOnly)
	assert.Zero(t, rotated.MaxAge)

	token, ok := app.value(rotated.Value, entities.SessionKeyToken)
	assert.True(t, ok)
	assert.Equal(t, "fresh", token)

	calls := app.backendCalls(backendapi.EndpointLogin)
	require.Len(t, calls, 1)
	assert.Empty(t, calls[0].Authorization)
	assert.Equal(t, "asha", calls[0].Body["email_or_username"])

	home := app.do(http.MethodGet, "/", rotated.Value, nil)
	require.Equal(t, http.StatusOK, home.Code)
	assert.Contains(t, home.Body.String(), "Welcome back, asha!")
}

func TestLogin_PlantedSessionIDNotAuthenticated(t *testing.T) {
	app := newTestApp(t)
	app.on(backendapi.EndpointLogin, reply(http.StatusOK, `{"access_token":"fresh","user":{"id":7,"username":"asha"}}`))
	planted := uuid.NewString()
	require.NoError(t, app.store.Set(context.Background(), planted, entities.SessionKeyActiveTab, "assistant"))

	rec := app.do(http.MethodPost, "/login", planted, url.Values{
		"email_or_username": {"asha"},
		"password":          {"secret-password"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	_, ok := app.value(planted, entities.SessionKeyToken)
	assert.False(t, ok)
	_, ok = app.value(planted, entities.SessionKeyActiveTab)
	assert.False(t, ok, "old session is dropped")
	assert.Equal(t, "/login", app.do(http.MethodGet, "/", planted, nil).Header().Get("Location"))

	rotated := sessionCookie(t, rec)
	require.NotNil(t, rotated)
	tab, _ := app.value(rotated.Value, entities.SessionKeyActiveTab)
	assert.Equal(t, "assistant", tab, "non-credential state is carried over")
}

func TestLogin_RememberMeMakesCookiePersistent(t *testing.T) {
	app := newTestApp(t)
	app.on(backendapi.EndpointLogin, reply(http.StatusOK, `{"access_token":"fresh","user":{"id":7,"username":"asha"}}`))
	sid := app.signedIn("old")

	rec := app.do(http.MethodPost, "/login", sid, url.Values{
		"email_or_username": {"asha"},
		"password":          {"secret-password"},
		"remember_me":       {"true"},
	})

	require.Equal(t, http.StatusSeeOther, rec.Code)
	cookie := sessionCookie(t, rec)
	require.NotNil(t, cookie)
	assert.NotEqual(t, sid, cookie.Value)
	assert.Equal(t, 168*3600, cookie.MaxAge)
	remember, _ := app.value(cookie.Value, entities.SessionKeyRememberMe)
	assert.Equal(t, "true", remember)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	app := newTestApp(t)
	app.on(backendapi.EndpointLogin, reply(http.StatusUnauthorized, `{"error":"Invalid credentials"}`))

	rec := app.do(http.MethodPost, "/login", "", url.Values{
		"email_or_username": {"asha"},
		"password":          {"wrong-password"},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Invalid email/username or password")
	assert.Contains(t, body, `value="asha"`)
	assert.NotContains(t, body, "wrong-password")
	assert.Contains(t, body, `class="field-error" role="alert">Invalid email/username or password`)
	assert.Contains(t, body, `class="notification notification-error"`, "credential failure also raises a toast")
}

func TestLogin_MissingFieldsSkipBackend(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodPost, "/login", "", url.Values{})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email or username is required")
	assert.Contains(t, rec.Body.String(), "Password is required")
	assert.NotContains(t, rec.Body.String(), "notification-error")
	assert.Empty(t, app.backendCalls(backendapi.EndpointLogin))
}

func TestLogin_ThrottledPerClient(t *testing.T) {
	app := newTestApp(t)

	codes := make([]int, 0, 6)
	for i := 0; i < 6; i++ {
		codes = append(codes, app.do(http.MethodPost, "/login", "", url.Values{}).Code)
	}

	assert.Equal(t, http.StatusUnprocessableEntity, codes[4])
	assert.Equal(t, http.StatusTooManyRequests, codes[5])
}

func TestSignup_FieldErrors(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodPost, "/signup", "", url.Values{
		"username":         {"as"},
		"email":            {"not-an-email"},
		"password":         {"short"},
		"confirm_password": {"other"},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Username must be at least 3 characters")
	assert.Contains(t, body, "Please enter a valid email address")
	assert.Contains(t, body, "Password must be at least 8 characters")
	assert.Contains(t, body, "Passwords do not match")
	assert.Empty(t, app.backendCalls(backendapi.EndpointSignup))
}

func TestSignup_BackendFieldError(t *testing.T) {
	app := newTestApp(t)
	app.on(backendapi.EndpointSignup, reply(http.StatusBadRequest, `{"error":"Username already taken"}`))

	rec := app.do(http.MethodPost, "/signup", "", url.Values{
		"username":         {"asha"},
		"email":            {"asha@example.com"},
		"password":         {"long-enough"},
		"confirm_password": {"long-enough"},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Username already taken")
}

func TestSignup_Success(t *testing.T) {
	app := newTestApp(t)
	app.on(backendapi.EndpointSignup, reply(http.StatusOK, `{"access_token":"new","user":{"id":9,"username":"ravi"}}`))
	cookie := sessionCookie(t, app.do(http.MethodGet, "/signup", "", nil))
	require.NotNil(t, cookie)

	rec := app.do(http.MethodPost, "/signup", cookie.Value, url.Values{
		"username":         {"ravi"},
		"email":            {"ravi@example.com"},
		"password":         {"long-enough"},
		"confirm_password": {"long-enough"},
	})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	rotated := sessionCookie(t, rec)
	require.NotNil(t, rotated)
	assert.NotEqual(t, cookie.Value, rotated.Value)
	token, _ := app.value(rotated.Value, entities.SessionKeyToken)
	assert.Equal(t, "new", token)
	_, ok := app.value(cookie.Value, entities.SessionKeyToken)
	assert.False(t, ok)
}

func TestLogout_ClearsCredential(t *testing.T) {
	app := newTestApp(t)
	sid := app.signedIn("tok")

	rec := app.do(http.MethodPost, "/logout", sid, nil)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	_, ok := app.value(sid, entities.SessionKeyToken)
	assert.False(t, ok)
	_, ok = app.value(sid, entities.SessionKeyAccessToken)
	assert.False(t, ok)

	page := app.do(http.MethodGet, "/login", sid, nil)
	assert.True(t, strings.Contains(page.Body.String(), "You have been logged out."))
}
