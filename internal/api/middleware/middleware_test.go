package middleware

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchiq/storefront/internal/adapters/session"
	"github.com/searchiq/storefront/internal/application/services"
	"github.com/searchiq/storefront/internal/domain/entities"
	"github.com/searchiq/storefront/pkg/config"
)

var testSessionConfig = config.SessionConfig{CookieName: "sid", RememberMeHours: 24}

func echoSessionID() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, SessionIDFromContext(r.Context()))
	})
}

func TestSession_IssuesCookieWhenMissing(t *testing.T) {
	rec := httptest.NewRecorder()
	Session(testSessionConfig)(echoSessionID()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sid", cookies[0].Name)
	assert.Equal(t, cookies[0].Value, rec.Body.String())
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	_, err := uuid.Parse(cookies[0].Value)
	assert.NoError(t, err)
}

func TestSession_KeepsValidCookie(t *testing.T) {
	sid := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	rec := httptest.NewRecorder()

	Session(testSessionConfig)(echoSessionID()).ServeHTTP(rec, req)

	assert.Equal(t, sid, rec.Body.String())
	assert.Empty(t, rec.Result().Cookies())
}

func TestSession_ReplacesMalformedCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "../../etc/passwd"})
	rec := httptest.NewRecorder()

	Session(testSessionConfig)(echoSessionID()).ServeHTTP(rec, req)

	assert.NotEqual(t, "../../etc/passwd", rec.Body.String())
	require.Len(t, rec.Result().Cookies(), 1)
}

func TestSetSessionCookie_Persistent(t *testing.T) {
	rec := httptest.NewRecorder()
	SetSessionCookie(rec, config.SessionConfig{CookieName: "sid", SecureCookie: true}, "abc", 2*time.Hour)

	cookie := rec.Result().Cookies()[0]
	assert.Equal(t, 7200, cookie.MaxAge)
	assert.True(t, cookie.Secure)
}

func TestRequireAuth(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	auth := services.NewAuthSessionService(store, nil)
	handler := Session(testSessionConfig)(RequireAuth(auth, time.Hour)(echoSessionID()))

	anon := httptest.NewRecorder()
	handler.ServeHTTP(anon, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusSeeOther, anon.Code)
	assert.Equal(t, "/login", anon.Header().Get("Location"))

	sid := uuid.NewString()
	require.NoError(t, store.Set(context.Background(), sid, entities.SessionKeyToken, "tok"))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sid, rec.Body.String())
}

func TestCORSMiddleware(t *testing.T) {
	handler := CORSMiddleware([]string{"https://shop.example.com", "*"})(echoSessionID())

	preflight := httptest.NewRequest(http.MethodOptions, "/ui/search", nil)
	preflight.Header.Set("Origin", "https://shop.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, preflight)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://shop.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	other := httptest.NewRequest(http.MethodGet, "/ui/search", nil)
	other.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCompression(t *testing.T) {
	body := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<div>results</div>")
	})
	handler := Compression(body)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	gz, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	plain, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Equal(t, "<div>results</div>", string(plain))
}

func TestCompression_SkipsEventStreams(t *testing.T) {
	handler := Compression(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "event: connected\n\n")
	}))

	req := httptest.NewRequest(http.MethodGet, "/ui/analysis/stream", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Accept", "text/event-stream")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	assert.Equal(t, "event: connected\n\n", rec.Body.String())
}

func TestCacheControl(t *testing.T) {
	handler := CacheControl(echoSessionID())
	cases := map[string]string{
		"/static/css/style.css": "public, max-age=3600",
		"/health":               "no-cache",
		"/ui/search":            "private, no-store",
	}
	for path, want := range cases {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, rec.Header().Get("Cache-Control"), path)
	}
}
