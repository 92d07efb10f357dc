package backendapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchiq/storefront/internal/domain/entities"
	apperrors "github.com/searchiq/storefront/pkg/errors"
)

type fakeSession struct {
	token      string
	logoutHits int
}

func (f *fakeSession) BuildAuthHeaders(ctx context.Context) map[string]string {
	h := map[string]string{"Content-Type": "application/json"}
	if f.token != "" {
		h["Authorization"] = "Bearer " + f.token
	}
	return h
}

func (f *fakeSession) Logout(ctx context.Context) error {
	f.logoutHits++
	f.token = ""
	return nil
}

func TestRequest_SendsJSONWithBearer(t *testing.T) {
	var gotAuth, gotType, gotMethod string
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotMethod = r.Method
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", 0, nil)
	sess := &fakeSession{token: "abc"}

	raw, err := client.Request(context.Background(), sess, "/api/echo", map[string]string{"q": "x"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "Bearer abc", gotAuth)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "x", gotBody["q"])
}

func TestRequest_NilSessionSendsNoAuthorization(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, 0, nil).Request(context.Background(), nil, "/api/x", struct{}{})
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestRequest_401LogsOutAndReturnsAuthExpired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"token expired"}`))
	}))
	defer server.Close()

	sess := &fakeSession{token: "stale"}
	raw, err := NewClient(server.URL, 0, nil).Request(context.Background(), sess, EndpointSearch, entities.SearchRequest{Query: "x", MaxResults: 10})

	assert.Nil(t, raw)
	assert.True(t, errors.Is(err, apperrors.ErrAuthExpired))
	assert.Equal(t, 1, sess.logoutHits)
	assert.Empty(t, sess.token)
}

func TestRequest_NonOKCarriesStatusAndRawBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`internal error`))
	}))
	defer server.Close()

	sess := &fakeSession{token: "abc"}
	_, err := NewClient(server.URL, 0, nil).Request(context.Background(), sess, EndpointSearch, nil)

	rf, ok := apperrors.AsRequestFailed(err)
	require.True(t, ok)
	assert.Equal(t, 500, rf.Status)
	assert.Equal(t, "internal error", rf.Body)
	assert.Equal(t, 0, sess.logoutHits)
}

func TestRequest_InvalidJSONIsMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, 0, nil).Request(context.Background(), nil, "/api/x", nil)
	var mp *apperrors.MalformedPayload
	assert.True(t, errors.As(err, &mp))
}

func TestRequest_TransportFailureIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(url, 0, nil).Request(context.Background(), nil, "/api/x", nil)
	assert.True(t, apperrors.IsNetworkError(err))
}

func TestFetch_UsesGET(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/spare-parts/models/Samsung", r.URL.Path)
		_, _ = w.Write([]byte(`["Galaxy S21","Galaxy S22"]`))
	}))
	defer server.Close()

	models, err := NewClient(server.URL, 0, nil).DeviceModels(context.Background(), &fakeSession{token: "t"}, "Samsung")
	require.NoError(t, err)
	assert.Equal(t, []string{"Galaxy S21", "Galaxy S22"}, models)
}

func TestDeviceModels_RequiresBrand(t *testing.T) {
	_, err := NewClient("http://unused", 0, nil).DeviceModels(context.Background(), nil, "  ")
	assert.True(t, apperrors.IsValidation(err))
}

func TestSearch_DecodesEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"query":"wireless mouse","max_results":10}`, string(body))
		_, _ = w.Write([]byte(`{"items":[{"name":"Mouse X","price":499,"rating":4.2}],"intent":"electronics"}`))
	}))
	defer server.Close()

	env, err := NewClient(server.URL, 0, nil).Search(context.Background(), &fakeSession{token: "t"},
		entities.SearchRequest{Query: "wireless mouse", MaxResults: 10})
	require.NoError(t, err)
	assert.Equal(t, "electronics", env.Intent)
	items, ok := env.Items.([]interface{})
	require.True(t, ok)
	assert.Len(t, items, 1)
}

func TestSearch_ListBodyYieldsEmptyEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[1,2]`))
	}))
	defer server.Close()

	env, err := NewClient(server.URL, 0, nil).Search(context.Background(), nil, entities.SearchRequest{Query: "x", MaxResults: 1})
	require.NoError(t, err)
	assert.Nil(t, env.Items)
}

func TestLogin_401IsCredentialFailureNotLogout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Invalid credentials"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, 0, nil).Login(context.Background(), entities.LoginRequest{EmailOrUsername: "a", Password: "b"})

	assert.False(t, errors.Is(err, apperrors.ErrAuthExpired))
	rf, ok := apperrors.AsRequestFailed(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, rf.Status)
	assert.Equal(t, "Invalid credentials", ErrorMessage(rf))
}

func TestLogin_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, EndpointLogin, r.URL.Path)
		_, _ = w.Write([]byte(`{"access_token":"tok","user":{"id":7,"username":"asha"}}`))
	}))
	defer server.Close()

	res, err := NewClient(server.URL, 0, nil).Login(context.Background(), entities.LoginRequest{EmailOrUsername: "asha", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "tok", res.AccessToken)
	assert.Equal(t, "asha", res.User.Username)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "Out of range", ErrorMessage(&apperrors.RequestFailed{Status: 400, Body: `{"detail":"Out of range"}`}))
	assert.Equal(t, "Email taken", ErrorMessage(&apperrors.RequestFailed{Status: 400, Body: `{"error":"Email taken"}`}))
	assert.Equal(t, "boom", ErrorMessage(&apperrors.RequestFailed{Status: 502, Body: " boom\n"}))
	assert.Equal(t, "", ErrorMessage(nil))
}
