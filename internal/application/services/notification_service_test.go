package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchiq/storefront/internal/adapters/session"
	"github.com/searchiq/storefront/internal/domain/entities"
	apperrors "github.com/searchiq/storefront/pkg/errors"
)

func TestNotificationService_DrainIsDestructive(t *testing.T) {
	ctx := context.Background()
	svc := NewNotificationService(session.NewMemoryStore(0))

	require.NoError(t, svc.Notify(ctx, "sid", "Login successful!", entities.SeveritySuccess))
	require.NoError(t, svc.Notify(ctx, "sid", "Heads up", entities.Severity("sparkly")))

	got, err := svc.Drain(ctx, "sid")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, entities.SeveritySuccess, got[0].Severity)
	assert.Equal(t, entities.SeverityInfo, got[1].Severity, "unknown severity falls back to info")
	assert.NotEmpty(t, got[0].ID)
	assert.Equal(t, int64(3000), got[0].DurationMs())

	again, err := svc.Drain(ctx, "sid")
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestNotificationService_QueueIsBounded(t *testing.T) {
	ctx := context.Background()
	svc := NewNotificationService(session.NewMemoryStore(0))

	for i := 0; i < maxQueuedNotifications+5; i++ {
		require.NoError(t, svc.Notify(ctx, "sid", "msg", entities.SeverityInfo))
	}
	got, err := svc.Drain(ctx, "sid")
	require.NoError(t, err)
	assert.Len(t, got, maxQueuedNotifications)
}

func TestNotificationService_NotifyErrorCarriesStatus(t *testing.T) {
	ctx := context.Background()
	svc := NewNotificationService(session.NewMemoryStore(0))

	require.NoError(t, svc.NotifyError(ctx, "sid", &apperrors.RequestFailed{Status: 500, Body: "internal error"}))

	got, err := svc.Drain(ctx, "sid")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, entities.SeverityError, got[0].Severity)
	assert.Contains(t, got[0].Message, "500")
	assert.Contains(t, got[0].Message, "internal error")
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "Network error. Please try again.",
		ErrorMessage(&apperrors.NetworkError{Endpoint: "/api/search", Err: errors.New("refused")}))
	assert.Equal(t, "Request failed (HTTP 502)", ErrorMessage(&apperrors.RequestFailed{Status: 502}))
	assert.Equal(t, "Please enter a search query", ErrorMessage(apperrors.NewValidationError("Please enter a search query")))
	assert.Contains(t, ErrorMessage(&apperrors.MalformedPayload{Reason: "x"}), "Unexpected response")
	assert.Contains(t, ErrorMessage(errors.New("boom")), "Something went wrong")
}
