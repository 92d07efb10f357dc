package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchiq/storefront/internal/adapters/events"
	"github.com/searchiq/storefront/internal/domain/entities"
	apperrors "github.com/searchiq/storefront/pkg/errors"
)

const testDebounce = 20 * time.Millisecond

func TestAnalysisService_DebouncesBurstToLastDraft(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := &fakeAPI{analysisFn: func(_ context.Context, req entities.QuickAnalysisRequest) (map[string]interface{}, error) {
		return map[string]interface{}{"device_type": "laptop"}, nil
	}}
	bus := events.NewMemoryEventBus()
	defer bus.Close()
	svc := NewAnalysisService(api, bus, NewGenerations(), testDebounce)
	defer svc.Close()

	auth, store := newTestSessions(api)
	sess := loggedIn(ctx, store, auth, "sid")

	stream, err := svc.Subscribe(ctx, "sid")
	require.NoError(t, err)

	svc.Draft(sess, "my laptop")
	svc.Draft(sess, "my laptop won't")
	svc.Draft(sess, "my laptop won't turn on")

	select {
	case ev := <-stream:
		assert.Equal(t, entities.AnalysisEventReady, ev.EventType)
		assert.Equal(t, "my laptop won't turn on", ev.ProblemText)
		assert.Equal(t, "laptop", ev.Analysis["device_type"])
	case <-time.After(2 * time.Second):
		t.Fatal("no analysis event")
	}
	assert.Equal(t, []string{"my laptop won't turn on"}, api.analysisTexts())
}

func TestAnalysisService_ShortDraftIsDropped(t *testing.T) {
	api := &fakeAPI{analysisFn: func(context.Context, entities.QuickAnalysisRequest) (map[string]interface{}, error) {
		return map[string]interface{}{}, nil
	}}
	svc := NewAnalysisService(api, events.NewMemoryEventBus(), NewGenerations(), testDebounce)
	defer svc.Close()
	auth, _ := newTestSessions(api)

	svc.Draft(auth.Open("sid"), "0123456789")
	time.Sleep(5 * testDebounce)

	assert.Empty(t, api.analysisTexts())
}

func TestAnalysisService_StaleResultNotPublished(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	firstEntered := make(chan struct{})
	releaseFirst := make(chan struct{})
	api := &fakeAPI{analysisFn: func(_ context.Context, req entities.QuickAnalysisRequest) (map[string]interface{}, error) {
		if calls.Add(1) == 1 {
			close(firstEntered)
			<-releaseFirst
			return map[string]interface{}{"which": "first"}, nil
		}
		return map[string]interface{}{"which": "second"}, nil
	}}
	bus := events.NewMemoryEventBus()
	defer bus.Close()
	svc := NewAnalysisService(api, bus, NewGenerations(), testDebounce)
	defer svc.Close()
	auth, store := newTestSessions(api)
	sess := loggedIn(ctx, store, auth, "sid")

	stream, err := svc.Subscribe(ctx, "sid")
	require.NoError(t, err)

	svc.Draft(sess, "first long problem text")
	<-firstEntered
	svc.Draft(sess, "second long problem text")

	select {
	case ev := <-stream:
		assert.Equal(t, "second", ev.Analysis["which"])
	case <-time.After(2 * time.Second):
		t.Fatal("no analysis event")
	}

	close(releaseFirst)
	select {
	case ev := <-stream:
		t.Fatalf("stale event published: %+v", ev)
	case <-time.After(5 * testDebounce):
	}
}

func TestAnalysisService_FailurePublishesFailedEvent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := &fakeAPI{analysisFn: func(context.Context, entities.QuickAnalysisRequest) (map[string]interface{}, error) {
		return nil, &apperrors.RequestFailed{Status: 503, Body: `{"detail":"busy"}`}
	}}
	bus := events.NewMemoryEventBus()
	defer bus.Close()
	svc := NewAnalysisService(api, bus, NewGenerations(), testDebounce)
	defer svc.Close()
	auth, store := newTestSessions(api)

	stream, err := svc.Subscribe(ctx, "sid")
	require.NoError(t, err)
	svc.Draft(loggedIn(ctx, store, auth, "sid"), "phone battery drains fast")

	select {
	case ev := <-stream:
		assert.Equal(t, entities.AnalysisEventFailed, ev.EventType)
		assert.Contains(t, ev.Error, "503")
		assert.Nil(t, ev.Analysis)
	case <-time.After(2 * time.Second):
		t.Fatal("no analysis event")
	}
}

func TestAnalysisService_ForgetCancelsPendingDraft(t *testing.T) {
	api := &fakeAPI{analysisFn: func(context.Context, entities.QuickAnalysisRequest) (map[string]interface{}, error) {
		return map[string]interface{}{}, nil
	}}
	svc := NewAnalysisService(api, events.NewMemoryEventBus(), NewGenerations(), testDebounce)
	defer svc.Close()
	auth, _ := newTestSessions(api)

	svc.Draft(auth.Open("sid"), "a long enough problem description")
	svc.Forget(context.Background(), "sid")
	time.Sleep(5 * testDebounce)

	assert.Empty(t, api.analysisTexts())
}

func TestAnalysisService_AuthExpiryPublishesFailedEvent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := events.NewMemoryEventBus()
	defer bus.Close()
	api := &fakeAPI{}
	svc := NewAnalysisService(api, bus, NewGenerations(), testDebounce)
	defer svc.Close()
	auth, store := newTestSessions(api)
	auth.OnLogout(svc.Forget)
	sess := loggedIn(ctx, store, auth, "sid")

	// The backend client logs the session out before reporting the 401.
	api.analysisFn = func(ctx context.Context, _ entities.QuickAnalysisRequest) (map[string]interface{}, error) {
		_ = sess.Logout(ctx)
		return nil, apperrors.ErrAuthExpired
	}

	stream, err := svc.Subscribe(ctx, "sid")
	require.NoError(t, err)
	svc.Draft(sess, "laptop screen flickers")

	select {
	case ev := <-stream:
		assert.Equal(t, entities.AnalysisEventFailed, ev.EventType)
		assert.Equal(t, "session expired", ev.Error)
	case <-time.After(2 * time.Second):
		t.Fatal("auth expiry was not reported")
	}
	assert.False(t, sess.IsAuthenticated(ctx))
}

func TestAnalysisService_ReleasesPerSessionState(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := &fakeAPI{analysisFn: func(context.Context, entities.QuickAnalysisRequest) (map[string]interface{}, error) {
		return map[string]interface{}{}, nil
	}}
	bus := events.NewMemoryEventBus()
	defer bus.Close()
	gens := NewGenerations()
	svc := NewAnalysisService(api, bus, gens, testDebounce)
	defer svc.Close()
	auth, store := newTestSessions(api)

	for _, sid := range []string{"a", "b", "c"} {
		stream, err := svc.Subscribe(ctx, sid)
		require.NoError(t, err)
		svc.Draft(loggedIn(ctx, store, auth, sid), "washing machine leaks water")
		select {
		case <-stream:
		case <-time.After(2 * time.Second):
			t.Fatal("no analysis event")
		}
	}

	require.Eventually(t, func() bool {
		svc.mu.Lock()
		defer svc.mu.Unlock()
		return len(svc.debouncers) == 0
	}, time.Second, 5*time.Millisecond)

	gens.mu.Lock()
	defer gens.mu.Unlock()
	assert.Empty(t, gens.current)
}
