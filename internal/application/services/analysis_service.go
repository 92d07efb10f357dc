package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/searchiq/storefront/internal/domain/entities"
	"github.com/searchiq/storefront/internal/domain/providers"
	"github.com/searchiq/storefront/internal/infrastructure/clients/backendapi"
	"github.com/searchiq/storefront/pkg/debounce"
	apperrors "github.com/searchiq/storefront/pkg/errors"
)

// MinAnalysisTextLength is the length a draft must exceed to be analysed.
const MinAnalysisTextLength = 10

const analysisCallTimeout = 10 * time.Second

type analysisDraft struct {
	session *UserSession
	text    string
}

// AnalysisService runs debounced quick analysis of problem drafts and
// publishes results on the session's analysis channel.
type AnalysisService struct {
	api  backendapi.API
	bus  providers.EventBus
	gens *Generations
	wait time.Duration

	mu         sync.Mutex
	debouncers map[string]*debounce.Debouncer[analysisDraft]
	closed     bool
}

// NewAnalysisService creates a new analysis service debouncing drafts by wait.
func NewAnalysisService(api backendapi.API, bus providers.EventBus, gens *Generations, wait time.Duration) *AnalysisService {
	return &AnalysisService{
		api:        api,
		bus:        bus,
		gens:       gens,
		wait:       wait,
		debouncers: make(map[string]*debounce.Debouncer[analysisDraft]),
	}
}

// Draft records the latest text typed by the session. Only the last draft of
// a burst is analysed, wait after the typing stops.
func (s *AnalysisService) Draft(sess *UserSession, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	sid := sess.ID()
	d, ok := s.debouncers[sid]
	if !ok {
		var created *debounce.Debouncer[analysisDraft]
		created = debounce.New(func(draft analysisDraft) {
			s.run(draft)
			s.release(sid, created)
		}, s.wait)
		d = created
		s.debouncers[sid] = d
	}
	d.Trigger(analysisDraft{session: sess, text: text})
}

// release drops the session's debouncer once it has nothing scheduled.
func (s *AnalysisService) release(sessionID string, d *debounce.Debouncer[analysisDraft]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.debouncers[sessionID] == d && !d.Pending() {
		delete(s.debouncers, sessionID)
	}
}

func (s *AnalysisService) run(draft analysisDraft) {
	text := strings.TrimSpace(draft.text)
	if len([]rune(text)) <= MinAnalysisTextLength {
		return
	}

	sid := draft.session.ID()
	gen := s.gens.Next(sid, ActionAnalysis)

	ctx, cancel := context.WithTimeout(context.Background(), analysisCallTimeout)
	defer cancel()

	analysis, err := s.api.QuickAnalysis(ctx, draft.session, entities.QuickAnalysisRequest{ProblemText: text})

	event := &entities.AnalysisEvent{
		ID:          uuid.NewString(),
		EventType:   entities.AnalysisEventReady,
		Generation:  gen,
		ProblemText: text,
		Analysis:    analysis,
		Timestamp:   time.Now().UTC(),
	}

	// The 401 already logged the session out and dropped its generations.
	if errors.Is(err, apperrors.ErrAuthExpired) {
		event.EventType = entities.AnalysisEventFailed
		event.Analysis = nil
		event.Error = "session expired"
		s.publish(ctx, sid, event)
		return
	}

	if !s.gens.IsCurrent(sid, ActionAnalysis, gen) {
		log.Debug().Str("session_id", sid).Uint64("generation", gen).Msg("dropping stale analysis result")
		return
	}
	defer s.gens.Done(sid, ActionAnalysis, gen)

	if err != nil {
		event.EventType = entities.AnalysisEventFailed
		event.Analysis = nil
		event.Error = ErrorMessage(err)
	}
	s.publish(ctx, sid, event)
}

func (s *AnalysisService) publish(ctx context.Context, sid string, event *entities.AnalysisEvent) {
	if err := s.bus.Publish(ctx, providers.GetAnalysisChannel(sid), event); err != nil {
		log.Warn().Err(err).Str("session_id", sid).Msg("failed to publish analysis event")
	}
}

// Subscribe opens the session's analysis stream until ctx is done.
func (s *AnalysisService) Subscribe(ctx context.Context, sessionID string) (<-chan *entities.AnalysisEvent, error) {
	return s.bus.Subscribe(ctx, providers.GetAnalysisChannel(sessionID))
}

// Forget cancels any pending draft of the session and drops its counters.
// It is registered as a logout hook.
func (s *AnalysisService) Forget(ctx context.Context, sessionID string) {
	s.mu.Lock()
	d, ok := s.debouncers[sessionID]
	delete(s.debouncers, sessionID)
	s.mu.Unlock()

	if ok {
		d.Stop()
	}
	s.gens.Forget(sessionID)
}

// Close stops every pending draft.
func (s *AnalysisService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for sid, d := range s.debouncers {
		d.Stop()
		delete(s.debouncers, sid)
	}
	s.closed = true
}
