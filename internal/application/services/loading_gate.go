package services

import (
	"errors"
	"strings"
	"sync"
)

// ErrInProgress is returned when the same session already has the action in flight.
var ErrInProgress = errors.New("request already in progress")

// Action names used for loading gates and generation counters.
const (
	ActionSearch          = "search"
	ActionSpareParts      = "spare_parts"
	ActionRecommendations = "recommendations"
	ActionAnalysis        = "analysis"
)

// LoadingGate allows one in-flight call per (session, action). A rejected
// call does not queue behind or cancel the running one.
type LoadingGate struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewLoadingGate creates an empty gate.
func NewLoadingGate() *LoadingGate {
	return &LoadingGate{inFlight: make(map[string]struct{})}
}

func gateKey(sessionID, action string) string {
	return sessionID + "|" + action
}

// Acquire marks the action as running. The returned release must be called
// exactly once, typically in a defer.
func (g *LoadingGate) Acquire(sessionID, action string) (func(), error) {
	key := gateKey(sessionID, action)

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.inFlight[key]; busy {
		return nil, ErrInProgress
	}
	g.inFlight[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.inFlight, key)
			g.mu.Unlock()
		})
	}, nil
}

// Generations numbers analysis runs per session. Only the newest run of a
// session may publish. Numbers come from one global sequence, so a number
// handed out after Forget never matches an older run.
type Generations struct {
	mu      sync.Mutex
	seq     uint64
	current map[string]uint64
}

// NewGenerations creates an empty counter set.
func NewGenerations() *Generations {
	return &Generations{current: make(map[string]uint64)}
}

// Next starts a new generation and returns it.
func (g *Generations) Next(sessionID, action string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	g.current[gateKey(sessionID, action)] = g.seq
	return g.seq
}

// IsCurrent reports whether gen is still the newest generation.
func (g *Generations) IsCurrent(sessionID, action string, gen uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current[gateKey(sessionID, action)] == gen
}

// Done drops the entry once gen has finished, if nothing newer started.
func (g *Generations) Done(sessionID, action string, gen uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := gateKey(sessionID, action)
	if g.current[key] == gen {
		delete(g.current, key)
	}
}

// Forget drops every counter of a session.
func (g *Generations) Forget(sessionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	prefix := sessionID + "|"
	for key := range g.current {
		if strings.HasPrefix(key, prefix) {
			delete(g.current, key)
		}
	}
}
