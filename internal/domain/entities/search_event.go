package entities

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// SearchEvent is a search persisted to the analytics store.
type SearchEvent struct {
	ID          string    `json:"id" db:"id"`
	SessionHash string    `json:"-" db:"session_hash"`
	Action      string    `json:"action" db:"action"`
	Query       string    `json:"query" db:"query"`
	Intent      string    `json:"intent" db:"intent"`
	ResultCount int       `json:"result_count" db:"result_count"`
	LatencyMs   int64     `json:"latency_ms" db:"latency_ms"`
	Failed      bool      `json:"failed" db:"failed"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// HashSessionID derives the analytics key for a session. The raw id is a
// bearer credential and never leaves the session store.
func HashSessionID(sid string) string {
	sum := sha256.Sum256([]byte(sid))
	return hex.EncodeToString(sum[:])
}
