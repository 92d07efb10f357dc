package entities

import (
	"math"
	"time"
)

// DefaultSearchHistorySize bounds the per-session search history.
const DefaultSearchHistorySize = 50

// SearchHistoryEntry records one completed search for client-side analytics.
type SearchHistoryEntry struct {
	Query       string    `json:"query"`
	ElapsedMs   int64     `json:"elapsed_ms"`
	ResultCount int       `json:"result_count"`
	Intent      string    `json:"intent,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// FastSearchThreshold is the latency under which a search counts as fast.
const FastSearchThreshold = 100 * time.Millisecond

// SummaryRecentSize is how many searches a SearchSummary lists.
const SummaryRecentSize = 10

// SearchSummary aggregates a session's search history.
type SearchSummary struct {
	Message              string                `json:"message,omitempty"`
	TotalSearches        int                   `json:"total_searches"`
	AverageTimeMs        int64                 `json:"average_time_ms"`
	FastSearchPercentage int                   `json:"fast_search_percentage"`
	LastSearchTimeMs     int64                 `json:"last_search_time_ms"`
	Recent               []*SearchHistoryEntry `json:"recent"`
}

// SummarizeHistory computes the summary of entries, oldest first.
func SummarizeHistory(entries []*SearchHistoryEntry) *SearchSummary {
	if len(entries) == 0 {
		return &SearchSummary{Message: "No searches performed yet", Recent: []*SearchHistoryEntry{}}
	}

	var total int64
	fast := 0
	for _, e := range entries {
		total += e.ElapsedMs
		if e.ElapsedMs < FastSearchThreshold.Milliseconds() {
			fast++
		}
	}
	n := len(entries)
	recent := entries
	if n > SummaryRecentSize {
		recent = entries[n-SummaryRecentSize:]
	}

	return &SearchSummary{
		TotalSearches:        n,
		AverageTimeMs:        int64(math.Round(float64(total) / float64(n))),
		FastSearchPercentage: int(math.Round(float64(fast) * 100 / float64(n))),
		LastSearchTimeMs:     entries[n-1].ElapsedMs,
		Recent:               append([]*SearchHistoryEntry(nil), recent...),
	}
}
