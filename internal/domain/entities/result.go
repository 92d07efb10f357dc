package entities

import (
	"html/template"
	"time"
)

// ResultKind tags which backend producer a result item came from.
type ResultKind string

const (
	ResultKindProduct        ResultKind = "product"
	ResultKindSparePart      ResultKind = "spare_part"
	ResultKindRecommendation ResultKind = "recommendation"
)

// ResultItem is one loosely typed object from a backend result list.
// Implementations differ only in which alias table normalises them.
type ResultItem interface {
	Kind() ResultKind
	Fields() map[string]interface{}
}

// ProductResult is an item from /api/search.
type ProductResult struct{ Raw map[string]interface{} }

// SparePartResult is an item from /api/spare-parts/recommend.
type SparePartResult struct{ Raw map[string]interface{} }

// RecommendationResult is an item from /api/intelligent-recommendations.
type RecommendationResult struct{ Raw map[string]interface{} }

func (p ProductResult) Kind() ResultKind                      { return ResultKindProduct }
func (p ProductResult) Fields() map[string]interface{}        { return p.Raw }
func (s SparePartResult) Kind() ResultKind                    { return ResultKindSparePart }
func (s SparePartResult) Fields() map[string]interface{}      { return s.Raw }
func (r RecommendationResult) Kind() ResultKind               { return ResultKindRecommendation }
func (r RecommendationResult) Fields() map[string]interface{} { return r.Raw }

// NewResultItem wraps raw fields in the variant for kind.
func NewResultItem(kind ResultKind, raw map[string]interface{}) ResultItem {
	switch kind {
	case ResultKindSparePart:
		return SparePartResult{Raw: raw}
	case ResultKindRecommendation:
		return RecommendationResult{Raw: raw}
	default:
		return ProductResult{Raw: raw}
	}
}

// DisplayCard is the canonical view model every result variant normalises to.
type DisplayCard struct {
	Kind     ResultKind
	Index    int
	Title    string
	Brand    string
	Category string

	PartNumber string

	Price              float64
	PriceLabel         string
	OriginalPriceLabel string
	DiscountLabel      string

	Rating      float64
	RatingLabel string
	// RatingIsFiller marks a rating invented for display because the backend
	// sent none. It is not a real signal.
	RatingIsFiller bool

	ImageURL          string
	Availability      string
	AvailabilityClass string
	Compatibility     string
	ConfidenceText    string
	ConfidenceClass   string
	Delivery          string
	MatchReason       string
	Warranty          string
	Description       template.HTML
	OutOfStock        bool

	// ActionArg is the value handed to the card's inline action handler.
	ActionArg   string
	RevealDelay time.Duration
}

// DetectedIssue is the analysis block of an intelligent recommendation response.
type DetectedIssue struct {
	DetectedIssues []string `json:"detected_issues"`
	DeviceType     string   `json:"device_type"`
	Urgency        string   `json:"urgency"`
}

// RecommendationEnvelope is the decoded /api/intelligent-recommendations body.
type RecommendationEnvelope struct {
	DetectedIssue       *DetectedIssue `json:"detected_issue"`
	PersonalizedMessage string         `json:"personalized_message"`
	Recommendations     interface{}    `json:"recommendations"`
	TotalFound          int            `json:"total_found"`
}

// SearchEnvelope is the decoded /api/search body.
type SearchEnvelope struct {
	Items  interface{} `json:"items"`
	Intent string      `json:"intent"`
}
