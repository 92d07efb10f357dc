package entities

// SearchRequest is a product search issued from the search form.
type SearchRequest struct {
	Query      string         `json:"query"`
	MaxResults int            `json:"max_results"`
	Filters    *SearchFilters `json:"-"`
}

// SearchFilters are the structured spare-part filters.
type SearchFilters struct {
	Brand            string
	DeviceModel      string
	IssueDescription string
}

// SparePartRequest is the body of /api/spare-parts/recommend.
type SparePartRequest struct {
	Brand            string `json:"brand"`
	DeviceModel      string `json:"device_model"`
	IssueDescription string `json:"issue_description"`
	MaxResults       int    `json:"max_results"`
}

// RecommendationRequest is the body of /api/intelligent-recommendations.
type RecommendationRequest struct {
	UserProblem     string                 `json:"user_problem"`
	UserPreferences map[string]interface{} `json:"user_preferences"`
	IncludeAnalysis bool                   `json:"include_analysis"`
	MaxResults      int                    `json:"max_results"`
}

// QuickAnalysisRequest is the body of /api/quick-analysis.
type QuickAnalysisRequest struct {
	ProblemText string `json:"problem_text"`
}

// LoginRequest is the body of /api/auth/login.
type LoginRequest struct {
	EmailOrUsername string `json:"email_or_username"`
	Password        string `json:"password"`
}

// SignupRequest is the body of /api/auth/signup.
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
