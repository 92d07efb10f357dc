package presentation

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/message"

	"github.com/searchiq/storefront/internal/domain/entities"
)

//go:embed templates/*.html
var templateFS embed.FS

// Pages that can be passed to RenderPage.
const (
	PageHome   = "home"
	PageLogin  = "login"
	PageSignup = "signup"
)

// fastThreshold is the elapsed time below which a search is labelled fast.
const fastThreshold = 100 * time.Millisecond

var placeholders = map[entities.ResultKind]string{
	entities.ResultKindProduct:        "No products found for your search. Try different keywords!",
	entities.ResultKindSparePart:      "No spare parts found for your query.",
	entities.ResultKindRecommendation: "No parts found",
}

// RenderSummary describes what a list render produced.
type RenderSummary struct {
	Placeholder   bool
	Cards         int
	FillerRatings int
}

// ResultsMeta carries header details shown above a result list.
type ResultsMeta struct {
	Intent     string
	Elapsed    time.Duration
	ShowTiming bool
	// Total overrides the card count in the header when non-zero.
	Total int
}

type resultsView struct {
	Placeholder     bool
	PlaceholderText string
	Heading         string
	TimingLabel     string
	Fast            bool
	Cards           []entities.DisplayCard
}

type recommendationsView struct {
	Issue   *entities.DetectedIssue
	Message string
	Results resultsView
}

// Renderer turns backend payloads into HTML fragments and pages.
type Renderer struct {
	partials  *template.Template
	pages     map[string]*template.Template
	sanitizer *bluemonday.Policy
	printer   *message.Printer
	rand      func() float64
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithRand replaces the source of filler ratings. fn must return values in [0, 1).
func WithRand(fn func() float64) Option {
	return func(r *Renderer) {
		r.rand = fn
	}
}

// NewRenderer parses the embedded templates.
func NewRenderer(opts ...Option) (*Renderer, error) {
	r := &Renderer{
		sanitizer: bluemonday.UGCPolicy(),
		printer:   newPricePrinter(),
		rand:      rand.Float64,
		pages:     make(map[string]*template.Template),
	}
	for _, opt := range opts {
		opt(r)
	}

	funcs := template.FuncMap{
		"delayMs": func(d time.Duration) int64 { return d.Milliseconds() },
	}
	partials, err := template.New("partials").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/results.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse partial templates: %w", err)
	}
	r.partials = partials

	for _, page := range []string{PageHome, PageLogin, PageSignup} {
		base, err := partials.Clone()
		if err != nil {
			return nil, fmt.Errorf("failed to clone templates for %s: %w", page, err)
		}
		t, err := base.ParseFS(templateFS, "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", page, err)
		}
		r.pages[page] = t
	}
	return r, nil
}

// Render writes the card list for payload, or the kind's placeholder when
// payload is absent, not a list, or empty.
func (r *Renderer) Render(w io.Writer, kind entities.ResultKind, payload interface{}) (RenderSummary, error) {
	return r.RenderResults(w, kind, payload, ResultsMeta{})
}

// RenderResults is Render with a populated results header.
func (r *Renderer) RenderResults(w io.Writer, kind entities.ResultKind, payload interface{}, meta ResultsMeta) (RenderSummary, error) {
	view, summary := r.buildResults(kind, payload, meta)
	if err := r.partials.ExecuteTemplate(w, "results", view); err != nil {
		return summary, fmt.Errorf("failed to render results: %w", err)
	}
	return summary, nil
}

// RenderRecommendations writes the analysis summary followed by the cards.
func (r *Renderer) RenderRecommendations(w io.Writer, env *entities.RecommendationEnvelope, meta ResultsMeta) (RenderSummary, error) {
	if env == nil {
		env = &entities.RecommendationEnvelope{}
	}
	if meta.Total == 0 {
		meta.Total = env.TotalFound
	}
	results, summary := r.buildResults(entities.ResultKindRecommendation, env.Recommendations, meta)
	view := recommendationsView{
		Issue:   env.DetectedIssue,
		Message: env.PersonalizedMessage,
		Results: results,
	}
	if err := r.partials.ExecuteTemplate(w, "recommendations", view); err != nil {
		return summary, fmt.Errorf("failed to render recommendations: %w", err)
	}
	return summary, nil
}

// RenderToasts writes one toast per notification.
func (r *Renderer) RenderToasts(w io.Writer, notifications []entities.Notification) error {
	if err := r.partials.ExecuteTemplate(w, "toasts", notifications); err != nil {
		return fmt.Errorf("failed to render notifications: %w", err)
	}
	return nil
}

// RenderPage writes a full HTML document.
func (r *Renderer) RenderPage(w io.Writer, page string, data interface{}) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		return fmt.Errorf("failed to render %s page: %w", page, err)
	}
	return nil
}

// Cards normalises every usable element of payload. A nil result means
// payload should be shown as the placeholder.
func (r *Renderer) Cards(kind entities.ResultKind, payload interface{}) []entities.DisplayCard {
	list, ok := payload.([]interface{})
	if !ok || len(list) == 0 {
		return nil
	}
	var cards []entities.DisplayCard
	for _, v := range list {
		raw, ok := v.(map[string]interface{})
		if !ok || raw == nil {
			continue
		}
		cards = append(cards, r.Normalize(entities.NewResultItem(kind, raw), len(cards)))
	}
	return cards
}

func (r *Renderer) buildResults(kind entities.ResultKind, payload interface{}, meta ResultsMeta) (resultsView, RenderSummary) {
	cards := r.Cards(kind, payload)
	if len(cards) == 0 {
		return resultsView{Placeholder: true, PlaceholderText: placeholders[kind]}, RenderSummary{Placeholder: true}
	}

	summary := RenderSummary{Cards: len(cards)}
	for _, c := range cards {
		if c.RatingIsFiller {
			summary.FillerRatings++
		}
	}

	total := len(cards)
	if meta.Total > 0 {
		total = meta.Total
	}
	view := resultsView{
		Heading: heading(kind, total, meta.Intent),
		Cards:   cards,
	}
	if meta.ShowTiming {
		view.Fast = meta.Elapsed < fastThreshold
		if view.Fast {
			view.TimingLabel = "⚡ Lightning Fast"
		} else {
			view.TimingLabel = fmt.Sprintf("%dms", meta.Elapsed.Milliseconds())
		}
	}
	return view, summary
}

func heading(kind entities.ResultKind, n int, intent string) string {
	switch kind {
	case entities.ResultKindSparePart:
		return fmt.Sprintf("Found %d spare parts", n)
	case entities.ResultKindRecommendation:
		return fmt.Sprintf("%d Smart Recommendations", n)
	}
	h := fmt.Sprintf("Found %d Products", n)
	if intent != "" {
		h += fmt.Sprintf(" for %q", strings.ReplaceAll(intent, "_", " "))
	}
	return h
}
