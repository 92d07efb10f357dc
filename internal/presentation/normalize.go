package presentation

import (
	"encoding/json"
	"fmt"
	"html/template"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/searchiq/storefront/internal/domain/entities"
)

// RevealStep is the extra reveal delay of each successive card.
const RevealStep = 50 * time.Millisecond

// Filler ratings are drawn from [fillerRatingMin, fillerRatingMin+fillerRatingSpan).
const (
	fillerRatingMin  = 3.5
	fillerRatingSpan = 1.5
)

// aliasTable lists, per display field, the raw keys tried in priority order
// and the default used when none carries a usable value.
type aliasTable struct {
	title           []string
	titleDefault    string
	brand           []string
	category        []string
	categoryDefault string
	price           []string
	rating          []string
	// fixedRating is used when no rating alias resolves; zero means a
	// presentation-only filler is drawn instead.
	fixedRating float64
}

var aliasTables = map[entities.ResultKind]aliasTable{
	entities.ResultKindProduct: {
		title:           []string{"name", "product_name", "title"},
		titleDefault:    "Product Name",
		brand:           []string{"brand"},
		category:        []string{"category", "product_category_tree"},
		categoryDefault: "General",
		price:           []string{"price", "discounted_price"},
		rating:          []string{"rating", "product_rating"},
	},
	entities.ResultKindSparePart: {
		title:           []string{"part_name", "name"},
		titleDefault:    "Spare Part",
		brand:           []string{"brand"},
		category:        []string{"category"},
		categoryDefault: "Spare Parts",
		price:           []string{"price"},
		rating:          []string{"rating"},
	},
	entities.ResultKindRecommendation: {
		title:           []string{"part_name", "name"},
		titleDefault:    "Spare Part",
		brand:           []string{"brand"},
		category:        []string{"category"},
		categoryDefault: "Spare Parts",
		price:           []string{"price"},
		rating:          []string{"rating"},
		fixedRating:     4.0,
	},
}

// Normalize maps one result item to its display card. index is zero-based.
func (r *Renderer) Normalize(item entities.ResultItem, index int) entities.DisplayCard {
	raw := item.Fields()
	table, ok := aliasTables[item.Kind()]
	if !ok {
		table = aliasTables[entities.ResultKindProduct]
	}

	card := entities.DisplayCard{
		Kind:        item.Kind(),
		Index:       index,
		Title:       stringField(raw, table.title, table.titleDefault),
		Brand:       stringField(raw, table.brand, "Generic"),
		Category:    stringField(raw, table.category, table.categoryDefault),
		Price:       numberField(raw, table.price),
		RevealDelay: time.Duration(index) * RevealStep,
	}

	rating := numberField(raw, table.rating)
	switch {
	case rating > 0:
	case table.fixedRating > 0:
		rating = table.fixedRating
	default:
		rating = fillerRatingMin + r.rand()*fillerRatingSpan
		card.RatingIsFiller = true
	}
	card.Rating = math.Min(5, math.Max(1, rating))
	card.RatingLabel = strconv.FormatFloat(card.Rating, 'f', 1, 64)

	card.PriceLabel = r.priceLabel(card.Price)
	if desc := stringField(raw, []string{"description"}, ""); desc != "" {
		card.Description = template.HTML(r.sanitizer.Sanitize(desc))
	}

	switch item.Kind() {
	case entities.ResultKindProduct:
		r.decorateProduct(&card, raw)
	case entities.ResultKindSparePart:
		decorateSparePart(&card, raw)
	case entities.ResultKindRecommendation:
		decorateRecommendation(&card, raw)
	}
	return card
}

func (r *Renderer) decorateProduct(card *entities.DisplayCard, raw map[string]interface{}) {
	card.ActionArg = card.Title
	card.ImageURL = stringField(raw, []string{"image_url", "image"}, "")
	if card.ImageURL == "" || card.ImageURL == "null" {
		card.ImageURL = fmt.Sprintf("https://source.unsplash.com/400x400/?%s&sig=%d",
			imageSearchTerm(card.Category), (len(card.Title)*7)%100)
	}

	if card.Price > 0 {
		original := math.Round(card.Price * 1.3)
		discount := math.Round((original - card.Price) / original * 100)
		if discount > 5 {
			card.OriginalPriceLabel = r.priceLabel(original)
			card.DiscountLabel = fmt.Sprintf("%.0f%% off", discount)
		}
	}
}

func decorateSparePart(card *entities.DisplayCard, raw map[string]interface{}) {
	card.PartNumber = stringField(raw, []string{"part_number"}, "N/A")
	card.ActionArg = card.PartNumber
	card.Availability = stringField(raw, []string{"availability"}, "Check Availability")
	card.AvailabilityClass = availabilityClass(card.Availability)
	card.OutOfStock = card.Availability == "Out of Stock"
	card.Compatibility = fmt.Sprintf("%.0f%%", math.Round(numberField(raw, []string{"compatibility_score"})*100))
	card.ImageURL = stringField(raw, []string{"image_url"}, "")
	if card.ImageURL == "" {
		card.ImageURL = fmt.Sprintf("https://source.unsplash.com/300x300/?electronics,parts&sig=%d", card.Index)
	}
}

func decorateRecommendation(card *entities.DisplayCard, raw map[string]interface{}) {
	card.PartNumber = stringField(raw, []string{"part_number"}, "N/A")
	card.ActionArg = card.PartNumber
	card.Availability = stringField(raw, []string{"availability"}, "Check Availability")
	card.AvailabilityClass = availabilityClass(card.Availability)
	card.OutOfStock = card.Availability == "Out of Stock"

	score := numberField(raw, []string{"relevance_score"})
	if score == 0 {
		score = 0.8
	}
	switch {
	case score >= 0.8:
		card.ConfidenceText, card.ConfidenceClass = "Perfect Match", "confidence-high"
	case score >= 0.6:
		card.ConfidenceText, card.ConfidenceClass = "Good Match", "confidence-medium"
	default:
		card.ConfidenceText, card.ConfidenceClass = "Fair Match", "confidence-low"
	}

	card.Delivery = stringField(raw, []string{"estimated_delivery"}, "3-5 days")
	card.MatchReason = stringField(raw, []string{"match_reason"}, "Compatible with your device")
	card.Warranty = stringField(raw, []string{"warranty"}, "")
	card.ImageURL = stringField(raw, []string{"image_url"}, "")
	if card.ImageURL == "" {
		card.ImageURL = "https://via.placeholder.com/300x200?text=" + url.QueryEscape(card.Title)
	}
}

func availabilityClass(availability string) string {
	switch availability {
	case "In Stock":
		return "available"
	case "Limited Stock":
		return "limited"
	case "Out of Stock":
		return "unavailable"
	default:
		return "unknown"
	}
}

func imageSearchTerm(category string) string {
	c := strings.ToLower(category)
	switch {
	case strings.Contains(c, "fitness"):
		return "fitness,equipment"
	case strings.Contains(c, "mobile"), strings.Contains(c, "phone"):
		return "smartphone,technology"
	case strings.Contains(c, "laptop"), strings.Contains(c, "computer"):
		return "laptop,computer"
	case strings.Contains(c, "headphone"), strings.Contains(c, "audio"):
		return "headphones,audio"
	case strings.Contains(c, "kitchen"):
		return "kitchen,appliances"
	default:
		return "product,shopping"
	}
}

// stringField returns the first alias holding a non-empty value, verbatim.
// Numbers are accepted and printed in their shortest form.
func stringField(raw map[string]interface{}, keys []string, def string) string {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			if v != 0 {
				return strconv.FormatFloat(v, 'f', -1, 64)
			}
		case int:
			if v != 0 {
				return strconv.Itoa(v)
			}
		case json.Number:
			if v != "" && v != "0" {
				return v.String()
			}
		case bool:
			if v {
				return "true"
			}
		}
	}
	return def
}

// numberField returns the first alias holding a non-zero number. Numeric
// strings are parsed; anything else is skipped.
func numberField(raw map[string]interface{}, keys []string) float64 {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case float64:
			if v != 0 && !math.IsNaN(v) && !math.IsInf(v, 0) {
				return v
			}
		case int:
			if v != 0 {
				return float64(v)
			}
		case json.Number:
			if f, err := v.Float64(); err == nil && f != 0 {
				return f
			}
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err == nil && f != 0 && !math.IsNaN(f) && !math.IsInf(f, 0) {
				return f
			}
		}
	}
	return 0
}
