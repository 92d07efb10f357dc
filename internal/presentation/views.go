package presentation

import (
	"github.com/searchiq/storefront/internal/domain/entities"
)

// Brands offered in the spare-parts brand selector.
var Brands = []string{"Apple", "Samsung", "OnePlus", "Xiaomi", "Google", "HP", "Dell", "Lenovo"}

// ExampleQueries are offered as one-click searches.
var ExampleQueries = []string{"wireless mouse", "running shoes for men", "bluetooth headphones under 2000", "gaming laptop"}

// IssueExamples fill the spare-parts issue description.
var IssueExamples = []string{"Screen cracked", "Battery drains quickly", "Not charging", "Speaker not working"}

// QuickProblem is a canned assistant problem.
type QuickProblem struct {
	Icon  string
	Label string
}

// QuickProblems fill and submit the assistant form.
var QuickProblems = []QuickProblem{
	{Icon: "🔋", Label: "Battery not charging"},
	{Icon: "📱", Label: "Screen cracked"},
	{Icon: "📷", Label: "Camera not working"},
	{Icon: "🔊", Label: "No sound"},
	{Icon: "❄️", Label: "AC not cooling"},
	{Icon: "📺", Label: "Remote not working"},
}

// PageData is shared by every full page.
type PageData struct {
	Page   string
	Title  string
	Toasts []entities.Notification
}

// AuthPageData backs the login and signup pages.
type AuthPageData struct {
	PageData
	Form        map[string]string
	FieldErrors entities.FieldErrors
}

// HomePageData backs the tabbed main page.
type HomePageData struct {
	PageData
	User        *entities.User
	Tabs        []Tab
	RecentQuery string
	DebounceMs  int
	Brands      []string

	ExampleQueries []string
	IssueExamples  []string
	QuickProblems  []QuickProblem
}

// Placeholder is the empty-state text of a result container of kind.
func (h HomePageData) Placeholder(kind entities.ResultKind) string {
	return placeholders[kind]
}

// Panel returns the tab named name; an unknown name yields an inactive tab.
func (h HomePageData) Panel(name string) Tab {
	for _, t := range h.Tabs {
		if t.Name == name {
			return t
		}
	}
	return Tab{Name: name}
}
