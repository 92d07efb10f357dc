package presentation

import (
	"errors"
	"fmt"
)

// Tab panel names.
const (
	TabSearch     = "search"
	TabSpareParts = "spare-parts"
	TabAssistant  = "assistant"
)

// DefaultTab is active before any selection is made.
const DefaultTab = TabSearch

// ErrUnknownTab is returned by Show for a name that is not a panel.
var ErrUnknownTab = errors.New("unknown tab")

// Tab is the view model of one tab control and its panel.
type Tab struct {
	Name   string
	Label  string
	Active bool
}

// PanelID is the DOM id of the tab's panel.
func (t Tab) PanelID() string {
	return t.Name + "-tab"
}

// TabSet tracks which of a fixed set of panels is visible. Exactly one panel
// is active at any time.
type TabSet struct {
	tabs   []Tab
	active int
}

// NewTabSet returns the storefront's tabs with DefaultTab active.
func NewTabSet() *TabSet {
	ts := &TabSet{tabs: []Tab{
		{Name: TabSearch, Label: "Product Search"},
		{Name: TabSpareParts, Label: "Spare Parts"},
		{Name: TabAssistant, Label: "Repair Assistant"},
	}}
	_ = ts.Show(DefaultTab)
	return ts
}

// Show makes name the only visible panel. An unknown name leaves the
// current selection untouched.
func (ts *TabSet) Show(name string) error {
	idx := -1
	for i, t := range ts.tabs {
		if t.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownTab, name)
	}
	for i := range ts.tabs {
		ts.tabs[i].Active = i == idx
	}
	ts.active = idx
	return nil
}

// Active returns the name of the visible panel.
func (ts *TabSet) Active() string {
	return ts.tabs[ts.active].Name
}

// Tabs returns a copy of the tab view models in display order.
func (ts *TabSet) Tabs() []Tab {
	out := make([]Tab, len(ts.tabs))
	copy(out, ts.tabs)
	return out
}

// IsActive reports whether name is the visible panel.
func (ts *TabSet) IsActive(name string) bool {
	return ts.Active() == name
}
