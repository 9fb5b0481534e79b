// Package board projects the selected project into kanban columns.
// It holds a reference to one project snapshot plus a derived filtered view that is
// recomputed synchronously whenever the project, search text or filter changes.
package board

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/h0rv/kanbanbar/internal/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Filter narrows the item list by the viewer's relationship to an item.
type Filter int

const (
	FilterAll Filter = iota
	// The remaining filters are accepted but do not narrow the list yet.
	FilterAssignedToMe
	FilterCreatedByMe
	FilterMentioned
)

var filterNames = map[Filter]string{
	FilterAll:          "all",
	FilterAssignedToMe: "assigned",
	FilterCreatedByMe:  "created",
	FilterMentioned:    "mentioned",
}

func (f Filter) String() string {
	if name, ok := filterNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Filter(%d)", int(f))
}

// Label returns a display label for the filter.
func (f Filter) Label() string {
	switch f {
	case FilterAssignedToMe:
		return "Assigned to me"
	case FilterCreatedByMe:
		return "Created by me"
	case FilterMentioned:
		return "Mentioned"
	default:
		return "All"
	}
}

// Filters lists every filter in display order.
func Filters() []Filter {
	return []Filter{FilterAll, FilterAssignedToMe, FilterCreatedByMe, FilterMentioned}
}

// ParseFilter parses a filter name as produced by Filter.String.
func ParseFilter(s string) (Filter, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FilterAll, nil
	}
	for f, name := range filterNames {
		if name == s {
			return f, nil
		}
	}
	return FilterAll, fmt.Errorf("unknown filter %q (want all, assigned, created or mentioned)", s)
}

// Column is one lane of the board.
type Column struct {
	Name  string
	Color string
	Items []domain.Item
}

// Columns returns the project's Status options sorted by name ascending.
// A project without a Status field, or with no options, has no columns.
func Columns(p *domain.Project) []domain.Option {
	status := p.Field(domain.FieldStatus)
	if status == nil {
		return []domain.Option{}
	}

	cols := make([]domain.Option, len(status.Options))
	copy(cols, status.Options)
	sort.SliceStable(cols, func(i, j int) bool {
		return cols[i].Name < cols[j].Name
	})
	return cols
}

// FilterItems returns the items whose content title contains search, ignoring case.
// An empty search keeps every item, including items without content; a non-empty
// search drops items without content. The result never aliases items.
func FilterItems(items []domain.Item, search string, filter Filter) []domain.Item {
	out := make([]domain.Item, 0, len(items))

	needle := fold(search)
	for _, it := range items {
		if search != "" {
			if it.Content == nil || !strings.Contains(fold(it.Content.Title), needle) {
				continue
			}
		}
		if !filter.keeps(it) {
			continue
		}
		out = append(out, it)
	}
	return out
}

// keeps reports whether the filter admits the item.
func (f Filter) keeps(domain.Item) bool {
	// Only FilterAll is implemented; the others admit everything.
	return true
}

// fold normalizes s for case-insensitive comparison.
func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// Board is the projection of one selected project. It is safe for concurrent use.
type Board struct {
	mu       sync.RWMutex
	project  *domain.Project
	search   string
	filter   Filter
	filtered []domain.Item
}

// New returns an empty board.
func New() *Board {
	return &Board{filtered: []domain.Item{}}
}

// SetProject selects p (nil clears the selection) and recomputes the filtered view.
func (b *Board) SetProject(p *domain.Project) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.project = p
	b.recompute()
}

// ReplaceProject installs next only if the board still shows expected.
// It reports whether the swap happened.
func (b *Board) ReplaceProject(expected, next *domain.Project) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.project != expected {
		return false
	}
	b.project = next
	b.recompute()
	return true
}

// Project returns the selected project, or nil.
func (b *Board) Project() *domain.Project {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.project
}

// SetSearch sets the search text and recomputes the filtered view.
func (b *Board) SetSearch(search string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.search = search
	b.recompute()
}

// Search returns the search text.
func (b *Board) Search() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.search
}

// SetFilter sets the filter and recomputes the filtered view.
func (b *Board) SetFilter(f Filter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filter = f
	b.recompute()
}

// Filter returns the active filter.
func (b *Board) Filter() Filter {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.filter
}

// FilteredItems returns the filtered item list.
func (b *Board) FilteredItems() []domain.Item {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.Item, len(b.filtered))
	copy(out, b.filtered)
	return out
}

// Columns returns the selected project's columns.
func (b *Board) Columns() []domain.Option {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Columns(b.project)
}

// Items returns the filtered items whose status equals column.
// Items whose status matches no column appear in no column.
func (b *Board) Items(column string) []domain.Item {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return itemsIn(b.filtered, column)
}

// Snapshot returns every column with its items, in column order.
func (b *Board) Snapshot() []Column {
	b.mu.RLock()
	defer b.mu.RUnlock()

	opts := Columns(b.project)
	cols := make([]Column, 0, len(opts))
	for _, opt := range opts {
		cols = append(cols, Column{Name: opt.Name, Color: opt.Color, Items: itemsIn(b.filtered, opt.Name)})
	}
	return cols
}

func itemsIn(items []domain.Item, column string) []domain.Item {
	out := []domain.Item{}
	for i := range items {
		if items[i].Status() == column {
			out = append(out, items[i])
		}
	}
	return out
}

// recompute must be called with mu held.
func (b *Board) recompute() {
	if b.project == nil {
		b.filtered = []domain.Item{}
		return
	}
	b.filtered = FilterItems(b.project.Items, b.search, b.filter)
}
