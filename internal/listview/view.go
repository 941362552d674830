package listview

import (
	"fmt"
	"maps"
	"slices"

	"github.com/utafrali/critiqo/pkg/pagination"
)

// View is a consistent snapshot of everything a list view renders.
type View[T any] struct {
	Items         []T               `json:"items" yaml:"items"`
	TotalCount    int               `json:"totalCount" yaml:"totalCount"`
	TotalPages    int               `json:"totalPages" yaml:"totalPages"`
	CurrentPage   int               `json:"currentPage" yaml:"currentPage"`
	ItemsPerPage  int               `json:"itemsPerPage" yaml:"itemsPerPage"`
	Search        string            `json:"search,omitempty" yaml:"search,omitempty"`
	Filters       map[string]string `json:"filters,omitempty" yaml:"filters,omitempty"`
	Window        []pagination.Item `json:"window" yaml:"window"`
	Showing       pagination.Range  `json:"showing" yaml:"showing"`
	CanPrev       bool              `json:"canPrev" yaml:"canPrev"`
	CanNext       bool              `json:"canNext" yaml:"canNext"`
	Loading       bool              `json:"loading" yaml:"loading"`
	Error         string            `json:"error,omitempty" yaml:"error,omitempty"`
	FiltersActive bool              `json:"filtersActive" yaml:"filtersActive"`
	EmptyMessage  string            `json:"emptyMessage,omitempty" yaml:"emptyMessage,omitempty"`
}

// View returns the current render state.
func (c *Controller[T]) View() View[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.state
	loading := c.inflight > 0
	totalPages := c.data.TotalPages
	if totalPages < 1 {
		totalPages = 1
	}

	v := View[T]{
		Items:         slices.Clone(c.data.Items),
		TotalCount:    c.data.TotalCount,
		TotalPages:    totalPages,
		CurrentPage:   s.Page,
		ItemsPerPage:  s.Limit,
		Search:        s.Search,
		Filters:       maps.Clone(s.Filters),
		Window:        pagination.Window(s.Page, totalPages),
		Showing:       pagination.Span(s.Page, s.Limit, c.data.TotalCount),
		CanPrev:       pagination.CanNavigate(s.Page-1, s.Page, totalPages, loading),
		CanNext:       pagination.CanNavigate(s.Page+1, s.Page, totalPages, loading),
		Loading:       loading,
		FiltersActive: s.FiltersActive(),
	}
	if v.Items == nil {
		v.Items = []T{}
	}
	if c.lastErr != nil {
		v.Error = c.lastErr.Error()
	}
	if len(v.Items) == 0 && !loading {
		v.EmptyMessage = emptyMessage(c.opts.Noun, s.SearchTerm())
	}
	return v
}

func emptyMessage(noun, search string) string {
	if search != "" {
		return fmt.Sprintf("No %s found matching %q", noun, search)
	}
	return fmt.Sprintf("No %s found", noun)
}

// ShowingText renders the "Showing X to Y of Z" line.
func (v View[T]) ShowingText(noun string) string {
	if v.Showing.Total == 0 {
		return fmt.Sprintf("Showing 0 %s", noun)
	}
	return fmt.Sprintf("Showing %d to %d of %d %s", v.Showing.From, v.Showing.To, v.Showing.Total, noun)
}
