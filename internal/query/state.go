package query

import (
	"maps"
	"net/url"
	"strconv"
	"strings"

	"github.com/utafrali/critiqo/pkg/validator"
)

// AllowedLimits are the page sizes a list view offers.
var AllowedLimits = []int{5, 10, 25, 50, 100}

// DefaultLimit is the page size used when none is configured.
const DefaultLimit = 10

// State is the query a list view is currently showing. Values are treated as
// immutable: every mutator returns a modified copy.
type State struct {
	Search  string            `json:"search"`
	Page    int               `json:"page" validate:"gte=1"`
	Limit   int               `json:"limit" validate:"oneof=5 10 25 50 100"`
	Filters map[string]string `json:"filters,omitempty"`
}

// Defaults returns page 1 with the given page size and no search or filters.
func Defaults(limit int) State {
	if !IsAllowedLimit(limit) {
		limit = DefaultLimit
	}
	return State{Page: 1, Limit: limit}
}

// IsAllowedLimit reports whether limit is one of AllowedLimits.
func IsAllowedLimit(limit int) bool {
	for _, l := range AllowedLimits {
		if l == limit {
			return true
		}
	}
	return false
}

// Validate checks page and limit bounds.
func (s State) Validate() error {
	return validator.Validate(s)
}

// WithSearch sets the search term and returns to the first page.
func (s State) WithSearch(term string) State {
	s.Filters = maps.Clone(s.Filters)
	s.Search = term
	s.Page = 1
	return s
}

// WithPage sets the current page. Values below 1 become 1.
func (s State) WithPage(page int) State {
	s.Filters = maps.Clone(s.Filters)
	if page < 1 {
		page = 1
	}
	s.Page = page
	return s
}

// WithLimit sets the page size and always resets to the first page.
func (s State) WithLimit(limit int) State {
	s.Filters = maps.Clone(s.Filters)
	s.Limit = limit
	s.Page = 1
	return s
}

// WithFilter sets (or, for an empty value, removes) one extra filter and
// returns to the first page.
func (s State) WithFilter(key, value string) State {
	filters := maps.Clone(s.Filters)
	if filters == nil {
		filters = make(map[string]string)
	}
	if value == "" {
		delete(filters, key)
	} else {
		filters[key] = value
	}
	if len(filters) == 0 {
		filters = nil
	}
	s.Filters = filters
	s.Page = 1
	return s
}

// WithoutFilters drops every extra filter and returns to the first page.
func (s State) WithoutFilters() State {
	s.Filters = nil
	s.Page = 1
	return s
}

// Reset returns defaults: no search, no filters, first page, default size.
func (s State) Reset(defaults State) State {
	defaults.Filters = nil
	defaults.Page = 1
	defaults.Search = ""
	return defaults
}

// SearchTerm is the search with surrounding whitespace removed.
func (s State) SearchTerm() string {
	return strings.TrimSpace(s.Search)
}

// FiltersActive reports whether a search or any extra filter is applied.
func (s State) FiltersActive() bool {
	if s.SearchTerm() != "" {
		return true
	}
	for _, v := range s.Filters {
		if v != "" {
			return true
		}
	}
	return false
}

// Equal reports whether two states describe the same request. Empty and nil
// filter maps are equal.
func (s State) Equal(o State) bool {
	if s.Search != o.Search || s.Page != o.Page || s.Limit != o.Limit {
		return false
	}
	if len(s.Filters) != len(o.Filters) {
		return false
	}
	return maps.Equal(s.Filters, o.Filters)
}

// ResultKey identifies the result set a state selects regardless of page:
// the trimmed search, the page size and the non-empty filters, URL-encoded
// in key order.
func (s State) ResultKey() string {
	v := url.Values{}
	v.Set("limit", strconv.Itoa(s.Limit))
	if term := s.SearchTerm(); term != "" {
		v.Set("search", term)
	}
	for k, val := range s.Filters {
		if val != "" {
			v.Set("filter."+k, val)
		}
	}
	return v.Encode()
}
