package query

import (
	"net/url"
	"strconv"
	"sync"
)

// URL parameter names mirrored from State.
const (
	ParamPage   = "page"
	ParamSearch = "search"
	ParamLimit  = "limit"
)

// Navigator reads and replaces the query string of the current location
// without triggering a navigation.
type Navigator interface {
	Query() url.Values
	Replace(values url.Values)
}

// Location is an in-memory Navigator over a URL. It is safe for concurrent use.
type Location struct {
	mu      sync.Mutex
	u       url.URL
	history []string
}

// NewLocation parses raw as the starting location.
func NewLocation(raw string) (*Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &Location{u: *u}, nil
}

// Query returns a copy of the current query parameters.
func (l *Location) Query() url.Values {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.u.Query()
}

// Replace swaps the query string in place and records the result.
func (l *Location) Replace(values url.Values) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.u.RawQuery = values.Encode()
	l.history = append(l.history, l.u.String())
}

// String returns the current URL.
func (l *Location) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.u.String()
}

// RawQuery returns the current encoded query string.
func (l *Location) RawQuery() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.u.RawQuery
}

// History returns every URL written by Replace, oldest first.
func (l *Location) History() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.history))
	copy(out, l.history)
	return out
}

// Hydrate builds the initial State from the navigator's query string. A
// present and valid page, search or limit overrides the default; malformed
// values keep the default. Filter keys named in defaults are read too.
func Hydrate(nav Navigator, defaults State) State {
	values := nav.Query()
	s := defaults
	s.Filters = nil

	if raw := values.Get(ParamPage); raw != "" {
		if p, err := strconv.Atoi(raw); err == nil && p > 0 {
			s.Page = p
		}
	}
	if values.Has(ParamSearch) {
		s.Search = values.Get(ParamSearch)
	}
	if raw := values.Get(ParamLimit); raw != "" {
		if l, err := strconv.Atoi(raw); err == nil && IsAllowedLimit(l) {
			s.Limit = l
		}
	}

	for key, def := range defaults.Filters {
		v := def
		if values.Has(key) {
			v = values.Get(key)
		}
		if v != "" {
			if s.Filters == nil {
				s.Filters = make(map[string]string)
			}
			s.Filters[key] = v
		}
	}
	return s
}

// Canonical returns values rewritten for state: parameters equal to their
// default are removed, others set. Filter keys named in defaults or managed
// are removed when state no longer carries them; other parameters are kept.
func Canonical(values url.Values, state, defaults State, managed ...string) url.Values {
	out := url.Values{}
	for k, v := range values {
		out[k] = append([]string(nil), v...)
	}

	setOrDelete := func(key, value string, isDefault bool) {
		if isDefault || value == "" {
			out.Del(key)
			return
		}
		out.Set(key, value)
	}

	setOrDelete(ParamPage, strconv.Itoa(state.Page), state.Page == defaults.Page)
	setOrDelete(ParamSearch, state.Search, state.Search == defaults.Search)
	setOrDelete(ParamLimit, strconv.Itoa(state.Limit), state.Limit == defaults.Limit)

	for key := range defaults.Filters {
		if _, ok := state.Filters[key]; !ok {
			out.Del(key)
		}
	}
	for _, key := range managed {
		if _, ok := state.Filters[key]; !ok {
			out.Del(key)
		}
	}
	for key, v := range state.Filters {
		setOrDelete(key, v, v == defaults.Filters[key])
	}
	return out
}

// Mirror writes the canonical query string for state to nav. It is a no-op
// when the canonical form is already in place.
func Mirror(nav Navigator, state, defaults State, managed ...string) {
	current := nav.Query()
	next := Canonical(current, state, defaults, managed...)
	if next.Encode() == current.Encode() {
		return
	}
	nav.Replace(next)
}
