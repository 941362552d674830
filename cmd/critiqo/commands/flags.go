package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/utafrali/critiqo/internal/query"
)

// listFlags select the page a list view opens on.
type listFlags struct {
	page    int
	limit   int
	search  string
	filters []string
	url     string
}

func (f *listFlags) register(cmd *cobra.Command, withFilters bool) {
	cmd.Flags().IntVar(&f.page, "page", 1, "Page to show")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "Items per page: 5, 10, 25, 50 or 100 (default from CRITIQO_DEFAULT_LIMIT)")
	cmd.Flags().StringVar(&f.search, "search", "", "Search term")
	cmd.Flags().StringVar(&f.url, "url", "", "Admin panel URL to read page, limit, search and filters from")
	if withFilters {
		cmd.Flags().StringArrayVar(&f.filters, "filter", nil, "Extra filter as key=value, may be repeated")
	}
}

// location builds the navigator for a view: the --url location with every
// explicitly set flag written over its query string. extra holds filters of
// dedicated flags; their keys are always hydrated, and non-empty values win
// over the URL. The returned keys are every filter key the view reads.
func (f *listFlags) location(cmd *cobra.Command, path string, extra map[string]string) (*query.Location, []string, error) {
	raw := f.url
	if raw == "" {
		raw = "critiqo://admin" + path
	}
	loc, err := query.NewLocation(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("parse --url: %w", err)
	}

	values := loc.Query()
	changed := false
	set := func(key, value string) {
		values.Set(key, value)
		changed = true
	}
	if cmd.Flags().Changed("page") {
		set(query.ParamPage, strconv.Itoa(f.page))
	}
	if cmd.Flags().Changed("limit") {
		if !query.IsAllowedLimit(f.limit) {
			return nil, nil, fmt.Errorf("--limit must be one of %v", query.AllowedLimits)
		}
		set(query.ParamLimit, strconv.Itoa(f.limit))
	}
	if cmd.Flags().Changed("search") {
		set(query.ParamSearch, f.search)
	}

	var keys []string
	for _, kv := range f.filters {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, nil, fmt.Errorf("--filter %q: want key=value", kv)
		}
		if isReservedParam(key) {
			return nil, nil, fmt.Errorf("--filter %q: %s is set by its own flag", kv, key)
		}
		set(key, value)
		keys = append(keys, key)
	}
	for key, value := range extra {
		if value != "" {
			set(key, value)
		}
		keys = append(keys, key)
	}
	if changed {
		loc.Replace(values)
	}
	return loc, keys, nil
}

func isReservedParam(key string) bool {
	switch key {
	case query.ParamPage, query.ParamLimit, query.ParamSearch, "status", "title":
		return true
	}
	return false
}
