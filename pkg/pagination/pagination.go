package pagination

import (
	"net/http"
	"strconv"
)

// Ellipsis is the marker shown for collapsed page ranges.
const Ellipsis = "…"

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page   int `json:"page"`
	Limit  int `json:"limit"`
	Offset int `json:"-"`
}

// DefaultParams returns the portal's pagination defaults.
func DefaultParams() Params {
	return Params{
		Page:   1,
		Limit:  10,
		Offset: 0,
	}
}

// FromRequest extracts page/limit from an HTTP request.
func FromRequest(r *http.Request) Params {
	p := DefaultParams()

	if page := r.URL.Query().Get("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 0 {
			p.Page = v
		}
	}

	if limit := r.URL.Query().Get("limit"); limit != "" {
		if v, err := strconv.Atoi(limit); err == nil && v > 0 && v <= 100 {
			p.Limit = v
		}
	}

	p.Offset = (p.Page - 1) * p.Limit
	return p
}

// Item is one entry of a page window: a page number or an ellipsis.
type Item struct {
	Page     int  `json:"page,omitempty" yaml:"page,omitempty"`
	Ellipsis bool `json:"ellipsis,omitempty" yaml:"ellipsis,omitempty"`
}

func (i Item) String() string {
	if i.Ellipsis {
		return Ellipsis
	}
	return strconv.Itoa(i.Page)
}

func pages(nums ...int) []Item {
	out := make([]Item, 0, len(nums))
	for _, n := range nums {
		if n == 0 {
			out = append(out, Item{Ellipsis: true})
			continue
		}
		out = append(out, Item{Page: n})
	}
	return out
}

// Window returns the page buttons to render for current out of total pages.
// Up to five pages are listed in full; beyond that the first and last page
// stay visible and the rest collapse around the current page.
func Window(current, total int) []Item {
	if total < 1 {
		total = 1
	}
	current = Clamp(current, total)

	switch {
	case total <= 5:
		out := make([]Item, 0, total)
		for p := 1; p <= total; p++ {
			out = append(out, Item{Page: p})
		}
		return out
	case current <= 3:
		return pages(1, 2, 3, 4, 0, total)
	case current >= total-2:
		return pages(1, 0, total-3, total-2, total-1, total)
	default:
		return pages(1, 0, current-1, current, current+1, 0, total)
	}
}

// TotalPages is ceil(count/perPage), never less than 1.
func TotalPages(count, perPage int) int {
	if perPage <= 0 || count <= 0 {
		return 1
	}
	n := count / perPage
	if count%perPage > 0 {
		n++
	}
	return n
}

// Clamp bounds page to [1, totalPages].
func Clamp(page, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// CanNavigate reports whether moving from current to target is allowed.
func CanNavigate(target, current, totalPages int, loading bool) bool {
	if loading || target == current {
		return false
	}
	return target >= 1 && target <= totalPages
}

// Range is the 1-based inclusive span of items shown on a page.
type Range struct {
	From  int `json:"from" yaml:"from"`
	To    int `json:"to" yaml:"to"`
	Total int `json:"total" yaml:"total"`
}

// Span computes the "Showing From to To of Total" range. An empty result
// yields From=0, To=0.
func Span(page, perPage, total int) Range {
	if total <= 0 || perPage <= 0 {
		return Range{}
	}
	from := (page-1)*perPage + 1
	if from > total {
		return Range{Total: total}
	}
	to := page * perPage
	if to > total {
		to = total
	}
	return Range{From: from, To: to, Total: total}
}

// Slice returns the page-th chunk of items for local paging.
func Slice[T any](items []T, page, perPage int) []T {
	if perPage <= 0 || page < 1 {
		return nil
	}
	start := (page - 1) * perPage
	if start >= len(items) {
		return []T{}
	}
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}
	out := make([]T, end-start)
	copy(out, items[start:end])
	return out
}
