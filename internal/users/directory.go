// Package users serves the user-management table: a client-side paged view
// over the full user collection and the confirmed deletion flow.
package users

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/utafrali/critiqo/internal/domain"
	"github.com/utafrali/critiqo/internal/listview"
	"github.com/utafrali/critiqo/internal/query"
	"github.com/utafrali/critiqo/pkg/pagination"
)

// Filter keys understood by the directory.
const (
	FilterRole   = "role"
	FilterStatus = "status"
)

// UserFetcher returns every user. GET /users is not paginated.
type UserFetcher interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
}

// Directory holds the full user collection and pages it locally. It
// implements listview.Loader[domain.User].
type Directory struct {
	fetcher UserFetcher

	mu     sync.Mutex
	users  []domain.User
	loaded bool
}

var _ listview.Loader[domain.User] = (*Directory)(nil)

// NewDirectory creates a directory. A non-empty initial collection is used
// as-is and nothing is fetched until Invalidate.
func NewDirectory(fetcher UserFetcher, initial []domain.User) *Directory {
	d := &Directory{fetcher: fetcher}
	if len(initial) > 0 {
		d.users = slices.Clone(initial)
		d.loaded = true
	}
	return d
}

// Load filters the collection by search term (guest name or email) and the
// role/status filters, then returns the requested page.
func (d *Directory) Load(ctx context.Context, q query.State) (domain.ListResult[domain.User], error) {
	all, err := d.ensure(ctx)
	if err != nil {
		return domain.ListResult[domain.User]{}, err
	}
	matched := filter(all, q)
	return domain.NewListResult(pagination.Slice(matched, q.Page, q.Limit), len(matched), q.Page, q.Limit), nil
}

// PageOf returns the page of q holding the user with id, from the
// collection already loaded.
func (d *Directory) PageOf(id string, q query.State) (int, bool) {
	d.mu.Lock()
	all := d.users
	d.mu.Unlock()

	i := slices.IndexFunc(filter(all, q), func(u domain.User) bool { return u.ID == id })
	if i < 0 || q.Limit <= 0 {
		return 0, false
	}
	return i/q.Limit + 1, true
}

func filter(all []domain.User, q query.State) []domain.User {
	term := q.SearchTerm()
	role := strings.TrimSpace(q.Filters[FilterRole])
	status := strings.TrimSpace(q.Filters[FilterStatus])

	matched := make([]domain.User, 0, len(all))
	for _, u := range all {
		if term != "" && !u.Matches(term) {
			continue
		}
		if role != "" && !strings.EqualFold(string(u.Role), role) {
			continue
		}
		if status != "" && !strings.EqualFold(string(u.Status), status) {
			continue
		}
		matched = append(matched, u)
	}
	return matched
}

func (d *Directory) ensure(ctx context.Context) ([]domain.User, error) {
	d.mu.Lock()
	if d.loaded {
		users := d.users
		d.mu.Unlock()
		return users, nil
	}
	d.mu.Unlock()

	users, err := d.fetcher.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.users = slices.Clone(users)
	d.loaded = true
	return d.users, nil
}

// Invalidate makes the next Load refetch the collection.
func (d *Directory) Invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loaded = false
}

// Reload refetches the collection and reloads view.
func (d *Directory) Reload(ctx context.Context, view *listview.Controller[domain.User]) error {
	d.Invalidate()
	return view.Refresh(ctx)
}

// Forget drops a deleted user from the collection.
func (d *Directory) Forget(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := slices.IndexFunc(d.users, func(u domain.User) bool { return u.ID == id })
	if i < 0 {
		return false
	}
	d.users = slices.Delete(slices.Clone(d.users), i, i+1)
	return true
}

// All returns a copy of the collection.
func (d *Directory) All() []domain.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.users)
}
