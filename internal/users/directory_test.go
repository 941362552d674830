package users

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/critiqo/internal/apitest"
	"github.com/utafrali/critiqo/internal/domain"
	"github.com/utafrali/critiqo/internal/query"
)

type countingFetcher struct {
	mu    sync.Mutex
	users []domain.User
	calls int
	err   error
}

func (f *countingFetcher) ListUsers(context.Context) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.User{}, f.users...), nil
}

func (f *countingFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestDirectory_FetchesOnceAndPagesLocally(t *testing.T) {
	f := &countingFetcher{users: apitest.Users(12)}
	d := NewDirectory(f, nil)

	res, err := d.Load(context.Background(), query.Defaults(5))
	require.NoError(t, err)
	assert.Equal(t, 13, res.TotalCount)
	assert.Equal(t, 3, res.TotalPages)
	assert.Len(t, res.Items, 5)
	assert.Equal(t, "user-01", res.Items[0].ID)

	res, err = d.Load(context.Background(), query.Defaults(5).WithPage(3))
	require.NoError(t, err)
	require.Len(t, res.Items, 3)
	assert.Equal(t, "admin-01", res.Items[2].ID)
	assert.Equal(t, 3, res.CurrentPage)

	assert.Equal(t, 1, f.count())
}

func TestDirectory_InitialUsersSkipFetch(t *testing.T) {
	f := &countingFetcher{users: apitest.Users(30)}
	d := NewDirectory(f, apitest.Users(2))

	res, err := d.Load(context.Background(), query.Defaults(10))
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalCount)
	assert.Zero(t, f.count())

	d.Invalidate()
	res, err = d.Load(context.Background(), query.Defaults(10))
	require.NoError(t, err)
	assert.Equal(t, 31, res.TotalCount)
	assert.Equal(t, 1, f.count())
}

func TestDirectory_SearchMatchesGuestNameOrEmail(t *testing.T) {
	d := NewDirectory(&countingFetcher{}, apitest.Users(12))

	tests := []struct {
		term string
		want int
	}{
		{"guest 1", 3},
		{"GUEST07@EXAMPLE", 1},
		{"  admin@ ", 1},
		{"nobody", 0},
		{"", 13},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			res, err := d.Load(context.Background(), query.Defaults(100).WithSearch(tt.term))
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.TotalCount)
			assert.Equal(t, 1, res.TotalPages)
		})
	}
}

func TestDirectory_RoleAndStatusFilters(t *testing.T) {
	users := apitest.Users(4)
	users[1].Status = domain.UserStatusSuspended
	d := NewDirectory(&countingFetcher{}, users)

	res, err := d.Load(context.Background(), query.Defaults(10).WithFilter(FilterRole, "admin"))
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "admin-01", res.Items[0].ID)

	res, err = d.Load(context.Background(), query.Defaults(10).WithFilter(FilterStatus, "SUSPENDED"))
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "user-02", res.Items[0].ID)
}

func TestDirectory_FetchErrorPropagates(t *testing.T) {
	boom := errors.New("portal down")
	d := NewDirectory(&countingFetcher{err: boom}, nil)

	_, err := d.Load(context.Background(), query.Defaults(10))
	require.ErrorIs(t, err, boom)
}

func TestDirectory_Forget(t *testing.T) {
	d := NewDirectory(&countingFetcher{}, apitest.Users(3))
	before := d.All()

	assert.True(t, d.Forget("user-02"))
	assert.False(t, d.Forget("user-02"))
	assert.Len(t, d.All(), 3)
	assert.Len(t, before, 4, "earlier snapshots are not modified")
}

func TestDirectory_PageOf(t *testing.T) {
	d := NewDirectory(&countingFetcher{}, apitest.Users(12))

	page, ok := d.PageOf("user-07", query.Defaults(5))
	require.True(t, ok)
	assert.Equal(t, 2, page)

	page, ok = d.PageOf("admin-01", query.Defaults(5))
	require.True(t, ok)
	assert.Equal(t, 3, page)

	page, ok = d.PageOf("user-11", query.Defaults(5).WithSearch("guest 1"))
	require.True(t, ok)
	assert.Equal(t, 1, page)

	_, ok = d.PageOf("admin-01", query.Defaults(5).WithFilter(FilterRole, "GUEST"))
	assert.False(t, ok)

	_, ok = d.PageOf("user-99", query.Defaults(5))
	assert.False(t, ok)
}
