package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/critiqo/pkg/validator"
)

func TestDefaults(t *testing.T) {
	assert.Equal(t, State{Page: 1, Limit: 25}, Defaults(25))
	assert.Equal(t, State{Page: 1, Limit: DefaultLimit}, Defaults(7))
}

func TestWithLimit_ResetsPage(t *testing.T) {
	s := State{Page: 4, Limit: 10, Search: "phone"}
	got := s.WithLimit(25)

	assert.Equal(t, 1, got.Page)
	assert.Equal(t, 25, got.Limit)
	assert.Equal(t, "phone", got.Search)
	assert.Equal(t, 4, s.Page, "receiver must not change")
}

func TestWithSearch_ResetsPage(t *testing.T) {
	got := State{Page: 3, Limit: 10}.WithSearch("camera")
	assert.Equal(t, 1, got.Page)
	assert.Equal(t, "camera", got.Search)
}

func TestWithPage_FloorsAtOne(t *testing.T) {
	assert.Equal(t, 1, State{Page: 2}.WithPage(-3).Page)
	assert.Equal(t, 7, State{Page: 2}.WithPage(7).Page)
}

func TestWithFilter(t *testing.T) {
	base := State{Page: 2, Limit: 10}
	s := base.WithFilter("category", "tech")

	assert.Equal(t, map[string]string{"category": "tech"}, s.Filters)
	assert.Equal(t, 1, s.Page)
	assert.Nil(t, base.Filters)

	s2 := s.WithFilter("rating", "5")
	assert.Len(t, s.Filters, 1, "copy-on-write")
	assert.Len(t, s2.Filters, 2)

	cleared := s2.WithFilter("category", "").WithFilter("rating", "")
	assert.Nil(t, cleared.Filters)
}

func TestResetAndFiltersActive(t *testing.T) {
	defaults := Defaults(10)
	s := State{Search: "x", Page: 3, Limit: 50, Filters: map[string]string{"a": "b"}}

	assert.True(t, s.FiltersActive())
	reset := s.Reset(defaults)
	assert.Equal(t, defaults, reset)
	assert.False(t, reset.FiltersActive())
	assert.False(t, State{Search: "   "}.FiltersActive())
	assert.True(t, State{Filters: map[string]string{"a": "1"}}.FiltersActive())
}

func TestEqual(t *testing.T) {
	a := State{Search: "x", Page: 1, Limit: 10}
	b := State{Search: "x", Page: 1, Limit: 10, Filters: map[string]string{}}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(a.WithPage(2)))
	assert.False(t, a.Equal(a.WithFilter("k", "v")))
	assert.True(t, a.WithFilter("k", "v").Equal(b.WithFilter("k", "v")))
}

func TestResultKey_IgnoresPageAndEmptyFilters(t *testing.T) {
	base := Defaults(10).WithSearch(" camera ").WithFilter("category", "food")

	assert.Equal(t, "filter.category=food&limit=10&search=camera", base.ResultKey())
	assert.Equal(t, base.ResultKey(), base.WithPage(3).ResultKey())
	assert.Equal(t, base.ResultKey(), base.WithFilter("rating", "").ResultKey())
	assert.NotEqual(t, base.ResultKey(), base.WithSearch("lens").ResultKey())
	assert.NotEqual(t, base.ResultKey(), base.WithLimit(25).ResultKey())
	assert.Equal(t, "limit=10", Defaults(10).ResultKey())
}

func TestValidate(t *testing.T) {
	require.NoError(t, Defaults(10).Validate())

	err := State{Page: 0, Limit: 7}.Validate()
	require.Error(t, err)

	var ve *validator.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields(), "Page")
	assert.Contains(t, ve.Fields(), "Limit")
}
