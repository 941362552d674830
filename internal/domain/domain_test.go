package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReviewStatus(t *testing.T) {
	tests := []struct {
		raw     string
		want    ReviewStatus
		wantErr bool
	}{
		{"PUBLISHED", ReviewStatusPublished, false},
		{"unpublished", ReviewStatusUnpublished, false},
		{"  Draft ", ReviewStatusDraft, false},
		{"pending", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseReviewStatus(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReview_SetPremium(t *testing.T) {
	r := Review{ID: "r1"}

	r.SetPremium(true)
	assert.True(t, r.IsPremium)
	require.NotNil(t, r.PremiumPrice)
	assert.Equal(t, DefaultPremiumPrice, *r.PremiumPrice)

	r.SetPremium(false)
	assert.False(t, r.IsPremium)
	assert.Nil(t, r.PremiumPrice)
	assert.Zero(t, r.Price())
}

func TestReview_SetPremiumKeepsExistingPrice(t *testing.T) {
	price := 9.5
	r := Review{ID: "r1", PremiumPrice: &price}

	r.SetPremium(true)
	assert.Equal(t, 9.5, r.Price())
}

func TestReview_JSONShape(t *testing.T) {
	raw := `{"id":"r1","title":"Great phone","rating":4,"status":"PUBLISHED","isPremium":true,"premiumPrice":4.99,"votes":3,"createdAt":"2024-05-01T10:00:00Z","updatedAt":"2024-05-02T10:00:00Z"}`

	var r Review
	require.NoError(t, json.Unmarshal([]byte(raw), &r))
	assert.Equal(t, "r1", r.EntityID())
	assert.Equal(t, ReviewStatusPublished, r.Status)
	assert.True(t, r.IsPremium)
	assert.Equal(t, 4.99, r.Price())

	out, err := json.Marshal(Review{ID: "r2"})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"premiumPrice":null`)
}

func TestUser_DisplayNameAndDeletion(t *testing.T) {
	guest := User{ID: "u1", Email: "ann@example.com", Role: RoleGuest, Guest: &Guest{Name: "Ann"}}
	bare := User{ID: "u2", Email: "bob@example.com", Role: RoleGuest}
	admin := User{ID: "u3", Email: "root@example.com", Role: "admin"}

	assert.Equal(t, "Ann", guest.DisplayName())
	assert.Equal(t, "bob@example.com", bare.DisplayName())
	assert.True(t, guest.CanDelete())
	assert.False(t, admin.CanDelete())
}

func TestUser_Matches(t *testing.T) {
	u := User{Email: "Ann.Smith@Example.com", Guest: &Guest{Name: "Ann Smith"}}

	assert.True(t, u.Matches(""))
	assert.True(t, u.Matches("  smith "))
	assert.True(t, u.Matches("EXAMPLE"))
	assert.False(t, u.Matches("bob"))
	assert.True(t, User{Email: "x@y.z"}.Matches("x@"))
}

func TestNewListResult(t *testing.T) {
	res := NewListResult[Review](nil, 12, 0, 10)
	assert.NotNil(t, res.Items)
	assert.Equal(t, 12, res.TotalCount)
	assert.Equal(t, 2, res.TotalPages)
	assert.Equal(t, 1, res.CurrentPage)

	empty := EmptyList[User]()
	assert.Equal(t, 1, empty.TotalPages)
	assert.Zero(t, empty.TotalCount)
}

func TestListResult_CloneIsIndependent(t *testing.T) {
	orig := NewListResult([]Review{{ID: "a"}, {ID: "b"}}, 2, 1, 10)
	c := orig.Clone()
	c.Items[0].Title = "changed"
	assert.Empty(t, orig.Items[0].Title)
}
