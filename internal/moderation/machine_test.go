package moderation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/critiqo/internal/domain"
)

func price(v float64) *float64 { return &v }

func TestPartition(t *testing.T) {
	unpub := PartitionOf(domain.ReviewStatusUnpublished)
	assert.True(t, unpub.Contains(domain.ReviewStatusUnpublished))
	assert.False(t, unpub.Contains(domain.ReviewStatusPublished))
	assert.Equal(t, "unpublished", unpub.Name())

	var all Partition
	for _, s := range domain.ReviewStatuses {
		assert.True(t, all.Contains(s))
	}
	assert.Equal(t, "all", all.Name())
}

func TestTransition(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	created := now.Add(-48 * time.Hour)
	review := domain.Review{ID: "unpub-01", Status: domain.ReviewStatusUnpublished, CreatedAt: created, UpdatedAt: created}

	tests := []struct {
		name      string
		target    domain.ReviewStatus
		partition Partition
		remove    bool
	}{
		{"leaves unpublished partition", domain.ReviewStatusPublished, PartitionOf(domain.ReviewStatusUnpublished), true},
		{"stays in unpublished partition", domain.ReviewStatusUnpublished, PartitionOf(domain.ReviewStatusUnpublished), false},
		{"to draft from unpublished view", domain.ReviewStatusDraft, PartitionOf(domain.ReviewStatusUnpublished), true},
		{"unfiltered view keeps everything", domain.ReviewStatusDraft, Partition{}, false},
		{"published view keeps published", domain.ReviewStatusPublished, PartitionOf(domain.ReviewStatusPublished), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Transition(review, tt.target, tt.partition, now)
			assert.Equal(t, tt.remove, out.Remove)
			assert.Equal(t, tt.target, out.Review.Status)
			assert.Equal(t, domain.ReviewStatusUnpublished, out.From)
			assert.Equal(t, now, out.Review.UpdatedAt)
			assert.Equal(t, created, out.Review.CreatedAt)
		})
	}

	assert.Equal(t, domain.ReviewStatusUnpublished, review.Status, "input is not modified")
}

func TestStatusUpdate(t *testing.T) {
	u := StatusUpdate(domain.ReviewStatusPublished)
	require.NotNil(t, u.Status)
	assert.Equal(t, domain.ReviewStatusPublished, *u.Status)
	assert.Equal(t, "Status changed to PUBLISHED by admin", u.ModerationNote)
	assert.Nil(t, u.IsPremium)
	assert.Nil(t, u.PremiumPrice)
}

func TestTogglePremium_EnableUsesDefaultPrice(t *testing.T) {
	change := TogglePremium(domain.Review{ID: "pub-01"})

	assert.True(t, change.Enable)
	require.NotNil(t, change.Price)
	assert.Equal(t, domain.DefaultPremiumPrice, *change.Price)
	assert.Equal(t, NotePremiumOn, change.Note)
	assert.Equal(t, "Review marked as premium", change.Message())

	u := change.Update()
	require.NotNil(t, u.IsPremium)
	assert.True(t, *u.IsPremium)
	require.NotNil(t, u.PremiumPrice)
	assert.Equal(t, 4.99, *u.PremiumPrice)
}

func TestTogglePremium_EnableKeepsExistingPrice(t *testing.T) {
	change := TogglePremium(domain.Review{ID: "pub-01", PremiumPrice: price(9.5)})
	require.NotNil(t, change.Price)
	assert.Equal(t, 9.5, *change.Price)
}

func TestTogglePremium_Disable(t *testing.T) {
	change := TogglePremium(domain.Review{ID: "pub-01", IsPremium: true, PremiumPrice: price(4.99)})

	assert.False(t, change.Enable)
	assert.Nil(t, change.Price)
	assert.Equal(t, NotePremiumOff, change.Note)
	assert.Equal(t, "Review removed from premium", change.Message())

	u := change.Update()
	require.NotNil(t, u.IsPremium)
	assert.False(t, *u.IsPremium)
	assert.Nil(t, u.PremiumPrice)
}

func TestPremiumChange_Apply(t *testing.T) {
	r := domain.Review{ID: "pub-01"}
	on := TogglePremium(r)
	on.Apply(&r)
	assert.True(t, r.IsPremium)
	require.NotNil(t, r.PremiumPrice)
	assert.Equal(t, 4.99, *r.PremiumPrice)

	*on.Price = 1
	assert.Equal(t, 4.99, *r.PremiumPrice, "applied price is a copy")

	off := TogglePremium(r)
	off.Apply(&r)
	assert.False(t, r.IsPremium)
	assert.Nil(t, r.PremiumPrice)
}

func TestCounts(t *testing.T) {
	reviews := []domain.Review{
		{Status: domain.ReviewStatusPublished},
		{Status: domain.ReviewStatusPublished},
		{Status: domain.ReviewStatusDraft},
		{Status: domain.ReviewStatusUnpublished},
		{Status: "ARCHIVED"},
	}

	c := Tally(reviews)
	assert.Equal(t, Counts{Total: 5, Published: 2, Pending: 1, Unpublished: 2}, c)

	c.Add(domain.ReviewStatusDraft, 0)
	c.Add(domain.ReviewStatusDraft, -3)
	assert.Equal(t, 5, c.Total)

	c.Add(domain.ReviewStatusDraft, 4)
	assert.Equal(t, 5, c.Pending)
	assert.Equal(t, 9, c.Total)
}
