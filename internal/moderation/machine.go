// Package moderation holds the review status machine and the mutator that
// applies acknowledged moderation writes to a list view.
package moderation

import (
	"fmt"
	"strings"
	"time"

	"github.com/utafrali/critiqo/internal/domain"
	"github.com/utafrali/critiqo/internal/remote"
)

// Moderation notes sent with premium changes.
const (
	NotePremiumOn  = "Excellent in-depth review that provides premium value"
	NotePremiumOff = "Reverted to free review"
)

// Partition is the status subset a review view shows. The zero value shows
// every status.
type Partition struct {
	Status domain.ReviewStatus
}

// PartitionOf returns the partition for one status.
func PartitionOf(status domain.ReviewStatus) Partition {
	return Partition{Status: status}
}

// Contains reports whether a review with status belongs to the partition.
func (p Partition) Contains(status domain.ReviewStatus) bool {
	return p.Status == "" || p.Status == status
}

// Name is the lower-case label used in view names, e.g. "unpublished".
func (p Partition) Name() string {
	if p.Status == "" {
		return "all"
	}
	return strings.ToLower(string(p.Status))
}

// Outcome is what an acknowledged status change does to the displayed list.
type Outcome struct {
	Review domain.Review
	From   domain.ReviewStatus
	// Remove is set when the review left the partition.
	Remove bool
	// Cached is set when Review came from the loaded page. Otherwise only
	// ID and Status are known.
	Cached bool
}

// Transition applies target to review. Every status is reachable from every
// other; the only decision is whether the review stays in the partition.
func Transition(review domain.Review, target domain.ReviewStatus, p Partition, now time.Time) Outcome {
	out := Outcome{Review: review, From: review.Status}
	out.Review.Status = target
	out.Review.UpdatedAt = now.UTC()
	out.Remove = !p.Contains(target)
	return out
}

// StatusNote is the moderation note for a status change.
func StatusNote(target domain.ReviewStatus) string {
	return fmt.Sprintf("Status changed to %s by admin", target)
}

// StatusUpdate builds the PATCH body for a status change.
func StatusUpdate(target domain.ReviewStatus) remote.ReviewUpdate {
	return remote.ReviewUpdate{
		Status:         &target,
		ModerationNote: StatusNote(target),
	}
}

// PremiumNote is the moderation note for a premium toggle.
func PremiumNote(enable bool) string {
	if enable {
		return NotePremiumOn
	}
	return NotePremiumOff
}

// PremiumChange is the result of toggling premium on a review.
type PremiumChange struct {
	ReviewID string
	Enable   bool
	// Price is set exactly when Enable is.
	Price *float64
	Note  string
}

// TogglePremium flips the premium flag of review. An existing price is kept
// when enabling; otherwise DefaultPremiumPrice applies.
func TogglePremium(review domain.Review) PremiumChange {
	next := review
	next.SetPremium(!review.IsPremium)
	return PremiumChange{
		ReviewID: review.ID,
		Enable:   next.IsPremium,
		Price:    next.PremiumPrice,
		Note:     PremiumNote(next.IsPremium),
	}
}

// Update builds the PATCH body for the change.
func (c PremiumChange) Update() remote.ReviewUpdate {
	enable := c.Enable
	u := remote.ReviewUpdate{
		IsPremium:      &enable,
		ModerationNote: c.Note,
	}
	if c.Enable && c.Price != nil {
		price := *c.Price
		u.PremiumPrice = &price
	}
	return u
}

// Apply writes the change to a cached review.
func (c PremiumChange) Apply(r *domain.Review) {
	r.IsPremium = c.Enable
	r.PremiumPrice = nil
	if c.Enable && c.Price != nil {
		price := *c.Price
		r.PremiumPrice = &price
	}
}

// Message is the success notification text.
func (c PremiumChange) Message() string {
	if c.Enable {
		return "Review marked as premium"
	}
	return "Review removed from premium"
}

// Counts buckets reviews the way the dashboard does: DRAFT is pending and
// anything that is neither PUBLISHED nor DRAFT is unpublished.
type Counts struct {
	Total       int `json:"total" yaml:"total"`
	Published   int `json:"published" yaml:"published"`
	Pending     int `json:"pending" yaml:"pending"`
	Unpublished int `json:"unpublished" yaml:"unpublished"`
}

// Add counts n reviews with status.
func (c *Counts) Add(status domain.ReviewStatus, n int) {
	if n <= 0 {
		return
	}
	c.Total += n
	switch status {
	case domain.ReviewStatusPublished:
		c.Published += n
	case domain.ReviewStatusDraft:
		c.Pending += n
	default:
		c.Unpublished += n
	}
}

// Tally counts a slice of reviews.
func Tally(reviews []domain.Review) Counts {
	var c Counts
	for _, r := range reviews {
		c.Add(r.Status, 1)
	}
	return c
}
