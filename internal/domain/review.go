package domain

import (
	"fmt"
	"strings"
	"time"
)

// ReviewStatus is the publication state of a review.
type ReviewStatus string

const (
	ReviewStatusDraft       ReviewStatus = "DRAFT"
	ReviewStatusPublished   ReviewStatus = "PUBLISHED"
	ReviewStatusUnpublished ReviewStatus = "UNPUBLISHED"
)

// ReviewStatuses lists every status in display order.
var ReviewStatuses = []ReviewStatus{ReviewStatusDraft, ReviewStatusPublished, ReviewStatusUnpublished}

// DefaultPremiumPrice is applied when premium is enabled on a review that has no price yet.
const DefaultPremiumPrice = 4.99

// IsValid reports whether s is one of the known statuses.
func (s ReviewStatus) IsValid() bool {
	switch s {
	case ReviewStatusDraft, ReviewStatusPublished, ReviewStatusUnpublished:
		return true
	}
	return false
}

func (s ReviewStatus) String() string {
	return string(s)
}

// ParseReviewStatus parses a status case-insensitively.
func ParseReviewStatus(raw string) (ReviewStatus, error) {
	s := ReviewStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", fmt.Errorf("unknown review status %q", raw)
	}
	return s, nil
}

// Review is a user-submitted review as served by the portal API.
type Review struct {
	ID           string       `json:"id" yaml:"id"`
	Title        string       `json:"title" yaml:"title"`
	Author       string       `json:"author,omitempty" yaml:"author,omitempty"`
	Category     string       `json:"category,omitempty" yaml:"category,omitempty"`
	Rating       int          `json:"rating" yaml:"rating"`
	Status       ReviewStatus `json:"status" yaml:"status"`
	IsPremium    bool         `json:"isPremium" yaml:"isPremium"`
	PremiumPrice *float64     `json:"premiumPrice" yaml:"premiumPrice"`
	Votes        int          `json:"votes" yaml:"votes"`
	CreatedAt    time.Time    `json:"createdAt" yaml:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt" yaml:"updatedAt"`
}

// EntityID implements Entity.
func (r Review) EntityID() string {
	return r.ID
}

// SetPremium flips the premium flag while keeping premiumPrice set exactly
// when the review is premium. An existing price survives re-enabling.
func (r *Review) SetPremium(enabled bool) {
	r.IsPremium = enabled
	if !enabled {
		r.PremiumPrice = nil
		return
	}
	if r.PremiumPrice == nil {
		price := DefaultPremiumPrice
		r.PremiumPrice = &price
	}
}

// Price returns the premium price, or zero when the review is free.
func (r Review) Price() float64 {
	if r.PremiumPrice == nil {
		return 0
	}
	return *r.PremiumPrice
}
