package apitest

import (
	"fmt"
	"time"

	"github.com/utafrali/critiqo/internal/domain"
)

// Base is the creation time of the first fixture review.
var Base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// Reviews returns n reviews with the given status. The first is the newest.
func Reviews(n int, status domain.ReviewStatus) []domain.Review {
	out := make([]domain.Review, n)
	for i := range out {
		created := Base.Add(-time.Duration(i) * time.Hour)
		out[i] = domain.Review{
			ID:        fmt.Sprintf("%s-%02d", prefix(status), i+1),
			Title:     fmt.Sprintf("Review %02d", i+1),
			Author:    fmt.Sprintf("author%02d@example.com", i+1),
			Rating:    i%5 + 1,
			Status:    status,
			Votes:     i,
			CreatedAt: created,
			UpdatedAt: created,
		}
	}
	return out
}

func prefix(status domain.ReviewStatus) string {
	switch status {
	case domain.ReviewStatusPublished:
		return "pub"
	case domain.ReviewStatusDraft:
		return "draft"
	default:
		return "unpub"
	}
}

// Users returns n guest users (user-01 .. user-n) followed by one admin.
func Users(n int) []domain.User {
	out := make([]domain.User, 0, n+1)
	for i := 1; i <= n; i++ {
		out = append(out, domain.User{
			ID:        fmt.Sprintf("user-%02d", i),
			Email:     fmt.Sprintf("guest%02d@example.com", i),
			Role:      domain.RoleGuest,
			Status:    domain.UserStatusActive,
			Guest:     &domain.Guest{Name: fmt.Sprintf("Guest %02d", i)},
			CreatedAt: Base.Add(time.Duration(i) * time.Minute),
		})
	}
	out = append(out, domain.User{
		ID:        "admin-01",
		Email:     "admin@critiqo.io",
		Role:      domain.RoleAdmin,
		Status:    domain.UserStatusActive,
		CreatedAt: Base,
	})
	return out
}
