// Package auth inspects the admin bearer token the CLI is configured with.
// The portal verifies signatures; here the claims are only read so that an
// expired or non-admin token is rejected before any request is made.
package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/utafrali/critiqo/internal/domain"
	apperrors "github.com/utafrali/critiqo/pkg/errors"
)

// Claims are the portal's access token claims.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Principal is the admin a token belongs to.
type Principal struct {
	Subject   string
	Email     string
	Role      domain.Role
	ExpiresAt time.Time
}

// Actor is the name recorded on audit events.
func (p Principal) Actor() string {
	if p.Email != "" {
		return p.Email
	}
	return p.Subject
}

// ParseAdminToken reads the claims of raw without verifying its signature.
// It returns ErrUnauthorized for a missing, malformed or expired token and
// ErrForbidden when the role is not ADMIN.
func ParseAdminToken(raw string, now time.Time) (Principal, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
	if raw == "" {
		return Principal{}, apperrors.Unauthorized("admin token is required")
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return Principal{}, apperrors.Unauthorized(fmt.Sprintf("malformed admin token: %v", err))
	}

	p := Principal{
		Subject: claims.Subject,
		Email:   claims.Email,
		Role:    domain.Role(strings.ToUpper(claims.Role)),
	}
	if p.Subject == "" {
		p.Subject = claims.UserID
	}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
		if !now.Before(p.ExpiresAt) {
			return Principal{}, apperrors.Unauthorized(fmt.Sprintf("admin token expired at %s", p.ExpiresAt.UTC().Format(time.RFC3339)))
		}
	}
	if p.Role != domain.RoleAdmin {
		return Principal{}, apperrors.Forbidden(fmt.Sprintf("token role %q is not %s", claims.Role, domain.RoleAdmin))
	}
	return p, nil
}
