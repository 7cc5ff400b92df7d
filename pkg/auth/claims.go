package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims represents the JWT claims issued by the marketplace auth provider.
// The subject carries the user id; role is the database role the token acts as.
type Claims struct {
	jwt.RegisteredClaims
	Email string   `json:"email,omitempty"`
	Role  string   `json:"role,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// UserID parses the subject claim as a user UUID.
func (c Claims) UserID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid subject %q: %w", c.Subject, err)
	}
	return id, nil
}

// HasRole checks if the claims include the specified role, either as the
// primary role or in the additional roles list.
func (c Claims) HasRole(role string) bool {
	if c.Role == role {
		return true
	}
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Role constants
const (
	RoleAuthenticated = "authenticated"
	RoleServiceRole   = "service_role"
	RoleAdmin         = "admin"
)
