package auth

import (
	"time"

	"github.com/google/uuid"

	"shop_back_end/internal/models"
)

// Principal est l'utilisateur authentifié d'une requête
type Principal struct {
	UserID uuid.UUID
	Email  string
	Name   string
	Role   models.Role
	// TokenID permet la révocation au logout
	TokenID   string
	ExpiresAt time.Time
}

func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == models.RoleAdmin
}

// PrincipalFromClaims convertit des claims JWT vérifiés
func PrincipalFromClaims(c *Claims) (*Principal, error) {
	id, err := uuid.Parse(c.UserID)
	if err != nil {
		return nil, err
	}
	p := &Principal{UserID: id, Email: c.Email, Name: c.Name, Role: c.Role, TokenID: c.ID}
	if c.ExpiresAt != nil {
		p.ExpiresAt = c.ExpiresAt.Time
	}
	return p, nil
}

// Remaining retourne la validité restante du token, utilisée pour la blacklist
func (p *Principal) Remaining(now time.Time) time.Duration {
	if p.ExpiresAt.IsZero() {
		return 0
	}
	return p.ExpiresAt.Sub(now)
}
