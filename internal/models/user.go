package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserInactive UserStatus = "inactive"
)

const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

type User struct {
	ID         uuid.UUID  `json:"id" db:"user_id"`
	Name       string     `json:"name" db:"name"`
	Email      string     `json:"email" db:"email"`
	Password   string     `json:"-" db:"password_hash"`
	Role       Role       `json:"role" db:"role"`
	Status     UserStatus `json:"status" db:"status"`
	Provider   string     `json:"provider,omitempty" db:"provider"`
	OrderCount int        `json:"orderCount"`
	CreatedAt  time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time  `json:"updatedAt" db:"updated_at"`
}

// ParseRole accepte "customer" comme alias historique de "user"
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, nil
	case "user", "customer":
		return RoleUser, nil
	}
	return "", fmt.Errorf("invalid role %q", s)
}

func ParseUserStatus(s string) (UserStatus, error) {
	switch v := UserStatus(strings.ToLower(strings.TrimSpace(s))); v {
	case UserActive, UserInactive:
		return v, nil
	}
	return "", fmt.Errorf("invalid status %q", s)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *User) IsActiveAdmin() bool {
	return u.Role == RoleAdmin && u.Status == UserActive
}
