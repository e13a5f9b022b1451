package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "PENDING"
	ReviewApproved ReviewStatus = "APPROVED"
	ReviewRejected ReviewStatus = "REJECTED"
)

var ReviewStatuses = []ReviewStatus{ReviewPending, ReviewApproved, ReviewRejected}

type Review struct {
	ID                uuid.UUID    `json:"id" db:"review_id"`
	ProductID         uuid.UUID    `json:"productId" db:"product_id"`
	UserID            uuid.UUID    `json:"userId" db:"user_id"`
	UserName          string       `json:"userName" db:"user_name"`
	Rating            int          `json:"rating" db:"rating"` // 1-5
	Comment           string       `json:"comment" db:"comment"`
	Status            ReviewStatus `json:"status" db:"status"`
	ModerationComment string       `json:"moderationComment,omitempty" db:"moderation_comment"`
	ModeratedAt       *time.Time   `json:"moderatedAt,omitempty" db:"moderated_at"`
	ModeratedBy       *uuid.UUID   `json:"moderatedBy,omitempty" db:"moderated_by"`
	CreatedAt         time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time    `json:"updatedAt" db:"updated_at"`
}

func ParseReviewStatus(s string) (ReviewStatus, error) {
	st := ReviewStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range ReviewStatuses {
		if st == known {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid review status %q", s)
}

// RatingSummary retourne la moyenne arithmétique et le nombre de notes (0 si aucune)
func RatingSummary(ratings []int) (float64, int) {
	if len(ratings) == 0 {
		return 0, 0
	}
	total := 0
	for _, r := range ratings {
		total += r
	}
	return float64(total) / float64(len(ratings)), len(ratings)
}

// ApprovedRatings extrait les notes des avis publiés
func ApprovedRatings(reviews []Review) []int {
	ratings := make([]int, 0, len(reviews))
	for _, r := range reviews {
		if r.Status == ReviewApproved {
			ratings = append(ratings, r.Rating)
		}
	}
	return ratings
}
