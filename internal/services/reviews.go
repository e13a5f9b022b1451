package services

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"shop_back_end/internal/apperr"
	"shop_back_end/internal/auth"
	"shop_back_end/internal/models"

	"github.com/google/uuid"
)

// RatingWriter met à jour la note agrégée d'un produit (CatalogService)
type RatingWriter interface {
	UpdateRating(ctx context.Context, id uuid.UUID, compute func() (float64, int, error)) (*models.Product, error)
}

type ReviewInput struct {
	Rating  int
	Comment string
}

type ReviewFilter struct {
	Status    string
	ProductID *uuid.UUID
	Rating    int
	Search    string
	Page      int
	Limit     int
}

// AdminReview enrichit l'avis avec le nom du produit
type AdminReview struct {
	models.Review
	ProductName string `json:"productName"`
}

type ReviewStatistics struct {
	Statuses map[models.ReviewStatus]int `json:"statuses"`
}

type AdminReviewList struct {
	Reviews    []AdminReview     `json:"reviews"`
	Pagination models.Pagination `json:"pagination"`
	Statistics ReviewStatistics  `json:"statistics"`
}

type ReviewService struct {
	reviews  ReviewStore
	products ProductStore
	ratings  RatingWriter
}

func NewReviewService(reviews ReviewStore, products ProductStore, ratings RatingWriter) *ReviewService {
	return &ReviewService{reviews: reviews, products: products, ratings: ratings}
}

func validateReview(in ReviewInput) error {
	if in.Rating < 1 || in.Rating > 5 {
		return apperr.Validation("Rating must be between 1 and 5")
	}
	if len(in.Comment) > 1000 {
		return apperr.Validation("Comment must be at most 1000 characters")
	}
	return nil
}

// ListForProduct retourne les avis publiés, les plus récents d'abord
func (s *ReviewService) ListForProduct(ctx context.Context, productID uuid.UUID) ([]models.Review, error) {
	if _, err := s.products.Get(ctx, productID); err != nil {
		return nil, storeErr(err, "get product", "Product not found")
	}
	reviews, err := s.reviews.ListByProduct(ctx, productID)
	if err != nil {
		return nil, storeErr(err, "list reviews", "Review not found")
	}
	return approvedNewestFirst(reviews), nil
}

func (s *ReviewService) Create(ctx context.Context, user *auth.Principal, productID uuid.UUID, in ReviewInput) (*models.Review, error) {
	if err := validateReview(in); err != nil {
		return nil, err
	}
	if _, err := s.products.Get(ctx, productID); err != nil {
		return nil, storeErr(err, "get product", "Product not found")
	}

	now := time.Now().UTC()
	rv := &models.Review{
		ID:        uuid.New(),
		ProductID: productID,
		UserID:    user.UserID,
		UserName:  user.Name,
		Rating:    in.Rating,
		Comment:   strings.TrimSpace(in.Comment),
		Status:    models.ReviewApproved,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.reviews.Create(ctx, rv); err != nil {
		if isDuplicate(err) {
			return nil, apperr.Validation("You have already reviewed this product")
		}
		return nil, storeErr(err, "create review", "Review not found")
	}
	if err := s.RecalculateRating(ctx, productID); err != nil {
		return nil, err
	}
	return rv, nil
}

func (s *ReviewService) UpdateOwn(ctx context.Context, user *auth.Principal, productID uuid.UUID, in ReviewInput) (*models.Review, error) {
	if err := validateReview(in); err != nil {
		return nil, err
	}
	rv, err := s.reviews.GetByProductUser(ctx, productID, user.UserID)
	if err != nil {
		return nil, storeErr(err, "get review", "Review not found")
	}
	rv.Rating = in.Rating
	rv.Comment = strings.TrimSpace(in.Comment)
	rv.UpdatedAt = time.Now().UTC()
	if err := s.reviews.Update(ctx, rv); err != nil {
		return nil, storeErr(err, "update review", "Review not found")
	}
	if err := s.RecalculateRating(ctx, productID); err != nil {
		return nil, err
	}
	return rv, nil
}

func (s *ReviewService) DeleteOwn(ctx context.Context, user *auth.Principal, productID uuid.UUID) error {
	rv, err := s.reviews.GetByProductUser(ctx, productID, user.UserID)
	if err != nil {
		return storeErr(err, "get review", "Review not found")
	}
	if err := s.reviews.Delete(ctx, rv); err != nil {
		return storeErr(err, "delete review", "Review not found")
	}
	return s.RecalculateRating(ctx, productID)
}

// RecalculateRating relit les avis publiés dans la boucle CAS du produit
func (s *ReviewService) RecalculateRating(ctx context.Context, productID uuid.UUID) error {
	_, err := s.ratings.UpdateRating(ctx, productID, func() (float64, int, error) {
		reviews, err := s.reviews.ListByProduct(ctx, productID)
		if err != nil {
			return 0, 0, err
		}
		avg, count := models.RatingSummary(models.ApprovedRatings(reviews))
		return avg, count, nil
	})
	if err != nil && apperr.KindOf(err) == apperr.KindNotFound {
		// produit supprimé entre-temps
		return nil
	}
	return err
}

func (s *ReviewService) AdminList(ctx context.Context, f ReviewFilter) (*AdminReviewList, error) {
	var status models.ReviewStatus
	if f.Status != "" {
		st, err := models.ParseReviewStatus(f.Status)
		if err != nil {
			return nil, apperr.Validation("Invalid status")
		}
		status = st
	}

	all, err := s.reviews.All(ctx)
	if err != nil {
		return nil, storeErr(err, "list reviews", "Review not found")
	}
	products, err := s.products.All(ctx)
	if err != nil {
		return nil, storeErr(err, "list products", "Product not found")
	}
	names := make(map[uuid.UUID]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}

	stats := ReviewStatistics{Statuses: map[models.ReviewStatus]int{}}
	search := strings.ToLower(strings.TrimSpace(f.Search))
	var matched []AdminReview
	for _, rv := range all {
		stats.Statuses[rv.Status]++
		if status != "" && rv.Status != status {
			continue
		}
		if f.ProductID != nil && rv.ProductID != *f.ProductID {
			continue
		}
		if f.Rating != 0 && rv.Rating != f.Rating {
			continue
		}
		name := names[rv.ProductID]
		if search != "" &&
			!strings.Contains(strings.ToLower(rv.Comment), search) &&
			!strings.Contains(strings.ToLower(rv.UserName), search) &&
			!strings.Contains(strings.ToLower(name), search) {
			continue
		}
		matched = append(matched, AdminReview{Review: rv, ProductName: name})
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	items, pagination := page(matched, f.Page, f.Limit)
	if items == nil {
		items = []AdminReview{}
	}
	return &AdminReviewList{Reviews: items, Pagination: pagination, Statistics: stats}, nil
}

func (s *ReviewService) Moderate(ctx context.Context, id uuid.UUID, status, comment string, admin *auth.Principal) (*models.Review, error) {
	st, err := models.ParseReviewStatus(status)
	if err != nil {
		return nil, apperr.Validation("Invalid status")
	}
	rv, err := s.moderate(ctx, id, st, comment, admin)
	if err != nil {
		return nil, err
	}
	if err := s.RecalculateRating(ctx, rv.ProductID); err != nil {
		return nil, err
	}
	return rv, nil
}

// BulkModerate recalcule une seule fois chaque produit touché
func (s *ReviewService) BulkModerate(ctx context.Context, ids []uuid.UUID, status, comment string, admin *auth.Principal) (int, error) {
	if len(ids) == 0 {
		return 0, apperr.Validation("Review IDs and status are required")
	}
	st, err := models.ParseReviewStatus(status)
	if err != nil {
		return 0, apperr.Validation("Invalid status")
	}

	touched := map[uuid.UUID]bool{}
	updated := 0
	for _, id := range ids {
		rv, err := s.moderate(ctx, id, st, comment, admin)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				continue
			}
			return updated, err
		}
		touched[rv.ProductID] = true
		updated++
	}
	for productID := range touched {
		if err := s.RecalculateRating(ctx, productID); err != nil {
			return updated, err
		}
	}
	log.Printf("✅ %d avis modérés (%s)", updated, st)
	return updated, nil
}

func (s *ReviewService) moderate(ctx context.Context, id uuid.UUID, st models.ReviewStatus, comment string, admin *auth.Principal) (*models.Review, error) {
	rv, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "get review", "Review not found")
	}
	now := time.Now().UTC()
	rv.Status = st
	rv.ModerationComment = comment
	rv.ModeratedAt = &now
	if admin != nil {
		moderator := admin.UserID
		rv.ModeratedBy = &moderator
	}
	rv.UpdatedAt = now
	if err := s.reviews.Update(ctx, rv); err != nil {
		return nil, storeErr(err, "moderate review", "Review not found")
	}
	return rv, nil
}
