package memory

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/kudorimaru/bcart-review-app/pkg/errors"
	"github.com/kudorimaru/bcart-review-app/services/reviewstore/internal/domain"
)

// ReviewRepository implements repository.ReviewRepository in process memory.
// Data lives for the lifetime of the process.
type ReviewRepository struct {
	mu      sync.RWMutex
	reviews []domain.Review
	index   map[string]int
}

// NewReviewRepository creates an in-memory review repository preloaded with
// the given reviews.
func NewReviewRepository(initial ...domain.Review) *ReviewRepository {
	r := &ReviewRepository{
		reviews: make([]domain.Review, 0, len(initial)),
		index:   make(map[string]int, len(initial)),
	}
	for _, rv := range initial {
		r.index[rv.ID] = len(r.reviews)
		r.reviews = append(r.reviews, rv)
	}
	return r
}

// Query returns the reviews matching filter.
func (r *ReviewRepository) Query(_ context.Context, filter domain.Filter) ([]domain.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return filter.Apply(r.reviews), nil
}

// List returns a copy of every review in insertion order.
func (r *ReviewRepository) List(_ context.Context) ([]domain.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Review, len(r.reviews))
	copy(out, r.reviews)
	return out, nil
}

// Create appends review. A duplicate id is rejected with a conflict.
func (r *ReviewRepository) Create(_ context.Context, review *domain.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[review.ID]; exists {
		return apperrors.Conflict("review " + review.ID + " already exists")
	}
	r.index[review.ID] = len(r.reviews)
	r.reviews = append(r.reviews, *review)
	return nil
}

// Approve marks the review approved.
func (r *ReviewRepository) Approve(_ context.Context, id string) (*domain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[id]
	if !ok {
		return nil, apperrors.NotFound("review", id)
	}
	r.reviews[i].Approve()
	rv := r.reviews[i]
	return &rv, nil
}

// SeedReviews returns the demo dataset for shop test_shop_001, product 12345.
func SeedReviews() []domain.Review {
	return []domain.Review{
		{
			ID:         "6f1c2d3e-0001-4a5b-8c7d-000000000001",
			ShopID:     "test_shop_001",
			ProductID:  "12345",
			Rating:     5,
			Comment:    "とても良い商品でした！梱包も丁寧で、届くのも早かったです。また購入したいと思います。",
			AuthorName: "田中太郎",
			Status:     domain.StatusApproved,
			CreatedAt:  time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:         "6f1c2d3e-0002-4a5b-8c7d-000000000002",
			ShopID:     "test_shop_001",
			ProductID:  "12345",
			Rating:     4,
			Comment:    "品質は良いのですが、もう少し安いと嬉しいです。",
			AuthorName: "佐藤花子",
			Status:     domain.StatusApproved,
			CreatedAt:  time.Date(2026, 1, 28, 15, 30, 0, 0, time.UTC),
		},
		{
			ID:         "6f1c2d3e-0003-4a5b-8c7d-000000000003",
			ShopID:     "test_shop_001",
			ProductID:  "12345",
			Rating:     3,
			Comment:    "普通です。可もなく不可もなく。",
			AuthorName: "鈴木一郎",
			Status:     domain.StatusPending,
			CreatedAt:  time.Date(2026, 2, 5, 9, 0, 0, 0, time.UTC),
		},
	}
}
