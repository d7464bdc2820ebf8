package repository

import (
	"context"

	"github.com/kudorimaru/bcart-review-app/services/reviewstore/internal/domain"
)

// ReviewRepository defines the interface for review persistence operations.
type ReviewRepository interface {
	// Query returns reviews matching the filter, ordered by its order clause
	// or by insertion order when it has none.
	Query(ctx context.Context, filter domain.Filter) ([]domain.Review, error)

	// List returns every review in insertion order.
	List(ctx context.Context) ([]domain.Review, error)

	// Create appends a new review to the store.
	Create(ctx context.Context, review *domain.Review) error

	// Approve marks the review approved and returns the updated record.
	// An unknown id yields a NOT_FOUND error and leaves the store unchanged.
	Approve(ctx context.Context, id string) (*domain.Review, error)
}
