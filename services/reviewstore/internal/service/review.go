package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/kudorimaru/bcart-review-app/pkg/errors"
	"github.com/kudorimaru/bcart-review-app/services/reviewstore/internal/domain"
	"github.com/kudorimaru/bcart-review-app/services/reviewstore/internal/repository"
)

// EventPublisher publishes review domain events.
type EventPublisher interface {
	PublishReviewSubmitted(ctx context.Context, review *domain.Review) error
	PublishReviewApproved(ctx context.Context, review *domain.Review) error
}

// SubmitInput holds the caller-supplied fields of a new review. Status, id
// and timestamp are always assigned by the store.
type SubmitInput struct {
	ShopID     string
	ProductID  string
	Rating     int
	Comment    string
	AuthorName string
}

// ReviewService implements the business logic for review operations.
type ReviewService struct {
	repo   repository.ReviewRepository
	events EventPublisher
	logger *slog.Logger
	now    func() time.Time
}

// NewReviewService creates a new review service. events may be nil, in which
// case no domain events are published.
func NewReviewService(repo repository.ReviewRepository, events EventPublisher, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		repo:   repo,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// Query returns reviews matching filter.
func (s *ReviewService) Query(ctx context.Context, filter domain.Filter) ([]domain.Review, error) {
	reviews, err := s.repo.Query(ctx, filter)
	if err != nil {
		return nil, storageError("query reviews", err)
	}
	return reviews, nil
}

// List returns every review in insertion order.
func (s *ReviewService) List(ctx context.Context) ([]domain.Review, error) {
	reviews, err := s.repo.List(ctx)
	if err != nil {
		return nil, storageError("list reviews", err)
	}
	return reviews, nil
}

// Summary returns the rating summary over the reviews matching filter.
func (s *ReviewService) Summary(ctx context.Context, filter domain.Filter) (*domain.ReviewSummary, error) {
	reviews, err := s.Query(ctx, filter)
	if err != nil {
		return nil, err
	}
	summary := domain.Summarize(reviews)
	return &summary, nil
}

// Submit stores a new review in pending status.
func (s *ReviewService) Submit(ctx context.Context, input *SubmitInput) (*domain.Review, error) {
	shopID := strings.TrimSpace(input.ShopID)
	productID := strings.TrimSpace(input.ProductID)
	author := strings.TrimSpace(input.AuthorName)

	if shopID == "" {
		return nil, apperrors.InvalidInput("shop_id is required")
	}
	if productID == "" {
		return nil, apperrors.InvalidInput("product_id is required")
	}
	if author == "" {
		return nil, apperrors.InvalidInput("author_name is required")
	}
	if !domain.IsValidRating(input.Rating) {
		return nil, apperrors.InvalidInput("rating must be between 1 and 5")
	}

	review := &domain.Review{
		ID:         uuid.New().String(),
		ShopID:     shopID,
		ProductID:  productID,
		Rating:     input.Rating,
		Comment:    strings.TrimSpace(input.Comment),
		AuthorName: author,
		Status:     domain.StatusPending,
		// PostgreSQL keeps microseconds; truncating keeps every backend equal.
		CreatedAt: s.now().UTC().Truncate(time.Microsecond),
	}

	if err := s.repo.Create(ctx, review); err != nil {
		return nil, storageError("create review", err)
	}

	reviewsSubmitted.WithLabelValues(review.ShopID).Inc()

	s.logger.InfoContext(ctx, "review submitted",
		slog.String("review_id", review.ID),
		slog.String("shop_id", review.ShopID),
		slog.String("product_id", review.ProductID),
		slog.Int("rating", review.Rating),
	)

	if s.events != nil {
		if err := s.events.PublishReviewSubmitted(ctx, review); err != nil {
			s.logger.WarnContext(ctx, "failed to publish review.submitted event",
				slog.String("review_id", review.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return review, nil
}

// Approve marks the review approved. Approving twice is not an error.
func (s *ReviewService) Approve(ctx context.Context, id string) (*domain.Review, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.InvalidInput("review id is required")
	}

	review, err := s.repo.Approve(ctx, id)
	if err != nil {
		return nil, storageError("approve review", err)
	}

	reviewsApproved.WithLabelValues(review.ShopID).Inc()

	s.logger.InfoContext(ctx, "review approved",
		slog.String("review_id", review.ID),
		slog.String("shop_id", review.ShopID),
	)

	if s.events != nil {
		if err := s.events.PublishReviewApproved(ctx, review); err != nil {
			s.logger.WarnContext(ctx, "failed to publish review.approved event",
				slog.String("review_id", review.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return review, nil
}

// storageError annotates a repository failure. A storage call cut off by its
// deadline surfaces as 503 so callers can retry.
func storageError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Unavailable("review storage timed out", apperrors.Wrap(err, op))
	}
	return apperrors.Wrap(err, op)
}
