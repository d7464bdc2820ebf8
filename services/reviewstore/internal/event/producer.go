package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	pkgkafka "github.com/kudorimaru/bcart-review-app/pkg/kafka"
	"github.com/kudorimaru/bcart-review-app/pkg/logger"
	"github.com/kudorimaru/bcart-review-app/services/reviewstore/internal/domain"
)

// Kafka topics for review domain events.
var (
	TopicReviewSubmitted = pkgkafka.Topic("review", "submitted")
	TopicReviewApproved  = pkgkafka.Topic("review", "approved")
)

// Aggregate type constant.
const AggregateTypeReview = "review"

// Source identifier for events originating from the review store.
const SourceReviewStore = "reviewstore"

// ReviewSubmittedData is the payload for a review.submitted event.
type ReviewSubmittedData struct {
	ID         string    `json:"id"`
	ShopID     string    `json:"shop_id"`
	ProductID  string    `json:"product_id"`
	Rating     int       `json:"rating"`
	AuthorName string    `json:"author_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReviewApprovedData is the payload for a review.approved event.
type ReviewApprovedData struct {
	ID        string `json:"id"`
	ShopID    string `json:"shop_id"`
	ProductID string `json:"product_id"`
	Rating    int    `json:"rating"`
}

// Producer publishes review domain events to Kafka.
type Producer struct {
	publisher pkgkafka.Publisher
	logger    *slog.Logger
}

// NewProducer creates a new event producer for the review store.
func NewProducer(publisher pkgkafka.Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		publisher: publisher,
		logger:    logger,
	}
}

// PublishReviewSubmitted publishes a review.submitted event.
func (p *Producer) PublishReviewSubmitted(ctx context.Context, review *domain.Review) error {
	data := ReviewSubmittedData{
		ID:         review.ID,
		ShopID:     review.ShopID,
		ProductID:  review.ProductID,
		Rating:     review.Rating,
		AuthorName: review.AuthorName,
		CreatedAt:  review.CreatedAt,
	}
	return p.publish(ctx, TopicReviewSubmitted, review, data)
}

// PublishReviewApproved publishes a review.approved event.
func (p *Producer) PublishReviewApproved(ctx context.Context, review *domain.Review) error {
	data := ReviewApprovedData{
		ID:        review.ID,
		ShopID:    review.ShopID,
		ProductID: review.ProductID,
		Rating:    review.Rating,
	}
	return p.publish(ctx, TopicReviewApproved, review, data)
}

func (p *Producer) publish(ctx context.Context, topic string, review *domain.Review, data any) error {
	event, err := pkgkafka.NewEvent(topic, review.ID, AggregateTypeReview, SourceReviewStore, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	event.WithShopID(review.ShopID).WithMetadata("product_id", review.ProductID)
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.publisher.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published review event",
		slog.String("topic", topic),
		slog.String("review_id", review.ID),
		slog.String("event_id", event.EventID),
	)

	return nil
}
