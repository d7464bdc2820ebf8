package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/kudorimaru/bcart-review-app/pkg/database"
	apperrors "github.com/kudorimaru/bcart-review-app/pkg/errors"
	"github.com/kudorimaru/bcart-review-app/services/reviewstore/internal/domain"
)

const (
	keyPrefix = "review:"
	orderKey  = "reviews:all"

	// maxApproveAttempts bounds optimistic-lock retries in Approve.
	maxApproveAttempts = 5
)

// ReviewRepository implements repository.ReviewRepository using Redis. Each
// review is a JSON string under review:<id>; insertion order is the list
// reviews:all.
type ReviewRepository struct {
	client *redis.Client
}

// NewReviewRepository creates a new Redis-backed review repository.
func NewReviewRepository(client *redis.Client) *ReviewRepository {
	return &ReviewRepository{client: client}
}

// Query loads every review and applies filter in process.
func (r *ReviewRepository) Query(ctx context.Context, filter domain.Filter) ([]domain.Review, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	return filter.Apply(all), nil
}

// List returns every review in insertion order.
func (r *ReviewRepository) List(ctx context.Context) (reviews []domain.Review, err error) {
	ctx, end := database.TraceCommand(ctx, "ListReviews", "LRANGE "+orderKey+"; MGET review:<id>...")
	defer func() { end(err) }()

	ids, err := r.client.LRange(ctx, orderKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange reviews: %w", err)
	}

	reviews = make([]domain.Review, 0, len(ids))
	if len(ids) == 0 {
		return reviews, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = keyPrefix + id
	}

	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget reviews: %w", err)
	}

	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			// Index entry without a record.
			continue
		}
		var rv domain.Review
		if err := json.Unmarshal([]byte(s), &rv); err != nil {
			return nil, fmt.Errorf("unmarshal review %s: %w", ids[i], err)
		}
		reviews = append(reviews, rv)
	}

	return reviews, nil
}

// Create stores the review and appends its id to the order list in one
// MULTI/EXEC transaction.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) (err error) {
	ctx, end := database.TraceCommand(ctx, "CreateReview", "SET review:<id>; RPUSH "+orderKey)
	defer func() { end(err) }()

	data, err := json.Marshal(review)
	if err != nil {
		return fmt.Errorf("marshal review: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, keyPrefix+review.ID, data, 0)
		pipe.RPush(ctx, orderKey, review.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save review: %w", err)
	}

	return nil
}

// Approve rewrites the stored JSON with status approved. The read-modify-write
// runs under WATCH so a concurrent writer forces a retry.
func (r *ReviewRepository) Approve(ctx context.Context, id string) (approved *domain.Review, err error) {
	ctx, end := database.TraceCommand(ctx, "ApproveReview", "GET review:<id>; SET review:<id>")
	defer func() { end(err) }()

	key := keyPrefix + id

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return apperrors.NotFound("review", id)
			}
			return fmt.Errorf("redis get review: %w", err)
		}

		var rv domain.Review
		if err := json.Unmarshal(data, &rv); err != nil {
			return fmt.Errorf("unmarshal review: %w", err)
		}
		rv.Approve()

		out, err := json.Marshal(&rv)
		if err != nil {
			return fmt.Errorf("marshal review: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		if err != nil {
			return err
		}

		approved = &rv
		return nil
	}

	for i := 0; i < maxApproveAttempts; i++ {
		err = r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return approved, nil
	}

	return nil, fmt.Errorf("approve review %s: %w", id, err)
}
