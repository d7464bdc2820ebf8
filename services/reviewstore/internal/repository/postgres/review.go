package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/kudorimaru/bcart-review-app/pkg/database"
	apperrors "github.com/kudorimaru/bcart-review-app/pkg/errors"
	"github.com/kudorimaru/bcart-review-app/services/reviewstore/internal/domain"
)

const reviewColumns = "id, shop_id, product_id, rating, comment, author_name, status, created_at"

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Query returns reviews matching filter, translated to SQL.
func (r *ReviewRepository) Query(ctx context.Context, filter domain.Filter) (reviews []domain.Review, err error) {
	where, orderBy, args := filter.SQL(1)

	parts := []string{"SELECT " + reviewColumns + " FROM reviews"}
	if where != "" {
		parts = append(parts, where)
	}
	parts = append(parts, orderBy)
	query := strings.Join(parts, " ")

	ctx, end := database.TraceQuery(ctx, "QueryReviews", query)
	defer func() { end(err) }()

	return r.list(ctx, query, args...)
}

// List returns every review in insertion order.
func (r *ReviewRepository) List(ctx context.Context) (reviews []domain.Review, err error) {
	query := "SELECT " + reviewColumns + " FROM reviews ORDER BY seq"

	ctx, end := database.TraceQuery(ctx, "ListReviews", query)
	defer func() { end(err) }()

	return r.list(ctx, query)
}

func (r *ReviewRepository) list(ctx context.Context, query string, args ...any) ([]domain.Review, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	reviews := []domain.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, *rv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}

	return reviews, nil
}

// Create inserts a new review.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) (err error) {
	query := `
		INSERT INTO reviews (id, shop_id, product_id, rating, comment, author_name, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	ctx, end := database.TraceQuery(ctx, "CreateReview", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query,
		review.ID,
		review.ShopID,
		review.ProductID,
		review.Rating,
		review.Comment,
		review.AuthorName,
		string(review.Status),
		review.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}

	return nil
}

// Approve sets status to approved in a single statement and returns the row.
func (r *ReviewRepository) Approve(ctx context.Context, id string) (rv *domain.Review, err error) {
	query := `
		UPDATE reviews SET status = 'approved'
		WHERE id = $1
		RETURNING ` + reviewColumns

	ctx, end := database.TraceQuery(ctx, "ApproveReview", query)
	defer func() { end(err) }()

	rv, err = scanReview(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review", id)
		}
		return nil, fmt.Errorf("approve review: %w", err)
	}

	return rv, nil
}

func scanReview(row pgx.Row) (*domain.Review, error) {
	var (
		rv     domain.Review
		status string
	)
	if err := row.Scan(
		&rv.ID,
		&rv.ShopID,
		&rv.ProductID,
		&rv.Rating,
		&rv.Comment,
		&rv.AuthorName,
		&status,
		&rv.CreatedAt,
	); err != nil {
		return nil, err
	}
	rv.Status = domain.Status(status)
	rv.CreatedAt = rv.CreatedAt.UTC()
	return &rv, nil
}
