package widget

import (
	"context"
	"time"
)

// Review is a review record as served by the review store.
type Review struct {
	ID         string    `json:"id"`
	ShopID     string    `json:"shop_id"`
	ProductID  string    `json:"product_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	AuthorName string    `json:"author_name"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// Submission is a new review sent to the store.
type Submission struct {
	ShopID     string `json:"shop_id"`
	ProductID  string `json:"product_id"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment"`
	AuthorName string `json:"author_name"`
	Status     string `json:"status"`
}

// Store is the review backend as seen by the widget.
type Store interface {
	// ApprovedReviews returns the approved reviews of a product, newest first.
	ApprovedReviews(ctx context.Context, shopID, productID string) ([]Review, error)

	// Submit sends a new review for moderation.
	Submit(ctx context.Context, sub Submission) error
}
