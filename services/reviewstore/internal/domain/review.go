package domain

import (
	"math"
	"strconv"
	"time"
)

// Status is the moderation state of a review.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
)

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// Review represents a product review submitted by a storefront visitor.
type Review struct {
	ID         string    `json:"id"`
	ShopID     string    `json:"shop_id"`
	ProductID  string    `json:"product_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	AuthorName string    `json:"author_name"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReviewSummary contains aggregate review statistics for a set of reviews.
type ReviewSummary struct {
	AverageRating float64 `json:"average_rating"`
	TotalCount    int     `json:"total_count"`
}

// IsValidRating reports whether r lies within [MinRating, MaxRating].
func IsValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}

// Approve moves the review to the approved state. Approving an approved
// review is a no-op.
func (r *Review) Approve() {
	r.Status = StatusApproved
}

// Field returns the string form of the named JSON field. The second return
// value is false for unknown field names.
func (r *Review) Field(name string) (string, bool) {
	switch name {
	case "id":
		return r.ID, true
	case "shop_id":
		return r.ShopID, true
	case "product_id":
		return r.ProductID, true
	case "rating":
		return strconv.Itoa(r.Rating), true
	case "comment":
		return r.Comment, true
	case "author_name":
		return r.AuthorName, true
	case "status":
		return string(r.Status), true
	case "created_at":
		return r.CreatedAt.UTC().Format(time.RFC3339Nano), true
	default:
		return "", false
	}
}

// Summarize computes the average rating, rounded to one decimal place, and
// the count of the given reviews.
func Summarize(reviews []Review) ReviewSummary {
	if len(reviews) == 0 {
		return ReviewSummary{}
	}
	total := 0
	for _, rv := range reviews {
		total += rv.Rating
	}
	avg := float64(total) / float64(len(reviews))
	return ReviewSummary{
		AverageRating: math.Round(avg*10) / 10,
		TotalCount:    len(reviews),
	}
}
