package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kudorimaru/bcart-review-app/pkg/httputil"
	"github.com/kudorimaru/bcart-review-app/pkg/validator"
	"github.com/kudorimaru/bcart-review-app/services/reviewstore/internal/domain"
	"github.com/kudorimaru/bcart-review-app/services/reviewstore/internal/service"
)

// maxBodyBytes caps submission bodies.
const maxBodyBytes = 64 << 10

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	service *service.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// SubmitReviewRequest is the JSON body of a review submission. Any status
// field sent by the client is ignored.
type SubmitReviewRequest struct {
	ShopID     string `json:"shop_id" validate:"required,max=100"`
	ProductID  string `json:"product_id" validate:"required,max=100"`
	Rating     int    `json:"rating" validate:"required,min=1,max=5"`
	Comment    string `json:"comment" validate:"max=1000"`
	AuthorName string `json:"author_name" validate:"required,max=50"`
}

// --- Handlers ---

// QueryReviews handles GET /rest/v1/reviews?field=eq.value&order=field.dir
// and responds with a bare JSON array.
func (h *ReviewHandler) QueryReviews(w http.ResponseWriter, r *http.Request) {
	filter := domain.ParseFilter(r.URL.Query())

	reviews, err := h.service.Query(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, reviews)
}

// SummarizeReviews handles GET /rest/v1/reviews/summary with the same filter
// parameters as QueryReviews.
func (h *ReviewHandler) SummarizeReviews(w http.ResponseWriter, r *http.Request) {
	filter := domain.ParseFilter(r.URL.Query())

	summary, err := h.service.Summary(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, summary)
}

// SubmitReview handles POST /rest/v1/reviews and responds 201 with the stored
// review.
func (h *ReviewHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req SubmitReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteErrorCode(w, r, http.StatusBadRequest, "INVALID_INPUT", "invalid request body: "+err.Error())
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	review, err := h.service.Submit(r.Context(), &service.SubmitInput{
		ShopID:     req.ShopID,
		ProductID:  req.ProductID,
		Rating:     req.Rating,
		Comment:    req.Comment,
		AuthorName: req.AuthorName,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, review)
}

// ListAllReviews handles GET /api/reviews.
func (h *ReviewHandler) ListAllReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, reviews)
}

// ApproveReview handles POST /api/reviews/{id}/approve.
func (h *ReviewHandler) ApproveReview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	review, err := h.service.Approve(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, review)
}
