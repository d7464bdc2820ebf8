package widget

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/kudorimaru/bcart-review-app/pkg/httpclient"
)

// maxResponseBytes caps how much of a store response is read.
const maxResponseBytes = 1 << 20

// StoreClient talks to the review store REST API. Requests carry the API
// key in both the apikey header and an Authorization bearer token.
type StoreClient struct {
	doer    httpclient.Doer
	baseURL string
	apiKey  string
}

// NewStoreClient creates a client for the store at settings.BaseURL. doer is
// normally a circuit-breaker wrapped httpclient.Client without retries.
func NewStoreClient(doer httpclient.Doer, settings Settings) *StoreClient {
	return &StoreClient{
		doer:    doer,
		baseURL: settings.BaseURL,
		apiKey:  settings.APIKey,
	}
}

// ApprovedReviews implements Store.
func (c *StoreClient) ApprovedReviews(ctx context.Context, shopID, productID string) ([]Review, error) {
	q := url.Values{}
	q.Set("shop_id", "eq."+shopID)
	q.Set("product_id", "eq."+productID)
	q.Set("status", "eq.approved")
	q.Set("order", "created_at.desc")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/rest/v1/reviews?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create reviews request: %w", err)
	}
	c.authorize(req)

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetch reviews: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch reviews: %w", httpclient.ParseResponseError(resp, "reviewstore"))
	}

	var reviews []Review
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&reviews); err != nil {
		return nil, fmt.Errorf("decode reviews: %w", err)
	}
	if reviews == nil {
		reviews = []Review{}
	}
	return reviews, nil
}

// Submit implements Store. Any 2xx response counts as success.
func (c *StoreClient) Submit(ctx context.Context, sub Submission) error {
	body, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rest/v1/reviews", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create submit request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("submit review: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("submit review: %w", httpclient.ParseResponseError(resp, "reviewstore"))
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	return nil
}

func (c *StoreClient) authorize(req *http.Request) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
}
