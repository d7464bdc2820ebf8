package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"
)

const (
	reviewStorePort = 3000
	widgetPort      = 8080
)

// baseURL returns the base URL for a service running on the given port.
func baseURL(port int) string {
	return fmt.Sprintf("http://localhost:%d", port)
}

// apiKey is the key the review store was started with, if any.
func apiKey() string {
	return os.Getenv("REVIEW_STORE_API_KEY")
}

// uniqueProductID generates a numeric product id to avoid test collisions.
func uniqueProductID() string {
	return fmt.Sprintf("%d%04d", time.Now().UnixNano()%1_000_000_000, rand.IntN(10000))
}

// skipIfNotRunning performs a quick health check against a service.
// If the service is unreachable, the test is skipped (not failed).
func skipIfNotRunning(t *testing.T, port int) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL(port) + "/health/live")
	if err != nil {
		t.Skipf("service on port %d not reachable (Docker not running?): %v", port, err)
	}
	resp.Body.Close()
}

// storeHeaders returns the REST authentication headers.
func storeHeaders() map[string]string {
	key := apiKey()
	if key == "" {
		return nil
	}
	return map[string]string{"apikey": key, "Authorization": "Bearer " + key}
}

// doRequest performs an HTTP request and returns the status code and raw body.
func doRequest(t *testing.T, method, target string, body io.Reader, contentType string, headers map[string]string) (int, []byte) {
	t.Helper()
	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequest(method, target, body)
	if err != nil {
		t.Fatalf("creating %s request for %s failed: %v", method, target, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, target, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response body failed: %v", err)
	}
	return resp.StatusCode, raw
}

// postJSON performs an HTTP POST request with a JSON body.
func postJSON(t *testing.T, target string, body any, headers map[string]string) (int, []byte) {
	t.Helper()
	jsonBytes, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshalling request body failed: %v", err)
	}
	return doRequest(t, http.MethodPost, target, bytes.NewReader(jsonBytes), "application/json", headers)
}

// postForm performs an HTTP POST request with a form-encoded body.
func postForm(t *testing.T, target string, form url.Values) (int, []byte) {
	t.Helper()
	return doRequest(t, http.MethodPost, target, strings.NewReader(form.Encode()),
		"application/x-www-form-urlencoded", nil)
}

// review mirrors the JSON shape served by the review store.
type review struct {
	ID         string `json:"id"`
	ShopID     string `json:"shop_id"`
	ProductID  string `json:"product_id"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment"`
	AuthorName string `json:"author_name"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
}

// decodeJSON decodes raw into v or fails the test.
func decodeJSON(t *testing.T, raw []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decoding %q failed: %v", string(raw), err)
	}
}

// requireStatus asserts that the HTTP status code matches the expected value.
func requireStatus(t *testing.T, got, want int, body []byte) {
	t.Helper()
	if got != want {
		t.Fatalf("expected status %d, got %d: %s", want, got, string(body))
	}
}

// submitReview creates a review and returns it.
func submitReview(t *testing.T, shopID, productID string, rating int, author, comment string) review {
	t.Helper()
	status, raw := postJSON(t, baseURL(reviewStorePort)+"/rest/v1/reviews", map[string]any{
		"shop_id":     shopID,
		"product_id":  productID,
		"rating":      rating,
		"comment":     comment,
		"author_name": author,
	}, storeHeaders())
	requireStatus(t, status, http.StatusCreated, raw)

	var r review
	decodeJSON(t, raw, &r)
	return r
}

// approveReview approves a review through the admin endpoint.
func approveReview(t *testing.T, id string) review {
	t.Helper()
	status, raw := doRequest(t, http.MethodPost, baseURL(reviewStorePort)+"/api/reviews/"+id+"/approve", nil, "", nil)
	requireStatus(t, status, http.StatusOK, raw)

	var r review
	decodeJSON(t, raw, &r)
	return r
}

// approvedReviews queries the approved reviews of a product, newest first.
func approvedReviews(t *testing.T, shopID, productID string) []review {
	t.Helper()
	q := url.Values{
		"shop_id":    {"eq." + shopID},
		"product_id": {"eq." + productID},
		"status":     {"eq.approved"},
		"order":      {"created_at.desc"},
	}
	status, raw := doRequest(t, http.MethodGet, baseURL(reviewStorePort)+"/rest/v1/reviews?"+q.Encode(), nil, "", storeHeaders())
	requireStatus(t, status, http.StatusOK, raw)

	var out []review
	decodeJSON(t, raw, &out)
	return out
}
