// Package main implements a standalone seed script that populates a running
// review store with sample reviews through its REST API and approves a share
// of them through the admin endpoints.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/kudorimaru/bcart-review-app/pkg/httpclient"
)

// --------------------------------------------------------------------------
// Configuration helpers
// --------------------------------------------------------------------------

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

// --------------------------------------------------------------------------
// HTTP helpers
// --------------------------------------------------------------------------

// errRejected marks a 4xx from the store. The seed data is always valid, so
// a rejection means the script is misconfigured (wrong API key or URL).
var errRejected = errors.New("request rejected by review store")

type seeder struct {
	client  *httpclient.Client
	baseURL string
	apiKey  string
}

func (s *seeder) do(ctx context.Context, method, path string, body any, out any) error {
	req, err := httpclient.NewJSONRequest(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if s.apiKey != "" {
		req.Header.Set("apikey", s.apiKey)
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		err := httpclient.ParseResponseError(resp, "reviewstore")
		if httpclient.IsClientError(resp.StatusCode) {
			return fmt.Errorf("%w: %w", errRejected, err)
		}
		return err
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Seed data definitions
// --------------------------------------------------------------------------

type reviewDef struct {
	rating  int
	comment string
}

var authors = []string{
	"田中太郎", "佐藤花子", "鈴木一郎", "高橋美咲", "伊藤健", "渡辺さくら", "山本大輔", "中村あおい",
}

var templates = []reviewDef{
	{5, "とても良い商品でした。リピートします。"},
	{5, "期待以上の品質です。"},
	{4, "概ね満足しています。配送も早かったです。"},
	{4, "使いやすいです。"},
	{3, "普通です。価格相応だと思います。"},
	{3, ""},
	{2, "思っていたものと少し違いました。"},
	{1, "残念ながら初期不良でした。"},
}

type createdReview struct {
	ID string `json:"id"`
}

// --------------------------------------------------------------------------
// main
// --------------------------------------------------------------------------

func main() {
	log.SetFlags(log.Ltime | log.Lmsgprefix)
	log.SetPrefix("[seed] ")

	storeURL := getEnv("REVIEW_STORE_URL", "http://localhost:3000")
	shopID := getEnv("SEED_SHOP_ID", "test_shop_001")
	products := getEnvInt("SEED_PRODUCTS", 5)
	perProduct := getEnvInt("SEED_REVIEWS_PER_PRODUCT", 6)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	s := &seeder{
		client:  httpclient.New(httpclient.DefaultConfig()),
		baseURL: storeURL,
		apiKey:  os.Getenv("REVIEW_STORE_API_KEY"),
	}

	// ---------------------------------------------------------------
	// 1. Submit reviews
	// ---------------------------------------------------------------
	log.Printf("Seeding %d products x %d reviews for shop %s...", products, perProduct, shopID)

	var submitted, approved int
	for p := 0; p < products; p++ {
		productID := strconv.Itoa(12345 + p)

		for i := 0; i < perProduct; i++ {
			def := templates[rand.IntN(len(templates))]
			body := map[string]any{
				"shop_id":     shopID,
				"product_id":  productID,
				"rating":      def.rating,
				"comment":     def.comment,
				"author_name": authors[rand.IntN(len(authors))],
			}

			var created createdReview
			if err := s.do(ctx, http.MethodPost, "/rest/v1/reviews", body, &created); err != nil {
				if errors.Is(err, errRejected) {
					log.Fatalf("aborting: %v", err)
				}
				log.Printf("  WARNING: product %s review %d: %v", productID, i+1, err)
				continue
			}
			submitted++

			// -------------------------------------------------------
			// 2. Approve roughly two thirds of them
			// -------------------------------------------------------
			if rand.IntN(3) == 0 {
				continue
			}
			if err := s.do(ctx, http.MethodPost, "/api/reviews/"+created.ID+"/approve", nil, nil); err != nil {
				log.Printf("  WARNING: approve %s: %v", created.ID, err)
				continue
			}
			approved++
		}
		log.Printf("  Product %s done", productID)
	}

	log.Printf("Seed complete: %d submitted, %d approved.", submitted, approved)
}
