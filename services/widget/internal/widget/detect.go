package widget

import (
	"net/url"
	"regexp"
)

var productPathPattern = regexp.MustCompile(`/products?/(\d+)`)

// DetectProductID resolves the product shown on the page in priority order:
// a /products/<digits> or /product/<digits> path segment, then the
// product_id and id query parameters, then hint. It returns "" when none
// applies.
func DetectProductID(page *url.URL, hint string) string {
	if page != nil {
		if m := productPathPattern.FindStringSubmatch(page.Path); m != nil {
			return m[1]
		}

		q := page.Query()
		if v := q.Get("product_id"); v != "" {
			return v
		}
		if v := q.Get("id"); v != "" {
			return v
		}
	}
	return hint
}
