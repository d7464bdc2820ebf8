// Package widget implements the embeddable review widget: configuration
// resolution, product detection, the review store client, the controller
// state machine and HTML rendering.
package widget

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// DefaultContainerID is the id of the element the widget renders into.
const DefaultContainerID = "bcart-review-widget"

// ErrConfig marks missing or invalid widget settings. A widget with a
// configuration error is never created.
var ErrConfig = errors.New("widget configuration error")

// Settings is the widget configuration, resolved once from the embedding
// page and passed down unchanged.
type Settings struct {
	BaseURL     string
	APIKey      string
	ShopID      string
	ContainerID string

	// ProductHint is the strategy-specific product id fallback: a
	// data-product-id element or product:id meta tag for script-tag
	// embedding, the container's data-product-id for attribute embedding.
	ProductHint string
}

// Page describes the embedding storefront page as seen by the widget.
type Page struct {
	// URL is the storefront page location.
	URL *url.URL

	// Attributes are the data-* attributes of the script tag or container.
	Attributes map[string]string

	// ElementProductID is the data-product-id of an element elsewhere in the
	// page, if any.
	ElementProductID string

	// MetaProductID is the content of a meta[property="product:id"] tag.
	MetaProductID string
}

// Attr returns the trimmed attribute value, or "".
func (p Page) Attr(name string) string {
	if p.Attributes == nil {
		return ""
	}
	return strings.TrimSpace(p.Attributes[name])
}

// Validate reports every missing required setting as an ErrConfig.
func (s Settings) Validate() error {
	var missing []string
	if s.BaseURL == "" {
		missing = append(missing, "base URL")
	}
	if s.APIKey == "" {
		missing = append(missing, "API key")
	}
	if s.ShopID == "" {
		missing = append(missing, "shop id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrConfig, strings.Join(missing, ", "))
	}

	u, err := url.Parse(s.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: base URL %q must be an absolute http(s) URL", ErrConfig, s.BaseURL)
	}
	return nil
}

// Resolver is a configuration resolution strategy.
type Resolver interface {
	// Name identifies the strategy, e.g. "script" or "attribute".
	Name() string

	// Resolve reads Settings from the page. It returns an ErrConfig when a
	// required setting is missing.
	Resolve(page Page) (Settings, error)
}

// ScriptTagResolver reads the configuration from the script tag that loads
// the widget (widget v1).
type ScriptTagResolver struct{}

// Name implements Resolver.
func (ScriptTagResolver) Name() string { return "script" }

// Resolve implements Resolver.
func (ScriptTagResolver) Resolve(page Page) (Settings, error) {
	s := Settings{
		BaseURL:     strings.TrimRight(page.Attr("data-supabase-url"), "/"),
		APIKey:      page.Attr("data-supabase-anon-key"),
		ShopID:      page.Attr("data-shop-id"),
		ContainerID: page.Attr("data-container-id"),
	}
	if s.ContainerID == "" {
		s.ContainerID = DefaultContainerID
	}

	switch {
	case strings.TrimSpace(page.ElementProductID) != "":
		s.ProductHint = strings.TrimSpace(page.ElementProductID)
	case strings.TrimSpace(page.MetaProductID) != "":
		s.ProductHint = strings.TrimSpace(page.MetaProductID)
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// AttributeResolver reads the configuration from data-* attributes on the
// container element (widget v2).
type AttributeResolver struct{}

// Name implements Resolver.
func (AttributeResolver) Name() string { return "attribute" }

// Resolve implements Resolver.
func (AttributeResolver) Resolve(page Page) (Settings, error) {
	s := Settings{
		BaseURL:     strings.TrimRight(page.Attr("data-api-url"), "/"),
		APIKey:      page.Attr("data-api-key"),
		ShopID:      page.Attr("data-shop-id"),
		ContainerID: page.Attr("data-container-id"),
		ProductHint: page.Attr("data-product-id"),
	}
	if s.ContainerID == "" {
		s.ContainerID = DefaultContainerID
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// ResolverFor returns the strategy registered under name.
func ResolverFor(name string) (Resolver, error) {
	switch name {
	case "script":
		return ScriptTagResolver{}, nil
	case "attribute", "":
		return AttributeResolver{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown embedding mode %q", ErrConfig, name)
	}
}
