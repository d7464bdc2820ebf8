package http

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/kudorimaru/bcart-review-app/pkg/httpclient"
	"github.com/kudorimaru/bcart-review-app/pkg/httputil"
	pkglogger "github.com/kudorimaru/bcart-review-app/pkg/logger"
	"github.com/kudorimaru/bcart-review-app/services/widget/internal/widget"
)

//go:embed widget.js
var loaderScript []byte

// maxFormBytes caps form posts.
const maxFormBytes = 64 << 10

// Embedding parameters read from the query string or form.
const (
	paramMode          = "mode"
	paramPageURL       = "page_url"
	paramPageProductID = "page_product_id"
	paramMetaProductID = "meta_product_id"
	attrPrefix         = "data-"
)

// submitPath is where the rendered form posts, relative to the public URL.
const submitPath = "/embed/reviews"

// errStoreHostNotAllowed rejects a configured store outside the allowlist.
var errStoreHostNotAllowed = errors.New("review store host is not allowed")

// StoreFactory builds the review store client for resolved settings.
type StoreFactory func(settings widget.Settings) widget.Store

// EmbedConfig holds the embedding settings of the widget service.
type EmbedConfig struct {
	// PublicURL is the absolute base URL browsers reach this service at. The
	// rendered form posts to it, since the widget lives on the storefront's
	// origin.
	PublicURL string

	// AllowedStoreHosts restricts the review stores the widget talks to.
	// Empty accepts any host.
	AllowedStoreHosts []string
}

// EmbedHandler serves the server-rendered widget.
type EmbedHandler struct {
	stores       StoreFactory
	renderer     *widget.Renderer
	allowedHosts []string
	submitURL    string
	logger       *slog.Logger
}

// NewEmbedHandler creates a new embed handler.
func NewEmbedHandler(stores StoreFactory, renderer *widget.Renderer, cfg EmbedConfig, logger *slog.Logger) *EmbedHandler {
	return &EmbedHandler{
		stores:       stores,
		renderer:     renderer,
		allowedHosts: cfg.AllowedStoreHosts,
		submitURL:    strings.TrimRight(cfg.PublicURL, "/") + submitPath,
		logger:       logger,
	}
}

// HTTPStoreFactory returns a factory of store clients sharing doer.
func HTTPStoreFactory(doer httpclient.Doer) StoreFactory {
	return func(settings widget.Settings) widget.Store {
		return widget.NewStoreClient(doer, settings)
	}
}

// Embed handles GET /embed and renders the whole widget.
func (h *EmbedHandler) Embed(w http.ResponseWriter, r *http.Request) {
	params := embedParams(r.URL.Query())

	ctrl, ok := h.controller(w, r, params)
	if !ok {
		return
	}
	ctrl.Load(r.Context())

	var buf bytes.Buffer
	if err := h.renderer.RenderWidget(&buf, ctrl.View(), h.target(params)); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeHTML(w, http.StatusOK, buf.Bytes())
}

// SubmitReview handles POST /embed/reviews and renders the form fragment
// with the submission result.
func (h *EmbedHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		httputil.WriteErrorCode(w, r, http.StatusBadRequest, "INVALID_INPUT", "invalid form body")
		return
	}
	params := embedParams(r.PostForm)
	r = withFormShopID(r, params, h.logger)

	ctrl, ok := h.controller(w, r, params)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if state := ctrl.Resume(r.Context()); state.Terminal() {
		if err := h.renderer.RenderWidget(&buf, ctrl.View(), h.target(params)); err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		writeHTML(w, http.StatusOK, buf.Bytes())
		return
	}

	if _, err := ctrl.Submit(r.Context(), widget.FormInput{
		Rating:  r.PostForm.Get("rating"),
		Author:  r.PostForm.Get("author"),
		Comment: r.PostForm.Get("comment"),
	}); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := h.renderer.RenderForm(&buf, ctrl.View(), h.target(params)); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeHTML(w, http.StatusOK, buf.Bytes())
}

// Loader handles GET /widget.js: the script storefronts include to mount
// the widget and submit the form without leaving the page.
func (h *EmbedHandler) Loader(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(loaderScript)
}

// Stylesheet handles GET /widget.css.
func (h *EmbedHandler) Stylesheet(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(widget.Stylesheet))
}

// controller resolves the settings and creates a controller. Configuration
// errors are logged and answered with 400.
func (h *EmbedHandler) controller(w http.ResponseWriter, r *http.Request, params url.Values) (*widget.Controller, bool) {
	logger := pkglogger.WithContext(r.Context(), h.logger)

	page, err := pageFromParams(params)
	if err != nil {
		httputil.WriteErrorCode(w, r, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return nil, false
	}

	resolver, err := widget.ResolverFor(params.Get(paramMode))
	if err == nil {
		var settings widget.Settings
		settings, err = resolver.Resolve(page)
		if err == nil {
			err = h.checkHost(settings.BaseURL)
		}
		if err == nil {
			var ctrl *widget.Controller
			ctrl, err = widget.NewController(settings, page.URL, h.stores(settings), logger)
			if err == nil {
				return ctrl, true
			}
		}
	}

	logger.WarnContext(r.Context(), "widget configuration error",
		slog.String("mode", params.Get(paramMode)),
		slog.String("error", err.Error()),
	)
	httputil.WriteErrorCode(w, r, http.StatusBadRequest, "INVALID_CONFIG", err.Error())
	return nil, false
}

func (h *EmbedHandler) checkHost(baseURL string) error {
	if len(h.allowedHosts) == 0 {
		return nil
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("%w: %w", widget.ErrConfig, err)
	}
	if !slices.Contains(h.allowedHosts, strings.ToLower(u.Host)) {
		return fmt.Errorf("%w: %w: %s", widget.ErrConfig, errStoreHostNotAllowed, u.Host)
	}
	return nil
}

func (h *EmbedHandler) target(params url.Values) widget.FormTarget {
	return widget.FormTarget{Action: h.submitURL, Hidden: params}
}

// withFormShopID scopes the request logger to the shop named in a posted
// form. GET requests get it from the query string in RequestLogger.
func withFormShopID(r *http.Request, params url.Values, base *slog.Logger) *http.Request {
	id := strings.TrimSpace(params.Get(attrPrefix + "shop-id"))
	if id == "" {
		return r
	}
	ctx := pkglogger.WithShopID(r.Context(), id)
	return r.WithContext(pkglogger.NewContext(ctx, pkglogger.WithContext(ctx, base)))
}

// embedParams keeps the embedding parameters and data-* attributes.
func embedParams(values url.Values) url.Values {
	params := url.Values{}
	for name, vs := range values {
		if len(vs) == 0 {
			continue
		}
		switch {
		case name == paramMode, name == paramPageURL, name == paramPageProductID, name == paramMetaProductID,
			strings.HasPrefix(name, attrPrefix):
			params.Set(name, vs[0])
		}
	}
	return params
}

func pageFromParams(params url.Values) (widget.Page, error) {
	page := widget.Page{
		Attributes:       map[string]string{},
		ElementProductID: params.Get(paramPageProductID),
		MetaProductID:    params.Get(paramMetaProductID),
	}
	if raw := params.Get(paramPageURL); raw != "" {
		u, err := url.Parse(raw)
		if err != nil {
			return widget.Page{}, fmt.Errorf("invalid %s: %w", paramPageURL, err)
		}
		page.URL = u
	}
	for name := range params {
		if strings.HasPrefix(name, attrPrefix) {
			page.Attributes[name] = params.Get(name)
		}
	}
	return page, nil
}

func writeHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
