package widget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"
)

// State is a widget controller state.
type State int

const (
	StateLoading State = iota
	StateLoaded
	StateSubmitting
	StateSuccess
	StateSubmitError
	StateUnavailable
	StateLoadFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateSubmitting:
		return "submitting"
	case StateSuccess:
		return "success"
	case StateSubmitError:
		return "submit_error"
	case StateUnavailable:
		return "unavailable"
	case StateLoadFailed:
		return "load_failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends the widget's lifecycle.
func (s State) Terminal() bool {
	return s == StateUnavailable || s == StateLoadFailed
}

var (
	// ErrSubmitInProgress rejects a submission while another is in flight.
	ErrSubmitInProgress = errors.New("a submission is already in progress")

	// ErrNotReady rejects operations the current state does not allow.
	ErrNotReady = errors.New("widget is not ready")
)

// Notice is the inline message shown under the form.
type Notice int

const (
	NoticeNone Notice = iota
	NoticeValidation
	NoticeSuccess
	NoticeError
)

// FormInput holds the raw values of the review form.
type FormInput struct {
	Rating  string
	Author  string
	Comment string
}

// View is an immutable snapshot of the controller for rendering.
type View struct {
	Settings  Settings
	ProductID string
	State     State
	Reviews   []Review
	Form      FormInput
	Notice    Notice
}

// Controller drives one widget instance through its lifecycle.
type Controller struct {
	settings Settings
	page     *url.URL
	store    Store
	logger   *slog.Logger

	mu        sync.Mutex
	state     State
	productID string
	reviews   []Review
	form      FormInput
	notice    Notice
}

// NewController creates a controller for a validated configuration. A
// configuration error is returned, and no controller created, when required
// settings are missing.
func NewController(settings Settings, page *url.URL, store Store, logger *slog.Logger) (*Controller, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if settings.ContainerID == "" {
		settings.ContainerID = DefaultContainerID
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		settings: settings,
		page:     page,
		store:    store,
		logger:   logger,
		state:    StateLoading,
	}, nil
}

// Load detects the product and fetches its approved reviews. The resulting
// state is Loaded, Unavailable or LoadFailed. Load runs once; later calls
// return the current state.
func (c *Controller) Load(ctx context.Context) State {
	if !c.detect(ctx) {
		return c.State()
	}

	reviews, err := c.store.ApprovedReviews(ctx, c.settings.ShopID, c.productID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.logger.ErrorContext(ctx, "failed to load reviews",
			slog.String("product_id", c.productID),
			slog.String("error", err.Error()),
		)
		c.state = StateLoadFailed
		return c.state
	}

	c.reviews = reviews
	c.state = StateLoaded
	return c.state
}

// Resume enters Loaded without fetching, for a widget whose list is already
// on the page and only the form is being re-rendered. The product must still
// be detectable, otherwise the state is Unavailable.
func (c *Controller) Resume(ctx context.Context) State {
	if !c.detect(ctx) {
		return c.State()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateLoaded
	return c.state
}

// detect resolves the product once. It reports false when Load/Resume should
// stop: the product is unknown or the controller already left Loading.
func (c *Controller) detect(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateLoading || c.productID != "" {
		return false
	}

	c.productID = DetectProductID(c.page, c.settings.ProductHint)
	if c.productID == "" {
		c.logger.WarnContext(ctx, "could not detect product id")
		c.state = StateUnavailable
		return false
	}
	return true
}

// Submit validates the form and sends the review to the store. A validation
// failure keeps the controller in Loaded with an inline message and makes no
// network call. On success the inputs are cleared and the list is left as
// is; on failure the inputs are kept so the user can retry.
func (c *Controller) Submit(ctx context.Context, in FormInput) (State, error) {
	c.mu.Lock()
	switch c.state {
	case StateSubmitting:
		c.mu.Unlock()
		return StateSubmitting, ErrSubmitInProgress
	case StateLoaded, StateSuccess, StateSubmitError:
	default:
		st := c.state
		c.mu.Unlock()
		return st, fmt.Errorf("%w: cannot submit in state %s", ErrNotReady, st)
	}

	in = FormInput{
		Rating:  strings.TrimSpace(in.Rating),
		Author:  strings.TrimSpace(in.Author),
		Comment: strings.TrimSpace(in.Comment),
	}
	c.form = in

	rating, ok := parseRating(in.Rating)
	if !ok || in.Author == "" {
		c.state = StateLoaded
		c.notice = NoticeValidation
		c.mu.Unlock()
		return StateLoaded, nil
	}

	c.state = StateSubmitting
	c.notice = NoticeNone
	sub := Submission{
		ShopID:     c.settings.ShopID,
		ProductID:  c.productID,
		Rating:     rating,
		Comment:    in.Comment,
		AuthorName: in.Author,
		Status:     "pending",
	}
	c.mu.Unlock()

	err := c.store.Submit(ctx, sub)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.logger.ErrorContext(ctx, "failed to submit review",
			slog.String("product_id", sub.ProductID),
			slog.String("error", err.Error()),
		)
		c.state = StateSubmitError
		c.notice = NoticeError
		return c.state, nil
	}

	c.logger.InfoContext(ctx, "review submitted",
		slog.String("product_id", sub.ProductID),
		slog.Int("rating", sub.Rating),
	)
	c.state = StateSuccess
	c.notice = NoticeSuccess
	c.form = FormInput{}
	return c.state, nil
}

// parseRating accepts exactly one of the five star values.
func parseRating(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 5 {
		return 0, false
	}
	return n, true
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// View returns a snapshot for rendering.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	reviews := make([]Review, len(c.reviews))
	copy(reviews, c.reviews)

	return View{
		Settings:  c.settings,
		ProductID: c.productID,
		State:     c.state,
		Reviews:   reviews,
		Form:      c.form,
		Notice:    c.notice,
	}
}
