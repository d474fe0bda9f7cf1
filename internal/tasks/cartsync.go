package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/pricepal/internal/models"
	"github.com/desertthunder/pricepal/internal/session"
	"github.com/desertthunder/pricepal/internal/shared"
)

// CartClient reads and edits the user's tracked products.
type CartClient interface {
	GetCart(ctx context.Context, token string) (*models.CartSummary, error)
	RemoveFromCart(ctx context.Context, token, id string) error
}

// CartCacher persists fetched carts for offline viewing.
//
// Implemented by repositories.CartSnapshotRepository. Caching errors are logged and never fail a fetch.
type CartCacher interface {
	Replace(ctx context.Context, userID string, summary *models.CartSummary) error
	Load(ctx context.Context, userID string) (*models.CartSummary, time.Time, error)
	Clear(ctx context.Context, userID string) error
}

// CartSync keeps a client-side copy of the user's cart in step with the backend.
type CartSync struct {
	session session.Reader
	backend CartClient
	cache   CartCacher
	logger  *log.Logger

	mu      sync.RWMutex
	summary *models.CartSummary
}

// NewCartSync creates a [CartSync]. cache may be nil.
func NewCartSync(sess session.Reader, backend CartClient, cache CartCacher, logger *log.Logger) *CartSync {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &CartSync{session: sess, backend: backend, cache: cache, logger: logger}
}

// Fetch replaces the cached summary with the backend's current cart.
//
// On failure the previous summary is kept.
func (c *CartSync) Fetch(ctx context.Context) (*models.CartSummary, error) {
	sess := c.session.Current()
	if !sess.IsAuthenticated() {
		return nil, shared.ErrNotAuthenticated
	}

	token, err := c.session.Token(ctx)
	if err != nil {
		return nil, err
	}

	summary, err := c.backend.GetCart(ctx, token)
	if err != nil {
		if !errors.Is(err, shared.ErrFetchFailed) {
			err = fmt.Errorf("%w: %w", shared.ErrFetchFailed, err)
		}
		c.logger.Warn("cart fetch failed", "error", err)
		return nil, err
	}

	c.mu.Lock()
	c.summary = summary
	c.mu.Unlock()

	c.logger.Debug("cart fetched", "total", summary.TotalProducts, "active", summary.ActiveProducts)

	if c.cache != nil {
		if err := c.cache.Replace(ctx, sess.User.UID, summary); err != nil {
			c.logger.Warn("failed to cache cart", "error", err)
		}
	}
	return summary, nil
}

// Refresh is [CartSync.Fetch] without the summary, suitable for [SubmitterOpts.OnDone].
func (c *CartSync) Refresh(ctx context.Context) error {
	_, err := c.Fetch(ctx)
	return err
}

// Remove stops tracking the product with the given id and then refetches the cart once.
//
// When the removal fails nothing is refetched and the cached summary is untouched.
// When the refetch fails its error is returned, though the product was removed.
func (c *CartSync) Remove(ctx context.Context, id string) (*models.CartSummary, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, shared.NewValidationError("id", shared.ErrMissingArgument, "product id is required")
	}
	if !c.session.Current().IsAuthenticated() {
		return nil, shared.ErrNotAuthenticated
	}

	token, err := c.session.Token(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.backend.RemoveFromCart(ctx, token, id); err != nil {
		if !errors.Is(err, shared.ErrRemovalFailed) {
			err = fmt.Errorf("%w: %w", shared.ErrRemovalFailed, err)
		}
		c.logger.Warn("cart removal failed", "id", id, "error", err)
		return nil, err
	}
	c.logger.Info("product removed", "id", id)

	return c.Fetch(ctx)
}

// Summary returns the last successfully fetched summary, or nil.
func (c *CartSync) Summary() *models.CartSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.summary
}

// Forget drops the in-memory summary and the persisted cart of userID.
func (c *CartSync) Forget(ctx context.Context, userID string) error {
	c.mu.Lock()
	c.summary = nil
	c.mu.Unlock()

	if c.cache == nil || userID == "" {
		return nil
	}
	if err := c.cache.Clear(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear cached cart: %w", err)
	}
	return nil
}

// Cached returns the cart persisted by the last successful fetch for the current user.
func (c *CartSync) Cached(ctx context.Context) (*models.CartSummary, time.Time, error) {
	if c.cache == nil {
		return nil, time.Time{}, fmt.Errorf("%w: no cart cache configured", shared.ErrNoRecord)
	}
	sess := c.session.Current()
	if !sess.IsAuthenticated() {
		return nil, time.Time{}, shared.ErrNotAuthenticated
	}
	return c.cache.Load(ctx, sess.User.UID)
}
