package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/pricepal/internal/models"
	"github.com/desertthunder/pricepal/internal/shared"
)

// ProductFetcher scrapes a product page through the backend.
type ProductFetcher interface {
	FetchProduct(ctx context.Context, amazonURL string) (*models.ProductSnapshot, error)
}

// ProductLookup turns a product link into a [models.ProductSnapshot].
type ProductLookup struct {
	backend ProductFetcher
	logger  *log.Logger

	inFlight atomic.Bool
	mu       sync.RWMutex
	current  *models.ProductSnapshot
}

// NewProductLookup creates a [ProductLookup] backed by backend.
func NewProductLookup(backend ProductFetcher, logger *log.Logger) *ProductLookup {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &ProductLookup{backend: backend, logger: logger}
}

// Fetch looks up the product at rawURL with a single backend request.
//
// Blank input fails validation without a request. A call made while another is in flight returns [shared.ErrBusy].
// Backend failures carry the backend's message; the previous snapshot is kept.
func (l *ProductLookup) Fetch(ctx context.Context, rawURL string) (*models.ProductSnapshot, error) {
	productURL := strings.TrimSpace(rawURL)
	if productURL == "" {
		return nil, shared.NewValidationError("amazon_url", shared.ErrEmptyProductURL, "")
	}

	if !l.inFlight.CompareAndSwap(false, true) {
		return nil, shared.ErrBusy
	}
	defer l.inFlight.Store(false)

	snap, err := l.backend.FetchProduct(ctx, productURL)
	if err != nil {
		if !errors.Is(err, shared.ErrLookupFailed) {
			err = fmt.Errorf("%w: %w", shared.ErrLookupFailed, err)
		}
		l.logger.Warn("product lookup failed", "url", productURL, "error", err)
		return nil, err
	}

	l.mu.Lock()
	l.current = snap
	l.mu.Unlock()

	l.logger.Info("product fetched", "asin", snap.ASIN, "price", snap.CurrentPrice)
	return snap, nil
}

// Current returns the last successfully fetched snapshot, or nil.
func (l *ProductLookup) Current() *models.ProductSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// Busy reports whether a lookup is in flight.
func (l *ProductLookup) Busy() bool {
	return l.inFlight.Load()
}
