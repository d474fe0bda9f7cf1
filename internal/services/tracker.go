package services

import (
	"context"
	"fmt"
	"net/url"

	"github.com/desertthunder/pricepal/internal/models"
	"github.com/desertthunder/pricepal/internal/shared"
)

// Tracker is the typed client for the price tracker backend.
type Tracker struct {
	api *APIService
}

// NewTracker creates a [Tracker] on top of api.
func NewTracker(api *APIService) *Tracker {
	return &Tracker{api: api}
}

// FetchProduct asks the backend to scrape the product at amazonURL.
func (t *Tracker) FetchProduct(ctx context.Context, amazonURL string) (*models.ProductSnapshot, error) {
	resp, err := t.api.Post(ctx, "/price/fetch-product", "", map[string]string{"amazon_url": amazonURL})
	if err != nil {
		return nil, err
	}
	if err := expectOK(resp, shared.ErrLookupFailed); err != nil {
		return nil, err
	}

	var snapshot models.ProductSnapshot
	if err := resp.Decode(&snapshot); err != nil {
		return nil, err
	}
	if snapshot.AmazonURL == "" {
		snapshot.AmazonURL = amazonURL
	}
	return &snapshot, nil
}

// AddToCart registers a product for tracking at the given target price.
func (t *Tracker) AddToCart(ctx context.Context, token string, req models.TrackingRequest) error {
	resp, err := t.api.Post(ctx, "/price/add-to-cart", token, req)
	if err != nil {
		return err
	}
	return expectOK(resp, shared.ErrTrackingFailed)
}

// SendTrackingEmail asks the backend to email a "tracking started" confirmation.
func (t *Tracker) SendTrackingEmail(ctx context.Context, notice models.TrackingNotice) error {
	resp, err := t.api.Post(ctx, "/auth/send-tracking-email", "", notice)
	if err != nil {
		return err
	}
	return expectOK(resp, shared.ErrAPIRequest)
}

// SendLoginEmail asks the backend to email a welcome message to a new account.
func (t *Tracker) SendLoginEmail(ctx context.Context, notice models.WelcomeNotice) error {
	resp, err := t.api.Post(ctx, "/auth/send-login-email", "", notice)
	if err != nil {
		return err
	}
	return expectOK(resp, shared.ErrAPIRequest)
}

// GetCart fetches the authenticated user's tracked products.
func (t *Tracker) GetCart(ctx context.Context, token string) (*models.CartSummary, error) {
	resp, err := t.api.Get(ctx, "/api/user/cart", token)
	if err != nil {
		return nil, err
	}
	if err := expectOK(resp, shared.ErrFetchFailed); err != nil {
		return nil, err
	}

	var summary models.CartSummary
	if err := resp.Decode(&summary); err != nil {
		return nil, err
	}
	if summary.Products == nil {
		summary.Products = []models.TrackedProduct{}
	}
	return &summary, nil
}

// RemoveFromCart deletes a tracked product by id.
func (t *Tracker) RemoveFromCart(ctx context.Context, token, id string) error {
	resp, err := t.api.Delete(ctx, "/api/user/cart/"+url.PathEscape(id), token)
	if err != nil {
		return err
	}
	return expectOK(resp, shared.ErrRemovalFailed)
}

// UpdateProfile changes the user's name and/or email.
func (t *Tracker) UpdateProfile(ctx context.Context, token string, profile models.Profile) error {
	resp, err := t.api.Put(ctx, "/api/user/profile", token, profile)
	if err != nil {
		return err
	}
	return expectOK(resp, shared.ErrProfileFailed)
}

// GetStats fetches account-wide counters.
func (t *Tracker) GetStats(ctx context.Context, token string) (*models.UserStats, error) {
	resp, err := t.api.Get(ctx, "/api/stats", token)
	if err != nil {
		return nil, err
	}
	if err := expectOK(resp, shared.ErrStatsFailed); err != nil {
		return nil, err
	}

	var stats models.UserStats
	if err := resp.Decode(&stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Health returns the backend's reported status.
func (t *Tracker) Health(ctx context.Context) (string, error) {
	resp, err := t.api.Get(ctx, "/health", "")
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	if err := expectOK(resp, shared.ErrServiceUnavailable); err != nil {
		return "", err
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := resp.Decode(&body); err != nil || body.Status == "" {
		return "unknown", nil
	}
	return body.Status, nil
}

// expectOK converts a non-2xx response into a [shared.APIError] of the given kind.
func expectOK(resp *APIResponse, kind error) error {
	if resp.OK() {
		return nil
	}
	return &shared.APIError{Kind: kind, StatusCode: resp.StatusCode, Detail: resp.Detail()}
}
