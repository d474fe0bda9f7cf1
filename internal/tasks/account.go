package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/pricepal/internal/models"
	"github.com/desertthunder/pricepal/internal/session"
	"github.com/desertthunder/pricepal/internal/shared"
)

// AccountClient edits the profile and reads account statistics.
type AccountClient interface {
	UpdateProfile(ctx context.Context, token string, profile models.Profile) error
	GetStats(ctx context.Context, token string) (*models.UserStats, error)
}

// Account exposes profile and statistics operations for the signed-in user.
type Account struct {
	session session.Reader
	backend AccountClient
}

func NewAccount(sess session.Reader, backend AccountClient) *Account {
	return &Account{session: sess, backend: backend}
}

// UpdateProfile changes the name and/or email. Blank fields are left as they are.
func (a *Account) UpdateProfile(ctx context.Context, name, email string) error {
	profile := models.Profile{Name: strings.TrimSpace(name), Email: strings.TrimSpace(email)}
	if profile.Name == "" && profile.Email == "" {
		return shared.NewValidationError("profile", shared.ErrMissingArgument, "a name or email is required")
	}

	token, err := a.token(ctx)
	if err != nil {
		return err
	}

	if err := a.backend.UpdateProfile(ctx, token, profile); err != nil {
		if !errors.Is(err, shared.ErrProfileFailed) {
			err = fmt.Errorf("%w: %w", shared.ErrProfileFailed, err)
		}
		return err
	}
	return nil
}

// Stats fetches account-wide counters.
func (a *Account) Stats(ctx context.Context) (*models.UserStats, error) {
	token, err := a.token(ctx)
	if err != nil {
		return nil, err
	}

	stats, err := a.backend.GetStats(ctx, token)
	if err != nil {
		if !errors.Is(err, shared.ErrStatsFailed) {
			err = fmt.Errorf("%w: %w", shared.ErrStatsFailed, err)
		}
		return nil, err
	}
	return stats, nil
}

func (a *Account) token(ctx context.Context) (string, error) {
	if !a.session.Current().IsAuthenticated() {
		return "", shared.ErrNotAuthenticated
	}
	return a.session.Token(ctx)
}
