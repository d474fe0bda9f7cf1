package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/pricepal/internal/models"
	"github.com/desertthunder/pricepal/internal/session"
	"github.com/desertthunder/pricepal/internal/shared"
)

// TrackingClient registers products for tracking and sends the confirmation email.
type TrackingClient interface {
	AddToCart(ctx context.Context, token string, req models.TrackingRequest) error
	SendTrackingEmail(ctx context.Context, notice models.TrackingNotice) error
}

// Dispatcher runs fire-and-forget work off the caller's path. [Notifier] implements it.
type Dispatcher interface {
	Go(name string, fn func(ctx context.Context) error)
}

// TrackingResult describes a product that is now being tracked.
type TrackingResult struct {
	Product     *models.ProductSnapshot
	TargetPrice float64
	Savings     float64
	// Refreshed reports whether the OnDone callback ran and succeeded.
	Refreshed bool
}

// SubmitterOpts configures a [TrackingSubmitter]. All fields are optional.
type SubmitterOpts struct {
	// Notifier runs the confirmation email. Without one the email is sent inline and its error only logged.
	Notifier Dispatcher
	// OnDone runs after every successful submission, typically [CartSync.Fetch].
	OnDone func(ctx context.Context) error
	Logger *log.Logger
}

// TrackingSubmitter validates a target price and registers the product for tracking.
type TrackingSubmitter struct {
	session  session.Reader
	backend  TrackingClient
	notifier Dispatcher
	onDone   func(ctx context.Context) error
	logger   *log.Logger

	inFlight atomic.Bool
}

// NewTrackingSubmitter creates a [TrackingSubmitter].
func NewTrackingSubmitter(sess session.Reader, backend TrackingClient, opts SubmitterOpts) *TrackingSubmitter {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &TrackingSubmitter{
		session:  sess,
		backend:  backend,
		notifier: opts.Notifier,
		onDone:   opts.OnDone,
		logger:   opts.Logger,
	}
}

// Submit tracks snap at the target price typed as rawTarget.
//
// Progress moves Validating, Submitting, Notifying and ends in Done or Failed. A missing session goes straight
// to Failed; an invalid target fails after Validating. Neither sends a request. Once the backend accepts the product the outcome is Done, whatever happens to
// the confirmation email or the OnDone callback.
func (s *TrackingSubmitter) Submit(ctx context.Context, progress chan<- ProgressUpdate, snap *models.ProductSnapshot, rawTarget string) (*TrackingResult, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, shared.ErrBusy
	}
	defer s.inFlight.Store(false)

	fail := func(err error) (*TrackingResult, error) {
		sendProgress(progress, failedUpdate(err))
		return nil, err
	}

	sess := s.session.Current()
	if !sess.IsAuthenticated() {
		return fail(shared.ErrNotAuthenticated)
	}

	sendProgress(progress, validatingUpdate(rawTarget))
	if snap == nil || snap.AmazonURL == "" {
		return fail(shared.NewValidationError("product", shared.ErrMissingArgument, "look up a product first"))
	}

	target, err := CheckTargetPrice(rawTarget, snap.CurrentPrice)
	if err != nil {
		return fail(err)
	}

	token, err := s.session.Token(ctx)
	if err != nil {
		return fail(err)
	}

	sendProgress(progress, submittingUpdate(snap, target))
	req := models.TrackingRequest{AmazonURL: snap.AmazonURL, TargetPrice: target}
	if err := s.backend.AddToCart(ctx, token, req); err != nil {
		if !errors.Is(err, shared.ErrTrackingFailed) {
			err = fmt.Errorf("%w: %w", shared.ErrTrackingFailed, err)
		}
		s.logger.Warn("add to cart failed", "asin", snap.ASIN, "error", err)
		return fail(err)
	}
	s.logger.Info("tracking started", "asin", snap.ASIN, "target", target)

	sendProgress(progress, notifyingUpdate(sess.User.Email))
	s.notify(models.TrackingNotice{
		Email:        sess.User.Email,
		Name:         sess.User.Name,
		ProductName:  snap.ProductName,
		CurrentPrice: snap.CurrentPrice,
		TargetPrice:  target,
		ImageURL:     snap.ImageURL,
		AmazonURL:    snap.AmazonURL,
	})

	res := &TrackingResult{Product: snap, TargetPrice: target, Savings: Savings(snap.CurrentPrice, target)}
	if s.onDone != nil {
		if err := s.onDone(ctx); err != nil {
			s.logger.Warn("post-submit refresh failed", "error", err)
		} else {
			res.Refreshed = true
		}
	}

	sendProgress(progress, doneUpdate(res))
	return res, nil
}

// Busy reports whether a submission is in flight.
func (s *TrackingSubmitter) Busy() bool {
	return s.inFlight.Load()
}

func (s *TrackingSubmitter) notify(notice models.TrackingNotice) {
	send := func(ctx context.Context) error {
		return s.backend.SendTrackingEmail(ctx, notice)
	}
	if s.notifier != nil {
		s.notifier.Go("tracking email", send)
		return
	}
	if err := send(context.Background()); err != nil {
		s.logger.Warn("failed to send tracking email", "email", notice.Email, "error", err)
	}
}
