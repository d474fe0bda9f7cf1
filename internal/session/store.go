package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/pricepal/internal/identity"
	"github.com/desertthunder/pricepal/internal/models"
	"github.com/desertthunder/pricepal/internal/shared"
	"golang.org/x/oauth2"
)

// Reader is the read-only view of the session handed to other components.
type Reader interface {
	// Current returns a copy of the session, or nil when logged out.
	Current() *models.Session
	// Token returns a bearer token valid at the point of use.
	Token(ctx context.Context) (string, error)
}

// WelcomeSender delivers the signup notification.
type WelcomeSender interface {
	SendLoginEmail(ctx context.Context, notice models.WelcomeNotice) error
}

// Dispatcher runs fire-and-forget work off the caller's path.
type Dispatcher interface {
	Go(name string, fn func(ctx context.Context) error)
}

// Options configures a [Store]. Persister, Welcome and Dispatcher are optional; without a Persister the session lives in memory only.
type Options struct {
	Persister  Persister
	Welcome    WelcomeSender
	Dispatcher Dispatcher
	Record     string
	Logger     *log.Logger
}

// Store owns the session and is its only writer.
type Store struct {
	mu      sync.RWMutex
	current *models.Session
	// refreshMu serializes token refreshes so readers never wait on the network.
	refreshMu sync.Mutex

	provider   identity.Provider
	persister  Persister
	welcome    WelcomeSender
	dispatcher Dispatcher
	record     string
	logger     *log.Logger
}

var _ Reader = (*Store)(nil)

// NewStore creates an empty, logged-out store.
func NewStore(provider identity.Provider, opts Options) *Store {
	if opts.Record == "" {
		opts.Record = DefaultRecord
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Persister == nil {
		opts.Persister = NewMemoryPersister()
	}
	return &Store{
		provider:   provider,
		persister:  opts.Persister,
		welcome:    opts.Welcome,
		dispatcher: opts.Dispatcher,
		record:     opts.Record,
		logger:     opts.Logger,
	}
}

// Open creates a store and rehydrates any persisted session.
func Open(ctx context.Context, provider identity.Provider, opts Options) (*Store, error) {
	s := NewStore(provider, opts)
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Load replaces the in-memory session with the persisted one.
//
// Records that cannot be read or migrated are discarded with a warning.
func (s *Store) Load(ctx context.Context) error {
	rec, err := s.persister.Load(ctx, s.record)
	if errors.Is(err, shared.ErrNoRecord) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	sess, err := decodeRecord(rec)
	if err != nil {
		s.logger.Warn("discarding persisted session", "record", s.record, "version", rec.Version, "error", err)
		if err := s.persister.Delete(ctx, s.record); err != nil {
			s.logger.Error("failed to delete persisted session", "error", err)
		}
		return nil
	}

	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()

	if sess != nil {
		s.logger.Debug("session restored", "uid", sess.User.UID, "version", rec.Version)
	}
	return nil
}

func decodeRecord(rec *models.LocalRecord) (*models.Session, error) {
	payload, err := upgrade(rec.Version, rec.Payload)
	if err != nil {
		return nil, err
	}

	var sess models.Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, fmt.Errorf("malformed session: %w", err)
	}
	if !sess.IsAuthenticated() {
		return nil, nil
	}
	if sess.Expiry.IsZero() {
		if claims, err := identity.ParseClaims(sess.Token); err == nil {
			sess.Expiry = claims.Expiry()
		}
	}
	return &sess, nil
}

// Current returns a copy of the session, or nil when logged out.
func (s *Store) Current() *models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Token returns the session's ID token, refreshing it first when it has expired.
//
// A refreshed token is written back to the persisted record.
func (s *Store) Token(ctx context.Context) (string, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	s.mu.RLock()
	cur := s.current.Clone()
	s.mu.RUnlock()
	if !cur.IsAuthenticated() {
		return "", shared.ErrNotAuthenticated
	}

	tok := &oauth2.Token{
		AccessToken:  cur.Token,
		TokenType:    "Bearer",
		RefreshToken: cur.RefreshToken,
		Expiry:       cur.Expiry,
	}
	fresh, err := s.provider.TokenSource(ctx, tok).Token()
	if err != nil {
		return "", err
	}

	id := identity.IDToken(fresh)
	if id == cur.Token {
		return id, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current.IsAuthenticated() || s.current.User.UID != cur.User.UID {
		return "", shared.ErrNotAuthenticated
	}
	s.current.Token = id
	s.current.Expiry = fresh.Expiry
	if fresh.RefreshToken != "" {
		s.current.RefreshToken = fresh.RefreshToken
	}
	s.logger.Debug("token refreshed", "uid", s.current.User.UID, "expiry", fresh.Expiry)

	if err := s.persistLocked(ctx); err != nil {
		s.logger.Warn("failed to persist refreshed token", "error", err)
	}
	return id, nil
}

// LoginWithEmail signs in and replaces the session.
//
// Provider failures come back as [shared.AuthError] carrying the provider's message and are not retried.
func (s *Store) LoginWithEmail(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return shared.NewValidationError("credentials", shared.ErrMissingArgument, "email and password are required")
	}

	cred, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return err
	}

	return s.set(ctx, fromCredential(cred, cred.DisplayName))
}

// SignupWithEmail creates an account named name and replaces the session.
//
// When the provider reports the account as new, a welcome notification is sent best-effort.
func (s *Store) SignupWithEmail(ctx context.Context, name, email, password string) error {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return shared.NewValidationError("credentials", shared.ErrMissingArgument, "name, email and password are required")
	}

	cred, err := s.provider.SignUp(ctx, email, password, name)
	if err != nil {
		return err
	}

	sess := fromCredential(cred, name)
	if err := s.set(ctx, sess); err != nil {
		return err
	}

	if cred.IsNewUser() {
		s.sendWelcome(models.WelcomeNotice{Email: sess.User.Email, Name: name})
	}
	return nil
}

// Logout signs out of the provider and clears the session and its persisted record.
//
// Local state is cleared even when the provider call fails; that failure is logged and returned.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	refresh := ""
	if s.current != nil {
		refresh = s.current.RefreshToken
	}
	s.current = nil
	s.mu.Unlock()

	var errs []error
	if err := s.provider.SignOut(ctx, refresh); err != nil {
		s.logger.Warn("provider sign out failed, local session cleared anyway", "error", err)
		errs = append(errs, fmt.Errorf("sign out: %w", err))
	}

	if err := s.persister.Delete(context.WithoutCancel(ctx), s.record); err != nil && !errors.Is(err, shared.ErrNoRecord) {
		errs = append(errs, fmt.Errorf("failed to clear persisted session: %w", err))
	}
	return errors.Join(errs...)
}

// SendPasswordReset asks the provider to email a reset link to email.
func (s *Store) SendPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return shared.NewValidationError("email", shared.ErrMissingArgument, "email is required")
	}
	return s.provider.SendPasswordReset(ctx, email)
}

func (s *Store) set(ctx context.Context, sess *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = sess
	return s.persistLocked(ctx)
}

// persistLocked writes the current session. The caller holds s.mu.
func (s *Store) persistLocked(ctx context.Context) error {
	if s.current == nil {
		return s.persister.Delete(ctx, s.record)
	}

	payload, err := json.Marshal(s.current)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	rec := &models.LocalRecord{Name: s.record, Version: SessionSchemaVersion, Payload: payload}
	if err := s.persister.Save(ctx, rec); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

func (s *Store) sendWelcome(notice models.WelcomeNotice) {
	if s.welcome == nil {
		return
	}
	send := func(ctx context.Context) error {
		return s.welcome.SendLoginEmail(ctx, notice)
	}
	if s.dispatcher != nil {
		s.dispatcher.Go("welcome email", send)
		return
	}
	if err := send(context.Background()); err != nil {
		s.logger.Warn("failed to send welcome email", "email", notice.Email, "error", err)
	}
}

func fromCredential(cred *identity.Credential, name string) *models.Session {
	return &models.Session{
		User:         &models.User{UID: cred.UID, Name: name, Email: cred.Email},
		Token:        cred.IDToken,
		RefreshToken: cred.RefreshToken,
		Expiry:       cred.Expiry,
	}
}
