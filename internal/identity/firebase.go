package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/pricepal/internal/shared"
	"golang.org/x/oauth2"
)

const (
	defaultIdentityURL = "https://identitytoolkit.googleapis.com/v1"
	defaultTokenURL    = "https://securetoken.googleapis.com/v1/token"
)

// FirebaseOpts configures [NewFirebase]. Zero values select defaults.
type FirebaseOpts struct {
	HTTPClient *http.Client
	Logger     *log.Logger
	// Timeout bounds every provider request, token refreshes included.
	Timeout time.Duration
	// ExpiryDelta refreshes tokens this long before they expire.
	ExpiryDelta time.Duration
	// Now is the clock used to compute token expiry.
	Now func() time.Time
}

// Firebase signs users in with email and password through the Identity Toolkit REST API.
//
// REST reference: https://firebase.google.com/docs/reference/rest/auth
type Firebase struct {
	apiKey      string
	identityURL string
	oauth       *oauth2.Config
	httpClient  *http.Client
	timeout     time.Duration
	logger      *log.Logger
	expiryDelta time.Duration
	now         func() time.Time
}

var _ Provider = (*Firebase)(nil)

// NewFirebase creates a [Firebase] provider from the identity section of the config.
func NewFirebase(cfg shared.IdentityConfig, opts FirebaseOpts) (*Firebase, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: identity.api_key is required", shared.ErrMissingConfig)
	}

	identityURL := strings.TrimRight(cfg.IdentityURL, "/")
	if identityURL == "" {
		identityURL = defaultIdentityURL
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.ExpiryDelta <= 0 {
		opts.ExpiryDelta = time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Firebase{
		apiKey:      cfg.APIKey,
		identityURL: identityURL,
		oauth: &oauth2.Config{
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL + "?key=" + url.QueryEscape(cfg.APIKey),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient:  opts.HTTPClient,
		timeout:     opts.Timeout,
		logger:      opts.Logger,
		expiryDelta: opts.ExpiryDelta,
		now:         opts.Now,
	}, nil
}

type authResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

type lookupResponse struct {
	Users []struct {
		LocalID     string `json:"localId"`
		Email       string `json:"email"`
		DisplayName string `json:"displayName"`
		CreatedAt   string `json:"createdAt"`
		LastLoginAt string `json:"lastLoginAt"`
	} `json:"users"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// SignIn authenticates with email and password.
func (f *Firebase) SignIn(ctx context.Context, email, password string) (*Credential, error) {
	var resp authResponse
	body := map[string]any{"email": email, "password": password, "returnSecureToken": true}
	if err := f.call(ctx, "accounts:signInWithPassword", body, &resp); err != nil {
		return nil, err
	}

	f.logger.Debug("signed in", "uid", resp.LocalID)
	return f.credential(resp), nil
}

// SignUp creates an account, sets its display name, and reads its creation metadata.
func (f *Firebase) SignUp(ctx context.Context, email, password, displayName string) (*Credential, error) {
	var created authResponse
	body := map[string]any{"email": email, "password": password, "returnSecureToken": true}
	if err := f.call(ctx, "accounts:signUp", body, &created); err != nil {
		return nil, err
	}
	cred := f.credential(created)

	var updated authResponse
	update := map[string]any{"idToken": cred.IDToken, "displayName": displayName, "returnSecureToken": true}
	if err := f.call(ctx, "accounts:update", update, &updated); err != nil {
		return nil, err
	}
	cred.DisplayName = displayName
	if updated.IDToken != "" {
		refreshed := f.credential(updated)
		cred.IDToken, cred.RefreshToken, cred.Expiry = refreshed.IDToken, refreshed.RefreshToken, refreshed.Expiry
	}

	meta, err := f.lookup(ctx, cred.IDToken)
	if err != nil {
		f.logger.Warn("could not read account metadata", "uid", cred.UID, "error", err)
	} else {
		cred.Metadata = meta
	}

	f.logger.Debug("signed up", "uid", cred.UID, "new", cred.IsNewUser())
	return cred, nil
}

// SignOut ends the session on the provider side.
//
// The REST API has no client-side revocation, ID tokens simply lapse, so this only honours ctx.
func (f *Firebase) SignOut(ctx context.Context, refreshToken string) error {
	if err := ctx.Err(); err != nil {
		return &shared.AuthError{Op: "sign out", Err: err}
	}
	f.logger.Debug("signed out", "had_refresh_token", refreshToken != "")
	return nil
}

// SendPasswordReset asks the provider to email a password reset link.
func (f *Firebase) SendPasswordReset(ctx context.Context, email string) error {
	body := map[string]any{"requestType": "PASSWORD_RESET", "email": email}
	return f.call(ctx, "accounts:sendOobCode", body, nil)
}

// TokenSource returns a source that hands back tok until it is about to expire, then refreshes it.
func (f *Firebase) TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource {
	if tok == nil {
		tok = &oauth2.Token{}
	}
	client := *f.httpClient
	if client.Timeout <= 0 || client.Timeout > f.timeout {
		client.Timeout = f.timeout
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &client)
	src := f.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: tok.RefreshToken})
	return &refreshingSource{
		hasRefresh: tok.RefreshToken != "",
		src:        oauth2.ReuseTokenSourceWithExpiry(tok, src, f.expiryDelta),
	}
}

func (f *Firebase) lookup(ctx context.Context, idToken string) (Metadata, error) {
	var resp lookupResponse
	if err := f.call(ctx, "accounts:lookup", map[string]any{"idToken": idToken}, &resp); err != nil {
		return Metadata{}, err
	}
	if len(resp.Users) == 0 {
		return Metadata{}, fmt.Errorf("%w: lookup returned no users", shared.ErrNoRecord)
	}

	u := resp.Users[0]
	return Metadata{CreatedAt: parseMillis(u.CreatedAt), LastSignInAt: parseMillis(u.LastLoginAt)}, nil
}

func (f *Firebase) credential(resp authResponse) *Credential {
	cred := &Credential{
		UID:          resp.LocalID,
		Email:        resp.Email,
		DisplayName:  resp.DisplayName,
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
	}

	if secs, err := strconv.Atoi(resp.ExpiresIn); err == nil && secs > 0 {
		cred.Expiry = f.now().Add(time.Duration(secs) * time.Second)
	} else if claims, err := ParseClaims(resp.IDToken); err == nil {
		cred.Expiry = claims.Expiry()
	}
	return cred
}

// call POSTs body to an Identity Toolkit method and decodes the reply into out.
func (f *Firebase) call(ctx context.Context, method string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	endpoint := f.identityURL + "/" + method + "?key=" + url.QueryEscape(f.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", shared.ErrTimeout, err)
		}
		return &shared.AuthError{Op: method, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return &shared.AuthError{Op: method, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &shared.AuthError{Op: method, Message: providerMessage(payload, resp.StatusCode)}
	}

	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return &shared.AuthError{Op: method, Err: fmt.Errorf("failed to decode response: %w", err)}
		}
	}
	return nil
}

// refreshingSource maps oauth2 refresh failures onto [shared.AuthError].
type refreshingSource struct {
	hasRefresh bool
	src        oauth2.TokenSource
}

func (r *refreshingSource) Token() (*oauth2.Token, error) {
	tok, err := r.src.Token()
	if err == nil {
		return tok, nil
	}
	if !r.hasRefresh {
		return nil, &shared.AuthError{Op: "refresh", Err: errors.Join(shared.ErrTokenExpired, shared.ErrNoRefreshToken)}
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		return nil, &shared.AuthError{Op: "refresh", Message: providerMessage(retrieveErr.Body, status), Err: shared.ErrRefreshFailed}
	}
	return nil, &shared.AuthError{Op: "refresh", Err: fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)}
}

// providerMessage extracts error.message from a provider error body.
func providerMessage(body []byte, status int) string {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return fmt.Sprintf("%s (status %d)", shared.ErrAuthFailed, status)
}

// parseMillis converts a string of Unix milliseconds into a time.
func parseMillis(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
