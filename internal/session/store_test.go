package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/pricepal/internal/identity"
	"github.com/desertthunder/pricepal/internal/models"
	"github.com/desertthunder/pricepal/internal/shared"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeProvider struct {
	cred       *identity.Credential
	err        error
	signOutErr error
	refreshed  *oauth2.Token
	refreshErr error
	// started is closed when a refresh begins; the refresh then waits on gate.
	started chan struct{}
	gate    chan struct{}

	signIns  int
	signOuts int
	refresh  int
}

func (f *fakeProvider) SignIn(ctx context.Context, email, password string) (*identity.Credential, error) {
	f.signIns++
	return f.cred, f.err
}

func (f *fakeProvider) SignUp(ctx context.Context, email, password, displayName string) (*identity.Credential, error) {
	if f.err != nil {
		return nil, f.err
	}
	c := *f.cred
	c.DisplayName = displayName
	return &c, nil
}

func (f *fakeProvider) SignOut(ctx context.Context, refreshToken string) error {
	f.signOuts++
	return f.signOutErr
}

func (f *fakeProvider) SendPasswordReset(ctx context.Context, email string) error {
	return f.err
}

func (f *fakeProvider) TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource {
	if tok.Valid() {
		return oauth2.StaticTokenSource(tok)
	}
	return tokenFunc(func() (*oauth2.Token, error) {
		if f.gate != nil {
			close(f.started)
			<-f.gate
		}
		f.refresh++
		return f.refreshed, f.refreshErr
	})
}

type tokenFunc func() (*oauth2.Token, error)

func (fn tokenFunc) Token() (*oauth2.Token, error) { return fn() }

type welcomeRecorder struct {
	mu      sync.Mutex
	notices []models.WelcomeNotice
	err     error
}

func (w *welcomeRecorder) SendLoginEmail(ctx context.Context, n models.WelcomeNotice) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.notices = append(w.notices, n)
	return w.err
}

type inlineDispatcher struct{ errs []error }

func (d *inlineDispatcher) Go(name string, fn func(ctx context.Context) error) {
	if err := fn(context.Background()); err != nil {
		d.errs = append(d.errs, err)
	}
}

type failingPersister struct{ *MemoryPersister }

func (failingPersister) Delete(context.Context, string) error { return errors.New("disk full") }

func credential(now time.Time) *identity.Credential {
	return &identity.Credential{
		UID:          "uid-1",
		Email:        "asha@example.com",
		DisplayName:  "Asha",
		IDToken:      "id-1",
		RefreshToken: "refresh-1",
		Expiry:       now.Add(time.Hour),
		Metadata:     identity.Metadata{CreatedAt: now, LastSignInAt: now},
	}
}

func TestStoreLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("sets and persists the session", func(t *testing.T) {
		p := NewMemoryPersister()
		s := NewStore(&fakeProvider{cred: credential(time.Now())}, Options{Persister: p})

		require.NoError(t, s.LoginWithEmail(ctx, " asha@example.com ", "secret"))

		cur := s.Current()
		require.True(t, cur.IsAuthenticated())
		require.Equal(t, "uid-1", cur.User.UID)
		require.Equal(t, "Asha", cur.User.Name)
		require.Equal(t, "id-1", cur.Token)

		rec, err := p.Load(ctx, DefaultRecord)
		require.NoError(t, err)
		require.Equal(t, SessionSchemaVersion, rec.Version)
	})

	t.Run("provider failure leaves the store logged out", func(t *testing.T) {
		prov := &fakeProvider{err: &shared.AuthError{Op: "sign in", Message: "INVALID_PASSWORD"}}
		s := NewStore(prov, Options{})

		err := s.LoginWithEmail(ctx, "asha@example.com", "wrong")
		require.EqualError(t, err, "INVALID_PASSWORD")
		require.ErrorIs(t, err, shared.ErrAuthFailed)
		require.Nil(t, s.Current())
		require.Equal(t, 1, prov.signIns)
	})

	t.Run("blank credentials never reach the provider", func(t *testing.T) {
		prov := &fakeProvider{}
		err := NewStore(prov, Options{}).LoginWithEmail(ctx, "  ", "secret")
		require.ErrorIs(t, err, shared.ErrInvalidInput)
		require.Zero(t, prov.signIns)
	})

	t.Run("Current returns a copy", func(t *testing.T) {
		s := NewStore(&fakeProvider{cred: credential(time.Now())}, Options{})
		require.NoError(t, s.LoginWithEmail(ctx, "asha@example.com", "secret"))

		s.Current().User.Name = "mutated"
		require.Equal(t, "Asha", s.Current().User.Name)
	})
}

func TestStoreSignup(t *testing.T) {
	ctx := context.Background()

	t.Run("new account gets a welcome email", func(t *testing.T) {
		welcome := &welcomeRecorder{}
		s := NewStore(&fakeProvider{cred: credential(time.Now())}, Options{Welcome: welcome, Dispatcher: &inlineDispatcher{}})

		require.NoError(t, s.SignupWithEmail(ctx, "Ravi", "ravi@example.com", "secret"))
		require.Equal(t, "Ravi", s.Current().User.Name)
		require.Equal(t, []models.WelcomeNotice{{Email: "asha@example.com", Name: "Ravi"}}, welcome.notices)
	})

	t.Run("returning account gets no welcome email", func(t *testing.T) {
		now := time.Now()
		cred := credential(now)
		cred.Metadata.LastSignInAt = now.Add(time.Minute)
		welcome := &welcomeRecorder{}
		s := NewStore(&fakeProvider{cred: cred}, Options{Welcome: welcome})

		require.NoError(t, s.SignupWithEmail(ctx, "Ravi", "ravi@example.com", "secret"))
		require.Empty(t, welcome.notices)
	})

	t.Run("welcome failure does not fail signup", func(t *testing.T) {
		welcome := &welcomeRecorder{err: errors.New("smtp down")}
		d := &inlineDispatcher{}
		s := NewStore(&fakeProvider{cred: credential(time.Now())}, Options{Welcome: welcome, Dispatcher: d})

		require.NoError(t, s.SignupWithEmail(ctx, "Ravi", "ravi@example.com", "secret"))
		require.True(t, s.Current().IsAuthenticated())
		require.Len(t, d.errs, 1)
	})

	t.Run("welcome is sent inline without a dispatcher", func(t *testing.T) {
		welcome := &welcomeRecorder{err: errors.New("smtp down")}
		s := NewStore(&fakeProvider{cred: credential(time.Now())}, Options{Welcome: welcome})

		require.NoError(t, s.SignupWithEmail(ctx, "Ravi", "ravi@example.com", "secret"))
		require.Len(t, welcome.notices, 1)
	})

	t.Run("provider error", func(t *testing.T) {
		s := NewStore(&fakeProvider{err: &shared.AuthError{Message: "EMAIL_EXISTS"}}, Options{})
		require.EqualError(t, s.SignupWithEmail(ctx, "Ravi", "ravi@example.com", "secret"), "EMAIL_EXISTS")
		require.Nil(t, s.Current())
	})
}

func TestStoreLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("clears memory and persisted record", func(t *testing.T) {
		p := NewMemoryPersister()
		prov := &fakeProvider{cred: credential(time.Now())}
		s := NewStore(prov, Options{Persister: p})
		require.NoError(t, s.LoginWithEmail(ctx, "asha@example.com", "secret"))

		require.NoError(t, s.Logout(ctx))
		require.Nil(t, s.Current())
		require.Equal(t, 1, prov.signOuts)

		_, err := p.Load(ctx, DefaultRecord)
		require.ErrorIs(t, err, shared.ErrNoRecord)

		reopened, err := Open(ctx, prov, Options{Persister: p})
		require.NoError(t, err)
		require.Nil(t, reopened.Current())
	})

	t.Run("provider failure still clears local state", func(t *testing.T) {
		p := NewMemoryPersister()
		prov := &fakeProvider{cred: credential(time.Now()), signOutErr: errors.New("network down")}
		s := NewStore(prov, Options{Persister: p})
		require.NoError(t, s.LoginWithEmail(ctx, "asha@example.com", "secret"))

		err := s.Logout(ctx)
		require.ErrorContains(t, err, "network down")
		require.Nil(t, s.Current())
		_, err = p.Load(ctx, DefaultRecord)
		require.ErrorIs(t, err, shared.ErrNoRecord)
	})

	t.Run("persister failure is reported", func(t *testing.T) {
		s := NewStore(&fakeProvider{cred: credential(time.Now())}, Options{Persister: failingPersister{NewMemoryPersister()}})
		require.NoError(t, s.LoginWithEmail(ctx, "asha@example.com", "secret"))

		require.ErrorContains(t, s.Logout(ctx), "disk full")
		require.Nil(t, s.Current())
	})
}

func TestStoreToken(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a session", func(t *testing.T) {
		_, err := NewStore(&fakeProvider{}, Options{}).Token(ctx)
		require.ErrorIs(t, err, shared.ErrNotAuthenticated)
	})

	t.Run("valid token is returned without refresh", func(t *testing.T) {
		prov := &fakeProvider{cred: credential(time.Now())}
		s := NewStore(prov, Options{})
		require.NoError(t, s.LoginWithEmail(ctx, "asha@example.com", "secret"))

		tok, err := s.Token(ctx)
		require.NoError(t, err)
		require.Equal(t, "id-1", tok)
		require.Zero(t, prov.refresh)
	})

	t.Run("expired token is refreshed and persisted", func(t *testing.T) {
		cred := credential(time.Now())
		cred.Expiry = time.Now().Add(-time.Minute)
		newExpiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
		prov := &fakeProvider{
			cred:      cred,
			refreshed: (&oauth2.Token{AccessToken: "access-2", RefreshToken: "refresh-2", Expiry: newExpiry}).WithExtra(map[string]any{"id_token": "id-2"}),
		}
		p := NewMemoryPersister()
		s := NewStore(prov, Options{Persister: p})
		require.NoError(t, s.LoginWithEmail(ctx, "asha@example.com", "secret"))

		tok, err := s.Token(ctx)
		require.NoError(t, err)
		require.Equal(t, "id-2", tok)
		require.Equal(t, 1, prov.refresh)

		reopened, err := Open(ctx, prov, Options{Persister: p})
		require.NoError(t, err)
		cur := reopened.Current()
		require.Equal(t, "id-2", cur.Token)
		require.Equal(t, "refresh-2", cur.RefreshToken)
		require.True(t, cur.Expiry.Equal(newExpiry))
	})

	t.Run("refresh failure is returned", func(t *testing.T) {
		cred := credential(time.Now())
		cred.Expiry = time.Now().Add(-time.Minute)
		prov := &fakeProvider{cred: cred, refreshErr: &shared.AuthError{Op: "refresh", Message: "TOKEN_EXPIRED", Err: shared.ErrRefreshFailed}}
		s := NewStore(prov, Options{})
		require.NoError(t, s.LoginWithEmail(ctx, "asha@example.com", "secret"))

		_, err := s.Token(ctx)
		require.ErrorIs(t, err, shared.ErrRefreshFailed)
		require.Equal(t, "id-1", s.Current().Token)
	})

	t.Run("readers are not blocked by a refresh in flight", func(t *testing.T) {
		cred := credential(time.Now())
		cred.Expiry = time.Now().Add(-time.Minute)
		prov := &fakeProvider{
			cred:      cred,
			refreshed: (&oauth2.Token{AccessToken: "access-2", Expiry: time.Now().Add(time.Hour)}).WithExtra(map[string]any{"id_token": "id-2"}),
			started:   make(chan struct{}),
			gate:      make(chan struct{}),
		}
		s := NewStore(prov, Options{})
		require.NoError(t, s.LoginWithEmail(ctx, "asha@example.com", "secret"))

		done := make(chan string)
		go func() {
			tok, _ := s.Token(ctx)
			done <- tok
		}()
		<-prov.started

		read := make(chan *models.Session)
		go func() { read <- s.Current() }()
		select {
		case cur := <-read:
			require.Equal(t, "id-1", cur.Token)
		case <-time.After(time.Second):
			t.Fatal("Current blocked while a refresh was in flight")
		}

		close(prov.gate)
		require.Equal(t, "id-2", <-done)
		require.Equal(t, "id-2", s.Current().Token)
	})

	t.Run("refresh finishing after logout is discarded", func(t *testing.T) {
		cred := credential(time.Now())
		cred.Expiry = time.Now().Add(-time.Minute)
		prov := &fakeProvider{
			cred:      cred,
			refreshed: (&oauth2.Token{AccessToken: "access-2", Expiry: time.Now().Add(time.Hour)}).WithExtra(map[string]any{"id_token": "id-2"}),
			started:   make(chan struct{}),
			gate:      make(chan struct{}),
		}
		s := NewStore(prov, Options{})
		require.NoError(t, s.LoginWithEmail(ctx, "asha@example.com", "secret"))

		errs := make(chan error)
		go func() {
			_, err := s.Token(ctx)
			errs <- err
		}()
		<-prov.started
		require.NoError(t, s.Logout(ctx))
		close(prov.gate)

		require.ErrorIs(t, <-errs, shared.ErrNotAuthenticated)
		require.Nil(t, s.Current())
	})
}

func TestStorePersistence(t *testing.T) {
	ctx := context.Background()

	t.Run("session survives a reload", func(t *testing.T) {
		p := NewMemoryPersister()
		prov := &fakeProvider{cred: credential(time.Now())}
		s := NewStore(prov, Options{Persister: p})
		require.NoError(t, s.LoginWithEmail(ctx, "asha@example.com", "secret"))

		reopened, err := Open(ctx, prov, Options{Persister: p})
		require.NoError(t, err)
		require.Equal(t, s.Current().User, reopened.Current().User)
		require.Equal(t, s.Current().Token, reopened.Current().Token)
	})

	t.Run("custom record name", func(t *testing.T) {
		p := NewMemoryPersister()
		s := NewStore(&fakeProvider{cred: credential(time.Now())}, Options{Persister: p, Record: "other"})
		require.NoError(t, s.LoginWithEmail(ctx, "asha@example.com", "secret"))

		_, err := p.Load(ctx, "other")
		require.NoError(t, err)
		_, err = p.Load(ctx, DefaultRecord)
		require.ErrorIs(t, err, shared.ErrNoRecord)
	})

	t.Run("legacy record is migrated", func(t *testing.T) {
		p := NewMemoryPersister()
		legacy := `{"state":{"user":{"uid":"u0","name":"Old","email":"old@example.com"},"token":"legacy-token","isAuthenticated":true},"version":0}`
		require.NoError(t, p.Save(ctx, &models.LocalRecord{Name: DefaultRecord, Version: 0, Payload: []byte(legacy)}))

		s, err := Open(ctx, &fakeProvider{}, Options{Persister: p})
		require.NoError(t, err)
		cur := s.Current()
		require.True(t, cur.IsAuthenticated())
		require.Equal(t, "u0", cur.User.UID)
		require.Equal(t, "legacy-token", cur.Token)
	})

	t.Run("legacy logged-out record restores nothing", func(t *testing.T) {
		p := NewMemoryPersister()
		legacy := `{"state":{"user":null,"token":null,"isAuthenticated":false},"version":0}`
		require.NoError(t, p.Save(ctx, &models.LocalRecord{Name: DefaultRecord, Version: 0, Payload: []byte(legacy)}))

		s, err := Open(ctx, &fakeProvider{}, Options{Persister: p})
		require.NoError(t, err)
		require.Nil(t, s.Current())
	})

	t.Run("unknown version is discarded", func(t *testing.T) {
		p := NewMemoryPersister()
		payload, _ := json.Marshal(models.Session{User: &models.User{UID: "u"}, Token: "t"})
		require.NoError(t, p.Save(ctx, &models.LocalRecord{Name: DefaultRecord, Version: SessionSchemaVersion + 1, Payload: payload}))

		s, err := Open(ctx, &fakeProvider{}, Options{Persister: p})
		require.NoError(t, err)
		require.Nil(t, s.Current())
		_, err = p.Load(ctx, DefaultRecord)
		require.ErrorIs(t, err, shared.ErrNoRecord)
	})

	t.Run("corrupt payload is discarded", func(t *testing.T) {
		p := NewMemoryPersister()
		require.NoError(t, p.Save(ctx, &models.LocalRecord{Name: DefaultRecord, Version: SessionSchemaVersion, Payload: []byte("{nope")}))

		s, err := Open(ctx, &fakeProvider{}, Options{Persister: p})
		require.NoError(t, err)
		require.Nil(t, s.Current())
	})
}

func TestUpgrade(t *testing.T) {
	_, err := upgrade(-1, nil)
	require.ErrorIs(t, err, shared.ErrUnsupportedSchema)

	out, err := upgrade(SessionSchemaVersion, []byte(`{"token":"x"}`))
	require.NoError(t, err)
	require.JSONEq(t, `{"token":"x"}`, string(out))
}
