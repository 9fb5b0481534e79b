package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/h0rv/kanbanbar/internal/domain"
	"github.com/h0rv/kanbanbar/internal/gh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"
)

func TestEnvProvider_GetToken(t *testing.T) {
	t.Run("set", func(t *testing.T) {
		t.Setenv("GITHUB_TOKEN", "ghp_test_token_123")
		token, err := (&EnvProvider{}).GetToken()
		require.NoError(t, err)
		assert.Equal(t, "ghp_test_token_123", token)
	})

	t.Run("missing", func(t *testing.T) {
		t.Setenv("GITHUB_TOKEN", "")
		token, err := (&EnvProvider{}).GetToken()
		assert.Error(t, err)
		assert.Empty(t, token)
		assert.Contains(t, err.Error(), "GITHUB_TOKEN")
	})
}

func TestGhCliProvider_NotInstalled(t *testing.T) {
	t.Setenv("PATH", "")
	_, err := (&GhCliProvider{}).GetToken()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gh")
}

// TestChain verifies providers are tried in order and the first token wins.
func TestChain(t *testing.T) {
	t.Setenv("PATH", "")

	t.Run("store first", func(t *testing.T) {
		t.Setenv("GITHUB_TOKEN", "from_env")
		store := &MemoryStore{}
		require.NoError(t, store.Save("from_store"))

		token, err := NewChain(store).GetToken()
		require.NoError(t, err)
		assert.Equal(t, "from_store", token)
	})

	t.Run("falls back to env", func(t *testing.T) {
		t.Setenv("GITHUB_TOKEN", "from_env")
		token, err := NewChain(&MemoryStore{}).GetToken()
		require.NoError(t, err)
		assert.Equal(t, "from_env", token)
	})

	t.Run("all fail", func(t *testing.T) {
		t.Setenv("GITHUB_TOKEN", "")
		_, err := NewChain(&MemoryStore{}).GetToken()
		require.Error(t, err)
		assert.ErrorIs(t, err, gh.ErrNoToken)
		assert.Contains(t, err.Error(), "kanbanbar login")
	})
}

func TestTokenProvider_Interface(t *testing.T) {
	var _ TokenProvider = &StoreProvider{}
	var _ TokenProvider = &GhCliProvider{}
	var _ TokenProvider = &EnvProvider{}
	var _ TokenProvider = Chain{}
	var _ SecretStore = &KeyringStore{}
	var _ SecretStore = &MemoryStore{}
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()
	store := NewKeyringStore()

	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save("secret"))
	token, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "secret", token)

	require.NoError(t, store.Delete())
	assert.ErrorIs(t, store.Delete(), ErrNotFound)
}

type fakeUsers struct {
	user *domain.User
	err  error
}

func (f *fakeUsers) FetchViewer(ctx context.Context, token string) (*domain.User, error) {
	return f.user, f.err
}

func newTestAuthenticator(t *testing.T, tokenHandler http.HandlerFunc, users UserFetcher) (*Authenticator, *MemoryStore) {
	t.Helper()
	srv := httptest.NewServer(tokenHandler)
	t.Cleanup(srv.Close)

	store := &MemoryStore{}
	a, err := NewAuthenticator(OAuthConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		Endpoint: &oauth2.Endpoint{
			AuthURL:   srv.URL + "/login/oauth/authorize",
			TokenURL:  srv.URL + "/login/oauth/access_token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}, store, users, nil)
	require.NoError(t, err)
	return a, store
}

func TestNewAuthenticator_RequiresClientID(t *testing.T) {
	_, err := NewAuthenticator(OAuthConfig{}, &MemoryStore{}, &fakeUsers{}, nil)
	assert.ErrorIs(t, err, ErrNoClientID)
}

func TestAuthorizeURL(t *testing.T) {
	a, _ := newTestAuthenticator(t, http.NotFound, &fakeUsers{})

	u, err := url.Parse(a.AuthorizeURL("st4te"))
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "client", q.Get("client_id"))
	assert.Equal(t, "st4te", q.Get("state"))
	assert.Equal(t, "repo read:user project", q.Get("scope"))
}

func TestExchange(t *testing.T) {
	ctx := context.Background()

	t.Run("json body", func(t *testing.T) {
		a, _ := newTestAuthenticator(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"gho_json","token_type":"bearer","scope":"repo"}`))
		}, &fakeUsers{})

		token, err := a.Exchange(ctx, "code")
		require.NoError(t, err)
		assert.Equal(t, "gho_json", token)
	})

	t.Run("form body", func(t *testing.T) {
		a, _ := newTestAuthenticator(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/x-www-form-urlencoded")
			_, _ = w.Write([]byte(`access_token=gho_form&scope=repo&token_type=bearer`))
		}, &fakeUsers{})

		token, err := a.Exchange(ctx, "code")
		require.NoError(t, err)
		assert.Equal(t, "gho_form", token)
	})

	t.Run("rejected code", func(t *testing.T) {
		a, _ := newTestAuthenticator(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad_verification_code", http.StatusBadRequest)
		}, &fakeUsers{})

		_, err := a.Exchange(ctx, "code")
		assert.ErrorIs(t, err, ErrAuthFailed)
	})
}

// TestLogin drives the browser flow by following the redirect the authorize URL names.
func TestLogin(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	users := &fakeUsers{user: &domain.User{Login: "octocat"}}
	a, store := newTestAuthenticator(t, func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("code") != "the-code" {
			http.Error(w, "bad code", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"gho_login","token_type":"bearer"}`))
	}, users)

	a.OpenBrowser = func(authURL string) error {
		u, err := url.Parse(authURL)
		if err != nil {
			return err
		}
		q := u.Query()
		res, err := http.Get(q.Get("redirect_uri") + "?code=the-code&state=" + url.QueryEscape(q.Get("state")))
		if err != nil {
			return err
		}
		return res.Body.Close()
	}

	user, err := a.Login(ctx)
	require.NoError(t, err)
	assert.Equal(t, "octocat", user.Login)

	token, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "gho_login", token)
}

func TestLogin_Denied(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a, store := newTestAuthenticator(t, http.NotFound, &fakeUsers{})
	a.OpenBrowser = func(authURL string) error {
		u, _ := url.Parse(authURL)
		res, err := http.Get(u.Query().Get("redirect_uri") + "?error=access_denied")
		if err != nil {
			return err
		}
		return res.Body.Close()
	}

	_, err := a.Login(ctx)
	assert.ErrorIs(t, err, ErrUserCancelled)

	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLogin_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a, _ := newTestAuthenticator(t, http.NotFound, &fakeUsers{})
	a.OpenBrowser = func(string) error {
		cancel()
		return nil
	}

	_, err := a.Login(ctx)
	assert.ErrorIs(t, err, ErrUserCancelled)
}

func TestCallbackReceiver_StateMismatch(t *testing.T) {
	r := newCallbackReceiver("expected", nil)
	srv := httptest.NewServer(r.echo)
	defer srv.Close()

	res, err := http.Get(srv.URL + callbackPath + "?code=c&state=wrong")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	select {
	case <-r.results:
		t.Fatal("mismatched state must not deliver a result")
	default:
	}
}

func TestValidate(t *testing.T) {
	ctx := context.Background()

	t.Run("rejected token is deleted", func(t *testing.T) {
		a, store := newTestAuthenticator(t, http.NotFound, &fakeUsers{err: &gh.StatusError{Code: http.StatusUnauthorized}})
		require.NoError(t, store.Save("stale"))

		_, err := a.Validate(ctx, "stale")
		require.Error(t, err)
		_, err = store.Load()
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("network failure keeps token", func(t *testing.T) {
		a, store := newTestAuthenticator(t, http.NotFound, &fakeUsers{err: gh.ErrNetwork})
		require.NoError(t, store.Save("keep"))

		_, err := a.Validate(ctx, "keep")
		require.Error(t, err)
		token, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, "keep", token)
	})

	t.Run("current user without token", func(t *testing.T) {
		a, _ := newTestAuthenticator(t, http.NotFound, &fakeUsers{})
		_, err := a.CurrentUser(ctx)
		assert.True(t, errors.Is(err, gh.ErrNoToken))
	})
}

func TestLogout(t *testing.T) {
	a, store := newTestAuthenticator(t, http.NotFound, &fakeUsers{})
	require.NoError(t, store.Save("tok"))

	require.NoError(t, a.Logout())
	require.NoError(t, a.Logout())
	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNotFound)
}
