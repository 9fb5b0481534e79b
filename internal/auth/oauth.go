package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/h0rv/kanbanbar/internal/domain"
	"github.com/h0rv/kanbanbar/internal/gh"
	"github.com/pkg/browser"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

var (
	// ErrUserCancelled indicates the user aborted the browser sign-in.
	ErrUserCancelled = errors.New("sign-in cancelled")
	// ErrAuthFailed covers a sign-in that completed without a usable token.
	ErrAuthFailed = errors.New("authentication failed")
	// ErrNoClientID indicates the OAuth app is not configured.
	ErrNoClientID = errors.New("GITHUB_CLIENT_ID is not configured")
)

// DefaultScopes are the OAuth scopes requested at sign-in.
var DefaultScopes = []string{"repo", "read:user", "project"}

// OAuthConfig describes the GitHub OAuth app.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	Scopes       []string
	// CallbackAddr is the loopback address the redirect receiver listens on.
	CallbackAddr string
	// Endpoint overrides the GitHub OAuth endpoints.
	Endpoint *oauth2.Endpoint
}

// UserFetcher looks up the user a token belongs to.
type UserFetcher interface {
	FetchViewer(ctx context.Context, token string) (*domain.User, error)
}

// Authenticator runs the OAuth web flow and owns the saved token.
type Authenticator struct {
	oauth        oauth2.Config
	callbackAddr string
	store        SecretStore
	users        UserFetcher
	log          *slog.Logger

	// OpenBrowser presents the authorize URL. Defaults to the system browser.
	OpenBrowser func(url string) error
}

// NewAuthenticator returns an Authenticator for cfg.
func NewAuthenticator(cfg OAuthConfig, store SecretStore, users UserFetcher, log *slog.Logger) (*Authenticator, error) {
	if cfg.ClientID == "" {
		return nil, ErrNoClientID
	}
	if log == nil {
		log = slog.Default()
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	endpoint := github.Endpoint
	if cfg.Endpoint != nil {
		endpoint = *cfg.Endpoint
	}
	addr := cfg.CallbackAddr
	if addr == "" {
		addr = "127.0.0.1:0"
	}

	return &Authenticator{
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		callbackAddr: addr,
		store:        store,
		users:        users,
		log:          log,
		OpenBrowser:  browser.OpenURL,
	}, nil
}

// AuthorizeURL returns the GitHub authorize page URL for state.
func (a *Authenticator) AuthorizeURL(state string) string {
	return a.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for an access token.
// GitHub answers with either a JSON or a form-encoded body; both are accepted.
func (a *Authenticator) Exchange(ctx context.Context, code string) (string, error) {
	tok, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%w: token exchange: %w", ErrAuthFailed, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrAuthFailed)
	}
	return tok.AccessToken, nil
}

// Login runs the full browser flow: receiver, authorize page, code exchange, save, validate.
// A token that cannot be saved fails the login.
func (a *Authenticator) Login(ctx context.Context) (*domain.User, error) {
	ln, err := net.Listen("tcp", a.callbackAddr)
	if err != nil {
		return nil, fmt.Errorf("%w: listen for callback: %w", ErrAuthFailed, err)
	}

	state := uuid.NewString()
	receiver := newCallbackReceiver(state, a.log)
	receiver.Start(ln)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = receiver.Shutdown(shutdownCtx)
	}()

	// Each login gets its own redirect; the port is only known after Listen.
	flow := a.oauth
	flow.RedirectURL = "http://" + ln.Addr().String() + callbackPath
	authURL := flow.AuthCodeURL(state)

	a.log.Info("opening browser for GitHub sign-in", "url", authURL)
	if err := a.OpenBrowser(authURL); err != nil {
		a.log.Warn("could not open browser", "error", err)
	}

	code, err := receiver.Wait(ctx)
	if err != nil {
		a.log.Warn("sign-in not completed", "error", err)
		return nil, err
	}

	tok, err := flow.Exchange(ctx, code)
	if err != nil {
		a.log.Error("token exchange failed", "error", err)
		return nil, fmt.Errorf("%w: token exchange: %w", ErrAuthFailed, err)
	}

	if err := a.store.Save(tok.AccessToken); err != nil {
		a.log.Error("could not save token", "error", err)
		return nil, fmt.Errorf("save token: %w", err)
	}

	return a.Validate(ctx, tok.AccessToken)
}

// Validate checks token against GET /user. A token the API rejects is deleted from the store;
// a network failure leaves it in place.
func (a *Authenticator) Validate(ctx context.Context, token string) (*domain.User, error) {
	user, err := a.users.FetchViewer(ctx, token)
	if err == nil {
		a.log.Info("authenticated", "login", user.Login)
		return user, nil
	}

	a.log.Warn("token validation failed", "error", err)
	if !errors.Is(err, gh.ErrNetwork) {
		if delErr := a.store.Delete(); delErr != nil && !errors.Is(delErr, ErrNotFound) {
			a.log.Warn("could not delete rejected token", "error", delErr)
		}
	}
	return nil, err
}

// CurrentUser validates the saved token, if any.
func (a *Authenticator) CurrentUser(ctx context.Context) (*domain.User, error) {
	token, err := a.store.Load()
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, gh.ErrNoToken
		}
		return nil, err
	}
	return a.Validate(ctx, token)
}

// Logout deletes the saved token. Logging out twice is not an error.
func (a *Authenticator) Logout() error {
	if err := a.store.Delete(); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}
