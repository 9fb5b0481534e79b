// Package auth provides GitHub authentication token management.
// Tokens come from a chain of providers (secret store, gh CLI, environment) behind
// one small interface; the OAuth login flow lives in oauth.go.
package auth

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/h0rv/kanbanbar/internal/gh"
)

// TokenProvider defines the interface for obtaining a GitHub authentication token.
// Implementations may use different sources (secret store, CLI tools, environment variables).
type TokenProvider interface {
	GetToken() (string, error)
}

// StoreProvider reads the token saved by a completed OAuth login.
type StoreProvider struct {
	Store SecretStore
}

// GetToken loads the token from the secret store.
func (s *StoreProvider) GetToken() (string, error) {
	token, err := s.Store.Load()
	if err != nil {
		return "", fmt.Errorf("secret store: %w", err)
	}
	return token, nil
}

// GhCliProvider reads the token the GitHub CLI holds for Hostname (github.com when empty).
type GhCliProvider struct {
	Hostname string
}

// GetToken runs `gh auth token`.
func (g *GhCliProvider) GetToken() (string, error) {
	path, err := exec.LookPath("gh")
	if err != nil {
		return "", errors.New("gh CLI not found in PATH")
	}
	host := g.Hostname
	if host == "" {
		host = "github.com"
	}

	output, err := exec.Command(path, "auth", "token", "--hostname", host).Output()
	if err != nil {
		return "", fmt.Errorf("gh auth token for %s failed: %w", host, err)
	}
	if token := strings.TrimSpace(string(output)); token != "" {
		return token, nil
	}
	return "", fmt.Errorf("gh CLI has no token for %s", host)
}

// EnvProvider reads a personal access token from GITHUB_TOKEN.
type EnvProvider struct{}

func (e *EnvProvider) GetToken() (string, error) {
	if token := strings.TrimSpace(os.Getenv("GITHUB_TOKEN")); token != "" {
		return token, nil
	}
	return "", errors.New("GITHUB_TOKEN is not set")
}

// Chain tries each provider in order and returns the first token found.
type Chain []TokenProvider

// NewChain returns the default provider order: the secret store written by
// `kanbanbar login`, then the gh CLI, then GITHUB_TOKEN.
func NewChain(store SecretStore) Chain {
	return Chain{&StoreProvider{Store: store}, &GhCliProvider{}, &EnvProvider{}}
}

// GetToken returns the first token any provider yields.
// When every provider fails the error matches gh.ErrNoToken and lists each cause.
func (c Chain) GetToken() (string, error) {
	causes := make([]string, 0, len(c))
	for _, p := range c {
		token, err := p.GetToken()
		if err == nil {
			return token, nil
		}
		causes = append(causes, err.Error())
	}

	return "", fmt.Errorf(
		"%w (%s).\n"+
			"Please either:\n"+
			"  1. Run 'kanbanbar login' to sign in with GitHub, or\n"+
			"  2. Run 'gh auth login' to authenticate with GitHub CLI, or\n"+
			"  3. Set the GITHUB_TOKEN environment variable with a personal access token",
		gh.ErrNoToken, strings.Join(causes, "; "),
	)
}
