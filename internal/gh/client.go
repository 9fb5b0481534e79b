// Package gh talks to GitHub: it posts Projects v2 queries and mutations, decodes the
// project payload leniently, and looks up the signed-in user over REST. Every failure is
// reported as one of the sentinel errors in errors.go.
package gh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/machinebox/graphql"
)

// Default GitHub API endpoints.
const (
	DefaultGraphQLURL = "https://api.github.com/graphql"
	DefaultRESTURL    = "https://api.github.com"
)

// Config configures a Client. Zero values fall back to the public GitHub endpoints
// and the default HTTP transport with no timeout.
type Config struct {
	GraphQLURL string
	RESTURL    string
	Timeout    time.Duration
	Transport  http.RoundTripper
	Logger     *slog.Logger
}

// Client is a GitHub API client for Projects v2.
// It is stateless with respect to credentials: every call takes the bearer token.
type Client struct {
	gql     *graphql.Client
	http    *http.Client
	restURL string
	log     *slog.Logger
}

// New creates a new GitHub client.
// Returns ErrInvalidURL if either endpoint does not parse as an absolute URL.
func New(cfg Config) (*Client, error) {
	if cfg.GraphQLURL == "" {
		cfg.GraphQLURL = DefaultGraphQLURL
	}
	if cfg.RESTURL == "" {
		cfg.RESTURL = DefaultRESTURL
	}
	for _, raw := range []string{cfg.GraphQLURL, cfg.RESTURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidURL, raw)
		}
	}

	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	httpClient := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &statusTransport{base: base},
	}

	gql := graphql.NewClient(cfg.GraphQLURL, graphql.WithHTTPClient(httpClient))
	gql.Log = func(s string) {
		log.Debug("graphql transport", "line", s)
	}

	return &Client{
		gql:     gql,
		http:    httpClient,
		restURL: strings.TrimRight(cfg.RESTURL, "/"),
		log:     log,
	}, nil
}

// Execute posts a GraphQL document with optional variables and returns the raw "data" payload.
// It never retries. Errors are classified as ErrNoToken, ErrNetwork, ErrInvalidResponse
// (including *GraphQLError and *StatusError).
func (c *Client) Execute(ctx context.Context, document string, vars map[string]interface{}, token string) (json.RawMessage, error) {
	if token == "" {
		return nil, ErrNoToken
	}

	req := graphql.NewRequest(document)
	for k, v := range vars {
		req.Var(k, v)
	}

	var data json.RawMessage
	if err := c.makeRequest(ctx, req, token, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// makeRequest executes a GraphQL request with authentication and classifies failures.
func (c *Client) makeRequest(ctx context.Context, req *graphql.Request, token string, resp interface{}) error {
	req.Header.Set("Authorization", "Bearer "+token)

	err := c.gql.Run(ctx, req, resp)
	if err == nil {
		return nil
	}

	classified := classifyTransportError(err)
	var gqlErr *GraphQLError
	if errors.As(classified, &gqlErr) {
		c.log.Warn("graphql error", "message", gqlErr.Message)
	}
	return classified
}

// graphqlErrPrefix is how machinebox/graphql renders the first entry of a response's "errors" array.
const graphqlErrPrefix = "graphql: "

func classifyTransportError(err error) error {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, graphqlErrPrefix):
		return &GraphQLError{Message: strings.TrimPrefix(msg, graphqlErrPrefix)}
	case strings.HasPrefix(msg, "reading body"):
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	default:
		// "decoding response" and friends: the body was not a GraphQL JSON envelope
		return fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
}

// statusTransport turns non-2xx responses into *StatusError so that a response body that
// happens to be valid JSON is never mistaken for success.
type statusTransport struct {
	base http.RoundTripper
}

func (t *statusTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	res, err := t.base.RoundTrip(r)
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		res.Body.Close()
		return nil, &StatusError{Code: res.StatusCode, Body: string(body)}
	}
	return res, nil
}
