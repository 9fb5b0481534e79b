package gh

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/h0rv/kanbanbar/internal/domain"
)

// FetchViewer returns the authenticated user via the REST endpoint GET /user.
// A 401 surfaces as *StatusError, which callers use to detect a revoked token.
func (c *Client) FetchViewer(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, ErrNoToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.restURL+"/user", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github+json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer res.Body.Close()

	var body struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if body.Login == "" {
		return nil, fmt.Errorf("%w: user has no login", ErrInvalidResponse)
	}

	return &domain.User{
		ID:        body.ID,
		Login:     body.Login,
		Name:      body.Name,
		Email:     body.Email,
		AvatarURL: body.AvatarURL,
	}, nil
}
