package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const lookupTimeout = 10 * time.Second

var (
	// ErrUserNotFound indicates the username does not resolve to a GitHub account.
	ErrUserNotFound = errors.New("github account not found")
	// ErrUnreachable indicates the GitHub API could not be reached at all.
	ErrUnreachable = errors.New("github api unreachable")
)

// User carries the subset of GitHub profile data the verifier cares about.
type User struct {
	ID          int64
	Login       string
	PublicRepos int
	CreatedAt   *time.Time
}

// Client looks up GitHub user profiles over the REST API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient constructs a GitHub lookup client. The token is optional and,
// when present, raises the API rate limit from 60 to 5000 requests per hour.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: lookupTimeout},
	}
}

type userPayload struct {
	ID          int64  `json:"id"`
	Login       string `json:"login"`
	PublicRepos int    `json:"public_repos"`
	CreatedAt   string `json:"created_at"`
}

// Lookup fetches the profile for the given username.
func (c *Client) Lookup(ctx context.Context, username string) (User, error) {
	url := fmt.Sprintf("%s/users/%s", c.baseURL, username)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return User{}, fmt.Errorf("build github request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return User{}, fmt.Errorf("%w (status: %d)", ErrUserNotFound, resp.StatusCode)
	}

	var payload userPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return User{}, fmt.Errorf("decode github response: %w", err)
	}

	user := User{
		ID:          payload.ID,
		Login:       payload.Login,
		PublicRepos: payload.PublicRepos,
	}

	// Profiles normally carry a creation timestamp, but the verifier treats
	// a missing one as "age unknown" rather than an error.
	if payload.CreatedAt != "" {
		created, err := time.Parse(time.RFC3339, payload.CreatedAt)
		if err != nil {
			return User{}, fmt.Errorf("parse created_at %q: %w", payload.CreatedAt, err)
		}
		user.CreatedAt = &created
	}

	return user, nil
}
