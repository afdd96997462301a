package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const tokenFileName = ".icarus_token"

// TokenStore keeps the session token in a file, by default ~/.icarus_token.
type TokenStore struct {
	path string
}

func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// DefaultTokenStore places the token file in the user's home directory.
func DefaultTokenStore() (*TokenStore, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	return NewTokenStore(filepath.Join(home, tokenFileName)), nil
}

func (s *TokenStore) Path() string { return s.path }

// Load returns "" when no token was saved.
func (s *TokenStore) Load() (string, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func (s *TokenStore) Save(token string) error {
	return os.WriteFile(s.path, []byte(token), 0o600)
}

func (s *TokenStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Guard is the single session check in front of every authenticated screen or command.
// It loads the saved token into c and verifies it once. A missing or rejected token is
// removed and reported as ErrNotAuthenticated; the caller sends the user to login.
// When the server cannot be reached or fails, the token is kept and the error returned.
func Guard(ctx context.Context, c *Client, tokens *TokenStore) (string, error) {
	token, err := tokens.Load()
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	if token == "" {
		return "", ErrNotAuthenticated
	}
	c.SetToken(token)

	username, err := c.Verify(ctx)
	if err == nil {
		return username, nil
	}
	if !rejected(err) {
		return "", fmt.Errorf("verify session: %w", err)
	}
	c.SetToken("")
	if clearErr := tokens.Clear(); clearErr != nil {
		return "", clearErr
	}
	return "", fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
}

// rejected reports whether the server refused the token itself: 401, or 404 when the
// account behind it no longer exists.
func rejected(err error) bool {
	if errors.Is(err, ErrNotAuthenticated) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}
