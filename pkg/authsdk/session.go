package authsdk

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

// refreshSkew is how long before expiry a Session refreshes.
const refreshSkew = 30 * time.Second

// Session represents an authenticated session with automatic token refresh.
type Session struct {
	client *SDKClient

	mu        sync.RWMutex
	pair      TokenPair
	expiresAt time.Time
}

// NewSession wraps an existing pair, e.g. one restored from storage.
func (c *SDKClient) NewSession(pair *TokenPair) *Session {
	s := &Session{client: c}
	s.set(pair)
	return s
}

// LoginSession logs in and returns a Session around the new pair.
func (c *SDKClient) LoginSession(ctx context.Context, username, password string) (*Session, error) {
	pair, err := c.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return c.NewSession(pair), nil
}

// set stores a pair. Caller holds mu for writing (or owns s exclusively).
func (s *Session) set(pair *TokenPair) {
	s.pair = *pair
	s.expiresAt = time.Now().Add(time.Duration(pair.ExpiresIn)*time.Second - refreshSkew)
}

// AccessToken returns a valid access token, refreshing first if needed.
func (s *Session) AccessToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if time.Now().Before(s.expiresAt) {
		token := s.pair.AccessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine may have refreshed while we waited.
	if time.Now().Before(s.expiresAt) {
		return s.pair.AccessToken, nil
	}
	if err := s.refreshLocked(ctx); err != nil {
		return "", err
	}
	return s.pair.AccessToken, nil
}

// Refresh forces a rotation regardless of expiry.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *Session) refreshLocked(ctx context.Context) error {
	if s.pair.RefreshToken == "" {
		return errors.New("authsdk: session has no refresh token")
	}

	pair, err := s.client.Refresh(ctx, s.pair.RefreshToken)
	if err != nil {
		// The old token is spent either way.
		s.pair.RefreshToken = ""
		return fmt.Errorf("failed to refresh token: %w", err)
	}
	s.set(pair)
	return nil
}

// Me fetches the session owner's profile.
func (s *Session) Me(ctx context.Context) (*Profile, error) {
	token, err := s.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	return s.client.Me(ctx, token)
}

// Logout revokes the refresh token and clears the session.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pair.RefreshToken == "" {
		return nil
	}
	err := s.client.Logout(ctx, s.pair.RefreshToken)
	s.pair = TokenPair{}
	s.expiresAt = time.Time{}
	return err
}

// RefreshToken returns the current refresh token.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair.RefreshToken
}

// UserID returns the id of the session owner.
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair.UserID
}

// Roles returns a copy of the role names from the latest pair.
func (s *Session) Roles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.pair.Roles)
}

// HasRole reports whether the latest pair lists role.
func (s *Session) HasRole(role string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.pair.Roles, role)
}
