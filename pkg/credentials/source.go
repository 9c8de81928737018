package credentials

import (
	"context"
	"errors"
	"sync"
)

// RefreshFunc exchanges a refresh token for a new bearer token. It returns
// the new token and, when the vendor rotates it, a replacement refresh token
// (empty means keep the old one).
type RefreshFunc func(ctx context.Context, refreshToken string) (token, newRefreshToken string, err error)

// Source is an in-memory token holder backed by the credentials file. It
// satisfies the transport layer's TokenSource: Token returns the running
// value and Refresh performs the vendor exchange, persisting the result so
// later processes pick it up.
type Source struct {
	mu           sync.Mutex
	vendor       string
	token        string
	refreshToken string
	refresh      RefreshFunc
	mgr          *Manager
}

// NewSource loads the vendor's stored tokens into a Source. refresh may be
// nil for vendors without a refresh exchange; Refresh then fails and the
// transport layer propagates the original auth error.
func NewSource(mgr *Manager, vendor string, refresh RefreshFunc) (*Source, error) {
	token, err := mgr.GetToken(vendor)
	if err != nil {
		return nil, err
	}
	refreshToken, err := mgr.GetRefreshToken(vendor)
	if err != nil {
		return nil, err
	}

	return &Source{
		vendor:       vendor,
		token:        token,
		refreshToken: refreshToken,
		refresh:      refresh,
		mgr:          mgr,
	}, nil
}

// Token returns the current bearer token.
func (s *Source) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Refresh exchanges the refresh token for a new bearer token and persists
// both. The new token is returned and becomes the value of subsequent Token
// calls.
func (s *Source) Refresh(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refresh == nil {
		return "", errors.New("no refresh exchange configured for vendor " + s.vendor)
	}

	token, newRefresh, err := s.refresh(ctx, s.refreshToken)
	if err != nil {
		return "", err
	}

	s.token = token
	if newRefresh != "" {
		s.refreshToken = newRefresh
	}

	if s.mgr != nil {
		if err := s.mgr.SetToken(s.vendor, s.token); err != nil {
			return "", err
		}
		if newRefresh != "" {
			if err := s.mgr.SetRefreshToken(s.vendor, newRefresh); err != nil {
				return "", err
			}
		}
	}

	return s.token, nil
}
