// Package session holds the signed-in identity as an explicit object with a
// load/save lifecycle over the client-persisted state store.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"vcar-client/internal/domain"
	"vcar-client/internal/logger"
	"vcar-client/internal/repository"
	"vcar-client/internal/security"
)

// Persisted state keys
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
	KeyRole         = "role"
)

var allKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUser, KeyRole}

type Session struct {
	store     repository.KVStore
	inspector security.TokenInspector
	now       func() time.Time

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	user         *domain.User
	role         string
	info         *security.TokenInfo
}

// New returns an empty, logged-out session bound to store.
func New(store repository.KVStore, inspector security.TokenInspector) *Session {
	return &Session{
		store:     store,
		inspector: inspector,
		now:       time.Now,
	}
}

// Load restores the session from store. An absent, malformed or expired
// access token clears the persisted state and yields a logged-out session.
func Load(ctx context.Context, store repository.KVStore, inspector security.TokenInspector) (*Session, error) {
	s := New(store, inspector)
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) load(ctx context.Context) error {
	values := make(map[string]string, len(allKeys))
	for _, key := range allKeys {
		v, found, err := s.store.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to load session %s: %w", key, err)
		}
		if found {
			values[key] = v
		}
	}

	info, err := s.inspector.Inspect(values[KeyAccessToken])
	if err != nil || info.Expired(s.now()) {
		logger.Debug("Stored session is not usable, clearing it", "error", err)
		return s.Clear(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = values[KeyAccessToken]
	s.refreshToken = values[KeyRefreshToken]
	s.info = info
	s.role = values[KeyRole]
	if r := info.PrimaryRole(); r != "" {
		s.role = r
	}
	if raw := values[KeyUser]; raw != "" {
		var u domain.User
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			logger.Warn("Cached user profile is malformed, ignoring it", "error", err)
		} else {
			s.user = &u
		}
	}
	return nil
}

// SetTokens installs a fresh token pair, typically after login.
func (s *Session) SetTokens(access, refresh string) error {
	info, err := s.inspector.Inspect(access)
	if err != nil {
		return fmt.Errorf("unusable access token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = access
	s.refreshToken = refresh
	s.info = info
	if r := info.PrimaryRole(); r != "" {
		s.role = r
	}
	return nil
}

func (s *Session) SetUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &u
}

// Save persists the in-memory session.
func (s *Session) Save(ctx context.Context) error {
	s.mu.RLock()
	values := map[string]string{
		KeyAccessToken:  s.accessToken,
		KeyRefreshToken: s.refreshToken,
		KeyRole:         s.role,
	}
	if s.user != nil {
		raw, err := json.Marshal(s.user)
		if err != nil {
			s.mu.RUnlock()
			return fmt.Errorf("failed to encode user profile: %w", err)
		}
		values[KeyUser] = string(raw)
	}
	s.mu.RUnlock()

	for _, key := range allKeys {
		v, ok := values[key]
		var err error
		if !ok || v == "" {
			err = s.store.Delete(ctx, key)
		} else {
			err = s.store.Set(ctx, key, v)
		}
		if err != nil {
			return fmt.Errorf("failed to save session %s: %w", key, err)
		}
	}
	return nil
}

// Clear logs the session out and wipes the persisted state.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.accessToken = ""
	s.refreshToken = ""
	s.user = nil
	s.role = ""
	s.info = nil
	s.mu.Unlock()

	for _, key := range allKeys {
		if err := s.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to clear session %s: %w", key, err)
		}
	}
	return nil
}

// LoggedIn reports whether the session holds a non-expired access token.
func (s *Session) LoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info != nil && !s.info.Expired(s.now())
}

func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

func (s *Session) Role() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// UserID prefers the cached profile and falls back to the token subject.
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user != nil && s.user.ID != "" {
		return s.user.ID
	}
	if s.info != nil {
		return s.info.UserID
	}
	return ""
}

// RequireUser returns the signed-in user or domain.ErrAuthExpired.
func (s *Session) RequireUser() (domain.User, error) {
	if !s.LoggedIn() {
		return domain.User{}, domain.ErrAuthExpired
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user != nil {
		return *s.user, nil
	}
	return domain.User{ID: s.info.UserID, Email: s.info.Email}, nil
}
