// Package session holds the client-side authentication state for the portal:
// who is logged in, where they land after login, and today's check-in. The
// same state a browser would keep in localStorage lives here behind a
// Storage interface.
package session

import (
	"context"
	"encoding/json"
	"sync"

	"guruit/internal/portal"
)

// Landing paths by role.
const (
	GeneralLandingPath = "/"
	AdminLandingPath   = "/admindashboard"
	LoginPath          = "/login"
)

// Store is the single source of truth for the current session. All methods
// are safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	storage Storage
	api     *portal.Client

	token string
	user  *portal.Profile

	loginBusy    bool
	registerBusy bool
}

func NewStore(storage Storage, api *portal.Client) *Store {
	return &Store{storage: storage, api: api}
}

// Restore loads any persisted session at startup. A missing token leaves the
// store logged out. A token with an unparsable cached profile keeps the
// token and drops the profile.
func (s *Store) Restore() {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.storage.Get(tokenKey)
	if !ok || token == "" {
		s.token = ""
		s.user = nil
		return
	}
	s.token = token
	s.api.SetToken(token)

	s.user = nil
	if raw, ok := s.storage.Get(userKey); ok {
		var user portal.Profile
		if err := json.Unmarshal([]byte(raw), &user); err == nil {
			s.user = &user
		}
	}
}

// Login authenticates and on success returns the landing path for the
// user's role. On failure the session is left untouched.
func (s *Store) Login(ctx context.Context, email, password string) (string, error) {
	s.mu.Lock()
	if s.loginBusy {
		s.mu.Unlock()
		return "", ErrActionInFlight
	}
	s.loginBusy = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loginBusy = false
		s.mu.Unlock()
	}()

	result, err := s.api.Login(ctx, portal.Credentials{Email: email, Password: password})
	if err != nil {
		return "", err
	}
	return s.adopt(result)
}

// Register creates an account and logs straight in.
func (s *Store) Register(ctx context.Context, profile portal.Profile) (string, error) {
	s.mu.Lock()
	if s.registerBusy {
		s.mu.Unlock()
		return "", ErrActionInFlight
	}
	s.registerBusy = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.registerBusy = false
		s.mu.Unlock()
	}()

	result, err := s.api.Register(ctx, profile)
	if err != nil {
		return "", err
	}
	return s.adopt(result)
}

func (s *Store) adopt(result portal.AuthResult) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Set(tokenKey, result.Token); err != nil {
		return "", err
	}
	userJSON, err := json.Marshal(result.User)
	if err != nil {
		_ = s.storage.Remove(tokenKey)
		return "", err
	}
	// Roll the token back if the profile write fails, so storage never
	// holds a half-session the caller was told did not happen.
	if err := s.storage.Set(userKey, string(userJSON)); err != nil {
		_ = s.storage.Remove(tokenKey)
		return "", err
	}

	s.token = result.Token
	user := result.User
	s.user = &user
	s.api.SetToken(result.Token)

	return LandingPath(result.User.Role), nil
}

// Logout clears the session everywhere. Calling it while already logged out
// is a no-op.
func (s *Store) Logout() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.storage.Remove(tokenKey)
	_ = s.storage.Remove(userKey)
	_ = s.storage.Remove(checkInKey)
	s.token = ""
	s.user = nil
	s.api.SetToken("")

	return LoginPath
}

// IsAuthenticated is true iff a non-empty token is held. A cached profile
// without a token counts as logged out.
func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != ""
}

func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// User returns the cached profile, or nil when none is held.
func (s *Store) User() *portal.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	user := *s.user
	return &user
}

// LandingPath maps a role to the screen shown right after login.
func LandingPath(role string) string {
	if role == string(RoleAdmin) {
		return AdminLandingPath
	}
	return GeneralLandingPath
}
