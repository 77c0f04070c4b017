package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/bruttobar/pos-client/internal/repository"
)

// Authenticator exchanges credentials for a token.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, error)
}

// Session is a point-in-time view of the authentication state.
type Session struct {
	Token string
}

func (s Session) Authenticated() bool {
	return s.Token != ""
}

// Store owns the session token. It is the only writer of the token repository.
//
// Lifecycle: Loading until Restore (or a Login) resolves it, then Active or Cleared.
// Callers must not branch on "no token" before Done is closed.
type Store struct {
	repo   repository.TokenRepository
	auth   Authenticator
	logger *slog.Logger

	// opMu serializes Restore, Login and Logout so a slow restore can't overwrite a fresh login.
	opMu sync.Mutex

	mu        sync.RWMutex
	token     string
	listeners []func(token string)

	resolveOnce sync.Once
	resolved    chan struct{}
}

func NewStore(repo repository.TokenRepository, auth Authenticator, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		repo:     repo,
		auth:     auth,
		logger:   logger,
		resolved: make(chan struct{}),
	}
}

// Restore loads the persisted token once. A storage failure is logged and treated as no session.
func (s *Store) Restore(ctx context.Context) Session {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if s.isResolved() {
		return s.Current()
	}

	token, err := s.repo.Load(ctx)
	switch {
	case errors.Is(err, repository.ErrTokenNotFound):
		s.logger.DebugContext(ctx, "no stored session")
	case err != nil:
		s.logger.WarnContext(ctx, "session restore failed, continuing logged out", "error", err)
		token = ""
	default:
		s.logger.InfoContext(ctx, "session restored")
	}

	notify := s.setToken(token)
	s.resolve()
	notify()
	return s.Current()
}

// Login authenticates and makes the returned token the current session.
// On failure the stored token and the current session are left untouched.
func (s *Store) Login(ctx context.Context, username, password string) (string, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	token, err := s.auth.Login(ctx, username, password)
	if err != nil {
		return "", err
	}

	if errSave := s.repo.Save(ctx, token); errSave != nil {
		// the token is still valid for this process; only durability is lost
		s.logger.ErrorContext(ctx, "failed to persist session token", "error", errSave)
	}

	notify := s.setToken(token)
	s.resolve()
	notify()
	s.logger.InfoContext(ctx, "logged in", "user", username)
	return token, nil
}

// Logout clears durable storage and resets the session. No network call is made.
func (s *Store) Logout(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	err := s.repo.Clear(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to clear stored session", "error", err)
	}

	notify := s.setToken("")
	s.resolve()
	notify()
	s.logger.InfoContext(ctx, "logged out")
	return err
}

func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Session{Token: s.token}
}

// Done is closed once the session has been resolved.
func (s *Store) Done() <-chan struct{} {
	return s.resolved
}

// Wait blocks until the session is resolved or ctx ends.
func (s *Store) Wait(ctx context.Context) (Session, error) {
	select {
	case <-s.resolved:
		return s.Current(), nil
	case <-ctx.Done():
		return Session{}, ctx.Err()
	}
}

// OnChange registers fn to be called with the new token whenever its value changes.
// Callbacks run synchronously, outside the store's data lock, and must not call Restore, Login or Logout.
func (s *Store) OnChange(fn func(token string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// setToken swaps the token and returns a func that notifies listeners if it changed.
func (s *Store) setToken(token string) func() {
	s.mu.Lock()
	changed := s.token != token
	s.token = token
	listeners := append([]func(string){}, s.listeners...)
	s.mu.Unlock()

	return func() {
		if !changed {
			return
		}
		for _, fn := range listeners {
			fn(token)
		}
	}
}

func (s *Store) resolve() {
	s.resolveOnce.Do(func() { close(s.resolved) })
}

func (s *Store) isResolved() bool {
	select {
	case <-s.resolved:
		return true
	default:
		return false
	}
}
