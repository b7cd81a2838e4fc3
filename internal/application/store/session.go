package store

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/khoahotran/portfolio-cms/internal/application/service"
	"github.com/khoahotran/portfolio-cms/internal/domain/session"
	"github.com/khoahotran/portfolio-cms/internal/domain/user"
	"github.com/khoahotran/portfolio-cms/pkg/logger"
	"github.com/khoahotran/portfolio-cms/pkg/metrics"
)

const sessionStoreName = "session"

// SignInResult reports a sign-in attempt. Exactly one of User and Error is
// set; a successful attempt also carries the session's bearer token.
type SignInResult struct {
	User        *user.User `json:"user,omitempty"`
	AccessToken string     `json:"access_token,omitempty"`
	ExpiresAt   time.Time  `json:"expires_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

func (r SignInResult) OK() bool {
	return r.User != nil
}

// SessionStore tracks the signed-in identity. It is rehydrated from the
// session storage on construction and follows every provider state change.
type SessionStore struct {
	container[*user.User]
	provider    service.AuthProvider
	storage     session.Storage
	logger      logger.Logger
	unsubscribe func()
}

// NewSessionStore starts in the loading state until the first GetUser.
func NewSessionStore(ctx context.Context, provider service.AuthProvider, storage session.Storage, log logger.Logger) *SessionStore {
	s := &SessionStore{
		provider: provider,
		storage:  storage,
		logger:   log.With(zap.String("store", sessionStoreName)),
	}
	s.init(nil, clonePtr[user.User])
	s.state.Loading = true

	if u, err := storage.Load(ctx); err != nil {
		s.logger.Warn("Cannot restore persisted session", zap.Error(err))
	} else {
		s.state.Data = u
	}

	s.unsubscribe = provider.OnAuthStateChange(s.onAuthStateChange)
	return s
}

// GetUser asks the provider for the current session. Failures are logged and
// leave the store signed out.
func (s *SessionStore) GetUser(ctx context.Context) {
	s.update(func(st *State[*user.User]) {
		st.Loading = true
		st.Error = ""
	})

	sess, err := s.provider.GetSession(ctx)
	metrics.ObserveStore(sessionStoreName, "get_user", err)
	if err != nil {
		s.logger.Error("Failed to get session", err)
		s.setUser(ctx, nil, true, errorMessage(err))
		return
	}
	s.setUser(ctx, session.UserOf(sess), true, "")
}

func (s *SessionStore) SignIn(ctx context.Context, email, password string) SignInResult {
	sess, err := s.provider.SignInWithPassword(ctx, email, password)
	metrics.ObserveStore(sessionStoreName, "sign_in", err)
	if err != nil {
		s.logger.Warn("Sign in failed", zap.String("email", email), zap.Error(err))
		return SignInResult{Error: errorMessage(err)}
	}
	u := session.UserOf(sess)
	if u == nil {
		return SignInResult{Error: "provider returned no session"}
	}
	s.setUser(ctx, u, false, "")
	return SignInResult{User: u, AccessToken: sess.AccessToken, ExpiresAt: sess.ExpiresAt}
}

// SignOut clears the identity even when the provider call fails.
func (s *SessionStore) SignOut(ctx context.Context) {
	err := s.provider.SignOut(ctx)
	metrics.ObserveStore(sessionStoreName, "sign_out", err)
	if err != nil {
		s.logger.Error("Provider sign out failed", err)
	}
	s.setUser(ctx, nil, false, "")
}

// Close stops following provider state changes.
func (s *SessionStore) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

func (s *SessionStore) onAuthStateChange(event session.Event, sess *session.Session) {
	s.logger.Debug("Auth state changed", zap.String("event", string(event)))
	s.setUser(context.Background(), session.UserOf(sess), false, "")
}

// setUser is the single writer of the identity; it persists the value it
// stores. done ends a pending GetUser.
func (s *SessionStore) setUser(ctx context.Context, u *user.User, done bool, errMsg string) {
	s.update(func(st *State[*user.User]) {
		st.Data = u
		if done {
			st.Loading = false
			st.Error = errMsg
		}
	})

	var err error
	if u == nil {
		err = s.storage.Clear(ctx)
	} else {
		err = s.storage.Save(ctx, u)
	}
	if err != nil {
		s.logger.Warn("Cannot persist session", zap.Error(err))
	}
}
