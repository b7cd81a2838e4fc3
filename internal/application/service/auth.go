package service

import (
	"context"

	"github.com/khoahotran/portfolio-cms/internal/domain/session"
)

// AuthStateListener receives every session change, including ones caused by
// other processes. A nil session means signed out.
type AuthStateListener func(event session.Event, s *session.Session)

type AuthProvider interface {
	// GetSession returns the current session, or nil when signed out.
	GetSession(ctx context.Context) (*session.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*session.Session, error)
	SignOut(ctx context.Context) error
	OnAuthStateChange(fn AuthStateListener) (unsubscribe func())
}
