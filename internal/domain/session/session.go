package session

import (
	"context"
	"time"

	"github.com/khoahotran/portfolio-cms/internal/domain/user"
)

// StorageKey namespaces the persisted identity, mirroring the key the
// dashboard has always used.
const StorageKey = "auth-storage"

type Event string

const (
	EventInitialSession Event = "INITIAL_SESSION"
	EventSignedIn       Event = "SIGNED_IN"
	EventSignedOut      Event = "SIGNED_OUT"
	EventTokenRefreshed Event = "TOKEN_REFRESHED"
)

type Session struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        user.User `json:"user"`
}

// UserOf returns the session's identity, or nil for an absent session.
func UserOf(s *Session) *user.User {
	if s == nil {
		return nil
	}
	u := s.User
	return &u
}

// Storage persists the signed-in identity for the current browsing session
// only; implementations must expire entries with the session.
type Storage interface {
	Load(ctx context.Context) (*user.User, error)
	Save(ctx context.Context, u *user.User) error
	Clear(ctx context.Context) error
}
