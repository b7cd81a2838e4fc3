package memory

import (
	"context"
	"sync"

	"github.com/khoahotran/portfolio-cms/internal/domain/session"
	"github.com/khoahotran/portfolio-cms/internal/domain/user"
)

type SessionStorage struct {
	mu   sync.RWMutex
	user *user.User
}

var _ session.Storage = (*SessionStorage)(nil)

func NewSessionStorage() *SessionStorage {
	return &SessionStorage{}
}

func (s *SessionStorage) Load(context.Context) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil, nil
	}
	u := *s.user
	return &u, nil
}

func (s *SessionStorage) Save(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u == nil {
		s.user = nil
		return nil
	}
	cp := *u
	s.user = &cp
	return nil
}

func (s *SessionStorage) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	return nil
}
