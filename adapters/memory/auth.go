package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/khoahotran/portfolio-cms/internal/application/service"
	"github.com/khoahotran/portfolio-cms/internal/domain/session"
	"github.com/khoahotran/portfolio-cms/internal/domain/user"
	"github.com/khoahotran/portfolio-cms/pkg/apperror"
	"github.com/khoahotran/portfolio-cms/pkg/auth"
)

// AuthProvider is an in-process authentication provider. Emit stands in for
// session changes made elsewhere (another tab, a token refresh).
type AuthProvider struct {
	mu         sync.RWMutex
	users      map[string]*user.User
	current    *session.Session
	listeners  map[uint64]service.AuthStateListener
	next       uint64
	jwt        *auth.JWTService
	sessionErr error
}

var _ service.AuthProvider = (*AuthProvider)(nil)

func NewAuthProvider(jwtSvc *auth.JWTService) *AuthProvider {
	return &AuthProvider{
		users:     make(map[string]*user.User),
		listeners: make(map[uint64]service.AuthStateListener),
		jwt:       jwtSvc,
	}
}

func (p *AuthProvider) AddUser(email, password string) (*user.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &user.User{ID: uuid.New(), Email: email, PasswordHash: hash}
	p.mu.Lock()
	p.users[strings.ToLower(email)] = u
	p.mu.Unlock()
	return u, nil
}

// FailGetSession makes GetSession return err until reset with nil.
func (p *AuthProvider) FailGetSession(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessionErr = err
}

func (p *AuthProvider) GetSession(ctx context.Context) (*session.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.sessionErr != nil {
		return nil, p.sessionErr
	}
	if p.current == nil || time.Now().After(p.current.ExpiresAt) {
		return nil, nil
	}
	s := *p.current
	return &s, nil
}

func (p *AuthProvider) SignInWithPassword(ctx context.Context, email, password string) (*session.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	u, ok := p.users[strings.ToLower(email)]
	p.mu.RUnlock()
	if !ok || !auth.CheckPasswordHash(password, u.PasswordHash) {
		return nil, apperror.NewUnauthorized("invalid login credentials", nil)
	}

	token, expiresAt, err := p.jwt.GenerateToken(u.ID, u.Email)
	if err != nil {
		return nil, apperror.NewInternal("failed to issue access token", err)
	}
	s := &session.Session{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		User:        *u,
	}
	p.Emit(session.EventSignedIn, s)
	out := *s
	return &out, nil
}

func (p *AuthProvider) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.Emit(session.EventSignedOut, nil)
	return nil
}

func (p *AuthProvider) OnAuthStateChange(fn service.AuthStateListener) func() {
	p.mu.Lock()
	id := p.next
	p.next++
	p.listeners[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

// Emit replaces the current session and notifies every listener.
func (p *AuthProvider) Emit(event session.Event, s *session.Session) {
	p.mu.Lock()
	p.current = s
	listeners := make([]service.AuthStateListener, 0, len(p.listeners))
	for _, fn := range p.listeners {
		listeners = append(listeners, fn)
	}
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(event, s)
	}
}
