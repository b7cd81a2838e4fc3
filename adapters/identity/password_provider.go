// Package identity authenticates the CMS owner against the users table and
// shares the current session between processes through Redis.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/portfolio-cms/internal/application/service"
	"github.com/khoahotran/portfolio-cms/internal/domain/session"
	"github.com/khoahotran/portfolio-cms/internal/domain/user"
	"github.com/khoahotran/portfolio-cms/pkg/apperror"
	"github.com/khoahotran/portfolio-cms/pkg/auth"
	"github.com/khoahotran/portfolio-cms/pkg/logger"
)

const (
	DefaultSessionKey = "auth:session"
	DefaultChannel    = "auth:events"
)

var tracer = otel.Tracer("identity")

type authMessage struct {
	Event   session.Event    `json:"event"`
	Session *session.Session `json:"session"`
}

type Options struct {
	SessionKey    string
	Channel       string
	RefreshWindow time.Duration
}

// PasswordProvider signs in with email and password and keeps the issued
// access token in Redis. Every change is published on a channel so all
// processes observe it, this one included.
type PasswordProvider struct {
	users         user.Repository
	jwt           *auth.JWTService
	rdb           *redis.Client
	key           string
	channel       string
	refreshWindow time.Duration
	logger        logger.Logger

	mu        sync.RWMutex
	listeners map[uint64]service.AuthStateListener
	next      uint64

	pubsub *redis.PubSub
	done   chan struct{}
}

var _ service.AuthProvider = (*PasswordProvider)(nil)

// NewPasswordProvider subscribes to the auth channel before returning. Call
// Close to stop the subscription.
func NewPasswordProvider(ctx context.Context, users user.Repository, jwtSvc *auth.JWTService, rdb *redis.Client, opts Options, log logger.Logger) (*PasswordProvider, error) {
	if opts.SessionKey == "" {
		opts.SessionKey = DefaultSessionKey
	}
	if opts.Channel == "" {
		opts.Channel = DefaultChannel
	}
	p := &PasswordProvider{
		users:         users,
		jwt:           jwtSvc,
		rdb:           rdb,
		key:           opts.SessionKey,
		channel:       opts.Channel,
		refreshWindow: opts.RefreshWindow,
		logger:        log.With(zap.String("component", "identity")),
		listeners:     make(map[uint64]service.AuthStateListener),
		done:          make(chan struct{}),
	}

	p.pubsub = rdb.Subscribe(ctx, p.channel)
	if _, err := p.pubsub.Receive(ctx); err != nil {
		_ = p.pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", p.channel, err)
	}
	go p.listen()
	return p, nil
}

func (p *PasswordProvider) GetSession(ctx context.Context) (*session.Session, error) {
	ctx, span := tracer.Start(ctx, "GetSession")
	defer span.End()

	token, err := p.rdb.Get(ctx, p.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, apperror.NewInternal("failed to read session", err)
	}

	claims, err := p.jwt.ValidateToken(token)
	if err != nil {
		p.logger.Info("Stored session is no longer valid", zap.Error(err))
		if delErr := p.rdb.Del(ctx, p.key).Err(); delErr != nil {
			p.logger.Warn("Cannot drop invalid session", zap.Error(delErr))
		}
		return nil, nil
	}

	u, err := p.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, err
	}

	s := &session.Session{AccessToken: token, ExpiresAt: claims.ExpiresAt.Time, User: *u}
	if p.refreshWindow > 0 && time.Until(s.ExpiresAt) < p.refreshWindow {
		refreshed, err := p.issue(ctx, *u)
		if err != nil {
			p.logger.Warn("Token refresh failed", zap.Error(err))
			return s, nil
		}
		p.broadcast(ctx, session.EventTokenRefreshed, refreshed)
		s = refreshed
	}
	span.SetAttributes(attribute.String("user_id", u.ID.String()))
	return s, nil
}

func (p *PasswordProvider) SignInWithPassword(ctx context.Context, email, password string) (*session.Session, error) {
	ctx, span := tracer.Start(ctx, "SignInWithPassword")
	defer span.End()

	u, err := p.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			err = apperror.NewUnauthorized("invalid login credentials", nil)
		}
		span.RecordError(err)
		return nil, err
	}
	if !auth.CheckPasswordHash(password, u.PasswordHash) {
		err := apperror.NewUnauthorized("invalid login credentials", nil)
		span.RecordError(err)
		return nil, err
	}

	s, err := p.issue(ctx, *u)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("user_id", u.ID.String()))
	p.broadcast(ctx, session.EventSignedIn, s)
	return s, nil
}

func (p *PasswordProvider) SignOut(ctx context.Context) error {
	if err := p.rdb.Del(ctx, p.key).Err(); err != nil {
		return apperror.NewInternal("failed to clear session", err)
	}
	p.broadcast(ctx, session.EventSignedOut, nil)
	return nil
}

func (p *PasswordProvider) OnAuthStateChange(fn service.AuthStateListener) func() {
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

func (p *PasswordProvider) Close() error {
	err := p.pubsub.Close()
	<-p.done
	return err
}

func (p *PasswordProvider) issue(ctx context.Context, u user.User) (*session.Session, error) {
	token, expiresAt, err := p.jwt.GenerateToken(u.ID, u.Email)
	if err != nil {
		p.logger.Error("Failed to generate token", err, zap.String("user_id", u.ID.String()))
		return nil, apperror.NewInternal("failed to generate token", err)
	}
	if err := p.rdb.Set(ctx, p.key, token, time.Until(expiresAt)).Err(); err != nil {
		return nil, apperror.NewInternal("failed to store session", err)
	}
	return &session.Session{AccessToken: token, ExpiresAt: expiresAt, User: u}, nil
}

func (p *PasswordProvider) broadcast(ctx context.Context, event session.Event, s *session.Session) {
	payload, err := json.Marshal(authMessage{Event: event, Session: s})
	if err != nil {
		p.logger.Error("Cannot encode auth event", err)
		return
	}
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		p.logger.Warn("Cannot publish auth event", zap.String("event", string(event)), zap.Error(err))
	}
}

func (p *PasswordProvider) listen() {
	defer close(p.done)
	for msg := range p.pubsub.Channel() {
		var m authMessage
		if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
			p.logger.Warn("Skipping malformed auth event", zap.Error(err))
			continue
		}
		p.notify(m.Event, m.Session)
	}
}

func (p *PasswordProvider) notify(event session.Event, s *session.Session) {
	p.mu.RLock()
	listeners := make([]service.AuthStateListener, 0, len(p.listeners))
	for _, fn := range p.listeners {
		listeners = append(listeners, fn)
	}
	p.mu.RUnlock()

	for _, fn := range listeners {
		fn(event, s)
	}
}
