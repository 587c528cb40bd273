// Package auth decides whether a chat user may use the bot.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"expensebot/internal/cache"
	"expensebot/internal/core"
	"expensebot/internal/storage"
)

// Decision is the outcome of an authorization check.
type Decision int

const (
	Authorized Decision = iota
	NotRegistered
	NotAuthorized
)

func (d Decision) String() string {
	switch d {
	case Authorized:
		return "authorized"
	case NotRegistered:
		return "not_registered"
	default:
		return "not_authorized"
	}
}

const (
	defaultCacheSize = 256
	defaultCacheTTL  = 5 * time.Minute
)

// UserRepository looks up registered users.
type UserRepository interface {
	GetUser(ctx context.Context, id int64) (core.User, error)
}

// Service authorizes users from a static allow-list first, then from the
// repository. Repository decisions are cached.
type Service struct {
	repo    UserRepository
	allowed map[int64]struct{}
	cache   *cache.LRUCache[int64, Decision]
}

type Option func(*Service)

// WithCache replaces the decision cache.
func WithCache(c *cache.LRUCache[int64, Decision]) Option {
	return func(s *Service) { s.cache = c }
}

// NewService builds a Service. repo may be nil, in which case only
// allow-listed users are authorized and everyone else is unregistered.
func NewService(repo UserRepository, allowed []int64, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		allowed: make(map[int64]struct{}, len(allowed)),
		cache:   cache.NewLRUCache[int64, Decision](defaultCacheSize, defaultCacheTTL),
	}
	for _, id := range allowed {
		s.allowed[id] = struct{}{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cache exposes the decision cache for registration with a cache.Manager.
func (s *Service) Cache() *cache.LRUCache[int64, Decision] {
	return s.cache
}

// Closed reports whether no user can ever be authorized, which is the case
// when neither an allow-list nor a repository is configured.
func (s *Service) Closed() bool {
	return s.repo == nil && len(s.allowed) == 0
}

func (s *Service) Authenticate(ctx context.Context, userID int64) (Decision, error) {
	if _, ok := s.allowed[userID]; ok {
		return Authorized, nil
	}
	if s.repo == nil {
		return NotRegistered, nil
	}
	if d, ok := s.cache.Get(userID); ok {
		return d, nil
	}

	u, err := s.repo.GetUser(ctx, userID)
	var d Decision
	switch {
	case errors.Is(err, storage.ErrUserNotFound):
		d = NotRegistered
	case err != nil:
		return NotAuthorized, fmt.Errorf("lookup user %d: %w", userID, err)
	case u.Authorized:
		d = Authorized
	default:
		d = NotAuthorized
	}

	s.cache.Set(userID, d)
	slog.DebugContext(ctx, "Authorization decided", "user_id", userID, "decision", d.String())
	return d, nil
}

// Forget drops a cached decision, e.g. after the user's record changed.
func (s *Service) Forget(userID int64) {
	s.cache.Delete(userID)
}
