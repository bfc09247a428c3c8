package platform

import (
	"context"
	"sync"
	"time"

	"showrunner/internal/automation"
	"showrunner/pkg/logx"
)

// RoleFetcher lists channel roles from the platform API. Implemented by the
// transport collaborator; calls may be slow or fail.
type RoleFetcher interface {
	ListModerators(ctx context.Context) ([]automation.UserRef, error)
	ListVIPs(ctx context.Context) ([]automation.UserRef, error)
}

// RoleProvider answers the permission gate's membership questions.
type RoleProvider interface {
	BroadcasterID() string
	IsModerator(ctx context.Context, userID string) (bool, error)
	IsVIP(ctx context.Context, userID string) (bool, error)
}

// Roles caches moderator/VIP id sets over a RoleFetcher with a TTL.
// Invalidate* drops the cached set so the next lookup refetches.
type Roles struct {
	broadcasterID string
	fetcher       RoleFetcher
	ttl           time.Duration
	log           logx.Logger

	mu     sync.Mutex
	mods   map[string]struct{}
	modsAt time.Time
	vips   map[string]struct{}
	vipsAt time.Time
}

func NewRoles(broadcasterID string, fetcher RoleFetcher, ttl time.Duration, log logx.Logger) *Roles {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Roles{broadcasterID: broadcasterID, fetcher: fetcher, ttl: ttl, log: log}
}

func (r *Roles) BroadcasterID() string { return r.broadcasterID }

func (r *Roles) IsModerator(ctx context.Context, userID string) (bool, error) {
	set, err := r.moderatorSet(ctx)
	if err != nil {
		return false, err
	}
	_, ok := set[userID]
	return ok, nil
}

func (r *Roles) IsVIP(ctx context.Context, userID string) (bool, error) {
	set, err := r.vipSet(ctx)
	if err != nil {
		return false, err
	}
	_, ok := set[userID]
	return ok, nil
}

func (r *Roles) InvalidateModerators() {
	r.mu.Lock()
	r.mods = nil
	r.mu.Unlock()
}

func (r *Roles) InvalidateVIPs() {
	r.mu.Lock()
	r.vips = nil
	r.mu.Unlock()
}

func (r *Roles) InvalidateAll() {
	r.mu.Lock()
	r.mods = nil
	r.vips = nil
	r.mu.Unlock()
}

func (r *Roles) moderatorSet(ctx context.Context) (map[string]struct{}, error) {
	r.mu.Lock()
	if r.mods != nil && time.Since(r.modsAt) < r.ttl {
		set := r.mods
		r.mu.Unlock()
		return set, nil
	}
	r.mu.Unlock()

	if r.fetcher == nil {
		return map[string]struct{}{}, nil
	}
	users, err := r.fetcher.ListModerators(ctx)
	if err != nil {
		r.log.Warn("moderator list fetch failed", logx.Err(err))
		return nil, err
	}
	set := toIDSet(users)

	r.mu.Lock()
	r.mods = set
	r.modsAt = time.Now()
	r.mu.Unlock()
	return set, nil
}

func (r *Roles) vipSet(ctx context.Context) (map[string]struct{}, error) {
	r.mu.Lock()
	if r.vips != nil && time.Since(r.vipsAt) < r.ttl {
		set := r.vips
		r.mu.Unlock()
		return set, nil
	}
	r.mu.Unlock()

	if r.fetcher == nil {
		return map[string]struct{}{}, nil
	}
	users, err := r.fetcher.ListVIPs(ctx)
	if err != nil {
		r.log.Warn("vip list fetch failed", logx.Err(err))
		return nil, err
	}
	set := toIDSet(users)

	r.mu.Lock()
	r.vips = set
	r.vipsAt = time.Now()
	r.mu.Unlock()
	return set, nil
}

func toIDSet(users []automation.UserRef) map[string]struct{} {
	set := make(map[string]struct{}, len(users))
	for _, u := range users {
		set[u.ID] = struct{}{}
	}
	return set
}
