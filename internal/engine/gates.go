package engine

import (
	"context"
	"math"
	"time"

	"showrunner/internal/automation"
	"showrunner/internal/catalog"
	"showrunner/internal/platform"
	"showrunner/pkg/logx"
)

// PermissionGate checks whether a triggering user satisfies an automation's
// minimum role. Role-list failures are treated as "not on list": wrongly
// allowing an action is worse than wrongly skipping one.
type PermissionGate struct {
	roles platform.RoleProvider
	log   logx.Logger
}

func NewPermissionGate(roles platform.RoleProvider, log logx.Logger) *PermissionGate {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &PermissionGate{roles: roles, log: log}
}

func (g *PermissionGate) Allowed(ctx context.Context, user *automation.UserRef, required automation.Role) bool {
	if required == automation.RoleNone || required == "" {
		return true
	}
	if user == nil || user.ID == "" {
		return false
	}
	if user.ID == g.roles.BroadcasterID() {
		return true
	}

	isMod, err := g.roles.IsModerator(ctx, user.ID)
	if err != nil {
		isMod = false
	}
	switch required {
	case automation.RoleMod:
		return isMod
	case automation.RoleVip:
		if isMod {
			return true
		}
		isVip, err := g.roles.IsVIP(ctx, user.ID)
		if err != nil {
			return false
		}
		return isVip
	default:
		g.log.Warn("unknown required role", logx.String("role", string(required)))
		return false
	}
}

// CooldownGate checks whether enough time elapsed since the automation's last
// recorded execution. The persisted execution history is the single source of
// truth; there is deliberately no in-memory cooldown cache in front of it.
//
// The check is read-then-act, not compare-and-swap: two concurrent triggers
// of one automation may rarely both pass.
type CooldownGate struct {
	catalog catalog.Catalog
	log     logx.Logger
	now     func() time.Time
}

func NewCooldownGate(cat catalog.Catalog, log logx.Logger) *CooldownGate {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &CooldownGate{catalog: cat, log: log, now: time.Now}
}

func (g *CooldownGate) Ready(ctx context.Context, a automation.Automation, user *automation.UserRef) bool {
	if !a.Cool.Enabled || a.Cool.Duration <= 0 {
		return true
	}
	if a.Cool.Duration > math.MaxInt64/int64(time.Millisecond) {
		// duration_ms does not fit int64 nanoseconds; the conversion in
		// CooldownDuration would wrap. Fail closed.
		g.log.Warn("cooldown overflow, treating as active",
			logx.String("automation", a.ID), logx.Int64("duration_ms", a.Cool.Duration))
		return false
	}

	var (
		last *automation.ExecutionRecord
		err  error
	)
	if a.Cool.PerUser && user != nil && user.ID != "" {
		last, err = g.catalog.LastExecutionByUser(ctx, a.ID, user.ID)
	} else {
		last, err = g.catalog.LastExecution(ctx, a.ID, 0)
	}
	if err != nil {
		// Fail closed: an unreadable history must not defeat the cooldown.
		g.log.Warn("cooldown lookup failed", logx.String("automation", a.ID), logx.Err(err))
		return false
	}
	if last == nil {
		return true
	}

	d := a.Cool.CooldownDuration()
	end := last.CreatedAt.Add(d)
	if d > 0 && end.Before(last.CreatedAt) {
		// Arithmetic overflow: the configured duration pushed past
		// representable time. Fail closed.
		g.log.Warn("cooldown overflow, treating as active",
			logx.String("automation", a.ID), logx.Int64("duration_ms", a.Cool.Duration))
		return false
	}
	return !g.now().Before(end)
}
