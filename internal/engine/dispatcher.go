package engine

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"showrunner/internal/automation"
	"showrunner/internal/catalog"
	"showrunner/internal/eventbus"
	"showrunner/internal/metrics"
	"showrunner/internal/platform"
	"showrunner/internal/script"
	"showrunner/pkg/logx"
)

// RoleCache is the invalidation surface internal signals hit.
type RoleCache interface {
	InvalidateModerators()
	InvalidateVIPs()
	InvalidateAll()
}

// Dispatcher orchestrates match, gate, resolve and execute for each incoming
// platform event. Every event gets its own goroutine and every matched
// automation its own branch; a failing branch is logged and never affects its
// siblings or event ingestion.
type Dispatcher struct {
	matcher  *Matcher
	perms    *PermissionGate
	cooldown *CooldownGate
	resolver *Resolver
	catalog  catalog.Catalog
	bus      eventbus.Bus
	scripts  *script.Subscriptions
	runner   script.Runner
	roles    RoleCache
	log      logx.Logger
	now      func() time.Time

	wg sync.WaitGroup
}

type DispatcherDeps struct {
	Matcher    *Matcher
	Permission *PermissionGate
	Cooldown   *CooldownGate
	Resolver   *Resolver
	Catalog    catalog.Catalog
	Bus        eventbus.Bus
	Scripts    *script.Subscriptions
	Runner     script.Runner
	Roles      RoleCache
	Log        logx.Logger
}

func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	log := deps.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatcher{
		matcher:  deps.Matcher,
		perms:    deps.Permission,
		cooldown: deps.Cooldown,
		resolver: deps.Resolver,
		catalog:  deps.Catalog,
		bus:      deps.Bus,
		scripts:  deps.Scripts,
		runner:   deps.Runner,
		roles:    deps.Roles,
		log:      log,
		now:      time.Now,
	}
}

// Process handles one platform event. Fire-and-forget: it returns before any
// matching or execution happens so a slow automation cannot delay ingestion.
func (d *Dispatcher) Process(ctx context.Context, ev platform.Event) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.dispatch(ctx, ev)
	}()
}

// Wait blocks until in-flight events finish. Shutdown convenience only.
func (d *Dispatcher) Wait() { d.wg.Wait() }

func (d *Dispatcher) dispatch(ctx context.Context, ev platform.Event) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("panic dispatching event", logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
		}
	}()

	// Internal signals reload collaborator caches instead of matching.
	switch ev.(type) {
	case platform.ModeratorsChanged:
		d.roles.InvalidateModerators()
		return
	case platform.VipsChanged:
		d.roles.InvalidateVIPs()
		return
	case platform.RewardsChanged, platform.Reset:
		d.roles.InvalidateAll()
		return
	}

	metrics.RecordEventReceived()

	// Chat lines feed the timer min-chat gate before any matching happens.
	if msg, ok := ev.(platform.ChatMessage); ok {
		d.recordChat(ctx, msg)
	}

	res := d.matcher.Match(ctx, ev)
	kind := triggerKindFor(ev)
	subs := d.scripts.For(kind)
	metrics.RecordMatched(len(res.Events) + len(res.Commands) + len(subs))

	var wg sync.WaitGroup
	for _, a := range res.Events {
		wg.Add(1)
		go func(a automation.Automation) {
			defer wg.Done()
			d.runBranch(ctx, a, res.Data, nil)
		}(a)
	}
	for _, cm := range res.Commands {
		wg.Add(1)
		go func(cm CommandMatch) {
			defer wg.Done()
			d.runBranch(ctx, cm.Automation, res.Data, &cm.Context)
		}(cm)
	}
	for _, sub := range subs {
		wg.Add(1)
		go func(sub script.Subscription) {
			defer wg.Done()
			d.runScriptSubscription(ctx, sub, kind, res.Data)
		}(sub)
	}
	wg.Wait()
}

// runBranch takes one automation through gate, delay, resolve and record.
// Every failure path terminates only this branch.
func (d *Dispatcher) runBranch(ctx context.Context, a automation.Automation, data automation.EventData, cmd *script.CommandContext) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("panic in automation branch",
				logx.String("automation", a.ID), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
		}
	}()

	if !d.perms.Allowed(ctx, data.User, a.RequireRole) {
		metrics.RecordGateSkip("permission")
		d.log.Debug("permission denied", logx.String("automation", a.ID))
		return
	}
	if !d.cooldown.Ready(ctx, a, data.User) {
		metrics.RecordGateSkip("cooldown")
		d.log.Debug("cooldown active", logx.String("automation", a.ID))
		return
	}

	// The outcome delay sits between gating and resolving. Deliberately no
	// cooldown re-check after the sleep.
	if delay := a.Delay(); delay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}

	var (
		msg *eventbus.Message
		err error
	)
	if cmd != nil {
		msg, err = d.resolver.ResolveCommand(ctx, a, data, *cmd)
	} else {
		msg, err = d.resolver.Resolve(ctx, a, data)
	}
	if err != nil {
		metrics.RecordBranchFailure()
		if errors.Is(err, catalog.ErrNotFound) {
			d.log.Debug("outcome reference vanished", logx.String("automation", a.ID), logx.Err(err))
		} else {
			d.log.Warn("outcome resolution failed", logx.String("automation", a.ID), logx.Err(err))
		}
		return
	}
	if msg != nil {
		d.bus.Publish(*msg)
	}

	// Side effects are not transactional with the audit log: a failed append
	// does not undo an already-sent chat message or published throw.
	rec := automation.NewExecutionRecord(a.ID, data, d.now())
	if err := d.catalog.AppendExecution(ctx, rec); err != nil {
		d.log.Warn("execution record append failed", logx.String("automation", a.ID), logx.Err(err))
	}
	metrics.RecordFired()
	d.log.Debug("automation fired", logx.String("automation", a.ID), logx.String("name", a.Name))
}

// runScriptSubscription is the runBranch analogue for script automations
// subscribed to extra trigger kinds: same gates, same audit record, with the
// event's kind forwarded to the sandbox instead of the automation's own.
func (d *Dispatcher) runScriptSubscription(ctx context.Context, sub script.Subscription, kind automation.TriggerKind, data automation.EventData) {
	a := sub.Automation
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("panic in script subscription",
				logx.String("automation", a.ID), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
		}
	}()

	if !d.perms.Allowed(ctx, data.User, a.RequireRole) {
		metrics.RecordGateSkip("permission")
		d.log.Debug("permission denied", logx.String("automation", a.ID))
		return
	}
	if !d.cooldown.Ready(ctx, a, data.User) {
		metrics.RecordGateSkip("cooldown")
		d.log.Debug("cooldown active", logx.String("automation", a.ID))
		return
	}
	if delay := a.Delay(); delay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}

	if err := d.runner.Execute(ctx, a.ID, sub.Source, kind, data); err != nil {
		metrics.RecordBranchFailure()
		d.log.Warn("script subscription failed", logx.String("automation", a.ID), logx.Err(err))
		return
	}

	rec := automation.NewExecutionRecord(a.ID, data, d.now())
	if err := d.catalog.AppendExecution(ctx, rec); err != nil {
		d.log.Warn("execution record append failed", logx.String("automation", a.ID), logx.Err(err))
	}
	metrics.RecordFired()
	d.log.Debug("script subscription fired", logx.String("automation", a.ID), logx.String("name", a.Name))
}

// ExecuteTimer runs one due timer automation through the same gate, resolve
// and execute path as platform events, after the chat-activity check.
func (d *Dispatcher) ExecuteTimer(ctx context.Context, a automation.Automation) {
	metrics.RecordTimerTick()

	if tt := a.Trigger.Timer; tt != nil && tt.MinChatMessages > 0 {
		var since time.Time
		last, err := d.catalog.LastExecution(ctx, a.ID, 0)
		if err != nil {
			d.log.Warn("timer history lookup failed", logx.String("automation", a.ID), logx.Err(err))
			return
		}
		if last != nil {
			since = last.CreatedAt
		}
		n, err := d.catalog.CountChatMessagesSince(ctx, since)
		if err != nil {
			d.log.Warn("chat count failed", logx.String("automation", a.ID), logx.Err(err))
			return
		}
		if n < tt.MinChatMessages {
			metrics.RecordTimerSkip()
			d.log.Debug("timer below chat threshold",
				logx.String("automation", a.ID), logx.Int64("seen", n), logx.Int64("want", tt.MinChatMessages))
			return
		}
	}

	d.runBranch(ctx, a, automation.EventData{Input: automation.EventInput{Kind: automation.InputNone}}, nil)
}

func (d *Dispatcher) recordChat(ctx context.Context, msg platform.ChatMessage) {
	id := msg.MessageID
	if id == "" {
		id = uuid.NewString()
	}
	row := catalog.ChatRow{ID: id, UserID: msg.User.ID, Text: msg.Text, CreatedAt: d.now()}
	if err := d.catalog.RecordChatMessage(ctx, row); err != nil {
		d.log.Warn("chat message record failed", logx.Err(err))
	}
}

// triggerKindFor maps a platform event to the trigger kind script
// subscriptions key on. Signals return an empty kind (no subscriptions).
func triggerKindFor(ev platform.Event) automation.TriggerKind {
	switch ev.(type) {
	case platform.Redeem:
		return automation.TriggerRedeem
	case platform.CheerBits:
		return automation.TriggerBits
	case platform.Follow:
		return automation.TriggerFollow
	case platform.Subscription, platform.ReSubscription:
		return automation.TriggerSub
	case platform.GiftedSubscription:
		return automation.TriggerGiftedSub
	case platform.ChatMessage:
		return automation.TriggerCommand
	case platform.Raid:
		return automation.TriggerRaid
	case platform.AdBreakBegin:
		return automation.TriggerAdBreak
	case platform.ShoutoutReceive:
		return automation.TriggerShoutout
	default:
		return ""
	}
}
