package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"showrunner/internal/automation"
	"showrunner/internal/eventbus"
	"showrunner/internal/platform"
	"showrunner/internal/script"
	"showrunner/pkg/logx"
)

func newTestDispatcher(cat *fakeCatalog, roles *fakeRoles, sender *fakeSender, runner *fakeRunner) (*Dispatcher, eventbus.Bus, *script.Subscriptions) {
	bus := eventbus.New()
	subs := script.NewSubscriptions()
	log := logx.Nop()
	return NewDispatcher(DispatcherDeps{
		Matcher:    NewMatcher(cat, log),
		Permission: NewPermissionGate(roles, log),
		Cooldown:   NewCooldownGate(cat, log),
		Resolver:   NewResolver(cat, sender, runner, nil, log),
		Catalog:    cat,
		Bus:        bus,
		Scripts:    subs,
		Runner:     runner,
		Roles:      roles,
		Log:        log,
	}), bus, subs
}

func chatOutcome(template string) automation.Outcome {
	return automation.Outcome{Kind: automation.OutcomeSendChat, SendChat: &automation.SendChatOutcome{Template: template}}
}

func TestDispatcherBranchIsolation(t *testing.T) {
	t.Parallel()
	cat := newFakeCatalog()
	cat.automations[automation.TriggerFollow] = []automation.Automation{
		{
			ID:      "bad",
			Trigger: automation.Trigger{Kind: automation.TriggerFollow},
			Outcome: automation.Outcome{Kind: automation.OutcomePlaySound, PlaySound: &automation.PlaySoundOutcome{SoundID: "gone"}},
		},
		{
			ID:      "good",
			Trigger: automation.Trigger{Kind: automation.TriggerFollow},
			Outcome: chatOutcome("welcome {user}"),
		},
	}
	sender := &fakeSender{}
	d, _, _ := newTestDispatcher(cat, &fakeRoles{}, sender, &fakeRunner{})

	d.Process(context.Background(), platform.Follow{
		User: automation.UserRef{ID: "u1", Name: "alice", DisplayName: "Alice"},
	})
	d.Wait()

	if got := sender.sent(); len(got) != 1 || got[0] != "welcome Alice" {
		t.Fatalf("sends = %v, want [welcome Alice]", got)
	}
	if n := cat.executionCount("good"); n != 1 {
		t.Fatalf("good executed %d times, want 1", n)
	}
	if n := cat.executionCount("bad"); n != 0 {
		t.Fatalf("failed branch recorded %d executions, want 0", n)
	}
}

func TestDispatcherPermissionSkips(t *testing.T) {
	t.Parallel()
	cat := newFakeCatalog()
	cat.automations[automation.TriggerFollow] = []automation.Automation{{
		ID:          "modonly",
		Trigger:     automation.Trigger{Kind: automation.TriggerFollow},
		Outcome:     chatOutcome("hi"),
		RequireRole: automation.RoleMod,
	}}
	sender := &fakeSender{}
	d, _, _ := newTestDispatcher(cat, &fakeRoles{broadcaster: "owner"}, sender, &fakeRunner{})

	d.Process(context.Background(), platform.Follow{User: automation.UserRef{ID: "pleb", Name: "p", DisplayName: "P"}})
	d.Wait()

	if len(sender.sent()) != 0 {
		t.Fatal("gated branch must not send")
	}
	if cat.executionCount("modonly") != 0 {
		t.Fatal("gated branch must not record an execution")
	}
}

func TestDispatcherPublishesBusOutcome(t *testing.T) {
	t.Parallel()
	cat := newFakeCatalog()
	cat.automations[automation.TriggerFollow] = []automation.Automation{{
		ID:      "hk",
		Trigger: automation.Trigger{Kind: automation.TriggerFollow},
		Outcome: automation.Outcome{Kind: automation.OutcomeTriggerHotkey, TriggerHotkey: &automation.TriggerHotkeyOutcome{HotkeyID: "scene-2"}},
	}}
	d, bus, _ := newTestDispatcher(cat, &fakeRoles{}, &fakeSender{}, &fakeRunner{})

	ch, unsub := bus.Subscribe(4)
	defer unsub()

	d.Process(context.Background(), platform.Follow{User: automation.UserRef{ID: "u1", Name: "a", DisplayName: "A"}})
	d.Wait()

	select {
	case msg := <-ch:
		if msg.Kind != eventbus.KindTriggerHotkey || msg.TriggerHotkey.HotkeyID != "scene-2" {
			t.Fatalf("message = %+v", msg)
		}
	default:
		t.Fatal("no bus message published")
	}
}

type invalidationRecorder struct {
	fakeRoles

	mu              sync.Mutex
	mods, vips, all int
}

func (r *invalidationRecorder) InvalidateModerators() {
	r.mu.Lock()
	r.mods++
	r.mu.Unlock()
}

func (r *invalidationRecorder) InvalidateVIPs() {
	r.mu.Lock()
	r.vips++
	r.mu.Unlock()
}

func (r *invalidationRecorder) InvalidateAll() {
	r.mu.Lock()
	r.all++
	r.mu.Unlock()
}

func TestDispatcherSignalsInvalidateRoleCache(t *testing.T) {
	t.Parallel()
	rec := &invalidationRecorder{}
	d, _, _ := newTestDispatcher(newFakeCatalog(), &fakeRoles{}, &fakeSender{}, &fakeRunner{})
	d.roles = rec

	ctx := context.Background()
	d.Process(ctx, platform.ModeratorsChanged{})
	d.Process(ctx, platform.VipsChanged{})
	d.Process(ctx, platform.RewardsChanged{})
	d.Process(ctx, platform.Reset{})
	d.Wait()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.mods != 1 || rec.vips != 1 || rec.all != 2 {
		t.Fatalf("invalidations mods=%d vips=%d all=%d, want 1/1/2", rec.mods, rec.vips, rec.all)
	}
}

func TestDispatcherRecordsChatLines(t *testing.T) {
	t.Parallel()
	cat := newFakeCatalog()
	d, _, _ := newTestDispatcher(cat, &fakeRoles{}, &fakeSender{}, &fakeRunner{})
	ctx := context.Background()

	d.Process(ctx, platform.ChatMessage{
		User: automation.UserRef{ID: "u1", Name: "a", DisplayName: "A"}, MessageID: "m-1", Text: "hello",
	})
	d.Process(ctx, platform.ChatMessage{
		User: automation.UserRef{ID: "u2", Name: "b", DisplayName: "B"}, Text: "no id",
	})
	d.Wait()

	if len(cat.chatRows) != 2 {
		t.Fatalf("recorded %d chat rows, want 2", len(cat.chatRows))
	}
	for _, row := range cat.chatRows {
		if row.ID == "" {
			t.Fatal("chat row without an id")
		}
		if row.Text == "hello" && row.ID != "m-1" {
			t.Fatalf("platform message id not preserved: %q", row.ID)
		}
	}
}

func TestDispatcherRunsScriptSubscriptions(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{}
	d, _, subs := newTestDispatcher(newFakeCatalog(), &fakeRoles{}, &fakeSender{}, runner)
	subs.Replace(map[automation.TriggerKind][]script.Subscription{
		automation.TriggerFollow: {{Automation: automation.Automation{ID: "sc-1"}, Source: "onFollow()"}},
	})

	d.Process(context.Background(), platform.Follow{User: automation.UserRef{ID: "u1", Name: "a", DisplayName: "A"}})
	d.Wait()

	if len(runner.events) != 1 || runner.events[0] != automation.TriggerFollow {
		t.Fatalf("script runs = %v, want [follow]", runner.events)
	}
}

func TestDispatcherScriptSubscriptionGatedAndRecorded(t *testing.T) {
	t.Parallel()
	cat := newFakeCatalog()
	runner := &fakeRunner{}
	roles := &fakeRoles{broadcaster: "owner", mods: map[string]bool{"mod1": true}}
	d, _, subs := newTestDispatcher(cat, roles, &fakeSender{}, runner)
	subs.Replace(map[automation.TriggerKind][]script.Subscription{
		automation.TriggerFollow: {{
			Automation: automation.Automation{
				ID:          "sc-mod",
				RequireRole: automation.RoleMod,
				Cool:        automation.Cooldown{Enabled: true, Duration: 60_000},
			},
			Source: "onFollow()",
		}},
	})
	ctx := context.Background()

	d.Process(ctx, platform.Follow{User: automation.UserRef{ID: "pleb", Name: "p", DisplayName: "P"}})
	d.Wait()
	if len(runner.events) != 0 {
		t.Fatal("unprivileged chatter must not reach the sandbox")
	}

	d.Process(ctx, platform.Follow{User: automation.UserRef{ID: "mod1", Name: "m", DisplayName: "M"}})
	d.Wait()
	if len(runner.events) != 1 {
		t.Fatalf("script runs = %v, want one", runner.events)
	}
	if cat.executionCount("sc-mod") != 1 {
		t.Fatal("fired subscription must append an execution record")
	}

	// The appended record is the cooldown reference for the next firing.
	d.Process(ctx, platform.Follow{User: automation.UserRef{ID: "mod1", Name: "m", DisplayName: "M"}})
	d.Wait()
	if len(runner.events) != 1 || cat.executionCount("sc-mod") != 1 {
		t.Fatal("cooldown must suppress the second firing")
	}
}

func TestDispatcherTimerChatThreshold(t *testing.T) {
	t.Parallel()
	cat := newFakeCatalog()
	sender := &fakeSender{}
	d, _, _ := newTestDispatcher(cat, &fakeRoles{}, sender, &fakeRunner{})

	a := automation.Automation{
		ID: "timer-1",
		Trigger: automation.Trigger{Kind: automation.TriggerTimer, Timer: &automation.TimerTrigger{
			IntervalSeconds: 300, MinChatMessages: 5,
		}},
		Outcome: chatOutcome("still here"),
	}
	ctx := context.Background()

	cat.chatCount = 3
	d.ExecuteTimer(ctx, a)
	if len(sender.sent()) != 0 {
		t.Fatal("quiet chat must suppress the timer")
	}

	cat.chatCount = 5
	d.ExecuteTimer(ctx, a)
	if got := sender.sent(); len(got) != 1 || got[0] != "still here" {
		t.Fatalf("sends = %v, want [still here]", got)
	}
	if cat.executionCount("timer-1") != 1 {
		t.Fatal("fired timer must record exactly one execution")
	}
}

func TestDispatcherOutcomeDelay(t *testing.T) {
	t.Parallel()
	cat := newFakeCatalog()
	cat.automations[automation.TriggerFollow] = []automation.Automation{{
		ID:           "delayed",
		Trigger:      automation.Trigger{Kind: automation.TriggerFollow},
		Outcome:      chatOutcome("late hi"),
		OutcomeDelay: 50,
	}}
	sender := &fakeSender{}
	d, _, _ := newTestDispatcher(cat, &fakeRoles{}, sender, &fakeRunner{})

	start := time.Now()
	d.Process(context.Background(), platform.Follow{User: automation.UserRef{ID: "u1", Name: "a", DisplayName: "A"}})
	d.Wait()

	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("branch finished in %v, before the configured delay", elapsed)
	}
	if got := sender.sent(); len(got) != 1 || got[0] != "late hi" {
		t.Fatalf("sends = %v, want [late hi]", got)
	}
}
