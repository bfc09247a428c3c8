package engine

import (
	"context"
	"sync"
	"time"

	"showrunner/internal/automation"
	"showrunner/internal/catalog"
	"showrunner/internal/script"
)

// fakeCatalog is an in-memory catalog.Catalog for engine tests. Executions
// append in chronological order; error fields force failure paths.
type fakeCatalog struct {
	mu sync.Mutex

	automations map[automation.TriggerKind][]automation.Automation
	commands    map[string][]automation.Automation
	items       map[string]automation.Item
	sounds      map[string]automation.Sound
	executions  []automation.ExecutionRecord
	chatRows    []catalog.ChatRow
	chatCount   int64

	byTriggerErr error
	commandsErr  error
	lastExecErr  error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		automations: map[automation.TriggerKind][]automation.Automation{},
		commands:    map[string][]automation.Automation{},
		items:       map[string]automation.Item{},
		sounds:      map[string]automation.Sound{},
	}
}

func (f *fakeCatalog) AutomationsByTrigger(_ context.Context, kind automation.TriggerKind) ([]automation.Automation, error) {
	if f.byTriggerErr != nil {
		return nil, f.byTriggerErr
	}
	return f.automations[kind], nil
}

func (f *fakeCatalog) CommandsByWord(_ context.Context, word string) ([]automation.Automation, error) {
	if f.commandsErr != nil {
		return nil, f.commandsErr
	}
	return f.commands[word], nil
}

func (f *fakeCatalog) LastExecution(_ context.Context, automationID string, offset int) (*automation.ExecutionRecord, error) {
	if f.lastExecErr != nil {
		return nil, f.lastExecErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := 0
	for i := len(f.executions) - 1; i >= 0; i-- {
		if f.executions[i].AutomationID != automationID {
			continue
		}
		if seen == offset {
			rec := f.executions[i]
			return &rec, nil
		}
		seen++
	}
	return nil, nil
}

func (f *fakeCatalog) LastExecutionByUser(_ context.Context, automationID, userID string) (*automation.ExecutionRecord, error) {
	if f.lastExecErr != nil {
		return nil, f.lastExecErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.executions) - 1; i >= 0; i-- {
		rec := f.executions[i]
		if rec.AutomationID != automationID {
			continue
		}
		if rec.Metadata.User != nil && rec.Metadata.User.ID == userID {
			return &rec, nil
		}
	}
	return nil, nil
}

func (f *fakeCatalog) AppendExecution(_ context.Context, rec automation.ExecutionRecord) error {
	f.mu.Lock()
	f.executions = append(f.executions, rec)
	f.mu.Unlock()
	return nil
}

func (f *fakeCatalog) RecordChatMessage(_ context.Context, row catalog.ChatRow) error {
	f.mu.Lock()
	f.chatRows = append(f.chatRows, row)
	f.mu.Unlock()
	return nil
}

func (f *fakeCatalog) CountChatMessagesSince(context.Context, time.Time) (int64, error) {
	return f.chatCount, nil
}

func (f *fakeCatalog) Items(_ context.Context, ids []string) ([]automation.Item, error) {
	out := make([]automation.Item, 0, len(ids))
	for _, id := range ids {
		if it, ok := f.items[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeCatalog) Sound(_ context.Context, id string) (*automation.Sound, error) {
	snd, ok := f.sounds[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &snd, nil
}

func (f *fakeCatalog) SoundsByIDs(_ context.Context, ids []string) ([]automation.Sound, error) {
	out := make([]automation.Sound, 0, len(ids))
	for _, id := range ids {
		if snd, ok := f.sounds[id]; ok {
			out = append(out, snd)
		}
	}
	return out, nil
}

func (f *fakeCatalog) Close() error { return nil }

func (f *fakeCatalog) executionCount(automationID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, rec := range f.executions {
		if rec.AutomationID == automationID {
			n++
		}
	}
	return n
}

// fakeRoles implements platform.RoleProvider.
type fakeRoles struct {
	broadcaster string
	mods        map[string]bool
	vips        map[string]bool
	err         error
}

func (f *fakeRoles) BroadcasterID() string { return f.broadcaster }

func (f *fakeRoles) IsModerator(_ context.Context, userID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.mods[userID], nil
}

func (f *fakeRoles) IsVIP(_ context.Context, userID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.vips[userID], nil
}

func (f *fakeRoles) InvalidateModerators() {}
func (f *fakeRoles) InvalidateVIPs()       {}
func (f *fakeRoles) InvalidateAll()        {}

// fakeSender records chat sends.
type fakeSender struct {
	mu    sync.Mutex
	sends []string
	err   error
}

func (f *fakeSender) Send(_ context.Context, text string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	f.sends = append(f.sends, text)
	f.mu.Unlock()
	return nil
}

func (f *fakeSender) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sends...)
}

// fakeRunner records script executions.
type fakeRunner struct {
	mu       sync.Mutex
	events   []automation.TriggerKind
	commands []script.CommandContext
}

func (f *fakeRunner) Execute(_ context.Context, _, _ string, kind automation.TriggerKind, _ automation.EventData) error {
	f.mu.Lock()
	f.events = append(f.events, kind)
	f.mu.Unlock()
	return nil
}

func (f *fakeRunner) ExecuteCommand(_ context.Context, _, _ string, cmd script.CommandContext) error {
	f.mu.Lock()
	f.commands = append(f.commands, cmd)
	f.mu.Unlock()
	return nil
}
