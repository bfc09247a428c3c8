// Package script defines the contract with the scripting sandbox and the
// registry of script automations subscribed to platform trigger kinds.
package script

import (
	"context"
	"sync"

	"showrunner/internal/automation"
)

// CommandContext is the invocation context handed to command scripts.
type CommandContext struct {
	// FullMessage is the raw chat line including the invocation word.
	FullMessage string
	// Message is FullMessage with the leading word stripped.
	Message string
	Args    []string
	User    *automation.UserRef
	Input   automation.EventInput
}

// Runner executes user scripts inside the sandbox collaborator. Errors are
// logged by the caller; they never propagate to the platform transport.
type Runner interface {
	Execute(ctx context.Context, tag, source string, trigger automation.TriggerKind, data automation.EventData) error
	ExecuteCommand(ctx context.Context, tag, source string, cmd CommandContext) error
}

// Subscription is one script automation listening for a trigger kind beyond
// its own configured trigger. The full automation rides along so dispatch can
// apply the same permission and cooldown gates as any other branch.
type Subscription struct {
	Automation automation.Automation
	Source     string
}

// Subscriptions tracks which script automations subscribe to which trigger
// kinds. Replaced wholesale when the catalog changes.
type Subscriptions struct {
	mu     sync.RWMutex
	byKind map[automation.TriggerKind][]Subscription
}

func NewSubscriptions() *Subscriptions {
	return &Subscriptions{byKind: map[automation.TriggerKind][]Subscription{}}
}

// Replace swaps the full subscription table.
func (s *Subscriptions) Replace(byKind map[automation.TriggerKind][]Subscription) {
	cp := make(map[automation.TriggerKind][]Subscription, len(byKind))
	for k, subs := range byKind {
		cp[k] = append([]Subscription(nil), subs...)
	}
	s.mu.Lock()
	s.byKind = cp
	s.mu.Unlock()
}

// For returns the subscriptions registered for one trigger kind.
func (s *Subscriptions) For(kind automation.TriggerKind) []Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byKind[kind]
}
