// Package catalog provides the durable trigger catalog: configured
// automations, items and sounds, the append-only execution history the
// cooldown gate reads, and the chat-message feed timer gating counts.
package catalog

import (
	"context"
	"errors"
	"time"

	"showrunner/internal/automation"
)

var (
	// ErrNotFound reports a referenced entity that no longer exists.
	ErrNotFound = errors.New("catalog: not found")
)

// ChatRow is one recorded chat message, kept for timer min-chat gating
// and pruned by retention.
type ChatRow struct {
	ID        string
	UserID    string
	Text      string
	CreatedAt time.Time
}

// Catalog is the read/append surface the engine uses. Configuration CRUD
// lives outside this process's core and is not part of this interface.
type Catalog interface {
	// AutomationsByTrigger returns enabled automations for one trigger kind,
	// ordered by their configured order.
	AutomationsByTrigger(ctx context.Context, kind automation.TriggerKind) ([]automation.Automation, error)

	// CommandsByWord returns enabled commands whose invocation word or any
	// alias equals word (already folded/trimmed by the caller).
	CommandsByWord(ctx context.Context, word string) ([]automation.Automation, error)

	// LastExecution returns the newest execution record for an automation at
	// the given offset (0 = most recent), or nil when history is empty.
	LastExecution(ctx context.Context, automationID string, offset int) (*automation.ExecutionRecord, error)

	// LastExecutionByUser is LastExecution scoped to one triggering user.
	LastExecutionByUser(ctx context.Context, automationID, userID string) (*automation.ExecutionRecord, error)

	AppendExecution(ctx context.Context, rec automation.ExecutionRecord) error

	RecordChatMessage(ctx context.Context, row ChatRow) error
	CountChatMessagesSince(ctx context.Context, since time.Time) (int64, error)

	// Items resolves throwable items by id; missing ids are skipped.
	Items(ctx context.Context, ids []string) ([]automation.Item, error)

	// Sound resolves one sound; returns ErrNotFound when it vanished.
	Sound(ctx context.Context, id string) (*automation.Sound, error)

	// SoundsByIDs resolves sounds by id; missing ids are skipped.
	SoundsByIDs(ctx context.Context, ids []string) ([]automation.Sound, error)

	Close() error
}
