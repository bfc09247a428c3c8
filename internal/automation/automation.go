// Package automation defines the domain model for configured automations:
// the trigger, outcome and event-input tagged unions, amount policies, and
// the persisted execution audit record.
//
// Variants are closed sums: a Kind discriminant plus one payload pointer.
// Consumers switch exhaustively on Kind; an unknown Kind is a configuration
// error, never silently ignored.
package automation

import "time"

// Role is the minimum chatter role an automation requires.
// Moderators implicitly satisfy the VIP bar; the broadcaster satisfies all.
type Role string

const (
	RoleNone Role = "none"
	RoleVip  Role = "vip"
	RoleMod  Role = "mod"
)

type Cooldown struct {
	Enabled  bool  `json:"enabled"`
	Duration int64 `json:"duration_ms"`
	PerUser  bool  `json:"per_user"`
}

// CooldownDuration returns the configured cooldown as a duration.
func (c Cooldown) CooldownDuration() time.Duration {
	return time.Duration(c.Duration) * time.Millisecond
}

// Automation is one configured event or command. Disabled automations are
// filtered at the catalog boundary; the engine never sees them.
type Automation struct {
	ID      string   `json:"id"`
	Enabled bool     `json:"enabled"`
	Name    string   `json:"name"`
	Trigger Trigger  `json:"trigger"`
	Outcome Outcome  `json:"outcome"`
	Cool    Cooldown `json:"cooldown"`

	RequireRole  Role  `json:"require_role"`
	OutcomeDelay int64 `json:"outcome_delay_ms"`
	Order        int64 `json:"order"`

	// Command-only fields.
	InvocationWord string   `json:"invocation_word,omitempty"`
	Aliases        []string `json:"aliases,omitempty"`
}

// Delay returns the configured outcome delay as a duration.
func (a Automation) Delay() time.Duration {
	return time.Duration(a.OutcomeDelay) * time.Millisecond
}

// IsCommand reports whether the automation fires on a chat invocation word.
func (a Automation) IsCommand() bool { return a.Trigger.Kind == TriggerCommand }
