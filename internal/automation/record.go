package automation

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionRecord is the append-only audit row proving an automation fired.
// The newest record per automation is the cooldown reference point; there is
// deliberately no in-memory cooldown cache on top of it.
type ExecutionRecord struct {
	ID           string            `json:"id"`
	AutomationID string            `json:"automation_id"`
	Metadata     ExecutionMetadata `json:"metadata"`
	CreatedAt    time.Time         `json:"created_at"`
}

// ExecutionMetadata snapshots the triggering context for diagnostics.
type ExecutionMetadata struct {
	User  *UserRef   `json:"user,omitempty"`
	Input EventInput `json:"input"`
}

// NewExecutionRecord stamps a fresh record for one successful resolution.
func NewExecutionRecord(automationID string, data EventData, at time.Time) ExecutionRecord {
	return ExecutionRecord{
		ID:           uuid.NewString(),
		AutomationID: automationID,
		Metadata:     ExecutionMetadata{User: data.User, Input: data.Input},
		CreatedAt:    at,
	}
}
