package event

import "github.com/dirgate/dirgate/pkg/types"

// PromptView is the read-only projection of a queued prompt carried on
// events and returned by queue snapshots. Presentation layers render the
// head entry only.
type PromptView struct {
	ID             string              `json:"id"`
	Action         string              `json:"action"`
	Title          string              `json:"title"`
	Kind           string              `json:"kind"` // "initial" | "retry"
	Blocked        []types.BlockedItem `json:"blocked"`
	AllowAlways    bool                `json:"allowAlways"`
	AllowExactPath bool                `json:"allowExactPath"`
	CreatedAt      string              `json:"createdAt"`
}

// PromptEnqueuedData is the data for prompt.enqueued events.
type PromptEnqueuedData struct {
	Prompt *PromptView `json:"prompt"`
	Queued int         `json:"queued"`
}

// PromptUpdatedData is the data for prompt.updated events, published
// whenever the queue head changes. Current is nil when the queue is empty.
type PromptUpdatedData struct {
	Current *PromptView `json:"current"`
	Queued  int         `json:"queued"`
}

// PromptResolvedData is the data for prompt.resolved events.
type PromptResolvedData struct {
	ID       string         `json:"id"`
	Decision types.Decision `json:"decision"`
	Reason   string         `json:"reason"` // "user" | "timeout" | "cancel"
}

// QueueClearedData is the data for queue.cleared events.
type QueueClearedData struct {
	Cancelled int `json:"cancelled"`
}

// ScopeUpdatedData is the data for scope.updated events.
type ScopeUpdatedData struct {
	Scope *types.Scope `json:"scope,omitempty"`
	// External is true when the change was detected on disk rather than
	// written through this process.
	External bool `json:"external,omitempty"`
}

// ScopeDeletedData is the data for scope.deleted events.
type ScopeDeletedData struct {
	ID string `json:"id"`
}

// DefaultsUpdatedData is the data for defaults.updated events.
type DefaultsUpdatedData struct {
	Defaults types.CapabilityModes `json:"defaults"`
}
