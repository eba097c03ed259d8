// Package permission is the decision and prompt-queue core of dirgate.
// Every filesystem-touching action preflights through it: the decision
// engine classifies the action's paths, and when user consent is needed
// the request is serialized through a single process-wide prompt queue.
package permission

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dirgate/dirgate/pkg/types"
)

// Backend is the decision engine and grant-target resolver consulted on
// every preflight.
type Backend interface {
	CheckPermissionRequest(ctx context.Context, action string, paths []string) (*types.CheckResult, error)
	ResolveGrantTargets(ctx context.Context, items []types.GrantItem) ([]types.GrantTarget, error)
}

// ScopeStore is the persisted scope/defaults store used when a user picks
// an "always allow" decision.
type ScopeStore interface {
	GetScopes(ctx context.Context) ([]types.Scope, error)
	GetDefaults(ctx context.Context) (types.CapabilityModes, error)
	UpsertScope(ctx context.Context, directoryPath string, modes types.CapabilityModes) (string, error)
	NormalizeScopes(ctx context.Context) (types.NormalizeResult, error)
}

// PromptKind distinguishes the first-chance preflight prompt from the
// narrower retry-after-failure prompt.
type PromptKind string

const (
	PromptInitial PromptKind = "initial"
	PromptRetry   PromptKind = "retry"
)

// PromptInput describes one prompt submission to the queue.
type PromptInput struct {
	Action         string
	Title          string
	Kind           PromptKind
	Blocked        []types.BlockedItem
	AllowAlways    bool
	AllowExactPath bool
}

// blockedSummaryLimit caps how many blocked items a denial message lists.
const blockedSummaryLimit = 4

// DeniedError is returned when the decision engine denies an action
// outright. The message summarizes the first few blocked items.
type DeniedError struct {
	Action  string
	Blocked []types.BlockedItem
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("permission denied for %s: %s", e.Action, summarizeBlocked(e.Blocked))
}

// UserDeniedError is returned when the user declines a prompt. A timed-out
// or cancelled prompt is indistinguishable from an explicit deny.
type UserDeniedError struct {
	Action string
	Title  string
}

func (e *UserDeniedError) Error() string {
	return fmt.Sprintf("permission denied by user for %s", e.Action)
}

// IsDenied reports whether err is either kind of permission denial.
func IsDenied(err error) bool {
	var de *DeniedError
	var ue *UserDeniedError
	return errors.As(err, &de) || errors.As(err, &ue)
}

// summarizeBlocked renders up to blockedSummaryLimit items plus a "+N more"
// suffix for the remainder.
func summarizeBlocked(blocked []types.BlockedItem) string {
	if len(blocked) == 0 {
		return "no details"
	}

	shown := blocked
	if len(shown) > blockedSummaryLimit {
		shown = shown[:blockedSummaryLimit]
	}

	parts := make([]string, 0, len(shown)+1)
	for _, item := range shown {
		parts = append(parts, fmt.Sprintf("%s (%s)", item.Path, item.Capability))
	}
	if rest := len(blocked) - len(shown); rest > 0 {
		parts = append(parts, fmt.Sprintf("+%d more", rest))
	}
	return strings.Join(parts, ", ")
}
