package permission

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dirgate/dirgate/internal/logging"
	"github.com/dirgate/dirgate/internal/pathutil"
	"github.com/dirgate/dirgate/pkg/types"
)

// Client ties the decision backend, the scope store, and the prompt queue
// together. Action handlers call Preflight before touching the filesystem
// and RetryAfterFailure when an operation fails in a way a fresh grant
// might fix.
type Client struct {
	backend Backend
	store   ScopeStore
	queue   *Queue
	log     zerolog.Logger
}

// NewClient creates a Client over the given collaborators.
func NewClient(backend Backend, store ScopeStore, queue *Queue) *Client {
	return &Client{
		backend: backend,
		store:   store,
		queue:   queue,
		log:     logging.Component("permission"),
	}
}

// Queue exposes the underlying prompt queue for presentation surfaces.
func (c *Client) Queue() *Queue {
	return c.queue
}

// Preflight checks whether action may proceed against paths. The returned
// bool reports whether the clearance is one-shot: true means the user
// granted this single invocation only, false means the action was cleared
// by standing scope rules (or had no paths to check). A nil error means
// the action may proceed.
//
// Denials surface as *DeniedError (engine said no) or *UserDeniedError
// (the user declined, the prompt timed out, or the queue was cancelled).
func (c *Client) Preflight(ctx context.Context, action string, paths []string, title string) (bool, error) {
	paths = pathutil.NormalizePaths(paths)
	if len(paths) == 0 {
		return false, nil
	}

	result, err := c.backend.CheckPermissionRequest(ctx, action, paths)
	if err != nil {
		return false, fmt.Errorf("permission check for %s: %w", action, err)
	}

	switch result.Decision {
	case types.CheckAllow:
		return false, nil
	case types.CheckDeny:
		return false, &DeniedError{Action: action, Blocked: result.Blocked}
	}

	// Ask: figure out what an "always allow" grant would target before
	// prompting, so the prompt can offer the right choices.
	items := dedupeGrantItems(result.Blocked)
	targets, err := c.backend.ResolveGrantTargets(ctx, items)
	if err != nil {
		c.log.Warn().Err(err).Str("action", action).Msg("grant target resolution failed, prompt will omit targets")
		targets = nil
	}

	allowExact := false
	for _, t := range targets {
		if t.Ambiguous {
			allowExact = true
			break
		}
	}

	decisionCh := c.queue.Request(PromptInput{
		Action:         action,
		Title:          title,
		Kind:           PromptInitial,
		Blocked:        result.Blocked,
		AllowAlways:    len(result.Blocked) > 0,
		AllowExactPath: allowExact,
	})

	var decision types.Decision
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case decision = <-decisionCh:
	}

	switch decision {
	case types.DecisionDeny:
		return false, &UserDeniedError{Action: action, Title: title}
	case types.DecisionAllowOnce:
		return true, nil
	case types.DecisionAlwaysAllowFolder, types.DecisionAlwaysAllowExact:
		if err := c.persistAlwaysAllow(ctx, result.Blocked, decision, targets); err != nil {
			// The user already consented; a persistence failure must not
			// retroactively block the action.
			c.log.Error().Err(err).Str("action", action).Msg("failed to persist always-allow grant")
		}
		return true, nil
	default:
		return false, &UserDeniedError{Action: action, Title: title}
	}
}

// RetryAfterFailure offers the user a second, narrower chance after an
// operation failed: allow once or deny, never a durable grant. It reports
// whether the caller should retry the operation. It never returns an
// error for a declined prompt, so a failed retry cannot cascade into
// another retry.
func (c *Client) RetryAfterFailure(ctx context.Context, action string, paths []string, title string) (bool, error) {
	paths = pathutil.NormalizePaths(paths)
	if len(paths) == 0 {
		return false, nil
	}

	result, err := c.backend.CheckPermissionRequest(ctx, action, paths)
	if err != nil {
		return false, fmt.Errorf("permission check for %s: %w", action, err)
	}
	if result.Decision != types.CheckAsk {
		// Allow means permissions were not the problem; deny means a
		// retry cannot succeed either way.
		return false, nil
	}

	decisionCh := c.queue.Request(PromptInput{
		Action:  action,
		Title:   title,
		Kind:    PromptRetry,
		Blocked: result.Blocked,
	})

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case decision := <-decisionCh:
		return decision == types.DecisionAllowOnce, nil
	}
}

// CancelAll empties the prompt queue, denying every waiter.
func (c *Client) CancelAll() int {
	return c.queue.CancelAll()
}
