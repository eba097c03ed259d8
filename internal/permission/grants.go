package permission

import (
	"context"
	"fmt"

	"github.com/dirgate/dirgate/internal/pathutil"
	"github.com/dirgate/dirgate/pkg/types"
)

// dedupeGrantItems collapses blocked items sharing the same (path, scope)
// pair so grant resolution sees each candidate directory once.
func dedupeGrantItems(blocked []types.BlockedItem) []types.GrantItem {
	seen := make(map[string]bool, len(blocked))
	items := make([]types.GrantItem, 0, len(blocked))
	for _, b := range blocked {
		key := b.Path + "\x00" + b.ScopePath
		if seen[key] {
			continue
		}
		seen[key] = true
		items = append(items, types.GrantItem{Path: b.Path, ScopePath: b.ScopePath})
	}
	return items
}

// persistAlwaysAllow turns a durable user decision into scope rules. Each
// blocked capability is flipped to allow on the chosen target directory;
// untouched capabilities keep the modes of any existing rule at that
// directory, or the defaults. One normalization pass at the end folds the
// new rules into the existing set.
func (c *Client) persistAlwaysAllow(ctx context.Context, blocked []types.BlockedItem, decision types.Decision, targets []types.GrantTarget) error {
	scopes, err := c.store.GetScopes(ctx)
	if err != nil {
		return fmt.Errorf("load scopes: %w", err)
	}
	defaults, err := c.store.GetDefaults(ctx)
	if err != nil {
		return fmt.Errorf("load defaults: %w", err)
	}

	scopeByPath := make(map[string]types.Scope, len(scopes))
	for _, sc := range scopes {
		scopeByPath[sc.DirectoryPath] = sc
	}
	targetByKey := make(map[string]types.GrantTarget, len(targets))
	for _, t := range targets {
		targetByKey[t.Path+"\x00"+t.ScopePath] = t
	}

	updates := make(map[string]*types.CapabilityModes)
	var order []string

	for _, b := range blocked {
		if _, ok := defaults.Mode(b.Capability); !ok {
			c.log.Warn().Str("capability", string(b.Capability)).Msg("skipping grant for unknown capability")
			continue
		}

		dir := grantDirectory(b, decision, targetByKey)
		modes, ok := updates[dir]
		if !ok {
			seed := defaults
			if existing, found := scopeByPath[dir]; found {
				seed = existing.CapabilityModes
			}
			modes = &seed
			updates[dir] = modes
			order = append(order, dir)
		}
		modes.Set(b.Capability, types.ModeAllow)
	}

	for _, dir := range order {
		if _, err := c.store.UpsertScope(ctx, dir, *updates[dir]); err != nil {
			return fmt.Errorf("persist grant for %s: %w", dir, err)
		}
	}
	if len(order) > 0 {
		if _, err := c.store.NormalizeScopes(ctx); err != nil {
			return fmt.Errorf("normalize after grant: %w", err)
		}
	}
	return nil
}

// grantDirectory picks the directory a grant lands on: the resolved
// folder or exact target when available, otherwise the blocking scope's
// own path, otherwise the blocked path itself. Targets are normalized
// here because the resolver interface does not guarantee canonical paths,
// and the seed lookup in persistAlwaysAllow is keyed by normalized paths.
func grantDirectory(b types.BlockedItem, decision types.Decision, targetByKey map[string]types.GrantTarget) string {
	if t, ok := targetByKey[b.Path+"\x00"+b.ScopePath]; ok {
		if decision == types.DecisionAlwaysAllowExact {
			if exact := pathutil.NormalizePath(t.ExactTarget); exact != "" {
				return exact
			}
		}
		if folder := pathutil.NormalizePath(t.FolderTarget); folder != "" {
			return folder
		}
	}
	if b.ScopePath != "" {
		return pathutil.NormalizePath(b.ScopePath)
	}
	return pathutil.NormalizePath(b.Path)
}
