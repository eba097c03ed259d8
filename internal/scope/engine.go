package scope

import (
	"context"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"

	"github.com/dirgate/dirgate/internal/logging"
	"github.com/dirgate/dirgate/internal/pathutil"
	"github.com/dirgate/dirgate/pkg/types"
)

// defaultRules map file-manager action names to the capabilities they
// require. Configured rules are consulted first; the final wildcard keeps
// unknown actions gated behind content_scan rather than letting them
// through unchecked.
var defaultRules = []types.ActionRule{
	{Pattern: "{move,copy,delete,rename,write,create,trash,restore}_*", Capabilities: []types.Capability{types.CapContentScan, types.CapModification}},
	{Pattern: "{read,list,search,preview,open,stat}_*", Capabilities: []types.Capability{types.CapContentScan}},
	{Pattern: "ocr_*", Capabilities: []types.Capability{types.CapOCR}},
	{Pattern: "index_*", Capabilities: []types.Capability{types.CapIndexing}},
	{Pattern: "reorganize_*", Capabilities: []types.Capability{types.CapContentScan, types.CapModification, types.CapIndexing}},
	{Pattern: "*", Capabilities: []types.Capability{types.CapContentScan}},
}

// Engine is the decision engine: it classifies an action's paths into
// capabilities and resolves each against the scope rules and defaults.
type Engine struct {
	store *Store
	rules []types.ActionRule
	log   zerolog.Logger
}

// NewEngine creates an Engine. Configured rules take precedence over the
// built-in defaults.
func NewEngine(store *Store, rules []types.ActionRule) *Engine {
	return &Engine{
		store: store,
		rules: append(append([]types.ActionRule{}, rules...), defaultRules...),
		log:   logging.Component("engine"),
	}
}

// requiredCapabilities returns the capabilities for the first rule whose
// pattern matches the action name.
func (e *Engine) requiredCapabilities(action string) []types.Capability {
	for _, rule := range e.rules {
		ok, err := doublestar.Match(rule.Pattern, action)
		if err != nil {
			e.log.Warn().Str("pattern", rule.Pattern).Err(err).Msg("bad action rule pattern")
			continue
		}
		if ok {
			return rule.Capabilities
		}
	}
	return []types.Capability{types.CapContentScan}
}

// effectiveMode resolves one (path, capability) pair: the deepest scope
// whose directory equals or contains the path wins, otherwise the global
// defaults apply. The second return is the matched scope directory, empty
// when defaults applied.
func effectiveMode(scopes []types.Scope, defaults types.CapabilityModes, path string, capability types.Capability) (types.Mode, string) {
	var best *types.Scope
	for i := range scopes {
		sc := &scopes[i]
		if !pathutil.IsAncestor(sc.DirectoryPath, path) {
			continue
		}
		if best == nil || len(sc.DirectoryPath) > len(best.DirectoryPath) {
			best = sc
		}
	}

	if best != nil {
		if mode, ok := best.Mode(capability); ok && mode.Valid() {
			return mode, best.DirectoryPath
		}
	}
	mode, ok := defaults.Mode(capability)
	if !ok || !mode.Valid() {
		mode = types.ModeAsk
	}
	return mode, ""
}

// CheckPermissionRequest classifies the action over the given paths and
// aggregates: any deny wins, otherwise any ask, otherwise allow. Blocked
// lists every non-allow (path, capability) pair with the scope that
// produced its mode.
func (e *Engine) CheckPermissionRequest(ctx context.Context, action string, paths []string) (*types.CheckResult, error) {
	scopes, err := e.store.GetScopes(ctx)
	if err != nil {
		return nil, err
	}
	defaults, err := e.store.GetDefaults(ctx)
	if err != nil {
		return nil, err
	}

	caps := e.requiredCapabilities(action)

	result := &types.CheckResult{Decision: types.CheckAllow}
	for _, raw := range paths {
		path := pathutil.NormalizePath(raw)
		if path == "" {
			continue
		}
		for _, capability := range caps {
			mode, scopePath := effectiveMode(scopes, defaults, path, capability)
			if mode == types.ModeAllow {
				continue
			}
			result.Blocked = append(result.Blocked, types.BlockedItem{
				Path:       path,
				Capability: capability,
				Mode:       mode,
				ScopePath:  scopePath,
			})
			if mode == types.ModeDeny {
				result.Decision = types.CheckDeny
			} else if result.Decision != types.CheckDeny {
				result.Decision = types.CheckAsk
			}
		}
	}

	return result, nil
}

// ResolveGrantTargets computes, for each blocked item, the directory a
// folder-level grant would apply to and the exact normalized path, marking
// the pair ambiguous when they diverge. When the blocked item came from an
// existing scope, that scope's directory is the folder target.
func (e *Engine) ResolveGrantTargets(ctx context.Context, items []types.GrantItem) ([]types.GrantTarget, error) {
	targets := make([]types.GrantTarget, 0, len(items))

	for _, item := range items {
		path := pathutil.NormalizePath(item.Path)
		if path == "" {
			continue
		}
		scopePath := pathutil.NormalizePath(item.ScopePath)

		folder := scopePath
		if folder == "" {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				folder = path
			} else if parent := pathutil.ParentDir(path); parent != "" {
				folder = parent
			} else {
				folder = path
			}
		}

		targets = append(targets, types.GrantTarget{
			Path:         path,
			ScopePath:    scopePath,
			FolderTarget: folder,
			ExactTarget:  path,
			Ambiguous:    folder != path,
		})
	}

	return targets, nil
}
