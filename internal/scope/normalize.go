package scope

import (
	"context"
	"sort"

	"github.com/dirgate/dirgate/internal/pathutil"
	"github.com/dirgate/dirgate/pkg/types"
)

// modeWidth orders modes from narrowest to widest. Merging two rules for
// the same directory keeps the widest mode per capability, so a merge can
// never silently re-narrow an existing allow.
func modeWidth(m types.Mode) int {
	switch m {
	case types.ModeDeny:
		return 0
	case types.ModeAsk:
		return 1
	case types.ModeAllow:
		return 2
	}
	return -1
}

func widest(a, b types.Mode) types.Mode {
	if modeWidth(b) > modeWidth(a) {
		return b
	}
	return a
}

// widenModes merges b into a capability-by-capability, widening only.
func widenModes(a, b types.CapabilityModes) types.CapabilityModes {
	return types.CapabilityModes{
		ContentScan:  widest(a.ContentScan, b.ContentScan),
		Modification: widest(a.Modification, b.Modification),
		OCR:          widest(a.OCR, b.OCR),
		Indexing:     widest(a.Indexing, b.Indexing),
	}
}

// NormalizeScopes cleans up the persisted rule set in one batched pass:
//   - re-normalizes stored directory paths
//   - merges duplicate rules for the same directory (widest mode wins)
//   - drops rules that are redundant against their nearest ancestor rule
//     or the global defaults
//
// Malformed records (empty path, unknown modes) are skipped untouched.
func (s *Store) NormalizeScopes(ctx context.Context) (types.NormalizeResult, error) {
	scopes, err := s.GetScopes(ctx)
	if err != nil {
		return types.NormalizeResult{}, err
	}
	defaults, err := s.GetDefaults(ctx)
	if err != nil {
		return types.NormalizeResult{}, err
	}

	result := types.NormalizeResult{Scanned: len(scopes)}

	// Pass 1: normalize paths and fold duplicates.
	byPath := make(map[string]types.Scope)
	var order []string
	var remove []string

	for _, sc := range scopes {
		dir := pathutil.NormalizePath(sc.DirectoryPath)
		if dir == "" || validModes(sc.CapabilityModes) != nil {
			result.Skipped++
			continue
		}
		if dir != sc.DirectoryPath {
			result.Normalized++
			sc.DirectoryPath = dir
		}

		if existing, ok := byPath[dir]; ok {
			// Keep the older record's identity, widen its modes.
			keep, drop := existing, sc
			if sc.CreatedAt.Before(existing.CreatedAt) {
				keep, drop = sc, existing
			}
			keep.CapabilityModes = widenModes(keep.CapabilityModes, drop.CapabilityModes)
			byPath[dir] = keep
			remove = append(remove, drop.ID)
			result.Merged++
			continue
		}

		byPath[dir] = sc
		order = append(order, dir)
	}

	// Pass 2: drop rules whose effect matches what the surviving rule set
	// would yield without them. Shallowest first so ancestors settle before
	// their children are judged.
	sort.Slice(order, func(i, j int) bool { return len(order[i]) < len(order[j]) })

	for _, dir := range order {
		sc := byPath[dir]
		inherited := defaults
		bestLen := -1
		for otherDir, other := range byPath {
			if otherDir == dir {
				continue
			}
			if pathutil.IsAncestor(otherDir, dir) && len(otherDir) > bestLen {
				inherited = other.CapabilityModes
				bestLen = len(otherDir)
			}
		}
		if sc.CapabilityModes == inherited {
			delete(byPath, dir)
			remove = append(remove, sc.ID)
			result.Merged++
		}
	}

	// Persist: rewrite survivors that changed, delete the rest.
	original := make(map[string]types.Scope, len(scopes))
	for _, sc := range scopes {
		original[sc.ID] = sc
	}

	for _, sc := range byPath {
		if orig, ok := original[sc.ID]; ok && orig == sc {
			continue
		}
		if err := s.storage.Put(ctx, []string{scopesDir, sc.ID}, sc); err != nil {
			return result, err
		}
	}
	for _, id := range remove {
		if err := s.storage.Delete(ctx, []string{scopesDir, id}); err != nil {
			return result, err
		}
	}

	// Refresh the cache from what was just written.
	if err := s.reload(ctx, false); err != nil {
		return result, err
	}

	return result, nil
}
