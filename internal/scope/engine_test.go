package scope

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dirgate/dirgate/pkg/types"
)

func TestRequiredCapabilities(t *testing.T) {
	engine := NewEngine(newTestStore(t), nil)

	tests := []struct {
		action   string
		expected []types.Capability
	}{
		{"move_files", []types.Capability{types.CapContentScan, types.CapModification}},
		{"delete_items", []types.Capability{types.CapContentScan, types.CapModification}},
		{"read_file", []types.Capability{types.CapContentScan}},
		{"list_directory", []types.Capability{types.CapContentScan}},
		{"ocr_document", []types.Capability{types.CapOCR}},
		{"index_folder", []types.Capability{types.CapIndexing}},
		{"reorganize_tree", []types.Capability{types.CapContentScan, types.CapModification, types.CapIndexing}},
		{"something_else", []types.Capability{types.CapContentScan}},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			assert.Equal(t, tt.expected, engine.requiredCapabilities(tt.action))
		})
	}
}

func TestConfiguredRulesWin(t *testing.T) {
	rules := []types.ActionRule{
		{Pattern: "move_*", Capabilities: []types.Capability{types.CapIndexing}},
	}
	engine := NewEngine(newTestStore(t), rules)

	assert.Equal(t, []types.Capability{types.CapIndexing}, engine.requiredCapabilities("move_files"))
	// Non-matching actions still hit the built-ins.
	assert.Equal(t, []types.Capability{types.CapOCR}, engine.requiredCapabilities("ocr_document"))
}

func TestCheckDefaultsAsk(t *testing.T) {
	engine := NewEngine(newTestStore(t), nil)

	result, err := engine.CheckPermissionRequest(context.Background(), "move_files", []string{"/Users/test/docs/file.txt"})
	require.NoError(t, err)
	assert.Equal(t, types.CheckAsk, result.Decision)
	require.Len(t, result.Blocked, 2)
	assert.Equal(t, types.CapContentScan, result.Blocked[0].Capability)
	assert.Equal(t, types.CapModification, result.Blocked[1].Capability)
	assert.Empty(t, result.Blocked[0].ScopePath)
}

func TestCheckAllowedByScope(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, err := store.UpsertScope(ctx, "/Users/test/docs", allowAll())
	require.NoError(t, err)

	engine := NewEngine(store, nil)
	result, err := engine.CheckPermissionRequest(ctx, "move_files", []string{"/Users/test/docs/file.txt"})
	require.NoError(t, err)
	assert.Equal(t, types.CheckAllow, result.Decision)
	assert.Empty(t, result.Blocked)
}

func TestCheckDeepestScopeWins(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.UpsertScope(ctx, "/Users/test", allowAll())
	require.NoError(t, err)

	inner := allowAll()
	inner.Modification = types.ModeDeny
	_, err = store.UpsertScope(ctx, "/Users/test/docs", inner)
	require.NoError(t, err)

	engine := NewEngine(store, nil)
	result, err := engine.CheckPermissionRequest(ctx, "move_files", []string{"/Users/test/docs/file.txt"})
	require.NoError(t, err)
	assert.Equal(t, types.CheckDeny, result.Decision)
	require.Len(t, result.Blocked, 1)
	assert.Equal(t, types.CapModification, result.Blocked[0].Capability)
	assert.Equal(t, "/Users/test/docs", result.Blocked[0].ScopePath)

	// A sibling outside the inner scope only sees the outer allow.
	result, err = engine.CheckPermissionRequest(ctx, "move_files", []string{"/Users/test/other.txt"})
	require.NoError(t, err)
	assert.Equal(t, types.CheckAllow, result.Decision)
}

func TestCheckDenyBeatsAsk(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	denied := types.DefaultModes()
	denied.ContentScan = types.ModeDeny
	_, err := store.UpsertScope(ctx, "/locked", denied)
	require.NoError(t, err)

	engine := NewEngine(store, nil)
	result, err := engine.CheckPermissionRequest(ctx, "read_file", []string{"/open/a.txt", "/locked/b.txt"})
	require.NoError(t, err)
	assert.Equal(t, types.CheckDeny, result.Decision)
	assert.Len(t, result.Blocked, 2)
}

func TestCheckNormalizesPaths(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, err := store.UpsertScope(ctx, "/Users/test/docs", allowAll())
	require.NoError(t, err)

	engine := NewEngine(store, nil)
	result, err := engine.CheckPermissionRequest(ctx, "read_file", []string{`\Users\test\docs\x.txt`})
	require.NoError(t, err)
	assert.Equal(t, types.CheckAllow, result.Decision)
}

func TestResolveGrantTargetsFileParent(t *testing.T) {
	engine := NewEngine(newTestStore(t), nil)

	targets, err := engine.ResolveGrantTargets(context.Background(), []types.GrantItem{
		{Path: "/Users/test/docs/file.txt"},
	})
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "/Users/test/docs", targets[0].FolderTarget)
	assert.Equal(t, "/Users/test/docs/file.txt", targets[0].ExactTarget)
	assert.True(t, targets[0].Ambiguous)
}

func TestResolveGrantTargetsExistingDirectory(t *testing.T) {
	engine := NewEngine(newTestStore(t), nil)
	dir := t.TempDir()

	targets, err := engine.ResolveGrantTargets(context.Background(), []types.GrantItem{{Path: dir}})
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, targets[0].ExactTarget, targets[0].FolderTarget)
	assert.False(t, targets[0].Ambiguous)
}

func TestResolveGrantTargetsScopePathWins(t *testing.T) {
	engine := NewEngine(newTestStore(t), nil)

	targets, err := engine.ResolveGrantTargets(context.Background(), []types.GrantItem{
		{Path: "/Users/test/docs/file.txt", ScopePath: "/Users/test"},
	})
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "/Users/test", targets[0].FolderTarget)
	assert.True(t, targets[0].Ambiguous)
}
