package scope

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dirgate/dirgate/pkg/types"
)

func TestWidenModesNeverNarrows(t *testing.T) {
	a := types.CapabilityModes{ContentScan: types.ModeAllow, Modification: types.ModeDeny, OCR: types.ModeAsk, Indexing: types.ModeAsk}
	b := types.CapabilityModes{ContentScan: types.ModeDeny, Modification: types.ModeAsk, OCR: types.ModeAllow, Indexing: types.ModeAsk}

	merged := widenModes(a, b)
	assert.Equal(t, types.ModeAllow, merged.ContentScan)
	assert.Equal(t, types.ModeAsk, merged.Modification)
	assert.Equal(t, types.ModeAllow, merged.OCR)
	assert.Equal(t, types.ModeAsk, merged.Indexing)
}

func TestNormalizeMergesDuplicateDirectories(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Two records for the same directory can only exist via raw storage
	// writes (UpsertScope folds them), e.g. two processes racing.
	first := types.Scope{
		ID:            "01AAAAAAAAAAAAAAAAAAAAAAAA",
		DirectoryPath: "/Users/test/docs",
		CapabilityModes: types.CapabilityModes{
			ContentScan: types.ModeAllow, Modification: types.ModeAsk,
			OCR: types.ModeAsk, Indexing: types.ModeAsk,
		},
		CreatedAt: time.Now().Add(-time.Hour).UTC(),
	}
	second := types.Scope{
		ID:            "01BBBBBBBBBBBBBBBBBBBBBBBB",
		DirectoryPath: "/Users/test/docs/",
		CapabilityModes: types.CapabilityModes{
			ContentScan: types.ModeAsk, Modification: types.ModeAllow,
			OCR: types.ModeAsk, Indexing: types.ModeAsk,
		},
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.storage.Put(ctx, []string{scopesDir, first.ID}, first))
	require.NoError(t, s.storage.Put(ctx, []string{scopesDir, second.ID}, second))
	require.NoError(t, s.reload(ctx, false))

	result, err := s.NormalizeScopes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Scanned)
	assert.Equal(t, 1, result.Merged)
	assert.Equal(t, 1, result.Normalized) // trailing slash on the second record

	scopes, err := s.GetScopes(ctx)
	require.NoError(t, err)
	require.Len(t, scopes, 1)
	assert.Equal(t, first.ID, scopes[0].ID) // older identity kept
	assert.Equal(t, types.ModeAllow, scopes[0].ContentScan)
	assert.Equal(t, types.ModeAllow, scopes[0].Modification) // widened, not narrowed
}

func TestNormalizeDropsRedundantChild(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertScope(ctx, "/Users/test", allowAll())
	require.NoError(t, err)
	_, err = s.UpsertScope(ctx, "/Users/test/docs", allowAll())
	require.NoError(t, err)

	result, err := s.NormalizeScopes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Merged)

	scopes, err := s.GetScopes(ctx)
	require.NoError(t, err)
	require.Len(t, scopes, 1)
	assert.Equal(t, "/Users/test", scopes[0].DirectoryPath)
}

func TestNormalizeDropsRuleEqualToDefaults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertScope(ctx, "/tmp/x", types.DefaultModes())
	require.NoError(t, err)

	result, err := s.NormalizeScopes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Merged)

	scopes, err := s.GetScopes(ctx)
	require.NoError(t, err)
	assert.Empty(t, scopes)
}

func TestNormalizeKeepsMeaningfulRules(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertScope(ctx, "/Users/test", allowAll())
	require.NoError(t, err)
	inner := allowAll()
	inner.Modification = types.ModeDeny
	_, err = s.UpsertScope(ctx, "/Users/test/docs", inner)
	require.NoError(t, err)

	result, err := s.NormalizeScopes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Merged)

	scopes, err := s.GetScopes(ctx)
	require.NoError(t, err)
	assert.Len(t, scopes, 2)
}

func TestNormalizeSkipsMalformedRecords(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	bad := types.Scope{ID: "01CCCCCCCCCCCCCCCCCCCCCCCC", DirectoryPath: ""}
	require.NoError(t, s.storage.Put(ctx, []string{scopesDir, bad.ID}, bad))
	require.NoError(t, s.reload(ctx, false))

	result, err := s.NormalizeScopes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
}
