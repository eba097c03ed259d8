package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dirgate/dirgate/pkg/types"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("DIRGATE_CONFIG", "")
	t.Setenv("DIRGATE_CONFIG_CONTENT", "")
	t.Setenv("DIRGATE_LOG_LEVEL", "")
	t.Setenv("DIRGATE_DATA_DIR", "")
	t.Setenv("DIRGATE_DEFAULTS", "")
}

func TestLoadProjectConfigWithComments(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "dirgate.jsonc"), `{
		// prompt expiry
		"promptTimeoutMs": 45000,
		"logLevel": "DEBUG",
		"rules": [
			{"pattern": "ocr_*", "capabilities": ["ocr"]}
		]
	}`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 45000, cfg.PromptTimeoutMs)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	require.Len(t, cfg.Rules, 1)
	assert.Equal(t, "ocr_*", cfg.Rules[0].Pattern)
}

func TestLoadInlineConfigContent(t *testing.T) {
	isolateEnv(t)
	t.Setenv("DIRGATE_CONFIG_CONTENT", `{"promptTimeoutMs": 9000}`)

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.PromptTimeoutMs)
}

func TestEnvOverridesWinOverFiles(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "dirgate.json"), `{"logLevel": "INFO"}`)
	t.Setenv("DIRGATE_LOG_LEVEL", "ERROR")
	t.Setenv("DIRGATE_DEFAULTS", `{"contentScanMode":"allow","modificationMode":"ask","ocrMode":"ask","indexingMode":"deny"}`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "ERROR", cfg.LogLevel)
	require.NotNil(t, cfg.Defaults)
	assert.Equal(t, types.ModeAllow, cfg.Defaults.ContentScan)
	assert.Equal(t, types.ModeDeny, cfg.Defaults.Indexing)
}

func TestInterpolateEnvPlaceholder(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	t.Setenv("TEST_DATA_DIR", "/srv/dirgate")
	writeFile(t, filepath.Join(dir, "dirgate.json"), `{"dataDir": "{env:TEST_DATA_DIR}"}`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "/srv/dirgate", cfg.DataDir)
}

func TestDotEnvLoaded(t *testing.T) {
	isolateEnv(t)
	// godotenv only fills variables absent from the environment.
	require.NoError(t, os.Unsetenv("DIRGATE_LOG_LEVEL"))
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".env"), "DIRGATE_LOG_LEVEL=WARN\n")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "WARN", cfg.LogLevel)
}

func TestPromptTimeoutDefault(t *testing.T) {
	var cfg types.Config
	assert.Equal(t, types.DefaultPromptTimeout, cfg.PromptTimeout())

	cfg.PromptTimeoutMs = 500
	assert.Equal(t, "500ms", cfg.PromptTimeout().String())
}

func TestGetPathsUsesXDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/xdg/data")
	paths := GetPaths()
	assert.Equal(t, "/xdg/data/dirgate", paths.Data)
	assert.Equal(t, filepath.Join(paths.Data, "storage"), paths.StoragePath())
}
