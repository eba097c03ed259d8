package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"

	"github.com/dirgate/dirgate/pkg/types"
)

// Load loads configuration from multiple sources (priority order):
// 1. Global config (~/.dirgate/)
// 2. Global config (~/.config/dirgate/ - XDG compatible)
// 3. Project config (.dirgate/ inside the managed directory)
// 4. DIRGATE_CONFIG file
// 5. DIRGATE_CONFIG_CONTENT inline JSON
// 6. Environment variables
func Load(directory string) (*types.Config, error) {
	// A .env next to the managed directory may carry DIRGATE_* settings.
	if directory != "" {
		_ = godotenv.Load(filepath.Join(directory, ".env"))
	}

	config := &types.Config{}

	// Track loaded files to avoid duplicates
	loaded := make(map[string]bool)

	loadOnce := func(path string, baseDir string) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return
		}
		if loaded[absPath] {
			return
		}
		if loadConfigFile(path, config, baseDir) == nil {
			loaded[absPath] = true
		}
	}

	// 1. Home-dotdir global config (~/.dirgate/)
	home := os.Getenv("HOME")
	if home != "" {
		dotDir := filepath.Join(home, ".dirgate")
		loadOnce(filepath.Join(dotDir, "dirgate.json"), dotDir)
		loadOnce(filepath.Join(dotDir, "dirgate.jsonc"), dotDir)
	}

	// 2. XDG-compatible global config (~/.config/dirgate/)
	globalPath := GetPaths().Config
	loadOnce(filepath.Join(globalPath, "dirgate.json"), globalPath)
	loadOnce(filepath.Join(globalPath, "dirgate.jsonc"), globalPath)

	// 3. Project config
	if directory != "" {
		projectConfigDir := filepath.Join(directory, ".dirgate")
		loadOnce(filepath.Join(directory, "dirgate.json"), directory)
		loadOnce(filepath.Join(directory, "dirgate.jsonc"), directory)
		loadOnce(filepath.Join(projectConfigDir, "dirgate.json"), projectConfigDir)
		loadOnce(filepath.Join(projectConfigDir, "dirgate.jsonc"), projectConfigDir)
	}

	// 4. DIRGATE_CONFIG file override
	if configPath := os.Getenv("DIRGATE_CONFIG"); configPath != "" {
		loadOnce(configPath, filepath.Dir(configPath))
	}

	// 5. DIRGATE_CONFIG_CONTENT inline JSON
	if configContent := os.Getenv("DIRGATE_CONFIG_CONTENT"); configContent != "" {
		var inlineConfig types.Config
		if err := json.Unmarshal([]byte(configContent), &inlineConfig); err == nil {
			mergeConfig(config, &inlineConfig)
		}
	}

	// 6. Environment variables (highest priority)
	applyEnvOverrides(config)

	return config, nil
}

// loadConfigFile loads a single config file with interpolation support.
func loadConfigFile(path string, config *types.Config, baseDir string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err // File doesn't exist, skip
	}

	// Strip JSONC comments using tidwall/jsonc
	data = jsonc.ToJSON(data)

	// Apply interpolation
	data = interpolate(data, baseDir)

	var fileConfig types.Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return err
	}

	mergeConfig(config, &fileConfig)
	return nil
}

// interpolate processes {env:VAR} and {file:path} placeholders.
func interpolate(data []byte, baseDir string) []byte {
	str := string(data)

	// Handle {env:VAR_NAME} placeholders
	envPattern := regexp.MustCompile(`\{env:([^}]+)\}`)
	str = envPattern.ReplaceAllStringFunc(str, func(match string) string {
		varName := envPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})

	// Handle {file:path} placeholders
	filePattern := regexp.MustCompile(`\{file:([^}]+)\}`)
	str = filePattern.ReplaceAllStringFunc(str, func(match string) string {
		filePath := filePattern.FindStringSubmatch(match)[1]

		if strings.HasPrefix(filePath, "~/") {
			filePath = filepath.Join(os.Getenv("HOME"), filePath[2:])
		} else if !filepath.IsAbs(filePath) {
			filePath = filepath.Join(baseDir, filePath)
		}

		content, err := os.ReadFile(filePath)
		if err != nil {
			return match // Keep original if file not found
		}

		// Escape for JSON string
		escaped := strings.ReplaceAll(string(content), "\\", "\\\\")
		escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
		escaped = strings.ReplaceAll(escaped, "\n", "\\n")
		escaped = strings.ReplaceAll(escaped, "\r", "\\r")
		escaped = strings.ReplaceAll(escaped, "\t", "\\t")

		return escaped
	})

	return []byte(str)
}

// mergeConfig merges source config into target.
func mergeConfig(target, source *types.Config) {
	if source.Schema != "" {
		target.Schema = source.Schema
	}
	if source.LogLevel != "" {
		target.LogLevel = source.LogLevel
	}
	if source.DataDir != "" {
		target.DataDir = source.DataDir
	}
	if source.PromptTimeoutMs > 0 {
		target.PromptTimeoutMs = source.PromptTimeoutMs
	}
	if source.Defaults != nil {
		target.Defaults = source.Defaults
	}
	if len(source.Rules) > 0 {
		target.Rules = append(target.Rules, source.Rules...)
	}
	if source.Server != nil {
		if target.Server == nil {
			target.Server = &types.ServerConfig{}
		}
		if source.Server.Port > 0 {
			target.Server.Port = source.Server.Port
		}
		if source.Server.Hostname != "" {
			target.Server.Hostname = source.Server.Hostname
		}
		if source.Server.EnableCORS != nil {
			target.Server.EnableCORS = source.Server.EnableCORS
		}
	}
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(config *types.Config) {
	if level := os.Getenv("DIRGATE_LOG_LEVEL"); level != "" {
		config.LogLevel = level
	}

	if dataDir := os.Getenv("DIRGATE_DATA_DIR"); dataDir != "" {
		config.DataDir = dataDir
	}

	// Defaults override (JSON)
	if defaultsJSON := os.Getenv("DIRGATE_DEFAULTS"); defaultsJSON != "" {
		var modes types.CapabilityModes
		if err := json.Unmarshal([]byte(defaultsJSON), &modes); err == nil {
			config.Defaults = &modes
		}
	}
}

// Save saves the configuration to a file.
func Save(config *types.Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
