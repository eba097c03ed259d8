package types

import "time"

// ActionRule maps action identifiers to the capabilities they require.
// Pattern is a doublestar glob matched against the action name.
type ActionRule struct {
	Pattern      string       `json:"pattern"`
	Capabilities []Capability `json:"capabilities"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port       int    `json:"port,omitempty"`
	Hostname   string `json:"hostname,omitempty"`
	EnableCORS *bool  `json:"enableCors,omitempty"`
}

// Config is the merged dirgate configuration.
type Config struct {
	Schema          string           `json:"$schema,omitempty"`
	LogLevel        string           `json:"logLevel,omitempty"`
	DataDir         string           `json:"dataDir,omitempty"`
	PromptTimeoutMs int              `json:"promptTimeoutMs,omitempty"`
	Defaults        *CapabilityModes `json:"defaults,omitempty"`
	Rules           []ActionRule     `json:"rules,omitempty"`
	Server          *ServerConfig    `json:"server,omitempty"`
}

// DefaultPromptTimeout applies when promptTimeoutMs is unset. The exact
// duration is policy, not protocol, so it stays configurable.
const DefaultPromptTimeout = 2 * time.Minute

// PromptTimeout returns the configured prompt expiry as a duration.
func (c *Config) PromptTimeout() time.Duration {
	if c == nil || c.PromptTimeoutMs <= 0 {
		return DefaultPromptTimeout
	}
	return time.Duration(c.PromptTimeoutMs) * time.Millisecond
}
