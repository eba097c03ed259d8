// Package types contains the shared domain and wire types for dirgate.
package types

import "time"

// Capability is a named kind of filesystem access, gated independently
// per directory scope.
type Capability string

const (
	CapContentScan  Capability = "content_scan"
	CapModification Capability = "modification"
	CapOCR          Capability = "ocr"
	CapIndexing     Capability = "indexing"
)

// Mode is the configured behavior for one capability within one scope.
type Mode string

const (
	ModeDeny  Mode = "deny"
	ModeAsk   Mode = "ask"
	ModeAllow Mode = "allow"
)

// Valid reports whether m is one of the three known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeDeny, ModeAsk, ModeAllow:
		return true
	}
	return false
}

// CheckDecision is the engine's verdict for an action over a set of paths.
type CheckDecision string

const (
	CheckAllow CheckDecision = "allow"
	CheckDeny  CheckDecision = "deny"
	CheckAsk   CheckDecision = "ask"
)

// Decision is the outcome of a queued permission prompt.
type Decision string

const (
	DecisionDeny              Decision = "deny"
	DecisionAllowOnce         Decision = "allow_once"
	DecisionAlwaysAllowFolder Decision = "always_allow_folder"
	DecisionAlwaysAllowExact  Decision = "always_allow_exact"
)

// Valid reports whether d is one of the four known decisions.
func (d Decision) Valid() bool {
	switch d {
	case DecisionDeny, DecisionAllowOnce, DecisionAlwaysAllowFolder, DecisionAlwaysAllowExact:
		return true
	}
	return false
}

// CapabilityModes holds one mode per capability. It is both the global
// defaults record and the per-scope override record.
type CapabilityModes struct {
	ContentScan  Mode `json:"contentScanMode"`
	Modification Mode `json:"modificationMode"`
	OCR          Mode `json:"ocrMode"`
	Indexing     Mode `json:"indexingMode"`
}

// DefaultModes returns the ask-everything baseline.
func DefaultModes() CapabilityModes {
	return CapabilityModes{
		ContentScan:  ModeAsk,
		Modification: ModeAsk,
		OCR:          ModeAsk,
		Indexing:     ModeAsk,
	}
}

// Mode returns the mode for a capability. The second return is false for
// capabilities with no persisted field.
func (c CapabilityModes) Mode(cap Capability) (Mode, bool) {
	switch cap {
	case CapContentScan:
		return c.ContentScan, true
	case CapModification:
		return c.Modification, true
	case CapOCR:
		return c.OCR, true
	case CapIndexing:
		return c.Indexing, true
	}
	return "", false
}

// Set assigns the mode for a capability and reports whether the capability
// maps to a persisted field.
func (c *CapabilityModes) Set(cap Capability, mode Mode) bool {
	switch cap {
	case CapContentScan:
		c.ContentScan = mode
	case CapModification:
		c.Modification = mode
	case CapOCR:
		c.OCR = mode
	case CapIndexing:
		c.Indexing = mode
	default:
		return false
	}
	return true
}

// Scope is a persisted override of the four capability modes for a
// directory subtree. DirectoryPath is always stored normalized.
type Scope struct {
	ID            string `json:"id"`
	DirectoryPath string `json:"directoryPath"`
	CapabilityModes
	CreatedAt time.Time `json:"createdAt"`
}

// BlockedItem is one unmet requirement preventing an unconditional allow.
type BlockedItem struct {
	Path       string     `json:"path"`
	Capability Capability `json:"capability"`
	Mode       Mode       `json:"mode"`
	ScopePath  string     `json:"scopePath,omitempty"`
}

// CheckResult is the decision engine's answer for one permission check.
type CheckResult struct {
	Decision CheckDecision `json:"decision"`
	Blocked  []BlockedItem `json:"blocked,omitempty"`
}

// GrantItem identifies one blocked path for grant-target resolution.
type GrantItem struct {
	Path      string `json:"path"`
	ScopePath string `json:"scopePath,omitempty"`
}

// GrantTarget is the resolver's candidate directories for persisting an
// "always allow" grant. Ambiguous means the folder- and exact-path choices
// diverge meaningfully and the user should be offered both.
type GrantTarget struct {
	Path         string `json:"path"`
	ScopePath    string `json:"scopePath,omitempty"`
	FolderTarget string `json:"folderTarget"`
	ExactTarget  string `json:"exactTarget"`
	Ambiguous    bool   `json:"ambiguous"`
}

// NormalizeResult summarizes one scope-normalization pass.
type NormalizeResult struct {
	Scanned    int `json:"scanned"`
	Normalized int `json:"normalized"`
	Merged     int `json:"merged"`
	Skipped    int `json:"skipped"`
}
