// Package pathutil canonicalizes the path lists a permission check receives
// before any decision is made. Normalization is pure string work: it never
// touches the filesystem.
package pathutil

import "strings"

// NormalizePath trims whitespace, converts backslashes to forward slashes,
// and strips trailing slashes except for a bare root ("/" or a drive root
// like "C:/"). Returns "" for blank input.
func NormalizePath(path string) string {
	p := strings.TrimSpace(path)
	if p == "" {
		return ""
	}

	p = strings.ReplaceAll(p, "\\", "/")

	for len(p) > 1 && strings.HasSuffix(p, "/") && !isRoot(p) {
		p = p[:len(p)-1]
	}

	return p
}

// NormalizePaths maps NormalizePath over the input, drops blanks, and
// deduplicates keeping the order of first occurrence. The result is never
// nil.
func NormalizePaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))

	for _, raw := range paths {
		p := NormalizePath(raw)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}

	return out
}

// ParentDir returns the normalized parent directory of a normalized path,
// or "" when the path has no parent (bare root, or no separator at all).
func ParentDir(path string) string {
	if path == "" || isRoot(path) {
		return ""
	}

	idx := strings.LastIndex(path, "/")
	switch {
	case idx < 0:
		return ""
	case idx == 0:
		return "/"
	default:
		parent := path[:idx]
		if len(parent) == 2 && parent[1] == ':' {
			// Keep drive roots in their canonical "X:/" form.
			return parent + "/"
		}
		return parent
	}
}

// IsAncestor reports whether dir equals path or is an ancestor directory of
// it. Both arguments must already be normalized.
func IsAncestor(dir, path string) bool {
	if dir == "" || path == "" {
		return false
	}
	if dir == path {
		return true
	}
	if isRoot(dir) {
		return strings.HasPrefix(path, dir)
	}
	return strings.HasPrefix(path, dir+"/")
}

// isRoot reports whether p is "/" or a drive root like "C:/".
func isRoot(p string) bool {
	if p == "/" {
		return true
	}
	return len(p) == 3 && p[1] == ':' && p[2] == '/'
}
