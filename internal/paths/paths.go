// Package paths provides canonical path handling for repository scans.
//
// All paths stored in the index and emitted in findings are repo-relative
// with forward slashes, regardless of platform.
package paths

import (
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	// LocalStateDir is the per-repo directory for scanner state.
	LocalStateDir = ".docrot"

	// CacheDBFile is the name of the URL verdict cache database.
	CacheDBFile = "cache.db"
)

// CanonicalizePath converts an absolute path to a repo-relative canonical path
// - Resolves symlinks to real paths
// - Makes path relative to repo root
// - Converts backslashes to forward slashes
// - Returns repo-relative path with forward slashes
func CanonicalizePath(absolutePath string, repoRoot string) (string, error) {
	// Resolve symlinks
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		// If the file doesn't exist yet, use the path as-is
		if os.IsNotExist(err) {
			resolved = absolutePath
		} else {
			return "", err
		}
	}

	// Make path relative to repo root
	repoRootResolved, err := filepath.EvalSymlinks(repoRoot)
	if err != nil {
		if os.IsNotExist(err) {
			repoRootResolved = repoRoot
		} else {
			return "", err
		}
	}

	relativePath, err := filepath.Rel(repoRootResolved, resolved)
	if err != nil {
		return "", err
	}

	// Convert to forward slashes (platform independent)
	canonicalPath := filepath.ToSlash(relativePath)

	return canonicalPath, nil
}

// IsWithinRepo checks if a path is within the repository root
func IsWithinRepo(path string, repoRoot string) bool {
	canonical, err := CanonicalizePath(path, repoRoot)
	if err != nil {
		return false
	}

	// Path is outside repo if it starts with ..
	return !strings.HasPrefix(canonical, "..")
}

// NormalizePath normalizes a path by converting backslashes to forward slashes
// This is useful for paths that are already relative but need normalization
func NormalizePath(path string) string {
	return filepath.ToSlash(path)
}

// JoinRepoPath joins a repo root with a canonical path
func JoinRepoPath(repoRoot string, canonicalPath string) string {
	// Ensure we use forward slashes in the canonical path
	normalizedPath := strings.ReplaceAll(canonicalPath, "\\", "/")
	// Convert to OS-specific path separator for joining
	parts := strings.Split(normalizedPath, "/")
	return filepath.Join(append([]string{repoRoot}, parts...)...)
}

// ResolveDocLink resolves a link target against the directory of the document
// that contains it and returns the canonical repo-relative path.
//
// Targets starting with "/" are taken relative to the repository root, the
// convention used by GitHub and most doc renderers. Returns ok=false when the
// target escapes the repository root.
func ResolveDocLink(docPath string, target string) (string, bool) {
	t := filepath.ToSlash(target)

	var joined string
	if strings.HasPrefix(t, "/") {
		joined = path.Clean(strings.TrimPrefix(t, "/"))
	} else {
		joined = path.Join(path.Dir(docPath), t)
	}

	// Path is outside repo if it starts with ..
	if strings.HasPrefix(joined, "..") {
		return "", false
	}

	return joined, true
}

// GetLocalStateDir returns the per-repo state directory (<root>/.docrot)
func GetLocalStateDir(repoRoot string) string {
	return filepath.Join(repoRoot, LocalStateDir)
}

// EnsureLocalStateDir creates the per-repo state directory if it doesn't exist
func EnsureLocalStateDir(repoRoot string) (string, error) {
	dir := GetLocalStateDir(repoRoot)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// GetCacheDatabasePath returns the path of the URL verdict cache database
func GetCacheDatabasePath(repoRoot string) string {
	return filepath.Join(GetLocalStateDir(repoRoot), CacheDBFile)
}
