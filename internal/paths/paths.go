// Package paths holds the filesystem conventions of jls: canonical
// root-relative paths, file URIs, and the cache and config locations.
package paths

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const (
	// ConfigDirName is the per-project directory holding config.toml.
	ConfigDirName = ".jls"
	// ConfigFileName is the project config file inside ConfigDirName.
	ConfigFileName = "config.toml"
	// cacheDirName names the cache directory below ~/.cache or the temp dir.
	cacheDirName = "jls"
)

// CanonicalizePath converts path to a slash-separated path relative to root.
// Symlinks are resolved on both sides when they exist, so the same file
// reached through different links canonicalizes identically.
func CanonicalizePath(path, root string) (string, error) {
	resolved, err := evalIfExists(path)
	if err != nil {
		return "", err
	}
	rootResolved, err := evalIfExists(root)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

func evalIfExists(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return abs, nil
		}
		return "", err
	}
	return resolved, nil
}

// IsWithin reports whether path lies inside root (or is root).
func IsWithin(path, root string) bool {
	rel, err := CanonicalizePath(path, root)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, "../")
}

// TrimExt removes the final extension from a slash path.
func TrimExt(p string) string {
	return strings.TrimSuffix(p, filepath.Ext(p))
}

// FileURI returns the file:// URI of an absolute path.
func FileURI(path string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}

// URIToPath returns the local path of a file:// URI. ok is false for other
// schemes or malformed URIs.
func URIToPath(uri string) (string, bool) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return "", false
	}
	return filepath.FromSlash(u.Path), true
}

// NormalizeURI rewrites file URIs into the form FileURI produces so URIs from
// the editor and from compiler output compare equal. Other URIs are returned
// unchanged.
func NormalizeURI(uri string) string {
	if p, ok := URIToPath(uri); ok {
		return FileURI(filepath.Clean(p))
	}
	return uri
}

// CacheDir picks the cache directory: <home>/.cache/jls when <home>/.cache
// exists, else <tmp>/jls. The directory is not created.
func CacheDir(home, tmp string) string {
	if home != "" {
		base := filepath.Join(home, ".cache")
		if info, err := os.Stat(base); err == nil && info.IsDir() {
			return filepath.Join(base, cacheDirName)
		}
	}
	if tmp == "" {
		tmp = os.TempDir()
	}
	return filepath.Join(tmp, cacheDirName)
}

// EnsureDir creates dir and its parents.
func EnsureDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// ConfigPath returns <root>/.jls/config.toml.
func ConfigPath(root string) string {
	return filepath.Join(root, ConfigDirName, ConfigFileName)
}
