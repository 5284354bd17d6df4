package compiler

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"jls/internal/paths"
)

// skippedDirs are never searched for sources.
var skippedDirs = map[string]bool{
	"target": true,
	"build":  true,
}

// Source is one discovered source file.
type Source struct {
	Path string
	// Key is the slash path relative to its source root, extension stripped.
	Key     string
	ModTime time.Time
}

// artifacts indexes compiled files under the output directory by their
// output-relative slash path with the extension stripped.
func (s *Session) artifacts() map[string]time.Time {
	out := make(map[string]time.Time)
	_ = filepath.WalkDir(s.outputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(path, s.classExt) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := paths.CanonicalizePath(path, s.outputDir)
		if err != nil {
			return nil
		}
		out[paths.TrimExt(rel)] = info.ModTime()
		return nil
	})
	return out
}

// Sources enumerates every source file under the workspace root, skipping
// hidden and build directories, the output directory and excluded globs.
func (s *Session) Sources() ([]Source, error) {
	var sources []Source
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != s.root {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if path == s.root {
				return nil
			}
			name := d.Name()
			if strings.HasPrefix(name, ".") || skippedDirs[name] || path == s.outputDir || s.excluded(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, s.sourceExt) || s.excluded(rel) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		sources = append(sources, Source{Path: path, Key: s.sourceKey(path, rel), ModTime: info.ModTime()})
		return nil
	})
	return sources, err
}

func (s *Session) excluded(rel string) bool {
	for _, pattern := range s.exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// sourceKey canonicalizes path against the first source root containing it.
// Files outside every root fall back to their workspace-relative path.
func (s *Session) sourceKey(path, rel string) string {
	for _, root := range s.sourceRoots {
		r, err := paths.CanonicalizePath(path, root)
		if err != nil || r == ".." || strings.HasPrefix(r, "../") {
			continue
		}
		return paths.TrimExt(r)
	}
	return paths.TrimExt(rel)
}

// StaleSources returns the paths of sources that need compiling, sorted. With
// forceAll every source is returned. Otherwise a source is stale when no
// artifact has its key or the artifact is strictly older than the source.
func (s *Session) StaleSources(forceAll bool) ([]string, error) {
	sources, err := s.Sources()
	if err != nil {
		return nil, err
	}
	var built map[string]time.Time
	if !forceAll {
		built = s.artifacts()
	}

	var stale []string
	for _, src := range sources {
		if forceAll || isStale(src, built) {
			stale = append(stale, src.Path)
		}
	}
	sort.Strings(stale)
	return stale, nil
}

func isStale(src Source, built map[string]time.Time) bool {
	artifact, ok := built[src.Key]
	if !ok || artifact.IsZero() {
		return true
	}
	return artifact.Before(src.ModTime)
}
