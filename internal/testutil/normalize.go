package testutil

import (
	"path/filepath"
	"sort"
	"strings"
)

// RootPlaceholder replaces the temporary workspace root in golden output.
const RootPlaceholder = "<root>"

// NormalizeRoot replaces every occurrence of root, in plain or file URI form
// and with or without resolved symlinks, by RootPlaceholder. Separators are
// rewritten to forward slashes so golden files are platform independent.
func NormalizeRoot(s, root string) string {
	forms := []string{root}
	if resolved, err := filepath.EvalSymlinks(root); err == nil && resolved != root {
		forms = append(forms, resolved)
	}
	// Longer forms first so a resolved path is not half-replaced by its suffix.
	sort.Slice(forms, func(i, j int) bool { return len(forms[i]) > len(forms[j]) })
	s = strings.ReplaceAll(s, "\\", "/")
	for _, r := range forms {
		r = filepath.ToSlash(r)
		s = strings.ReplaceAll(s, "file://"+r, "file://"+RootPlaceholder)
		s = strings.ReplaceAll(s, r, RootPlaceholder)
	}
	return s
}
