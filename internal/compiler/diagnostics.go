package compiler

import (
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"jls/internal/paths"
)

// CompileError is one diagnostic reported by the compiler.
type CompileError struct {
	// Row is 1-based as printed by the compiler; 0 when it could not be parsed.
	Row int `json:"row"`
	// Column is 0-based, taken from the caret line.
	Column  int    `json:"column"`
	Message string `json:"message"`
}

// Diagnostics maps file URIs to the errors reported for them. URIs without
// errors are absent.
type Diagnostics map[string][]CompileError

// Count returns the total number of errors.
func (d Diagnostics) Count() int {
	n := 0
	for _, errs := range d {
		n += len(errs)
	}
	return n
}

// ParseDiagnostics extracts errors from javac's error stream.
//
// A header line does not start with whitespace and contains the source
// extension followed by ':'. Its ':'-separated fields are the path, the row and
// finally the message. The header is followed by a source excerpt, which is
// skipped, and a caret line whose leading whitespace before '^' gives the
// column. Anything else is ignored. Relative paths are resolved against baseDir.
func ParseDiagnostics(stderr, sourceExt, baseDir string) Diagnostics {
	out := make(Diagnostics)
	marker := sourceExt + ":"
	lines := splitLines(stderr)

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if line == "" || startsWithSpace(line) || !strings.Contains(line, marker) {
			continue
		}
		// Excerpt and caret lines must both be present.
		if i+2 >= len(lines) {
			break
		}
		i += 2
		pointer := lines[i]

		fields := strings.Split(line, ":")
		path := fields[0]
		if !filepath.IsAbs(path) && baseDir != "" {
			path = filepath.Join(baseDir, path)
		}
		uri := paths.FileURI(path)

		row := 0
		if n, err := strconv.ParseUint(strings.TrimSpace(fields[1]), 10, 31); err == nil {
			row = int(n)
		}

		out[uri] = append(out[uri], CompileError{
			Row:     row,
			Column:  caretColumn(pointer),
			Message: strings.TrimSpace(fields[len(fields)-1]),
		})
	}
	return out
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

func startsWithSpace(s string) bool {
	for _, r := range s {
		return unicode.IsSpace(r)
	}
	return false
}

// caretColumn counts the whitespace that leads up to '^'. Lines without a
// caret yield 0.
func caretColumn(line string) int {
	before, _, found := strings.Cut(line, "^")
	if !found {
		return 0
	}
	n := 0
	for _, r := range before {
		if !unicode.IsSpace(r) {
			break
		}
		n++
	}
	return n
}
