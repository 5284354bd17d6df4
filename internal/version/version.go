// Package version holds build version information for jls.
package version

// Overridden at build time:
// go build -ldflags "-X jls/internal/version.Version=0.2.0 -X jls/internal/version.Commit=abc123"
var (
	// Version is the semantic version of jls.
	Version = "0.1.0"

	// Commit is the git commit hash.
	Commit = "unknown"

	// BuildDate is the build timestamp.
	BuildDate = "unknown"
)

// Info returns "version" or "version (shortcommit)".
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns multi-line version information for `jls version`.
func Full() string {
	return "jls version " + Version + "\n" +
		"Commit: " + Commit + "\n" +
		"Built: " + BuildDate
}
