// Package project detects how a Java workspace is built and resolves its
// classpath through the matching build tool.
package project

import (
	"os"
	"path/filepath"
)

// Kind is the build system of a workspace.
type Kind string

const (
	KindMaven  Kind = "maven"
	KindGradle Kind = "gradle"
	KindJavac  Kind = "javac"
)

// manifests are checked in priority order; the first hit decides the kind.
var manifests = []struct {
	path string
	kind Kind
}{
	{"pom.xml", KindMaven},
	{"build.gradle", KindGradle},
	{"build.gradle.kt", KindGradle},
	{"build.gradle.kts", KindGradle},
}

// DetectKind inspects root for build manifests. Workspaces without one are
// compiled with plain javac. The returned manifest path is empty in that case.
func DetectKind(root string) (Kind, string) {
	for _, m := range manifests {
		if info, err := os.Stat(filepath.Join(root, m.path)); err == nil && !info.IsDir() {
			return m.kind, m.path
		}
	}
	return KindJavac, ""
}

// OutputDirectory returns the root-relative slash path compiled classes go to.
func (k Kind) OutputDirectory() string {
	if k == KindGradle {
		return "build/classes"
	}
	return "target/classes"
}

// SourceRoots returns the root-relative slash paths searched for sources, in
// priority order.
func (k Kind) SourceRoots() []string {
	switch k {
	case KindMaven, KindGradle:
		return []string{"src/main/java", "src/test/java"}
	default:
		return []string{"src", "."}
	}
}

// DisplayName returns a human-readable name for the kind.
func (k Kind) DisplayName() string {
	switch k {
	case KindMaven:
		return "Maven"
	case KindGradle:
		return "Gradle"
	case KindJavac:
		return "plain javac"
	default:
		return string(k)
	}
}
