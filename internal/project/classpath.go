package project

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	jlserrors "jls/internal/errors"
	"jls/internal/slogutil"
)

// GradleInitScriptName is the file written into the cache directory and
// passed to gradle with --init-script.
const GradleInitScriptName = "gradle-init-script.gradle"

// gradleClasspathTask is registered by the init script.
const gradleClasspathTask = "generateClasspath"

const gradleInitScript = `
gradle.projectsEvaluated {
    allprojects {
        if (plugins.hasPlugin('java')) {
            tasks.register("generateClasspath") {
                doLast {
                    def mainClasspath = configurations.findByName('compileClasspath') ?: files()
                    def testClasspath = configurations.findByName('testCompileClasspath') ?: files()
                    def classpath = (mainClasspath.files + testClasspath.files).toSet()

                    println classpath.collect { it.absolutePath }.join(File.pathSeparator)
                }
            }
        }
    }
}
`

// Runner runs name with args in dir and returns its standard output. On
// failure it returns whatever output was produced along with the error.
type Runner func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // G204: command from project config
	cmd.Dir = dir
	return cmd.Output()
}

// ResolverOptions configures a Resolver.
type ResolverOptions struct {
	MavenCommand  string
	GradleCommand string
	// CacheDir receives the gradle init script.
	CacheDir string
	Runner   Runner
	Logger   *slog.Logger
}

// Resolver produces the classpath string of a workspace by asking its build
// tool. It never fails: problems are logged and a partial classpath returned.
type Resolver struct {
	root      string
	mavenCmd  string
	gradleCmd string
	cacheDir  string
	run       Runner
	logger    *slog.Logger
}

// NewResolver creates a resolver for the workspace at root.
func NewResolver(root string, opts ResolverOptions) *Resolver {
	r := &Resolver{
		root:      root,
		mavenCmd:  opts.MavenCommand,
		gradleCmd: opts.GradleCommand,
		cacheDir:  opts.CacheDir,
		run:       opts.Runner,
		logger:    opts.Logger,
	}
	if r.mavenCmd == "" {
		r.mavenCmd = "mvn"
	}
	if r.gradleCmd == "" {
		r.gradleCmd = "gradle"
	}
	if r.run == nil {
		r.run = ExecRunner
	}
	if r.logger == nil {
		r.logger = slogutil.NewDiscardLogger()
	}
	return r
}

// Classpath resolves the classpath for kind.
func (r *Resolver) Classpath(ctx context.Context, kind Kind) string {
	switch kind {
	case KindMaven:
		return r.maven(ctx)
	case KindGradle:
		return r.gradle(ctx)
	default:
		return ""
	}
}

func (r *Resolver) maven(ctx context.Context) string {
	classpath := filepath.Join(r.root, KindMaven.OutputDirectory())

	cmd := r.resolveCommand(r.mavenCmd, "mvn", "mvnw")
	out, err := r.run(ctx, r.root, cmd, "--quiet", "dependency:build-classpath", "-Dmdep.outputFile=/dev/stdout")
	if err != nil {
		r.warn("maven", cmd, err)
	}
	if deps := strings.TrimSpace(string(out)); deps != "" {
		classpath += string(os.PathListSeparator) + deps
	}
	return classpath
}

func (r *Resolver) gradle(ctx context.Context) string {
	script, err := WriteGradleInitScript(r.cacheDir)
	if err != nil {
		r.warn("gradle", "init script", err)
		return ""
	}

	cmd := r.resolveCommand(r.gradleCmd, "gradle", "gradlew")
	out, err := r.run(ctx, r.root, cmd, gradleClasspathTask, "--quiet", "--init-script", script)
	if err != nil {
		r.warn("gradle", cmd, err)
	}
	return strings.TrimSpace(string(out))
}

func (r *Resolver) warn(tool, command string, cause error) {
	err := jlserrors.New(jlserrors.ClasspathUnavailable, tool+" classpath", cause)
	r.logger.Warn("Classpath resolution failed",
		"tool", tool,
		"command", command,
		"error", err.Error(),
	)
}

// resolveCommand prefers the workspace's build wrapper when the configured
// command is the stock tool name, then PATH, then the name as given.
func (r *Resolver) resolveCommand(configured, stock, wrapper string) string {
	if configured == stock {
		w := filepath.Join(r.root, wrapper)
		if info, err := os.Stat(w); err == nil && !info.IsDir() && info.Mode()&0o111 != 0 {
			return w
		}
	}
	if path, err := exec.LookPath(configured); err == nil {
		return path
	}
	return configured
}

// WriteGradleInitScript writes the classpath init script into cacheDir and
// returns its path.
func WriteGradleInitScript(cacheDir string) (string, error) {
	if cacheDir == "" {
		cacheDir = os.TempDir()
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(cacheDir, GradleInitScriptName)
	if err := os.WriteFile(path, []byte(gradleInitScript), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
