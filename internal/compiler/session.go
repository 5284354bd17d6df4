// Package compiler drives the external Java compiler: it decides which
// sources are stale, runs the compiler over them and turns its error stream
// into positioned diagnostics.
package compiler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	jlserrors "jls/internal/errors"
	"jls/internal/project"
	"jls/internal/slogutil"
)

// ErrInvocation matches any error whose code is COMPILER_INVOCATION_FAILED.
var ErrInvocation = &jlserrors.JlsError{Code: jlserrors.CompilerInvocationFailed}

// Options configures a Session.
type Options struct {
	// Root is the workspace directory; the compiler runs there.
	Root      string
	Kind      project.Kind
	Classpath string

	Command         string
	ExtraArgs       []string
	SourceExtension string
	ClassExtension  string
	// SourceRoots overrides the kind's default roots. Relative entries are
	// resolved against Root.
	SourceRoots []string
	Exclude     []string

	Runner Runner
	Logger *slog.Logger
}

// Session is the compiler state of one workspace. It is not safe for
// concurrent use; callers serialize Compile calls.
type Session struct {
	root        string
	kind        project.Kind
	classpath   string
	command     string
	extraArgs   []string
	sourceExt   string
	classExt    string
	sourceRoots []string
	exclude     []string
	outputDir   string
	run         Runner
	logger      *slog.Logger

	lastErr error
}

// NewSession creates a compiler session.
func NewSession(opts Options) (*Session, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	s := &Session{
		root:      root,
		kind:      opts.Kind,
		classpath: opts.Classpath,
		command:   opts.Command,
		extraArgs: opts.ExtraArgs,
		sourceExt: opts.SourceExtension,
		classExt:  opts.ClassExtension,
		exclude:   opts.Exclude,
		run:       opts.Runner,
		logger:    opts.Logger,
	}
	if s.kind == "" {
		s.kind = project.KindJavac
	}
	if s.command == "" {
		s.command = "javac"
	}
	if s.sourceExt == "" {
		s.sourceExt = ".java"
	}
	if s.classExt == "" {
		s.classExt = ".class"
	}
	if s.run == nil {
		s.run = ExecRunner
	}
	if s.logger == nil {
		s.logger = slogutil.NewDiscardLogger()
	}

	roots := opts.SourceRoots
	if len(roots) == 0 {
		roots = s.kind.SourceRoots()
	}
	for _, r := range roots {
		if !filepath.IsAbs(r) {
			r = filepath.Join(root, filepath.FromSlash(r))
		}
		s.sourceRoots = append(s.sourceRoots, filepath.Clean(r))
	}
	s.outputDir = filepath.Join(root, filepath.FromSlash(s.kind.OutputDirectory()))
	return s, nil
}

// Root returns the absolute workspace root.
func (s *Session) Root() string { return s.root }

// Kind returns the project kind.
func (s *Session) Kind() project.Kind { return s.kind }

// Classpath returns the classpath passed to the compiler.
func (s *Session) Classpath() string { return s.classpath }

// SetClasspath replaces the classpath used by later compiles.
func (s *Session) SetClasspath(cp string) { s.classpath = cp }

// OutputDirectory returns the absolute directory compiled classes go to.
func (s *Session) OutputDirectory() string { return s.outputDir }

// SourceRoots returns the absolute source roots in priority order.
func (s *Session) SourceRoots() []string { return s.sourceRoots }

// SourceExtension returns the source file extension, e.g. ".java".
func (s *Session) SourceExtension() string { return s.sourceExt }

// LastError returns the failure of the most recent compile, or nil.
func (s *Session) LastError() error { return s.lastErr }

// Compile compiles stale sources, or all sources when forceAll is set, and
// returns the diagnostics keyed by file URI. Failures never propagate: they
// are logged, kept for LastError and produce an empty result. With nothing
// stale the compiler is not run.
func (s *Session) Compile(ctx context.Context, forceAll bool) Diagnostics {
	ctx, span := startCompileSpan(ctx, forceAll)
	defer span.End()
	start := time.Now()
	s.lastErr = nil

	stale, err := s.StaleSources(forceAll)
	if err != nil {
		s.fail(ctx, "enumerate sources", err)
		setCompileSpanResult(span, 0, 0, s.lastErr)
		return Diagnostics{}
	}
	if len(stale) == 0 {
		s.logger.Debug("Nothing to compile", "forceAll", forceAll)
		setCompileSpanResult(span, 0, 0, nil)
		return Diagnostics{}
	}

	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		s.fail(ctx, "create output directory", err)
		setCompileSpanResult(span, len(stale), 0, s.lastErr)
		return Diagnostics{}
	}

	args := make([]string, 0, 5+len(s.extraArgs)+len(stale))
	args = append(args, "--class-path", s.classpath, "-d", s.outputDir, "-Xdiags:verbose")
	args = append(args, s.extraArgs...)
	args = append(args, stale...)

	stderr, err := s.run(ctx, s.root, s.command, args...)
	if err != nil {
		s.fail(ctx, "run "+s.command, err)
		setCompileSpanResult(span, len(stale), 0, s.lastErr)
		return Diagnostics{}
	}
	if !utf8.Valid(stderr) {
		s.fail(ctx, "read compiler output", fmt.Errorf("error stream is not valid UTF-8"))
		setCompileSpanResult(span, len(stale), 0, s.lastErr)
		return Diagnostics{}
	}

	diags := ParseDiagnostics(string(stderr), s.sourceExt, s.root)
	duration := time.Since(start)
	recordCompile(ctx, len(stale), diags.Count(), duration)
	setCompileSpanResult(span, len(stale), diags.Count(), nil)
	s.logger.Info("Compiled",
		"sources", len(stale),
		"files_with_errors", len(diags),
		"errors", diags.Count(),
		"duration", duration.String(),
	)
	return diags
}

func (s *Session) fail(ctx context.Context, op string, cause error) {
	err := jlserrors.New(jlserrors.CompilerInvocationFailed, op, cause)
	s.lastErr = err
	recordInvocationFailure(ctx)
	s.logger.Warn("Compilation failed", "op", op, "error", err.Error())
}
