package main

import (
	"context"
	"log/slog"
	"os"

	"jls/internal/classpath"
	"jls/internal/compiler"
	"jls/internal/config"
	"jls/internal/project"
)

// workspace is everything the commands derive from a root and its config.
type workspace struct {
	root     string
	cfg      *config.Config
	kind     project.Kind
	manifest string
	resolver *project.Resolver
	compiler *compiler.Session
	indexer  *classpath.Indexer
}

// openWorkspace detects the project kind, resolves the classpath once and
// creates the compiler session. Home and temp directories are read here and
// passed down explicitly.
func openWorkspace(ctx context.Context, root string, cfg *config.Config, logger *slog.Logger) (*workspace, error) {
	home, _ := os.UserHomeDir()
	cacheDir := cfg.CacheDir(home, os.TempDir())

	kind, manifest := project.DetectKind(root)
	logger.Info("Detected project", "kind", kind.DisplayName(), "manifest", manifest)

	resolver := project.NewResolver(root, project.ResolverOptions{
		MavenCommand:  cfg.Build.MavenCommand,
		GradleCommand: cfg.Build.GradleCommand,
		CacheDir:      cacheDir,
		Logger:        logger,
	})

	session, err := compiler.NewSession(compiler.Options{
		Root:            root,
		Kind:            kind,
		Classpath:       resolver.Classpath(ctx, kind),
		Command:         cfg.Compiler.Command,
		ExtraArgs:       cfg.Compiler.ExtraArgs,
		SourceExtension: cfg.Compiler.SourceExtension,
		ClassExtension:  cfg.Compiler.ClassExtension,
		SourceRoots:     cfg.Compiler.SourceRoots,
		Exclude:         cfg.Compiler.Exclude,
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}

	return &workspace{
		root:     root,
		cfg:      cfg,
		kind:     kind,
		manifest: manifest,
		resolver: resolver,
		compiler: session,
		indexer: classpath.NewIndexer(logger, classpath.Options{
			Workers:        cfg.Index.Workers,
			ClassExtension: cfg.Compiler.ClassExtension,
		}),
	}, nil
}
