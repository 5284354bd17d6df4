package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"jls/internal/lsp"
	"jls/internal/slogutil"
	"jls/internal/state"
	"jls/internal/telemetry"
	"jls/internal/version"
	"jls/internal/watcher"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the language server on stdio",
	Long: `Run the language server over stdin/stdout using the Language Server
Protocol (Content-Length framed JSON-RPC 2.0).

stdout carries the protocol, so logs go to stderr or, when logging.file is
configured, to a rotating log file with warnings mirrored to stderr.

This command is started by editors and not usually run by hand.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	root, err := workspaceRoot()
	if err != nil {
		return err
	}
	result, err := loadConfig(root)
	if err != nil {
		return err
	}
	cfg := result.Config

	level := slogutil.LevelFromString(cfg.Logging.Level)
	if logLevelFlag != "" {
		level = slogutil.LevelFromString(logLevelFlag)
	}
	base, closer, err := slogutil.Setup(slogutil.Options{
		Level:      level,
		Format:     slogutil.Format(cfg.Logging.Format),
		File:       cfg.Logging.File,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		Stderr:     cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	logger := base.With("session", uuid.NewString())
	reportLoad(logger, result)

	ctx := cmd.Context()
	tel, err := telemetry.Init(ctx, telemetry.Options{
		Addr:           cfg.Telemetry.MetricsAddr,
		ServiceVersion: version.Version,
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Telemetry shutdown failed", "error", err.Error())
		}
	}()

	ws, err := openWorkspace(ctx, root, cfg, logger)
	if err != nil {
		return err
	}

	conn := lsp.NewConn(cmd.InOrStdin(), cmd.OutOrStdout())
	sink := lsp.NewSink(conn, cfg.Server.NotificationQueueSize, logger)
	st := state.New(state.Options{
		Compiler:     ws.compiler,
		Resolver:     ws.resolver,
		Indexer:      ws.indexer,
		IndexEnabled: cfg.Index.Enabled,
		Sink:         sink,
		Logger:       logger,
	})
	stats := st.LoadClasses(ctx)
	logger.Info("Indexed classpath",
		"entries", stats.Entries,
		"classes", stats.Decoded,
		"failed", stats.Failed,
		"duration", stats.Duration.String(),
	)

	srv := lsp.NewServer(conn, st, sink, logger)
	if cfg.Server.WatchManifests {
		w, err := watcher.New(root, watcher.Options{
			Debounce: time.Duration(cfg.Server.WatchDebounceMs) * time.Millisecond,
			Logger:   logger,
		})
		if err != nil {
			logger.Warn("Manifest watching unavailable", "error", err.Error())
		} else if err := w.Start(ctx); err != nil {
			logger.Warn("Manifest watching unavailable", "error", err.Error())
			w.Stop()
		} else {
			defer w.Stop()
			srv.WatchManifests(w.Changes())
		}
	}

	err = srv.Run(ctx)
	if dropped := sink.Dropped(); dropped > 0 {
		logger.Warn("Diagnostics notifications were dropped", "count", dropped)
	}
	return err
}
