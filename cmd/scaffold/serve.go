package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/jfowler-cloud/scaffold-ai/internal/blueprint"
	"github.com/jfowler-cloud/scaffold-ai/internal/graph"
	"github.com/jfowler-cloud/scaffold-ai/internal/report"
	"github.com/jfowler-cloud/scaffold-ai/internal/security"
	"github.com/jfowler-cloud/scaffold-ai/internal/server"
	"github.com/jfowler-cloud/scaffold-ai/internal/store"
)

const watchDebounce = 100 * time.Millisecond

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		reg := renderers()
		catalog, err := blueprint.Default()
		if err != nil {
			return err
		}
		return withStore(func(db *store.SQLite) error {
			srv := server.New(server.Config{
				Addr:      settings.Listen,
				Engine:    newEngine(reg),
				Sharing:   store.NewSharing(db),
				History:   store.NewHistory(db),
				Catalog:   catalog,
				Dialect:   settings.Dialect,
				Logger:    logger,
				Renderers: reg,
			})
			log.Infof("listening on %s", settings.Listen)
			return srv.Serve(ctx)
		})
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch <graph.json>",
	Short: "Re-run the security review whenever a graph file changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return watchGraph(ctx, args[0], cmd.OutOrStdout())
	},
}

// watchGraph reviews path once, then again after every write to it until
// ctx is done. The parent directory is watched so editors that replace the
// file on save are still seen.
func watchGraph(ctx context.Context, path string, out io.Writer) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	t := report.NewTerminal(out, colorOutput())
	reviewFile(t, abs)

	var debounce *time.Timer
	changed := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, func() {
				select {
				case changed <- struct{}{}:
				default:
				}
			})
		case <-changed:
			reviewFile(t, abs)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warnf("watcher error: %v", err)
		}
	}
}

func reviewFile(t *report.Terminal, path string) {
	g, err := graph.Load(path)
	if err != nil {
		log.Errorf("cannot review %s: %v", path, err)
		return
	}
	t.PrintSection(filepath.Base(path) + " @ " + time.Now().Format("15:04:05"))
	t.PrintReview(security.ReviewGraph(g))
}

func init() {
	rootCmd.AddCommand(serveCmd, watchCmd)
}
