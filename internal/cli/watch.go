package cli

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/syssam/stepgen/compiler"
	"github.com/syssam/stepgen/compiler/load"
)

// DefaultDebounce is the quiet period after a change before regenerating.
const DefaultDebounce = 200 * time.Millisecond

func newWatchCommand(app *App) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch [packages]",
		Short: "Regenerate builders whenever their sources change",
		Long: `Watch generates the builders once, then watches the package directories
and spec files and regenerates after every burst of changes. Generated
files and tests are ignored.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := app.config()
			if err != nil {
				return app.fail(err)
			}
			patterns := args
			if len(patterns) == 0 && len(app.Settings.Specs) == 0 {
				patterns = []string{"."}
			}
			w, err := fsnotify.NewWatcher()
			if err != nil {
				return app.fail(err)
			}
			defer w.Close()
			if len(patterns) > 0 {
				dirs, err := load.Dirs(ctx, load.ScanOptions{BuildFlags: c.BuildFlags}, patterns...)
				if err != nil {
					return app.fail(err)
				}
				for _, d := range dirs {
					if err := w.Add(d); err != nil {
						return app.fail(err)
					}
				}
			}
			for _, s := range app.Settings.Specs {
				if err := w.Add(filepath.Dir(s)); err != nil {
					return app.fail(err)
				}
			}

			regenerate := func() {
				specs, loadErr := app.load(ctx, c, args)
				if loadErr != nil {
					app.Logger.Error("loading builders", "error", loadErr)
				}
				if len(specs) == 0 {
					return
				}
				report, err := compiler.Generate(ctx, c, specs...)
				app.printReport(report)
				if err != nil {
					app.Logger.Error("generating builders", "error", err)
				}
			}
			regenerate()
			app.Logger.Info("watching", "dirs", w.WatchList())
			return watch(ctx, w.Events, w.Errors, debounce, regenerate, app.Logger)
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", DefaultDebounce, "quiet period after a change before regenerating")
	return cmd
}

// watch calls run once no relevant event arrived for delay after the last
// one. It returns when ctx is done or the event channel is closed.
func watch(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, delay time.Duration, run func(), logger *slog.Logger) error {
	timer := time.NewTimer(delay)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			logger.Debug("source changed", "file", ev.Name, "op", ev.Op.String())
			timer.Reset(delay)
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		case <-timer.C:
			run()
		}
	}
}

// relevant reports whether the event may change a builder: an edit of a Go
// source or spec file. Generated files and tests are ignored.
func relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Base(ev.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	if strings.HasSuffix(name, ".go") {
		return !strings.HasSuffix(name, load.GeneratedSuffix) && !strings.HasSuffix(name, "_test.go")
	}
	_, err := load.FormatOf(name)
	return err == nil
}
