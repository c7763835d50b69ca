package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/syssam/stepgen/compiler"
	"github.com/syssam/stepgen/compiler/gen"
	"github.com/syssam/stepgen/compiler/load"
)

func newGenerateCommand(app *App) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "generate [packages]",
		Short: "Generate the staged builders of packages and spec files",
		Long: `Generate writes one <output>_stepgen.go file per builder next to its
owner type. Files whose content did not change are left untouched, and a
failing builder does not prevent the others from being written.

Example:
  stepgen generate ./...
  stepgen generate --spec builders.yaml --feature export`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.config()
			if err != nil {
				return app.fail(err)
			}
			specs, loadErr := app.load(cmd.Context(), c, args)
			if len(specs) == 0 {
				return app.fail(loadErr)
			}
			if dryRun {
				return app.dryRun(cmd, c, specs, loadErr)
			}
			report, err := compiler.Generate(cmd.Context(), c, specs...)
			app.printReport(report)
			if err := errors.Join(loadErr, err); err != nil {
				return app.fail(err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the files that would be generated without writing them")
	return cmd
}

func (app *App) dryRun(cmd *cobra.Command, c *gen.Config, specs []*load.Builder, loadErr error) error {
	files, err := compiler.Emit(cmd.Context(), c, specs...)
	for _, f := range files {
		fmt.Fprintf(app.Out, "%s %s %s\n", mutedStyle.Render("would write"), f.Path(), mutedStyle.Render(fmt.Sprintf("(%d bytes)", len(f.Content))))
	}
	if err := errors.Join(loadErr, err); err != nil {
		return app.fail(err)
	}
	return nil
}

func (app *App) printReport(r *compiler.Report) {
	if r == nil {
		return
	}
	for _, p := range r.Written {
		fmt.Fprintln(app.Out, okStyle.Render("wrote"), p)
	}
	for _, p := range r.Unchanged {
		fmt.Fprintln(app.Out, mutedStyle.Render("unchanged"), p)
	}
	for _, name := range r.Failed {
		fmt.Fprintln(app.Out, failStyle.Render("failed"), name)
	}
	fmt.Fprintln(app.Out, mutedStyle.Render(fmt.Sprintf("%d written, %d unchanged, %d failed in %s",
		len(r.Written), len(r.Unchanged), len(r.Failed), r.Duration.Round(time.Millisecond))))
}
