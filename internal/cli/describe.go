package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/syssam/stepgen/compiler/gen"
	"github.com/syssam/stepgen/compiler/load"
)

func newDescribeCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "describe [packages]",
		Short: "Print the stage chains of builders without generating them",
		Example: `  stepgen describe ./order
  stepgen describe --spec builders.toml --label ordinal`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.config()
			if err != nil {
				return app.fail(err)
			}
			specs, loadErr := app.load(cmd.Context(), c, args)
			errs := []error{loadErr}
			for i, spec := range specs {
				if i > 0 {
					fmt.Fprintln(app.Out)
				}
				b, err := gen.NewBuilder(c, spec)
				if err != nil {
					fmt.Fprintln(app.Out, failStyle.Render(spec.Name), err)
					errs = append(errs, err)
					continue
				}
				describe(app.Out, b)
			}
			if err := errors.Join(errs...); err != nil {
				return app.fail(err)
			}
			return nil
		},
	}
}

// describe prints the constructors and stages of a builder, one stage per
// line with the steps it exposes and the stage they lead to.
func describe(w io.Writer, b *gen.Builder) {
	fmt.Fprintf(w, "%s %s\n", titleStyle.Render(b.OutputName()),
		mutedStyle.Render(fmt.Sprintf("(%s, package %s)", b.Name, b.Package)))
	if b.Fingerprint != "" {
		fmt.Fprintf(w, "  %s\n", mutedStyle.Render("fingerprint "+b.Fingerprint))
	}

	var rows [][2]string
	for _, ctor := range b.EntryConstructors() {
		rows = append(rows, [2]string{"new", b.ConstructorName(ctor) + "(" + params(ctor.Params) + ")"})
	}
	for _, st := range b.Graph.All() {
		for _, s := range st.Steps {
			sig := b.MethodName(s) + "(" + params(s.Params) + ")"
			switch {
			case !st.Terminal:
				sig += " → " + b.ContractName(st.Next)
			case s.Result != "":
				sig += " " + s.Result
			}
			rows = append(rows, [2]string{b.ContractName(st), sig})
		}
	}
	for _, s := range b.Unordered {
		rows = append(rows, [2]string{"any stage", b.MethodName(s) + "(" + params(s.Params) + ")"})
	}

	width := 0
	for _, r := range rows {
		width = max(width, lipgloss.Width(r[0]))
	}
	col := stageStyle.Width(width + 2)
	for _, r := range rows {
		fmt.Fprintf(w, "  %s%s\n", col.Render(r[0]), r[1])
	}
}

func params(ps []*load.Param) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.Name + " " + p.Type
	}
	return strings.Join(parts, ", ")
}
