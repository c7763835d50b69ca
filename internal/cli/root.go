// Package cli implements the stepgen command.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/syssam/stepgen"
	"github.com/syssam/stepgen/compiler"
	"github.com/syssam/stepgen/compiler/gen"
	"github.com/syssam/stepgen/compiler/load"
)

// App holds the state shared by the stepgen commands.
type App struct {
	Out io.Writer
	Err io.Writer

	// Settings and Logger are set before any command runs.
	Settings Settings
	Logger   *slog.Logger

	configPath string
}

// NewApp creates an App writing command output to out and diagnostics to
// errw.
func NewApp(out, errw io.Writer) *App {
	return &App{
		Out:      out,
		Err:      errw,
		Settings: DefaultSettings(),
		Logger:   newLogger("warn", "text", errw),
	}
}

// NewRootCommand creates the stepgen command tree.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "stepgen",
		Short: "Generate staged builders for Go types",
		Long: `stepgen generates staged builders: chains of interfaces that expose the
steps of an owner type in the order they must be called, so that skipping
or reordering a step is a compile error.

Owner types are marked in Go source:

	//stepgen:builder
	type Config struct{ ... }

	//stepgen:ordered 1
	func (c *Config) setCustomer(id string) { ... }

	//stepgen:build
	func (c *Config) build() Order { ... }

or declared in YAML, JSON or TOML spec files.`,
		Version:       stepgen.Version(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.setup(cmd)
		},
	}
	root.SetOut(app.Out)
	root.SetErr(app.Err)

	flags := root.PersistentFlags()
	flags.StringVar(&app.configPath, "config", "", "configuration file (default "+DefaultConfigFile+")")
	flags.String("log-level", "warn", "log level: debug, info, warn or error")
	flags.String("log-format", "text", "log format: text or json")
	flags.StringSlice("spec", nil, "spec files (yaml, json or toml) to generate")
	flags.String("suffix", gen.DefaultSuffix, "suffix of output names derived from owner names")
	flags.String("label", "numeric", "stage labels: numeric, ordinal or closed-ordinal")
	flags.StringSlice("feature", nil, "features to enable, or disable with a leading '-'")
	flags.String("header", "", "header comment of generated files")
	flags.Int("workers", 0, "builders processed in parallel (default GOMAXPROCS)")
	flags.String("target", "", "write every generated file into this directory")
	flags.StringSlice("build-flags", nil, "flags passed to the go command when loading packages")

	root.AddCommand(
		newGenerateCommand(app),
		newDescribeCommand(app),
		newWatchCommand(app),
		newVersionCommand(app),
	)
	return root
}

// Execute runs the stepgen command with the process arguments and returns
// the exit code. It stops on interrupt.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

// Run runs the stepgen command with the given arguments and returns the exit
// code.
func Run(ctx context.Context, args []string, out, errw io.Writer) int {
	app := NewApp(out, errw)
	cmd := NewRootCommand(app)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if code, ok := IsExitError(err); ok {
			return code
		}
		fmt.Fprintln(errw, failStyle.Render("Error:"), err)
		return 1
	}
	return 0
}

func (app *App) setup(cmd *cobra.Command) error {
	s, err := loadSettings(cmd, app.configPath)
	if err != nil {
		return err
	}
	app.Settings = s
	app.Logger = newLogger(s.Log.Level, s.Log.Format, app.Err)
	return nil
}

func (app *App) config() (*gen.Config, error) {
	return app.Settings.Config(app.Logger)
}

// load loads the builders of the packages matching the patterns and of the
// configured spec files. The current package is scanned when neither is
// given. Builders that loaded are returned along with the load errors.
func (app *App) load(ctx context.Context, c *gen.Config, patterns []string) ([]*load.Builder, error) {
	if len(patterns) == 0 && len(app.Settings.Specs) == 0 {
		patterns = []string{"."}
	}
	var (
		specs []*load.Builder
		errs  []error
	)
	if len(patterns) > 0 {
		bs, err := compiler.Load(ctx, c, patterns...)
		specs = append(specs, bs...)
		errs = append(errs, err)
	}
	if len(app.Settings.Specs) > 0 {
		bs, err := compiler.LoadFiles(app.Settings.Specs...)
		specs = append(specs, bs...)
		errs = append(errs, err)
	}
	err := errors.Join(errs...)
	if len(specs) == 0 && err == nil {
		err = stepgen.ErrNoBuilders
	}
	return specs, err
}

// fail prints err and returns the exit error of a failed command.
func (app *App) fail(err error) error {
	fmt.Fprintln(app.Err, failStyle.Render("Error:"), err)
	return NewExitError(1)
}

func newVersionCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the stepgen version",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			fmt.Fprintln(app.Out, "stepgen", stepgen.Version())
		},
	}
}
