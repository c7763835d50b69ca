package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/syssam/stepgen/compiler/gen"
)

// DefaultConfigFile is read from the working directory when no configuration
// file is given.
const DefaultConfigFile = ".stepgen.yaml"

// EnvPrefix prefixes the environment variables overriding settings, for
// example STEPGEN_WORKERS or STEPGEN_LOG_LEVEL.
const EnvPrefix = "STEPGEN"

// Settings holds the configuration of the stepgen command.
//
// Settings are read from the configuration file, STEPGEN_* environment
// variables and flags, in increasing order of priority.
type Settings struct {
	// Specs lists spec files read in addition to the scanned packages.
	Specs []string `mapstructure:"specs"`

	// Suffix is appended to owner names without an explicit output name.
	Suffix string `mapstructure:"suffix"`

	// Label names the stage contracts: numeric, ordinal or closed-ordinal.
	Label string `mapstructure:"label"`

	// Features lists features to enable. A leading "-" disables a feature
	// that is enabled by default.
	Features []string `mapstructure:"features"`

	// Header overrides the header comment of generated files.
	Header string `mapstructure:"header"`

	// Workers limits the builders processed in parallel. Zero means GOMAXPROCS.
	Workers int `mapstructure:"workers"`

	// Target overrides the output directory of every builder.
	Target string `mapstructure:"target"`

	// BuildFlags are passed to the go command when loading packages.
	BuildFlags []string `mapstructure:"build_flags"`

	Log LogSettings `mapstructure:"log"`
}

// LogSettings configures the diagnostic logger.
type LogSettings struct {
	// Level is one of debug, info, warn or error.
	Level string `mapstructure:"level"`
	// Format is text or json.
	Format string `mapstructure:"format"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		Suffix: gen.DefaultSuffix,
		Label:  "numeric",
		Log: LogSettings{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Options converts the settings into generator options.
func (s Settings) Options(logger *slog.Logger) ([]gen.Option, error) {
	label, err := gen.ParseLabel(s.Label)
	if err != nil {
		return nil, err
	}
	opts := []gen.Option{
		gen.WithLabel(label),
		gen.WithWorkers(s.Workers),
		gen.WithLogger(logger),
	}
	if s.Suffix != "" {
		opts = append(opts, gen.WithSuffix(s.Suffix))
	}
	if s.Header != "" {
		opts = append(opts, gen.WithHeader(s.Header))
	}
	if s.Target != "" {
		opts = append(opts, gen.WithTarget(s.Target))
	}
	if len(s.BuildFlags) > 0 {
		opts = append(opts, gen.WithBuildFlags(s.BuildFlags...))
	}
	for _, name := range s.Features {
		name = strings.TrimSpace(name)
		if disabled, ok := strings.CutPrefix(name, "-"); ok {
			opts = append(opts, gen.WithoutFeatures(disabled))
			continue
		}
		f, ok := gen.FeatureByName(name)
		if !ok {
			return nil, gen.NewConfigError("Features", name, "unknown feature")
		}
		opts = append(opts, gen.WithFeatures(f))
	}
	return opts, nil
}

// Config builds the generator configuration of the settings.
func (s Settings) Config(logger *slog.Logger) (*gen.Config, error) {
	opts, err := s.Options(logger)
	if err != nil {
		return nil, err
	}
	return gen.NewConfig(opts...)
}

// flagKeys maps settings keys to the persistent flags overriding them.
var flagKeys = map[string]string{
	"specs":       "spec",
	"suffix":      "suffix",
	"label":       "label",
	"features":    "feature",
	"header":      "header",
	"workers":     "workers",
	"target":      "target",
	"build_flags": "build-flags",
	"log.level":   "log-level",
	"log.format":  "log-format",
}

// loadSettings reads the settings of a command invocation. A missing default
// configuration file is not an error; a missing explicit one is.
func loadSettings(cmd *cobra.Command, configPath string) (Settings, error) {
	v := viper.New()
	defaults := DefaultSettings()
	v.SetDefault("suffix", defaults.Suffix)
	v.SetDefault("label", defaults.Label)
	v.SetDefault("workers", defaults.Workers)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	explicit := configPath != ""
	if !explicit {
		configPath = DefaultConfigFile
	}
	if _, err := os.Stat(configPath); err == nil || explicit {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("reading config file %s: %w", configPath, err)
		}
	}

	for key, name := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return Settings{}, err
			}
		}
	}
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decoding settings: %w", err)
	}
	return s, nil
}
