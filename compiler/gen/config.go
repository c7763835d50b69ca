package gen

import (
	"io"
	"log/slog"
	"runtime"
	"slices"
)

// DefaultSuffix is appended to the owner name when a builder does not declare
// an output name.
const DefaultSuffix = "Builder"

// DefaultHeader is the header comment of generated files.
const DefaultHeader = "Code generated by stepgen. DO NOT EDIT."

// Config holds the global codegen configuration shared by all builders.
type Config struct {
	// Header is the comment written at the top of every generated file.
	Header string

	// Suffix is appended to the owner type name to form the output type
	// name of builders without an explicit output name.
	Suffix string

	// Label names stages after their position. Defaults to NumericLabel.
	Label LabelFunc

	// Features enabled in addition to the default ones.
	Features []Feature

	// disabled holds the names of default features that were turned off.
	disabled []string

	// Hooks wrap the generator of every builder.
	Hooks []Hook

	// Generator emits the builder files. Defaults to the jennifer generator.
	Generator Generator

	// BuildFlags are passed to the go command when scanning packages.
	BuildFlags []string

	// Workers limits the number of builders processed in parallel.
	Workers int

	// Target overrides the output directory of every builder.
	Target string

	// Logger receives progress logs. Defaults to a discarding logger.
	Logger *slog.Logger
}

// suffix returns the configured suffix or DefaultSuffix.
func (c *Config) suffix() string {
	if c.Suffix == "" {
		return DefaultSuffix
	}
	return c.Suffix
}

func (c *Config) label() LabelFunc {
	if c.Label == nil {
		return NumericLabel
	}
	return c.Label
}

func (c *Config) header() string {
	if c.Header == "" {
		return DefaultHeader
	}
	return c.Header
}

// Log returns the configured logger or a logger discarding all records.
func (c *Config) Log() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c.Logger
}

// Parallelism returns the number of builders processed in parallel.
func (c *Config) Parallelism() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// FeatureEnabled reports if the given feature name is enabled.
// It's exported to be used by generator hooks.
func (c *Config) FeatureEnabled(name string) (bool, error) {
	f, ok := FeatureByName(name)
	if !ok {
		return false, NewConfigError("Features", name, "unknown feature")
	}
	if slices.ContainsFunc(c.Features, func(e Feature) bool { return e.Name == name }) {
		return true, nil
	}
	if slices.Contains(c.disabled, name) {
		return false, nil
	}
	return f.Default, nil
}

// generator returns the generator of the configuration wrapped by its hooks.
// Hooks are applied in reverse order, so the first hook is the outermost.
func (c *Config) generator() Generator {
	var g Generator = c.Generator
	if g == nil {
		g = NewJenniferGenerator()
	}
	for i := len(c.Hooks) - 1; i >= 0; i-- {
		g = c.Hooks[i](g)
	}
	return g
}
