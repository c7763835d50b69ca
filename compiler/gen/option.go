package gen

import (
	"errors"
	"log/slog"
	"slices"
)

// Option configures code generation.
type Option func(*Config) error

// WithHeader sets the file header comment.
// The header is added at the top of each generated file.
func WithHeader(header string) Option {
	return func(c *Config) error {
		c.Header = header
		return nil
	}
}

// WithSuffix sets the suffix appended to owner names to form output names.
func WithSuffix(suffix string) Option {
	return func(c *Config) error {
		if suffix == "" || !isIdentFragment(suffix) {
			return NewConfigError("Suffix", suffix, "suffix must be a non-empty identifier fragment")
		}
		c.Suffix = suffix
		return nil
	}
}

// WithLabel sets the function naming stages after their position.
func WithLabel(label LabelFunc) Option {
	return func(c *Config) error {
		if label == nil {
			return NewConfigError("Label", nil, "label function cannot be nil")
		}
		c.Label = label
		return nil
	}
}

// WithTarget sets the output directory.
// By default, every builder is written next to its owner type.
func WithTarget(dir string) Option {
	return func(c *Config) error {
		if dir == "" {
			return NewConfigError("Target", nil, "target directory cannot be empty")
		}
		c.Target = dir
		return nil
	}
}

// WithFeatures enables specific features.
func WithFeatures(features ...Feature) Option {
	return func(c *Config) error {
		for _, f := range features {
			if _, ok := FeatureByName(f.Name); !ok {
				return NewConfigError("Features", f.Name, "unknown feature")
			}
			c.disabled = slices.DeleteFunc(c.disabled, func(n string) bool { return n == f.Name })
			c.Features = append(c.Features, f)
		}
		return nil
	}
}

// WithoutFeatures disables features by name, including default ones.
func WithoutFeatures(names ...string) Option {
	return func(c *Config) error {
		for _, n := range names {
			if _, ok := FeatureByName(n); !ok {
				return NewConfigError("Features", n, "unknown feature")
			}
			c.Features = slices.DeleteFunc(c.Features, func(f Feature) bool { return f.Name == n })
			c.disabled = append(c.disabled, n)
		}
		return nil
	}
}

// WithHooks adds generation hooks.
// Hooks wrap the generator of every builder.
func WithHooks(hooks ...Hook) Option {
	return func(c *Config) error {
		c.Hooks = append(c.Hooks, hooks...)
		return nil
	}
}

// WithBuildFlags sets custom build flags for loading user packages.
func WithBuildFlags(flags ...string) Option {
	return func(c *Config) error {
		c.BuildFlags = append(c.BuildFlags, flags...)
		return nil
	}
}

// WithWorkers sets the number of builders processed in parallel.
func WithWorkers(n int) Option {
	return func(c *Config) error {
		if n < 0 {
			return NewConfigError("Workers", n, "workers cannot be negative")
		}
		c.Workers = n
		return nil
	}
}

// WithLogger sets the logger used during generation.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) error {
		if l == nil {
			return NewConfigError("Logger", nil, "logger cannot be nil")
		}
		c.Logger = l
		return nil
	}
}

// WithGenerator sets a custom code generator.
// If not set, defaults to the jennifer generator.
func WithGenerator(g Generator) Option {
	return func(c *Config) error {
		if g == nil {
			return NewConfigError("Generator", nil, "generator cannot be nil")
		}
		c.Generator = g
		return nil
	}
}

// Apply applies options to the config.
// It returns the first error encountered.
func (c *Config) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

// ApplyAll applies options and collects all errors.
// Returns a joined error if any options failed.
func (c *Config) ApplyAll(opts ...Option) error {
	var errs []error
	for _, opt := range opts {
		if err := opt(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewConfig creates a new Config with the given options.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{}
	if err := c.Apply(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

// MustNewConfig creates a new Config with the given options.
// It panics if any option fails.
func MustNewConfig(opts ...Option) *Config {
	c, err := NewConfig(opts...)
	if err != nil {
		panic(err)
	}
	return c
}
