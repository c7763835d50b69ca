// Package compiler runs the stepgen pipeline: it loads builder declarations
// from Go packages or spec files, emits one file per builder and writes the
// files that changed.
package compiler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/stepgen"
	"github.com/syssam/stepgen/compiler/gen"
	"github.com/syssam/stepgen/compiler/load"
)

// Report summarizes a generation run.
type Report struct {
	// Run identifies the run in logs.
	Run string
	// Files holds the emitted files in declaration order.
	Files []*gen.File
	// Written and Unchanged hold the paths of the written files.
	Written   []string
	Unchanged []string
	// Failed holds the names of the builders that failed.
	Failed   []string
	Duration time.Duration
}

// Load scans the packages matching the patterns for builder declarations.
func Load(ctx context.Context, c *gen.Config, patterns ...string) ([]*load.Builder, error) {
	return load.Scan(ctx, load.ScanOptions{BuildFlags: c.BuildFlags}, patterns...)
}

// LoadFiles reads the builder declarations of spec files.
func LoadFiles(paths ...string) ([]*load.Builder, error) {
	var builders []*load.Builder
	for _, p := range paths {
		bs, err := load.ReadFile(p)
		if err != nil {
			return nil, err
		}
		builders = append(builders, bs...)
	}
	return builders, nil
}

// Emit generates the files of the builders in parallel. A failing builder is
// reported in the returned error and does not prevent the files of the other
// builders from being returned.
func Emit(ctx context.Context, c *gen.Config, specs ...*load.Builder) ([]*gen.File, error) {
	var (
		files = make([]*gen.File, len(specs))
		errs  = make([]error, len(specs))
		errg  errgroup.Group
	)
	errg.SetLimit(c.Parallelism())
	for i, spec := range specs {
		errg.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = stepgen.NewBuilderError(spec.Name, spec.Pos, err)
				return nil
			}
			f, err := gen.Emit(c, spec)
			if err != nil {
				errs[i] = stepgen.NewBuilderError(spec.Name, spec.Pos, err)
				return nil
			}
			c.Log().Debug("builder emitted",
				"builder", spec.Name,
				"output", f.Builder.OutputName(),
				"stages", len(f.Builder.Graph.Stages),
				"file", f.Path(),
			)
			files[i] = f
			return nil
		})
	}
	_ = errg.Wait()

	seen := make(map[string]string)
	out := make([]*gen.File, 0, len(files))
	for i, f := range files {
		if f == nil {
			continue
		}
		if prev, ok := seen[f.Path()]; ok {
			errs[i] = stepgen.NewBuilderError(specs[i].Name, specs[i].Pos,
				fmt.Errorf("%w: %s is also generated for builder %s", stepgen.ErrDuplicateOutput, f.Path(), prev))
			continue
		}
		seen[f.Path()] = specs[i].Name
		out = append(out, f)
	}
	return out, stepgen.NewAggregateError(errs...)
}

// Generate emits and writes the files of the builders. The files of the
// builders that did not fail are always written.
func Generate(ctx context.Context, c *gen.Config, specs ...*load.Builder) (*Report, error) {
	start := time.Now()
	report := &Report{Run: uuid.NewString()}
	logger := c.Log().With("run", report.Run)
	logger.Info("generating builders", "builders", len(specs), "workers", c.Parallelism())

	files, emitErr := Emit(ctx, c, specs...)
	report.Files = files
	report.Failed = stepgen.Failed(emitErr)

	var (
		w       = gen.NewWriter(logger)
		changed = make([]bool, len(files))
		errs    = make([]error, len(files))
		errg    errgroup.Group
	)
	errg.SetLimit(c.Parallelism())
	for i, f := range files {
		errg.Go(func() error {
			ok, err := w.Write(ctx, f)
			if err != nil {
				errs[i] = stepgen.NewBuilderError(f.Builder.Name, f.Builder.Pos, err)
			}
			changed[i] = ok
			return nil
		})
	}
	_ = errg.Wait()
	for i, f := range files {
		switch {
		case errs[i] != nil:
			report.Failed = append(report.Failed, f.Builder.Name)
		case changed[i]:
			report.Written = append(report.Written, f.Path())
		default:
			report.Unchanged = append(report.Unchanged, f.Path())
		}
	}
	report.Duration = time.Since(start)

	err := stepgen.NewAggregateError(append([]error{emitErr}, errs...)...)
	m := w.Metrics()
	logger.Info("generation finished",
		"written", m.FilesWritten,
		"unchanged", m.FilesUnchanged,
		"bytes", m.TotalBytes,
		"failed", len(report.Failed),
		"duration", report.Duration,
	)
	if err != nil {
		logger.Error("generation failed", "error", err)
	}
	return report, err
}

// GeneratePackages loads the builders of the packages matching the patterns
// and generates them. Builders that could not be loaded are reported in the
// returned error next to the generation errors.
func GeneratePackages(ctx context.Context, c *gen.Config, patterns ...string) (*Report, error) {
	specs, loadErr := Load(ctx, c, patterns...)
	if len(specs) == 0 {
		if loadErr != nil {
			return nil, loadErr
		}
		return nil, fmt.Errorf("%w in %q", stepgen.ErrNoBuilders, patterns)
	}
	report, err := Generate(ctx, c, specs...)
	return report, stepgen.NewAggregateError(loadErr, err)
}
