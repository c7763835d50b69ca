package compiler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/stepgen"
	"github.com/syssam/stepgen/compiler/gen"
	"github.com/syssam/stepgen/compiler/load"
)

func spec(name, dir string) *load.Builder {
	return &load.Builder{
		Name:    name,
		Package: "order",
		Dir:     dir,
		Pos:     name + ".go:3:6",
		Ordered: []*load.Step{{
			Name:     "setCustomer",
			Position: 1,
			Params:   []*load.Param{{Name: "id", Type: "string"}},
		}},
		Build: []*load.Step{{Name: "build", Result: name}},
	}
}

func TestEmit(t *testing.T) {
	dir := t.TempDir()
	files, err := Emit(context.Background(), gen.MustNewConfig(), spec("Order", dir), spec("Invoice", dir))
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, filepath.Join(dir, "order_builder_stepgen.go"), files[0].Path())
	assert.Equal(t, filepath.Join(dir, "invoice_builder_stepgen.go"), files[1].Path())
	assert.Contains(t, string(files[1].Content), "type InvoiceBuilderStep1 interface {")
	assert.NoFileExists(t, files[0].Path())
}

func TestEmit_FailingBuilder(t *testing.T) {
	dir := t.TempDir()
	broken := spec("Broken", dir)
	broken.Build = nil

	files, err := Emit(context.Background(), gen.MustNewConfig(), spec("Order", dir), broken, spec("Invoice", dir))
	require.Error(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "Order", files[0].Builder.Name)
	assert.Equal(t, "Invoice", files[1].Builder.Name)

	assert.True(t, stepgen.IsBuilderError(err))
	assert.ErrorIs(t, err, gen.ErrNoBuildSteps)
	assert.Contains(t, err.Error(), "builder Broken (Broken.go:3:6)")
	assert.Equal(t, []string{"Broken"}, stepgen.Failed(err))
}

func TestEmit_DuplicateOutput(t *testing.T) {
	dir := t.TempDir()
	a, b := spec("Order", dir), spec("Invoice", dir)
	b.Output = "OrderBuilder"

	files, err := Emit(context.Background(), gen.MustNewConfig(), a, b)
	require.Len(t, files, 1)
	assert.ErrorIs(t, err, stepgen.ErrDuplicateOutput)
	assert.Contains(t, err.Error(), "also generated for builder Order")
	assert.Equal(t, []string{"Invoice"}, stepgen.Failed(err))
}

func TestEmit_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	files, err := Emit(ctx, gen.MustNewConfig(), spec("Order", t.TempDir()))
	assert.Empty(t, files)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	var logs bytes.Buffer
	c := gen.MustNewConfig(
		gen.WithLogger(slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))),
		gen.WithWorkers(2),
	)
	broken := spec("Broken", dir)
	broken.Ordered[0].Name = "state"
	specs := []*load.Builder{spec("Order", dir), broken, spec("Invoice", dir)}

	report, err := Generate(context.Background(), c, specs...)
	require.Error(t, err)
	assert.True(t, gen.IsSpecError(err))
	assert.NotEmpty(t, report.Run)
	assert.Equal(t, []string{"Broken"}, report.Failed)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "order_builder_stepgen.go"),
		filepath.Join(dir, "invoice_builder_stepgen.go"),
	}, report.Written)
	assert.Empty(t, report.Unchanged)
	assert.FileExists(t, filepath.Join(dir, "order_builder_stepgen.go"))
	assert.NoFileExists(t, filepath.Join(dir, "broken_builder_stepgen.go"))
	assert.Contains(t, logs.String(), `"run":"`+report.Run+`"`)
	assert.Contains(t, logs.String(), `"msg":"builder emitted"`)

	t.Run("rerun leaves files untouched", func(t *testing.T) {
		report, err := Generate(context.Background(), c, spec("Order", dir), spec("Invoice", dir))
		require.NoError(t, err)
		assert.Empty(t, report.Written)
		assert.Len(t, report.Unchanged, 2)
		assert.Empty(t, report.Failed)
	})
}

func TestGenerate_Target(t *testing.T) {
	target := t.TempDir()
	report, err := Generate(context.Background(), gen.MustNewConfig(gen.WithTarget(target)), spec("Order", "/nonexistent/order"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(target, "order_builder_stepgen.go")}, report.Written)
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "order.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`package: order
builders:
  - name: Order
    ordered:
      - name: setCustomer
        position: 1
        params:
          - {name: id, type: string}
    build:
      - {name: build, result: Order}
`), 0o644))

	specs, err := LoadFiles(path)
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "order", specs[0].Package)
	assert.Equal(t, dir, specs[0].Dir)

	_, err = LoadFiles(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestGenerate_NullElements(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "order.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`package: order
builders:
  - name: Order
    build:
      - {name: build, result: Order}
  - name: Invoice
    constructors: [null]
    build:
      - {name: build, result: Invoice}
  - name: Refund
    build:
      - name: build
        params: [null]
`), 0o644))

	specs, err := LoadFiles(path)
	require.NoError(t, err)
	report, err := Generate(context.Background(), gen.MustNewConfig(), specs...)
	require.Error(t, err)
	assert.True(t, gen.IsSpecError(err))
	assert.ElementsMatch(t, []string{"Invoice", "Refund"}, report.Failed)
	assert.Equal(t, []string{filepath.Join(dir, "order_builder_stepgen.go")}, report.Written)
}

func TestGeneratePackages(t *testing.T) {
	if testing.Short() {
		t.Skip("loads packages with the go command")
	}
	target := t.TempDir()
	c := gen.MustNewConfig(gen.WithTarget(target))

	report, err := GeneratePackages(context.Background(), c, "./load/testdata/valid")
	require.NoError(t, err)
	require.Len(t, report.Files, 1)
	assert.Equal(t, "Draft", report.Files[0].Builder.Name)
	assert.FileExists(t, filepath.Join(target, "draft_builder_stepgen.go"))

	_, err = GeneratePackages(context.Background(), c, "./gen/cmd/...")
	assert.True(t, errors.Is(err, stepgen.ErrNoBuilders))
}
