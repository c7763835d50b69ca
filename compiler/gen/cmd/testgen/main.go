// testgen is a simple test program to demonstrate the Jennifer-based code generator.
// Run: go run ./compiler/gen/cmd/testgen
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/syssam/stepgen/compiler"
	"github.com/syssam/stepgen/compiler/gen"
	"github.com/syssam/stepgen/compiler/load"
)

func main() {
	// Create a temp directory for output
	outDir, err := os.MkdirTemp("", "stepgen-jennifer-test-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create temp dir: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Output directory: %s\n", outDir)

	// An order builder with a note settable at any stage, a customer at
	// position 1, alternative item steps at position 2 and two build steps.
	specs := []*load.Builder{
		{
			Name:    "Config",
			Output:  "OrderBuilder",
			Package: "order",
			Imports: []*load.Import{{Path: "time"}},
			Unordered: []*load.Step{
				{Name: "setNote", Params: []*load.Param{{Name: "note", Type: "string"}}},
			},
			Ordered: []*load.Step{
				{Name: "setCustomer", Position: 1, Params: []*load.Param{{Name: "id", Type: "string"}}},
				{Name: "addItem", Position: 2, Params: []*load.Param{{Name: "sku", Type: "string"}, {Name: "qty", Type: "int"}}},
				{Name: "addBundle", Position: 2, Params: []*load.Param{{Name: "skus", Type: "...string"}}},
			},
			Build: []*load.Step{
				{Name: "build", Result: "Order"},
				{Name: "schedule", Params: []*load.Param{{Name: "at", Type: "time.Time"}}, Result: "(Order, error)"},
			},
		},
		{
			Name:       "Pair",
			Package:    "order",
			TypeParams: []*load.TypeParam{{Name: "K", Constraint: "comparable"}, {Name: "V", Constraint: "any"}},
			Ordered:    []*load.Step{{Name: "key", Position: 1, Params: []*load.Param{{Name: "k", Type: "K"}}}},
			Build:      []*load.Step{{Name: "value", Params: []*load.Param{{Name: "v", Type: "V"}}, Result: "(K, V)"}},
		},
	}

	// Create config with functional options
	config, err := gen.NewConfig(
		gen.WithTarget(outDir),
		gen.WithLabel(gen.OrdinalLabel),
		gen.WithFeatures(gen.FeatureFingerprint),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Generating code with Jennifer...")
	report, err := compiler.Generate(context.Background(), config, specs...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nGenerated files:")
	for _, f := range report.Files {
		fmt.Printf("  %s (%d bytes)\n", f.Path(), len(f.Content))
	}
	if len(report.Files) > 0 {
		fmt.Printf("\n%s\n", report.Files[0].Content)
	}
}
