// Package gen derives the stage graph of a staged builder and generates the
// Go types that realize it.
//
// A staged builder turns the methods of an owner type into a chain of
// interfaces, so that ordered steps can only be called in sequence and build
// steps only once every ordered step was called. Unordered steps are
// available at every stage and return the stage they were called on.
//
// # Architecture
//
// The code generation pipeline follows this flow:
//
//	load.Builder (scanned directives or spec file)
//	        ↓
//	   NewBuilder (validation + StageGraph)
//	        ↓
//	   Generator (JenniferGenerator wrapped by hooks)
//	        ↓
//	   FormatSource (owner imports + gofmt)
//	        ↓
//	   Writer (locked write of <output>_stepgen.go)
//
// # Emitted Types
//
// For an owner Config with output name OrderBuilder and ordered steps at
// positions 1 and 2, the generated file declares:
//
//   - OrderBuilderUnordered[S any]: the unordered steps, returning S
//   - OrderBuilderStep1, OrderBuilderStep2: one interface per position
//   - OrderBuilderFinal: the unordered and build steps
//   - OrderBuilder: the entry type, implementing OrderBuilderStep1
//   - orderBuilderStep2, orderBuilderFinal: the other implementations
//
// Stage names come from the configured LabelFunc. Steps sharing a position
// are alternatives leading to the same next stage, and gaps between
// positions do not produce stages.
//
// # Error Handling
//
// The package uses structured error types for better error handling:
//
//   - SpecError: malformed builder declarations
//   - ConfigError: Configuration errors
//   - GenerationError: Code generation and write errors
//
// Example error handling:
//
//	b, err := gen.NewBuilder(cfg, spec)
//	if err != nil {
//	    if errors.Is(err, gen.ErrNoBuildSteps) {
//	        // Handle the missing build step
//	    }
//	    return err
//	}
//
// # Configuration
//
// Configuration is done via the functional options pattern:
//
//	cfg, err := gen.NewConfig(
//	    gen.WithSuffix("Builder"),
//	    gen.WithLabel(gen.OrdinalLabel),
//	    gen.WithFeatures(gen.FeatureExport),
//	)
package gen
