package gen

var (
	// FeatureAssert emits compile-time assertions that every stage
	// implementation satisfies its contract. Generic builders are skipped.
	FeatureAssert = Feature{
		Name:        "assert",
		Stage:       Stable,
		Default:     true,
		Description: "Emits compile-time interface assertions for every stage implementation",
	}

	// FeatureExport capitalizes the emitted step method names, so unexported
	// owner methods become an exported staged API.
	FeatureExport = Feature{
		Name:        "export",
		Stage:       Beta,
		Default:     false,
		Description: "Capitalizes emitted step method names (setNote becomes SetNote)",
	}

	// FeatureFingerprint records the fingerprint of the builder declaration in
	// the header of the generated file.
	FeatureFingerprint = Feature{
		Name:        "fingerprint",
		Stage:       Alpha,
		Default:     false,
		Description: "Writes the builder declaration fingerprint into the generated file header",
	}

	// AllFeatures holds a list of all feature-flags.
	AllFeatures = []Feature{
		FeatureAssert,
		FeatureExport,
		FeatureFingerprint,
	}
)

// FeatureStage describes the stage of the codegen feature.
type FeatureStage int

const (
	_ FeatureStage = iota

	// Experimental features are in development.
	Experimental

	// Alpha features are usable, but their output may still change.
	Alpha

	// Beta features are not expected to change their output.
	Beta

	// Stable features are enabled in most setups.
	Stable
)

// String returns the name of the stage.
func (s FeatureStage) String() string {
	switch s {
	case Experimental:
		return "experimental"
	case Alpha:
		return "alpha"
	case Beta:
		return "beta"
	case Stable:
		return "stable"
	default:
		return "unknown"
	}
}

// A Feature of the stepgen codegen.
type Feature struct {
	// Name of the feature.
	Name string

	// Stage of the feature.
	Stage FeatureStage

	// Default values indicates if this feature is enabled by default.
	Default bool

	// A Description of this feature.
	Description string
}

// FeatureByName returns the feature with the given name.
func FeatureByName(name string) (Feature, bool) {
	for _, f := range AllFeatures {
		if f.Name == name {
			return f, true
		}
	}
	return Feature{}, false
}
