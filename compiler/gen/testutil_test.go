package gen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/stepgen/compiler/load"
)

func step(name string, params ...string) *load.Step {
	s := &load.Step{Name: name}
	for i := 0; i+1 < len(params); i += 2 {
		s.Params = append(s.Params, &load.Param{Name: params[i], Type: params[i+1]})
	}
	return s
}

func ordered(pos int, name string, params ...string) *load.Step {
	s := step(name, params...)
	s.Position = pos
	return s
}

func build(name, result string) *load.Step {
	s := step(name)
	s.Result = result
	return s
}

// orderSpec is the declaration of the order example: an unordered setNote,
// setCustomer at position 1, addItem at position 2 and build.
func orderSpec() *load.Builder {
	note := step("setNote", "note", "string")
	note.Doc = "setNote sets a free-form note."
	return &load.Builder{
		Name:      "Config",
		Output:    "OrderBuilder",
		Package:   "order",
		Dir:       "/tmp/order",
		Unordered: []*load.Step{note},
		Ordered: []*load.Step{
			ordered(1, "setCustomer", "id", "string"),
			ordered(2, "addItem", "sku", "string", "qty", "int"),
		},
		Build: []*load.Step{build("build", "Order")},
	}
}

func pairSpec() *load.Builder {
	return &load.Builder{
		Name:       "Pair",
		Package:    "order",
		TypeParams: []*load.TypeParam{{Name: "K", Constraint: "comparable"}, {Name: "V", Constraint: "any"}},
		Constructors: []*load.Constructor{{
			Name:       "NewPair",
			Params:     []*load.Param{{Name: "k", Type: "K"}},
			TypeParams: []*load.TypeParam{{Name: "K", Constraint: "comparable"}, {Name: "V", Constraint: "any"}},
		}},
		Unordered: []*load.Step{step("tag", "labels", "...string")},
		Ordered:   []*load.Step{ordered(1, "value", "v", "V")},
		Build:     []*load.Step{build("build", "(K, V)")},
	}
}

func newBuilder(t *testing.T, spec *load.Builder, opts ...Option) *Builder {
	t.Helper()
	b, err := NewBuilder(MustNewConfig(opts...), spec)
	require.NoError(t, err)
	return b
}

func generate(t *testing.T, spec *load.Builder, opts ...Option) string {
	t.Helper()
	f, err := Emit(MustNewConfig(opts...), spec)
	require.NoError(t, err)
	return string(f.Content)
}
