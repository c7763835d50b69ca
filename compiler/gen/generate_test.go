package gen

import (
	"fmt"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/stepgen/compiler/load"
)

const orderOwner = `package order

type Item struct {
	SKU string
	Qty int
}

type Order struct {
	Customer string
	Items    []Item
	Note     string
}

type Config struct {
	order Order
}

func (c *Config) setNote(note string)         { c.order.Note = note }
func (c *Config) setCustomer(id string)       { c.order.Customer = id }
func (c *Config) addItem(sku string, qty int) { c.order.Items = append(c.order.Items, Item{sku, qty}) }
func (c *Config) build() Order                { return c.order }
`

const pairOwner = `package order

type Pair[K comparable, V any] struct {
	k    K
	v    V
	tags []string
}

func NewPair[K comparable, V any](k K) *Pair[K, V] { return &Pair[K, V]{k: k} }

func (p *Pair[K, V]) tag(labels ...string) { p.tags = append(p.tags, labels...) }
func (p *Pair[K, V]) value(v V)            { p.v = v }
func (p *Pair[K, V]) build() (K, V)        { return p.k, p.v }
`

// typeCheck type-checks the given sources as one package.
func typeCheck(t *testing.T, srcs ...string) (*types.Package, error) {
	t.Helper()
	fset := token.NewFileSet()
	files := make([]*ast.File, 0, len(srcs))
	for i, src := range srcs {
		f, err := parser.ParseFile(fset, fmt.Sprintf("f%d.go", i), src, parser.ParseComments)
		require.NoError(t, err, src)
		files = append(files, f)
	}
	conf := types.Config{Importer: importer.ForCompiler(fset, "source", nil)}
	return conf.Check("order", fset, files, nil)
}

// methods returns the sorted method names of the named interface.
func methods(t *testing.T, pkg *types.Package, name string) []string {
	t.Helper()
	obj := pkg.Scope().Lookup(name)
	require.NotNil(t, obj, name)
	iface, ok := obj.Type().Underlying().(*types.Interface)
	require.True(t, ok, "%s is not an interface", name)
	var names []string
	for i := range iface.NumMethods() {
		names = append(names, iface.Method(i).Name())
	}
	sort.Strings(names)
	return names
}

func TestJenniferGenerator(t *testing.T) {
	src := generate(t, orderSpec())

	t.Run("header and package", func(t *testing.T) {
		assert.True(t, strings.HasPrefix(src, "// "+DefaultHeader+"\n"))
		assert.Contains(t, src, "package order\n")
		assert.NotContains(t, src, "import")
		assert.NotContains(t, src, "stepgen:fingerprint")
	})

	t.Run("contracts", func(t *testing.T) {
		assert.Contains(t, src, "type OrderBuilderUnordered[S any] interface {\n\t// setNote sets a free-form note.\n\tsetNote(note string) S\n}")
		assert.Contains(t, src, "type OrderBuilderStep1 interface {")
		assert.Contains(t, src, "\tsetNote(note string) OrderBuilderStep1\n")
		assert.Contains(t, src, "\tsetCustomer(id string) OrderBuilderStep2\n")
		assert.Contains(t, src, "type OrderBuilderStep2 interface {")
		assert.Contains(t, src, "\taddItem(sku string, qty int) OrderBuilderFinal\n")
		assert.Contains(t, src, "type OrderBuilderFinal interface {")
		assert.Contains(t, src, "\tbuild() Order\n")
	})

	t.Run("implementations", func(t *testing.T) {
		assert.Contains(t, src, "type OrderBuilder struct {\n\tstate *Config\n}")
		assert.Contains(t, src, "func NewOrderBuilder() *OrderBuilder {\n\treturn &OrderBuilder{state: new(Config)}\n}")
		assert.Contains(t, src, "func (b *OrderBuilder) setNote(note string) OrderBuilderStep1 {\n\tb.state.setNote(note)\n\treturn b\n}")
		assert.Contains(t, src, "func (b *OrderBuilder) setCustomer(id string) OrderBuilderStep2 {\n\tb.state.setCustomer(id)\n\treturn &orderBuilderStep2{state: b.state}\n}")
		assert.Contains(t, src, "type orderBuilderStep2 struct {")
		assert.Contains(t, src, "func (b *orderBuilderStep2) addItem(sku string, qty int) OrderBuilderFinal {")
		assert.Contains(t, src, "return &orderBuilderFinal{state: b.state}")
		assert.Contains(t, src, "func (b *orderBuilderFinal) setNote(note string) OrderBuilderFinal {")
		assert.Contains(t, src, "func (b *orderBuilderFinal) build() Order {\n\treturn b.state.build()\n}")
		assert.NotContains(t, src, "type orderBuilderStep1")
	})

	t.Run("method docs", func(t *testing.T) {
		assert.Contains(t, src, "// setNote sets a free-form note.\nfunc (b *OrderBuilder) setNote(")
		assert.Contains(t, src, "// setNote sets a free-form note.\nfunc (b *orderBuilderFinal) setNote(")
		assert.Contains(t, src, "// setCustomer implements OrderBuilderStep1.\nfunc (b *OrderBuilder) setCustomer(")
		assert.Contains(t, src, "// addItem implements OrderBuilderStep2.\nfunc (b *orderBuilderStep2) addItem(")
		assert.Contains(t, src, "// build implements OrderBuilderFinal.\nfunc (b *orderBuilderFinal) build()")
	})

	t.Run("assertions", func(t *testing.T) {
		assert.Regexp(t, `_ OrderBuilderStep1\s+= \(\*OrderBuilder\)\(nil\)`, src)
		assert.Regexp(t, `_ OrderBuilderUnordered\[OrderBuilderStep2\]\s+= \(\*orderBuilderStep2\)\(nil\)`, src)
		assert.Regexp(t, `_ OrderBuilderFinal\s+= \(\*orderBuilderFinal\)\(nil\)`, src)

		src := generate(t, orderSpec(), WithoutFeatures(FeatureAssert.Name))
		assert.NotContains(t, src, "(nil)")
	})

	t.Run("idempotent", func(t *testing.T) {
		for range 3 {
			assert.Equal(t, src, generate(t, orderSpec()))
		}
	})
}

func TestJenniferGenerator_TypeCheck(t *testing.T) {
	src := generate(t, orderSpec())

	t.Run("stage method sets", func(t *testing.T) {
		pkg, err := typeCheck(t, orderOwner, src)
		require.NoError(t, err, src)
		assert.Equal(t, []string{"setCustomer", "setNote"}, methods(t, pkg, "OrderBuilderStep1"))
		assert.Equal(t, []string{"addItem", "setNote"}, methods(t, pkg, "OrderBuilderStep2"))
		assert.Equal(t, []string{"build", "setNote"}, methods(t, pkg, "OrderBuilderFinal"))
	})

	t.Run("legal sequences", func(t *testing.T) {
		_, err := typeCheck(t, orderOwner, src, `package order

func usage() []Order {
	return []Order{
		NewOrderBuilder().setCustomer("X").addItem("SKU-1", 2).build(),
		NewOrderBuilder().setNote("a").setCustomer("X").setNote("b").addItem("SKU-1", 2).setNote("c").build(),
	}
}
`)
		assert.NoError(t, err)
	})

	illegal := map[string]string{
		"build before ordered steps": `NewOrderBuilder().build()`,
		"build before last step":     `NewOrderBuilder().setCustomer("X").build()`,
		"out of order":               `NewOrderBuilder().addItem("SKU-1", 2)`,
		"ordered step twice":         `NewOrderBuilder().setCustomer("X").setCustomer("Y")`,
	}
	for name, call := range illegal {
		t.Run(name, func(t *testing.T) {
			_, err := typeCheck(t, orderOwner, src, "package order\n\nfunc usage() { _ = "+call+" }\n")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "undefined")
		})
	}
}

func TestJenniferGenerator_NoOrderedSteps(t *testing.T) {
	spec := orderSpec()
	spec.Ordered = nil
	src := generate(t, spec)

	assert.Contains(t, src, "type OrderBuilderFinal interface {")
	assert.Contains(t, src, "func (b *OrderBuilder) build() Order {")
	assert.Contains(t, src, "func (b *OrderBuilder) setNote(note string) OrderBuilderFinal {")
	assert.Regexp(t, `_ OrderBuilderFinal\s+= \(\*OrderBuilder\)\(nil\)`, src)
	assert.NotContains(t, src, "Step")
	assert.NotContains(t, src, "orderBuilderFinal")

	pkg, err := typeCheck(t, orderOwner, src, "package order\n\nfunc usage() Order { return NewOrderBuilder().setNote(\"n\").build() }\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"build", "setNote"}, methods(t, pkg, "OrderBuilderFinal"))
}

func TestJenniferGenerator_Alternatives(t *testing.T) {
	spec := orderSpec()
	spec.Ordered = append(spec.Ordered, ordered(2, "addBundle", "skus", "...string"))
	spec.Ordered[0].Position = 1
	spec.Ordered[1].Position = 5
	spec.Ordered[2].Position = 5
	src := generate(t, spec)

	assert.Contains(t, src, "\taddItem(sku string, qty int) OrderBuilderFinal\n")
	assert.Contains(t, src, "\taddBundle(skus ...string) OrderBuilderFinal\n")
	assert.Contains(t, src, "b.state.addBundle(skus...)")
	assert.Contains(t, src, "\tsetCustomer(id string) OrderBuilderStep5\n")
	assert.NotContains(t, src, "OrderBuilderStep2")

	owner := orderOwner + "\nfunc (c *Config) addBundle(skus ...string) {}\n"
	_, err := typeCheck(t, owner, src, `package order

func usage() []Order {
	return []Order{
		NewOrderBuilder().setCustomer("X").addItem("SKU-1", 2).build(),
		NewOrderBuilder().setCustomer("X").addBundle("A", "B").build(),
	}
}
`)
	assert.NoError(t, err)
}

func TestJenniferGenerator_Generic(t *testing.T) {
	src := generate(t, pairSpec())

	assert.Contains(t, src, "type PairBuilderUnordered[S any, K comparable, V any] interface {")
	assert.Contains(t, src, "type PairBuilderStep1[K comparable, V any] interface {")
	assert.Contains(t, src, "\ttag(labels ...string) PairBuilderStep1[K, V]\n")
	assert.Contains(t, src, "\tvalue(v V) PairBuilderFinal[K, V]\n")
	assert.Contains(t, src, "\tbuild() (K, V)\n")
	assert.Contains(t, src, "type PairBuilder[K comparable, V any] struct {\n\tstate *Pair[K, V]\n}")
	assert.Contains(t, src, "func NewPairBuilder[K comparable, V any](k K) *PairBuilder[K, V] {\n\treturn &PairBuilder[K, V]{state: NewPair[K, V](k)}\n}")
	assert.Contains(t, src, "return &pairBuilderFinal[K, V]{state: b.state}")
	assert.NotContains(t, src, "(nil)")

	_, err := typeCheck(t, pairOwner, src, `package order

func usage() (string, int) {
	return NewPairBuilder[string, int]("a").tag("x", "y").value(1).tag().build()
}
`)
	assert.NoError(t, err)
}

func TestJenniferGenerator_Constructors(t *testing.T) {
	spec := orderSpec()
	spec.Constructors = []*load.Constructor{
		{Name: "NewConfig", Params: []*load.Param{{Name: "note", Type: "string"}}},
		{Name: "NewConfigValue", Value: true},
		{Name: "NewConfigChecked", Params: []*load.Param{{Name: "ids", Type: "...string"}}, Err: true},
		{Name: "loadConfig", Value: true, Err: true},
	}
	src := generate(t, spec)

	assert.Contains(t, src, "func NewOrderBuilder(note string) *OrderBuilder {\n\treturn &OrderBuilder{state: NewConfig(note)}\n}")
	assert.Contains(t, src, "func NewOrderBuilderValue() *OrderBuilder {\n\ts := NewConfigValue()\n\treturn &OrderBuilder{state: &s}\n}")
	assert.Contains(t, src, "func NewOrderBuilderChecked(ids ...string) (*OrderBuilder, error) {\n\ts, err := NewConfigChecked(ids...)")
	assert.Contains(t, src, "\tif err != nil {\n\t\treturn nil, err\n\t}\n\treturn &OrderBuilder{state: s}, nil\n}")
	assert.Contains(t, src, "func NewOrderBuilderLoadConfig() (*OrderBuilder, error) {")
	assert.Contains(t, src, "return &OrderBuilder{state: &s}, nil")
	assert.NotContains(t, src, "new(Config)")

	owner := orderOwner + `
func NewConfig(note string) *Config                   { return &Config{order: Order{Note: note}} }
func NewConfigValue() Config                          { return Config{} }
func NewConfigChecked(ids ...string) (*Config, error) { return &Config{}, nil }
func loadConfig() (Config, error)                     { return Config{}, nil }
`
	_, err := typeCheck(t, owner, src)
	assert.NoError(t, err)
}

func TestJenniferGenerator_Imports(t *testing.T) {
	spec := orderSpec()
	spec.Ordered[0].Params[0].Type = "uuid.UUID"
	spec.Unordered[0].Params = append(spec.Unordered[0].Params, &load.Param{Name: "at", Type: "time.Time"})
	spec.Imports = []*load.Import{
		{Path: "github.com/google/uuid", PkgName: "uuid"},
		{Path: "strings"},
		{Path: "time"},
		{Name: "_", Path: "embed"},
	}
	src := generate(t, spec)

	assert.Contains(t, src, "import (\n\t\"time\"\n\n\t\"github.com/google/uuid\"\n)")
	assert.NotContains(t, src, "strings")
	assert.NotContains(t, src, "embed")
}

func TestJenniferGenerator_Features(t *testing.T) {
	t.Run("export", func(t *testing.T) {
		src := generate(t, orderSpec(), WithFeatures(FeatureExport))
		assert.Contains(t, src, "\t// SetNote sets a free-form note.\n\tSetNote(note string) OrderBuilderStep1\n")
		assert.Contains(t, src, "func (b *OrderBuilder) SetCustomer(id string) OrderBuilderStep2 {\n\tb.state.setCustomer(id)")

		_, err := typeCheck(t, orderOwner, src, "package order\n\nfunc usage() Order { return NewOrderBuilder().SetCustomer(\"X\").AddItem(\"A\", 1).Build() }\n")
		assert.NoError(t, err)
	})

	t.Run("export non-ASCII names", func(t *testing.T) {
		spec := orderSpec()
		spec.Unordered = append(spec.Unordered, step("étiquette", "v", "string"))
		src := generate(t, spec, WithFeatures(FeatureExport))
		assert.Contains(t, src, "\tÉtiquette(v string) OrderBuilderStep1\n")
		assert.Contains(t, src, "\tb.state.étiquette(v)\n")

		owner := orderOwner + "\nfunc (c *Config) étiquette(v string) {}\n"
		_, err := typeCheck(t, owner, src, "package order\n\nfunc usage() Order { return NewOrderBuilder().Étiquette(\"a\").SetCustomer(\"X\").AddItem(\"A\", 1).Build() }\n")
		assert.NoError(t, err)
	})

	t.Run("fingerprint", func(t *testing.T) {
		fp, err := orderSpec().Fingerprint()
		require.NoError(t, err)
		src := generate(t, orderSpec(), WithFeatures(FeatureFingerprint))
		assert.Contains(t, src, "// stepgen:fingerprint "+fp+"\n")
	})

	t.Run("header", func(t *testing.T) {
		src := generate(t, orderSpec(), WithHeader("Code generated by hand. DO NOT EDIT.\nSecond line."))
		assert.True(t, strings.HasPrefix(src, "// Code generated by hand. DO NOT EDIT.\n// Second line.\n"))
	})
}

func TestEmit_Hooks(t *testing.T) {
	var order []string
	hook := func(name string) Hook {
		return func(next Generator) Generator {
			return GenerateFunc(func(b *Builder) (*File, error) {
				order = append(order, name+":"+b.Name)
				return next.Generate(b)
			})
		}
	}
	f, err := Emit(MustNewConfig(WithHooks(hook("first"), hook("second"))), orderSpec())
	require.NoError(t, err)
	assert.Equal(t, []string{"first:Config", "second:Config"}, order)
	assert.Equal(t, "/tmp/order/order_builder_stepgen.go", f.Path())

	custom := GenerateFunc(func(b *Builder) (*File, error) {
		return &File{Builder: b, Dir: b.OutputDir(), Name: b.FileName(), Content: []byte("package order\n")}, nil
	})
	f, err = Emit(MustNewConfig(WithGenerator(custom)), orderSpec())
	require.NoError(t, err)
	assert.Equal(t, "package order\n", string(f.Content))

	_, err = Emit(MustNewConfig(), &load.Builder{Name: "Broken", Package: "order"})
	assert.ErrorIs(t, err, ErrNoBuildSteps)
}
