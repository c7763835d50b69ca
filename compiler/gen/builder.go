package gen

import (
	"errors"
	"fmt"
	"go/token"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/syssam/stepgen/compiler/load"
)

// Builder is a validated builder declaration together with its stage graph
// and the names of every emitted declaration.
type Builder struct {
	*load.Builder

	// Config is the codegen configuration the builder was created with.
	Config *Config

	// Graph is the stage chain of the builder.
	Graph *StageGraph

	// Fingerprint of the declaration. Empty unless FeatureFingerprint is on.
	Fingerprint string

	output string
	export bool
	assert bool

	// Identifiers picked to not shadow anything used in signatures.
	recv, stageParam, stateVar, errVar string
}

// NewBuilder validates the declaration and derives its stage graph. Errors
// are returned as *SpecError.
func NewBuilder(c *Config, spec *load.Builder) (*Builder, error) {
	if c == nil {
		return nil, NewConfigError("Config", nil, "config cannot be nil")
	}
	if spec == nil {
		return nil, NewSpecError("", "", "nil builder declaration", nil)
	}
	b := &Builder{
		Builder: spec,
		Config:  c,
		output:  spec.OutputName(c.suffix()),
	}
	var err error
	if b.export, err = c.FeatureEnabled(FeatureExport.Name); err != nil {
		return nil, err
	}
	if b.assert, err = c.FeatureEnabled(FeatureAssert.Name); err != nil {
		return nil, err
	}
	if err := b.check(); err != nil {
		return nil, err
	}
	if b.Graph, err = NewStageGraph(spec.Ordered, spec.Build, c.label()); err != nil {
		return nil, b.errorf("", err, "building stage graph")
	}
	if err := b.checkStages(); err != nil {
		return nil, err
	}
	if err := b.checkNames(); err != nil {
		return nil, err
	}
	b.pickIdents()
	fp, err := c.FeatureEnabled(FeatureFingerprint.Name)
	if err != nil {
		return nil, err
	}
	if fp {
		if b.Fingerprint, err = spec.Fingerprint(); err != nil {
			return nil, b.errorf("", err, "computing fingerprint")
		}
	}
	return b, nil
}

func (b *Builder) errorf(step string, cause error, format string, args ...any) *SpecError {
	return NewSpecError(b.Name, step, fmt.Sprintf(format, args...), cause)
}

// check validates the declaration itself, independent of the stage graph.
func (b *Builder) check() error {
	switch {
	case !token.IsIdentifier(b.Name):
		return b.errorf("", nil, "owner name %q is not a valid identifier", b.Name)
	case !token.IsIdentifier(b.output):
		return b.errorf("", nil, "output name %q is not a valid identifier", b.output)
	case b.output == b.Name:
		return b.errorf("", nil, "output name must differ from the owner name")
	case !token.IsIdentifier(b.Package):
		return b.errorf("", nil, "package name %q is not a valid identifier", b.Package)
	case len(b.Build) == 0:
		return b.errorf("", ErrNoBuildSteps, "at least one build step is required")
	}
	if err := b.checkTypeParams("", b.TypeParams); err != nil {
		return err
	}
	for i, imp := range b.Imports {
		if imp == nil {
			return b.errorf("", nil, "import %d is empty", i)
		}
	}
	for _, s := range b.steps() {
		if err := b.checkStep(s); err != nil {
			return err
		}
	}
	for _, s := range append(b.Unordered[:len(b.Unordered):len(b.Unordered)], b.Ordered...) {
		if s.Result != "" {
			return b.errorf(s.Name, nil, "unordered and ordered steps must not return values, got %s", s.Result)
		}
	}
	seen := make(map[string]bool)
	for i, ctor := range b.Constructors {
		if ctor == nil {
			return b.errorf("", nil, "constructor %d is empty", i)
		}
		if !token.IsIdentifier(ctor.Name) {
			return b.errorf("", nil, "constructor name %q is not a valid identifier", ctor.Name)
		}
		if err := b.checkTypeParams(ctor.Name, ctor.TypeParams); err != nil {
			return err
		}
		if len(ctor.TypeParams) != len(b.TypeParams) {
			return b.errorf("", nil, "constructor %s declares %d type parameters, owner declares %d", ctor.Name, len(ctor.TypeParams), len(b.TypeParams))
		}
		if err := b.checkParams(ctor.Name, ctor.Params); err != nil {
			return err
		}
		name := b.ConstructorName(ctor)
		if seen[name] {
			return b.errorf("", nil, "constructors generate the same function %s", name)
		}
		seen[name] = true
	}
	return nil
}

func (b *Builder) checkTypeParams(owner string, tps []*load.TypeParam) error {
	for i, tp := range tps {
		if tp == nil {
			return b.errorf(owner, nil, "type parameter %d is empty", i)
		}
		if !token.IsIdentifier(tp.Name) {
			return b.errorf(owner, nil, "type parameter %q is not a valid identifier", tp.Name)
		}
		if strings.TrimSpace(tp.Constraint) == "" {
			return b.errorf(owner, nil, "type parameter %s has no constraint", tp.Name)
		}
	}
	return nil
}

func (b *Builder) checkStep(s *load.Step) error {
	if s == nil {
		return b.errorf("", nil, "nil step")
	}
	if !token.IsIdentifier(s.Name) {
		return b.errorf(s.Name, nil, "step name is not a valid identifier")
	}
	if len(s.TypeParams) > 0 {
		return b.errorf(s.Name, nil, "methods cannot declare type parameters in Go; declare them on the owner type instead")
	}
	if b.MethodName(s) == "state" {
		return b.errorf(s.Name, nil, `step name "state" is reserved`)
	}
	if b.export && !token.IsExported(b.MethodName(s)) {
		return b.errorf(s.Name, nil, "step name has no upper case form and cannot be exported")
	}
	return b.checkParams(s.Name, s.Params)
}

func (b *Builder) checkParams(owner string, params []*load.Param) error {
	seen := make(map[string]bool)
	for i, p := range params {
		if p == nil {
			return b.errorf(owner, nil, "parameter %d is empty", i)
		}
		if !token.IsIdentifier(p.Name) || p.Name == "_" {
			return b.errorf(owner, nil, "parameter %d has invalid name %q", i, p.Name)
		}
		if seen[p.Name] {
			return b.errorf(owner, nil, "duplicate parameter %s", p.Name)
		}
		seen[p.Name] = true
		if strings.TrimSpace(p.Type) == "" {
			return b.errorf(owner, nil, "parameter %s has no type", p.Name)
		}
		if p.Variadic() && i != len(params)-1 {
			return b.errorf(owner, nil, "only the last parameter can be variadic")
		}
	}
	return nil
}

// checkStages validates that every stage exposes distinct method names.
func (b *Builder) checkStages() error {
	for _, st := range b.Graph.All() {
		seen := make(map[string]*load.Step)
		for _, s := range append(b.Unordered[:len(b.Unordered):len(b.Unordered)], st.Steps...) {
			name := b.MethodName(s)
			if prev, ok := seen[name]; ok {
				if !st.Terminal && contains(st.Steps, prev) {
					return b.errorf(s.Name, nil, "declared twice at position %d", s.Position)
				}
				return b.errorf(s.Name, nil, "method %s is declared twice at stage %s", name, st.Label)
			}
			seen[name] = s
		}
	}
	return nil
}

// checkNames validates that emitted declarations do not collide.
func (b *Builder) checkNames() error {
	seen := map[string]string{b.Name: "owner type"}
	add := func(name, what string) error {
		if prev, ok := seen[name]; ok {
			return b.errorf("", nil, "%s %s collides with %s", what, name, prev)
		}
		seen[name] = what
		return nil
	}
	names := []struct{ name, what string }{{b.OutputName(), "entry type"}}
	if len(b.Unordered) > 0 {
		names = append(names, struct{ name, what string }{b.UnorderedName(), "unordered contract"})
	}
	for _, st := range b.Graph.All() {
		names = append(names, struct{ name, what string }{b.ContractName(st), "contract"})
		if st != b.Graph.Entry() {
			names = append(names, struct{ name, what string }{b.ImplName(st), "stage type"})
		}
	}
	for _, ctor := range b.EntryConstructors() {
		names = append(names, struct{ name, what string }{b.ConstructorName(ctor), "constructor"})
	}
	for _, n := range names {
		if err := add(n.name, n.what); err != nil {
			return err
		}
	}
	return nil
}

func contains(steps []*load.Step, s *load.Step) bool {
	for _, e := range steps {
		if e == s {
			return true
		}
	}
	return false
}

// steps returns all steps of the builder.
func (b *Builder) steps() []*load.Step {
	all := make([]*load.Step, 0, len(b.Unordered)+len(b.Ordered)+len(b.Build))
	all = append(all, b.Unordered...)
	all = append(all, b.Ordered...)
	return append(all, b.Build...)
}

// EntryConstructors returns the constructors forwarded by the entry type: the
// declared ones, or a synthesized one allocating a zero owner.
func (b *Builder) EntryConstructors() []*load.Constructor {
	if len(b.Constructors) > 0 {
		return b.Constructors
	}
	return []*load.Constructor{{}}
}

// OutputName returns the name of the entry type.
func (b *Builder) OutputName() string {
	return b.output
}

// UnorderedName returns the name of the contract shared by all stages.
func (b *Builder) UnorderedName() string {
	return b.output + UnorderedLabel
}

// ContractName returns the interface name of the given stage.
func (b *Builder) ContractName(st *Stage) string {
	return b.output + st.Label
}

// ImplName returns the type implementing the given stage. The entry stage is
// implemented by the entry type, other stages by unexported types.
func (b *Builder) ImplName(st *Stage) string {
	if st == b.Graph.Entry() {
		return b.output
	}
	name := lowerFirst(b.output) + st.Label
	if name == b.ContractName(st) {
		name += "Impl"
	}
	return name
}

// MethodName returns the emitted name of a step.
func (b *Builder) MethodName(s *load.Step) string {
	if b.export {
		return upperFirst(s.Name)
	}
	return s.Name
}

// ConstructorName returns the emitted name of an owner constructor. Owner
// constructors named NewOwner... produce NewOutput..., others are prefixed.
func (b *Builder) ConstructorName(ctor *load.Constructor) string {
	prefix := "New" + b.Name
	switch {
	case ctor.Name == "":
		return "New" + b.output
	case strings.HasPrefix(ctor.Name, prefix):
		return "New" + b.output + strings.TrimPrefix(ctor.Name, prefix)
	default:
		return "New" + b.output + upperFirst(ctor.Name)
	}
}

// FileName returns the name of the generated file.
func (b *Builder) FileName() string {
	return inflect.Underscore(b.output) + load.GeneratedSuffix
}

// OutputDir returns the directory the generated file is written to.
func (b *Builder) OutputDir() string {
	if b.Config.Target != "" {
		return b.Config.Target
	}
	return b.Dir
}

// Path returns the path of the generated file.
func (b *Builder) Path() string {
	return filepath.Join(b.OutputDir(), b.FileName())
}

// Generic reports if the owner declares type parameters.
func (b *Builder) Generic() bool {
	return len(b.TypeParams) > 0
}

// pickIdents selects the receiver, stage type parameter and local variable
// names so they do not collide with identifiers used in signatures.
func (b *Builder) pickIdents() {
	used := make(map[string]bool)
	mark := func(text string) {
		for _, w := range strings.FieldsFunc(text, func(r rune) bool {
			return r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}) {
			used[w] = true
		}
	}
	for _, tp := range b.TypeParams {
		used[tp.Name] = true
		mark(tp.Constraint)
	}
	for _, imp := range b.Imports {
		used[imp.Ident()] = true
	}
	for _, s := range b.steps() {
		for _, p := range s.Params {
			used[p.Name] = true
			mark(p.Type)
		}
		mark(s.Result)
	}
	for _, ctor := range b.Constructors {
		for _, p := range ctor.Params {
			used[p.Name] = true
			mark(p.Type)
		}
	}
	b.recv = freeName(used, "b", "sb", "builder")
	b.stageParam = freeName(used, "S", "Stage", "Next")
	b.stateVar = freeName(used, "s", "state", "owner")
	b.errVar = freeName(used, "err", "ctorErr")
}

// freeName returns the first candidate not in used, falling back to the last
// candidate with a numeric suffix. The picked name is marked as used.
func freeName(used map[string]bool, candidates ...string) string {
	name := ""
	for _, c := range candidates {
		if !used[c] {
			name = c
			break
		}
	}
	for i := 0; name == ""; i++ {
		if c := fmt.Sprintf("%s%d", candidates[len(candidates)-1], i); !used[c] {
			name = c
		}
	}
	used[name] = true
	return name
}

// upperFirst title-cases the first rune of s.
func upperFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return cases.Title(language.Und).String(string(r)) + s[n:]
}

func lowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[n:]
}

// Check reports all validation errors of a declaration without generating.
func Check(c *Config, specs ...*load.Builder) error {
	var errs []error
	for _, s := range specs {
		if _, err := NewBuilder(c, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
