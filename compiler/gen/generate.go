package gen

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/stepgen/compiler/load"
)

type (
	// Generator is the interface that wraps the Generate method.
	Generator interface {
		// Generate emits the source file of a builder.
		Generate(*Builder) (*File, error)
	}

	// The GenerateFunc type is an adapter to allow the use of ordinary
	// function as Generator. If f is a function with the appropriate signature,
	// GenerateFunc(f) is a Generator that calls f.
	GenerateFunc func(*Builder) (*File, error)

	// Hook defines the "generate middleware". A function that gets a Generator
	// and returns a Generator. For example:
	//
	//	hook := func(next gen.Generator) gen.Generator {
	//		return gen.GenerateFunc(func(b *gen.Builder) (*gen.File, error) {
	//			fmt.Println("Builder:", b.Name)
	//			return next.Generate(b)
	//		})
	//	}
	//
	Hook func(Generator) Generator
)

// Generate calls f(b).
func (f GenerateFunc) Generate(b *Builder) (*File, error) {
	return f(b)
}

// File is a generated source file.
type File struct {
	Builder *Builder
	Dir     string
	Name    string
	Content []byte
}

// Path returns the path the file is written to.
func (f *File) Path() string {
	return filepath.Join(f.Dir, f.Name)
}

// Emit validates the declaration and generates its file with the configured
// generator and hooks.
func Emit(c *Config, spec *load.Builder) (*File, error) {
	b, err := NewBuilder(c, spec)
	if err != nil {
		return nil, err
	}
	return c.generator().Generate(b)
}

// JenniferGenerator generates builder files using Jennifer.
type JenniferGenerator struct{}

// NewJenniferGenerator creates a new Jennifer-based generator.
func NewJenniferGenerator() *JenniferGenerator {
	return &JenniferGenerator{}
}

// Generate renders, formats and returns the file of the builder.
func (g *JenniferGenerator) Generate(b *Builder) (*File, error) {
	var buf bytes.Buffer
	f := NewFile(b)
	f.NoFormat = true
	if err := f.Render(&buf); err != nil {
		return nil, NewGenerationError(b.Name, "emit", b.FileName(), "rendering source", err)
	}
	src, err := FormatSource(buf.Bytes(), b.Imports)
	if err != nil {
		return nil, NewGenerationError(b.Name, "format", b.FileName(), "formatting source", err)
	}
	return &File{
		Builder: b,
		Dir:     b.OutputDir(),
		Name:    b.FileName(),
		Content: src,
	}, nil
}

// NewFile returns the unformatted file of the builder. Types are rendered
// verbatim from the declaration, imports are added by FormatSource.
func NewFile(b *Builder) *jen.File {
	f := jen.NewFile(b.Package)
	for _, line := range strings.Split(b.Config.header(), "\n") {
		f.HeaderComment(line)
	}
	if b.Fingerprint != "" {
		f.HeaderComment("stepgen:fingerprint " + b.Fingerprint)
	}
	e := &emitter{Builder: b, f: f}
	e.unordered()
	for _, st := range b.Graph.All() {
		e.contract(st)
	}
	e.entry()
	for _, st := range b.Graph.All() {
		if st != b.Graph.Entry() {
			e.impl(st)
		}
	}
	e.asserts()
	return f
}

type emitter struct {
	*Builder
	f *jen.File
}

// typeParams returns the owner type parameters with their constraints.
func (e *emitter) typeParams() []jen.Code {
	tps := make([]jen.Code, 0, len(e.TypeParams))
	for _, tp := range e.TypeParams {
		tps = append(tps, jen.Id(tp.Name).Id(tp.Constraint))
	}
	return tps
}

// typeArgs returns the owner type parameters as type arguments.
func (e *emitter) typeArgs() []jen.Code {
	args := make([]jen.Code, 0, len(e.TypeParams))
	for _, tp := range e.TypeParams {
		args = append(args, jen.Id(tp.Name))
	}
	return args
}

// inst returns the instantiation of a generated generic type.
func (e *emitter) inst(name string) *jen.Statement {
	return jen.Id(name).Types(e.typeArgs()...)
}

func (e *emitter) params(s *load.Step) []jen.Code {
	return declParams(s.Params)
}

func declParams(ps []*load.Param) []jen.Code {
	params := make([]jen.Code, 0, len(ps))
	for _, p := range ps {
		params = append(params, jen.Id(p.Name).Id(p.Type))
	}
	return params
}

func callArgs(ps []*load.Param) []jen.Code {
	args := make([]jen.Code, 0, len(ps))
	for _, p := range ps {
		arg := jen.Id(p.Name)
		if p.Variadic() {
			arg.Op("...")
		}
		args = append(args, arg)
	}
	return args
}

// result returns the verbatim result list of a step, or nil.
func result(s *load.Step) jen.Code {
	if s.Result == "" {
		return jen.Null()
	}
	return jen.Id(s.Result)
}

// doc returns the comment lines of a step, with the leading step name
// replaced by the emitted method name.
func (e *emitter) doc(s *load.Step) []jen.Code {
	if s.Doc == "" {
		return nil
	}
	text := s.Doc
	if name := e.MethodName(s); name != s.Name {
		if rest, ok := strings.CutPrefix(text, s.Name+" "); ok {
			text = name + " " + rest
		}
	}
	var lines []jen.Code
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) == "" {
			lines = append(lines, jen.Comment("//"))
			continue
		}
		lines = append(lines, jen.Comment(l))
	}
	return lines
}

// method returns the contract method of a step returning ret.
func (e *emitter) method(s *load.Step, ret jen.Code) []jen.Code {
	return append(e.doc(s), jen.Id(e.MethodName(s)).Params(e.params(s)...).Add(ret))
}

// unordered emits the contract shared by all stages, parameterized over the
// current stage.
func (e *emitter) unordered() {
	if len(e.Unordered) == 0 {
		return
	}
	name := e.UnorderedName()
	tps := append([]jen.Code{jen.Id(e.stageParam).Any()}, e.typeParams()...)
	e.f.Commentf("%s holds the steps of %s that can be called at any stage.", name, e.Name)
	e.f.Comment("Each of them returns the stage it was called on.")
	e.f.Type().Id(name).Types(tps...).InterfaceFunc(func(g *jen.Group) {
		for _, s := range e.Unordered {
			for _, c := range e.method(s, jen.Id(e.stageParam)) {
				g.Add(c)
			}
		}
	})
	e.f.Line()
}

// contract emits the interface of a stage.
func (e *emitter) contract(st *Stage) {
	name := e.ContractName(st)
	switch {
	case st.Terminal:
		e.f.Commentf("%s is the final stage of %s. It exposes the build steps.", name, e.OutputName())
	case st == e.Graph.Entry():
		e.f.Commentf("%s is the first stage of %s.", name, e.OutputName())
	default:
		e.f.Commentf("%s is the stage of %s at position %d.", name, e.OutputName(), st.Position)
	}
	e.f.Type().Id(name).Types(e.typeParams()...).InterfaceFunc(func(g *jen.Group) {
		for _, s := range e.Unordered {
			for _, c := range e.method(s, e.inst(name)) {
				g.Add(c)
			}
		}
		for _, s := range st.Steps {
			var ret jen.Code
			if st.Terminal {
				ret = result(s)
			} else {
				ret = e.inst(e.ContractName(st.Next))
			}
			for _, c := range e.method(s, ret) {
				g.Add(c)
			}
		}
	})
	e.f.Line()
}

// entry emits the entry type and its constructors.
func (e *emitter) entry() {
	name := e.OutputName()
	owner := jen.Id(e.Name).Types(e.typeArgs()...)
	e.f.Commentf("%s is a staged builder of %s. It implements %s.", name, e.Name, e.ContractName(e.Graph.Entry()))
	e.f.Comment("A builder and the stages derived from it share one " + e.Name + " and are not safe for concurrent use.")
	e.f.Type().Id(name).Types(e.typeParams()...).Struct(
		jen.Id("state").Op("*").Add(owner),
	)
	e.f.Line()
	for _, ctor := range e.EntryConstructors() {
		e.constructor(ctor)
	}
	e.methods(e.Graph.Entry())
}

// constructor emits the constructor of the entry type forwarding to ctor.
func (e *emitter) constructor(ctor *load.Constructor) {
	name, out := e.ConstructorName(ctor), e.OutputName()
	var (
		tps, args []jen.Code
		ret       = jen.Op("*").Id(out)
		lit       = jen.Op("&").Id(out)
	)
	ctorTypeParams := ctor.TypeParams
	if ctor.Name == "" {
		ctorTypeParams = e.TypeParams
	}
	for _, tp := range ctorTypeParams {
		tps = append(tps, jen.Id(tp.Name).Id(tp.Constraint))
		args = append(args, jen.Id(tp.Name))
	}
	ret.Types(args...)
	lit.Types(args...)
	call := jen.Id(ctor.Name).Types(args...).Call(callArgs(ctor.Params)...)
	var body []jen.Code
	switch {
	case ctor.Name == "":
		e.f.Commentf("%s returns a new %s of a zero %s.", name, out, e.Name)
		body = []jen.Code{jen.Return(lit.Values(jen.Dict{
			jen.Id("state"): jen.New(jen.Id(e.Name).Types(args...)),
		}))}
	case ctor.Err:
		e.f.Commentf("%s returns a new %s of the %s created by %s.", name, out, e.Name, ctor.Name)
		state := jen.Id(e.stateVar)
		if ctor.Value {
			state = jen.Op("&").Id(e.stateVar)
		}
		body = []jen.Code{
			jen.List(jen.Id(e.stateVar), jen.Id(e.errVar)).Op(":=").Add(call),
			jen.If(jen.Id(e.errVar).Op("!=").Nil()).Block(
				jen.Return(jen.Nil(), jen.Id(e.errVar)),
			),
			jen.Return(lit.Values(jen.Dict{jen.Id("state"): state}), jen.Nil()),
		}
		ret = jen.Params(ret, jen.Error())
	case ctor.Value:
		e.f.Commentf("%s returns a new %s of the %s created by %s.", name, out, e.Name, ctor.Name)
		body = []jen.Code{
			jen.Id(e.stateVar).Op(":=").Add(call),
			jen.Return(lit.Values(jen.Dict{jen.Id("state"): jen.Op("&").Id(e.stateVar)})),
		}
	default:
		e.f.Commentf("%s returns a new %s of the %s created by %s.", name, out, e.Name, ctor.Name)
		body = []jen.Code{jen.Return(lit.Values(jen.Dict{jen.Id("state"): call}))}
	}
	e.f.Func().Id(name).Types(tps...).Params(declParams(ctor.Params)...).Add(ret).Block(body...)
	e.f.Line()
}

// impl emits the implementation type of a non-entry stage.
func (e *emitter) impl(st *Stage) {
	e.f.Commentf("%s implements %s.", e.ImplName(st), e.ContractName(st))
	e.f.Type().Id(e.ImplName(st)).Types(e.typeParams()...).Struct(
		jen.Id("state").Op("*").Id(e.Name).Types(e.typeArgs()...),
	)
	e.f.Line()
	e.methods(st)
}

// methods emits the methods of the implementation of a stage.
func (e *emitter) methods(st *Stage) {
	recv := jen.Id(e.recv).Op("*").Add(e.inst(e.ImplName(st)))
	forward := func(s *load.Step) *jen.Statement {
		return jen.Id(e.recv).Dot("state").Dot(s.Name).Call(callArgs(s.Params)...)
	}
	for _, s := range e.Unordered {
		e.implDoc(s, st)
		e.f.Func().Params(recv.Clone()).Id(e.MethodName(s)).Params(e.params(s)...).Add(e.inst(e.ContractName(st))).Block(
			forward(s),
			jen.Return(jen.Id(e.recv)),
		)
		e.f.Line()
	}
	for _, s := range st.Steps {
		e.implDoc(s, st)
		fn := e.f.Func().Params(recv.Clone()).Id(e.MethodName(s)).Params(e.params(s)...)
		switch {
		case st.Terminal && s.Result == "":
			fn.Block(forward(s))
		case st.Terminal:
			fn.Add(result(s)).Block(jen.Return(forward(s)))
		default:
			fn.Add(e.inst(e.ContractName(st.Next))).Block(
				forward(s),
				jen.Return(jen.Op("&").Add(e.inst(e.ImplName(st.Next))).Values(jen.Dict{
					jen.Id("state"): jen.Id(e.recv).Dot("state"),
				})),
			)
		}
		e.f.Line()
	}
}

// implDoc emits the comment of a stage method: the step doc when the owner
// has one, otherwise the contract it implements.
func (e *emitter) implDoc(s *load.Step, st *Stage) {
	lines := e.doc(s)
	if len(lines) == 0 {
		e.f.Commentf("%s implements %s.", e.MethodName(s), e.ContractName(st))
		return
	}
	for _, l := range lines {
		e.f.Add(l)
	}
}

// asserts emits compile-time assertions that every implementation satisfies
// its contracts. Generic builders cannot be asserted without instantiation.
func (e *emitter) asserts() {
	if !e.assert || e.Generic() {
		return
	}
	e.f.Var().DefsFunc(func(g *jen.Group) {
		for _, st := range e.Graph.All() {
			impl := jen.Parens(jen.Op("*").Id(e.ImplName(st))).Call(jen.Nil())
			g.Id("_").Id(e.ContractName(st)).Op("=").Add(impl.Clone())
			if len(e.Unordered) > 0 {
				g.Id("_").Id(e.UnorderedName()).Types(jen.Id(e.ContractName(st))).Op("=").Add(impl)
			}
		}
	})
}
