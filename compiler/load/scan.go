package load

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/printer"
	"go/token"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/tools/go/packages"
)

// Directive prefix recognized on type and function declarations.
const directivePrefix = "//stepgen:"

// Directive names.
const (
	DirectiveBuilder     = "builder"
	DirectiveUnordered   = "unordered"
	DirectiveOrdered     = "ordered"
	DirectiveBuild       = "build"
	DirectiveConstructor = "constructor"
)

// GeneratedSuffix is the file name suffix of generated files. Files with this
// suffix are never scanned.
const GeneratedSuffix = "_stepgen.go"

// ScanError is returned when a declaration carries a malformed directive or
// does not have the shape its directive requires.
type ScanError struct {
	Pos     string
	Message string
}

// Error implements the error interface.
func (e *ScanError) Error() string {
	if e.Pos == "" {
		return "stepgen: " + e.Message
	}
	return fmt.Sprintf("stepgen: %s: %s", e.Pos, e.Message)
}

// IsScanError reports if the error chain contains a ScanError.
func IsScanError(err error) bool {
	var se *ScanError
	return errors.As(err, &se)
}

// ScanOptions configures the package loading of Scan.
type ScanOptions struct {
	// BuildFlags are passed to the go command, e.g. "-tags=integration".
	BuildFlags []string
	// Dir is the directory patterns are resolved in. Empty means the
	// current working directory.
	Dir string
}

const scanMode = packages.NeedName | packages.NeedFiles | packages.NeedSyntax | packages.NeedTypes | packages.NeedImports

// Scan loads the packages matching the patterns and extracts every builder
// declared in them. A malformed builder is left out of the result and its
// error is joined into the returned error; the other builders are returned.
func Scan(ctx context.Context, opts ScanOptions, patterns ...string) ([]*Builder, error) {
	fset := token.NewFileSet()
	pkgs, err := packages.Load(&packages.Config{
		Context:    ctx,
		Mode:       scanMode,
		BuildFlags: opts.BuildFlags,
		Dir:        opts.Dir,
		Fset:       fset,
	}, patterns...)
	if err != nil {
		return nil, fmt.Errorf("stepgen: loading packages: %w", err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("stepgen: no packages found for %q", patterns)
	}
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].PkgPath < pkgs[j].PkgPath })
	var (
		builders []*Builder
		errs     []error
	)
	for _, pkg := range pkgs {
		if err := packageError(pkg); err != nil {
			errs = append(errs, err)
			continue
		}
		files, dir := sourceFiles(fset, pkg)
		if len(files) == 0 {
			continue
		}
		names := make(map[string]string)
		if pkg.Types != nil {
			for _, imp := range pkg.Types.Imports() {
				names[imp.Path()] = imp.Name()
			}
		}
		bs, err := ScanFiles(fset, pkg.Name, dir, files, names)
		if err != nil {
			errs = append(errs, err)
		}
		builders = append(builders, bs...)
	}
	return builders, errors.Join(errs...)
}

// Dirs returns the sorted source directories of the packages matching the
// patterns.
func Dirs(ctx context.Context, opts ScanOptions, patterns ...string) ([]string, error) {
	pkgs, err := packages.Load(&packages.Config{
		Context:    ctx,
		Mode:       packages.NeedName | packages.NeedFiles,
		BuildFlags: opts.BuildFlags,
		Dir:        opts.Dir,
	}, patterns...)
	if err != nil {
		return nil, fmt.Errorf("stepgen: loading packages: %w", err)
	}
	seen := make(map[string]bool)
	var dirs []string
	for _, pkg := range pkgs {
		if err := packageError(pkg); err != nil {
			return nil, err
		}
		for _, f := range pkg.GoFiles {
			if d := filepath.Dir(f); !seen[d] {
				seen[d] = true
				dirs = append(dirs, d)
			}
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// packageError returns the first listing or parsing error of the package.
// Type errors are ignored, since the previously generated file may be stale.
func packageError(pkg *packages.Package) error {
	for _, e := range pkg.Errors {
		if e.Kind == packages.ListError || e.Kind == packages.ParseError {
			return fmt.Errorf("stepgen: package %s: %w", pkg.PkgPath, e)
		}
	}
	return nil
}

func sourceFiles(fset *token.FileSet, pkg *packages.Package) ([]*ast.File, string) {
	var (
		dir   string
		files []*ast.File
	)
	for _, f := range pkg.Syntax {
		name := fset.Position(f.Package).Filename
		if strings.HasSuffix(name, GeneratedSuffix) || strings.HasSuffix(name, "_test.go") {
			continue
		}
		if dir == "" {
			dir = filepath.Dir(name)
		}
		files = append(files, f)
	}
	return files, dir
}

// ScanFiles extracts the builders declared in the given files of one package.
// importNames maps import paths to resolved package names and may be nil.
func ScanFiles(fset *token.FileSet, pkgName, dir string, files []*ast.File, importNames map[string]string) ([]*Builder, error) {
	s := &scanner{
		fset:    fset,
		names:   importNames,
		owners:  make(map[string]*owner),
		pkgName: pkgName,
		dir:     dir,
	}
	files = append([]*ast.File(nil), files...)
	sort.SliceStable(files, func(i, j int) bool {
		return fset.Position(files[i].Package).Filename < fset.Position(files[j].Package).Filename
	})
	for _, f := range files {
		s.collectOwners(f)
	}
	for _, f := range files {
		s.collectFuncs(f)
	}
	return s.result()
}

type (
	scanner struct {
		fset    *token.FileSet
		names   map[string]string
		pkgName string
		dir     string
		order   []*owner
		owners  map[string]*owner
		errs    []error
	}
	owner struct {
		b     *Builder
		files map[*ast.File]bool
		errs  []error
	}
	directive struct {
		name string
		args []string
		pos  token.Pos
	}
)

func (s *scanner) collectOwners(f *ast.File) {
	for _, decl := range f.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			ts := spec.(*ast.TypeSpec)
			doc := ts.Doc
			if doc == nil && !gd.Lparen.IsValid() {
				doc = gd.Doc
			}
			ds, err := s.directives(doc)
			if err != nil {
				s.errs = append(s.errs, err)
				continue
			}
			d, ok := only(ds, DirectiveBuilder)
			if !ok {
				if len(ds) > 0 {
					s.errs = append(s.errs, s.errorf(ds[0].pos, "directive %q is not allowed on type %s", ds[0].name, ts.Name.Name))
				}
				continue
			}
			o := &owner{
				b: &Builder{
					Name:       ts.Name.Name,
					Package:    s.pkgName,
					Dir:        s.dir,
					Pos:        s.fset.Position(ts.Pos()).String(),
					TypeParams: s.typeParams(ts.TypeParams),
				},
				files: map[*ast.File]bool{f: true},
			}
			switch {
			case len(ds) > 1:
				o.errs = append(o.errs, s.errorf(ts.Pos(), "type %s has more than one stepgen directive", ts.Name.Name))
			case len(d.args) > 1:
				o.errs = append(o.errs, s.errorf(d.pos, "builder directive expects at most one output name, got %d", len(d.args)))
			case len(d.args) == 1:
				o.b.Output = d.args[0]
			}
			if _, isStruct := ts.Type.(*ast.StructType); !isStruct {
				o.errs = append(o.errs, s.errorf(ts.Pos(), "builder %s must be a struct type", ts.Name.Name))
			}
			if _, dup := s.owners[o.b.Name]; dup {
				continue
			}
			s.owners[o.b.Name] = o
			s.order = append(s.order, o)
		}
	}
}

func (s *scanner) collectFuncs(f *ast.File) {
	for _, decl := range f.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		ds, err := s.directives(fn.Doc)
		if err != nil {
			if o, ok := s.owners[receiverName(fn.Recv)]; ok {
				o.errs = append(o.errs, err)
			} else {
				s.errs = append(s.errs, err)
			}
			continue
		}
		if fn.Recv == nil {
			s.constructor(f, fn, ds)
			continue
		}
		if len(ds) == 0 {
			continue
		}
		name := receiverName(fn.Recv)
		o, ok := s.owners[name]
		if !ok {
			s.errs = append(s.errs, s.errorf(fn.Pos(), "method %s.%s has a stepgen directive but %s is not a builder", name, fn.Name.Name, name))
			continue
		}
		o.files[f] = true
		if len(ds) > 1 {
			o.errs = append(o.errs, s.errorf(fn.Pos(), "method %s has more than one stepgen directive", fn.Name.Name))
			continue
		}
		d := ds[0]
		step := &Step{
			Name:   fn.Name.Name,
			Params: s.params(fn.Type.Params),
			Result: s.results(fn.Type.Results),
			Doc:    strings.TrimSpace(fn.Doc.Text()),
		}
		switch d.name {
		case DirectiveUnordered:
			if len(d.args) > 0 {
				o.errs = append(o.errs, s.errorf(d.pos, "unordered directive takes no arguments"))
				continue
			}
			o.b.Unordered = append(o.b.Unordered, step)
		case DirectiveBuild:
			if len(d.args) > 0 {
				o.errs = append(o.errs, s.errorf(d.pos, "build directive takes no arguments"))
				continue
			}
			o.b.Build = append(o.b.Build, step)
		case DirectiveOrdered:
			if len(d.args) != 1 {
				o.errs = append(o.errs, s.errorf(d.pos, "ordered directive on %s expects one position argument", fn.Name.Name))
				continue
			}
			p, err := strconv.ParseInt(d.args[0], 0, 0)
			if err != nil {
				o.errs = append(o.errs, s.errorf(d.pos, "invalid position %q on %s", d.args[0], fn.Name.Name))
				continue
			}
			step.Position = int(p)
			o.b.Ordered = append(o.b.Ordered, step)
		default:
			o.errs = append(o.errs, s.errorf(d.pos, "directive %q is not allowed on method %s", d.name, fn.Name.Name))
		}
	}
}

// constructor records fn as a constructor if it is named after an owner or
// carries the constructor directive, and returns the owner.
func (s *scanner) constructor(f *ast.File, fn *ast.FuncDecl, ds []directive) {
	_, marked := only(ds, DirectiveConstructor)
	if len(ds) > 0 && !marked || len(ds) > 1 {
		s.errs = append(s.errs, s.errorf(ds[0].pos, "function %s supports only the constructor directive", fn.Name.Name))
		return
	}
	o, value, hasErr := s.constructed(fn.Type.Results)
	if o == nil || !marked && !strings.HasPrefix(fn.Name.Name, "New"+o.b.Name) {
		if marked {
			s.errs = append(s.errs, s.errorf(fn.Pos(), "constructor %s must return a builder type, optionally followed by an error", fn.Name.Name))
		}
		return
	}
	o.files[f] = true
	o.b.Constructors = append(o.b.Constructors, &Constructor{
		Name:       fn.Name.Name,
		Params:     s.params(fn.Type.Params),
		TypeParams: s.typeParams(fn.Type.TypeParams),
		Value:      value,
		Err:        hasErr,
	})
}

// constructed returns the owner created by a function with the given results.
func (s *scanner) constructed(results *ast.FieldList) (o *owner, value, hasErr bool) {
	if results == nil || results.NumFields() == 0 || results.NumFields() > 2 {
		return nil, false, false
	}
	types := make([]ast.Expr, 0, 2)
	for _, r := range results.List {
		n := max(len(r.Names), 1)
		for range n {
			types = append(types, r.Type)
		}
	}
	if len(types) == 2 {
		id, ok := types[1].(*ast.Ident)
		if !ok || id.Name != "error" {
			return nil, false, false
		}
		hasErr = true
	}
	value = true
	t := types[0]
	if star, ok := t.(*ast.StarExpr); ok {
		t, value = star.X, false
	}
	o, ok := s.owners[baseName(t)]
	if !ok {
		return nil, false, false
	}
	return o, value, hasErr
}

func (s *scanner) result() ([]*Builder, error) {
	var builders []*Builder
	errs := s.errs
	for _, o := range s.order {
		if len(o.errs) > 0 {
			errs = append(errs, o.errs...)
			continue
		}
		o.b.Imports = s.imports(o.files)
		builders = append(builders, o.b)
	}
	return builders, errors.Join(errs...)
}

// imports returns the union of imports of the given files, sorted by path.
func (s *scanner) imports(files map[*ast.File]bool) []*Import {
	seen := make(map[Import]bool)
	var imports []*Import
	for f := range files {
		for _, spec := range f.Imports {
			path, err := strconv.Unquote(spec.Path.Value)
			if err != nil {
				continue
			}
			imp := Import{Path: path, PkgName: s.names[path]}
			if spec.Name != nil {
				imp.Name = spec.Name.Name
			}
			if !seen[imp] {
				seen[imp] = true
				imports = append(imports, &imp)
			}
		}
	}
	sort.Slice(imports, func(i, j int) bool {
		if imports[i].Path != imports[j].Path {
			return imports[i].Path < imports[j].Path
		}
		return imports[i].Name < imports[j].Name
	})
	return imports
}

// directives returns the stepgen directives of a comment group.
func (s *scanner) directives(doc *ast.CommentGroup) ([]directive, error) {
	if doc == nil {
		return nil, nil
	}
	var ds []directive
	for _, c := range doc.List {
		text, ok := strings.CutPrefix(c.Text, directivePrefix)
		if !ok {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			return nil, s.errorf(c.Pos(), "empty stepgen directive")
		}
		switch fields[0] {
		case DirectiveBuilder, DirectiveUnordered, DirectiveOrdered, DirectiveBuild, DirectiveConstructor:
		default:
			return nil, s.errorf(c.Pos(), "unknown stepgen directive %q", fields[0])
		}
		ds = append(ds, directive{name: fields[0], args: fields[1:], pos: c.Pos()})
	}
	return ds, nil
}

func (s *scanner) params(fl *ast.FieldList) []*Param {
	if fl == nil {
		return nil
	}
	var params []*Param
	for _, field := range fl.List {
		typ := s.text(field.Type)
		if len(field.Names) == 0 {
			params = append(params, &Param{Name: "arg" + strconv.Itoa(len(params)), Type: typ})
			continue
		}
		for _, n := range field.Names {
			name := n.Name
			if name == "_" {
				name = "arg" + strconv.Itoa(len(params))
			}
			params = append(params, &Param{Name: name, Type: typ})
		}
	}
	return params
}

func (s *scanner) typeParams(fl *ast.FieldList) []*TypeParam {
	if fl == nil {
		return nil
	}
	var tps []*TypeParam
	for _, field := range fl.List {
		c := s.text(field.Type)
		for _, n := range field.Names {
			tps = append(tps, &TypeParam{Name: n.Name, Constraint: c})
		}
	}
	return tps
}

// results returns the verbatim result list. A single unnamed result is
// returned as is, anything else is parenthesized.
func (s *scanner) results(fl *ast.FieldList) string {
	if fl == nil || len(fl.List) == 0 {
		return ""
	}
	if len(fl.List) == 1 && len(fl.List[0].Names) == 0 {
		return s.text(fl.List[0].Type)
	}
	parts := make([]string, 0, len(fl.List))
	for _, field := range fl.List {
		typ := s.text(field.Type)
		if len(field.Names) == 0 {
			parts = append(parts, typ)
			continue
		}
		names := make([]string, len(field.Names))
		for i, n := range field.Names {
			names[i] = n.Name
		}
		parts = append(parts, strings.Join(names, ", ")+" "+typ)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (s *scanner) text(expr ast.Expr) string {
	var buf bytes.Buffer
	if err := printer.Fprint(&buf, s.fset, expr); err != nil {
		return ""
	}
	return buf.String()
}

func (s *scanner) errorf(pos token.Pos, format string, args ...any) error {
	return &ScanError{Pos: s.fset.Position(pos).String(), Message: fmt.Sprintf(format, args...)}
}

// only returns the directive if ds contains one with the given name.
func only(ds []directive, name string) (directive, bool) {
	for _, d := range ds {
		if d.name == name {
			return d, true
		}
	}
	return directive{}, false
}

func receiverName(fl *ast.FieldList) string {
	if fl == nil || len(fl.List) == 0 {
		return ""
	}
	t := fl.List[0].Type
	if star, ok := t.(*ast.StarExpr); ok {
		t = star.X
	}
	return baseName(t)
}

// baseName returns the type name of T, T[A] or T[A, B].
func baseName(t ast.Expr) string {
	switch x := t.(type) {
	case *ast.Ident:
		return x.Name
	case *ast.IndexExpr:
		return baseName(x.X)
	case *ast.IndexListExpr:
		return baseName(x.X)
	case *ast.ParenExpr:
		return baseName(x.X)
	}
	return ""
}
