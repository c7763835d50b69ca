package gen

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"

	"golang.org/x/tools/go/ast/astutil"
	"golang.org/x/tools/imports"

	"github.com/syssam/stepgen/compiler/load"
)

// FormatSource adds the imports of the owner package that the source
// references, and formats the result. Blank and dot imports are never added.
func FormatSource(src []byte, imps []*load.Import) ([]byte, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "", src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("parsing generated source: %w", err)
	}
	used := packageRefs(f)
	added := make(map[string]string)
	for _, imp := range imps {
		if imp.Name == "_" || imp.Name == "." {
			continue
		}
		ident := imp.Ident()
		if !used[ident] {
			continue
		}
		if p, ok := added[ident]; ok {
			if p == imp.Path {
				continue
			}
			return nil, fmt.Errorf("package name %s refers to both %q and %q", ident, p, imp.Path)
		}
		added[ident] = imp.Path
		name := imp.Name
		if name == "" && ident != load.AssumedPackageName(imp.Path) {
			name = ident
		}
		astutil.AddNamedImport(fset, f, name, imp.Path)
	}
	var buf bytes.Buffer
	if err := format.Node(&buf, fset, f); err != nil {
		return nil, fmt.Errorf("printing generated source: %w", err)
	}
	out, err := imports.Process("", buf.Bytes(), &imports.Options{
		FormatOnly: true,
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
	})
	if err != nil {
		return nil, fmt.Errorf("formatting generated source: %w", err)
	}
	return out, nil
}

// packageRefs returns the names used as the operand of a selector that do not
// resolve to a declaration of the file.
func packageRefs(f *ast.File) map[string]bool {
	refs := make(map[string]bool)
	ast.Inspect(f, func(n ast.Node) bool {
		sel, ok := n.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		if id, ok := sel.X.(*ast.Ident); ok && id.Obj == nil {
			refs[id.Name] = true
		}
		return true
	})
	return refs
}
