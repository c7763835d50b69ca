package load

import (
	"fmt"
	"strings"
)

// Builder represents a staged builder declaration that was loaded from a user
// package or a spec file.
type Builder struct {
	Name         string         `json:"name" yaml:"name" toml:"name" msgpack:"name"`
	Output       string         `json:"output,omitempty" yaml:"output,omitempty" toml:"output,omitempty" msgpack:"output"`
	Package      string         `json:"package,omitempty" yaml:"package,omitempty" toml:"package,omitempty" msgpack:"package"`
	Dir          string         `json:"dir,omitempty" yaml:"dir,omitempty" toml:"dir,omitempty" msgpack:"-"`
	Pos          string         `json:"-" yaml:"-" toml:"-" msgpack:"-"`
	TypeParams   []*TypeParam   `json:"type_params,omitempty" yaml:"type_params,omitempty" toml:"type_params,omitempty" msgpack:"type_params"`
	Constructors []*Constructor `json:"constructors,omitempty" yaml:"constructors,omitempty" toml:"constructors,omitempty" msgpack:"constructors"`
	Imports      []*Import      `json:"imports,omitempty" yaml:"imports,omitempty" toml:"imports,omitempty" msgpack:"imports"`
	Unordered    []*Step        `json:"unordered,omitempty" yaml:"unordered,omitempty" toml:"unordered,omitempty" msgpack:"unordered"`
	Ordered      []*Step        `json:"ordered,omitempty" yaml:"ordered,omitempty" toml:"ordered,omitempty" msgpack:"ordered"`
	Build        []*Step        `json:"build,omitempty" yaml:"build,omitempty" toml:"build,omitempty" msgpack:"build"`
}

// Step is a single method of the owner type that takes part in the staged API.
type Step struct {
	Name       string       `json:"name" yaml:"name" toml:"name" msgpack:"name"`
	Params     []*Param     `json:"params,omitempty" yaml:"params,omitempty" toml:"params,omitempty" msgpack:"params"`
	TypeParams []*TypeParam `json:"type_params,omitempty" yaml:"type_params,omitempty" toml:"type_params,omitempty" msgpack:"type_params"`
	// Position is only meaningful for ordered steps.
	Position int `json:"position,omitempty" yaml:"position,omitempty" toml:"position,omitempty" msgpack:"position"`
	// Result is the verbatim result list of a build step, for example
	// "Order" or "(*Order, error)".
	Result string `json:"result,omitempty" yaml:"result,omitempty" toml:"result,omitempty" msgpack:"result"`
	Doc    string `json:"doc,omitempty" yaml:"doc,omitempty" toml:"doc,omitempty" msgpack:"doc"`
}

// Param is a named parameter with the declaration text of its type.
type Param struct {
	Name string `json:"name" yaml:"name" toml:"name" msgpack:"name"`
	Type string `json:"type" yaml:"type" toml:"type" msgpack:"type"`
}

// Variadic reports if the parameter is declared as "...T".
func (p *Param) Variadic() bool {
	return strings.HasPrefix(strings.TrimSpace(p.Type), "...")
}

// TypeParam is a type parameter with its verbatim constraint.
type TypeParam struct {
	Name       string `json:"name" yaml:"name" toml:"name" msgpack:"name"`
	Constraint string `json:"constraint,omitempty" yaml:"constraint,omitempty" toml:"constraint,omitempty" msgpack:"constraint"`
}

// Constructor describes a package-level function that creates the owner.
type Constructor struct {
	Name       string       `json:"name" yaml:"name" toml:"name" msgpack:"name"`
	Params     []*Param     `json:"params,omitempty" yaml:"params,omitempty" toml:"params,omitempty" msgpack:"params"`
	TypeParams []*TypeParam `json:"type_params,omitempty" yaml:"type_params,omitempty" toml:"type_params,omitempty" msgpack:"type_params"`
	// Value is set when the constructor returns the owner by value.
	Value bool `json:"value,omitempty" yaml:"value,omitempty" toml:"value,omitempty" msgpack:"value"`
	// Err is set when the constructor returns a trailing error.
	Err bool `json:"error,omitempty" yaml:"error,omitempty" toml:"error,omitempty" msgpack:"error"`
}

// Import is an import spec to re-emit in the generated file.
type Import struct {
	// Name is the explicit import name, if any.
	Name string `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty" msgpack:"name"`
	Path string `json:"path" yaml:"path" toml:"path" msgpack:"path"`
	// PkgName is the resolved package name. It is empty when the package
	// could not be resolved and Name is not set.
	PkgName string `json:"pkg_name,omitempty" yaml:"pkg_name,omitempty" toml:"pkg_name,omitempty" msgpack:"pkg_name"`
}

// Ident returns the identifier the import is referenced by in source code.
func (i *Import) Ident() string {
	switch {
	case i.Name != "":
		return i.Name
	case i.PkgName != "":
		return i.PkgName
	default:
		return AssumedPackageName(i.Path)
	}
}

// AssumedPackageName returns the package name the go tool assumes for an
// import path that could not be resolved: the last element without a major
// version suffix and without a "go-" prefix or ".go" suffix.
func AssumedPackageName(path string) string {
	elems := strings.Split(path, "/")
	name := elems[len(elems)-1]
	if len(elems) > 1 && isMajorVersion(name) {
		name = elems[len(elems)-2]
	}
	name = strings.TrimPrefix(name, "go-")
	name = strings.TrimSuffix(name, ".go")
	if i := strings.IndexFunc(name, func(r rune) bool {
		return !('a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9' || r == '_')
	}); i >= 0 {
		name = name[:i]
	}
	return name
}

func isMajorVersion(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// OutputName returns the name of the generated entry type, using the given
// suffix when no explicit output name was declared.
func (b *Builder) OutputName(suffix string) string {
	if b.Output != "" {
		return b.Output
	}
	return b.Name + suffix
}

// String implements fmt.Stringer.
func (b *Builder) String() string {
	if b.Package == "" {
		return b.Name
	}
	return fmt.Sprintf("%s.%s", b.Package, b.Name)
}

// File is the content of a declarative spec file.
type File struct {
	Package  string     `json:"package,omitempty" yaml:"package,omitempty" toml:"package,omitempty"`
	Dir      string     `json:"dir,omitempty" yaml:"dir,omitempty" toml:"dir,omitempty"`
	Imports  []*Import  `json:"imports,omitempty" yaml:"imports,omitempty" toml:"imports,omitempty"`
	Builders []*Builder `json:"builders" yaml:"builders" toml:"builders"`
}
