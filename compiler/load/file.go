package load

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Supported spec file formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
	FormatTOML = "toml"
)

// FormatOf returns the spec file format for the given file name.
func FormatOf(name string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("stepgen: unsupported spec file extension %q", ext)
	}
}

// ReadFile reads the builders declared in a spec file. Builder directories
// are resolved relative to the directory of the spec file.
func ReadFile(path string) ([]*Builder, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("stepgen: reading spec file: %w", err)
	}
	f, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("stepgen: %s: %w", path, err)
	}
	base := filepath.Dir(path)
	for i, b := range f.Builders {
		b.Pos = fmt.Sprintf("%s:builders[%d]", path, i)
		switch {
		case b.Dir == "":
			b.Dir = base
		case !filepath.IsAbs(b.Dir):
			b.Dir = filepath.Join(base, b.Dir)
		}
	}
	return f.Builders, nil
}

// Decode decodes a spec file in the given format. File-level package,
// directory and imports are copied to builders that do not declare their own.
func Decode(data []byte, format string) (*File, error) {
	f := &File{}
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(f); err != nil {
			return nil, fmt.Errorf("decoding yaml: %w", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(f); err != nil {
			return nil, fmt.Errorf("decoding json: %w", err)
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), f)
		if err != nil {
			return nil, fmt.Errorf("decoding toml: %w", err)
		}
		if keys := md.Undecoded(); len(keys) > 0 {
			return nil, fmt.Errorf("decoding toml: unknown key %q", keys[0].String())
		}
	default:
		return nil, fmt.Errorf("unknown spec format %q", format)
	}
	for i, imp := range f.Imports {
		if imp == nil || imp.Path == "" {
			return nil, fmt.Errorf("import %d has no path", i)
		}
	}
	for i, b := range f.Builders {
		if b == nil || b.Name == "" {
			return nil, fmt.Errorf("builder %d has no name", i)
		}
		for j, imp := range b.Imports {
			if imp == nil || imp.Path == "" {
				return nil, fmt.Errorf("builder %s: import %d has no path", b.Name, j)
			}
		}
		if b.Package == "" {
			b.Package = f.Package
		}
		if b.Dir == "" {
			b.Dir = f.Dir
		}
		if len(b.Imports) == 0 && len(f.Imports) > 0 {
			b.Imports = append([]*Import(nil), f.Imports...)
		}
	}
	return f, nil
}
