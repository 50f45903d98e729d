// Package codegen emits Go bindings for table declarations: a package
// holding the descriptors and the list of generators they reference.
package codegen

import (
	"bytes"
	"errors"
	"fmt"
	"go/format"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"github.com/rubiojr/vtab/tables"
)

// DefaultPackage is used when Options.Package is empty.
const DefaultPackage = "tablegen"

var validPkgName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Options controls generation.
type Options struct {
	// Package is the name of the generated Go package.
	Package string
	// Modules maps an implementation module ("time" in "time@genTime") to
	// the Go import path providing its generators.
	Modules map[string]string
	// Impls, when set, must already bind every referenced implementation.
	Impls *tables.Implementations
	// Source is mentioned in the generated header (e.g. the spec directory).
	Source string
}

type importData struct {
	Alias string
	Path  string
}

type bindingData struct {
	Ref  string
	Func string
}

type fileData struct {
	Package  string
	Source   string
	Imports  []importData
	Tables   []string
	Bindings []bindingData
}

// Generate returns gofmt-formatted Go source for ts. Implementation
// references that cannot be resolved to an import (or, with Options.Impls,
// to a registered generator) fail the build with tables.ErrUnresolvedImpl.
func Generate(opts Options, ts ...*tables.Table) ([]byte, error) {
	pkg := opts.Package
	if pkg == "" {
		pkg = DefaultPackage
	}
	if !validPkgName.MatchString(pkg) {
		return nil, fmt.Errorf("invalid package name %q", pkg)
	}

	data := fileData{Package: pkg, Source: opts.Source}
	aliases := map[string]string{}
	bound := map[string]bool{}
	var errs []error

	for _, t := range ts {
		ref := t.Implementation()
		path, ok := opts.Modules[ref.Module]
		if !ok {
			errs = append(errs, fmt.Errorf("table %s: %w %s: no import path for module %q",
				t.Name(), tables.ErrUnresolvedImpl, ref, ref.Module))
			continue
		}
		if opts.Impls != nil && !opts.Impls.Has(ref) {
			errs = append(errs, fmt.Errorf("table %s: %w %s", t.Name(), tables.ErrUnresolvedImpl, ref))
			continue
		}

		alias, ok := aliases[ref.Module]
		if !ok {
			alias = ref.Module + "impl"
			aliases[ref.Module] = alias
			data.Imports = append(data.Imports, importData{Alias: alias, Path: path})
		}

		data.Tables = append(data.Tables, specLiteral(t))
		if !bound[ref.String()] {
			bound[ref.String()] = true
			data.Bindings = append(data.Bindings, bindingData{Ref: ref.String(), Func: alias + "." + ref.GoName()})
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	sort.Slice(data.Imports, func(i, j int) bool { return data.Imports[i].Path < data.Imports[j].Path })

	var buf bytes.Buffer
	if err := fileTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("executing template: %w", err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("formatting generated source: %w", err)
	}
	return src, nil
}

// specLiteral renders the tables.Spec composite literal for t.
func specLiteral(t *tables.Table) string {
	var sb strings.Builder
	sb.WriteString("tables.Spec{\n")
	fmt.Fprintf(&sb, "Name: %s,\n", strconv.Quote(t.Name()))
	if t.Description() != "" {
		fmt.Fprintf(&sb, "Description: %s,\n", strconv.Quote(t.Description()))
	}
	sb.WriteString("Columns: []tables.Column{\n")
	for _, c := range t.Columns() {
		fmt.Fprintf(&sb, "{Name: %s, Type: %s", strconv.Quote(c.Name), goType(c.Type))
		if c.Description != "" {
			fmt.Fprintf(&sb, ", Description: %s", strconv.Quote(c.Description))
		}
		sb.WriteString("},\n")
	}
	sb.WriteString("},\n")
	attrs := t.Attributes()
	if len(attrs) > 0 {
		sb.WriteString("Attributes: tables.Attributes{\n")
		for _, k := range attrs.Keys() {
			fmt.Fprintf(&sb, "%s: %s,\n", strconv.Quote(k), goValue(attrs[k]))
		}
		sb.WriteString("},\n")
	}
	fmt.Fprintf(&sb, "Implementation: %s,\n", strconv.Quote(t.Implementation().String()))
	sb.WriteString("}")
	return sb.String()
}

func goType(t tables.ColumnType) string {
	switch t {
	case tables.Integer:
		return "tables.Integer"
	case tables.BigInt:
		return "tables.BigInt"
	case tables.Double:
		return "tables.Double"
	default:
		return "tables.Text"
	}
}

func goValue(v any) string {
	switch x := v.(type) {
	case string:
		return strconv.Quote(x)
	case int64:
		return fmt.Sprintf("int64(%d)", x)
	default:
		return fmt.Sprint(x)
	}
}

var fileTmpl = template.Must(template.New("file").Parse(`// Code generated by vtab gen{{if .Source}} from {{.Source}}{{end}}. DO NOT EDIT.

package {{.Package}}

import (
	"github.com/rubiojr/vtab/tables"
{{range .Imports}}
	{{.Alias}} "{{.Path}}"
{{- end}}
)

// Tables returns the generated table descriptors in declaration order.
func Tables() []*tables.Table {
	return []*tables.Table{
{{- range .Tables}}
		tables.MustDefine({{.}}),
{{- end}}
	}
}

// Register adds the generated tables to reg and binds their generators in impls.
func Register(reg *tables.Registry, impls *tables.Implementations) error {
	if err := reg.Load(Tables()...); err != nil {
		return err
	}
	bindings := []struct {
		ref string
		gen tables.GenerateFunc
	}{
{{- range .Bindings}}
		{ {{printf "%q" .Ref}}, {{.Func}} },
{{- end}}
	}
	for _, b := range bindings {
		if err := impls.RegisterImpl(b.ref, b.gen); err != nil {
			return err
		}
	}
	return nil
}
`))
