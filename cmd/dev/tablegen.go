// Package dev implements developer tooling subcommands for vtab.
package dev

import (
	"bytes"
	"context"
	"fmt"
	"go/format"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/urfave/cli/v3"
	"golang.org/x/tools/go/ast/astutil"

	"github.com/rubiojr/vtab/specfile"
	"github.com/rubiojr/vtab/tables"
)

// tablesImportPath prefixes the import path of every built-in table package.
const tablesImportPath = "github.com/rubiojr/vtab/tables/"

// Command returns the "dev" CLI command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:  "dev",
		Usage: "Developer tools for vtab",
		Commands: []*cli.Command{
			tablegenCommand(),
		},
	}
}

func tablegenCommand() *cli.Command {
	return &cli.Command{
		Name:      "tablegen",
		Usage:     "Scaffold a new built-in table",
		ArgsUsage: "<name>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "columns",
				Usage: "Comma-separated name:TYPE pairs (e.g. path:TEXT,size:BIGINT)",
			},
			&cli.StringFlag{
				Name:  "description",
				Usage: "Table description",
			},
			&cli.BoolFlag{
				Name:  "utility",
				Usage: "Mark the table utility=True",
			},
		},
		Action: tablegenAction,
	}
}

var validTableName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

func tablegenAction(_ context.Context, cmd *cli.Command) error {
	if cmd.NArg() < 1 {
		return fmt.Errorf("usage: vtab dev tablegen <name> [--columns c1:TEXT,c2:INTEGER]")
	}

	name := cmd.Args().First()
	if !validTableName.MatchString(name) {
		return fmt.Errorf("invalid table name %q: must be lowercase alphanumeric with underscores", name)
	}

	columns, err := parseColumns(cmd.String("columns"))
	if err != nil {
		return err
	}
	if len(columns) == 0 {
		columns = []tables.Column{{Name: "value", Type: tables.Text}}
	}

	data := tablegenData{
		Name:        name,
		Pkg:         strings.ReplaceAll(name, "_", "") + "table",
		Func:        "Gen" + toPascalCase(name),
		Description: cmd.String("description"),
		Utility:     cmd.Bool("utility"),
		Columns:     columns,
	}

	// Validate the declaration before touching the filesystem.
	tbl, err := tables.Define(data.spec())
	if err != nil {
		return err
	}

	dir := filepath.Join("tables", name)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("directory %s already exists", dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	declPath := filepath.Join(dir, name+specfile.Ext)
	if err := os.WriteFile(declPath, specfile.Format(tbl), 0o644); err != nil {
		return fmt.Errorf("creating %s: %w", declPath, err)
	}
	fmt.Printf("Created %s\n", declPath)

	goPath := filepath.Join(dir, name+".go")
	if err := writeTemplate(goPath, registrationTmpl, data); err != nil {
		return err
	}
	fmt.Printf("Created %s\n", goPath)

	if err := addBlankImport("main.go", name); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not update main.go: %v\n", err)
		fmt.Printf("Add manually: _ %q\n", tablesImportPath+name)
	} else {
		fmt.Println("Added import to main.go")
	}

	fmt.Printf("\nFill in %s in %s\n", data.Func, filepath.Join(dir, name+".go"))
	return nil
}

// parseColumns reads "name:TYPE" pairs. A bare name defaults to TEXT.
func parseColumns(s string) ([]tables.Column, error) {
	if s == "" {
		return nil, nil
	}
	var cols []tables.Column
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		name, typ, ok := strings.Cut(p, ":")
		ct := tables.Text
		if ok {
			var err error
			if ct, err = tables.ParseColumnType(typ); err != nil {
				return nil, fmt.Errorf("column %s: %w", name, err)
			}
		}
		cols = append(cols, tables.Column{Name: strings.TrimSpace(name), Type: ct})
	}
	return cols, nil
}

type tablegenData struct {
	Name        string
	Pkg         string
	Func        string
	Description string
	Utility     bool
	Columns     []tables.Column
}

func (d tablegenData) Symbol() string {
	return strings.ToLower(d.Func[:1]) + d.Func[1:]
}

func (d tablegenData) spec() tables.Spec {
	s := tables.Spec{
		Name:           d.Name,
		Description:    d.Description,
		Columns:        d.Columns,
		Implementation: d.Name + "@" + d.Symbol(),
	}
	if d.Utility {
		s.Attributes = tables.Attributes{tables.AttrUtility: true}
	}
	return s
}

func toPascalCase(s string) string {
	parts := strings.Split(s, "_")
	for i, p := range parts {
		if len(p) > 0 {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, "")
}

func writeTemplate(path, tmplStr string, data tablegenData) error {
	t, err := template.New("").Parse(tmplStr)
	if err != nil {
		return fmt.Errorf("parsing template: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	return t.Execute(f, data)
}

// addBlankImport adds a blank import of the named table package to the Go
// file at path. The file is left untouched when the import already exists.
func addBlankImport(path, name string) error {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
	if err != nil {
		return err
	}

	if !astutil.AddNamedImport(fset, f, "_", tablesImportPath+name) {
		return nil
	}

	var buf bytes.Buffer
	if err := format.Node(&buf, fset, f); err != nil {
		return fmt.Errorf("formatting %s: %w", path, err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

var registrationTmpl = `package {{.Pkg}}

import (
	"context"
	_ "embed"

	"github.com/rubiojr/vtab/specfile"
	"github.com/rubiojr/vtab/tables"
)

//go:embed {{.Name}}.table
var declaration []byte

const Ref = "{{.Name}}@{{.Symbol}}"

func Table() (*tables.Table, error) {
	return specfile.Parse("{{.Name}}.table", declaration)
}

func init() {
	t, err := Table()
	if err != nil {
		panic(err)
	}
	tables.MustRegister(t)
	tables.MustRegisterImpl(Ref, {{.Func}})
}

func {{.Func}}(ctx context.Context) ([]tables.Row, error) {
	// TODO: implement
	return []tables.Row{ {
{{- range .Columns}}
		{{printf "%q" .Name}}: "{{if ne .Type.String "TEXT"}}0{{end}}",
{{- end}}
	} }, nil
}
`
