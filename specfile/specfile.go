// Package specfile reads and writes osquery-style ".table" declarations.
//
// A declaration is a Starlark program made of directive calls:
//
//	table_name("time")
//	description("Track current date and time in the system.")
//	schema([
//	    Column("weekday", TEXT, "Current weekday in the system"),
//	    Column("year", INTEGER),
//	])
//	attributes(utility=True)
//	implementation("time@genTime")
package specfile

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rubiojr/vtab/tables"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

const (
	defaultMaxSteps = uint64(100_000)
	defaultTimeout  = 2 * time.Second
	maxSpecBytes    = 256 * 1024
)

// Ext is the file extension of table declarations.
const Ext = ".table"

// Loader evaluates declarations with bounded execution.
type Loader struct {
	// MaxSteps caps Starlark execution steps per file (default 100000).
	MaxSteps uint64
	// Timeout caps wall time per file (default 2s, negative disables).
	Timeout time.Duration
}

// Parse evaluates src with the default Loader. filename is used in errors.
func Parse(filename string, src []byte) (*tables.Table, error) {
	return (&Loader{}).Parse(filename, src)
}

// ParseFile reads and evaluates a declaration file.
func ParseFile(path string) (*tables.Table, error) {
	return (&Loader{}).ParseFile(path)
}

// ParseFile reads and evaluates a declaration file.
func (l *Loader) ParseFile(path string) (*tables.Table, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return l.Parse(path, src)
}

// Parse evaluates src and returns the declared table.
func (l *Loader) Parse(filename string, src []byte) (*tables.Table, error) {
	if len(src) > maxSpecBytes {
		return nil, fmt.Errorf("%s: declaration exceeds %d bytes", filename, maxSpecBytes)
	}

	d := newDecl()
	thread := &starlark.Thread{Name: "specfile"}
	thread.SetMaxExecutionSteps(l.maxSteps())

	err := runWithTimeout(thread, l.timeout(), func() error {
		_, err := starlark.ExecFileOptions(&syntax.FileOptions{}, thread, filename, src, d.predeclared())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	for _, required := range []string{"table_name", "schema", "implementation"} {
		if !d.seen[required] {
			return nil, fmt.Errorf("%s: missing %s(...)", filename, required)
		}
	}

	t, err := tables.Define(d.spec)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return t, nil
}

func (l *Loader) maxSteps() uint64 {
	if l.MaxSteps == 0 {
		return defaultMaxSteps
	}
	return l.MaxSteps
}

func (l *Loader) timeout() time.Duration {
	if l.Timeout == 0 {
		return defaultTimeout
	}
	return l.Timeout
}

func runWithTimeout(thread *starlark.Thread, timeout time.Duration, fn func() error) error {
	if timeout <= 0 {
		return fn()
	}

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		thread.Cancel("evaluation timed out")
		err := <-done
		return errors.Join(fmt.Errorf("evaluation timed out after %s", timeout), err)
	}
}

// decl accumulates directive calls for a single file.
type decl struct {
	spec tables.Spec
	seen map[string]bool
}

func newDecl() *decl {
	return &decl{
		spec: tables.Spec{Attributes: tables.Attributes{}},
		seen: make(map[string]bool),
	}
}

func (d *decl) predeclared() starlark.StringDict {
	env := starlark.StringDict{
		"table_name":     starlark.NewBuiltin("table_name", d.tableName),
		"description":    starlark.NewBuiltin("description", d.description),
		"schema":         starlark.NewBuiltin("schema", d.schema),
		"attributes":     starlark.NewBuiltin("attributes", d.attributes),
		"implementation": starlark.NewBuiltin("implementation", d.implementation),
		"Column":         starlark.NewBuiltin("Column", newColumn),
	}
	for _, t := range tables.ColumnTypes {
		env[t.String()] = starlark.String(t.String())
	}
	return env
}

func (d *decl) once(b *starlark.Builtin) error {
	if d.seen[b.Name()] {
		return fmt.Errorf("%s: called more than once", b.Name())
	}
	d.seen[b.Name()] = true
	return nil
}

func (d *decl) tableName(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := d.once(b); err != nil {
		return nil, err
	}
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &d.spec.Name); err != nil {
		return nil, err
	}
	return starlark.None, nil
}

func (d *decl) description(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := d.once(b); err != nil {
		return nil, err
	}
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &d.spec.Description); err != nil {
		return nil, err
	}
	return starlark.None, nil
}

func (d *decl) implementation(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := d.once(b); err != nil {
		return nil, err
	}
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &d.spec.Implementation); err != nil {
		return nil, err
	}
	return starlark.None, nil
}

func (d *decl) schema(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := d.once(b); err != nil {
		return nil, err
	}
	var cols starlark.Iterable
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &cols); err != nil {
		return nil, err
	}

	iter := cols.Iterate()
	defer iter.Done()
	var x starlark.Value
	for i := 0; iter.Next(&x); i++ {
		c, ok := x.(*columnValue)
		if !ok {
			return nil, fmt.Errorf("%s: element %d: got %s, want Column", b.Name(), i, x.Type())
		}
		d.spec.Columns = append(d.spec.Columns, c.col)
	}
	return starlark.None, nil
}

func (d *decl) attributes(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := d.once(b); err != nil {
		return nil, err
	}
	if len(args) > 0 {
		return nil, fmt.Errorf("%s: only keyword arguments are accepted", b.Name())
	}
	for _, kw := range kwargs {
		key := string(kw[0].(starlark.String))
		switch v := kw[1].(type) {
		case starlark.Bool:
			d.spec.Attributes[key] = bool(v)
		case starlark.String:
			d.spec.Attributes[key] = string(v)
		case starlark.Int:
			n, ok := v.Int64()
			if !ok {
				return nil, fmt.Errorf("%s: %s: integer out of range", b.Name(), key)
			}
			d.spec.Attributes[key] = n
		default:
			return nil, fmt.Errorf("%s: %s: unsupported value of type %s", b.Name(), key, v.Type())
		}
	}
	return starlark.None, nil
}

// columnValue is the Starlark value returned by Column(...).
type columnValue struct {
	col tables.Column
}

var _ starlark.Value = (*columnValue)(nil)

func (c *columnValue) String() string        { return fmt.Sprintf("Column(%q, %s)", c.col.Name, c.col.Type) }
func (c *columnValue) Type() string          { return "Column" }
func (c *columnValue) Freeze()               {}
func (c *columnValue) Truth() starlark.Bool  { return starlark.True }
func (c *columnValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: Column") }

func newColumn(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name, typ, desc string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name, "type", &typ, "description?", &desc); err != nil {
		return nil, err
	}
	ct, err := tables.ParseColumnType(typ)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", b.Name(), name, err)
	}
	return &columnValue{col: tables.Column{Name: name, Type: ct, Description: desc}}, nil
}
