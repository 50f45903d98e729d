// Package tables defines virtual table descriptors and the registries that
// hold them and the functions that generate their rows.
package tables

import (
	"fmt"
	"maps"
	"slices"
	"sort"
	"unicode/utf8"

	"go.starlark.net/syntax"
)

// AttrUtility marks a table as lightweight and safe for default query sets.
const AttrUtility = "utility"

// Attributes maps declaration flags to bool, string or int64 values.
type Attributes map[string]any

// Keys returns the attribute names sorted.
func (a Attributes) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Spec is the input form of a table declaration. It is validated and
// frozen by Define.
type Spec struct {
	// Name is the queryable table identifier (e.g. "time").
	Name string
	// Description has no effect on behavior.
	Description string
	// Columns in row-output order.
	Columns []Column
	// Attributes holds declaration flags such as "utility".
	Attributes Attributes
	// Implementation is the "<module>@<symbol>" reference to the row generator.
	Implementation string
}

// Table is an immutable table descriptor. Build one with Define.
type Table struct {
	name        string
	description string
	columns     []Column
	index       map[string]int
	attrs       Attributes
	impl        ImplRef
}

// Define validates s and returns the frozen descriptor. s is copied,
// so later changes to s do not affect the table.
func Define(s Spec) (*Table, error) {
	if s.Name == "" {
		return nil, ErrEmptyName
	}
	if len(s.Columns) == 0 {
		return nil, fmt.Errorf("table %s: %w", s.Name, ErrNoColumns)
	}
	if !utf8.ValidString(s.Name) || !utf8.ValidString(s.Description) {
		return nil, fmt.Errorf("table %q: %w", s.Name, ErrInvalidText)
	}

	t := &Table{
		name:        s.Name,
		description: s.Description,
		columns:     slices.Clone(s.Columns),
		index:       make(map[string]int, len(s.Columns)),
		attrs:       make(Attributes, len(s.Attributes)),
	}

	for i, c := range t.columns {
		if c.Name == "" {
			return nil, fmt.Errorf("table %s: column %d: name is empty", s.Name, i)
		}
		if !utf8.ValidString(c.Name) || !utf8.ValidString(c.Description) {
			return nil, fmt.Errorf("table %s: column %d: %w", s.Name, i, ErrInvalidText)
		}
		if !c.Type.Valid() {
			return nil, fmt.Errorf("table %s: column %s: %w", s.Name, c.Name, ErrUnknownType)
		}
		if _, dup := t.index[c.Name]; dup {
			return nil, fmt.Errorf("table %s: %w %q", s.Name, ErrDuplicateColumn, c.Name)
		}
		t.index[c.Name] = i
	}

	for k, v := range s.Attributes {
		if !kwargName(k) {
			return nil, fmt.Errorf("table %s: %w name %q", s.Name, ErrInvalidAttr, k)
		}
		nv, err := normalizeAttr(v)
		if err != nil {
			return nil, fmt.Errorf("table %s: attribute %s: %w", s.Name, k, err)
		}
		if _, ok := nv.(bool); k == AttrUtility && !ok {
			return nil, fmt.Errorf("table %s: %w: %s must be a bool", s.Name, ErrInvalidAttr, k)
		}
		t.attrs[k] = nv
	}

	impl, err := ParseImplRef(s.Implementation)
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", s.Name, err)
	}
	t.impl = impl

	return t, nil
}

// MustDefine is like Define but panics on an invalid spec. Intended for
// package-level declarations registered from init().
func MustDefine(s Spec) *Table {
	t, err := Define(s)
	if err != nil {
		panic(err)
	}
	return t
}

// kwargName reports whether k can be written as a keyword argument in a
// declaration file. Starlark keywords and reserved words are refused.
func kwargName(k string) bool {
	if !identRe.MatchString(k) {
		return false
	}
	e, err := (&syntax.FileOptions{}).ParseExpr("attr", k, 0)
	if err != nil {
		return false
	}
	_, ok := e.(*syntax.Ident)
	return ok
}

func normalizeAttr(v any) (any, error) {
	switch x := v.(type) {
	case string:
		if !utf8.ValidString(x) {
			return nil, ErrInvalidText
		}
		return x, nil
	case bool, int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	default:
		return nil, fmt.Errorf("%w: unsupported value type %T", ErrInvalidAttr, v)
	}
}

func (t *Table) Name() string        { return t.name }
func (t *Table) Description() string { return t.description }

// Implementation returns the reference to the row generator.
func (t *Table) Implementation() ImplRef { return t.impl }

// Columns returns a copy of the columns in declared order.
func (t *Table) Columns() []Column { return slices.Clone(t.columns) }

// ColumnNames returns the column names in declared order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by name.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return t.columns[i], true
}

// Attributes returns a copy of the attribute set.
func (t *Table) Attributes() Attributes { return maps.Clone(t.attrs) }

// Attribute returns a single attribute value.
func (t *Table) Attribute(key string) (any, bool) {
	v, ok := t.attrs[key]
	return v, ok
}

// Utility reports whether the table carries utility=true.
func (t *Table) Utility() bool {
	v, _ := t.attrs[AttrUtility].(bool)
	return v
}

// Spec returns a copy of the declaration the table was built from.
func (t *Table) Spec() Spec {
	return Spec{
		Name:           t.name,
		Description:    t.description,
		Columns:        t.Columns(),
		Attributes:     t.Attributes(),
		Implementation: t.impl.String(),
	}
}

func (t *Table) String() string {
	return fmt.Sprintf("%s(%d columns) -> %s", t.name, len(t.columns), t.impl)
}
