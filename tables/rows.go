package tables

import (
	"context"
	"fmt"
	"strconv"
)

// CheckRow verifies that row has exactly the declared columns and that
// numeric columns hold parseable values.
func (t *Table) CheckRow(row Row) error {
	for name := range row {
		if _, ok := t.index[name]; !ok {
			return fmt.Errorf("%w: table %s: unexpected column %q", ErrRowShape, t.name, name)
		}
	}
	for _, c := range t.columns {
		v, ok := row[c.Name]
		if !ok {
			return fmt.Errorf("%w: table %s: missing column %q", ErrRowShape, t.name, c.Name)
		}
		if err := checkValue(c.Type, v); err != nil {
			return fmt.Errorf("%w: table %s: column %s: %v", ErrRowShape, t.name, c.Name, err)
		}
	}
	return nil
}

func checkValue(typ ColumnType, v string) error {
	switch typ {
	case Integer, BigInt:
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			return fmt.Errorf("%q is not an integer", v)
		}
	case Double:
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return fmt.Errorf("%q is not a number", v)
		}
	}
	return nil
}

// Values returns the row's values in declared column order.
func (t *Table) Values(row Row) []string {
	out := make([]string, len(t.columns))
	for i, c := range t.columns {
		out[i] = row[c.Name]
	}
	return out
}

// Generate runs the generator bound to t and checks every row it returns.
func Generate(ctx context.Context, impls *Implementations, t *Table) ([]Row, error) {
	fn, ok := impls.Lookup(t.Implementation())
	if !ok {
		return nil, fmt.Errorf("table %s: %w %s", t.Name(), ErrUnresolvedImpl, t.Implementation())
	}
	rows, err := fn(ctx)
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", t.Name(), err)
	}
	for i, row := range rows {
		if err := t.CheckRow(row); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return rows, nil
}

// SelectAll builds one "SELECT * FROM <table>;" statement per table. Fed
// with Registry.UtilityTables it yields the default utility query set.
func SelectAll(ts ...*Table) map[string]string {
	queries := make(map[string]string, len(ts))
	for _, t := range ts {
		queries[t.Name()] = fmt.Sprintf("SELECT * FROM %s;", t.Name())
	}
	return queries
}
