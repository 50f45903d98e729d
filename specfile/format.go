package specfile

import (
	"bytes"
	"fmt"
	"strconv"

	"go.starlark.net/starlark"

	"github.com/rubiojr/vtab/tables"
)

// Format renders t in canonical declaration form. Column order is kept as
// declared and attributes are written sorted by name, so formatting the
// result of Parse(Format(t)) reproduces the same bytes.
func Format(t *tables.Table) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "table_name(%s)\n", quote(t.Name()))
	if t.Description() != "" {
		fmt.Fprintf(&buf, "description(%s)\n", quote(t.Description()))
	}

	buf.WriteString("schema([\n")
	for _, c := range t.Columns() {
		fmt.Fprintf(&buf, "    Column(%s, %s", quote(c.Name), c.Type)
		if c.Description != "" {
			fmt.Fprintf(&buf, ", %s", quote(c.Description))
		}
		buf.WriteString("),\n")
	}
	buf.WriteString("])\n")

	attrs := t.Attributes()
	if len(attrs) > 0 {
		buf.WriteString("attributes(")
		for i, k := range attrs.Keys() {
			if i > 0 {
				buf.WriteString(", ")
			}
			fmt.Fprintf(&buf, "%s=%s", k, formatAttr(attrs[k]))
		}
		buf.WriteString(")\n")
	}

	fmt.Fprintf(&buf, "implementation(%s)\n", quote(t.Implementation().String()))
	return buf.Bytes()
}

// quote renders s as a Starlark string literal.
func quote(s string) string {
	return starlark.String(s).String()
}

func formatAttr(v any) string {
	switch x := v.(type) {
	case bool:
		if x {
			return "True"
		}
		return "False"
	case string:
		return quote(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return quote(fmt.Sprint(x))
	}
}
