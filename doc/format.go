// Package doc renders table descriptors and rows for terminal display.
package doc

import (
	"fmt"
	"strings"

	"github.com/rubiojr/vtab/tables"
)

const (
	bold  = "\033[1m"
	dim   = "\033[2m"
	reset = "\033[0m"
)

// Style toggles ANSI decoration.
type Style struct {
	Color bool
}

func (s Style) wrap(code, text string) string {
	if !s.Color || code == "" {
		return text
	}
	return code + text + reset
}

// FormatTable formats a table descriptor for terminal display.
func (s Style) FormatTable(t *tables.Table) string {
	var sb strings.Builder

	sb.WriteString(s.wrap(bold, "table "+t.Name()))
	sb.WriteString("\n")
	if t.Description() != "" {
		sb.WriteString("    ")
		sb.WriteString(t.Description())
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	width := 0
	for _, c := range t.Columns() {
		width = max(width, len(c.Name))
	}
	for _, c := range t.Columns() {
		line := fmt.Sprintf("  %-*s %-8s", width, c.Name, c.Type)
		if c.Description != "" {
			line += " " + s.wrap(dim, c.Description)
		}
		sb.WriteString(strings.TrimRight(line, " "))
		sb.WriteString("\n")
	}

	attrs := t.Attributes()
	if len(attrs) > 0 {
		sb.WriteString("\nattributes:")
		for _, k := range attrs.Keys() {
			sb.WriteString(fmt.Sprintf(" %s=%v", k, attrs[k]))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("implementation: %s\n", t.Implementation()))

	return sb.String()
}

// FormatAll lists tables one per line with their descriptions.
func (s Style) FormatAll(ts []*tables.Table) string {
	var sb strings.Builder
	for _, t := range ts {
		line := fmt.Sprintf("  %-16s", t.Name())
		if t.Utility() {
			line += " " + s.wrap(dim, "[utility]")
		}
		if t.Description() != "" {
			line += " " + t.Description()
		}
		sb.WriteString(strings.TrimRight(line, " "))
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatRows renders rows as an aligned grid in declared column order.
func (s Style) FormatRows(t *tables.Table, rows []tables.Row) string {
	names := t.ColumnNames()
	widths := make([]int, len(names))
	for i, n := range names {
		widths[i] = len(n)
	}
	values := make([][]string, len(rows))
	for r, row := range rows {
		values[r] = t.Values(row)
		for i, v := range values[r] {
			widths[i] = max(widths[i], len(v))
		}
	}

	var sb strings.Builder
	writeLine := func(cells []string, code string) {
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = fmt.Sprintf("%-*s", widths[i], c)
		}
		line := strings.TrimRight(strings.Join(parts, " | "), " ")
		sb.WriteString(s.wrap(code, line))
		sb.WriteString("\n")
	}

	writeLine(names, bold)
	seps := make([]string, len(names))
	for i, w := range widths {
		seps[i] = strings.Repeat("-", w)
	}
	sb.WriteString(strings.Join(seps, "-+-"))
	sb.WriteString("\n")
	for _, v := range values {
		writeLine(v, "")
	}
	return sb.String()
}
