package tables

import (
	"fmt"
	"strings"
)

// ColumnType is the primitive type of a table column.
type ColumnType int

const (
	Text ColumnType = iota + 1
	Integer
	BigInt
	Double
)

var typeNames = map[ColumnType]string{
	Text:    "TEXT",
	Integer: "INTEGER",
	BigInt:  "BIGINT",
	Double:  "DOUBLE",
}

// ColumnTypes lists every supported type in declaration order.
var ColumnTypes = []ColumnType{Text, Integer, BigInt, Double}

func (t ColumnType) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("ColumnType(%d)", int(t))
}

// Valid reports whether t is one of the declared column types.
func (t ColumnType) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

// ParseColumnType maps a type keyword ("TEXT", "integer", ...) to its ColumnType.
func ParseColumnType(s string) (ColumnType, error) {
	want := strings.ToUpper(strings.TrimSpace(s))
	for _, t := range ColumnTypes {
		if typeNames[t] == want {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// Column is a named, typed field of a table row.
type Column struct {
	// Name is unique within its table (e.g. "unix_time").
	Name string
	// Type is the column's primitive type.
	Type ColumnType
	// Description is optional free text shown by documentation tools.
	Description string
}

func (c Column) String() string {
	return c.Name + " " + c.Type.String()
}
