package specfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubiojr/vtab/tables"
)

const timeDecl = `table_name("time")
description("Track current date and time in the system.")
schema([
    Column("weekday", TEXT, "Current weekday in the system"),
    Column("year", INTEGER, "Current year in the system"),
    Column("month", INTEGER, "Current month in the system"),
    Column("day", INTEGER, "Current day in the system"),
    Column("hour", INTEGER, "Current hour in the system"),
    Column("minutes", INTEGER, "Current minutes in the system"),
    Column("seconds", INTEGER, "Current seconds in the system"),
    Column("unix_time", INTEGER, "Current unix time in the system"),
    Column("timestamp", TEXT, "Current timestamp in the system"),
    Column("iso_8601", TEXT, "Current time (ISO format) in the system"),
])
attributes(utility=True)
implementation("time@genTime")
`

func TestParse(t *testing.T) {
	tbl, err := Parse("time.table", []byte(timeDecl))
	require.NoError(t, err)

	assert.Equal(t, "time", tbl.Name())
	assert.Equal(t, []string{
		"weekday", "year", "month", "day", "hour",
		"minutes", "seconds", "unix_time", "timestamp", "iso_8601",
	}, tbl.ColumnNames())
	assert.True(t, tbl.Utility())
	assert.Equal(t, "time@genTime", tbl.Implementation().String())

	c, ok := tbl.Column("timestamp")
	require.True(t, ok)
	assert.Equal(t, tables.Text, c.Type)
	assert.Equal(t, "Current timestamp in the system", c.Description)
}

func TestFormatRoundTrip(t *testing.T) {
	tbl, err := Parse("time.table", []byte(timeDecl))
	require.NoError(t, err)

	out := Format(tbl)
	assert.Equal(t, timeDecl, string(out))

	again, err := Parse("again.table", out)
	require.NoError(t, err)
	assert.Equal(t, tbl.Columns(), again.Columns())
	assert.Equal(t, tbl.Attributes(), again.Attributes())
	assert.Equal(t, out, Format(again))

	built := []tables.Spec{
		{
			Name:           "escapes",
			Description:    "tab\there\nnewline \x01 \"quoted\" back\\slash",
			Columns:        []tables.Column{{Name: "a\"b", Type: tables.Text, Description: "héllo wörld ☃"}},
			Attributes:     tables.Attributes{"delta": -42, "label": "\x7f", "utility": false},
			Implementation: "esc@gen",
		},
		{
			Name:           "unicode",
			Description:    "Zeit und Datum \u2028 \U0001F600",
			Columns:        []tables.Column{{Name: "v", Type: tables.BigInt}},
			Implementation: "uni@gen",
		},
	}
	for _, s := range built {
		t.Run(s.Name, func(t *testing.T) {
			tbl, err := tables.Define(s)
			require.NoError(t, err)
			out := Format(tbl)
			again, err := Parse(s.Name+".table", out)
			require.NoError(t, err, string(out))
			assert.Equal(t, tbl.Spec(), again.Spec())
			assert.Equal(t, out, Format(again))
		})
	}

	// Descriptors that cannot be written back never get built.
	unwritable := []tables.Spec{
		{Name: "kw", Columns: []tables.Column{{Name: "v", Type: tables.Text}}, Attributes: tables.Attributes{"for": true}, Implementation: "kw@gen"},
		{Name: "utf8", Description: "bad\xffutf8", Columns: []tables.Column{{Name: "v", Type: tables.Text}}, Implementation: "utf8@gen"},
	}
	for _, s := range unwritable {
		_, err := tables.Define(s)
		assert.Error(t, err, s.Name)
	}
}

func TestFormatNormalizes(t *testing.T) {
	src := `
# a comment
implementation("m@gen")
attributes(utility=False, owner="it's \"ops\"", revision=3, cacheable=True)
schema([Column("a", INTEGER), Column(name="b", type=DOUBLE, description="")])
table_name("t")
`
	tbl, err := Parse("t.table", []byte(src))
	require.NoError(t, err)

	want := `table_name("t")
schema([
    Column("a", INTEGER),
    Column("b", DOUBLE),
])
attributes(cacheable=True, owner="it's \"ops\"", revision=3, utility=False)
implementation("m@gen")
`
	assert.Equal(t, want, string(Format(tbl)))

	again, err := Parse("t.table", Format(tbl))
	require.NoError(t, err)
	assert.Equal(t, tbl.Attributes(), again.Attributes())
}

func TestParseStarlarkExpressions(t *testing.T) {
	src := `
names = ["a", "b", "c"]
table_name("gen" + "erated")
schema([Column(n, TEXT) for n in names])
implementation("gen@rows")
`
	tbl, err := Parse("gen.table", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, "generated", tbl.Name())
	assert.Equal(t, []string{"a", "b", "c"}, tbl.ColumnNames())
	assert.Empty(t, tbl.Attributes())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"missing name", `schema([Column("a", TEXT)])
implementation("m@g")`, "missing table_name(...)"},
		{"missing schema", `table_name("t")
implementation("m@g")`, "missing schema(...)"},
		{"missing implementation", `table_name("t")
schema([Column("a", TEXT)])`, "missing implementation(...)"},
		{"twice", `table_name("t")
table_name("u")`, "table_name: called more than once"},
		{"unknown type", `Column("a", "BLOB")`, "unknown column type"},
		{"not a column", `schema(["a"])`, "element 0: got string, want Column"},
		{"positional attributes", `attributes(True)`, "only keyword arguments"},
		{"float attribute", `attributes(x=1.5)`, "unsupported value of type float"},
		{"syntax error", `table_name("t"`, "time.table"},
		{"undefined name", `schema([Column("a", BLOB)])`, "undefined: BLOB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("time.table", []byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseValidation(t *testing.T) {
	src := `table_name("t")
schema([Column("a", TEXT), Column("a", INTEGER)])
implementation("m@g")
`
	_, err := Parse("t.table", []byte(src))
	assert.ErrorIs(t, err, tables.ErrDuplicateColumn)

	src = `table_name("t")
schema([Column("a", TEXT)])
implementation("not-a-ref")
`
	_, err = Parse("t.table", []byte(src))
	assert.ErrorIs(t, err, tables.ErrInvalidImpl)

	src = `table_name("t")
schema([])
implementation("m@g")
`
	_, err = Parse("t.table", []byte(src))
	assert.ErrorIs(t, err, tables.ErrNoColumns)
}

func TestParseStepLimit(t *testing.T) {
	src := `
def spin():
    n = 0
    for i in range(1000000):
        n += i
    return n
spin()
`
	l := &Loader{MaxSteps: 1000}
	_, err := l.Parse("spin.table", []byte(src))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many steps")
}

func TestParseTimeout(t *testing.T) {
	src := `
def spin():
    for i in range(100000000):
        pass
spin()
`
	l := &Loader{MaxSteps: 1 << 40, Timeout: 20 * time.Millisecond}
	_, err := l.Parse("spin.table", []byte(src))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestParseTooLarge(t *testing.T) {
	_, err := Parse("big.table", make([]byte, maxSpecBytes+1))
	assert.ErrorContains(t, err, "exceeds")
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "time.table")
	require.NoError(t, os.WriteFile(path, []byte(timeDecl), 0o644))

	tbl, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "time", tbl.Name())

	_, err = ParseFile(filepath.Join(dir, "missing.table"))
	assert.ErrorContains(t, err, "reading")
}
