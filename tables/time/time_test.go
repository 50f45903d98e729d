package timetable

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubiojr/vtab/specfile"
	"github.com/rubiojr/vtab/tables"
)

func TestTableRegistration(t *testing.T) {
	tbl, ok := tables.Get("time")
	require.True(t, ok)
	assert.Equal(t, "time", tbl.Name())
	assert.True(t, tables.DefaultImpls().Has(tbl.Implementation()))
}

func TestTableSchema(t *testing.T) {
	tbl, err := Table()
	require.NoError(t, err)

	want := []tables.Column{
		{Name: "weekday", Type: tables.Text},
		{Name: "year", Type: tables.Integer},
		{Name: "month", Type: tables.Integer},
		{Name: "day", Type: tables.Integer},
		{Name: "hour", Type: tables.Integer},
		{Name: "minutes", Type: tables.Integer},
		{Name: "seconds", Type: tables.Integer},
		{Name: "unix_time", Type: tables.Integer},
		{Name: "timestamp", Type: tables.Text},
		{Name: "iso_8601", Type: tables.Text},
	}
	cols := tbl.Columns()
	require.Len(t, cols, 10)
	for i, c := range cols {
		assert.Equal(t, want[i].Name, c.Name, "column %d", i)
		assert.Equal(t, want[i].Type, c.Type, "column %s", c.Name)
	}
}

func TestTableAttributes(t *testing.T) {
	tbl, err := Table()
	require.NoError(t, err)

	v, ok := tbl.Attribute("utility")
	require.True(t, ok)
	assert.Equal(t, true, v)
	assert.True(t, tbl.Utility())
	assert.Equal(t, "time@genTime", tbl.Implementation().String())
}

func TestDeclarationRoundTrip(t *testing.T) {
	tbl, err := Table()
	require.NoError(t, err)
	assert.Equal(t, string(Declaration()), string(specfile.Format(tbl)))
}

func TestLoadTwiceIntoEmptyRegistry(t *testing.T) {
	reg := tables.NewRegistry()

	first, err := Table()
	require.NoError(t, err)
	require.NoError(t, reg.Load(first))

	second, err := Table()
	require.NoError(t, err)
	assert.ErrorIs(t, reg.Load(second), tables.ErrDuplicateTable)
}

func TestRow(t *testing.T) {
	at := time.Date(2011, time.September, 21, 10, 27, 52, 0, time.UTC)
	row := Row(at)

	assert.Equal(t, tables.Row{
		"weekday":   "Wednesday",
		"year":      "2011",
		"month":     "9",
		"day":       "21",
		"hour":      "10",
		"minutes":   "27",
		"seconds":   "52",
		"unix_time": "1316600872",
		"timestamp": "Wed Sep 21 10:27:52 2011",
		"iso_8601":  "2011-09-21T10:27:52Z",
	}, row)
}

func TestRowConvertsToUTC(t *testing.T) {
	zone := time.FixedZone("UTC+2", 2*60*60)
	row := Row(time.Date(2024, time.January, 1, 1, 5, 9, 0, zone))

	assert.Equal(t, "Sunday", row["weekday"])
	assert.Equal(t, "2023", row["year"])
	assert.Equal(t, "23", row["hour"])
	assert.Equal(t, "Sun Dec 31 23:05:09 2023", row["timestamp"])
	assert.Equal(t, "2023-12-31T23:05:09Z", row["iso_8601"])
}

func TestRowPadsSingleDigitDay(t *testing.T) {
	row := Row(time.Date(2015, time.March, 2, 8, 0, 0, 0, time.UTC))
	assert.Equal(t, "Mon Mar  2 08:00:00 2015", row["timestamp"])
}

func TestGenTime(t *testing.T) {
	old := Now
	Now = func() time.Time { return time.Unix(0, 0) }
	t.Cleanup(func() { Now = old })

	tbl, err := Table()
	require.NoError(t, err)

	rows, err := tables.Generate(context.Background(), tables.DefaultImpls(), tbl)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "0", rows[0]["unix_time"])
	assert.Equal(t, "Thursday", rows[0]["weekday"])
	assert.Equal(t, []string{"Thursday", "1970", "1", "1", "0", "0", "0", "0",
		"Thu Jan  1 00:00:00 1970", "1970-01-01T00:00:00Z"}, tbl.Values(rows[0]))
}

func TestGenTimeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := GenTime(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
