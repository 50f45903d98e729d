// Package timetable provides the "time" table: the current date and time of
// the system, one row per query.
package timetable

import (
	"context"
	_ "embed"
	"strconv"
	"time"

	"github.com/rubiojr/vtab/specfile"
	"github.com/rubiojr/vtab/tables"
)

//go:embed time.table
var declaration []byte

// Ref is the implementation reference declared by time.table.
const Ref = "time@genTime"

const (
	// TimestampLayout is the asctime form, e.g. "Wed Sep 21 10:27:52 2011".
	TimestampLayout = time.ANSIC
	ISO8601Layout   = "2006-01-02T15:04:05Z"
)

// Now is the clock read by GenTime.
var Now = time.Now

// Declaration returns the embedded declaration source.
func Declaration() []byte { return declaration }

// Table parses the embedded declaration.
func Table() (*tables.Table, error) {
	return specfile.Parse("time.table", declaration)
}

func init() {
	t, err := Table()
	if err != nil {
		panic(err)
	}
	tables.MustRegister(t)
	tables.MustRegisterImpl(Ref, GenTime)
}

// GenTime emits a single row describing the current instant in UTC.
func GenTime(ctx context.Context) ([]tables.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []tables.Row{Row(Now())}, nil
}

// Row renders t as a time table row.
func Row(t time.Time) tables.Row {
	t = t.UTC()
	return tables.Row{
		"weekday":   t.Weekday().String(),
		"year":      strconv.Itoa(t.Year()),
		"month":     strconv.Itoa(int(t.Month())),
		"day":       strconv.Itoa(t.Day()),
		"hour":      strconv.Itoa(t.Hour()),
		"minutes":   strconv.Itoa(t.Minute()),
		"seconds":   strconv.Itoa(t.Second()),
		"unix_time": strconv.FormatInt(t.Unix(), 10),
		"timestamp": t.Format(TimestampLayout),
		"iso_8601":  t.Format(ISO8601Layout),
	}
}
