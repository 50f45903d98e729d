// Package uptimetable provides the "uptime" table: time since the last boot.
package uptimetable

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"

	"github.com/shirou/gopsutil/v4/host"

	"github.com/rubiojr/vtab/specfile"
	"github.com/rubiojr/vtab/tables"
)

//go:embed uptime.table
var declaration []byte

const Ref = "uptime@genUptime"

// Uptime reports seconds since boot. Replaced in tests.
var Uptime = host.UptimeWithContext

func Table() (*tables.Table, error) {
	return specfile.Parse("uptime.table", declaration)
}

func init() {
	t, err := Table()
	if err != nil {
		panic(err)
	}
	tables.MustRegister(t)
	tables.MustRegisterImpl(Ref, GenUptime)
}

// GenUptime emits one row splitting the host uptime into days, hours,
// minutes and seconds.
func GenUptime(ctx context.Context) ([]tables.Row, error) {
	total, err := Uptime(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading uptime: %w", err)
	}
	return []tables.Row{Row(total)}, nil
}

func Row(total uint64) tables.Row {
	return tables.Row{
		"days":          strconv.FormatUint(total/86400, 10),
		"hours":         strconv.FormatUint(total%86400/3600, 10),
		"minutes":       strconv.FormatUint(total%3600/60, 10),
		"seconds":       strconv.FormatUint(total%60, 10),
		"total_seconds": strconv.FormatUint(total, 10),
	}
}
