package main

import (
	"github.com/rubiojr/vtab/cmd"
	_ "github.com/rubiojr/vtab/tables/time"
	_ "github.com/rubiojr/vtab/tables/uptime"
)

var version = "v0.1.0"

func main() {
	cmd.Execute(version)
}
