package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/rubiojr/vtab/cmd/dev"
	"github.com/rubiojr/vtab/codegen"
	"github.com/rubiojr/vtab/config"
	"github.com/rubiojr/vtab/doc"
	"github.com/rubiojr/vtab/logger"
	"github.com/rubiojr/vtab/specfile"
	"github.com/rubiojr/vtab/tables"
)

type configKey struct{}

// Execute runs the vtab CLI with the given version string.
// Import table packages via blank imports before calling this function
// so they register via init().
func Execute(version string) {
	cmd := &cli.Command{
		Name:                   "vtab",
		Usage:                  "Declare, inspect and generate bindings for virtual tables",
		Version:                version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file (default $VTAB_CONFIG or ./vtab.yaml)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "specs",
				Usage: "Root of the .table spec tree",
			},
			&cli.StringFlag{
				Name:  "platform",
				Usage: "Platform subdirectory of the spec tree",
			},
			&cli.BoolFlag{
				Name:    "no-color",
				Aliases: []string{"C"},
				Usage:   "Disable ANSI color output",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List registered tables",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "utility", Aliases: []string{"u"}, Usage: "Only utility tables"},
				},
				Action: listAction,
			},
			{
				Name:      "show",
				Usage:     "Show the schema of a registered table or a .table file",
				ArgsUsage: "<table | file.table>",
				Action:    showAction,
			},
			{
				Name:      "query",
				Usage:     "Generate the rows of a registered table",
				ArgsUsage: "<table>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Aliases: []string{"j"}, Usage: "Print rows as JSON"},
				},
				Action: queryAction,
			},
			{
				Name:  "queries",
				Usage: "Print SELECT * queries for the utility tables",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "restrict", Aliases: []string{"r"}, Usage: "Comma-separated table names"},
					&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "Include non-utility tables"},
				},
				Action: queriesAction,
			},
			{
				Name:      "fmt",
				Usage:     "Rewrite .table files in canonical form",
				ArgsUsage: "<file.table>...",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "write", Aliases: []string{"w"}, Usage: "Write result to the source file"},
				},
				Action: fmtAction,
			},
			{
				Name:      "check",
				Usage:     "Validate a spec tree and resolve its implementations",
				ArgsUsage: "[dir]",
				Action:    checkAction,
			},
			{
				Name:      "gen",
				Usage:     "Generate Go bindings for a spec tree",
				ArgsUsage: "[dir]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output file (default stdout)"},
					&cli.StringFlag{Name: "package", Aliases: []string{"p"}, Usage: "Go package name"},
					&cli.BoolFlag{Name: "strict", Usage: "Require implementations linked into vtab"},
				},
				Action: genAction,
			},
			dev.Command(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return ctx, err
	}
	if v := cmd.String("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v := cmd.String("specs"); v != "" {
		cfg.SpecsDir = v
	}
	if v := cmd.String("platform"); v != "" {
		cfg.Platform = v
	}
	if cmd.Bool("no-color") || os.Getenv("NO_COLOR") != "" {
		cfg.NoColor = true
	}
	logger.Setup(cfg.LogLevel, cfg.NoColor || !term.IsTerminal(int(os.Stderr.Fd())))
	return context.WithValue(ctx, configKey{}, cfg), nil
}

func configFrom(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return cfg
	}
	return config.Default()
}

func style(cfg *config.Config) doc.Style {
	return doc.Style{Color: !cfg.NoColor && term.IsTerminal(int(os.Stdout.Fd()))}
}

func loader(cfg *config.Config) *specfile.Loader {
	return &specfile.Loader{MaxSteps: cfg.MaxSteps, Timeout: cfg.Timeout}
}

func listAction(ctx context.Context, cmd *cli.Command) error {
	reg := tables.Default()
	ts := reg.Tables()
	if cmd.Bool("utility") {
		ts = reg.UtilityTables()
	}
	fmt.Print(style(configFrom(ctx)).FormatAll(ts))
	return nil
}

func showAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() < 1 {
		return fmt.Errorf("usage: vtab show <table | file.table>")
	}
	cfg := configFrom(ctx)
	arg := cmd.Args().First()

	var t *tables.Table
	if strings.HasSuffix(arg, specfile.Ext) {
		parsed, err := loader(cfg).ParseFile(arg)
		if err != nil {
			return err
		}
		t = parsed
	} else {
		found, ok := tables.Get(arg)
		if !ok {
			return fmt.Errorf("%w: %s", tables.ErrUnknownTable, arg)
		}
		t = found
	}
	fmt.Print(style(cfg).FormatTable(t))
	return nil
}

func queryAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() < 1 {
		return fmt.Errorf("usage: vtab query [--json] <table>")
	}
	name := cmd.Args().First()
	t, ok := tables.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", tables.ErrUnknownTable, name)
	}

	rows, err := tables.Generate(ctx, tables.DefaultImpls(), t)
	if err != nil {
		return err
	}
	log.Debug().Str("table", name).Int("rows", len(rows)).Msg("generated rows")

	if cmd.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	fmt.Print(style(configFrom(ctx)).FormatRows(t, rows))
	return nil
}

func queriesAction(ctx context.Context, cmd *cli.Command) error {
	reg := tables.Default()
	ts := reg.UtilityTables()
	if cmd.Bool("all") {
		ts = reg.Tables()
	}
	if r := cmd.String("restrict"); r != "" {
		keep := map[string]bool{}
		for _, name := range strings.Split(r, ",") {
			keep[strings.TrimSpace(name)] = true
		}
		var filtered []*tables.Table
		for _, t := range ts {
			if keep[t.Name()] {
				filtered = append(filtered, t)
			}
		}
		ts = filtered
	}

	queries := tables.SelectAll(ts...)
	names := make([]string, 0, len(queries))
	for name := range queries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Println(queries[name])
	}
	return nil
}

func fmtAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() < 1 {
		return fmt.Errorf("usage: vtab fmt [-w] <file.table>...")
	}
	l := loader(configFrom(ctx))
	for _, path := range cmd.Args().Slice() {
		changed, err := formatFile(l, path, os.Stdout, cmd.Bool("write"))
		if err != nil {
			return err
		}
		if changed {
			fmt.Fprintln(os.Stderr, path)
		}
	}
	return nil
}

// formatFile writes the canonical form of path to w, or back to path when
// write is set. It reports whether the file was rewritten.
func formatFile(l *specfile.Loader, path string, w io.Writer, write bool) (bool, error) {
	t, err := l.ParseFile(path)
	if err != nil {
		return false, err
	}
	out := specfile.Format(t)
	if !write {
		_, err := w.Write(out)
		return false, err
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	if bytes.Equal(src, out) {
		return false, nil
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	return true, nil
}

// loadTree walks the spec tree and registers it into a fresh registry so
// duplicate names across platforms are reported.
func loadTree(ctx context.Context, cmd *cli.Command) (*config.Config, string, []*tables.Table, error) {
	cfg := configFrom(ctx)
	root := cfg.SpecsDir
	if cmd.NArg() > 0 {
		root = cmd.Args().First()
	}
	files, err := loader(cfg).Walk(root, cfg.Platform, nil)
	if err != nil {
		return nil, "", nil, err
	}
	if err := specfile.Load(tables.NewRegistry(), files); err != nil {
		return nil, "", nil, err
	}
	log.Debug().Str("root", root).Str("platform", cfg.Platform).Int("tables", len(files)).Msg("loaded spec tree")
	return cfg, root, specfile.Tables(files), nil
}

func checkAction(ctx context.Context, cmd *cli.Command) error {
	_, root, ts, err := loadTree(ctx, cmd)
	if err != nil {
		return err
	}
	if err := tables.Resolve(tables.DefaultImpls(), ts...); err != nil {
		return err
	}
	fmt.Printf("%s: %d tables ok\n", root, len(ts))
	return nil
}

func genAction(ctx context.Context, cmd *cli.Command) error {
	cfg, root, ts, err := loadTree(ctx, cmd)
	if err != nil {
		return err
	}
	opts := codegen.Options{
		Package: cfg.Package,
		Modules: cfg.Modules,
		Source:  root,
	}
	if p := cmd.String("package"); p != "" {
		opts.Package = p
	}
	if cmd.Bool("strict") {
		opts.Impls = tables.DefaultImpls()
	}

	src, err := codegen.Generate(opts, ts...)
	if err != nil {
		return err
	}

	output := cmd.String("output")
	if output == "" {
		_, err := os.Stdout.Write(src)
		return err
	}
	if err := os.WriteFile(output, src, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	log.Info().Str("output", output).Int("tables", len(ts)).Msg("generated bindings")
	return nil
}
