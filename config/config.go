// Package config loads vtab settings from a YAML file overlaid by
// VTAB_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

var (
	// EnvPrefix prefixes every environment override, e.g. VTAB_SPECSDIR.
	EnvPrefix = "VTAB_"
	// ConfigEnv names the variable holding the config file path.
	ConfigEnv = "VTAB_CONFIG"
	// ConfigName is looked up in the working directory when ConfigEnv is unset.
	ConfigName = "vtab.yaml"
)

// Config holds settings shared by the CLI commands.
type Config struct {
	// SpecsDir is the root of the .table tree used by check, gen and fmt.
	SpecsDir string `env:"SPECSDIR" yaml:"specsDir"`
	// Platform selects the platform subdirectory of SpecsDir.
	Platform string `env:"PLATFORM" yaml:"platform"`
	LogLevel string `env:"LOGLEVEL" yaml:"logLevel"`
	NoColor  bool   `env:"NOCOLOR" yaml:"noColor"`

	// Package is the Go package name emitted by gen.
	Package string `env:"PACKAGE" yaml:"package"`
	// Modules maps implementation modules to Go import paths for gen.
	Modules map[string]string `env:"MODULES" yaml:"modules"`

	// MaxSteps and Timeout bound the evaluation of each .table file.
	MaxSteps uint64        `env:"MAXSTEPS" yaml:"maxSteps"`
	Timeout  time.Duration `env:"TIMEOUT" yaml:"timeout"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		SpecsDir: "specs",
		Platform: runtime.GOOS,
		LogLevel: "info",
		Package:  "tablegen",
		Modules: map[string]string{
			"time":   "github.com/rubiojr/vtab/tables/time",
			"uptime": "github.com/rubiojr/vtab/tables/uptime",
		},
	}
}

// Load reads path (or $VTAB_CONFIG, or ./vtab.yaml) over the defaults and
// applies environment overrides. A missing file is only an error when the
// path was given explicitly.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if p, ok := os.LookupEnv(ConfigEnv); ok && p != "" {
			path, explicit = p, true
		} else {
			path = ConfigName
		}
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}
	return cfg, nil
}
