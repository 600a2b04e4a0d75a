// Package config loads the project configuration.
//
// Precedence (highest to lowest): flags > cdcflow.yaml > defaults.
// Environment variables are deliberately not a source: compile semantics
// depend only on explicit paths.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Defaults for the persisted state layout.
const (
	DefaultSpecsDir = "specs"
	DefaultRegistry = "sql-registry/oracle.json"
	DefaultFlow     = "flows/oracle_cdc_flow.json"
)

// fileNames are searched in the working directory when no file is given.
var fileNames = []string{"cdcflow.yaml", "cdcflow.yml"}

// Config is the resolved configuration. All paths are absolute or empty.
type Config struct {
	SpecsDir    string     `koanf:"specs_dir"`
	Registry    string     `koanf:"registry"`
	Flow        string     `koanf:"flow"`
	Journal     string     `koanf:"journal"`      // empty disables the journal
	MetricsFile string     `koanf:"metrics_file"` // empty disables metrics export
	Sink        SinkConfig `koanf:"sink"`

	// File is the config file used, if any.
	File string `koanf:"-"`
}

// SinkConfig locates the Elasticsearch cluster for sink-smoke.
type SinkConfig struct {
	URL      string `koanf:"url"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

// flagKeys maps CLI flag names to config keys. Other flags are ignored.
var flagKeys = map[string]string{
	"specs-dir":    "specs_dir",
	"registry":     "registry",
	"flow":         "flow",
	"journal":      "journal",
	"metrics-file": "metrics_file",
	"es-url":       "sink.url",
}

// pathKeys are resolved against the base directory of their source.
var pathKeys = []string{"specs_dir", "registry", "flow", "journal", "metrics_file"}

// Load reads configuration from explicit (or cdcflow.yaml in the working
// directory) and applies flags that were set. Relative paths from the
// file and defaults resolve against the file's directory; relative paths
// from flags resolve against the working directory.
func Load(explicit string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	path, err := findFile(explicit)
	if err != nil {
		return nil, err
	}
	base := cwd
	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		path = abs
		base = filepath.Dir(abs)
	}

	if err := k.Load(confmap.Provider(map[string]any{
		"specs_dir": DefaultSpecsDir,
		"registry":  DefaultRegistry,
		"flow":      DefaultFlow,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}
	resolvePaths(k, base)

	if flags != nil {
		fk := koanf.New(".")
		if err := fk.Load(posflag.ProviderWithFlag(flags, ".", fk, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
		resolvePaths(fk, cwd)
		if err := k.Merge(fk); err != nil {
			return nil, fmt.Errorf("failed to merge flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = path
	return &cfg, nil
}

// findFile returns the config file to use, or "" when there is none.
// An explicit path must exist.
func findFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file %s: %w", explicit, err)
		}
		return explicit, nil
	}
	for _, name := range fileNames {
		_, err := os.Stat(name)
		if err == nil {
			return name, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("config file %s: %w", name, err)
		}
	}
	return "", nil
}

func resolvePaths(k *koanf.Koanf, base string) {
	for _, key := range pathKeys {
		p := k.String(key)
		if p == "" || filepath.IsAbs(p) {
			continue
		}
		_ = k.Set(key, filepath.Join(base, p))
	}
}
