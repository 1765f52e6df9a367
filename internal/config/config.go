// Package config loads CLI settings from defaults, an optional
// fetchplan.yaml, FETCHPLAN_ environment variables and command-line flags.
//
// Precedence, highest first: flags explicitly set on the command line, env
// vars, the config file, defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "FETCHPLAN_"

// Defaults.
const (
	DefaultCatalog  = "."
	DefaultDatabase = ":memory:"
	DefaultFormat   = "text"
)

// Config holds the settings shared by all commands.
type Config struct {
	Catalog  string `koanf:"catalog"`  // directory of CUE resource definitions
	Database string `koanf:"database"` // SQLite path or :memory:
	Seed     string `koanf:"seed"`     // optional SQL script run before fetching
	Format   string `koanf:"format"`   // text or json
	Verbose  bool   `koanf:"verbose"`

	// File is the config file that was read, empty when none was found.
	File string `koanf:"-"`
}

// findConfigFile returns explicit, or fetchplan.yaml / fetchplan.yml in
// dir, or "".
func findConfigFile(explicit, dir string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"fetchplan.yaml", "fetchplan.yml"} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// Load builds a Config. cfgFile may be empty, in which case fetchplan.yaml
// is looked up in the working directory. flags may be nil.
//
// Relative paths coming from a config file are resolved against the
// directory of that file.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]any{
		"catalog":  DefaultCatalog,
		"database": DefaultDatabase,
		"seed":     "",
		"format":   DefaultFormat,
		"verbose":  false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	used := findConfigFile(cfgFile, ".")
	fileKeys := map[string]bool{}
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
		fk := koanf.New(".")
		if err := fk.Load(file.Provider(used), yaml.Parser()); err == nil {
			for _, key := range fk.Keys() {
				fileKeys[key] = true
			}
		}
	}

	// FETCHPLAN_DATABASE -> database
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	setByFlag := map[string]bool{}
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			setByFlag[key] = true
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used

	if used != "" {
		base := filepath.Dir(used)
		for key, field := range map[string]*string{"catalog": &cfg.Catalog, "seed": &cfg.Seed, "database": &cfg.Database} {
			if fileKeys[key] && !setByFlag[key] && os.Getenv(EnvPrefix+strings.ToUpper(key)) == "" {
				*field = resolvePath(*field, base)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid format %q: must be one of [text json]", c.Format)
	}
	if c.Catalog == "" {
		return fmt.Errorf("catalog directory is required")
	}
	return nil
}

// resolvePath resolves path against base unless it is empty, absolute or
// the in-memory database name.
func resolvePath(path, base string) string {
	if path == "" || path == DefaultDatabase || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
