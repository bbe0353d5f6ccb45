// Package qlconfig loads the compiler driver's YAML configuration file.
//
// Grounded on the teacher's database.ParseGeneratorConfig /
// parseGeneratorConfigFromBytes (database/database.go): an optional YAML
// file, decoded with gopkg.in/yaml.v2. Giving no path yields Default()
// rather than an error; a path that cannot be read is an error.
package qlconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Config is the qlc driver's on-disk configuration.
type Config struct {
	OutDir       string            `yaml:"out_dir"`
	LogLevel     string            `yaml:"log_level"`
	Datasources  map[string]string `yaml:"datasources"` // datasource name -> DSN, consumed by schemaverify only
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{OutDir: "out"}
}

// Load reads and parses a YAML config file. An empty path returns Default().
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %q: %w", path, err)
	}
	if cfg.OutDir == "" {
		cfg.OutDir = "out"
	}
	return cfg, nil
}
