package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"kibitzer-analysis/engine"
)

type Config struct {
	Engine     engine.Config `yaml:"engine"`
	Depth      int           `yaml:"depth"`
	RecordFile string        `yaml:"record_file,omitempty"`
}

func defaultConfig() Config {
	return Config{
		Engine: engine.Config{
			Path:    "stockfish",
			Threads: 4,
			HashMB:  256,
			MultiPV: 3,
		},
		Depth: 30,
	}
}

// loadConfig reads the YAML config file if present; a missing file just
// yields the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("'%s': %w", path, err)
	}

	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("'%s': %w", path, err)
	}

	return cfg, nil
}
