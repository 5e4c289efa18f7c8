package batcher

import (
	"fmt"
	"os"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// Config is the CLI's yaml configuration. PLAN_LIMIT and STORE_PATH
// environment variables override the file when set.
type Config struct {
	PlanLimit int    `yaml:"plan_limit"`
	StorePath string `yaml:"store_path"`
}

const (
	defaultPlanLimit = 100
	defaultStorePath = ".batcher"
)

func loadConfig(path string) (*Config, error) {
	cfg := &Config{
		PlanLimit: defaultPlanLimit,
		StorePath: defaultStorePath,
	}

	raw, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if v := os.Getenv("PLAN_LIMIT"); v != "" {
		limit, err := cast.ToIntE(v)
		if err != nil {
			return nil, fmt.Errorf("parsing PLAN_LIMIT: %w", err)
		}
		cfg.PlanLimit = limit
	}
	if v := os.Getenv("STORE_PATH"); v != "" {
		cfg.StorePath = v
	}

	return cfg, nil
}
