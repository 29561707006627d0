package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"grammateus/internal/storage"
)

const defaultConfigPath = "grammateus.yaml"

// Config carries the file-configurable defaults; command-line flags
// override individual fields.
type Config struct {
	Store        string `yaml:"store" validate:"omitempty,oneof=memory sqlite"`
	DBPath       string `yaml:"db_path"`
	ArtifactsDir string `yaml:"artifacts_dir"`

	Problem     string `yaml:"problem"`
	Population  int    `yaml:"population" validate:"min=0"`
	Generations int    `yaml:"generations" validate:"min=0"`
	MaxDepth    int    `yaml:"max_depth" validate:"min=0"`
	Seed        int64  `yaml:"seed"`
	Workers     int    `yaml:"workers" validate:"min=0"`

	EliteCount   int     `yaml:"elite_count" validate:"min=0"`
	NoveltyCount int     `yaml:"novelty_count" validate:"min=0"`
	Crossover    float64 `yaml:"crossover_rate" validate:"gte=0,lte=1"`
	Mutation     float64 `yaml:"mutation_rate" validate:"gte=0,lte=1"`

	Selection            string `yaml:"selection" validate:"omitempty,oneof=tournament lexicase"`
	TournamentSize       int    `yaml:"tournament_size" validate:"min=0"`
	SizeWeightedMutation bool   `yaml:"size_weighted_mutation"`
	CacheEvaluations     bool   `yaml:"cache_evaluations"`

	TargetFitness    *float64 `yaml:"target_fitness"`
	EvaluationBudget int      `yaml:"evaluation_budget" validate:"min=0"`
	// TimeBudget is a duration string like "30s" or "5m".
	TimeBudget string `yaml:"time_budget"`
}

func (c Config) timeBudget() (time.Duration, error) {
	if c.TimeBudget == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.TimeBudget)
	if err != nil {
		return 0, fmt.Errorf("time budget: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("time budget must be >= 0, got %s", c.TimeBudget)
	}
	return d, nil
}

func defaultConfig() Config {
	return Config{
		Store:     storage.DefaultStoreKind(),
		Crossover: 0.8,
		Mutation:  0.2,
		Selection: "tournament",
	}
}

// loadConfig reads the YAML config at path. A missing file at the default
// path is fine; a missing file named explicitly is an error.
func loadConfig(path string, explicit bool) (Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := validateConfig(cfg); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	return validator.New().Struct(cfg)
}
