package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/mitchellh/mapstructure"
)

const (
	DefaultSolver          = "highs"
	DefaultMaxNumericBound = 100000
)

type Config struct {
	Solver          string            `mapstructure:"solver"`
	SolverPaths     map[string]string `mapstructure:"solverPaths"` // Backend name to executable path
	MaxNumericBound float64           `mapstructure:"maxNumericBound"`
	TimeLimit       time.Duration     `mapstructure:"timeLimit"`
	IISPath         string            `mapstructure:"iisPath"`
	WorkDir         string            `mapstructure:"workDir"`
}

func Default() Config {
	return Config{
		Solver:          DefaultSolver,
		SolverPaths:     map[string]string{},
		MaxNumericBound: DefaultMaxNumericBound,
	}
}

// Load reads a JSON or YAML configuration file (chosen by extension). Keys that are not present keep their default value
func Load(file string) (Config, error) {
	bytes, err := os.ReadFile(file)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read config file: %w", err)
	}

	var document map[string]any
	switch strings.ToLower(filepath.Ext(file)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(bytes, &document)
	default:
		err = json.Unmarshal(bytes, &document)
	}
	if err != nil {
		return Config{}, fmt.Errorf("cannot parse config file %v: %w", file, err)
	}

	return Decode(document)
}

func Decode(document map[string]any) (Config, error) {
	config := Default()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &config,
	})
	if err != nil {
		return Config{}, err
	}
	if err := decoder.Decode(document); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	if config.MaxNumericBound <= 0 {
		return Config{}, fmt.Errorf("invalid config: maxNumericBound must be positive, got %v", config.MaxNumericBound)
	} else if config.TimeLimit < 0 {
		return Config{}, fmt.Errorf("invalid config: timeLimit must not be negative, got %v", config.TimeLimit)
	}
	return config, nil
}

// ExecutablePath returns the configured executable of a backend, or fallback when there is none
func (config Config) ExecutablePath(solver, fallback string) string {
	if path, ok := config.SolverPaths[solver]; ok && path != "" {
		return path
	}
	return fallback
}
