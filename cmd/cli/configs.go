package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/limaJavier/dccheck/internal/config"
	"github.com/limaJavier/dccheck/pkg/milp"

	log "github.com/golang/glog"
	"github.com/scott-cotton/cli"
)

type MainConfig struct {
	ConfigFile string `cli:"name=config desc='configuration file (json or yaml), config.json next to the executable by default'"`
	Verbosity  int    `cli:"name=v desc='log verbosity, 1 for encoding statistics and 2 for solver command lines'"`

	Main *cli.Command
}

// settings loads the configuration file and points the solver backends at it
func (cfg *MainConfig) settings() (config.Config, error) {
	if cfg.Verbosity > 0 {
		flag.Set("logtostderr", "true")
		flag.Set("v", strconv.Itoa(cfg.Verbosity))
	}

	file := cfg.ConfigFile
	if file == "" {
		file = defaultConfigPath()
		if file == "" {
			return config.Default(), nil
		}
	}

	settings, err := config.Load(file)
	if err != nil {
		return config.Config{}, err
	}
	milp.ConfigPath = file
	log.V(1).Infof("using configuration %v", file)
	return settings, nil
}

// defaultConfigPath returns config.json next to the executable, or "" when there is none
func defaultConfigPath() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	file := filepath.Join(filepath.Dir(execPath), "config.json")
	if _, err := os.Stat(file); err != nil {
		return ""
	}
	return file
}

// durationOpt parses a Go duration into target
func durationOpt(target *time.Duration) cli.FuncOpt {
	return cli.FuncOpt(func(_ *cli.Context, v string) (any, error) {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", cli.ErrUsage, err)
		}
		*target = d
		return d, nil
	})
}

// boundOpt parses a positive number into target
func boundOpt(target *float64) cli.FuncOpt {
	return cli.FuncOpt(func(_ *cli.Context, v string) (any, error) {
		bound, err := strconv.ParseFloat(v, 64)
		if err != nil || bound <= 0 {
			return nil, fmt.Errorf("%w: bound must be a positive number, got %q", cli.ErrUsage, v)
		}
		*target = bound
		return bound, nil
	})
}

type CheckConfig struct {
	*MainConfig

	Solver  string `cli:"name=solver aliases=s desc='MILP backend: highs, cbc, glpk or gurobi'"`
	IIS     string `cli:"name=iis desc='file where the irreducible infeasible subsystem is written when the network is not DC'"`
	NoColor bool   `cli:"name=nocolor desc='do not color the verdict'"`

	Timeout time.Duration
	Bound   float64

	Check *cli.Command
}

// apply overrides configuration values with the options given on the command line
func (cfg *CheckConfig) apply(settings config.Config) config.Config {
	if cfg.Solver != "" {
		settings.Solver = cfg.Solver
	}
	if cfg.IIS != "" {
		settings.IISPath = cfg.IIS
	}
	if cfg.Timeout > 0 {
		settings.TimeLimit = cfg.Timeout
	}
	if cfg.Bound > 0 {
		settings.MaxNumericBound = cfg.Bound
	}
	return settings
}

type EncodeConfig struct {
	*MainConfig

	Out   string `cli:"name=o desc='output file (default stdout)'"`
	Stats bool   `cli:"name=stats desc='print the number of constraints per family instead of the model'"`

	Bound float64

	Encode *cli.Command
}

type NormalizeConfig struct {
	*MainConfig

	YAML bool `cli:"name=y aliases=yaml desc='write yaml instead of json'"`

	Normalize *cli.Command
}
