package main

import (
	"fmt"
	"os"
	"regexp"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Solver engines.
const (
	EngineProcess  = "process"
	EngineEmbedded = "z3"
)

// Config represents the configuration file used by the "check" command.
type Config struct {
	// Target architecture used to size int, uint and uintptr.
	Arch string `yaml:"arch"`

	// Only functions whose full name matches one of these are checked.
	Functions []string `yaml:"functions"`

	Solver SolverConfig `yaml:"solver"`
}

// SolverConfig configures how obligations are discharged.
type SolverConfig struct {
	Engine  string        `yaml:"engine"`
	Command string        `yaml:"command"`
	Args    []string      `yaml:"args"`
	Timeout time.Duration `yaml:"timeout"`
}

// NewConfig returns a new instance of Config with defaults set.
func NewConfig() Config {
	return Config{
		Arch: runtime.GOARCH,
		Solver: SolverConfig{
			Engine:  EngineProcess,
			Command: "z3",
			Args:    []string{"-in"},
			Timeout: 30 * time.Second,
		},
	}
}

// ReadConfigFile reads the configuration from path over the defaults.
func ReadConfigFile(path string) (Config, error) {
	config := NewConfig()
	buf, err := os.ReadFile(path)
	if err != nil {
		return config, err
	}
	return ParseConfig(buf)
}

// ParseConfig parses YAML configuration over the defaults.
func ParseConfig(buf []byte) (Config, error) {
	config := NewConfig()
	if err := yaml.Unmarshal(buf, &config); err != nil {
		return config, fmt.Errorf("config: %w", err)
	}
	return config, config.Validate()
}

// Validate returns an error if the configuration is unusable.
func (c *Config) Validate() error {
	if c.Arch == "" {
		return fmt.Errorf("config: arch required")
	}
	if _, err := c.FunctionFilters(); err != nil {
		return err
	}

	switch c.Solver.Engine {
	case EngineProcess:
		if c.Solver.Command == "" {
			return fmt.Errorf("config: solver command required")
		}
	case EngineEmbedded:
	default:
		return fmt.Errorf("config: unknown solver engine: %q", c.Solver.Engine)
	}
	if c.Solver.Timeout < 0 {
		return fmt.Errorf("config: negative solver timeout")
	}
	return nil
}

// FunctionFilters returns the compiled function name filters.
func (c *Config) FunctionFilters() ([]*regexp.Regexp, error) {
	a := make([]*regexp.Regexp, 0, len(c.Functions))
	for _, s := range c.Functions {
		re, err := regexp.Compile(s)
		if err != nil {
			return nil, fmt.Errorf("config: functions: %w", err)
		}
		a = append(a, re)
	}
	return a, nil
}
