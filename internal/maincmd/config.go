package maincmd

import (
	"os"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"
)

// Config holds the VM resource limits that can be set via environment
// variables or a YAML config file, so they persist across CLI invocations
// without needing to be repeated as flags every time.
type Config struct {
	// MaxSteps bounds the number of instructions dispatch executes before
	// aborting with a runtime error; zero means unbounded.
	MaxSteps int `env:"MAX_STEPS" yaml:"max_steps"`
	// MaxCallDepth bounds the call-frame stack depth; zero means unbounded.
	MaxCallDepth int `env:"MAX_CALL_DEPTH" yaml:"max_call_depth"`
	// ConfigFile is the optional path to a YAML file providing the above,
	// overridden by whichever of the ASTER_MAX_STEPS /
	// ASTER_MAX_CALL_DEPTH env vars are set.
	ConfigFile string `env:"CONFIG_FILE" yaml:"-"`
}

// LoadConfig builds a Config from its YAML file (if ConfigFile is set via
// the ASTER_CONFIG_FILE environment variable) and then overlays any
// ASTER_-prefixed environment variables on top.
func LoadConfig() (Config, error) {
	var cfg Config

	if path, ok := os.LookupEnv("ASTER_CONFIG_FILE"); ok && path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	}

	if err := env.Parse(&cfg, env.Options{Prefix: "ASTER_"}); err != nil {
		return cfg, err
	}
	return cfg, nil
}
