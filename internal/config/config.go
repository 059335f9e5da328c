// Package config resolves run settings from an optional YAML file and
// SCENEQC_* environment variables. Command-line flags are applied on top by
// the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up in the working directory when --config is unset.
const DefaultFile = ".sceneqc.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SCENEQC_"

// Config is the resolved settings of one invocation.
type Config struct {
	Checks      []string      `yaml:"checks" validate:"dive,required"`
	Jobs        int           `yaml:"jobs" validate:"gte=0,lte=1024"`
	Format      string        `yaml:"format" validate:"oneof=text markdown json jsonl yaml"`
	Verbose     bool          `yaml:"verbose"`
	DB          string        `yaml:"db"`
	MetricsFile string        `yaml:"metricsFile"`
	Timeout     time.Duration `yaml:"timeout" validate:"gte=0"`
	Debounce    time.Duration `yaml:"debounce" validate:"gte=0"`
	LogLevel    string        `yaml:"logLevel" validate:"oneof=debug info warn warning error"`
	LogFormat   string        `yaml:"logFormat" validate:"oneof=text json"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Format:    "text",
		LogLevel:  "info",
		LogFormat: "text",
	}
}

var validate = validator.New()

// Validate checks field ranges and enumerations.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Load reads path over the defaults, then applies environment overrides.
// An empty path tries DefaultFile and silently skips it when absent; an
// explicit path must exist.
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	str("FORMAT", &c.Format)
	str("DB", &c.DB)
	str("METRICS_FILE", &c.MetricsFile)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)

	if v, ok := lookup(EnvPrefix + "CHECKS"); ok && v != "" {
		c.Checks = SplitList(v)
	}
	if v, ok := lookup(EnvPrefix + "JOBS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sJOBS: %w", EnvPrefix, err)
		}
		c.Jobs = n
	}
	if v, ok := lookup(EnvPrefix + "VERBOSE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sVERBOSE: %w", EnvPrefix, err)
		}
		c.Verbose = b
	}
	for name, dst := range map[string]*time.Duration{"TIMEOUT": &c.Timeout, "DEBOUNCE": &c.Debounce} {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*dst = d
		}
	}
	return nil
}

// SplitList splits a comma-separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
