// Package config loads djcomponentd's configuration from file, environment, and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ServerConfig controls the envelope-ingest HTTP surface.
type ServerConfig struct {
	Host string `json:"host" yaml:"host" env:"SERVER_HOST"`
	Port int    `json:"port" yaml:"port" env:"SERVER_PORT"`
}

// LoggingConfig controls application logging.
type LoggingConfig struct {
	Level      string `json:"level" yaml:"level" env:"LOG_LEVEL"`
	Format     string `json:"format" yaml:"format" env:"LOG_FORMAT"`
	Output     string `json:"output" yaml:"output" env:"LOG_OUTPUT"`
	FilePrefix string `json:"file_prefix" yaml:"file_prefix" env:"LOG_FILE_PREFIX"`
}

// SchedulerConfig controls the activation queue's drain and stall-reporting behavior.
type SchedulerConfig struct {
	// StallInterval is a cron expression (e.g. "@every 5s") for the stall
	// reporter's cadence. It is loaded but not passed to the scheduler, which
	// always uses scheduler.StallInterval.
	StallInterval string `json:"stall_interval" yaml:"stall_interval" env:"SCHEDULER_STALL_INTERVAL"`
	// WaiterSweepInterval is loaded but not read: the asset registry has no
	// waiter sweep.
	WaiterSweepInterval time.Duration `json:"waiter_sweep_interval" yaml:"waiter_sweep_interval" env:"SCHEDULER_WAITER_SWEEP_INTERVAL"`
}

// IngestorConfig controls envelope discovery.
type IngestorConfig struct {
	// EnvelopeAttr is the marker attribute identifying an activation envelope
	// element (spec.md §6: "data-djc").
	EnvelopeAttr string `json:"envelope_attr" yaml:"envelope_attr" env:"INGESTOR_ENVELOPE_ATTR"`
	// InstanceAttrPrefix is the prefix of the per-instance marker attribute
	// (spec.md §6: "data-djc-id-<instance-id>").
	InstanceAttrPrefix string `json:"instance_attr_prefix" yaml:"instance_attr_prefix" env:"INGESTOR_INSTANCE_ATTR_PREFIX"`
}

// HostConfig controls the capability host backing asset insertion and mutation
// observation (spec.md §9's "abstract the host behind a capability interface").
type HostConfig struct {
	// MutationListenAddr is a listen address for a mutation push surface. It
	// is loaded but not read: djcomponentd accepts envelope pushes on the
	// Server address (POST /envelopes).
	MutationListenAddr string `json:"mutation_listen_addr" yaml:"mutation_listen_addr" env:"HOST_MUTATION_LISTEN_ADDR"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
	Scheduler SchedulerConfig `json:"scheduler" yaml:"scheduler"`
	Ingestor  IngestorConfig  `json:"ingestor" yaml:"ingestor"`
	Host      HostConfig      `json:"host" yaml:"host"`
}

// New returns a configuration populated with defaults.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stdout",
			FilePrefix: "djcomponent",
		},
		Scheduler: SchedulerConfig{
			StallInterval:       "@every 5s",
			WaiterSweepInterval: 10 * time.Minute,
		},
		Ingestor: IngestorConfig{
			EnvelopeAttr:       "data-djc",
			InstanceAttrPrefix: "data-djc-id-",
		},
		Host: HostConfig{
			MutationListenAddr: "0.0.0.0:8081",
		},
	}
}

// Load loads configuration from file (if present) and environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := New()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, err
		}
	} else {
		_ = loadFromFile("configs/config.yaml", cfg)
	}

	if err := envdecode.Decode(cfg); err != nil {
		// envdecode returns an error when no tagged fields are present in the
		// environment; treat that case as "no overrides" so local runs work
		// without exporting vars.
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return nil, fmt.Errorf("decode env: %w", err)
		}
	}

	return cfg, nil
}

// LoadFile reads configuration from a YAML file, falling back to defaults for
// anything the file doesn't set.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if err := loadFromFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	expanded, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return err
	}
	return nil
}
