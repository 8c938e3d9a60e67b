package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/numbers"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. ARBOR_LOG_LEVEL.
const EnvPrefix = "ARBOR_"

// Config is the runtime configuration of the arbor CLI.
type Config struct {
	Log     LogConfig     `yaml:"log" envPrefix:"LOG_"`
	Machine MachineConfig `yaml:"machine" envPrefix:"MACHINE_"`
	Worker  WorkerConfig  `yaml:"worker" envPrefix:"WORKER_"`
	HTTP    HTTPConfig    `yaml:"http" envPrefix:"HTTP_"`
	Redis   RedisConfig   `yaml:"redis" envPrefix:"REDIS_"`
	Trace   TraceConfig   `yaml:"trace" envPrefix:"TRACE_"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

type MachineConfig struct {
	Name      string `yaml:"name" env:"NAME"`
	Unhandled string `yaml:"unhandled" env:"UNHANDLED"`
}

type WorkerConfig struct {
	Mode         string        `yaml:"mode" env:"MODE"`
	PollInterval time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
	Follow       bool          `yaml:"follow" env:"FOLLOW"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr" env:"ADDR"`
}

// RedisConfig enables the Redis stream trace sink when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
	Stream   string `yaml:"stream" env:"STREAM"`
	MaxLen   int64  `yaml:"max_len" env:"MAX_LEN"`
}

type TraceConfig struct {
	// Console prints the dispatch trace to stdout.
	Console  bool `yaml:"console" env:"CONSOLE"`
	Capacity int  `yaml:"capacity" env:"CAPACITY"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Log:     LogConfig{Level: "info", Format: string(logging.FormatText)},
		Machine: MachineConfig{Name: "numbers", Unhandled: string(domain.UnhandledIgnore)},
		Worker:  WorkerConfig{Mode: string(numbers.WaitNotify), PollInterval: 10 * time.Millisecond},
		HTTP:    HTTPConfig{Addr: ":8080"},
		Redis:   RedisConfig{Stream: "arbor:trace", MaxLen: 10000},
		Trace:   TraceConfig{Console: true, Capacity: 1024},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if path is not
// empty), then ARBOR_* environment variables. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate rejects unknown enum values and out-of-range numbers.
func (c Config) Validate() error {
	var errs []error
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		errs = append(errs, err)
	}
	if _, err := domain.ParseUnhandledPolicy(c.Machine.Unhandled); err != nil {
		errs = append(errs, err)
	}
	if _, err := numbers.ParseWaitMode(c.Worker.Mode); err != nil {
		errs = append(errs, err)
	}
	if c.Worker.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("worker.poll_interval must be positive, got %s", c.Worker.PollInterval))
	}
	if c.Redis.MaxLen < 0 {
		errs = append(errs, fmt.Errorf("redis.max_len must not be negative, got %d", c.Redis.MaxLen))
	}
	if c.Trace.Capacity < 0 {
		errs = append(errs, fmt.Errorf("trace.capacity must not be negative, got %d", c.Trace.Capacity))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
