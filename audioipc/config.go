package audioipc

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultRegionName identifies the shared memory region both
	// processes map.
	DefaultRegionName = "shmaudio_region"

	// DefaultRegionSize is the total mapping size: header plus data area.
	DefaultRegionSize = 16 * 1024 * 1024

	// DefaultMaxChunkSize caps a single frame at 1 MiB (262,144 samples).
	DefaultMaxChunkSize = 1024 * 1024

	// DefaultSampleRate is written into a freshly bootstrapped header.
	DefaultSampleRate = 16000

	defaultSocketName = "shmaudio_ipc.sock"
)

// Config carries the transport's tunables. The zero value is not usable;
// start from DefaultConfig or LoadConfig.
type Config struct {
	RegionName   string `env:"SHMAUDIO_REGION" envDefault:"shmaudio_region"`
	RegionSize   int    `env:"SHMAUDIO_REGION_SIZE" envDefault:"16777216"`
	MaxChunkSize int    `env:"SHMAUDIO_MAX_CHUNK_SIZE" envDefault:"1048576"`
	SocketPath   string `env:"SHMAUDIO_SOCKET_PATH"`
	AdminAddr    string `env:"SHMAUDIO_ADMIN_ADDR" envDefault:":9464"`

	// Optional OpenTelemetry hooks; nil disables instrumentation.
	Tracer trace.Tracer `env:"-"`
	Meter  metric.Meter `env:"-"`
}

// DefaultConfig returns the stock configuration used by the capture and
// recognition processes.
func DefaultConfig() *Config {
	return &Config{
		RegionName:   DefaultRegionName,
		RegionSize:   DefaultRegionSize,
		MaxChunkSize: DefaultMaxChunkSize,
		SocketPath:   defaultSocketPath(),
		AdminAddr:    ":9464",
	}
}

// LoadConfig reads the configuration from environment variables and
// validates it.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("environment variables are invalid: %w", err)
	}
	if cfg.SocketPath == "" {
		cfg.SocketPath = defaultSocketPath()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.RegionName == "" {
		return fmt.Errorf("SHMAUDIO_REGION is required")
	}
	if c.RegionSize <= HeaderSize {
		return fmt.Errorf("SHMAUDIO_REGION_SIZE must exceed the %d byte header, got %d", HeaderSize, c.RegionSize)
	}
	if c.MaxChunkSize <= 0 {
		return fmt.Errorf("SHMAUDIO_MAX_CHUNK_SIZE must be positive, got %d", c.MaxChunkSize)
	}
	if c.MaxChunkSize%4 != 0 {
		return fmt.Errorf("SHMAUDIO_MAX_CHUNK_SIZE must be a multiple of the 4 byte sample size, got %d", c.MaxChunkSize)
	}
	if c.SocketPath == "" {
		return fmt.Errorf("SHMAUDIO_SOCKET_PATH is required")
	}
	return nil
}

// DataSize is the byte length of the data area implied by the region size.
func (c *Config) DataSize() int { return c.RegionSize - HeaderSize }

func defaultSocketPath() string {
	return filepath.Join(os.TempDir(), defaultSocketName)
}
