// Package server exposes the subsection status engine over HTTP.
package server

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"math"
	"strconv"
	"strings"

	"github.com/iwvelando/docbuilder/internal/config"
	"github.com/iwvelando/docbuilder/pkg/constants"
	"gopkg.in/yaml.v3"
)

// Config defines runtime parameters for the HTTP server.
type Config struct {
	Address         string               `yaml:"address"`
	MaxUploadSize   string               `yaml:"maxUploadSize"`
	Version         string               `yaml:"version"`
	Workers         int                  `yaml:"workers"`
	Logging         config.LoggingConfig `yaml:"logging"`
	uploadSizeBytes int64
}

// DefaultConfig returns the server defaults.
func DefaultConfig() *Config {
	return &Config{
		Address:         constants.DefaultServerAddress,
		MaxUploadSize:   strconv.FormatInt(constants.DefaultMaxUploadSizeBytes, 10),
		Workers:         constants.DefaultWorkers,
		Logging:         config.LoggingConfig{},
		uploadSizeBytes: constants.DefaultMaxUploadSizeBytes,
	}
}

// LoadConfig loads the server configuration from YAML. If the file does not exist,
// defaults are returned without error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read server config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse server config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromConfiguration builds the server configuration from the server,
// processing and logging sections of the main configuration.
func FromConfiguration(conf *config.Configuration) (*Config, error) {
	cfg := DefaultConfig()
	if conf == nil {
		return cfg, nil
	}

	if conf.Server.Address != "" {
		cfg.Address = conf.Server.Address
	}
	if conf.Server.MaxUploadSize != "" {
		cfg.MaxUploadSize = conf.Server.MaxUploadSize
	}
	cfg.Version = conf.Server.Version
	cfg.Workers = conf.Workers()
	cfg.Logging = conf.Logging

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UploadSizeBytes returns the configured upload size in bytes.
func (c *Config) UploadSizeBytes() int64 {
	return c.uploadSizeBytes
}

// SetUploadSizeBytes overrides the configured upload size.
func (c *Config) SetUploadSizeBytes(size int64) {
	if size > 0 {
		c.uploadSizeBytes = size
		c.MaxUploadSize = strconv.FormatInt(size, 10)
	}
}

func (c *Config) normalize() error {
	if c.Address == "" {
		c.Address = constants.DefaultServerAddress
	}
	if c.Workers <= 0 {
		c.Workers = constants.DefaultWorkers
	}

	size, err := ParseSize(c.MaxUploadSize)
	if err != nil {
		return err
	}
	if size <= 0 {
		size = constants.DefaultMaxUploadSizeBytes
	}
	c.uploadSizeBytes = size
	if strings.TrimSpace(c.MaxUploadSize) == "" {
		c.MaxUploadSize = strconv.FormatInt(size, 10)
	}
	return nil
}

// sizeUnits is checked in order, so longer suffixes come first.
var sizeUnits = []struct {
	suffix     string
	multiplier int64
}{
	{"GB", 1 << 30}, {"G", 1 << 30},
	{"MB", 1 << 20}, {"M", 1 << 20},
	{"KB", 1 << 10}, {"K", 1 << 10},
	{"B", 1},
}

// ParseSize converts a size such as "256K", "2MB" or "1024" into bytes.
// Units are binary and case-insensitive; an empty value is the default
// upload size.
func ParseSize(value string) (int64, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(value))
	if trimmed == "" {
		return constants.DefaultMaxUploadSizeBytes, nil
	}

	number, multiplier := trimmed, int64(1)
	for _, unit := range sizeUnits {
		if rest, ok := strings.CutSuffix(trimmed, unit.suffix); ok {
			number, multiplier = strings.TrimSpace(rest), unit.multiplier
			break
		}
	}

	n, err := strconv.ParseInt(number, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", value, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid size %q: must not be negative", value)
	}
	if n > math.MaxInt64/multiplier {
		return 0, fmt.Errorf("size overflow for value %s", value)
	}
	return n * multiplier, nil
}
