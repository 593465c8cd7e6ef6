// Package config defines the data structures related to configuration and
// includes functions for loading the configuration and document files.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/iwvelando/docbuilder/pkg/constants"
	"github.com/iwvelando/docbuilder/pkg/validation"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for docbuilder.
type Configuration struct {
	Logging    LoggingConfig    `yaml:"logging,omitempty"`
	Output     OutputConfig     `yaml:"output,omitempty"`
	Processing ProcessingConfig `yaml:"processing,omitempty"`
	Server     ServerConfig     `yaml:"server,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv, json
	Color  string `yaml:"color,omitempty"`  // auto, always, never
}

// ProcessingConfig controls document evaluation.
type ProcessingConfig struct {
	Workers      int  `yaml:"workers,omitempty"`
	ReturnCopies bool `yaml:"returnCopies,omitempty"`
}

// ServerConfig holds the HTTP server options that may live in the main
// configuration file.
type ServerConfig struct {
	Address       string `yaml:"address,omitempty"`
	MaxUploadSize string `yaml:"maxUploadSize,omitempty"`
	Version       string `yaml:"version,omitempty"`
}

// LoadEnv loads environment variables from the given dotenv files. Missing
// files are ignored.
func LoadEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("error reading env file %s, %s", path, err)
		}
	}
	return nil
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there. Values can be overridden with DOCBUILDER_* variables,
// e.g. DOCBUILDER_LOGGING_LEVEL=debug.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}

	return decode(v)
}

// LoadConfigurationFromReader loads YAML-formatted configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()

	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %s", err)
	}

	return decode(v)
}

// DefaultConfiguration returns the configuration used when no file is given.
func DefaultConfiguration() *Configuration {
	conf, err := decode(newViper())
	if err != nil {
		return &Configuration{}
	}
	return conf
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yml")
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults double as the key registry AutomaticEnv needs for Unmarshal.
	v.SetDefault("logging.level", "")
	v.SetDefault("logging.format", "")
	v.SetDefault("logging.outputFile", "")
	v.SetDefault("output.format", "")
	v.SetDefault("output.color", constants.ColorAuto)
	v.SetDefault("processing.workers", constants.DefaultWorkers)
	v.SetDefault("processing.returnCopies", false)
	v.SetDefault("server.address", constants.DefaultServerAddress)
	v.SetDefault("server.maxUploadSize", "")
	v.SetDefault("server.version", "")
	return v
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	return &configuration, nil
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	if c.Output.Format != "" {
		if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
			warnings = append(warnings, err.Error())
		}
	}

	switch c.Output.Color {
	case "", constants.ColorAuto, constants.ColorAlways, constants.ColorNever:
	default:
		warnings = append(warnings, fmt.Sprintf("unknown output color mode '%s', using %s",
			c.Output.Color, constants.ColorAuto))
	}

	if c.Processing.Workers < 0 {
		warnings = append(warnings, fmt.Sprintf("processing workers must not be negative (%d), using %d",
			c.Processing.Workers, constants.DefaultWorkers))
	}

	return warnings
}

// Workers returns the configured worker count, falling back to the default.
func (c *Configuration) Workers() int {
	if c.Processing.Workers <= 0 {
		return constants.DefaultWorkers
	}
	return c.Processing.Workers
}
