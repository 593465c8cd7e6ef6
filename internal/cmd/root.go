// Package cmd implements the docbuilder command line interface.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/iwvelando/docbuilder/internal/config"
	"github.com/iwvelando/docbuilder/pkg/constants"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Version is injected at build time via -ldflags
var Version = "dev"

type rootOptions struct {
	configPath string
	envFile    string
	logLevel   string
}

// NewRootCommand creates and returns the root cobra command for docbuilder
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "docbuilder",
		Short: "Validate docbuilder answers and compute subsection statuses",
		Long: `docbuilder checks answers against their question definitions and derives
the status of every subsection of a document (PENDING, READY, EXCLUDING or
NOT_APPLICABLE).

Documents are YAML or JSON files holding subsections with their questions
and the flat list of stored answers.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", constants.DefaultConfigFile, "path to configuration file")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", constants.DefaultEnvFile, "optional dotenv file with DOCBUILDER_* overrides")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewLintCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// load reads the dotenv file and the configuration. A missing default
// configuration file falls back to the built-in defaults; a configuration
// file named explicitly must exist.
func (o *rootOptions) load(cmd *cobra.Command) (*config.Configuration, error) {
	if err := config.LoadEnv(o.envFile); err != nil {
		return nil, err
	}

	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(o.configPath); errors.Is(err, fs.ErrNotExist) {
			return config.DefaultConfiguration(), nil
		}
	}

	conf, err := config.LoadConfiguration(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration at %s: %w", o.configPath, err)
	}
	return conf, nil
}

// runtime loads the configuration and builds the logger from it.
func (o *rootOptions) runtime(cmd *cobra.Command) (*config.Configuration, *zap.Logger, error) {
	conf, err := o.load(cmd)
	if err != nil {
		return nil, nil, err
	}

	logger, err := NewLogger(conf.Logging, o.logLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "cmd.runtime"),
		)
	}
	return conf, logger, nil
}

// NewLogger creates a zap logger based on configuration and CLI override
func NewLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	// CLI override takes precedence
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	format := loggingConfig.Format
	if format == "" {
		format = "json"
	}

	var zapConfig zap.Config
	switch format {
	case "console":
		zapConfig = zap.NewDevelopmentConfig()
	case "json":
		zapConfig = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
	zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)

	// Logs go to stderr unless a file is configured, keeping stdout for reports.
	zapConfig.OutputPaths = []string{"stderr"}
	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}

		file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %v", loggingConfig.OutputFile, err)
		}
		_ = file.Close()

		zapConfig.OutputPaths = []string{loggingConfig.OutputFile}
		zapConfig.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return zapConfig.Build()
}
