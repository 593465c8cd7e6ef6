package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/iwvelando/docbuilder/internal/config"
	"github.com/iwvelando/docbuilder/internal/server"
	"github.com/iwvelando/docbuilder/pkg/constants"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// NewServeCommand creates and returns the serve subcommand
func NewServeCommand(root *rootOptions) *cobra.Command {
	var (
		serverConfigPath string
		address          string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the status API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, logger, err := root.runtime(cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			// A server config file replaces the server section of the main configuration.
			serverConf, err := server.FromConfiguration(conf)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("server-config") {
				serverConf, err = server.LoadConfig(serverConfigPath)
				if err != nil {
					return err
				}
				if serverConf.Logging != (config.LoggingConfig{}) {
					if logger, err = NewLogger(serverConf.Logging, root.logLevel); err != nil {
						return err
					}
				}
			}
			if address != "" {
				serverConf.Address = address
			}
			if serverConf.Version == "" {
				serverConf.Version = Version
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, logger, serverConf)
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVar(&serverConfigPath, "server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	cmd.Flags().StringVar(&address, "address", "", "listen address override")

	return cmd
}

func serve(ctx context.Context, logger *zap.Logger, conf *server.Config) error {
	httpServer := &http.Server{
		Addr:              conf.Address,
		Handler:           server.NewHandler(logger, conf.UploadSizeBytes(), conf.Version, conf.Workers),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown failed",
				zap.String("op", "cmd.serve"),
				zap.Error(err),
			)
		}
	}()

	logger.Info("listening",
		zap.String("op", "cmd.serve"),
		zap.String("address", conf.Address),
		zap.Int64("maxUploadSize", conf.UploadSizeBytes()),
		zap.Int("workers", conf.Workers),
	)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("server closed", zap.String("op", "cmd.serve"))
	return nil
}
