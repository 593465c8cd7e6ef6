package main

import (
	"fmt"
	"os"

	"github.com/iwvelando/docbuilder/internal/cmd"
	"github.com/iwvelando/docbuilder/internal/config"
	"go.uber.org/zap"
)

func main() {
	rootCmd := cmd.NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		logger, logErr := cmd.NewLogger(config.LoggingConfig{}, "")
		if logErr != nil {
			fmt.Fprintf(os.Stderr, "{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": %q}\n", logErr.Error())
			os.Exit(1)
		}
		logger.Fatal(err.Error(),
			zap.String("op", "main"),
		)
	}
}
