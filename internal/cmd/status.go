package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/iwvelando/docbuilder/internal/config"
	"github.com/iwvelando/docbuilder/internal/document"
	"github.com/iwvelando/docbuilder/pkg/constants"
	"github.com/iwvelando/docbuilder/pkg/output"
	"github.com/iwvelando/docbuilder/pkg/validation"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewStatusCommand creates and returns the status subcommand
func NewStatusCommand(root *rootOptions) *cobra.Command {
	var (
		input        string
		outputFormat string
		colorMode    string
		defaults     bool
	)

	cmd := &cobra.Command{
		Use:   "status --input <document>",
		Short: "Compute the status of every subsection of a document",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, logger, err := root.runtime(cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			// CLI override takes precedence over config
			format := conf.Output.Format
			if outputFormat != "" {
				format = outputFormat
			}
			if format == "" {
				format = constants.OutputFormatPretty
			}
			if err := validation.ValidateOutputFormat(format); err != nil {
				return err
			}

			mode := conf.Output.Color
			if colorMode != "" {
				mode = colorMode
			}

			doc, err := config.LoadDocument(input)
			if err != nil {
				return err
			}

			for _, warning := range validation.LintDocument(*doc) {
				logger.Warn("Document warning: "+warning,
					zap.String("op", "cmd.status"),
				)
			}

			var report *document.Report
			if defaults {
				report = document.DefaultReport(*doc)
			} else {
				evaluator := document.NewEvaluator(logger,
					document.WithWorkers(conf.Workers()),
					document.WithReturnCopies(conf.Processing.ReturnCopies),
				)
				report, err = evaluator.Evaluate(cmd.Context(), *doc)
				if err != nil {
					return err
				}
			}

			return writeReport(cmd.OutOrStdout(), report, format, useColor(mode, cmd.OutOrStdout()))
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "path to the document file (YAML or JSON)")
	cmd.Flags().StringVar(&outputFormat, "output-format", "", "type of output override: pretty, csv, json")
	cmd.Flags().StringVar(&colorMode, "color", "", "color mode for pretty output: auto, always, never")
	cmd.Flags().BoolVar(&defaults, "defaults", false, "report the default status without looking at answers")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func writeReport(w io.Writer, report *document.Report, format string, colorize bool) error {
	switch format {
	case constants.OutputFormatCSV:
		return output.CsvFormat(w, report)
	case constants.OutputFormatJSON:
		return output.JSONFormat(w, report)
	case constants.OutputFormatPretty:
		output.PrettyFormat(w, report, colorize)
		return nil
	}
	return fmt.Errorf("unsupported output format %s", format)
}

// useColor resolves the color mode. auto colors only when w is a terminal.
func useColor(mode string, w io.Writer) bool {
	switch mode {
	case constants.ColorAlways:
		return true
	case constants.ColorNever:
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}
