package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/iwvelando/docbuilder/internal/config"
	"github.com/iwvelando/docbuilder/internal/docbuilder"
	"github.com/iwvelando/docbuilder/internal/document"
	"github.com/iwvelando/docbuilder/internal/processor"
	"github.com/iwvelando/docbuilder/internal/validator"
	"github.com/iwvelando/docbuilder/pkg/validation"
	"github.com/spf13/cobra"
)

// ErrInvalidAnswers is returned when at least one checked answer does not validate.
var ErrInvalidAnswers = errors.New("invalid answers found")

// ErrLintWarnings is returned when the document definition has warnings.
var ErrLintWarnings = errors.New("document definition has warnings")

// NewValidateCommand creates and returns the validate subcommand
func NewValidateCommand(root *rootOptions) *cobra.Command {
	var (
		input      string
		questionID int64
	)

	cmd := &cobra.Command{
		Use:   "validate --input <document> [--question <id>]",
		Short: "Check stored answers against their questions",
		Long: `Validate the stored answers of a document. With --question only that
question's answer is checked, otherwise every question is.

Exit code: 0 if every checked answer is valid, 1 otherwise`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := root.load(cmd); err != nil {
				return err
			}

			doc, err := config.LoadDocument(input)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("question") {
				return validateQuestion(cmd.OutOrStdout(), *doc, questionID)
			}
			return validateDocument(cmd.OutOrStdout(), *doc)
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "path to the document file (YAML or JSON)")
	cmd.Flags().Int64VarP(&questionID, "question", "q", 0, "only validate the answer to this question id")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func validateQuestion(w io.Writer, doc document.Document, questionID int64) error {
	question, subsection, found := doc.FindQuestion(questionID)
	if !found {
		return fmt.Errorf("question %d not found in document", questionID)
	}

	answers := processor.AnswersForSubsection(subsection, doc.Answers, false)
	valid, err := validator.IsValid(question, answers.Value(question.ID))
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(w, "subsection %d question %d (%s): %s\n",
		subsection.ID, question.ID, question.Type, validity(valid))
	if !valid {
		return ErrInvalidAnswers
	}
	return nil
}

func validateDocument(w io.Writer, doc document.Document) error {
	invalidCount := 0
	for _, subsection := range doc.Subsections {
		answers := processor.AnswersForSubsection(subsection, doc.Answers, false)
		invalid, err := processor.InvalidQuestionIDs(subsection.Questions, answers, docbuilder.StageAny)
		if err != nil {
			return err
		}
		invalidCount += len(invalid)

		invalidSet := make(map[int64]bool, len(invalid))
		for _, id := range invalid {
			invalidSet[id] = true
		}
		for _, question := range subsection.Questions {
			_, _ = fmt.Fprintf(w, "subsection %d question %d (%s): %s\n",
				subsection.ID, question.ID, question.Type, validity(!invalidSet[question.ID]))
		}
	}

	if invalidCount > 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAnswers, invalidCount)
	}
	return nil
}

func validity(valid bool) string {
	if valid {
		return "valid"
	}
	return "invalid"
}

// NewLintCommand creates and returns the lint subcommand
func NewLintCommand(root *rootOptions) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "lint --input <document>",
		Short: "Check question and subsection definitions",
		Long: `Lint the definitions of a document, checking for:
  - Missing ids and machine names
  - Unknown question types and processing stages
  - More than one pre or post stage question per subsection
  - Question types the pre and post stages cannot handle
  - Duplicate ids and option keys
  - Answers referring to unknown questions

Exit code: 0 if no warnings, 1 otherwise`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := root.load(cmd); err != nil {
				return err
			}

			doc, err := config.LoadDocument(input)
			if err != nil {
				return err
			}

			warnings := validation.LintDocument(*doc)
			for _, warning := range warnings {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), warning)
			}
			if len(warnings) > 0 {
				return fmt.Errorf("%w: %d", ErrLintWarnings, len(warnings))
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no warnings")
			return nil
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "path to the document file (YAML or JSON)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}
