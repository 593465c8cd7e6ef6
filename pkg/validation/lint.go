package validation

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/iwvelando/docbuilder/internal/docbuilder"
	"github.com/iwvelando/docbuilder/internal/document"
)

var structValidator = validator.New()

// LintSubsection checks a subsection definition and returns warnings for
// everything the processor would reject or silently ignore.
func LintSubsection(subsection docbuilder.Subsection) []string {
	var warnings []string

	warnings = append(warnings, structWarnings(subsection)...)

	seenQuestions := make(map[int64]bool, len(subsection.Questions))
	stageCounts := make(map[docbuilder.Stage]int)
	for _, question := range subsection.Questions {
		label := fmt.Sprintf("Subsection %d question %d", subsection.ID, question.ID)

		if seenQuestions[question.ID] {
			warnings = append(warnings, fmt.Sprintf("%s: duplicate question id", label))
		}
		seenQuestions[question.ID] = true
		stageCounts[question.Stage()]++

		if !question.Type.Known() {
			warnings = append(warnings, fmt.Sprintf("%s: unknown question type '%s'", label, question.Type))
			continue
		}

		stage := question.Stage()
		if (stage == docbuilder.StagePre || stage == docbuilder.StagePost) && !question.Type.SupportsStage(stage) {
			warnings = append(warnings, fmt.Sprintf("%s: type '%s' is not supported in the %s stage",
				label, question.Type, stage))
		}

		warnings = append(warnings, questionWarnings(label, question)...)
	}

	for _, stage := range []docbuilder.Stage{docbuilder.StagePre, docbuilder.StagePost} {
		if stageCounts[stage] > 1 {
			warnings = append(warnings, fmt.Sprintf("Subsection %d has %d %s stage questions, only the first is processed",
				subsection.ID, stageCounts[stage], stage))
		}
	}

	return warnings
}

// LintDocument lints every subsection of doc and checks that answers refer
// to known questions.
func LintDocument(doc document.Document) []string {
	var warnings []string

	seenSubsections := make(map[int64]bool, len(doc.Subsections))
	questionIDs := make(map[int64]bool)
	for _, subsection := range doc.Subsections {
		if seenSubsections[subsection.ID] {
			warnings = append(warnings, fmt.Sprintf("Subsection %d: duplicate subsection id", subsection.ID))
		}
		seenSubsections[subsection.ID] = true

		for _, question := range subsection.Questions {
			questionIDs[question.ID] = true
		}
		warnings = append(warnings, LintSubsection(subsection)...)
	}

	for i, answer := range doc.Answers {
		if !questionIDs[answer.QuestionID] {
			warnings = append(warnings, fmt.Sprintf("Answer %d (index %d) refers to unknown question %d",
				answer.ID, i, answer.QuestionID))
		}
	}

	if len(warnings) == 0 {
		return nil
	}
	return warnings
}

func structWarnings(subsection docbuilder.Subsection) []string {
	err := structValidator.Struct(subsection)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return []string{fmt.Sprintf("Subsection %d: %v", subsection.ID, err)}
	}

	warnings := make([]string, 0, len(fieldErrors))
	for _, fieldError := range fieldErrors {
		if fieldError.Param() != "" {
			warnings = append(warnings, fmt.Sprintf("Subsection %d: %s failed '%s=%s' (got '%v')",
				subsection.ID, fieldError.Namespace(), fieldError.Tag(), fieldError.Param(), fieldError.Value()))
			continue
		}
		warnings = append(warnings, fmt.Sprintf("Subsection %d: %s failed '%s'",
			subsection.ID, fieldError.Namespace(), fieldError.Tag()))
	}
	return warnings
}

func questionWarnings(label string, question docbuilder.Question) []string {
	var warnings []string

	switch question.Type {
	case docbuilder.TypeCheckboxes, docbuilder.TypeCheckboxesWithExclude,
		docbuilder.TypeRadios, docbuilder.TypeRadiosWithExclude:
		if len(question.Value.Options) == 0 && question.Value.OtherOption == nil {
			warnings = append(warnings, fmt.Sprintf("%s: no options defined", label))
		}
		seenKeys := make(map[string]bool, len(question.Value.Options))
		for _, option := range question.Value.Options {
			if seenKeys[option.Key] {
				warnings = append(warnings, fmt.Sprintf("%s: duplicate option key '%s'", label, option.Key))
			}
			seenKeys[option.Key] = true
		}
		if other := question.Value.OtherOption; other != nil && seenKeys[other.Key] {
			warnings = append(warnings, fmt.Sprintf("%s: other option key '%s' is also a regular option", label, other.Key))
		}
		if question.Stage() == docbuilder.StagePre && question.Type != docbuilder.TypeCheckboxes &&
			question.Type != docbuilder.TypeRadios && !seenKeys[docbuilder.ResponseExclude] {
			warnings = append(warnings, fmt.Sprintf("%s: pre stage question has no '%s' option",
				label, docbuilder.ResponseExclude))
		}

	case docbuilder.TypeFileUploads:
		if minFiles, maxFiles, bounded := question.Value.FileLimits(); bounded && minFiles > maxFiles {
			warnings = append(warnings, fmt.Sprintf("%s: minFiles %d exceeds maxFiles %d",
				label, minFiles, maxFiles))
		}
	}

	return warnings
}
