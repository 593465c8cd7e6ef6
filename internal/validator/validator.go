// Package validator decides whether an answer satisfies the rules of its
// question. Every question type has one rule; the rule is picked from the
// question type machine name.
package validator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/iwvelando/docbuilder/internal/docbuilder"
)

// Rule reports whether value is an acceptable answer to question.
type Rule func(question docbuilder.Question, value *docbuilder.AnswerValue) bool

// RuleFor returns the rule registered for the question type. Types without
// a rule are a configuration error and wrap docbuilder.ErrUnknownQuestionType.
func RuleFor(questionType docbuilder.QuestionType) (Rule, error) {
	switch questionType {
	case docbuilder.TypeConfirmationCheckbox:
		return confirmationCheckbox, nil
	case docbuilder.TypeExclusionRadios:
		return exclusionRadios, nil
	case docbuilder.TypeCheckboxes, docbuilder.TypeCheckboxesWithExclude:
		return checkboxes, nil
	case docbuilder.TypeManualLong, docbuilder.TypeManualShort:
		return manualText, nil
	case docbuilder.TypeRadios, docbuilder.TypeRadiosWithExclude:
		return radios, nil
	case docbuilder.TypeFileUploads:
		return fileUploads, nil
	}
	return nil, fmt.Errorf("%w: %q", docbuilder.ErrUnknownQuestionType, string(questionType))
}

// IsValid reports whether value is an acceptable answer to question. A nil
// value means the question has not been answered; that is only acceptable
// for questions that are not required.
func IsValid(question docbuilder.Question, value *docbuilder.AnswerValue) (bool, error) {
	rule, err := RuleFor(question.Type)
	if err != nil {
		return false, fmt.Errorf("question %d: %w", question.ID, err)
	}
	return rule(question, value), nil
}

// unanswered reports whether the value carries no response at all.
func unanswered(value *docbuilder.AnswerValue) bool {
	return value == nil || value.Response == nil
}

func confirmationCheckbox(question docbuilder.Question, value *docbuilder.AnswerValue) bool {
	if unanswered(value) {
		return !question.Required
	}
	response, ok := value.ResponseString()
	if !ok {
		return false
	}

	switch response {
	case "":
		return !question.Required
	case docbuilder.ResponseConfirmed:
		return true
	case docbuilder.ResponseUnconfirmed:
		return !question.Required
	}
	return false
}

func exclusionRadios(question docbuilder.Question, value *docbuilder.AnswerValue) bool {
	if unanswered(value) {
		return !question.Required
	}
	response, ok := value.ResponseString()
	if !ok {
		return false
	}

	switch response {
	case "":
		return !question.Required
	case docbuilder.ResponseInclude, docbuilder.ResponseExclude:
		return true
	}
	return false
}

func checkboxes(question docbuilder.Question, value *docbuilder.AnswerValue) bool {
	if unanswered(value) {
		return !question.Required
	}
	selected, ok := value.ResponseStrings()
	if !ok {
		return false
	}
	if len(selected) == 0 {
		return !question.Required
	}

	otherSelected := false
	for _, key := range selected {
		switch {
		case question.HasOption(key):
		case question.IsOtherKey(key):
			otherSelected = true
		default:
			return false
		}
	}

	if otherSelected {
		return hasOtherResponse(value)
	}
	return true
}

func manualText(question docbuilder.Question, value *docbuilder.AnswerValue) bool {
	if unanswered(value) {
		return !question.Required
	}
	response, ok := value.ResponseString()
	if !ok {
		return false
	}
	if response == "" {
		return !question.Required
	}
	return true
}

func radios(question docbuilder.Question, value *docbuilder.AnswerValue) bool {
	if unanswered(value) {
		return !question.Required
	}
	response, ok := value.ResponseString()
	if !ok {
		return false
	}
	if response == "" {
		return !question.Required
	}

	key := strings.TrimSpace(response)
	if question.HasOption(key) {
		return true
	}
	if question.IsOtherKey(key) {
		return hasOtherResponse(value)
	}
	return false
}

func fileUploads(question docbuilder.Question, value *docbuilder.AnswerValue) bool {
	if unanswered(value) {
		return !question.Required
	}
	files, entriesValid, ok := value.ResponseFiles()
	if !ok {
		return false
	}

	count := len(files)
	if count == 0 {
		return !question.Required
	}
	minFiles, maxFiles, bounded := question.Value.FileLimits()
	if count < minFiles {
		return false
	}
	if bounded && count > maxFiles {
		return false
	}
	if !entriesValid {
		return false
	}

	for id, file := range files {
		if !isNumericID(id) {
			return false
		}
		length := utf8.RuneCountInString(file.Name)
		if length < 1 || length > docbuilder.MaxFileNameLength {
			return false
		}
	}
	return true
}

// hasOtherResponse reports whether the free-text "other" response is a
// non-blank string.
func hasOtherResponse(value *docbuilder.AnswerValue) bool {
	other, ok := value.OtherResponseString()
	return ok && strings.TrimSpace(other) != ""
}

func isNumericID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
