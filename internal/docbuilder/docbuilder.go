// Package docbuilder defines the data structures shared by the answer
// validator and the subsection processor: questions, answers, subsections
// and the derived subsection status.
package docbuilder

import (
	"errors"
	"fmt"
)

// QuestionType is the question type machine name used to dispatch validation.
type QuestionType string

// Known question types.
const (
	TypeConfirmationCheckbox  QuestionType = "subsection_confirmation_checkbox_v1"
	TypeExclusionRadios       QuestionType = "subsection_exclusion_radios_v1"
	TypeCheckboxes            QuestionType = "text_checkboxes_v1"
	TypeCheckboxesWithExclude QuestionType = "text_checkboxes_with_exclude_v1"
	TypeManualLong            QuestionType = "text_manual_long_v1"
	TypeManualShort           QuestionType = "text_manual_short_v1"
	TypeRadios                QuestionType = "text_radios_v1"
	TypeRadiosWithExclude     QuestionType = "text_radios_with_exclude_v1"
	TypeFileUploads           QuestionType = "file_uploads_v1"
)

// QuestionTypes lists every question type the validator handles.
var QuestionTypes = []QuestionType{
	TypeConfirmationCheckbox,
	TypeExclusionRadios,
	TypeCheckboxes,
	TypeCheckboxesWithExclude,
	TypeManualLong,
	TypeManualShort,
	TypeRadios,
	TypeRadiosWithExclude,
	TypeFileUploads,
}

// Known reports whether t is one of the registered question types.
func (t QuestionType) Known() bool {
	for _, known := range QuestionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// SupportsStage reports whether the subsection processor handles questions
// of type t in the given stage. Every known type may appear in the normal stage.
func (t QuestionType) SupportsStage(stage Stage) bool {
	switch stage {
	case StagePre:
		return t == TypeExclusionRadios || t == TypeCheckboxesWithExclude || t == TypeRadiosWithExclude
	case StagePost:
		return t == TypeConfirmationCheckbox
	case StageNormal:
		return t.Known()
	}
	return false
}

// Stage is the subsection processing stage a question belongs to.
type Stage string

// Processing stages. StageAny is only meaningful as a filter.
const (
	StageAny    Stage = ""
	StagePre    Stage = "pre"
	StageNormal Stage = "normal"
	StagePost   Stage = "post"
)

// Response values with processing semantics.
const (
	ResponseConfirmed   = "confirmed"
	ResponseUnconfirmed = "unconfirmed"
	ResponseInclude     = "include"
	ResponseExclude     = "exclude"
)

// MaxFileNameLength is the longest accepted uploaded file name, in characters.
const MaxFileNameLength = 255

var (
	// ErrUnknownQuestionType is returned when a question's machine name has
	// no registered validator.
	ErrUnknownQuestionType = errors.New("unknown question type")

	// ErrUnsupportedStageType is returned when a question type appears in a
	// processing stage that has no handler for it.
	ErrUnsupportedStageType = errors.New("question type not supported in processing stage")

	// ErrUnknownStage is returned for a processing stage outside pre, normal and post.
	ErrUnknownStage = errors.New("unknown processing stage")
)

// Option is a selectable choice of a checkbox or radio question.
type Option struct {
	Key   string `json:"key" yaml:"key" validate:"required"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// QuestionValue holds the type-specific definition of a question.
type QuestionValue struct {
	SubsectionProcessingStage Stage    `json:"subsectionProcessingStage" yaml:"subsectionProcessingStage" validate:"required,oneof=pre normal post"`
	Options                   []Option `json:"options,omitempty" yaml:"options,omitempty" validate:"dive"`
	OtherOption               *Option  `json:"otherOption,omitempty" yaml:"otherOption,omitempty"`
	MinFiles                  *int     `json:"minFiles,omitempty" yaml:"minFiles,omitempty" validate:"omitempty,gte=0"`
	MaxFiles                  *int     `json:"maxFiles,omitempty" yaml:"maxFiles,omitempty" validate:"omitempty,gte=0"`
}

// FileLimits returns the file count bounds of a file_uploads_v1 question.
// An unset minimum is 0; bounded is false when no maximum is set.
func (v QuestionValue) FileLimits() (minFiles, maxFiles int, bounded bool) {
	if v.MinFiles != nil {
		minFiles = *v.MinFiles
	}
	if v.MaxFiles != nil {
		return minFiles, *v.MaxFiles, true
	}
	return minFiles, 0, false
}

// Question is a single question of a subsection.
type Question struct {
	ID       int64         `json:"id" yaml:"id" validate:"required"`
	Required bool          `json:"required" yaml:"required"`
	Type     QuestionType  `json:"docbuilder_question_type_machine_name" yaml:"docbuilder_question_type_machine_name" validate:"required"`
	Value    QuestionValue `json:"value" yaml:"value"`
}

// Stage returns the processing stage of the question.
func (q Question) Stage() Stage {
	return q.Value.SubsectionProcessingStage
}

// HasOption reports whether key is one of the question's regular option keys.
func (q Question) HasOption(key string) bool {
	for _, option := range q.Value.Options {
		if option.Key == key {
			return true
		}
	}
	return false
}

// IsOtherKey reports whether key selects the question's "other" option.
func (q Question) IsOtherKey(key string) bool {
	return q.Value.OtherOption != nil && q.Value.OtherOption.Key == key
}

// Subsection is an ordered group of questions whose answers resolve to one Status.
type Subsection struct {
	ID        int64      `json:"id" yaml:"id" validate:"required"`
	Name      string     `json:"name,omitempty" yaml:"name,omitempty"`
	Questions []Question `json:"docbuilder_questions" yaml:"docbuilder_questions" validate:"dive"`
}

// QuestionsForStage returns the questions of the given stage in their
// original order. StageAny returns every question.
func (s Subsection) QuestionsForStage(stage Stage) []Question {
	return FilterStage(s.Questions, stage)
}

// FilterStage returns the questions belonging to stage, keeping order.
func FilterStage(questions []Question, stage Stage) []Question {
	if stage == StageAny {
		return questions
	}
	var filtered []Question
	for _, question := range questions {
		if question.Stage() == stage {
			filtered = append(filtered, question)
		}
	}
	return filtered
}

// ValidateStages checks that every question carries a known processing stage.
func (s Subsection) ValidateStages() error {
	for _, question := range s.Questions {
		switch question.Stage() {
		case StagePre, StageNormal, StagePost:
		default:
			return fmt.Errorf("%w %q on question %d of subsection %d",
				ErrUnknownStage, question.Stage(), question.ID, s.ID)
		}
	}
	return nil
}

// FileUpload describes one uploaded file in a file_uploads_v1 response.
type FileUpload struct {
	Name string `json:"name" yaml:"name"`
}

// AnswerValue is the loosely typed value produced by form input. Response
// is a string, a list of strings or a map of file id to file, depending on
// the question type.
type AnswerValue struct {
	Response      any `json:"response,omitempty" yaml:"response,omitempty"`
	OtherResponse any `json:"otherResponse,omitempty" yaml:"otherResponse,omitempty"`
}

// Answer is a stored answer to one question.
type Answer struct {
	ID         int64        `json:"id,omitempty" yaml:"id,omitempty"`
	QuestionID int64        `json:"docbuilder_question_id" yaml:"docbuilder_question_id"`
	Value      *AnswerValue `json:"value" yaml:"value"`
}

// AnswersMap maps question ids to their answers. A nil entry means the
// question has no answer yet.
type AnswersMap map[int64]*Answer

// Value returns the answer value for questionID, or nil when unanswered.
func (m AnswersMap) Value(questionID int64) *AnswerValue {
	answer := m[questionID]
	if answer == nil {
		return nil
	}
	return answer.Value
}
