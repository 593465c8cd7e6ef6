// Package processor derives the aggregate status of a subsection from its
// questions and answers. Evaluation runs in three fixed stages: the pre
// stage (exclusion questions), the normal stage (every regular question)
// and the post stage (a final confirmation).
package processor

import (
	"fmt"
	"slices"
	"strings"

	"github.com/iwvelando/docbuilder/internal/docbuilder"
	"github.com/iwvelando/docbuilder/internal/validator"
	"go.uber.org/zap"
)

// Processor computes subsection statuses.
type Processor struct {
	logger *zap.Logger
}

// Result is the outcome of evaluating one subsection.
type Result struct {
	SubsectionID       int64             `json:"subsectionId"`
	Status             docbuilder.Status `json:"status"`
	InvalidQuestionIDs []int64           `json:"invalidQuestionIds"`
}

// NewProcessor creates a new subsection processor.
func NewProcessor(logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{logger: logger}
}

// DefaultStatus is the status to show before answers are loaded.
func DefaultStatus(subsection docbuilder.Subsection) docbuilder.Status {
	if len(subsection.Questions) == 0 {
		return docbuilder.StatusNotApplicable
	}
	return docbuilder.StatusPending
}

// CalculateStatus computes the status of subsection from answers. Neither
// argument is modified. Invalid answers resolve to StatusPending.
//
// Errors are configuration errors: a question type with no rule or no
// handler for its stage wraps docbuilder.ErrUnknownQuestionType or
// docbuilder.ErrUnsupportedStageType, and a subsectionProcessingStage that
// is missing or not one of pre, normal and post wraps
// docbuilder.ErrUnknownStage. Stages are checked for every question before
// any answer is looked at.
func (p *Processor) CalculateStatus(subsection docbuilder.Subsection, answers docbuilder.AnswersMap) (docbuilder.Status, error) {
	if len(subsection.Questions) == 0 {
		return docbuilder.StatusNotApplicable, nil
	}
	if err := subsection.ValidateStages(); err != nil {
		return 0, err
	}

	status, done, err := p.processPreStage(subsection, answers)
	if err != nil || done {
		return status, err
	}

	invalid, err := InvalidQuestionIDs(subsection.Questions, answers, docbuilder.StageNormal)
	if err != nil {
		return 0, err
	}
	if len(invalid) > 0 {
		p.logger.Debug("normal stage has invalid answers",
			zap.String("op", "processor.CalculateStatus"),
			zap.Int64("subsection", subsection.ID),
			zap.Int64s("questions", invalid),
		)
		return docbuilder.StatusPending, nil
	}

	return p.processPostStage(subsection, answers)
}

// Evaluate computes the status of subsection together with the ids of
// every question whose answer is currently invalid.
func (p *Processor) Evaluate(subsection docbuilder.Subsection, answers docbuilder.AnswersMap) (Result, error) {
	result := Result{SubsectionID: subsection.ID}

	status, err := p.CalculateStatus(subsection, answers)
	if err != nil {
		return result, fmt.Errorf("subsection %d: %w", subsection.ID, err)
	}
	result.Status = status

	invalid, err := InvalidQuestionIDs(subsection.Questions, answers, docbuilder.StageAny)
	if err != nil {
		return result, fmt.Errorf("subsection %d: %w", subsection.ID, err)
	}
	result.InvalidQuestionIDs = invalid
	if result.InvalidQuestionIDs == nil {
		result.InvalidQuestionIDs = []int64{}
	}

	return result, nil
}

// processPreStage handles the exclusion question of the subsection, if any.
// done is true when the returned status is final.
func (p *Processor) processPreStage(subsection docbuilder.Subsection, answers docbuilder.AnswersMap) (docbuilder.Status, bool, error) {
	question, found := stageQuestion(subsection, docbuilder.StagePre)
	if !found {
		return docbuilder.StatusPending, false, nil
	}

	value := answers.Value(question.ID)
	valid, err := validator.IsValid(question, value)
	if err != nil {
		return 0, true, err
	}
	if !valid {
		p.logger.Debug("pre stage answer is invalid",
			zap.String("op", "processor.processPreStage"),
			zap.Int64("subsection", subsection.ID),
			zap.Int64("question", question.ID),
		)
		return docbuilder.StatusPending, true, nil
	}

	switch question.Type {
	case docbuilder.TypeExclusionRadios:
		if response, _ := value.ResponseString(); response == docbuilder.ResponseExclude {
			return p.excluded(subsection, question), true, nil
		}
		return docbuilder.StatusPending, false, nil

	case docbuilder.TypeCheckboxesWithExclude:
		if selected, _ := value.ResponseStrings(); slices.Contains(selected, docbuilder.ResponseExclude) {
			return p.excluded(subsection, question), true, nil
		}
		return p.sweepPreStage(subsection, answers)

	case docbuilder.TypeRadiosWithExclude:
		if response, _ := value.ResponseString(); strings.TrimSpace(response) == docbuilder.ResponseExclude {
			return p.excluded(subsection, question), true, nil
		}
		return p.sweepPreStage(subsection, answers)
	}

	return 0, true, fmt.Errorf("%w: %q in %s stage of subsection %d",
		docbuilder.ErrUnsupportedStageType, string(question.Type), docbuilder.StagePre, subsection.ID)
}

// sweepPreStage re-checks every pre stage question after a non-excluding answer.
func (p *Processor) sweepPreStage(subsection docbuilder.Subsection, answers docbuilder.AnswersMap) (docbuilder.Status, bool, error) {
	invalid, err := InvalidQuestionIDs(subsection.Questions, answers, docbuilder.StagePre)
	if err != nil {
		return 0, true, err
	}
	if len(invalid) > 0 {
		p.logger.Debug("pre stage has invalid answers",
			zap.String("op", "processor.sweepPreStage"),
			zap.Int64("subsection", subsection.ID),
			zap.Int64s("questions", invalid),
		)
		return docbuilder.StatusPending, true, nil
	}
	return docbuilder.StatusPending, false, nil
}

func (p *Processor) excluded(subsection docbuilder.Subsection, question docbuilder.Question) docbuilder.Status {
	p.logger.Debug("subsection excluded",
		zap.String("op", "processor.processPreStage"),
		zap.Int64("subsection", subsection.ID),
		zap.Int64("question", question.ID),
		zap.String("type", string(question.Type)),
	)
	return docbuilder.StatusExcluding
}

// processPostStage handles the final confirmation question, if any. It is
// only reached once the pre and normal stages no longer block.
func (p *Processor) processPostStage(subsection docbuilder.Subsection, answers docbuilder.AnswersMap) (docbuilder.Status, error) {
	question, found := stageQuestion(subsection, docbuilder.StagePost)
	if !found {
		return docbuilder.StatusReady, nil
	}

	value := answers.Value(question.ID)
	valid, err := validator.IsValid(question, value)
	if err != nil {
		return 0, err
	}
	if !valid {
		return docbuilder.StatusPending, nil
	}

	switch question.Type {
	case docbuilder.TypeConfirmationCheckbox:
		if response, _ := value.ResponseString(); response == docbuilder.ResponseConfirmed {
			return docbuilder.StatusReady, nil
		}
		p.logger.Debug("subsection awaiting confirmation",
			zap.String("op", "processor.processPostStage"),
			zap.Int64("subsection", subsection.ID),
			zap.Int64("question", question.ID),
		)
		return docbuilder.StatusPending, nil
	}

	return 0, fmt.Errorf("%w: %q in %s stage of subsection %d",
		docbuilder.ErrUnsupportedStageType, string(question.Type), docbuilder.StagePost, subsection.ID)
}

// stageQuestion returns the first question of the given stage. Subsections
// carry at most one pre and one post question.
func stageQuestion(subsection docbuilder.Subsection, stage docbuilder.Stage) (docbuilder.Question, bool) {
	for _, question := range subsection.Questions {
		if question.Stage() == stage {
			return question, true
		}
	}
	return docbuilder.Question{}, false
}
