package processor

import (
	"github.com/iwvelando/docbuilder/internal/docbuilder"
	"github.com/iwvelando/docbuilder/internal/validator"
)

// AnswersForSubsection builds the answers map for subsection from a flat
// list of answers. Every question id of the subsection is present in the
// map; unanswered questions map to nil. When several answers target the
// same question the first one wins. With returnCopies set the answers are
// deep-copied so the map shares nothing with the input slice.
func AnswersForSubsection(subsection docbuilder.Subsection, answers []docbuilder.Answer, returnCopies bool) docbuilder.AnswersMap {
	result := make(docbuilder.AnswersMap, len(subsection.Questions))
	for _, question := range subsection.Questions {
		result[question.ID] = nil
	}

	remaining := len(result)
	for i := range answers {
		if remaining == 0 {
			break
		}

		answer := &answers[i]
		current, wanted := result[answer.QuestionID]
		if !wanted || current != nil {
			continue
		}

		if returnCopies {
			answer = answer.Clone()
		}
		result[answer.QuestionID] = answer
		remaining--
	}

	return result
}

// InvalidQuestionIDs returns, in question order, the ids of the questions
// of the given stage whose answer does not validate. docbuilder.StageAny
// checks every question.
func InvalidQuestionIDs(questions []docbuilder.Question, answers docbuilder.AnswersMap, stage docbuilder.Stage) ([]int64, error) {
	var invalid []int64
	for _, question := range docbuilder.FilterStage(questions, stage) {
		valid, err := validator.IsValid(question, answers.Value(question.ID))
		if err != nil {
			return nil, err
		}
		if !valid {
			invalid = append(invalid, question.ID)
		}
	}
	return invalid, nil
}
