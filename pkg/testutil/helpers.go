// Package testutil provides common utility functions for testing.
package testutil

import (
	"strconv"

	"github.com/iwvelando/docbuilder/internal/docbuilder"
	"github.com/iwvelando/docbuilder/internal/document"
)

// Question builds a question of the given type and stage.
func Question(id int64, questionType docbuilder.QuestionType, stage docbuilder.Stage, required bool) docbuilder.Question {
	return docbuilder.Question{
		ID:       id,
		Required: required,
		Type:     questionType,
		Value: docbuilder.QuestionValue{
			SubsectionProcessingStage: stage,
		},
	}
}

// WithOptions returns q with the given option keys and, when other is not
// empty, an "other" option with that key.
func WithOptions(q docbuilder.Question, other string, keys ...string) docbuilder.Question {
	q.Value.Options = nil
	for _, key := range keys {
		q.Value.Options = append(q.Value.Options, docbuilder.Option{Key: key, Label: key})
	}
	if other != "" {
		q.Value.OtherOption = &docbuilder.Option{Key: other, Label: other}
	}
	return q
}

// WithFileLimits returns q with the given file count bounds.
func WithFileLimits(q docbuilder.Question, minFiles, maxFiles int) docbuilder.Question {
	q = WithMinFiles(q, minFiles)
	q.Value.MaxFiles = &maxFiles
	return q
}

// WithMinFiles returns q with a minimum file count and no maximum.
func WithMinFiles(q docbuilder.Question, minFiles int) docbuilder.Question {
	q.Value.MinFiles = &minFiles
	q.Value.MaxFiles = nil
	return q
}

// Subsection builds a subsection from questions.
func Subsection(id int64, questions ...docbuilder.Question) docbuilder.Subsection {
	return docbuilder.Subsection{ID: id, Questions: questions}
}

// Answer builds an answer with the given response.
func Answer(questionID int64, response any) docbuilder.Answer {
	return docbuilder.Answer{
		ID:         questionID * 100,
		QuestionID: questionID,
		Value:      &docbuilder.AnswerValue{Response: response},
	}
}

// OtherAnswer builds an answer with a response and an "other" free-text response.
func OtherAnswer(questionID int64, response any, other string) docbuilder.Answer {
	answer := Answer(questionID, response)
	answer.Value.OtherResponse = other
	return answer
}

// Files builds a file_uploads_v1 response with count files named after their id.
func Files(count int) map[string]any {
	files := make(map[string]any, count)
	for i := 1; i <= count; i++ {
		id := strconv.Itoa(i)
		files[id] = map[string]any{"name": "file-" + id + ".pdf"}
	}
	return files
}

// Document builds a document from subsections and answers.
func Document(id int64, subsections []docbuilder.Subsection, answers ...docbuilder.Answer) document.Document {
	return document.Document{ID: id, Subsections: subsections, Answers: answers}
}

// FindReport finds a subsection report by subsection id.
// Returns a pointer to the report if found, nil otherwise.
func FindReport(report *document.Report, subsectionID int64) *document.SubsectionReport {
	if report == nil {
		return nil
	}
	for i := range report.Subsections {
		if report.Subsections[i].SubsectionID == subsectionID {
			return &report.Subsections[i]
		}
	}
	return nil
}
