// Package document evaluates every subsection of a document and summarises
// how far the document has progressed.
package document

import (
	"context"
	"fmt"

	"github.com/iwvelando/docbuilder/internal/docbuilder"
	"github.com/iwvelando/docbuilder/internal/processor"
	"github.com/iwvelando/docbuilder/pkg/constants"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Document is a set of subsections together with every stored answer.
type Document struct {
	ID          int64                   `json:"id" yaml:"id"`
	Name        string                  `json:"name,omitempty" yaml:"name,omitempty"`
	Subsections []docbuilder.Subsection `json:"subsections" yaml:"subsections"`
	Answers     []docbuilder.Answer     `json:"answers" yaml:"answers"`
}

// SubsectionReport is the evaluation of one subsection.
type SubsectionReport struct {
	processor.Result
	Name       string `json:"name,omitempty"`
	StatusName string `json:"statusName"`
	Questions  int    `json:"questions"`
}

// Summary aggregates the statuses of a document.
type Summary struct {
	Counts   map[string]int `json:"counts"`
	Total    int            `json:"total"`
	Resolved int            `json:"resolved"`
	Progress float64        `json:"progress"`
	Complete bool           `json:"complete"`
}

// Report is the evaluation of a whole document.
type Report struct {
	DocumentID  int64              `json:"documentId"`
	Name        string             `json:"name,omitempty"`
	Subsections []SubsectionReport `json:"subsections"`
	Summary     Summary            `json:"summary"`
}

// Evaluator computes reports for documents.
type Evaluator struct {
	logger       *zap.Logger
	processor    *processor.Processor
	workers      int
	returnCopies bool
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithWorkers sets how many subsections are evaluated at once.
func WithWorkers(workers int) Option {
	return func(e *Evaluator) {
		if workers > 0 {
			e.workers = workers
		}
	}
}

// WithReturnCopies makes every answers map a deep copy of the stored answers.
func WithReturnCopies(returnCopies bool) Option {
	return func(e *Evaluator) {
		e.returnCopies = returnCopies
	}
}

// NewEvaluator creates a new document evaluator.
func NewEvaluator(logger *zap.Logger, opts ...Option) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Evaluator{
		logger:    logger,
		processor: processor.NewProcessor(logger),
		workers:   constants.DefaultWorkers,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate computes the status of every subsection of doc. Subsections are
// evaluated concurrently; the report keeps the document's subsection order.
// The first configuration error cancels the remaining evaluations.
func (e *Evaluator) Evaluate(ctx context.Context, doc Document) (*Report, error) {
	reports := make([]SubsectionReport, len(doc.Subsections))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, subsection := range doc.Subsections {
		i, subsection := i, subsection
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			answers := processor.AnswersForSubsection(subsection, doc.Answers, e.returnCopies)
			result, err := e.processor.Evaluate(subsection, answers)
			if err != nil {
				return err
			}
			reports[i] = newSubsectionReport(subsection, result)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.logger.Error("document evaluation failed",
			zap.String("op", "document.Evaluate"),
			zap.Int64("document", doc.ID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to evaluate document %d: %w", doc.ID, err)
	}

	report := &Report{
		DocumentID:  doc.ID,
		Name:        doc.Name,
		Subsections: reports,
		Summary:     Summarize(reports),
	}

	e.logger.Info("document evaluated",
		zap.String("op", "document.Evaluate"),
		zap.Int64("document", doc.ID),
		zap.Int("subsections", report.Summary.Total),
		zap.Int("resolved", report.Summary.Resolved),
		zap.Bool("complete", report.Summary.Complete),
	)

	return report, nil
}

// DefaultReport reports the default status of every subsection, for use
// before answers have been loaded.
func DefaultReport(doc Document) *Report {
	reports := make([]SubsectionReport, 0, len(doc.Subsections))
	for _, subsection := range doc.Subsections {
		reports = append(reports, newSubsectionReport(subsection, processor.Result{
			SubsectionID:       subsection.ID,
			Status:             processor.DefaultStatus(subsection),
			InvalidQuestionIDs: []int64{},
		}))
	}
	return &Report{
		DocumentID:  doc.ID,
		Name:        doc.Name,
		Subsections: reports,
		Summary:     Summarize(reports),
	}
}

// Summarize counts the statuses of reports. A document without subsections
// is complete.
func Summarize(reports []SubsectionReport) Summary {
	summary := Summary{
		Counts: make(map[string]int, len(docbuilder.Statuses)),
		Total:  len(reports),
	}
	for _, status := range docbuilder.Statuses {
		summary.Counts[status.String()] = 0
	}

	for _, report := range reports {
		summary.Counts[report.Status.String()]++
		if report.Status.Resolved() {
			summary.Resolved++
		}
	}

	summary.Complete = summary.Resolved == summary.Total
	if summary.Total == 0 {
		summary.Progress = 100
	} else {
		summary.Progress = float64(summary.Resolved) * 100 / float64(summary.Total)
	}
	return summary
}

// FindSubsection returns the subsection with the given id.
func (d Document) FindSubsection(id int64) (docbuilder.Subsection, bool) {
	for _, subsection := range d.Subsections {
		if subsection.ID == id {
			return subsection, true
		}
	}
	return docbuilder.Subsection{}, false
}

// FindQuestion returns the question with the given id and its subsection.
func (d Document) FindQuestion(id int64) (docbuilder.Question, docbuilder.Subsection, bool) {
	for _, subsection := range d.Subsections {
		for _, question := range subsection.Questions {
			if question.ID == id {
				return question, subsection, true
			}
		}
	}
	return docbuilder.Question{}, docbuilder.Subsection{}, false
}

func newSubsectionReport(subsection docbuilder.Subsection, result processor.Result) SubsectionReport {
	return SubsectionReport{
		Result:     result,
		Name:       subsection.Name,
		StatusName: result.Status.String(),
		Questions:  len(subsection.Questions),
	}
}
