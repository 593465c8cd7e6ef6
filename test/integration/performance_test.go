package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/iwvelando/docbuilder/internal/docbuilder"
	"github.com/iwvelando/docbuilder/internal/document"
	"github.com/iwvelando/docbuilder/pkg/testutil"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// largeDocument builds a document with n subsections of every shape. Every
// third subsection is excluded, every other one is complete.
func largeDocument(n int) document.Document {
	subsections := make([]docbuilder.Subsection, 0, n)
	var answers []docbuilder.Answer

	for i := 1; i <= n; i++ {
		base := int64(i) * 10
		subsections = append(subsections, testutil.Subsection(int64(i),
			testutil.WithOptions(testutil.Question(base+1, docbuilder.TypeRadiosWithExclude, docbuilder.StagePre, true), "", "exclude", "include"),
			testutil.Question(base+2, docbuilder.TypeManualShort, docbuilder.StageNormal, true),
			testutil.WithOptions(testutil.Question(base+3, docbuilder.TypeCheckboxes, docbuilder.StageNormal, false), "other", "a", "b", "c"),
			testutil.WithFileLimits(testutil.Question(base+4, docbuilder.TypeFileUploads, docbuilder.StageNormal, true), 1, 5),
			testutil.Question(base+5, docbuilder.TypeConfirmationCheckbox, docbuilder.StagePost, true),
		))

		switch {
		case i%3 == 0:
			answers = append(answers, testutil.Answer(base+1, "exclude"))
		case i%2 == 0:
			answers = append(answers,
				testutil.Answer(base+1, "include"),
				testutil.Answer(base+2, fmt.Sprintf("answer %d", i)),
				testutil.OtherAnswer(base+3, []any{"a", "other"}, "details"),
				testutil.Answer(base+4, testutil.Files(3)),
				testutil.Answer(base+5, "confirmed"),
			)
		default:
			answers = append(answers, testutil.Answer(base+1, "include"))
		}
	}

	return testutil.Document(1, subsections, answers...)
}

func expectedStatus(i int) docbuilder.Status {
	switch {
	case i%3 == 0:
		return docbuilder.StatusExcluding
	case i%2 == 0:
		return docbuilder.StatusReady
	}
	return docbuilder.StatusPending
}

func TestPerformance(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping performance test in short mode")
	}

	doc := largeDocument(600)

	for _, workers := range []int{1, 4, 16} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			evaluator := document.NewEvaluator(zap.NewNop(), document.WithWorkers(workers))

			start := time.Now()
			report, err := evaluator.Evaluate(context.Background(), doc)
			elapsed := time.Since(start)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}

			t.Logf("evaluated %d subsections with %d workers in %v", len(report.Subsections), workers, elapsed)
			if elapsed > 10*time.Second {
				t.Errorf("evaluation took too long: %v", elapsed)
			}

			for i, sub := range report.Subsections {
				if want := expectedStatus(i + 1); sub.Status != want {
					t.Fatalf("subsection %d: expected %s, got %s", sub.SubsectionID, want, sub.Status)
				}
			}
		})
	}
}

func TestDataConsistency(t *testing.T) {
	doc := largeDocument(60)
	evaluator := document.NewEvaluator(zap.NewNop(), document.WithWorkers(8))

	first, err := evaluator.Evaluate(context.Background(), doc)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	for run := 0; run < 5; run++ {
		again, err := evaluator.Evaluate(context.Background(), doc)
		if err != nil {
			t.Fatalf("Evaluate() run %d error = %v", run, err)
		}
		for i := range first.Subsections {
			if first.Subsections[i].Status != again.Subsections[i].Status {
				t.Fatalf("run %d: subsection %d changed from %s to %s", run,
					first.Subsections[i].SubsectionID, first.Subsections[i].Status, again.Subsections[i].Status)
			}
		}
		if first.Summary.Resolved != again.Summary.Resolved {
			t.Fatalf("run %d: resolved count changed from %d to %d", run, first.Summary.Resolved, again.Summary.Resolved)
		}
	}
}

func BenchmarkEvaluate(b *testing.B) {
	doc := largeDocument(200)
	evaluator := document.NewEvaluator(zap.NewNop())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := evaluator.Evaluate(context.Background(), doc); err != nil {
			b.Fatal(err)
		}
	}
}
