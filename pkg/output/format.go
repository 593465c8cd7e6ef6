// Package output provides utilities for formatting and displaying document reports.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/iwvelando/docbuilder/internal/docbuilder"
	"github.com/iwvelando/docbuilder/internal/document"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formatter writes reports in the human-readable format.
type Formatter struct {
	colors map[docbuilder.Status]*color.Color
}

// NewFormatter creates a pretty formatter. Colors are only emitted when
// colorize is true.
func NewFormatter(colorize bool) *Formatter {
	colors := map[docbuilder.Status]*color.Color{
		docbuilder.StatusPending:       color.New(color.FgYellow),
		docbuilder.StatusReady:         color.New(color.FgGreen, color.Bold),
		docbuilder.StatusExcluding:     color.New(color.FgCyan),
		docbuilder.StatusNotApplicable: color.New(color.Faint),
	}
	for _, c := range colors {
		if colorize {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return &Formatter{colors: colors}
}

// PrettyFormat outputs a human-readable rather than machine-readable table.
func PrettyFormat(w io.Writer, report *document.Report, colorize bool) {
	NewFormatter(colorize).Pretty(w, report)
}

// Pretty outputs a human-readable table for report.
func (f *Formatter) Pretty(w io.Writer, report *document.Report) {
	p := message.NewPrinter(language.English)

	title := report.Name
	if title == "" {
		title = fmt.Sprintf("%d", report.DocumentID)
	}
	_, _ = fmt.Fprintf(w, "--- Results for document %s ---\n", title)
	_, _ = fmt.Fprintf(w, "Subsection | Status         | Questions | Invalid\n")
	_, _ = fmt.Fprintf(w, "__________ | ______________ | _________ | _______\n")
	for _, subsection := range report.Subsections {
		name := strconv.FormatInt(subsection.SubsectionID, 10)
		if subsection.Name != "" {
			name = fmt.Sprintf("%s (%s)", name, subsection.Name)
		}
		_, _ = fmt.Fprintf(w, "%s | %s | %d | %s\n",
			name,
			f.status(subsection.Status),
			subsection.Questions,
			joinIDs(subsection.InvalidQuestionIDs, ","),
		)
	}

	summary := report.Summary
	_, _ = p.Fprintf(w, "\nResolved %d of %d subsections (%.1f%%)", summary.Resolved, summary.Total, summary.Progress)
	if summary.Complete {
		_, _ = fmt.Fprintf(w, " - complete\n")
	} else {
		_, _ = fmt.Fprintf(w, "\n")
	}
}

func (f *Formatter) status(status docbuilder.Status) string {
	label := fmt.Sprintf("%-14s", status.String())
	if c, ok := f.colors[status]; ok {
		return c.Sprint(label)
	}
	return label
}

// CsvFormat outputs in comma-separated value format.
func CsvFormat(w io.Writer, report *document.Report) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"subsection", "name", "status", "status code", "questions", "invalid questions"}); err != nil {
		return err
	}
	for _, subsection := range report.Subsections {
		record := []string{
			strconv.FormatInt(subsection.SubsectionID, 10),
			subsection.Name,
			subsection.Status.String(),
			strconv.Itoa(int(subsection.Status)),
			strconv.Itoa(subsection.Questions),
			joinIDs(subsection.InvalidQuestionIDs, " "),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// JSONFormat outputs the report as indented JSON.
func JSONFormat(w io.Writer, report *document.Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func joinIDs(ids []int64, sep string) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, sep)
}
