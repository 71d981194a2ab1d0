package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/nao1215/roadworks/internal/model"
)

// SimpleWriter outputs a plain text run summary for the terminal.
type SimpleWriter struct {
	baseWriter

	// verbose lists every processed item, not only the problems.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables listing of every item.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the run summary.
func (w *SimpleWriter) Write(report *model.RunReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	if report.Fetch != nil {
		w.writeFetch(&sb, report.Fetch)
	}
	if report.Sort != nil {
		w.writeSort(&sb, report.Sort)
	}
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.RunReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("ROADWORKS RUN SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Run ID:   %s\n", report.ID)
	fmt.Fprintf(sb, "Command:  %s\n", report.Kind)
	fmt.Fprintf(sb, "Started:  %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST"))
	if d := report.Duration(); d > 0 {
		fmt.Fprintf(sb, "Duration: %s\n", d.Round(time.Millisecond))
	}
	fmt.Fprintf(sb, "Status:   %s\n\n", status(report))
}

func (w *SimpleWriter) writeFetch(sb *strings.Builder, s *model.FetchSummary) {
	section(sb, "DOWNLOADS")

	fmt.Fprintf(sb, "  Links found:  %d\n", s.Found)
	fmt.Fprintf(sb, "  Downloaded:   %d (%s)\n", s.Downloaded, humanize.Bytes(uint64(s.Bytes))) //nolint:gosec // never negative
	fmt.Fprintf(sb, "  Skipped:      %d\n", s.Skipped)
	fmt.Fprintf(sb, "  Failed:       %d\n", s.Failed)
	sb.WriteString("\n")

	results := s.Results
	if !w.verbose {
		results = failedDownloads(s)
	}
	for _, r := range results {
		fmt.Fprintf(sb, "  [%s] %s\n", r.Status, r.URL)
		if r.Error != "" {
			fmt.Fprintf(sb, "      %s\n", r.Error)
		}
	}
	if len(results) > 0 {
		sb.WriteString("\n")
	}
}

func (w *SimpleWriter) writeSort(sb *strings.Builder, s *model.SortSummary) {
	section(sb, "FORMAT SORTING")

	fmt.Fprintf(sb, "  XML files processed: %d\n", s.Processed)
	fmt.Fprintf(sb, "  New format:          %d\n", s.MovedNew)
	fmt.Fprintf(sb, "  Old format:          %d\n", s.MovedOld)
	fmt.Fprintf(sb, "  Unknown format:      %d (%d parse errors)\n", s.MovedUnknown(), s.ParseErrors)
	if s.MoveFailed > 0 {
		fmt.Fprintf(sb, "  Not moved:           %d\n", s.MoveFailed)
	}
	if s.Renamed > 0 {
		fmt.Fprintf(sb, "  Renamed:             %d\n", s.Renamed)
	}
	sb.WriteString("\n")

	if w.verbose {
		for _, c := range s.Results {
			fmt.Fprintf(sb, "  [%s] %s -> %s\n", c.Format, c.Filename, destination(c))
		}
		if len(s.Results) > 0 {
			sb.WriteString("\n")
		}
		return
	}
	problems := unsortedFiles(s)
	for _, c := range problems {
		fmt.Fprintf(sb, "  [!] %s: %s\n", c.Filename, problem(c))
	}
	if len(problems) > 0 {
		sb.WriteString("\n")
	}
}

func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

func destination(c model.Classification) string {
	if c.Destination == "" {
		return "(not moved)"
	}
	return c.Destination
}
