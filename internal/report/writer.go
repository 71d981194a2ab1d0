package report

import (
	"io"

	"github.com/nao1215/roadworks/internal/model"
)

// Writer writes a run report in some output format.
type Writer interface {
	// Write outputs the report and returns the number of bytes written.
	Write(report *model.RunReport) (int, error)
}

// MultiWriter writes a report to several Writers, for example a text
// summary to the terminal and a Markdown file to disk.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// It stops on the first error.
func (m *MultiWriter) Write(report *model.RunReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// status returns a one-line status for the run.
func status(report *model.RunReport) string {
	switch {
	case report.Cancelled:
		return "Cancelled (partial results)"
	case report.Failed():
		return "Error - " + report.ErrorMessage
	default:
		return "Complete"
	}
}

// failedDownloads returns the download results that failed.
func failedDownloads(s *model.FetchSummary) []model.DownloadResult {
	if s == nil {
		return nil
	}
	failed := make([]model.DownloadResult, 0, s.Failed)
	for _, r := range s.Results {
		if r.Status == model.DownloadStatusFailed {
			failed = append(failed, r)
		}
	}
	return failed
}

// unsortedFiles returns the classifications that did not end in the new or
// old bucket: unrecognized roots, parse errors and failed moves.
func unsortedFiles(s *model.SortSummary) []model.Classification {
	if s == nil {
		return nil
	}
	out := make([]model.Classification, 0)
	for _, c := range s.Results {
		if c.Format == model.FormatUnknown || !c.Moved() {
			out = append(out, c)
		}
	}
	return out
}

// problem describes why a classification ended up in unsortedFiles.
func problem(c model.Classification) string {
	switch {
	case c.MoveError != "":
		return "move failed: " + c.MoveError
	case c.ParseError != "":
		return "parse error: " + c.ParseError
	default:
		return "unrecognized root " + c.Root
	}
}
