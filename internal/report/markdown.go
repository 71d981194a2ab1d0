package report

import (
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/roadworks/internal/model"
)

// MarkdownWriter outputs a run report as GitHub-flavored Markdown, with a
// mermaid pie chart of the format distribution.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	if report.Fetch != nil {
		w.writeFetch(md, report.Fetch)
	}
	if report.Sort != nil {
		w.writeSort(md, report.Sort)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.RunReport) {
	md.H1("Roadworks Run Report")
	md.PlainText("")

	rows := [][]string{
		{"Run ID", "`" + report.ID + "`"},
		{"Command", string(report.Kind)},
		{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
	}
	if d := report.Duration(); d > 0 {
		rows = append(rows, []string{"Duration", d.Round(time.Millisecond).String()})
	}
	rows = append(rows, []string{"Status", status(report)})

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	if report.Failed() {
		md.Cautionf("The run stopped early: %s", report.ErrorMessage)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeFetch(md *markdown.Markdown, s *model.FetchSummary) {
	md.H2("Downloads")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"Links found", strconv.Itoa(s.Found)},
			{"Downloaded", strconv.Itoa(s.Downloaded) + " (" + humanize.Bytes(uint64(s.Bytes)) + ")"}, //nolint:gosec // never negative
			{"Skipped (already present)", strconv.Itoa(s.Skipped)},
			{"Failed", strconv.Itoa(s.Failed)},
		},
	})
	md.PlainText("")

	failed := failedDownloads(s)
	if len(failed) == 0 {
		return
	}
	md.PlainText("### Failed downloads")
	md.PlainText("")
	rows := make([][]string, len(failed))
	for i, r := range failed {
		rows[i] = []string{r.URL, truncateString(r.Error, 80)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSort(md *markdown.Markdown, s *model.SortSummary) {
	md.H2("Format Sorting")
	md.PlainText("")

	rows := [][]string{
		{"New (`" + model.NewFormatRoot + "`)", s.NewFormatDir, strconv.Itoa(s.MovedNew)},
		{"Old (`" + model.OldFormatRoot + "`)", s.OldFormatDir, strconv.Itoa(s.MovedOld)},
		{"Unknown", s.UnknownFormatDir, strconv.Itoa(s.MovedUnknown())},
	}
	if s.MoveFailed > 0 {
		rows = append(rows, []string{"Not moved", s.SourceDir, strconv.Itoa(s.MoveFailed)})
	}
	rows = append(rows, []string{"**Total**", "", "**" + strconv.Itoa(s.Processed) + "**"})

	md.Table(markdown.TableSet{
		Header: []string{"Format", "Directory", "Files"},
		Rows:   rows,
	})
	md.PlainText("")

	if s.MovedNew+s.MovedOld+s.MovedUnknown() > 0 {
		w.writePieChart(md, s)
	}

	switch {
	case s.MoveFailed > 0:
		md.Warningf("%d file(s) could not be moved and remain in %s.", s.MoveFailed, s.SourceDir)
	case s.MovedUnknown() > 0:
		md.Importantf("%d file(s) were not recognized as either format.", s.MovedUnknown())
	case s.Processed > 0:
		md.Tip("Every file matched a known format.")
	}
	md.PlainText("")

	problems := unsortedFiles(s)
	if len(problems) == 0 {
		return
	}
	md.PlainText("### Files needing attention")
	md.PlainText("")
	problemRows := make([][]string, len(problems))
	for i, c := range problems {
		problemRows[i] = []string{c.Filename, truncateString(problem(c), 80)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"File", "Reason"},
		Rows:   problemRows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s *model.SortSummary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Format Distribution"),
		piechart.WithShowData(true),
	)

	if s.MovedNew > 0 {
		chart.LabelAndIntValue("New", uint64(s.MovedNew)) //nolint:gosec // counters are non-negative
	}
	if s.MovedOld > 0 {
		chart.LabelAndIntValue("Old", uint64(s.MovedOld)) //nolint:gosec // counters are non-negative
	}
	if s.MovedUnknown() > 0 {
		chart.LabelAndIntValue("Unknown", uint64(s.MovedUnknown())) //nolint:gosec // counters are non-negative
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by roadworks*")
}

// truncateString truncates a string to maxLen bytes with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
