// Package report renders run reports.
//
// Writers:
//   - SimpleWriter: plain text summary for the terminal
//   - MarkdownWriter: Markdown with tables and a format distribution chart
//   - JSONWriter: JSON for scripts, optionally wrapped with the tool version
//
// All writers implement Writer, and MultiWriter fans a report out to
// several of them.
package report
