// Package model defines the core data structures shared by the roadworks
// pipeline stages.
//
// This package contains the following main types:
//   - Candidate: An XML download link discovered in the listing page
//   - DownloadResult: The outcome of fetching one candidate
//   - Classification: The outcome of sorting one downloaded file
//   - FetchSummary, SortSummary: Per-run counters and item outcomes
//   - RunReport: Everything a single CLI invocation did
//
// Models live in their own package so that fetch, sorter, pipeline, report
// and database can all use them without import cycles. They are serializable
// to JSON for report output.
package model
