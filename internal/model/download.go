package model

// Candidate is an absolute URL believed to reference an XML resource.
// Candidates only exist for the duration of a fetch run.
type Candidate struct {
	// URL is the fully resolved, deduplicated URL.
	URL string `json:"url"`

	// Index is the position of the candidate in discovery order, starting at 0.
	// It seeds the synthetic filename when the URL has no basename.
	Index int `json:"index"`
}

// DownloadStatus is the outcome of processing one candidate.
type DownloadStatus string

const (
	// DownloadStatusDownloaded means the file was fetched and written.
	DownloadStatusDownloaded DownloadStatus = "downloaded"

	// DownloadStatusSkipped means a file of the same name already existed
	// and no request was made.
	DownloadStatusSkipped DownloadStatus = "skipped"

	// DownloadStatusFailed means the request or the write failed.
	DownloadStatusFailed DownloadStatus = "failed"
)

// DownloadResult records what happened to a single candidate.
type DownloadResult struct {
	// URL is the URL that was requested, after doubled-scheme cleanup.
	URL string `json:"url"`

	// Filename is the derived name inside the download directory.
	Filename string `json:"filename"`

	// Path is the full target path.
	Path string `json:"path"`

	// Status is the outcome.
	Status DownloadStatus `json:"status"`

	// Bytes is the number of body bytes written. Zero unless downloaded.
	Bytes int64 `json:"bytes"`

	// Error is the failure reason, empty unless Status is failed.
	Error string `json:"error,omitempty"`
}

// FetchSummary holds the counters and item outcomes of one fetch run.
type FetchSummary struct {
	// HTMLPath and DownloadDir echo the inputs of the run.
	HTMLPath    string `json:"html_path"`
	DownloadDir string `json:"download_dir"`

	// Found is the number of deduplicated candidates.
	Found int `json:"found"`

	Downloaded int `json:"downloaded"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`

	// Bytes is the total number of body bytes written.
	Bytes int64 `json:"bytes"`

	// Results holds one entry per candidate in discovery order.
	Results []DownloadResult `json:"results,omitempty"`
}

// Record appends a result and updates the counters.
func (s *FetchSummary) Record(r DownloadResult) {
	switch r.Status {
	case DownloadStatusDownloaded:
		s.Downloaded++
		s.Bytes += r.Bytes
	case DownloadStatusSkipped:
		s.Skipped++
	case DownloadStatusFailed:
		s.Failed++
	}
	s.Results = append(s.Results, r)
}
