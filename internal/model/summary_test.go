package model

import (
	"errors"
	"testing"
	"time"
)

// TestFetchSummaryRecord tests counter updates for download results.
func TestFetchSummaryRecord(t *testing.T) {
	t.Parallel()

	var s FetchSummary
	s.Record(DownloadResult{Filename: "a.xml", Status: DownloadStatusDownloaded, Bytes: 100})
	s.Record(DownloadResult{Filename: "b.xml", Status: DownloadStatusDownloaded, Bytes: 50})
	s.Record(DownloadResult{Filename: "c.xml", Status: DownloadStatusSkipped})
	s.Record(DownloadResult{Filename: "d.xml", Status: DownloadStatusFailed, Error: "404"})

	if s.Downloaded != 2 || s.Skipped != 1 || s.Failed != 1 {
		t.Errorf("unexpected counters: downloaded=%d skipped=%d failed=%d", s.Downloaded, s.Skipped, s.Failed)
	}
	if s.Bytes != 150 {
		t.Errorf("expected 150 bytes, got %d", s.Bytes)
	}
	if len(s.Results) != 4 {
		t.Errorf("expected 4 results, got %d", len(s.Results))
	}
}

// TestSortSummaryRecord tests counter updates for classifications.
func TestSortSummaryRecord(t *testing.T) {
	t.Parallel()

	var s SortSummary
	s.Record(Classification{Filename: "n.xml", Format: FormatNew, Destination: "new/n.xml"})
	s.Record(Classification{Filename: "o.xml", Format: FormatOld, Destination: "old/o.xml", Renamed: true})
	s.Record(Classification{Filename: "f.xml", Format: FormatUnknown, Destination: "unknown/f.xml"})
	s.Record(Classification{Filename: "bad.xml", Format: FormatUnknown, ParseError: "EOF", Destination: "unknown/bad.xml"})
	s.Record(Classification{Filename: "stuck.xml", Format: FormatNew, MoveError: "permission denied"})

	if s.Processed != 5 {
		t.Errorf("expected 5 processed, got %d", s.Processed)
	}
	if s.MovedNew != 1 {
		t.Errorf("a failed move must not count as new: MovedNew=%d", s.MovedNew)
	}
	if s.MovedOld != 1 || s.Renamed != 1 {
		t.Errorf("MovedOld=%d Renamed=%d", s.MovedOld, s.Renamed)
	}
	if s.Unrecognized != 1 || s.ParseErrors != 1 {
		t.Errorf("Unrecognized=%d ParseErrors=%d", s.Unrecognized, s.ParseErrors)
	}
	if s.MovedUnknown() != 2 {
		t.Errorf("expected parse errors folded into unknown count, got %d", s.MovedUnknown())
	}
	if s.MoveFailed != 1 {
		t.Errorf("expected 1 move failure, got %d", s.MoveFailed)
	}
}

// TestRunReport tests run report lifecycle helpers.
func TestRunReport(t *testing.T) {
	t.Parallel()

	t.Run("new report has id and start time", func(t *testing.T) {
		t.Parallel()

		r := NewRunReport(RunKindFetch)
		if r.ID == "" {
			t.Error("expected non-empty ID")
		}
		if r.StartedAt.IsZero() {
			t.Error("expected StartedAt to be set")
		}
		if r.Duration() != 0 {
			t.Error("expected zero duration before Finish")
		}
	})

	t.Run("ids are unique", func(t *testing.T) {
		t.Parallel()

		if NewRunReport(RunKindSort).ID == NewRunReport(RunKindSort).ID {
			t.Error("expected distinct run IDs")
		}
	})

	t.Run("finish sets duration", func(t *testing.T) {
		t.Parallel()

		r := NewRunReport(RunKindAll)
		r.StartedAt = time.Now().Add(-time.Second)
		r.Finish()
		if r.Duration() < time.Second {
			t.Errorf("expected duration >= 1s, got %v", r.Duration())
		}
	})

	t.Run("set error records message", func(t *testing.T) {
		t.Parallel()

		r := NewRunReport(RunKindSort)
		if r.Failed() {
			t.Error("new report must not be failed")
		}
		r.SetError(errors.New("source directory not found"))
		if !r.Failed() || r.ErrorMessage != "source directory not found" {
			t.Errorf("unexpected error state: %q", r.ErrorMessage)
		}
	})
}
