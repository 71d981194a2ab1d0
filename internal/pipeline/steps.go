package pipeline

import (
	"context"

	"github.com/nao1215/roadworks/internal/model"
)

// Fetcher downloads the XML files linked from a listing page.
// *fetch.Downloader implements it.
type Fetcher interface {
	Run(ctx context.Context, htmlPath, baseURL, downloadDir string) (*model.FetchSummary, error)
}

// Classifier sorts XML files into per-format directories.
// *sorter.Sorter implements it.
type Classifier interface {
	Run(ctx context.Context, sourceDir, newDir, oldDir, unknownDir string) (*model.SortSummary, error)
}

// FetchStep runs the link extraction and download stage.
type FetchStep struct {
	fetcher     Fetcher
	htmlPath    string
	baseURL     string
	downloadDir string
}

// NewFetchStep creates a FetchStep reading htmlPath and writing into downloadDir.
func NewFetchStep(fetcher Fetcher, htmlPath, baseURL, downloadDir string) *FetchStep {
	return &FetchStep{
		fetcher:     fetcher,
		htmlPath:    htmlPath,
		baseURL:     baseURL,
		downloadDir: downloadDir,
	}
}

// Name returns the step name.
func (s *FetchStep) Name() string {
	return "fetch"
}

// Do executes the fetch stage. The summary is stored even when the stage
// fails, so a partial run is still reported.
func (s *FetchStep) Do(ctx context.Context, report *model.RunReport) error {
	summary, err := s.fetcher.Run(ctx, s.htmlPath, s.baseURL, s.downloadDir)
	report.Fetch = summary
	return err
}

// SortStep runs the format sorting stage.
type SortStep struct {
	classifier Classifier
	sourceDir  string
	newDir     string
	oldDir     string
	unknownDir string
}

// NewSortStep creates a SortStep moving files out of sourceDir.
func NewSortStep(classifier Classifier, sourceDir, newDir, oldDir, unknownDir string) *SortStep {
	return &SortStep{
		classifier: classifier,
		sourceDir:  sourceDir,
		newDir:     newDir,
		oldDir:     oldDir,
		unknownDir: unknownDir,
	}
}

// Name returns the step name.
func (s *SortStep) Name() string {
	return "sort"
}

// Do executes the sort stage.
func (s *SortStep) Do(ctx context.Context, report *model.RunReport) error {
	summary, err := s.classifier.Run(ctx, s.sourceDir, s.newDir, s.oldDir, s.unknownDir)
	report.Sort = summary
	return err
}
