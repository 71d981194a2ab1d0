// Package pipeline runs the ingestion stages in sequence.
//
// A run is made of Steps that share one model.RunReport. The fetch command
// uses a single FetchStep, the sort command a single SortStep, and the run
// command chains both so that the sorter consumes what the downloader just
// wrote:
//
//	p := pipeline.New(pipeline.WithLogger(logger))
//	p.AddSteps(
//		pipeline.NewFetchStep(downloader, htmlPath, baseURL, downloadDir),
//		pipeline.NewSortStep(s, downloadDir, newDir, oldDir, unknownDir),
//	)
//	err := p.Execute(ctx, report)
//
// Steps run strictly one after another, and each stage processes its files
// one at a time.
package pipeline
