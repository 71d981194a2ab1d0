// Package sorter classifies downloaded roadworks XML files by their root
// element and moves them into per-format directories.
//
// The two publication formats are told apart by the local name of the root
// element alone:
//
//   - <Report> (usually in the "WebTeam" namespace) is the new format
//   - <ha_planned_roadworks> is the old format
//
// Every other root, and every file whose root cannot be read, goes to the
// unknown directory. Only the start of each document is parsed.
//
// Files are never overwritten. When the destination already holds a file
// with the same name, the moved file gets a numeric suffix instead.
//
// Usage:
//
//	s := sorter.New(sorter.WithOutput(os.Stdout))
//	summary, err := s.Run(ctx, "data/downloaded_xml_files",
//		"data/new_format", "data/old_format", "data/unknown_format")
package sorter
