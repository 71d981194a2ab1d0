package model

// Classification records how a single source file was sorted.
type Classification struct {
	// Filename is the file's name in the source directory.
	Filename string `json:"filename"`

	// Root is the root element tag in Clark notation ("{namespace}Local"),
	// empty when the file could not be parsed.
	Root string `json:"root,omitempty"`

	// LocalName is Root with any namespace removed.
	LocalName string `json:"local_name,omitempty"`

	// Format is the bucket chosen for the file.
	Format Format `json:"format"`

	// Destination is the final path of the file. Empty if the move failed.
	Destination string `json:"destination,omitempty"`

	// Renamed is true when a same-named file already existed in the
	// destination and the file was stored under a suffixed name.
	Renamed bool `json:"renamed,omitempty"`

	// ParseError is set when the file could not be parsed.
	ParseError string `json:"parse_error,omitempty"`

	// MoveError is set when the file could not be moved; it then remains
	// in the source directory.
	MoveError string `json:"move_error,omitempty"`
}

// Moved reports whether the file left the source directory.
func (c Classification) Moved() bool {
	return c.MoveError == "" && c.Destination != ""
}

// SortSummary holds the counters and item outcomes of one sort run.
// Format counters only count files that were actually moved.
type SortSummary struct {
	SourceDir        string `json:"source_dir"`
	NewFormatDir     string `json:"new_format_dir"`
	OldFormatDir     string `json:"old_format_dir"`
	UnknownFormatDir string `json:"unknown_format_dir"`

	// Processed is the number of .xml files found in the source directory.
	Processed int `json:"processed"`

	MovedNew int `json:"moved_new"`
	MovedOld int `json:"moved_old"`

	// Unrecognized counts parseable files with an unexpected root that were
	// moved to the unknown bucket.
	Unrecognized int `json:"unrecognized"`

	// ParseErrors counts unparseable files that were moved to the unknown bucket.
	ParseErrors int `json:"parse_errors"`

	// MoveFailed counts files that could not be moved at all.
	MoveFailed int `json:"move_failed"`

	// Renamed counts files stored under a suffixed name after a collision.
	Renamed int `json:"renamed"`

	Results []Classification `json:"results,omitempty"`
}

// MovedUnknown is the number of files moved to the unknown bucket,
// parse failures included.
func (s *SortSummary) MovedUnknown() int {
	return s.Unrecognized + s.ParseErrors
}

// Record appends a classification and updates the counters.
func (s *SortSummary) Record(c Classification) {
	s.Processed++
	s.Results = append(s.Results, c)
	if !c.Moved() {
		s.MoveFailed++
		return
	}
	if c.Renamed {
		s.Renamed++
	}
	switch {
	case c.ParseError != "":
		s.ParseErrors++
	case c.Format == FormatNew:
		s.MovedNew++
	case c.Format == FormatOld:
		s.MovedOld++
	default:
		s.Unrecognized++
	}
}
