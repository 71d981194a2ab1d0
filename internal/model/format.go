package model

import "fmt"

// Format is the bucket a downloaded XML file is sorted into.
type Format int

const (
	// FormatUnknown covers unrecognized root elements and unparseable files.
	FormatUnknown Format = iota

	// FormatNew is the current publication format, rooted at <Report>.
	FormatNew

	// FormatOld is the legacy format, rooted at <ha_planned_roadworks>.
	FormatOld
)

// Root element local names that identify each format.
const (
	NewFormatRoot = "Report"
	OldFormatRoot = "ha_planned_roadworks"
)

// FormatForRoot maps a root element local name to its format.
// The comparison is case-sensitive, like XML element names.
func FormatForRoot(localName string) Format {
	switch localName {
	case NewFormatRoot:
		return FormatNew
	case OldFormatRoot:
		return FormatOld
	default:
		return FormatUnknown
	}
}

// String returns the short name of the format.
func (f Format) String() string {
	switch f {
	case FormatNew:
		return "new"
	case FormatOld:
		return "old"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so formats serialize by name.
func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Format) UnmarshalText(text []byte) error {
	switch string(text) {
	case "new":
		*f = FormatNew
	case "old":
		*f = FormatOld
	case "unknown":
		*f = FormatUnknown
	default:
		return fmt.Errorf("unknown format %q", string(text))
	}
	return nil
}
