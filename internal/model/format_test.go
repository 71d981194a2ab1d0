package model

import (
	"encoding/json"
	"testing"
)

// TestFormatForRoot tests root element name to format mapping.
func TestFormatForRoot(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		root     string
		expected Format
	}{
		{"Report", FormatNew},
		{"ha_planned_roadworks", FormatOld},
		{"report", FormatUnknown},
		{"HA_PLANNED_ROADWORKS", FormatUnknown},
		{"Foo", FormatUnknown},
		{"", FormatUnknown},
	}

	for _, tc := range testCases {
		t.Run(tc.root, func(t *testing.T) {
			t.Parallel()
			if got := FormatForRoot(tc.root); got != tc.expected {
				t.Errorf("FormatForRoot(%q) = %v, expected %v", tc.root, got, tc.expected)
			}
		})
	}
}

// TestFormatString tests the String method of Format.
func TestFormatString(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		format   Format
		expected string
	}{
		{FormatNew, "new"},
		{FormatOld, "old"},
		{FormatUnknown, "unknown"},
		{Format(42), "unknown"},
	}

	for _, tc := range testCases {
		if got := tc.format.String(); got != tc.expected {
			t.Errorf("Format(%d).String() = %q, expected %q", tc.format, got, tc.expected)
		}
	}
}

// TestFormatText tests that formats serialize by name.
func TestFormatText(t *testing.T) {
	t.Parallel()

	t.Run("json uses the format name", func(t *testing.T) {
		t.Parallel()

		data, err := json.Marshal(Classification{Filename: "a.xml", Format: FormatOld})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded Classification
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if decoded.Format != FormatOld {
			t.Errorf("expected FormatOld, got %v (json %s)", decoded.Format, data)
		}
	})

	t.Run("unknown name is rejected", func(t *testing.T) {
		t.Parallel()

		var f Format
		if err := f.UnmarshalText([]byte("newest")); err == nil {
			t.Error("expected error for unknown name")
		}
	})
}
