package fetch

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Filename derives the local file name for a download URL.
// The basename of the URL path is used; when there is none, a synthetic
// name built from the candidate index is returned instead. Names without
// an .xml extension get one appended.
func Filename(rawURL string, index int) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse url %q: %w", rawURL, err)
	}

	name := ""
	if u.Path != "" && !strings.HasSuffix(u.Path, "/") {
		name = path.Base(u.Path)
	}
	switch name {
	case "", ".", "..", "/":
		return fmt.Sprintf("downloaded_file_%d%s", index, xmlSuffix), nil
	}
	if !hasXMLSuffix(name) {
		name += xmlSuffix
	}
	return name, nil
}
