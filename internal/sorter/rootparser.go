package sorter

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// errNoRootElement is wrapped in a ParseError when a document has no element at all.
var errNoRootElement = errors.New("no root element")

// RootParser reads just enough of an XML document to name its root element.
type RootParser interface {
	// RootElement returns the namespace-qualified name of the first element.
	// Failures are reported as *ParseError.
	RootElement(r io.Reader) (xml.Name, error)
}

// ParseError is returned when a document's root element cannot be determined.
type ParseError struct {
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying decoder error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// byteOrderMarks are the BOMs that select the document encoding ahead of
// any encoding declaration.
var byteOrderMarks = [][]byte{
	{0xEF, 0xBB, 0xBF}, // UTF-8
	{0xFF, 0xFE},       // UTF-16LE
	{0xFE, 0xFF},       // UTF-16BE
}

// XMLRootParser is a tolerant RootParser built on encoding/xml.
// Malformed markup after the root start tag is never read, and common
// syntax slips before it (unquoted attributes, HTML entities, unclosed
// void tags) are accepted.
//
// A byte order mark takes precedence over the encoding declaration.
// Without one, the declared encoding is used.
type XMLRootParser struct{}

// RootElement implements RootParser.
func (XMLRootParser) RootElement(r io.Reader) (xml.Name, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(3) //nolint:errcheck // short documents are handled by the decoder

	var src io.Reader = br
	charsetReader := charset.NewReaderLabel
	if hasByteOrderMark(head) {
		// The decoder only understands UTF-8, so transcode up front and
		// ignore whatever the declaration claims afterwards.
		src = transform.NewReader(br, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
		charsetReader = transcoded
	}

	dec := xml.NewDecoder(src)
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity
	dec.CharsetReader = charsetReader

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return xml.Name{}, &ParseError{Err: errNoRootElement}
		}
		if err != nil {
			return xml.Name{}, &ParseError{Err: err}
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name, nil
		}
	}
}

func hasByteOrderMark(head []byte) bool {
	for _, bom := range byteOrderMarks {
		if bytes.HasPrefix(head, bom) {
			return true
		}
	}
	return false
}

// transcoded is a CharsetReader for input that is already UTF-8.
func transcoded(_ string, input io.Reader) (io.Reader, error) {
	return input, nil
}

// Clark formats a name in Clark notation: "{namespace}Local", or just
// "Local" when there is no namespace.
func Clark(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return fmt.Sprintf("{%s}%s", name.Space, name.Local)
}

// LocalName strips a "{namespace}" or "prefix:" qualifier from a tag.
//
//	LocalName("{WebTeam}Report")         == "Report"
//	LocalName("ha:ha_planned_roadworks") == "ha_planned_roadworks"
func LocalName(tag string) string {
	if strings.HasPrefix(tag, "{") {
		if i := strings.Index(tag, "}"); i >= 0 {
			return tag[i+1:]
		}
	}
	if i := strings.LastIndex(tag, ":"); i >= 0 {
		return tag[i+1:]
	}
	return tag
}
