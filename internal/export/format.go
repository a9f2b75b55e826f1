package export

import "fmt"

// Format selects the serialization of an exported document. The set is
// closed: callers pick a value, they never construct serializers themselves.
type Format string

const (
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
)

// Formats returns every supported format.
func Formats() []Format {
	return []Format{FormatJSON, FormatXML}
}

// Valid reports whether f is a supported format.
func (f Format) Valid() bool {
	switch f {
	case FormatJSON, FormatXML:
		return true
	}
	return false
}

// ContentType returns the MIME type of documents in this format.
func (f Format) ContentType() string {
	return "application/" + string(f)
}

// ParseFormat converts a wire string into a Format.
func ParseFormat(s string) (Format, error) {
	f := Format(s)
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
	return f, nil
}
