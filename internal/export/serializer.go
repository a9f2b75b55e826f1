package export

import (
	"context"
	"io"
)

// Serializer converts a lazy record sequence into a complete, well-formed
// document on sink. Implementations must consume the iterator exactly once,
// in order, writing incrementally: buffering the whole sequence defeats the
// purpose of streaming. An empty sequence still produces a valid document.
type Serializer interface {
	Serialize(ctx context.Context, sink io.Writer, records RecordIterator) error
}

// NewSerializer returns the Serializer for the given format.
func NewSerializer(format Format) (Serializer, error) {
	switch format {
	case FormatJSON:
		return &jsonSerializer{}, nil
	case FormatXML:
		return &xmlSerializer{}, nil
	}
	return nil, ErrUnsupportedFormat
}
