package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// jsonSerializer writes records as a single JSON array. Array framing is
// emitted incrementally as records are pulled; each record is marshaled on
// its own. encoding/json sorts map keys, so equal inputs yield identical
// bytes.
type jsonSerializer struct{}

func (s *jsonSerializer) Serialize(ctx context.Context, sink io.Writer, records RecordIterator) error {
	if _, err := io.WriteString(sink, "["); err != nil {
		return fmt.Errorf("export: failed to write JSON document: %w", err)
	}

	first := true
	for records.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}

		if !first {
			if _, err := io.WriteString(sink, ","); err != nil {
				return fmt.Errorf("export: failed to write JSON document: %w", err)
			}
		}
		first = false

		data, err := json.Marshal(records.Record())
		if err != nil {
			return fmt.Errorf("export: failed to marshal record: %w", err)
		}
		if _, err := sink.Write(data); err != nil {
			return fmt.Errorf("export: failed to write JSON document: %w", err)
		}
	}
	if err := records.Err(); err != nil {
		return fmt.Errorf("export: record source failed: %w", err)
	}

	if _, err := io.WriteString(sink, "]"); err != nil {
		return fmt.Errorf("export: failed to write JSON document: %w", err)
	}
	return nil
}
