package export

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"
)

const (
	xmlHeader      = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"
	xmlRootElement = "root"
	xmlItemElement = "list-item"
)

// xmlSerializer writes records as a single document: a fixed <root> element
// with one <list-item> child per record. Nested maps become child elements
// named by key (sorted for deterministic output), nested sequences repeat
// the <list-item> element, nil values emit no element, and scalars are
// escaped text content.
type xmlSerializer struct{}

func (s *xmlSerializer) Serialize(ctx context.Context, sink io.Writer, records RecordIterator) error {
	w := &xmlWriter{sink: sink}

	w.raw(xmlHeader)
	w.open(xmlRootElement)

	for records.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}

		w.open(xmlItemElement)
		w.value(records.Record())
		w.close(xmlItemElement)

		if w.err != nil {
			return fmt.Errorf("export: failed to write XML document: %w", w.err)
		}
	}
	if err := records.Err(); err != nil {
		return fmt.Errorf("export: record source failed: %w", err)
	}

	w.close(xmlRootElement)
	if w.err != nil {
		return fmt.Errorf("export: failed to write XML document: %w", w.err)
	}
	return nil
}

// xmlWriter is a minimal streaming element writer with sticky error
// handling, so the serializer body stays free of per-write error plumbing.
type xmlWriter struct {
	sink io.Writer
	err  error
}

func (w *xmlWriter) raw(s string) {
	if w.err != nil {
		return
	}
	_, w.err = io.WriteString(w.sink, s)
}

func (w *xmlWriter) open(name string) {
	w.raw("<" + name + ">")
}

func (w *xmlWriter) close(name string) {
	w.raw("</" + name + ">")
}

func (w *xmlWriter) value(v any) {
	if w.err != nil {
		return
	}

	switch val := v.(type) {
	case nil:
		// No element for null values.
	case Record:
		w.mapping(val)
	case map[string]any:
		w.mapping(val)
	case []any:
		for _, item := range val {
			w.open(xmlItemElement)
			w.value(item)
			w.close(xmlItemElement)
		}
	default:
		w.scalar(val)
	}
}

func (w *xmlWriter) mapping(m map[string]any) {
	keys := make([]string, 0, len(m))
	for key, val := range m {
		if val == nil {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		w.open(key)
		w.value(m[key])
		w.close(key)
	}
}

func (w *xmlWriter) scalar(v any) {
	var text string
	switch val := v.(type) {
	case string:
		text = val
	case bool:
		text = strconv.FormatBool(val)
	case int:
		text = strconv.Itoa(val)
	case int32:
		text = strconv.FormatInt(int64(val), 10)
	case int64:
		text = strconv.FormatInt(val, 10)
	case float64:
		text = strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		text = val.Format(time.RFC3339)
	default:
		text = fmt.Sprintf("%v", val)
	}

	if w.err != nil {
		return
	}
	w.err = xml.EscapeText(w.sink, []byte(text))
}
