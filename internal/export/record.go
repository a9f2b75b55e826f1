package export

// Record is one exported row: a mapping of scalar or nested fields. Nested
// maps and slices recurse during serialization; nil values emit nothing in
// XML and null in JSON.
type Record map[string]any

// RecordIterator is a lazy, single-pass, in-order view of an export's
// records, shaped like a database row cursor: Next advances and reports
// whether a record is available, Record returns the current one, and Err
// surfaces the fault that terminated iteration early, if any.
//
// Serializers consume an iterator exactly once and never buffer it, so the
// source may be arbitrarily large.
type RecordIterator interface {
	Next() bool
	Record() Record
	Err() error
}

// sliceIterator adapts an in-memory slice to RecordIterator. Used by tests
// and by the in-memory comment store.
type sliceIterator struct {
	records []Record
	pos     int
	err     error
	failAt  int
}

// NewSliceIterator wraps records in a RecordIterator.
func NewSliceIterator(records []Record) RecordIterator {
	return &sliceIterator{records: records, failAt: -1}
}

// NewFailingIterator yields records until failAt, then stops with err.
// Exists so tests can exercise mid-stream source faults.
func NewFailingIterator(records []Record, failAt int, err error) RecordIterator {
	return &sliceIterator{records: records, failAt: failAt, err: err}
}

func (it *sliceIterator) Next() bool {
	if it.failAt >= 0 && it.pos >= it.failAt {
		return false
	}
	if it.pos >= len(it.records) {
		return false
	}
	it.pos++
	return true
}

func (it *sliceIterator) Record() Record {
	return it.records[it.pos-1]
}

func (it *sliceIterator) Err() error {
	if it.failAt >= 0 && it.pos >= it.failAt {
		return it.err
	}
	return nil
}
