// Package export produces point-in-time, filtered, streamed exports of a
// comment history.
//
// A client request creates a Job in status "new" and returns immediately;
// the requester polls for completion. A background Worker claims jobs one at
// a time (the new → pending transition is atomic, so each job is executed
// exactly once), pulls the matching records as a lazy iterator and streams
// them through a format Serializer into a file sink. The job then reaches
// one of two terminal states: "success" with a retrievable file reference,
// or "error" with the fault recorded for operators and any partial output
// discarded. Terminal states are final; operators resubmit a new job instead
// of retrying.
//
// Serializers never materialize the record sequence, which keeps an export's
// peak memory independent of history size. Two formats ship: a JSON array
// and an XML document with a <root> element wrapping <list-item> children.
// Formats are a closed enumeration at the call site; adding one means adding
// a Serializer implementation, not touching callers.
package export
