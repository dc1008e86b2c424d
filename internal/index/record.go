package index

import "strings"

// Record is one indexed message. Everything except ThreadID is written once
// during the scan pass; ThreadID is set exactly once per rebuild by the
// thread resolver.
type Record struct {
	// ID is a dense integer assigned in scan order.
	ID int64

	// Offset and Length are the message's exact byte extent in the archive,
	// boundary line included.
	Offset int64
	Length int64

	// DateRaw is the original Date header text; DateUTC is the normalized,
	// lexically sortable form ("2006-01-02 15:04:05" in UTC), empty when the
	// header is missing or unparseable.
	DateRaw string
	DateUTC string

	Sender  string
	Subject string

	// Recipient lists hold lowercase addresses in header order.
	RecipientsTo  []string
	RecipientsCc  []string
	RecipientsBcc []string

	// HasAttachments is the raw-byte disposition-marker heuristic, not a
	// MIME walk result.
	HasAttachments bool

	// MessageID and InReplyTo are cleaned (angle brackets and surrounding
	// whitespace stripped). ReferencesRaw keeps the header text as-is.
	MessageID     string
	InReplyTo     string
	ReferencesRaw string

	// ThreadID is the canonical representative of the record's reply group;
	// empty when the message has no usable message id.
	ThreadID string
}

// joinAddrs flattens a recipient list for storage.
func joinAddrs(addrs []string) string {
	return strings.Join(addrs, " ")
}

// splitAddrs restores a stored recipient list.
func splitAddrs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}
