// Package header normalizes raw mail header values: RFC 2047 word decoding,
// date parsing to a UTC instant, address extraction, and message-id cleanup.
// Every function here is best-effort and total; malformed input degrades to
// an empty or defaulted value, never an error, because the bulk scan must
// not abort on a single bad message.
package header

import (
	"io"
	"mime"
	"net/mail"
	"strings"
	"time"

	"github.com/mboxtools/mboxidx/internal/textutil"
)

var wordDecoder = mime.WordDecoder{
	CharsetReader: func(charset string, input io.Reader) (io.Reader, error) {
		if enc := textutil.EncodingByName(charset); enc != nil {
			return enc.NewDecoder().Reader(input), nil
		}
		// Unknown charset: pass bytes through and let EnsureUTF8 repair them.
		return input, nil
	},
}

// DecodeText decodes a header value that may contain RFC 2047 encoded words.
// Undecodable sequences are replaced rather than failing; the result is
// always valid UTF-8.
func DecodeText(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	decoded, err := wordDecoder.DecodeHeader(raw)
	if err != nil {
		decoded = raw
	}
	return textutil.EnsureUTF8(decoded)
}

// dateFormats lists date layouts seen in the wild beyond what
// mail.ParseDate accepts, tried in order.
var dateFormats = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 MST",
	time.RFC822Z,
	time.RFC822,
	time.RFC850,
	time.ANSIC,
	time.UnixDate,
	"Mon, 2 Jan 2006 15:04:05 -0700 (MST)",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"Mon, 2 Jan 2006 15:04:05",
	"2 Jan 2006 15:04:05",
}

// ParseDate parses a Date header into a UTC instant. A header without a
// timezone is assumed UTC. Empty or unparseable input reports ok == false.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.Join(strings.Fields(raw), " ")
	if s == "" {
		return time.Time{}, false
	}

	if t, err := mail.ParseDate(s); err == nil {
		return t.UTC(), true
	}

	// Strip a trailing parenthesized zone name like "(UTC)"; the numeric
	// offset, when present, is what matters.
	base := s
	if idx := strings.LastIndex(s, "("); idx > 0 {
		base = strings.TrimSpace(s[:idx])
	}

	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, base); err == nil {
			return t.UTC(), true
		}
	}
	if base != s {
		for _, layout := range dateFormats {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
	}

	return time.Time{}, false
}

// NormalizedLayout is the lexically sortable form date_utc is stored in.
const NormalizedLayout = "2006-01-02 15:04:05"

// NormalizeDate renders a UTC instant in the stored, sortable layout.
func NormalizeDate(t time.Time) string {
	return t.UTC().Format(NormalizedLayout)
}

// Addresses extracts lowercase email addresses from an address-list header
// (To, Cc, Bcc), in order, without duplicates. Display names and encoded
// words are tolerated; input that net/mail rejects falls back to scanning
// for @-bearing tokens.
func Addresses(raw string) []string {
	decoded := DecodeText(raw)
	if decoded == "" {
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	add := func(addr string) {
		addr = strings.ToLower(strings.TrimSpace(addr))
		if addr == "" || seen[addr] {
			return
		}
		seen[addr] = true
		out = append(out, addr)
	}

	if list, err := mail.ParseAddressList(decoded); err == nil {
		for _, a := range list {
			add(a.Address)
		}
		return out
	}

	// Tolerant fallback: anything between commas that contains an @.
	for _, part := range strings.Split(decoded, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if addr, err := mail.ParseAddress(part); err == nil {
			add(addr.Address)
			continue
		}
		for _, tok := range strings.Fields(part) {
			tok = strings.Trim(tok, "<>\"';")
			if strings.Contains(tok, "@") {
				add(tok)
			}
		}
	}
	return out
}

// CleanMessageID strips surrounding whitespace and one layer of angle
// brackets from a Message-ID or In-Reply-To value.
func CleanMessageID(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "<")
	s = strings.TrimSuffix(s, ">")
	return strings.TrimSpace(s)
}

// MessageIDs splits a References header into cleaned message ids.
func MessageIDs(raw string) []string {
	var out []string
	for _, f := range strings.Fields(raw) {
		if id := CleanMessageID(f); id != "" {
			out = append(out, id)
		}
	}
	return out
}
