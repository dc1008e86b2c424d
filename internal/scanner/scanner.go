// Package scanner streams the archive once and produces one index record
// per message: byte extent, normalized header metadata, and the attachment
// heuristic. Header trouble never stops the scan; a message that fails to
// decode is emitted with defaulted fields.
package scanner

import (
	"bytes"
	"io"
	"log/slog"
	"net/mail"
	"time"

	"github.com/mboxtools/mboxidx/internal/header"
	"github.com/mboxtools/mboxidx/internal/index"
	"github.com/mboxtools/mboxidx/internal/mbox"
)

// headerCap bounds header block extraction when no blank line is found,
// keeping cost fixed on pathological inputs.
const headerCap = 4096

// attachmentMarker is the raw-byte heuristic for flagging attachments. It is
// a substring scan, not a MIME walk: quoted or forwarded content produces
// false positives and unusual disposition spellings produce false negatives.
// Downstream behavior depends on this exact marker; do not "improve" it.
var attachmentMarker = []byte("Content-Disposition: attachment")

// defaultProgressEvery is how many messages pass between progress signals.
const defaultProgressEvery = 10000

// Progress is a periodic observability signal emitted during the scan. It
// is a side effect only, not part of the record sequence.
type Progress struct {
	Count     int64
	Bytes     int64
	Total     int64
	Percent   float64
	Elapsed   time.Duration
	Remaining time.Duration
}

// Options configures a Scanner.
type Options struct {
	// TotalBytes is the archive size, used for percent and ETA estimates.
	TotalBytes int64

	// Progress, if set, is called every ProgressEvery messages.
	Progress func(Progress)

	// ProgressEvery overrides the signal cadence. Zero means every 10,000
	// messages.
	ProgressEvery int64

	// Logger is optional; defaults to slog.Default().
	Logger *slog.Logger
}

// Scanner yields index records from an mbox stream. It is a lazy,
// forward-only, non-restartable pass.
type Scanner struct {
	r     *mbox.Reader
	opts  Options
	count int64
	start time.Time
	log   *slog.Logger
}

// New creates a Scanner over the archive stream.
func New(r io.Reader, opts Options) *Scanner {
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = defaultProgressEvery
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Scanner{
		r:     mbox.NewReader(r),
		opts:  opts,
		start: time.Now(),
		log:   log,
	}
}

// Next returns the next record, or io.EOF at the end of the archive.
func (s *Scanner) Next() (*index.Record, error) {
	msg, err := s.r.Next()
	if err != nil {
		return nil, err
	}

	rec := recordFromMessage(msg, s.log)

	s.count++
	if s.opts.Progress != nil && s.count%s.opts.ProgressEvery == 0 {
		s.opts.Progress(s.progress())
	}
	return rec, nil
}

// Count reports how many messages have been produced so far.
func (s *Scanner) Count() int64 {
	return s.count
}

func (s *Scanner) progress() Progress {
	p := Progress{
		Count:   s.count,
		Bytes:   s.r.Offset(),
		Total:   s.opts.TotalBytes,
		Elapsed: time.Since(s.start),
	}
	if p.Total > 0 && p.Bytes > 0 {
		p.Percent = float64(p.Bytes) * 100 / float64(p.Total)
		if p.Percent > 0 {
			remaining := float64(p.Elapsed) * (100 - p.Percent) / p.Percent
			p.Remaining = time.Duration(remaining)
		}
	}
	return p
}

// recordFromMessage extracts normalized metadata from one raw message. Any
// header parse failure defaults the whole record; the extent always stands.
func recordFromMessage(msg *mbox.Message, log *slog.Logger) *index.Record {
	rec := &index.Record{
		Offset: msg.Offset,
		Length: msg.Length,
	}

	hdr, err := parseHeaderBlock(msg.Raw)
	if err != nil {
		log.Debug("header parse failed; emitting defaulted record",
			"offset", msg.Offset, "error", err)
		return rec
	}

	rec.DateRaw = hdr.Get("Date")
	if t, ok := header.ParseDate(rec.DateRaw); ok {
		rec.DateUTC = header.NormalizeDate(t)
	}
	rec.Sender = header.DecodeText(hdr.Get("From"))
	rec.Subject = header.DecodeText(hdr.Get("Subject"))
	rec.RecipientsTo = header.Addresses(hdr.Get("To"))
	rec.RecipientsCc = header.Addresses(hdr.Get("Cc"))
	rec.RecipientsBcc = header.Addresses(hdr.Get("Bcc"))
	rec.MessageID = header.CleanMessageID(hdr.Get("Message-Id"))
	if ids := header.MessageIDs(hdr.Get("In-Reply-To")); len(ids) > 0 {
		rec.InReplyTo = ids[0]
	}
	rec.ReferencesRaw = hdr.Get("References")
	rec.HasAttachments = bytes.Contains(msg.Raw, attachmentMarker)

	return rec
}

// parseHeaderBlock parses the raw header block: bytes up to the first blank
// line, or the first 4096 bytes (trimmed to a line boundary) when none is
// found.
func parseHeaderBlock(raw []byte) (mail.Header, error) {
	// Copy before terminating: the block aliases the caller's raw bytes.
	block := append([]byte(nil), headerBlock(mbox.StripFromLine(raw))...)
	block = append(block, '\n', '\n')
	m, err := mail.ReadMessage(bytes.NewReader(block))
	if err != nil {
		return nil, err
	}
	return m.Header, nil
}

func headerBlock(raw []byte) []byte {
	if idx := bytes.Index(raw, []byte("\n\n")); idx >= 0 {
		return raw[:idx]
	}
	if idx := bytes.Index(raw, []byte("\r\n\r\n")); idx >= 0 {
		return raw[:idx]
	}
	if len(raw) <= headerCap {
		return raw
	}
	capped := raw[:headerCap]
	if idx := bytes.LastIndexByte(capped, '\n'); idx > 0 {
		capped = capped[:idx]
	}
	return capped
}
