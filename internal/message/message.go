// Package message parses raw archive bytes into a MIME message and exposes
// body text extraction and the attachment walk used for listing and
// extraction. The walk and its ordinal assignment are deliberately identical
// in both paths: ordinals are never persisted and must be recomputed the
// same way on every access.
package message

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/jhillyerd/enmime"

	"github.com/mboxtools/mboxidx/internal/mbox"
)

// ErrNoAttachments reports a message with zero qualifying attachment parts.
var ErrNoAttachments = errors.New("message has no attachments")

// ErrAttachmentNotFound reports an ordinal beyond the qualifying part count.
var ErrAttachmentNotFound = errors.New("attachment not found")

// Message is a parsed MIME message backed by an enmime envelope.
type Message struct {
	env *enmime.Envelope
}

// Attachment is one qualifying part from the attachment walk.
type Attachment struct {
	// Ordinal is the 1-based position of this part in walk order.
	Ordinal     int
	Filename    string
	ContentType string
	Size        int
	Content     []byte
}

// Parse parses raw message bytes from the archive. A leading "From "
// boundary line is stripped first.
func Parse(raw []byte) (*Message, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(mbox.StripFromLine(raw)))
	if err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}
	return &Message{env: env}, nil
}

// Header returns a decoded header value from the envelope.
func (m *Message) Header(name string) string {
	return m.env.GetHeader(name)
}

// BodyText returns the message's plain text: the first text/plain part if
// one exists, otherwise the first text/html part verbatim (tags included),
// otherwise the empty string. The html fallback is intentionally raw; body
// substring filters match against exactly this text.
func (m *Message) BodyText() string {
	if p := m.firstPart("text/plain"); p != nil {
		return string(p.Content)
	}
	if p := m.firstPart("text/html"); p != nil {
		return string(p.Content)
	}
	return ""
}

// HTML reports whether BodyText fell back to an html part.
func (m *Message) HTML() bool {
	return m.firstPart("text/plain") == nil && m.firstPart("text/html") != nil
}

// Attachments walks the part tree depth-first and returns the qualifying
// parts with their ordinals. A part qualifies unless it is a multipart
// container, or a text/plain or text/html part without an explicit
// attachment disposition.
func (m *Message) Attachments() []Attachment {
	var out []Attachment
	ordinal := 0
	walkParts(m.env.Root, func(p *enmime.Part) {
		if !isAttachmentPart(p) {
			return
		}
		ordinal++
		out = append(out, Attachment{
			Ordinal:     ordinal,
			Filename:    p.FileName,
			ContentType: mediaType(p.ContentType),
			Size:        len(p.Content),
			Content:     p.Content,
		})
	})
	return out
}

// Attachment resolves a 1-based ordinal. A message with zero qualifying
// parts reports ErrNoAttachments; an ordinal beyond the count reports
// ErrAttachmentNotFound with the actual count.
func (m *Message) Attachment(ordinal int) (*Attachment, error) {
	atts := m.Attachments()
	if len(atts) == 0 {
		return nil, ErrNoAttachments
	}
	if ordinal < 1 || ordinal > len(atts) {
		return nil, fmt.Errorf("%w: attachment %d (message has %d)", ErrAttachmentNotFound, ordinal, len(atts))
	}
	att := atts[ordinal-1]
	if att.Content == nil {
		return nil, fmt.Errorf("attachment %d payload undecodable", ordinal)
	}
	return &att, nil
}

func (m *Message) firstPart(contentType string) *enmime.Part {
	var found *enmime.Part
	walkParts(m.env.Root, func(p *enmime.Part) {
		if found == nil && mediaType(p.ContentType) == contentType && p.Content != nil {
			found = p
		}
	})
	return found
}

// walkParts visits every leaf part depth-first. Multipart containers are
// descended into but not visited themselves.
func walkParts(p *enmime.Part, visit func(*enmime.Part)) {
	if p == nil {
		return
	}
	if strings.HasPrefix(mediaType(p.ContentType), "multipart/") {
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			walkParts(c, visit)
		}
		return
	}
	visit(p)
	for c := p.FirstChild; c != nil; c = c.NextSibling {
		walkParts(c, visit)
	}
}

// isAttachmentPart implements the ordinal-walk rule: text/plain and
// text/html parts are body content unless explicitly marked with an
// attachment disposition; everything else qualifies.
func isAttachmentPart(p *enmime.Part) bool {
	ct := mediaType(p.ContentType)
	if ct != "text/plain" && ct != "text/html" {
		return true
	}
	return disposition(p) == "attachment"
}

func mediaType(ct string) string {
	ct = strings.ToLower(ct)
	if idx := strings.Index(ct, ";"); idx >= 0 {
		ct = ct[:idx]
	}
	return strings.TrimSpace(ct)
}

func disposition(p *enmime.Part) string {
	d := strings.ToLower(p.Disposition)
	if idx := strings.Index(d, ";"); idx >= 0 {
		d = d[:idx]
	}
	return strings.TrimSpace(d)
}
