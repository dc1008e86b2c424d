package message

import (
	"errors"
	"strings"
	"testing"
)

const plainMsg = `From alice@example.com Mon Jan 1 00:00:00 2024
From: Alice <alice@example.com>
Subject: plain
Content-Type: text/plain; charset=utf-8

Hello from the body.
`

const multipartMsg = `From alice@example.com Mon Jan 1 00:00:00 2024
From: Alice <alice@example.com>
Subject: mixed
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="XYZ"

--XYZ
Content-Type: text/plain; charset=utf-8

Plain part here.
--XYZ
Content-Type: text/html; charset=utf-8

<html><body><p>HTML part</p></body></html>
--XYZ
Content-Type: application/pdf; name="report.pdf"
Content-Disposition: attachment; filename="report.pdf"
Content-Transfer-Encoding: base64

JVBERi0xLjQK
--XYZ--
`

const htmlOnlyMsg = `From alice@example.com Mon Jan 1 00:00:00 2024
From: Alice <alice@example.com>
Subject: html only
MIME-Version: 1.0
Content-Type: text/html; charset=utf-8

<html><body><b>bold text</b></body></html>
`

const textAttachmentMsg = `From alice@example.com Mon Jan 1 00:00:00 2024
From: Alice <alice@example.com>
Subject: text attachment
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="XYZ"

--XYZ
Content-Type: text/plain; charset=utf-8

Body part.
--XYZ
Content-Type: text/plain; name="notes.txt"
Content-Disposition: attachment; filename="notes.txt"

attached notes
--XYZ--
`

func TestParse_BodyText_PrefersPlain(t *testing.T) {
	m, err := Parse([]byte(multipartMsg))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	body := m.BodyText()
	if !strings.Contains(body, "Plain part here.") {
		t.Errorf("BodyText = %q, want plain part", body)
	}
	if strings.Contains(body, "HTML part") {
		t.Errorf("BodyText should not use html when plain exists: %q", body)
	}
	if m.HTML() {
		t.Errorf("HTML() = true, want false")
	}
}

func TestParse_BodyText_HTMLFallbackIsRaw(t *testing.T) {
	m, err := Parse([]byte(htmlOnlyMsg))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	body := m.BodyText()
	// The fallback is the raw html part, tags included.
	if !strings.Contains(body, "<b>bold text</b>") {
		t.Errorf("BodyText = %q, want raw html", body)
	}
	if !m.HTML() {
		t.Errorf("HTML() = false, want true")
	}
}

func TestParse_BodyText_Simple(t *testing.T) {
	m, err := Parse([]byte(plainMsg))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := m.BodyText(); !strings.Contains(got, "Hello from the body.") {
		t.Errorf("BodyText = %q", got)
	}
}

func TestAttachments_WalkSkipsBodyParts(t *testing.T) {
	m, err := Parse([]byte(multipartMsg))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	atts := m.Attachments()
	if len(atts) != 1 {
		t.Fatalf("Attachments() = %d parts, want 1", len(atts))
	}
	att := atts[0]
	if att.Ordinal != 1 || att.Filename != "report.pdf" || att.ContentType != "application/pdf" {
		t.Errorf("unexpected attachment: %+v", att)
	}
	if !strings.HasPrefix(string(att.Content), "%PDF-1.4") {
		t.Errorf("attachment content not decoded: %q", att.Content)
	}
}

func TestAttachments_TextWithAttachmentDispositionQualifies(t *testing.T) {
	m, err := Parse([]byte(textAttachmentMsg))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	atts := m.Attachments()
	if len(atts) != 1 {
		t.Fatalf("Attachments() = %d parts, want 1", len(atts))
	}
	if atts[0].Filename != "notes.txt" {
		t.Errorf("attachment = %+v", atts[0])
	}
	if body := m.BodyText(); !strings.Contains(body, "Body part.") {
		t.Errorf("BodyText = %q", body)
	}
}

func TestAttachment_OrdinalErrors(t *testing.T) {
	m, err := Parse([]byte(multipartMsg))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if _, err := m.Attachment(1); err != nil {
		t.Errorf("Attachment(1): %v", err)
	}

	// Ordinal past the end on a message that has one attachment: must be
	// distinguishable from the zero-attachment case.
	_, err = m.Attachment(2)
	if !errors.Is(err, ErrAttachmentNotFound) {
		t.Errorf("Attachment(2) = %v, want ErrAttachmentNotFound", err)
	}

	plain, err := Parse([]byte(plainMsg))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	_, err = plain.Attachment(1)
	if !errors.Is(err, ErrNoAttachments) {
		t.Errorf("Attachment on empty = %v, want ErrNoAttachments", err)
	}
	if errors.Is(err, ErrAttachmentNotFound) {
		t.Errorf("zero-attachment error must not be ErrAttachmentNotFound")
	}
}

func TestStripHTML(t *testing.T) {
	in := `<html><head><style>p{}</style></head><body><p>Hello</p><p>World &amp; more</p></body></html>`
	got := StripHTML(in)
	if !strings.Contains(got, "Hello") || !strings.Contains(got, "World & more") {
		t.Errorf("StripHTML = %q", got)
	}
	if strings.Contains(got, "<") {
		t.Errorf("StripHTML left tags: %q", got)
	}
}
