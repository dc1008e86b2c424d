package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/mboxtools/mboxidx/internal/index"
	"github.com/mboxtools/mboxidx/internal/textutil"
)

// messageRow is the structured rendering of one index record, shared by the
// json and yaml outputs.
type messageRow struct {
	ID            int64    `json:"id" yaml:"id"`
	Date          string   `json:"date_utc,omitempty" yaml:"date_utc,omitempty"`
	Sender        string   `json:"sender" yaml:"sender"`
	Subject       string   `json:"subject" yaml:"subject"`
	To            []string `json:"to,omitempty" yaml:"to,omitempty"`
	Cc            []string `json:"cc,omitempty" yaml:"cc,omitempty"`
	Bcc           []string `json:"bcc,omitempty" yaml:"bcc,omitempty"`
	HasAttachment bool     `json:"has_attachments" yaml:"has_attachments"`
	MessageID     string   `json:"message_id,omitempty" yaml:"message_id,omitempty"`
	ThreadID      string   `json:"thread_id,omitempty" yaml:"thread_id,omitempty"`
}

func rowFromRecord(rec *index.Record) messageRow {
	return messageRow{
		ID:            rec.ID,
		Date:          rec.DateUTC,
		Sender:        rec.Sender,
		Subject:       rec.Subject,
		To:            rec.RecipientsTo,
		Cc:            rec.RecipientsCc,
		Bcc:           rec.RecipientsBcc,
		HasAttachment: rec.HasAttachments,
		MessageID:     rec.MessageID,
		ThreadID:      rec.ThreadID,
	}
}

// renderRecords writes a record list in the selected output format.
func renderRecords(recs []*index.Record) error {
	if outputFormat == "text" {
		return renderRecordsTable(recs)
	}
	rows := make([]messageRow, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, rowFromRecord(rec))
	}
	return renderStructured(rows)
}

func renderRecordsTable(recs []*index.Record) error {
	if len(recs) == 0 {
		fmt.Println("No messages found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tFROM\tSUBJECT\tATT")
	fmt.Fprintln(w, "──\t────\t────\t───────\t───")
	for _, rec := range recs {
		date := rec.DateUTC
		if date == "" {
			date = "(no date)"
		} else {
			date = date[:10]
		}
		att := ""
		if rec.HasAttachments {
			att = "yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			rec.ID, date, truncate(rec.Sender, 32), truncate(rec.Subject, 50), att)
	}
	w.Flush()
	fmt.Printf("\nShowing %d results\n", len(recs))
	return nil
}

// renderStructured encodes v as json or yaml depending on the global format.
func renderStructured(v any) error {
	if outputFormat == "yaml" {
		enc := yaml.NewEncoder(os.Stdout)
		defer enc.Close()
		return enc.Encode(v)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	return textutil.TruncateRunes(s, n)
}

// headerLines renders the display header block for one record.
func headerLines(rec *index.Record) []string {
	lines := []string{
		fmt.Sprintf("ID:      %d", rec.ID),
		fmt.Sprintf("From:    %s", rec.Sender),
	}
	if len(rec.RecipientsTo) > 0 {
		lines = append(lines, fmt.Sprintf("To:      %s", strings.Join(rec.RecipientsTo, ", ")))
	}
	if len(rec.RecipientsCc) > 0 {
		lines = append(lines, fmt.Sprintf("Cc:      %s", strings.Join(rec.RecipientsCc, ", ")))
	}
	if rec.DateUTC != "" {
		lines = append(lines, fmt.Sprintf("Date:    %s UTC", rec.DateUTC))
	} else if rec.DateRaw != "" {
		lines = append(lines, fmt.Sprintf("Date:    %s (unparsed)", rec.DateRaw))
	}
	lines = append(lines, fmt.Sprintf("Subject: %s", rec.Subject))
	if rec.ThreadID != "" {
		lines = append(lines, fmt.Sprintf("Thread:  %s", rec.ThreadID))
	}
	return lines
}
