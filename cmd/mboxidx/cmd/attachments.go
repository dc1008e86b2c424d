package cmd

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mboxtools/mboxidx/internal/export"
	"github.com/mboxtools/mboxidx/internal/message"
)

var attachmentsCmd = &cobra.Command{
	Use:   "attachments <id>",
	Short: "List a message's attachments",
	Long: `List the attachments of a message with their ordinals.

Ordinals are 1-based positions in the message's part tree and are the
handles used by 'mboxidx extract'. They are recomputed from the archive
on every access, so they stay stable as long as the archive does.

Examples:
  mboxidx attachments 42
  mboxidx extract 42 1 --out ./downloads`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		engine, cleanup, err := openEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		rec, err := engine.Get(cmd.Context(), id)
		if err != nil {
			return err
		}
		msg, err := engine.Message(rec)
		if err != nil {
			return fmt.Errorf("read message %d: %w", id, err)
		}

		atts := msg.Attachments()
		if outputFormat != "text" {
			type attRow struct {
				Ordinal     int    `json:"ordinal" yaml:"ordinal"`
				Filename    string `json:"filename,omitempty" yaml:"filename,omitempty"`
				ContentType string `json:"content_type" yaml:"content_type"`
				Size        int    `json:"size" yaml:"size"`
			}
			rows := make([]attRow, 0, len(atts))
			for _, a := range atts {
				rows = append(rows, attRow{a.Ordinal, a.Filename, a.ContentType, a.Size})
			}
			return renderStructured(rows)
		}

		if len(atts) == 0 {
			fmt.Printf("Message %d has no attachments.\n", id)
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ORDINAL\tFILENAME\tTYPE\tSIZE")
		fmt.Fprintln(w, "───────\t────────\t────\t────")
		for _, a := range atts {
			name := a.Filename
			if name == "" {
				name = "(unnamed)"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
				a.Ordinal, truncate(name, 40), a.ContentType, export.FormatBytesLong(int64(a.Size)))
		}
		w.Flush()
		return nil
	},
}

// describeAttachmentErr maps the ordinal errors onto user-facing messages.
func describeAttachmentErr(err error, id int64) error {
	if errors.Is(err, message.ErrNoAttachments) {
		return fmt.Errorf("message %d has no attachments", id)
	}
	return err
}

func init() {
	rootCmd.AddCommand(attachmentsCmd)
}
