package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mboxtools/mboxidx/internal/mbox"
	"github.com/mboxtools/mboxidx/internal/message"
)

var showRaw bool

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Display one message",
	Long: `Display a message by its index id.

The message is read back from the archive by byte offset. HTML-only
messages are shown with tags stripped for readability; --raw prints the
exact archive bytes instead, boundary line included.

Examples:
  mboxidx show 42
  mboxidx show 42 --raw > message.eml`,
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

		if showRaw {
			raw, err := mbox.ReadExtent(archiveMustPath(), rec.Offset, rec.Length)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(raw)
			return err
		}

		msg, err := engine.Message(rec)
		if err != nil {
			return fmt.Errorf("read message %d: %w", id, err)
		}

		body := msg.BodyText()
		if msg.HTML() {
			body = message.StripHTML(body)
		}

		if outputFormat != "text" {
			out := struct {
				messageRow `yaml:",inline"`
				Body       string `json:"body" yaml:"body"`
			}{rowFromRecord(rec), body}
			return renderStructured(out)
		}

		for _, line := range headerLines(rec) {
			fmt.Println(line)
		}
		fmt.Println(strings.Repeat("─", 60))
		fmt.Println(body)

		if atts := msg.Attachments(); len(atts) > 0 {
			fmt.Println(strings.Repeat("─", 60))
			fmt.Printf("%d attachment(s); list with: mboxidx attachments %d\n", len(atts), id)
		}
		return nil
	},
}

// archiveMustPath returns the resolved archive path after openEngine has
// already validated it.
func archiveMustPath() string {
	path, _ := archivePath()
	return path
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid message id %q", s)
	}
	return id, nil
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showRaw, "raw", false, "Print the exact archive bytes")
}
