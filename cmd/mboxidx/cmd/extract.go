package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mboxtools/mboxidx/internal/export"
	"github.com/mboxtools/mboxidx/internal/message"
)

var extractOut string

var extractCmd = &cobra.Command{
	Use:   "extract <id> [ordinal]",
	Short: "Write a message's attachments to disk",
	Long: `Extract attachments from a message into a directory.

With an ordinal, only that attachment is written; without one, all of
them are. Filenames are sanitized and collisions get numbered suffixes.

Examples:
  mboxidx extract 42 1
  mboxidx extract 42 --out ./downloads`,
	Args:         cobra.RangeArgs(1, 2),
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

		var results []export.Result
		if len(args) == 2 {
			ordinal, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid ordinal %q", args[1])
			}
			att, err := msg.Attachment(ordinal)
			if err != nil {
				return describeAttachmentErr(err, id)
			}
			res, err := export.Attachment(extractOut, att, map[string]int{})
			if err != nil {
				return err
			}
			results = append(results, res)
		} else {
			atts := msg.Attachments()
			if len(atts) == 0 {
				return describeAttachmentErr(message.ErrNoAttachments, id)
			}
			results, err = export.All(extractOut, atts)
			if err != nil {
				return err
			}
		}

		var total int64
		for _, res := range results {
			fmt.Printf("  Wrote: %s (%s)\n", res.Path, export.FormatBytesLong(res.Size))
			total += res.Size
		}
		fmt.Printf("Extracted %d attachment(s), %s\n", len(results), export.FormatBytesLong(total))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringVarP(&extractOut, "out", "o", ".", "Output directory")
}
