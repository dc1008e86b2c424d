package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mboxtools/mboxidx/internal/thread"
)

var threadCmd = &cobra.Command{
	Use:   "thread <id>",
	Short: "Show the conversation containing a message",
	Long: `Show every message in the conversation containing the given message,
as a reply tree. Messages without a Message-ID header are always their
own single-message conversation.

Examples:
  mboxidx thread 42
  mboxidx thread 42 --format json`,
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

		recs, err := engine.Thread(cmd.Context(), id)
		if err != nil {
			return err
		}

		if outputFormat != "text" {
			rows := make([]messageRow, 0, len(recs))
			for _, rec := range recs {
				rows = append(rows, rowFromRecord(rec))
			}
			return renderStructured(rows)
		}

		roots := thread.BuildTree(recs)
		for _, root := range roots {
			printNode(root, 0, id)
		}
		fmt.Printf("\n%d message(s) in thread\n", len(recs))
		return nil
	},
}

func printNode(n *thread.Node, depth int, highlight int64) {
	rec := n.Record
	date := rec.DateUTC
	if date == "" {
		date = "(no date)"
	}
	marker := " "
	if rec.ID == highlight {
		marker = "*"
	}
	fmt.Printf("%s%s[%d] %s  %s  %s\n",
		strings.Repeat("  ", depth), marker,
		rec.ID, date, truncate(rec.Sender, 30), truncate(rec.Subject, 40))
	for _, c := range n.Children {
		printNode(c, depth+1, highlight)
	}
}

func init() {
	rootCmd.AddCommand(threadCmd)
}
