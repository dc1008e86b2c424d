package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mboxtools/mboxidx/internal/query"
)

var (
	searchFrom    string
	searchTo      string
	searchSubject string
	searchBody    string
	searchAfter   string
	searchBefore  string
	searchHasAtt  bool
	searchLimit   int
	searchCount   bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search the archive index",
	Long: `Search indexed messages. All given filters must match.

Sender, subject, and recipient filters are case-insensitive substring
matches against the index. The body filter reads each candidate message
back from the archive, so it is slower; combine it with metadata filters
to narrow the candidate set first.

Examples:
  mboxidx search --from alice@example.com --has-attachment
  mboxidx search --subject invoice --after 2024-01-01 --before 2024-07-01
  mboxidx search --from bob --body "pineapple" -n 10
  mboxidx search --to dave@example.com --count`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := buildFilter()
		if err != nil {
			return err
		}

		engine, cleanup, err := openEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		if searchCount {
			n, err := engine.Count(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("count: %w", err)
			}
			if outputFormat == "text" {
				fmt.Printf("%d messages match\n", n)
				return nil
			}
			return renderStructured(map[string]int64{"count": n})
		}

		recs, err := engine.List(cmd.Context(), filter)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		return renderRecords(recs)
	},
}

func buildFilter() (query.Filter, error) {
	filter := query.Filter{
		Sender:        searchFrom,
		Recipient:     searchTo,
		Subject:       searchSubject,
		Body:          searchBody,
		HasAttachment: searchHasAtt,
		Limit:         searchLimit,
	}

	if searchAfter != "" {
		t, err := time.Parse("2006-01-02", searchAfter)
		if err != nil {
			return filter, fmt.Errorf("invalid after date: %w", err)
		}
		filter.After = &t
	}
	if searchBefore != "" {
		t, err := time.Parse("2006-01-02", searchBefore)
		if err != nil {
			return filter, fmt.Errorf("invalid before date: %w", err)
		}
		filter.Before = &t
	}
	return filter, nil
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVar(&searchFrom, "from", "", "Sender substring")
	searchCmd.Flags().StringVar(&searchTo, "to", "", "Recipient substring (matches To, Cc, and Bcc)")
	searchCmd.Flags().StringVar(&searchSubject, "subject", "", "Subject substring")
	searchCmd.Flags().StringVar(&searchBody, "body", "", "Body text substring (reads candidates from the archive)")
	searchCmd.Flags().StringVar(&searchAfter, "after", "", "Messages on or after date (YYYY-MM-DD)")
	searchCmd.Flags().StringVar(&searchBefore, "before", "", "Messages before date (YYYY-MM-DD)")
	searchCmd.Flags().BoolVar(&searchHasAtt, "has-attachment", false, "Only messages with attachments")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 50, "Maximum number of results (0 = unlimited)")
	searchCmd.Flags().BoolVar(&searchCount, "count", false, "Print the match count only")
}
