package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Long: `Show statistics about the archive index: message and thread counts,
how many messages carry attachments or a parseable date, and the size of
the index database.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, cleanup, err := openEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		archive, err := archivePath()
		if err != nil {
			return err
		}
		stats, err := engine.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("get stats: %w", err)
		}

		if outputFormat != "text" {
			out := struct {
				Archive        string `json:"archive" yaml:"archive"`
				Messages       int64  `json:"messages" yaml:"messages"`
				Threads        int64  `json:"threads" yaml:"threads"`
				WithAttachment int64  `json:"with_attachment" yaml:"with_attachment"`
				WithDate       int64  `json:"with_date" yaml:"with_date"`
				IndexBytes     int64  `json:"index_bytes" yaml:"index_bytes"`
			}{archive, stats.MessageCount, stats.ThreadCount,
				stats.WithAttachment, stats.WithDate, stats.DatabaseSize}
			return renderStructured(out)
		}

		fmt.Printf("Archive: %s\n", archive)
		fmt.Printf("  Messages:        %d\n", stats.MessageCount)
		fmt.Printf("  Threads:         %d\n", stats.ThreadCount)
		fmt.Printf("  With attachment: %d\n", stats.WithAttachment)
		fmt.Printf("  With date:       %d\n", stats.WithDate)
		fmt.Printf("  Index size:      %.2f MB\n", float64(stats.DatabaseSize)/(1024*1024))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
