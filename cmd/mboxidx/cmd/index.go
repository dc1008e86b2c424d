package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mboxtools/mboxidx/internal/index"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build or rebuild the archive index",
	Long: `Build the index for the configured mbox archive.

The index is rebuilt from scratch on every run: it holds nothing that is
not re-derivable from the archive, so a rebuild is always safe. Readers
keep seeing the old index until the new one is swapped in.

Examples:
  mboxidx index --mbox ~/mail/archive.mbox
  mboxidx index            # archive from ~/.mboxidx/config.toml`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, err := archivePath()
		if err != nil {
			return err
		}

		st, err := index.Open(index.PathFor(archive))
		if err != nil {
			return fmt.Errorf("open index: %w", err)
		}
		defer st.Close()

		return buildIndex(cmd.Context(), st, archive)
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}
