package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mboxtools/mboxidx/internal/config"
	"github.com/mboxtools/mboxidx/internal/index"
	"github.com/mboxtools/mboxidx/internal/indexer"
	"github.com/mboxtools/mboxidx/internal/query"
)

var (
	cfgFile      string
	mboxFlag     string
	verbose      bool
	outputFormat string
	cfg          *config.Config
	logger       *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mboxidx",
	Short: "Index and search mbox email archives",
	Long: `mboxidx builds a persistent index over an mbox archive and answers
metadata and body searches against it without loading the archive into
memory.

The archive is never modified; the index lives in index.sqlite next to it
and is rebuilt on demand. Message bodies and attachments are read back
from the archive by byte offset on access.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if !verbose {
			level = parseLogLevel(cfg.Log.Level)
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))

		if outputFormat == "" {
			outputFormat = cfg.Output.Format
		}
		switch outputFormat {
		case "text", "json", "yaml":
		default:
			return fmt.Errorf("unknown output format %q (want text, json, or yaml)", outputFormat)
		}
		return nil
	},
}

// Execute runs the root command with a background context.
// Prefer ExecuteContext for signal-aware execution.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with the given context,
// enabling graceful shutdown when the context is cancelled.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// archivePath resolves the mbox location: the --mbox flag wins over the
// config file.
func archivePath() (string, error) {
	path := mboxFlag
	if path == "" {
		path = cfg.Archive.Mbox
	}
	if path == "" {
		return "", fmt.Errorf(`no archive configured: pass --mbox or add to %s/config.toml:
  [archive]
  mbox = "/path/to/archive.mbox"`, cfg.HomeDir)
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("archive not accessible: %w", err)
	}
	return path, nil
}

// openEngine opens the index next to the archive, building it first if it
// does not exist yet, and returns a ready query engine with its cleanup.
func openEngine(ctx context.Context) (*query.Engine, func(), error) {
	archive, err := archivePath()
	if err != nil {
		return nil, nil, err
	}

	st, err := index.Open(index.PathFor(archive))
	if err != nil {
		return nil, nil, err
	}

	ok, err := st.HasIndex(ctx)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	if !ok {
		fmt.Fprintln(os.Stderr, "No index found; building one first.")
		if err := buildIndex(ctx, st, archive); err != nil {
			st.Close()
			return nil, nil, err
		}
	}

	closer := func() { st.Close() }
	return query.NewEngine(st, archive, logger), closer, nil
}

// buildIndex runs a full rebuild with terminal progress reporting.
func buildIndex(ctx context.Context, st *index.Store, archive string) error {
	prog := newCLIProgress()
	defer prog.Stop()

	sum, err := indexer.Build(ctx, st, archive, indexer.Options{
		Progress: prog.Update,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	prog.Stop()

	fmt.Printf("Indexed %d messages (%.2f MB) in %s\n",
		sum.Messages, float64(sum.Bytes)/(1024*1024), sum.Duration.Round(10*time.Millisecond))
	fmt.Printf("  Threads: %d\n", sum.Threads)
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.mboxidx/config.toml)")
	rootCmd.PersistentFlags().StringVar(&mboxFlag, "mbox", "", "path to the mbox archive (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "", "output format: text, json, or yaml")
}
