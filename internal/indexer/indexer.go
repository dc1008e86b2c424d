// Package indexer orchestrates the build phase: one streaming scan of the
// archive into the index store, followed by thread resolution. The build is
// synchronous and blocking; a rebuild interrupted mid-way leaves a
// replaced-but-incomplete index, which a re-run fully heals since rebuilds
// are idempotent.
package indexer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/mboxtools/mboxidx/internal/index"
	"github.com/mboxtools/mboxidx/internal/mbox"
	"github.com/mboxtools/mboxidx/internal/scanner"
	"github.com/mboxtools/mboxidx/internal/thread"
)

// Options configures a build.
type Options struct {
	// Progress, if set, receives the scanner's periodic signals.
	Progress func(scanner.Progress)

	// ProgressEvery overrides the signal cadence (messages per signal).
	ProgressEvery int64

	// Logger is optional; defaults to slog.Default().
	Logger *slog.Logger
}

// Summary reports what a build did.
type Summary struct {
	Messages int64
	Bytes    int64
	Threads  int64
	Duration time.Duration
}

// Build rebuilds the index from the archive at mboxPath. A missing or
// unreadable archive is fatal and leaves no partial index behind; malformed
// individual messages are defaulted by the scanner and never abort the
// build.
func Build(ctx context.Context, st *index.Store, mboxPath string, opts Options) (*Summary, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	start := time.Now()

	f, err := os.Open(mboxPath)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat archive: %w", err)
	}
	if fi.Size() > 0 {
		if err := mbox.Validate(f, 8<<20); err != nil {
			return nil, fmt.Errorf("validate archive %s: %w", mboxPath, err)
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("rewind archive: %w", err)
		}
	}

	log.Info("building index", "archive", mboxPath, "bytes", fi.Size())

	sc := scanner.New(f, scanner.Options{
		TotalBytes:    fi.Size(),
		Progress:      opts.Progress,
		ProgressEvery: opts.ProgressEvery,
		Logger:        log,
	})

	count, err := st.Rebuild(ctx, sc.Next)
	if err != nil {
		return nil, fmt.Errorf("rebuild index: %w", err)
	}

	sources, err := st.ThreadSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("load thread sources: %w", err)
	}
	assignments := thread.Resolve(sources)
	if err := st.UpdateThreadIDs(ctx, assignments); err != nil {
		return nil, fmt.Errorf("write thread ids: %w", err)
	}

	threads := make(map[string]bool)
	for _, a := range assignments {
		if a.ThreadID != "" {
			threads[a.ThreadID] = true
		}
	}

	summary := &Summary{
		Messages: count,
		Bytes:    fi.Size(),
		Threads:  int64(len(threads)),
		Duration: time.Since(start),
	}
	log.Info("index complete",
		"messages", summary.Messages,
		"threads", summary.Threads,
		"elapsed", summary.Duration.Round(time.Millisecond))
	return summary, nil
}
