package cmd

import (
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"

	"github.com/mboxtools/mboxidx/internal/scanner"
)

// cliProgress renders scan progress as a terminal bar, or as plain log lines
// when stderr is not a terminal.
type cliProgress struct {
	pb      *pterm.ProgressbarPrinter
	enabled bool
}

func newCLIProgress() *cliProgress {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return &cliProgress{}
	}
	pb, _ := pterm.DefaultProgressbar.
		WithTotal(100).
		WithTitle("Indexing messages").
		WithWriter(os.Stderr).
		Start()
	return &cliProgress{pb: pb, enabled: true}
}

// Update moves the bar to the scanner's byte percentage and shows the count
// and ETA in the title.
func (p *cliProgress) Update(prog scanner.Progress) {
	if !p.enabled || p.pb == nil {
		logger.Info("indexing",
			"messages", prog.Count,
			"percent", int(prog.Percent),
			"remaining", prog.Remaining.Round(time.Second))
		return
	}
	target := int(prog.Percent)
	if target > 100 {
		target = 100
	}
	if target > p.pb.Current {
		p.pb.Add(target - p.pb.Current)
	}
	p.pb.UpdateTitle(pterm.Sprintf("Indexing messages (%d done, ETA %s)",
		prog.Count, prog.Remaining.Round(time.Second)))
}

// Stop finalizes the bar; safe to call more than once.
func (p *cliProgress) Stop() {
	if !p.enabled || p.pb == nil {
		return
	}
	if p.pb.Current < 100 {
		p.pb.Add(100 - p.pb.Current)
	}
	p.pb.Stop()
	p.pb = nil
}
