package cli

import (
	"io"
	"sync"

	"github.com/pterm/pterm"
)

// progressBar adapts a pterm progress bar to rimage.Progress. The bar is started lazily on the
// first update since the total is only known once the first band finishes.
type progressBar struct {
	title  string
	writer io.Writer

	mu     sync.Mutex
	bar    *pterm.ProgressbarPrinter
	failed bool
}

func newProgressBar(title string, writer io.Writer) *progressBar {
	return &progressBar{title: title, writer: writer}
}

func (pb *progressBar) Update(current, total int) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if pb.failed {
		return
	}
	if pb.bar == nil {
		bar, err := pterm.DefaultProgressbar.
			WithTotal(total).
			WithTitle(pb.title).
			WithWriter(pb.writer).
			WithRemoveWhenDone(true).
			Start()
		if err != nil {
			pb.failed = true
			return
		}
		pb.bar = bar
	}
	if delta := current - pb.bar.Current; delta > 0 {
		pb.bar.Add(delta)
	}
}

// Stop ends the bar if it was ever started.
func (pb *progressBar) Stop() error {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if pb.bar == nil {
		return nil
	}
	_, err := pb.bar.Stop()
	pb.bar = nil
	return err
}
