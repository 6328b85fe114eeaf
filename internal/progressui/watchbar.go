package progressui

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
)

// WatchBar is the indeterminate spinner shown while watch mode waits for
// files to land in the drop folder.
type WatchBar struct {
	bar *progressbar.ProgressBar
}

// NewWatchBar creates the spinner describing the watched directory.
func NewWatchBar(dir string) *WatchBar {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(fmt.Sprintf("Watching %s", dir)),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(100),
	)
	return &WatchBar{bar: bar}
}

// Tick advances the spinner.
func (w *WatchBar) Tick() {
	if w.bar != nil {
		_ = w.bar.Add(1)
	}
}

// Describe updates the spinner label, e.g. after a file stages.
func (w *WatchBar) Describe(desc string) {
	if w.bar != nil {
		w.bar.Describe(desc)
	}
}

// Finish clears the spinner.
func (w *WatchBar) Finish() {
	if w.bar != nil {
		_ = w.bar.Finish()
		fmt.Fprint(os.Stderr, "\n")
	}
}
