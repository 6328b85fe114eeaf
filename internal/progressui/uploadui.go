// Package progressui renders upload progress bars from session events.
package progressui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"

	"github.com/shopstack/shopsync/internal/models"
)

const barTotal = 100 // bars track percentages, not bytes

// UploadUI manages one progress bar per staged file using mpb.
type UploadUI struct {
	progress   *mpb.Progress
	bars       map[string]*fileBar // staged file ID -> bar
	isTerminal bool
}

type fileBar struct {
	bar     *mpb.Bar
	name    string
	current int
}

// NewUploadUI creates the bar container. Bars render on stderr so logs and
// command output on stdout stay clean; non-TTY output falls back to plain
// text lines.
func NewUploadUI() *UploadUI {
	isTerminal := term.IsTerminal(int(os.Stderr.Fd()))

	var p *mpb.Progress
	if isTerminal {
		p = mpb.New(
			mpb.WithOutput(os.Stderr),
			mpb.WithRefreshRate(150*time.Millisecond),
			mpb.WithWidth(80),
		)
	} else {
		p = mpb.New(mpb.WithOutput(io.Discard))
	}

	return &UploadUI{
		progress:   p,
		bars:       make(map[string]*fileBar),
		isTerminal: isTerminal,
	}
}

// AddFiles creates a bar for each staged file.
func (u *UploadUI) AddFiles(files []models.StagedFile) {
	for i, f := range files {
		fb := &fileBar{name: f.Name}

		if u.isTerminal {
			label := fmt.Sprintf("[%d/%d] %s (%.1f KiB)",
				i+1, len(files), f.Name, float64(f.SizeBytes)/1024)

			fb.bar = u.progress.New(barTotal,
				mpb.BarStyle().
					Lbound("[").
					Filler("█").
					Tip("█").
					Padding("░").
					Rbound("]"),
				mpb.PrependDecorators(
					decor.Name(label, decor.WCSyncSpaceR),
				),
				mpb.AppendDecorators(
					decor.Percentage(decor.WCSyncSpace),
				),
			)
		} else {
			fmt.Printf("Uploading [%d/%d]: %s (%.1f KiB)\n",
				i+1, len(files), f.Name, float64(f.SizeBytes)/1024)
		}

		u.bars[f.ID] = fb
	}
}

// Update advances the bars to the given per-file percentages. Percentages
// below a bar's current value are ignored.
func (u *UploadUI) Update(perFile map[string]int) {
	for id, pct := range perFile {
		fb, ok := u.bars[id]
		if !ok {
			continue
		}
		if pct < fb.current {
			continue
		}
		fb.current = pct
		if fb.bar != nil {
			fb.bar.SetCurrent(int64(pct))
		} else if pct == barTotal {
			fmt.Printf("Uploaded: %s\n", fb.name)
		}
	}
}

// Finish resolves every bar. On success bars are pushed to 100%; otherwise
// they abort in place so the failure point stays visible.
func (u *UploadUI) Finish(success bool) {
	for _, fb := range u.bars {
		if fb.bar == nil {
			continue
		}
		if success {
			fb.bar.SetCurrent(barTotal)
		} else {
			fb.bar.Abort(false)
		}
	}
	u.progress.Wait()
}

// Writer returns a writer that prints above active bars.
func (u *UploadUI) Writer() io.Writer {
	if u.isTerminal && u.progress != nil {
		return u.progress
	}
	return os.Stderr
}

// IsTerminal reports whether bars are actually rendering.
func (u *UploadUI) IsTerminal() bool {
	return u.isTerminal
}
