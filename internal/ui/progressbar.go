package ui

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// NewProgressBar returns a bar counting total items, drawn on out. It clears
// itself once finished.
func NewProgressBar(total int, description string, out io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionEnableColorCodes(false),
		progressbar.OptionSetWriter(out),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSetWidth(20),
	)
}
