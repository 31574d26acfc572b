package fetch

import (
	"io"
	"os"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// progress wraps reader with a progress bar on stderr. It is a no-op when
// stderr is not a terminal.
func progress(reader io.Reader, size int64) (io.Reader, func()) {
	if !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return reader, func() {}
	}

	bar := pb.
		New64(size).
		SetTemplate(
			pb.ProgressBarTemplate(
				color.New(color.FgHiBlack).Sprint(
					`   └ {{counters . }}` +
						` {{bar . "[" "=" ">" " " "]" }} {{percent . }}` +
						` {{speed . }}`,
				),
			),
		).
		SetWriter(os.Stderr).
		SetRefreshRate(time.Second / 60).
		SetMaxWidth(100).
		Start()

	return bar.NewProxyReader(reader), func() { bar.Finish() }
}
