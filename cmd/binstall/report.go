package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/ZebulonRouseFrantzich/binstall/internal/pipeline"
)

// reporter prints pipeline transitions as they happen.
type reporter struct {
	w io.Writer
}

func newReporter(w io.Writer) *reporter {
	return &reporter{w: w}
}

func (r *reporter) observe(ev pipeline.Event) {
	switch {
	case ev.Err != nil:
		// the failure itself is printed once by printError
	case ev.Skipped:
		r.step(ev.Stage.String())
		r.detail("skipped: " + ev.Detail)
	default:
		r.step(ev.Stage.String())
		if ev.Detail != "" {
			r.detail(ev.Detail)
		}
	}
}

func (r *reporter) step(text string) {
	fmt.Fprintln(r.w,
		color.BlueString(" •"),
		color.New(color.Bold).Sprint(text),
	)
}

func (r *reporter) detail(text string) {
	fmt.Fprintln(r.w,
		color.New(color.FgHiBlack).Sprint("   └"),
		color.New(color.FgHiBlack).Sprint(text),
	)
}

func (r *reporter) warn(text string) {
	fmt.Fprintln(r.w, color.YellowString(" !"), text)
}

func errorMark() string {
	return color.RedString(" ✗")
}
