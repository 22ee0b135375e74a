package app

import (
	"fmt"
	"io"

	"github.com/pkg/browser"

	"docdesk/internal/desk"
)

// LinkPrinter prints deep links so the user can follow them, and with launch
// set also opens them in the default browser.
type LinkPrinter struct {
	w      io.Writer
	launch bool
	open   func(string) error
}

var _ desk.LinkOpener = (*LinkPrinter)(nil)

// NewLinkPrinter creates a LinkPrinter writing to w.
func NewLinkPrinter(w io.Writer, launch bool) *LinkPrinter {
	return &LinkPrinter{w: w, launch: launch, open: browser.OpenURL}
}

func (p *LinkPrinter) Open(link string) error {
	if _, err := fmt.Fprintf(p.w, "Open this link to send the message:\n  %s\n", link); err != nil {
		return err
	}
	if !p.launch {
		return nil
	}
	if err := p.open(link); err != nil {
		return fmt.Errorf("opening browser: %w", err)
	}
	return nil
}
