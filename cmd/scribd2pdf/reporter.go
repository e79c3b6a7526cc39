package main

import (
	"fmt"
	"io"
	"sync"

	scribd2pdf "github.com/alnah/go-scribd2pdf"
)

var (
	_ scribd2pdf.Reporter = (*terminalReporter)(nil)
	_ scribd2pdf.Resetter = (*terminalReporter)(nil)
)

// terminalReporter prints one line per stage, prefixed with the document's
// file name so concurrent conversions stay readable. With verbose set it
// also prints scroll progress in 10% steps.
type terminalReporter struct {
	mu      sync.Mutex
	w       io.Writer
	label   string
	verbose bool
	last    int
}

func newTerminalReporter(w io.Writer, label string, verbose bool) *terminalReporter {
	return &terminalReporter{w: w, label: label, verbose: verbose, last: -1}
}

func (r *terminalReporter) Stage(label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "%s: %s\n", r.label, label)
}

func (r *terminalReporter) Progress(fraction float64) {
	if !r.verbose {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket := int(fraction * 10)
	if bucket == r.last {
		return
	}
	r.last = bucket
	fmt.Fprintf(r.w, "%s: %3.0f%%\n", r.label, fraction*100)
}

// Reset forgets the last printed step so a retry starts from zero.
func (r *terminalReporter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = -1
}
