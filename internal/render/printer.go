package render

import (
	"fmt"
	"io"
	"sync"
)

// Printer writes every region change to a writer, one line per change.
type Printer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewPrinter creates a printer writing to out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// Attach registers the printer as an observer of store.
func (p *Printer) Attach(store *RegionStore) {
	store.OnChange(p.Print)
}

// Print writes one change.
func (p *Printer) Print(c Change) {
	p.mu.Lock()
	defer p.mu.Unlock()

	state := "updated"
	if !c.Existed {
		state = "set"
	} else if c.Previous == c.Content {
		state = "unchanged"
	}
	fmt.Fprintf(p.out, "      %s (%s) = %q\n", c.Region, state, c.Content)
}
