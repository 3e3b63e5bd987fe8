package main

import (
	"fmt"
	"io"
	"strings"

	powercart "github.com/tocurd/go-powercart"
)

const barHeader = "[             25%             50%             75%            100%]"

// progressBar prints one '#' per tick. A new bar is started whenever the
// slot changes.
type progressBar struct {
	out   io.Writer
	slot  int
	ticks int
	open  bool
}

func (b *progressBar) update(p powercart.Progress) {
	if !b.open || p.Slot != b.slot {
		b.finish()
		fmt.Fprintf(b.out, "\nErasing save in slot %d\n%s\n[", p.Slot, barHeader)
		b.open = true
		b.slot = p.Slot
		b.ticks = 0
	}
	if p.Ticks > b.ticks {
		fmt.Fprint(b.out, strings.Repeat("#", p.Ticks-b.ticks))
		b.ticks = p.Ticks
	}
}

func (b *progressBar) finish() {
	if !b.open {
		return
	}
	fmt.Fprintln(b.out, "]")
	b.open = false
}
