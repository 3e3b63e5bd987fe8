package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	powercart "github.com/tocurd/go-powercart"
)

type prompter struct {
	in  *bufio.Reader
	out io.Writer

	// fd is the terminal for single keystroke input, -1 when input is not
	// a terminal
	fd int
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	p := &prompter{in: bufio.NewReader(in), out: out, fd: -1}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.fd = int(f.Fd())
	}
	return p
}

// slot reads a slot number or "a" for all slots.
func (p *prompter) slot() (all bool, slot int, err error) {
	fmt.Fprint(p.out, ">")
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return false, 0, err
	}
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "a") {
		return true, 0, nil
	}
	slot, err = strconv.Atoi(line)
	if err != nil || slot < 1 || slot > powercart.MaxSlots {
		return false, 0, fmt.Errorf("%w: %q", powercart.ErrSlotRange, line)
	}
	return false, slot, nil
}

func (p *prompter) confirm(req powercart.ConfirmRequest) bool {
	if req.Slot == nil {
		fmt.Fprint(p.out, "\n\n*** This will erase all the save games from your Gameboy Cartridge ***")
	} else {
		fmt.Fprintf(p.out, "\n%s\n\n*** This will erase the save game from your Gameboy Cartridge ***", req.Info.Title)
	}
	fmt.Fprint(p.out, "\nPress y to continue or any other key to abort.\n")

	c, err := p.readOneLetter()
	if err != nil {
		return false
	}
	if c != 'y' {
		fmt.Fprintln(p.out, "\nAborted")
		return false
	}
	return true
}

// readOneLetter reads a single keystroke without waiting for return when
// input is a terminal.
func (p *prompter) readOneLetter() (byte, error) {
	if p.fd >= 0 {
		state, err := term.MakeRaw(p.fd)
		if err == nil {
			defer term.Restore(p.fd, state)
		}
	}
	c, err := p.in.ReadByte()
	if err != nil {
		return 0, err
	}
	if p.fd < 0 && c != '\n' {
		// line buffered input, drop the rest of the line
		p.in.ReadString('\n')
	}
	return c, nil
}
