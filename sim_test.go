package powercart

import (
	"bytes"
	"fmt"
	"strconv"
	"testing"
	"time"
)

// simGame is one game slot on the simulated multi-game cart.
type simGame struct {
	rom []byte
	ram [16][0x2000]byte
}

// simCart is a GBxCart RW with a multi-game cart inserted. It parses the
// command stream the way the adapter firmware does and serves reads from
// the menu ROM or the latched game.
type simCart struct {
	t *testing.T

	cartMode  byte
	pcb       byte
	firmware  byte
	cartPower byte

	menu  []byte
	games map[byte]*simGame

	in  []byte
	out bytes.Buffer

	regs     map[uint16]byte
	bankAddr *uint16
	addr     uint32
	reading  bool
	audioLow bool
	armed    bool
	slot     byte

	// shortReads truncates the n-th emitted read block (1-based)
	shortReads map[int]int
	blocks     int
	dropAcks   bool

	ops     []string
	latched []byte
	starts  []uint32
	stops   int
	flushes int
	writes  int
}

func newSimCart(t *testing.T) *simCart {
	s := &simCart{
		t:          t,
		cartMode:   1,
		pcb:        byte(PCB14),
		firmware:   26,
		menu:       make([]byte, 0x4000),
		games:      make(map[byte]*simGame),
		regs:       make(map[uint16]byte),
		shortReads: make(map[int]int),
	}
	for g := 1; g <= MaxSlots; g++ {
		s.menu[int(InfoAddress)+g] = absentBank
	}
	return s
}

// addGame installs a game in a slot. A zero cartType and ramSize gives a
// ROM only game.
func (s *simCart) addGame(index int, romBank, ramBank byte, hasRAM bool, hdr []byte) *simGame {
	base := int(InfoAddress)
	s.menu[base+index] = romBank
	if hasRAM {
		s.menu[base+index+0x100] = 1
	}
	s.menu[base+index+0x200] = ramBank

	g := &simGame{rom: make([]byte, 0x4000)}
	for i := range g.rom {
		g.rom[i] = 0xFF
	}
	copy(g.rom, hdr)
	for b := range g.ram {
		for i := range g.ram[b] {
			g.ram[b][i] = 0xAA
		}
	}
	s.games[romBank] = g
	return g
}

func (s *simCart) Read(p []byte) (int, error) {
	if s.out.Len() == 0 {
		return 0, nil
	}
	return s.out.Read(p)
}

func (s *simCart) Write(p []byte) (int, error) {
	s.in = append(s.in, p...)
	for s.step() {
	}
	return len(p), nil
}

func (s *simCart) Drain() error { return nil }

func (s *simCart) ResetInputBuffer() error {
	s.flushes++
	s.out.Reset()
	return nil
}

func (s *simCart) SetReadTimeout(time.Duration) error { return nil }

// step consumes one complete command from the input. It returns false
// when more bytes are needed.
func (s *simCart) step() bool {
	if len(s.in) == 0 {
		return false
	}
	c := s.in[0]
	switch c {
	case 'A', 'B', 'O', 'L', 'H':
		end := bytes.IndexByte(s.in, 0)
		if end < 0 {
			return false
		}
		arg := string(s.in[1:end])
		s.in = s.in[end+1:]
		s.command(c, arg)
	case 'W':
		if len(s.in) < 1+BlockSize {
			return false
		}
		data := append([]byte(nil), s.in[1:1+BlockSize]...)
		s.in = s.in[1+BlockSize:]
		s.writeRAM(data)
	default:
		s.in = s.in[1:]
		s.command(c, "")
	}
	return true
}

func (s *simCart) command(c byte, arg string) {
	switch c {
	case 'A':
		v, err := strconv.ParseUint(arg, 16, 32)
		if err != nil {
			s.t.Fatalf("bad start address %q", arg)
		}
		s.addr = uint32(v)
		s.starts = append(s.starts, s.addr)
	case 'B':
		if s.bankAddr == nil {
			v, err := strconv.ParseUint(arg, 16, 16)
			if err != nil {
				s.t.Fatalf("bad bank address %q", arg)
			}
			a := uint16(v)
			s.bankAddr = &a
			return
		}
		v, err := strconv.ParseUint(arg, 10, 8)
		if err != nil {
			s.t.Fatalf("bad bank value %q", arg)
		}
		s.bank(*s.bankAddr, byte(v))
		s.bankAddr = nil
	case 'O':
		s.ops = append(s.ops, "output")
	case 'L', '9':
		s.audioLow = true
		s.ops = append(s.ops, "low")
	case 'H', '8':
		if s.audioLow {
			s.armed = true
		}
		s.audioLow = false
		s.ops = append(s.ops, "high")
	case 'R':
		s.reading = true
		s.emitBlock()
	case '1':
		if s.reading {
			s.emitBlock()
		}
	case '0':
		s.reading = false
		s.stops++
	case 'C':
		s.out.WriteByte(s.cartMode)
	case 'h':
		s.out.WriteByte(s.pcb)
	case 'V':
		s.out.WriteByte(s.firmware)
	case ']':
		s.out.WriteByte(s.cartPower)
	case '/':
		s.cartPower = 1
		s.ops = append(s.ops, "power on")
	case '.':
		s.cartPower = 0
		s.ops = append(s.ops, "power off")
	default:
		s.ops = append(s.ops, fmt.Sprintf("mode %c", c))
	}
}

func (s *simCart) bank(addr uint16, v byte) {
	s.regs[addr] = v
	s.ops = append(s.ops, fmt.Sprintf("bank %04x=%d", addr, v))
	if addr == RegBankSelect && s.armed {
		s.slot = v
		s.armed = false
		s.latched = append(s.latched, v)
	}
}

func (s *simCart) readByte(addr uint32) byte {
	switch {
	case addr < 0x4000:
		return s.menu[addr]
	case addr < 0x8000:
		if g := s.games[s.slot]; g != nil {
			return g.rom[addr-0x4000]
		}
	}
	return 0xFF
}

func (s *simCart) emitBlock() {
	s.blocks++
	n := BlockSize
	if short, ok := s.shortReads[s.blocks]; ok {
		n = short
	}
	for i := 0; i < n; i++ {
		s.out.WriteByte(s.readByte(s.addr + uint32(i)))
	}
	s.addr += BlockSize
}

func (s *simCart) writeRAM(data []byte) {
	s.writes++
	if s.regs[RegRAMEnable] == ramEnableValue {
		if g := s.games[s.slot]; g != nil && s.addr >= uint32(RAMStart) {
			off := int(s.addr) - int(RAMStart)
			copy(g.ram[s.regs[RegRAMBank]&0x0F][off:], data)
		}
	}
	s.addr += BlockSize
	if !s.dropAcks {
		s.out.WriteByte(ackByte)
	}
}

// idle reports whether the bank registers are in the menu state.
func (s *simCart) idle() bool {
	return s.regs[RegBankSelect] == 0 && s.regs[RegROMBank] == 0 &&
		s.regs[RegRAMBank] == 0 && s.regs[RegRAMEnable] == 0 && !s.audioLow
}

// buildHeader makes a ROM bank with a valid logo and header fields.
func buildHeader(title string, cartType, ramSizeCode byte) []byte {
	hdr := make([]byte, HeaderLength)
	copy(hdr[logoOffset:], nintendoLogo[:])
	tbytes := []byte(title)
	if len(tbytes) > 16 {
		tbytes = tbytes[:16]
	}
	copy(hdr[titleOffset:titleOffset+16], tbytes)
	hdr[cartTypeOffset] = cartType
	hdr[ramSizeOffset] = ramSizeCode
	return hdr
}

func newTestLink(port Port) *Link {
	l := NewLink(port)
	l.Sleep = func(time.Duration) {}
	l.AckTimeout = 20 * time.Millisecond
	return l
}

func newTestEngine(t *testing.T, sim *simCart, opts Options) *Engine {
	t.Helper()
	session := &Session{
		Link:     newTestLink(sim),
		PCB:      PCBVersion(sim.pcb),
		Firmware: int(sim.firmware),
	}
	e, err := NewEngine(session, opts)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}
