package powercart

import "time"

// PulseHold is how long each level of the slot select pulse is held.
const PulseHold = 300 * time.Millisecond

type SelectorState int

const (
	SelectorIdle SelectorState = iota
	SelectorLow
	SelectorHigh
)

func (s SelectorState) String() string {
	switch s {
	case SelectorIdle:
		return "idle"
	case SelectorLow:
		return "low"
	case SelectorHigh:
		return "high"
	}
	return "unknown"
}

// audioLine drives the cartridge audio pin, which the multi-game cart uses
// to reset its slot latch.
type audioLine interface {
	output() error
	low() error
	high() error
}

// modeLine uses the audio mode commands of firmware R22 and later.
type modeLine struct {
	link *Link
}

func (m modeLine) output() error {
	if err := m.link.SetMode(CommandAudioHigh); err != nil {
		return err
	}
	m.link.sleep(PulseHold)
	return nil
}

func (m modeLine) low() error  { return m.link.SetMode(CommandAudioLow) }
func (m modeLine) high() error { return m.link.SetMode(CommandAudioHigh) }

// legacyLine drives the pin through the generic port opcodes of older
// firmware. Each opcode is a string, a NUL and a drain.
type legacyLine struct {
	link *Link
}

func (l legacyLine) output() error { return l.link.SendString("OE0x02") }
func (l legacyLine) low() error    { return l.link.SendString("LE0x02") }
func (l legacyLine) high() error   { return l.link.SendString("HE0x02") }

// audioLines is ordered by descending minimum firmware.
var audioLines = []struct {
	minFirmware int
	open        func(*Link) audioLine
}{
	{22, func(l *Link) audioLine { return modeLine{link: l} }},
	{0, func(l *Link) audioLine { return legacyLine{link: l} }},
}

func audioLineFor(link *Link, firmware int) audioLine {
	for _, a := range audioLines {
		if firmware >= a.minFirmware {
			return a.open(link)
		}
	}
	return legacyLine{link: link}
}

// Selector resets the multi-game slot latch. The latch samples the bank
// lines on the rising edge, so every slot mapping is bracketed by a pulse.
type Selector struct {
	link  *Link
	line  audioLine
	state SelectorState
}

func NewSelector(link *Link, firmware int) *Selector {
	return &Selector{
		link: link,
		line: audioLineFor(link, firmware),
	}
}

// Prepare sets the audio pin up as an output. It is done once per session.
func (s *Selector) Prepare() error {
	return s.line.output()
}

// Pulse drives the line low then high, holding each level for PulseHold,
// and leaves the selector idle. A failed pulse also leaves it idle, the
// next pulse starts over.
func (s *Selector) Pulse() (err error) {
	defer func() {
		if err != nil {
			s.state = SelectorIdle
		}
	}()

	s.state = SelectorLow
	if err := s.line.low(); err != nil {
		return err
	}
	s.link.sleep(PulseHold)

	s.state = SelectorHigh
	if err := s.line.high(); err != nil {
		return err
	}
	s.link.sleep(PulseHold)

	s.state = SelectorIdle
	return nil
}

func (s *Selector) State() SelectorState {
	return s.state
}
