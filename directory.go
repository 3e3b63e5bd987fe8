package powercart

import (
	"errors"
	"fmt"
)

var ErrShortInfo = errors.New("info block too short")

const (
	// MaxSlots is the number of game slots on the multi-game cart.
	MaxSlots = 7

	// InfoAddress is where the menu ROM keeps the slot table.
	InfoAddress uint16 = 0x2000

	// InfoLength is how much of the slot table is read from the device.
	InfoLength = 0x300

	// InfoBufferSize is the size of the caller-owned info buffer.
	InfoBufferSize = 0x400

	absentBank = 0xFF
)

// Slot describes one game slot as recorded in the menu's info block.
type Slot struct {
	Index   int
	ROMBank byte
	RAMBank byte
	HasRAM  bool
	Present bool
}

// Erasable reports whether the slot can have its save erased.
func (s Slot) Erasable() bool {
	return s.Present && s.HasRAM
}

func (s Slot) String() string {
	return fmt.Sprintf("slot %d (rom bank %d, ram bank %d)", s.Index, s.ROMBank, s.RAMBank)
}

// ParseDirectory decodes the slot table. The table is laid out as three
// 0x100 byte rows indexed by slot number: ROM bank (0xFF when empty), RAM
// flag, RAM bank.
func ParseDirectory(info []byte) ([]Slot, error) {
	if len(info) < InfoLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortInfo, len(info))
	}
	slots := make([]Slot, 0, MaxSlots)
	for g := 1; g <= MaxSlots; g++ {
		slots = append(slots, Slot{
			Index:   g,
			ROMBank: info[g],
			RAMBank: info[g+0x200],
			HasRAM:  info[g+0x100] == 1,
			Present: info[g] != absentBank,
		})
	}
	return slots, nil
}

// Erasable filters slots down to those that are present and have RAM,
// keeping their order.
func Erasable(slots []Slot) []Slot {
	var out []Slot
	for _, s := range slots {
		if s.Erasable() {
			out = append(out, s)
		}
	}
	return out
}
