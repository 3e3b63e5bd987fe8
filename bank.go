package powercart

import "fmt"

// Bank register addresses. Writes to these do not store data, they select
// what the cartridge maps into the CPU address space.
const (
	RegRAMEnable  uint16 = 0x0000
	RegROMBank    uint16 = 0x2000
	RegRAMBank    uint16 = 0x4000
	RegBankSelect uint16 = 0x6000
)

const (
	ramEnableValue = 0x0A
	ramModeSelect  = 0x01
)

// Banks issues the bank register writes of an MBC style cartridge. It
// holds no state of its own; the cartridge is the only record of what is
// mapped.
type Banks struct {
	link *Link
}

func NewBanks(link *Link) Banks {
	return Banks{link: link}
}

// Set writes value to the bank register at addr. The adapter takes the
// address in hex and the value in decimal, each NUL terminated.
func (b Banks) Set(addr uint16, value byte) error {
	if _, err := b.link.Port.Write(numberBytes(CommandSetBank, uint32(addr))); err != nil {
		return fmt.Errorf("bank 0x%04X: %w", addr, err)
	}
	if err := b.link.Port.Drain(); err != nil {
		return err
	}
	b.link.sleep(bankDelay)

	if _, err := b.link.Port.Write(decimalBytes(CommandSetBank, value)); err != nil {
		return fmt.Errorf("bank 0x%04X=%d: %w", addr, value, err)
	}
	if err := b.link.Port.Drain(); err != nil {
		return err
	}
	b.link.sleep(bankDelay)
	return nil
}

// MapROM selects a ROM bank: the low byte goes to the bank select
// register, the high byte to the ROM bank register. Bank 0 gives full ROM
// access on the multi-game cart menu.
func (b Banks) MapROM(bank uint16) error {
	if err := b.Set(RegBankSelect, byte(bank)); err != nil {
		return err
	}
	return b.Set(RegROMBank, byte(bank>>8))
}

// MapRAM selects a RAM bank and makes RAM accessible or not.
func (b Banks) MapRAM(bank byte, enable bool) error {
	if err := b.Set(RegRAMBank, bank); err != nil {
		return err
	}
	var v byte
	if enable {
		v = 0x01
	}
	return b.Set(RegRAMEnable, v)
}

// Reset returns the cartridge to its menu state: ROM bank 0, RAM bank 0,
// RAM not accessible.
func (b Banks) Reset() error {
	if err := b.MapROM(0); err != nil {
		return err
	}
	return b.MapRAM(0, false)
}

// EnableRAM initialises the MBC for RAM access. MBC1 class carts need RAM
// banking mode selected first or only the first 8KB bank is reachable.
func (b Banks) EnableRAM(mbc1 bool) error {
	if mbc1 {
		if err := b.Set(RegBankSelect, ramModeSelect); err != nil {
			return err
		}
	}
	return b.Set(RegRAMEnable, ramEnableValue)
}

func (b Banks) SelectRAMBank(bank byte) error {
	return b.Set(RegRAMBank, bank)
}

func (b Banks) DisableRAM() error {
	return b.Set(RegRAMEnable, 0x00)
}
