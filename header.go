package powercart

import (
	"bytes"
	"errors"
	"fmt"
)

var ErrShortHeader = errors.New("header too short")

const (
	// HeaderAddress is where the selected slot's header window is read.
	HeaderAddress uint16 = 0x4000

	// HeaderLength covers the header through 0x150, rounded up to whole
	// blocks.
	HeaderLength = 0x180

	RAMStart uint16 = 0xA000

	logoOffset     = 0x104
	titleOffset    = 0x134
	cgbFlagOffset  = 0x143
	cartTypeOffset = 0x147
	ramSizeOffset  = 0x149
	headerEnd      = 0x150
)

// RAM end addresses reported by the header.
const (
	RAMEndNone uint16 = 0x0000
	RAMEndMBC2 uint16 = 0xA1FF
	RAMEnd2KB  uint16 = 0xA7FF
	RAMEndFull uint16 = 0xBFFF
)

var nintendoLogo = [48]byte{
	0xCE, 0xED, 0x66, 0x66, 0xCC, 0x0D, 0x00, 0x0B, 0x03, 0x73, 0x00, 0x83, 0x00, 0x0C, 0x00, 0x0D,
	0x00, 0x08, 0x11, 0x1F, 0x88, 0x89, 0x00, 0x0E, 0xDC, 0xCC, 0x6E, 0xE6, 0xDD, 0xDD, 0xD9, 0x99,
	0xBB, 0xBB, 0x67, 0x63, 0x6E, 0x0E, 0xEC, 0xCC, 0xDD, 0xDC, 0x99, 0x9F, 0xBB, 0xB9, 0x33, 0x3E,
}

// CartridgeInfo is what the erase needs to know about the game in the
// selected slot.
type CartridgeInfo struct {
	Title       string
	CartType    byte
	RAMSizeCode byte
	RAMBanks    int
	RAMEnd      uint16
}

func (c CartridgeInfo) HasRAM() bool {
	return c.RAMEnd != RAMEndNone
}

// IsMBC1 covers ROM only and MBC1 cart types, which need RAM banking mode
// selected before RAM is enabled.
func (c CartridgeInfo) IsMBC1() bool {
	return c.CartType <= 0x04
}

func (c CartridgeInfo) IsMBC2() bool {
	return c.CartType == 0x05 || c.CartType == 0x06
}

// BankSize is the number of bytes erased per RAM bank.
func (c CartridgeInfo) BankSize() int {
	if !c.HasRAM() {
		return 0
	}
	return int(c.RAMEnd-RAMStart) + 1
}

// RAMBytes is the total number of bytes the erase writes.
func (c CartridgeInfo) RAMBytes() int {
	return c.RAMBanks * c.BankSize()
}

// ValidLogo checks the header for the Nintendo boot logo. A mismatch means
// the slot holds no usable Game Boy image.
func ValidLogo(hdr []byte) bool {
	if len(hdr) < logoOffset+len(nintendoLogo) {
		return false
	}
	return bytes.Equal(hdr[logoOffset:logoOffset+len(nintendoLogo)], nintendoLogo[:])
}

// ParseHeader decodes the title, cartridge type and RAM geometry.
func ParseHeader(hdr []byte) (CartridgeInfo, error) {
	if len(hdr) < headerEnd {
		return CartridgeInfo{}, fmt.Errorf("%w: %d bytes", ErrShortHeader, len(hdr))
	}

	// colour games use the last title byte as the CGB flag
	titleLen := 16
	if f := hdr[cgbFlagOffset]; f == 0x80 || f == 0xC0 {
		titleLen = 15
	}

	info := CartridgeInfo{
		Title:       trimTitle(hdr[titleOffset : titleOffset+titleLen]),
		CartType:    hdr[cartTypeOffset],
		RAMSizeCode: hdr[ramSizeOffset],
	}
	info.RAMEnd, info.RAMBanks = ramGeometry(info.CartType, info.RAMSizeCode)
	return info, nil
}

func ramGeometry(cartType, sizeCode byte) (end uint16, banks int) {
	// MBC2 has 512x4 bits built in whatever the size byte says
	if cartType == 0x05 || cartType == 0x06 {
		return RAMEndMBC2, 1
	}
	switch sizeCode {
	case 0x01:
		return RAMEnd2KB, 1
	case 0x02:
		return RAMEndFull, 1
	case 0x03:
		return RAMEndFull, 4
	case 0x04:
		return RAMEndFull, 16
	case 0x05:
		return RAMEndFull, 8
	default:
		return RAMEndNone, 0
	}
}
