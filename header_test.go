package powercart

import (
	"errors"
	"testing"
)

func TestValidLogo(t *testing.T) {
	hdr := buildHeader("TEST", 0x03, 0x03)
	if !ValidLogo(hdr) {
		t.Fatalf("ValidLogo = false, want true")
	}
	hdr[logoOffset+10] ^= 0xFF
	if ValidLogo(hdr) {
		t.Fatalf("ValidLogo = true after corruption")
	}
	if ValidLogo(make([]byte, 0x100)) {
		t.Fatalf("ValidLogo = true for short header")
	}
}

func TestParseHeader_RAMGeometry(t *testing.T) {
	tests := []struct {
		name     string
		cartType byte
		ramSize  byte
		end      uint16
		banks    int
		bytes    int
	}{
		{"none", 0x01, 0x00, RAMEndNone, 0, 0},
		{"2KB", 0x03, 0x01, RAMEnd2KB, 1, 0x800},
		{"8KB", 0x03, 0x02, RAMEndFull, 1, 0x2000},
		{"32KB", 0x03, 0x03, RAMEndFull, 4, 0x8000},
		{"128KB", 0x1B, 0x04, RAMEndFull, 16, 0x20000},
		{"64KB", 0x1B, 0x05, RAMEndFull, 8, 0x10000},
		{"MBC2", 0x06, 0x00, RAMEndMBC2, 1, 0x200},
		{"MBC2 ignores size", 0x05, 0x03, RAMEndMBC2, 1, 0x200},
		{"unknown code", 0x1B, 0x09, RAMEndNone, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := ParseHeader(buildHeader("GAME", tt.cartType, tt.ramSize))
			if err != nil {
				t.Fatal(err)
			}
			if info.RAMEnd != tt.end || info.RAMBanks != tt.banks {
				t.Fatalf("got end %#04x banks %d, want %#04x %d", info.RAMEnd, info.RAMBanks, tt.end, tt.banks)
			}
			if info.RAMBytes() != tt.bytes {
				t.Fatalf("RAMBytes got %d want %d", info.RAMBytes(), tt.bytes)
			}
		})
	}
}

func TestParseHeader_Title(t *testing.T) {
	info, err := ParseHeader(buildHeader("POKEMON RED", 0x13, 0x03))
	if err != nil {
		t.Fatal(err)
	}
	if info.Title != "POKEMON RED" {
		t.Fatalf("Title got %q", info.Title)
	}
	if info.CartType != 0x13 || info.IsMBC1() {
		t.Fatalf("cart type got %#02x mbc1 %v", info.CartType, info.IsMBC1())
	}

	// colour games give up the last title byte for the CGB flag
	hdr := buildHeader("ABCDEFGHIJKLMNOP", 0x1B, 0x03)
	hdr[cgbFlagOffset] = 0x80
	info, err = ParseHeader(hdr)
	if err != nil {
		t.Fatal(err)
	}
	if info.Title != "ABCDEFGHIJKLMNO" {
		t.Fatalf("CGB title got %q", info.Title)
	}
}

func TestParseHeader_Short(t *testing.T) {
	if _, err := ParseHeader(make([]byte, 0x140)); !errors.Is(err, ErrShortHeader) {
		t.Fatalf("expected ErrShortHeader, got %v", err)
	}
}
