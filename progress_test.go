package powercart

import "testing"

func TestProgress_MBC2IgnoresBanks(t *testing.T) {
	for _, banks := range []int{1, 4, 16} {
		m := newProgressMeter(1, CartridgeInfo{RAMEnd: RAMEndMBC2, RAMBanks: banks})
		if m.tick != ProgressTicks || m.divisor != 1 {
			t.Fatalf("banks %d: tick %d divisor %d", banks, m.tick, m.divisor)
		}
		if p := m.at(64); p.Ticks != smallStep {
			t.Fatalf("banks %d: at 64 got %+v", banks, p)
		}
		p := m.at(512)
		if p.Ticks != ProgressTicks || p.Percent != 100 || p.Total != 512 {
			t.Fatalf("banks %d: at 512 got %+v", banks, p)
		}
	}
}

func TestProgress_2KBQuarters(t *testing.T) {
	m := newProgressMeter(2, CartridgeInfo{RAMEnd: RAMEnd2KB, RAMBanks: 1})
	if m.divisor != 4 || m.tick != ProgressTicks {
		t.Fatalf("tick %d divisor %d", m.tick, m.divisor)
	}
	if p := m.at(1024); p.Ticks != 4*smallStep || p.Percent != 50 {
		t.Fatalf("at 1024 got %+v", p)
	}
	p := m.at(2048)
	if p.Ticks != ProgressTicks || p.Percent != 100 || p.Total != 2048 || p.LEDs != 18 {
		t.Fatalf("at 2048 got %+v", p)
	}
}

func TestProgress_Banked(t *testing.T) {
	info := CartridgeInfo{RAMEnd: RAMEndFull, RAMBanks: 4}
	m := newProgressMeter(3, info)
	if m.total != 0x8000 || m.tick != 0x8000/ProgressTicks {
		t.Fatalf("total %d tick %d", m.total, m.tick)
	}

	last := Progress{}
	for erased := BlockSize; erased <= m.total; erased += BlockSize {
		p := m.at(erased)
		if p.Percent < last.Percent || p.Ticks < last.Ticks || p.LEDs < last.LEDs {
			t.Fatalf("progress went backwards at %d: %+v after %+v", erased, p, last)
		}
		last = p
	}
	if last.Percent != 100 || last.Ticks != ProgressTicks || last.LEDs != ProgressLEDs {
		t.Fatalf("final progress got %+v", last)
	}
	if last.Slot != 3 {
		t.Fatalf("slot got %d", last.Slot)
	}
}
