package powercart

const (
	// ProgressTicks is the width of the progress bar.
	ProgressTicks = 64

	// ProgressLEDs is the length of the coarse LED style scale.
	ProgressLEDs = 28
)

// Progress is reported after every erased block.
type Progress struct {
	Slot    int
	Erased  int
	Total   int
	Percent int
	Ticks   int
	LEDs    int
}

// ProgressFunc receives progress updates. It may be nil.
type ProgressFunc func(Progress)

// progressMeter turns erased bytes into bar ticks. The two small RAM
// layouts are scaled differently from the banked ones: 0xA1FF counts
// every 64 bytes as a step of 8 ticks, 0xA7FF counts bytes in quarters
// first.
type progressMeter struct {
	slot    int
	total   int
	divisor int
	tick    int
	step    int
	led     int
}

// smallStep is the number of ticks each hit is worth on the small RAM
// layouts, eight hits fill the bar.
const smallStep = 8

func newProgressMeter(slot int, info CartridgeInfo) progressMeter {
	m := progressMeter{
		slot:    slot,
		total:   info.RAMBytes(),
		divisor: 1,
		step:    1,
	}
	switch info.RAMEnd {
	case RAMEndMBC2:
		m.tick = ProgressTicks
		m.step = smallStep
		m.led = ProgressLEDs
	case RAMEnd2KB:
		m.divisor = 4
		m.tick = ProgressTicks
		m.step = smallStep
		m.led = ProgressLEDs
	default:
		m.tick = max(1, m.total/ProgressTicks)
		m.led = max(1, m.total/ProgressLEDs)
	}
	return m
}

func (m progressMeter) at(erased int) Progress {
	units := erased / m.divisor
	ticks := min(ProgressTicks, units/m.tick*m.step)
	return Progress{
		Slot:    m.slot,
		Erased:  erased,
		Total:   m.total,
		Percent: ticks * 100 / ProgressTicks,
		Ticks:   ticks,
		LEDs:    min(ProgressLEDs, units/m.led),
	}
}
