package powercart

import (
	"errors"
	"fmt"

	"github.com/tocurd/go-powercart/internal/logger"
)

var ErrSlotRange = errors.New("slot out of range")
var ErrSlotUnavailable = errors.New("slot has no game or no save RAM")

// Outcome is how an erase of one slot ended. Only OutcomeErased touched
// the save RAM.
type Outcome int

const (
	OutcomeErased Outcome = iota
	OutcomeNoCartridge
	OutcomeNoRAM
	OutcomeAborted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeErased:
		return "erased"
	case OutcomeNoCartridge:
		return "no valid cartridge"
	case OutcomeNoRAM:
		return "cartridge has no RAM"
	case OutcomeAborted:
		return "aborted"
	}
	return "unknown"
}

// Result of erasing one slot. Info is only set once the header was read.
type Result struct {
	Slot    Slot
	Outcome Outcome
	Info    *CartridgeInfo
	Erased  int
}

// Candidate is an erasable slot with the title found in its header.
type Candidate struct {
	Slot  Slot
	Title string
	Valid bool
}

// ConfirmRequest is passed to the confirmation gate. Slot is nil when the
// request covers every slot.
type ConfirmRequest struct {
	Slot *Slot
	Info *CartridgeInfo
}

type Options struct {
	// Fill is written to every byte of save RAM.
	Fill byte

	// Confirm gates every destructive erase. Nil means always proceed.
	Confirm func(ConfirmRequest) bool
}

// Engine erases saves on a multi-game cart. It owns the bus for its
// lifetime; nothing else may drive the link concurrently.
type Engine struct {
	link     *Link
	banks    Banks
	selector *Selector
	opts     Options

	slots []Slot
}

// NewEngine refuses hardware that cannot drive the multi-game cart before
// touching the cartridge.
func NewEngine(session *Session, opts Options) (*Engine, error) {
	if err := session.Check(); err != nil {
		return nil, err
	}
	return &Engine{
		link:     session.Link,
		banks:    NewBanks(session.Link),
		selector: NewSelector(session.Link, session.Firmware),
		opts:     opts,
	}, nil
}

func (e *Engine) Selector() *Selector {
	return e.selector
}

/*
 * @Description: 读取菜单中的游戏槽信息
 * @return slots 全部7个槽
 * @return err
 */
func (e *Engine) LoadDirectory() ([]Slot, error) {
	if e.slots != nil {
		return e.slots, nil
	}
	if err := e.banks.Reset(); err != nil {
		return nil, err
	}

	info := make([]byte, InfoBufferSize)
	if err := e.link.ReadRegion(InfoAddress, info[:InfoLength]); err != nil {
		return nil, fmt.Errorf("read slot info: %w", err)
	}
	slots, err := ParseDirectory(info)
	if err != nil {
		return nil, err
	}
	if err := e.selector.Prepare(); err != nil {
		return nil, err
	}

	e.slots = slots
	return slots, nil
}

// ListCandidates reads the title of every erasable slot, in slot order. The
// cartridge is returned to its menu state afterwards whatever happened.
func (e *Engine) ListCandidates() (list []Candidate, err error) {
	slots, err := e.LoadDirectory()
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, e.Recover())
	}()

	hdr := make([]byte, HeaderLength)
	for _, s := range Erasable(slots) {
		if err := e.selectSlot(s); err != nil {
			return list, err
		}
		if err := e.link.ReadRegion(HeaderAddress, hdr); err != nil {
			return list, err
		}
		c := Candidate{Slot: s, Valid: ValidLogo(hdr)}
		if c.Valid {
			info, err := ParseHeader(hdr)
			if err != nil {
				return list, err
			}
			c.Title = info.Title
		}
		list = append(list, c)
	}
	return list, nil
}

/*
 * @Description: 擦除指定游戏槽的存档
 * @param index 槽编号 1..7
 * @param progress 进度回调, 可为nil
 * @return Result
 * @return error
 */
func (e *Engine) EraseSlot(index int, progress ProgressFunc) (Result, error) {
	if index < 1 || index > MaxSlots {
		return Result{}, fmt.Errorf("%w: %d", ErrSlotRange, index)
	}
	slots, err := e.LoadDirectory()
	if err != nil {
		return Result{}, err
	}
	slot := slots[index-1]
	if !slot.Erasable() {
		return Result{Slot: slot}, fmt.Errorf("%w: %d", ErrSlotUnavailable, index)
	}
	return e.erase(slot, true, progress)
}

// EraseAll erases every erasable slot in order. Slots without a valid game
// or without RAM are skipped. A transport error stops the run and is
// returned along with the results so far.
func (e *Engine) EraseAll(progress ProgressFunc) ([]Result, error) {
	slots, err := e.LoadDirectory()
	if err != nil {
		return nil, err
	}
	if !e.confirm(ConfirmRequest{}) {
		logger.Log("erase", "erase of all slots aborted")
		return nil, nil
	}

	var results []Result
	for _, s := range Erasable(slots) {
		r, err := e.erase(s, false, progress)
		results = append(results, r)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// Recover puts the cartridge back in its menu state: a latch pulse then
// ROM bank 0, RAM bank 0, RAM disabled. It is safe to call at any time.
func (e *Engine) Recover() error {
	if err := e.selector.Pulse(); err != nil {
		return err
	}
	return e.banks.Reset()
}

func (e *Engine) confirm(req ConfirmRequest) bool {
	if e.opts.Confirm == nil {
		return true
	}
	return e.opts.Confirm(req)
}

// selectSlot pulses the latch and maps in the slot's ROM and RAM banks.
func (e *Engine) selectSlot(s Slot) error {
	if err := e.selector.Pulse(); err != nil {
		return err
	}
	if err := e.banks.MapROM(uint16(s.ROMBank)); err != nil {
		return err
	}
	return e.banks.MapRAM(s.RAMBank, true)
}

func (e *Engine) erase(s Slot, ask bool, progress ProgressFunc) (r Result, err error) {
	r = Result{Slot: s}
	defer func() {
		if rerr := e.Recover(); rerr != nil {
			logger.Logf("erase", "%s: restore failed: %v", s, rerr)
			err = errors.Join(err, fmt.Errorf("restore menu state: %w", rerr))
		}
	}()

	if err := e.selectSlot(s); err != nil {
		return r, err
	}

	hdr := make([]byte, HeaderLength)
	if err := e.link.ReadRegion(HeaderAddress, hdr); err != nil {
		return r, err
	}
	if !ValidLogo(hdr) {
		logger.Logf("erase", "%s: no valid cartridge", s)
		r.Outcome = OutcomeNoCartridge
		return r, nil
	}

	info, err := ParseHeader(hdr)
	if err != nil {
		return r, err
	}
	r.Info = &info
	if !info.HasRAM() {
		logger.Logf("erase", "%s: %s has no RAM", s, info.Title)
		r.Outcome = OutcomeNoRAM
		return r, nil
	}

	if ask && !e.confirm(ConfirmRequest{Slot: &s, Info: &info}) {
		logger.Logf("erase", "%s: aborted", s)
		r.Outcome = OutcomeAborted
		return r, nil
	}

	r.Erased, err = e.eraseRAM(s, info, progress)
	if err != nil {
		return r, fmt.Errorf("erase %s: %w", s, err)
	}
	r.Outcome = OutcomeErased
	logger.Logf("erase", "%s: erased %d bytes of %s", s, r.Erased, info.Title)
	return r, nil
}

func (e *Engine) eraseRAM(s Slot, info CartridgeInfo, progress ProgressFunc) (int, error) {
	// MBC2 carts only answer RAM accesses once ROM has been read
	if info.CartType <= 0x06 {
		wake := make([]byte, BlockSize)
		if err := e.link.ReadRegion(0x0000, wake); err != nil {
			return 0, err
		}
	}
	if err := e.banks.EnableRAM(info.IsMBC1()); err != nil {
		return 0, err
	}

	meter := newProgressMeter(s.Index, info)
	block := make([]byte, BlockSize)
	for i := range block {
		block[i] = e.opts.Fill
	}

	erased := 0
	for bank := 0; bank < info.RAMBanks; bank++ {
		if err := e.banks.SelectRAMBank(byte(bank)); err != nil {
			return erased, err
		}
		if err := e.link.SetNumber(CommandSetStartAddress, uint32(RAMStart)); err != nil {
			return erased, err
		}
		for addr := int(RAMStart); addr < int(info.RAMEnd); addr += BlockSize {
			if err := e.link.WriteBlock(CommandWriteRAM, block); err != nil {
				return erased, err
			}
			erased += BlockSize
			if progress != nil {
				progress(meter.at(erased))
			}
			if err := e.link.WaitAck(); err != nil {
				return erased, fmt.Errorf("ram bank %d at 0x%04X: %w", bank, addr, err)
			}
		}
	}
	return erased, e.banks.DisableRAM()
}
