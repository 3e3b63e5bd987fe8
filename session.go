package powercart

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"github.com/tocurd/go-powercart/internal/logger"
)

var ErrUnsupportedPCB = errors.New("PCB v1.0 is not supported for this function")
var ErrFirmwareTooOld = errors.New("firmware R13 or higher is required for this function")
var ErrNoDevice = errors.New("no GBxCart RW found")

type PCBVersion byte

const (
	PCB10   PCBVersion = 1
	PCB11   PCBVersion = 2
	PCB13   PCBVersion = 4
	PCB14   PCBVersion = 5
	PCBXmas PCBVersion = 90
	PCBMini PCBVersion = 100
)

func (p PCBVersion) String() string {
	switch p {
	case PCB10:
		return "v1.0"
	case PCB11:
		return "v1.1/v1.2"
	case PCB13:
		return "v1.3"
	case PCB14:
		return "v1.4"
	case PCBXmas:
		return "XMAS"
	case PCBMini:
		return "Mini"
	}
	return fmt.Sprintf("unknown(%d)", byte(p))
}

const (
	BaudStandard = 1000000
	BaudFast     = 1700000

	// MinFirmware is the oldest firmware that can drive the multi-game cart.
	MinFirmware = 13

	usbVID = "1A86"
	usbPID = "7523"
)

const commandWake Command = '!'

// Config describes how to reach the adapter.
type Config struct {
	// Port is the serial device. Empty means detect it.
	Port        string
	Baud        int
	ReadTimeout time.Duration
	AckTimeout  time.Duration
	MaxRetries  int
}

func DefaultConfig() Config {
	return Config{
		Baud:        BaudStandard,
		ReadTimeout: DefaultReadTimeout,
		AckTimeout:  DefaultAckTimeout,
	}
}

// Session is the handshaken connection to one adapter. It is created once
// and read-only afterwards.
type Session struct {
	Link     *Link
	Baud     int
	CartMode byte
	PCB      PCBVersion
	Firmware int

	// Reconfigure changes the port speed. It is nil when the port cannot
	// be reconfigured, in which case the session stays at its opening speed.
	Reconfigure func(baud int) error

	closer io.Closer
}

/*
 * @Description: 查找USB串口设备
 * @return name 串口名称
 * @return err
 */
func DetectPort() (string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", err
	}
	for _, port := range ports {
		if !port.IsUSB {
			continue
		}
		if strings.EqualFold(port.VID, usbVID) && strings.EqualFold(port.PID, usbPID) {
			return port.Name, nil
		}
	}
	return "", ErrNoDevice
}

// Open opens the serial port described by cfg and runs the handshake.
func Open(cfg Config) (*Session, error) {
	name := cfg.Port
	if name == "" {
		var err error
		if name, err = DetectPort(); err != nil {
			return nil, err
		}
	}

	mode := &serial.Mode{
		BaudRate:          cfg.Baud,
		DataBits:          8,
		StopBits:          serial.OneStopBit,
		Parity:            serial.NoParity,
		InitialStatusBits: &serial.ModemOutputBits{RTS: false, DTR: false},
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	logger.Logf("session", "opened %s at %d baud", name, cfg.Baud)

	link := NewLink(port)
	if cfg.ReadTimeout > 0 {
		link.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.AckTimeout > 0 {
		link.AckTimeout = cfg.AckTimeout
	}
	link.MaxRetries = cfg.MaxRetries

	s := &Session{
		Link:   link,
		Baud:   cfg.Baud,
		closer: port,
		Reconfigure: func(baud int) error {
			mode.BaudRate = baud
			return port.SetMode(mode)
		},
	}
	if err := s.Handshake(); err != nil {
		port.Close()
		return nil, err
	}
	return s, nil
}

/*
 * @Description: 握手: 读取卡带模式, PCB版本, 固件版本, 设置速度与电压, 给卡带上电
 * @return error
 */
func (s *Session) Handshake() error {
	l := s.Link

	// break out of whatever the adapter was doing
	if err := l.SetMode(CommandStop); err != nil {
		return err
	}
	if err := l.Port.ResetInputBuffer(); err != nil {
		return err
	}

	v, err := l.RequestValue(CommandCartMode)
	if err != nil {
		return err
	}
	s.CartMode = v

	v, err = l.RequestValue(CommandReadPCBVersion)
	if err != nil {
		return err
	}
	s.PCB = PCBVersion(v)

	if s.PCB == PCB14 && s.Reconfigure != nil {
		if err := l.SetMode(CommandSpeed1M7); err != nil {
			return err
		}
		l.sleep(200 * time.Millisecond)
		if err := s.Reconfigure(BaudFast); err != nil {
			return fmt.Errorf("switch to %d baud: %w", BaudFast, err)
		}
		s.Baud = BaudFast
	}

	v, err = l.RequestValue(CommandReadFirmware)
	if err != nil {
		return err
	}
	s.Firmware = int(v)
	logger.Logf("session", "PCB %s, firmware R%d, %d baud", s.PCB, s.Firmware, s.Baud)

	switch s.PCB {
	case PCBXmas:
		// the XMAS board's watchdog sleeps after two idle minutes
		if err := l.SetMode(commandWake); err != nil {
			return err
		}
		l.sleep(50 * time.Millisecond)
		fallthrough
	case PCB13, PCB14:
		if err := l.SetMode(CommandVoltage5V); err != nil {
			return err
		}
		l.sleep(100 * time.Millisecond)
	}

	if err := s.powerUp(); err != nil {
		return err
	}
	return l.Port.ResetInputBuffer()
}

// Check enforces the hardware preconditions for driving the multi-game
// cart. It must pass before any bank or slot operation.
func (s *Session) Check() error {
	if s.PCB == PCB10 {
		return ErrUnsupportedPCB
	}
	if s.Firmware < MinFirmware {
		return fmt.Errorf("%w (have R%d)", ErrFirmwareTooOld, s.Firmware)
	}
	return nil
}

// powerUp switches cartridge power on for boards that control it.
func (s *Session) powerUp() error {
	if s.PCB != PCB14 {
		return nil
	}
	on, err := s.Link.RequestValue(CommandQueryCartPower)
	if err != nil {
		return err
	}
	if on == 1 {
		return nil
	}
	if err := s.Link.SetMode(CommandCartPowerOn); err != nil {
		return err
	}
	s.Link.sleep(200 * time.Millisecond)
	return nil
}

// Close powers the cartridge down where supported and closes the port.
func (s *Session) Close() error {
	var err error
	if s.PCB == PCB14 {
		err = s.Link.SetMode(CommandCartPowerOff)
	}
	if s.closer != nil {
		err = errors.Join(err, s.closer.Close())
	}
	return err
}
