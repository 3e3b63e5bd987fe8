package powercart

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tocurd/go-powercart/internal/logger"
)

var ErrNoAck = errors.New("no ack from device")
var ErrTooManyRetries = errors.New("too many read retries")

// BlockSize is the fixed transfer unit of the adapter.
const BlockSize = 64

const (
	DefaultReadTimeout = time.Second
	DefaultAckTimeout  = time.Second

	settleDelay = 500 * time.Millisecond
	bankDelay   = 5 * time.Millisecond
)

type Command byte

const (
	CommandStop            Command = '0' // 停止读取, 同时退出当前模式
	CommandContinue        Command = '1' // 继续读取下一个块
	CommandSetStartAddress Command = 'A'
	CommandSetBank         Command = 'B'
	CommandCartMode        Command = 'C'
	CommandReadROMRAM      Command = 'R'
	CommandWriteRAM        Command = 'W'
	CommandReadPCBVersion  Command = 'h'
	CommandReadFirmware    Command = 'V'
	CommandVoltage5V       Command = '5'
	CommandAudioHigh       Command = '8'
	CommandAudioLow        Command = '9'
	CommandSpeed1M7        Command = '>'
	CommandCartPowerOn     Command = '/'
	CommandCartPowerOff    Command = '.'
	CommandQueryCartPower  Command = ']'
)

// ackByte is sent by the adapter after it has consumed a written block.
const ackByte = '1'

// Port is the part of a serial port the link needs. serial.Port satisfies it.
type Port interface {
	io.ReadWriter
	Drain() error
	ResetInputBuffer() error
	SetReadTimeout(t time.Duration) error
}

// PartialReadError reports a block read that ended before the expected
// number of bytes arrived.
type PartialReadError struct {
	Want int
	Got  int
}

func (e *PartialReadError) Error() string {
	return fmt.Sprintf("partial read: got %d of %d bytes", e.Got, e.Want)
}

// Link is the request/response channel to a GBxCart RW adapter.
type Link struct {
	Port Port

	ReadTimeout time.Duration
	AckTimeout  time.Duration

	// MaxRetries caps partial-read restarts in ReadRegion. Zero means no cap.
	MaxRetries int

	// Retries counts every partial-read restart over the life of the link.
	Retries int

	// Sleep is used for all hardware settle delays.
	Sleep func(time.Duration)
}

func NewLink(port Port) *Link {
	return &Link{
		Port:        port,
		ReadTimeout: DefaultReadTimeout,
		AckTimeout:  DefaultAckTimeout,
		Sleep:       time.Sleep,
	}
}

func (t *Link) sleep(d time.Duration) {
	if t.Sleep == nil {
		time.Sleep(d)
		return
	}
	t.Sleep(d)
}

/*
 * @Description: 发送单字符模式指令
 * @param command
 * @return error
 */
func (t *Link) SetMode(command Command) error {
	if _, err := t.Port.Write([]byte{byte(command)}); err != nil {
		return fmt.Errorf("mode %q: %w", command, err)
	}
	return t.Port.Drain()
}

/*
 * @Description: 发送带参数的指令, 参数以十六进制编码并以0结尾
 * @param command
 * @param number
 * @return error
 */
func (t *Link) SetNumber(command Command, number uint32) error {
	if _, err := t.Port.Write(numberBytes(command, number)); err != nil {
		return fmt.Errorf("set %q 0x%X: %w", command, number, err)
	}
	return t.Port.Drain()
}

// SendString writes s followed by a NUL terminator and waits for the
// output to drain.
func (t *Link) SendString(s string) error {
	if _, err := t.Port.Write(append([]byte(s), 0)); err != nil {
		return fmt.Errorf("send %q: %w", s, err)
	}
	return t.Port.Drain()
}

/*
 * @Description: 发送指令并读取一个字节的应答
 * @param command
 * @return value
 * @return err
 */
func (t *Link) RequestValue(command Command) (byte, error) {
	if err := t.SetMode(command); err != nil {
		return 0, err
	}
	buff := make([]byte, 1)
	if err := t.ReadBlock(buff); err != nil {
		return 0, fmt.Errorf("request %q: %w", command, err)
	}
	return buff[0], nil
}

/*
 * @Description: 读取一个完整的数据块
 * @param buff 期望长度即为len(buff)
 * @return error *PartialReadError 表示数据不足
 */
func (t *Link) ReadBlock(buff []byte) error {
	if err := t.Port.SetReadTimeout(t.ReadTimeout); err != nil {
		return err
	}
	got := 0
	for got < len(buff) {
		n, err := t.Port.Read(buff[got:])
		if err != nil {
			return err
		}
		if n == 0 {
			return &PartialReadError{Want: len(buff), Got: got}
		}
		got += n
	}
	return nil
}

func (t *Link) ContinueRead() error {
	return t.SetMode(CommandContinue)
}

func (t *Link) StopRead() error {
	return t.SetMode(CommandStop)
}

// Flush discards a stray block that may still be buffered after a
// partial read.
func (t *Link) Flush() error {
	stray := make([]byte, BlockSize)
	if _, err := t.Port.Read(stray); err != nil {
		return err
	}
	return t.Port.ResetInputBuffer()
}

/*
 * @Description: 写入一个数据块, 指令字节与数据一次发送
 * @param command
 * @param data
 * @return error
 */
func (t *Link) WriteBlock(command Command, data []byte) error {
	pack := make([]byte, 0, len(data)+1)
	pack = append(pack, byte(command))
	pack = append(pack, data...)
	if _, err := t.Port.Write(pack); err != nil {
		return fmt.Errorf("write block: %w", err)
	}
	return t.Port.Drain()
}

/*
 * @Description: 等待确认帧
 * @return error ErrNoAck 超时
 */
func (t *Link) WaitAck() error {
	timeout := time.After(t.AckTimeout)
	if err := t.Port.SetReadTimeout(t.AckTimeout); err != nil {
		return err
	}
	for {
		select {
		case <-timeout:
			return ErrNoAck
		default:
			buff := make([]byte, 1)
			n, err := t.Port.Read(buff)
			if err != nil {
				return err
			}
			if n > 0 && buff[0] == ackByte {
				return nil
			}
		}
	}
}

/*
 * @Description: 从设备地址start开始读取len(buff)字节, 数据不足时停止并从同一地址重新开始
 * @param start 设备地址
 * @param buff 长度必须为BlockSize的倍数
 * @return error
 */
func (t *Link) ReadRegion(start uint16, buff []byte) error {
	if len(buff)%BlockSize != 0 {
		return fmt.Errorf("read region: length %d is not a multiple of %d", len(buff), BlockSize)
	}
	if err := t.startRead(start); err != nil {
		return err
	}

	retryCount := 0
	offset := 0
	for offset < len(buff) {
		err := t.ReadBlock(buff[offset : offset+BlockSize])
		if err == nil {
			offset += BlockSize
			if offset < len(buff) {
				if err := t.ContinueRead(); err != nil {
					return err
				}
			}
			continue
		}

		var partial *PartialReadError
		if !errors.As(err, &partial) {
			return err
		}

		retryCount++
		if t.MaxRetries > 0 && retryCount > t.MaxRetries {
			return fmt.Errorf("read 0x%04X: %w: %w", int(start)+offset, ErrTooManyRetries, err)
		}
		t.Retries++
		logger.Logf("link", "%v at 0x%04X, restarting", err, int(start)+offset)

		if err := t.StopRead(); err != nil {
			return err
		}
		t.sleep(settleDelay)
		if err := t.Flush(); err != nil {
			return err
		}
		if err := t.startRead(start + uint16(offset)); err != nil {
			return err
		}
	}
	return t.StopRead()
}

func (t *Link) startRead(addr uint16) error {
	if err := t.SetNumber(CommandSetStartAddress, uint32(addr)); err != nil {
		return err
	}
	return t.SetMode(CommandReadROMRAM)
}
