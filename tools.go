package powercart

import (
	"strconv"
	"strings"
)

// numberBytes encodes an addressed command: the command character, the
// number in lowercase hex and a NUL terminator.
func numberBytes(command Command, number uint32) []byte {
	b := []byte{byte(command)}
	b = strconv.AppendUint(b, uint64(number), 16)
	return append(b, 0)
}

// decimalBytes encodes the value half of a bank write, which the firmware
// parses as decimal.
func decimalBytes(command Command, value byte) []byte {
	b := []byte{byte(command)}
	b = strconv.AppendUint(b, uint64(value), 10)
	return append(b, 0)
}

// trimTitle cuts a header title at the first NUL and drops trailing
// spaces and non-printable bytes.
func trimTitle(raw []byte) string {
	s := make([]byte, 0, len(raw))
	for _, c := range raw {
		if c == 0 {
			break
		}
		if c < 0x20 || c > 0x7E {
			c = ' '
		}
		s = append(s, c)
	}
	return strings.TrimRight(string(s), " ")
}
