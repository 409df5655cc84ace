package bluetooth

import "errors"

// MAC is stored least significant octet first, the reverse of its text form.
type MAC [6]byte

var ErrInvalidMAC = errors.New("bluetooth: failed to parse MAC address")

func ParseMAC(s string) (mac MAC, err error) {
	err = (&mac).UnmarshalText([]byte(s))
	return
}

// MACFromBytes converts an address in transmission order (most significant
// octet first) into a MAC.
func MACFromBytes(b [6]byte) MAC {
	var mac MAC
	for i := range b {
		mac[5-i] = b[i]
	}
	return mac
}

// Bytes returns the address most significant octet first.
func (mac MAC) Bytes() [6]byte {
	var b [6]byte
	for i := range mac {
		b[5-i] = mac[i]
	}
	return b
}

func (mac *MAC) UnmarshalText(s []byte) error {
	*mac = MAC{}
	macIndex := 11
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ':' {
			continue
		}
		var nibble byte
		if c >= '0' && c <= '9' {
			nibble = c - '0' + 0x0
		} else if c >= 'A' && c <= 'F' {
			nibble = c - 'A' + 0xA
		} else if c >= 'a' && c <= 'f' {
			nibble = c - 'a' + 0xA
		} else {
			return ErrInvalidMAC
		}
		if macIndex < 0 {
			return ErrInvalidMAC
		}
		if macIndex%2 == 0 {
			mac[macIndex/2] |= nibble
		} else {
			mac[macIndex/2] |= nibble << 4
		}
		macIndex--
	}
	if macIndex != -1 {
		return ErrInvalidMAC
	}
	return nil
}

const hexDigitUpper = "0123456789ABCDEF"

func (mac MAC) MarshalText() ([]byte, error) {
	buf := make([]byte, 0, 17)
	for i := 5; i >= 0; i-- {
		buf = append(buf, hexDigitUpper[mac[i]>>4], hexDigitUpper[mac[i]&0xF])
		if i != 0 {
			buf = append(buf, ':')
		}
	}
	return buf, nil
}

// String returns the address as XX:XX:XX:XX:XX:XX.
func (mac MAC) String() string {
	b, _ := mac.MarshalText()
	return string(b)
}
