package continuity

import (
	"bytes"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filledKey(v byte) [PublicKeyLen]byte {
	var k [PublicKeyLen]byte
	for i := range k {
		k[i] = v
	}
	return k
}

func sequentialKey() [PublicKeyLen]byte {
	var k [PublicKeyLen]byte
	for i := range k {
		k[i] = byte(0xc0 + i)
	}
	return k
}

func TestAirPlayTargetLoopback(t *testing.T) {
	m := AirPlayTarget{Addr: netip.MustParseAddr("127.0.0.1").As4()}
	b := m.Encode()
	assert.Equal(t, []byte{0x09, 0x06, 0x03, 0x07, 0x7f, 0x00, 0x00, 0x01}, b)

	got, err := DecodeAirPlayTarget(b)
	require.NoError(t, err)
	assert.Equal(t, m, got)
	assert.Equal(t, "127.0.0.1", got.IP().String())
}

func TestAirPrintLoopback(t *testing.T) {
	m := AirPrint{Port: 0xf00d, Addr: netip.IPv6Loopback().As16(), Power: 0xff}
	want := []byte{
		0x03, 0x16, 0x74, 0x07, 0x6f, 0xf0, 0x0d,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01,
		0xff,
	}
	b := m.Encode()
	assert.Equal(t, want, b)

	got, err := DecodeAirPrint(b)
	require.NoError(t, err)
	assert.Equal(t, uint16(0xf00d), got.Port)
	assert.Equal(t, netip.IPv6Loopback(), got.IP())
	assert.Equal(t, uint8(0xff), got.Power)
}

func TestFindMyLayout(t *testing.T) {
	m := FindMy{PublicKey: filledKey(0x88)}
	b := m.Encode()

	require.Len(t, b, FindMyLen)
	assert.Equal(t, []byte{0x12, 0x19, 0x00}, b[:3])
	assert.Equal(t, bytes.Repeat([]byte{0x88}, 22), b[3:25])
	assert.Equal(t, byte(0x02), b[25])

	got, err := DecodeFindMy([AddressLen]byte{0x88, 0x88, 0x88, 0x88, 0x88, 0x88}, b)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestFindMyAddressBits(t *testing.T) {
	for _, tc := range []struct {
		first byte
		want  byte
	}{
		{0x00, 0x00},
		{0x3f, 0x00},
		{0x40, 0x01},
		{0x88, 0x02},
		{0xc0, 0x03},
		{0xff, 0x03},
	} {
		var m FindMy
		m.PublicKey[0] = tc.first
		assert.Equal(t, tc.want, m.Encode()[FindMyLen-1], "first byte 0x%02x", tc.first)
	}
}

func TestFindMyAddress(t *testing.T) {
	m := FindMy{PublicKey: sequentialKey()}
	assert.Equal(t, [AddressLen]byte{0xc0, 0xc1, 0xc2, 0xc3, 0xc4, 0xc5}, m.Address())
	// The address bytes are not part of the payload.
	assert.False(t, bytes.Contains(m.Encode(), []byte{0xc4, 0xc5}))
}

func TestAirDropLayout(t *testing.T) {
	m := AirDrop{AppleID: Token{0x01, 0x02}, Phone: Token{0x03, 0x04}, Email: Token{0x05, 0x06}}
	want := []byte{
		0x05, 0x12,
		0, 0, 0, 0, 0, 0, 0, 0,
		0x01,
		0x01, 0x02,
		0x03, 0x04,
		0x05, 0x06,
		0x05, 0x06,
	}
	assert.Equal(t, want, m.Encode())
}

func TestAirPlaySourceConstant(t *testing.T) {
	assert.Equal(t, []byte{0x0a, 0x01, 0x00}, AirPlaySource{}.Encode())

	for _, in := range [][]byte{nil, {}, {0xde, 0xad}} {
		got, err := DecodeAirPlaySource(in)
		require.NoError(t, err)
		assert.Equal(t, AirPlaySource{}, got)
	}
}

func sampleMessages() []Message {
	return []Message{
		AirDrop{AppleID: SHA256Token("john.doe@example.com"), Phone: SHA256Token("+15552368"), Email: SHA256Token("")},
		AirDrop{},
		AirPlaySource{},
		AirPlayTarget{Addr: [4]byte{192, 168, 1, 20}},
		AirPlayTarget{},
		AirPrint{Port: 631, Addr: netip.MustParseAddr("fe80::1").As16(), Power: 0x7f},
		AirPrint{},
		FindMy{PublicKey: sequentialKey()},
		FindMy{PublicKey: filledKey(0xff)},
	}
}

func TestRoundTrip(t *testing.T) {
	for _, m := range sampleMessages() {
		t.Run(m.Kind().String(), func(t *testing.T) {
			var addr [AddressLen]byte
			if fm, ok := m.(FindMy); ok {
				addr = fm.Address()
			}
			got, err := Decode(m.Encode(), addr)
			require.NoError(t, err)
			assert.Equal(t, m, got)
		})
	}
}

func TestEncodedLength(t *testing.T) {
	want := map[Kind]int{
		KindAirDrop:       AirDropLen,
		KindAirPlaySource: AirPlaySourceLen,
		KindAirPlayTarget: AirPlayTargetLen,
		KindAirPrint:      AirPrintLen,
		KindFindMy:        FindMyLen,
	}
	for _, m := range sampleMessages() {
		assert.Len(t, m.Encode(), want[m.Kind()], m.Kind().String())
		assert.Equal(t, byte(m.Kind()), m.Encode()[0])
	}
}

func TestDecodeTruncated(t *testing.T) {
	var addr [AddressLen]byte
	decoders := map[Kind]func([]byte) error{
		KindAirDrop: func(b []byte) error {
			_, err := DecodeAirDrop(b)
			return err
		},
		KindAirPlayTarget: func(b []byte) error {
			_, err := DecodeAirPlayTarget(b)
			return err
		},
		KindAirPrint: func(b []byte) error {
			_, err := DecodeAirPrint(b)
			return err
		},
		KindFindMy: func(b []byte) error {
			_, err := DecodeFindMy(addr, b)
			return err
		},
	}
	for _, m := range sampleMessages() {
		decode, ok := decoders[m.Kind()]
		if !ok {
			continue
		}
		full := m.Encode()
		for n := 0; n <= len(full); n++ {
			err := decode(full[:n])
			if n < minLen(m.Kind()) {
				assert.ErrorIs(t, err, ErrTruncatedInput, "%s with %d bytes", m.Kind(), n)
			} else {
				assert.NoError(t, err, "%s with %d bytes", m.Kind(), n)
			}
		}
	}
}

func minLen(k Kind) int {
	switch k {
	case KindAirDrop:
		return airDropMinLen
	case KindAirPlayTarget:
		return airPlayTargetMinLen
	case KindAirPrint:
		return airPrintMinLen
	case KindFindMy:
		return findMyMinLen
	}
	return 0
}

func TestDecodeIgnoresHeader(t *testing.T) {
	b := AirPlayTarget{Addr: [4]byte{10, 0, 0, 1}}.Encode()
	b[1] = 0xee
	b[2] = 0x00
	got, err := DecodeAirPlayTarget(b)
	require.NoError(t, err)
	assert.Equal(t, [4]byte{10, 0, 0, 1}, got.Addr)

	// Trailing bytes are ignored too.
	got, err = DecodeAirPlayTarget(append(b, 0xaa, 0xbb))
	require.NoError(t, err)
	assert.Equal(t, [4]byte{10, 0, 0, 1}, got.Addr)
}

func TestDecodeDispatch(t *testing.T) {
	var addr [AddressLen]byte

	_, err := Decode(nil, addr)
	assert.ErrorIs(t, err, ErrTruncatedInput)

	_, err = Decode([]byte{0x7e, 0x00}, addr)
	assert.ErrorIs(t, err, ErrUnknownKind)

	m, err := Decode([]byte{0x09, 0x06, 0x03}, addr)
	assert.ErrorIs(t, err, ErrTruncatedInput)
	assert.Nil(t, m)

	m, err = Decode([]byte{0x0a}, addr)
	require.NoError(t, err)
	assert.Equal(t, AirPlaySource{}, m)
}

func TestValidateDefaultAccepts(t *testing.T) {
	for _, m := range sampleMessages() {
		assert.NoError(t, Validate(m))
	}
}

func TestStructuralEquality(t *testing.T) {
	a := AirPrint{Port: 1, Power: 2}
	b := AirPrint{Port: 1, Power: 2}
	assert.True(t, a == b)
	assert.True(t, Message(FindMy{PublicKey: filledKey(1)}) == Message(FindMy{PublicKey: filledKey(1)}))
}

func TestNormalize(t *testing.T) {
	for _, m := range sampleMessages() {
		var p Message
		switch m := m.(type) {
		case AirDrop:
			p = &m
		case AirPlaySource:
			p = &m
		case AirPlayTarget:
			p = &m
		case AirPrint:
			p = &m
		case FindMy:
			p = &m
		}
		require.NotNil(t, p, m.Kind().String())
		assert.Equal(t, m, Normalize(p))
		assert.Equal(t, m, Normalize(m))
	}
	assert.Nil(t, Normalize((*AirPrint)(nil)))
	assert.Nil(t, Normalize(nil))
}
