// Package continuity encodes and decodes the manufacturer data carried by
// Apple Continuity BLE advertisements, and assembles those payloads into
// broadcast envelopes for an advertising transport.
//
// Message layouts follow https://github.com/furiousMAC/continuity.
package continuity

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net/netip"
)

// Encoded lengths per kind. The length never depends on field values.
const (
	AirDropLen       = 19
	AirPlaySourceLen = 3
	AirPlayTargetLen = 8
	AirPrintLen      = 24
	FindMyLen        = 26

	// PublicKeyLen is the size of a FindMy advertisement key.
	PublicKeyLen = 28
	// AddressLen is the number of leading key bytes carried by the device
	// address instead of the payload.
	AddressLen = 6
)

// Message is one of the Continuity message records. The set of
// implementations is closed.
type Message interface {
	Kind() Kind
	// Encode returns the wire form, starting with the tag byte.
	Encode() []byte

	message()
}

// Validator is implemented by records that can reject their own contents
// before encoding. Records without it are always accepted.
type Validator interface {
	Validate() error
}

// AirDrop announces an AirDrop sender. See messages/airdrop.md.
type AirDrop struct {
	AppleID Token
	Phone   Token
	Email   Token
}

// NewAirDrop derives the AirDrop tokens from optional identifiers.
func NewAirDrop(tokens TokenFunc, appleID, phone, email *string) AirDrop {
	return AirDrop{
		AppleID: OptionalToken(tokens, appleID),
		Phone:   OptionalToken(tokens, phone),
		Email:   OptionalToken(tokens, email),
	}
}

func (AirDrop) Kind() Kind { return KindAirDrop }
func (AirDrop) message()   {}

func (m AirDrop) Encode() []byte {
	b := make([]byte, 0, AirDropLen)
	b = append(b,
		byte(KindAirDrop),
		0x12, // message length
	)
	b = append(b, make([]byte, 8)...) // padding
	b = append(b, 0x01)               // AirDrop version
	b = append(b, m.AppleID[:]...)
	b = append(b, m.Phone[:]...)
	b = append(b, m.Email[:]...)
	// The email hash is sent twice.
	b = append(b, m.Email[:]...)
	return b
}

func (m AirDrop) String() string {
	return fmt.Sprintf("airdrop{apple_id=%s phone=%s email=%s}", m.AppleID, m.Phone, m.Email)
}

// AirPlaySource carries no dynamic data. See messages/airplay_source.md.
type AirPlaySource struct{}

func (AirPlaySource) Kind() Kind { return KindAirPlaySource }
func (AirPlaySource) message()   {}

func (AirPlaySource) Encode() []byte {
	return []byte{
		byte(KindAirPlaySource),
		0x01, // message length
		0x00,
	}
}

func (AirPlaySource) String() string { return "airplay-source{}" }

// AirPlayTarget announces an AirPlay receiver by IPv4 address. See
// messages/airplay_target.md.
type AirPlayTarget struct {
	Addr [4]byte
}

func (AirPlayTarget) Kind() Kind { return KindAirPlayTarget }
func (AirPlayTarget) message()   {}

func (m AirPlayTarget) Encode() []byte {
	b := make([]byte, 0, AirPlayTargetLen)
	b = append(b,
		byte(KindAirPlayTarget),
		0x06, // message length
		0x03, // flags
		0x07, // seed
	)
	return append(b, m.Addr[:]...)
}

// IP returns the target address.
func (m AirPlayTarget) IP() netip.Addr { return netip.AddrFrom4(m.Addr) }

func (m AirPlayTarget) String() string {
	return fmt.Sprintf("airplay-target{ip=%s}", m.IP())
}

// AirPrint announces a printer. See messages/airprint.md.
type AirPrint struct {
	Port  uint16
	Addr  [16]byte
	Power uint8
}

func (AirPrint) Kind() Kind { return KindAirPrint }
func (AirPrint) message()   {}

func (m AirPrint) Encode() []byte {
	b := make([]byte, 0, AirPrintLen)
	b = append(b,
		byte(KindAirPrint),
		0x16, // message length
		0x74, // address type
		0x07, // resource path
		0x6f, // security type
	)
	b = binary.BigEndian.AppendUint16(b, m.Port)
	b = append(b, m.Addr[:]...)
	return append(b, m.Power)
}

// IP returns the printer address.
func (m AirPrint) IP() netip.Addr { return netip.AddrFrom16(m.Addr) }

func (m AirPrint) String() string {
	return fmt.Sprintf("airprint{port=%d ip=%s power=%d}", m.Port, m.IP(), m.Power)
}

// FindMy is an offline finding advertisement. The first AddressLen bytes
// of the key travel as the device address. See messages/findmy.md.
type FindMy struct {
	PublicKey [PublicKeyLen]byte
}

func (FindMy) Kind() Kind { return KindFindMy }
func (FindMy) message()   {}

func (m FindMy) Encode() []byte {
	b := make([]byte, 0, FindMyLen)
	b = append(b,
		byte(KindFindMy),
		0x19, // message length
		0x00, // status
	)
	b = append(b, m.PublicKey[AddressLen:]...)
	return append(b, m.PublicKey[0]>>6)
}

// Address returns the key bytes that must be adopted as the local device
// address before the payload is broadcast.
func (m FindMy) Address() [AddressLen]byte {
	var a [AddressLen]byte
	copy(a[:], m.PublicKey[:AddressLen])
	return a
}

func (m FindMy) String() string {
	return fmt.Sprintf("findmy{public_key=%s}", hex.EncodeToString(m.PublicKey[:]))
}
