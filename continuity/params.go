package continuity

import (
	"encoding/hex"
	"fmt"
	"net/netip"
	"strings"
)

// Params is the loosely typed form of a message used by the command line
// and the HTTP API. Only the fields relevant to the chosen kind are read.
type Params struct {
	Kind Kind `json:"kind"`

	// AirDrop identifiers, hashed into tokens. Nil hashes the empty string.
	AppleID *string `json:"apple_id,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Email   *string `json:"email,omitempty"`

	// IP is IPv4 for AirPlayTarget and IPv6 for AirPrint. An IPv4 address
	// given for AirPrint is mapped into IPv6.
	IP    string `json:"ip,omitempty"`
	Port  uint16 `json:"port,omitempty"`
	Power uint8  `json:"power,omitempty"`

	// PublicKey is the hex encoded 28 byte FindMy key.
	PublicKey string `json:"public_key,omitempty"`
}

// Message builds the record described by p.
func (p Params) Message(tokens TokenFunc) (Message, error) {
	switch p.Kind {
	case KindAirDrop:
		return NewAirDrop(tokens, p.AppleID, p.Phone, p.Email), nil
	case KindAirPlaySource:
		return AirPlaySource{}, nil
	case KindAirPlayTarget:
		ip, err := parseIP(p.IP)
		if err != nil {
			return nil, err
		}
		if !ip.Unmap().Is4() {
			return nil, fmt.Errorf("continuity: %s needs an IPv4 address, got %s", p.Kind, ip)
		}
		return AirPlayTarget{Addr: ip.Unmap().As4()}, nil
	case KindAirPrint:
		ip, err := parseIP(p.IP)
		if err != nil {
			return nil, err
		}
		return AirPrint{Port: p.Port, Addr: ip.As16(), Power: p.Power}, nil
	case KindFindMy:
		key, err := ParsePublicKey(p.PublicKey)
		if err != nil {
			return nil, err
		}
		return FindMy{PublicKey: key}, nil
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownKind, uint8(p.Kind))
	}
}

func parseIP(s string) (netip.Addr, error) {
	ip, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("continuity: parse ip: %w", err)
	}
	return ip, nil
}

// ParsePublicKey decodes a hex FindMy key. Colons and spaces are ignored.
func ParsePublicKey(s string) ([PublicKeyLen]byte, error) {
	var key [PublicKeyLen]byte
	clean := strings.NewReplacer(":", "", " ", "").Replace(strings.TrimSpace(s))
	b, err := hex.DecodeString(clean)
	if err != nil {
		return key, fmt.Errorf("continuity: parse public key: %w", err)
	}
	if len(b) != PublicKeyLen {
		return key, fmt.Errorf("continuity: parse public key: want %d bytes, got %d", PublicKeyLen, len(b))
	}
	copy(key[:], b)
	return key, nil
}

// ParseAddress decodes a device address written as six colon separated hex
// octets, most significant first.
func ParseAddress(s string) ([AddressLen]byte, error) {
	var addr [AddressLen]byte
	b, err := hex.DecodeString(strings.ReplaceAll(strings.TrimSpace(s), ":", ""))
	if err != nil {
		return addr, fmt.Errorf("continuity: parse address: %w", err)
	}
	if len(b) != AddressLen {
		return addr, fmt.Errorf("continuity: parse address: want %d bytes, got %d", AddressLen, len(b))
	}
	copy(addr[:], b)
	return addr, nil
}
