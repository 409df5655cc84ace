package continuity

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies a Continuity message by its wire tag.
type Kind uint8

const (
	KindAirPrint      Kind = 0x03
	KindAirDrop       Kind = 0x05
	KindAirPlayTarget Kind = 0x09
	KindAirPlaySource Kind = 0x0a
	KindFindMy        Kind = 0x12
)

var ErrUnknownKind = errors.New("continuity: unknown message kind")

// Kinds lists every supported kind in tag order.
var Kinds = []Kind{KindAirPrint, KindAirDrop, KindAirPlayTarget, KindAirPlaySource, KindFindMy}

var kindNames = map[Kind]string{
	KindAirPrint:      "airprint",
	KindAirDrop:       "airdrop",
	KindAirPlayTarget: "airplay-target",
	KindAirPlaySource: "airplay-source",
	KindFindMy:        "findmy",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(0x%02x)", uint8(k))
}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind accepts the names returned by Kind.String, case-insensitively.
// Underscores are treated as dashes.
func ParseKind(s string) (Kind, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownKind, uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
