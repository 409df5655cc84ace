package continuity

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrTruncatedInput     = errors.New("continuity: truncated input")
	ErrValidationRejected = errors.New("continuity: validation rejected")
)

// Minimum input lengths accepted by the decoders. The tag and length bytes
// are never checked against the expected values.
const (
	airDropMinLen       = 17
	airPlayTargetMinLen = 8
	airPrintMinLen      = 24
	findMyMinLen        = 25
)

func truncated(k Kind, need int, got int) error {
	return fmt.Errorf("%w: %s needs %d bytes, got %d", ErrTruncatedInput, k, need, got)
}

func DecodeAirDrop(b []byte) (AirDrop, error) {
	if len(b) < airDropMinLen {
		return AirDrop{}, truncated(KindAirDrop, airDropMinLen, len(b))
	}
	var m AirDrop
	copy(m.AppleID[:], b[11:13])
	copy(m.Phone[:], b[13:15])
	copy(m.Email[:], b[15:17])
	return m, nil
}

// DecodeAirPlaySource ignores its input.
func DecodeAirPlaySource(_ []byte) (AirPlaySource, error) {
	return AirPlaySource{}, nil
}

func DecodeAirPlayTarget(b []byte) (AirPlayTarget, error) {
	if len(b) < airPlayTargetMinLen {
		return AirPlayTarget{}, truncated(KindAirPlayTarget, airPlayTargetMinLen, len(b))
	}
	var m AirPlayTarget
	copy(m.Addr[:], b[4:8])
	return m, nil
}

func DecodeAirPrint(b []byte) (AirPrint, error) {
	if len(b) < airPrintMinLen {
		return AirPrint{}, truncated(KindAirPrint, airPrintMinLen, len(b))
	}
	m := AirPrint{
		Port:  binary.BigEndian.Uint16(b[5:7]),
		Power: b[23],
	}
	copy(m.Addr[:], b[7:23])
	return m, nil
}

// DecodeFindMy rebuilds the public key from the advertiser's device address
// and the 22 key bytes carried after the status byte.
func DecodeFindMy(address [AddressLen]byte, b []byte) (FindMy, error) {
	if len(b) < findMyMinLen {
		return FindMy{}, truncated(KindFindMy, findMyMinLen, len(b))
	}
	var m FindMy
	copy(m.PublicKey[:AddressLen], address[:])
	copy(m.PublicKey[AddressLen:], b[3:findMyMinLen])
	return m, nil
}

// Decode picks the decoder by the tag in b[0]. address is only consulted
// for FindMy payloads.
func Decode(b []byte, address [AddressLen]byte) (Message, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrTruncatedInput)
	}
	switch Kind(b[0]) {
	case KindAirDrop:
		return asMessage(DecodeAirDrop(b))
	case KindAirPlaySource:
		return asMessage(DecodeAirPlaySource(b))
	case KindAirPlayTarget:
		return asMessage(DecodeAirPlayTarget(b))
	case KindAirPrint:
		return asMessage(DecodeAirPrint(b))
	case KindFindMy:
		return asMessage(DecodeFindMy(address, b))
	default:
		return nil, fmt.Errorf("%w: tag 0x%02x", ErrUnknownKind, b[0])
	}
}

func asMessage[M Message](m M, err error) (Message, error) {
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Normalize returns the value form of m when it holds a pointer to a record,
// so callers can match on the record types alone. A nil pointer yields nil.
func Normalize(m Message) Message {
	switch p := m.(type) {
	case *AirDrop:
		return deref(p)
	case *AirPlaySource:
		return deref(p)
	case *AirPlayTarget:
		return deref(p)
	case *AirPrint:
		return deref(p)
	case *FindMy:
		return deref(p)
	}
	return m
}

func deref[M Message](p *M) Message {
	if p == nil {
		return nil
	}
	return *p
}

// Validate runs the record's own validation, if it has any.
func Validate(m Message) error {
	v, ok := m.(Validator)
	if !ok {
		return nil
	}
	if err := v.Validate(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrValidationRejected, m.Kind(), err)
	}
	return nil
}
