package continuity

import (
	"context"
	"fmt"
	"time"
)

// AppleCompanyID is the Bluetooth SIG company identifier for Apple Inc.
const AppleCompanyID uint16 = 0x004c

const (
	DefaultMinInterval = 100 * time.Millisecond
	DefaultMaxInterval = 200 * time.Millisecond
)

// BroadcastType is the advertising mode requested from the transport.
type BroadcastType int

const (
	// Broadcast is non-connectable, no scan response expected.
	Broadcast BroadcastType = iota
)

func (t BroadcastType) String() string {
	if t == Broadcast {
		return "broadcast"
	}
	return fmt.Sprintf("BroadcastType(%d)", int(t))
}

// Envelope is the advertisement handed to a Transport.
type Envelope struct {
	Type        BroadcastType
	LocalName   string
	MinInterval time.Duration
	MaxInterval time.Duration
	// Timeout of zero advertises until the broadcast is stopped.
	Timeout          time.Duration
	ManufacturerData map[uint16][]byte
}

// Payload returns the Apple manufacturer data of the envelope.
func (e Envelope) Payload() []byte {
	return e.ManufacturerData[AppleCompanyID]
}

// Handle identifies a running broadcast. Its value is assigned by the
// transport.
type Handle string

// Transport emits advertisements and controls the local radio.
type Transport interface {
	BeginBroadcast(ctx context.Context, env Envelope) (Handle, error)
	StopBroadcast(ctx context.Context, h Handle) error
	LocalDeviceName() string
	// SetLocalDeviceAddress sets the radio's address. The bytes are in
	// transmission order, most significant first.
	SetLocalDeviceAddress(ctx context.Context, addr [AddressLen]byte) error
}

// TransportError wraps a failure reported by a Transport.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return "continuity: transport " + e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }
