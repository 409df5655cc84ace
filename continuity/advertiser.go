package continuity

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Advertiser assembles encoded messages into envelopes and registers them
// with a Transport. It holds no per-registration state and is safe for
// concurrent use.
type Advertiser struct {
	transport   Transport
	minInterval time.Duration
	maxInterval time.Duration
	timeout     time.Duration
	validate    func(Message) error
	logger      zerolog.Logger
}

type Option func(*Advertiser)

// WithInterval overrides the advertising interval bounds.
func WithInterval(lo, hi time.Duration) Option {
	return func(a *Advertiser) {
		a.minInterval = lo
		a.maxInterval = hi
	}
}

// WithTimeout sets how long a broadcast runs. Zero means until stopped.
func WithTimeout(d time.Duration) Option {
	return func(a *Advertiser) { a.timeout = d }
}

// WithValidator adds a check run on every message before encoding, after
// the message's own Validate.
func WithValidator(fn func(Message) error) Option {
	return func(a *Advertiser) { a.validate = fn }
}

func WithLogger(l zerolog.Logger) Option {
	return func(a *Advertiser) { a.logger = l }
}

func NewAdvertiser(t Transport, opts ...Option) *Advertiser {
	a := &Advertiser{
		transport:   t,
		minInterval: DefaultMinInterval,
		maxInterval: DefaultMaxInterval,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Envelope builds the broadcast envelope for an already encoded payload.
func (a *Advertiser) Envelope(payload []byte) Envelope {
	return Envelope{
		Type:             Broadcast,
		LocalName:        a.transport.LocalDeviceName(),
		MinInterval:      a.minInterval,
		MaxInterval:      a.maxInterval,
		Timeout:          a.timeout,
		ManufacturerData: map[uint16][]byte{AppleCompanyID: payload},
	}
}

func (a *Advertiser) check(m Message) error {
	if err := Validate(m); err != nil {
		return err
	}
	if a.validate == nil {
		return nil
	}
	if err := a.validate(m); err != nil {
		if errors.Is(err, ErrValidationRejected) {
			return err
		}
		return fmt.Errorf("%w: %s: %w", ErrValidationRejected, m.Kind(), err)
	}
	return nil
}

// Register validates and encodes m, and starts broadcasting it. For FindMy
// messages the local device address is replaced by the key's leading bytes
// first. The returned handle stops the broadcast via Unregister.
func (a *Advertiser) Register(ctx context.Context, m Message) (Handle, error) {
	m = Normalize(m)
	if m == nil {
		return "", fmt.Errorf("%w: nil message", ErrValidationRejected)
	}
	if err := a.check(m); err != nil {
		return "", err
	}
	payload := m.Encode()

	if fm, ok := m.(FindMy); ok {
		addr := fm.Address()
		if err := a.transport.SetLocalDeviceAddress(ctx, addr); err != nil {
			return "", &TransportError{Op: "set address", Err: err}
		}
		a.logger.Debug().Hex("address", addr[:]).Msg("device address overridden")
	}

	env := a.Envelope(payload)
	h, err := a.transport.BeginBroadcast(ctx, env)
	if err != nil {
		return "", &TransportError{Op: "begin broadcast", Err: err}
	}
	a.logger.Info().
		Stringer("kind", m.Kind()).
		Str("payload", hex.EncodeToString(payload)).
		Str("handle", string(h)).
		Msg("advertisement registered")
	return h, nil
}

// Unregister stops a broadcast started by Register.
func (a *Advertiser) Unregister(ctx context.Context, h Handle) error {
	if err := a.transport.StopBroadcast(ctx, h); err != nil {
		return &TransportError{Op: "stop broadcast", Err: err}
	}
	a.logger.Info().Str("handle", string(h)).Msg("advertisement stopped")
	return nil
}
