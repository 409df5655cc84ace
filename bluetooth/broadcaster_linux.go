package bluetooth

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mikoaf/appleble/continuity"
)

// Broadcaster drives Continuity advertisements through a BlueZ adapter. It
// implements continuity.Transport.
type Broadcaster struct {
	adapter *Adapter

	mu     sync.Mutex
	active map[continuity.Handle]*Advertisement
}

var _ continuity.Transport = (*Broadcaster)(nil)

// NewBroadcaster wraps an enabled adapter.
func NewBroadcaster(a *Adapter) *Broadcaster {
	return &Broadcaster{
		adapter: a,
		active:  make(map[continuity.Handle]*Advertisement),
	}
}

func (b *Broadcaster) BeginBroadcast(ctx context.Context, env continuity.Envelope) (continuity.Handle, error) {
	adv := b.adapter.NewAdvertisement()
	if err := adv.Configure(OptionsFromEnvelope(env)); err != nil {
		return "", err
	}
	if err := adv.Start(ctx); err != nil {
		if uerr := adv.unexport(); uerr != nil {
			return "", fmt.Errorf("%w (cleanup: %v)", err, uerr)
		}
		return "", err
	}

	h := continuity.Handle(adv.Path())
	b.track(h, adv)
	return h, nil
}

// track records a started advertisement. If BlueZ releases it before
// StopBroadcast runs, the handle is dropped and the object unexported.
func (b *Broadcaster) track(h continuity.Handle, adv *Advertisement) {
	b.mu.Lock()
	b.active[h] = adv
	b.mu.Unlock()

	go func() {
		select {
		case <-adv.Released():
		case <-adv.done:
			return
		}
		b.mu.Lock()
		owned := b.active[h] == adv
		if owned {
			delete(b.active, h)
		}
		b.mu.Unlock()
		if !owned {
			return
		}
		if err := adv.unexport(); err != nil {
			log.Warn().Err(err).Str("handle", string(h)).Msg("bluetooth: unexport released advertisement")
			return
		}
		log.Info().Str("handle", string(h)).Msg("bluetooth: advertisement released")
	}()
}

func (b *Broadcaster) StopBroadcast(ctx context.Context, h continuity.Handle) error {
	b.mu.Lock()
	adv, ok := b.active[h]
	delete(b.active, h)
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", errAdvertisementNotStarted, h)
	}
	adv.finish()
	return adv.Stop(ctx)
}

// StopAll stops every broadcast still running and returns the first error.
func (b *Broadcaster) StopAll(ctx context.Context) error {
	b.mu.Lock()
	handles := make([]continuity.Handle, 0, len(b.active))
	for h := range b.active {
		handles = append(handles, h)
	}
	b.mu.Unlock()

	var first error
	for _, h := range handles {
		if err := b.StopBroadcast(ctx, h); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (b *Broadcaster) LocalDeviceName() string {
	return b.adapter.Name()
}

func (b *Broadcaster) SetLocalDeviceAddress(ctx context.Context, addr [continuity.AddressLen]byte) error {
	return b.adapter.SetAddress(ctx, MACFromBytes(addr))
}

// LocalDeviceAddress returns the adapter address in transmission order, as
// needed to decode FindMy payloads sent by this device.
func (b *Broadcaster) LocalDeviceAddress() ([continuity.AddressLen]byte, error) {
	addr, err := b.adapter.Address()
	if err != nil {
		return [continuity.AddressLen]byte{}, err
	}
	return addr.Bytes(), nil
}
