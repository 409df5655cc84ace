package bluetooth

import (
	"context"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"

	"github.com/mikoaf/appleble/continuity"
)

func releasedAdvertisement(a *Adapter, path string) *Advertisement {
	return &Advertisement{
		adapter:  a,
		path:     dbus.ObjectPath(path),
		started:  true,
		released: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (b *Broadcaster) tracking(h continuity.Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.active[h]
	return ok
}

func TestBroadcasterRelease(t *testing.T) {
	b := NewBroadcaster(NewAdapter("hci0"))
	adv := releasedAdvertisement(b.adapter, "/org/mikoaf/appleble/advertisement1")
	h := continuity.Handle(adv.Path())
	b.track(h, adv)
	assert.True(t, b.tracking(h))

	assert.Nil(t, releaser{adv: adv}.Release())
	// BlueZ may call Release more than once.
	assert.Nil(t, releaser{adv: adv}.Release())

	assert.Eventually(t, func() bool { return !b.tracking(h) }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, b.StopBroadcast(context.Background(), h), errAdvertisementNotStarted)
}

func TestBroadcasterReleaseReplacedHandle(t *testing.T) {
	b := NewBroadcaster(NewAdapter("hci0"))
	old := releasedAdvertisement(b.adapter, "/org/mikoaf/appleble/advertisement2")
	h := continuity.Handle(old.Path())
	b.track(h, old)

	// A newer advertisement under the same handle survives the old release.
	current := releasedAdvertisement(b.adapter, "/org/mikoaf/appleble/advertisement2")
	b.mu.Lock()
	b.active[h] = current
	b.mu.Unlock()

	assert.Nil(t, releaser{adv: old}.Release())
	assert.Never(t, func() bool { return !b.tracking(h) }, 50*time.Millisecond, 5*time.Millisecond)
}
