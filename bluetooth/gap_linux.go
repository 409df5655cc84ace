package bluetooth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"
)

const bluezAdvertisement1Interface = "org.bluez.LEAdvertisement1"

var errAdvertisementNotStarted = errors.New("bluetooth: advertisement is not started")
var errAdvertisementAlreadyStarted = errors.New("bluetooth: advertisement is already started")
var errAdvertisementNotConfigured = errors.New("bluetooth: advertisement is not configured")

var advertisementID uint64

type Advertisement struct {
	adapter    *Adapter
	properties *prop.Properties
	path       dbus.ObjectPath
	started    bool
	released   chan struct{}

	// done is closed once the broadcaster stops tracking the advertisement.
	done     chan struct{}
	doneOnce sync.Once
}

// releaser is exported on the advertisement path. BlueZ calls Release when
// it drops the advertisement on its own.
type releaser struct {
	adv *Advertisement
}

func (r releaser) Release() *dbus.Error {
	select {
	case <-r.adv.released:
	default:
		close(r.adv.released)
	}
	return nil
}

// NewAdvertisement returns an unconfigured advertisement on the adapter.
// Each advertisement gets its own object path, so several may run at once.
func (a *Adapter) NewAdvertisement() *Advertisement {
	return &Advertisement{adapter: a}
}

func (a *Advertisement) Path() dbus.ObjectPath { return a.path }

// Released is closed when BlueZ releases the advertisement.
func (a *Advertisement) Released() <-chan struct{} { return a.released }

func (a *Advertisement) Configure(options AdvertisementOptions) error {
	if a.started {
		return errAdvertisementAlreadyStarted
	}
	if a.adapter.bus == nil {
		return errAdapterNotEnabled
	}

	manufacturerData := map[uint16]any{}
	for _, element := range options.ManufacturerData {
		manufacturerData[element.CompanyID] = element.Data
	}

	props := map[string]*prop.Prop{
		"Type":             {Value: options.AdvertisementType.bluezType()},
		"ManufacturerData": {Value: manufacturerData},
		"LocalName":        {Value: options.LocalName},
		"Timeout":          {Value: uint16(options.Timeout.Seconds())},
	}
	if options.MinInterval > 0 {
		props["MinInterval"] = &prop.Prop{Value: uint32(options.MinInterval.Milliseconds())}
	}
	if options.MaxInterval > 0 {
		props["MaxInterval"] = &prop.Prop{Value: uint32(options.MaxInterval.Milliseconds())}
	}

	id := atomic.AddUint64(&advertisementID, 1)
	a.path = dbus.ObjectPath(fmt.Sprintf("/org/mikoaf/appleble/advertisement%d", id))
	a.released = make(chan struct{})
	a.done = make(chan struct{})

	p, err := prop.Export(a.adapter.bus, a.path, map[string]map[string]*prop.Prop{
		bluezAdvertisement1Interface: props,
	})
	if err != nil {
		return err
	}
	a.properties = p

	if err := a.adapter.bus.Export(releaser{adv: a}, a.path, bluezAdvertisement1Interface); err != nil {
		return fmt.Errorf("bluetooth: export advertisement: %w", err)
	}
	return nil
}

// Start advertisement. May only be called after it has been configured.
func (a *Advertisement) Start(ctx context.Context) error {
	if a.properties == nil {
		return errAdvertisementNotConfigured
	}
	// Register our advertisement object to start advertising.
	err := a.adapter.adapter.CallWithContext(ctx, "org.bluez.LEAdvertisingManager1.RegisterAdvertisement", 0, a.path, map[string]interface{}{}).Err
	if err != nil {
		if err, ok := err.(dbus.Error); ok && err.Name == "org.bluez.Error.AlreadyExists" {
			return errAdvertisementAlreadyStarted
		}
		return fmt.Errorf("bluetooth: could not start advertisement: %w", err)
	}
	a.started = true
	return nil
}

// Stop advertisement. May only be called after it has been started.
func (a *Advertisement) Stop(ctx context.Context) error {
	err := a.adapter.adapter.CallWithContext(ctx, "org.bluez.LEAdvertisingManager1.UnregisterAdvertisement", 0, a.path).Err
	if err != nil {
		if err, ok := err.(dbus.Error); ok && err.Name == "org.bluez.Error.DoesNotExist" {
			return errAdvertisementNotStarted
		}
		return fmt.Errorf("bluetooth: could not stop advertisement: %w", err)
	}
	a.started = false
	return a.unexport()
}

func (a *Advertisement) finish() {
	a.doneOnce.Do(func() { close(a.done) })
}

func (a *Advertisement) unexport() error {
	if a.adapter.bus == nil {
		// Configure exports nothing without a bus.
		a.properties = nil
		return nil
	}
	if err := a.adapter.bus.Export(nil, a.path, bluezAdvertisement1Interface); err != nil {
		return fmt.Errorf("bluetooth: unexport advertisement: %w", err)
	}
	if err := a.adapter.bus.Export(nil, a.path, "org.freedesktop.DBus.Properties"); err != nil {
		return fmt.Errorf("bluetooth: unexport advertisement properties: %w", err)
	}
	a.properties = nil
	return nil
}
