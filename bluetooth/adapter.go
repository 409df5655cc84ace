package bluetooth

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog/log"
)

const defaultAdapter = "hci0"

const defaultAddressTool = "btmgmt"

var errAdapterNotEnabled = errors.New("bluetooth: adapter not enabled")

// CommandRunner runs an external management tool and returns its combined
// output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

type Adapter struct {
	id      string
	bus     *dbus.Conn
	adapter dbus.BusObject //object at /org/bluez/hcix

	mu      sync.Mutex
	address string
	name    string

	addressTool string
	run         CommandRunner
}

func NewAdapter(id string) *Adapter {
	return &Adapter{
		id:          id,
		addressTool: defaultAddressTool,
		run:         execRunner,
	}
}

var DefaultAdapter = NewAdapter(defaultAdapter)

// SetAddressTool changes the management tool used by SetAddress.
func (a *Adapter) SetAddressTool(name string, run CommandRunner) {
	if name != "" {
		a.addressTool = name
	}
	if run != nil {
		a.run = run
	}
}

func (a *Adapter) ID() string { return a.id }

func (a *Adapter) Enable() (err error) {
	bus, err := dbus.ConnectSystemBus()
	if err != nil {
		return err
	}

	a.bus = bus
	a.adapter = a.bus.Object("org.bluez", dbus.ObjectPath("/org/bluez/"+a.id))
	log.Debug().Str("path", string(a.adapter.Path())).Msg("bluetooth: adapter path")
	return a.refresh()
}

// refresh re-reads the adapter address and alias.
func (a *Adapter) refresh() error {
	addr, err := a.adapter.GetProperty("org.bluez.Adapter1.Address")
	if err != nil {
		if err, ok := err.(dbus.Error); ok && err.Name == "org.freedesktop.DBus.Error.UnknownObject" {
			return fmt.Errorf("bluetooth: adapter %s does not exist", a.adapter.Path())
		}
		return fmt.Errorf("could not activate BlueZ adapter: %w", err)
	}
	alias, err := a.adapter.GetProperty("org.bluez.Adapter1.Alias")
	if err != nil {
		return fmt.Errorf("bluetooth: read adapter alias: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := addr.Store(&a.address); err != nil {
		return fmt.Errorf("bluetooth: read adapter address: %w", err)
	}
	if err := alias.Store(&a.name); err != nil {
		return fmt.Errorf("bluetooth: read adapter alias: %w", err)
	}
	log.Debug().Str("address", a.address).Str("alias", a.name).Msg("bluetooth: adapter enabled")
	return nil
}

// Address returns the adapter address read when the adapter was enabled or
// last set through SetAddress.
func (a *Adapter) Address() (MAC, error) {
	a.mu.Lock()
	address := a.address
	a.mu.Unlock()
	if address == "" {
		return MAC{}, errAdapterNotEnabled
	}
	return ParseMAC(address)
}

// Name returns the adapter alias read when the adapter was enabled.
func (a *Adapter) Name() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.name
}

// Close releases the system bus connection.
func (a *Adapter) Close() error {
	if a.bus == nil {
		return nil
	}
	return a.bus.Close()
}
