package bluetooth

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// SetAddress changes the controller's public address. BlueZ has no D-Bus
// call for this, so the management tool is used; the controller is powered
// down for the change and needs the privileges the tool requires.
func (a *Adapter) SetAddress(ctx context.Context, mac MAC) error {
	index := strings.TrimPrefix(a.id, "hci")
	steps := [][]string{
		{"power", "off"},
		{"public-addr", mac.String()},
		{"power", "on"},
	}
	for _, step := range steps {
		args := append([]string{"--index", index}, step...)
		out, err := a.run(ctx, a.addressTool, args...)
		if err != nil {
			return fmt.Errorf("bluetooth: %s %s: %w: %s", a.addressTool, strings.Join(step, " "), err, bytes.TrimSpace(out))
		}
	}
	log.Debug().Str("adapter", a.id).Stringer("address", mac).Msg("bluetooth: public address set")

	if a.adapter == nil {
		a.mu.Lock()
		a.address = mac.String()
		a.mu.Unlock()
		return nil
	}
	return a.refresh()
}
