package server

import (
	"encoding/hex"

	"github.com/mikoaf/appleble/continuity"
)

// recordView renders a decoded message for JSON output.
func recordView(m continuity.Message) map[string]any {
	m = continuity.Normalize(m)
	if m == nil {
		return nil
	}
	v := map[string]any{"kind": m.Kind()}
	switch m := m.(type) {
	case continuity.AirDrop:
		v["apple_id"] = m.AppleID.String()
		v["phone"] = m.Phone.String()
		v["email"] = m.Email.String()
	case continuity.AirPlayTarget:
		v["ip"] = m.IP().String()
	case continuity.AirPrint:
		v["port"] = m.Port
		v["ip"] = m.IP().String()
		v["power"] = m.Power
	case continuity.FindMy:
		v["public_key"] = hex.EncodeToString(m.PublicKey[:])
	}
	return v
}
