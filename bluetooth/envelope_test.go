package bluetooth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mikoaf/appleble/continuity"
)

func TestOptionsFromEnvelope(t *testing.T) {
	payload := continuity.AirPlaySource{}.Encode()
	env := continuity.Envelope{
		Type:             continuity.Broadcast,
		LocalName:        "kitchen",
		MinInterval:      100 * time.Millisecond,
		MaxInterval:      200 * time.Millisecond,
		ManufacturerData: map[uint16][]byte{0x00e0: {0x01}, continuity.AppleCompanyID: payload},
	}

	opts := OptionsFromEnvelope(env)
	assert.Equal(t, AdvertisingTypeNonConnInd, opts.AdvertisementType)
	assert.Equal(t, "broadcast", opts.AdvertisementType.bluezType())
	assert.Equal(t, "kitchen", opts.LocalName)
	assert.Equal(t, 100*time.Millisecond, opts.MinInterval)
	assert.Equal(t, 200*time.Millisecond, opts.MaxInterval)
	assert.Zero(t, opts.Timeout)
	assert.Equal(t, []ManufacturerDataElement{
		{CompanyID: 0x004c, Data: payload},
		{CompanyID: 0x00e0, Data: []byte{0x01}},
	}, opts.ManufacturerData)
}

func TestAdvertisingTypeBlueZ(t *testing.T) {
	assert.Equal(t, "peripheral", AdvertisingTypeInd.bluezType())
	assert.Equal(t, "broadcast", AdvertisingTypeNonConnInd.bluezType())
}
