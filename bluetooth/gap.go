package bluetooth

import "time"

type AdvertisingType int

const (
	// AdvertisingTypeInd is connectable and scannable.
	AdvertisingTypeInd AdvertisingType = iota
	// AdvertisingTypeNonConnInd is a pure broadcast.
	AdvertisingTypeNonConnInd
)

// bluezType maps the advertising type onto LEAdvertisement1.Type.
func (t AdvertisingType) bluezType() string {
	if t == AdvertisingTypeNonConnInd {
		return "broadcast"
	}
	return "peripheral"
}

type AdvertisementOptions struct {
	AdvertisementType AdvertisingType

	LocalName string

	// Interval bounds. Zero leaves the controller default.
	MinInterval time.Duration
	MaxInterval time.Duration

	// Timeout of zero advertises until stopped.
	Timeout time.Duration

	ManufacturerData []ManufacturerDataElement
}

type ManufacturerDataElement struct {
	CompanyID uint16
	Data      []byte
}
