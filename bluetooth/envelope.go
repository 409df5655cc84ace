package bluetooth

import (
	"sort"

	"github.com/mikoaf/appleble/continuity"
)

// OptionsFromEnvelope translates a Continuity envelope into advertisement
// options. Manufacturer data is ordered by company id.
func OptionsFromEnvelope(env continuity.Envelope) AdvertisementOptions {
	opts := AdvertisementOptions{
		AdvertisementType: AdvertisingTypeInd,
		LocalName:         env.LocalName,
		MinInterval:       env.MinInterval,
		MaxInterval:       env.MaxInterval,
		Timeout:           env.Timeout,
	}
	if env.Type == continuity.Broadcast {
		opts.AdvertisementType = AdvertisingTypeNonConnInd
	}
	for id, data := range env.ManufacturerData {
		opts.ManufacturerData = append(opts.ManufacturerData, ManufacturerDataElement{CompanyID: id, Data: data})
	}
	sort.Slice(opts.ManufacturerData, func(i, j int) bool {
		return opts.ManufacturerData[i].CompanyID < opts.ManufacturerData[j].CompanyID
	})
	return opts
}
