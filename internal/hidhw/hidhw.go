// Package hidhw is the real HID transport for pkg/smx, backed by
// github.com/karalabe/hid. pkg/smx itself never imports a concrete HID
// library; it only depends on the smx.Transport/smx.Enumerator
// interfaces (grounded in seagrayinc-gorow's pkg/hid.Device/Manager
// interface split), so tests can substitute a fake transport instead.
package hidhw

import (
	"github.com/karalabe/hid"

	"github.com/steprevolution/stepmaniax-sdk/pkg/smx"
)

// StepManiaX pads enumerate under the default Arduino Leonardo vendor and
// product IDs, so the product string is checked too, matching
// SMXDeviceSearch's OpenUSBDevice filter exactly.
const (
	vendorID    = 0x2341
	productID   = 0x8037
	productName = "StepManiaX"
)

// Enumerator lists currently attached StepManiaX pads.
type Enumerator struct{}

// Enumerate implements smx.Enumerator.
func (Enumerator) Enumerate() ([]smx.Candidate, error) {
	infos := hid.Enumerate(vendorID, productID)

	candidates := make([]smx.Candidate, 0, len(infos))
	for _, info := range infos {
		if info.Product != productName {
			continue
		}

		info := info
		candidates = append(candidates, smx.Candidate{
			Path: info.Path,
			Open: func() (smx.Transport, error) {
				return info.Open()
			},
		})
	}
	return candidates, nil
}
