//go:build tinygo || baremetal

// This file is built only for embedded targets (using real radio hardware).
package nrfpair

import (
	"github.com/ystepanoff/nrfpair/driver/nrf"
	"github.com/ystepanoff/nrfpair/transport"
)

// NewEngine constructs an engine for uid backed by the real nRF radio
// peripheral. Entropy is drawn from the peripheral's own on-chip RNG
// (see driver/nrf's hwrand-backed reader) rather than crypto/rand, which
// has no OS to back it on bare metal.
func NewEngine(uid string) (*Engine, error) {
	return transport.NewEngine(uid, nrf.New(), transport.SystemClock{}, nrf.HardwareRandReader{})
}
