//go:build tinygo || baremetal

package nrf

import "device/nrf"

// HardwareRandReader reads bytes from the nRF peripheral's on-chip random
// number generator, the embedded target's substitute for crypto/rand.
type HardwareRandReader struct{}

func (HardwareRandReader) Read(p []byte) (int, error) {
	nrf.RNG.TASKS_START.Set(1)
	for i := range p {
		nrf.RNG.EVENTS_VALRDY.Set(0)
		for nrf.RNG.EVENTS_VALRDY.Get() == 0 {
		}
		p[i] = byte(nrf.RNG.VALUE.Get())
	}
	nrf.RNG.TASKS_STOP.Set(1)
	return len(p), nil
}
