//go:build !tinygo && !baremetal

// This file is built only for non-embedded targets (host-based testing).
package nrfpair

import (
	"crypto/rand"

	"github.com/ystepanoff/nrfpair/driver/stub"
	"github.com/ystepanoff/nrfpair/transport"
)

// NewEngine constructs an engine for uid backed by a fresh in-memory
// loopback radio. That driver is not reachable from the returned engine,
// so it stays unconnected; for two engines that talk to each other, join
// two stub drivers with stub.Connect and pass them to NewEngineWithDriver.
func NewEngine(uid string) (*Engine, error) {
	return transport.NewEngine(uid, stub.New(), transport.SystemClock{}, rand.Reader)
}

// NewEngineWithDriver constructs an engine for uid over a caller-supplied
// driver, for tests that need direct control of the loopback topology.
func NewEngineWithDriver(uid string, driver RadioDriver) (*Engine, error) {
	return transport.NewEngine(uid, driver, transport.SystemClock{}, rand.Reader)
}
