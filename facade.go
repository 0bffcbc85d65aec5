// Package nrfpair provides a façade over the protocol and transport layers:
// encrypted pairing and messaging over a short-packet radio, driven by a
// single cooperative Tick.
package nrfpair

import (
	"github.com/ystepanoff/nrfpair/protocol"
	"github.com/ystepanoff/nrfpair/transport"
)

// The actual construction is split into build-tag specific files:
// - constructors_nrf.go  - for embedded platforms (//go:build tinygo || baremetal)
// - constructors_host.go - for development/testing (//go:build !tinygo && !baremetal)

// Re-export types for backward compatibility
type (
	Engine      = transport.Engine
	EngineState = protocol.EngineState
	PeerTable   = protocol.PeerTable
	PeerSlot    = protocol.PeerSlot
	RadioDriver = transport.RadioDriver
	Clock       = transport.Clock
)

// Error constants exposed in the public API
var (
	ErrInvalidArg    = protocol.ErrInvalidArg
	ErrNotPaired     = protocol.ErrNotPaired
	ErrBusy          = protocol.ErrBusy
	ErrRadioWrite    = protocol.ErrRadioWrite
	ErrCryptoError   = protocol.ErrCryptoError
	ErrReplay        = protocol.ErrReplay
	ErrDecryptReject = protocol.ErrDecryptReject
	ErrReassembly    = protocol.ErrReassembly
	ErrPairingTime   = protocol.ErrPairingTime
	ErrInvalidAddr   = protocol.ErrInvalidAddr
	ErrMsgTooLarge   = protocol.ErrMsgTooLarge
	ErrTableFull     = protocol.ErrTableFull
)

// State constants exposed in the public API
const (
	StateIdle            = protocol.StateIdle
	StatePairingListen   = protocol.StatePairingListen
	StatePairingTransmit = protocol.StatePairingTransmit
	StateTransmitting    = protocol.StateTransmitting
	StateReceiving       = protocol.StateReceiving
)

// ExportConfig serialises e's identity and peer table to the JSON document
// format produced by protocol.ExportJSON.
func ExportConfig(e *Engine, includeKeys bool) (string, error) {
	return e.ExportConfig(includeKeys)
}

// ImportConfig loads a previously exported configuration document into e's
// peer table and personal keypair.
func ImportConfig(e *Engine, doc string) error {
	return e.ImportConfig(doc)
}
