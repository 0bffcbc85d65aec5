// Package protocol implements the wire-level building blocks of the pairing
// and transport stack: addressing, the fragment header, the stream cipher
// session, X25519 key agreement, and the peer table. Higher layers (the
// pairing and transport engines) live in package transport and depend only
// on this package.
package protocol

// PHY and framing constants, platform independent. All higher layers should
// depend on this file rather than hardcoding sizes.
const (
	// PHYPayloadSize is the fixed size of every on-air frame.
	PHYPayloadSize = 32

	// FragmentHeaderSize is the 3-byte header prefixed to every fragment:
	// code(1) + index(2, little-endian).
	FragmentHeaderSize = 3

	// FragmentPayloadSize is the usable bytes per fragment after the header.
	FragmentPayloadSize = PHYPayloadSize - FragmentHeaderSize

	// FragmentCodeStart marks the first fragment of a message.
	FragmentCodeStart byte = 'M'
	// FragmentCodeContinue marks a non-first fragment.
	FragmentCodeContinue byte = 'C'

	// MaxMessageSize is the largest application payload accepted by Send,
	// before any encryption overhead.
	MaxMessageSize = 2048

	// MaxFragments bounds reassembly; messages requiring more fragments are
	// rejected at the sender and dropped at the receiver.
	MaxFragments = 100

	// NonceSize is the size of a cipher frame's nonce prefix: iv(8) || counter(4).
	NonceSize     = 12
	ivSize        = 8
	counterSize   = 4
	SharedKeySize = 32

	// UIDSize is the fixed length of a node's alphanumeric identifier.
	UIDSize = 4

	// AddressSize is the pipe digit plus the UID.
	AddressSize = 1 + UIDSize

	// NumSlots is the fixed capacity of the peer table.
	NumSlots = 5

	// MaxMailbox is the bounded FIFO depth per peer.
	MaxMailbox = 3

	// UnpairPipe is the reserved pipe value signalling an unpair request.
	UnpairPipe = 0

	// ConfigChannel and DataChannel are distinct radio frequency channels.
	ConfigChannel uint8 = 109
	DataChannel   uint8 = 108

	// CFGRX / CFGTX are the well-known 5-byte labels used during pairing,
	// before either side knows the other's UID. The listener reads on
	// CFGTX and writes on CFGRX; the transmitter does the reverse.
	CFGRX = "CFGRX"
	CFGTX = "CFGTX"

	// Timeouts and intervals, milliseconds.
	PairingInterval   = 250
	PairingListenTime = 5000
	PairingTimeout    = 10000
	ReceiveTimeout    = 1000
)
