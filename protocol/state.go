package protocol

// EngineState is the explicit tagged state of the pairing/transport engine.
// All transitions are expressed as data, not an implicit global (spec.md §9
// "mutable state machine with implicit current-state global").
type EngineState int

const (
	StateIdle EngineState = iota
	StatePairingListen
	StatePairingTransmit
	StateTransmitting
	StateReceiving
)

func (s EngineState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePairingListen:
		return "pairing-listen"
	case StatePairingTransmit:
		return "pairing-transmit"
	case StateTransmitting:
		return "transmitting"
	case StateReceiving:
		return "receiving"
	default:
		return "unknown"
	}
}

// PairingScratch is the transient state kept only while pairing is active
// (spec.md §3 "Pairing scratch state"). It is destroyed when the engine
// returns to Idle.
type PairingScratch struct {
	PairingStartTime   int64
	LastPairingAttempt int64

	IsUnpairRequest bool

	TempPeerPublicKey [SharedKeySize]byte
	TempSharedKey     [SharedKeySize]byte
	TempCipher        *CipherSession
	TempPayload       []byte

	// PairingSlot is the first free slot at pairing start, or 255 if the
	// table was full (meaning the initiator will attempt an unpair).
	PairingSlot int

	GotPubkey  bool
	SentPubkey bool
	GotAck     bool
	SentAck    bool
}

// NewPairingScratch resets all scratch state for a fresh pairing attempt.
func NewPairingScratch(now int64, pairingSlot int) *PairingScratch {
	return &PairingScratch{
		PairingStartTime:   now,
		LastPairingAttempt: 0,
		PairingSlot:        pairingSlot,
		TempCipher:         NewCipherSession(),
	}
}
