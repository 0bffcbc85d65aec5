package transport

import (
	"io"
	"log"

	proto "github.com/ystepanoff/nrfpair/protocol"
)

// configPipe is the HW pipe index used to listen for the config-channel
// labels during pairing. It does not correspond to any peer slot.
const configPipe = 0

// Engine is the single owner of the radio device. It multiplexes pairing,
// outbound transmission, and inbound reassembly internally; there is no
// provision for concurrent access from another goroutine (spec.md §5).
type Engine struct {
	uid    string
	ownPub [proto.SharedKeySize]byte
	ownPriv [proto.SharedKeySize]byte

	table  *proto.PeerTable
	driver RadioDriver
	clock  Clock
	ka     *proto.KeyAgreement

	state   proto.EngineState
	pairing *proto.PairingScratch

	out outboundState
}

// outboundState tracks the single in-flight outbound message (spec.md §3
// "Outbound in-flight message"). Only one send is ever in progress.
type outboundState struct {
	data    []byte
	index   int
	addr    string
	status  *int
	pipe    int
}

// NewEngine constructs an engine for the given local UID, generating a
// fresh X25519 keypair from entropy personalised with that UID.
func NewEngine(uid string, driver RadioDriver, clock Clock, entropy io.Reader) (*Engine, error) {
	uid = proto.NormalizeUID(uid)
	ka := proto.NewKeyAgreement(proto.PersonalizedEntropy(uid, entropy))
	pub, priv, err := ka.GenerateKeypair()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		uid:     uid,
		ownPub:  pub,
		ownPriv: priv,
		table:   proto.NewPeerTable(priv),
		driver:  driver,
		clock:   clock,
		ka:      ka,
		state:   proto.StateIdle,
	}
	return e, nil
}

// State returns the engine's current tagged state.
func (e *Engine) State() proto.EngineState { return e.state }

// UID returns the local node's normalised 4-character identifier.
func (e *Engine) UID() string { return e.uid }

// PublicKey returns the local long-lived X25519 public key.
func (e *Engine) PublicKey() [proto.SharedKeySize]byte { return e.ownPub }

// Table exposes the peer table for export/import and diagnostics.
func (e *Engine) Table() *proto.PeerTable { return e.table }

// InitRadio configures the radio for normal data-channel operation: opens
// all five peer pipes on DataChannel and starts listening. NewEngine does
// not call it; the caller does so once after construction, and the engine
// calls it again whenever pairing hands control back.
func (e *Engine) InitRadio() error {
	if err := e.driver.Begin(); err != nil {
		return err
	}
	if err := e.driver.SetChannel(proto.DataChannel); err != nil {
		return err
	}
	if err := e.driver.SetPALevel(PAMax); err != nil {
		return err
	}
	if err := e.driver.SetDataRate(DataRate250Kbps); err != nil {
		return err
	}
	for slot := 0; slot < proto.NumSlots; slot++ {
		pipe := slot + 1
		addr := proto.MakeAddress(pipe, e.uid)
		if err := e.driver.OpenReadingPipe(pipe, addr); err != nil {
			return err
		}
	}
	e.driver.StartListening()
	return nil
}

// Tick drives one iteration of the engine's cooperative scheduler. It
// returns promptly; it never blocks on the radio for more than one PHY
// packet time.
func (e *Engine) Tick(now int64) {
	switch e.state {
	case proto.StatePairingListen:
		e.tickPairingListen(now)
		return
	case proto.StatePairingTransmit:
		e.tickPairingTransmit(now)
		return
	}

	e.tickInbound(now)
	e.tickReassemblyTimeouts(now)
	if e.state == proto.StateTransmitting {
		e.tickOutbound()
	}
}

func (e *Engine) logf(format string, args ...interface{}) {
	log.Printf("[engine "+e.uid+"] "+format, args...)
}
