package protocol

// PeerSlot holds everything the table owns about one paired peer: its
// advertised address, the raw key material, the cipher session keyed from
// that material, and a bounded inbound mailbox. The cipher session is
// co-located here so assign/clear can re-key it atomically with the rest of
// the slot (spec.md §9 "shared ownership of key material").
type PeerSlot struct {
	Address      string
	PeerPubKey   [SharedKeySize]byte
	SharedKey    [SharedKeySize]byte
	Cipher       *CipherSession
	Mailbox      [][]byte
	LastActivity int64 // unix millis of the last successful encrypt/decrypt

	// Reassembly state, keyed by slot rather than a single global buffer
	// (spec.md §9's safe strengthening: interleaved fragments from
	// different peers no longer corrupt each other's reassembly).
	RxBuffer          []byte
	ExpectedFragments int
	ReceivedFragments int
	LastFragmentTime  int64

	hasKey bool
}

func newPeerSlot() *PeerSlot {
	return &PeerSlot{Cipher: NewCipherSession()}
}

// Empty reports whether the slot holds no peer.
func (s *PeerSlot) Empty() bool { return s.Address == "" }

// HasKey reports whether the slot's key material is usable for encryption.
// A slot can be address-only after an import with no pubKey present.
func (s *PeerSlot) HasKey() bool { return s.hasKey }

// Enqueue appends msg to the mailbox, dropping the oldest entry first if
// the mailbox is already at MaxMailbox.
func (s *PeerSlot) Enqueue(msg []byte) {
	if len(s.Mailbox) >= MaxMailbox {
		s.Mailbox = s.Mailbox[1:]
	}
	s.Mailbox = append(s.Mailbox, msg)
}

// Dequeue pops the oldest mailbox entry, if any.
func (s *PeerSlot) Dequeue() ([]byte, bool) {
	if len(s.Mailbox) == 0 {
		return nil, false
	}
	msg := s.Mailbox[0]
	s.Mailbox = s.Mailbox[1:]
	return msg, true
}

func (s *PeerSlot) clear() {
	s.Address = ""
	s.PeerPubKey = [SharedKeySize]byte{}
	s.SharedKey = [SharedKeySize]byte{}
	s.Mailbox = nil
	s.hasKey = false
	s.Cipher.SetKey([SharedKeySize]byte{})
	s.resetReassembly()
}

func (s *PeerSlot) resetReassembly() {
	s.RxBuffer = nil
	s.ExpectedFragments = 0
	s.ReceivedFragments = 0
}

// PeerTable is a fixed array of NumSlots peer slots. Invariants (spec.md
// §3): at most one slot has any given non-empty address; an empty address
// implies zero key material and an empty mailbox; a slot's cipher session
// key always equals its shared key; slot assignment is stable until an
// explicit clear.
type PeerTable struct {
	slots    [NumSlots]*PeerSlot
	ownPriv  [SharedKeySize]byte
	deriveFn func(peerPub, ownPriv [SharedKeySize]byte) ([SharedKeySize]byte, error)
}

// NewPeerTable builds an empty table bound to the local private key used
// for shared-secret derivation on Assign.
func NewPeerTable(ownPriv [SharedKeySize]byte) *PeerTable {
	t := &PeerTable{ownPriv: ownPriv, deriveFn: DeriveShared}
	for i := range t.slots {
		t.slots[i] = newPeerSlot()
	}
	return t
}

// SetOwnPriv updates the local private key used for shared-secret
// derivation on subsequent Assign calls, e.g. after importing a
// configuration document that carries a different personal keypair.
func (t *PeerTable) SetOwnPriv(priv [SharedKeySize]byte) {
	t.ownPriv = priv
}

// Slot returns the slot at index i (0..NumSlots-1), or nil if out of range.
func (t *PeerTable) Slot(i int) *PeerSlot {
	if i < 0 || i >= NumSlots {
		return nil
	}
	return t.slots[i]
}

// Assign derives the shared key from peerPub and the local private key,
// clears the slot's mailbox, and installs the address, public key, shared
// key, and re-keyed cipher session.
func (t *PeerTable) Assign(slot int, addr string, peerPub [SharedKeySize]byte) error {
	s := t.Slot(slot)
	if s == nil {
		return ErrInvalidArg
	}
	shared, err := t.deriveFn(peerPub, t.ownPriv)
	if err != nil {
		return err
	}
	s.Mailbox = nil
	s.resetReassembly()
	s.Address = addr
	s.PeerPubKey = peerPub
	s.SharedKey = shared
	s.hasKey = true
	s.Cipher.SetKey(shared)
	return nil
}

// AssignAddressOnly installs an address with no key material (used when
// importing a configuration document whose pubKey array is absent). The
// slot is unusable for encryption until a key arrives via pairing.
func (t *PeerTable) AssignAddressOnly(slot int, addr string) error {
	s := t.Slot(slot)
	if s == nil {
		return ErrInvalidArg
	}
	s.Mailbox = nil
	s.resetReassembly()
	s.Address = addr
	s.PeerPubKey = [SharedKeySize]byte{}
	s.SharedKey = [SharedKeySize]byte{}
	s.hasKey = false
	s.Cipher.SetKey([SharedKeySize]byte{})
	return nil
}

// Clear zeroes all key material, empties the mailbox, and clears the
// address of the given slot.
func (t *PeerTable) Clear(slot int) error {
	s := t.Slot(slot)
	if s == nil {
		return ErrInvalidArg
	}
	s.clear()
	return nil
}

// FindByAddress linearly scans for the first slot with a matching address.
func (t *PeerTable) FindByAddress(addr string) (int, bool) {
	for i, s := range t.slots {
		if !s.Empty() && s.Address == addr {
			return i, true
		}
	}
	return 0, false
}

// FindByUID matches the 4-character tail of each slot's address.
func (t *PeerTable) FindByUID(uid string) (int, bool) {
	for i, s := range t.slots {
		if !s.Empty() && len(s.Address) == AddressSize && s.Address[1:] == uid {
			return i, true
		}
	}
	return 0, false
}

// ActivePeers returns the slot indices whose last successful encrypt or
// decrypt happened within timeout milliseconds of now. This is read-only
// telemetry, mirroring the teacher's device-liveness query; it has no
// bearing on any pairing or transport invariant.
func (t *PeerTable) ActivePeers(now, timeout int64) []int {
	var active []int
	for i, s := range t.slots {
		if s.Empty() {
			continue
		}
		if now-s.LastActivity <= timeout {
			active = append(active, i)
		}
	}
	return active
}

// FirstFree returns the first slot with an empty address, or (255, false)
// if the table is full.
func (t *PeerTable) FirstFree() (int, bool) {
	for i, s := range t.slots {
		if s.Empty() {
			return i, true
		}
	}
	return 255, false
}
