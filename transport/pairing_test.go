package transport

import (
	"crypto/rand"
	"testing"

	proto "github.com/ystepanoff/nrfpair/protocol"
)

// fakeClock is a test Clock. Tick takes `now` explicitly; only Send reads
// the clock, to stamp a slot's LastActivity.
type fakeClock struct{ ms int64 }

func (c *fakeClock) NowMillis() int64 { return c.ms }

func newTestEngine(t *testing.T, uid string, drv *loopbackDriver) *Engine {
	t.Helper()
	e, err := NewEngine(uid, drv, &fakeClock{}, rand.Reader)
	if err != nil {
		t.Fatalf("NewEngine(%q) error = %v", uid, err)
	}
	if err := e.InitRadio(); err != nil {
		t.Fatalf("InitRadio() error = %v", err)
	}
	return e
}

// pairEngines drives a full pairing handshake between two freshly started
// engines. b enters pairing immediately and, hearing nothing, escalates
// from listener to transmitter after PairingListenTime; a only joins after
// that escalation, the way a second device would after the first was
// already left in pairing mode (spec.md §4.D escalation).
func pairEngines(t *testing.T, a, b *Engine) {
	t.Helper()
	if err := b.StartPairing(0); err != nil {
		t.Fatalf("b.StartPairing() error = %v", err)
	}

	const step = 10
	const aStart int64 = proto.PairingListenTime + 500
	deadline := aStart + proto.PairingTimeout
	started := false

	for now := int64(0); now < deadline; now += step {
		if !started && now >= aStart {
			if err := a.StartPairing(now); err != nil {
				t.Fatalf("a.StartPairing() error = %v", err)
			}
			started = true
		}
		b.Tick(now)
		if started {
			a.Tick(now)
		}
		if started && a.State() == proto.StateIdle && b.State() == proto.StateIdle {
			return
		}
	}
	t.Fatalf("pairing did not complete (a=%s b=%s)", a.State(), b.State())
}

func TestPairingListenerEscalation(t *testing.T) {
	drvA := newLoopback()
	drvB := newLoopback()
	connectLoopback(drvA, drvB)

	a := newTestEngine(t, "AAAA", drvA)
	b := newTestEngine(t, "BBBB", drvB)

	pairEngines(t, a, b)

	idxInA, ok := a.Table().FindByUID("BBBB")
	if !ok {
		t.Fatal("a did not learn peer b")
	}
	idxInB, ok := b.Table().FindByUID("AAAA")
	if !ok {
		t.Fatal("b did not learn peer a")
	}

	slotA := a.Table().Slot(idxInA)
	slotB := b.Table().Slot(idxInB)
	if !slotA.HasKey() || !slotB.HasKey() {
		t.Fatal("paired slots missing shared key")
	}
	if slotA.SharedKey != slotB.SharedKey {
		t.Fatal("shared keys diverge between peers")
	}
}

func runTicksUntilStatus(t *testing.T, a, b *Engine, start int64, status *int) {
	t.Helper()
	const step = 10
	const budget = 20000
	now := start
	for ; now < start+budget; now += step {
		a.Tick(now)
		b.Tick(now)
		if *status != 0 {
			return
		}
	}
	t.Fatalf("send did not reach a terminal status within %dms", budget)
}

func TestSendEncryptedRoundTrip(t *testing.T) {
	drvA := newLoopback()
	drvB := newLoopback()
	connectLoopback(drvA, drvB)

	a := newTestEngine(t, "AAAA", drvA)
	b := newTestEngine(t, "BBBB", drvB)
	pairEngines(t, a, b)

	idxInA, _ := a.Table().FindByUID("BBBB")
	bAddr := a.Table().Slot(idxInA).Address

	msg := []byte("hello from a")
	status, err := a.Send(bAddr, msg, true)
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	runTicksUntilStatus(t, a, b, 1_000_000, status)
	if *status != 1 {
		t.Fatalf("send status = %d, want 1", *status)
	}

	idxInB, _ := b.Table().FindByUID("AAAA")
	got, ok := b.Table().Slot(idxInB).Dequeue()
	if !ok {
		t.Fatal("b received nothing")
	}
	if string(got) != string(msg) {
		t.Fatalf("b received %q, want %q", got, msg)
	}
}

func TestSendMultiFragmentRoundTrip(t *testing.T) {
	drvA := newLoopback()
	drvB := newLoopback()
	connectLoopback(drvA, drvB)

	a := newTestEngine(t, "AAAA", drvA)
	b := newTestEngine(t, "BBBB", drvB)
	pairEngines(t, a, b)

	idxInA, _ := a.Table().FindByUID("BBBB")
	bAddr := a.Table().Slot(idxInA).Address

	// 60 plaintext bytes encrypt to 72 bytes (12-byte nonce prefix), which
	// takes three fragments.
	msg := make([]byte, 60)
	for i := range msg {
		msg[i] = byte(i)
	}
	status, err := a.Send(bAddr, msg, true)
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	runTicksUntilStatus(t, a, b, 2_000_000, status)
	if *status != 1 {
		t.Fatalf("send status = %d, want 1", *status)
	}

	idxInB, _ := b.Table().FindByUID("AAAA")
	got, ok := b.Table().Slot(idxInB).Dequeue()
	if !ok {
		t.Fatal("b received nothing")
	}
	if len(got) != len(msg) {
		t.Fatalf("reassembled length = %d, want %d", len(got), len(msg))
	}
	for i := range msg {
		if got[i] != msg[i] {
			t.Fatalf("byte %d = %x, want %x", i, got[i], msg[i])
		}
	}
}

func TestSendToUnpairedAddressFails(t *testing.T) {
	drvA := newLoopback()
	a := newTestEngine(t, "AAAA", drvA)

	_, err := a.Send("1ZZZZ", []byte("x"), true)
	if err != proto.ErrNotPaired {
		t.Fatalf("Send() error = %v, want ErrNotPaired", err)
	}
}

func TestPairingKnownPeerUnpair(t *testing.T) {
	drvA := newLoopback()
	drvB := newLoopback()
	connectLoopback(drvA, drvB)

	a := newTestEngine(t, "AAAA", drvA)
	b := newTestEngine(t, "BBBB", drvB)
	pairEngines(t, a, b)

	if _, ok := a.Table().FindByUID("BBBB"); !ok {
		t.Fatal("precondition: a and b must be paired before unpair test")
	}

	// Pairing again while already mutually known is the unpair handshake
	// (spec.md §4.D "existing UID found").
	base := int64(3_000_000)
	if err := b.StartPairing(base); err != nil {
		t.Fatalf("b.StartPairing() error = %v", err)
	}
	const step = 10
	started := false
	aStart := base + proto.PairingListenTime + 500
	deadline := aStart + proto.PairingTimeout
	for now := base; now < deadline; now += step {
		if !started && now >= aStart {
			if err := a.StartPairing(now); err != nil {
				t.Fatalf("a.StartPairing() error = %v", err)
			}
			started = true
		}
		b.Tick(now)
		if started {
			a.Tick(now)
		}
		if started && a.State() == proto.StateIdle && b.State() == proto.StateIdle {
			break
		}
	}

	if _, ok := a.Table().FindByUID("BBBB"); ok {
		t.Fatal("a still has b paired after unpair handshake")
	}
	if _, ok := b.Table().FindByUID("AAAA"); ok {
		t.Fatal("b still has a paired after unpair handshake")
	}
}
