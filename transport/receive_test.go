package transport

import (
	"testing"

	proto "github.com/ystepanoff/nrfpair/protocol"
)

func pairedPair(t *testing.T) (a, b *Engine) {
	t.Helper()
	drvA := newLoopback()
	drvB := newLoopback()
	connectLoopback(drvA, drvB)

	a = newTestEngine(t, "AAAA", drvA)
	b = newTestEngine(t, "BBBB", drvB)
	pairEngines(t, a, b)
	return a, b
}

func buildFragment(code byte, index uint16, payload []byte) []byte {
	frame := make([]byte, proto.FragmentHeaderSize+len(payload))
	proto.EncodeFragmentHeader(frame, proto.FragmentHeader{Code: code, Index: index})
	copy(frame[proto.FragmentHeaderSize:], payload)
	return proto.Pad(frame, proto.PHYPayloadSize)
}

func TestReplayedFrameIsRejectedAndStoredRaw(t *testing.T) {
	a, b := pairedPair(t)

	idxForB, _ := a.Table().FindByUID("BBBB")
	slotForB := a.Table().Slot(idxForB)
	idxForA, _ := b.Table().FindByUID("AAAA")
	slotForA := b.Table().Slot(idxForA)

	msg := []byte("no replays")
	ciphertext, err := slotForB.Cipher.Encrypt(msg)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	frame := buildFragment(proto.FragmentCodeStart, 0, ciphertext)

	if err := a.driver.OpenWritingPipe(slotForB.Address); err != nil {
		t.Fatalf("OpenWritingPipe() error = %v", err)
	}

	// First delivery: legitimate, decrypts cleanly.
	if ok := a.driver.Write(frame); !ok {
		t.Fatal("write to b's reading pipe did not deliver")
	}
	b.tickInbound(0)
	got, ok := slotForA.Dequeue()
	if !ok {
		t.Fatal("expected first delivery to be enqueued")
	}
	if string(got) != string(msg) {
		t.Fatalf("first delivery = %q, want %q", got, msg)
	}

	// Replay the identical frame: the counter no longer advances, so
	// Decrypt rejects it and the raw ciphertext is enqueued instead.
	if ok := a.driver.Write(frame); !ok {
		t.Fatal("replayed write did not deliver")
	}
	b.tickInbound(1)
	got, ok = slotForA.Dequeue()
	if !ok {
		t.Fatal("expected replayed frame to still be enqueued raw")
	}
	if len(got) != len(ciphertext) {
		t.Fatalf("replayed enqueue length = %d, want %d", len(got), len(ciphertext))
	}
	if string(got) == string(msg) {
		t.Fatal("replayed frame should not have decrypted to the original plaintext")
	}
}

func TestTickReassemblyTimeoutDiscardsPartial(t *testing.T) {
	a, b := pairedPair(t)

	idxInB, _ := b.Table().FindByUID("AAAA")
	slotInB := b.Table().Slot(idxInB)
	idxInA, _ := a.Table().FindByUID("BBBB")
	bAddr := a.Table().Slot(idxInA).Address

	// Send only the first of what claims to be a two-fragment message.
	payload := []byte("partial-fragment-data")
	frame := buildFragment(proto.FragmentCodeStart, 1, payload)

	if err := a.driver.OpenWritingPipe(bAddr); err != nil {
		t.Fatalf("OpenWritingPipe() error = %v", err)
	}
	if ok := a.driver.Write(frame); !ok {
		t.Fatal("write to b's reading pipe did not deliver")
	}

	b.tickInbound(0)
	if len(slotInB.RxBuffer) == 0 {
		t.Fatal("expected partial reassembly buffer to be populated")
	}

	b.tickReassemblyTimeouts(proto.ReceiveTimeout + 1)
	if len(slotInB.RxBuffer) != 0 {
		t.Fatal("expected stale reassembly buffer to be discarded")
	}
	if slotInB.ExpectedFragments != 0 || slotInB.ReceivedFragments != 0 {
		t.Fatal("expected reassembly counters to be reset")
	}
}

func TestTickReassemblyNotDiscardedBeforeTimeout(t *testing.T) {
	a, b := pairedPair(t)

	idxInB, _ := b.Table().FindByUID("AAAA")
	slotInB := b.Table().Slot(idxInB)
	idxInA, _ := a.Table().FindByUID("BBBB")
	bAddr := a.Table().Slot(idxInA).Address

	payload := []byte("still-arriving")
	frame := buildFragment(proto.FragmentCodeStart, 1, payload)

	if err := a.driver.OpenWritingPipe(bAddr); err != nil {
		t.Fatalf("OpenWritingPipe() error = %v", err)
	}
	if ok := a.driver.Write(frame); !ok {
		t.Fatal("write to b's reading pipe did not deliver")
	}
	b.tickInbound(1000)

	b.tickReassemblyTimeouts(1000 + proto.ReceiveTimeout - 1)
	if len(slotInB.RxBuffer) == 0 {
		t.Fatal("reassembly buffer discarded before the timeout elapsed")
	}
}
