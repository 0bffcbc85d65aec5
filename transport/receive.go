package transport

import (
	proto "github.com/ystepanoff/nrfpair/protocol"
)

// tickInbound polls the driver for at most one pending frame and feeds it
// into the owning slot's reassembly state.
func (e *Engine) tickInbound(now int64) {
	pipe, ok := e.driver.Available()
	if !ok {
		return
	}

	buf := make([]byte, e.driver.PayloadSize())
	n := e.driver.Read(buf)
	raw := proto.Unpad(buf[:n])
	if len(raw) < proto.FragmentHeaderSize {
		return
	}

	slotIdx := pipe - 1
	slot := e.table.Slot(slotIdx)
	if slot == nil || slot.Empty() {
		return
	}

	header := proto.DecodeFragmentHeader(raw)
	payload := raw[proto.FragmentHeaderSize:]

	if header.Code == proto.FragmentCodeStart {
		slot.RxBuffer = nil
		slot.ExpectedFragments = int(header.Index) + 1
		slot.ReceivedFragments = 0
	}

	slot.RxBuffer = append(slot.RxBuffer, payload...)
	slot.ReceivedFragments++
	slot.LastFragmentTime = now

	if slot.ReceivedFragments > proto.MaxFragments {
		slot.RxBuffer = nil
		slot.ExpectedFragments = 0
		slot.ReceivedFragments = 0
		return
	}

	if header.Index != 0 {
		return
	}

	if slot.ReceivedFragments == slot.ExpectedFragments {
		e.deliverReassembled(slot, now)
	}
	slot.RxBuffer = nil
	slot.ExpectedFragments = 0
	slot.ReceivedFragments = 0
}

// deliverReassembled attempts decryption of a completed message; on
// REJECT it stores the ciphertext as-is, since the stream cipher carries
// no authentication tag to disambiguate plaintext from a replayed or
// corrupt frame (spec.md §4.E step 4, §9).
func (e *Engine) deliverReassembled(slot *proto.PeerSlot, now int64) {
	msg := make([]byte, len(slot.RxBuffer))
	copy(msg, slot.RxBuffer)

	if plain, err := slot.Cipher.Decrypt(msg); err == nil {
		slot.Enqueue(plain)
		slot.LastActivity = now
	} else {
		slot.Enqueue(msg)
	}
}

// tickReassemblyTimeouts discards any slot's partial reassembly that has
// not been extended within ReceiveTimeout.
func (e *Engine) tickReassemblyTimeouts(now int64) {
	for i := 0; i < proto.NumSlots; i++ {
		slot := e.table.Slot(i)
		if len(slot.RxBuffer) == 0 {
			continue
		}
		if now-slot.LastFragmentTime > proto.ReceiveTimeout {
			slot.RxBuffer = nil
			slot.ExpectedFragments = 0
			slot.ReceivedFragments = 0
		}
	}
}
