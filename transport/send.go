package transport

import (
	proto "github.com/ystepanoff/nrfpair/protocol"
)

// Send enqueues an outbound message to a previously paired peer identified
// by its advertised address. It returns a pointer to a caller-visible
// status byte: 0 while in progress, 1 on full success, -1 on failure. Only
// one outbound message is ever in flight; Send refuses new calls until the
// engine returns to Idle (spec.md §4.E).
//
// Per SPEC_FULL.md's resolved open question, encrypting to an address with
// no matching peer fails with ErrNotPaired rather than silently falling
// back to plaintext.
func (e *Engine) Send(addr string, msg []byte, encrypt bool) (*int, error) {
	if e.state != proto.StateIdle {
		return nil, proto.ErrBusy
	}
	if len(msg) > proto.MaxMessageSize {
		return nil, proto.ErrInvalidArg
	}

	slotIdx, found := e.table.FindByAddress(addr)
	if !found {
		return nil, proto.ErrNotPaired
	}
	slot := e.table.Slot(slotIdx)

	payload := msg
	if encrypt {
		if !slot.HasKey() {
			return nil, proto.ErrNotPaired
		}
		enc, err := slot.Cipher.Encrypt(msg)
		if err != nil {
			return nil, proto.ErrCryptoError
		}
		payload = enc
		slot.LastActivity = e.clock.NowMillis()
	}

	total := proto.FragmentCount(len(payload))
	if total > proto.MaxFragments {
		return nil, proto.ErrMsgTooLarge
	}

	status := new(int)
	e.out = outboundState{
		data:   payload,
		index:  0,
		addr:   slot.Address,
		status: status,
		pipe:   slotIdx + 1,
	}
	e.state = proto.StateTransmitting

	e.driver.StopListening()
	if err := e.driver.OpenWritingPipe(slot.Address); err != nil {
		*status = -1
		e.state = proto.StateIdle
		e.driver.StartListening()
		return status, nil
	}
	return status, nil
}

// tickOutbound transmits exactly one fragment of the in-flight message,
// matching the spec's one-PHY-packet-per-tick discipline.
func (e *Engine) tickOutbound() {
	total := proto.FragmentCount(len(e.out.data))
	o := e.out.index
	remaining := len(e.out.data) - o
	payloadLen := remaining
	if payloadLen > proto.FragmentPayloadSize {
		payloadLen = proto.FragmentPayloadSize
	}

	fragIdxFromStart := o / proto.FragmentPayloadSize
	header := proto.FragmentHeader{
		Code:  proto.FragmentCodeContinue,
		Index: uint16(total - 1 - fragIdxFromStart),
	}
	if o == 0 {
		header.Code = proto.FragmentCodeStart
	}

	frame := make([]byte, proto.FragmentHeaderSize+payloadLen)
	proto.EncodeFragmentHeader(frame, header)
	copy(frame[proto.FragmentHeaderSize:], e.out.data[o:o+payloadLen])
	frame = proto.Pad(frame, proto.PHYPayloadSize)

	if ok := e.driver.Write(frame); !ok {
		*e.out.status = -1
		e.state = proto.StateIdle
		e.driver.StartListening()
		e.logf("tx to %s failed (no ack), aborting", e.out.addr)
		return
	}

	e.out.index += payloadLen
	if e.out.index >= len(e.out.data) {
		*e.out.status = 1
		e.state = proto.StateIdle
		e.driver.StartListening()
	}
}
