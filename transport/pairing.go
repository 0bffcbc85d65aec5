package transport

import (
	proto "github.com/ystepanoff/nrfpair/protocol"
)

// StartPairing begins the pairing state machine (spec.md §4.D "Entry").
// It fails with ErrBusy unless the engine is Idle.
func (e *Engine) StartPairing(now int64) error {
	if e.state != proto.StateIdle {
		return proto.ErrBusy
	}

	slot, free := e.table.FirstFree()
	if !free {
		slot = 255
	}
	e.pairing = proto.NewPairingScratch(now, slot)
	e.state = proto.StatePairingListen

	if err := e.driver.SetChannel(proto.ConfigChannel); err != nil {
		return err
	}
	if err := e.driver.OpenReadingPipe(configPipe, proto.CFGTX); err != nil {
		return err
	}
	e.driver.StartListening()
	return nil
}

// abortPairing returns the engine to Idle and destroys the transient
// pairing state (spec.md §4.D "Fail-safe invariants").
func (e *Engine) abortPairing() {
	e.pairing = nil
	e.state = proto.StateIdle
	_ = e.InitRadio()
}

// completePairing returns the engine to Idle, destroys the transient
// pairing state, and reinitialises the radio for normal data traffic.
func (e *Engine) completePairing() {
	e.pairing = nil
	e.state = proto.StateIdle
	_ = e.InitRadio()
}

func (e *Engine) checkGlobalPairingTimeout(now int64) bool {
	if now-e.pairing.PairingStartTime > proto.PairingTimeout {
		e.logf("pairing timed out")
		e.abortPairing()
		return true
	}
	return false
}

// tickPairingListen runs the listener phase (spec.md §4.D L1-L4), escalating
// to the transmitter phase after PairingListenTime with no peer public key.
func (e *Engine) tickPairingListen(now int64) {
	if e.checkGlobalPairingTimeout(now) {
		return
	}
	p := e.pairing

	// L1: receive peer pub.
	if !p.GotPubkey {
		if _, ok := e.driver.Available(); ok {
			buf := make([]byte, e.driver.PayloadSize())
			n := e.driver.Read(buf)
			if n >= proto.SharedKeySize {
				copy(p.TempPeerPublicKey[:], buf[:proto.SharedKeySize])
				shared, err := proto.DeriveShared(p.TempPeerPublicKey, e.ownPriv)
				if err != nil {
					e.abortPairing()
					return
				}
				p.TempSharedKey = shared
				p.TempCipher.SetKey(shared)
				p.GotPubkey = true
			}
		}
	}

	// L2: send own pub.
	if p.GotPubkey && !p.SentPubkey && now-p.LastPairingAttempt > proto.PairingInterval {
		e.driver.StopListening()
		_ = e.driver.OpenWritingPipe(proto.CFGRX)
		if e.driver.Write(proto.Pad(e.ownPub[:], proto.PHYPayloadSize)) {
			p.SentPubkey = true
		}
		_ = e.driver.OpenReadingPipe(configPipe, proto.CFGTX)
		e.driver.StartListening()
		p.LastPairingAttempt = now
	}

	// L3: receive encrypted address.
	if p.SentPubkey && !p.GotAck {
		if _, ok := e.driver.Available(); ok {
			buf := make([]byte, e.driver.PayloadSize())
			n := e.driver.Read(buf)
			raw := proto.Unpad(buf[:n])
			plain, err := p.TempCipher.Decrypt(raw)
			if err == nil && proto.IsValidAddress(string(plain)) {
				recvAddr := string(plain)
				recvPipe, recvUID := proto.SplitAddress(recvAddr)

				if existingSlot, found := e.table.FindByUID(recvUID); found {
					_ = e.table.Clear(existingSlot)
					p.IsUnpairRequest = true
					p.GotAck = true
				} else if recvPipe == 0 {
					e.abortPairing()
					return
				} else if p.PairingSlot < proto.NumSlots {
					if assignErr := e.table.Assign(p.PairingSlot, recvAddr, p.TempPeerPublicKey); assignErr != nil {
						e.abortPairing()
						return
					}
					p.GotAck = true
				} else {
					e.abortPairing()
					return
				}
			}
			// Invalid plaintext: do not advance, keep listening.
		}
	}

	// L4: send own encrypted address back.
	if p.GotAck && !p.SentAck {
		e.driver.StopListening()
		myPipe := p.PairingSlot + 1
		if p.IsUnpairRequest {
			myPipe = 0
		}
		myAddr := proto.MakeAddress(myPipe, e.uid)
		enc, err := p.TempCipher.Encrypt([]byte(myAddr))
		if err != nil {
			e.abortPairing()
			return
		}
		p.TempPayload = enc
		_ = e.driver.OpenWritingPipe(proto.CFGRX)
		if e.driver.Write(proto.Pad(p.TempPayload, proto.PHYPayloadSize)) {
			p.SentAck = true
			e.completePairing()
			return
		}
		_ = e.driver.OpenReadingPipe(configPipe, proto.CFGTX)
		e.driver.StartListening()
	}

	// Escalation: no peer public key after PairingListenTime.
	if !p.GotPubkey && now-p.PairingStartTime > proto.PairingListenTime {
		e.logf("escalating from listen to transmit role")
		e.state = proto.StatePairingTransmit
		p.PairingStartTime = now
		e.driver.StopListening()
		_ = e.driver.OpenReadingPipe(configPipe, proto.CFGRX)
		e.driver.StartListening()
	}
}

// tickPairingTransmit runs the transmitter phase (spec.md §4.D T1-T4).
func (e *Engine) tickPairingTransmit(now int64) {
	if e.checkGlobalPairingTimeout(now) {
		return
	}
	p := e.pairing

	// T1: send own pub.
	if !p.SentPubkey && now-p.LastPairingAttempt > proto.PairingInterval {
		e.driver.StopListening()
		_ = e.driver.OpenWritingPipe(proto.CFGTX)
		if e.driver.Write(proto.Pad(e.ownPub[:], proto.PHYPayloadSize)) {
			p.SentPubkey = true
		}
		_ = e.driver.OpenReadingPipe(configPipe, proto.CFGRX)
		e.driver.StartListening()
		p.LastPairingAttempt = now
	}

	// T2: receive peer pub, compose reply.
	if p.SentPubkey && !p.GotPubkey {
		if _, ok := e.driver.Available(); ok {
			buf := make([]byte, e.driver.PayloadSize())
			n := e.driver.Read(buf)
			if n >= proto.SharedKeySize {
				copy(p.TempPeerPublicKey[:], buf[:proto.SharedKeySize])
				shared, err := proto.DeriveShared(p.TempPeerPublicKey, e.ownPriv)
				if err != nil {
					e.abortPairing()
					return
				}
				p.TempSharedKey = shared
				p.TempCipher.SetKey(shared)
				p.GotPubkey = true

				myPipe := p.PairingSlot + 1
				if p.PairingSlot == 255 {
					myPipe = 0
				}
				myAddr := proto.MakeAddress(myPipe, e.uid)
				enc, encErr := p.TempCipher.Encrypt([]byte(myAddr))
				if encErr != nil {
					e.abortPairing()
					return
				}
				p.TempPayload = enc
			}
		}
	}

	// T3: send encrypted address.
	if p.GotPubkey && !p.SentAck && now-p.LastPairingAttempt > proto.PairingInterval {
		e.driver.StopListening()
		_ = e.driver.OpenWritingPipe(proto.CFGTX)
		if e.driver.Write(proto.Pad(p.TempPayload, proto.PHYPayloadSize)) {
			p.SentAck = true
		}
		_ = e.driver.OpenReadingPipe(configPipe, proto.CFGRX)
		e.driver.StartListening()
		p.LastPairingAttempt = now
	}

	// T4: receive encrypted ack, commit.
	if p.SentAck && !p.GotAck {
		if _, ok := e.driver.Available(); ok {
			buf := make([]byte, e.driver.PayloadSize())
			n := e.driver.Read(buf)
			raw := proto.Unpad(buf[:n])
			plain, err := p.TempCipher.Decrypt(raw)
			if err != nil || !proto.IsValidAddress(string(plain)) {
				return
			}
			p.GotAck = true
			recvAddr := string(plain)
			recvPipe, recvUID := proto.SplitAddress(recvAddr)

			if recvPipe == 0 {
				if existingSlot, found := e.table.FindByUID(recvUID); found {
					_ = e.table.Clear(existingSlot)
					e.completePairing()
					return
				}
				e.abortPairing()
				return
			}
			if p.PairingSlot == 255 {
				// We requested an unpair; the peer did not honour it.
				e.abortPairing()
				return
			}
			if assignErr := e.table.Assign(p.PairingSlot, recvAddr, p.TempPeerPublicKey); assignErr != nil {
				e.abortPairing()
				return
			}
			e.completePairing()
		}
	}
}
