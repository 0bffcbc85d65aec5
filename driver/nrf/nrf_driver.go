//go:build tinygo || baremetal

package nrf

import (
	"unsafe"

	proto "github.com/ystepanoff/nrfpair/protocol"
	"github.com/ystepanoff/nrfpair/transport"

	"device/nrf"
)

// Driver provides a transport.RadioDriver backed by the real NRF radio
// peripheral registers, adapted from the single-address register driver to
// the pipe-addressed model the transport engine expects: each opened
// reading pipe claims one of the peripheral's eight logical RX addresses.
type Driver struct {
	buffer      [proto.PHYPayloadSize]byte
	logicalByPipe map[int]int
	nextLogical int
	listening   bool
	lastMatch   int
	havePacket  bool
}

func New() transport.RadioDriver {
	return &Driver{logicalByPipe: make(map[int]int)}
}

func (d *Driver) Begin() error {
	StartHFCLK()
	return ConfigureRadio(0)
}

func (d *Driver) SetChannel(ch uint8) error {
	if ch > 125 {
		return proto.ErrRadioWrite
	}
	nrf.RADIO.FREQUENCY.Set(uint32(ch))
	return nil
}

func (d *Driver) SetPALevel(level transport.PALevel) error {
	var v uint32
	switch level {
	case transport.PAMin:
		v = nrf.RADIO_TXPOWER_TXPOWER_Neg20dBm
	case transport.PALow:
		v = nrf.RADIO_TXPOWER_TXPOWER_Neg12dBm
	case transport.PAHigh:
		v = nrf.RADIO_TXPOWER_TXPOWER_Neg4dBm
	case transport.PAMax:
		v = nrf.RADIO_TXPOWER_TXPOWER_0dBm
	default:
		return proto.ErrInvalidArg
	}
	nrf.RADIO.TXPOWER.Set(v)
	return nil
}

func (d *Driver) SetDataRate(rate transport.DataRate) error {
	var v uint32
	switch rate {
	case transport.DataRate1Mbps:
		v = nrf.RADIO_MODE_MODE_Nrf_1Mbit
	case transport.DataRate2Mbps:
		v = nrf.RADIO_MODE_MODE_Nrf_2Mbit
	case transport.DataRate250Kbps:
		v = nrf.RADIO_MODE_MODE_Nrf_250Kbit
	default:
		return proto.ErrInvalidArg
	}
	nrf.RADIO.MODE.Set(v)
	return nil
}

func (d *Driver) OpenReadingPipe(pipe int, address string) error {
	logical, ok := d.logicalByPipe[pipe]
	if !ok {
		logical = d.nextLogical
		d.nextLogical++
		d.logicalByPipe[pipe] = logical
	}
	base, prefix := addressToBaseAndPrefix(address)
	setRXAddress(logical, base, prefix)
	return nil
}

func (d *Driver) OpenWritingPipe(address string) error {
	base, prefix := addressToBaseAndPrefix(address)
	setTXAddress(base, prefix)
	return nil
}

func (d *Driver) StartListening() {
	d.listening = true
	d.armRX()
}

func (d *Driver) StopListening() {
	d.listening = false
	nrf.RADIO.TASKS_DISABLE.Set(1)
	for nrf.RADIO.STATE.Get() != nrf.RADIO_STATE_STATE_Disabled {
	}
}

func (d *Driver) armRX() {
	nrf.RADIO.PACKETPTR.Set(uint32(uintptr(unsafe.Pointer(&d.buffer[0]))))
	nrf.RADIO.EVENTS_READY.Set(0)
	nrf.RADIO.EVENTS_END.Set(0)
	nrf.RADIO.TASKS_RXEN.Set(1)
	for nrf.RADIO.EVENTS_READY.Get() == 0 {
	}
	nrf.RADIO.TASKS_START.Set(1)
}

// Available is a non-blocking poll: it checks whether the current RX
// operation has completed and, if so, records which logical address
// matched so Read can map it back to the caller's pipe numbering.
func (d *Driver) Available() (int, bool) {
	if !d.listening || d.havePacket {
		return d.pipeForLogical(d.lastMatch), d.havePacket
	}
	if nrf.RADIO.EVENTS_END.Get() == 0 {
		return 0, false
	}
	d.lastMatch = int(nrf.RADIO.RXMATCH.Get())
	d.havePacket = true
	return d.pipeForLogical(d.lastMatch), true
}

func (d *Driver) pipeForLogical(logical int) int {
	for pipe, l := range d.logicalByPipe {
		if l == logical {
			return pipe
		}
	}
	return -1
}

func (d *Driver) Read(buf []byte) int {
	if !d.havePacket {
		return 0
	}
	n := copy(buf, d.buffer[:])
	d.havePacket = false
	if d.listening {
		d.armRX()
	}
	return n
}

func (d *Driver) Write(data []byte) bool {
	copy(d.buffer[:], data)
	nrf.RADIO.PACKETPTR.Set(uint32(uintptr(unsafe.Pointer(&d.buffer[0]))))
	nrf.RADIO.EVENTS_READY.Set(0)
	nrf.RADIO.EVENTS_END.Set(0)
	nrf.RADIO.TASKS_TXEN.Set(1)
	for nrf.RADIO.EVENTS_READY.Get() == 0 {
	}
	nrf.RADIO.TASKS_START.Set(1)
	for nrf.RADIO.EVENTS_END.Get() == 0 {
	}
	nrf.RADIO.TASKS_DISABLE.Set(1)
	for nrf.RADIO.STATE.Get() != nrf.RADIO_STATE_STATE_Disabled {
	}
	// Auto-ACK is not modelled at the register level here; the hardware
	// shock-burst ACK path in a production build would gate this on the
	// peer's acknowledgement rather than bare transmission completion.
	return true
}

func (d *Driver) PayloadSize() uint8 { return proto.PHYPayloadSize }
