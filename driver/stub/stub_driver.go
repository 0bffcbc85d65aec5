// Package stub provides a host-side RadioDriver test double: an in-memory
// loopback that records frames instead of touching real hardware.
package stub

import (
	"sync"

	"github.com/ystepanoff/nrfpair/transport"
)

// Driver implements transport.RadioDriver entirely in memory. Two Drivers
// wired together with Connect() exchange frames the way two nodes would
// over the air, letting tests drive the full pairing and transport state
// machines without hardware.
type Driver struct {
	mu sync.Mutex

	channel     uint8
	listening   bool
	readPipes   map[int]string
	writeAddr   string
	payloadSize uint8

	peer *Driver

	// inbox holds (pipe, frame) pairs delivered by the peer, keyed by which
	// of our reading pipes the frame's destination address matched.
	inbox []inboxFrame
}

type inboxFrame struct {
	pipe  int
	frame []byte
}

// New builds a disconnected stub driver with the standard 32-byte payload.
func New() *Driver {
	return &Driver{
		readPipes:   make(map[int]string),
		payloadSize: 32,
	}
}

// Connect wires a and b together so that each one's Write is visible to the
// other's Available/Read, provided the recipient has a matching reading
// pipe open and is on the same channel.
func Connect(a, b *Driver) {
	a.peer = b
	b.peer = a
}

func (d *Driver) Begin() error { return nil }

func (d *Driver) SetChannel(ch uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.channel = ch
	return nil
}

func (d *Driver) SetPALevel(transport.PALevel) error { return nil }
func (d *Driver) SetDataRate(transport.DataRate) error { return nil }

func (d *Driver) OpenReadingPipe(pipe int, address string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.readPipes[pipe] = address
	return nil
}

func (d *Driver) OpenWritingPipe(address string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writeAddr = address
	return nil
}

func (d *Driver) StartListening() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listening = true
}

func (d *Driver) StopListening() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listening = false
}

// Write delivers data to the connected peer if one is attached, matching
// the peer's channel and addressed reading pipe, and reports the
// hardware-auto-ACK success as whether such a pipe was found.
func (d *Driver) Write(data []byte) bool {
	d.mu.Lock()
	peer := d.peer
	addr := d.writeAddr
	channel := d.channel
	frame := make([]byte, len(data))
	copy(frame, data)
	d.mu.Unlock()

	if peer == nil {
		return false
	}
	return peer.deliver(channel, addr, frame)
}

func (d *Driver) deliver(fromChannel uint8, addr string, frame []byte) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.listening || d.channel != fromChannel {
		return false
	}
	for pipe, paddr := range d.readPipes {
		if paddr == addr {
			d.inbox = append(d.inbox, inboxFrame{pipe: pipe, frame: frame})
			return true
		}
	}
	return false
}

func (d *Driver) Available() (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.inbox) == 0 {
		return 0, false
	}
	return d.inbox[0].pipe, true
}

func (d *Driver) Read(buf []byte) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.inbox) == 0 {
		return 0
	}
	frame := d.inbox[0].frame
	d.inbox = d.inbox[1:]
	return copy(buf, frame)
}

func (d *Driver) PayloadSize() uint8 { return d.payloadSize }
