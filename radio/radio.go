// Package radio models the micro:bit nRF51 peer-to-peer radio: a
// 32-byte packet link with a small DMA ring buffer and the
// MakeCode-compatible typed-message layer on top.
//
// The hardware is replaced by a Medium, the shared air: every radio
// attached to the same Medium with a matching group and channel
// receives each other's transmissions. Delivery runs on the sender's
// goroutine, standing in for the receive interrupt; the ring-buffer
// counters are therefore guarded the way an interrupt mask would, by a
// per-radio mutex held only for single-word updates.
package radio

import (
	"sync"
	"time"
)

// PacketSize is the fixed radio packet size in bytes.
const PacketSize = 32

// MaxPackets is the number of ring-buffer slots; must be a power of two.
const MaxPackets = 4

// Radio configuration constants (micro:bit DAL compatible).
const (
	BaseAddress    = 0x75626974 // 'uBit'
	DefaultGroup   = 0
	DefaultChannel = 7
	DefaultPower   = 6 // 0 dBm
	WhiteningIV    = 0x18
)

// powerLevels maps the DAL power scheme (0-7) to dBm.
var powerLevels = [8]int{-30, -20, -16, -12, -8, -4, 0, 4}

// State is the radio state machine.
type State uint8

const (
	Uninitialized State = iota
	Receiving
	Transmitting
	Disabled
)

// Radio is one device's radio. All methods are called from the device's
// single VM thread; deliver is called from sender goroutines (the ISR
// context).
type Radio struct {
	medium   *Medium
	deviceID uint32
	started  time.Time

	mu             sync.Mutex // the interrupt mask
	state          State
	group          int
	channel        int
	power          int
	ring           [MaxPackets][PacketSize]byte
	packetIndex    int // next slot the "DMA" writes into
	receivedCount  int // occupied slots, saturating at MaxPackets
	signalStrength int // negated RSSI of the last good packet
}

// New creates a radio attached to the given medium. The radio stays
// Uninitialized until first use.
func New(medium *Medium, deviceID uint32) *Radio {
	return &Radio{
		medium:         medium,
		deviceID:       deviceID,
		signalStrength: -999,
	}
}

// initialize lazily configures and starts the receiver, applying the
// DAL-compatible defaults.
func (r *Radio) initialize() {
	if r.state != Uninitialized {
		return
	}
	r.group = DefaultGroup
	r.channel = DefaultChannel
	r.power = DefaultPower
	r.packetIndex = 0
	r.receivedCount = 0
	r.started = time.Now()
	r.state = Receiving
	r.medium.attach(r)
}

// Disable turns the radio off. The next use re-initializes it.
func (r *Radio) Disable() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Uninitialized {
		return
	}
	r.state = Uninitialized
	r.medium.detach(r)
}

// SetGroup sets the 8-bit group prefix. Out-of-range values are ignored.
func (r *Radio) SetGroup(group int) {
	if group < 0 || group > 255 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initialize()
	r.group = group
}

// SetPower sets the transmit power level (0-7, DAL scheme).
func (r *Radio) SetPower(level int) {
	if level < 0 || level > 7 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initialize()
	r.power = level
}

// SetChannel sets the channel (0-83, 2400-2483 MHz). Changing channel
// requires passing through Disabled before receiving again.
func (r *Radio) SetChannel(channel int) {
	if channel < 0 || channel > 83 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initialize()
	r.state = Disabled
	r.channel = channel
	r.state = Receiving
}

// PowerDBm returns the configured transmit power in dBm.
func (r *Radio) PowerDBm() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return powerLevels[r.power]
}

// SignalStrength returns the RSSI of the most recently received packet.
// Values are negative, with higher values for stronger signals.
func (r *Radio) SignalStrength() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.signalStrength
}

// SendPacket transmits a 32-byte packet. The send is synchronous: the
// receiver is stopped, the packet transmitted, and receiving resumed.
func (r *Radio) SendPacket(packet [PacketSize]byte) {
	r.mu.Lock()
	r.initialize()
	r.state = Disabled
	r.state = Transmitting
	group, channel, power := r.group, r.channel, r.power
	r.mu.Unlock()

	r.medium.transmit(r, group, channel, power, packet)

	r.mu.Lock()
	r.state = Disabled
	r.state = Receiving
	r.mu.Unlock()
}

// ReceivePacket dequeues the oldest pending packet, reporting whether
// one was available.
func (r *Radio) ReceivePacket() ([PacketSize]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initialize()
	var packet [PacketSize]byte
	if r.receivedCount <= 0 {
		return packet, false
	}
	readIndex := (r.packetIndex - r.receivedCount) & (MaxPackets - 1)
	packet = r.ring[readIndex]
	r.receivedCount--
	return packet, true
}

// deliver is the receive-interrupt analog, called by the medium on the
// sender's goroutine. Overflow policy: the ring saturates at MaxPackets
// and further arrivals are dropped until the consumer drains.
func (r *Radio) deliver(group, channel int, packet [PacketSize]byte, rssi int, crcOK bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Receiving || group != r.group || channel != r.channel {
		return
	}
	if !crcOK {
		r.signalStrength = 0
		return
	}
	r.signalStrength = -rssi
	if r.receivedCount >= MaxPackets {
		return // ring full; drop the newest arrival
	}
	r.ring[r.packetIndex] = packet
	r.receivedCount++
	r.packetIndex = (r.packetIndex + 1) % MaxPackets
}

// millis returns milliseconds since the radio started, for outbound
// packet timestamps.
func (r *Radio) millis() uint32 {
	if r.started.IsZero() {
		return 0
	}
	return uint32(time.Since(r.started) / time.Millisecond)
}

// ---------------------------------------------------------------------------
// Medium
// ---------------------------------------------------------------------------

// Medium is the shared air: transmissions reach every other attached
// radio; group and channel filtering happens in each receiver, as on
// the real hardware. The zero RSSI model attenuates by transmit power.
type Medium struct {
	mu     sync.Mutex
	radios map[*Radio]struct{}

	// CorruptNext makes the next delivered packet fail its CRC check,
	// for exercising the bad-CRC path in tests.
	corruptNext bool
}

// NewMedium creates an empty medium.
func NewMedium() *Medium {
	return &Medium{radios: make(map[*Radio]struct{})}
}

// CorruptNext marks the next transmission as failing CRC at every
// receiver.
func (m *Medium) CorruptNext() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.corruptNext = true
}

func (m *Medium) attach(r *Radio) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.radios[r] = struct{}{}
}

func (m *Medium) detach(r *Radio) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.radios, r)
}

func (m *Medium) transmit(from *Radio, group, channel, power int, packet [PacketSize]byte) {
	m.mu.Lock()
	crcOK := !m.corruptNext
	m.corruptNext = false
	targets := make([]*Radio, 0, len(m.radios))
	for r := range m.radios {
		if r != from {
			targets = append(targets, r)
		}
	}
	m.mu.Unlock()

	rssi := 45 - powerLevels[power] // crude path loss model
	for _, r := range targets {
		r.deliver(group, channel, packet, rssi, crcOK)
	}
}
