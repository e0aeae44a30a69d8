package radio

import (
	"encoding/binary"
	"math"

	"blox/vm"
)

// MakeCode packet types. A packet is a MakeCode frame iff its length is
// at least 12, byte 1 is 1 (protocol) and byte 3 is 1 (version); byte 4
// selects the payload format.
const (
	PacketInteger    = 0
	PacketPair       = 1
	PacketString     = 2
	PacketDouble     = 4
	PacketDoublePair = 5
)

// Payload offsets within a MakeCode frame.
const (
	offType      = 4
	offTimestamp = 5
	offDeviceID  = 9
	offPayload   = 13
)

// maxReceivedString is the inbound string cap; longer payloads are
// truncated.
const maxReceivedString = 19

// Messenger is the MakeCode-compatible typed-message layer over a
// Radio. Received strings are stored in statically allocated string
// objects to keep this high-frequency path off the bump allocator.
type Messenger struct {
	radio *Radio
	mem   *vm.Memory

	receivedType    int // -1 until a message arrives
	receivedInteger int32

	receivedString    vm.Value // static string: last received string payload
	messageTypeString vm.Value // static string: type name of the last message
}

// NewMessenger creates the message layer, reserving its static string
// objects in mem.
func NewMessenger(r *Radio, mem *vm.Memory) *Messenger {
	ms := &Messenger{
		radio:             r,
		mem:               mem,
		receivedType:      -1,
		receivedString:    mem.AllocStatic(vm.StringType, PacketSize/4),
		messageTypeString: mem.AllocStatic(vm.StringType, 5),
	}
	mem.SetStaticString(ms.receivedString, "")
	mem.SetStaticString(ms.messageTypeString, "none")
	return ms
}

// initPacket writes the MakeCode frame header: length, protocol, group
// byte (always 0), version, type, a millisecond timestamp and the
// device id, both little-endian.
func (ms *Messenger) initPacket(packet *[PacketSize]byte, packetType, packetLength int) {
	packet[0] = byte(packetLength)
	packet[1] = 1 // protocol
	packet[2] = 0 // group (always 0)
	packet[3] = 1 // version
	packet[offType] = byte(packetType)
	binary.LittleEndian.PutUint32(packet[offTimestamp:], ms.radio.millis())
	binary.LittleEndian.PutUint32(packet[offDeviceID:], ms.radio.deviceID)
}

// SendInteger broadcasts an integer message.
func (ms *Messenger) SendInteger(n int32) {
	var packet [PacketSize]byte
	ms.initPacket(&packet, PacketInteger, 16)
	binary.LittleEndian.PutUint32(packet[offPayload:], uint32(n))
	ms.radio.SendPacket(packet)
}

// SendString broadcasts a string message. Strings longer than 18 bytes
// are truncated.
func (ms *Messenger) SendString(s string) {
	if len(s) > 18 {
		s = s[:18]
	}
	var packet [PacketSize]byte
	ms.initPacket(&packet, PacketString, 13+len(s))
	packet[offPayload] = byte(len(s))
	copy(packet[offPayload+1:], s)
	ms.radio.SendPacket(packet)
}

// SendPair broadcasts a string-integer pair. The string part is
// truncated to 14 bytes.
func (ms *Messenger) SendPair(s string, n int32) {
	if len(s) > 14 {
		s = s[:14]
	}
	var packet [PacketSize]byte
	ms.initPacket(&packet, PacketPair, 17+len(s))
	binary.LittleEndian.PutUint32(packet[offPayload:], uint32(n))
	packet[17] = byte(len(s))
	copy(packet[18:], s)
	ms.radio.SendPacket(packet)
}

// ReceiveMessage dequeues the next packet, if any. When the packet is a
// MakeCode frame its fields are extracted and true is returned;
// otherwise false.
func (ms *Messenger) ReceiveMessage() bool {
	packet, ok := ms.radio.ReceivePacket()
	if !ok {
		return false
	}
	length := int(packet[0])
	if length < 12 || packet[1] != 1 || packet[3] != 1 {
		return false // not a MakeCode frame
	}

	ms.receivedInteger = 0
	str := ""
	ms.receivedType = int(packet[offType])
	switch ms.receivedType {
	case PacketInteger:
		ms.receivedInteger = int32(binary.LittleEndian.Uint32(packet[offPayload:]))
	case PacketPair:
		ms.receivedInteger = int32(binary.LittleEndian.Uint32(packet[offPayload:]))
		str = packetString(&packet, 17)
	case PacketString:
		str = packetString(&packet, offPayload)
	case PacketDouble:
		d := math.Float64frombits(binary.LittleEndian.Uint64(packet[offPayload:]))
		ms.receivedInteger = int32(math.RoundToEven(d))
	case PacketDoublePair:
		d := math.Float64frombits(binary.LittleEndian.Uint64(packet[offPayload:]))
		ms.receivedInteger = int32(math.RoundToEven(d))
		str = packetString(&packet, 21)
	}
	ms.mem.SetStaticString(ms.receivedString, str)
	return true
}

// packetString extracts a length-prefixed string at the given offset,
// clamped to the packet bounds and the inbound cap.
func packetString(packet *[PacketSize]byte, lenOffset int) string {
	n := int(packet[lenOffset])
	if n > maxReceivedString {
		n = maxReceivedString
	}
	start := lenOffset + 1
	if start+n > PacketSize {
		n = PacketSize - start
	}
	return string(packet[start : start+n])
}

// ReceivedInteger returns the integer from the most recent message.
func (ms *Messenger) ReceivedInteger() int32 {
	return ms.receivedInteger
}

// ReceivedString returns the static string object holding the string
// from the most recent message.
func (ms *Messenger) ReceivedString() vm.Value {
	return ms.receivedString
}

// MessageType returns the MakeCode type name of the most recent
// message: "none", "number", "pair", "string" or "other".
func (ms *Messenger) MessageType() string {
	switch ms.receivedType {
	case -1:
		return "none"
	case PacketInteger, PacketDouble:
		return "number"
	case PacketPair, PacketDoublePair:
		return "pair"
	case PacketString:
		return "string"
	}
	return "other"
}

// MessageTypeString returns the type name inside the static string
// object, for the primitive layer.
func (ms *Messenger) MessageTypeString() vm.Value {
	ms.mem.SetStaticString(ms.messageTypeString, ms.MessageType())
	return ms.messageTypeString
}
