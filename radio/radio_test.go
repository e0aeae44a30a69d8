package radio

import (
	"testing"

	"blox/vm"
)

func pair(t *testing.T) (*Medium, *Radio, *Radio) {
	t.Helper()
	medium := NewMedium()
	a := New(medium, 0x1111)
	b := New(medium, 0x2222)
	return medium, a, b
}

func TestSendReceivePacket(t *testing.T) {
	_, a, b := pair(t)

	var packet [PacketSize]byte
	packet[0] = 3
	packet[1] = 0xAA
	b.SetGroup(0) // force initialization so b is listening
	a.SendPacket(packet)

	got, ok := b.ReceivePacket()
	if !ok {
		t.Fatal("no packet received")
	}
	if got != packet {
		t.Errorf("received % x, want % x", got[:4], packet[:4])
	}
	if _, ok := b.ReceivePacket(); ok {
		t.Error("queue should be empty after one receive")
	}
	// sender does not hear its own transmission
	if _, ok := a.ReceivePacket(); ok {
		t.Error("sender received its own packet")
	}
}

func TestGroupAndChannelFiltering(t *testing.T) {
	_, a, b := pair(t)
	b.SetGroup(0)

	a.SetGroup(5)
	var packet [PacketSize]byte
	a.SendPacket(packet)
	if _, ok := b.ReceivePacket(); ok {
		t.Error("received across different groups")
	}

	b.SetGroup(5)
	a.SendPacket(packet)
	if _, ok := b.ReceivePacket(); !ok {
		t.Error("not received within the same group")
	}

	b.SetChannel(40)
	a.SendPacket(packet)
	if _, ok := b.ReceivePacket(); ok {
		t.Error("received across different channels")
	}
	a.SetChannel(40)
	a.SendPacket(packet)
	if _, ok := b.ReceivePacket(); !ok {
		t.Error("not received after channel change")
	}
}

func TestRingOverflowDropsNewest(t *testing.T) {
	_, a, b := pair(t)
	b.SetGroup(0)

	for i := byte(0); i < MaxPackets+2; i++ {
		var packet [PacketSize]byte
		packet[0] = 12
		packet[5] = i
		a.SendPacket(packet)
	}

	// the first MaxPackets packets survive, in FIFO order
	for i := byte(0); i < MaxPackets; i++ {
		got, ok := b.ReceivePacket()
		if !ok {
			t.Fatalf("packet %d missing", i)
		}
		if got[5] != i {
			t.Errorf("packet %d: marker = %d", i, got[5])
		}
	}
	if _, ok := b.ReceivePacket(); ok {
		t.Error("overflow packets should have been dropped")
	}

	// the ring accepts new packets once drained
	var packet [PacketSize]byte
	packet[5] = 99
	a.SendPacket(packet)
	got, ok := b.ReceivePacket()
	if !ok || got[5] != 99 {
		t.Error("ring did not recover after drain")
	}
}

func TestBadCRC(t *testing.T) {
	medium, a, b := pair(t)
	b.SetGroup(0)

	medium.CorruptNext()
	var packet [PacketSize]byte
	a.SendPacket(packet)
	if _, ok := b.ReceivePacket(); ok {
		t.Error("bad-CRC packet should not be queued")
	}
	if got := b.SignalStrength(); got != 0 {
		t.Errorf("bad CRC should zero signal strength, got %d", got)
	}
}

func TestDisable(t *testing.T) {
	_, a, b := pair(t)
	b.SetGroup(0)
	b.Disable()

	var packet [PacketSize]byte
	a.SendPacket(packet)
	if _, ok := b.ReceivePacket(); !ok {
		// ReceivePacket re-initializes the radio, but the packet sent
		// while disabled is gone
		t.Log("no packet, as expected")
	} else {
		t.Error("disabled radio received a packet")
	}
}

func TestMakeCodeString(t *testing.T) {
	// S5: device A sends "hi"; device B sees a string message.
	_, a, b := pair(t)
	memA := vm.NewMemory(200)
	memB := vm.NewMemory(200)
	msA := NewMessenger(a, memA)
	msB := NewMessenger(b, memB)
	b.SetGroup(0)

	if msB.ReceiveMessage() {
		t.Fatal("message before any send")
	}
	if got := msB.MessageType(); got != "none" {
		t.Errorf("initial message type = %q, want none", got)
	}

	msA.SendString("hi")
	if !msB.ReceiveMessage() {
		t.Fatal("messageReceived should be true")
	}
	if got := msB.MessageType(); got != "string" {
		t.Errorf("message type = %q, want string", got)
	}
	if got := memB.ObjString(msB.ReceivedString()); got != "hi" {
		t.Errorf("received string = %q, want hi", got)
	}
	if got := b.SignalStrength(); got >= 0 {
		t.Errorf("signal strength = %d, want negative", got)
	}
}

func TestMakeCodeInteger(t *testing.T) {
	_, a, b := pair(t)
	msA := NewMessenger(a, vm.NewMemory(100))
	msB := NewMessenger(b, vm.NewMemory(100))
	b.SetGroup(0)

	msA.SendInteger(-1234)
	if !msB.ReceiveMessage() {
		t.Fatal("no message")
	}
	if got := msB.ReceivedInteger(); got != -1234 {
		t.Errorf("received integer = %d, want -1234", got)
	}
	if got := msB.MessageType(); got != "number" {
		t.Errorf("message type = %q, want number", got)
	}
}

func TestMakeCodePair(t *testing.T) {
	_, a, b := pair(t)
	memB := vm.NewMemory(100)
	msA := NewMessenger(a, vm.NewMemory(100))
	msB := NewMessenger(b, memB)
	b.SetGroup(0)

	msA.SendPair("temp", 21)
	if !msB.ReceiveMessage() {
		t.Fatal("no message")
	}
	if got := msB.MessageType(); got != "pair" {
		t.Errorf("message type = %q, want pair", got)
	}
	if got := msB.ReceivedInteger(); got != 21 {
		t.Errorf("pair integer = %d, want 21", got)
	}
	if got := memB.ObjString(msB.ReceivedString()); got != "temp" {
		t.Errorf("pair string = %q, want temp", got)
	}
}

func TestMakeCodeStringTruncation(t *testing.T) {
	_, a, b := pair(t)
	memB := vm.NewMemory(100)
	msA := NewMessenger(a, vm.NewMemory(100))
	msB := NewMessenger(b, memB)
	b.SetGroup(0)

	msA.SendString("abcdefghijklmnopqrstuvwxyz")
	if !msB.ReceiveMessage() {
		t.Fatal("no message")
	}
	// outbound cap is 18 bytes
	if got := memB.ObjString(msB.ReceivedString()); got != "abcdefghijklmnopqr" {
		t.Errorf("truncated string = %q (len %d)", got, len(got))
	}
}

func TestNonMakeCodePacketIgnored(t *testing.T) {
	_, a, b := pair(t)
	msB := NewMessenger(b, vm.NewMemory(100))
	b.SetGroup(0)

	var packet [PacketSize]byte
	packet[0] = 20 // long enough, but wrong protocol byte
	a.SendPacket(packet)
	if msB.ReceiveMessage() {
		t.Error("non-MakeCode packet reported as a message")
	}
}

func TestRadioPrimitives(t *testing.T) {
	_, a, b := pair(t)
	deviceA := vm.NewVM(500)
	deviceB := vm.NewVM(500)
	RegisterPrimitives(deviceA, NewMessenger(a, deviceA.Mem))
	RegisterPrimitives(deviceB, NewMessenger(b, deviceB.Mem))
	taskA, taskB := &vm.Task{}, &vm.Task{}
	deviceA.BeginTask(taskA)
	deviceB.BeginTask(taskB)

	deviceB.CallPrimitive("radio", "setGroup", []vm.Value{vm.FromInt(0)})

	s := deviceA.Mem.NewString("hi")
	deviceA.CallPrimitive("radio", "sendString", []vm.Value{s})

	got := deviceB.CallPrimitive("radio", "messageReceived", nil)
	if got != vm.True {
		t.Fatal("messageReceived = false, want true")
	}
	mt := deviceB.CallPrimitive("radio", "receivedMessageType", nil)
	if deviceB.Mem.ObjString(mt) != "string" {
		t.Errorf("receivedMessageType = %q", deviceB.Mem.ObjString(mt))
	}
	rs := deviceB.CallPrimitive("radio", "receivedString", nil)
	if deviceB.Mem.ObjString(rs) != "hi" {
		t.Errorf("receivedString = %q", deviceB.Mem.ObjString(rs))
	}
	ss := deviceB.CallPrimitive("radio", "signalStrength", nil)
	if ss.Int() >= 0 {
		t.Errorf("signalStrength = %d, want negative", ss.Int())
	}
	if taskA.ErrorCode != vm.NoError || taskB.ErrorCode != vm.NoError {
		t.Errorf("faults: %v %v", taskA.ErrorCode, taskB.ErrorCode)
	}
}
