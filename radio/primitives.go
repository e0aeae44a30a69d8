package radio

import "blox/vm"

// RegisterPrimitives adds the "radio" primitive set backed by the given
// messenger.
func RegisterPrimitives(v *vm.VM, ms *Messenger) {
	r := ms.radio

	v.AddPrimitiveSet("radio", []vm.PrimEntry{
		{Name: "disableRadio", Fn: func(v *vm.VM, args []vm.Value) vm.Value {
			r.Disable()
			return vm.False
		}},
		{Name: "messageReceived", Fn: func(v *vm.VM, args []vm.Value) vm.Value {
			return vm.FromBool(ms.ReceiveMessage())
		}},
		{Name: "packetReceive", Fn: func(v *vm.VM, args []vm.Value) vm.Value {
			// Copy the next raw packet into the supplied list of at
			// least 32 items and return true, or false when none is
			// pending. Packet byte i lands in list position i+1.
			if len(args) < 1 || !v.Mem.IsType(args[0], vm.ListType) || v.Mem.ObjWords(args[0]) < PacketSize+1 {
				return vm.False
			}
			packet, ok := r.ReceivePacket()
			if !ok {
				return vm.False
			}
			packetLen := int(packet[0])
			for i := 0; i < PacketSize; i++ {
				b := int32(0)
				if i <= packetLen {
					b = int32(packet[i])
				}
				v.Mem.SetField(args[0], i+1, vm.FromInt(b))
			}
			v.Mem.SetField(args[0], 0, vm.FromInt(PacketSize))
			return vm.True
		}},
		{Name: "packetSend", Fn: func(v *vm.VM, args []vm.Value) vm.Value {
			// Send a list of at least 32 byte values as a raw packet.
			if len(args) < 1 || !v.Mem.IsType(args[0], vm.ListType) || v.Mem.ObjWords(args[0]) < PacketSize+1 {
				return vm.False
			}
			var packet [PacketSize]byte
			for i := 0; i < PacketSize; i++ {
				item := v.Mem.Field(args[0], i+1)
				if item.IsInt() {
					packet[i] = byte(item.Int())
				}
			}
			r.SendPacket(packet)
			return vm.False
		}},
		{Name: "receivedInteger", Fn: func(v *vm.VM, args []vm.Value) vm.Value {
			return vm.FromInt(ms.ReceivedInteger())
		}},
		{Name: "receivedMessageType", Fn: func(v *vm.VM, args []vm.Value) vm.Value {
			return ms.MessageTypeString()
		}},
		{Name: "receivedString", Fn: func(v *vm.VM, args []vm.Value) vm.Value {
			return ms.ReceivedString()
		}},
		{Name: "sendInteger", Fn: func(v *vm.VM, args []vm.Value) vm.Value {
			if len(args) > 0 && args[0].IsInt() {
				ms.SendInteger(args[0].Int())
			}
			return vm.False
		}},
		{Name: "sendPair", Fn: func(v *vm.VM, args []vm.Value) vm.Value {
			if len(args) > 1 && v.Mem.IsType(args[0], vm.StringType) && args[1].IsInt() {
				ms.SendPair(v.Mem.ObjString(args[0]), args[1].Int())
			}
			return vm.False
		}},
		{Name: "sendString", Fn: func(v *vm.VM, args []vm.Value) vm.Value {
			if len(args) > 0 && v.Mem.IsType(args[0], vm.StringType) {
				ms.SendString(v.Mem.ObjString(args[0]))
			}
			return vm.False
		}},
		{Name: "setChannel", Fn: func(v *vm.VM, args []vm.Value) vm.Value {
			if len(args) > 0 && args[0].IsInt() {
				r.SetChannel(int(args[0].Int()))
			}
			return vm.False
		}},
		{Name: "setGroup", Fn: func(v *vm.VM, args []vm.Value) vm.Value {
			if len(args) > 0 && args[0].IsInt() {
				r.SetGroup(int(args[0].Int()))
			}
			return vm.False
		}},
		{Name: "setPower", Fn: func(v *vm.VM, args []vm.Value) vm.Value {
			if len(args) > 0 && args[0].IsInt() {
				r.SetPower(int(args[0].Int()))
			}
			return vm.False
		}},
		{Name: "signalStrength", Fn: func(v *vm.VM, args []vm.Value) vm.Value {
			return vm.FromInt(int32(r.SignalStrength()))
		}},
	})
}
