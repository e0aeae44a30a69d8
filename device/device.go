// Package device implements the device side of the blox system: the
// chunk table, the wire-protocol dispatch loop, and task lifecycle
// reporting. Chunk execution itself is delegated to a Runner (the
// bytecode interpreter is a separate concern); the device owns
// everything around it: scheduling, state transitions, and the
// messages the host sees.
package device

import (
	"io"

	"github.com/tliron/commonlog"

	"blox/radio"
	"blox/vm"
	"blox/wire"
)

var log = commonlog.GetLogger("blox.device")

// MaxChunks is the size of the chunk table; chunk ids are one byte.
const MaxChunks = 256

// StdoutChunkID marks outputValue messages that carry printed output
// rather than a block result.
const StdoutChunkID = 255

// TaskStatus tracks one chunk's task through its lifecycle.
type TaskStatus uint8

const (
	TaskUnused TaskStatus = iota
	TaskRunning
	TaskDone
	TaskErrored
)

// Chunk is one entry of the device's chunk table.
type Chunk struct {
	Present    bool
	Type       byte
	Code       []byte
	Attributes map[byte][]byte
	Status     TaskStatus
}

// Runner executes a chunk's bytecode under the given task. The device
// installs the task as current before the call so primitives report
// faults against it; the returned value is the chunk's result (Nil for
// command scripts).
type Runner interface {
	Run(v *vm.VM, chunkID byte, chunk *Chunk, task *vm.Task) vm.Value
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(v *vm.VM, chunkID byte, chunk *Chunk, task *vm.Task) vm.Value

// Run calls f.
func (f RunnerFunc) Run(v *vm.VM, chunkID byte, chunk *Chunk, task *vm.Task) vm.Value {
	return f(v, chunkID, chunk, task)
}

// Device is one blox device: a VM, its radio, its chunk table, and the
// serial link to the host. It is single-threaded: Feed drives
// everything, and chunks run to completion at dispatch boundaries.
type Device struct {
	VM       *vm.VM
	Radio    *radio.Radio
	Msgr     *radio.Messenger
	version  string
	out      io.Writer
	receiver *wire.Receiver
	runner   Runner
	chunks   [MaxChunks]Chunk

	// OnBroadcast, if set, observes broadcast strings from the host in
	// addition to the whenBroadcastReceived chunks being started.
	OnBroadcast func(string)

	// OnReset, if set, is called after a systemReset message.
	OnReset func()
}

// New creates a device writing its outbound frames to out. The medium
// carries this device's radio traffic.
func New(arenaWords int, version string, medium *radio.Medium, deviceID uint32, out io.Writer, runner Runner) *Device {
	v := vm.NewVM(arenaWords)
	r := radio.New(medium, deviceID)
	ms := radio.NewMessenger(r, v.Mem)
	radio.RegisterPrimitives(v, ms)

	d := &Device{
		VM:      v,
		Radio:   r,
		Msgr:    ms,
		version: version,
		out:     out,
		runner:  runner,
	}
	d.receiver = wire.NewReceiver(d.handle)
	return d
}

// Feed pushes raw serial bytes from the host into the device. Complete
// frames are handled in arrival order before Feed returns.
func (d *Device) Feed(data []byte) {
	d.receiver.Feed(data)
}

func (d *Device) send(m wire.Message) {
	if _, err := d.out.Write(wire.Encode(m)); err != nil {
		log.Errorf("send %v: %s", m.Op, err.Error())
	}
}

func (d *Device) handle(m wire.Message) {
	switch m.Op {
	case wire.ChunkCodeMsg:
		d.storeChunk(m.ChunkID, m.Body)
	case wire.DeleteChunkMsg:
		d.chunks[m.ChunkID] = Chunk{}
	case wire.StartChunkMsg:
		d.startChunk(m.ChunkID)
	case wire.StopChunkMsg:
		d.stopChunk(m.ChunkID)
	case wire.StartAllMsg:
		d.startAll()
	case wire.StopAllMsg:
		d.stopAll()
	case wire.GetVarMsg:
		// the chunk id slot carries the variable index
		d.sendVarValue(m.ChunkID)
	case wire.SetVarMsg:
		d.setVar(m.ChunkID, m.Body)
	case wire.GetVersionMsg:
		d.send(wire.Message{Op: wire.VersionMsg, Body: []byte(d.version)})
	case wire.GetAllCodeMsg:
		d.sendAllCode()
	case wire.DeleteAllCodeMsg:
		d.deleteAllCode()
	case wire.SystemResetMsg:
		d.deleteAllCode()
		if d.OnReset != nil {
			d.OnReset()
		}
	case wire.PingMsg:
		d.send(wire.Message{Op: wire.PingMsg})
	case wire.BroadcastMsg:
		d.broadcast(string(m.Body))
	case wire.ChunkAttributeMsg:
		d.setChunkAttribute(m.ChunkID, m.Body)
	default:
		log.Infof("ignoring %v", m.Op)
	}
}

func (d *Device) storeChunk(id byte, body []byte) {
	if len(body) < 1 {
		d.sendTaskError(id, vm.BadChunkIndexError)
		return
	}
	code := make([]byte, len(body)-1)
	copy(code, body[1:])
	d.chunks[id] = Chunk{Present: true, Type: body[0], Code: code}
}

func (d *Device) setChunkAttribute(id byte, body []byte) {
	c := &d.chunks[id]
	if !c.Present || len(body) < 1 {
		return
	}
	if c.Attributes == nil {
		c.Attributes = make(map[byte][]byte)
	}
	attr := make([]byte, len(body)-1)
	copy(attr, body[1:])
	c.Attributes[body[0]] = attr
}

// startChunk runs one chunk to completion, reporting its lifecycle to
// the host. Execution is cooperative and single-threaded: the chunk
// occupies the VM until it returns or faults.
func (d *Device) startChunk(id byte) {
	c := &d.chunks[id]
	if !c.Present {
		d.sendTaskError(id, vm.BadChunkIndexError)
		return
	}
	c.Status = TaskRunning
	d.send(wire.Message{Op: wire.TaskStartedMsg, ChunkID: id})

	task := &vm.Task{ChunkID: int(id)}
	d.VM.BeginTask(task)
	result := vm.Nil
	if d.runner != nil {
		result = d.runner.Run(d.VM, id, c, task)
	}
	d.VM.BeginTask(nil)

	if task.ErrorCode != vm.NoError {
		c.Status = TaskErrored
		d.sendTaskError(id, task.ErrorCode)
		return
	}
	c.Status = TaskDone
	if c.Type == wire.ChunkReporter {
		d.send(wire.Message{
			Op:      wire.TaskReturnedValueMsg,
			ChunkID: id,
			Body:    wire.EncodeTypedValue(d.toTypedValue(result)),
		})
		return
	}
	d.send(wire.Message{Op: wire.TaskDoneMsg, ChunkID: id})
}

func (d *Device) stopChunk(id byte) {
	c := &d.chunks[id]
	if c.Present && c.Status == TaskRunning {
		c.Status = TaskUnused
	}
}

func (d *Device) startAll() {
	for id := 0; id < MaxChunks; id++ {
		c := &d.chunks[id]
		if c.Present && c.Type == wire.ChunkWhenStarted {
			d.startChunk(byte(id))
		}
	}
}

func (d *Device) stopAll() {
	for id := range d.chunks {
		d.stopChunk(byte(id))
	}
}

func (d *Device) broadcast(s string) {
	if d.OnBroadcast != nil {
		d.OnBroadcast(s)
	}
	for id := 0; id < MaxChunks; id++ {
		c := &d.chunks[id]
		if c.Present && c.Type == wire.ChunkWhenBroadcast && d.broadcastMatches(c, s) {
			d.startChunk(byte(id))
		}
	}
}

// broadcastAttr is the chunk attribute holding a whenBroadcastReceived
// chunk's message name. A chunk without the attribute matches every
// broadcast.
const broadcastAttr = 1

func (d *Device) broadcastMatches(c *Chunk, s string) bool {
	name, ok := c.Attributes[broadcastAttr]
	if !ok {
		return true
	}
	return string(name) == s
}

// Broadcast sends a broadcast string to the host (programs use this to
// reach the IDE and other devices on the serial side).
func (d *Device) Broadcast(s string) {
	d.send(wire.Message{Op: wire.BroadcastMsg, Body: []byte(s)})
}

// Say reports a value for the given chunk (outputValue); use
// StdoutChunkID for printed output.
func (d *Device) Say(chunkID byte, value vm.Value) {
	d.send(wire.Message{
		Op:      wire.OutputValueMsg,
		ChunkID: chunkID,
		Body:    wire.EncodeTypedValue(d.toTypedValue(value)),
	})
}

func (d *Device) sendTaskError(id byte, code vm.ErrorCode) {
	d.send(wire.Message{Op: wire.TaskErrorMsg, ChunkID: id, Body: []byte{byte(code)}})
}

func (d *Device) sendVarValue(index byte) {
	value := d.VM.Mem.Var(int(index))
	d.send(wire.Message{
		Op:      wire.VarValueMsg,
		ChunkID: index,
		Body:    wire.EncodeTypedValue(d.toTypedValue(value)),
	})
}

func (d *Device) setVar(index byte, body []byte) {
	tv, err := wire.DecodeTypedValue(body)
	if err != nil {
		log.Errorf("setVar %d: %s", index, err.Error())
		return
	}
	d.VM.Mem.SetVar(int(index), d.fromTypedValue(tv))
}

func (d *Device) sendAllCode() {
	for id := 0; id < MaxChunks; id++ {
		c := &d.chunks[id]
		if !c.Present {
			continue
		}
		body := append([]byte{c.Type}, c.Code...)
		d.send(wire.Message{Op: wire.ChunkCodeMsg, ChunkID: byte(id), Body: body})
	}
}

// deleteAllCode clears the chunk table and resets the arena. The arena
// clear is valid here: stopAll leaves no task running, so no live
// references remain.
func (d *Device) deleteAllCode() {
	d.stopAll()
	for id := range d.chunks {
		d.chunks[id] = Chunk{}
	}
	d.VM.Mem.Clear()
	d.VM.Mem.ClearVars()
}

// toTypedValue converts a VM value into its wire form.
func (d *Device) toTypedValue(v vm.Value) wire.TypedValue {
	mem := d.VM.Mem
	switch {
	case v.IsInt():
		return wire.IntValue(v.Int())
	case v.IsBoolean():
		return wire.BoolValue(v == vm.True)
	case mem.IsType(v, vm.StringType):
		return wire.StringValue(mem.ObjString(v))
	case mem.IsType(v, vm.ByteArrayType):
		return wire.BytesValue(mem.ObjBytes(v))
	}
	return wire.IntValue(0)
}

// fromTypedValue converts a wire value into a VM value, allocating
// strings and byte arrays in the arena.
func (d *Device) fromTypedValue(tv wire.TypedValue) vm.Value {
	mem := d.VM.Mem
	switch tv.Kind {
	case wire.IntKind:
		return vm.FromInt(tv.Int)
	case wire.StringKind:
		return mem.NewString(tv.Str)
	case wire.BooleanKind:
		return vm.FromBool(tv.Bool)
	case wire.ByteArrayKind:
		obj := mem.Alloc(vm.ByteArrayType, (len(tv.Bytes)+3)/4, vm.Nil)
		if obj == vm.Nil {
			return vm.Nil
		}
		for i, b := range tv.Bytes {
			mem.SetByteAt(obj, i, b)
		}
		return obj
	}
	return vm.Nil
}
