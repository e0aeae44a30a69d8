package host

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"blox/wire"
)

var log = commonlog.GetLogger("blox.host")

// Ping cadence and the liveness window: a ping goes out every 2.0 s and
// the board counts as responding while an echo arrived within the last
// 2.2 s (interval plus 0.2 s grace).
const (
	PingInterval = 2 * time.Second
	LiveWindow   = PingInterval + 200*time.Millisecond
)

// Status is the host's view of the device link.
type Status int

const (
	NotConnected Status = iota
	Connected
	BoardNotResponding
)

func (s Status) String() string {
	switch s {
	case Connected:
		return "connected"
	case BoardNotResponding:
		return "boardNotResponding"
	}
	return "notConnected"
}

// Hooks surface device events to the editor: task state for
// highlighting running blocks, returned values for result hints, and
// ambient outputs. Nil hooks are skipped.
type Hooks struct {
	TaskStarted   func(chunkID byte)
	TaskDone      func(chunkID byte)
	TaskReturned  func(chunkID byte, value wire.TypedValue)
	TaskError     func(chunkID byte, errorCode byte)
	OutputValue   func(chunkID byte, value wire.TypedValue)
	VarValue      func(varIndex byte, value wire.TypedValue)
	Broadcast     func(message string)
	Version       func(version string)
}

// Connection is the host side of one serial link: it owns the read
// loop, the ping ticker, the chunk-id registry, and the liveness
// state the editor polls through Status.
type Connection struct {
	SessionID string
	Registry  *ChunkRegistry

	transport io.ReadWriteCloser
	hooks     Hooks
	receiver  *wire.Receiver
	clock     func() time.Time

	mu       sync.Mutex
	writeMu  sync.Mutex
	lastEcho time.Time
	open     bool

	stop chan struct{}
	wg   sync.WaitGroup
}

// Connect wraps an open transport and starts the read and ping loops.
// Close the connection to release them; closing the transport is the
// connection's job from here on.
func Connect(transport io.ReadWriteCloser, hooks Hooks) *Connection {
	c := newConnection(transport, hooks, time.Now)
	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()
	return c
}

// newConnection builds a connection without starting its goroutines;
// tests drive it with an explicit clock.
func newConnection(transport io.ReadWriteCloser, hooks Hooks, clock func() time.Time) *Connection {
	c := &Connection{
		SessionID: uuid.NewString(),
		Registry:  NewChunkRegistry(),
		transport: transport,
		hooks:     hooks,
		clock:     clock,
		lastEcho:  clock(),
		open:      true,
		stop:      make(chan struct{}),
	}
	c.receiver = wire.NewReceiver(c.handle)
	return c
}

// Close stops the loops and closes the transport.
func (c *Connection) Close() error {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return nil
	}
	c.open = false
	c.mu.Unlock()
	close(c.stop)
	err := c.transport.Close()
	c.wg.Wait()
	return err
}

// Status reports the link state: notConnected after a close or
// transport failure, boardNotResponding when no ping echo arrived
// within the liveness window, connected otherwise.
func (c *Connection) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return NotConnected
	}
	if c.clock().Sub(c.lastEcho) > LiveWindow {
		return BoardNotResponding
	}
	return Connected
}

func (c *Connection) readLoop() {
	defer c.wg.Done()
	buf := make([]byte, 256)
	for {
		n, err := c.transport.Read(buf)
		if n > 0 {
			c.receiver.Feed(buf[:n])
		}
		if err != nil {
			c.mu.Lock()
			wasOpen := c.open
			c.open = false
			c.mu.Unlock()
			if wasOpen && err != io.EOF {
				log.Errorf("read: %s", err.Error())
			}
			return
		}
	}
}

func (c *Connection) pingLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			if err := c.Ping(); err != nil {
				return
			}
		}
	}
}

// handle dispatches one device frame.
func (c *Connection) handle(m wire.Message) {
	switch m.Op {
	case wire.PingMsg:
		c.mu.Lock()
		c.lastEcho = c.clock()
		c.mu.Unlock()
	case wire.TaskStartedMsg:
		if c.hooks.TaskStarted != nil {
			c.hooks.TaskStarted(m.ChunkID)
		}
	case wire.TaskDoneMsg:
		if c.hooks.TaskDone != nil {
			c.hooks.TaskDone(m.ChunkID)
		}
	case wire.TaskReturnedValueMsg:
		c.dispatchValue(m, c.hooks.TaskReturned)
	case wire.TaskErrorMsg:
		if c.hooks.TaskError != nil && len(m.Body) > 0 {
			c.hooks.TaskError(m.ChunkID, m.Body[0])
		}
	case wire.OutputValueMsg:
		c.dispatchValue(m, c.hooks.OutputValue)
	case wire.VarValueMsg:
		c.dispatchValue(m, c.hooks.VarValue)
	case wire.BroadcastMsg:
		if c.hooks.Broadcast != nil {
			c.hooks.Broadcast(string(m.Body))
		}
	case wire.VersionMsg:
		if c.hooks.Version != nil {
			c.hooks.Version(string(m.Body))
		}
	default:
		log.Infof("ignoring %v from device", m.Op)
	}
}

func (c *Connection) dispatchValue(m wire.Message, hook func(byte, wire.TypedValue)) {
	if hook == nil {
		return
	}
	tv, err := wire.DecodeTypedValue(m.Body)
	if err != nil {
		log.Errorf("%v: %s", m.Op, err.Error())
		return
	}
	hook(m.ChunkID, tv)
}

func (c *Connection) send(m wire.Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.transport.Write(wire.Encode(m)); err != nil {
		return fmt.Errorf("host: send %v: %w", m.Op, err)
	}
	return nil
}

// Ping sends one liveness probe.
func (c *Connection) Ping() error {
	return c.send(wire.Message{Op: wire.PingMsg})
}

// SendChunk uploads a chunk's bytecode under the given id and type.
func (c *Connection) SendChunk(id, chunkType byte, code []byte) error {
	body := append([]byte{chunkType}, code...)
	return c.send(wire.Message{Op: wire.ChunkCodeMsg, ChunkID: id, Body: body})
}

// SaveBlock assigns (or reuses) a chunk id for blockKey and uploads the
// compiled code.
func (c *Connection) SaveBlock(blockKey string, chunkType byte, code []byte) (byte, error) {
	id, err := c.Registry.Assign(blockKey)
	if err != nil {
		return 0, err
	}
	return id, c.SendChunk(id, chunkType, code)
}

// StartChunk starts the chunk's task on the device.
func (c *Connection) StartChunk(id byte) error {
	return c.send(wire.Message{Op: wire.StartChunkMsg, ChunkID: id})
}

// StopChunk stops the chunk's task.
func (c *Connection) StopChunk(id byte) error {
	return c.send(wire.Message{Op: wire.StopChunkMsg, ChunkID: id})
}

// StartAll starts every whenStarted hat.
func (c *Connection) StartAll() error {
	return c.send(wire.Message{Op: wire.StartAllMsg})
}

// StopAll halts every task at the next dispatch boundary.
func (c *Connection) StopAll() error {
	return c.send(wire.Message{Op: wire.StopAllMsg})
}

// DeleteChunk removes one chunk from the device.
func (c *Connection) DeleteChunk(id byte) error {
	return c.send(wire.Message{Op: wire.DeleteChunkMsg, ChunkID: id})
}

// DeleteAllCode wipes the device's chunks and arena, and frees every
// chunk id for reassignment.
func (c *Connection) DeleteAllCode() error {
	if err := c.send(wire.Message{Op: wire.DeleteAllCodeMsg}); err != nil {
		return err
	}
	c.Registry.Reset()
	return nil
}

// SystemReset requests a whole-device reset.
func (c *Connection) SystemReset() error {
	return c.send(wire.Message{Op: wire.SystemResetMsg})
}

// GetVar asks for the value of global variable index.
func (c *Connection) GetVar(index byte) error {
	return c.send(wire.Message{Op: wire.GetVarMsg, ChunkID: index})
}

// SetVar stores a typed value into global variable index.
func (c *Connection) SetVar(index byte, value wire.TypedValue) error {
	return c.send(wire.Message{Op: wire.SetVarMsg, ChunkID: index, Body: wire.EncodeTypedValue(value)})
}

// GetVersion asks the device for its version string.
func (c *Connection) GetVersion() error {
	return c.send(wire.Message{Op: wire.GetVersionMsg})
}

// Broadcast sends a broadcast string to the device.
func (c *Connection) Broadcast(message string) error {
	return c.send(wire.Message{Op: wire.BroadcastMsg, Body: []byte(message)})
}
