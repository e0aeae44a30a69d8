// Package wire implements the framed serial protocol between the host
// and a blox device.
//
// Every frame begins with a sentinel byte. Short messages are three
// bytes: sentinel, opcode, chunk id. Long messages add a 16-bit
// little-endian length, a body, and a terminator byte; the length
// field covers the body plus the terminator. Any other byte at the
// read cursor means bytes were lost; the receiver drops bytes up to the
// next sentinel and re-syncs there.
package wire

import "fmt"

// Frame sentinels and the long-frame terminator.
const (
	ShortMessage = 250
	LongMessage  = 251
	Terminator   = 254
)

// shortLen is the size of a short frame; longHeaderLen is the size of
// a long frame's fixed header (sentinel, op, chunk id, length).
const (
	shortLen      = 3
	longHeaderLen = 5
)

// Op identifies a protocol message.
type Op byte

// Protocol opcodes. The numbering is the wire contract; never renumber.
const (
	ChunkCodeMsg         Op = 1 // H→D: chunk type byte + bytecode
	DeleteChunkMsg       Op = 2
	StartChunkMsg        Op = 3
	StopChunkMsg         Op = 4
	StartAllMsg          Op = 5
	StopAllMsg           Op = 6
	GetVarMsg            Op = 7
	SetVarMsg            Op = 8
	GetVersionMsg        Op = 12
	GetAllCodeMsg        Op = 13
	DeleteAllCodeMsg     Op = 14
	SystemResetMsg       Op = 15
	TaskStartedMsg       Op = 16 // D→H
	TaskDoneMsg          Op = 17
	TaskReturnedValueMsg Op = 18
	TaskErrorMsg         Op = 19
	OutputValueMsg       Op = 20 // chunk id 255 means stdout
	VarValueMsg          Op = 21
	VersionMsg           Op = 22
	PingMsg              Op = 26
	BroadcastMsg         Op = 27
	ChunkAttributeMsg    Op = 28
)

var opNames = map[Op]string{
	ChunkCodeMsg:         "chunkCode",
	DeleteChunkMsg:       "deleteChunk",
	StartChunkMsg:        "startChunk",
	StopChunkMsg:         "stopChunk",
	StartAllMsg:          "startAll",
	StopAllMsg:           "stopAll",
	GetVarMsg:            "getVar",
	SetVarMsg:            "setVar",
	GetVersionMsg:        "getVersion",
	GetAllCodeMsg:        "getAllCode",
	DeleteAllCodeMsg:     "deleteAllCode",
	SystemResetMsg:       "systemReset",
	TaskStartedMsg:       "taskStarted",
	TaskDoneMsg:          "taskDone",
	TaskReturnedValueMsg: "taskReturnedValue",
	TaskErrorMsg:         "taskError",
	OutputValueMsg:       "outputValue",
	VarValueMsg:          "varValue",
	VersionMsg:           "version",
	PingMsg:              "ping",
	BroadcastMsg:         "broadcast",
	ChunkAttributeMsg:    "chunkAttribute",
}

func (op Op) String() string {
	if s, ok := opNames[op]; ok {
		return s
	}
	return fmt.Sprintf("op(%d)", byte(op))
}

// Chunk types carried in the first body byte of chunkCode.
const (
	ChunkCommand           = 1
	ChunkReporter          = 2
	ChunkFunctionHat       = 3
	ChunkWhenStarted       = 4
	ChunkWhenCondition     = 5
	ChunkWhenBroadcast     = 6
)

// Message is one protocol frame. A nil Body encodes as a short frame;
// any non-nil Body (including an empty one) encodes as a long frame.
type Message struct {
	Op      Op
	ChunkID byte
	Body    []byte
}

// Encode serializes m into wire bytes.
func Encode(m Message) []byte {
	if m.Body == nil {
		return []byte{ShortMessage, byte(m.Op), m.ChunkID}
	}
	bodyBytes := len(m.Body) + 1 // body plus terminator
	out := make([]byte, 0, longHeaderLen+bodyBytes)
	out = append(out, LongMessage, byte(m.Op), m.ChunkID,
		byte(bodyBytes&0xFF), byte(bodyBytes>>8))
	out = append(out, m.Body...)
	return append(out, Terminator)
}
