package wire

import (
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("blox.wire")

// Handler receives each complete, in-order frame.
type Handler func(Message)

// Receiver accumulates raw link bytes into a rolling buffer and
// dispatches complete frames. When the cursor is not at a sentinel, the
// bytes up to the next sentinel byte are dropped and dispatch resumes
// there. When a long frame's terminator is wrong, the whole buffer is
// discarded; in-flight frames are lost and the link re-syncs on the
// next valid frame.
type Receiver struct {
	buf     []byte
	handler Handler
}

// NewReceiver creates a receiver dispatching to handler.
func NewReceiver(handler Handler) *Receiver {
	return &Receiver{handler: handler}
}

// Feed appends data to the receive buffer and dispatches every
// complete frame at the front of it.
func (r *Receiver) Feed(data []byte) {
	r.buf = append(r.buf, data...)
	for r.dispatchOne() {
	}
}

// Pending returns the number of buffered bytes awaiting a complete frame.
func (r *Receiver) Pending() int {
	return len(r.buf)
}

// dispatchOne handles the frame at the front of the buffer, if
// complete. It reports whether another attempt may make progress.
func (r *Receiver) dispatchOne() bool {
	if len(r.buf) == 0 {
		return false
	}
	switch r.buf[0] {
	case ShortMessage:
		if len(r.buf) < shortLen {
			return false
		}
		m := Message{Op: Op(r.buf[1]), ChunkID: r.buf[2]}
		r.drain(shortLen)
		r.handler(m)
		return true
	case LongMessage:
		if len(r.buf) < longHeaderLen {
			return false
		}
		bodyBytes := int(r.buf[3]) | int(r.buf[4])<<8
		if len(r.buf) < longHeaderLen+bodyBytes {
			return false
		}
		if bodyBytes < 1 || r.buf[longHeaderLen+bodyBytes-1] != Terminator {
			log.Errorf("bad frame terminator; discarding %d buffered bytes", len(r.buf))
			r.buf = nil
			return false
		}
		body := make([]byte, bodyBytes-1)
		copy(body, r.buf[longHeaderLen:longHeaderLen+bodyBytes-1])
		m := Message{Op: Op(r.buf[1]), ChunkID: r.buf[2], Body: body}
		r.drain(longHeaderLen + bodyBytes)
		r.handler(m)
		return true
	}
	// Lost-byte condition: drop junk up to the next sentinel so a valid
	// frame already in the buffer still gets dispatched.
	junk := 1
	for junk < len(r.buf) && r.buf[junk] != ShortMessage && r.buf[junk] != LongMessage {
		junk++
	}
	log.Errorf("unknown sentinel %d; discarding %d junk bytes", r.buf[0], junk)
	r.drain(junk)
	return len(r.buf) > 0
}

func (r *Receiver) drain(n int) {
	r.buf = append(r.buf[:0], r.buf[n:]...)
}
