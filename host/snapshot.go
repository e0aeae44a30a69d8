package host

import (
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical options so equal snapshots encode to equal
// bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("host: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Snapshot is the serializable state of a host session: which block
// owns which chunk id. Restoring a snapshot after a reconnect lets the
// host re-upload code without re-running the compiler.
type Snapshot struct {
	SessionID string                `cbor:"1,keyasint"`
	Entries   map[string]ChunkEntry `cbor:"2,keyasint"`
	NextID    int                   `cbor:"3,keyasint"`
}

// MarshalSnapshot serializes a Snapshot to CBOR bytes.
func MarshalSnapshot(s *Snapshot) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// UnmarshalSnapshot deserializes a Snapshot from CBOR bytes.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("host: unmarshal snapshot: %w", err)
	}
	return &s, nil
}

// TakeSnapshot captures the connection's registry state.
func (c *Connection) TakeSnapshot() *Snapshot {
	entries, nextID := c.Registry.snapshotEntries()
	return &Snapshot{SessionID: c.SessionID, Entries: entries, NextID: nextID}
}

// RestoreSnapshot replaces the connection's registry state.
func (c *Connection) RestoreSnapshot(s *Snapshot) {
	c.Registry.restoreEntries(s.Entries, s.NextID)
}

// SaveSnapshotFile writes the connection's snapshot to path.
func (c *Connection) SaveSnapshotFile(path string) error {
	data, err := MarshalSnapshot(c.TakeSnapshot())
	if err != nil {
		return fmt.Errorf("host: marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("host: write snapshot: %w", err)
	}
	return nil
}

// LoadSnapshotFile restores the connection's registry from path.
func (c *Connection) LoadSnapshotFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("host: read snapshot: %w", err)
	}
	s, err := UnmarshalSnapshot(data)
	if err != nil {
		return err
	}
	c.RestoreSnapshot(s)
	return nil
}
