package host

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// CodeStore persists uploaded chunk bytecode in SQLite so a reconnect
// can restore the device without the compiler. Chunk-id assignments
// themselves stay in memory; the store is keyed by chunk id for the
// lifetime of one assignment epoch (it is cleared with deleteAllCode).
type CodeStore struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenCodeStore opens (or creates) the store at dbPath.
func OpenCodeStore(dbPath string) (*CodeStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS chunks (
		id INTEGER PRIMARY KEY,
		chunk_type INTEGER NOT NULL,
		code BLOB NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &CodeStore{db: db}, nil
}

// Close closes the database connection.
func (s *CodeStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save stores (or replaces) one chunk's code.
func (s *CodeStore) Save(id byte, chunkType byte, code []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO chunks (id, chunk_type, code) VALUES (?, ?, ?)",
		int(id), int(chunkType), code,
	)
	if err != nil {
		return fmt.Errorf("saving chunk %d: %w", id, err)
	}
	return nil
}

// Load retrieves one chunk's type and code.
func (s *CodeStore) Load(id byte) (chunkType byte, code []byte, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ct int
	err = s.db.QueryRow("SELECT chunk_type, code FROM chunks WHERE id = ?", int(id)).Scan(&ct, &code)
	if err == sql.ErrNoRows {
		return 0, nil, fmt.Errorf("chunk %d not found", id)
	}
	if err != nil {
		return 0, nil, fmt.Errorf("loading chunk %d: %w", id, err)
	}
	return byte(ct), code, nil
}

// Delete removes one chunk.
func (s *CodeStore) Delete(id byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec("DELETE FROM chunks WHERE id = ?", int(id)); err != nil {
		return fmt.Errorf("deleting chunk %d: %w", id, err)
	}
	return nil
}

// DeleteAll clears the store; paired with the deleteAllCode message.
func (s *CodeStore) DeleteAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec("DELETE FROM chunks"); err != nil {
		return fmt.Errorf("clearing chunks: %w", err)
	}
	return nil
}

// StoredChunk is one row of the code store.
type StoredChunk struct {
	ID   byte
	Type byte
	Code []byte
}

// All returns every stored chunk in id order.
func (s *CodeStore) All() ([]StoredChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query("SELECT id, chunk_type, code FROM chunks ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}
	defer rows.Close()

	var out []StoredChunk
	for rows.Next() {
		var id, ct int
		var code []byte
		if err := rows.Scan(&id, &ct, &code); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		out = append(out, StoredChunk{ID: byte(id), Type: byte(ct), Code: code})
	}
	return out, rows.Err()
}

// ReuploadAll replays every stored chunk over the connection, in id
// order.
func (s *CodeStore) ReuploadAll(c *Connection) error {
	chunks, err := s.All()
	if err != nil {
		return err
	}
	for _, chunk := range chunks {
		if err := c.SendChunk(chunk.ID, chunk.Type, chunk.Code); err != nil {
			return err
		}
	}
	return nil
}
