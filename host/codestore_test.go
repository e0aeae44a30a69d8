package host

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *CodeStore {
	t.Helper()
	s, err := OpenCodeStore(filepath.Join(t.TempDir(), "code.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCodeStoreSaveLoad(t *testing.T) {
	s := newTestStore(t)

	if err := s.Save(3, 1, []byte{0xAA, 0xBB}); err != nil {
		t.Fatal(err)
	}
	ct, code, err := s.Load(3)
	if err != nil {
		t.Fatal(err)
	}
	if ct != 1 || !bytes.Equal(code, []byte{0xAA, 0xBB}) {
		t.Errorf("loaded type %d code % x", ct, code)
	}

	// replace
	if err := s.Save(3, 2, []byte{0xCC}); err != nil {
		t.Fatal(err)
	}
	ct, code, _ = s.Load(3)
	if ct != 2 || !bytes.Equal(code, []byte{0xCC}) {
		t.Errorf("after replace: type %d code % x", ct, code)
	}
}

func TestCodeStoreLoadMissing(t *testing.T) {
	s := newTestStore(t)
	if _, _, err := s.Load(9); err == nil {
		t.Error("loading a missing chunk should fail")
	}
}

func TestCodeStoreDelete(t *testing.T) {
	s := newTestStore(t)
	s.Save(1, 1, []byte{1})
	s.Save(2, 1, []byte{2})

	if err := s.Delete(1); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.Load(1); err == nil {
		t.Error("chunk 1 should be gone")
	}
	if _, _, err := s.Load(2); err != nil {
		t.Error("chunk 2 should survive")
	}

	if err := s.DeleteAll(); err != nil {
		t.Fatal(err)
	}
	all, err := s.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Errorf("after DeleteAll, %d chunks remain", len(all))
	}
}

func TestCodeStoreAllOrdered(t *testing.T) {
	s := newTestStore(t)
	s.Save(5, 1, []byte{5})
	s.Save(1, 1, []byte{1})
	s.Save(3, 1, []byte{3})

	all, err := s.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ID != 1 || all[1].ID != 3 || all[2].ID != 5 {
		t.Errorf("All = %+v", all)
	}
}

func TestReuploadAll(t *testing.T) {
	s := newTestStore(t)
	s.Save(0, 1, []byte{0x20, 0x00})
	s.Save(1, 4, []byte{0x21, 0x00})

	conn, dev := newTestPair(t, time.Now)
	if err := s.ReuploadAll(conn); err != nil {
		t.Fatal(err)
	}

	// the device should now run the re-uploaded command chunk
	var done bool
	conn.hooks = Hooks{TaskDone: func(byte) { done = true }}
	if err := conn.StartChunk(0); err != nil {
		t.Fatal(err)
	}
	if !done {
		t.Error("re-uploaded chunk did not run")
	}
	_ = dev
}
