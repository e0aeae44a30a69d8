package vm

import "testing"

func TestAllocBasics(t *testing.T) {
	m := NewMemory(50)

	obj := m.Alloc(ListType, 4, FromInt(0))
	if obj == Nil {
		t.Fatal("alloc failed")
	}
	if got := m.ObjWords(obj); got != 4 {
		t.Errorf("ObjWords = %d, want 4", got)
	}
	if got := m.ClassOf(obj); got != ListType {
		t.Errorf("ClassOf = %d, want ListType", got)
	}
	if got := m.WordsUsed(); got != 5 {
		t.Errorf("WordsUsed = %d, want 5 (header + 4 data words)", got)
	}
	for i := 0; i < 4; i++ {
		if got := m.Field(obj, i); got != FromInt(0) {
			t.Errorf("Field(%d) = %#x, want tagged zero", i, uint32(got))
		}
	}
}

func TestAllocNeverReturnsSingletonAddresses(t *testing.T) {
	m := NewMemory(100)
	for i := 0; i < 10; i++ {
		obj := m.Alloc(ListType, 0, FromInt(0))
		if obj == Nil || obj == True || obj == False {
			t.Fatalf("allocation %d returned a singleton address %#x", i, uint32(obj))
		}
		if obj&3 != 0 {
			t.Fatalf("allocation %d not word-aligned: %#x", i, uint32(obj))
		}
	}
}

func TestAllocExhaustion(t *testing.T) {
	m := NewMemory(10)

	if obj := m.Alloc(ListType, 100, FromInt(0)); obj != Nil {
		t.Errorf("oversized alloc = %#x, want Nil", uint32(obj))
	}
	used := m.WordsUsed()
	if used != 0 {
		t.Errorf("failed alloc corrupted free pointer: used = %d", used)
	}

	// fill the arena exactly, then fail on one more word
	if obj := m.Alloc(ByteArrayType, 9, Nil); obj == Nil {
		t.Fatal("exact-fit alloc failed")
	}
	if obj := m.Alloc(ListType, 0, FromInt(0)); obj != Nil {
		t.Error("alloc in a full arena should return Nil")
	}
	if m.WordsUsed() != 10 {
		t.Errorf("free pointer moved on failed alloc: used = %d", m.WordsUsed())
	}
}

func TestClear(t *testing.T) {
	m := NewMemory(20)
	m.Alloc(ListType, 10, FromInt(0))
	m.Clear()
	if m.WordsUsed() != 0 {
		t.Errorf("after Clear, WordsUsed = %d, want 0", m.WordsUsed())
	}
	if obj := m.Alloc(ByteArrayType, 19, Nil); obj == Nil {
		t.Error("after Clear, a full-arena alloc should succeed")
	}
}

func TestResizeInPlace(t *testing.T) {
	m := NewMemory(50)
	obj := m.Alloc(ListType, 3, FromInt(0))
	m.SetField(obj, 0, FromInt(2))
	m.SetField(obj, 1, FromInt(10))
	m.SetField(obj, 2, FromInt(20))

	grown := m.Resize(obj, 8)
	if grown != obj {
		t.Fatalf("topmost object should grow in place: %#x -> %#x", uint32(obj), uint32(grown))
	}
	if got := m.ObjWords(grown); got != 8 {
		t.Errorf("ObjWords after grow = %d, want 8", got)
	}
	if m.Field(grown, 1) != FromInt(10) || m.Field(grown, 2) != FromInt(20) {
		t.Error("grow lost data words")
	}
	for i := 3; i < 8; i++ {
		if m.Field(grown, i) != FromInt(0) {
			t.Errorf("new word %d not zeroed", i)
		}
	}
}

func TestResizeMoves(t *testing.T) {
	m := NewMemory(50)
	obj := m.Alloc(ListType, 2, FromInt(0))
	m.SetField(obj, 0, FromInt(1))
	m.SetField(obj, 1, FromInt(99))
	m.Alloc(StringType, 2, FromInt(0)) // obj is no longer topmost

	moved := m.Resize(obj, 6)
	if moved == Nil {
		t.Fatal("resize failed")
	}
	if moved == obj {
		t.Fatal("buried object should have been copied, not grown in place")
	}
	if m.Field(moved, 0) != FromInt(1) || m.Field(moved, 1) != FromInt(99) {
		t.Error("copy lost data words")
	}
}

func TestGlobalVars(t *testing.T) {
	m := NewMemory(10)
	for i := 0; i < MaxVars; i++ {
		if m.Var(i) != FromInt(0) {
			t.Fatalf("var %d not zero-initialized", i)
		}
	}
	m.SetVar(3, FromInt(42))
	if m.Var(3) != FromInt(42) {
		t.Error("SetVar/Var round trip failed")
	}
	if m.Var(-1) != Nil || m.Var(MaxVars) != Nil {
		t.Error("out-of-range Var should return Nil")
	}
}

func TestStringRoundTrip(t *testing.T) {
	m := NewMemory(100)
	tests := []string{"", "a", "abc", "abcd", "héllo", "日本語"}
	for _, s := range tests {
		obj := m.NewString(s)
		if obj == Nil {
			t.Fatalf("NewString(%q) failed", s)
		}
		if got := m.ObjString(obj); got != s {
			t.Errorf("ObjString(NewString(%q)) = %q", s, got)
		}
		if got := m.StringSize(obj); got != len(s) {
			t.Errorf("StringSize(%q) = %d, want %d", s, got, len(s))
		}
	}
}

func TestStringPadding(t *testing.T) {
	// at least one NUL must fall within the last data word
	m := NewMemory(100)
	for n := 0; n < 9; n++ {
		s := "aaaaaaaaa"[:n]
		obj := m.NewString(s)
		words := m.ObjWords(obj)
		if words != (n+1+3)/4 {
			t.Errorf("len %d: words = %d, want %d", n, words, (n+1+3)/4)
		}
		sawNul := false
		for i := 4 * (words - 1); i < 4*words; i++ {
			if m.ByteAt(obj, i) == 0 {
				sawNul = true
			}
		}
		if !sawNul {
			t.Errorf("len %d: no NUL in last word", n)
		}
	}
}

func TestByteAccess(t *testing.T) {
	m := NewMemory(100)
	obj := m.Alloc(ByteArrayType, 2, Nil)
	for i := 0; i < 8; i++ {
		m.SetByteAt(obj, i, byte(0x10+i))
	}
	for i := 0; i < 8; i++ {
		if got := m.ByteAt(obj, i); got != byte(0x10+i) {
			t.Errorf("byte %d = %#x, want %#x", i, got, 0x10+i)
		}
	}
	b := m.ObjBytes(obj)
	if len(b) != 8 || b[0] != 0x10 || b[7] != 0x17 {
		t.Errorf("ObjBytes = % x", b)
	}
}

func TestStaticStrings(t *testing.T) {
	m := NewMemory(20)
	obj := m.AllocStatic(StringType, 8) // room for 31 chars + NUL

	m.SetStaticString(obj, "hello")
	if !obj.IsStatic() {
		t.Error("static reference should carry the static bit")
	}
	if got := m.ObjString(obj); got != "hello" {
		t.Errorf("static string = %q, want %q", got, "hello")
	}

	// static objects survive a heap clear and in-place rewrite
	m.Clear()
	m.SetStaticString(obj, "hi")
	if got := m.ObjString(obj); got != "hi" {
		t.Errorf("after rewrite, static string = %q", got)
	}
}
