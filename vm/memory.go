package vm

import "encoding/binary"

// Object class identifiers, stored in the low byte of every header word.
const (
	StringType    = 1
	ListType      = 2
	ByteArrayType = 3
)

// IntegerClass is the pseudo-class reported for small integers, which
// have no header. BooleanClass and NilClass cover the singletons.
const (
	IntegerClass = 100
	BooleanClass = 101
	NilClass     = 102
)

// HeaderWords is the number of words occupied by an object header.
const HeaderWords = 1

// MaxVars is the size of the global variable table.
const MaxVars = 25

// heapBase is the byte address of the first arena word. Addresses 0, 4
// and 8 are reserved for the nil/false/true singletons.
const heapBase = 12

// Memory is the object memory: a single bump-allocated arena of 32-bit
// words plus a small static region for objects that must stay off the
// arena (the radio's received strings). There is no collector; Clear
// resets the whole arena at once.
type Memory struct {
	words []uint32 // the arena
	free  int      // word index of the next free word
	vars  [MaxVars]Value

	statics    []uint32
	staticFree int
}

// NewMemory allocates an arena of the given word count and zeroes the
// global variable table.
func NewMemory(wordCount int) *Memory {
	m := &Memory{
		words:   make([]uint32, wordCount),
		statics: make([]uint32, 64),
	}
	for i := range m.vars {
		m.vars[i] = FromInt(0)
	}
	return m
}

// Clear resets the free pointer to the start of the arena. All
// previously allocated objects are logically invalid afterwards; the
// caller must have dropped every outstanding reference.
func (m *Memory) Clear() {
	m.free = 0
}

// WordsFree returns the remaining arena capacity in words.
func (m *Memory) WordsFree() int {
	return len(m.words) - m.free
}

// WordsUsed returns the number of arena words allocated so far.
func (m *Memory) WordsUsed() int {
	return m.free
}

func header(classID, wordCount int) uint32 {
	return uint32(wordCount)<<8 | uint32(classID)&0xFF
}

func wordToAddr(w int) Value {
	return Value(4 * (w + heapBase/4))
}

func (m *Memory) addrToWord(v Value) int {
	return int(v)/4 - heapBase/4
}

// Alloc bump-allocates an object with the given class, data word count
// and fill value. It returns Nil when the arena is exhausted, leaving
// the free pointer untouched; primitives propagate that as
// InsufficientMemoryError.
func (m *Memory) Alloc(classID, wordCount int, fill Value) Value {
	if wordCount < 0 {
		return Nil
	}
	obj := m.free
	next := obj + HeaderWords + wordCount
	if next > len(m.words) {
		return Nil
	}
	m.free = next
	for i := obj + 1; i < next; i++ {
		m.words[i] = uint32(fill)
	}
	m.words[obj] = header(classID, wordCount)
	return wordToAddr(obj)
}

// Resize grows (or shrinks) obj to newWordCount data words. When obj is
// the topmost allocation it is grown in place; otherwise a new object
// is allocated and the data copied. Either way callers must refresh
// every reference they hold, since the object may have moved. Returns
// Nil when the arena cannot satisfy the request.
func (m *Memory) Resize(obj Value, newWordCount int) Value {
	w := m.addrToWord(obj)
	oldCount := m.ObjWords(obj)
	classID := m.ClassOf(obj)
	if newWordCount == oldCount {
		return obj
	}
	if w+HeaderWords+oldCount == m.free {
		// topmost object: adjust the free pointer directly
		next := w + HeaderWords + newWordCount
		if next > len(m.words) {
			return Nil
		}
		for i := m.free; i < next; i++ {
			m.words[i] = uint32(FromInt(0))
		}
		m.free = next
		m.words[w] = header(classID, newWordCount)
		return obj
	}
	replacement := m.Alloc(classID, newWordCount, FromInt(0))
	if replacement == Nil {
		return Nil
	}
	n := oldCount
	if newWordCount < n {
		n = newWordCount
	}
	src := m.addrToWord(obj)
	dst := m.addrToWord(replacement)
	copy(m.words[dst+1:dst+1+n], m.words[src+1:src+1+n])
	return replacement
}

// ClassOf returns the class identifier for any value: the header class
// for references, or a pseudo-class for immediates and singletons.
func (m *Memory) ClassOf(v Value) int {
	switch {
	case v.IsInt():
		return IntegerClass
	case v == Nil:
		return NilClass
	case v.IsBoolean():
		return BooleanClass
	}
	return int(m.headerOf(v) & 0xFF)
}

// IsType reports whether v is a heap or static object of the given class.
func (m *Memory) IsType(v Value, classID int) bool {
	if v.IsInt() || v == Nil || v.IsBoolean() {
		return false
	}
	return int(m.headerOf(v)&0xFF) == classID
}

// ObjWords returns the data word count from the object header. This is
// the allocated capacity, not any logical length stored in the data.
func (m *Memory) ObjWords(v Value) int {
	return int(m.headerOf(v) >> 8)
}

func (m *Memory) headerOf(v Value) uint32 {
	if v.IsStatic() {
		return m.statics[int(v&^staticBit)/4]
	}
	return m.words[m.addrToWord(v)]
}

func (m *Memory) region(v Value) ([]uint32, int) {
	if v.IsStatic() {
		return m.statics, int(v&^staticBit) / 4
	}
	return m.words, m.addrToWord(v)
}

// Field returns data word i (0-based) of obj.
func (m *Memory) Field(obj Value, i int) Value {
	words, w := m.region(obj)
	return Value(words[w+HeaderWords+i])
}

// SetField stores v into data word i (0-based) of obj.
func (m *Memory) SetField(obj Value, i int, v Value) {
	words, w := m.region(obj)
	words[w+HeaderWords+i] = uint32(v)
}

// Var returns global variable i, or Nil when out of range.
func (m *Memory) Var(i int) Value {
	if i < 0 || i >= MaxVars {
		return Nil
	}
	return m.vars[i]
}

// SetVar stores v into global variable i.
func (m *Memory) SetVar(i int, v Value) {
	if i < 0 || i >= MaxVars {
		return
	}
	m.vars[i] = v
}

// ClearVars zeroes the global variable table.
func (m *Memory) ClearVars() {
	for i := range m.vars {
		m.vars[i] = FromInt(0)
	}
}

// ---------------------------------------------------------------------------
// Byte access
// ---------------------------------------------------------------------------

// ByteAt returns byte i (0-based) of the object's data words. Bytes are
// packed little-endian within each word.
func (m *Memory) ByteAt(obj Value, i int) byte {
	words, w := m.region(obj)
	word := words[w+HeaderWords+i/4]
	return byte(word >> (8 * (i % 4)))
}

// SetByteAt stores b at byte offset i of the object's data words.
func (m *Memory) SetByteAt(obj Value, i int, b byte) {
	words, w := m.region(obj)
	idx := w + HeaderWords + i/4
	shift := 8 * (i % 4)
	words[idx] = words[idx]&^(0xFF<<shift) | uint32(b)<<shift
}

// ObjBytes returns a copy of all data-word bytes of obj
// (4 * ObjWords bytes, little-endian within each word).
func (m *Memory) ObjBytes(obj Value) []byte {
	words, w := m.region(obj)
	n := int(words[w] >> 8)
	out := make([]byte, 4*n)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(out[4*i:], words[w+HeaderWords+i])
	}
	return out
}

// ---------------------------------------------------------------------------
// Strings
// ---------------------------------------------------------------------------

// NewString allocates a string object holding the NUL-terminated UTF-8
// bytes of s. Returns Nil on arena exhaustion.
func (m *Memory) NewString(s string) Value {
	return m.NewStringFromBytes([]byte(s))
}

// NewStringFromBytes allocates a string object from raw UTF-8 bytes.
func (m *Memory) NewStringFromBytes(b []byte) Value {
	byteCount := len(b) + 1 // room for the terminator
	wordCount := (byteCount + 3) / 4
	obj := m.Alloc(StringType, wordCount, Nil) // raw zero bytes
	if obj == Nil {
		return Nil
	}
	for i, c := range b {
		m.SetByteAt(obj, i, c)
	}
	return obj
}

// StringSize returns the byte length of a string object by scanning the
// last data word for the NUL terminator.
func (m *Memory) StringSize(obj Value) int {
	wordCount := m.ObjWords(obj)
	if wordCount == 0 {
		return 0
	}
	byteCount := 4 * (wordCount - 1)
	for i := 0; i < 4; i++ {
		if m.ByteAt(obj, byteCount) == 0 {
			break
		}
		byteCount++
	}
	return byteCount
}

// ObjString returns the Go string for a string object. Non-strings
// yield the empty string.
func (m *Memory) ObjString(obj Value) string {
	if !m.IsType(obj, StringType) {
		return ""
	}
	n := m.StringSize(obj)
	b := make([]byte, n)
	for i := range b {
		b[i] = m.ByteAt(obj, i)
	}
	return string(b)
}

// ---------------------------------------------------------------------------
// Static objects
// ---------------------------------------------------------------------------

// AllocStatic reserves a static object with the given capacity. Static
// objects live outside the arena and survive Clear; they exist to keep
// high-frequency paths (the radio's received strings) off the bump
// allocator.
func (m *Memory) AllocStatic(classID, wordCount int) Value {
	obj := m.staticFree
	need := obj + HeaderWords + wordCount
	for need > len(m.statics) {
		m.statics = append(m.statics, make([]uint32, len(m.statics))...)
	}
	m.staticFree = need
	m.statics[obj] = header(classID, wordCount)
	return Value(4*obj) | staticBit
}

// SetStaticString rewrites a static string object in place: the header
// word count shrinks to fit s and the bytes are NUL-terminated. s must
// fit the object's reserved capacity.
func (m *Memory) SetStaticString(obj Value, s string) {
	w := int(obj&^staticBit) / 4
	m.statics[w] = header(StringType, (len(s)+4)/4)
	for i := 0; i < len(s); i++ {
		m.SetByteAt(obj, i, s[i])
	}
	m.SetByteAt(obj, len(s), 0)
}
