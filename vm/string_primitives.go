package vm

import (
	"bytes"
	"strconv"
)

// ---------------------------------------------------------------------------
// String Primitives
// ---------------------------------------------------------------------------

// Strings are NUL-terminated UTF-8. The byte length comes from scanning
// the last data word for the terminator; the logical length is the
// UTF-8 codepoint count.

// nextUTF8 returns the byte offset of the UTF-8 character following the
// one at offset i. At the terminating NUL (or end of slice) it returns
// i unchanged.
func nextUTF8(s []byte, i int) int {
	if i >= len(s) || s[i] == 0 {
		return i
	}
	if s[i] < 128 {
		return i + 1
	}
	if s[i]&0xC0 == 0xC0 { // start of a multi-byte character
		i++
	}
	for i < len(s) && s[i]&0xC0 == 0x80 { // skip continuation bytes
		i++
	}
	return i
}

func countUTF8(s []byte) int {
	count := 0
	for i := 0; i < len(s) && s[i] != 0; {
		i = nextUTF8(s, i)
		count++
	}
	return count
}

func (v *VM) stringBytes(obj Value) []byte {
	n := v.Mem.StringSize(obj)
	b := make([]byte, n)
	for i := range b {
		b[i] = v.Mem.ByteAt(obj, i)
	}
	return b
}

func (v *VM) stringLengthUTF8(obj Value) int {
	return countUTF8(v.stringBytes(obj))
}

// stringSliceUTF8 returns a fresh string holding codepoints
// startIndex..endIndex (1-based, inclusive) of src.
func (v *VM) stringSliceUTF8(src Value, startIndex, endIndex int) Value {
	if startIndex > endIndex {
		result := v.Mem.NewString("")
		if result == Nil {
			return v.Fail(InsufficientMemoryError)
		}
		return result
	}
	s := v.stringBytes(src)
	start := 0
	for i := 1; i < startIndex; i++ {
		start = nextUTF8(s, start)
	}
	end := start
	for i := startIndex; i <= endIndex; i++ {
		end = nextUTF8(s, end)
	}
	result := v.Mem.NewStringFromBytes(s[start:end])
	if result == Nil {
		return v.Fail(InsufficientMemoryError)
	}
	return result
}

// formatScalar writes the canonical text form of an integer or boolean.
// Other values format as the empty string.
func (v *VM) formatScalar(obj Value) string {
	switch {
	case obj.IsInt():
		return strconv.Itoa(int(obj.Int()))
	case obj == False:
		return "false"
	case obj == True:
		return "true"
	}
	return ""
}

func primJoin(v *VM, args []Value) Value {
	// Concatenate lists (all arguments lists) or strings (integer and
	// boolean arguments convert to text).
	if len(args) < 2 {
		return v.Fail(NotEnoughArguments)
	}
	arg1 := args[0]

	switch {
	case v.Mem.IsType(arg1, ListType):
		resultCount := 0
		for _, arg := range args {
			if !v.Mem.IsType(arg, ListType) {
				return v.Fail(JoinArgsNotSameTypeError)
			}
			resultCount += int(v.Mem.Field(arg, 0).Int())
		}
		result := v.Mem.Alloc(ListType, resultCount+1, FromInt(0))
		if result == Nil {
			return v.Fail(InsufficientMemoryError)
		}
		v.Mem.SetField(result, 0, FromInt(int32(resultCount)))
		dst := 1
		for _, arg := range args {
			count := v.listCount(arg)
			for j := 1; j <= count; j++ {
				v.Mem.SetField(result, dst, v.Mem.Field(arg, j))
				dst++
			}
		}
		return result
	case v.Mem.IsType(arg1, StringType):
		var buf bytes.Buffer
		for _, arg := range args {
			switch {
			case v.Mem.IsType(arg, StringType):
				buf.Write(v.stringBytes(arg))
			case arg.IsInt() || arg.IsBoolean():
				buf.WriteString(v.formatScalar(arg))
			default:
				return v.Fail(JoinArgsNotSameTypeError)
			}
		}
		result := v.Mem.NewStringFromBytes(buf.Bytes())
		if result == Nil {
			return v.Fail(InsufficientMemoryError)
		}
		return result
	}
	return v.Fail(NeedsIndexableError)
}

func primJoinStrings(v *VM, args []Value) Value {
	// Concatenate the items of a list with an optional separator
	// between them. Non-string items are formatted textually.
	if len(args) < 1 {
		return v.Fail(NotEnoughArguments)
	}
	if !v.Mem.IsType(args[0], ListType) {
		return v.Fail(NeedsArrayError)
	}
	stringList := args[0]
	count := int(v.Mem.Field(stringList, 0).Int())
	if count <= 0 {
		result := v.Mem.NewString("")
		if result == Nil {
			return v.Fail(InsufficientMemoryError)
		}
		return result
	}

	separator := ""
	if len(args) > 1 && v.Mem.IsType(args[1], StringType) {
		separator = v.Mem.ObjString(args[1])
	}

	var buf bytes.Buffer
	for i := 0; i < count; i++ {
		item := v.Mem.Field(stringList, i+1)
		if item.IsInt() || item.IsBoolean() {
			buf.WriteString(v.formatScalar(item))
		} else {
			buf.WriteString(v.Mem.ObjString(item))
		}
		if separator != "" && i < count-1 {
			buf.WriteString(separator)
		}
	}
	result := v.Mem.NewStringFromBytes(buf.Bytes())
	if result == Nil {
		return v.Fail(InsufficientMemoryError)
	}
	return result
}

func primFindInString(v *VM, args []Value) Value {
	// 1-based byte index of the next occurrence of the first string in
	// the second, or -1. The optional third argument sets the starting
	// byte index for the search.
	if len(args) < 2 {
		return v.Fail(NotEnoughArguments)
	}
	sought, haystack := args[0], args[1]
	startOffset := 1
	if len(args) > 2 && args[2].IsInt() {
		startOffset = int(args[2].Int())
	}
	if startOffset < 1 {
		startOffset = 1
	}

	if !v.Mem.IsType(sought, StringType) || !v.Mem.IsType(haystack, StringType) {
		return v.Fail(NeedsStringError)
	}
	if startOffset > v.Mem.StringSize(haystack) {
		return FromInt(-1)
	}
	s := v.stringBytes(haystack)
	i := bytes.Index(s[startOffset-1:], v.stringBytes(sought))
	if i < 0 {
		return FromInt(-1)
	}
	return FromInt(int32(startOffset + i))
}
