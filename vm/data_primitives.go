package vm

// ---------------------------------------------------------------------------
// Data Primitives: growable lists and byte arrays
// ---------------------------------------------------------------------------

// Growable lists: data word 0 is the current item count; items are in
// words 1..count. Words count+1..capacity are reserved for growth and
// kept zero.

// matches reports whether obj is a string equal to s. Index arguments
// accept the magic strings "last", "random" and "all".
func (v *VM) matches(s string, obj Value) bool {
	return v.Mem.IsType(obj, StringType) && v.Mem.ObjString(obj) == s
}

func (v *VM) listCount(list Value) int {
	count := int(v.Mem.Field(list, 0).Int())
	if count >= v.Mem.ObjWords(list) {
		count = v.Mem.ObjWords(list) - 1
	}
	return count
}

func (v *VM) registerDataPrims() {
	v.AddPrimitiveSet("data", []PrimEntry{
		{"makeList", primMakeList},
		{"newArray", primNewArray},
		{"newByteArray", primNewByteArray},
		{"fill", primFill},
		{"at", primAt},
		{"atPut", primAtPut},
		{"length", primLength},
		{"addLast", primAddLast},
		{"delete", primDelete},
		{"join", primJoin},
		{"copyFromTo", primCopyFromTo},
		{"findInString", primFindInString},
		{"joinStrings", primJoinStrings},
		{"freeMemory", primFreeMemory},
	})
}

func primMakeList(v *VM, args []Value) Value {
	result := v.Mem.Alloc(ListType, len(args)+1, False)
	if result == Nil {
		return v.Fail(InsufficientMemoryError)
	}
	v.Mem.SetField(result, 0, FromInt(int32(len(args))))
	for i, a := range args {
		v.Mem.SetField(result, i+1, a)
	}
	return result
}

func primNewArray(v *VM, args []Value) Value {
	// Return an empty growable list. The optional argument reserves
	// capacity.
	const minCapacity = 2
	capacity := minCapacity
	if len(args) > 0 && args[0].IsInt() {
		capacity = int(args[0].Int())
	}
	if capacity < minCapacity {
		capacity = minCapacity
	}
	result := v.Mem.Alloc(ListType, capacity+1, FromInt(0))
	if result == Nil {
		return v.Fail(InsufficientMemoryError)
	}
	v.Mem.SetField(result, 0, FromInt(0))
	return result
}

func primNewByteArray(v *VM, args []Value) Value {
	// Byte arrays have no sub-word length field; the byte count rounds
	// up to a full word.
	if len(args) < 1 || !args[0].IsInt() {
		return v.Fail(NeedsIntegerError)
	}
	n := int(args[0].Int())
	if n < 0 {
		return v.Fail(ArraySizeError)
	}
	result := v.Mem.Alloc(ByteArrayType, (n+3)/4, Nil) // raw zero bytes
	if result == Nil {
		return v.Fail(InsufficientMemoryError)
	}
	return result
}

func primFill(v *VM, args []Value) Value {
	if len(args) < 2 {
		return v.Fail(NotEnoughArguments)
	}
	obj, value := args[0], args[1]

	switch {
	case v.Mem.IsType(obj, ListType):
		count := v.listCount(obj)
		for i := 1; i <= count; i++ {
			v.Mem.SetField(obj, i, value)
		}
	case v.Mem.IsType(obj, ByteArrayType):
		if !value.IsInt() {
			return v.Fail(ByteArrayStoreError)
		}
		b := value.Int()
		if b < 0 || b > 255 {
			return v.Fail(ByteArrayStoreError)
		}
		for i := 0; i < 4*v.Mem.ObjWords(obj); i++ {
			v.Mem.SetByteAt(obj, i, byte(b))
		}
	default:
		return v.Fail(NeedsArrayError)
	}
	return False
}

// indexArg resolves an index argument (an integer, "last" or "random")
// against count. A zero return means the index faulted.
func (v *VM) indexArg(arg Value, count int, allowRandom bool) int {
	switch {
	case arg.IsInt():
		i := int(arg.Int())
		if i < 1 || i > count {
			v.Fail(IndexOutOfRangeError)
			return 0
		}
		return i
	case allowRandom && v.matches("random", arg):
		if count < 1 {
			v.Fail(IndexOutOfRangeError)
			return 0
		}
		return v.rand.Intn(count) + 1
	case v.matches("last", arg):
		if count < 1 {
			v.Fail(IndexOutOfRangeError)
			return 0
		}
		return count
	}
	v.Fail(NeedsIntegerIndexError)
	return 0
}

func primAt(v *VM, args []Value) Value {
	if len(args) < 2 {
		return v.Fail(NotEnoughArguments)
	}
	obj := args[1]

	switch {
	case v.Mem.IsType(obj, ListType):
		i := v.indexArg(args[0], v.listCount(obj), true)
		if i == 0 {
			return False
		}
		return v.Mem.Field(obj, i)
	case v.Mem.IsType(obj, StringType):
		i := v.indexArg(args[0], v.stringLengthUTF8(obj), true)
		if i == 0 {
			return False
		}
		return v.stringSliceUTF8(obj, i, i)
	case v.Mem.IsType(obj, ByteArrayType):
		i := v.indexArg(args[0], 4*v.Mem.ObjWords(obj), true)
		if i == 0 {
			return False
		}
		return FromInt(int32(v.Mem.ByteAt(obj, i-1)))
	}
	return v.Fail(NeedsArrayError)
}

func primAtPut(v *VM, args []Value) Value {
	if len(args) < 3 {
		return v.Fail(NotEnoughArguments)
	}
	obj, value := args[1], args[2]

	var count int
	var byteValue int32
	switch {
	case v.Mem.IsType(obj, ListType):
		count = v.listCount(obj)
	case v.Mem.IsType(obj, ByteArrayType):
		count = 4 * v.Mem.ObjWords(obj)
		if !value.IsInt() {
			return v.Fail(ByteArrayStoreError)
		}
		byteValue = value.Int()
		if byteValue < 0 || byteValue > 255 {
			return v.Fail(ByteArrayStoreError)
		}
	default:
		return v.Fail(NeedsArrayError)
	}

	if v.matches("all", args[0]) {
		if v.Mem.IsType(obj, ListType) {
			for i := 1; i <= count; i++ {
				v.Mem.SetField(obj, i, value)
			}
		} else {
			for i := 0; i < count; i++ {
				v.Mem.SetByteAt(obj, i, byte(byteValue))
			}
		}
		return False
	}

	i := v.indexArg(args[0], count, false)
	if i == 0 {
		return False
	}
	if v.Mem.IsType(obj, ListType) {
		v.Mem.SetField(obj, i, value)
	} else {
		v.Mem.SetByteAt(obj, i-1, byte(byteValue))
	}
	return False
}

func primLength(v *VM, args []Value) Value {
	if len(args) < 1 {
		return v.Fail(NotEnoughArguments)
	}
	obj := args[0]
	switch {
	case v.Mem.IsType(obj, ListType):
		return v.Mem.Field(obj, 0) // count lives in the first field
	case v.Mem.IsType(obj, ByteArrayType):
		return FromInt(int32(4 * v.Mem.ObjWords(obj)))
	case v.Mem.IsType(obj, StringType):
		return FromInt(int32(v.stringLengthUTF8(obj)))
	}
	return v.Fail(NeedsArrayError)
}

func primAddLast(v *VM, args []Value) Value {
	// Add an item to the end of a list, growing it when at capacity.
	if len(args) < 2 {
		return v.Fail(NotEnoughArguments)
	}
	list := args[1]
	if !v.Mem.IsType(list, ListType) {
		return v.Fail(NeedsArrayError)
	}

	count := int(v.Mem.Field(list, 0).Int())
	if count >= v.Mem.ObjWords(list)-1 { // at capacity; grow
		growBy := count / 3
		if growBy > 100 {
			growBy = 100
		}
		if growBy < 3 {
			growBy = 3
		}
		list = v.Mem.Resize(list, v.Mem.ObjWords(list)+growBy)
		if list == Nil {
			return v.Fail(InsufficientMemoryError)
		}
		args[1] = list // the list may have moved; refresh the stack slot
	}
	if count < v.Mem.ObjWords(list)-1 {
		count++
		v.Mem.SetField(list, count, args[0])
		v.Mem.SetField(list, 0, FromInt(int32(count)))
	}
	return False
}

func primDelete(v *VM, args []Value) Value {
	// Delete item(s) from a list: an index, "last", or "all".
	if len(args) < 2 {
		return v.Fail(NotEnoughArguments)
	}
	list := args[1]
	if !v.Mem.IsType(list, ListType) {
		return v.Fail(NeedsArrayError)
	}
	count := v.listCount(list)

	if v.matches("all", args[0]) {
		for i := 0; i <= count; i++ {
			v.Mem.SetField(list, i, FromInt(0))
		}
		return False
	}
	if v.matches("last", args[0]) {
		if count > 0 {
			v.Mem.SetField(list, count, FromInt(0))
			v.Mem.SetField(list, 0, FromInt(int32(count-1)))
		}
		return False
	}

	if !args[0].IsInt() {
		return v.Fail(NeedsIntegerError)
	}
	i := int(args[0].Int())
	if i < 1 || i > count {
		return v.Fail(IndexOutOfRangeError)
	}
	for ; i < count; i++ {
		v.Mem.SetField(list, i, v.Mem.Field(list, i+1))
	}
	v.Mem.SetField(list, count, FromInt(0)) // clear the freed slot
	v.Mem.SetField(list, 0, FromInt(int32(count-1)))
	return False
}

func primCopyFromTo(v *VM, args []Value) Value {
	// Copy of a list or string between two 1-based indices. The
	// optional end index defaults to the last element.
	if len(args) < 2 {
		return v.Fail(NotEnoughArguments)
	}
	if !args[1].IsInt() {
		return v.Fail(NeedsIntegerError)
	}
	startIndex := int(args[1].Int())
	if startIndex < 1 {
		startIndex = 1
	}
	if len(args) > 2 && !args[2].IsInt() {
		return v.Fail(NeedsIntegerError)
	}

	src := args[0]
	switch {
	case v.Mem.IsType(src, ListType):
		srcLen := int(v.Mem.Field(src, 0).Int())
		endIndex := srcLen
		if len(args) > 2 {
			endIndex = int(args[2].Int())
		}
		if endIndex > srcLen {
			endIndex = srcLen
		}
		resultLen := endIndex - startIndex + 1
		if resultLen < 0 {
			resultLen = 0
		}
		result := v.Mem.Alloc(ListType, resultLen+1, FromInt(0))
		if result == Nil {
			return v.Fail(InsufficientMemoryError)
		}
		src = args[0] // refresh after allocation
		v.Mem.SetField(result, 0, FromInt(int32(resultLen)))
		for i := 0; i < resultLen; i++ {
			v.Mem.SetField(result, i+1, v.Mem.Field(src, startIndex+i))
		}
		return result
	case v.Mem.IsType(src, StringType):
		srcLen := v.stringLengthUTF8(src)
		endIndex := srcLen
		if len(args) > 2 {
			endIndex = int(args[2].Int())
		}
		if endIndex > srcLen {
			endIndex = srcLen
		}
		return v.stringSliceUTF8(src, startIndex, endIndex)
	}
	return v.Fail(NeedsIndexableError)
}

func primFreeMemory(v *VM, args []Value) Value {
	return FromInt(int32(v.Mem.WordsFree()))
}
