package vm

import "testing"

func newTestVM(t *testing.T) (*VM, *Task) {
	t.Helper()
	v := NewVM(2000)
	task := &Task{}
	v.BeginTask(task)
	return v, task
}

func call(t *testing.T, v *VM, name string, args ...Value) Value {
	t.Helper()
	return v.CallPrimitive("data", name, args)
}

func TestMakeList(t *testing.T) {
	v, task := newTestVM(t)

	list := call(t, v, "makeList", FromInt(10), FromInt(20), FromInt(30))
	if task.ErrorCode != NoError {
		t.Fatalf("fault: %v", task.ErrorCode)
	}
	if got := call(t, v, "length", list); got != FromInt(3) {
		t.Errorf("length = %d, want 3", got.Int())
	}
	for i, want := range []int32{10, 20, 30} {
		got := call(t, v, "at", FromInt(int32(i+1)), list)
		if got != FromInt(want) {
			t.Errorf("at %d = %d, want %d", i+1, got.Int(), want)
		}
	}
}

func TestNewArrayIsEmpty(t *testing.T) {
	v, task := newTestVM(t)

	list := call(t, v, "newArray", FromInt(10))
	if task.ErrorCode != NoError {
		t.Fatalf("fault: %v", task.ErrorCode)
	}
	if got := call(t, v, "length", list); got != FromInt(0) {
		t.Errorf("new array length = %d, want 0", got.Int())
	}
	if got := v.Mem.ObjWords(list); got != 11 {
		t.Errorf("capacity words = %d, want 11", got)
	}
}

func TestNewArrayMinCapacity(t *testing.T) {
	v, _ := newTestVM(t)
	list := call(t, v, "newArray")
	if got := v.Mem.ObjWords(list); got != 3 {
		t.Errorf("default capacity words = %d, want 3 (count + 2 slots)", got)
	}
}

func TestAtBounds(t *testing.T) {
	v, task := newTestVM(t)
	list := call(t, v, "makeList", FromInt(1), FromInt(2))

	call(t, v, "at", FromInt(0), list)
	if task.ErrorCode != IndexOutOfRangeError {
		t.Errorf("at 0: fault = %v, want indexOutOfRangeError", task.ErrorCode)
	}
	v.ClearFailure()

	call(t, v, "at", FromInt(3), list)
	if task.ErrorCode != IndexOutOfRangeError {
		t.Errorf("at 3: fault = %v, want indexOutOfRangeError", task.ErrorCode)
	}
	v.ClearFailure()

	call(t, v, "at", True, list)
	if task.ErrorCode != NeedsIntegerIndexError {
		t.Errorf("at true: fault = %v, want needsIntegerIndexError", task.ErrorCode)
	}
}

func TestAtLastAndRandom(t *testing.T) {
	v, task := newTestVM(t)
	list := call(t, v, "makeList", FromInt(5), FromInt(6), FromInt(7))

	last := v.Mem.NewString("last")
	if got := call(t, v, "at", last, list); got != FromInt(7) {
		t.Errorf(`at "last" = %d, want 7`, got.Int())
	}

	random := v.Mem.NewString("random")
	for i := 0; i < 20; i++ {
		got := call(t, v, "at", random, list)
		n := got.Int()
		if n < 5 || n > 7 {
			t.Fatalf(`at "random" = %d, out of range`, n)
		}
	}
	if task.ErrorCode != NoError {
		t.Errorf("fault: %v", task.ErrorCode)
	}
}

func TestAtPut(t *testing.T) {
	v, task := newTestVM(t)
	list := call(t, v, "makeList", FromInt(1), FromInt(2), FromInt(3))

	call(t, v, "atPut", FromInt(2), list, FromInt(99))
	if got := call(t, v, "at", FromInt(2), list); got != FromInt(99) {
		t.Errorf("after atPut, at 2 = %d, want 99", got.Int())
	}

	all := v.Mem.NewString("all")
	call(t, v, "atPut", all, list, FromInt(5))
	for i := int32(1); i <= 3; i++ {
		if got := call(t, v, "at", FromInt(i), list); got != FromInt(5) {
			t.Errorf(`after atPut "all", at %d = %d, want 5`, i, got.Int())
		}
	}
	if task.ErrorCode != NoError {
		t.Errorf("fault: %v", task.ErrorCode)
	}
}

func TestAddLastGrowsList(t *testing.T) {
	// S4: start from an empty makeList (no reserved slots) and append 5
	// items.
	v, task := newTestVM(t)
	list := call(t, v, "makeList")
	if got := v.Mem.ObjWords(list); got != 1 {
		t.Fatalf("empty makeList words = %d, want 1", got)
	}

	args := []Value{Nil, list}
	for i := int32(1); i <= 5; i++ {
		args[0] = FromInt(10 * i)
		call(t, v, "addLast", args...)
		list = args[1] // addLast refreshes the stack slot on growth
	}
	if task.ErrorCode != NoError {
		t.Fatalf("fault: %v", task.ErrorCode)
	}
	if got := call(t, v, "length", list); got != FromInt(5) {
		t.Errorf("length = %d, want 5", got.Int())
	}
	if capacity := v.Mem.ObjWords(list) - 1; capacity < 5 {
		t.Errorf("capacity = %d, want >= 5", capacity)
	}
	for i := int32(1); i <= 5; i++ {
		if got := call(t, v, "at", FromInt(i), list); got != FromInt(10*i) {
			t.Errorf("at %d = %d, want %d", i, got.Int(), 10*i)
		}
	}
}

func TestDelete(t *testing.T) {
	v, task := newTestVM(t)
	list := call(t, v, "makeList", FromInt(1), FromInt(2), FromInt(3), FromInt(4))

	call(t, v, "delete", FromInt(2), list)
	if task.ErrorCode != NoError {
		t.Fatalf("fault: %v", task.ErrorCode)
	}
	if got := call(t, v, "length", list); got != FromInt(3) {
		t.Errorf("length after delete = %d, want 3", got.Int())
	}
	for i, want := range []int32{1, 3, 4} {
		if got := call(t, v, "at", FromInt(int32(i+1)), list); got != FromInt(want) {
			t.Errorf("at %d = %d, want %d", i+1, got.Int(), want)
		}
	}
	// the freed slot past the count must be zero
	if got := v.Mem.Field(list, 4); got != FromInt(0) {
		t.Errorf("freed slot = %#x, want tagged zero", uint32(got))
	}
}

func TestDeleteLastAndAll(t *testing.T) {
	v, _ := newTestVM(t)
	list := call(t, v, "makeList", FromInt(1), FromInt(2))

	last := v.Mem.NewString("last")
	call(t, v, "delete", last, list)
	if got := call(t, v, "length", list); got != FromInt(1) {
		t.Errorf(`length after delete "last" = %d, want 1`, got.Int())
	}

	all := v.Mem.NewString("all")
	call(t, v, "delete", all, list)
	if got := call(t, v, "length", list); got != FromInt(0) {
		t.Errorf(`length after delete "all" = %d, want 0`, got.Int())
	}
	if got := v.Mem.Field(list, 1); got != FromInt(0) {
		t.Errorf("slot not zeroed by delete \"all\"")
	}
}

func TestCopyFromTo(t *testing.T) {
	v, task := newTestVM(t)
	list := call(t, v, "makeList", FromInt(1), FromInt(2), FromInt(3), FromInt(4))

	// full copy round-trips element-wise
	full := call(t, v, "copyFromTo", list, FromInt(1), FromInt(4))
	if got := call(t, v, "length", full); got != FromInt(4) {
		t.Fatalf("full copy length = %d", got.Int())
	}
	for i := int32(1); i <= 4; i++ {
		if call(t, v, "at", FromInt(i), full) != call(t, v, "at", FromInt(i), list) {
			t.Errorf("full copy differs at %d", i)
		}
	}

	mid := call(t, v, "copyFromTo", list, FromInt(2), FromInt(3))
	if got := call(t, v, "length", mid); got != FromInt(2) {
		t.Errorf("mid copy length = %d, want 2", got.Int())
	}
	if call(t, v, "at", FromInt(1), mid) != FromInt(2) {
		t.Error("mid copy wrong first element")
	}

	// end index clamps to the source length
	clamped := call(t, v, "copyFromTo", list, FromInt(3), FromInt(100))
	if got := call(t, v, "length", clamped); got != FromInt(2) {
		t.Errorf("clamped copy length = %d, want 2", got.Int())
	}
	if task.ErrorCode != NoError {
		t.Errorf("fault: %v", task.ErrorCode)
	}
}

func TestByteArray(t *testing.T) {
	v, task := newTestVM(t)
	ba := call(t, v, "newByteArray", FromInt(8))
	if task.ErrorCode != NoError {
		t.Fatalf("fault: %v", task.ErrorCode)
	}
	if got := call(t, v, "length", ba); got != FromInt(8) {
		t.Errorf("length = %d, want 8", got.Int())
	}

	call(t, v, "atPut", FromInt(3), ba, FromInt(200))
	if got := call(t, v, "at", FromInt(3), ba); got != FromInt(200) {
		t.Errorf("byte at 3 = %d, want 200", got.Int())
	}

	call(t, v, "atPut", FromInt(1), ba, FromInt(256))
	if task.ErrorCode != ByteArrayStoreError {
		t.Errorf("storing 256: fault = %v, want byteArrayStoreError", task.ErrorCode)
	}
	v.ClearFailure()

	call(t, v, "atPut", FromInt(9), ba, FromInt(1))
	if task.ErrorCode != IndexOutOfRangeError {
		t.Errorf("storing past end: fault = %v, want indexOutOfRangeError", task.ErrorCode)
	}
}

func TestFill(t *testing.T) {
	v, task := newTestVM(t)

	list := call(t, v, "makeList", FromInt(1), FromInt(2), FromInt(3))
	call(t, v, "fill", list, FromInt(9))
	for i := int32(1); i <= 3; i++ {
		if got := call(t, v, "at", FromInt(i), list); got != FromInt(9) {
			t.Errorf("filled list at %d = %d, want 9", i, got.Int())
		}
	}

	ba := call(t, v, "newByteArray", FromInt(4))
	call(t, v, "fill", ba, FromInt(0xAB))
	for i := int32(1); i <= 4; i++ {
		if got := call(t, v, "at", FromInt(i), ba); got != FromInt(0xAB) {
			t.Errorf("filled bytes at %d = %d", i, got.Int())
		}
	}

	call(t, v, "fill", ba, FromInt(999))
	if task.ErrorCode != ByteArrayStoreError {
		t.Errorf("fill 999: fault = %v, want byteArrayStoreError", task.ErrorCode)
	}
}

func TestAllocationFailurePropagates(t *testing.T) {
	v := NewVM(4) // too small for anything useful
	task := &Task{}
	v.BeginTask(task)

	v.CallPrimitive("data", "makeList", []Value{FromInt(1), FromInt(2), FromInt(3), FromInt(4)})
	if task.ErrorCode != InsufficientMemoryError {
		t.Errorf("fault = %v, want insufficientMemoryError", task.ErrorCode)
	}
}

func TestFreeMemory(t *testing.T) {
	v, _ := newTestVM(t)
	before := call(t, v, "freeMemory", Nil).Int()
	call(t, v, "makeList", FromInt(1))
	after := call(t, v, "freeMemory", Nil).Int()
	if after >= before {
		t.Errorf("freeMemory did not shrink: %d -> %d", before, after)
	}
}
