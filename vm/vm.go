package vm

import (
	"math/rand"
)

// VM ties the object memory to the primitive registry and the current
// task. The device runtime is strictly single-threaded: one task runs
// at a time, primitives are synchronous and non-reentrant, and the
// scheduler quantum is a primitive call boundary.
type VM struct {
	Mem *Memory

	sets map[string]*PrimitiveSet
	task *Task

	rand *rand.Rand
}

// NewVM creates a VM with an arena of the given word count and the
// built-in primitive sets registered.
func NewVM(arenaWords int) *VM {
	v := &VM{
		Mem:  NewMemory(arenaWords),
		sets: make(map[string]*PrimitiveSet),
		rand: rand.New(rand.NewSource(1)),
	}
	v.registerDataPrims()
	return v
}

// Seed reseeds the VM's random source (used by `at "random"`).
func (v *VM) Seed(seed int64) {
	v.rand = rand.New(rand.NewSource(seed))
}

// Task is one running chunk's execution state. The interpreter proper
// is out of scope here; the VM tracks only what primitives and the
// wire protocol need: the fault code and the result value.
type Task struct {
	ChunkID   int
	ErrorCode ErrorCode
	Result    Value
}

// BeginTask installs t as the current task. Primitives report faults
// against the current task.
func (v *VM) BeginTask(t *Task) {
	v.task = t
}

// CurrentTask returns the task primitives are running under, or nil.
func (v *VM) CurrentTask() *Task {
	return v.task
}

// Fail records a fault on the current task and returns the false
// singleton, the conventional result of a failed primitive. The
// interpreter aborts the task at the next dispatch boundary and the
// device reports a taskError message.
func (v *VM) Fail(code ErrorCode) Value {
	if v.task != nil && v.task.ErrorCode == NoError {
		v.task.ErrorCode = code
	}
	return False
}

// Failure reports whether the current task has a pending fault.
func (v *VM) Failure() bool {
	return v.task != nil && v.task.ErrorCode != NoError
}

// ClearFailure resets the current task's fault code.
func (v *VM) ClearFailure() {
	if v.task != nil {
		v.task.ErrorCode = NoError
	}
}

// Equal compares two values. Equality is defined on integers, booleans,
// nil, and strings (byte-wise); comparing anything else faults with
// NonComparableError and reports false.
func (v *VM) Equal(a, b Value) bool {
	if !v.comparable(a) || !v.comparable(b) {
		v.Fail(NonComparableError)
		return false
	}
	if a == b {
		return true
	}
	if v.Mem.IsType(a, StringType) && v.Mem.IsType(b, StringType) {
		return v.Mem.ObjString(a) == v.Mem.ObjString(b)
	}
	// comparable values of different kinds, or unequal immediates
	return false
}

func (v *VM) comparable(a Value) bool {
	return a.IsInt() || a.IsBoolean() || a == Nil || v.Mem.IsType(a, StringType)
}
