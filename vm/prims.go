package vm

// PrimFunc is a native primitive handler. args points into the caller's
// operand stack; the return value is pushed back as the result.
// Statement-style primitives return the false singleton.
type PrimFunc func(v *VM, args []Value) Value

// PrimEntry binds a primitive name to its handler within a set.
type PrimEntry struct {
	Name string
	Fn   PrimFunc
}

// PrimitiveSet is a named table of primitives, e.g. "data" or "radio".
type PrimitiveSet struct {
	Name    string
	entries map[string]PrimFunc
}

// AddPrimitiveSet registers a named set of primitives. Re-adding a set
// replaces its entries.
func (v *VM) AddPrimitiveSet(name string, entries []PrimEntry) {
	set := &PrimitiveSet{Name: name, entries: make(map[string]PrimFunc, len(entries))}
	for _, e := range entries {
		set.entries[e.Name] = e.Fn
	}
	v.sets[name] = set
}

// FindPrimitive looks up a primitive by set and name, returning nil
// when either is unknown.
func (v *VM) FindPrimitive(setName, primName string) PrimFunc {
	set, ok := v.sets[setName]
	if !ok {
		return nil
	}
	return set.entries[primName]
}

// CallPrimitive invokes [setName:primName] with the given arguments.
// Unknown primitives fault with UnspecifiedError.
func (v *VM) CallPrimitive(setName, primName string, args []Value) Value {
	fn := v.FindPrimitive(setName, primName)
	if fn == nil {
		return v.Fail(UnspecifiedError)
	}
	return fn(v, args)
}
