// Package vm implements the blox virtual machine core.
//
// This package contains:
//   - The tagged 32-bit value representation (small integers, the
//     nil/true/false singletons, and object references)
//   - The object memory: a bump-allocated arena of word objects with a
//     class/size header, reset wholesale and never collected
//   - The namespaced primitive registry
//   - The data primitives: growable lists, byte arrays, and
//     NUL-terminated UTF-8 strings
//   - The device error-code table and the fail/propagate discipline
//     primitives use to abort a task
//
// The bytecode interpreter is deliberately not here: the device runtime
// drives chunk execution through a Runner and this package only defines
// the object and error-code contract the interpreter shares with
// primitives.
package vm
