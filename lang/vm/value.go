// Package vm implements a single dispatch loop executing a compiler.Program
// against an operand stack, a call-frame stack, a vector-indexed heap and a
// globals table: a simple stack machine with frame-relative addressing,
// rather than the tree-of-Go-interfaces register machine a Starlark-style
// evaluator would use.
package vm

import (
	"fmt"

	"github.com/mna/aster/lang/bytecode"
)

// Value is a runtime value: a tagged union of Number, Bool, String, Null, a
// resolved MemoryAddress, a GlobalPointer, a HeapPointer or a
// NativeFunction.
type Value interface {
	isValue()
	String() string
}

// Number is a 64-bit floating-point runtime value.
type Number float64

func (Number) isValue()        {}
func (n Number) String() string { return fmt.Sprintf("%g", float64(n)) }

// Bool is a boolean runtime value.
type Bool bool

func (Bool) isValue()        {}
func (b Bool) String() string { return fmt.Sprintf("%t", bool(b)) }

// String is a runtime string value. Both string literals (resolved once,
// at the point a Sym constant is pushed, from the program's read-only
// symbol table) and the result of `+` concatenation share this
// representation -- concatenation never re-interns into the symbol table,
// which stays read-only once the VM starts.
type String string

func (String) isValue()        {}
func (s String) String() string { return string(s) }

// nullValue is the singleton runtime representation of the language's Null.
type nullValue struct{}

func (nullValue) isValue()        {}
func (nullValue) String() string { return "null" }

// Null is the single runtime Null value; Null == Null always holds since
// Go interface equality of an empty struct compares equal.
var Null Value = nullValue{}

// Address is a resolved MemoryAddress sitting on the operand stack,
// produced by executing a Constant(Addr{...}) instruction. Get and Asg are
// the only opcodes that consume it.
type Address struct {
	Address bytecode.MemoryAddress
}

func (Address) isValue()        {}
func (a Address) String() string { return fmt.Sprintf("<address %v>", a.Address) }

// GlobalPointer names a slot in the program's globals table: Get resolves
// it to the live closure or class descriptor currently bound there; Asg
// writes through to that same slot.
type GlobalPointer int

func (GlobalPointer) isValue()        {}
func (g GlobalPointer) String() string { return fmt.Sprintf("<global %d>", int(g)) }

// HeapPointer is a stable index into the VM's vector-indexed heap,
// referencing a Closure, an Object, a Class, a BoundMethod or a Cell.
type HeapPointer int

func (HeapPointer) isValue()        {}
func (p HeapPointer) String() string { return fmt.Sprintf("<heap %d>", int(p)) }

// funcTemplate is the transient value a Constant(FuncRef) instruction
// pushes: it names which compiler.Function template CreateClosure should
// build from. It is never exposed outside this package -- CreateClosure is
// always the very next instruction to consume it (see
// lang/compiler.closureExpr), so it need not implement the general Value
// contract beyond what dispatch requires internally.
type funcTemplate struct {
	index int
}

func (funcTemplate) isValue()        {}
func (f funcTemplate) String() string { return fmt.Sprintf("<func-template %d>", f.index) }

// NativeFunction is a Go-implemented callable registered with the VM
// before Run. Unlike a Closure, its arity is not fixed at compile time: Fn
// receives whatever
// slice of arguments the call site pushed and is responsible for its own
// arity checking.
type NativeFunction struct {
	Name string
	Fn   func(args []Value, m *VM) (Value, error)
}

func (*NativeFunction) isValue()        {}
func (n *NativeFunction) String() string { return fmt.Sprintf("<native %s>", n.Name) }

// Truth implements the language's truthiness rule: Null, the number 0, the
// boolean false and the empty string are falsy; everything else, including
// every heap value, is truthy.
func Truth(v Value) bool {
	switch v := v.(type) {
	case nullValue:
		return false
	case Number:
		return v != 0
	case Bool:
		return bool(v)
	case String:
		return v != ""
	default:
		return true
	}
}

// typeName returns a short diagnostic name for v's dynamic type, used only
// in RuntimeError messages.
func typeName(v Value) string {
	switch v.(type) {
	case Number:
		return "number"
	case Bool:
		return "bool"
	case String:
		return "string"
	case nullValue:
		return "null"
	case Address:
		return "address"
	case GlobalPointer:
		return "global pointer"
	case HeapPointer:
		return "heap pointer"
	case *NativeFunction:
		return "native function"
	default:
		return fmt.Sprintf("%T", v)
	}
}
