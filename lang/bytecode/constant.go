package bytecode

import "github.com/mna/aster/lang/symbol"

// Constant is one immutable entry of a Chunk's constant pool. It is one of
// Number, Sym, Bool, Addr, GlobalPtr or FuncRef.
type Constant interface {
	isConstant()
}

// Number is a 64-bit floating-point literal constant.
type Number float64

func (Number) isConstant() {}

// Sym is an interned text symbol constant (an identifier or string
// literal).
type Sym symbol.ID

func (Sym) isConstant() {}

// Bool is a boolean literal constant.
type Bool bool

func (Bool) isConstant() {}

// Addr wraps a compile-time MemoryAddress so it can travel through the
// constant pool and be pushed by a Constant opcode; Get/Asg then resolve or
// write through it.
type Addr struct {
	Address MemoryAddress
}

func (Addr) isConstant() {}

// GlobalPtr is an index into the program's global-items table (top-level
// functions and classes). Pushing a GlobalPtr constant followed by Get
// yields the live runtime value currently bound to that global slot.
// GlobalPtr is also a valid address for Asg, writing through to that same
// runtime slot. CreateClosure does not accept a GlobalPtr; it builds
// closures only from a FuncRef.
type GlobalPtr int

func (GlobalPtr) isConstant() {}

// FuncRef is an index into the program's flat function-template table
// (Program.Functions), used exclusively by CreateClosure to build a
// closure over a nested or anonymous function literal -- one that has no
// global slot of its own to be named by a GlobalPtr.
type FuncRef int

func (FuncRef) isConstant() {}
