package bytecode

import "github.com/mna/aster/lang/symbol"

// MemoryAddress is a compile-time description of where a variable lives.
// It is one of Local, Upvalue or Global.
type MemoryAddress interface {
	isAddress()
}

// Local is slot i within the current call frame's portion of the operand
// stack (frame-relative).
type Local int

func (Local) isAddress() {}

// Upvalue is a captured variable. IsRef true means the binding is shared
// mutably with its originating frame (a cell); false means the capture is a
// by-value snapshot taken at closure creation time.
type Upvalue struct {
	Index int
	IsRef bool
}

func (Upvalue) isAddress() {}

// Global is a named entry in the globals table.
type Global symbol.ID

func (Global) isAddress() {}
