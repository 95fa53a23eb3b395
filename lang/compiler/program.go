// Package compiler lowers an analyzed AST into a Program: a root chunk
// plus a table of top-level callables. The analyzer is
// this package's gate -- Generate assumes chunk was already accepted by
// analyzer.Analyze and panics on internal inconsistencies (an unresolved
// binding, an unexpected node kind) rather than returning an error, since those
// can only indicate a bug in this package or the analyzer, never bad
// user input.
package compiler

import (
	"github.com/mna/aster/lang/bytecode"
	"github.com/mna/aster/lang/symbol"
)

// GlobalItem is one top-level declaration compiled into the program's
// globals table: a *Function or a *Class.
type GlobalItem interface {
	isGlobalItem()
}

// UpvalueDesc describes one upvalue slot of a Function: whether it
// resolves to a local slot of the immediately enclosing frame at closure
// creation time (IsLocal), or to an upvalue slot of the immediately
// enclosing closure (!IsLocal). IsRef is always true in this language: the
// surface syntax provides no way to request a by-value snapshot capture,
// only by-reference capture through a shared cell.
type UpvalueDesc struct {
	IsLocal bool
	Index   int
	IsRef   bool
}

// Function is one compiled callable: its arity, its chunk, and the
// upvalue descriptors a CreateClosure instruction must resolve when a
// closure over it is constructed.
type Function struct {
	Name     string
	Arity    int
	Chunk    *bytecode.Chunk
	Upvalues []UpvalueDesc
}

func (*Function) isGlobalItem() {}

// Class is one compiled class: its field names in declaration order, a
// synthetic zero-argument constructor Function that evaluates each field's
// initializer (in order, each visible to the next as an ordinary local)
// and returns the resulting instance object, its methods, and the index of
// its superclass in the program's globals table (-1 if none).
type Class struct {
	Name       string
	Fields     []string
	Ctor       *Function
	Methods    []*Function
	Superclass int
}

func (*Class) isGlobalItem() {}

// Program is the output of the generator: a root chunk, the table of
// top-level functions and classes addressed by GlobalPtr constants, and a
// flat table of every other (nested or anonymous) function literal
// addressed by FuncRef constants.
type Program struct {
	RootChunk  *bytecode.Chunk
	Globals    []GlobalItem
	Functions  []*Function
	Symbols    *symbol.Table
	RootLocals int
}
