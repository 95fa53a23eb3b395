// Package bytecode defines the shared vocabulary depended upon by both the
// compiler and the virtual machine: opcodes, constants, memory addresses and
// chunks. It holds no behavior beyond that required to describe the
// instruction stream -- the compiler emits it, the machine executes it.
package bytecode

import "fmt"

// Opcode is a tagged instruction kind. Payload interpretation, where one
// exists, is documented per opcode below and carried in Instruction.Operand.
type Opcode uint8

const (
	Constant  Opcode = iota // push pool[Operand]
	True                    // push true
	False                   // push false
	Null                    // push null
	Add                     // pop 2, push arithmetic sum
	Sub                     // pop 2, push arithmetic difference
	Mul                     // pop 2, push arithmetic product
	Div                     // pop 2, push arithmetic quotient
	Mod                     // pop 2, push arithmetic remainder
	Eq                      // pop 2, push bool
	Neq                     // pop 2, push bool
	Lt                      // pop 2, push bool
	Le                      // pop 2, push bool
	Gt                      // pop 2, push bool
	Ge                      // pop 2, push bool
	Not                     // pop 1, push bool
	Negate                  // pop 1, push arithmetic negation
	Jif                     // pop condition; if falsy, ip += Operand (signed, relative to the instruction after Jif)
	Jp                      // ip += Operand (signed, relative to the instruction after Jp)
	Pop                     // pop and discard one value
	Block                   // pop value, discard Operand locals below it, push value back
	Break                   // patched to jump out of the enclosing loop, preserving the operand on top of stack
	Return                  // unwind the current frame, top of stack is the result
	Call                    // pop callee, pop Operand args below it (pushed by the call site), invoke
	Get                     // resolve the address on top of stack to its current value
	Asg                     // pop value, pop address, write value at address, push value back
	CreateClosure           // pop function + Operand upvalue addresses, push closure
	CreateObject            // pop Operand alternating (value, key) pairs, push object
	GetProperty             // pop key, pop target; Operand != 0 means bind as a method if the value is a function
	SetProperty             // pop value, pop key, pop target, store and push value
)

var names = [...]string{
	Constant: "Constant", True: "True", False: "False", Null: "Null",
	Add: "Add", Sub: "Sub", Mul: "Mul", Div: "Div", Mod: "Mod",
	Eq: "Eq", Neq: "Neq", Lt: "Lt", Le: "Le", Gt: "Gt", Ge: "Ge",
	Not: "Not", Negate: "Negate",
	Jif: "Jif", Jp: "Jp", Pop: "Pop", Block: "Block", Break: "Break", Return: "Return",
	Call: "Call", Get: "Get", Asg: "Asg",
	CreateClosure: "CreateClosure", CreateObject: "CreateObject",
	GetProperty: "GetProperty", SetProperty: "SetProperty",
}

func (op Opcode) String() string {
	if int(op) < len(names) && names[op] != "" {
		return names[op]
	}
	return fmt.Sprintf("<invalid opcode %d>", uint8(op))
}

// HasOperand reports whether op carries a meaningful Instruction.Operand.
func (op Opcode) HasOperand() bool {
	switch op {
	case Constant, Jif, Jp, Block, Break, Call, CreateClosure, CreateObject, GetProperty, SetProperty:
		return true
	default:
		return false
	}
}

// Instruction is one decoded entry of a Chunk's code stream: an opcode and
// its (possibly unused) operand. Operand is signed so that jump opcodes can
// carry negative (backward) offsets.
type Instruction struct {
	Op      Opcode
	Operand int32
}
