package bytecode

import "github.com/mna/aster/lang/token"

// Chunk is a pair of (instruction stream, constant pool) owned by one
// callable. The invariant every Chunk must satisfy: every Constant
// instruction's Operand is a valid index into Constants. Spans parallels
// Code one-to-one, recording the source span the compiler was innermost in
// when it emitted each instruction, so the VM can map a runtime error back
// to source text without a separate line table.
type Chunk struct {
	Code      []Instruction
	Constants []Constant
	Spans     []token.Span
}

// Emit appends an instruction (tagged with sp for later error reporting)
// and returns its index in Code, which callers use as a patch handle for
// forward jumps.
func (c *Chunk) Emit(sp token.Span, op Opcode, operand int32) int {
	c.Code = append(c.Code, Instruction{Op: op, Operand: operand})
	c.Spans = append(c.Spans, sp)
	return len(c.Code) - 1
}

// PatchOperand overwrites the operand of the instruction at index ix. It is
// used to backfill forward jumps once their target address is known.
func (c *Chunk) PatchOperand(ix int, operand int32) {
	c.Code[ix].Operand = operand
}

// AddConstant appends a constant to the pool and returns its index.
func (c *Chunk) AddConstant(k Constant) int {
	c.Constants = append(c.Constants, k)
	return len(c.Constants) - 1
}

// Here returns the index of the next instruction to be emitted, i.e. the
// chunk's current length. Used to compute relative jump offsets and to
// record loop back-edge targets.
func (c *Chunk) Here() int {
	return len(c.Code)
}
