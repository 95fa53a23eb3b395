package compiler

import (
	"fmt"
	"io"
	"strconv"

	"github.com/mna/aster/lang/bytecode"
	"github.com/mna/aster/lang/symbol"
)

// Disassembler writes a textual rendering of a Program's chunks to Output,
// ambient tooling in the same spirit as ast.Printer -- never consulted by
// the compiler or the VM, used by the `disasm` CLI subcommand and the
// REPL's :disasm meta-command.
type Disassembler struct {
	Output io.Writer
}

// Disassemble writes every chunk of p: the root chunk, then each top-level
// function/class in Globals, then each entry of Functions.
func (d *Disassembler) Disassemble(p *Program) error {
	w := &disasmWriter{w: d.Output, prog: p}
	w.chunk("<root>", p.RootChunk)
	for i, g := range p.Globals {
		switch g := g.(type) {
		case *Function:
			w.printf("\nglobal %d: fn %s/%d\n", i, g.Name, g.Arity)
			w.chunk(g.Name, g.Chunk)
		case *Class:
			w.printf("\nglobal %d: class %s\n", i, g.Name)
			w.printf("  fields: %v\n", g.Fields)
			w.chunk(g.Name+".ctor", g.Ctor.Chunk)
			for _, m := range g.Methods {
				w.printf("  method %s/%d:\n", m.Name, m.Arity)
				w.chunk(m.Name, m.Chunk)
			}
		}
	}
	for i, fn := range p.Functions {
		w.printf("\nfunc %d: %s/%d\n", i, fn.Name, fn.Arity)
		w.chunk(fn.Name, fn.Chunk)
	}
	return w.err
}

type disasmWriter struct {
	w    io.Writer
	prog *Program
	err  error
}

func (w *disasmWriter) printf(format string, args ...any) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.w, format, args...)
}

func (w *disasmWriter) chunk(name string, c *bytecode.Chunk) {
	for ix, instr := range c.Code {
		w.printf("  %4d  %-14s", ix, instr.Op)
		if instr.Op.HasOperand() {
			w.printf(" %-6d", instr.Operand)
		} else {
			w.printf(" %-6s", "")
		}
		if note := w.operandNote(c, ix, instr); note != "" {
			w.printf("  ; %s", note)
		}
		w.printf("\n")
	}
}

// operandNote decodes an instruction's operand into a human-readable
// annotation, where one adds information beyond the raw integer: the
// constant a Constant instruction loads, or the target address a jump
// lands on.
func (w *disasmWriter) operandNote(c *bytecode.Chunk, ix int, instr bytecode.Instruction) string {
	switch instr.Op {
	case bytecode.Constant:
		if int(instr.Operand) < len(c.Constants) {
			return w.constantNote(c.Constants[instr.Operand])
		}
	case bytecode.Jif, bytecode.Jp, bytecode.Break:
		return fmt.Sprintf("-> %d", ix+1+int(instr.Operand))
	}
	return ""
}

func (w *disasmWriter) constantNote(k bytecode.Constant) string {
	switch k := k.(type) {
	case bytecode.Number:
		return strconv.FormatFloat(float64(k), 'g', -1, 64)
	case bytecode.Sym:
		if w.prog != nil && w.prog.Symbols != nil {
			return strconv.Quote(w.prog.Symbols.Text(symbol.ID(k)))
		}
		return fmt.Sprintf("sym#%d", int(k))
	case bytecode.Bool:
		return strconv.FormatBool(bool(k))
	case bytecode.Addr:
		return addrNote(k.Address)
	case bytecode.GlobalPtr:
		return fmt.Sprintf("global#%d", int(k))
	case bytecode.FuncRef:
		return fmt.Sprintf("func#%d", int(k))
	default:
		return fmt.Sprintf("%v", k)
	}
}

func addrNote(a bytecode.MemoryAddress) string {
	switch a := a.(type) {
	case bytecode.Local:
		return fmt.Sprintf("local[%d]", int(a))
	case bytecode.Upvalue:
		return fmt.Sprintf("upvalue[%d]", a.Index)
	case bytecode.Global:
		return fmt.Sprintf("global(%d)", int(a))
	default:
		return fmt.Sprintf("%v", a)
	}
}
